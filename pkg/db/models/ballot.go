package models

import "time"

const BallotsTableName = "ballots"

// BallotColumns defines the schema for the ballots table.
var BallotColumns = []ColumnDef{
	{Name: "chamber", Type: "LowCardinality(String)"},
	{Name: "ext_id", Type: "String", Codec: "ZSTD(1)"},
	{Name: "number", Type: "UInt32", Codec: "Delta, ZSTD(3)"},
	{Name: "date", Type: "DateTime64(3)", Codec: "DoubleDelta, ZSTD(1)"},
	{Name: "title", Type: "String", Codec: "ZSTD(1)"},
	{Name: "outcome", Type: "LowCardinality(String)"},
	{Name: "votes_for", Type: "UInt32", Codec: "ZSTD(1)"},
	{Name: "votes_against", Type: "UInt32", Codec: "ZSTD(1)"},
	{Name: "abstentions", Type: "UInt32", Codec: "ZSTD(1)"},
	{Name: "updated_at", Type: "DateTime64(3)", Codec: "DoubleDelta, ZSTD(1)"},
}

// Ballot (scrutin) is one recorded roll-call vote event. Immutable once
// ingested except for tally corrections arriving on a re-sync, which land
// as a newer row version.
type Ballot struct {
	Chamber      string    `ch:"chamber" json:"chamber"`
	ExtID        string    `ch:"ext_id" json:"ext_id"`
	Number       uint32    `ch:"number" json:"number"`
	Date         time.Time `ch:"date" json:"date"`
	Title        string    `ch:"title" json:"title"`
	Outcome      string    `ch:"outcome" json:"outcome"` // adopted | rejected
	VotesFor     uint32    `ch:"votes_for" json:"votes_for"`
	VotesAgainst uint32    `ch:"votes_against" json:"votes_against"`
	Abstentions  uint32    `ch:"abstentions" json:"abstentions"`
	UpdatedAt    time.Time `ch:"updated_at" json:"updated_at"`
}
