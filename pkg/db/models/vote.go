package models

import "time"

const VotesTableName = "votes"

// Vote positions. Absent is excluded from both sides of the loyalty ratio
// but is the non-participation signal for presence.
const (
	PositionFor     = "for"
	PositionAgainst = "against"
	PositionAbstain = "abstain"
	PositionAbsent  = "absent"
)

// VoteColumns defines the schema for the votes table. The replacing key
// (chamber, ballot_ext_id, legislator_ext_id) makes one vote per pair.
var VoteColumns = []ColumnDef{
	{Name: "chamber", Type: "LowCardinality(String)"},
	{Name: "ballot_ext_id", Type: "String", Codec: "ZSTD(1)"},
	{Name: "legislator_ext_id", Type: "String", Codec: "ZSTD(1)"},
	{Name: "position", Type: "LowCardinality(String)"},
	{Name: "updated_at", Type: "DateTime64(3)", Codec: "DoubleDelta, ZSTD(1)"},
}

// Vote is one (legislator, ballot) pair.
type Vote struct {
	Chamber         string    `ch:"chamber" json:"chamber"`
	BallotExtID     string    `ch:"ballot_ext_id" json:"ballot_ext_id"`
	LegislatorExtID string    `ch:"legislator_ext_id" json:"legislator_ext_id"`
	Position        string    `ch:"position" json:"position"`
	UpdatedAt       time.Time `ch:"updated_at" json:"updated_at"`
}

// VoteRecord is the read shape used by the stats calculator: a legislator's
// vote joined with its ballot date.
type VoteRecord struct {
	BallotExtID string    `ch:"ballot_ext_id"`
	Position    string    `ch:"position"`
	BallotDate  time.Time `ch:"ballot_date"`
}
