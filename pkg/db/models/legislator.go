package models

import "time"

// Chambers covered by the sync pipeline.
const (
	ChamberAssembly = "assembly"
	ChamberSenate   = "senate"
)

const LegislatorsTableName = "legislators"

// LegislatorColumns defines the schema for the legislators table.
// ReplacingMergeTree(updated_at) keyed by (chamber, ext_id): an upsert is an
// insert of a newer row version.
var LegislatorColumns = []ColumnDef{
	{Name: "chamber", Type: "LowCardinality(String)"},
	{Name: "ext_id", Type: "String", Codec: "ZSTD(1)"},
	{Name: "name", Type: "String", Codec: "ZSTD(1)"},
	{Name: "slug", Type: "String", Codec: "ZSTD(1)"},
	{Name: "group_ext_id", Type: "String", Codec: "ZSTD(1)"},
	{Name: "active", Type: "UInt8 DEFAULT 1"},
	{Name: "presence_rate", Type: "UInt8 DEFAULT 0"},
	{Name: "loyalty_rate", Type: "UInt8 DEFAULT 0"},
	{Name: "votes_cast", Type: "UInt32 DEFAULT 0"},
	{Name: "intervention_count", Type: "UInt32 DEFAULT 0"},
	{Name: "amendments_proposed", Type: "UInt32 DEFAULT 0"},
	{Name: "amendments_adopted", Type: "UInt32 DEFAULT 0"},
	{Name: "question_count", Type: "UInt32 DEFAULT 0"},
	{Name: "stats_computed_at", Type: "DateTime64(3)", Codec: "DoubleDelta, ZSTD(1)"},
	{Name: "updated_at", Type: "DateTime64(3)", Codec: "DoubleDelta, ZSTD(1)"},
}

// Legislator is one member of a chamber. Identity and membership are owned
// by the roster connector; the derived metric fields are mutated exclusively
// by the stats calculator and must always be reproducible from the vote,
// intervention and amendment rows present at computation time.
type Legislator struct {
	Chamber    string `ch:"chamber" json:"chamber"`
	ExtID      string `ch:"ext_id" json:"ext_id"`
	Name       string `ch:"name" json:"name"`
	Slug       string `ch:"slug" json:"slug"`
	GroupExtID string `ch:"group_ext_id" json:"group_ext_id"` // empty = no current group
	Active     bool   `ch:"active" json:"active"`

	// Derived metrics.
	PresenceRate       uint8  `ch:"presence_rate" json:"presence_rate"` // percent, 0-100
	LoyaltyRate        uint8  `ch:"loyalty_rate" json:"loyalty_rate"`   // percent, 0-100
	VotesCast          uint32 `ch:"votes_cast" json:"votes_cast"`       // non-absent votes
	InterventionCount  uint32 `ch:"intervention_count" json:"intervention_count"`
	AmendmentsProposed uint32 `ch:"amendments_proposed" json:"amendments_proposed"`
	AmendmentsAdopted  uint32 `ch:"amendments_adopted" json:"amendments_adopted"`
	QuestionCount      uint32 `ch:"question_count" json:"question_count"`

	// StatsComputedAt is the cache-validity marker; zero means dirty.
	StatsComputedAt time.Time `ch:"stats_computed_at" json:"stats_computed_at"`
	UpdatedAt       time.Time `ch:"updated_at" json:"updated_at"`
}
