package models

import "time"

const AmendmentsTableName = "amendments"

// Amendment lifecycle outcomes as normalized from upstream values.
const (
	AmendmentAdopted   = "adopted"
	AmendmentRejected  = "rejected"
	AmendmentWithdrawn = "withdrawn"
	AmendmentPending   = "pending"
)

// AmendmentColumns defines the schema for the amendments table.
var AmendmentColumns = []ColumnDef{
	{Name: "chamber", Type: "LowCardinality(String)"},
	{Name: "ext_id", Type: "String", Codec: "ZSTD(1)"},
	{Name: "legislator_ext_id", Type: "String", Codec: "ZSTD(1)"},
	{Name: "text_ref", Type: "String", Codec: "ZSTD(1)"},
	{Name: "text_title", Type: "String", Codec: "ZSTD(1)"},
	{Name: "subject", Type: "String", Codec: "ZSTD(1)"},
	{Name: "outcome", Type: "LowCardinality(String)"},
	{Name: "date", Type: "DateTime64(3)", Codec: "DoubleDelta, ZSTD(1)"},
	{Name: "updated_at", Type: "DateTime64(3)", Codec: "DoubleDelta, ZSTD(1)"},
}

// Amendment is one legislator-attributed amendment with its lifecycle
// outcome, used in derived counts.
type Amendment struct {
	Chamber         string    `ch:"chamber" json:"chamber"`
	ExtID           string    `ch:"ext_id" json:"ext_id"`
	LegislatorExtID string    `ch:"legislator_ext_id" json:"legislator_ext_id"`
	TextRef         string    `ch:"text_ref" json:"text_ref"` // targeted legislative text id
	TextTitle       string    `ch:"text_title" json:"text_title"`
	Subject         string    `ch:"subject" json:"subject"`
	Outcome         string    `ch:"outcome" json:"outcome"`
	Date            time.Time `ch:"date" json:"date"`
	UpdatedAt       time.Time `ch:"updated_at" json:"updated_at"`
}
