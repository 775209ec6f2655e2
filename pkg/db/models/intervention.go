package models

import "time"

const InterventionsTableName = "interventions"

// Intervention kinds. Questions feed the question_count metric; everything
// else counts as a plain intervention.
const (
	InterventionSpeech   = "speech"
	InterventionQuestion = "question"
)

// InterventionColumns defines the schema for the interventions table.
var InterventionColumns = []ColumnDef{
	{Name: "chamber", Type: "LowCardinality(String)"},
	{Name: "ext_id", Type: "String", Codec: "ZSTD(1)"},
	{Name: "legislator_ext_id", Type: "String", Codec: "ZSTD(1)"},
	{Name: "kind", Type: "LowCardinality(String)"},
	{Name: "date", Type: "DateTime64(3)", Codec: "DoubleDelta, ZSTD(1)"},
	{Name: "word_count", Type: "UInt32", Codec: "ZSTD(1)"},
	{Name: "updated_at", Type: "DateTime64(3)", Codec: "DoubleDelta, ZSTD(1)"},
}

// Intervention is one legislator-attributed speech or question in session.
type Intervention struct {
	Chamber         string    `ch:"chamber" json:"chamber"`
	ExtID           string    `ch:"ext_id" json:"ext_id"`
	LegislatorExtID string    `ch:"legislator_ext_id" json:"legislator_ext_id"`
	Kind            string    `ch:"kind" json:"kind"`
	Date            time.Time `ch:"date" json:"date"`
	WordCount       uint32    `ch:"word_count" json:"word_count"`
	UpdatedAt       time.Time `ch:"updated_at" json:"updated_at"`
}
