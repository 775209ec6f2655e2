package models

import "time"

const PoliticalGroupsTableName = "political_groups"

// PoliticalGroupColumns defines the schema for the political_groups table.
var PoliticalGroupColumns = []ColumnDef{
	{Name: "chamber", Type: "LowCardinality(String)"},
	{Name: "ext_id", Type: "String", Codec: "ZSTD(1)"},
	{Name: "name", Type: "String", Codec: "ZSTD(1)"},
	{Name: "slug", Type: "String", Codec: "ZSTD(1)"},
	{Name: "color", Type: "String", Codec: "ZSTD(1)"},
	{Name: "position", Type: "LowCardinality(String)"},
	{Name: "updated_at", Type: "DateTime64(3)", Codec: "DoubleDelta, ZSTD(1)"},
}

// PoliticalGroup is one parliamentary group within a chamber.
type PoliticalGroup struct {
	Chamber   string    `ch:"chamber" json:"chamber"`
	ExtID     string    `ch:"ext_id" json:"ext_id"`
	Name      string    `ch:"name" json:"name"`
	Slug      string    `ch:"slug" json:"slug"`
	Color     string    `ch:"color" json:"color"`
	Position  string    `ch:"position" json:"position"` // ideological tag: left, center, right...
	UpdatedAt time.Time `ch:"updated_at" json:"updated_at"`
}
