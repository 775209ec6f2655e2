package models

import "time"

const LobbyOrganizationsTableName = "lobby_organizations"
const LobbyActionsTableName = "lobby_actions"

// LobbyOrganizationColumns defines the schema for lobby_organizations.
var LobbyOrganizationColumns = []ColumnDef{
	{Name: "ext_id", Type: "String", Codec: "ZSTD(1)"},
	{Name: "name", Type: "String", Codec: "ZSTD(1)"},
	{Name: "slug", Type: "String", Codec: "ZSTD(1)"},
	{Name: "category", Type: "LowCardinality(String)"},
	{Name: "sectors", Type: "Array(String)", Codec: "ZSTD(1)"},
	{Name: "budget", Type: "Int64", Codec: "ZSTD(1)"},
	{Name: "head_count", Type: "UInt32", Codec: "ZSTD(1)"},
	{Name: "updated_at", Type: "DateTime64(3)", Codec: "DoubleDelta, ZSTD(1)"},
}

// LobbyOrganization is one declared interest representative.
type LobbyOrganization struct {
	ExtID     string    `ch:"ext_id" json:"ext_id"`
	Name      string    `ch:"name" json:"name"`
	Slug      string    `ch:"slug" json:"slug"`
	Category  string    `ch:"category" json:"category"`
	Sectors   []string  `ch:"sectors" json:"sectors"`
	Budget    int64     `ch:"budget" json:"budget"`
	HeadCount uint32    `ch:"head_count" json:"head_count"`
	UpdatedAt time.Time `ch:"updated_at" json:"updated_at"`
}

// LobbyActionColumns defines the schema for lobby_actions.
var LobbyActionColumns = []ColumnDef{
	{Name: "ext_id", Type: "String", Codec: "ZSTD(1)"},
	{Name: "org_ext_id", Type: "String", Codec: "ZSTD(1)"},
	{Name: "period_start", Type: "DateTime64(3)", Codec: "DoubleDelta, ZSTD(1)"},
	{Name: "period_end", Type: "DateTime64(3)", Codec: "DoubleDelta, ZSTD(1)"},
	{Name: "subject", Type: "String", Codec: "ZSTD(1)"},
	{Name: "target_legislator_ext_id", Type: "String", Codec: "ZSTD(1)"},
	{Name: "target_text", Type: "String", Codec: "ZSTD(1)"},
	{Name: "updated_at", Type: "DateTime64(3)", Codec: "DoubleDelta, ZSTD(1)"},
}

// LobbyAction is one time-boxed action, optionally naming a target
// legislator and a targeted legislative text.
type LobbyAction struct {
	ExtID                 string    `ch:"ext_id" json:"ext_id"`
	OrgExtID              string    `ch:"org_ext_id" json:"org_ext_id"`
	PeriodStart           time.Time `ch:"period_start" json:"period_start"`
	PeriodEnd             time.Time `ch:"period_end" json:"period_end"`
	Subject               string    `ch:"subject" json:"subject"`
	TargetLegislatorExtID string    `ch:"target_legislator_ext_id" json:"target_legislator_ext_id"`
	TargetText            string    `ch:"target_text" json:"target_text"`
	UpdatedAt             time.Time `ch:"updated_at" json:"updated_at"`
}
