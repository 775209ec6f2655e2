package models

import "time"

const SyncStateTableName = "sync_state"

// SyncStateColumns defines the schema for the sync_state table: one row per
// upstream source name.
var SyncStateColumns = []ColumnDef{
	{Name: "source", Type: "LowCardinality(String)"},
	{Name: "fingerprint", Type: "String", Codec: "ZSTD(1)"},
	{Name: "last_synced_at", Type: "DateTime64(3)", Codec: "DoubleDelta, ZSTD(1)"},
	{Name: "updated_at", Type: "DateTime64(3)", Codec: "DoubleDelta, ZSTD(1)"},
}

// SyncState is the change detector's persisted invariant: a source is
// re-ingested only when its current fingerprint differs from the stored
// one, unless forced. The row is written only after a successful connector
// run, so a crash between ingest and fingerprint update re-checks the
// source next run instead of silently marking it fresh.
type SyncState struct {
	Source       string    `ch:"source" json:"source"`
	Fingerprint  string    `ch:"fingerprint" json:"fingerprint"`
	LastSyncedAt time.Time `ch:"last_synced_at" json:"last_synced_at"`
	UpdatedAt    time.Time `ch:"updated_at" json:"updated_at"`
}
