package db

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/opencivica/legisync/pkg/db/clickhouse"
	"github.com/opencivica/legisync/pkg/db/models"
	"github.com/opencivica/legisync/pkg/utils"
)

// Store is the canonical relational store. Every entity table is a
// ReplacingMergeTree(updated_at) keyed by its stable external identifier:
// an upsert is an insert of a newer row version, reads that need collapsed
// rows go through FINAL. Entities are never keyed by name, which can
// collide or change upstream.
type Store struct {
	clickhouse.Client
	Name string
}

// New connects to ClickHouse and ensures the legisync database and all
// entity tables exist.
func New(ctx context.Context, logger *zap.Logger, component string) (*Store, error) {
	dbName := clickhouse.SanitizeName(utils.Env("LEGISYNC_DB", "legisync"))

	client, err := clickhouse.New(ctx, logger.With(zap.String("db", dbName)), dbName,
		clickhouse.DefaultPoolConfig(component))
	if err != nil {
		return nil, err
	}

	s := &Store{Client: client, Name: dbName}
	if err := s.InitializeDB(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// InitializeDB creates the entity tables if they do not already exist.
func (s *Store) InitializeDB(ctx context.Context) error {
	tables := []struct {
		name    string
		columns []models.ColumnDef
		orderBy string
	}{
		{models.PoliticalGroupsTableName, models.PoliticalGroupColumns, "(chamber, ext_id)"},
		{models.LegislatorsTableName, models.LegislatorColumns, "(chamber, ext_id)"},
		{models.BallotsTableName, models.BallotColumns, "(chamber, ext_id)"},
		{models.VotesTableName, models.VoteColumns, "(chamber, ballot_ext_id, legislator_ext_id)"},
		{models.AmendmentsTableName, models.AmendmentColumns, "(chamber, ext_id)"},
		{models.InterventionsTableName, models.InterventionColumns, "(chamber, ext_id)"},
		{models.LobbyOrganizationsTableName, models.LobbyOrganizationColumns, "(ext_id)"},
		{models.LobbyActionsTableName, models.LobbyActionColumns, "(org_ext_id, ext_id)"},
		{models.SyncStateTableName, models.SyncStateColumns, "(source)"},
	}

	for _, t := range tables {
		if err := s.initTable(ctx, t.name, t.columns, t.orderBy); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) initTable(ctx context.Context, table string, columns []models.ColumnDef, orderBy string) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS "%s"."%s" (
			%s
		) ENGINE = ReplacingMergeTree(updated_at)
		ORDER BY %s
		SETTINGS index_granularity = 8192
	`, s.Name, table, models.ColumnsToSchemaSQL(columns), orderBy)

	if err := s.Exec(ctx, query); err != nil {
		return fmt.Errorf("create %s: %w", table, err)
	}
	return nil
}

// ExistingExtIDs returns the set of external ids already present in the
// given entity table, scoped to one chamber when non-empty. Connectors use
// it to split an upsert batch into created vs updated counts.
func (s *Store) ExistingExtIDs(ctx context.Context, table, chamber string) (map[string]struct{}, error) {
	query := fmt.Sprintf(`SELECT DISTINCT ext_id FROM "%s"."%s"`, s.Name, clickhouse.SanitizeName(table))
	var args []interface{}
	if chamber != "" {
		query += " WHERE chamber = ?"
		args = append(args, chamber)
	}

	rows, err := s.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list ext ids of %s: %w", table, err)
	}
	defer func() { _ = rows.Close() }()

	out := map[string]struct{}{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out[id] = struct{}{}
	}
	return out, rows.Err()
}

// insertQuery builds the INSERT prefix for a table's full column list.
func (s *Store) insertQuery(table string, columns []models.ColumnDef) string {
	return fmt.Sprintf(`INSERT INTO "%s"."%s" (%s) VALUES`,
		s.Name, table, models.ColumnsToNameList(columns))
}
