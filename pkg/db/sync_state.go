package db

import (
	"context"
	"fmt"

	"github.com/opencivica/legisync/pkg/db/models"
)

// GetSyncState returns the stored state for one source, or nil when the
// source has never synced successfully.
func (s *Store) GetSyncState(ctx context.Context, source string) (*models.SyncState, error) {
	query := fmt.Sprintf(`
		SELECT source, fingerprint, last_synced_at, updated_at
		FROM "%s"."%s" FINAL WHERE source = ? LIMIT 1
	`, s.Name, models.SyncStateTableName)

	var out []*models.SyncState
	if err := s.Select(ctx, &out, query, source); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out[0], nil
}

// UpsertSyncState records a source's fingerprint after a successful run.
func (s *Store) UpsertSyncState(ctx context.Context, state *models.SyncState) error {
	query := fmt.Sprintf(`INSERT INTO "%s"."%s" (%s) VALUES (?, ?, ?, ?)`,
		s.Name, models.SyncStateTableName, models.ColumnsToNameList(models.SyncStateColumns))
	return s.Exec(ctx, query, state.Source, state.Fingerprint, state.LastSyncedAt, state.UpdatedAt)
}

// ListSyncStates returns all stored source states, the freshness report.
func (s *Store) ListSyncStates(ctx context.Context) ([]*models.SyncState, error) {
	query := fmt.Sprintf(`
		SELECT source, fingerprint, last_synced_at, updated_at
		FROM "%s"."%s" FINAL ORDER BY source
	`, s.Name, models.SyncStateTableName)

	var out []*models.SyncState
	if err := s.Select(ctx, &out, query); err != nil {
		return nil, err
	}
	return out, nil
}
