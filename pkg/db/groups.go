package db

import (
	"context"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"github.com/opencivica/legisync/pkg/db/models"
)

// UpsertPoliticalGroups inserts newer row versions for the given groups.
func (s *Store) UpsertPoliticalGroups(ctx context.Context, groups []*models.PoliticalGroup) error {
	if len(groups) == 0 {
		return nil
	}

	batch, err := s.PrepareBatch(ctx, s.insertQuery(models.PoliticalGroupsTableName, models.PoliticalGroupColumns))
	if err != nil {
		return err
	}
	defer func(batch driver.Batch) {
		_ = batch.Abort()
	}(batch)

	for _, g := range groups {
		if err := batch.Append(
			g.Chamber,
			g.ExtID,
			g.Name,
			g.Slug,
			g.Color,
			g.Position,
			g.UpdatedAt,
		); err != nil {
			return err
		}
	}
	return batch.Send()
}

// ListPoliticalGroups returns the collapsed groups of one chamber, or all
// chambers when chamber is empty.
func (s *Store) ListPoliticalGroups(ctx context.Context, chamber string) ([]*models.PoliticalGroup, error) {
	query := `SELECT chamber, ext_id, name, slug, color, position, updated_at
		FROM "` + s.Name + `"."` + models.PoliticalGroupsTableName + `" FINAL`
	args := []interface{}{}
	if chamber != "" {
		query += ` WHERE chamber = ?`
		args = append(args, chamber)
	}
	query += ` ORDER BY chamber, ext_id`

	var out []*models.PoliticalGroup
	if err := s.Select(ctx, &out, query, args...); err != nil {
		return nil, err
	}
	return out, nil
}
