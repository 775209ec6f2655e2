package db

import (
	"context"
	"fmt"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"github.com/opencivica/legisync/pkg/db/models"
)

// UpsertLegislators inserts newer row versions for the given legislators.
// Used both by the roster connector (identity fields) and the stats
// calculator (derived metric fields): each writes the full row it read,
// modified.
func (s *Store) UpsertLegislators(ctx context.Context, legislators []*models.Legislator) error {
	if len(legislators) == 0 {
		return nil
	}

	batch, err := s.PrepareBatch(ctx, s.insertQuery(models.LegislatorsTableName, models.LegislatorColumns))
	if err != nil {
		return err
	}
	defer func(batch driver.Batch) {
		_ = batch.Abort()
	}(batch)

	for _, l := range legislators {
		if err := batch.Append(
			l.Chamber,
			l.ExtID,
			l.Name,
			l.Slug,
			l.GroupExtID,
			l.Active,
			l.PresenceRate,
			l.LoyaltyRate,
			l.VotesCast,
			l.InterventionCount,
			l.AmendmentsProposed,
			l.AmendmentsAdopted,
			l.QuestionCount,
			l.StatsComputedAt,
			l.UpdatedAt,
		); err != nil {
			return err
		}
	}
	return batch.Send()
}

const legislatorSelectColumns = `chamber, ext_id, name, slug, group_ext_id, active,
		presence_rate, loyalty_rate, votes_cast, intervention_count,
		amendments_proposed, amendments_adopted, question_count,
		stats_computed_at, updated_at`

// ListLegislators returns the collapsed legislators of one chamber
// (all chambers when empty), active or not.
func (s *Store) ListLegislators(ctx context.Context, chamber string) ([]*models.Legislator, error) {
	return s.selectLegislators(ctx, chamber, false)
}

// ActiveLegislators returns the collapsed active legislators of one chamber
// (all chambers when empty).
func (s *Store) ActiveLegislators(ctx context.Context, chamber string) ([]*models.Legislator, error) {
	return s.selectLegislators(ctx, chamber, true)
}

func (s *Store) selectLegislators(ctx context.Context, chamber string, activeOnly bool) ([]*models.Legislator, error) {
	query := fmt.Sprintf(`SELECT %s FROM "%s"."%s" FINAL`,
		legislatorSelectColumns, s.Name, models.LegislatorsTableName)
	var (
		conds []string
		args  []interface{}
	)
	if chamber != "" {
		conds = append(conds, "chamber = ?")
		args = append(args, chamber)
	}
	if activeOnly {
		conds = append(conds, "active = 1")
	}
	for i, c := range conds {
		if i == 0 {
			query += " WHERE " + c
		} else {
			query += " AND " + c
		}
	}
	query += " ORDER BY chamber, ext_id"

	var out []*models.Legislator
	if err := s.Select(ctx, &out, query, args...); err != nil {
		return nil, err
	}
	return out, nil
}

// GetLegislator returns one collapsed legislator, or nil when unknown.
func (s *Store) GetLegislator(ctx context.Context, chamber, extID string) (*models.Legislator, error) {
	query := fmt.Sprintf(`SELECT %s FROM "%s"."%s" FINAL WHERE chamber = ? AND ext_id = ? LIMIT 1`,
		legislatorSelectColumns, s.Name, models.LegislatorsTableName)

	var out []*models.Legislator
	if err := s.Select(ctx, &out, query, chamber, extID); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out[0], nil
}
