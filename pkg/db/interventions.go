package db

import (
	"context"
	"fmt"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"github.com/opencivica/legisync/pkg/db/models"
)

// UpsertInterventions inserts newer row versions for the given interventions.
func (s *Store) UpsertInterventions(ctx context.Context, interventions []*models.Intervention) error {
	if len(interventions) == 0 {
		return nil
	}

	batch, err := s.PrepareBatch(ctx, s.insertQuery(models.InterventionsTableName, models.InterventionColumns))
	if err != nil {
		return err
	}
	defer func(batch driver.Batch) {
		_ = batch.Abort()
	}(batch)

	for _, i := range interventions {
		if err := batch.Append(
			i.Chamber,
			i.ExtID,
			i.LegislatorExtID,
			i.Kind,
			i.Date,
			i.WordCount,
			i.UpdatedAt,
		); err != nil {
			return err
		}
	}
	return batch.Send()
}

// InterventionCounts returns one legislator's speech and question counts.
func (s *Store) InterventionCounts(ctx context.Context, chamber, legislatorExtID string) (speeches, questions uint64, err error) {
	query := fmt.Sprintf(`
		SELECT countIf(kind != '%s') AS speeches,
		       countIf(kind = '%s') AS questions
		FROM "%s"."%s" FINAL
		WHERE chamber = ? AND legislator_ext_id = ?
	`, models.InterventionQuestion, models.InterventionQuestion, s.Name, models.InterventionsTableName)

	if err = s.QueryRow(ctx, query, chamber, legislatorExtID).Scan(&speeches, &questions); err != nil {
		return 0, 0, err
	}
	return speeches, questions, nil
}
