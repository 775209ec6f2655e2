package db

import (
	"context"
	"fmt"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"github.com/opencivica/legisync/pkg/db/models"
)

// UpsertAmendments inserts newer row versions for the given amendments.
func (s *Store) UpsertAmendments(ctx context.Context, amendments []*models.Amendment) error {
	if len(amendments) == 0 {
		return nil
	}

	batch, err := s.PrepareBatch(ctx, s.insertQuery(models.AmendmentsTableName, models.AmendmentColumns))
	if err != nil {
		return err
	}
	defer func(batch driver.Batch) {
		_ = batch.Abort()
	}(batch)

	for _, a := range amendments {
		if err := batch.Append(
			a.Chamber,
			a.ExtID,
			a.LegislatorExtID,
			a.TextRef,
			a.TextTitle,
			a.Subject,
			a.Outcome,
			a.Date,
			a.UpdatedAt,
		); err != nil {
			return err
		}
	}
	return batch.Send()
}

// AmendmentCounts returns one legislator's proposed and adopted amendment
// counts.
func (s *Store) AmendmentCounts(ctx context.Context, chamber, legislatorExtID string) (proposed, adopted uint64, err error) {
	query := fmt.Sprintf(`
		SELECT count() AS proposed,
		       countIf(outcome = '%s') AS adopted
		FROM "%s"."%s" FINAL
		WHERE chamber = ? AND legislator_ext_id = ?
	`, models.AmendmentAdopted, s.Name, models.AmendmentsTableName)

	if err = s.QueryRow(ctx, query, chamber, legislatorExtID).Scan(&proposed, &adopted); err != nil {
		return 0, 0, err
	}
	return proposed, adopted, nil
}
