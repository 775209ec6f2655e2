package db

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"github.com/opencivica/legisync/pkg/db/models"
)

// UpsertBallots inserts newer row versions for the given ballots.
func (s *Store) UpsertBallots(ctx context.Context, ballots []*models.Ballot) error {
	if len(ballots) == 0 {
		return nil
	}

	batch, err := s.PrepareBatch(ctx, s.insertQuery(models.BallotsTableName, models.BallotColumns))
	if err != nil {
		return err
	}
	defer func(batch driver.Batch) {
		_ = batch.Abort()
	}(batch)

	for _, b := range ballots {
		if err := batch.Append(
			b.Chamber,
			b.ExtID,
			b.Number,
			b.Date,
			b.Title,
			b.Outcome,
			b.VotesFor,
			b.VotesAgainst,
			b.Abstentions,
			b.UpdatedAt,
		); err != nil {
			return err
		}
	}
	return batch.Send()
}

// CountBallots returns the number of distinct ballots in a chamber, the
// presence denominator.
func (s *Store) CountBallots(ctx context.Context, chamber string) (uint64, error) {
	query := fmt.Sprintf(`SELECT count() FROM "%s"."%s" FINAL WHERE chamber = ?`,
		s.Name, models.BallotsTableName)
	var count uint64
	if err := s.QueryRow(ctx, query, chamber).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// EarliestBallotDate returns the date of the oldest ballot in a chamber,
// the lower bound of the loyalty lookback window. Zero time when the
// chamber has no ballots.
func (s *Store) EarliestBallotDate(ctx context.Context, chamber string) (time.Time, error) {
	query := fmt.Sprintf(`SELECT min(date) FROM "%s"."%s" FINAL WHERE chamber = ?`,
		s.Name, models.BallotsTableName)
	var earliest time.Time
	if err := s.QueryRow(ctx, query, chamber).Scan(&earliest); err != nil {
		return time.Time{}, err
	}
	return earliest, nil
}
