package db

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"github.com/opencivica/legisync/pkg/db/models"
)

// UpsertVotes inserts newer row versions for the given votes. The replacing
// key keeps one vote per (ballot, legislator) pair.
func (s *Store) UpsertVotes(ctx context.Context, votes []*models.Vote) error {
	if len(votes) == 0 {
		return nil
	}

	batch, err := s.PrepareBatch(ctx, s.insertQuery(models.VotesTableName, models.VoteColumns))
	if err != nil {
		return err
	}
	defer func(batch driver.Batch) {
		_ = batch.Abort()
	}(batch)

	for _, v := range votes {
		if err := batch.Append(
			v.Chamber,
			v.BallotExtID,
			v.LegislatorExtID,
			v.Position,
			v.UpdatedAt,
		); err != nil {
			return err
		}
	}
	return batch.Send()
}

// VotesByLegislator returns one legislator's votes joined with their ballot
// dates, all positions included.
func (s *Store) VotesByLegislator(ctx context.Context, chamber, legislatorExtID string) ([]models.VoteRecord, error) {
	query := fmt.Sprintf(`
		SELECT v.ballot_ext_id AS ballot_ext_id,
		       v.position      AS position,
		       b.date          AS ballot_date
		FROM "%s"."%s" v FINAL
		INNER JOIN "%s"."%s" b FINAL
			ON b.chamber = v.chamber AND b.ext_id = v.ballot_ext_id
		WHERE v.chamber = ? AND v.legislator_ext_id = ?
		ORDER BY b.date
	`, s.Name, models.VotesTableName, s.Name, models.BallotsTableName)

	var out []models.VoteRecord
	if err := s.Select(ctx, &out, query, chamber, legislatorExtID); err != nil {
		return nil, err
	}
	return out, nil
}

// groupMajorityRow is the scan shape of the majority query.
type groupMajorityRow struct {
	BallotExtID string `ch:"ballot_ext_id"`
	Majority    string `ch:"majority"`
}

// GroupMajorities returns, for every ballot since the given date, the
// majority position taken by one political group's members. Expressed as a
// single set-based query because folding potentially hundreds of thousands
// of vote rows per group in memory, once per legislator, is materially more
// expensive; this is a deliberate escape hatch from the typed-operation
// rule, not a general pattern.
//
// Absent votes are excluded. A tie between positions has no well-defined
// majority; the deterministic preference for > against > abstain wins so
// repeated runs agree (see DESIGN.md, open questions).
func (s *Store) GroupMajorities(ctx context.Context, chamber, groupExtID string, since time.Time) (map[string]string, error) {
	query := fmt.Sprintf(`
		SELECT ballot_ext_id,
		       argMax(position, (cnt, weight)) AS majority
		FROM (
			SELECT v.ballot_ext_id AS ballot_ext_id,
			       v.position      AS position,
			       count()         AS cnt,
			       multiIf(v.position = 'for', 3, v.position = 'against', 2, 1) AS weight
			FROM "%s"."%s" v FINAL
			INNER JOIN "%s"."%s" l FINAL
				ON l.chamber = v.chamber AND l.ext_id = v.legislator_ext_id
			INNER JOIN "%s"."%s" b FINAL
				ON b.chamber = v.chamber AND b.ext_id = v.ballot_ext_id
			WHERE v.chamber = ?
			  AND l.group_ext_id = ?
			  AND v.position != 'absent'
			  AND b.date >= ?
			GROUP BY v.ballot_ext_id, v.position
		)
		GROUP BY ballot_ext_id
	`, s.Name, models.VotesTableName,
		s.Name, models.LegislatorsTableName,
		s.Name, models.BallotsTableName)

	var rows []groupMajorityRow
	if err := s.Select(ctx, &rows, query, chamber, groupExtID, since); err != nil {
		return nil, err
	}

	out := make(map[string]string, len(rows))
	for _, r := range rows {
		out[r.BallotExtID] = r.Majority
	}
	return out, nil
}
