package stats

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync/atomic"
	"time"

	"github.com/alitto/pond/v2"
	"github.com/puzpuzpuz/xsync/v4"
	"go.uber.org/zap"

	"github.com/opencivica/legisync/pkg/db/models"
	"github.com/opencivica/legisync/pkg/utils"
)

// Store is the canonical-storage surface the calculator reads from and
// writes back to. Implemented by *db.Store.
type Store interface {
	ActiveLegislators(ctx context.Context, chamber string) ([]*models.Legislator, error)
	GetLegislator(ctx context.Context, chamber, extID string) (*models.Legislator, error)
	UpsertLegislators(ctx context.Context, legislators []*models.Legislator) error
	CountBallots(ctx context.Context, chamber string) (uint64, error)
	EarliestBallotDate(ctx context.Context, chamber string) (time.Time, error)
	VotesByLegislator(ctx context.Context, chamber, legislatorExtID string) ([]models.VoteRecord, error)
	GroupMajorities(ctx context.Context, chamber, groupExtID string, since time.Time) (map[string]string, error)
	AmendmentCounts(ctx context.Context, chamber, legislatorExtID string) (proposed, adopted uint64, err error)
	InterventionCounts(ctx context.Context, chamber, legislatorExtID string) (speeches, questions uint64, err error)
}

// Report is the outcome of one recompute batch.
type Report struct {
	Total    int           `json:"total"`
	Updated  int           `json:"updated"`
	Errors   int           `json:"errors"`
	Duration time.Duration `json:"duration"`
}

// Calculator derives per-legislator metrics from the canonical rows. Every
// metric is a pure function of the vote, intervention and amendment rows
// present at computation time: recomputing twice over unchanged data yields
// identical numbers.
type Calculator struct {
	logger *zap.Logger
	store  Store

	workers int
	// loyaltySince bounds the loyalty lookback; older ballots never enter
	// the majority comparison.
	loyaltySince time.Time
}

// NewCalculator creates a calculator with its worker and lookback knobs
// read from the environment.
func NewCalculator(logger *zap.Logger, store Store) *Calculator {
	return &Calculator{
		logger:       logger,
		store:        store,
		workers:      utils.EnvInt("STATS_WORKERS", 8),
		loyaltySince: utils.EnvDate("STATS_LOYALTY_SINCE", time.Date(2017, 6, 1, 0, 0, 0, 0, time.UTC)),
	}
}

// chamberContext is the per-chamber precomputation shared by a batch.
type chamberContext struct {
	ballots uint64
	since   time.Time
}

// RecomputeAll recomputes every active legislator of the given chamber
// (all chambers when empty) under a bounded worker pool. A per-legislator
// failure is logged and counted; the batch continues.
func (c *Calculator) RecomputeAll(ctx context.Context, chamber string) (Report, error) {
	start := time.Now()

	legislators, err := c.store.ActiveLegislators(ctx, chamber)
	if err != nil {
		return Report{}, fmt.Errorf("load active legislators: %w", err)
	}

	chambers := map[string]*chamberContext{}
	for _, l := range legislators {
		if _, ok := chambers[l.Chamber]; ok {
			continue
		}
		cc, err := c.chamberContext(ctx, l.Chamber)
		if err != nil {
			return Report{}, err
		}
		chambers[l.Chamber] = cc
	}

	// Group majorities are identical for every member of a group; one
	// query per group serves the whole batch.
	majorities := xsync.NewMap[string, map[string]string]()

	var updated, failed atomic.Int64
	pool := pond.NewPool(c.workers)
	defer pool.StopAndWait()
	group := pool.NewGroupContext(ctx)
	groupCtx := group.Context()

	for _, l := range legislators {
		l := l
		group.Submit(func() {
			if err := groupCtx.Err(); err != nil {
				return
			}
			if err := c.recomputeOne(groupCtx, l, chambers[l.Chamber], majorities); err != nil {
				c.logger.Warn("Stats recompute failed for legislator",
					zap.String("chamber", l.Chamber),
					zap.String("ext_id", l.ExtID),
					zap.Error(err))
				failed.Add(1)
				return
			}
			updated.Add(1)
		})
	}
	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, pond.ErrGroupStopped) {
		c.logger.Warn("Stats worker group encountered error", zap.Error(err))
	}

	report := Report{
		Total:    len(legislators),
		Updated:  int(updated.Load()),
		Errors:   int(failed.Load()),
		Duration: time.Since(start),
	}
	c.logger.Info("Stats recompute finished",
		zap.String("chamber", chamber),
		zap.Int("total", report.Total),
		zap.Int("updated", report.Updated),
		zap.Int("errors", report.Errors),
		zap.Duration("duration", report.Duration))
	return report, nil
}

// RecomputeOne recomputes a single legislator immediately.
func (c *Calculator) RecomputeOne(ctx context.Context, chamber, legislatorExtID string) error {
	l, err := c.store.GetLegislator(ctx, chamber, legislatorExtID)
	if err != nil {
		return err
	}
	if l == nil {
		return fmt.Errorf("unknown legislator %s/%s", chamber, legislatorExtID)
	}
	cc, err := c.chamberContext(ctx, chamber)
	if err != nil {
		return err
	}
	return c.recomputeOne(ctx, l, cc, xsync.NewMap[string, map[string]string]())
}

// Invalidate clears the stats-validity marker of every active legislator in
// the chamber, forcing the next batch to rewrite them.
func (c *Calculator) Invalidate(ctx context.Context, chamber string) error {
	legislators, err := c.store.ActiveLegislators(ctx, chamber)
	if err != nil {
		return err
	}
	now := time.Now()
	for _, l := range legislators {
		l.StatsComputedAt = time.Time{}
		l.UpdatedAt = now
	}
	return c.store.UpsertLegislators(ctx, legislators)
}

func (c *Calculator) chamberContext(ctx context.Context, chamber string) (*chamberContext, error) {
	ballots, err := c.store.CountBallots(ctx, chamber)
	if err != nil {
		return nil, fmt.Errorf("count ballots of %s: %w", chamber, err)
	}
	since := c.loyaltySince
	if earliest, err := c.store.EarliestBallotDate(ctx, chamber); err == nil && earliest.After(since) {
		since = earliest
	}
	return &chamberContext{ballots: ballots, since: since}, nil
}

// recomputeOne derives every metric of one legislator and writes the row
// back once, stamped stats_computed_at.
func (c *Calculator) recomputeOne(ctx context.Context, l *models.Legislator, cc *chamberContext, majorities *xsync.Map[string, map[string]string]) error {
	votes, err := c.store.VotesByLegislator(ctx, l.Chamber, l.ExtID)
	if err != nil {
		return fmt.Errorf("load votes: %w", err)
	}

	var cast uint32
	for _, v := range votes {
		if v.Position != models.PositionAbsent {
			cast++
		}
	}

	l.VotesCast = cast
	l.PresenceRate = ratio(uint64(cast), cc.ballots)
	l.LoyaltyRate = 0

	if l.GroupExtID != "" && cast > 0 {
		majority, err := c.groupMajority(ctx, l.Chamber, l.GroupExtID, cc.since, majorities)
		if err != nil {
			return err
		}
		var considered, matching uint64
		for _, v := range votes {
			if v.Position == models.PositionAbsent {
				continue
			}
			m, ok := majority[v.BallotExtID]
			if !ok {
				continue
			}
			considered++
			if v.Position == m {
				matching++
			}
		}
		l.LoyaltyRate = ratio(matching, considered)
	}

	proposed, adopted, err := c.store.AmendmentCounts(ctx, l.Chamber, l.ExtID)
	if err != nil {
		return fmt.Errorf("count amendments: %w", err)
	}
	speeches, questions, err := c.store.InterventionCounts(ctx, l.Chamber, l.ExtID)
	if err != nil {
		return fmt.Errorf("count interventions: %w", err)
	}
	l.AmendmentsProposed = uint32(proposed)
	l.AmendmentsAdopted = uint32(adopted)
	l.InterventionCount = uint32(speeches)
	l.QuestionCount = uint32(questions)

	now := time.Now()
	l.StatsComputedAt = now
	l.UpdatedAt = now
	return c.store.UpsertLegislators(ctx, []*models.Legislator{l})
}

// groupMajority loads one group's per-ballot majority map, consulting the
// batch cache first. Concurrent misses may query twice; the result is
// identical, so last write wins harmlessly.
func (c *Calculator) groupMajority(ctx context.Context, chamber, groupExtID string, since time.Time, cache *xsync.Map[string, map[string]string]) (map[string]string, error) {
	key := chamber + "/" + groupExtID
	if m, ok := cache.Load(key); ok {
		return m, nil
	}
	m, err := c.store.GroupMajorities(ctx, chamber, groupExtID, since)
	if err != nil {
		return nil, fmt.Errorf("group majorities of %s: %w", groupExtID, err)
	}
	cache.Store(key, m)
	return m, nil
}

// ratio rounds 100*num/den to the nearest percent, clamped to 0-100.
func ratio(num, den uint64) uint8 {
	if den == 0 || num == 0 {
		return 0
	}
	r := math.Round(100 * float64(num) / float64(den))
	if r > 100 {
		return 100
	}
	return uint8(r)
}
