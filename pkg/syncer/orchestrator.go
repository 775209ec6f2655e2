package syncer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/alitto/pond/v2"
	"github.com/puzpuzpuz/xsync/v4"
	"go.uber.org/zap"

	"github.com/opencivica/legisync/pkg/db/models"
	"github.com/opencivica/legisync/pkg/source"
	"github.com/opencivica/legisync/pkg/stats"
)

// Status is one source's position in the run state machine.
type Status string

const (
	StatusPending   Status = "pending"
	StatusChecking  Status = "checking"
	StatusSkipped   Status = "skipped"
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// StatsRecomputer is the derived-metrics surface the orchestrator triggers
// after vote data moves.
type StatsRecomputer interface {
	RecomputeAll(ctx context.Context, chamber string) (stats.Report, error)
}

// SourceReport is one source's outcome within a run.
type SourceReport struct {
	Source   string        `json:"source"`
	Status   Status        `json:"status"`
	Result   source.Result `json:"result"`
	Err      error         `json:"-"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration"`
}

// Report is the outcome of one orchestrated run.
type Report struct {
	Sources  []*SourceReport `json:"sources"`
	Stats    *stats.Report   `json:"stats,omitempty"`
	Duration time.Duration   `json:"duration"`
}

// Failed reports whether any source failed.
func (r *Report) Failed() bool {
	for _, s := range r.Sources {
		if s.Status == StatusFailed {
			return true
		}
	}
	return false
}

// bySource returns the report entry for one source, or nil.
func (r *Report) bySource(name string) *SourceReport {
	for _, s := range r.Sources {
		if s.Source == name {
			return s
		}
	}
	return nil
}

// RunOptions selects and tunes one orchestrated run.
type RunOptions struct {
	// Sources is the allow-list; empty means every registered source.
	Sources []string
	Force   bool
	Limit   int
}

// concurrentSources is the pool width of the independent trailing stage.
const concurrentSources = 3

// Orchestrator drives one run over the registered sources: roster first,
// then ballots, then the independent sources concurrently, then one stats
// recompute covering whatever moved. A source failure never stops its
// siblings.
type Orchestrator struct {
	logger     *zap.Logger
	detector   *Detector
	store      StateStore
	connectors map[string]source.Connector
	calc       StatsRecomputer
	chamber    string

	// live is the in-flight status view served by the ops endpoint.
	live *xsync.Map[string, Status]
}

// NewOrchestrator wires the orchestrator over its connectors. The chamber
// scopes the stats recompute; empty recomputes every chamber.
func NewOrchestrator(logger *zap.Logger, store StateStore, calc StatsRecomputer, chamber string, connectors ...source.Connector) *Orchestrator {
	byName := make(map[string]source.Connector, len(connectors))
	for _, c := range connectors {
		byName[c.Name()] = c
	}
	return &Orchestrator{
		logger:     logger,
		detector:   NewDetector(logger, store),
		store:      store,
		connectors: byName,
		calc:       calc,
		chamber:    chamber,
		live:       xsync.NewMap[string, Status](),
	}
}

// States snapshots the live per-source status view.
func (o *Orchestrator) States() map[string]Status {
	out := map[string]Status{}
	o.live.Range(func(k string, v Status) bool {
		out[k] = v
		return true
	})
	return out
}

// Run executes one orchestrated pass and always returns a report, even
// when every source failed.
func (o *Orchestrator) Run(ctx context.Context, opts RunOptions) *Report {
	start := time.Now()
	report := &Report{}

	wanted := func(name string) bool {
		if len(opts.Sources) == 0 {
			return true
		}
		for _, s := range opts.Sources {
			if s == name {
				return true
			}
		}
		return false
	}

	// An allow-list entry naming no registered source is an operator
	// mistake; report it as failed instead of silently syncing nothing.
	for _, name := range opts.Sources {
		if _, ok := o.connectors[name]; !ok {
			err := fmt.Errorf("unknown source %q", name)
			report.Sources = append(report.Sources, &SourceReport{
				Source: name,
				Status: StatusFailed,
				Err:    err,
				Error:  err.Error(),
			})
		}
	}

	// Membership first: every other source references legislators by id.
	if wanted(source.NameRoster) {
		report.Sources = append(report.Sources, o.runSource(ctx, source.NameRoster, opts))
	}
	if wanted(source.NameBallots) {
		report.Sources = append(report.Sources, o.runSource(ctx, source.NameBallots, opts))
	}

	var trailing []*SourceReport
	for _, name := range []string{source.NameAmendments, source.NameInterventions, source.NameLobbying} {
		if wanted(name) {
			trailing = append(trailing, &SourceReport{Source: name, Status: StatusPending})
		}
	}
	if len(trailing) > 0 {
		pool := pond.NewPool(concurrentSources)
		defer pool.StopAndWait()
		group := pool.NewGroupContext(ctx)
		for _, sr := range trailing {
			sr := sr
			group.Submit(func() {
				*sr = *o.runSource(ctx, sr.Source, opts)
			})
		}
		if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, pond.ErrGroupStopped) {
			o.logger.Warn("Trailing source group encountered error", zap.Error(err))
		}
		report.Sources = append(report.Sources, trailing...)
	}

	o.maybeRecompute(ctx, report)

	report.Duration = time.Since(start)
	o.logger.Info("Sync run finished",
		zap.Duration("duration", report.Duration),
		zap.Bool("failed", report.Failed()))
	return report
}

// maybeRecompute runs the stats calculator when any metric-bearing source
// moved in this run: votes drive presence and loyalty, amendments and
// interventions drive the per-legislator counts. Lobbying rows carry no
// legislator metric, so they alone never dirty the stats.
func (o *Orchestrator) maybeRecompute(ctx context.Context, report *Report) {
	moved := false
	for _, name := range []string{source.NameRoster, source.NameBallots, source.NameAmendments, source.NameInterventions} {
		if sr := report.bySource(name); sr != nil && sr.Status == StatusSucceeded {
			moved = true
		}
	}
	if !moved {
		return
	}

	statsReport, err := o.calc.RecomputeAll(ctx, o.chamber)
	if err != nil {
		o.logger.Error("Stats recompute failed", zap.Error(err))
		return
	}
	report.Stats = &statsReport
}

// runSource walks one source through the state machine.
func (o *Orchestrator) runSource(ctx context.Context, name string, opts RunOptions) *SourceReport {
	start := time.Now()
	sr := &SourceReport{Source: name, Status: StatusPending}
	defer func() {
		sr.Duration = time.Since(start)
		if sr.Err != nil {
			sr.Error = sr.Err.Error()
		}
		o.live.Store(name, sr.Status)
	}()

	c, ok := o.connectors[name]
	if !ok {
		sr.Status = StatusFailed
		sr.Err = fmt.Errorf("unknown source %q", name)
		return sr
	}

	sr.Status = StatusChecking
	o.live.Store(name, sr.Status)
	changed, fingerprint, err := o.detector.HasChanged(ctx, c, opts.Force)
	if err != nil {
		sr.Status = StatusFailed
		sr.Err = err
		o.logger.Error("Change check failed", zap.String("source", name), zap.Error(err))
		return sr
	}
	if !changed {
		sr.Status = StatusSkipped
		o.logger.Info("Source unchanged, skipping", zap.String("source", name))
		return sr
	}

	sr.Status = StatusRunning
	o.live.Store(name, sr.Status)
	res, err := c.Sync(ctx, source.Options{Force: opts.Force, Limit: opts.Limit})
	if err != nil {
		sr.Status = StatusFailed
		sr.Err = err
		o.logger.Error("Source sync failed", zap.String("source", name), zap.Error(err))
		return sr
	}
	sr.Result = res

	// The fingerprint lands only after a fully successful run: a crash in
	// between re-checks the source next time instead of marking it fresh.
	now := time.Now()
	if err := o.store.UpsertSyncState(ctx, &models.SyncState{
		Source:       name,
		Fingerprint:  fingerprint,
		LastSyncedAt: now,
		UpdatedAt:    now,
	}); err != nil {
		sr.Status = StatusFailed
		sr.Err = fmt.Errorf("persist fingerprint of %s: %w", name, err)
		return sr
	}

	sr.Status = StatusSucceeded
	return sr
}
