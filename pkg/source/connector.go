package source

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/opencivica/legisync/pkg/db/models"
)

// Source names, fixed. The orchestrator's dependency stages are expressed
// over these.
const (
	NameRoster        = "roster"
	NameBallots       = "ballots"
	NameAmendments    = "amendments"
	NameInterventions = "interventions"
	NameLobbying      = "lobbying"
)

// Options tunes one sync invocation.
type Options struct {
	// Force is informational here; bypassing the change check happens in
	// the orchestrator. Connectors may use it to widen recency windows.
	Force bool
	// Limit bounds the number of root records ingested; 0 = no limit.
	Limit int
}

// Result reports one connector run.
type Result struct {
	Created int
	Updated int
	// Skipped counts record-level failures (malformed records), which are
	// logged and never fatal.
	Skipped int
}

// Connector owns one upstream source: probe its freshness signal, and
// fetch-decode-transform-upsert its content. A connector that cannot reach
// its upstream fails the whole Sync call; it never returns partial data
// silently.
type Connector interface {
	Name() string
	// Fingerprint probes the upstream's freshness signal, cheaply.
	Fingerprint(ctx context.Context) (string, error)
	Sync(ctx context.Context, opts Options) (Result, error)
}

// Store is the canonical-storage surface the connectors write through.
// Implemented by *db.Store; narrowed here so connector tests can fake it.
type Store interface {
	UpsertPoliticalGroups(ctx context.Context, groups []*models.PoliticalGroup) error
	UpsertLegislators(ctx context.Context, legislators []*models.Legislator) error
	ListLegislators(ctx context.Context, chamber string) ([]*models.Legislator, error)
	UpsertBallots(ctx context.Context, ballots []*models.Ballot) error
	UpsertVotes(ctx context.Context, votes []*models.Vote) error
	UpsertAmendments(ctx context.Context, amendments []*models.Amendment) error
	UpsertInterventions(ctx context.Context, interventions []*models.Intervention) error
	UpsertLobbyOrganizations(ctx context.Context, orgs []*models.LobbyOrganization) error
	UpsertLobbyActions(ctx context.Context, actions []*models.LobbyAction) error
	ExistingExtIDs(ctx context.Context, table, chamber string) (map[string]struct{}, error)
}

// withStaging runs fn with a private temporary directory that is removed on
// both success and failure paths.
func withStaging(prefix string, fn func(dir string) error) error {
	dir, err := os.MkdirTemp("", prefix)
	if err != nil {
		return fmt.Errorf("create staging dir: %w", err)
	}
	defer func() { _ = os.RemoveAll(dir) }()
	return fn(dir)
}

// applyLimit truncates a slice to the optional record limit.
func applyLimit[T any](in []T, limit int) []T {
	if limit > 0 && len(in) > limit {
		return in[:limit]
	}
	return in
}

// parseUpstreamDate accepts the date layouts seen across upstreams.
func parseUpstreamDate(s string) (time.Time, bool) {
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
