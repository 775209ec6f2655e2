package source

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/opencivica/legisync/pkg/db/models"
	"github.com/opencivica/legisync/pkg/decode"
	"github.com/opencivica/legisync/pkg/fetch"
	"github.com/opencivica/legisync/pkg/utils"
)

// Registry table filenames under the lobbying base URL.
const (
	lobbyOrgsFile    = "organisations.csv"
	lobbySectorsFile = "secteurs.csv"
	lobbyStaffFile   = "collaborateurs.csv"
	lobbyActionsFile = "actions.csv"
	lobbyTargetsFile = "action_cibles.csv"
)

// Lobbying ingests the interest-representative registry: five relational
// CSV tables behind a token-authenticated endpoint, reassembled into nested
// organizations before storage.
type Lobbying struct {
	logger *zap.Logger
	store  Store
	client *fetch.Client
	cfg    Config
}

// NewLobbying creates the lobbying connector. The registry endpoint wants a
// bearer token; the token endpoint itself does not, so it gets a separate
// unauthenticated client.
func NewLobbying(logger *zap.Logger, store Store, cfg Config) *Lobbying {
	plain := fetch.New(logger, fetch.Opts{Timeout: cfg.FetchTimeout})
	token := fetch.NewTokenClient(func(ctx context.Context) (string, time.Time, error) {
		var out struct {
			AccessToken string `json:"access_token"`
			ExpiresIn   int    `json:"expires_in"`
		}
		if err := plain.GetJSON(ctx, cfg.LobbyTokenURL, &out); err != nil {
			return "", time.Time{}, err
		}
		if out.AccessToken == "" {
			return "", time.Time{}, fmt.Errorf("token endpoint returned no token")
		}
		return out.AccessToken, time.Now().Add(time.Duration(out.ExpiresIn) * time.Second), nil
	})

	return &Lobbying{
		logger: logger.With(zap.String("source", NameLobbying)),
		store:  store,
		client: fetch.New(logger, fetch.Opts{Timeout: cfg.ArchiveTimeout, Token: token}),
		cfg:    cfg,
	}
}

func (l *Lobbying) Name() string { return NameLobbying }

// Fingerprint probes the root table; the registry republishes all five
// files together, so one signal covers the set.
func (l *Lobbying) Fingerprint(ctx context.Context) (string, error) {
	return l.client.Probe(ctx, l.cfg.LobbyBaseURL+lobbyOrgsFile)
}

// Sync downloads the five registry tables, reassembles them, and upserts
// organizations and their actions.
func (l *Lobbying) Sync(ctx context.Context, opts Options) (Result, error) {
	var res Result
	err := withStaging("legisync-lobbying", func(dir string) error {
		var paths decode.RegistryPaths
		for _, t := range []struct {
			file string
			dest *string
		}{
			{lobbyOrgsFile, &paths.Organizations},
			{lobbySectorsFile, &paths.Sectors},
			{lobbyStaffFile, &paths.Collaborators},
			{lobbyActionsFile, &paths.Actions},
			{lobbyTargetsFile, &paths.ActionTargets},
		} {
			path, err := l.client.Download(ctx, l.cfg.LobbyBaseURL+t.file, dir)
			if err != nil {
				return err
			}
			*t.dest = path
		}

		registry, err := decode.AssembleRegistry(l.logger, paths, opts.Limit)
		if err != nil {
			return err
		}
		res.Skipped = registry.SkippedRows

		existing, err := l.store.ExistingExtIDs(ctx, models.LobbyOrganizationsTableName, "")
		if err != nil {
			return err
		}

		now := time.Now()
		orgs := make([]*models.LobbyOrganization, 0, len(registry.Organizations))
		var actions []*models.LobbyAction
		for _, raw := range registry.Organizations {
			name := decode.Clean(raw.Name)
			if raw.ID == "" || name == "" {
				res.Skipped++
				continue
			}

			orgs = append(orgs, &models.LobbyOrganization{
				ExtID:     raw.ID,
				Name:      name,
				Slug:      utils.Slugify(name),
				Category:  raw.Category,
				Sectors:   utils.Dedup(raw.Sectors),
				Budget:    raw.Budget,
				HeadCount: uint32(raw.HeadCount),
				UpdatedAt: now,
			})
			if _, ok := existing[raw.ID]; ok {
				res.Updated++
			} else {
				res.Created++
			}

			for _, act := range raw.Actions {
				start, _ := parseUpstreamDate(act.PeriodStart)
				end, _ := parseUpstreamDate(act.PeriodEnd)
				if act.ID == "" {
					res.Skipped++
					continue
				}
				// An action may name several targets; one row each keeps
				// the legislator join flat.
				if len(act.Targets) == 0 {
					actions = append(actions, l.action(raw.ID, act.ID, start, end, act.Subject, "", "", now))
					continue
				}
				for n, tgt := range act.Targets {
					extID := act.ID
					if n > 0 {
						extID = fmt.Sprintf("%s-%d", act.ID, n)
					}
					actions = append(actions, l.action(raw.ID, extID, start, end, act.Subject, tgt.Legislator, tgt.Text, now))
				}
			}
		}

		if err := l.store.UpsertLobbyOrganizations(ctx, orgs); err != nil {
			return err
		}
		if err := l.store.UpsertLobbyActions(ctx, actions); err != nil {
			return err
		}

		l.logger.Info("Lobbying registry synced",
			zap.Int("organizations", len(orgs)),
			zap.Int("actions", len(actions)),
			zap.Int("created", res.Created),
			zap.Int("updated", res.Updated),
			zap.Int("skipped", res.Skipped))
		return nil
	})
	if err != nil {
		return Result{}, err
	}
	return res, nil
}

func (l *Lobbying) action(orgID, extID string, start, end time.Time, subject, legislator, text string, now time.Time) *models.LobbyAction {
	return &models.LobbyAction{
		ExtID:                 extID,
		OrgExtID:              orgID,
		PeriodStart:           start,
		PeriodEnd:             end,
		Subject:               decode.Clean(subject),
		TargetLegislatorExtID: legislator,
		TargetText:            decode.Clean(text),
		UpdatedAt:             now,
	}
}
