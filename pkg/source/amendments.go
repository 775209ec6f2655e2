package source

import (
	"context"
	"os"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/opencivica/legisync/pkg/db/models"
	"github.com/opencivica/legisync/pkg/decode"
	"github.com/opencivica/legisync/pkg/fetch"
)

// Amendments ingests the streaming amendment dump. Only the amendement and
// texteloi blocks are materialized; every other table in the dump streams
// past without allocation.
type Amendments struct {
	logger *zap.Logger
	store  Store
	client *fetch.Client
	cfg    Config
}

// NewAmendments creates the amendments connector.
func NewAmendments(logger *zap.Logger, store Store, cfg Config) *Amendments {
	return &Amendments{
		logger: logger.With(zap.String("source", NameAmendments)),
		store:  store,
		client: fetch.New(logger, fetch.Opts{Timeout: cfg.ArchiveTimeout}),
		cfg:    cfg,
	}
}

func (a *Amendments) Name() string { return NameAmendments }

func (a *Amendments) Fingerprint(ctx context.Context) (string, error) {
	return a.client.Probe(ctx, a.cfg.AmendmentsURL)
}

// Sync downloads the dump, streams the amendment rows inside the recency
// window, and upserts them with their target text titles resolved.
func (a *Amendments) Sync(ctx context.Context, opts Options) (Result, error) {
	cutoff := a.cfg.AmendmentsSince
	if opts.Force {
		cutoff = time.Time{}
	}

	var res Result
	err := withStaging("legisync-amendments", func(dir string) error {
		path, err := a.client.Download(ctx, a.cfg.AmendmentsURL, dir)
		if err != nil {
			return err
		}
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer func() { _ = f.Close() }()

		dump, err := decode.StreamDump(a.logger, f, []decode.TableSpec{
			{Name: "amendement", KeyField: "id", DateField: "date"},
			{Name: "texteloi", KeyField: "id"},
		}, cutoff)
		if err != nil {
			return err
		}
		res.Skipped = dump.SkippedLines

		texts := dump.Tables["texteloi"]
		rows := dump.Tables["amendement"]

		// Map order is not stable; sort ids so a limited run is repeatable.
		ids := make([]string, 0, len(rows))
		for id := range rows {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		ids = applyLimit(ids, opts.Limit)

		existing, err := a.store.ExistingExtIDs(ctx, models.AmendmentsTableName, a.cfg.Chamber)
		if err != nil {
			return err
		}

		now := time.Now()
		amendments := make([]*models.Amendment, 0, len(ids))
		for _, id := range ids {
			row := rows[id]
			date, ok := row.Date("date")
			if !ok {
				res.Skipped++
				continue
			}

			textRef := row.Get("texteloi_id")
			var textTitle string
			if t, ok := texts[textRef]; ok {
				textTitle = decode.Clean(t.Get("titre"))
			}

			amendments = append(amendments, &models.Amendment{
				Chamber:         a.cfg.Chamber,
				ExtID:           id,
				LegislatorExtID: row.Get("auteur_id"),
				TextRef:         textRef,
				TextTitle:       textTitle,
				Subject:         decode.Clean(row.Get("sujet")),
				Outcome:         normalizeAmendmentOutcome(row.Get("sort")),
				Date:            date,
				UpdatedAt:       now,
			})
			if _, ok := existing[id]; ok {
				res.Updated++
			} else {
				res.Created++
			}
		}

		if err := a.store.UpsertAmendments(ctx, amendments); err != nil {
			return err
		}

		a.logger.Info("Amendments synced",
			zap.Int("amendments", len(amendments)),
			zap.Time("cutoff", cutoff),
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

// normalizeAmendmentOutcome maps the upstream sort value onto the canonical
// lifecycle outcomes. Anything unrecognized is still pending.
func normalizeAmendmentOutcome(s string) string {
	switch l := strings.ToLower(strings.TrimSpace(s)); {
	case strings.HasPrefix(l, "adopt"):
		return models.AmendmentAdopted
	case strings.HasPrefix(l, "rejet"), strings.HasPrefix(l, "reject"):
		return models.AmendmentRejected
	case strings.HasPrefix(l, "retir"), strings.HasPrefix(l, "withdraw"):
		return models.AmendmentWithdrawn
	}
	return models.AmendmentPending
}
