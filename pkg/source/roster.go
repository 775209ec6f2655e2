package source

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/opencivica/legisync/pkg/db/models"
	"github.com/opencivica/legisync/pkg/decode"
	"github.com/opencivica/legisync/pkg/fetch"
	"github.com/opencivica/legisync/pkg/utils"
)

// rawGroupFile is one organe entry inside the roster archive.
type rawGroupFile struct {
	Organe struct {
		UID      decode.OptString `json:"uid"`
		Libelle  decode.OptString `json:"libelle"`
		Couleur  decode.OptString `json:"couleurAssociee"`
		Position decode.OptString `json:"positionPolitique"`
	} `json:"organe"`
}

// rawActorFile is one acteur entry inside the roster archive.
type rawActorFile struct {
	Acteur struct {
		UID       decode.OptString `json:"uid"`
		EtatCivil struct {
			Ident struct {
				Prenom decode.OptString `json:"prenom"`
				Nom    decode.OptString `json:"nom"`
			} `json:"ident"`
		} `json:"etatCivil"`
		Groupe struct {
			OrganeRef decode.OptString `json:"organeRef"`
		} `json:"groupe"`
	} `json:"acteur"`
}

// Roster ingests the membership archive: political groups first, then
// legislators referencing them. Members present in storage but absent from
// the archive are kept and flagged inactive, never deleted, so historical
// votes keep resolving.
type Roster struct {
	logger *zap.Logger
	store  Store
	client *fetch.Client
	cfg    Config
}

// NewRoster creates the roster connector.
func NewRoster(logger *zap.Logger, store Store, cfg Config) *Roster {
	return &Roster{
		logger: logger.With(zap.String("source", NameRoster)),
		store:  store,
		client: fetch.New(logger, fetch.Opts{Timeout: cfg.ArchiveTimeout}),
		cfg:    cfg,
	}
}

func (r *Roster) Name() string { return NameRoster }

// Fingerprint probes the archive endpoint's freshness signal.
func (r *Roster) Fingerprint(ctx context.Context) (string, error) {
	return r.client.Probe(ctx, r.cfg.RosterURL)
}

// Sync downloads the roster archive and upserts groups and legislators.
func (r *Roster) Sync(ctx context.Context, opts Options) (Result, error) {
	var res Result
	err := withStaging("legisync-roster", func(dir string) error {
		path, err := r.client.Download(ctx, r.cfg.RosterURL, dir)
		if err != nil {
			return err
		}

		groupsRaw, err := decode.ArchiveJSON[rawGroupFile](r.logger, path, "json/organe/")
		if err != nil {
			return err
		}
		actorsRaw, err := decode.ArchiveJSON[rawActorFile](r.logger, path, "json/acteur/")
		if err != nil {
			return err
		}
		res.Skipped = groupsRaw.Skipped + actorsRaw.Skipped

		now := time.Now()
		groups := make([]*models.PoliticalGroup, 0, len(groupsRaw.Records))
		for _, g := range groupsRaw.Records {
			extID := g.Organe.UID.Or("")
			name := decode.Clean(g.Organe.Libelle.Or(""))
			if extID == "" || name == "" {
				res.Skipped++
				continue
			}
			groups = append(groups, &models.PoliticalGroup{
				Chamber:   r.cfg.Chamber,
				ExtID:     extID,
				Name:      name,
				Slug:      utils.Slugify(name),
				Color:     g.Organe.Couleur.Or(""),
				Position:  g.Organe.Position.Or(""),
				UpdatedAt: now,
			})
		}

		existing, err := r.store.ListLegislators(ctx, r.cfg.Chamber)
		if err != nil {
			return err
		}
		known := make(map[string]*models.Legislator, len(existing))
		for _, l := range existing {
			known[l.ExtID] = l
		}

		records := applyLimit(actorsRaw.Records, opts.Limit)
		legislators := make([]*models.Legislator, 0, len(records))
		seen := make(map[string]struct{}, len(records))
		for _, a := range records {
			extID := a.Acteur.UID.Or("")
			name := decode.Clean(a.Acteur.EtatCivil.Ident.Prenom.Or("") + " " + a.Acteur.EtatCivil.Ident.Nom.Or(""))
			if extID == "" || name == "" {
				res.Skipped++
				continue
			}
			seen[extID] = struct{}{}

			l := &models.Legislator{
				Chamber:    r.cfg.Chamber,
				ExtID:      extID,
				Name:       name,
				Slug:       utils.Slugify(name),
				GroupExtID: a.Acteur.Groupe.OrganeRef.Or(""),
				Active:     true,
				UpdatedAt:  now,
			}
			if prev, ok := known[extID]; ok {
				// Identity fields come from the archive; derived metrics
				// belong to the stats calculator and must survive a re-sync.
				copyMetrics(l, prev)
				res.Updated++
			} else {
				res.Created++
			}
			legislators = append(legislators, l)
		}

		// A limited run is a sample, not the full membership: deactivating
		// everyone outside the sample would be wrong.
		if opts.Limit == 0 {
			for _, prev := range existing {
				if _, ok := seen[prev.ExtID]; ok || !prev.Active {
					continue
				}
				gone := *prev
				gone.Active = false
				gone.UpdatedAt = now
				legislators = append(legislators, &gone)
				res.Updated++
			}
		}

		if err := r.store.UpsertPoliticalGroups(ctx, groups); err != nil {
			return err
		}
		if err := r.store.UpsertLegislators(ctx, legislators); err != nil {
			return err
		}

		r.logger.Info("Roster synced",
			zap.Int("groups", len(groups)),
			zap.Int("legislators", len(legislators)),
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

// copyMetrics carries the calculator-owned fields of prev into l.
func copyMetrics(l, prev *models.Legislator) {
	l.PresenceRate = prev.PresenceRate
	l.LoyaltyRate = prev.LoyaltyRate
	l.VotesCast = prev.VotesCast
	l.InterventionCount = prev.InterventionCount
	l.AmendmentsProposed = prev.AmendmentsProposed
	l.AmendmentsAdopted = prev.AmendmentsAdopted
	l.QuestionCount = prev.QuestionCount
	l.StatsComputedAt = prev.StatsComputedAt
}
