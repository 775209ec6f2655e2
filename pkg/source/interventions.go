package source

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/opencivica/legisync/pkg/db/models"
	"github.com/opencivica/legisync/pkg/decode"
	"github.com/opencivica/legisync/pkg/fetch"
)

// rawIntervention is one session intervention from the flat JSON export.
// Contenu arrives as HTML with double-encoded entities.
type rawIntervention struct {
	ID        string           `json:"id"`
	ActeurRef string           `json:"acteurRef"`
	Type      string           `json:"type"`
	Date      string           `json:"date"`
	Contenu   decode.OptString `json:"contenu"`
}

// Interventions ingests session speeches and questions.
type Interventions struct {
	logger *zap.Logger
	store  Store
	client *fetch.Client
	cfg    Config
}

// NewInterventions creates the interventions connector.
func NewInterventions(logger *zap.Logger, store Store, cfg Config) *Interventions {
	return &Interventions{
		logger: logger.With(zap.String("source", NameInterventions)),
		store:  store,
		client: fetch.New(logger, fetch.Opts{Timeout: cfg.FetchTimeout}),
		cfg:    cfg,
	}
}

func (i *Interventions) Name() string { return NameInterventions }

func (i *Interventions) Fingerprint(ctx context.Context) (string, error) {
	return i.client.Probe(ctx, i.cfg.InterventionsURL)
}

// Sync fetches the intervention export and upserts one row per speech or
// question, with its cleaned word count.
func (i *Interventions) Sync(ctx context.Context, opts Options) (Result, error) {
	body, err := i.client.Get(ctx, i.cfg.InterventionsURL)
	if err != nil {
		return Result{}, err
	}

	raws := applyLimit(decode.FlatJSON(i.logger, body, "interventions", "intervention"), opts.Limit)

	existing, err := i.store.ExistingExtIDs(ctx, models.InterventionsTableName, i.cfg.Chamber)
	if err != nil {
		return Result{}, err
	}

	var res Result
	now := time.Now()
	interventions := make([]*models.Intervention, 0, len(raws))
	for _, raw := range raws {
		var ri rawIntervention
		if err := json.Unmarshal(raw, &ri); err != nil {
			i.logger.Warn("Skipping malformed intervention", zap.Error(err))
			res.Skipped++
			continue
		}
		date, ok := parseUpstreamDate(ri.Date)
		if ri.ID == "" || ri.ActeurRef == "" || !ok {
			res.Skipped++
			continue
		}

		text := decode.Clean(ri.Contenu.Or(""))
		interventions = append(interventions, &models.Intervention{
			Chamber:         i.cfg.Chamber,
			ExtID:           ri.ID,
			LegislatorExtID: ri.ActeurRef,
			Kind:            normalizeKind(ri.Type),
			Date:            date,
			WordCount:       uint32(len(strings.Fields(text))),
			UpdatedAt:       now,
		})
		if _, ok := existing[ri.ID]; ok {
			res.Updated++
		} else {
			res.Created++
		}
	}

	if err := i.store.UpsertInterventions(ctx, interventions); err != nil {
		return Result{}, err
	}

	i.logger.Info("Interventions synced",
		zap.Int("interventions", len(interventions)),
		zap.Int("created", res.Created),
		zap.Int("updated", res.Updated),
		zap.Int("skipped", res.Skipped))
	return res, nil
}

// normalizeKind maps the upstream intervention type: anything labelled a
// question counts as one, the rest are speeches.
func normalizeKind(s string) string {
	if strings.Contains(strings.ToLower(s), "question") {
		return models.InterventionQuestion
	}
	return models.InterventionSpeech
}
