package source

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/opencivica/legisync/pkg/db/models"
	"github.com/opencivica/legisync/pkg/decode"
	"github.com/opencivica/legisync/pkg/fetch"
)

// rawBallot is one scrutin from the flat JSON export.
type rawBallot struct {
	UID    string           `json:"uid"`
	Numero string           `json:"numero"`
	Date   string           `json:"dateScrutin"`
	Titre  decode.OptString `json:"titre"`
	Sort   struct {
		Code decode.OptString `json:"code"`
	} `json:"sort"`
	Synthese struct {
		Pour        string `json:"pour"`
		Contre      string `json:"contre"`
		Abstentions string `json:"abstentions"`
	} `json:"syntheseVote"`
	Votes []struct {
		ActeurRef string `json:"acteurRef"`
		Position  string `json:"position"`
	} `json:"votes"`
}

// Ballots ingests roll-call ballots and their individual votes.
type Ballots struct {
	logger *zap.Logger
	store  Store
	client *fetch.Client
	cfg    Config
}

// NewBallots creates the ballots connector.
func NewBallots(logger *zap.Logger, store Store, cfg Config) *Ballots {
	return &Ballots{
		logger: logger.With(zap.String("source", NameBallots)),
		store:  store,
		client: fetch.New(logger, fetch.Opts{Timeout: cfg.FetchTimeout}),
		cfg:    cfg,
	}
}

func (b *Ballots) Name() string { return NameBallots }

func (b *Ballots) Fingerprint(ctx context.Context) (string, error) {
	return b.client.Probe(ctx, b.cfg.BallotsURL)
}

// Sync fetches the ballot export and upserts ballots plus per-legislator
// votes. A ballot whose identity fields cannot be read is skipped whole,
// its votes included: a vote row without its ballot is unusable.
func (b *Ballots) Sync(ctx context.Context, opts Options) (Result, error) {
	body, err := b.client.Get(ctx, b.cfg.BallotsURL)
	if err != nil {
		return Result{}, err
	}

	raws := applyLimit(decode.FlatJSON(b.logger, body, "scrutins", "scrutin"), opts.Limit)

	existing, err := b.store.ExistingExtIDs(ctx, models.BallotsTableName, b.cfg.Chamber)
	if err != nil {
		return Result{}, err
	}

	var res Result
	now := time.Now()
	ballots := make([]*models.Ballot, 0, len(raws))
	var votes []*models.Vote
	for _, raw := range raws {
		var rb rawBallot
		if err := json.Unmarshal(raw, &rb); err != nil {
			b.logger.Warn("Skipping malformed ballot", zap.Error(err))
			res.Skipped++
			continue
		}
		date, ok := parseUpstreamDate(rb.Date)
		if rb.UID == "" || !ok {
			b.logger.Warn("Skipping ballot without identity", zap.String("uid", rb.UID))
			res.Skipped++
			continue
		}

		ballots = append(ballots, &models.Ballot{
			Chamber:      b.cfg.Chamber,
			ExtID:        rb.UID,
			Number:       parseUint32(rb.Numero),
			Date:         date,
			Title:        decode.Clean(rb.Titre.Or("")),
			Outcome:      normalizeOutcome(rb.Sort.Code.Or("")),
			VotesFor:     parseUint32(rb.Synthese.Pour),
			VotesAgainst: parseUint32(rb.Synthese.Contre),
			Abstentions:  parseUint32(rb.Synthese.Abstentions),
			UpdatedAt:    now,
		})
		if _, ok := existing[rb.UID]; ok {
			res.Updated++
		} else {
			res.Created++
		}

		for _, v := range rb.Votes {
			pos, ok := normalizePosition(v.Position)
			if v.ActeurRef == "" || !ok {
				b.logger.Warn("Skipping unmappable vote",
					zap.String("ballot", rb.UID),
					zap.String("position", v.Position))
				res.Skipped++
				continue
			}
			votes = append(votes, &models.Vote{
				Chamber:         b.cfg.Chamber,
				BallotExtID:     rb.UID,
				LegislatorExtID: v.ActeurRef,
				Position:        pos,
				UpdatedAt:       now,
			})
		}
	}

	if err := b.store.UpsertBallots(ctx, ballots); err != nil {
		return Result{}, err
	}
	if err := b.store.UpsertVotes(ctx, votes); err != nil {
		return Result{}, err
	}

	b.logger.Info("Ballots synced",
		zap.Int("ballots", len(ballots)),
		zap.Int("votes", len(votes)),
		zap.Int("created", res.Created),
		zap.Int("updated", res.Updated),
		zap.Int("skipped", res.Skipped))
	return res, nil
}

// normalizePosition maps an upstream voting position onto the canonical set.
func normalizePosition(s string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pour", "for":
		return models.PositionFor, true
	case "contre", "against":
		return models.PositionAgainst, true
	case "abstention", "abstentions", "abstain":
		return models.PositionAbstain, true
	case "absent", "nonvotant", "non-votant", "non votant":
		return models.PositionAbsent, true
	}
	return "", false
}

// normalizeOutcome maps the upstream sort code onto adopted | rejected.
func normalizeOutcome(s string) string {
	if strings.HasPrefix(strings.ToLower(strings.TrimSpace(s)), "adopt") {
		return "adopted"
	}
	return "rejected"
}

func parseUint32(s string) uint32 {
	n, err := strconv.ParseUint(strings.TrimSpace(s), 10, 32)
	if err != nil {
		return 0
	}
	return uint32(n)
}
