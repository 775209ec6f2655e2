package syncer

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/opencivica/legisync/pkg/db/models"
	"github.com/opencivica/legisync/pkg/source"
)

// StateStore is the persisted-fingerprint surface of the canonical store.
type StateStore interface {
	GetSyncState(ctx context.Context, src string) (*models.SyncState, error)
	UpsertSyncState(ctx context.Context, state *models.SyncState) error
}

// Detector decides whether a source needs re-ingestion by comparing the
// upstream's current freshness signal against the fingerprint stored after
// the last successful run.
type Detector struct {
	logger *zap.Logger
	store  StateStore
}

// NewDetector creates a change detector backed by the given state store.
func NewDetector(logger *zap.Logger, store StateStore) *Detector {
	return &Detector{logger: logger, store: store}
}

// HasChanged probes the connector's fingerprint and compares it with the
// stored one. Force bypasses the comparison; a probe failure under force is
// tolerated so an operator can always push a sync through, at the cost of
// the source staying dirty for the next run.
func (d *Detector) HasChanged(ctx context.Context, c source.Connector, force bool) (changed bool, fingerprint string, err error) {
	fp, err := c.Fingerprint(ctx)
	if err != nil {
		if force {
			d.logger.Warn("Fingerprint probe failed on forced sync, proceeding",
				zap.String("source", c.Name()), zap.Error(err))
			return true, "", nil
		}
		return false, "", fmt.Errorf("probe %s: %w", c.Name(), err)
	}

	if force {
		return true, fp, nil
	}

	prev, err := d.store.GetSyncState(ctx, c.Name())
	if err != nil {
		return false, "", fmt.Errorf("load sync state of %s: %w", c.Name(), err)
	}
	// An empty stored fingerprint means the last run could not capture one;
	// the source stays dirty until a run records a real signal.
	if prev == nil || prev.Fingerprint == "" || prev.Fingerprint != fp {
		return true, fp, nil
	}

	d.logger.Debug("Source unchanged",
		zap.String("source", c.Name()), zap.String("fingerprint", fp))
	return false, fp, nil
}
