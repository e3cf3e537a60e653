package itembank

import (
	"context"

	psy "github.com/yungbote/neurobridge-psychometrics/internal/domain/psychometrics"
	"github.com/yungbote/neurobridge-psychometrics/internal/platform/logger"
)

// TieredStore reads through a cache into an authoritative backing store.
// Cache failures are logged and never fail the call.
type TieredStore struct {
	cache   Store
	backing Store
	log     *logger.Logger
}

func NewTieredStore(cache, backing Store, baseLog *logger.Logger) *TieredStore {
	return &TieredStore{cache: cache, backing: backing, log: baseLog.With("store", "TieredItemBank")}
}

func (s *TieredStore) Get(ctx context.Context, itemID string) (*psy.ItemParameters, bool, error) {
	if p, ok, err := s.cache.Get(ctx, itemID); err != nil {
		s.log.Warn("item bank cache read failed", "item_id", itemID, "error", err)
	} else if ok {
		return p, true, nil
	}
	p, ok, err := s.backing.Get(ctx, itemID)
	if err != nil || !ok {
		return nil, false, err
	}
	if err := s.cache.Set(ctx, p); err != nil {
		s.log.Warn("item bank cache fill failed", "item_id", itemID, "error", err)
	}
	return p, true, nil
}

// Set writes the backing store first so the cache never holds parameters
// that were not persisted.
func (s *TieredStore) Set(ctx context.Context, params *psy.ItemParameters) error {
	if err := s.backing.Set(ctx, params); err != nil {
		return err
	}
	if err := s.cache.Set(ctx, params); err != nil {
		s.log.Warn("item bank cache write failed", "item_id", params.ItemID, "error", err)
	}
	return nil
}

// Evict invalidates the cached copy; persisted parameters stay.
func (s *TieredStore) Evict(ctx context.Context, itemID string) error {
	return s.cache.Evict(ctx, itemID)
}
