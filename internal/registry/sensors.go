// Package registry holds the two read-mostly snapshots shared across
// requests: the authoritative sensor list and the analytics capability list.
// Both reload when stale rather than on explicit invalidation.
package registry

import (
	"context"
	"sync"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"go.uber.org/zap"
)

const sensorsKey = "sensors"

// SensorLister is satisfied by the knowledge store.
type SensorLister interface {
	ListSensorNames(ctx context.Context) ([]string, error)
}

type Sensors struct {
	lister SensorLister
	cache  *ttlcache.Cache[string, []string]
	ttl    time.Duration
	logger *zap.Logger

	mu   sync.Mutex
	last []string
}

func NewSensors(lister SensorLister, ttl time.Duration, logger *zap.Logger) *Sensors {
	cache := ttlcache.New(
		ttlcache.WithTTL[string, []string](ttl),
	)
	return &Sensors{
		lister: lister,
		cache:  cache,
		ttl:    ttl,
		logger: logger.Named("registry.sensors"),
	}
}

// Snapshot returns the current sensor list, reloading it when the cached one
// is older than the staleness window. When a reload fails, the previous
// snapshot keeps serving so readers never see a partial or empty view.
func (s *Sensors) Snapshot(ctx context.Context) []string {
	if item := s.cache.Get(sensorsKey); item != nil {
		return item.Value()
	}

	names, err := s.lister.ListSensorNames(ctx)
	if err != nil {
		s.logger.Warn("sensor registry reload failed, serving previous snapshot", zap.Error(err))
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.last
	}

	s.cache.Set(sensorsKey, names, s.ttl)
	s.mu.Lock()
	s.last = names
	s.mu.Unlock()
	s.logger.Debug("sensor registry reloaded", zap.Int("count", len(names)))
	return names
}
