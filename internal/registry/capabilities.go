package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"go.uber.org/zap"
)

const capabilitiesKey = "capabilities"

// staticCapabilities is the fallback set: analytics types the execution
// service has always shipped. The remote list is unioned with it so a remote
// outage can only shrink nothing.
var staticCapabilities = []string{"anomaly", "correlation", "humidity_comfort", "trend"}

// CapabilitySource lists the analytics types the execution service currently
// supports.
type CapabilitySource interface {
	ListCapabilities(ctx context.Context) ([]string, error)
}

// HTTPCapabilitySource reads the capability list from the analytics service.
type HTTPCapabilitySource struct {
	endpoint string
	client   *http.Client
}

func NewHTTPCapabilitySource(endpoint string, timeout time.Duration) *HTTPCapabilitySource {
	return &HTTPCapabilitySource{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

func (s *HTTPCapabilitySource) ListCapabilities(ctx context.Context) ([]string, error) {
	if s.endpoint == "" {
		return nil, nil
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.endpoint, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("capability endpoint returned %d", resp.StatusCode)
	}

	var list []string
	if err := json.Unmarshal(body, &list); err != nil {
		return nil, fmt.Errorf("malformed capability list: %w", err)
	}
	return list, nil
}

type Capabilities struct {
	source CapabilitySource
	cache  *ttlcache.Cache[string, []string]
	ttl    time.Duration
	logger *zap.Logger

	mu   sync.Mutex
	last []string
}

func NewCapabilities(source CapabilitySource, ttl time.Duration, logger *zap.Logger) *Capabilities {
	cache := ttlcache.New(
		ttlcache.WithTTL[string, []string](ttl),
	)
	return &Capabilities{
		source: source,
		cache:  cache,
		ttl:    ttl,
		logger: logger.Named("registry.capabilities"),
	}
}

// Snapshot returns the remote capability list unioned with the static
// fallback set, sorted. A failed remote fetch serves the static set (or the
// previous snapshot when one exists).
func (c *Capabilities) Snapshot(ctx context.Context) []string {
	if item := c.cache.Get(capabilitiesKey); item != nil {
		return item.Value()
	}

	remote, err := c.source.ListCapabilities(ctx)
	if err != nil {
		c.logger.Warn("capability registry reload failed", zap.Error(err))
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.last != nil {
			return c.last
		}
		return append([]string(nil), staticCapabilities...)
	}

	merged := union(remote, staticCapabilities)
	c.cache.Set(capabilitiesKey, merged, c.ttl)
	c.mu.Lock()
	c.last = merged
	c.mu.Unlock()
	return merged
}

// Supported reports whether t is in the current snapshot.
func (c *Capabilities) Supported(ctx context.Context, t string) bool {
	for _, v := range c.Snapshot(ctx) {
		if v == t {
			return true
		}
	}
	return false
}

func union(a, b []string) []string {
	set := make(map[string]bool, len(a)+len(b))
	for _, v := range a {
		if v != "" {
			set[v] = true
		}
	}
	for _, v := range b {
		set[v] = true
	}
	out := make([]string, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
