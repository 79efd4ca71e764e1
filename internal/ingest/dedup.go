package ingest

import (
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

const dedupCacheSizePerSession = 1000

// deliveryGuard suppresses duplicate hook deliveries. Hosts that retry on
// transport hiccups may send the same event id twice; appending it twice would
// corrupt the arrival-order record.
type deliveryGuard struct {
	cacheSize int
	mu        sync.Mutex
	caches    map[string]*lru.Cache[string, struct{}]
}

func newDeliveryGuard(cacheSize int) (*deliveryGuard, error) {
	if cacheSize <= 0 {
		return nil, fmt.Errorf("cache size must be positive")
	}

	return &deliveryGuard{
		cacheSize: cacheSize,
		caches:    make(map[string]*lru.Cache[string, struct{}]),
	}, nil
}

// seen reports whether the (session, event) pair was already delivered.
// Events without an id cannot be deduplicated and always pass.
func (g *deliveryGuard) seen(sessionID string, eventID string) bool {
	if sessionID == "" || eventID == "" {
		return false
	}

	g.mu.Lock()
	cache, exists := g.caches[sessionID]
	if !exists {
		var err error
		cache, err = lru.New[string, struct{}](g.cacheSize)
		if err != nil {
			g.mu.Unlock()
			return false
		}
		g.caches[sessionID] = cache
	}

	if cache.Contains(eventID) {
		g.mu.Unlock()
		return true
	}

	cache.Add(eventID, struct{}{})
	g.mu.Unlock()
	return false
}
