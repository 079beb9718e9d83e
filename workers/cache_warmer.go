package workers

import (
	"context"
	"log"
	"time"

	"github.com/phonginreallife/ocmwrap/services"
)

// CacheWarmer keeps the on-call snapshot fresh so interactive lookups rarely
// pay for an upstream pass.
type CacheWarmer struct {
	CacheService *services.CacheService
	Interval     time.Duration
}

func NewCacheWarmer(cacheService *services.CacheService, intervalMinutes int) *CacheWarmer {
	if intervalMinutes <= 0 {
		intervalMinutes = 30
	}
	return &CacheWarmer{
		CacheService: cacheService,
		Interval:     time.Duration(intervalMinutes) * time.Minute,
	}
}

// StartCacheWarmer warms the snapshot immediately, then keeps it warm on a
// fixed ticker. Refresh failures are logged and the loop continues.
func (w *CacheWarmer) StartCacheWarmer() {
	log.Printf("Cache warmer started, refreshing every %v...", w.Interval)

	w.warm()

	ticker := time.NewTicker(w.Interval)
	defer ticker.Stop()

	for range ticker.C {
		w.warm()
	}
}

func (w *CacheWarmer) warm() {
	entries, err := w.CacheService.GetOrRefresh(context.Background())
	if err != nil {
		log.Printf("Cache warmer: refresh failed: %v", err)
		return
	}
	log.Printf("Cache warmer: snapshot holds %d entries", len(entries))
}
