package services

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/phonginreallife/ocmwrap/db"
	"github.com/phonginreallife/ocmwrap/internal/ocm"
)

const (
	// DefaultCacheTTLHours bounds snapshot staleness.
	DefaultCacheTTLHours = 6
	// DefaultCacheWindowMonths is how far ahead the snapshot looks.
	DefaultCacheWindowMonths = 3
)

// CacheService maintains the flattened on-call snapshot behind next-on-call
// lookups. Reads within the TTL never touch the upstream.
type CacheService struct {
	Directory    *Directory
	Client       *ocm.Client
	Store        SnapshotStore
	TTL          time.Duration
	WindowMonths int

	refreshGroup singleflight.Group
}

func NewCacheService(directory *Directory, client *ocm.Client, store SnapshotStore, ttlHours, windowMonths int) *CacheService {
	if ttlHours <= 0 {
		ttlHours = DefaultCacheTTLHours
	}
	if windowMonths <= 0 {
		windowMonths = DefaultCacheWindowMonths
	}
	return &CacheService{
		Directory:    directory,
		Client:       client,
		Store:        store,
		TTL:          time.Duration(ttlHours) * time.Hour,
		WindowMonths: windowMonths,
	}
}

// GetOrRefresh returns the snapshot, rebuilding it when missing or older than
// the TTL. Concurrent refreshes of the same store collapse into one pass.
func (c *CacheService) GetOrRefresh(ctx context.Context) ([]db.CacheEntry, error) {
	entries, writtenAt, err := c.Store.Load(ctx)
	if err != nil {
		log.Printf("[Cache] ⚠️ Failed to load snapshot from %s: %v", c.Store.Location(), err)
	} else if !writtenAt.IsZero() && time.Since(writtenAt) < c.TTL {
		return entries, nil
	}
	return c.Refresh(ctx)
}

// Refresh rebuilds the snapshot unconditionally from every configured team and
// group. Teams without credentials are skipped; upstream failures shrink the
// result instead of failing it, so the refresh itself never errors on them.
func (c *CacheService) Refresh(ctx context.Context) ([]db.CacheEntry, error) {
	fresh, err, _ := c.refreshGroup.Do(c.Store.Location(), func() (interface{}, error) {
		return c.rebuild(ctx), nil
	})
	if err != nil {
		return nil, err
	}
	return fresh.([]db.CacheEntry), nil
}

func (c *CacheService) rebuild(ctx context.Context) []db.CacheEntry {
	started := time.Now()
	from := time.Now().UTC()
	to := from.AddDate(0, 0, c.WindowMonths*30)

	seen := make(map[string]bool)
	entries := make([]db.CacheEntry, 0)

	for _, team := range c.Directory.Entries() {
		creds, err := ResolveCredentials(team)
		if err != nil {
			log.Printf("[Cache] Skipping team %s: credentials not configured", team.Name)
			continue
		}

		for _, buckets := range fetchGroupWindows(ctx, c.Client, creds, team.Groups, from, to) {
			for _, rec := range ocm.Normalize(buckets) {
				key := rec.GroupID + "|" + rec.StartTime + "|" + rec.EndTime
				if seen[key] {
					continue
				}
				seen[key] = true
				entries = append(entries, flattenRecord(rec)...)
			}
		}
	}

	if err := c.Store.Save(ctx, entries); err != nil {
		log.Printf("[Cache] ⚠️ Failed to persist snapshot to %s: %v", c.Store.Location(), err)
	} else {
		log.Printf("[Cache] ✅ Snapshot refreshed: %d entries in %v", len(entries), time.Since(started).Round(time.Millisecond))
	}
	return entries
}

// GetNextOnCall finds the user's earliest strictly-future shift. UserID
// matching is case-insensitive; ties keep snapshot order.
func (c *CacheService) GetNextOnCall(ctx context.Context, userID string) (db.CacheEntry, error) {
	want := strings.ToLower(strings.TrimSpace(userID))
	if want == "" {
		return db.CacheEntry{}, &ValidationError{Msg: "user is required"}
	}

	entries, err := c.GetOrRefresh(ctx)
	if err != nil {
		return db.CacheEntry{}, err
	}

	type candidate struct {
		entry db.CacheEntry
		start time.Time
	}

	now := time.Now()
	seen := make(map[string]bool)
	candidates := make([]candidate, 0)
	for _, entry := range entries {
		if strings.ToLower(entry.UserID) != want {
			continue
		}
		start, err := time.Parse(time.RFC3339, entry.StartTime)
		if err != nil || !start.After(now) {
			continue
		}
		key := entry.GroupID + "|" + entry.StartTime + "|" + entry.EndTime
		if seen[key] {
			continue
		}
		seen[key] = true
		candidates = append(candidates, candidate{entry: entry, start: start})
	}

	if len(candidates) == 0 {
		return db.CacheEntry{}, &NotFoundError{Msg: fmt.Sprintf("No future on-call shifts found for %s.", userID)}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].start.Before(candidates[j].start)
	})
	return candidates[0].entry, nil
}

// flattenRecord emits one cache row per (shift, user) pair.
func flattenRecord(rec ocm.ShiftRecord) []db.CacheEntry {
	tz := ""
	if rec.Timezone != nil {
		tz = *rec.Timezone
	}

	users := ocm.ProjectUsers(rec.Users)
	rows := make([]db.CacheEntry, 0, len(users))
	for _, u := range users {
		rows = append(rows, db.CacheEntry{
			GroupID:   rec.GroupID,
			StartTime: rec.StartTime,
			EndTime:   rec.EndTime,
			Timezone:  tz,
			UserID:    strings.ToLower(u.UserID),
			FullName:  u.Name,
		})
	}
	return rows
}
