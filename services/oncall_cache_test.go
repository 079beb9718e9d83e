package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phonginreallife/ocmwrap/db"
	"github.com/phonginreallife/ocmwrap/internal/ocm"
)

func tempFileStore(t *testing.T) *FileSnapshotStore {
	t.Helper()
	return NewFileSnapshotStore(filepath.Join(t.TempDir(), DefaultSnapshotFile))
}

func TestFileSnapshotStore_RoundTrip(t *testing.T) {
	store := tempFileStore(t)
	ctx := context.Background()

	entries, writtenAt, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, entries)
	assert.True(t, writtenAt.IsZero())

	want := []db.CacheEntry{{
		GroupID:   "OMS-DBA-SEV1-Primary",
		StartTime: "2025-01-02T08:00:00Z",
		EndTime:   "2025-01-02T20:00:00Z",
		Timezone:  "UTC",
		UserID:    "alovelace",
		FullName:  "Ada Lovelace",
	}}
	require.NoError(t, store.Save(ctx, want))

	got, writtenAt, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.WithinDuration(t, time.Now(), writtenAt, 5*time.Second)

	// No stray temp files left behind.
	leftovers, err := filepath.Glob(store.Path + ".*")
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}

func TestFileSnapshotStore_CorruptFileTreatedAsMissing(t *testing.T) {
	store := tempFileStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, []db.CacheEntry{}))
	require.NoError(t, os.WriteFile(store.Path, []byte("{not json"), 0o644))

	entries, writtenAt, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, entries)
	assert.True(t, writtenAt.IsZero())
}

func TestCacheService_FreshSnapshotSkipsUpstream(t *testing.T) {
	setTestCredentials(t, "OMS_DBA")
	setTestCredentials(t, "BILLING")

	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		fmt.Fprint(w, "[]")
	}))
	defer server.Close()

	store := tempFileStore(t)
	seeded := []db.CacheEntry{{GroupID: "OMS-DBA-SEV1-Primary", StartTime: "2025-01-02T08:00:00Z", EndTime: "2025-01-02T20:00:00Z", UserID: "alovelace", FullName: "Ada Lovelace"}}
	require.NoError(t, store.Save(context.Background(), seeded))

	svc := NewCacheService(testDirectory(), ocm.NewClient(server.URL), store, 6, 3)

	got, err := svc.GetOrRefresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, seeded, got)
	assert.Zero(t, atomic.LoadInt32(&hits))
}

func TestCacheService_StaleSnapshotRefreshes(t *testing.T) {
	setTestCredentials(t, "OMS_DBA")
	setTestCredentials(t, "BILLING")

	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		fmt.Fprintf(w, "[%s]",
			bucketJSON("OMS-DBA-SEV1-Primary", "2025-06-01T08:00:00Z", "2025-06-01T20:00:00Z", "Ada Lovelace", "alovelace"),
		)
	}))
	defer server.Close()

	store := tempFileStore(t)
	stale := []db.CacheEntry{{GroupID: "STALE-GROUP", StartTime: "2024-01-01T08:00:00Z", EndTime: "2024-01-01T20:00:00Z", UserID: "old"}}
	require.NoError(t, store.Save(context.Background(), stale))

	// Age the snapshot just past the 6 hour TTL.
	old := time.Now().Add(-6*time.Hour - time.Minute)
	require.NoError(t, os.Chtimes(store.Path, old, old))

	svc := NewCacheService(testDirectory(), ocm.NewClient(server.URL), store, 6, 3)

	got, err := svc.GetOrRefresh(context.Background())
	require.NoError(t, err)
	assert.Positive(t, atomic.LoadInt32(&hits))
	require.Len(t, got, 1)
	assert.Equal(t, "OMS-DBA-SEV1-Primary", got[0].GroupID)
}

func TestCacheService_ConcurrentRefreshCollapses(t *testing.T) {
	setTestCredentials(t, "OMS_DBA")

	var hits int32
	var firstHit sync.Once
	started := make(chan struct{})
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		firstHit.Do(func() { close(started) })
		<-release
		fmt.Fprint(w, "[]")
	}))
	defer server.Close()

	// Single-group team so one rebuild is exactly one upstream request.
	directory := NewDirectory([]db.TeamEntry{{
		Name:          "oms-dba",
		CredentialRef: "OMS_DBA",
		Groups:        []string{"OMS-DBA-SEV1-Primary"},
	}})
	svc := NewCacheService(directory, ocm.NewClient(server.URL), tempFileStore(t), 6, 3)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, _ = svc.Refresh(context.Background())
	}()

	// Second caller arrives while the first rebuild is blocked upstream.
	<-started
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, _ = svc.Refresh(context.Background())
	}()

	time.Sleep(200 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestCacheService_RebuildFlattensAndPersists(t *testing.T) {
	setTestCredentials(t, "OMS_DBA")
	setTestCredentials(t, "BILLING")

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Same payload for every group hint; dedupe collapses the repeats.
		fmt.Fprintf(w, "[%s]",
			bucketJSON("OMS-DBA-SEV1-Primary", "2025-06-01T08:00:00Z", "2025-06-01T20:00:00Z", "Ada Lovelace", "ALovelace"),
		)
	}))
	defer server.Close()

	store := tempFileStore(t)
	svc := NewCacheService(testDirectory(), ocm.NewClient(server.URL), store, 6, 3)

	got, err := svc.GetOrRefresh(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "OMS-DBA-SEV1-Primary", got[0].GroupID)
	assert.Equal(t, "alovelace", got[0].UserID)
	assert.Equal(t, "Ada Lovelace", got[0].FullName)
	assert.Equal(t, "UTC", got[0].Timezone)

	persisted, writtenAt, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, got, persisted)
	assert.False(t, writtenAt.IsZero())
}

func TestCacheService_SkipsTeamsWithoutCredentials(t *testing.T) {
	setTestCredentials(t, "OMS_DBA")
	// BILLING credentials deliberately absent.

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		group := r.URL.Query().Get("groupname")
		fmt.Fprintf(w, "[%s]",
			bucketJSON(group, "2025-06-01T08:00:00Z", "2025-06-01T20:00:00Z", "Ada Lovelace", "alovelace"),
		)
	}))
	defer server.Close()

	store := tempFileStore(t)
	svc := NewCacheService(testDirectory(), ocm.NewClient(server.URL), store, 6, 3)

	got, err := svc.Refresh(context.Background())
	require.NoError(t, err)

	groups := map[string]bool{}
	for _, entry := range got {
		groups[entry.GroupID] = true
	}
	assert.True(t, groups["OMS-DBA-SEV1-Primary"])
	assert.True(t, groups["OMS-DBA-SEV1-Secondary"])
	assert.False(t, groups["BILLING-ONCALL"])
}

func TestGetNextOnCall(t *testing.T) {
	setTestCredentials(t, "OMS_DBA")
	setTestCredentials(t, "BILLING")

	now := time.Now().UTC()
	past := now.Add(-2 * time.Hour).Format(time.RFC3339)
	soon := now.Add(1 * time.Hour).Format(time.RFC3339)
	later := now.Add(48 * time.Hour).Format(time.RFC3339)

	store := tempFileStore(t)
	seeded := []db.CacheEntry{
		{GroupID: "G1", StartTime: past, EndTime: soon, UserID: "alovelace", FullName: "Ada Lovelace"},
		{GroupID: "G1", StartTime: later, EndTime: later, UserID: "alovelace", FullName: "Ada Lovelace"},
		{GroupID: "G1", StartTime: soon, EndTime: later, UserID: "alovelace", FullName: "Ada Lovelace"},
		// Duplicate of the shift above, as an older snapshot writer could leave.
		{GroupID: "G1", StartTime: soon, EndTime: later, UserID: "alovelace", FullName: "Ada Lovelace"},
		{GroupID: "G2", StartTime: soon, EndTime: later, UserID: "ghopper", FullName: "Grace Hopper"},
	}
	require.NoError(t, store.Save(context.Background(), seeded))

	svc := NewCacheService(testDirectory(), ocm.NewClient("http://unused.invalid"), store, 6, 3)

	t.Run("earliest future shift, case-insensitive", func(t *testing.T) {
		entry, err := svc.GetNextOnCall(context.Background(), "ALovelace")
		require.NoError(t, err)
		assert.Equal(t, soon, entry.StartTime)
		assert.Equal(t, "G1", entry.GroupID)
	})

	t.Run("unknown user", func(t *testing.T) {
		_, err := svc.GetNextOnCall(context.Background(), "nobody")
		var nf *NotFoundError
		require.True(t, errors.As(err, &nf))
		assert.Contains(t, nf.Error(), "nobody")
	})

	t.Run("empty user", func(t *testing.T) {
		_, err := svc.GetNextOnCall(context.Background(), "   ")
		var verr *ValidationError
		assert.True(t, errors.As(err, &verr))
	})
}
