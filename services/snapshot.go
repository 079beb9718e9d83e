package services

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"github.com/phonginreallife/ocmwrap/db"
)

const (
	// DefaultSnapshotFile is the snapshot filename inside the data directory.
	DefaultSnapshotFile = "oncall_snapshot.json"
	// DefaultSnapshotKey is the Redis key used when Redis backs the snapshot.
	DefaultSnapshotKey = "ocmwrap:oncall_snapshot"
)

// SnapshotStore persists the flattened on-call snapshot wholesale.
// Load reports when the snapshot was written; a zero time means no usable
// snapshot exists and the caller should refresh.
type SnapshotStore interface {
	Load(ctx context.Context) ([]db.CacheEntry, time.Time, error)
	Save(ctx context.Context, entries []db.CacheEntry) error
	Location() string
}

// FileSnapshotStore keeps the snapshot as a JSON file. The file's mtime is the
// TTL clock. Writes go through a uniquely named temp file and a rename so
// readers never observe a partial snapshot.
type FileSnapshotStore struct {
	Path string
}

func NewFileSnapshotStore(path string) *FileSnapshotStore {
	return &FileSnapshotStore{Path: path}
}

func (s *FileSnapshotStore) Load(_ context.Context) ([]db.CacheEntry, time.Time, error) {
	info, err := os.Stat(s.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, time.Time{}, nil
		}
		return nil, time.Time{}, err
	}

	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, time.Time{}, err
	}

	var entries []db.CacheEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		log.Printf("[Cache] ⚠️ Snapshot file %s is corrupt, treating as missing: %v", s.Path, err)
		return nil, time.Time{}, nil
	}
	return entries, info.ModTime(), nil
}

func (s *FileSnapshotStore) Save(_ context.Context, entries []db.CacheEntry) error {
	if err := os.MkdirAll(filepath.Dir(s.Path), 0o755); err != nil {
		return err
	}

	data, err := json.Marshal(entries)
	if err != nil {
		return err
	}

	tmp := s.Path + "." + uuid.NewString() + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmp, s.Path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}

func (s *FileSnapshotStore) Location() string {
	return s.Path
}

// snapshotEnvelope wraps the entries with their write instant, since Redis has
// no mtime to act as the TTL clock.
type snapshotEnvelope struct {
	WrittenAt time.Time       `json:"written_at"`
	Entries   []db.CacheEntry `json:"entries"`
}

// RedisSnapshotStore keeps the snapshot under a single Redis key so multiple
// replicas share one cache. The key never expires; staleness is judged from
// the stored write instant, and a stale snapshot is still readable while a
// refresh is underway.
type RedisSnapshotStore struct {
	client *redis.Client
	key    string
}

func NewRedisSnapshotStore(client *redis.Client, key string) *RedisSnapshotStore {
	if key == "" {
		key = DefaultSnapshotKey
	}
	return &RedisSnapshotStore{client: client, key: key}
}

func (s *RedisSnapshotStore) Load(ctx context.Context) ([]db.CacheEntry, time.Time, error) {
	data, err := s.client.Get(ctx, s.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, time.Time{}, nil
		}
		return nil, time.Time{}, err
	}

	var env snapshotEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		log.Printf("[Cache] ⚠️ Snapshot key %s is corrupt, treating as missing: %v", s.key, err)
		return nil, time.Time{}, nil
	}
	return env.Entries, env.WrittenAt, nil
}

func (s *RedisSnapshotStore) Save(ctx context.Context, entries []db.CacheEntry) error {
	data, err := json.Marshal(snapshotEnvelope{
		WrittenAt: time.Now().UTC(),
		Entries:   entries,
	})
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.key, data, 0).Err()
}

func (s *RedisSnapshotStore) Location() string {
	return "redis:" + s.key
}
