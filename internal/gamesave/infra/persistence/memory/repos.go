// Package memory 是没有配置数据库时使用的进程内仓储，测试也用它。
package memory

import (
	"context"
	"slices"
	"sync"

	"LevelVault/internal/gamesave/domain/archive"
)

type SnapshotRepo struct {
	mu    sync.RWMutex
	items []archive.Snapshot
}

func NewSnapshotRepo() *SnapshotRepo {
	return &SnapshotRepo{}
}

func (r *SnapshotRepo) Put(ctx context.Context, s archive.Snapshot) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.items {
		if r.items[i].ID == s.ID {
			r.items[i] = s
			return nil
		}
	}
	r.items = append(r.items, s)
	return nil
}

func (r *SnapshotRepo) Get(ctx context.Context, id int64) (archive.Snapshot, error) {
	return r.find(func(s archive.Snapshot) bool { return s.ID == id })
}

func (r *SnapshotRepo) FindByFingerprint(ctx context.Context, fp uint64) (archive.Snapshot, error) {
	return r.find(func(s archive.Snapshot) bool { return s.Fingerprint == fp })
}

func (r *SnapshotRepo) find(match func(archive.Snapshot) bool) (archive.Snapshot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, s := range r.items {
		if match(s) {
			return s, nil
		}
	}
	return archive.Snapshot{}, archive.ErrSnapshotNotFound
}

func (r *SnapshotRepo) ListByLevel(ctx context.Context, name string, limit int) ([]archive.Snapshot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []archive.Snapshot
	for _, s := range r.items {
		if s.LevelName == name {
			out = append(out, s)
		}
	}
	slices.SortFunc(out, func(a, b archive.Snapshot) int {
		switch {
		case a.ID > b.ID:
			return -1
		case a.ID < b.ID:
			return 1
		}
		return 0
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type IndexRepo struct {
	mu      sync.RWMutex
	entries []archive.IndexEntry
}

func NewIndexRepo() *IndexRepo {
	return &IndexRepo{}
}

func (r *IndexRepo) Replace(ctx context.Context, entries []archive.IndexEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = slices.Clone(entries)
	return nil
}

func (r *IndexRepo) List(ctx context.Context) ([]archive.IndexEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.entries), nil
}
