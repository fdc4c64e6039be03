package app

import (
	"context"

	"LevelVault/internal/gamesave/domain/archive"
)

// SaveFile 是存档字节的来源与去处，领域层不接触文件路径。
type SaveFile interface {
	Read(ctx context.Context) ([]byte, error)
	Write(ctx context.Context, data []byte) error
}

type SnapshotRepo interface {
	Put(ctx context.Context, s archive.Snapshot) error
	Get(ctx context.Context, id int64) (archive.Snapshot, error)
	FindByFingerprint(ctx context.Context, fp uint64) (archive.Snapshot, error)
	ListByLevel(ctx context.Context, name string, limit int) ([]archive.Snapshot, error)
}

type IndexRepo interface {
	Replace(ctx context.Context, entries []archive.IndexEntry) error
	List(ctx context.Context) ([]archive.IndexEntry, error)
}

// IDGenerator 生成快照 id。
type IDGenerator interface {
	NextID() int64
}
