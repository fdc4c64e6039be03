package memory

import (
	"context"
	"errors"
	"testing"

	"LevelVault/internal/gamesave/domain/archive"
)

func TestSnapshotRepo_按关卡倒序(t *testing.T) {
	ctx := context.Background()
	r := NewSnapshotRepo()
	for id := int64(1); id <= 3; id++ {
		if err := r.Put(ctx, archive.Snapshot{ID: id, LevelName: "a", Fingerprint: uint64(id)}); err != nil {
			t.Fatalf("Put: %v", err)
		}
	}
	_ = r.Put(ctx, archive.Snapshot{ID: 9, LevelName: "b"})

	got, _ := r.ListByLevel(ctx, "a", 2)
	if len(got) != 2 || got[0].ID != 3 || got[1].ID != 2 {
		t.Fatalf("ListByLevel 结果不符: %+v", got)
	}
	if _, err := r.FindByFingerprint(ctx, 42); !errors.Is(err, archive.ErrSnapshotNotFound) {
		t.Fatalf("未命中应返回 ErrSnapshotNotFound, got %v", err)
	}
	s, err := r.Get(ctx, 2)
	if err != nil || s.Fingerprint != 2 {
		t.Fatalf("Get(2) = %+v, %v", s, err)
	}
}
