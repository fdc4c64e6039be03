// Package archive 描述关卡快照与关卡索引两类持久化记录。
package archive

import (
	"time"

	"github.com/cespare/xxhash/v2"

	"LevelVault/modules/kit/errx"
)

const (
	CodeSnapshotNotFound errx.Code = "SAVE_SNAPSHOT_NOT_FOUND"
)

var ErrSnapshotNotFound = errx.NewBiz(CodeSnapshotNotFound, "快照不存在")

// Snapshot 是某一时刻单个关卡的完整导出（.gmd 文本）。
// 同一 Fingerprint 只保存一份。
type Snapshot struct {
	ID          int64
	LevelName   string
	LevelID     int
	Fingerprint uint64
	Objects     int
	Text        string
	Note        string
	CreatedAt   time.Time
}

// IndexEntry 是存档里一个关卡的元信息，按 Position 覆盖写。
type IndexEntry struct {
	Position    int
	Name        string
	LevelID     int
	Creator     string
	Objects     int
	Version     int
	Fingerprint uint64
	UpdatedAt   time.Time
}

// Fingerprint 对导出文本取 xxhash64。
func Fingerprint(text string) uint64 {
	return xxhash.Sum64String(text)
}
