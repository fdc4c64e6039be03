package model

import (
	"strconv"
	"time"

	"LevelVault/internal/gamesave/domain/archive"
)

// SnapshotDoc 是快照在 mongodb 里的文档形状。
// fingerprint 存十六进制字符串，避开 uint64 超出 bson int64 的问题。
type SnapshotDoc struct {
	ID          int64     `bson:"_id"`
	LevelName   string    `bson:"level_name"`
	LevelID     int       `bson:"level_id"`
	Fingerprint string    `bson:"fingerprint"`
	Objects     int       `bson:"objects"`
	Text        string    `bson:"text"`
	Note        string    `bson:"note,omitempty"`
	CreatedAt   time.Time `bson:"created_at"`
}

func FingerprintKey(fp uint64) string {
	return strconv.FormatUint(fp, 16)
}

func SnapshotToDoc(s archive.Snapshot) SnapshotDoc {
	return SnapshotDoc{
		ID:          s.ID,
		LevelName:   s.LevelName,
		LevelID:     s.LevelID,
		Fingerprint: FingerprintKey(s.Fingerprint),
		Objects:     s.Objects,
		Text:        s.Text,
		Note:        s.Note,
		CreatedAt:   s.CreatedAt,
	}
}

func SnapshotDocToDomain(d SnapshotDoc) archive.Snapshot {
	fp, _ := strconv.ParseUint(d.Fingerprint, 16, 64)
	return archive.Snapshot{
		ID:          d.ID,
		LevelName:   d.LevelName,
		LevelID:     d.LevelID,
		Fingerprint: fp,
		Objects:     d.Objects,
		Text:        d.Text,
		Note:        d.Note,
		CreatedAt:   d.CreatedAt,
	}
}

func IndexEntryToModel(e archive.IndexEntry) LevelIndex {
	return LevelIndex{
		Position:    uint32(e.Position),
		Name:        e.Name,
		LevelID:     int64(e.LevelID),
		Creator:     e.Creator,
		Objects:     uint32(max(0, e.Objects)),
		Version:     uint32(max(0, e.Version)),
		Fingerprint: e.Fingerprint,
		UpdatedAt:   e.UpdatedAt,
	}
}

func IndexModelToEntry(m LevelIndex) archive.IndexEntry {
	return archive.IndexEntry{
		Position:    int(m.Position),
		Name:        m.Name,
		LevelID:     int(m.LevelID),
		Creator:     m.Creator,
		Objects:     int(m.Objects),
		Version:     int(m.Version),
		Fingerprint: m.Fingerprint,
		UpdatedAt:   m.UpdatedAt,
	}
}
