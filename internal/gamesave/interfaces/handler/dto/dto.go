package dto

import (
	"fmt"
	"time"

	"github.com/go-viper/mapstructure/v2"

	"LevelVault/internal/gamesave/app/migrate"
	"LevelVault/internal/gamesave/domain/archive"
	"LevelVault/internal/gamesave/domain/store"
)

const CodeOK = "OK"

// Response 是 HTTP 接口统一的响应体。
type Response struct {
	Code string `json:"code"`
	Msg  string `json:"msg,omitempty"`
	Data any    `json:"data,omitempty"`
}

func Success(data any) Response {
	return Response{Code: CodeOK, Data: data}
}

func Error(code, msg string) Response {
	return Response{Code: code, Msg: msg}
}

type MigrateReq struct {
	Kind   string          `mapstructure:"kind"`
	Ranges []migrate.Range `mapstructure:"ranges"`
}

type CompactReq struct {
	Kind    string         `mapstructure:"kind"`
	Ignored []migrate.Span `mapstructure:"ignored"`
}

type ImportReq struct {
	Text string `mapstructure:"text"`
	At   int    `mapstructure:"at"`
}

type MoveReq struct {
	To int `mapstructure:"to"`
}

type ArchiveReq struct {
	Note string `mapstructure:"note"`
}

type RestoreReq struct {
	ID int64 `mapstructure:"id"`
	At int   `mapstructure:"at"`
}

type LoadAllReq struct {
	Focus int `mapstructure:"focus"`
}

type OpenSessionReq struct {
	Index int `mapstructure:"index"`
}

type ThresholdReq struct {
	Threshold int `mapstructure:"threshold"`
}

// ImportResp 返回实际插入的下标。
type ImportResp struct {
	Index int `json:"index"`
}

type ArchiveResp struct {
	ID          int64  `json:"id,string"`
	Fingerprint string `json:"fingerprint"`
	Created     bool   `json:"created"`
}

type ReloadResp struct {
	Changed bool `json:"changed"`
}

type SessionResp struct {
	ID string `json:"id"`
}

// Decode 把松散 JSON（数字可能是字符串）解到 dst。编辑器面板会把数字字段以字符串提交。
func Decode(raw map[string]any, dst any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           dst,
	})
	if err != nil {
		return err
	}
	return dec.Decode(raw)
}

type SkippedItem struct {
	Section string `json:"section"`
	Index   int    `json:"index"`
	Key     string `json:"key,omitempty"`
	Error   string `json:"error"`
}

type SnapshotItem struct {
	ID          int64     `json:"id,string"`
	LevelName   string    `json:"level_name"`
	LevelID     int       `json:"level_id,omitempty"`
	Fingerprint string    `json:"fingerprint"`
	Objects     int       `json:"objects"`
	Note        string    `json:"note,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

type IndexItem struct {
	Position    int       `json:"position"`
	Name        string    `json:"name"`
	LevelID     int       `json:"level_id,omitempty"`
	Creator     string    `json:"creator,omitempty"`
	Objects     int       `json:"objects"`
	Version     int       `json:"version"`
	Fingerprint string    `json:"fingerprint"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func FromSkipped(in []store.Skipped) []SkippedItem {
	out := make([]SkippedItem, 0, len(in))
	for _, s := range in {
		item := SkippedItem{Section: s.Section, Index: s.Index, Key: s.Key}
		if s.Err != nil {
			item.Error = s.Err.Error()
		}
		out = append(out, item)
	}
	return out
}

func FromSnapshot(s archive.Snapshot) SnapshotItem {
	return SnapshotItem{
		ID:          s.ID,
		LevelName:   s.LevelName,
		LevelID:     s.LevelID,
		Fingerprint: FormatFingerprint(s.Fingerprint),
		Objects:     s.Objects,
		Note:        s.Note,
		CreatedAt:   s.CreatedAt,
	}
}

func FromIndex(in []archive.IndexEntry) []IndexItem {
	out := make([]IndexItem, 0, len(in))
	for _, e := range in {
		out = append(out, IndexItem{
			Position:    e.Position,
			Name:        e.Name,
			LevelID:     e.LevelID,
			Creator:     e.Creator,
			Objects:     e.Objects,
			Version:     e.Version,
			Fingerprint: FormatFingerprint(e.Fingerprint),
			UpdatedAt:   e.UpdatedAt,
		})
	}
	return out
}

// FormatFingerprint 16 位十六进制，JS 端没有 uint64。
func FormatFingerprint(fp uint64) string {
	return fmt.Sprintf("%016x", fp)
}
