package level

import (
	"encoding/base64"
	"strconv"

	"LevelVault/internal/gamesave/domain/wire"
)

// 信封键。未列出的键原样保留。
const (
	KeyLevelID          = "k1"
	KeyName             = "k2"
	KeyDescription      = "k3"
	KeyPayload          = "k4"
	KeyCreator          = "k5"
	KeyOfficialSong     = "k8"
	KeyVerified         = "k14"
	KeyVersion          = "k16"
	KeyAttempts         = "k18"
	KeyLevelType        = "k21"
	KeyLength           = "k23"
	KeyCustomSong       = "k45"
	KeyRevision         = "k46"
	KeyObjectCount      = "k48"
	KeyBinaryVersion    = "k50"
	KeyEditorTime       = "k80"
	KeyEditorTimeCopies = "k84"
	KeyCameraX          = "kI1"
	KeyCameraY          = "kI2"
	KeyCameraZoom       = "kI3"
	KeyEntityKind       = "kCEK"
)

// entityKindLevel 是 kCEK 对关卡记录的取值。
const entityKindLevel = 4

// LevelType: k21 的取值。
const (
	LevelTypeOfficial = 1
	LevelTypeEditor   = 2
	LevelTypeSaved    = 3
	LevelTypeOnline   = 4
)

// Envelope 是常驻内存的关卡元数据，直接包一层有序字典。
// 写入默认值等同于删除该键。
type Envelope struct {
	d *wire.Dict
}

func NewEnvelope() *Envelope {
	e := &Envelope{d: wire.NewDict()}
	e.d.Set(KeyEntityKind, wire.Int(entityKindLevel))
	return e
}

// EnvelopeFromDict 接管 d，调用方之后不应再修改它。
func EnvelopeFromDict(d *wire.Dict) *Envelope {
	if d == nil {
		d = wire.NewDict()
	}
	return &Envelope{d: d}
}

// Dict 返回底层字典的副本。
func (e *Envelope) Dict() *wire.Dict { return e.d.Clone() }

func (e *Envelope) Clone() *Envelope { return &Envelope{d: e.d.Clone()} }

func (e *Envelope) String() string { return e.d.String() }

func (e *Envelope) setInt(key string, n, def int) {
	if n == def {
		e.d.Delete(key)
		return
	}
	e.d.Set(key, wire.Int(n))
}

func (e *Envelope) setString(key, s string) {
	if s == "" {
		e.d.Delete(key)
		return
	}
	e.d.Set(key, wire.String(s))
}

func (e *Envelope) LevelID() int      { return e.d.Int(KeyLevelID) }
func (e *Envelope) SetLevelID(id int) { e.setInt(KeyLevelID, id, 0) }

func (e *Envelope) Name() string        { return e.d.Str(KeyName) }
func (e *Envelope) SetName(n string)    { e.setString(KeyName, n) }
func (e *Envelope) Creator() string     { return e.d.Str(KeyCreator) }
func (e *Envelope) SetCreator(s string) { e.setString(KeyCreator, s) }

// Description 存储为 base64，读取时解码；无法解码时原样返回。
func (e *Envelope) Description() string {
	raw := e.d.Str(KeyDescription)
	if raw == "" {
		return ""
	}
	if b, err := base64.URLEncoding.DecodeString(raw); err == nil {
		return string(b)
	}
	if b, err := base64.StdEncoding.DecodeString(raw); err == nil {
		return string(b)
	}
	return raw
}

func (e *Envelope) SetDescription(s string) {
	if s == "" {
		e.d.Delete(KeyDescription)
		return
	}
	e.d.Set(KeyDescription, wire.String(base64.URLEncoding.EncodeToString([]byte(s))))
}

// PayloadRaw 是 k4 的原始（加密态）文本。
func (e *Envelope) PayloadRaw() string     { return e.d.Str(KeyPayload) }
func (e *Envelope) SetPayloadRaw(s string) { e.setString(KeyPayload, s) }

func (e *Envelope) OfficialSong() int      { return e.d.Int(KeyOfficialSong) }
func (e *Envelope) SetOfficialSong(n int)  { e.setInt(KeyOfficialSong, n, 0) }
func (e *Envelope) CustomSong() int        { return e.d.Int(KeyCustomSong) }
func (e *Envelope) SetCustomSong(n int)    { e.setInt(KeyCustomSong, n, 0) }
func (e *Envelope) Verified() bool         { return e.d.Bool(KeyVerified) }
func (e *Envelope) SetVerified(b bool)     { e.d.SetBool(KeyVerified, b) }
func (e *Envelope) Version() int           { return e.d.Int(KeyVersion) }
func (e *Envelope) SetVersion(n int)       { e.setInt(KeyVersion, n, 0) }
func (e *Envelope) Attempts() int          { return e.d.Int(KeyAttempts) }
func (e *Envelope) SetAttempts(n int)      { e.setInt(KeyAttempts, n, 0) }
func (e *Envelope) LevelType() int         { return e.d.Int(KeyLevelType) }
func (e *Envelope) SetLevelType(n int)     { e.setInt(KeyLevelType, n, 0) }
func (e *Envelope) Length() int            { return e.d.Int(KeyLength) }
func (e *Envelope) SetLength(n int)        { e.setInt(KeyLength, n, 0) }
func (e *Envelope) Revision() int          { return e.d.Int(KeyRevision) }
func (e *Envelope) SetRevision(n int)      { e.setInt(KeyRevision, n, 0) }
func (e *Envelope) BinaryVersion() int     { return e.d.Int(KeyBinaryVersion) }
func (e *Envelope) SetBinaryVersion(n int) { e.setInt(KeyBinaryVersion, n, 0) }
func (e *Envelope) EditorTime() int        { return e.d.Int(KeyEditorTime) }
func (e *Envelope) SetEditorTime(n int)    { e.setInt(KeyEditorTime, n, 0) }
func (e *Envelope) EditorTimeCopies() int  { return e.d.Int(KeyEditorTimeCopies) }
func (e *Envelope) SetEditorTimeCopies(n int) {
	e.setInt(KeyEditorTimeCopies, n, 0)
}

// ObjectCount 是 k48 记录的对象数，正文未加载时用来估算体量。
func (e *Envelope) ObjectCount() int     { return e.d.Int(KeyObjectCount) }
func (e *Envelope) SetObjectCount(n int) { e.setInt(KeyObjectCount, n, 0) }

// Camera 编辑器视角：位置与缩放，缩放默认 1。
func (e *Envelope) Camera() (x, y, zoom float64) {
	zoom = 1
	if v, ok := e.d.Get(KeyCameraZoom); ok {
		zoom = v.Float()
	}
	return e.d.Float(KeyCameraX), e.d.Float(KeyCameraY), zoom
}

func (e *Envelope) SetCamera(x, y, zoom float64) {
	e.setReal(KeyCameraX, x, 0)
	e.setReal(KeyCameraY, y, 0)
	e.setReal(KeyCameraZoom, zoom, 1)
}

func (e *Envelope) setReal(key string, f, def float64) {
	if f == def {
		e.d.Delete(key)
		return
	}
	e.d.Set(key, wire.Value{Kind: wire.KindReal, Text: strconv.FormatFloat(f, 'f', -1, 64)})
}

// Get/Set 直接访问任意键，保留未登记的键。
func (e *Envelope) Get(key string) (wire.Value, bool) { return e.d.Get(key) }

func (e *Envelope) Set(key string, v wire.Value) { e.d.Set(key, v) }

func (e *Envelope) Keys() []string { return e.d.Keys() }
