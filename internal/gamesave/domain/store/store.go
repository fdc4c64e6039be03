package store

import (
	"slices"
	"strconv"
	"strings"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"LevelVault/internal/gamesave/domain/level"
	"LevelVault/internal/gamesave/domain/object"
	"LevelVault/internal/gamesave/domain/wire"
	"LevelVault/modules/kit/logx"
)

// 根字典里由存档直接管理的键，其余键原样保留。
const (
	keyLevels        = "LLM_01"
	keyBinaryVersion = "LLM_02"
	keyCustomObjects = "customObjectDict"
	keyLocalFolders  = "GLM_19"
	keyOnlineFolders = "GLM_18"
	keySongs         = "MDLM_001"
	keyIsArr         = "_isArr"
)

// Span 是一段 [Start, End) 字节区间。
type Span struct {
	Start int
	End   int
}

// Skipped 记录解码时因损坏而跳过的条目。
type Skipped struct {
	Section string // LLM_01 / customObjectDict
	Index   int
	Key     string
	Raw     string
	Err     error
}

// SaveStore 是一个存档文件：有序关卡列表与附属数据。
//
// 约束：
// - raw 保存最近一次解码或编码的原文，offsets[i] 是第 i 个关卡信封在 raw 中的区间
// - 增删/复制/移动关卡、修改附属数据、任一关卡回写后，偏移表失效，下次读取前整体重编码
// - 关卡正文的加载与驱逐由关卡自身加锁，这里只保护列表结构
type SaveStore struct {
	codec  *object.Codec
	cipher level.Cipher
	log    logx.Logger

	mu            sync.RWMutex
	root          *wire.Dict
	levels        []*level.Level
	custom        []CustomObject
	localFolders  FolderNames
	onlineFolders FolderNames
	songs         []Song
	binaryVersion int

	raw     string
	offsets []Span
	gens    []uint64
	stale   bool
	skipped []Skipped
}

type Option func(*SaveStore)

func WithLogger(l logx.Logger) Option {
	return func(s *SaveStore) { s.log = logx.OrNop(l) }
}

// WithPayloadCipher 指定关卡 k4 正文的加解密方式，默认明文。
func WithPayloadCipher(c level.Cipher) Option {
	return func(s *SaveStore) {
		if c != nil {
			s.cipher = c
		}
	}
}

// New 创建一个空存档。
func New(codec *object.Codec, opts ...Option) *SaveStore {
	s := &SaveStore{
		codec:         codec,
		cipher:        level.PlainCipher{},
		log:           logx.Nop(),
		root:          wire.NewDict(),
		localFolders:  make(FolderNames),
		onlineFolders: make(FolderNames),
		stale:         true,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.root.Set(keyLevels, wire.Value{Kind: wire.KindDict})
	return s
}

// Load 先用 fc 还原文件明文再解码。
func Load(codec *object.Codec, data []byte, fc FileCipher, opts ...Option) (*SaveStore, error) {
	if fc == nil {
		fc = PlainFile{}
	}
	text, err := fc.DecodeFile(data)
	if err != nil {
		return nil, ErrFileCipher.WithData("op", "decode").WithCause(err)
	}
	return FromWireText(codec, text, opts...)
}

// FromWireText 解码存档明文。单个关卡信封损坏只会被跳过并记录，
// 通过 Skipped/SkippedErr 查看；整体结构损坏才返回错误。
func FromWireText(codec *object.Codec, text string, opts ...Option) (*SaveStore, error) {
	s := New(codec, opts...)
	s.root = wire.NewDict()
	body, base, err := wire.PlistBody(text)
	if err != nil {
		return nil, err
	}
	err = wire.ScanEntries(body, func(e wire.RawEntry) error {
		if e.Key == keyLevels {
			if e.Kind != wire.KindDict {
				return wire.ErrMalformedWire.WithData("reason", "LLM_01 is not a dict").WithData("offset", base+e.ValueStart)
			}
			s.root.Set(keyLevels, wire.Value{Kind: wire.KindDict})
			return s.decodeLevels(body[e.InnerStart:e.InnerEnd], base+e.InnerStart)
		}
		v, err := wire.ValueOf(body, e, base)
		if err != nil {
			return err
		}
		s.adopt(e.Key, v)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !s.root.Has(keyLevels) {
		s.root.Set(keyLevels, wire.Value{Kind: wire.KindDict})
	}
	s.raw = text
	s.gens = make([]uint64, len(s.levels))
	s.stale = false
	if len(s.skipped) > 0 {
		s.log.Warn("save decoded with skipped entries", zap.Int("levels", len(s.levels)), zap.Int("skipped", len(s.skipped)))
	}
	return s, nil
}

func (s *SaveStore) decodeLevels(body string, base int) error {
	idx := 0
	return wire.ScanEntries(body, func(e wire.RawEntry) error {
		if e.Key == keyIsArr {
			return nil
		}
		i := idx
		idx++
		raw := body[e.ValueStart:e.ValueEnd]
		if e.Kind != wire.KindDict {
			s.skip(keyLevels, i, e.Key, raw, wire.ErrMalformedWire.WithData("reason", "level is not a dict"))
			return nil
		}
		v, err := wire.ValueOf(body, e, base)
		if err != nil {
			s.skip(keyLevels, i, e.Key, raw, err)
			return nil
		}
		s.levels = append(s.levels, level.New(s.codec, level.EnvelopeFromDict(v.Dict), level.WithCipher(s.cipher)))
		s.offsets = append(s.offsets, Span{Start: base + e.ValueStart, End: base + e.ValueEnd})
		return nil
	})
}

func (s *SaveStore) skip(section string, index int, key, raw string, err error) {
	s.skipped = append(s.skipped, Skipped{Section: section, Index: index, Key: key, Raw: raw, Err: err})
	s.log.Warn("skip malformed save entry",
		zap.String("section", section), zap.Int("index", index), zap.String("key", key), zap.Error(err))
}

// adopt 接管根字典里的一个条目；已知键只在 root 中留占位以保持顺序。
func (s *SaveStore) adopt(key string, v wire.Value) {
	switch key {
	case keyBinaryVersion:
		s.binaryVersion = v.Int()
		s.root.Set(key, wire.Value{Kind: wire.KindInt})
	case keyLocalFolders:
		s.localFolders = foldersFromDict(v.Dict)
		s.root.Set(key, wire.Value{Kind: wire.KindDict})
	case keyOnlineFolders:
		s.onlineFolders = foldersFromDict(v.Dict)
		s.root.Set(key, wire.Value{Kind: wire.KindDict})
	case keySongs:
		if v.Dict != nil {
			for _, e := range v.Dict.Entries() {
				if e.Value.Kind == wire.KindDict && e.Value.Dict != nil {
					s.songs = append(s.songs, songFromDict(e.Value.Dict))
				}
			}
		}
		s.root.Set(key, wire.Value{Kind: wire.KindDict})
	case keyCustomObjects:
		if v.Dict != nil {
			for i, e := range v.Dict.Entries() {
				c, err := s.decodeCustom(e.Key, e.Value.Text)
				if err != nil {
					s.skip(keyCustomObjects, i, e.Key, e.Value.Text, err)
					continue
				}
				s.custom = append(s.custom, c)
			}
		}
		s.root.Set(key, wire.Value{Kind: wire.KindDict})
	default:
		s.root.Set(key, v)
	}
}

// ensureSection 让之前不存在的已知键在编码时出现在末尾。
func (s *SaveStore) ensureSection(key string, kind wire.Kind) {
	if !s.root.Has(key) {
		s.root.Set(key, wire.Value{Kind: kind})
	}
}

// ToWireText 返回当前存档明文，必要时先重编码。
func (s *SaveStore) ToWireText() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.refreshLocked(); err != nil {
		return "", err
	}
	return s.raw, nil
}

// Save 编码并用 fc 变换成文件内容。
func (s *SaveStore) Save(fc FileCipher) ([]byte, error) {
	if fc == nil {
		fc = PlainFile{}
	}
	text, err := s.ToWireText()
	if err != nil {
		return nil, err
	}
	data, err := fc.EncodeFile(text)
	if err != nil {
		return nil, ErrFileCipher.WithData("op", "encode").WithCause(err)
	}
	return data, nil
}

// Offsets 返回每个关卡信封在原文中的区间；过期时先重编码。
func (s *SaveStore) Offsets() ([]Span, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.refreshLocked(); err != nil {
		return nil, err
	}
	return slices.Clone(s.offsets), nil
}

// EnvelopeText 返回第 i 个关卡信封的原文（含外层 <d>）。
func (s *SaveStore) EnvelopeText(i int) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i < 0 || i >= len(s.levels) {
		return "", ErrIndexRange.WithData("index", i)
	}
	if err := s.refreshLocked(); err != nil {
		return "", err
	}
	sp := s.offsets[i]
	return s.raw[sp.Start:sp.End], nil
}

// OffsetsStale 报告偏移表是否需要重建。
func (s *SaveStore) OffsetsStale() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.staleLocked()
}

func (s *SaveStore) staleLocked() bool {
	if s.stale || len(s.gens) != len(s.levels) || len(s.offsets) != len(s.levels) {
		return true
	}
	for i, l := range s.levels {
		if l.Generation() != s.gens[i] || l.IsDirty() {
			return true
		}
	}
	return false
}

func (s *SaveStore) refreshLocked() error {
	if !s.staleLocked() {
		return nil
	}
	return s.encodeLocked()
}

func (s *SaveStore) encodeLocked() error {
	var b strings.Builder
	offsets := make([]Span, 0, len(s.levels))
	gens := make([]uint64, 0, len(s.levels))

	b.WriteString(wire.PlistHead)
	for _, e := range s.root.Entries() {
		switch e.Key {
		case keyLevels:
			b.WriteString("<k>" + keyLevels + "</k><d>")
			wire.AppendEntry(&b, keyIsArr, wire.True())
			for i, l := range s.levels {
				d, err := l.Snapshot()
				if err != nil {
					return err
				}
				b.WriteString("<k>k_" + strconv.Itoa(i) + "</k>")
				start := b.Len()
				wire.AppendValue(&b, wire.DictValue(d))
				offsets = append(offsets, Span{Start: start, End: b.Len()})
				gens = append(gens, l.Generation())
			}
			b.WriteString("</d>")
		case keyBinaryVersion:
			wire.AppendEntry(&b, e.Key, wire.Int(s.binaryVersion))
		case keyLocalFolders:
			wire.AppendEntry(&b, e.Key, wire.DictValue(s.localFolders.dict()))
		case keyOnlineFolders:
			wire.AppendEntry(&b, e.Key, wire.DictValue(s.onlineFolders.dict()))
		case keySongs:
			d := wire.NewDict()
			for _, song := range s.songs {
				d.Set(strconv.Itoa(song.ID), wire.DictValue(song.dict()))
			}
			wire.AppendEntry(&b, e.Key, wire.DictValue(d))
		case keyCustomObjects:
			d := wire.NewDict()
			for _, c := range s.custom {
				d.Set(c.Key, wire.String(s.codec.EncodeList(c.Objects)))
			}
			wire.AppendEntry(&b, e.Key, wire.DictValue(d))
		default:
			wire.AppendEntry(&b, e.Key, e.Value)
		}
	}
	b.WriteString(wire.PlistTail)

	s.raw = b.String()
	s.offsets = offsets
	s.gens = gens
	s.stale = false
	s.log.Debug("save re-encoded", zap.Int("levels", len(s.levels)), zap.Int("bytes", len(s.raw)))
	return nil
}

func (s *SaveStore) Codec() *object.Codec { return s.codec }

// PayloadCipher 是关卡正文使用的加解密方式，新建关卡时沿用。
func (s *SaveStore) PayloadCipher() level.Cipher { return s.cipher }

func (s *SaveStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.levels)
}

func (s *SaveStore) Level(i int) (*level.Level, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i < 0 || i >= len(s.levels) {
		return nil, false
	}
	return s.levels[i], true
}

// Levels 返回列表副本。
func (s *SaveStore) Levels() []*level.Level {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.levels)
}

// IndexOf 找不到返回 -1。
func (s *SaveStore) IndexOf(l *level.Level) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Index(s.levels, l)
}

// Insert 把 l 放到下标 i（0 <= i <= Len）。
func (s *SaveStore) Insert(i int, l *level.Level) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i < 0 || i > len(s.levels) {
		return ErrIndexRange.WithData("index", i)
	}
	if slices.Contains(s.levels, l) {
		return ErrLevelExists.WithData("name", l.Name())
	}
	s.levels = slices.Insert(s.levels, i, l)
	s.stale = true
	return nil
}

func (s *SaveStore) Delete(i int) (*level.Level, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i < 0 || i >= len(s.levels) {
		return nil, ErrIndexRange.WithData("index", i)
	}
	l := s.levels[i]
	s.levels = slices.Delete(s.levels, i, i+1)
	s.stale = true
	return l, nil
}

// Clone 复制第 i 个关卡，副本放在原关卡之前（下标 i），原关卡后移一位。
func (s *SaveStore) Clone(i int) (*level.Level, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i < 0 || i >= len(s.levels) {
		return nil, ErrIndexRange.WithData("index", i)
	}
	c := s.levels[i].Clone()
	s.levels = slices.Insert(s.levels, i, c)
	s.stale = true
	return c, nil
}

// Move 把 from 处的关卡移到 to，其余关卡相对顺序不变。
func (s *SaveStore) Move(from, to int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.levels)
	if from < 0 || from >= n || to < 0 || to >= n {
		return ErrIndexRange.WithData("from", from).WithData("to", to)
	}
	if from == to {
		return nil
	}
	l := s.levels[from]
	s.levels = slices.Delete(s.levels, from, from+1)
	s.levels = slices.Insert(s.levels, to, l)
	s.stale = true
	return nil
}

// Skipped 解码时跳过的条目。
func (s *SaveStore) Skipped() []Skipped {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.skipped)
}

// SkippedErr 把所有跳过的条目合并成一个错误，没有时返回 nil。
func (s *SaveStore) SkippedErr() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var err error
	for _, sk := range s.skipped {
		err = multierr.Append(err, ErrLevelSkipped.
			WithData("section", sk.Section).
			WithData("index", sk.Index).
			WithData("key", sk.Key).
			WithCause(sk.Err))
	}
	return err
}

func (s *SaveStore) BinaryVersion() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.binaryVersion
}

func (s *SaveStore) SetBinaryVersion(v int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.binaryVersion = v
	s.ensureSection(keyBinaryVersion, wire.KindInt)
	s.stale = true
}

func (s *SaveStore) LocalFolders() FolderNames {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneFolders(s.localFolders)
}

func (s *SaveStore) OnlineFolders() FolderNames {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneFolders(s.onlineFolders)
}

// SetLocalFolder 名字为空时删除该文件夹。
func (s *SaveStore) SetLocalFolder(id int, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	setFolder(s.localFolders, id, name)
	s.ensureSection(keyLocalFolders, wire.KindDict)
	s.stale = true
}

func (s *SaveStore) SetOnlineFolder(id int, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	setFolder(s.onlineFolders, id, name)
	s.ensureSection(keyOnlineFolders, wire.KindDict)
	s.stale = true
}

func setFolder(f FolderNames, id int, name string) {
	if name == "" {
		delete(f, id)
		return
	}
	f[id] = name
}

func cloneFolders(f FolderNames) FolderNames {
	out := make(FolderNames, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

func (s *SaveStore) Songs() []Song {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.songs)
}

func (s *SaveStore) Song(id int) (Song, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := slices.IndexFunc(s.songs, func(x Song) bool { return x.ID == id })
	if i < 0 {
		return Song{}, false
	}
	return s.songs[i], true
}

// PutSong 按 ID 覆盖，不存在时追加。
func (s *SaveStore) PutSong(song Song) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := slices.IndexFunc(s.songs, func(x Song) bool { return x.ID == song.ID }); i >= 0 {
		s.songs[i] = song
	} else {
		s.songs = append(s.songs, song)
	}
	s.ensureSection(keySongs, wire.KindDict)
	s.stale = true
}

func (s *SaveStore) CustomObjects() []CustomObject {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.custom)
}

// AddCustomObject 保存一组对象片段，返回分配的键。
func (s *SaveStore) AddCustomObject(col *object.Collection) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := nextCustomKey(s.custom)
	s.custom = append(s.custom, CustomObject{Key: key, Objects: col})
	s.ensureSection(keyCustomObjects, wire.KindDict)
	s.stale = true
	return key
}

func (s *SaveStore) DeleteCustomObject(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := slices.IndexFunc(s.custom, func(c CustomObject) bool { return c.Key == key })
	if i < 0 {
		return false
	}
	s.custom = slices.Delete(s.custom, i, i+1)
	s.stale = true
	return true
}
