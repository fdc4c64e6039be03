package app

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"go.uber.org/zap"

	"LevelVault/internal/gamesave/app/loader"
	"LevelVault/internal/gamesave/app/migrate"
	"LevelVault/internal/gamesave/domain/archive"
	"LevelVault/internal/gamesave/domain/level"
	"LevelVault/internal/gamesave/domain/object"
	"LevelVault/internal/gamesave/domain/store"
	"LevelVault/modules/kit/logx"
)

// Deps 是 SaveService 的依赖。Snapshots/Index 为 nil 时对应功能返回 ErrUnavailable。
type Deps struct {
	Codec         *object.Codec
	File          SaveFile
	FileCipher    store.FileCipher
	PayloadCipher level.Cipher
	Snapshots     SnapshotRepo
	Index         IndexRepo
	IDs           IDGenerator
	Log           logx.Logger
	CacheOptions  []loader.Option
	Now           func() time.Time
}

// LevelSummary 是列表页展示的关卡概要，不触发正文加载。
type LevelSummary struct {
	Index   int    `json:"index"`
	Name    string `json:"name"`
	LevelID int    `json:"level_id,omitempty"`
	Creator string `json:"creator,omitempty"`
	Type    int    `json:"type"`
	State   string `json:"state"`
	Objects int    `json:"objects"`
	Pinned  bool   `json:"pinned"`
	Dirty   bool   `json:"dirty"`
	// UnknownKeys/BadValues 来自最近一次正文解码，未解码过时为 0。
	UnknownKeys int `json:"unknown_keys"`
	BadValues   int `json:"bad_values"`
}

type Stats struct {
	Levels          int `json:"levels"`
	Skipped         int `json:"skipped"`
	Resident        int `json:"resident"`
	ResidentObjects int `json:"resident_objects"`
	Threshold       int `json:"threshold"`
	Pending         int `json:"pending"`
}

// SaveService 编排存档读写、懒加载缓存、id 迁移与快照归档。
type SaveService struct {
	codec         *object.Codec
	file          SaveFile
	fileCipher    store.FileCipher
	payloadCipher level.Cipher
	snapshots     SnapshotRepo
	index         IndexRepo
	ids           IDGenerator
	log           logx.Logger
	now           func() time.Time
	cache         *loader.Cache

	mu sync.RWMutex
	st *store.SaveStore
	// digest 是最近一次读入或写出的文件字节的 xxhash，用来忽略自己写文件引起的变更通知。
	digest uint64
}

func NewSaveService(d Deps) *SaveService {
	s := &SaveService{
		codec:         d.Codec,
		file:          d.File,
		fileCipher:    d.FileCipher,
		payloadCipher: d.PayloadCipher,
		snapshots:     d.Snapshots,
		index:         d.Index,
		ids:           d.IDs,
		log:           logx.OrNop(d.Log),
		now:           d.Now,
	}
	if s.codec == nil {
		s.codec = object.NewCodec(object.NewRegistry())
	}
	if s.fileCipher == nil {
		s.fileCipher = store.PlainFile{}
	}
	if s.payloadCipher == nil {
		s.payloadCipher = level.PlainCipher{}
	}
	if s.now == nil {
		s.now = time.Now
	}
	opts := append([]loader.Option{loader.WithLogger(s.log)}, d.CacheOptions...)
	s.cache = loader.New(s, opts...)
	return s
}

// Levels 供缓存枚举当前存档的关卡。
func (s *SaveService) Levels() []*level.Level {
	st := s.current()
	if st == nil {
		return nil
	}
	return st.Levels()
}

func (s *SaveService) current() *store.SaveStore {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st
}

func (s *SaveService) opened() (*store.SaveStore, error) {
	st := s.current()
	if st == nil {
		return nil, ErrSaveNotOpen
	}
	return st, nil
}

func (s *SaveService) level(i int) (*store.SaveStore, *level.Level, error) {
	st, err := s.opened()
	if err != nil {
		return nil, nil, err
	}
	l, ok := st.Level(i)
	if !ok {
		return nil, nil, ErrLevelNotFound.WithReason(ReasonIndexOutOfRange).WithData("index", i)
	}
	return st, l, nil
}

// Open 读入存档文件，替换当前内容。
func (s *SaveService) Open(ctx context.Context) error {
	if s.file == nil {
		return ErrUnavailable.WithReason(ReasonSaveFileReadFail)
	}
	data, err := s.file.Read(ctx)
	if err != nil {
		return ErrUnavailable.WithReason(ReasonSaveFileReadFail).WithCause(err)
	}
	return s.replace(ctx, data)
}

// Reload 在文件内容变化时重新读入；内容与上次读写一致时返回 false。
// 有未保存的修改时拒绝，避免覆盖编辑中的关卡。
func (s *SaveService) Reload(ctx context.Context) (bool, error) {
	if s.file == nil {
		return false, ErrUnavailable.WithReason(ReasonSaveFileReadFail)
	}
	data, err := s.file.Read(ctx)
	if err != nil {
		return false, ErrUnavailable.WithReason(ReasonSaveFileReadFail).WithCause(err)
	}
	s.mu.RLock()
	same := s.st != nil && s.digest == xxhash.Sum64(data)
	st := s.st
	s.mu.RUnlock()
	if same {
		return false, nil
	}
	if st != nil {
		for i, l := range st.Levels() {
			if l.IsDirty() {
				return false, ErrUnsavedChanges.WithReason(ReasonDirtyOnReload).WithData("index", i).WithData("name", l.Name())
			}
		}
	}
	if err = s.replace(ctx, data); err != nil {
		return false, err
	}
	return true, nil
}

func (s *SaveService) replace(ctx context.Context, data []byte) error {
	st, err := store.Load(s.codec, data, s.fileCipher,
		store.WithLogger(s.log),
		store.WithPayloadCipher(s.payloadCipher),
	)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.st = st
	s.digest = xxhash.Sum64(data)
	s.mu.Unlock()
	s.cache.Reset()

	if skipped := st.SkippedErr(); skipped != nil {
		logx.ReportBizWithLoggerContext(ctx, s.log,
			logx.NewBizLog("save.open", ReasonLevelsSkipped.Code, ReasonLevelsSkipped.Message),
			zap.Int("skipped", len(st.Skipped())),
			zap.Error(skipped),
		)
	}
	s.log.WithContext(ctx).Info("save opened", zap.Int("levels", st.Len()), zap.Int("bytes", len(data)))
	return nil
}

// Save 写回存档文件，随后刷新关卡索引。
func (s *SaveService) Save(ctx context.Context) error {
	st, err := s.opened()
	if err != nil {
		return err
	}
	data, err := st.Save(s.fileCipher)
	if err != nil {
		return ErrInternalServer.WithReason(ReasonEncodeFail).WithCause(err)
	}
	if s.file == nil {
		return ErrUnavailable.WithReason(ReasonSaveFileWriteFail)
	}
	if err = s.file.Write(ctx, data); err != nil {
		return ErrUnavailable.WithReason(ReasonSaveFileWriteFail).WithCause(err)
	}
	s.mu.Lock()
	s.digest = xxhash.Sum64(data)
	s.mu.Unlock()
	s.log.WithContext(ctx).Info("save written", zap.Int("levels", st.Len()), zap.Int("bytes", len(data)))

	if s.index == nil {
		return nil
	}
	entries, err := s.indexEntries(st)
	if err != nil {
		return ErrInternalServer.WithReason(ReasonEncodeFail).WithCause(err)
	}
	if err = s.index.Replace(ctx, entries); err != nil {
		return ErrUnavailable.WithReason(ReasonIndexRepoUnavailable).WithCause(err)
	}
	return nil
}

func (s *SaveService) indexEntries(st *store.SaveStore) ([]archive.IndexEntry, error) {
	levels := st.Levels()
	out := make([]archive.IndexEntry, 0, len(levels))
	now := s.now()
	for i, l := range levels {
		text, err := st.EnvelopeText(i)
		if err != nil {
			return nil, err
		}
		env := l.Envelope()
		out = append(out, archive.IndexEntry{
			Position:    i,
			Name:        env.Name(),
			LevelID:     env.LevelID(),
			Creator:     env.Creator(),
			Objects:     l.ObjectCount(),
			Version:     env.Version(),
			Fingerprint: archive.Fingerprint(text),
			UpdatedAt:   now,
		})
	}
	return out, nil
}

// Index 读取上次保存时写入的关卡索引。
func (s *SaveService) Index(ctx context.Context) ([]archive.IndexEntry, error) {
	if s.index == nil {
		return nil, ErrUnavailable.WithReason(ReasonIndexRepoUnavailable)
	}
	entries, err := s.index.List(ctx)
	if err != nil {
		return nil, ErrUnavailable.WithReason(ReasonIndexRepoUnavailable).WithCause(err)
	}
	return entries, nil
}

func (s *SaveService) List() ([]LevelSummary, error) {
	st, err := s.opened()
	if err != nil {
		return nil, err
	}
	levels := st.Levels()
	out := make([]LevelSummary, 0, len(levels))
	for i, l := range levels {
		out = append(out, summarize(i, l))
	}
	return out, nil
}

func summarize(i int, l *level.Level) LevelSummary {
	env := l.Envelope()
	diag := l.Diagnostics()
	return LevelSummary{
		Index:   i,
		Name:    env.Name(),
		LevelID: env.LevelID(),
		Creator: env.Creator(),
		Type:    env.LevelType(),
		State:   l.State().String(),
		Objects: l.ObjectCount(),
		Pinned:  l.IsPinned(),
		Dirty:   l.IsDirty(),

		UnknownKeys: len(diag.UnknownKeys),
		BadValues:   len(diag.BadValues),
	}
}

func (s *SaveService) Summary(i int) (LevelSummary, error) {
	_, l, err := s.level(i)
	if err != nil {
		return LevelSummary{}, err
	}
	return summarize(i, l), nil
}

// Level 返回第 i 个关卡，供会话 actor 持有。
func (s *SaveService) Level(i int) (*level.Level, error) {
	_, l, err := s.level(i)
	return l, err
}

func (s *SaveService) Stats() Stats {
	st := s.current()
	out := Stats{
		Resident:        len(s.cache.Resident()),
		ResidentObjects: s.cache.ResidentObjects(),
		Threshold:       s.cache.Threshold(),
		Pending:         s.cache.Pending(),
	}
	if st != nil {
		out.Levels = st.Len()
		out.Skipped = len(st.Skipped())
	}
	return out
}

func (s *SaveService) Skipped() []store.Skipped {
	st := s.current()
	if st == nil {
		return nil
	}
	return st.Skipped()
}

// Load 立即加载第 i 个关卡的正文。
func (s *SaveService) Load(ctx context.Context, i int) error {
	_, l, err := s.level(i)
	if err != nil {
		return err
	}
	return s.cache.EnsureLoaded(ctx, l)
}

// LoadAll 后台批量加载，focus 最先解码。
func (s *SaveService) LoadAll(ctx context.Context, focus int) error {
	if _, err := s.opened(); err != nil {
		return err
	}
	return s.cache.LoadAll(ctx, focus)
}

func (s *SaveService) Pin(i int) error {
	_, l, err := s.level(i)
	if err != nil {
		return err
	}
	l.Pin()
	return nil
}

func (s *SaveService) Unpin(i int) error {
	_, l, err := s.level(i)
	if err != nil {
		return err
	}
	l.Unpin()
	return nil
}

// Edit 钉住并加载第 i 个关卡后在正文上执行 fn，成功后标记为已修改。
func (s *SaveService) Edit(ctx context.Context, i int, fn func(p *level.Payload) error) error {
	_, l, err := s.level(i)
	if err != nil {
		return err
	}
	return s.EditLevel(ctx, l, fn)
}

// EditLevel 与 Edit 相同，直接指定关卡。会话持有关卡指针，下标可能因插入删除而变化。
// 同一关卡上的编辑、查看与导出由关卡的编辑锁串行化，迁移的中间状态对其他调用方不可见。
func (s *SaveService) EditLevel(ctx context.Context, l *level.Level, fn func(p *level.Payload) error) error {
	return s.withPayload(ctx, l, true, fn)
}

// View 与 Edit 相同但不标记修改。
func (s *SaveService) View(ctx context.Context, i int, fn func(p *level.Payload) error) error {
	_, l, err := s.level(i)
	if err != nil {
		return err
	}
	return s.withPayload(ctx, l, false, fn)
}

func (s *SaveService) ViewLevel(ctx context.Context, l *level.Level, fn func(p *level.Payload) error) error {
	return s.withPayload(ctx, l, false, fn)
}

// withPayload 钉住期间加载不会被驱逐打断；正文访问本身在关卡编辑锁内进行。
func (s *SaveService) withPayload(ctx context.Context, l *level.Level, edit bool, fn func(p *level.Payload) error) error {
	l.Pin()
	defer l.Unpin()
	if err := s.cache.EnsureLoaded(ctx, l); err != nil {
		return err
	}
	if edit {
		return l.Edit(fn)
	}
	return l.View(fn)
}

func checkKind(kind object.IDKind) error {
	if !kind.Valid() {
		return ErrReqParam.WithReason(ReasonUnknownIDKind).WithData("kind", kind.String())
	}
	return nil
}

// Migrate 在第 i 个关卡上按顺序应用区间迁移，全部合法才会改动。
func (s *SaveService) Migrate(ctx context.Context, i int, kind object.IDKind, ranges []migrate.Range) error {
	if err := checkKind(kind); err != nil {
		return err
	}
	return s.Edit(ctx, i, func(p *level.Payload) error {
		return migrate.ApplyRanges(p.Objects, p.Channels(), ranges, kind)
	})
}

func (s *SaveService) Compact(ctx context.Context, i int, kind object.IDKind, ignored []migrate.Span) error {
	if err := checkKind(kind); err != nil {
		return err
	}
	return s.Edit(ctx, i, func(p *level.Payload) error {
		return migrate.CompactReallocate(p.Objects, p.Channels(), kind, ignored)
	})
}

func (s *SaveService) Usage(ctx context.Context, i int, kind object.IDKind) ([]migrate.IDUsage, error) {
	if err := checkKind(kind); err != nil {
		return nil, err
	}
	var out []migrate.IDUsage
	err := s.View(ctx, i, func(p *level.Payload) error {
		out = migrate.Usage(p.Objects, p.Channels(), kind)
		return nil
	})
	return out, err
}

// Export 导出第 i 个关卡的 .gmd 文本。
func (s *SaveService) Export(i int) (string, error) {
	_, l, err := s.level(i)
	if err != nil {
		return "", err
	}
	return l.ToWireText()
}

// Import 把 .gmd 文本插入到下标 at，at 越界时追加到末尾。返回实际下标。
func (s *SaveService) Import(ctx context.Context, text string, at int) (int, error) {
	st, err := s.opened()
	if err != nil {
		return -1, err
	}
	l, err := level.FromWireText(s.codec, text, level.WithCipher(s.payloadCipher))
	if err != nil {
		return -1, ErrReqParam.WithCause(err)
	}
	if at < 0 || at > st.Len() {
		at = st.Len()
	}
	if err = st.Insert(at, l); err != nil {
		return -1, err
	}
	s.log.WithContext(ctx).Info("level imported", zap.String("name", l.Name()), zap.Int("index", at))
	return at, nil
}

// Delete 删除第 i 个关卡；会话仍钉住它时拒绝。
func (s *SaveService) Delete(i int) error {
	st, l, err := s.level(i)
	if err != nil {
		return err
	}
	if l.IsPinned() {
		return level.ErrPinned.WithData("name", l.Name())
	}
	if _, err = st.Delete(i); err != nil {
		return ErrLevelNotFound.WithReason(ReasonIndexOutOfRange).WithCause(err)
	}
	return nil
}

func (s *SaveService) Clone(i int) error {
	st, err := s.opened()
	if err != nil {
		return err
	}
	if _, err = st.Clone(i); err != nil {
		return ErrLevelNotFound.WithReason(ReasonIndexOutOfRange).WithCause(err)
	}
	return nil
}

func (s *SaveService) Move(from, to int) error {
	st, err := s.opened()
	if err != nil {
		return err
	}
	if err = st.Move(from, to); err != nil {
		return ErrLevelNotFound.WithReason(ReasonIndexOutOfRange).WithCause(err)
	}
	return nil
}

// Archive 为第 i 个关卡归档一份快照。内容与已有快照相同时返回已有的那份，created=false。
func (s *SaveService) Archive(ctx context.Context, i int, note string) (snap archive.Snapshot, created bool, err error) {
	if s.snapshots == nil || s.ids == nil {
		return snap, false, ErrUnavailable.WithReason(ReasonSnapshotRepoUnavail)
	}
	_, l, err := s.level(i)
	if err != nil {
		return snap, false, err
	}
	text, err := l.ToWireText()
	if err != nil {
		return snap, false, err
	}
	fp := archive.Fingerprint(text)
	existing, err := s.snapshots.FindByFingerprint(ctx, fp)
	switch {
	case err == nil:
		return existing, false, nil
	case errors.Is(err, archive.ErrSnapshotNotFound):
	default:
		return snap, false, ErrUnavailable.WithReason(ReasonSnapshotRepoUnavail).WithCause(err)
	}

	env := l.Envelope()
	snap = archive.Snapshot{
		ID:          s.ids.NextID(),
		LevelName:   env.Name(),
		LevelID:     env.LevelID(),
		Fingerprint: fp,
		Objects:     l.ObjectCount(),
		Text:        text,
		Note:        note,
		CreatedAt:   s.now(),
	}
	if err = s.snapshots.Put(ctx, snap); err != nil {
		return archive.Snapshot{}, false, ErrUnavailable.WithReason(ReasonSnapshotRepoUnavail).WithCause(err)
	}
	s.log.WithContext(ctx).Info("level archived", zap.Int64("snapshot_id", snap.ID), zap.String("name", snap.LevelName))
	return snap, true, nil
}

func (s *SaveService) Snapshots(ctx context.Context, name string, limit int) ([]archive.Snapshot, error) {
	if s.snapshots == nil {
		return nil, ErrUnavailable.WithReason(ReasonSnapshotRepoUnavail)
	}
	out, err := s.snapshots.ListByLevel(ctx, name, limit)
	if err != nil {
		return nil, ErrUnavailable.WithReason(ReasonSnapshotRepoUnavail).WithCause(err)
	}
	return out, nil
}

// Restore 把快照作为新关卡插入到 at。
func (s *SaveService) Restore(ctx context.Context, id int64, at int) (int, error) {
	if s.snapshots == nil {
		return -1, ErrUnavailable.WithReason(ReasonSnapshotRepoUnavail)
	}
	snap, err := s.snapshots.Get(ctx, id)
	switch {
	case err == nil:
	case errors.Is(err, archive.ErrSnapshotNotFound):
		return -1, ErrSnapshotNotFound.WithData("snapshot_id", id)
	default:
		return -1, ErrUnavailable.WithReason(ReasonSnapshotRepoUnavail).WithCause(err)
	}
	return s.Import(ctx, snap.Text, at)
}

// SetThreshold 调整缓存阈值，配置热更新时调用。
func (s *SaveService) SetThreshold(n int) {
	s.cache.SetThreshold(n)
}

func (s *SaveService) Subscribe(buf int) (<-chan loader.Event, func()) {
	return s.cache.Subscribe(buf)
}
