package level

import (
	"context"
	"sync"

	"LevelVault/internal/gamesave/domain/object"
	"LevelVault/internal/gamesave/domain/wire"
	"LevelVault/modules/kit/errx"
)

// PayloadState 正文的生命周期。
//
//	EnvelopeOnly -> Loading -> Resident -> Evicted -> Loading -> ...
type PayloadState uint8

const (
	StateEnvelopeOnly PayloadState = iota
	StateLoading
	StateResident
	StateEvicted
)

func (s PayloadState) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateResident:
		return "resident"
	case StateEvicted:
		return "evicted"
	default:
		return "envelope_only"
	}
}

// Level 是一个关卡文档：常驻的信封 + 按需解码的正文。
//
// 约束：
// - 解码在锁外进行，同一时刻最多一个加载在跑
// - 被钉住（pins>0）或正在编辑的关卡不能驱逐
// - 正文改动后驱逐前先回写 k4，避免丢失
// - 正文的读写都经 Edit/View，与编码、回写、驱逐互斥；锁顺序 editMu -> mu
type Level struct {
	codec  *object.Codec
	cipher Cipher

	// editMu 串行化对常驻正文的访问。Collection 本身不是并发安全的，
	// 编码与“只读”的属性键投影也会改动它的内部状态。
	editMu sync.Mutex

	mu       sync.Mutex
	env      *Envelope
	state    PayloadState
	payload  *Payload
	diag     object.Diagnostics
	loadDone chan struct{}
	loadErr  error
	pins     int

	// dirty 记录头部等无版本号结构的改动；对象列表靠 version 比较。
	dirty   bool
	version uint64
	// count 最近一次确定的对象数，驱逐后仍然可用。
	count      int
	countKnown bool
	// generation 每次信封内容变化都递增，供存档判断偏移表是否过期。
	generation uint64
}

type Option func(*Level)

func WithCipher(c Cipher) Option {
	return func(l *Level) {
		if c != nil {
			l.cipher = c
		}
	}
}

// New 用已有信封构造关卡，正文处于 EnvelopeOnly。
func New(codec *object.Codec, env *Envelope, opts ...Option) *Level {
	if env == nil {
		env = NewEnvelope()
	}
	l := &Level{codec: codec, cipher: PlainCipher{}, env: env}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// NewEmpty 构造一个正文已常驻且为空的新关卡。
func NewEmpty(codec *object.Codec, name string, opts ...Option) *Level {
	env := NewEnvelope()
	env.SetName(name)
	env.SetLevelType(LevelTypeEditor)
	l := New(codec, env, opts...)
	l.payload = NewPayload(codec.Registry())
	l.state = StateResident
	l.dirty = true
	l.count, l.countKnown = 0, true
	return l
}

func (l *Level) State() PayloadState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

func (l *Level) Name() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.env.Name()
}

// Envelope 返回信封副本。
func (l *Level) Envelope() *Envelope {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.env.Clone()
}

// UpdateEnvelope 在锁内修改信封。
func (l *Level) UpdateEnvelope(fn func(*Envelope)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fn(l.env)
	l.generation++
}

func (l *Level) Generation() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.generation
}

// RequestPayloadLoad 触发正文解码并在当前 goroutine 内完成。
// 已在加载或已常驻时直接返回 nil；并发的等待方用 WaitPayload 观察结果。
func (l *Level) RequestPayloadLoad() error {
	l.mu.Lock()
	if l.state == StateLoading || l.state == StateResident {
		l.mu.Unlock()
		return nil
	}
	prev := l.state
	done := make(chan struct{})
	l.state = StateLoading
	l.loadDone = done
	l.loadErr = nil
	raw := l.env.PayloadRaw()
	l.mu.Unlock()

	p, diag, err := l.decode(raw)

	l.mu.Lock()
	defer l.mu.Unlock()
	defer close(done)
	if err != nil {
		l.state = prev
		l.loadErr = err
		return err
	}
	l.payload = p
	l.diag = diag
	l.state = StateResident
	l.dirty = false
	l.version = p.Objects.Version()
	l.count, l.countKnown = p.Objects.Len(), true
	return nil
}

func (l *Level) decode(raw string) (*Payload, object.Diagnostics, error) {
	if raw == "" {
		return NewPayload(l.codec.Registry()), object.Diagnostics{}, nil
	}
	plain, err := l.cipher.Decrypt(raw)
	if err != nil {
		return nil, object.Diagnostics{}, ErrCipher.WithData("op", "decrypt").WithCause(err)
	}
	return DecodePayload(l.codec, plain)
}

// WaitPayload 等待正在进行的加载结束。
// 已常驻返回 nil；从未请求过加载返回 ErrPayloadNotLoaded；上次加载失败返回那次的错误。
func (l *Level) WaitPayload(ctx context.Context) error {
	l.mu.Lock()
	state, done, lastErr := l.state, l.loadDone, l.loadErr
	l.mu.Unlock()

	switch state {
	case StateResident:
		return nil
	case StateLoading:
		select {
		case <-done:
		case <-ctx.Done():
			return errx.ErrCanceled.WithCause(ctx.Err())
		}
		l.mu.Lock()
		defer l.mu.Unlock()
		return l.loadErr
	default:
		if lastErr != nil {
			return lastErr
		}
		return ErrPayloadNotLoaded.WithData("state", state.String())
	}
}

// Payload 返回常驻的正文；未常驻时 ok=false。
// 返回的指针不受编辑锁保护，只适合单 goroutine 构造关卡，其余情况用 Edit/View。
func (l *Level) Payload() (*Payload, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state != StateResident {
		return nil, false
	}
	return l.payload, true
}

// Edit 在编辑锁内修改常驻正文，fn 成功返回后关卡标记为已修改。
// 正文未常驻时返回 ErrPayloadNotLoaded。fn 内不能再调用本关卡的 Edit/View/Snapshot/Flush。
func (l *Level) Edit(fn func(p *Payload) error) error {
	return l.access(true, fn)
}

// View 与 Edit 相同但不标记修改。
func (l *Level) View(fn func(p *Payload) error) error {
	return l.access(false, fn)
}

func (l *Level) access(edit bool, fn func(p *Payload) error) error {
	l.editMu.Lock()
	defer l.editMu.Unlock()

	l.mu.Lock()
	p, state := l.payload, l.state
	name := l.env.Name()
	l.mu.Unlock()
	if state != StateResident {
		return ErrPayloadNotLoaded.WithData("name", name).WithData("state", state.String())
	}

	err := fn(p)

	l.mu.Lock()
	defer l.mu.Unlock()
	if edit && err == nil {
		l.dirty = true
	}
	l.count, l.countKnown = p.Objects.Len(), true
	return err
}

// Diagnostics 最近一次解码跳过的内容，驱逐后仍保留。
func (l *Level) Diagnostics() object.Diagnostics {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.diag
}

// ObjectCount 常驻且无人编辑时取实际数量，否则取最近一次已知数量，再退回 k48。
// 不等待编辑锁，缓存在持有自身锁时也可以调用。
func (l *Level) ObjectCount() int {
	live := l.editMu.TryLock()
	if live {
		defer l.editMu.Unlock()
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	switch {
	case live && l.state == StateResident:
		return l.payload.Objects.Len()
	case l.countKnown:
		return l.count
	default:
		return l.env.ObjectCount()
	}
}

// MarkDirty 标记头部等结构已被修改。对象列表的改动会自动识别。
func (l *Level) MarkDirty() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.dirty = true
}

// IsDirty 正在编辑中的关卡视为已修改。
func (l *Level) IsDirty() bool {
	if !l.editMu.TryLock() {
		return true
	}
	defer l.editMu.Unlock()
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.dirtyLocked()
}

func (l *Level) dirtyLocked() bool {
	if l.state != StateResident {
		return false
	}
	return l.dirty || l.payload.Objects.Version() != l.version
}

func (l *Level) writeBackLocked() error {
	text := EncodePayload(l.codec, l.payload)
	enc, err := l.cipher.Encrypt(text)
	if err != nil {
		return ErrCipher.WithData("op", "encrypt").WithCause(err)
	}
	l.env.SetPayloadRaw(enc)
	l.env.SetObjectCount(l.payload.Objects.Len())
	l.dirty = false
	l.version = l.payload.Objects.Version()
	l.count, l.countKnown = l.payload.Objects.Len(), true
	l.generation++
	return nil
}

// Flush 把改动过的正文回写到 k4，不驱逐。
func (l *Level) Flush() error {
	l.editMu.Lock()
	defer l.editMu.Unlock()
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.dirtyLocked() {
		return nil
	}
	return l.writeBackLocked()
}

// EvictPayload 释放正文。钉住或正在被 Edit/View/编码占用时返回 ErrPinned；非常驻时什么也不做。
// 不等待编辑锁。
func (l *Level) EvictPayload() error {
	if !l.editMu.TryLock() {
		return ErrPinned.WithData("name", l.Name()).WithData("busy", true)
	}
	defer l.editMu.Unlock()
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.pins > 0 {
		return ErrPinned.WithData("name", l.env.Name())
	}
	if l.state != StateResident {
		return nil
	}
	if l.dirtyLocked() {
		if err := l.writeBackLocked(); err != nil {
			return err
		}
	}
	l.payload = nil
	l.state = StateEvicted
	return nil
}

func (l *Level) Pin() {
	l.mu.Lock()
	l.pins++
	l.mu.Unlock()
}

// Unpin 与 Pin 成对调用，多余的调用被忽略。
func (l *Level) Unpin() {
	l.mu.Lock()
	if l.pins > 0 {
		l.pins--
	}
	l.mu.Unlock()
}

func (l *Level) IsPinned() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.pins > 0
}

// Snapshot 回写脏正文后返回信封字典的副本。
func (l *Level) Snapshot() (*wire.Dict, error) {
	l.editMu.Lock()
	defer l.editMu.Unlock()
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.dirtyLocked() {
		if err := l.writeBackLocked(); err != nil {
			return nil, err
		}
	}
	return l.env.d.Clone(), nil
}

// Clone 深拷贝信封与常驻正文；钉住状态不复制。
func (l *Level) Clone() *Level {
	l.editMu.Lock()
	defer l.editMu.Unlock()
	l.mu.Lock()
	defer l.mu.Unlock()
	c := &Level{
		codec:      l.codec,
		cipher:     l.cipher,
		env:        l.env.Clone(),
		state:      l.state,
		count:      l.count,
		countKnown: l.countKnown,
	}
	if c.state == StateLoading {
		c.state = StateEnvelopeOnly
	}
	if l.state == StateResident {
		c.payload = l.payload.Clone()
		c.dirty = l.dirtyLocked()
		c.version = c.payload.Objects.Version()
	}
	return c
}

// ToWireText 导出单关卡 plist（.gmd）。
func (l *Level) ToWireText() (string, error) {
	d, err := l.Snapshot()
	if err != nil {
		return "", err
	}
	return wire.EncodePlist(d), nil
}

// FromWireText 读取单关卡 plist，正文保持未加载。
func FromWireText(codec *object.Codec, text string, opts ...Option) (*Level, error) {
	d, err := wire.ParsePlist(text)
	if err != nil {
		return nil, err
	}
	return New(codec, EnvelopeFromDict(d), opts...), nil
}
