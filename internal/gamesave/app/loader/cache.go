package loader

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"slices"
	"sync"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"LevelVault/internal/gamesave/domain/level"
	"LevelVault/internal/gamesave/domain/object"
	"LevelVault/modules/kit/errx"
	"LevelVault/modules/kit/logx"
)

// DefaultThreshold 常驻对象总数上限。
const DefaultThreshold = 256 * 1024

// Source 提供要加载的关卡列表，SaveStore 满足它。
type Source interface {
	Levels() []*level.Level
}

// Cache 是按对象总数限流的关卡正文懒加载缓存。
//
// 约束：
// - 认领在 mu 内完成，解码在锁外；每个待加载下标只会被一个 worker 认领一次
// - 认领游标递减，下溢时回绕到末尾；首次认领的是调用方指定的焦点关卡
// - 每加载完一个关卡执行一次驱逐：新关卡不参与本轮候选，其余常驻关卡总数超过阈值时按 FIFO 驱逐最早的非钉住关卡
// - 取消只停止继续认领，已经开始的解码会跑完
type Cache struct {
	src     Source
	log     logx.Logger
	workers int
	metrics *Metrics
	events  hub

	// runMu 串行化批量加载。
	runMu sync.Mutex

	mu      sync.Mutex
	batch   []*level.Level
	pending []int
	cursor  int

	resMu     sync.Mutex
	fifo      []*level.Level
	threshold int
}

type Option func(*Cache)

func WithLogger(l logx.Logger) Option {
	return func(c *Cache) { c.log = logx.OrNop(l) }
}

// WithWorkers n<=0 时使用 max(1, NumCPU-2)。
func WithWorkers(n int) Option {
	return func(c *Cache) {
		if n > 0 {
			c.workers = n
		}
	}
}

func WithThreshold(n int) Option {
	return func(c *Cache) {
		if n > 0 {
			c.threshold = n
		}
	}
}

func WithMetrics(m *Metrics) Option {
	return func(c *Cache) {
		if m != nil {
			c.metrics = m
		}
	}
}

func New(src Source, opts ...Option) *Cache {
	c := &Cache{
		src:       src,
		log:       logx.Nop(),
		workers:   max(1, runtime.NumCPU()-2),
		threshold: DefaultThreshold,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.metrics == nil {
		c.metrics = NewMetrics(nil)
	}
	return c
}

func (c *Cache) Workers() int { return c.workers }

func (c *Cache) Threshold() int {
	c.resMu.Lock()
	defer c.resMu.Unlock()
	return c.threshold
}

// SetThreshold 调整阈值并立即按新阈值收缩一次。
func (c *Cache) SetThreshold(n int) {
	if n <= 0 {
		n = DefaultThreshold
	}
	c.resMu.Lock()
	c.threshold = n
	evicted := c.shrinkLocked(nil)
	c.resMu.Unlock()
	c.announce(evicted)
	c.log.Info("loader threshold changed", zap.Int("threshold", n))
}

// Subscribe 订阅加载进度。
func (c *Cache) Subscribe(buf int) (<-chan Event, func()) {
	return c.events.subscribe(buf)
}

// Reset 丢弃待加载列表与常驻跟踪，存档整体重新读入后调用。
// 旧关卡的正文不主动驱逐，随旧存档一起被回收。
func (c *Cache) Reset() {
	c.mu.Lock()
	c.batch = nil
	c.pending = nil
	c.cursor = 0
	c.mu.Unlock()

	c.resMu.Lock()
	c.fifo = nil
	c.updateGauges()
	c.resMu.Unlock()
}

// Pending 当前批次还没被认领的关卡数。
func (c *Cache) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// Resident 按进入顺序返回缓存跟踪的常驻关卡。
func (c *Cache) Resident() []*level.Level {
	c.resMu.Lock()
	defer c.resMu.Unlock()
	return slices.Clone(c.fifo)
}

func (c *Cache) ResidentObjects() int {
	c.resMu.Lock()
	defer c.resMu.Unlock()
	return sumObjects(c.fifo)
}

// LoadAll 加载所有未常驻的关卡，focus 是最先解码的关卡下标。
// 单个关卡解码失败不会中断批次，所有失败合并后返回；ctx 取消时返回取消错误。
func (c *Cache) LoadAll(ctx context.Context, focus int) error {
	c.runMu.Lock()
	defer c.runMu.Unlock()

	levels := c.src.Levels()
	pending := make([]int, 0, len(levels))
	for i, l := range levels {
		if l.State() != level.StateResident {
			pending = append(pending, i)
		}
	}
	c.mu.Lock()
	c.batch = levels
	c.pending = pending
	c.cursor = initialCursor(pending, focus)
	c.mu.Unlock()

	c.log.Debug("loader batch start", zap.Int("pending", len(pending)), zap.Int("focus", focus), zap.Int("workers", c.workers))

	var (
		failMu   sync.Mutex
		failures error
	)
	g, gctx := errgroup.WithContext(ctx)
	for range c.workers {
		g.Go(func() error {
			for {
				if err := gctx.Err(); err != nil {
					return err
				}
				l, ok := c.claim()
				if !ok {
					return nil
				}
				if err := c.load(gctx, l); err != nil {
					failMu.Lock()
					failures = multierr.Append(failures, err)
					failMu.Unlock()
				}
			}
		})
	}
	if err := g.Wait(); err != nil {
		return errx.ErrCanceled.WithData("pending", c.Pending()).WithCause(err)
	}
	return failures
}

// initialCursor 使第一次递减正好落在 focus 上；focus 不在待加载列表时从末尾开始。
func initialCursor(pending []int, focus int) int {
	if i := slices.Index(pending, focus); i >= 0 {
		return i + 1
	}
	return len(pending)
}

func (c *Cache) claim() (*level.Level, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.pending) == 0 {
		return nil, false
	}
	c.cursor--
	if c.cursor < 0 || c.cursor >= len(c.pending) {
		c.cursor = len(c.pending) - 1
	}
	idx := c.pending[c.cursor]
	c.pending = slices.Delete(c.pending, c.cursor, c.cursor+1)
	return c.batch[idx], true
}

// unclaim 把 l 从当前批次的待加载列表里摘掉，保持游标指向原来的下一个。
func (c *Cache) unclaim(l *level.Level) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for p, idx := range c.pending {
		if c.batch[idx] != l {
			continue
		}
		c.pending = slices.Delete(c.pending, p, p+1)
		if p < c.cursor {
			c.cursor--
		}
		return
	}
}

// EnsureLoaded 立即加载单个关卡（例如用户打开了它），并参与驱逐。
func (c *Cache) EnsureLoaded(ctx context.Context, l *level.Level) error {
	c.unclaim(l)
	return c.load(ctx, l)
}

func (c *Cache) load(ctx context.Context, l *level.Level) error {
	start := time.Now()
	err := l.RequestPayloadLoad()
	if err == nil {
		// 别的调用方可能正在加载同一个关卡
		err = l.WaitPayload(ctx)
	}
	c.metrics.DecodeSeconds.Observe(time.Since(start).Seconds())
	if err != nil {
		if errors.Is(err, errx.ErrCanceled) {
			return err
		}
		c.metrics.Failures.Inc()
		c.log.Warn("level payload decode failed", zap.String("name", l.Name()), zap.Error(err))
		c.events.publish(Event{Kind: EventFailed, Name: l.Name(), Pending: c.Pending(), Error: err.Error()})
		return ErrLoadFailed.WithData("name", l.Name()).WithCause(err)
	}
	c.metrics.Loads.Inc()

	c.resMu.Lock()
	evicted := c.admitLocked(l)
	resident := sumObjects(c.fifo)
	c.resMu.Unlock()

	c.announce(evicted)
	n := l.ObjectCount()
	diag := l.Diagnostics()
	if derr := diag.Err(); derr != nil {
		c.metrics.SkippedProperties.Add(float64(len(diag.UnknownKeys) + len(diag.BadValues)))
		logx.ReportBizWithLoggerContext(ctx, c.log,
			logx.NewBizLog("level_decode", string(object.CodeUnknownProperty), l.Name()),
			zap.Int("unknown_keys", len(diag.UnknownKeys)), zap.Int("bad_values", len(diag.BadValues)),
			zap.Strings("sample_keys", sampleKeys(diag, 8)))
	}
	c.log.Debug("level payload loaded", zap.String("name", l.Name()), zap.Int("objects", n), zap.Int("resident_objects", resident))
	c.events.publish(Event{
		Kind: EventLoaded, Name: l.Name(), Objects: n, ResidentObjects: resident, Pending: c.Pending(),
		UnknownKeys: len(diag.UnknownKeys), BadValues: len(diag.BadValues),
	})
	return nil
}

// sampleKeys 取前 n 个被跳过的键（去重，类型:键），用于日志。
func sampleKeys(d object.Diagnostics, n int) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0, n)
	add := func(s string) {
		if _, ok := seen[s]; ok || len(out) >= n {
			return
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	for _, u := range d.UnknownKeys {
		add(fmt.Sprintf("%d:%s", u.TypeID, u.Key))
	}
	for _, b := range d.BadValues {
		add(fmt.Sprintf("%d:%d", b.TypeID, b.Key))
	}
	return out
}

type evictedLevel struct {
	l       *level.Level
	objects int
}

// admitLocked 先按阈值驱逐其余关卡，再把 l 放到 FIFO 末尾。
func (c *Cache) admitLocked(l *level.Level) []evictedLevel {
	if slices.Contains(c.fifo, l) {
		return nil
	}
	evicted := c.shrinkLocked(l)
	c.fifo = append(c.fifo, l)
	c.updateGauges()
	return evicted
}

// shrinkLocked 在 keep 之外的常驻关卡总数超过阈值时按 FIFO 驱逐。
// keep 为 nil 时取最近进入的关卡。
func (c *Cache) shrinkLocked(keep *level.Level) []evictedLevel {
	c.fifo = slices.DeleteFunc(c.fifo, func(x *level.Level) bool {
		return x.State() != level.StateResident
	})
	if keep == nil && len(c.fifo) > 0 {
		// 阈值调整时最近进入的关卡视为“新加载的那个”
		keep = c.fifo[len(c.fifo)-1]
	}
	var evicted []evictedLevel
	others := 0
	for _, x := range c.fifo {
		if x != keep {
			others += x.ObjectCount()
		}
	}
	for i := 0; others > c.threshold && i < len(c.fifo); {
		victim := c.fifo[i]
		if victim == keep || victim.IsPinned() {
			i++
			continue
		}
		n := victim.ObjectCount()
		if err := victim.EvictPayload(); err != nil {
			c.log.Warn("level evict failed", zap.String("name", victim.Name()), zap.Error(err))
			i++
			continue
		}
		c.fifo = slices.Delete(c.fifo, i, i+1)
		others -= n
		evicted = append(evicted, evictedLevel{l: victim, objects: n})
	}
	c.updateGauges()
	return evicted
}

func (c *Cache) announce(evicted []evictedLevel) {
	for _, e := range evicted {
		c.metrics.Evictions.Inc()
		c.log.Debug("level payload evicted", zap.String("name", e.l.Name()), zap.Int("objects", e.objects))
		c.events.publish(Event{Kind: EventEvicted, Name: e.l.Name(), Objects: e.objects, ResidentObjects: c.ResidentObjects(), Pending: c.Pending()})
	}
}

func (c *Cache) updateGauges() {
	c.metrics.ResidentLevels.Set(float64(len(c.fifo)))
	c.metrics.ResidentObjects.Set(float64(sumObjects(c.fifo)))
}

func sumObjects(ls []*level.Level) int {
	n := 0
	for _, l := range ls {
		n += l.ObjectCount()
	}
	return n
}
