package loader

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"LevelVault/internal/gamesave/domain/level"
	"LevelVault/internal/gamesave/domain/object"
	"LevelVault/modules/kit/errx"
)

type fakeSource []*level.Level

func (f fakeSource) Levels() []*level.Level { return f }

var testCodec = object.NewCodec(object.NewRegistry())

func levelWith(name string, objects int, opts ...level.Option) *level.Level {
	env := level.NewEnvelope()
	env.SetName(name)
	env.SetPayloadRaw(level.NewHeader().Encode() + ";" + strings.Repeat("1,1;", objects))
	return level.New(testCodec, env, opts...)
}

func loadedOrder(ch <-chan Event) []string {
	var out []string
	for {
		select {
		case e := <-ch:
			if e.Kind == EventLoaded {
				out = append(out, e.Name)
			}
		default:
			return out
		}
	}
}

func TestLoadAll_阈值驱逐保留最后两个(t *testing.T) {
	src := fakeSource{levelWith("L0", 100), levelWith("L1", 100), levelWith("L2", 100)}
	c := New(src, WithWorkers(1), WithThreshold(150))
	events, cancel := c.Subscribe(16)
	defer cancel()

	if err := c.LoadAll(context.Background(), 2); err != nil {
		t.Fatalf("加载失败: %v", err)
	}
	if got := strings.Join(loadedOrder(events), ","); got != "L2,L1,L0" {
		t.Fatalf("认领顺序应从焦点递减, 实际 %s", got)
	}
	if src[2].State() != level.StateEvicted {
		t.Fatalf("最早加载的 L2 应被驱逐, state=%s", src[2].State())
	}
	if src[0].State() != level.StateResident || src[1].State() != level.StateResident {
		t.Fatalf("最后加载的两个应常驻")
	}
	if c.ResidentObjects() != 200 {
		t.Fatalf("常驻对象数不对: %d", c.ResidentObjects())
	}
}

func TestLoadAll_单个超限关卡不被驱逐(t *testing.T) {
	src := fakeSource{levelWith("huge", 1000)}
	c := New(src, WithWorkers(2), WithThreshold(150))
	if err := c.LoadAll(context.Background(), 0); err != nil {
		t.Fatalf("加载失败: %v", err)
	}
	if src[0].State() != level.StateResident {
		t.Fatalf("唯一的关卡即使超限也应常驻")
	}
}

func TestLoadAll_钉住关卡不参与驱逐(t *testing.T) {
	src := fakeSource{levelWith("L0", 100), levelWith("L1", 100), levelWith("L2", 100)}
	src[2].Pin()
	c := New(src, WithWorkers(1), WithThreshold(150))
	if err := c.LoadAll(context.Background(), 2); err != nil {
		t.Fatalf("加载失败: %v", err)
	}
	if src[2].State() != level.StateResident {
		t.Fatalf("钉住的关卡不应被驱逐")
	}
	if src[1].State() != level.StateEvicted {
		t.Fatalf("应改为驱逐下一个非钉住关卡, state=%s", src[1].State())
	}
}

func TestClaim_并发认领恰好一次(t *testing.T) {
	const m = 500
	levels := make([]*level.Level, m)
	pending := make([]int, m)
	for i := range levels {
		levels[i] = level.NewEmpty(testCodec, "x")
		pending[i] = i
	}
	c := New(fakeSource(levels))
	c.batch, c.pending, c.cursor = levels, pending, initialCursor(pending, 137)

	var (
		mu   sync.Mutex
		seen = make(map[*level.Level]int)
		wg   sync.WaitGroup
	)
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				l, ok := c.claim()
				if !ok {
					return
				}
				mu.Lock()
				seen[l]++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if len(seen) != m {
		t.Fatalf("期望 %d 个不同的认领, 实际 %d", m, len(seen))
	}
	for _, n := range seen {
		if n != 1 {
			t.Fatalf("同一关卡被认领了 %d 次", n)
		}
	}
}

func TestClaim_焦点优先与回绕(t *testing.T) {
	levels := []*level.Level{levelWith("a", 1), levelWith("b", 1), levelWith("c", 1), levelWith("d", 1)}
	c := New(fakeSource(levels))
	c.batch, c.pending = levels, []int{0, 1, 2, 3}
	c.cursor = initialCursor(c.pending, 1)

	var names []string
	for {
		l, ok := c.claim()
		if !ok {
			break
		}
		names = append(names, l.Name())
	}
	if got := strings.Join(names, ","); got != "b,a,d,c" {
		t.Fatalf("认领顺序不对: %s", got)
	}
}

func TestLoadAll_取消后停止认领(t *testing.T) {
	src := fakeSource{levelWith("L0", 1), levelWith("L1", 1)}
	c := New(src, WithWorkers(2))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := c.LoadAll(ctx, 0); !errors.Is(err, errx.ErrCanceled) {
		t.Fatalf("期望 ErrCanceled, err=%v", err)
	}
	for _, l := range src {
		if l.State() != level.StateEnvelopeOnly {
			t.Fatalf("取消后不应再加载, state=%s", l.State())
		}
	}
}

// gateCipher 第一次解密时通知 entered，并等待 release。
type gateCipher struct {
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (g *gateCipher) Decrypt(s string) (string, error) {
	g.once.Do(func() {
		close(g.entered)
		<-g.release
	})
	return s, nil
}

func (g *gateCipher) Encrypt(s string) (string, error) { return s, nil }

func TestLoadAll_进行中的解码在取消后完成(t *testing.T) {
	gate := &gateCipher{entered: make(chan struct{}), release: make(chan struct{})}
	src := fakeSource{levelWith("L0", 1), levelWith("L1", 1, level.WithCipher(gate)), levelWith("L2", 1)}
	c := New(src, WithWorkers(1))
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- c.LoadAll(ctx, 1) }()
	<-gate.entered
	cancel()
	close(gate.release)

	if err := <-done; !errors.Is(err, errx.ErrCanceled) {
		t.Fatalf("期望 ErrCanceled, err=%v", err)
	}
	if src[1].State() != level.StateResident {
		t.Fatalf("进行中的解码应跑完, state=%s", src[1].State())
	}
	if c.Pending() != 2 {
		t.Fatalf("剩余关卡应保持待加载, pending=%d", c.Pending())
	}
}

func TestLoadAll_损坏关卡不影响其余(t *testing.T) {
	bad := level.NewEnvelope()
	bad.SetName("bad")
	bad.SetPayloadRaw("kA13,x;")
	src := fakeSource{levelWith("ok", 3), level.New(testCodec, bad)}
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	c := New(src, WithWorkers(2), WithMetrics(m))

	err := c.LoadAll(context.Background(), 0)
	if !errors.Is(err, ErrLoadFailed) {
		t.Fatalf("应返回损坏关卡的错误, err=%v", err)
	}
	if src[0].State() != level.StateResident {
		t.Fatalf("正常关卡应加载")
	}
	if testutil.ToFloat64(m.Loads) != 1 || testutil.ToFloat64(m.Failures) != 1 {
		t.Fatalf("指标不对: loads=%v failures=%v", testutil.ToFloat64(m.Loads), testutil.ToFloat64(m.Failures))
	}
	if testutil.ToFloat64(m.ResidentObjects) != 3 {
		t.Fatalf("常驻对象指标不对")
	}
}

func TestSetThreshold_调低后收缩(t *testing.T) {
	src := fakeSource{levelWith("L0", 100), levelWith("L1", 100), levelWith("L2", 100)}
	c := New(src, WithWorkers(1), WithThreshold(1000))
	if err := c.LoadAll(context.Background(), 2); err != nil {
		t.Fatalf("加载失败: %v", err)
	}
	if len(c.Resident()) != 3 {
		t.Fatalf("阈值足够时应全部常驻")
	}
	c.SetThreshold(150)
	res := c.Resident()
	if len(res) != 2 || res[1] != src[0] {
		t.Fatalf("收缩后应保留最近的两个")
	}
	if src[2].State() != level.StateEvicted {
		t.Fatalf("最早的关卡应被驱逐")
	}
}

func TestEnsureLoaded_单独加载并参与驱逐(t *testing.T) {
	src := fakeSource{levelWith("L0", 100), levelWith("L1", 100)}
	c := New(src, WithThreshold(50))
	for _, l := range src {
		if err := c.EnsureLoaded(context.Background(), l); err != nil {
			t.Fatalf("加载失败: %v", err)
		}
	}
	if src[0].State() != level.StateEvicted || src[1].State() != level.StateResident {
		t.Fatalf("第二次加载应驱逐第一个")
	}
	if c.Workers() < 1 {
		t.Fatalf("worker 数至少为 1")
	}
}

func TestReset_清空常驻跟踪(t *testing.T) {
	src := fakeSource{levelWith("L0", 10), levelWith("L1", 10)}
	c := New(src, WithWorkers(2))
	if err := c.LoadAll(context.Background(), 0); err != nil {
		t.Fatalf("加载失败: %v", err)
	}
	if c.ResidentObjects() != 20 {
		t.Fatalf("常驻对象数应为 20, got %d", c.ResidentObjects())
	}
	c.Reset()
	if len(c.Resident()) != 0 || c.ResidentObjects() != 0 || c.Pending() != 0 {
		t.Fatalf("Reset 后应无常驻关卡")
	}
}
