package actors

import (
	"context"
	"errors"
	"testing"
	"time"

	"LevelVault/internal/gamesave/app"
	"LevelVault/internal/gamesave/app/migrate"
	"LevelVault/internal/gamesave/domain/level"
	"LevelVault/internal/gamesave/domain/object"
	"LevelVault/internal/gamesave/domain/store"
)

type memFile struct{ data []byte }

func (f *memFile) Read(context.Context) ([]byte, error) { return f.data, nil }

func (f *memFile) Write(_ context.Context, data []byte) error {
	f.data = data
	return nil
}

func newService(t *testing.T) *app.SaveService {
	t.Helper()
	reg := object.NewRegistry()
	codec := object.NewCodec(reg)
	st := store.New(codec)
	l := level.NewEmpty(codec, "A")
	p, _ := l.Payload()
	for range 2 {
		o := reg.New(1)
		o.Groups = object.IDList{7}
		p.Objects.Add(o)
	}
	_ = st.Insert(0, l)
	data, err := st.Save(store.PlainFile{})
	if err != nil {
		t.Fatalf("生成存档失败: %v", err)
	}
	svc := app.NewSaveService(app.Deps{Codec: codec, File: &memFile{data: data}})
	if err = svc.Open(context.Background()); err != nil {
		t.Fatalf("打开存档失败: %v", err)
	}
	return svc
}

func TestRuntime_会话钉住关卡并串行编辑(t *testing.T) {
	svc := newService(t)
	rt := NewRuntime(svc, nil, time.Second)
	defer rt.Shutdown()
	ctx := context.Background()

	id, err := rt.Open(ctx, 0)
	if err != nil || id == "" {
		t.Fatalf("打开会话失败: id=%q err=%v", id, err)
	}
	l, _ := svc.Level(0)
	if !l.IsPinned() {
		t.Fatalf("会话存活期间关卡应被钉住")
	}

	if err = rt.Migrate(ctx, id, object.KindGroup, []migrate.Range{{SourceStart: 7, SourceEnd: 7, TargetStart: 3}}); err != nil {
		t.Fatalf("迁移失败: %v", err)
	}
	usage, err := rt.Usage(ctx, id, object.KindGroup)
	if err != nil || len(usage) != 1 || usage[0].ID != 3 || usage[0].Count != 2 {
		t.Fatalf("迁移后用量不符: %+v %v", usage, err)
	}
	if err = rt.Compact(ctx, id, object.KindGroup, nil); err != nil {
		t.Fatalf("压缩失败: %v", err)
	}
	if err = rt.Migrate(ctx, id, object.IDKind(9), nil); !errors.Is(err, app.ErrReqParam) {
		t.Fatalf("未知类别应返回参数错误, got %v", err)
	}

	info, err := rt.Close(ctx, id)
	if err != nil || info.Edits != 2 || info.Name != "A" {
		t.Fatalf("关闭会话返回不符: %+v %v", info, err)
	}
	deadline := time.Now().Add(2 * time.Second)
	for l.IsPinned() && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if l.IsPinned() {
		t.Fatalf("关闭会话后应解除钉住")
	}
	if !l.IsDirty() {
		t.Fatalf("编辑后关卡应为已修改")
	}
}

func TestRuntime_会话不存在(t *testing.T) {
	svc := newService(t)
	rt := NewRuntime(svc, nil, time.Second)
	defer rt.Shutdown()

	if _, err := rt.Info(context.Background(), "missing"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("期望 ErrSessionNotFound, got %v", err)
	}
	if _, err := rt.Open(context.Background(), 3); !errors.Is(err, app.ErrLevelNotFound) {
		t.Fatalf("期望 ErrLevelNotFound, got %v", err)
	}
}

func TestRuntime_空闲会话自动关闭(t *testing.T) {
	svc := newService(t)
	rt := NewRuntime(svc, nil, time.Second, WithIdleTimeout(50*time.Millisecond))
	defer rt.Shutdown()
	ctx := context.Background()

	id, err := rt.Open(ctx, 0)
	if err != nil {
		t.Fatalf("打开会话失败: %v", err)
	}
	l, _ := svc.Level(0)
	deadline := time.Now().Add(2 * time.Second)
	for l.IsPinned() && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if l.IsPinned() {
		t.Fatalf("空闲超时后应解除钉住")
	}
	time.Sleep(50 * time.Millisecond)
	if _, err = rt.Info(ctx, id); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("超时关闭后会话应被移除, got %v", err)
	}
}
