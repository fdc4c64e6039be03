package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

func TestWatcher_连续写入只回调一次(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "CCLocalLevels.dat")
	if err := os.WriteFile(path, []byte("v0"), 0o644); err != nil {
		t.Fatalf("准备文件失败: %v", err)
	}
	w, err := New(path, 200*time.Millisecond, nil)
	if err != nil {
		t.Fatalf("创建 watcher 失败: %v", err)
	}

	var calls atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = w.Run(ctx, func(context.Context) { calls.Add(1) })
	}()

	for i := range 3 {
		_ = os.WriteFile(path, []byte{byte('a' + i)}, 0o644)
		time.Sleep(20 * time.Millisecond)
	}
	// 同目录的其它文件不触发
	_ = os.WriteFile(filepath.Join(dir, "other.dat"), []byte("x"), 0o644)

	deadline := time.Now().Add(3 * time.Second)
	for calls.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(20 * time.Millisecond)
	}
	time.Sleep(400 * time.Millisecond)
	cancel()
	<-done

	if got := calls.Load(); got != 1 {
		t.Fatalf("期望回调 1 次, got %d", got)
	}
}
