// Package watch 监听存档文件变化，合并短时间内的连续写入后回调。
package watch

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"LevelVault/modules/kit/logx"
)

// DefaultDebounce 游戏保存时会连续写几次，窗口内只回调一次。
const DefaultDebounce = 500 * time.Millisecond

type Watcher struct {
	path     string
	debounce time.Duration
	log      logx.Logger
	w        *fsnotify.Watcher
}

// New 监听 path 所在目录。游戏和本服务都用 rename 覆盖存档，直接监听文件会丢失 inode。
func New(path string, debounce time.Duration, l logx.Logger) (*Watcher, error) {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	path = filepath.Clean(path)
	if err = fw.Add(filepath.Dir(path)); err != nil {
		_ = fw.Close()
		return nil, err
	}
	return &Watcher{path: path, debounce: debounce, log: logx.OrNop(l), w: fw}, nil
}

// Run 阻塞到 ctx 结束。onChange 在同一个 goroutine 里串行调用。
func (w *Watcher) Run(ctx context.Context, onChange func(ctx context.Context)) error {
	defer w.w.Close()

	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	armed := false
	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case ev, ok := <-w.w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if armed && !timer.Stop() {
				<-timer.C
			}
			timer.Reset(w.debounce)
			armed = true
		case err, ok := <-w.w.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("save watcher error", zap.String("path", w.path), zap.Error(err))
		case <-timer.C:
			armed = false
			w.log.Debug("save file changed", zap.String("path", w.path))
			onChange(ctx)
		}
	}
}
