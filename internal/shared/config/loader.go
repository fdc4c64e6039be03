package config

import (
	"fmt"
	"os"
	"sync"

	"LevelVault/modules/kit/errx"

	"github.com/fsnotify/fsnotify"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

const DefaultConfigRelPath = "configs/conf.yml"

// CodeConfigNotFound 配置文件不存在。
const CodeConfigNotFound errx.Code = "CONFIG_NOT_FOUND"

var ErrConfigNotFound = errx.NewSys(CodeConfigNotFound, "配置文件不存在")

// mu 保护热更新时对 out 的整体替换；读取方通过 Snapshot 拿到一致的副本。
var mu sync.RWMutex

func errConfigNotFound(path string) error {
	return ErrConfigNotFound.WithData("path", path)
}

func decodeHook() viper.DecoderConfigOption {
	return viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
}

func load(configPath string, out any, onChange ...func()) error {
	if !fileExist(configPath) {
		return errConfigNotFound(configPath)
	}

	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetEnvPrefix("LEVELVAULT")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return errx.ErrUnavailable.WithData("path", configPath).WithCause(err)
	}
	mu.Lock()
	err := v.Unmarshal(out, decodeHook())
	mu.Unlock()
	if err != nil {
		return fmt.Errorf("viper unmarshal config %s: %w", configPath, err)
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		mu.Lock()
		err := v.Unmarshal(out, decodeHook())
		mu.Unlock()
		if err != nil {
			// 解码失败保留旧值，不能因为一次写坏的配置把进程打挂。
			fmt.Fprintf(os.Stderr, "config reload failed, file=%s err=%v\n", e.Name, err)
			return
		}
		for _, fn := range onChange {
			if fn != nil {
				fn()
			}
		}
	})
	v.WatchConfig()
	return nil
}

// Read 在读锁内执行 fn，用于读取可能被热更新改写的配置字段。
func Read(fn func()) {
	mu.RLock()
	defer mu.RUnlock()
	fn()
}

func fileExist(fileName string) bool {
	_, err := os.Stat(fileName)
	return err == nil
}
