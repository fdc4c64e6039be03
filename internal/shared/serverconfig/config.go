package serverconfig

import (
	"os"

	"LevelVault/internal/shared/config"
)

const defaultConfigRelPath = "configs/conf.yml"

// DefaultObjectCountThreshold 懒加载缓存默认的常驻对象总数上限（256K）。
const DefaultObjectCountThreshold = 256 * 1024

var Conf Config

// Load 加载全局配置；onChange 在热更新后回调（例如调整缓存阈值）。
func Load(cfgName string, onChange ...func()) error {
	if cfgName == "" {
		cfgName = defaultConfigRelPath
	}
	if err := config.Load(cfgName, &Conf, onChange...); err != nil {
		return err
	}
	applyDefaults(&Conf)
	// 环境变量优先；未设置时回填配置里的 jwt_secret，兼容本地开发。
	if os.Getenv("JWT_SECRET") == "" && Conf.Security.JWTSecret != "" {
		_ = os.Setenv("JWT_SECRET", Conf.Security.JWTSecret)
	}
	return nil
}

// Snapshot 在读锁内复制一份配置。
func Snapshot() Config {
	var c Config
	config.Read(func() { c = Conf })
	applyDefaults(&c)
	return c
}

func applyDefaults(c *Config) {
	if c.Cache.ObjectCountThreshold <= 0 {
		c.Cache.ObjectCountThreshold = DefaultObjectCountThreshold
	}
	if c.Save.Cipher == "" {
		c.Save.Cipher = "xor"
	}
	if c.HTTPServer.Port == 0 {
		c.HTTPServer.Port = 8088
	}
}
