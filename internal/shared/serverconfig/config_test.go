package serverconfig

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConf(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "conf.yml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("写配置失败: %v", err)
	}
	return path
}

func TestLoad_缺省值回填(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	path := writeConf(t, `
save:
  path: /tmp/CCLocalLevels.dat
  watch_debounce: 250ms
security:
  jwt_secret: from-file
`)
	if err := Load(path); err != nil {
		t.Fatalf("加载配置失败: %v", err)
	}
	c := Snapshot()
	if c.Cache.ObjectCountThreshold != DefaultObjectCountThreshold {
		t.Fatalf("阈值应回填默认值, got %d", c.Cache.ObjectCountThreshold)
	}
	if c.Save.Cipher != "xor" || c.HTTPServer.Port != 8088 {
		t.Fatalf("加密方式或端口默认值不符: %+v", c)
	}
	if c.Save.WatchDebounce != 250*time.Millisecond {
		t.Fatalf("时长应按字符串解析, got %v", c.Save.WatchDebounce)
	}
	if os.Getenv("JWT_SECRET") != "from-file" {
		t.Fatalf("未设置环境变量时应回填配置里的 jwt_secret")
	}
}

func TestLoad_文件不存在(t *testing.T) {
	if err := Load(filepath.Join(t.TempDir(), "missing.yml")); err == nil {
		t.Fatalf("不存在的配置文件应返回错误")
	}
}

func TestLoad_仓库自带配置可解析(t *testing.T) {
	if err := Load(""); err != nil {
		t.Fatalf("默认配置加载失败: %v", err)
	}
	c := Snapshot()
	if c.Save.Path == "" || c.GRPCServer.Port == 0 {
		t.Fatalf("默认配置内容不符: %+v", c)
	}
}
