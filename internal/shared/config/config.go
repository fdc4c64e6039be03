package config

import (
	"os"
	"path/filepath"
)

// Load 按约定定位配置文件并解码到 out，然后开启热更新：
// 1) cfgName 为绝对路径时直接使用；
// 2) 相对路径先按当前目录拼接，存在即用；
// 3) 否则从当前目录开始向上查找 cfgName（默认 configs/conf.yml）。
// onChange 在文件变更并重新解码成功后回调，可为 nil。
func Load(cfgName string, out any, onChange ...func()) error {
	if cfgName == "" {
		cfgName = DefaultConfigRelPath
	}
	path, err := Resolve(cfgName)
	if err != nil {
		return err
	}
	return load(path, out, onChange...)
}

// Resolve 返回最终使用的配置文件绝对路径。
func Resolve(cfgName string) (string, error) {
	if filepath.IsAbs(cfgName) {
		if !fileExist(cfgName) {
			return "", errConfigNotFound(cfgName)
		}
		return cfgName, nil
	}
	curDir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	if direct := filepath.Join(curDir, cfgName); fileExist(direct) {
		return direct, nil
	}
	return findConfigUpward(curDir, cfgName)
}

func findConfigUpward(startDir, rel string) (string, error) {
	dir := startDir
	for {
		candidate := filepath.Join(dir, rel)
		if fileExist(candidate) {
			return candidate, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", errConfigNotFound(rel + " (searched upward from " + startDir + ")")
		}
		dir = parent
	}
}
