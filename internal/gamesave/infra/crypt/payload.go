package crypt

import (
	"encoding/base64"
	"strings"
)

// gzipMagicB64 是 gzip 头 1f 8b 08 的 base64 前缀。
const gzipMagicB64 = "H4sI"

// PayloadCipher 处理关卡 k4：base64(URL) 包着 gzip。
// 不以 gzip 头开头的内容视为已经是明文，原样返回。
type PayloadCipher struct{}

func (PayloadCipher) Decrypt(stored string) (string, error) {
	if !strings.HasPrefix(stored, gzipMagicB64) {
		return stored, nil
	}
	raw, err := decodeBase64(stored)
	if err != nil {
		return "", err
	}
	plain, err := gunzip(raw)
	if err != nil {
		return "", err
	}
	return string(plain), nil
}

func (PayloadCipher) Encrypt(plain string) (string, error) {
	z, err := gzipBytes([]byte(plain))
	if err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(z), nil
}
