package crypt

import (
	"encoding/base64"
	"strings"

	"github.com/go-think/openssl"

	"LevelVault/internal/gamesave/domain/store"
	"LevelVault/modules/kit/errx"
)

const CodeUnknownCipher errx.Code = "SAVE_UNKNOWN_CIPHER"

var ErrUnknownCipher = errx.NewBiz(CodeUnknownCipher, "未知的存档加密方式")

// DefaultXORKey Windows 存档逐字节异或的键。
const DefaultXORKey byte = 11

// DefaultAESKey Apple 平台存档的 AES-256 密钥。
const DefaultAESKey = "ipu9TUv54yv]isFMh5@;t.5w34E2Ry@{"

// XORFile Windows 存档：xor(key) -> base64(URL) -> gzip。
type XORFile struct {
	Key byte
}

func (c XORFile) DecodeFile(data []byte) (string, error) {
	buf := make([]byte, len(data))
	for i, b := range data {
		buf[i] = b ^ c.Key
	}
	raw, err := decodeBase64(string(buf))
	if err != nil {
		return "", err
	}
	plain, err := gunzip(raw)
	if err != nil {
		return "", err
	}
	return string(plain), nil
}

func (c XORFile) EncodeFile(text string) ([]byte, error) {
	z, err := gzipBytes([]byte(text))
	if err != nil {
		return nil, err
	}
	out := []byte(base64.URLEncoding.EncodeToString(z))
	for i := range out {
		out[i] ^= c.Key
	}
	return out, nil
}

// AESFile Apple 平台存档：AES-256-ECB + PKCS7。
type AESFile struct {
	Key []byte
}

func (c AESFile) DecodeFile(data []byte) (string, error) {
	plain, err := openssl.AesECBDecrypt(data, c.Key, openssl.PKCS7_PADDING)
	if err != nil {
		return "", err
	}
	return string(plain), nil
}

func (c AESFile) EncodeFile(text string) ([]byte, error) {
	return openssl.AesECBEncrypt([]byte(text), c.Key, openssl.PKCS7_PADDING)
}

// NewFileCipher 按配置名选择整文件变换：plain / xor / aes。
func NewFileCipher(name, aesKey string) (store.FileCipher, error) {
	switch strings.ToLower(name) {
	case "", "xor":
		return XORFile{Key: DefaultXORKey}, nil
	case "plain":
		return store.PlainFile{}, nil
	case "aes":
		if aesKey == "" {
			aesKey = DefaultAESKey
		}
		return AESFile{Key: []byte(aesKey)}, nil
	default:
		return nil, ErrUnknownCipher.WithData("cipher", name)
	}
}
