package level

// Cipher 是 k4 正文的加密变换。领域层只处理明文，具体算法由外部注入。
type Cipher interface {
	Decrypt(stored string) (string, error)
	Encrypt(plain string) (string, error)
}

// PlainCipher 原样透传，用于测试和已解密的导出文件。
type PlainCipher struct{}

func (PlainCipher) Decrypt(s string) (string, error) { return s, nil }

func (PlainCipher) Encrypt(s string) (string, error) { return s, nil }
