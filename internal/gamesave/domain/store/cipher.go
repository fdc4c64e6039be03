package store

// FileCipher 是整个存档文件的编码变换（平台相关的异或/压缩/AES）。
type FileCipher interface {
	DecodeFile(data []byte) (string, error)
	EncodeFile(text string) ([]byte, error)
}

// PlainFile 文件本身就是明文 plist。
type PlainFile struct{}

func (PlainFile) DecodeFile(data []byte) (string, error) { return string(data), nil }

func (PlainFile) EncodeFile(text string) ([]byte, error) { return []byte(text), nil }
