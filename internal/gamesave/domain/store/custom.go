package store

import (
	"strconv"

	"go.uber.org/zap"

	"LevelVault/internal/gamesave/domain/object"
)

// CustomObject 是 customObjectDict 里保存的一组自定义对象片段。
type CustomObject struct {
	Key     string
	Objects *object.Collection
}

func (s *SaveStore) decodeCustom(key, text string) (CustomObject, error) {
	col, diag, err := s.codec.DecodeList(text)
	if err != nil {
		return CustomObject{}, err
	}
	if !diag.Empty() {
		s.log.Debug("custom object has skipped keys", zap.String("key", key), zap.Int("unknown", len(diag.UnknownKeys)))
	}
	return CustomObject{Key: key, Objects: col}, nil
}

// nextCustomKey 取现有数字键的最大值 +1。
func nextCustomKey(items []CustomObject) string {
	n := 0
	for _, c := range items {
		if k, err := strconv.Atoi(c.Key); err == nil && k >= n {
			n = k + 1
		}
	}
	return strconv.Itoa(n)
}
