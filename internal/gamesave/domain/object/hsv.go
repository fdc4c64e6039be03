package object

import (
	"fmt"
	"strconv"
	"strings"
)

// HSV 是颜色调整记录，线格式 `h a s a v a sMode a vMode`，例如 10a0.5a1a1a0。
// SatAdditive/ValAdditive 为 true 时 s/v 按加法而非乘法生效。
type HSV struct {
	Hue         int16
	Saturation  float32
	Value       float32
	SatAdditive bool
	ValAdditive bool
}

// DefaultHSV 不做任何调整。
var DefaultHSV = HSV{Saturation: 1, Value: 1}

func (h HSV) IsDefault() bool { return h == DefaultHSV }

func (h HSV) String() string {
	var b strings.Builder
	b.WriteString(strconv.Itoa(int(h.Hue)))
	b.WriteByte('a')
	b.WriteString(formatFloat32(h.Saturation))
	b.WriteByte('a')
	b.WriteString(formatFloat32(h.Value))
	b.WriteByte('a')
	b.WriteString(formatBool(h.SatAdditive))
	b.WriteByte('a')
	b.WriteString(formatBool(h.ValAdditive))
	return b.String()
}

func ParseHSV(raw string) (HSV, error) {
	// 分隔符 a 会把 NaN 拆开，先单独拒绝
	if strings.Contains(strings.ToLower(raw), "nan") {
		return DefaultHSV, fmt.Errorf("hsv: non-finite field: %w", strconv.ErrRange)
	}
	parts := strings.Split(raw, "a")
	if len(parts) != 5 {
		return DefaultHSV, fmt.Errorf("hsv: want 5 fields, got %d", len(parts))
	}
	hue, err := parseInteger(parts[0])
	if err != nil {
		return DefaultHSV, fmt.Errorf("hsv hue: %w", err)
	}
	s, err := parseFloat32(parts[1])
	if err != nil {
		return DefaultHSV, fmt.Errorf("hsv saturation: %w", err)
	}
	v, err := parseFloat32(parts[2])
	if err != nil {
		return DefaultHSV, fmt.Errorf("hsv value: %w", err)
	}
	sm, err := parseBool(parts[3])
	if err != nil {
		return DefaultHSV, fmt.Errorf("hsv sat mode: %w", err)
	}
	vm, err := parseBool(parts[4])
	if err != nil {
		return DefaultHSV, fmt.Errorf("hsv value mode: %w", err)
	}
	return HSV{Hue: narrowInt16(hue), Saturation: s, Value: v, SatAdditive: sm, ValAdditive: vm}, nil
}
