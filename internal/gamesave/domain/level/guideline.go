package level

import (
	"cmp"
	"slices"
	"strconv"
	"strings"

	"LevelVault/internal/gamesave/domain/wire"
)

// Band 是参考线颜色值归入的色带。
type Band uint8

const (
	BandTransparent Band = iota
	BandOrange
	BandYellow
	BandGreen
)

func (b Band) String() string {
	switch b {
	case BandOrange:
		return "orange"
	case BandYellow:
		return "yellow"
	case BandGreen:
		return "green"
	default:
		return "transparent"
	}
}

// BandOf 按原格式的判定顺序：0.9 黄，1.0 绿，>=0.8 或 0 为橙，其余透明。
func BandOf(color float64) Band {
	switch {
	case color == 0.9:
		return BandYellow
	case color == 1.0:
		return BandGreen
	case color >= 0.8 || color == 0:
		return BandOrange
	default:
		return BandTransparent
	}
}

// Guideline 是音乐参考线：时间点与颜色值。
type Guideline struct {
	Time  float64
	Color float64
}

func (g Guideline) Band() Band { return BandOf(g.Color) }

// SortGuidelines 按时间升序，时间相同按颜色升序。
func SortGuidelines(gs []Guideline) {
	slices.SortStableFunc(gs, func(a, b Guideline) int {
		if c := cmp.Compare(a.Time, b.Time); c != 0 {
			return c
		}
		return cmp.Compare(a.Color, b.Color)
	})
}

// EncodeGuidelines 输出 "time~color~time~color"，不修改入参顺序。
func EncodeGuidelines(gs []Guideline) string {
	if len(gs) == 0 {
		return ""
	}
	sorted := slices.Clone(gs)
	SortGuidelines(sorted)
	var b strings.Builder
	for i, g := range sorted {
		if i > 0 {
			b.WriteByte('~')
		}
		b.WriteString(formatFloat(g.Time))
		b.WriteByte('~')
		b.WriteString(formatFloat(g.Color))
	}
	return b.String()
}

// DecodeGuidelines 容忍末尾多一个 '~'，结果已排序。
func DecodeGuidelines(raw string) ([]Guideline, error) {
	raw = strings.TrimSuffix(raw, "~")
	if raw == "" {
		return nil, nil
	}
	parts := strings.Split(raw, "~")
	if len(parts)%2 != 0 {
		return nil, wire.ErrMalformedWire.WithData("reason", "odd guideline field count")
	}
	out := make([]Guideline, 0, len(parts)/2)
	for i := 0; i < len(parts); i += 2 {
		t, err := strconv.ParseFloat(parts[i], 64)
		if err != nil {
			return nil, wire.ErrMalformedWire.WithData("reason", "bad guideline time").WithCause(err)
		}
		c, err := strconv.ParseFloat(parts[i+1], 64)
		if err != nil {
			return nil, wire.ErrMalformedWire.WithData("reason", "bad guideline color").WithCause(err)
		}
		out = append(out, Guideline{Time: t, Color: c})
	}
	SortGuidelines(out)
	return out, nil
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
