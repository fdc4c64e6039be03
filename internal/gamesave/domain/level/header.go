package level

import (
	"strconv"
	"strings"

	"LevelVault/internal/gamesave/domain/wire"
)

// headerKeys 是头部的固定输出顺序，这些键总是输出。
var headerKeys = [...]string{
	"kS38", "kA13", "kA15", "kA16", "kA14", "kA6", "kA7", "kA17", "kA18",
	"kS39", "kA2", "kA3", "kA8", "kA4", "kA9", "kA10", "kA11",
}

// Header 是载荷第一段：关卡级开关、颜色通道与参考线。
type Header struct {
	Colors      *ColorChannelSet // kS38
	SongOffset  float64          // kA13
	FadeIn      bool             // kA15
	FadeOut     bool             // kA16
	Guidelines  []Guideline      // kA14
	Background  int              // kA6
	Ground      int              // kA7
	GroundLine  int              // kA17
	Font        int              // kA18
	ColorPage   int              // kS39
	Gamemode    int              // kA2
	Mini        bool             // kA3
	Dual        bool             // kA8
	Speed       int              // kA4
	StartPos    bool             // kA9
	TwoPlayer   bool             // kA10
	FlipGravity bool             // kA11

	// Extra 保留未登记的键，按原顺序写在固定键之后。
	Extra []HeaderPair
}

type HeaderPair struct {
	Key   string
	Value string
}

func NewHeader() *Header {
	return &Header{Colors: NewColorChannelSet()}
}

func boolText(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

func (h *Header) value(key string) string {
	switch key {
	case "kS38":
		return h.Colors.Encode()
	case "kA13":
		return formatFloat(h.SongOffset)
	case "kA15":
		return boolText(h.FadeIn)
	case "kA16":
		return boolText(h.FadeOut)
	case "kA14":
		return EncodeGuidelines(h.Guidelines)
	case "kA6":
		return strconv.Itoa(h.Background)
	case "kA7":
		return strconv.Itoa(h.Ground)
	case "kA17":
		return strconv.Itoa(h.GroundLine)
	case "kA18":
		return strconv.Itoa(h.Font)
	case "kS39":
		return strconv.Itoa(h.ColorPage)
	case "kA2":
		return strconv.Itoa(h.Gamemode)
	case "kA3":
		return boolText(h.Mini)
	case "kA8":
		return boolText(h.Dual)
	case "kA4":
		return strconv.Itoa(h.Speed)
	case "kA9":
		return boolText(h.StartPos)
	case "kA10":
		return boolText(h.TwoPlayer)
	case "kA11":
		return boolText(h.FlipGravity)
	}
	return ""
}

func (h *Header) AppendTo(b *strings.Builder) {
	for i, k := range headerKeys {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(k)
		b.WriteByte(',')
		b.WriteString(h.value(k))
	}
	for _, p := range h.Extra {
		b.WriteByte(',')
		b.WriteString(p.Key)
		b.WriteByte(',')
		b.WriteString(p.Value)
	}
}

func (h *Header) Encode() string {
	var b strings.Builder
	h.AppendTo(&b)
	return b.String()
}

func headerInt(raw string) (int, error) {
	if n, err := strconv.Atoi(raw); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	return int(f), err
}

func headerBool(raw string) (bool, error) {
	n, err := headerInt(raw)
	return n != 0, err
}

func DecodeHeader(raw string) (*Header, error) {
	h := NewHeader()
	if raw == "" {
		return h, nil
	}
	parts := strings.Split(raw, ",")
	if len(parts)%2 != 0 {
		return nil, wire.ErrMalformedWire.WithData("reason", "odd header field count")
	}
	for i := 0; i < len(parts); i += 2 {
		if err := h.apply(parts[i], parts[i+1]); err != nil {
			return nil, wire.ErrMalformedWire.WithData("reason", "bad header value").WithData("key", parts[i]).WithCause(err)
		}
	}
	return h, nil
}

func (h *Header) apply(key, raw string) error {
	var err error
	switch key {
	case "kS38":
		h.Colors, err = DecodeColorChannels(raw)
	case "kA13":
		h.SongOffset, err = strconv.ParseFloat(raw, 64)
	case "kA15":
		h.FadeIn, err = headerBool(raw)
	case "kA16":
		h.FadeOut, err = headerBool(raw)
	case "kA14":
		h.Guidelines, err = DecodeGuidelines(raw)
	case "kA6":
		h.Background, err = headerInt(raw)
	case "kA7":
		h.Ground, err = headerInt(raw)
	case "kA17":
		h.GroundLine, err = headerInt(raw)
	case "kA18":
		h.Font, err = headerInt(raw)
	case "kS39":
		h.ColorPage, err = headerInt(raw)
	case "kA2":
		h.Gamemode, err = headerInt(raw)
	case "kA3":
		h.Mini, err = headerBool(raw)
	case "kA8":
		h.Dual, err = headerBool(raw)
	case "kA4":
		h.Speed, err = headerInt(raw)
	case "kA9":
		h.StartPos, err = headerBool(raw)
	case "kA10":
		h.TwoPlayer, err = headerBool(raw)
	case "kA11":
		h.FlipGravity, err = headerBool(raw)
	default:
		h.Extra = append(h.Extra, HeaderPair{Key: key, Value: raw})
	}
	return err
}
