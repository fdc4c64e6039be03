package level

import (
	"maps"
	"slices"
	"strconv"

	"LevelVault/internal/gamesave/domain/object"
	"LevelVault/internal/gamesave/domain/wire"
)

// 颜色通道记录的键。
const (
	chKeyRed         = "1"
	chKeyGreen       = "2"
	chKeyBlue        = "3"
	chKeyPlayerColor = "4"
	chKeyBlending    = "5"
	chKeyID          = "6"
	chKeyOpacity     = "7"
	chKeyCopiedID    = "9"
	chKeyCopiedHSV   = "10"
	chKeyCopyOpacity = "17"
)

// ColorChannel 是一个颜色通道。PlayerColor: 0 无，1/2 跟随玩家色。
type ColorChannel struct {
	ID          int16
	Red         uint8
	Green       uint8
	Blue        uint8
	PlayerColor int8
	Blending    bool
	Opacity     float32
	CopiedID    int16
	CopiedHSV   object.HSV
	CopyOpacity bool
}

func NewColorChannel(id int16) *ColorChannel {
	return &ColorChannel{ID: id, Red: 255, Green: 255, Blue: 255, Opacity: 1, CopiedHSV: object.DefaultHSV}
}

func (c *ColorChannel) dict() *wire.Dict {
	d := wire.NewDict()
	d.Set(chKeyID, wire.Int(int(c.ID)))
	if c.Red != 255 {
		d.Set(chKeyRed, wire.Int(int(c.Red)))
	}
	if c.Green != 255 {
		d.Set(chKeyGreen, wire.Int(int(c.Green)))
	}
	if c.Blue != 255 {
		d.Set(chKeyBlue, wire.Int(int(c.Blue)))
	}
	if c.PlayerColor != 0 {
		d.Set(chKeyPlayerColor, wire.Int(int(c.PlayerColor)))
	}
	d.SetBool(chKeyBlending, c.Blending)
	if c.Opacity != 1 {
		d.Set(chKeyOpacity, wire.Value{Kind: wire.KindReal, Text: strconv.FormatFloat(float64(c.Opacity), 'f', -1, 32)})
	}
	if c.CopiedID != 0 {
		d.Set(chKeyCopiedID, wire.Int(int(c.CopiedID)))
	}
	if !c.CopiedHSV.IsDefault() {
		d.Set(chKeyCopiedHSV, wire.String(c.CopiedHSV.String()))
	}
	d.SetBool(chKeyCopyOpacity, c.CopyOpacity)
	return d
}

func channelFromDict(d *wire.Dict) (*ColorChannel, error) {
	if !d.Has(chKeyID) {
		return nil, wire.ErrMalformedWire.WithData("reason", "color channel without id")
	}
	c := NewColorChannel(int16(d.Int(chKeyID)))
	if v, ok := d.Get(chKeyRed); ok {
		c.Red = uint8(v.Int())
	}
	if v, ok := d.Get(chKeyGreen); ok {
		c.Green = uint8(v.Int())
	}
	if v, ok := d.Get(chKeyBlue); ok {
		c.Blue = uint8(v.Int())
	}
	c.PlayerColor = int8(d.Int(chKeyPlayerColor))
	c.Blending = d.Bool(chKeyBlending)
	if v, ok := d.Get(chKeyOpacity); ok {
		c.Opacity = float32(v.Float())
	}
	c.CopiedID = int16(d.Int(chKeyCopiedID))
	if v, ok := d.Get(chKeyCopiedHSV); ok {
		hsv, err := object.ParseHSV(v.Text)
		if err != nil {
			return nil, wire.ErrMalformedWire.WithData("reason", "bad channel hsv").WithCause(err)
		}
		c.CopiedHSV = hsv
	}
	c.CopyOpacity = d.Bool(chKeyCopyOpacity)
	return c, nil
}

// ColorChannelSet 以通道 id 为位置索引的通道集合。
type ColorChannelSet struct {
	channels map[int16]*ColorChannel
}

func NewColorChannelSet() *ColorChannelSet {
	return &ColorChannelSet{channels: make(map[int16]*ColorChannel)}
}

func (s *ColorChannelSet) Len() int { return len(s.channels) }

func (s *ColorChannelSet) Get(id int16) (*ColorChannel, bool) {
	c, ok := s.channels[id]
	return c, ok
}

// Set 按 c.ID 放置，覆盖同位置的旧记录。
func (s *ColorChannelSet) Set(c *ColorChannel) {
	s.channels[c.ID] = c
}

func (s *ColorChannelSet) Delete(id int16) {
	delete(s.channels, id)
}

// IDs 升序。
func (s *ColorChannelSet) IDs() []int16 {
	return slices.Sorted(maps.Keys(s.channels))
}

func (s *ColorChannelSet) Clone() *ColorChannelSet {
	out := NewColorChannelSet()
	for id, c := range s.channels {
		cp := *c
		out.channels[id] = &cp
	}
	return out
}

// CopiesFrom 快照“哪个通道从哪个通道复制颜色”。
func (s *ColorChannelSet) CopiesFrom() map[int16]int16 {
	out := make(map[int16]int16)
	for id, c := range s.channels {
		if c.CopiedID != 0 {
			out[id] = c.CopiedID
		}
	}
	return out
}

// Encode 输出 "<k>id</k><d>…</d>…"，按 id 升序。
func (s *ColorChannelSet) Encode() string {
	d := wire.NewDict()
	for _, id := range s.IDs() {
		d.Set(strconv.Itoa(int(id)), wire.DictValue(s.channels[id].dict()))
	}
	return d.String()
}

func DecodeColorChannels(raw string) (*ColorChannelSet, error) {
	set := NewColorChannelSet()
	if raw == "" {
		return set, nil
	}
	d, err := wire.ParseDict(raw)
	if err != nil {
		return nil, err
	}
	for _, e := range d.Entries() {
		if e.Value.Kind != wire.KindDict {
			return nil, wire.ErrMalformedWire.WithData("reason", "color channel is not a dict").WithData("key", e.Key)
		}
		c, err := channelFromDict(e.Value.Dict)
		if err != nil {
			return nil, err
		}
		set.Set(c)
	}
	return set, nil
}
