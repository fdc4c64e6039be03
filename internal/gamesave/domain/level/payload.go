package level

import (
	"strings"

	"LevelVault/internal/gamesave/domain/object"
)

// Payload 是解码后的关卡正文：头部（含参考线与颜色通道）和对象列表。
type Payload struct {
	Header  *Header
	Objects *object.Collection
}

func NewPayload(reg *object.Registry) *Payload {
	return &Payload{Header: NewHeader(), Objects: object.NewCollection(reg)}
}

// Guidelines 与 Channels 是头部里两个子结构的快捷入口。
func (p *Payload) Guidelines() []Guideline { return p.Header.Guidelines }

func (p *Payload) Channels() *ColorChannelSet { return p.Header.Colors }

func (p *Payload) Clone() *Payload {
	h := *p.Header
	h.Colors = p.Header.Colors.Clone()
	h.Guidelines = append([]Guideline(nil), p.Header.Guidelines...)
	h.Extra = append([]HeaderPair(nil), p.Header.Extra...)
	return &Payload{Header: &h, Objects: p.Objects.Clone()}
}

// DecodePayload 解析 "header;obj;obj;...;"。第一个 ';' 之前是头部。
func DecodePayload(codec *object.Codec, text string) (*Payload, object.Diagnostics, error) {
	headText, body, _ := strings.Cut(text, ";")
	h, err := DecodeHeader(headText)
	if err != nil {
		return nil, object.Diagnostics{}, err
	}
	objs, diag, err := codec.DecodeList(body)
	if err != nil {
		return nil, diag, err
	}
	return &Payload{Header: h, Objects: objs}, diag, nil
}

func EncodePayload(codec *object.Codec, p *Payload) string {
	var b strings.Builder
	p.Header.AppendTo(&b)
	b.WriteByte(';')
	codec.AppendList(&b, p.Objects)
	return b.String()
}
