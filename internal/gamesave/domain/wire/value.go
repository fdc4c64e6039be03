package wire

import (
	"strconv"
	"strings"
)

type Kind uint8

const (
	KindString Kind = iota + 1 // <s>
	KindInt                    // <i>
	KindReal                   // <r>
	KindTrue                   // <t />
	KindDict                   // <d>…</d> / <d />
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInt:
		return "int"
	case KindReal:
		return "real"
	case KindTrue:
		return "true"
	case KindDict:
		return "dict"
	default:
		return "unknown"
	}
}

// Value 保留原始文本，<i>/<r> 不做归一化，保证原样写回。
type Value struct {
	Kind Kind
	Text string
	Dict *Dict
}

func String(s string) Value { return Value{Kind: KindString, Text: s} }

func Int(n int) Value { return Value{Kind: KindInt, Text: strconv.Itoa(n)} }

func Real(f float64) Value {
	return Value{Kind: KindReal, Text: strconv.FormatFloat(f, 'f', -1, 64)}
}

func True() Value { return Value{Kind: KindTrue} }

func DictValue(d *Dict) Value {
	if d == nil {
		d = NewDict()
	}
	return Value{Kind: KindDict, Dict: d}
}

// Int 按整数解读；<t /> 视为 1，解析失败返回 0。
func (v Value) Int() int {
	switch v.Kind {
	case KindTrue:
		return 1
	case KindInt, KindReal, KindString:
		if n, err := strconv.Atoi(v.Text); err == nil {
			return n
		}
		if f, err := strconv.ParseFloat(v.Text, 64); err == nil {
			return int(f)
		}
	}
	return 0
}

func (v Value) Float() float64 {
	switch v.Kind {
	case KindTrue:
		return 1
	case KindInt, KindReal, KindString:
		if f, err := strconv.ParseFloat(v.Text, 64); err == nil {
			return f
		}
	}
	return 0
}

func (v Value) Bool() bool {
	if v.Kind == KindTrue {
		return true
	}
	return v.Int() != 0
}

func (v Value) Clone() Value {
	if v.Dict != nil {
		v.Dict = v.Dict.Clone()
	}
	return v
}

func (v Value) appendTo(b *strings.Builder) {
	switch v.Kind {
	case KindString:
		b.WriteString("<s>")
		b.WriteString(Escape(v.Text))
		b.WriteString("</s>")
	case KindInt:
		b.WriteString("<i>")
		b.WriteString(v.Text)
		b.WriteString("</i>")
	case KindReal:
		b.WriteString("<r>")
		b.WriteString(v.Text)
		b.WriteString("</r>")
	case KindTrue:
		b.WriteString("<t />")
	case KindDict:
		if v.Dict == nil || v.Dict.Len() == 0 {
			b.WriteString("<d />")
			return
		}
		b.WriteString("<d>")
		v.Dict.AppendTo(b)
		b.WriteString("</d>")
	}
}

var (
	escaper   = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
	unescaper = strings.NewReplacer("&lt;", "<", "&gt;", ">", "&quot;", `"`, "&apos;", "'", "&amp;", "&")
)

// Escape 转义后的文本不会再包含任何标签终止符。
func Escape(s string) string {
	if !strings.ContainsAny(s, "&<>") {
		return s
	}
	return escaper.Replace(s)
}

func Unescape(s string) string {
	if !strings.Contains(s, "&") {
		return s
	}
	return unescaper.Replace(s)
}
