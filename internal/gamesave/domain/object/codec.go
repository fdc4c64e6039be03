package object

import (
	"strconv"
	"strings"
)

// Pair 是线上的一个 (键, 原始值)。
type Pair struct {
	Key   string
	Value string
}

type UnknownKey struct {
	TypeID int16
	Key    string
	Value  string
}

// BadValue 键已登记但值无法解析，属性保持默认值。
type BadValue struct {
	TypeID int16
	Key    int
	Value  string
	Err    error
}

// Diagnostics 汇总解码中被跳过的内容。
type Diagnostics struct {
	UnknownKeys []UnknownKey
	BadValues   []BadValue
}

func (d *Diagnostics) Empty() bool {
	return len(d.UnknownKeys) == 0 && len(d.BadValues) == 0
}

func (d *Diagnostics) Merge(other Diagnostics) {
	d.UnknownKeys = append(d.UnknownKeys, other.UnknownKeys...)
	d.BadValues = append(d.BadValues, other.BadValues...)
}

// Err 有跳过内容时返回 ErrUnknownProperty，便于统一打日志。
func (d *Diagnostics) Err() error {
	if d.Empty() {
		return nil
	}
	return ErrUnknownProperty.
		WithData("unknown_keys", len(d.UnknownKeys)).
		WithData("bad_values", len(d.BadValues))
}

// Codec 按注册表编解码单个对象与对象列表。
type Codec struct {
	reg *Registry
}

func NewCodec(reg *Registry) *Codec {
	return &Codec{reg: reg}
}

func (c *Codec) Registry() *Registry { return c.reg }

// DecodePairs 构造 typeID 对应的变体并逐个应用键值对。
// 未登记的键与无法解析的值记入诊断，不会让解码失败；未登记的键同时保留在对象上，重新编码时原样输出。
func (c *Codec) DecodePairs(typeID int16, pairs []Pair) (*Object, Diagnostics) {
	o := c.reg.New(typeID)
	var diag Diagnostics
	for _, p := range pairs {
		if p.Key == "1" {
			continue
		}
		key, err := strconv.Atoi(p.Key)
		var d *Descriptor
		if err == nil {
			d, _ = c.reg.Lookup(o.variant, key)
		}
		if d == nil {
			diag.UnknownKeys = append(diag.UnknownKeys, UnknownKey{TypeID: typeID, Key: p.Key, Value: p.Value})
			o.extra = append(o.extra, p)
			continue
		}
		if err := d.parse(o, p.Value); err != nil {
			d.reset(o)
			diag.BadValues = append(diag.BadValues, BadValue{TypeID: typeID, Key: key, Value: p.Value, Err: err})
		}
	}
	return o, diag
}

// Decode 解析 "k1,v1,k2,v2,..."，必须包含类型键 1。
func (c *Codec) Decode(text string) (*Object, Diagnostics, error) {
	parts := strings.Split(text, ",")
	if len(parts)%2 != 0 {
		return nil, Diagnostics{}, ErrMalformedWire.WithData("reason", "odd key/value count").WithData("object", text)
	}
	pairs := make([]Pair, 0, len(parts)/2)
	typeRaw, found := "", false
	for i := 0; i < len(parts); i += 2 {
		pairs = append(pairs, Pair{Key: parts[i], Value: parts[i+1]})
		if parts[i] == "1" && !found {
			typeRaw, found = parts[i+1], true
		}
	}
	if !found {
		return nil, Diagnostics{}, ErrMalformedWire.WithData("reason", "missing type key").WithData("object", text)
	}
	n, err := parseInteger(typeRaw)
	if err != nil {
		return nil, Diagnostics{}, ErrMalformedWire.WithData("reason", "bad type id").WithData("object", text).WithCause(err)
	}
	o, diag := c.DecodePairs(narrowInt16(n), pairs)
	return o, diag, nil
}

// EncodePairs 先输出类型键，再按键升序输出所有非默认值，最后是解码时保留的未登记键。
func (c *Codec) EncodePairs(o *Object) []Pair {
	props := c.reg.Properties(o.variant)
	out := make([]Pair, 0, 8)
	out = append(out, Pair{Key: "1", Value: strconv.Itoa(int(o.typeID))})
	for _, d := range props {
		if d.isDefault(o) {
			continue
		}
		out = append(out, Pair{Key: strconv.Itoa(d.Key), Value: d.format(o)})
	}
	return append(out, o.extra...)
}

func (c *Codec) Encode(o *Object) string {
	var b strings.Builder
	c.AppendEncode(&b, o)
	return b.String()
}

func (c *Codec) AppendEncode(b *strings.Builder, o *Object) {
	b.WriteString("1,")
	b.WriteString(strconv.Itoa(int(o.typeID)))
	for _, d := range c.reg.Properties(o.variant) {
		if d.isDefault(o) {
			continue
		}
		b.WriteByte(',')
		b.WriteString(strconv.Itoa(d.Key))
		b.WriteByte(',')
		b.WriteString(d.format(o))
	}
	for _, p := range o.extra {
		b.WriteByte(',')
		b.WriteString(p.Key)
		b.WriteByte(',')
		b.WriteString(p.Value)
	}
}

// DecodeList 解析 "obj;obj;...;"，空段忽略。任一对象损坏则整个列表失败。
func (c *Codec) DecodeList(text string) (*Collection, Diagnostics, error) {
	col := NewCollection(c.reg)
	var diag Diagnostics
	index := 0
	for seg := range strings.SplitSeq(text, ";") {
		if seg == "" {
			continue
		}
		o, d, err := c.Decode(seg)
		if err != nil {
			return nil, diag, ErrMalformedWire.WithData("object_index", index).WithCause(err)
		}
		diag.Merge(d)
		col.Add(o)
		index++
	}
	return col, diag, nil
}

// EncodeList 每个对象后都跟一个 ';'。
func (c *Codec) EncodeList(col *Collection) string {
	var b strings.Builder
	c.AppendList(&b, col)
	return b.String()
}

func (c *Codec) AppendList(b *strings.Builder, col *Collection) {
	for _, o := range col.items {
		c.AppendEncode(b, o)
		b.WriteByte(';')
	}
}
