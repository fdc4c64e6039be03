package wire

import "strings"

type Entry struct {
	Key   string
	Value Value
}

// Dict 是有序字典：键顺序即写回顺序，未知键原样保留。
type Dict struct {
	entries []Entry
	index   map[string]int
}

func NewDict() *Dict {
	return &Dict{index: make(map[string]int)}
}

func (d *Dict) Len() int {
	if d == nil {
		return 0
	}
	return len(d.entries)
}

func (d *Dict) Get(key string) (Value, bool) {
	if d == nil {
		return Value{}, false
	}
	i, ok := d.index[key]
	if !ok {
		return Value{}, false
	}
	return d.entries[i].Value, true
}

func (d *Dict) Has(key string) bool {
	_, ok := d.Get(key)
	return ok
}

// Set 已存在的键原位替换，否则追加到末尾。
func (d *Dict) Set(key string, v Value) {
	if d.index == nil {
		d.index = make(map[string]int)
	}
	if i, ok := d.index[key]; ok {
		d.entries[i].Value = v
		return
	}
	d.index[key] = len(d.entries)
	d.entries = append(d.entries, Entry{Key: key, Value: v})
}

func (d *Dict) Delete(key string) bool {
	i, ok := d.index[key]
	if !ok {
		return false
	}
	d.entries = append(d.entries[:i], d.entries[i+1:]...)
	delete(d.index, key)
	for j := i; j < len(d.entries); j++ {
		d.index[d.entries[j].Key] = j
	}
	return true
}

// Entries 返回副本。
func (d *Dict) Entries() []Entry {
	if d == nil {
		return nil
	}
	out := make([]Entry, len(d.entries))
	copy(out, d.entries)
	return out
}

func (d *Dict) Keys() []string {
	if d == nil {
		return nil
	}
	keys := make([]string, len(d.entries))
	for i, e := range d.entries {
		keys[i] = e.Key
	}
	return keys
}

func (d *Dict) Clone() *Dict {
	out := NewDict()
	if d == nil {
		return out
	}
	for _, e := range d.entries {
		out.Set(e.Key, e.Value.Clone())
	}
	return out
}

func (d *Dict) Str(key string) string {
	v, _ := d.Get(key)
	return v.Text
}

func (d *Dict) Int(key string) int {
	v, _ := d.Get(key)
	return v.Int()
}

func (d *Dict) Float(key string) float64 {
	v, _ := d.Get(key)
	return v.Float()
}

func (d *Dict) Bool(key string) bool {
	v, _ := d.Get(key)
	return v.Bool()
}

func (d *Dict) Sub(key string) *Dict {
	v, ok := d.Get(key)
	if !ok || v.Kind != KindDict {
		return nil
	}
	return v.Dict
}

// SetBool 为 false 时删除键：布尔只有 <t /> 一种写法。
func (d *Dict) SetBool(key string, b bool) {
	if b {
		d.Set(key, True())
		return
	}
	d.Delete(key)
}

// AppendTo 写出字典体（不含外层 <d>）。
func (d *Dict) AppendTo(b *strings.Builder) {
	if d == nil {
		return
	}
	for _, e := range d.entries {
		AppendEntry(b, e.Key, e.Value)
	}
}

// AppendEntry 写出单个 "<k>key</k>value"。
func AppendEntry(b *strings.Builder, key string, v Value) {
	b.WriteString("<k>")
	b.WriteString(Escape(key))
	b.WriteString("</k>")
	v.appendTo(b)
}

// AppendValue 只写出值标签。
func AppendValue(b *strings.Builder, v Value) {
	v.appendTo(b)
}

func (d *Dict) String() string {
	var b strings.Builder
	d.AppendTo(&b)
	return b.String()
}
