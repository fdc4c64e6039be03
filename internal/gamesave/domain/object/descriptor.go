package object

import (
	"encoding/base64"
	"fmt"
	"strconv"
)

// ValueKind 描述属性的值类型，决定线格式与收窄宽度。
type ValueKind uint8

const (
	ValueBool ValueKind = iota + 1
	ValueInt8
	ValueUint8
	ValueInt16
	ValueFloat
	ValueIDList
	ValueHSV
	ValueText
)

// Descriptor 是 (变体, 键) 对应的属性描述：默认值、读写与线格式。
type Descriptor struct {
	Key     int
	Name    string
	Kind    ValueKind
	Default any

	get       func(*Object) any
	set       func(*Object, any) bool
	reset     func(*Object)
	isDefault func(*Object) bool
	format    func(*Object) string
	parse     func(*Object, string) error
}

func (d *Descriptor) Get(o *Object) any { return d.get(o) }

// Set 接受同类型或可收窄的数值，类型不符返回 ErrPropertyType。
func (d *Descriptor) Set(o *Object, v any) error {
	if !d.set(o, v) {
		return ErrPropertyType.WithData("key", d.Key).WithData("value", fmt.Sprintf("%T", v))
	}
	return nil
}

func (d *Descriptor) IsDefault(o *Object) bool { return d.isDefault(o) }

// Format 返回当前值的线格式文本。
func (d *Descriptor) Format(o *Object) string { return d.format(o) }

func scalar[T comparable](key int, name string, kind ValueKind, def T, ptr func(*Object) *T,
	coerce func(any) (T, bool), format func(T) string, parse func(string) (T, error)) *Descriptor {
	return &Descriptor{
		Key:     key,
		Name:    name,
		Kind:    kind,
		Default: def,
		get:     func(o *Object) any { return *ptr(o) },
		set: func(o *Object, v any) bool {
			t, ok := coerce(v)
			if ok {
				*ptr(o) = t
			}
			return ok
		},
		reset:     func(o *Object) { *ptr(o) = def },
		isDefault: func(o *Object) bool { return *ptr(o) == def },
		format:    func(o *Object) string { return format(*ptr(o)) },
		parse: func(o *Object, raw string) error {
			t, err := parse(raw)
			if err != nil {
				return err
			}
			*ptr(o) = t
			return nil
		},
	}
}

func coerceInt(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	case float32:
		return int64(n), true
	case float64:
		return int64(n), true
	}
	return 0, false
}

func boolProp(key int, name string, def bool, ptr func(*Object) *bool) *Descriptor {
	return scalar(key, name, ValueBool, def, ptr,
		func(v any) (bool, bool) { b, ok := v.(bool); return b, ok },
		formatBool, parseBool)
}

func int16Prop(key int, name string, def int16, ptr func(*Object) *int16) *Descriptor {
	return scalar(key, name, ValueInt16, def, ptr,
		func(v any) (int16, bool) { n, ok := coerceInt(v); return narrowInt16(n), ok },
		func(n int16) string { return strconv.Itoa(int(n)) },
		func(raw string) (int16, error) { n, err := parseInteger(raw); return narrowInt16(n), err })
}

func int8Prop(key int, name string, def int8, ptr func(*Object) *int8) *Descriptor {
	return scalar(key, name, ValueInt8, def, ptr,
		func(v any) (int8, bool) { n, ok := coerceInt(v); return narrowInt8(n), ok },
		func(n int8) string { return strconv.Itoa(int(n)) },
		func(raw string) (int8, error) { n, err := parseInteger(raw); return narrowInt8(n), err })
}

func uint8Prop(key int, name string, def uint8, ptr func(*Object) *uint8) *Descriptor {
	return scalar(key, name, ValueUint8, def, ptr,
		func(v any) (uint8, bool) { n, ok := coerceInt(v); return narrowUint8(n), ok },
		func(n uint8) string { return strconv.Itoa(int(n)) },
		func(raw string) (uint8, error) { n, err := parseInteger(raw); return narrowUint8(n), err })
}

func floatProp(key int, name string, def float32, ptr func(*Object) *float32) *Descriptor {
	return scalar(key, name, ValueFloat, def, ptr,
		func(v any) (float32, bool) {
			switch f := v.(type) {
			case float32:
				return f, true
			case float64:
				return float32(f), true
			}
			n, ok := coerceInt(v)
			return float32(n), ok
		},
		formatFloat32, parseFloat32)
}

func hsvProp(key int, name string, ptr func(*Object) *HSV) *Descriptor {
	return scalar(key, name, ValueHSV, DefaultHSV, ptr,
		func(v any) (HSV, bool) { h, ok := v.(HSV); return h, ok },
		HSV.String, ParseHSV)
}

// 文本对象的内容在线上是 URL 安全的 base64。
func textProp(key int, name string, ptr func(*Object) *string) *Descriptor {
	return scalar(key, name, ValueText, "", ptr,
		func(v any) (string, bool) { s, ok := v.(string); return s, ok },
		func(s string) string { return base64.URLEncoding.EncodeToString([]byte(s)) },
		decodeText)
}

func decodeText(raw string) (string, error) {
	if b, err := base64.URLEncoding.DecodeString(raw); err == nil {
		return string(b), nil
	}
	b, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return "", fmt.Errorf("text is not base64: %w", err)
	}
	return string(b), nil
}

func idListProp(key int, name string, ptr func(*Object) *IDList) *Descriptor {
	return &Descriptor{
		Key:     key,
		Name:    name,
		Kind:    ValueIDList,
		Default: IDList(nil),
		get:     func(o *Object) any { return ptr(o).Clone() },
		set: func(o *Object, v any) bool {
			switch l := v.(type) {
			case IDList:
				*ptr(o) = l.Clone()
			case []int16:
				*ptr(o) = IDList(l).Clone()
			case []int:
				out := make(IDList, 0, len(l))
				for _, n := range l {
					out = append(out, narrowInt16(int64(n)))
				}
				*ptr(o) = out.Clone()
			default:
				return false
			}
			return true
		},
		reset:     func(o *Object) { *ptr(o) = nil },
		isDefault: func(o *Object) bool { return len(*ptr(o)) == 0 },
		format:    func(o *Object) string { return ptr(o).String() },
		parse: func(o *Object, raw string) error {
			l, err := ParseIDList(raw)
			if err != nil {
				return err
			}
			*ptr(o) = l
			return nil
		},
	}
}
