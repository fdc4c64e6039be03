package wire

import "strings"

// RawEntry 是扫描出的一个键值对在原文中的位置。
// ValueStart/ValueEnd 覆盖完整的值标签；InnerStart/InnerEnd 是标签内的文本。
type RawEntry struct {
	Key        string
	Kind       Kind
	ValueStart int
	ValueEnd   int
	InnerStart int
	InnerEnd   int
}

type leafTag struct {
	open, close string
	kind        Kind
}

var leafTags = [...]leafTag{
	{"<s>", "</s>", KindString},
	{"<i>", "</i>", KindInt},
	{"<r>", "</r>", KindReal},
}

// ScanEntries 顺序扫描字典体里的键值对，只定位不解码嵌套字典。
// 叶子标签在开标签之后的第一个终止符处闭合；<d> 通过计数 <d>/</d> 配对。
// 这种扫描成立的前提是键和值都经过 Escape，文本里不会出现裸的 '<'。
func ScanEntries(body string, fn func(RawEntry) error) error {
	return scanEntries(body, 0, fn)
}

// base 只用于错误里的 offset，使嵌套字典报出的位置相对最外层原文。
func scanEntries(body string, base int, fn func(RawEntry) error) error {
	pos := 0
	for pos < len(body) {
		if !strings.HasPrefix(body[pos:], "<k>") {
			return malformed("expected <k>", base+pos)
		}
		keyStart := pos + 3
		keyLen := strings.Index(body[keyStart:], "</k>")
		if keyLen < 0 {
			return malformed("unterminated <k>", base+pos)
		}
		e := RawEntry{Key: Unescape(body[keyStart : keyStart+keyLen])}
		pos = keyStart + keyLen + 4

		next, err := scanValue(body, pos, &e)
		if err != nil {
			return rebase(err, base)
		}
		if err := fn(e); err != nil {
			return err
		}
		pos = next
	}
	return nil
}

func scanValue(body string, pos int, e *RawEntry) (int, error) {
	rest := body[pos:]
	e.ValueStart = pos
	switch {
	case strings.HasPrefix(rest, "<t />"), strings.HasPrefix(rest, "<t/>"):
		n := 5
		if rest[2] == '/' {
			n = 4
		}
		e.Kind = KindTrue
		e.InnerStart, e.InnerEnd, e.ValueEnd = pos, pos, pos+n
		return e.ValueEnd, nil
	case strings.HasPrefix(rest, "<d />"), strings.HasPrefix(rest, "<d/>"):
		n := 5
		if rest[2] == '/' {
			n = 4
		}
		e.Kind = KindDict
		e.InnerStart, e.InnerEnd, e.ValueEnd = pos, pos, pos+n
		return e.ValueEnd, nil
	case strings.HasPrefix(rest, "<d>"):
		end, err := MatchDict(body, pos)
		if err != nil {
			return 0, err
		}
		e.Kind = KindDict
		e.InnerStart, e.InnerEnd, e.ValueEnd = pos+3, end, end+4
		return e.ValueEnd, nil
	}
	for _, t := range leafTags {
		if !strings.HasPrefix(rest, t.open) {
			continue
		}
		n := strings.Index(rest[len(t.open):], t.close)
		if n < 0 {
			return 0, malformed("unterminated "+t.open, pos)
		}
		e.Kind = t.kind
		e.InnerStart = pos + len(t.open)
		e.InnerEnd = e.InnerStart + n
		e.ValueEnd = e.InnerEnd + len(t.close)
		return e.ValueEnd, nil
	}
	return 0, malformed("unknown value tag", pos)
}

// MatchDict 给定 s[start:] 以 "<d>" 开头，返回与之配对的 "</d>" 的下标。
func MatchDict(s string, start int) (int, error) {
	depth := 0
	pos := start
	for {
		i := strings.IndexByte(s[pos:], '<')
		if i < 0 {
			return 0, malformed("unterminated <d>", start)
		}
		pos += i
		switch {
		case strings.HasPrefix(s[pos:], "<d>"):
			depth++
			pos += 3
		case strings.HasPrefix(s[pos:], "</d>"):
			depth--
			if depth == 0 {
				return pos, nil
			}
			pos += 4
		default:
			pos++
		}
	}
}

// ParseDict 解码字典体（不含外层 <d>）。
func ParseDict(body string) (*Dict, error) {
	return parseDictAt(body, 0)
}

func parseDictAt(body string, base int) (*Dict, error) {
	d := NewDict()
	err := scanEntries(body, base, func(e RawEntry) error {
		v, err := valueAt(body, e, base)
		if err != nil {
			return err
		}
		d.Set(e.Key, v)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return d, nil
}

// ValueOf 解码 ScanEntries 定位出的一个值；base 是 body 在原文中的偏移。
func ValueOf(body string, e RawEntry, base int) (Value, error) {
	return valueAt(body, e, base)
}

func valueAt(body string, e RawEntry, base int) (Value, error) {
	v := Value{Kind: e.Kind}
	switch e.Kind {
	case KindDict:
		sub, err := parseDictAt(body[e.InnerStart:e.InnerEnd], base+e.InnerStart)
		if err != nil {
			return Value{}, err
		}
		v.Dict = sub
	case KindString:
		v.Text = Unescape(body[e.InnerStart:e.InnerEnd])
	case KindInt, KindReal:
		v.Text = body[e.InnerStart:e.InnerEnd]
	}
	return v, nil
}
