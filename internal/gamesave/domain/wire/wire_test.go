package wire

import (
	"errors"
	"strings"
	"testing"

	"LevelVault/modules/kit/errx"
)

func TestParseDict_叶子与嵌套(t *testing.T) {
	body := `<k>k2</k><s>Stereo &amp; Madness</s><k>k1</k><i>42</i><k>kI3</k><r>0.5</r>` +
		`<k>k13</k><t /><k>inner</k><d><k>a</k><d><k>b</k><i>1</i></d><k>c</k><d /></d>`
	d, err := ParseDict(body)
	if err != nil {
		t.Fatalf("ParseDict err=%v", err)
	}
	if got := d.Str("k2"); got != "Stereo & Madness" {
		t.Fatalf("期望字符串被反转义, got=%q", got)
	}
	if d.Int("k1") != 42 || d.Float("kI3") != 0.5 || !d.Bool("k13") {
		t.Fatalf("叶子值解析错误: %v %v %v", d.Int("k1"), d.Float("kI3"), d.Bool("k13"))
	}
	inner := d.Sub("inner")
	if inner == nil || inner.Sub("a").Int("b") != 1 {
		t.Fatalf("嵌套字典解析错误")
	}
	if c := inner.Sub("c"); c == nil || c.Len() != 0 {
		t.Fatalf("期望 <d /> 解析为空字典")
	}
	if got := d.String(); got != body {
		t.Fatalf("期望原样写回\n got=%s\nwant=%s", got, body)
	}
}

func TestParseDict_损坏输入报错误码与偏移(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"缺k", `<s>x</s>`},
		{"k不闭合", `<k>k1<i>1</i>`},
		{"s不闭合", `<k>k1</k><s>abc`},
		{"d不闭合", `<k>k1</k><d><k>a</k><i>1</i>`},
		{"未知标签", `<k>k1</k><x>1</x>`},
		{"嵌套内部损坏", `<k>k1</k><d><k>a</k><q /></d>`},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := ParseDict(c.body)
			if !errors.Is(err, ErrMalformedWire) {
				t.Fatalf("期望 ErrMalformedWire, got=%v", err)
			}
			var e *errx.Error
			if !errors.As(err, &e) {
				t.Fatalf("期望 *errx.Error")
			}
			if _, ok := e.Data()["offset"].(int); !ok {
				t.Fatalf("期望携带 offset, data=%v", e.Data())
			}
		})
	}
}

func TestParseDict_嵌套错误偏移相对最外层(t *testing.T) {
	body := `<k>k1</k><d><k>a</k><q /></d>`
	_, err := ParseDict(body)
	var e *errx.Error
	if !errors.As(err, &e) {
		t.Fatalf("期望 *errx.Error, got=%v", err)
	}
	if got, want := e.Data()["offset"], strings.Index(body, "<q />"); got != want {
		t.Fatalf("offset 期望 %d, got=%v", want, got)
	}
}

// 扫描式配对依赖“值里不会出现终止符”，这里用含标签字符的任意文本验证转义后成立。
func TestScan_转义后值中不含终止符(t *testing.T) {
	nasty := []string{
		"</s>", "<d>", "</d>", "<k>x</k>", "a & b", "&lt;already&gt;", "<t />", "<<>>&&",
	}
	d := NewDict()
	for i, s := range nasty {
		d.Set(string(rune('a'+i)), String(s))
		d.Set("key"+s, Int(i))
	}
	sub := NewDict()
	sub.Set("</d>", String("</d></d>"))
	d.Set("nested", DictValue(sub))

	encoded := d.String()
	back, err := ParseDict(encoded)
	if err != nil {
		t.Fatalf("ParseDict err=%v\n%s", err, encoded)
	}
	for i, s := range nasty {
		if got := back.Str(string(rune('a' + i))); got != s {
			t.Fatalf("值 %q 往返后变为 %q", s, got)
		}
		if !back.Has("key" + s) {
			t.Fatalf("键 %q 往返后丢失", "key"+s)
		}
	}
	if got := back.Sub("nested").Str("</d>"); got != "</d></d>" {
		t.Fatalf("嵌套值往返错误 got=%q", got)
	}
	if back.String() != encoded {
		t.Fatalf("二次编码不一致")
	}
}

func TestMatchDict_深度计数(t *testing.T) {
	s := `<d><k>a</k><d><k>b</k><d /></d></d>tail`
	end, err := MatchDict(s, 0)
	if err != nil {
		t.Fatalf("MatchDict err=%v", err)
	}
	if s[end:] != "</d>tail" {
		t.Fatalf("配对位置错误, rest=%q", s[end:])
	}
}

func TestDict_SetDelete保持顺序(t *testing.T) {
	d := NewDict()
	d.Set("a", Int(1))
	d.Set("b", Int(2))
	d.Set("c", Int(3))
	d.Set("a", Int(9))
	d.Delete("b")
	d.SetBool("t", true)
	d.SetBool("f", false)
	if got := strings.Join(d.Keys(), ","); got != "a,c,t" {
		t.Fatalf("键顺序错误 got=%s", got)
	}
	if d.Int("a") != 9 || d.Int("c") != 3 {
		t.Fatalf("替换后索引错误")
	}
}

func TestPlist_往返(t *testing.T) {
	d := NewDict()
	d.Set("LLM_02", Int(35))
	text := EncodePlist(d)
	body, off, err := PlistBody(text)
	if err != nil {
		t.Fatalf("PlistBody err=%v", err)
	}
	if off != PlistBodyOffset || body != "<k>LLM_02</k><i>35</i>" {
		t.Fatalf("根字典定位错误 off=%d body=%q", off, body)
	}
	if _, err := ParsePlist("<plist>"); !errors.Is(err, ErrMalformedWire) {
		t.Fatalf("期望缺少根字典时报 ErrMalformedWire")
	}
}
