package wire

import "strings"

// PlistHead/PlistTail 是存档根字典固定的外壳。
const (
	PlistHead = `<?xml version="1.0"?><plist version="1.0" gjver="2.0"><dict>`
	PlistTail = `</dict></plist>`
)

// PlistBody 定位根 <dict> 的字典体，返回字典体和它在 text 中的起始偏移。
func PlistBody(text string) (string, int, error) {
	open := strings.Index(text, "<dict>")
	if open < 0 {
		// 部分导出文件直接以 <d> 包裹
		if strings.HasPrefix(text, "<d>") {
			end, err := MatchDict(text, 0)
			if err != nil {
				return "", 0, err
			}
			return text[3:end], 3, nil
		}
		return "", 0, malformed("missing root <dict>", 0)
	}
	start := open + len("<dict>")
	end := strings.LastIndex(text, "</dict>")
	if end < start {
		return "", 0, malformed("unterminated root <dict>", open)
	}
	return text[start:end], start, nil
}

func ParsePlist(text string) (*Dict, error) {
	body, base, err := PlistBody(text)
	if err != nil {
		return nil, err
	}
	return parseDictAt(body, base)
}

// EncodePlist 写出带 xml/plist 外壳的根字典。
func EncodePlist(d *Dict) string {
	var b strings.Builder
	b.WriteString(PlistHead)
	d.AppendTo(&b)
	b.WriteString(PlistTail)
	return b.String()
}

// PlistBodyOffset 是 EncodePlist 输出中字典体的起始偏移。
const PlistBodyOffset = len(PlistHead)
