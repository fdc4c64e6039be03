package object

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// MaxGroupsPerObject 单个对象最多挂 10 个组。
const MaxGroupsPerObject = 10

// IDList 是 '.' 连接的 id 列表，空列表即默认值。
type IDList []int16

func (l IDList) String() string {
	var b strings.Builder
	for i, id := range l {
		if i > 0 {
			b.WriteByte('.')
		}
		b.WriteString(strconv.Itoa(int(id)))
	}
	return b.String()
}

func (l IDList) Contains(id int16) bool {
	return slices.Contains(l, id)
}

func (l IDList) Clone() IDList {
	if len(l) == 0 {
		return nil
	}
	return slices.Clone(l)
}

func ParseIDList(raw string) (IDList, error) {
	if raw == "" {
		return nil, nil
	}
	parts := strings.Split(raw, ".")
	out := make(IDList, 0, len(parts))
	for _, p := range parts {
		if p == "" {
			continue
		}
		n, err := parseInteger(p)
		if err != nil {
			return nil, fmt.Errorf("id list element %q: %w", p, err)
		}
		out = append(out, narrowInt16(n))
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out, nil
}
