package migrate

import (
	"cmp"
	"maps"
	"slices"

	"LevelVault/internal/gamesave/domain/level"
	"LevelVault/internal/gamesave/domain/object"
)

// Span 是一段闭区间 [Start, End]，用于指定压缩时保留不动的 id。
type Span struct {
	Start int `json:"start" mapstructure:"start"`
	End   int `json:"end" mapstructure:"end"`
}

func (s Span) contains(id int) bool { return id >= s.Start && id <= s.End }

// mergeSpans 排序并合并重叠或相邻的区间。
func mergeSpans(spans []Span) []Span {
	sorted := slices.Clone(spans)
	slices.SortFunc(sorted, func(a, b Span) int { return cmp.Compare(a.Start, b.Start) })
	var out []Span
	for _, s := range sorted {
		if n := len(out); n > 0 && s.Start <= out[n-1].End+1 {
			out[n-1].End = max(out[n-1].End, s.End)
			continue
		}
		out = append(out, s)
	}
	return out
}

func inSpans(spans []Span, id int) bool {
	for _, s := range spans {
		if s.contains(id) {
			return true
		}
		if s.Start > id {
			break
		}
	}
	return false
}

// Plan 计算压缩方案：按当前 id 升序，依次分配从 1 开始的下一个空闲 id。
// 当前值落在 ignored 内的 id 原地不动；落在 ignored 内的目标值被跳过。
// 返回的区间都是单点区间，按 id 升序，可直接交给 ApplyRanges。
func Plan(used []int, ignored []Span) []Range {
	spans := mergeSpans(ignored)
	ids := slices.Clone(used)
	slices.Sort(ids)
	ids = slices.Compact(ids)

	var plan []Range
	next := 1
	for _, id := range ids {
		if inSpans(spans, id) {
			continue
		}
		for _, s := range spans {
			if s.contains(next) {
				next = s.End + 1
			}
		}
		if next != id {
			plan = append(plan, Range{SourceStart: id, SourceEnd: id, TargetStart: next})
		}
		next++
	}
	return plan
}

// CompactReallocate 把 kind 类 id 重新紧凑编号，保留 ignored 覆盖的 id 与目标值。
// 颜色编号时通道自身的 id 也视为在用；1000 以上的特殊通道不参与。
func CompactReallocate(objs *object.Collection, channels *level.ColorChannelSet, kind object.IDKind, ignored []Span) error {
	lo, hi := kind.Bounds()
	for i, s := range ignored {
		if s.Start < lo || s.End < s.Start || s.End > hi {
			return ErrInvalidRange.WithData("reason", "bad ignored span").WithData("index", i).
				WithData("start", s.Start).WithData("end", s.End)
		}
	}
	used := make([]int, 0)
	for _, u := range Usage(objs, channels, kind) {
		used = append(used, int(u.ID))
	}
	for _, r := range Plan(used, ignored) {
		applyRange(objs, channels, r, kind)
	}
	return nil
}

// IDUsage 是一个 id 被对象引用的次数；颜色通道存在但无人引用时 Count 为 0。
type IDUsage struct {
	ID    int16 `json:"id"`
	Count int   `json:"count"`
}

// Usage 统计 kind 类 id 的使用情况，按 id 升序，只包含可迁移范围内的 id。
func Usage(objs *object.Collection, channels *level.ColorChannelSet, kind object.IDKind) []IDUsage {
	lo, hi := kind.Bounds()
	counts := make(map[int16]int)
	if objs != nil {
		for _, o := range objs.All() {
			o.ForEachID(kind, func(id *int16) {
				if int(*id) >= lo && int(*id) <= hi {
					counts[*id]++
				}
			})
		}
	}
	if kind == object.KindColor && channels != nil {
		for _, id := range channels.IDs() {
			if int(id) >= lo && int(id) <= hi {
				if _, ok := counts[id]; !ok {
					counts[id] = 0
				}
			}
		}
	}
	out := make([]IDUsage, 0, len(counts))
	for _, id := range slices.Sorted(maps.Keys(counts)) {
		out = append(out, IDUsage{ID: id, Count: counts[id]})
	}
	return out
}
