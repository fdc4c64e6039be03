package migrate

import (
	"errors"
	"math/rand/v2"
	"slices"
	"testing"

	"LevelVault/internal/gamesave/domain/level"
	"LevelVault/internal/gamesave/domain/object"
)

var reg = object.NewRegistry()

func blockWithGroups(col *object.Collection, groups ...int16) *object.Object {
	o := reg.New(1)
	o.Groups = groups
	col.Add(o)
	return o
}

func TestApplyRanges_单点平移(t *testing.T) {
	col := object.NewCollection(reg)
	o := blockWithGroups(col, 5, 6)
	move := reg.New(901)
	move.Ext().TargetID = 5
	move.Ext().SecondaryID = 6
	col.Add(move)

	if err := ApplyRanges(col, nil, []Range{{SourceStart: 5, SourceEnd: 5, TargetStart: 8}}, object.KindGroup); err != nil {
		t.Fatalf("迁移失败: %v", err)
	}
	if !slices.Equal(o.Groups, object.IDList{8, 6}) {
		t.Fatalf("组列表不对: %v", o.Groups)
	}
	if move.Ext().TargetID != 8 || move.Ext().SecondaryID != 6 {
		t.Fatalf("触发器引用不对: %d %d", move.Ext().TargetID, move.Ext().SecondaryID)
	}
	if col.GroupCount(5) != 0 || col.GroupCount(8) != 1 {
		t.Fatalf("组聚合没有同步: %v", col.GroupCounts())
	}
}

func TestApplyRanges_按列表顺序(t *testing.T) {
	col := object.NewCollection(reg)
	a := blockWithGroups(col, 5)
	b := blockWithGroups(col, 8)
	ranges := []Range{
		{SourceStart: 5, SourceEnd: 5, TargetStart: 8},
		{SourceStart: 8, SourceEnd: 8, TargetStart: 10},
	}
	if err := ApplyRanges(col, nil, ranges, object.KindGroup); err != nil {
		t.Fatalf("迁移失败: %v", err)
	}
	if a.Groups[0] != 10 || b.Groups[0] != 10 {
		t.Fatalf("后一个区间应作用在前一个的结果上: %v %v", a.Groups, b.Groups)
	}
}

func TestApplyRanges_零差值与非法区间(t *testing.T) {
	col := object.NewCollection(reg)
	o := blockWithGroups(col, 5)
	v := col.Version()
	if err := ApplyRanges(col, nil, []Range{{SourceStart: 1, SourceEnd: 10, TargetStart: 1}}, object.KindGroup); err != nil {
		t.Fatalf("零差值不应报错: %v", err)
	}
	if col.Version() != v {
		t.Fatalf("零差值应是空操作")
	}

	cases := []Range{
		{SourceStart: 0, SourceEnd: 3, TargetStart: 1},
		{SourceStart: 7, SourceEnd: 3, TargetStart: 1},
		{SourceStart: 1, SourceEnd: 3, TargetStart: 9998},
		{SourceStart: 1, SourceEnd: 10000, TargetStart: 1},
	}
	for _, bad := range cases {
		err := ApplyRanges(col, nil, []Range{{SourceStart: 5, SourceEnd: 5, TargetStart: 8}, bad}, object.KindGroup)
		if !errors.Is(err, ErrInvalidRange) {
			t.Fatalf("区间 %+v 应报 ErrInvalidRange, err=%v", bad, err)
		}
		if o.Groups[0] != 5 {
			t.Fatalf("非法输入时不应有任何修改")
		}
	}
	if err := ApplyRanges(col, nil, []Range{{SourceStart: 1, SourceEnd: 5, TargetStart: 995}}, object.KindColor); err != nil {
		t.Fatalf("颜色窗口在 999 内应合法: %v", err)
	}
	if err := ApplyRanges(col, nil, []Range{{SourceStart: 1, SourceEnd: 5, TargetStart: 996}}, object.KindColor); !errors.Is(err, ErrInvalidRange) {
		t.Fatalf("颜色目标越过 999 应非法")
	}
}

func TestApplyRanges_未知类别panic(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("未知 id 类别应 panic")
		}
	}()
	_ = ApplyRanges(object.NewCollection(reg), nil, nil, object.IDKind(99))
}

func TestApplyRanges_颜色通道随迁移搬动(t *testing.T) {
	col := object.NewCollection(reg)
	o := reg.New(1)
	o.MainColor = 2
	o.DetailColor = 1000
	col.Add(o)

	channels := level.NewColorChannelSet()
	c1 := level.NewColorChannel(1)
	c1.CopiedID = 2
	channels.Set(c1)
	c2 := level.NewColorChannel(2)
	c2.Red = 7
	channels.Set(c2)
	bg := level.NewColorChannel(1000)
	bg.CopiedID = 2
	channels.Set(bg)

	if err := ApplyRanges(col, channels, []Range{{SourceStart: 2, SourceEnd: 2, TargetStart: 5}}, object.KindColor); err != nil {
		t.Fatalf("迁移失败: %v", err)
	}
	if o.MainColor != 5 || o.DetailColor != 1000 {
		t.Fatalf("对象颜色不对: %d %d", o.MainColor, o.DetailColor)
	}
	if _, ok := channels.Get(2); ok {
		t.Fatalf("旧位置应被清空")
	}
	if c5, ok := channels.Get(5); !ok || c5.Red != 7 || c5.ID != 5 {
		t.Fatalf("通道记录应搬到新位置: %+v", c5)
	}
	if c, _ := channels.Get(1); c.CopiedID != 5 {
		t.Fatalf("复制来源应同步改写: %d", c.CopiedID)
	}
	if c, _ := channels.Get(1000); c.CopiedID != 5 {
		t.Fatalf("特殊通道的复制来源也应改写")
	}
}

func TestApplyRanges_重叠区间以快照为准(t *testing.T) {
	channels := level.NewColorChannelSet()
	for id := int16(1); id <= 3; id++ {
		c := level.NewColorChannel(id)
		c.Red = uint8(id)
		if id > 1 {
			c.CopiedID = id - 1
		}
		channels.Set(c)
	}
	if err := ApplyRanges(nil, channels, []Range{{SourceStart: 1, SourceEnd: 3, TargetStart: 2}}, object.KindColor); err != nil {
		t.Fatalf("迁移失败: %v", err)
	}
	if !slices.Equal(channels.IDs(), []int16{2, 3, 4}) {
		t.Fatalf("通道位置不对: %v", channels.IDs())
	}
	for id := int16(2); id <= 4; id++ {
		c, _ := channels.Get(id)
		if int16(c.Red) != id-1 {
			t.Fatalf("通道 %d 内容被覆盖: red=%d", id, c.Red)
		}
		if id > 2 && c.CopiedID != id-1 {
			t.Fatalf("通道 %d 复制来源不对: %d", id, c.CopiedID)
		}
	}
}

func groupsOf(col *object.Collection) []int16 {
	var out []int16
	for _, o := range col.All() {
		out = append(out, o.Groups[0])
	}
	return out
}

func TestCompactReallocate_基本用例(t *testing.T) {
	build := func() *object.Collection {
		col := object.NewCollection(reg)
		for _, g := range []int16{7, 3, 9, 3} {
			blockWithGroups(col, g)
		}
		return col
	}

	col := build()
	if err := CompactReallocate(col, nil, object.KindGroup, nil); err != nil {
		t.Fatalf("压缩失败: %v", err)
	}
	if got := groupsOf(col); !slices.Equal(got, []int16{2, 1, 3, 1}) {
		t.Fatalf("{3,7,9} 应变为 {1,2,3}: %v", got)
	}

	col = build()
	if err := CompactReallocate(col, nil, object.KindGroup, []Span{{Start: 1, End: 1}}); err != nil {
		t.Fatalf("压缩失败: %v", err)
	}
	if got := groupsOf(col); !slices.Equal(got, []int16{3, 2, 4, 2}) {
		t.Fatalf("忽略 [1,1] 后应从 2 开始: %v", got)
	}

	if err := CompactReallocate(col, nil, object.KindGroup, []Span{{Start: 5, End: 2}}); !errors.Is(err, ErrInvalidRange) {
		t.Fatalf("非法忽略区间应报错")
	}
}

func TestCompactReallocate_颜色通道计入在用(t *testing.T) {
	col := object.NewCollection(reg)
	o := reg.New(1)
	o.MainColor = 9
	col.Add(o)
	channels := level.NewColorChannelSet()
	channels.Set(level.NewColorChannel(4))
	channels.Set(level.NewColorChannel(9))
	channels.Set(level.NewColorChannel(1001))

	usage := Usage(col, channels, object.KindColor)
	if len(usage) != 2 || usage[0] != (IDUsage{ID: 4}) || usage[1] != (IDUsage{ID: 9, Count: 1}) {
		t.Fatalf("使用统计不对: %+v", usage)
	}
	if err := CompactReallocate(col, channels, object.KindColor, nil); err != nil {
		t.Fatalf("压缩失败: %v", err)
	}
	if o.MainColor != 2 || !slices.Equal(channels.IDs(), []int16{1, 2, 1001}) {
		t.Fatalf("颜色压缩不对: main=%d ids=%v", o.MainColor, channels.IDs())
	}
}

func TestCompactReallocate_随机性质(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	for round := range 300 {
		col := object.NewCollection(reg)
		n := 1 + rng.IntN(30)
		for range n {
			blockWithGroups(col, int16(1+rng.IntN(60)))
		}
		var ignored []Span
		for range rng.IntN(4) {
			s := 1 + rng.IntN(60)
			ignored = append(ignored, Span{Start: s, End: s + rng.IntN(6)})
		}
		before := groupsOf(col)
		if err := CompactReallocate(col, nil, object.KindGroup, ignored); err != nil {
			t.Fatalf("第 %d 轮压缩失败: %v", round, err)
		}
		after := groupsOf(col)
		spans := mergeSpans(ignored)

		for i := range before {
			wasIgnored := inSpans(spans, int(before[i]))
			if wasIgnored && after[i] != before[i] {
				t.Fatalf("第 %d 轮: 忽略区间内的 id %d 被改成 %d", round, before[i], after[i])
			}
			if !wasIgnored && inSpans(spans, int(after[i])) {
				t.Fatalf("第 %d 轮: 目标 %d 落在忽略区间 %v", round, after[i], spans)
			}
			if after[i] > before[i] {
				t.Fatalf("第 %d 轮: 压缩不应增大 id (%d -> %d)", round, before[i], after[i])
			}
			for j := range before {
				if inSpans(spans, int(before[i])) || inSpans(spans, int(before[j])) {
					continue
				}
				if (before[i] < before[j]) != (after[i] < after[j]) || (before[i] == before[j]) != (after[i] == after[j]) {
					t.Fatalf("第 %d 轮: 相对顺序被打乱 %v -> %v", round, before, after)
				}
			}
		}
		// 结果应是最小的若干个非忽略 id
		var moved []int
		for i := range after {
			if !inSpans(spans, int(before[i])) {
				moved = append(moved, int(after[i]))
			}
		}
		slices.Sort(moved)
		moved = slices.Compact(moved)
		want := 1
		for _, id := range moved {
			for inSpans(spans, want) {
				want++
			}
			if id != want {
				t.Fatalf("第 %d 轮: 结果不紧凑 %v (ignored=%v)", round, moved, spans)
			}
			want++
		}
	}
}

func TestPlan_合并忽略区间(t *testing.T) {
	plan := Plan([]int{2, 6, 10}, []Span{{Start: 3, End: 4}, {Start: 1, End: 1}, {Start: 4, End: 5}})
	want := []Range{{SourceStart: 10, SourceEnd: 10, TargetStart: 7}}
	if !slices.Equal(plan, want) {
		t.Fatalf("方案不对: %+v", plan)
	}
}
