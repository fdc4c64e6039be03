package object

import (
	"maps"
	"math/rand/v2"
	"slices"
	"testing"
)

func rescan(c *Collection) (types, groups map[int16]int, triggers int) {
	types, groups = map[int16]int{}, map[int16]int{}
	for _, o := range c.All() {
		types[o.TypeID()]++
		for _, g := range o.Groups {
			if g != 0 {
				groups[g]++
			}
		}
		if o.IsTrigger() {
			triggers++
		}
	}
	return types, groups, triggers
}

func assertAggregates(t *testing.T, c *Collection, step int) {
	t.Helper()
	types, groups, triggers := rescan(c)
	if !maps.Equal(types, c.TypeCounts()) {
		t.Fatalf("step %d: 类型计数不一致 got=%v want=%v", step, c.TypeCounts(), types)
	}
	if !maps.Equal(groups, c.GroupCounts()) {
		t.Fatalf("step %d: 组计数不一致 got=%v want=%v", step, c.GroupCounts(), groups)
	}
	if triggers != c.TriggerCount() {
		t.Fatalf("step %d: 触发器数量不一致 got=%d want=%d", step, c.TriggerCount(), triggers)
	}
}

func TestCollection_随机增删后聚合与全量扫描一致(t *testing.T) {
	reg := NewRegistry()
	c := NewCollection(reg)
	rng := rand.New(rand.NewPCG(7, 11))
	types := []int16{1, 1, 8, 899, 901, 1006, 1611, 914, 200}

	for step := 0; step < 2000; step++ {
		switch op := rng.IntN(10); {
		case op < 5:
			o := reg.New(types[rng.IntN(len(types))])
			for n := rng.IntN(4); n > 0; n-- {
				o.Groups = append(o.Groups, int16(rng.IntN(6)))
			}
			c.Insert(rng.IntN(c.Len()+1), o)
		case op < 8 && c.Len() > 0:
			c.RemoveAt(rng.IntN(c.Len()))
		case op < 9 && c.Len() > 0:
			c.Mutate(c.At(rng.IntN(c.Len())), func(o *Object) {
				o.Groups = IDList{int16(rng.IntN(6) + 1)}
			})
		case op == 9 && rng.IntN(20) == 0:
			c.Clear()
		}
		assertAggregates(t, c, step)
	}
}

func TestCollection_重复加入与移除不存在对象(t *testing.T) {
	reg := NewRegistry()
	c := NewCollection(reg)
	o := reg.New(1)
	if !c.Add(o) || c.Add(o) {
		t.Fatalf("同一对象只能加入一次")
	}
	if c.Remove(reg.New(1)) {
		t.Fatalf("移除不在集合中的对象应返回 false")
	}
	v := c.Version()
	c.Remove(o)
	if c.Len() != 0 || c.Version() == v {
		t.Fatalf("移除后长度或版本未更新")
	}
}

func TestCollection_可用与公共属性键延迟折叠(t *testing.T) {
	reg := NewRegistry()
	c := NewCollection(reg)
	if c.CommonKeys() != nil {
		t.Fatalf("空集合公共键应为 nil")
	}
	generic := reg.New(1)
	move := reg.New(901)
	c.Add(generic)
	c.Add(move)

	if got, want := c.CommonKeys(), reg.Keys(VariantGeneric); !slices.Equal(got, want) {
		t.Fatalf("公共键应等于基础属性\n got=%v\nwant=%v", got, want)
	}
	if got, want := c.AvailableKeys(), reg.Keys(VariantMoveTrigger); !slices.Equal(got, want) {
		t.Fatalf("可用键应等于移动触发器的全部键\n got=%v\nwant=%v", got, want)
	}

	// 已折叠对象移除后立即反映
	c.Remove(generic)
	if got := c.CommonKeys(); !slices.Contains(got, 51) {
		t.Fatalf("只剩移动触发器时公共键应包含 51, got=%v", got)
	}
	// 未折叠对象直接从 dirty 中移除
	text := reg.New(914)
	c.Add(text)
	c.Remove(text)
	if got, want := c.AvailableKeys(), reg.Keys(VariantMoveTrigger); !slices.Equal(got, want) {
		t.Fatalf("移除未折叠对象后可用键不应变化 got=%v", got)
	}
}

func TestCollection_WithinRect同时检查两条Y边界(t *testing.T) {
	reg := NewRegistry()
	c := NewCollection(reg)
	at := func(x, y float32) *Object {
		o := reg.New(1)
		o.X, o.Y = x, y
		c.Add(o)
		return o
	}
	in := at(15, 15)
	edge := at(30, 30)
	at(15, 31) // 上方越界
	at(15, -1) // 下方越界
	at(31, 15)

	got := c.WithinRect(Rect{MinX: 0, MinY: 0, MaxX: 30, MaxY: 30})
	if len(got) != 2 || got[0] != in || got[1] != edge {
		t.Fatalf("选区过滤错误, got %d 个", len(got))
	}
}

func TestForEachID_按能力位访问引用字段(t *testing.T) {
	reg := NewRegistry()

	pulse := reg.New(1006)
	pulse.MainColor = 3
	pulse.Ext().TargetID = 12
	pulse.Ext().CopiedColor = 4
	if got := pulse.IDs(KindColor); !slices.Equal(got, []int16{3, 4, 12}) {
		t.Fatalf("脉冲目标为通道时应计入颜色, got=%v", got)
	}
	if got := pulse.IDs(KindGroup); len(got) != 0 {
		t.Fatalf("脉冲目标为通道时不应计入组, got=%v", got)
	}
	pulse.Ext().PulseTargetsGroup = true
	if got := pulse.IDs(KindGroup); !slices.Equal(got, []int16{12}) {
		t.Fatalf("脉冲目标为组时应计入组, got=%v", got)
	}

	col := reg.New(1815)
	col.Ext().ItemID = 2
	col.Ext().BlockB = 5
	col.Ext().TargetID = 9
	if got := col.IDs(KindBlock); !slices.Equal(got, []int16{2, 5}) {
		t.Fatalf("碰撞触发器 block 引用错误, got=%v", got)
	}
	if got := col.IDs(KindItem); len(got) != 0 {
		t.Fatalf("碰撞触发器不应有 item 引用, got=%v", got)
	}

	counter := reg.New(1611)
	counter.Ext().ItemID = 6
	counter.ForEachID(KindItem, func(id *int16) { *id = 8 })
	if counter.Ext().ItemID != 8 {
		t.Fatalf("ForEachID 应允许原地改写")
	}

	defer func() {
		if recover() == nil {
			t.Fatalf("未知 id 类别应 panic")
		}
	}()
	counter.ForEachID(IDKind(42), func(*int16) {})
}
