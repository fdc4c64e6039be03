package object

import (
	"iter"
	"maps"
	"slices"
)

// Collection 是有序对象列表，并维护增量聚合：按类型计数、按组计数、触发器数量。
// 聚合在每次增删时同步更新；只有“可用/公共属性键”投影通过 dirty 列表延迟折叠。
// 不是并发安全的，由持有它的关卡负责串行化访问。
type Collection struct {
	reg   *Registry
	items []*Object
	index map[*Object]struct{}

	typeCounts  map[int16]int
	groupCounts map[int16]int
	triggers    int

	// keyRefs[k] = 已折叠对象中变体声明了键 k 的数量
	keyRefs map[int]int
	folded  int
	dirty   []*Object

	version uint64
}

func NewCollection(reg *Registry) *Collection {
	return &Collection{
		reg:         reg,
		index:       make(map[*Object]struct{}),
		typeCounts:  make(map[int16]int),
		groupCounts: make(map[int16]int),
		keyRefs:     make(map[int]int),
	}
}

func (c *Collection) Registry() *Registry { return c.reg }

func (c *Collection) Len() int { return len(c.items) }

func (c *Collection) At(i int) *Object { return c.items[i] }

// All 按顺序遍历。
func (c *Collection) All() iter.Seq2[int, *Object] {
	return func(yield func(int, *Object) bool) {
		for i, o := range c.items {
			if !yield(i, o) {
				return
			}
		}
	}
}

// Version 每次结构或属性变更都会递增，用来判断是否需要回写。
func (c *Collection) Version() uint64 { return c.version }

func (c *Collection) Contains(o *Object) bool {
	_, ok := c.index[o]
	return ok
}

// Add 追加到末尾；同一个对象不能重复加入。
func (c *Collection) Add(o *Object) bool {
	return c.Insert(len(c.items), o)
}

func (c *Collection) Insert(i int, o *Object) bool {
	if o == nil || c.Contains(o) {
		return false
	}
	i = min(max(i, 0), len(c.items))
	c.items = slices.Insert(c.items, i, o)
	c.index[o] = struct{}{}
	c.count(o, 1)
	c.dirty = append(c.dirty, o)
	c.version++
	return true
}

func (c *Collection) Remove(o *Object) bool {
	if !c.Contains(o) {
		return false
	}
	c.RemoveAt(slices.Index(c.items, o))
	return true
}

func (c *Collection) RemoveAt(i int) *Object {
	o := c.items[i]
	c.items = slices.Delete(c.items, i, i+1)
	delete(c.index, o)
	c.count(o, -1)
	if j := slices.Index(c.dirty, o); j >= 0 {
		c.dirty = slices.Delete(c.dirty, j, j+1)
	} else {
		c.fold(o, -1)
	}
	c.version++
	return o
}

func (c *Collection) Clear() {
	if len(c.items) == 0 {
		return
	}
	c.items = nil
	clear(c.index)
	clear(c.typeCounts)
	clear(c.groupCounts)
	clear(c.keyRefs)
	c.triggers = 0
	c.folded = 0
	c.dirty = nil
	c.version++
}

// Mutate 是修改已加入对象的唯一入口：先撤销它的聚合贡献，执行 fn，再重新计入。
// 对象不在集合中时直接执行 fn。
func (c *Collection) Mutate(o *Object, fn func(*Object)) {
	if !c.Contains(o) {
		fn(o)
		return
	}
	c.count(o, -1)
	fn(o)
	c.count(o, 1)
	c.version++
}

// Touch 标记外部已修改了不影响聚合的属性（坐标、颜色等）。
func (c *Collection) Touch() { c.version++ }

func (c *Collection) count(o *Object, delta int) {
	addCount(c.typeCounts, o.typeID, delta)
	for _, g := range o.Groups {
		if g != 0 {
			addCount(c.groupCounts, g, delta)
		}
	}
	if o.IsTrigger() {
		c.triggers += delta
	}
}

func (c *Collection) fold(o *Object, delta int) {
	for _, k := range c.reg.Keys(o.variant) {
		addCount(c.keyRefs, k, delta)
	}
	c.folded += delta
}

func (c *Collection) flushDirty() {
	for _, o := range c.dirty {
		c.fold(o, 1)
	}
	c.dirty = c.dirty[:0]
}

func addCount[K comparable](m map[K]int, k K, delta int) {
	n := m[k] + delta
	if n <= 0 {
		delete(m, k)
		return
	}
	m[k] = n
}

func (c *Collection) TypeCount(typeID int16) int { return c.typeCounts[typeID] }

func (c *Collection) GroupCount(group int16) int { return c.groupCounts[group] }

func (c *Collection) TriggerCount() int { return c.triggers }

// TypeCounts 返回副本。
func (c *Collection) TypeCounts() map[int16]int { return maps.Clone(c.typeCounts) }

func (c *Collection) GroupCounts() map[int16]int { return maps.Clone(c.groupCounts) }

// AvailableKeys 任一对象可编辑的属性键，升序。
func (c *Collection) AvailableKeys() []int {
	c.flushDirty()
	return slices.Sorted(maps.Keys(c.keyRefs))
}

// CommonKeys 所有对象都可编辑的属性键，升序；空集合返回 nil。
func (c *Collection) CommonKeys() []int {
	c.flushDirty()
	if c.folded == 0 {
		return nil
	}
	var out []int
	for k, n := range c.keyRefs {
		if n == c.folded {
			out = append(out, k)
		}
	}
	slices.Sort(out)
	return out
}

// WithinRect 返回坐标落在选区内的对象，保持原顺序。
func (c *Collection) WithinRect(r Rect) []*Object {
	var out []*Object
	for _, o := range c.items {
		if r.Contains(o.X, o.Y) {
			out = append(out, o)
		}
	}
	return out
}

// Clone 深拷贝全部对象并重建聚合。
func (c *Collection) Clone() *Collection {
	out := NewCollection(c.reg)
	for _, o := range c.items {
		out.Add(o.Clone())
	}
	return out
}
