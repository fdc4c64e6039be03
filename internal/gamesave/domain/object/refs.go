package object

import "fmt"

// ForEachID 对对象上每个 kind 类引用字段调用 fn，fn 可以原地改写。
// 值为 0 的字段表示“未引用”，跳过。哪些字段参与由变体的能力位决定。
func (o *Object) ForEachID(kind IDKind, fn func(id *int16)) {
	visit := func(p *int16) {
		if *p != 0 {
			fn(p)
		}
	}
	caps := o.variant.Caps()
	switch kind {
	case KindGroup:
		for i := range o.Groups {
			visit(&o.Groups[i])
		}
		if o.ext == nil {
			return
		}
		if caps.Has(CapTargetGroup) || (caps.Has(CapPulseTarget) && o.ext.PulseTargetsGroup) {
			visit(&o.ext.TargetID)
		}
		if caps.Has(CapSecondaryGroup) {
			visit(&o.ext.SecondaryID)
		}
	case KindColor:
		visit(&o.MainColor)
		visit(&o.DetailColor)
		if o.ext == nil {
			return
		}
		if caps.Has(CapTargetColor) {
			visit(&o.ext.TargetColor)
		}
		if caps.Has(CapCopiedColor) {
			visit(&o.ext.CopiedColor)
		}
		if caps.Has(CapPulseTarget) && !o.ext.PulseTargetsGroup {
			visit(&o.ext.TargetID)
		}
	case KindItem:
		if o.ext != nil && caps.Has(CapItem) {
			visit(&o.ext.ItemID)
		}
	case KindBlock:
		if o.ext == nil {
			return
		}
		if caps.Has(CapBlockA) {
			visit(&o.ext.ItemID)
		}
		if caps.Has(CapBlockB) {
			visit(&o.ext.BlockB)
		}
	default:
		panic(fmt.Sprintf("object: unknown id kind %d", kind))
	}
}

// IDs 返回对象上 kind 类引用的当前值（可能重复）。
func (o *Object) IDs(kind IDKind) []int16 {
	var out []int16
	o.ForEachID(kind, func(id *int16) { out = append(out, *id) })
	return out
}

// Rect 是编辑器选区，四条边都参与判断，边界包含在内。
type Rect struct {
	MinX, MinY float32
	MaxX, MaxY float32
}

func (r Rect) Contains(x, y float32) bool {
	return x >= r.MinX && x <= r.MaxX && y >= r.MinY && y <= r.MaxY
}
