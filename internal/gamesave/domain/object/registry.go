package object

import (
	"fmt"
	"slices"
)

// Registry 持有每个变体的静态属性表，进程启动时构建一次，显式传给编解码器。
type Registry struct {
	tables [variantCount][]*Descriptor
	byKey  [variantCount]map[int]*Descriptor
	keys   [variantCount][]int
	hasExt [variantCount]bool
}

// NewRegistry 构建属性表；同一变体内键重复属于编程错误，直接 panic。
func NewRegistry() *Registry {
	r := &Registry{}
	base := baseProps()
	for v := Variant(0); v < variantCount; v++ {
		own := variantProps(v)
		all := make([]*Descriptor, 0, len(base)+len(own))
		all = append(all, base...)
		all = append(all, own...)
		slices.SortFunc(all, func(a, b *Descriptor) int { return a.Key - b.Key })

		byKey := make(map[int]*Descriptor, len(all))
		keys := make([]int, 0, len(all))
		for _, d := range all {
			if _, dup := byKey[d.Key]; dup {
				panic(fmt.Sprintf("object: duplicate key %d in variant %s", d.Key, v))
			}
			byKey[d.Key] = d
			keys = append(keys, d.Key)
		}
		r.tables[v] = all
		r.byKey[v] = byKey
		r.keys[v] = keys
		r.hasExt[v] = len(own) > 0
	}
	return r
}

// Resolve 精确表 → 启发式家族 → 通用变体。
func (r *Registry) Resolve(typeID int16) Variant {
	if v, ok := exactTypes[typeID]; ok {
		return v
	}
	for _, f := range families {
		if f.match(typeID) {
			return f.variant
		}
	}
	return VariantGeneric
}

// New 按类型构造对象，所有属性置为声明的默认值。
func (r *Registry) New(typeID int16) *Object {
	v := r.Resolve(typeID)
	o := &Object{typeID: typeID, variant: v}
	if r.hasExt[v] {
		o.ext = &Extension{}
	}
	for _, d := range r.tables[v] {
		d.reset(o)
	}
	return o
}

// Properties 按键升序返回变体的属性表，调用方不可修改。
func (r *Registry) Properties(v Variant) []*Descriptor {
	if v >= variantCount {
		return nil
	}
	return r.tables[v]
}

func (r *Registry) Lookup(v Variant, key int) (*Descriptor, bool) {
	if v >= variantCount {
		return nil, false
	}
	d, ok := r.byKey[v][key]
	return d, ok
}

// Keys 按升序返回变体声明的键。
func (r *Registry) Keys(v Variant) []int {
	if v >= variantCount {
		return nil
	}
	return r.keys[v]
}

func baseProps() []*Descriptor {
	return []*Descriptor{
		floatProp(2, "x", 0, func(o *Object) *float32 { return &o.X }),
		floatProp(3, "y", 0, func(o *Object) *float32 { return &o.Y }),
		boolProp(4, "flip_x", false, func(o *Object) *bool { return &o.FlipX }),
		boolProp(5, "flip_y", false, func(o *Object) *bool { return &o.FlipY }),
		floatProp(6, "rotation", 0, func(o *Object) *float32 { return &o.Rotation }),
		int16Prop(20, "editor_layer_1", 0, func(o *Object) *int16 { return &o.EditorLayer1 }),
		int16Prop(21, "main_color", 0, func(o *Object) *int16 { return &o.MainColor }),
		int16Prop(22, "detail_color", 0, func(o *Object) *int16 { return &o.DetailColor }),
		int8Prop(24, "z_layer", 0, func(o *Object) *int8 { return &o.ZLayer }),
		int16Prop(25, "z_order", 0, func(o *Object) *int16 { return &o.ZOrder }),
		floatProp(32, "scale", 1, func(o *Object) *float32 { return &o.Scale }),
		boolProp(34, "group_parent", false, func(o *Object) *bool { return &o.GroupParent }),
		boolProp(41, "main_hsv_enabled", false, func(o *Object) *bool { return &o.MainHSVEnabled }),
		boolProp(42, "detail_hsv_enabled", false, func(o *Object) *bool { return &o.DetailHSVEnabled }),
		hsvProp(43, "main_hsv", func(o *Object) *HSV { return &o.MainHSV }),
		hsvProp(44, "detail_hsv", func(o *Object) *HSV { return &o.DetailHSV }),
		idListProp(57, "groups", func(o *Object) *IDList { return &o.Groups }),
		int16Prop(61, "editor_layer_2", 0, func(o *Object) *int16 { return &o.EditorLayer2 }),
		boolProp(64, "dont_fade", false, func(o *Object) *bool { return &o.DontFade }),
		boolProp(67, "dont_enter", false, func(o *Object) *bool { return &o.DontEnter }),
		boolProp(96, "no_glow", false, func(o *Object) *bool { return &o.NoGlow }),
		boolProp(103, "high_detail", false, func(o *Object) *bool { return &o.HighDetail }),
	}
}

// 触发器共有的触发方式。
func triggerProps() []*Descriptor {
	return []*Descriptor{
		boolProp(11, "touch_triggered", false, func(o *Object) *bool { return &o.ext.TouchTriggered }),
		boolProp(62, "spawn_triggered", false, func(o *Object) *bool { return &o.ext.SpawnTriggered }),
		boolProp(87, "multi_trigger", false, func(o *Object) *bool { return &o.ext.MultiTrigger }),
	}
}

func rgbProps() []*Descriptor {
	return []*Descriptor{
		uint8Prop(7, "red", 255, func(o *Object) *uint8 { return &o.ext.Red }),
		uint8Prop(8, "green", 255, func(o *Object) *uint8 { return &o.ext.Green }),
		uint8Prop(9, "blue", 255, func(o *Object) *uint8 { return &o.ext.Blue }),
	}
}

func durationProp() *Descriptor {
	return floatProp(10, "duration", 0.5, func(o *Object) *float32 { return &o.ext.Duration })
}

func targetProp(name string) *Descriptor {
	return int16Prop(51, name, 0, func(o *Object) *int16 { return &o.ext.TargetID })
}

func secondaryProp() *Descriptor {
	return int16Prop(71, "secondary_group", 0, func(o *Object) *int16 { return &o.ext.SecondaryID })
}

func activateProp() *Descriptor {
	return boolProp(56, "activate_group", false, func(o *Object) *bool { return &o.ext.ActivateGroup })
}

func easingProps() []*Descriptor {
	return []*Descriptor{
		uint8Prop(30, "easing", 0, func(o *Object) *uint8 { return &o.ext.Easing }),
		floatProp(85, "easing_rate", 2, func(o *Object) *float32 { return &o.ext.EasingRate }),
	}
}

func itemProp(name string) *Descriptor {
	return int16Prop(80, name, 0, func(o *Object) *int16 { return &o.ext.ItemID })
}

func countProp() *Descriptor {
	return int16Prop(77, "count", 0, func(o *Object) *int16 { return &o.ext.Count })
}

func portalCheckedProp() *Descriptor {
	return boolProp(13, "checked", false, func(o *Object) *bool { return &o.ext.PortalChecked })
}

func variantProps(v Variant) []*Descriptor {
	var ps []*Descriptor
	if v.IsTrigger() {
		ps = append(ps, triggerProps()...)
	}
	switch v {
	case VariantSpeedPortal, VariantGamemodePortal:
		ps = append(ps, portalCheckedProp())
	case VariantOrb:
		ps = append(ps, boolProp(99, "multi_activate", false, func(o *Object) *bool { return &o.ext.MultiActivate }))
	case VariantText:
		ps = append(ps, textProp(31, "text", func(o *Object) *string { return &o.ext.Text }))
	case VariantCollisionBlock:
		ps = append(ps,
			itemProp("block_id"),
			boolProp(94, "dynamic", false, func(o *Object) *bool { return &o.ext.Dynamic }),
		)
	case VariantItemDisplay:
		ps = append(ps, itemProp("item_id"))
	case VariantLegacyColorTrigger:
		ps = append(ps, rgbProps()...)
		ps = append(ps,
			durationProp(),
			boolProp(15, "player_color_1", false, func(o *Object) *bool { return &o.ext.PlayerColor1 }),
			boolProp(16, "player_color_2", false, func(o *Object) *bool { return &o.ext.PlayerColor2 }),
			boolProp(17, "blending", false, func(o *Object) *bool { return &o.ext.Blending }),
		)
	case VariantColorTrigger:
		ps = append(ps, rgbProps()...)
		ps = append(ps,
			durationProp(),
			boolProp(14, "tint_ground", false, func(o *Object) *bool { return &o.ext.TintGround }),
			boolProp(15, "player_color_1", false, func(o *Object) *bool { return &o.ext.PlayerColor1 }),
			boolProp(16, "player_color_2", false, func(o *Object) *bool { return &o.ext.PlayerColor2 }),
			boolProp(17, "blending", false, func(o *Object) *bool { return &o.ext.Blending }),
			int16Prop(23, "target_color", 1, func(o *Object) *int16 { return &o.ext.TargetColor }),
			floatProp(35, "opacity", 1, func(o *Object) *float32 { return &o.ext.Opacity }),
			hsvProp(49, "copied_hsv", func(o *Object) *HSV { return &o.ext.CopiedHSV }),
			int16Prop(50, "copied_color", 0, func(o *Object) *int16 { return &o.ext.CopiedColor }),
			boolProp(60, "copy_opacity", false, func(o *Object) *bool { return &o.ext.CopyOpacity }),
		)
	case VariantMoveTrigger:
		ps = append(ps, easingProps()...)
		ps = append(ps,
			durationProp(),
			int16Prop(28, "move_x", 0, func(o *Object) *int16 { return &o.ext.MoveX }),
			int16Prop(29, "move_y", 0, func(o *Object) *int16 { return &o.ext.MoveY }),
			targetProp("target_group"),
			boolProp(58, "lock_player_x", false, func(o *Object) *bool { return &o.ext.LockPlayerX }),
			boolProp(59, "lock_player_y", false, func(o *Object) *bool { return &o.ext.LockPlayerY }),
			secondaryProp(),
		)
	case VariantPulseTrigger:
		ps = append(ps, rgbProps()...)
		ps = append(ps,
			floatProp(45, "fade_in", 0, func(o *Object) *float32 { return &o.ext.FadeIn }),
			floatProp(46, "hold", 0, func(o *Object) *float32 { return &o.ext.Hold }),
			floatProp(47, "fade_out", 0, func(o *Object) *float32 { return &o.ext.FadeOut }),
			boolProp(48, "hsv_mode", false, func(o *Object) *bool { return &o.ext.PulseHSVMode }),
			hsvProp(49, "copied_hsv", func(o *Object) *HSV { return &o.ext.CopiedHSV }),
			int16Prop(50, "copied_color", 0, func(o *Object) *int16 { return &o.ext.CopiedColor }),
			targetProp("target_id"),
			boolProp(52, "target_is_group", false, func(o *Object) *bool { return &o.ext.PulseTargetsGroup }),
			boolProp(65, "main_only", false, func(o *Object) *bool { return &o.ext.MainOnly }),
			boolProp(66, "detail_only", false, func(o *Object) *bool { return &o.ext.DetailOnly }),
		)
	case VariantAlphaTrigger:
		ps = append(ps,
			durationProp(),
			floatProp(35, "opacity", 1, func(o *Object) *float32 { return &o.ext.Opacity }),
			targetProp("target_group"),
		)
	case VariantToggleTrigger, VariantOnDeathTrigger:
		ps = append(ps, targetProp("target_group"), activateProp())
	case VariantSpawnTrigger:
		ps = append(ps,
			targetProp("target_group"),
			floatProp(63, "delay", 0, func(o *Object) *float32 { return &o.ext.SpawnDelay }),
		)
	case VariantRotateTrigger:
		ps = append(ps, easingProps()...)
		ps = append(ps,
			durationProp(),
			targetProp("target_group"),
			int16Prop(68, "degrees", 0, func(o *Object) *int16 { return &o.ext.Degrees }),
			int16Prop(69, "times_360", 0, func(o *Object) *int16 { return &o.ext.Times360 }),
			boolProp(70, "lock_rotation", false, func(o *Object) *bool { return &o.ext.LockRotate }),
			secondaryProp(),
		)
	case VariantFollowTrigger:
		ps = append(ps,
			durationProp(),
			targetProp("target_group"),
			secondaryProp(),
			floatProp(72, "x_mod", 1, func(o *Object) *float32 { return &o.ext.FollowXMod }),
			floatProp(73, "y_mod", 1, func(o *Object) *float32 { return &o.ext.FollowYMod }),
		)
	case VariantStopTrigger:
		ps = append(ps, targetProp("target_group"))
	case VariantAnimateTrigger:
		ps = append(ps,
			targetProp("target_group"),
			int16Prop(76, "animation_id", 0, func(o *Object) *int16 { return &o.ext.AnimationID }),
		)
	case VariantTouchTrigger:
		ps = append(ps,
			targetProp("target_group"),
			boolProp(81, "hold_mode", false, func(o *Object) *bool { return &o.ext.HoldMode }),
			uint8Prop(82, "toggle_mode", 0, func(o *Object) *uint8 { return &o.ext.ToggleMode }),
			boolProp(89, "dual_mode", false, func(o *Object) *bool { return &o.ext.DualMode }),
		)
	case VariantCountTrigger:
		ps = append(ps,
			targetProp("target_group"),
			activateProp(),
			countProp(),
			itemProp("item_id"),
			boolProp(104, "multi_activate", false, func(o *Object) *bool { return &o.ext.MultiActivate }),
		)
	case VariantInstantCountTrigger:
		ps = append(ps,
			targetProp("target_group"),
			activateProp(),
			countProp(),
			itemProp("item_id"),
			uint8Prop(88, "compare_mode", 0, func(o *Object) *uint8 { return &o.ext.CompareMode }),
		)
	case VariantPickupTrigger:
		ps = append(ps,
			countProp(),
			boolProp(78, "subtract_count", false, func(o *Object) *bool { return &o.ext.SubtractCount }),
			itemProp("item_id"),
		)
	case VariantCollisionTrigger:
		ps = append(ps,
			targetProp("target_group"),
			activateProp(),
			itemProp("block_a"),
			boolProp(93, "trigger_on_exit", false, func(o *Object) *bool { return &o.ext.TriggerOnExit }),
			int16Prop(95, "block_b", 0, func(o *Object) *int16 { return &o.ext.BlockB }),
		)
	}
	return ps
}
