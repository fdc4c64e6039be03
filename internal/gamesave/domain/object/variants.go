package object

import "slices"

// Variant 是对象的具体类别，决定它拥有哪些属性与引用能力。
type Variant uint8

const (
	VariantGeneric Variant = iota
	VariantSpeedPortal
	VariantGamemodePortal
	VariantOrb
	VariantPad
	VariantLegacyColorTrigger
	VariantText
	VariantCollisionBlock
	VariantItemDisplay
	VariantColorTrigger
	VariantMoveTrigger
	VariantPulseTrigger
	VariantAlphaTrigger
	VariantToggleTrigger
	VariantSpawnTrigger
	VariantRotateTrigger
	VariantFollowTrigger
	VariantStopTrigger
	VariantAnimateTrigger
	VariantTouchTrigger
	VariantCountTrigger
	VariantInstantCountTrigger
	VariantPickupTrigger
	VariantCollisionTrigger
	VariantOnDeathTrigger

	variantCount
)

// Capability 标记变体持有哪些可迁移的引用字段。
type Capability uint16

const (
	CapTargetGroup    Capability = 1 << iota // 51 作为组
	CapSecondaryGroup                        // 71
	CapTargetColor                           // 23
	CapCopiedColor                           // 50
	CapPulseTarget                           // 51 视 52 决定是组还是颜色
	CapItem                                  // 80 作为 item
	CapBlockA                                // 80 作为 block
	CapBlockB                                // 95
)

func (c Capability) Has(flag Capability) bool { return c&flag != 0 }

type variantInfo struct {
	name    string
	caps    Capability
	trigger bool
}

var variantInfos = [variantCount]variantInfo{
	VariantGeneric:             {name: "generic"},
	VariantSpeedPortal:         {name: "speed_portal"},
	VariantGamemodePortal:      {name: "gamemode_portal"},
	VariantOrb:                 {name: "orb"},
	VariantPad:                 {name: "pad"},
	VariantLegacyColorTrigger:  {name: "legacy_color_trigger", trigger: true},
	VariantText:                {name: "text"},
	VariantCollisionBlock:      {name: "collision_block", caps: CapBlockA},
	VariantItemDisplay:         {name: "item_display", caps: CapItem},
	VariantColorTrigger:        {name: "color_trigger", caps: CapTargetColor | CapCopiedColor, trigger: true},
	VariantMoveTrigger:         {name: "move_trigger", caps: CapTargetGroup | CapSecondaryGroup, trigger: true},
	VariantPulseTrigger:        {name: "pulse_trigger", caps: CapPulseTarget | CapCopiedColor, trigger: true},
	VariantAlphaTrigger:        {name: "alpha_trigger", caps: CapTargetGroup, trigger: true},
	VariantToggleTrigger:       {name: "toggle_trigger", caps: CapTargetGroup, trigger: true},
	VariantSpawnTrigger:        {name: "spawn_trigger", caps: CapTargetGroup, trigger: true},
	VariantRotateTrigger:       {name: "rotate_trigger", caps: CapTargetGroup | CapSecondaryGroup, trigger: true},
	VariantFollowTrigger:       {name: "follow_trigger", caps: CapTargetGroup | CapSecondaryGroup, trigger: true},
	VariantStopTrigger:         {name: "stop_trigger", caps: CapTargetGroup, trigger: true},
	VariantAnimateTrigger:      {name: "animate_trigger", caps: CapTargetGroup, trigger: true},
	VariantTouchTrigger:        {name: "touch_trigger", caps: CapTargetGroup, trigger: true},
	VariantCountTrigger:        {name: "count_trigger", caps: CapTargetGroup | CapItem, trigger: true},
	VariantInstantCountTrigger: {name: "instant_count_trigger", caps: CapTargetGroup | CapItem, trigger: true},
	VariantPickupTrigger:       {name: "pickup_trigger", caps: CapItem, trigger: true},
	VariantCollisionTrigger:    {name: "collision_trigger", caps: CapTargetGroup | CapBlockA | CapBlockB, trigger: true},
	VariantOnDeathTrigger:      {name: "on_death_trigger", caps: CapTargetGroup, trigger: true},
}

func (v Variant) String() string {
	if v >= variantCount {
		return "unknown"
	}
	return variantInfos[v].name
}

func (v Variant) Caps() Capability {
	if v >= variantCount {
		return 0
	}
	return variantInfos[v].caps
}

func (v Variant) IsTrigger() bool {
	return v < variantCount && variantInfos[v].trigger
}

// Variants 返回全部已注册变体，按枚举顺序。
func Variants() []Variant {
	out := make([]Variant, 0, variantCount)
	for v := Variant(0); v < variantCount; v++ {
		out = append(out, v)
	}
	return out
}

var exactTypes = map[int16]Variant{
	914:  VariantText,
	1816: VariantCollisionBlock,
	1615: VariantItemDisplay,
	899:  VariantColorTrigger,
	901:  VariantMoveTrigger,
	1006: VariantPulseTrigger,
	1007: VariantAlphaTrigger,
	1049: VariantToggleTrigger,
	1268: VariantSpawnTrigger,
	1346: VariantRotateTrigger,
	1347: VariantFollowTrigger,
	1616: VariantStopTrigger,
	1585: VariantAnimateTrigger,
	1595: VariantTouchTrigger,
	1611: VariantCountTrigger,
	1811: VariantInstantCountTrigger,
	1817: VariantPickupTrigger,
	1815: VariantCollisionTrigger,
	1812: VariantOnDeathTrigger,
}

// legacyColorChannels 旧版固定通道颜色触发器 → 它们隐式修改的通道。
var legacyColorChannels = map[int16]int16{
	29:  1000, // BG
	30:  1001, // G1
	104: 1002, // Line
	105: 1004, // Obj
	221: 1,
	717: 2,
	718: 3,
	743: 4,
	744: 1003, // 3DL
	900: 1009, // G2
	915: 1002, // 2.0 的 Line
}

// LegacyFixedChannel 返回旧版颜色触发器隐式指向的通道。该通道不在线上，不参与迁移。
func LegacyFixedChannel(typeID int16) (int16, bool) {
	ch, ok := legacyColorChannels[typeID]
	return ch, ok
}

type family struct {
	variant Variant
	match   func(typeID int16) bool
}

func oneOf(ids ...int16) func(int16) bool {
	return func(id int16) bool { return slices.Contains(ids, id) }
}

// families 在精确表未命中时按顺序尝试。
var families = []family{
	{VariantSpeedPortal, oneOf(200, 201, 202, 203, 1334)},
	{VariantGamemodePortal, oneOf(12, 13, 47, 111, 660, 745, 1331, 1933, 45, 46, 99, 101, 286, 287)},
	{VariantOrb, oneOf(36, 84, 141, 1022, 1330, 1333, 1594, 1704, 1751)},
	{VariantPad, oneOf(35, 67, 140, 1332, 3005)},
	{VariantLegacyColorTrigger, func(id int16) bool { _, ok := legacyColorChannels[id]; return ok }},
}
