package object

import (
	"reflect"
	"slices"
)

// Object 是关卡里的一个放置物。TypeID 与 Variant 在构造后不可变，其余属性随时可改。
// 只有声明了扩展属性的变体才会分配 ext。
type Object struct {
	typeID  int16
	variant Variant

	X        float32
	Y        float32
	FlipX    bool
	FlipY    bool
	Rotation float32
	Scale    float32

	MainColor   int16
	DetailColor int16
	ZLayer      int8
	ZOrder      int16

	EditorLayer1 int16
	EditorLayer2 int16

	Groups      IDList
	GroupParent bool

	DontFade   bool
	DontEnter  bool
	NoGlow     bool
	HighDetail bool

	MainHSVEnabled   bool
	DetailHSVEnabled bool
	MainHSV          HSV
	DetailHSV        HSV

	ext *Extension
	// extra 是注册表里没有的键值对，按出现顺序原样保留，编码时排在已登记的键之后。
	extra []Pair
}

// Extension 汇总所有变体私有的属性，各变体只读写自己声明的那部分。
type Extension struct {
	// 触发方式
	TouchTriggered bool
	SpawnTriggered bool
	MultiTrigger   bool

	TargetID      int16 // 51：多数触发器是目标组，脉冲触发器视 PulseTargetsGroup 而定
	SecondaryID   int16 // 71：跟随/旋转的参照组
	ActivateGroup bool  // 56

	// 颜色
	Red          uint8
	Green        uint8
	Blue         uint8
	Duration     float32
	TargetColor  int16
	Opacity      float32
	Blending     bool
	PlayerColor1 bool
	PlayerColor2 bool
	CopiedColor  int16
	CopiedHSV    HSV
	CopyOpacity  bool
	TintGround   bool

	// 移动 / 旋转 / 跟随
	MoveX       int16
	MoveY       int16
	Easing      uint8
	EasingRate  float32
	LockPlayerX bool
	LockPlayerY bool
	Degrees     int16
	Times360    int16
	LockRotate  bool
	FollowXMod  float32
	FollowYMod  float32

	// 脉冲
	FadeIn            float32
	Hold              float32
	FadeOut           float32
	PulseHSVMode      bool
	PulseTargetsGroup bool
	MainOnly          bool
	DetailOnly        bool

	SpawnDelay  float32
	AnimationID int16

	// 触摸
	HoldMode   bool
	ToggleMode uint8
	DualMode   bool

	// 计数 / 拾取 / 碰撞
	ItemID        int16 // 80：计数类是 item id，碰撞类是 block A
	BlockB        int16 // 95
	Count         int16 // 77
	CompareMode   uint8 // 88
	SubtractCount bool  // 78
	TriggerOnExit bool  // 93
	Dynamic       bool  // 94
	MultiActivate bool  // 99
	PortalChecked bool  // 13
	Text          string
}

func (o *Object) TypeID() int16 { return o.typeID }

func (o *Object) Variant() Variant { return o.variant }

// Ext 对通用变体返回 nil。
func (o *Object) Ext() *Extension { return o.ext }

func (o *Object) IsTrigger() bool { return o.variant.IsTrigger() }

func (o *Object) Has(c Capability) bool { return o.variant.Caps().Has(c) }

// Clone 深拷贝，分组列表与扩展属性不共享底层内存。
func (o *Object) Clone() *Object {
	cp := *o
	cp.Groups = o.Groups.Clone()
	cp.extra = slices.Clone(o.extra)
	if o.ext != nil {
		ext := *o.ext
		cp.ext = &ext
	}
	return &cp
}

// Extra 返回未登记键值对的副本。
func (o *Object) Extra() []Pair { return slices.Clone(o.extra) }

// Equal 逐属性比较（含未登记键值对），空列表与 nil 视为相同。
func (o *Object) Equal(other *Object) bool {
	if o == nil || other == nil {
		return o == other
	}
	if !slices.Equal(o.Groups, other.Groups) || !slices.Equal(o.extra, other.extra) {
		return false
	}
	a, b := *o, *other
	a.Groups, b.Groups = nil, nil
	a.extra, b.extra = nil, nil
	return reflect.DeepEqual(a, b)
}
