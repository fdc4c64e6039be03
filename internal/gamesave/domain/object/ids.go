package object

import "fmt"

// IDKind 是可迁移的引用 id 类别。
type IDKind uint8

const (
	KindGroup IDKind = iota + 1
	KindColor
	KindItem
	KindBlock
)

const (
	MaxGroupID = 9999
	MaxItemID  = 9999
	MaxBlockID = 9999
	// MaxColorID 以上是 BG/G1/Line 等特殊通道，不参与迁移。
	MaxColorID = 999
	// SpecialColorBase 特殊颜色通道起点（1000 = BG）。
	SpecialColorBase = 1000
)

func (k IDKind) Valid() bool {
	return k >= KindGroup && k <= KindBlock
}

// Bounds 返回可迁移 id 的闭区间。未知类别是调用方的编程错误，直接 panic。
func (k IDKind) Bounds() (lo, hi int) {
	switch k {
	case KindGroup:
		return 1, MaxGroupID
	case KindColor:
		return 1, MaxColorID
	case KindItem:
		return 1, MaxItemID
	case KindBlock:
		return 1, MaxBlockID
	}
	panic(fmt.Sprintf("object: unknown id kind %d", k))
}

func (k IDKind) String() string {
	switch k {
	case KindGroup:
		return "group"
	case KindColor:
		return "color"
	case KindItem:
		return "item"
	case KindBlock:
		return "block"
	default:
		return fmt.Sprintf("IDKind(%d)", k)
	}
}

// ParseIDKind 供 HTTP/CLI 入参使用。
func ParseIDKind(s string) (IDKind, bool) {
	switch s {
	case "group", "groups":
		return KindGroup, true
	case "color", "colors":
		return KindColor, true
	case "item", "items":
		return KindItem, true
	case "block", "blocks":
		return KindBlock, true
	}
	return 0, false
}
