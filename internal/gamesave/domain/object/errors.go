package object

import (
	"LevelVault/internal/gamesave/domain/wire"
	"LevelVault/modules/kit/errx"
)

const (
	CodeUnknownProperty errx.Code = "SAVE_UNKNOWN_PROPERTY"
	CodePropertyType    errx.Code = "SAVE_PROPERTY_TYPE"
)

var (
	// ErrMalformedWire 与 wire 包共用同一错误码。
	ErrMalformedWire = wire.ErrMalformedWire
	// ErrUnknownProperty 只用于诊断汇总，不会让解码失败。
	ErrUnknownProperty = errx.NewBiz(CodeUnknownProperty, "存在未登记的属性键")
	ErrPropertyType    = errx.NewBiz(CodePropertyType, "属性值类型不匹配")
)
