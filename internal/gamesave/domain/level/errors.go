package level

import "LevelVault/modules/kit/errx"

const (
	CodeLevelPinned      errx.Code = "SAVE_LEVEL_PINNED"
	CodePayloadNotLoaded errx.Code = "SAVE_PAYLOAD_NOT_LOADED"
	CodeCipher           errx.Code = "SAVE_CIPHER_FAILED"
)

var (
	// ErrPinned 被钉住的关卡不能驱逐。
	ErrPinned           = errx.NewBiz(CodeLevelPinned, "关卡已被钉住")
	ErrPayloadNotLoaded = errx.NewBiz(CodePayloadNotLoaded, "关卡正文未加载")
	ErrCipher           = errx.NewSys(CodeCipher, "正文加解密失败")
)
