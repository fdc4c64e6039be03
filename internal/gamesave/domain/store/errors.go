package store

import "LevelVault/modules/kit/errx"

const (
	CodeLevelSkipped errx.Code = "SAVE_LEVEL_SKIPPED"
	CodeFileCipher   errx.Code = "SAVE_FILE_CIPHER_FAILED"
	CodeIndexRange   errx.Code = "SAVE_INDEX_OUT_OF_RANGE"
	CodeLevelExists  errx.Code = "SAVE_LEVEL_EXISTS"
)

var (
	// ErrLevelSkipped 单个关卡信封损坏，已跳过，其余关卡照常可用。
	ErrLevelSkipped = errx.NewBiz(CodeLevelSkipped, "关卡记录损坏已跳过")
	ErrFileCipher   = errx.NewSys(CodeFileCipher, "存档文件解密失败")
	ErrIndexRange   = errx.NewBiz(CodeIndexRange, "关卡下标越界")
	ErrLevelExists  = errx.NewBiz(CodeLevelExists, "关卡已在存档中")
)
