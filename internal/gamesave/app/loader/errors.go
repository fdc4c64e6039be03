package loader

import "LevelVault/modules/kit/errx"

const CodeLoadFailed errx.Code = "SAVE_LEVEL_LOAD_FAILED"

// ErrLoadFailed 单个关卡正文解码失败，cause 是具体原因。
var ErrLoadFailed = errx.NewBiz(CodeLoadFailed, "关卡正文加载失败")
