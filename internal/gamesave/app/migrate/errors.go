package migrate

import "LevelVault/modules/kit/errx"

const CodeInvalidRange errx.Code = "SAVE_INVALID_RANGE"

// ErrInvalidRange 区间参数不一致，整批迁移都不会执行。
var ErrInvalidRange = errx.NewBiz(CodeInvalidRange, "迁移区间非法")
