package actors

import "LevelVault/modules/kit/errx"

const CodeSessionNotFound errx.Code = "SAVE_SESSION_NOT_FOUND"

var ErrSessionNotFound = errx.NewBiz(CodeSessionNotFound, "编辑会话不存在")
