package handler

import (
	"context"
	"errors"
	"net/http"

	"LevelVault/internal/gamesave/actors"
	"LevelVault/internal/gamesave/app"
	"LevelVault/internal/gamesave/app/loader"
	"LevelVault/internal/gamesave/app/migrate"
	"LevelVault/internal/gamesave/domain/level"
	"LevelVault/internal/gamesave/domain/object"
	"LevelVault/internal/gamesave/domain/store"
	"LevelVault/internal/gamesave/domain/wire"
	"LevelVault/modules/kit/errx"
	"LevelVault/modules/kit/logx"
)

const sysBusyMsg = "系统繁忙，请稍后重试"

func statusOf(code errx.Code) int {
	switch code {
	case app.CodeLevelNotFound, app.CodeSnapshotNotFound, actors.CodeSessionNotFound:
		return http.StatusNotFound
	case app.CodeSaveNotOpen, app.CodeUnavailable:
		return http.StatusServiceUnavailable
	case app.CodeUnsavedChanges, level.CodeLevelPinned, store.CodeLevelExists:
		return http.StatusConflict
	case errx.CodeReqParamError, migrate.CodeInvalidRange, store.CodeIndexRange,
		wire.CodeMalformedWire, object.CodeUnknownProperty, object.CodePropertyType:
		return http.StatusBadRequest
	case loader.CodeLoadFailed:
		return http.StatusUnprocessableEntity
	case errx.CodeTimeout:
		return http.StatusGatewayTimeout
	case errx.CodeCanceled:
		// nginx 的 499
		return 499
	default:
		return http.StatusInternalServerError
	}
}

// HandleError 把错误映射成 HTTP 状态与对外的 code/msg，并在这里打一次日志。
// 系统类错误不把内部信息透出给客户端。
func HandleError(ctx context.Context, l logx.Logger, action string, err error) (status int, code string, msg string) {
	code = string(errx.CodeOf(err))
	if code == "" {
		code = string(app.CodeInternalServer)
	}
	status = statusOf(errx.Code(code))

	el := logx.BuildErrorLog(err)
	var xe *errx.Error
	if errors.As(err, &xe) && !xe.IsSys() {
		logx.ReportBizWithLoggerContext(ctx, l, logx.NewBizLog(action, el.Reason, el.Msg))
		return status, code, xe.Msg()
	}
	logx.ReportSysErrorWithLoggerContext(ctx, l, logx.NewSysLog(action, err))
	return status, code, sysBusyMsg
}
