package transport

import (
	"context"
	"time"

	"go.uber.org/zap"

	"LevelVault/modules/kit/logx"
	"LevelVault/modules/kit/tracex"
)

// AccessLog 是请求级日志上下文，HTTP 与 WS 推送共用。
type AccessLog struct {
	Status      int
	ErrorCode   string
	ErrorReason string
	LevelIndex  int
	startTime   time.Time
	action      string
}

type accessLogKey struct{}

// NewContextWithParent 创建带 AccessLog 的 context，保留父 context 的取消信号。
func NewContextWithParent(parent context.Context, action, span string) context.Context {
	ctx := parent
	if ctx == nil {
		ctx = context.Background()
	}
	if action == "" {
		action = "unknown"
	}
	ctx = tracex.Ensure(ctx, span)

	al := &AccessLog{
		Status:     500,
		LevelIndex: -1,
		startTime:  time.Now(),
		action:     action,
	}
	return context.WithValue(ctx, accessLogKey{}, al)
}

func FromContext(ctx context.Context) *AccessLog {
	if ctx == nil {
		return nil
	}
	al, _ := ctx.Value(accessLogKey{}).(*AccessLog)
	return al
}

func SetStatus(ctx context.Context, status int) {
	if al := FromContext(ctx); al != nil {
		al.Status = status
	}
}

// SetError 记录失败的错误码与原因，空值忽略。
func SetError(ctx context.Context, code, reason string) {
	al := FromContext(ctx)
	if al == nil {
		return
	}
	if code != "" {
		al.ErrorCode = code
	}
	if reason != "" {
		al.ErrorReason = reason
	}
}

// SetLevelIndex 标记本次请求操作的关卡下标，方便按关卡检索日志。
func SetLevelIndex(ctx context.Context, index int) {
	if al := FromContext(ctx); al != nil {
		al.LevelIndex = index
	}
}

// WriteAccessLog 输出访问日志，在中间件收尾时调用。
func WriteAccessLog(ctx context.Context, log logx.Logger) {
	al := FromContext(ctx)
	if al == nil || log == nil {
		return
	}

	fields := []zap.Field{
		zap.Duration("latency", time.Since(al.startTime)),
	}
	if al.LevelIndex >= 0 {
		fields = append(fields, zap.Int("level_index", al.LevelIndex))
	}
	if al.Status < 400 {
		fields = append(fields, zap.String("result", "success"))
	} else {
		fields = append(fields, zap.String("result", "failure"))
		if al.ErrorCode != "" {
			fields = append(fields, zap.String("error_code", al.ErrorCode))
		}
		if al.ErrorReason != "" {
			fields = append(fields, zap.String("error_reason", al.ErrorReason))
		}
	}
	logx.ReportAccessWithLoggerContext(ctx, log, al.action, al.Status, fields...)
}
