package logx

import (
	"context"

	"go.uber.org/zap"
)

// Logger 是存档引擎各组件注入用的最小日志接口。
//
// 约束：
// - 领域包（object/level/store/loader/migrate）只依赖这个接口，不直接碰全局 logger
// - 只承载结构化字段和 ctx 透传（trace/span）
type Logger interface {
	Info(msg string, fields ...zap.Field)
	Error(msg string, fields ...zap.Field)
	Debug(msg string, fields ...zap.Field)
	Warn(msg string, fields ...zap.Field)
	WithContext(ctx context.Context) Logger
}

// Nop 返回丢弃所有输出的 Logger，测试和未配置日志时使用。
func Nop() Logger {
	return NewZapLogger(nil)
}

// OrNop 在 l 为 nil 时回退到 Nop。
func OrNop(l Logger) Logger {
	if l == nil {
		return Nop()
	}
	return l
}
