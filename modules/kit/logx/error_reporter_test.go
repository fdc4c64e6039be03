package logx

import (
	"context"
	"errors"
	"testing"

	"LevelVault/modules/kit/errx"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestBuildErrorLog_能提取语义与栈(t *testing.T) {
	cause := errors.New("disk full")
	e := errx.NewSys("SYS_EXPORT_FAIL", "导出失败").
		WithData("level", 3).
		WithCause(cause)

	meta := BuildErrorLog(e)
	if meta.Error == "" || meta.Code == "" || meta.Msg == "" {
		t.Fatalf("期望 Error/Code/Msg 非空, got=%+v", meta)
	}
	if meta.Data == nil || meta.Data["level"] != 3 {
		t.Fatalf("期望 meta.Data 包含 level=3, got=%v", meta.Data)
	}
	if len(meta.CauseChain) == 0 {
		t.Fatalf("期望 meta.CauseChain 非空")
	}
	if meta.Origin == "" || meta.Stack == "" {
		t.Fatalf("期望 Origin/Stack 非空 origin=%q stack=%q", meta.Origin, meta.Stack)
	}
}

func TestReportSysError_输出ERROR并带错误码(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := NewZapLogger(zap.New(core))

	err := errx.ErrUnavailable.WithCause(errors.New("mongo down"))
	ReportSysErrorWithLoggerContext(context.Background(), l, NewSysLog("archive_save", err))

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("期望 1 条日志, got=%d", len(entries))
	}
	if entries[0].Level != zapcore.ErrorLevel {
		t.Fatalf("期望 ERROR 级别, got=%v", entries[0].Level)
	}
	if got := entries[0].ContextMap()["error_code"]; got != string(errx.CodeUnavailable) {
		t.Fatalf("期望 error_code=%s, got=%v", errx.CodeUnavailable, got)
	}
}

func TestReportBiz_输出WARN(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := NewZapLogger(zap.New(core))

	ReportBizWithLoggerContext(context.Background(), l, NewBizLog("level_skip", "MALFORMED", "k_3"))
	entries := logs.All()
	if len(entries) != 1 || entries[0].Level != zapcore.WarnLevel {
		t.Fatalf("期望 1 条 WARN 日志, got=%v", entries)
	}
}

func TestBuildErrorLog_展开聚合错误(t *testing.T) {
	var agg error
	for i := range maxMembers + 2 {
		agg = multierr.Append(agg, errx.NewBiz("SAVE_MALFORMED_WIRE", "关卡格式损坏").WithData("index", i))
	}

	meta := BuildErrorLog(agg)
	if len(meta.Members) != maxMembers || meta.Omitted != 2 {
		t.Fatalf("期望展开 %d 条且省略 2 条, got members=%d omitted=%d", maxMembers, len(meta.Members), meta.Omitted)
	}
	if meta.Code != "SAVE_MALFORMED_WIRE" {
		t.Fatalf("期望取到成员的错误码, got=%q", meta.Code)
	}
	if len(meta.CauseChain) != 0 {
		t.Fatalf("聚合错误不应再展开 cause 链, got=%v", meta.CauseChain)
	}

	single := BuildErrorLog(errors.New("one"))
	if len(single.Members) != 0 {
		t.Fatalf("单个错误不应有 Members, got=%v", single.Members)
	}
}
