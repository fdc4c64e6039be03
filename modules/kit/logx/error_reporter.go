package logx

import (
	"errors"
	"fmt"
	"runtime"
	"strings"

	"go.uber.org/multierr"
)

const (
	maxCauseDepth = 20
	maxFrames     = 32
	// maxMembers 聚合错误最多展开的条数，整份存档损坏时避免一条日志过大。
	maxMembers = 16
)

// ErrorLog 是一条错误拆开后的可读形态。
type ErrorLog struct {
	Error      string
	Code       string
	Msg        string
	Reason     string
	Data       map[string]any
	CauseChain []string
	// Members 是 multierr 聚合里的各条错误（跳过的关卡、批量加载失败的关卡），
	// 单个错误时为空。
	Members []string
	// Omitted 是超出 maxMembers 未展开的条数。
	Omitted int
	Origin  string
	Stack   string
}

// BuildErrorLog 从错误里提取 code/msg/data/reason/cause 链/聚合成员/首次抓栈位置。
// 聚合错误的 code 等字段取第一条能提供该字段的成员。
func BuildErrorLog(err error) ErrorLog {
	if err == nil {
		return ErrorLog{}
	}
	out := ErrorLog{Error: err.Error()}

	if v, ok := find[interface{ CodeText() string }](err); ok {
		out.Code = v.CodeText()
	}
	if v, ok := find[interface{ Msg() string }](err); ok {
		out.Msg = v.Msg()
	}
	if v, ok := find[interface{ Data() map[string]any }](err); ok {
		out.Data = v.Data()
	}
	if v, ok := find[interface{ Reason() string }](err); ok {
		out.Reason = v.Reason()
	}
	if v, ok := find[interface{ Stack() []uintptr }](err); ok {
		out.Origin, out.Stack = formatStack(v.Stack())
	}

	if members := multierr.Errors(err); len(members) > 1 {
		n := min(len(members), maxMembers)
		out.Members = make([]string, 0, n)
		for _, m := range members[:n] {
			out.Members = append(out.Members, m.Error())
		}
		out.Omitted = len(members) - n
	}
	out.CauseChain = causeChain(err)
	return out
}

func find[T any](err error) (T, bool) {
	var v T
	ok := errors.As(err, &v)
	return v, ok
}

// causeChain 沿单链 Unwrap 展开；聚合错误的成员由 Members 负责。
func causeChain(err error) []string {
	var out []string
	for cur := errors.Unwrap(err); cur != nil && len(out) < maxCauseDepth; cur = errors.Unwrap(cur) {
		out = append(out, fmt.Sprintf("%T: %v", cur, cur))
	}
	return out
}

func formatStack(pcs []uintptr) (origin string, stack string) {
	if len(pcs) == 0 {
		return "", ""
	}
	frames := runtime.CallersFrames(pcs)
	lines := make([]string, 0, 8)
	for len(lines) < maxFrames {
		f, more := frames.Next()
		if f.Function == "" && f.File == "" && f.Line == 0 {
			break
		}
		lines = append(lines, fmt.Sprintf("%s %s:%d", f.Function, f.File, f.Line))
		if !more {
			break
		}
	}
	if len(lines) == 0 {
		return "", ""
	}
	return lines[0], strings.Join(lines, "\n")
}
