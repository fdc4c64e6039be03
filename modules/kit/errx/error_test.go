package errx

import (
	"errors"
	"fmt"
	"testing"
)

func TestError_Is_只按code比较语义(t *testing.T) {
	e1 := NewBiz("SAVE_X", "x").WithData("level", 1).WithCause(errors.New("cause1"))
	e2 := NewBiz("SAVE_X", "x2").WithData("level", 2).WithCause(errors.New("cause2"))
	if !errors.Is(e1, e2) {
		t.Fatalf("期望 errors.Is(e1, e2)==true（只按 code 判断语义），e1=%v e2=%v", e1, e2)
	}
}

func TestError_业务错误不捕获栈_但保留cause链(t *testing.T) {
	cause := errors.New("unexpected eof")
	err := NewBiz("SAVE_MALFORMED_WIRE", "格式错误").WithCause(cause)
	if got := err.Stack(); got != nil {
		t.Fatalf("期望业务错误不捕获栈，got=%v", got)
	}
	if !errors.Is(err, cause) {
		t.Fatalf("期望 cause 链不丢，err=%v", err)
	}
	if err.IsSys() {
		t.Fatalf("期望业务错误 IsSys()==false")
	}
}

func TestError_系统错误捕获一次栈_且不重复捕获(t *testing.T) {
	cause := errors.New("mongo timeout")
	sys := NewSys("SYS_ARCHIVE_UNAVAILABLE", "归档不可用").WithCause(cause)
	if got := sys.Stack(); len(got) == 0 {
		t.Fatalf("期望系统错误捕获栈，got=%v", got)
	}

	sys2 := NewSys("SYS_EXPORT_FAIL", "导出失败").WithCause(sys)
	if got := sys2.Stack(); got != nil {
		t.Fatalf("期望上层系统错误不重复捕获栈，got=%v", got)
	}
}

func TestError_Data_防止外部map污染(t *testing.T) {
	m := map[string]any{"k": "v"}
	err := NewBiz("SAVE_X", "").WithDataMap(m)
	m["k"] = "mutated"
	if got := err.Data()["k"]; got != "v" {
		t.Fatalf("期望构造时复制 data；got=%v", got)
	}
	derived := ErrReqParamERR.WithData("a", 1)
	if ErrReqParamERR.Data() != nil || derived.Data()["a"] != 1 {
		t.Fatalf("期望哨兵错误不被 WithData 污染")
	}
}

func TestCodeOf_穿透fmt包装(t *testing.T) {
	err := fmt.Errorf("outer: %w", ErrTimeout.WithData("level", 3))
	if got := CodeOf(err); got != CodeTimeout {
		t.Fatalf("期望 CodeOf=%s, got=%s", CodeTimeout, got)
	}
	if got := CodeOf(errors.New("plain")); got != "" {
		t.Fatalf("期望普通错误 CodeOf 为空, got=%s", got)
	}
}
