package wire

import (
	"errors"

	"LevelVault/modules/kit/errx"
)

// CodeMalformedWire 文本不符合存档语法：括号不闭合、缺分隔符等。
const CodeMalformedWire errx.Code = "SAVE_MALFORMED_WIRE"

var ErrMalformedWire = errx.NewBiz(CodeMalformedWire, "存档格式损坏")

func malformed(reason string, offset int) error {
	return ErrMalformedWire.WithData("reason", reason).WithData("offset", offset)
}

func rebase(err error, base int) error {
	var e *errx.Error
	if base == 0 || !errors.As(err, &e) {
		return err
	}
	if off, ok := e.Data()["offset"].(int); ok {
		return e.WithData("offset", base+off)
	}
	return err
}
