package app

import (
	"LevelVault/internal/gamesave/domain/archive"
	"LevelVault/modules/kit/errx"
)

// Code 表示应用层错误码，接口层按它映射 HTTP 状态。
type Code = errx.Code

const (
	CodeLevelNotFound    Code = "SAVE_LEVEL_NOT_FOUND"
	CodeSaveNotOpen      Code = "SAVE_NOT_OPEN"
	CodeUnsavedChanges   Code = "SAVE_UNSAVED_CHANGES"
	CodeSnapshotNotFound Code = archive.CodeSnapshotNotFound
	// CodeInternalServer 复用 kit 的统一系统码。
	CodeInternalServer Code = errx.CodeInternal
	CodeUnavailable    Code = errx.CodeUnavailable
)

// Error 复用通用错误模型。
type Error = errx.Error

func NewError(code Code, msg string) *Error {
	return errx.NewBiz(code, msg)
}

func Wrap(code Code, msg string, cause error) *Error {
	return errx.NewSys(code, msg).WithCause(cause)
}

// 哨兵错误：通过 WithData/WithCause 派生，不要直接改。
var (
	ErrLevelNotFound    = errx.NewBiz(CodeLevelNotFound, "关卡不存在")
	ErrSaveNotOpen      = errx.NewBiz(CodeSaveNotOpen, "存档尚未打开")
	ErrUnsavedChanges   = errx.NewBiz(CodeUnsavedChanges, "存在未保存的关卡修改")
	ErrSnapshotNotFound = archive.ErrSnapshotNotFound
	ErrReqParam         = errx.ErrReqParamERR
	ErrInternalServer   = errx.ErrInternal
	ErrUnavailable      = errx.ErrUnavailable
)
