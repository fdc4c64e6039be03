package errx

// 通用系统类错误码。
//
// 约束：
// - 这里只放与具体存档结构无关的码（I/O、依赖、参数）
// - 存档语义相关的码（MALFORMED_WIRE、INVALID_RANGE 等）由各领域包自己定义

const (
	// CodeInternal 兜底的内部错误。
	CodeInternal Code = "INTERNAL_ERROR"
	// CodeUnavailable 依赖不可用（Mongo/MySQL/文件系统）。
	CodeUnavailable Code = "SERVICE_UNAVAILABLE"
	// CodeTimeout 等待超时（例如等待某个关卡解码完成）。
	CodeTimeout Code = "TIMEOUT"
	// CodeCanceled 调用方取消。
	CodeCanceled Code = "CANCELED"
	// CodeReqParamError 请求参数错误。
	CodeReqParamError Code = "CODE_REQ_PARAM_ERROR"
)

var (
	ErrInternal    = NewSys(CodeInternal, "内部错误")
	ErrUnavailable = NewSys(CodeUnavailable, "依赖不可用")
	ErrTimeout     = NewSys(CodeTimeout, "等待超时")
	ErrCanceled    = NewBiz(CodeCanceled, "操作已取消")
	ErrReqParamERR = NewBiz(CodeReqParamError, "请求参数错误")
)
