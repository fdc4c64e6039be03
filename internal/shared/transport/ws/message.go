package ws

type ReqBody struct {
	Seq  int64  `json:"seq"`
	Name string `json:"name"`
	Msg  any    `json:"msg"`
}

// RespBody 服务端主动推送时 Seq 为 0。
type RespBody struct {
	Seq  int64  `json:"seq"`
	Name string `json:"name"`
	Code string `json:"code"`
	Msg  any    `json:"msg"`
}

type WsMsgReq struct {
	Body *ReqBody
	Conn Conn
}

type WsMsgResp struct {
	Body *RespBody
}

// Conn 是一条推送连接。
type Conn interface {
	SetProperty(key string, value any)
	GetProperty(key string) any
	Addr() string
	Push(name string, data any) bool
	Close()
	// Done 连接关闭时被关闭
	Done() <-chan struct{}
}

type Heartbeat struct {
	CTime int64 `json:"ctime" mapstructure:"ctime"`
	STime int64 `json:"stime" mapstructure:"stime"`
}

const (
	HeartbeatMsg = "heartbeat"

	CodeOK           = "OK"
	CodeInvalidParam = "CODE_REQ_PARAM_ERROR"
	CodeNoRoute      = "WS_NO_ROUTE"
)
