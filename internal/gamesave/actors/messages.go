package actors

import (
	"LevelVault/internal/gamesave/app/migrate"
	"LevelVault/internal/gamesave/domain/object"
)

// openSession 由 manager 处理：钉住关卡并创建会话 actor。
type openSession struct {
	Index int
}

type sessionOpened struct {
	ID  string
	Err error
}

// sessionRequest 路由到 ID 对应的会话 actor。
type sessionRequest struct {
	ID   string
	Body any
}

type migrateBody struct {
	Kind   object.IDKind
	Ranges []migrate.Range
}

type compactBody struct {
	Kind    object.IDKind
	Ignored []migrate.Span
}

type usageBody struct {
	Kind object.IDKind
}

type closeBody struct{}

type reply struct {
	Usage []migrate.IDUsage
	Info  SessionInfo
	Err   error
}

type infoBody struct{}

// SessionInfo 描述一个编辑会话。
type SessionInfo struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Objects int    `json:"objects"`
	Edits   int    `json:"edits"`
}
