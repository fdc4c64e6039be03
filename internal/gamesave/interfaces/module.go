package interfaces

import (
	"github.com/gin-gonic/gin"

	"LevelVault/internal/gamesave/actors"
	"LevelVault/internal/gamesave/app"
	"LevelVault/internal/gamesave/interfaces/handler"
	transporthttp "LevelVault/internal/shared/transport/http"
	"LevelVault/internal/shared/transport/ws"
	"LevelVault/modules/kit/logx"
)

type Module struct {
	wsHandler   *handler.WsHandler
	httpHandler *handler.HttpHandler
}

func New(svc *app.SaveService, sessions *actors.Runtime, l logx.Logger) *Module {
	return &Module{
		wsHandler:   handler.NewWsHandler(svc, l),
		httpHandler: handler.NewHttpHandler(svc, sessions, l, nil),
	}
}

func (m *Module) WsRegister(r *ws.Router) {
	m.wsHandler.RegisterRoutes(r)
}

func (m *Module) HttpRegister(g *gin.RouterGroup) {
	m.httpHandler.RegisterRoutes(g)
}

// WsAttach 作为 ws.Server 的连接回调。
func (m *Module) WsAttach(c ws.Conn) {
	m.wsHandler.Attach(c)
}

var _ ws.Registrar = (*Module)(nil)
var _ transporthttp.Registrar = (*Module)(nil)
