package ws

import (
	"net/http"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"LevelVault/modules/kit/logx"
)

// Registrar 由接口层模块实现，往 Router 注册 ws 路由。
type Registrar interface {
	WsRegister(r *Router)
}

type Server struct {
	router    *Router
	log       logx.Logger
	onConnect []func(Conn)
	upgrader  websocket.Upgrader
}

func NewServer(r *Router, l logx.Logger) *Server {
	return &Server{
		router: r,
		log:    logx.OrNop(l),
		upgrader: websocket.Upgrader{
			// 编辑器面板与服务不同源
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// OnConnect 注册连接建立后的回调，用于开始推送。
func (s *Server) OnConnect(fn func(Conn)) {
	s.onConnect = append(s.onConnect, fn)
}

func (s *Server) ServeHTTP(resp http.ResponseWriter, req *http.Request) {
	c, err := s.upgrader.Upgrade(resp, req, nil)
	if err != nil {
		s.log.Error("websocket upgrade error", zap.Error(err))
		return
	}
	conn := newConn(c, s.router, s.log)
	s.log.Debug("websocket connected", zap.String("addr", conn.Addr()))
	conn.run()
	for _, fn := range s.onConnect {
		fn(conn)
	}
}
