package ws

import (
	"fmt"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"LevelVault/modules/kit/logx"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
	outBuffer  = 256
)

// wsConn 一条连接两个 goroutine：读循环分发请求，写循环串行写出。
type wsConn struct {
	conn     *websocket.Conn
	router   *Router
	outChan  chan *RespBody
	property map[string]any
	mu       sync.RWMutex
	done     chan struct{}
	once     sync.Once
	log      logx.Logger
}

func newConn(c *websocket.Conn, r *Router, l logx.Logger) *wsConn {
	return &wsConn{
		conn:     c,
		router:   r,
		outChan:  make(chan *RespBody, outBuffer),
		property: make(map[string]any),
		done:     make(chan struct{}),
		log:      logx.OrNop(l),
	}
}

func (s *wsConn) SetProperty(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.property[key] = value
}

func (s *wsConn) GetProperty(key string) any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.property[key]
}

func (s *wsConn) Addr() string {
	return s.conn.RemoteAddr().String()
}

// Push 非阻塞投递，缓冲满或连接已关闭时丢弃并返回 false。
func (s *wsConn) Push(name string, data any) bool {
	return s.enqueue(&RespBody{Name: name, Code: CodeOK, Msg: data})
}

func (s *wsConn) enqueue(body *RespBody) bool {
	select {
	case <-s.done:
		return false
	default:
	}
	select {
	case s.outChan <- body:
		return true
	default:
		s.log.Warn("ws push dropped, buffer full", zap.String("addr", s.Addr()), zap.String("name", body.Name))
		return false
	}
}

func (s *wsConn) run() {
	go s.readMsgLoop()
	go s.writeMsgLoop()
}

func (s *wsConn) readMsgLoop() {
	defer func() {
		if err := recover(); err != nil {
			s.log.Error("ws readMsgLoop panic", zap.String("err", fmt.Sprintf("%v", err)))
		}
		s.Close()
	}()
	s.conn.SetReadLimit(64 * 1024)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log.Warn("ws read msg", zap.Error(err))
			}
			return
		}
		reqBody := ReqBody{}
		if err = json.Unmarshal(data, &reqBody); err != nil {
			s.log.Warn("ws unmarshal json error", zap.Error(err))
			continue
		}

		req := WsMsgReq{Body: &reqBody, Conn: s}
		// req 和 resp 的 Seq 必须一致
		resp := WsMsgResp{Body: &RespBody{Seq: reqBody.Seq, Name: reqBody.Name}}
		if reqBody.Name == HeartbeatMsg {
			h := &Heartbeat{}
			_ = BindMsg(&req, h)
			h.STime = time.Now().UnixMilli()
			resp.Body.Code = CodeOK
			resp.Body.Msg = h
		} else if s.router != nil {
			s.router.Dispatch(&req, &resp)
		}
		s.enqueue(resp.Body)
	}
}

func (s *wsConn) writeMsgLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case body := <-s.outChan:
			if err := s.write(body); err != nil {
				s.log.Warn("ws write error", zap.Error(err))
				s.Close()
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.Close()
				return
			}
		case <-s.done:
			return
		}
	}
}

func (s *wsConn) write(body *RespBody) error {
	data, err := json.Marshal(body)
	if err != nil {
		s.log.Error("ws marshal json error", zap.Error(err), zap.String("name", body.Name))
		return nil
	}
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return s.conn.WriteMessage(websocket.TextMessage, data)
}

func (s *wsConn) Close() {
	s.once.Do(func() {
		_ = s.conn.Close()
		close(s.done)
	})
}

func (s *wsConn) Done() <-chan struct{} {
	return s.done
}
