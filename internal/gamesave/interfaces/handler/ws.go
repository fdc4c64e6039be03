package handler

import (
	"context"

	"LevelVault/internal/gamesave/app"
	"LevelVault/internal/shared/transport/ws"
	"LevelVault/modules/kit/logx"
)

const (
	// PushLoaderEvent 推送给编辑器面板的加载进度消息名。
	PushLoaderEvent = "loader.event"

	eventBuffer = 64
)

type WsHandler struct {
	svc *app.SaveService
	log logx.Logger
}

func NewWsHandler(svc *app.SaveService, l logx.Logger) *WsHandler {
	return &WsHandler{svc: svc, log: logx.OrNop(l)}
}

func (h *WsHandler) RegisterRoutes(r *ws.Router) {
	g := r.Group("loader")
	g.Handle("stats", h.stats)
	g.Handle("levels", h.levels)
}

// Attach 新连接订阅加载事件，连接断开时退订。
func (h *WsHandler) Attach(c ws.Conn) {
	events, cancel := h.svc.Subscribe(eventBuffer)
	go func() {
		defer cancel()
		for {
			select {
			case <-c.Done():
				return
			case e, ok := <-events:
				if !ok {
					return
				}
				c.Push(PushLoaderEvent, e)
			}
		}
	}()
}

func (h *WsHandler) stats(ctx context.Context, req *ws.WsMsgReq, resp *ws.WsMsgResp) {
	resp.Body.Code = ws.CodeOK
	resp.Body.Msg = h.svc.Stats()
}

func (h *WsHandler) levels(ctx context.Context, req *ws.WsMsgReq, resp *ws.WsMsgResp) {
	list, err := h.svc.List()
	if err != nil {
		_, code, msg := HandleError(ctx, h.log, "ws list levels", err)
		resp.Body.Code = code
		resp.Body.Msg = msg
		return
	}
	resp.Body.Code = ws.CodeOK
	resp.Body.Msg = list
}
