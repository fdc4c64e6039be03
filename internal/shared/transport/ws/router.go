package ws

import (
	"context"
	"net/http"
	"strings"

	"LevelVault/internal/shared/transport"
	"LevelVault/modules/kit/logx"
)

type Group struct {
	prefix   string
	handlers map[string]HandlerFunc
}

type HandlerFunc func(ctx context.Context, req *WsMsgReq, resp *WsMsgResp)

func (g *Group) Handle(name string, h HandlerFunc) {
	g.handlers[name] = h
}

type Router struct {
	groups map[string]*Group
	log    logx.Logger
}

func NewRouter(l logx.Logger) *Router {
	return &Router{
		groups: make(map[string]*Group),
		log:    logx.OrNop(l),
	}
}

func (r *Router) Group(prefix string) *Group {
	group := r.groups[prefix]
	if group == nil {
		group = &Group{
			prefix:   prefix,
			handlers: make(map[string]HandlerFunc),
		}
	}
	r.groups[prefix] = group
	return group
}

// Dispatch 按 "组.路由" 分发，例如 loader.stats。
func (r *Router) Dispatch(req *WsMsgReq, resp *WsMsgResp) {
	action := "WS unknown"
	if req != nil && req.Body != nil {
		action = "WS " + req.Body.Name
	}
	ctx := transport.NewContextWithParent(context.Background(), action, "ws")
	defer r.writeAccessLog(ctx, resp)

	if req == nil || req.Body == nil || resp == nil || resp.Body == nil {
		setError(resp, CodeInvalidParam, "参数有误")
		return
	}
	// 先置失败，避免 handler 漏设时出现“成功假象”。
	resp.Body.Code = CodeNoRoute
	resp.Body.Msg = nil

	h := r.findHandler(req.Body.Name)
	if h == nil {
		setError(resp, CodeNoRoute, "路由不存在")
		return
	}
	h(ctx, req, resp)
}

func (r *Router) findHandler(route string) HandlerFunc {
	prefix, name, ok := strings.Cut(route, ".")
	if !ok || prefix == "" || name == "" || strings.Contains(name, ".") {
		return nil
	}
	group := r.groups[prefix]
	if group == nil {
		return nil
	}
	return group.handlers[name]
}

func setError(resp *WsMsgResp, code string, msg string) {
	if resp == nil || resp.Body == nil {
		return
	}
	resp.Body.Code = code
	resp.Body.Msg = msg
}

func (r *Router) writeAccessLog(ctx context.Context, resp *WsMsgResp) {
	status := http.StatusOK
	if resp == nil || resp.Body == nil || resp.Body.Code != CodeOK {
		status = http.StatusBadRequest
		if resp != nil && resp.Body != nil {
			transport.SetError(ctx, resp.Body.Code, "")
		}
	}
	transport.SetStatus(ctx, status)
	transport.WriteAccessLog(ctx, r.log)
}
