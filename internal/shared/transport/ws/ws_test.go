package ws

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
)

type statsReq struct {
	Focus int `mapstructure:"focus"`
}

func newTestServer(t *testing.T, onConnect func(Conn)) (*websocket.Conn, func()) {
	t.Helper()
	r := NewRouter(nil)
	r.Group("loader").Handle("echo", func(ctx context.Context, req *WsMsgReq, resp *WsMsgResp) {
		var in statsReq
		if err := BindMsg(req, &in); err != nil {
			resp.Body.Code = CodeInvalidParam
			return
		}
		resp.Body.Code = CodeOK
		resp.Body.Msg = in.Focus
	})
	s := NewServer(r, nil)
	if onConnect != nil {
		s.OnConnect(onConnect)
	}
	hs := httptest.NewServer(s)
	url := "ws" + strings.TrimPrefix(hs.URL, "http")
	c, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		hs.Close()
		t.Fatalf("连接失败: %v", err)
	}
	return c, func() {
		_ = c.Close()
		hs.Close()
	}
}

func roundTrip(t *testing.T, c *websocket.Conn, req ReqBody) RespBody {
	t.Helper()
	data, _ := json.Marshal(req)
	if err := c.WriteMessage(websocket.TextMessage, data); err != nil {
		t.Fatalf("写入失败: %v", err)
	}
	return readResp(t, c)
}

func readResp(t *testing.T, c *websocket.Conn) RespBody {
	t.Helper()
	_ = c.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := c.ReadMessage()
	if err != nil {
		t.Fatalf("读取失败: %v", err)
	}
	var resp RespBody
	if err = json.Unmarshal(data, &resp); err != nil {
		t.Fatalf("响应不是合法 JSON: %v", err)
	}
	return resp
}

func TestConn_心跳回填服务端时间(t *testing.T) {
	c, done := newTestServer(t, nil)
	defer done()

	resp := roundTrip(t, c, ReqBody{Seq: 7, Name: HeartbeatMsg, Msg: map[string]any{"ctime": 100}})
	if resp.Seq != 7 || resp.Code != CodeOK {
		t.Fatalf("心跳响应不符: %+v", resp)
	}
	m, _ := resp.Msg.(map[string]any)
	if m["ctime"] != float64(100) || m["stime"] == float64(0) {
		t.Fatalf("心跳应保留 ctime 并回填 stime: %+v", m)
	}
}

func TestConn_路由分发与弱类型解码(t *testing.T) {
	c, done := newTestServer(t, nil)
	defer done()

	resp := roundTrip(t, c, ReqBody{Seq: 1, Name: "loader.echo", Msg: map[string]any{"focus": "3"}})
	if resp.Code != CodeOK || resp.Msg != float64(3) {
		t.Fatalf("字符串数字应被解码: %+v", resp)
	}
	resp = roundTrip(t, c, ReqBody{Seq: 2, Name: "loader.missing"})
	if resp.Seq != 2 || resp.Code != CodeNoRoute {
		t.Fatalf("未知路由应返回 %s: %+v", CodeNoRoute, resp)
	}
}

func TestConn_连接回调可主动推送(t *testing.T) {
	c, done := newTestServer(t, func(conn Conn) {
		conn.Push("loader.event", map[string]any{"kind": "loaded"})
	})
	defer done()

	resp := readResp(t, c)
	if resp.Seq != 0 || resp.Name != "loader.event" || resp.Code != CodeOK {
		t.Fatalf("推送消息不符: %+v", resp)
	}
}
