package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"

	"LevelVault/internal/gamesave/app"
	"LevelVault/internal/gamesave/domain/level"
	"LevelVault/internal/gamesave/domain/object"
	"LevelVault/internal/gamesave/domain/store"
	"LevelVault/internal/gamesave/infra/persistence/memory"
	"LevelVault/internal/shared/security"
	"LevelVault/internal/shared/transport/http/middleware"
)

type memFile struct {
	mu   sync.Mutex
	data []byte
}

func (f *memFile) Read(ctx context.Context) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]byte(nil), f.data...), nil
}

func (f *memFile) Write(ctx context.Context, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data = append([]byte(nil), data...)
	return nil
}

type seqIDs struct{ n int64 }

func (g *seqIDs) NextID() int64 {
	g.n++
	return g.n
}

var testReg = object.NewRegistry()

func newTestService(t *testing.T, names ...string) *app.SaveService {
	t.Helper()
	codec := object.NewCodec(testReg)
	st := store.New(codec)
	for i, name := range names {
		l := level.NewEmpty(codec, name)
		p, _ := l.Payload()
		o := testReg.New(1)
		o.Groups = object.IDList{5}
		p.Objects.Add(o)
		if err := st.Insert(i, l); err != nil {
			t.Fatalf("插入关卡失败: %v", err)
		}
	}
	data, err := st.Save(store.PlainFile{})
	if err != nil {
		t.Fatalf("生成存档失败: %v", err)
	}
	svc := app.NewSaveService(app.Deps{
		Codec:     codec,
		File:      &memFile{data: data},
		Snapshots: memory.NewSnapshotRepo(),
		Index:     memory.NewIndexRepo(),
		IDs:       &seqIDs{},
	})
	if err = svc.Open(context.Background()); err != nil {
		t.Fatalf("打开存档失败: %v", err)
	}
	return svc
}

func allowAll(c *gin.Context) {
	c.Set(middleware.CtxKeyOperator, "tester")
	c.Next()
}

func newEngine(svc *app.SaveService, auth gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	e := gin.New()
	NewHttpHandler(svc, nil, nil, auth).RegisterRoutes(e.Group("/api"))
	return e
}

type envelope struct {
	Code string          `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

func do(t *testing.T, e *gin.Engine, method, path, body string, headers ...string) (int, envelope) {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	e.ServeHTTP(w, req)
	var env envelope
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
			t.Fatalf("响应不是合法 JSON: %v body=%s", err, w.Body.String())
		}
	}
	return w.Code, env
}

func TestHttpHandler_列表与越界(t *testing.T) {
	e := newEngine(newTestService(t, "A", "B"), allowAll)

	code, env := do(t, e, http.MethodGet, "/api/levels", "")
	if code != http.StatusOK || env.Code != "OK" {
		t.Fatalf("列表失败: %d %+v", code, env)
	}
	var list []app.LevelSummary
	_ = json.Unmarshal(env.Data, &list)
	if len(list) != 2 || list[1].Name != "B" {
		t.Fatalf("列表不符: %+v", list)
	}

	code, env = do(t, e, http.MethodGet, "/api/levels/9", "")
	if code != http.StatusNotFound || env.Code != string(app.CodeLevelNotFound) {
		t.Fatalf("越界应 404: %d %+v", code, env)
	}
	code, _ = do(t, e, http.MethodGet, "/api/levels/abc", "")
	if code != http.StatusBadRequest {
		t.Fatalf("非法下标应 400, got %d", code)
	}
}

func TestHttpHandler_迁移接受字符串数字(t *testing.T) {
	svc := newTestService(t, "A")
	e := newEngine(svc, allowAll)

	body := `{"kind":"group","ranges":[{"source_start":"5","source_end":5,"target_start":"9"}]}`
	code, env := do(t, e, http.MethodPost, "/api/levels/0/migrate", body)
	if code != http.StatusOK {
		t.Fatalf("迁移失败: %d %+v", code, env)
	}
	usage, err := svc.Usage(context.Background(), 0, object.KindGroup)
	if err != nil || len(usage) != 1 || usage[0].ID != 9 {
		t.Fatalf("迁移结果不符: %+v err=%v", usage, err)
	}

	code, env = do(t, e, http.MethodPost, "/api/levels/0/migrate", `{"kind":"group","ranges":[{"source_start":0,"source_end":3,"target_start":1}]}`)
	if code != http.StatusBadRequest || env.Code != "SAVE_INVALID_RANGE" {
		t.Fatalf("非法区间应 400: %d %+v", code, env)
	}
	code, _ = do(t, e, http.MethodPost, "/api/levels/0/migrate", `{"kind":"nope"}`)
	if code != http.StatusBadRequest {
		t.Fatalf("未知类别应 400, got %d", code)
	}
	code, _ = do(t, e, http.MethodPost, "/api/levels/0/migrate", `{"kind":"group","extra":1}`)
	if code != http.StatusBadRequest {
		t.Fatalf("未知字段应 400, got %d", code)
	}
}

func TestHttpHandler_文件未变时reload跳过(t *testing.T) {
	svc := newTestService(t, "A")
	e := newEngine(svc, allowAll)

	if code, env := do(t, e, http.MethodPost, "/api/levels/0/compact", `{"kind":"group"}`); code != http.StatusOK {
		t.Fatalf("压缩失败: %d %+v", code, env)
	}
	code, env := do(t, e, http.MethodPost, "/api/reload", "")
	var rr struct {
		Changed bool `json:"changed"`
	}
	_ = json.Unmarshal(env.Data, &rr)
	if code != http.StatusOK || rr.Changed {
		t.Fatalf("文件未变时 reload 应跳过: %d %+v", code, env)
	}
	if code, _ = do(t, e, http.MethodPost, "/api/save", ""); code != http.StatusOK {
		t.Fatalf("保存失败: %d", code)
	}
	if sum, _ := svc.Summary(0); sum.Dirty {
		t.Fatalf("保存后不应再有修改标记")
	}
}

func TestHttpHandler_归档与恢复(t *testing.T) {
	svc := newTestService(t, "A")
	e := newEngine(svc, allowAll)

	code, env := do(t, e, http.MethodPost, "/api/levels/0/archive", `{"note":"first"}`)
	if code != http.StatusOK {
		t.Fatalf("归档失败: %d %+v", code, env)
	}
	var ar struct {
		ID      string `json:"id"`
		Created bool   `json:"created"`
	}
	_ = json.Unmarshal(env.Data, &ar)
	if !ar.Created || ar.ID == "" {
		t.Fatalf("首次归档应新建: %+v", ar)
	}

	code, env = do(t, e, http.MethodPost, "/api/snapshots/restore", `{"id":"`+ar.ID+`"}`)
	if code != http.StatusOK {
		t.Fatalf("恢复失败: %d %+v", code, env)
	}
	if st := svc.Stats(); st.Levels != 2 {
		t.Fatalf("恢复后应有 2 个关卡: %+v", st)
	}

	code, _ = do(t, e, http.MethodGet, "/api/snapshots?name=A", "")
	if code != http.StatusOK {
		t.Fatalf("快照列表失败: %d", code)
	}
	code, env = do(t, e, http.MethodPost, "/api/snapshots/restore", `{"id":12345}`)
	if code != http.StatusNotFound || env.Code != string(app.CodeSnapshotNotFound) {
		t.Fatalf("不存在的快照应 404: %d %+v", code, env)
	}
}

func TestHttpHandler_钉住的关卡删除返回409(t *testing.T) {
	svc := newTestService(t, "A", "B")
	e := newEngine(svc, allowAll)

	if code, _ := do(t, e, http.MethodPost, "/api/levels/0/pin", ""); code != http.StatusOK {
		t.Fatalf("钉住失败: %d", code)
	}
	code, env := do(t, e, http.MethodDelete, "/api/levels/0", "")
	if code != http.StatusConflict || env.Code != string(level.CodeLevelPinned) {
		t.Fatalf("期望 409: %d %+v", code, env)
	}
}

func TestHttpHandler_导出导入(t *testing.T) {
	svc := newTestService(t, "A")
	e := newEngine(svc, allowAll)

	w := httptest.NewRecorder()
	e.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/levels/0/export", nil))
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "<plist") {
		t.Fatalf("导出失败: %d %s", w.Code, w.Body.String())
	}

	payload, _ := json.Marshal(map[string]any{"text": w.Body.String()})
	code, env := do(t, e, http.MethodPost, "/api/import", string(payload))
	if code != http.StatusOK {
		t.Fatalf("导入失败: %d %+v", code, env)
	}
	var ir struct {
		Index int `json:"index"`
	}
	_ = json.Unmarshal(env.Data, &ir)
	if ir.Index != 1 {
		t.Fatalf("未指定位置时应追加到末尾, got %d", ir.Index)
	}
}

func TestHttpHandler_修改类接口需要token(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	e := newEngine(newTestService(t, "A"), nil)

	code, _ := do(t, e, http.MethodPost, "/api/save", "")
	if code != http.StatusUnauthorized {
		t.Fatalf("缺少 token 应 401, got %d", code)
	}
	token, err := security.Award("alice", 0)
	if err != nil {
		t.Fatalf("签发 token 失败: %v", err)
	}
	code, _ = do(t, e, http.MethodPost, "/api/save", "", "Authorization", "Bearer "+token)
	if code != http.StatusOK {
		t.Fatalf("带 token 应成功, got %d", code)
	}
	code, _ = do(t, e, http.MethodGet, "/api/stats", "")
	if code != http.StatusOK {
		t.Fatalf("只读接口不需要 token, got %d", code)
	}
}
