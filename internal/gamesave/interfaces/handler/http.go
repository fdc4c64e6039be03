package handler

import (
	"errors"
	"io"
	nethttp "net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"LevelVault/internal/gamesave/actors"
	"LevelVault/internal/gamesave/app"
	"LevelVault/internal/gamesave/domain/object"
	"LevelVault/internal/gamesave/interfaces/handler/dto"
	"LevelVault/internal/shared/transport"
	"LevelVault/internal/shared/transport/http/middleware"
	"LevelVault/modules/kit/logx"
)

type HttpHandler struct {
	svc      *app.SaveService
	sessions *actors.Runtime
	log      logx.Logger
	auth     gin.HandlerFunc
}

// NewHttpHandler sessions 为 nil 时不注册会话路由。auth 为 nil 时使用 JWT 校验。
func NewHttpHandler(svc *app.SaveService, sessions *actors.Runtime, l logx.Logger, auth gin.HandlerFunc) *HttpHandler {
	if auth == nil {
		auth = middleware.Auth()
	}
	return &HttpHandler{svc: svc, sessions: sessions, log: logx.OrNop(l), auth: auth}
}

func (h *HttpHandler) RegisterRoutes(group *gin.RouterGroup) {
	group.GET("/levels", h.listLevels)
	group.GET("/levels/:index", h.getLevel)
	group.GET("/levels/:index/usage", h.usage)
	group.GET("/levels/:index/export", h.export)
	group.GET("/stats", h.stats)
	group.GET("/skipped", h.skipped)
	group.GET("/index", h.index)
	group.GET("/snapshots", h.snapshots)

	edit := group.Group("", h.auth, h.audit)
	edit.POST("/levels/:index/load", h.load)
	edit.POST("/load-all", h.loadAll)
	edit.POST("/levels/:index/pin", h.pin)
	edit.DELETE("/levels/:index/pin", h.unpin)
	edit.POST("/levels/:index/migrate", h.migrate)
	edit.POST("/levels/:index/compact", h.compact)
	edit.POST("/levels/:index/clone", h.clone)
	edit.POST("/levels/:index/move", h.move)
	edit.POST("/levels/:index/archive", h.archive)
	edit.DELETE("/levels/:index", h.deleteLevel)
	edit.POST("/import", h.importLevel)
	edit.POST("/snapshots/restore", h.restore)
	edit.POST("/save", h.save)
	edit.POST("/reload", h.reload)
	edit.PUT("/cache/threshold", h.setThreshold)

	if h.sessions == nil {
		return
	}
	edit.POST("/sessions", h.openSession)
	edit.GET("/sessions/:id", h.sessionInfo)
	edit.POST("/sessions/:id/migrate", h.sessionMigrate)
	edit.POST("/sessions/:id/compact", h.sessionCompact)
	edit.GET("/sessions/:id/usage", h.sessionUsage)
	edit.DELETE("/sessions/:id", h.closeSession)
}

// audit 在修改类请求成功后记一条操作者日志。
func (h *HttpHandler) audit(c *gin.Context) {
	c.Next()
	if c.Writer.Status() >= 400 {
		return
	}
	h.log.WithContext(c.Request.Context()).Info("save mutated",
		zap.String("operator", c.GetString(middleware.CtxKeyOperator)),
		zap.String("route", c.Request.Method+" "+c.FullPath()),
	)
}

func (h *HttpHandler) listLevels(c *gin.Context) {
	list, err := h.svc.List()
	if err != nil {
		h.error(c, "list levels", err)
		return
	}
	h.ok(c, list)
}

func (h *HttpHandler) getLevel(c *gin.Context) {
	i, ok := h.indexParam(c)
	if !ok {
		return
	}
	sum, err := h.svc.Summary(i)
	if err != nil {
		h.error(c, "get level", err)
		return
	}
	h.ok(c, sum)
}

func (h *HttpHandler) usage(c *gin.Context) {
	i, ok := h.indexParam(c)
	if !ok {
		return
	}
	kind, ok := h.kindParam(c, c.Query("kind"))
	if !ok {
		return
	}
	out, err := h.svc.Usage(c.Request.Context(), i, kind)
	if err != nil {
		h.error(c, "level usage", err)
		return
	}
	h.ok(c, out)
}

func (h *HttpHandler) export(c *gin.Context) {
	i, ok := h.indexParam(c)
	if !ok {
		return
	}
	text, err := h.svc.Export(i)
	if err != nil {
		h.error(c, "export level", err)
		return
	}
	c.Header("Content-Disposition", "attachment; filename=level-"+strconv.Itoa(i)+".gmd")
	c.Data(nethttp.StatusOK, "application/xml; charset=utf-8", []byte(text))
}

func (h *HttpHandler) stats(c *gin.Context) {
	h.ok(c, h.svc.Stats())
}

func (h *HttpHandler) skipped(c *gin.Context) {
	h.ok(c, dto.FromSkipped(h.svc.Skipped()))
}

func (h *HttpHandler) index(c *gin.Context) {
	entries, err := h.svc.Index(c.Request.Context())
	if err != nil {
		h.error(c, "level index", err)
		return
	}
	h.ok(c, dto.FromIndex(entries))
}

func (h *HttpHandler) snapshots(c *gin.Context) {
	name := c.Query("name")
	if name == "" {
		h.fail(c, nethttp.StatusBadRequest, string(app.ErrReqParam.Code()), "缺少关卡名")
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	list, err := h.svc.Snapshots(c.Request.Context(), name, limit)
	if err != nil {
		h.error(c, "list snapshots", err)
		return
	}
	out := make([]dto.SnapshotItem, 0, len(list))
	for _, s := range list {
		out = append(out, dto.FromSnapshot(s))
	}
	h.ok(c, out)
}

func (h *HttpHandler) load(c *gin.Context) {
	i, ok := h.indexParam(c)
	if !ok {
		return
	}
	if err := h.svc.Load(c.Request.Context(), i); err != nil {
		h.error(c, "load level", err)
		return
	}
	sum, _ := h.svc.Summary(i)
	h.ok(c, sum)
}

func (h *HttpHandler) loadAll(c *gin.Context) {
	req := dto.LoadAllReq{}
	if !h.bind(c, &req) {
		return
	}
	if err := h.svc.LoadAll(c.Request.Context(), req.Focus); err != nil {
		h.error(c, "load all levels", err)
		return
	}
	h.ok(c, h.svc.Stats())
}

func (h *HttpHandler) pin(c *gin.Context) {
	i, ok := h.indexParam(c)
	if !ok {
		return
	}
	if err := h.svc.Pin(i); err != nil {
		h.error(c, "pin level", err)
		return
	}
	h.ok(c, nil)
}

func (h *HttpHandler) unpin(c *gin.Context) {
	i, ok := h.indexParam(c)
	if !ok {
		return
	}
	if err := h.svc.Unpin(i); err != nil {
		h.error(c, "unpin level", err)
		return
	}
	h.ok(c, nil)
}

func (h *HttpHandler) migrate(c *gin.Context) {
	i, ok := h.indexParam(c)
	if !ok {
		return
	}
	req := dto.MigrateReq{}
	if !h.bind(c, &req) {
		return
	}
	kind, ok := h.kindParam(c, req.Kind)
	if !ok {
		return
	}
	if err := h.svc.Migrate(c.Request.Context(), i, kind, req.Ranges); err != nil {
		h.error(c, "migrate level", err)
		return
	}
	sum, _ := h.svc.Summary(i)
	h.ok(c, sum)
}

func (h *HttpHandler) compact(c *gin.Context) {
	i, ok := h.indexParam(c)
	if !ok {
		return
	}
	req := dto.CompactReq{}
	if !h.bind(c, &req) {
		return
	}
	kind, ok := h.kindParam(c, req.Kind)
	if !ok {
		return
	}
	if err := h.svc.Compact(c.Request.Context(), i, kind, req.Ignored); err != nil {
		h.error(c, "compact level", err)
		return
	}
	sum, _ := h.svc.Summary(i)
	h.ok(c, sum)
}

func (h *HttpHandler) clone(c *gin.Context) {
	i, ok := h.indexParam(c)
	if !ok {
		return
	}
	if err := h.svc.Clone(i); err != nil {
		h.error(c, "clone level", err)
		return
	}
	h.ok(c, nil)
}

func (h *HttpHandler) move(c *gin.Context) {
	i, ok := h.indexParam(c)
	if !ok {
		return
	}
	req := dto.MoveReq{}
	if !h.bind(c, &req) {
		return
	}
	if err := h.svc.Move(i, req.To); err != nil {
		h.error(c, "move level", err)
		return
	}
	h.ok(c, nil)
}

func (h *HttpHandler) deleteLevel(c *gin.Context) {
	i, ok := h.indexParam(c)
	if !ok {
		return
	}
	if err := h.svc.Delete(i); err != nil {
		h.error(c, "delete level", err)
		return
	}
	h.ok(c, nil)
}

func (h *HttpHandler) archive(c *gin.Context) {
	i, ok := h.indexParam(c)
	if !ok {
		return
	}
	req := dto.ArchiveReq{}
	if !h.bind(c, &req) {
		return
	}
	snap, created, err := h.svc.Archive(c.Request.Context(), i, req.Note)
	if err != nil {
		h.error(c, "archive level", err)
		return
	}
	h.ok(c, dto.ArchiveResp{ID: snap.ID, Fingerprint: dto.FormatFingerprint(snap.Fingerprint), Created: created})
}

func (h *HttpHandler) importLevel(c *gin.Context) {
	req := dto.ImportReq{At: -1}
	if !h.bind(c, &req) {
		return
	}
	at, err := h.svc.Import(c.Request.Context(), req.Text, req.At)
	if err != nil {
		h.error(c, "import level", err)
		return
	}
	h.ok(c, dto.ImportResp{Index: at})
}

func (h *HttpHandler) restore(c *gin.Context) {
	req := dto.RestoreReq{At: -1}
	if !h.bind(c, &req) {
		return
	}
	at, err := h.svc.Restore(c.Request.Context(), req.ID, req.At)
	if err != nil {
		h.error(c, "restore snapshot", err)
		return
	}
	h.ok(c, dto.ImportResp{Index: at})
}

func (h *HttpHandler) save(c *gin.Context) {
	if err := h.svc.Save(c.Request.Context()); err != nil {
		h.error(c, "save file", err)
		return
	}
	h.ok(c, h.svc.Stats())
}

func (h *HttpHandler) reload(c *gin.Context) {
	changed, err := h.svc.Reload(c.Request.Context())
	if err != nil {
		h.error(c, "reload file", err)
		return
	}
	h.ok(c, dto.ReloadResp{Changed: changed})
}

func (h *HttpHandler) setThreshold(c *gin.Context) {
	req := dto.ThresholdReq{}
	if !h.bind(c, &req) {
		return
	}
	if req.Threshold <= 0 {
		h.fail(c, nethttp.StatusBadRequest, string(app.ErrReqParam.Code()), "阈值必须为正数")
		return
	}
	h.svc.SetThreshold(req.Threshold)
	h.ok(c, h.svc.Stats())
}

func (h *HttpHandler) openSession(c *gin.Context) {
	req := dto.OpenSessionReq{}
	if !h.bind(c, &req) {
		return
	}
	id, err := h.sessions.Open(c.Request.Context(), req.Index)
	if err != nil {
		h.error(c, "open session", err)
		return
	}
	transport.SetLevelIndex(c.Request.Context(), req.Index)
	h.ok(c, dto.SessionResp{ID: id})
}

func (h *HttpHandler) sessionInfo(c *gin.Context) {
	info, err := h.sessions.Info(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.error(c, "session info", err)
		return
	}
	h.ok(c, info)
}

func (h *HttpHandler) sessionMigrate(c *gin.Context) {
	req := dto.MigrateReq{}
	if !h.bind(c, &req) {
		return
	}
	kind, ok := h.kindParam(c, req.Kind)
	if !ok {
		return
	}
	if err := h.sessions.Migrate(c.Request.Context(), c.Param("id"), kind, req.Ranges); err != nil {
		h.error(c, "session migrate", err)
		return
	}
	h.ok(c, nil)
}

func (h *HttpHandler) sessionCompact(c *gin.Context) {
	req := dto.CompactReq{}
	if !h.bind(c, &req) {
		return
	}
	kind, ok := h.kindParam(c, req.Kind)
	if !ok {
		return
	}
	if err := h.sessions.Compact(c.Request.Context(), c.Param("id"), kind, req.Ignored); err != nil {
		h.error(c, "session compact", err)
		return
	}
	h.ok(c, nil)
}

func (h *HttpHandler) sessionUsage(c *gin.Context) {
	kind, ok := h.kindParam(c, c.Query("kind"))
	if !ok {
		return
	}
	out, err := h.sessions.Usage(c.Request.Context(), c.Param("id"), kind)
	if err != nil {
		h.error(c, "session usage", err)
		return
	}
	h.ok(c, out)
}

func (h *HttpHandler) closeSession(c *gin.Context) {
	info, err := h.sessions.Close(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.error(c, "close session", err)
		return
	}
	h.ok(c, info)
}

func (h *HttpHandler) indexParam(c *gin.Context) (int, bool) {
	i, err := strconv.Atoi(c.Param("index"))
	if err != nil || i < 0 {
		h.fail(c, nethttp.StatusBadRequest, string(app.ErrReqParam.Code()), "关卡下标有误")
		return 0, false
	}
	transport.SetLevelIndex(c.Request.Context(), i)
	return i, true
}

func (h *HttpHandler) kindParam(c *gin.Context, s string) (object.IDKind, bool) {
	kind, ok := object.ParseIDKind(s)
	if !ok {
		h.fail(c, nethttp.StatusBadRequest, string(app.ErrReqParam.Code()), "未知的 id 类别")
		return 0, false
	}
	return kind, true
}

// bind 先解成 map 再弱类型解码；空 body 视为空对象。
func (h *HttpHandler) bind(c *gin.Context, dst any) bool {
	raw := map[string]any{}
	if err := c.ShouldBindJSON(&raw); err != nil && !errors.Is(err, io.EOF) {
		h.fail(c, nethttp.StatusBadRequest, string(app.ErrReqParam.Code()), "参数有误")
		return false
	}
	if err := dto.Decode(raw, dst); err != nil {
		c.Set(middleware.CtxKeyErrorReason, err.Error())
		h.fail(c, nethttp.StatusBadRequest, string(app.ErrReqParam.Code()), "参数有误")
		return false
	}
	return true
}

func (h *HttpHandler) ok(c *gin.Context, data any) {
	c.JSON(nethttp.StatusOK, dto.Success(data))
}

func (h *HttpHandler) fail(c *gin.Context, status int, code, msg string) {
	c.Set(middleware.CtxKeyErrorCode, code)
	c.AbortWithStatusJSON(status, dto.Error(code, msg))
}

func (h *HttpHandler) error(c *gin.Context, action string, err error) {
	ctx := c.Request.Context()
	status, code, msg := HandleError(ctx, h.log, action, err)
	if reason := logx.BuildErrorLog(err).Reason; reason != "" {
		c.Set(middleware.CtxKeyErrorReason, reason)
	}
	h.fail(c, status, code, msg)
}
