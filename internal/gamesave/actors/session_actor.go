package actors

import (
	"context"
	"time"

	"github.com/asynkron/protoactor-go/actor"
	"go.uber.org/zap"

	"LevelVault/internal/gamesave/app"
	"LevelVault/internal/gamesave/app/migrate"
	"LevelVault/internal/gamesave/domain/level"
	"LevelVault/internal/gamesave/domain/object"
	"LevelVault/modules/kit/logx"
)

type sessionOptions struct {
	idle      time.Duration
	opTimeout time.Duration
}

// SessionActor 代表一个打开的关卡编辑器：存活期间关卡保持钉住，不被缓存驱逐。
// 一个会话内的请求按消息顺序执行；同一关卡可以同时有多个会话，
// 它们之间以及与 HTTP 直接编辑之间由关卡的编辑锁（level.Level.Edit）串行化。
type SessionActor struct {
	id    string
	level *level.Level
	svc   *app.SaveService
	log   logx.Logger
	opts  sessionOptions
	edits int
}

func NewSessionActor(id string, l *level.Level, svc *app.SaveService, log logx.Logger, opts sessionOptions) *SessionActor {
	return &SessionActor{id: id, level: l, svc: svc, log: logx.OrNop(log), opts: opts}
}

func (s *SessionActor) Receive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		if s.opts.idle > 0 {
			ctx.SetReceiveTimeout(s.opts.idle)
		}
	case *actor.ReceiveTimeout:
		s.log.Info("editor session idle, closing", zap.String("session_id", s.id))
		ctx.Stop(ctx.Self())
	case *actor.Stopping:
		// 钉住在 manager 创建会话时完成，重启不重复钉住
		s.level.Unpin()
	case *sessionRequest:
		s.handle(ctx, msg.Body)
	}
}

func (s *SessionActor) handle(ctx actor.Context, body any) {
	opCtx, cancel := context.WithTimeout(context.Background(), s.opts.opTimeout)
	defer cancel()

	switch b := body.(type) {
	case *migrateBody:
		err := s.edit(opCtx, b.Kind, func(p *level.Payload) error {
			return migrate.ApplyRanges(p.Objects, p.Channels(), b.Ranges, b.Kind)
		})
		ctx.Respond(&reply{Err: err})
	case *compactBody:
		err := s.edit(opCtx, b.Kind, func(p *level.Payload) error {
			return migrate.CompactReallocate(p.Objects, p.Channels(), b.Kind, b.Ignored)
		})
		ctx.Respond(&reply{Err: err})
	case *usageBody:
		if !b.Kind.Valid() {
			ctx.Respond(&reply{Err: unknownKind(b.Kind)})
			return
		}
		var out []migrate.IDUsage
		err := s.svc.ViewLevel(opCtx, s.level, func(p *level.Payload) error {
			out = migrate.Usage(p.Objects, p.Channels(), b.Kind)
			return nil
		})
		ctx.Respond(&reply{Usage: out, Err: err})
	case *infoBody:
		ctx.Respond(&reply{Info: s.info()})
	case *closeBody:
		ctx.Respond(&reply{Info: s.info()})
		ctx.Stop(ctx.Self())
	default:
		ctx.Respond(&reply{Err: app.ErrReqParam.WithData("body", "unknown")})
	}
}

func (s *SessionActor) edit(ctx context.Context, kind object.IDKind, fn func(p *level.Payload) error) error {
	if !kind.Valid() {
		return unknownKind(kind)
	}
	if err := s.svc.EditLevel(ctx, s.level, fn); err != nil {
		return err
	}
	s.edits++
	return nil
}

func (s *SessionActor) info() SessionInfo {
	return SessionInfo{ID: s.id, Name: s.level.Name(), Objects: s.level.ObjectCount(), Edits: s.edits}
}

func unknownKind(kind object.IDKind) error {
	return app.ErrReqParam.WithReason(app.ReasonUnknownIDKind).WithData("kind", kind.String())
}
