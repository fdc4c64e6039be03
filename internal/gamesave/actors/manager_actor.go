package actors

import (
	"github.com/asynkron/protoactor-go/actor"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"LevelVault/internal/gamesave/app"
	"LevelVault/modules/kit/logx"
)

// ManagerActor 只做路由和会话表维护，不做正文解码之类的重活。
type ManagerActor struct {
	svc      *app.SaveService
	log      logx.Logger
	sessions map[string]*actor.PID // session id -> pid
	byPID    map[string]string     // pid.Id -> session id
	opts     sessionOptions
}

func NewManagerActor(svc *app.SaveService, log logx.Logger, opts sessionOptions) *ManagerActor {
	return &ManagerActor{
		svc:      svc,
		log:      logx.OrNop(log),
		sessions: make(map[string]*actor.PID),
		byPID:    make(map[string]string),
		opts:     opts,
	}
}

func (m *ManagerActor) Receive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *openSession:
		m.open(ctx, msg)
	case *sessionRequest:
		pid, ok := m.sessions[msg.ID]
		if !ok {
			ctx.Respond(&reply{Err: ErrSessionNotFound.WithData("session_id", msg.ID)})
			return
		}
		ctx.Forward(pid)
	case *actor.Terminated:
		// 子会话退出（关闭或空闲超时），清理路由表
		if id, ok := m.byPID[msg.Who.Id]; ok {
			delete(m.byPID, msg.Who.Id)
			delete(m.sessions, id)
			m.log.Debug("editor session removed", zap.String("session_id", id))
		}
	}
}

func (m *ManagerActor) open(ctx actor.Context, msg *openSession) {
	l, err := m.svc.Level(msg.Index)
	if err != nil {
		ctx.Respond(&sessionOpened{Err: err})
		return
	}
	id := uuid.NewString()
	l.Pin()
	props := actor.PropsFromProducer(func() actor.Actor {
		return NewSessionActor(id, l, m.svc, m.log, m.opts)
	})
	pid := ctx.Spawn(props)
	m.sessions[id] = pid
	m.byPID[pid.Id] = id
	m.log.Info("editor session opened", zap.String("session_id", id), zap.Int("index", msg.Index), zap.String("name", l.Name()))
	ctx.Respond(&sessionOpened{ID: id})
}
