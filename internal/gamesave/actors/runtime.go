package actors

import (
	"context"
	"time"

	protoactor "github.com/asynkron/protoactor-go/actor"

	"LevelVault/internal/gamesave/app"
	"LevelVault/internal/gamesave/app/migrate"
	"LevelVault/internal/gamesave/domain/object"
	"LevelVault/modules/kit/errx"
	"LevelVault/modules/kit/logx"
)

const (
	defaultAskTimeout  = 30 * time.Second
	defaultIdleTimeout = 10 * time.Minute
)

// Runtime 是编辑会话的对外入口。每个会话一个 actor，manager 负责路由。
type Runtime struct {
	system  *protoactor.ActorSystem
	root    *protoactor.RootContext
	manager *protoactor.PID
	timeout time.Duration
}

type Option func(*sessionOptions)

// WithIdleTimeout 会话空闲多久后自动关闭并解除钉住，<=0 表示不自动关闭。
func WithIdleTimeout(d time.Duration) Option {
	return func(o *sessionOptions) { o.idle = d }
}

func NewRuntime(svc *app.SaveService, log logx.Logger, askTimeout time.Duration, opts ...Option) *Runtime {
	if askTimeout <= 0 {
		askTimeout = defaultAskTimeout
	}
	so := sessionOptions{idle: defaultIdleTimeout, opTimeout: askTimeout}
	for _, opt := range opts {
		opt(&so)
	}

	system := protoactor.NewActorSystem()
	root := system.Root
	managerProps := protoactor.PropsFromProducer(func() protoactor.Actor {
		return NewManagerActor(svc, log, so)
	})
	manager := root.Spawn(managerProps)

	return &Runtime{
		system:  system,
		root:    root,
		manager: manager,
		timeout: askTimeout,
	}
}

func (r *Runtime) Shutdown() {
	if r == nil {
		return
	}
	if r.root != nil && r.manager != nil {
		// 停 manager 会连带停掉所有会话，触发解除钉住
		_ = r.root.StopFuture(r.manager).Wait()
	}
	if r.system != nil {
		r.system.Shutdown()
	}
}

func (r *Runtime) request(ctx context.Context, msg any) (any, error) {
	if r == nil || r.root == nil {
		return nil, errx.ErrInternal.WithData("reason", "actor runtime 未初始化")
	}
	future := r.root.RequestFuture(r.manager, msg, r.timeoutFromContext(ctx))
	res, err := future.Result()
	if err != nil {
		return nil, errx.ErrTimeout.WithData("op", "actor.request").WithCause(err)
	}
	return res, nil
}

func (r *Runtime) timeoutFromContext(ctx context.Context) time.Duration {
	if ctx == nil {
		return r.timeout
	}
	deadline, ok := ctx.Deadline()
	if !ok {
		return r.timeout
	}
	remain := time.Until(deadline)
	if remain <= 0 {
		return time.Millisecond
	}
	return min(remain, r.timeout)
}

// Open 为第 index 个关卡打开编辑会话，返回会话 id。
func (r *Runtime) Open(ctx context.Context, index int) (string, error) {
	res, err := r.request(ctx, &openSession{Index: index})
	if err != nil {
		return "", err
	}
	opened, ok := res.(*sessionOpened)
	if !ok {
		return "", errx.ErrInternal.WithData("reason", "actor 返回类型非法")
	}
	return opened.ID, opened.Err
}

func (r *Runtime) ask(ctx context.Context, id string, body any) (*reply, error) {
	res, err := r.request(ctx, &sessionRequest{ID: id, Body: body})
	if err != nil {
		return nil, err
	}
	rep, ok := res.(*reply)
	if !ok {
		return nil, errx.ErrInternal.WithData("reason", "actor 返回类型非法")
	}
	return rep, rep.Err
}

func (r *Runtime) Migrate(ctx context.Context, id string, kind object.IDKind, ranges []migrate.Range) error {
	_, err := r.ask(ctx, id, &migrateBody{Kind: kind, Ranges: ranges})
	return err
}

func (r *Runtime) Compact(ctx context.Context, id string, kind object.IDKind, ignored []migrate.Span) error {
	_, err := r.ask(ctx, id, &compactBody{Kind: kind, Ignored: ignored})
	return err
}

func (r *Runtime) Usage(ctx context.Context, id string, kind object.IDKind) ([]migrate.IDUsage, error) {
	rep, err := r.ask(ctx, id, &usageBody{Kind: kind})
	if err != nil {
		return nil, err
	}
	return rep.Usage, nil
}

func (r *Runtime) Info(ctx context.Context, id string) (SessionInfo, error) {
	rep, err := r.ask(ctx, id, &infoBody{})
	if err != nil {
		return SessionInfo{}, err
	}
	return rep.Info, nil
}

// Close 关闭会话并解除钉住。
func (r *Runtime) Close(ctx context.Context, id string) (SessionInfo, error) {
	rep, err := r.ask(ctx, id, &closeBody{})
	if err != nil {
		return SessionInfo{}, err
	}
	return rep.Info, nil
}
