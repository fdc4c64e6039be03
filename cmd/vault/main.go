package main

import (
	"context"
	"errors"
	"fmt"
	nethttp "net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"LevelVault/internal/gamesave/actors"
	"LevelVault/internal/gamesave/app"
	"LevelVault/internal/gamesave/app/loader"
	"LevelVault/internal/gamesave/domain/object"
	"LevelVault/internal/gamesave/infra/crypt"
	"LevelVault/internal/gamesave/infra/persistence/memory"
	"LevelVault/internal/gamesave/infra/persistence/mongodb"
	persistmysql "LevelVault/internal/gamesave/infra/persistence/mysql"
	"LevelVault/internal/gamesave/infra/savefile"
	"LevelVault/internal/gamesave/infra/watch"
	"LevelVault/internal/gamesave/interfaces"
	"LevelVault/internal/shared/infrastructure/db"
	"LevelVault/internal/shared/infrastructure/mongo"
	"LevelVault/internal/shared/logs"
	"LevelVault/internal/shared/serverconfig"
	transportgrpc "LevelVault/internal/shared/transport/grpc"
	transporthttp "LevelVault/internal/shared/transport/http"
	"LevelVault/internal/shared/transport/ws"
	"LevelVault/internal/shared/utils/snowflake"
	"LevelVault/modules/kit/logx"
)

func main() {
	var current atomic.Pointer[app.SaveService]
	onChange := func() {
		c := serverconfig.Snapshot()
		logs.SetLevel(c.Log.Level)
		if svc := current.Load(); svc != nil {
			svc.SetThreshold(c.Cache.ObjectCountThreshold)
		}
	}
	if err := serverconfig.Load(os.Getenv("LEVELVAULT_CONF"), onChange); err != nil {
		panic(err)
	}
	cfg := serverconfig.Snapshot()
	if err := logs.Init("vault", cfg.Log); err != nil {
		panic(err)
	}
	defer logs.Sync()
	log := logx.NewZapLogger(logs.Logger())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fileCipher, err := crypt.NewFileCipher(cfg.Save.Cipher, cfg.Save.AESKey)
	if err != nil {
		logs.Fatal("invalid save cipher", zap.Error(err))
	}
	ids, err := snowflake.Default()
	if err != nil {
		logs.Fatal("init snowflake failed", zap.Error(err))
	}
	repos, err := openRepos(ctx, cfg)
	if err != nil {
		logs.Fatal("open repositories failed", zap.Error(err))
	}
	defer repos.close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	svc := app.NewSaveService(app.Deps{
		Codec:         object.NewCodec(object.NewRegistry()),
		File:          savefile.New(cfg.Save.Path),
		FileCipher:    fileCipher,
		PayloadCipher: crypt.PayloadCipher{},
		Snapshots:     repos.snapshots,
		Index:         repos.index,
		IDs:           ids,
		Log:           log,
		CacheOptions: []loader.Option{
			loader.WithWorkers(cfg.Cache.Workers),
			loader.WithThreshold(cfg.Cache.ObjectCountThreshold),
			loader.WithMetrics(loader.NewMetrics(reg)),
		},
	})
	current.Store(svc)

	grpcAddr := fmt.Sprintf("%s:%d", cfg.GRPCServer.Host, cfg.GRPCServer.Port)
	grpcServer := transportgrpc.NewServer(grpcAddr, log)
	errCh := make(chan error, 2)
	if cfg.GRPCServer.Port > 0 {
		go func() {
			logs.Info("grpc health server started", zap.String("addr", grpcAddr))
			if err := grpcServer.Start(); err != nil {
				errCh <- fmt.Errorf("grpc serve failed: %w", err)
			}
		}()
	}

	if err = svc.Open(ctx); err != nil {
		logs.Fatal("open save file failed", zap.String("path", cfg.Save.Path), zap.Error(err))
	}
	grpcServer.SetServing(true)

	if cfg.Cache.Preload {
		go func() {
			if err := svc.LoadAll(ctx, 0); err != nil {
				logs.Warn("preload finished with errors", zap.Error(err))
			}
		}()
	}

	if cfg.Save.Watch {
		w, err := watch.New(cfg.Save.Path, cfg.Save.WatchDebounce, log)
		if err != nil {
			logs.Fatal("watch save file failed", zap.Error(err))
		}
		go func() {
			_ = w.Run(ctx, func(ctx context.Context) {
				changed, err := svc.Reload(ctx)
				if err != nil {
					logs.Warn("reload save file failed", zap.Error(err))
					return
				}
				if changed {
					logs.Info("save file reloaded", zap.Int("levels", svc.Stats().Levels))
				}
			})
		}()
	}

	sessions := actors.NewRuntime(svc, log, 0)
	module := interfaces.New(svc, sessions, log)

	gin.SetMode(gin.ReleaseMode)
	if cfg.Log.Dev {
		gin.SetMode(gin.DebugMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())
	httpAddr := fmt.Sprintf("%s:%d", cfg.HTTPServer.Host, cfg.HTTPServer.Port)
	httpServer := transporthttp.NewHttpServer(httpAddr, engine, log, reg)
	httpServer.Register(module)

	router := ws.NewRouter(log)
	module.WsRegister(router)
	wsServer := ws.NewServer(router, log)
	wsServer.OnConnect(module.WsAttach)
	engine.GET("/ws/loader", gin.WrapH(wsServer))

	go func() {
		logs.Info("http server started", zap.String("addr", httpAddr))
		if err := httpServer.Start(); err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
			errCh <- fmt.Errorf("http serve failed: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		logs.Info("收到退出信号，准备优雅退出")
	case err := <-errCh:
		logs.Error("服务异常退出", zap.Error(err))
	}

	grpcServer.SetServing(false)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logs.Warn("http shutdown", zap.Error(err))
	}
	sessions.Shutdown()
	grpcServer.Stop()

	for _, l := range svc.Levels() {
		if l.IsDirty() {
			logs.Warn("exit with unsaved level", zap.String("name", l.Name()))
		}
	}
}

type repoSet struct {
	snapshots app.SnapshotRepo
	index     app.IndexRepo
	closers   []func()
}

func (r *repoSet) close() {
	for _, fn := range r.closers {
		fn()
	}
}

// openRepos 配置了外部库时用 mongo/mysql，否则退回内存实现。
func openRepos(ctx context.Context, cfg serverconfig.Config) (*repoSet, error) {
	rs := &repoSet{}

	if cfg.MongoDB.URI != "" {
		client, err := mongo.Open(ctx, cfg.MongoDB, logs.Logger())
		if err != nil {
			return nil, err
		}
		rs.closers = append(rs.closers, func() { _ = client.Disconnect(context.Background()) })
		repo := mongodb.NewSnapshotRepo(client.Database(cfg.MongoDB.Database))
		if err = repo.EnsureIndexes(ctx); err != nil {
			rs.close()
			return nil, err
		}
		rs.snapshots = repo
	} else {
		logs.Warn("mongodb not configured, snapshots kept in memory")
		rs.snapshots = memory.NewSnapshotRepo()
	}

	if cfg.MySQL.Host != "" {
		gdb, err := db.Open(cfg.MySQL)
		if err != nil {
			rs.close()
			return nil, err
		}
		if sqlDB, err := gdb.DB(); err == nil {
			rs.closers = append(rs.closers, func() { _ = sqlDB.Close() })
		}
		repo := persistmysql.NewIndexRepo(gdb)
		if err = repo.AutoMigrate(); err != nil {
			rs.close()
			return nil, err
		}
		rs.index = repo
	} else {
		logs.Warn("mysql not configured, level index kept in memory")
		rs.index = memory.NewIndexRepo()
	}
	return rs, nil
}
