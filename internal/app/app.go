// Package app 组装 api / admin 两个进程共用的依赖
package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"needboard/internal/core/auth"
	"needboard/internal/core/cache"
	"needboard/internal/core/config"
	"needboard/internal/core/database"
	"needboard/internal/core/events"
	"needboard/internal/core/notify"
	"needboard/internal/core/server"
	"needboard/internal/domain"
	"needboard/internal/repo"
	"needboard/internal/repo/docstore"
	"needboard/internal/service"
	"needboard/internal/transport/http/router"
)

type App struct {
	Cfg   *config.Config
	Log   *zap.Logger
	Store domain.Store
	JWT   *auth.JWTer
	Svc   router.Services

	// TTL 索引负责过期删除时为 true
	PassiveExpiry bool

	closers []func()
}

func New(ctx context.Context, cfg *config.Config, log *zap.Logger) (*App, error) {
	a := &App{Cfg: cfg, Log: log}

	st, err := a.openStore(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Store = st

	deps := service.Deps{
		Store:    st,
		Log:      log,
		Cache:    a.openCache(ctx),
		Events:   a.openEvents(),
		Notifier: a.openNotifier(),
	}
	a.JWT = &auth.JWTer{
		Secret: []byte(cfg.JWT.Secret),
		Issuer: cfg.JWT.Issuer,
		TTL:    time.Duration(cfg.JWT.AccessTokenTTLMin) * time.Minute,
	}
	a.Svc = router.Services{
		Users: service.NewUserService(deps, a.JWT),
		Needs: service.NewNeedService(deps,
			time.Duration(cfg.Market.NeedTTLDays)*24*time.Hour,
			time.Duration(cfg.Redis.NeedTTLSec)*time.Second),
		Unlocks: service.NewUnlockService(deps, service.Market{
			UnitPrice:       cfg.Market.UnitPrice,
			PaymentPrefixes: cfg.Market.PaymentPrefixes,
		}),
		Dashboard: service.NewDashboardService(deps),
		Ledger:    service.NewLedgerService(deps),
		Sweeper:   service.NewSweeper(deps),
	}
	return a, nil
}

func (a *App) openStore(ctx context.Context) (domain.Store, error) {
	c := a.Cfg.DB
	if c.Driver == "mongo" {
		db, err := database.NewMongo(ctx, database.MongoOpts{
			URI: c.DSN, Database: c.Database, MaxPoolSize: uint64(max(0, c.MaxOpenConns)),
		})
		if err != nil {
			return nil, err
		}
		st := docstore.New(db)
		a.closers = append(a.closers, func() { _ = st.Disconnect(context.Background()) })
		if c.AutoMigrate {
			if err := st.EnsureIndexes(ctx); err != nil {
				return nil, err
			}
			a.Log.Info("mongo indexes ensured")
		}
		a.PassiveExpiry = true
		a.Log.Info("database connected", zap.String("driver", c.Driver), zap.String("db", c.Database))
		return st, nil
	}

	db, err := database.NewGorm(database.Opts{
		Driver:             c.Driver,
		DSN:                c.DSN,
		Username:           c.Username,
		Password:           c.Password,
		MaxOpenConns:       c.MaxOpenConns,
		MaxIdleConns:       c.MaxIdleConns,
		ConnMaxLifetimeMin: c.ConnMaxLifetimeMin,
		LogLevel:           c.LogLevel,
		Log:                a.Log,
	})
	if err != nil {
		return nil, err
	}
	if sqlDB, err := db.DB(); err == nil {
		a.closers = append(a.closers, func() { _ = sqlDB.Close() })
	}
	st := repo.NewGormStore(db)
	if c.AutoMigrate {
		if err := st.AutoMigrate(); err != nil {
			return nil, fmt.Errorf("automigrate: %w", err)
		}
		a.Log.Info("automigrate done")
	}
	a.Log.Info("database connected", zap.String("driver", c.Driver))
	return st, nil
}

// openCache redis 不可用时退化为不缓存
func (a *App) openCache(ctx context.Context) *cache.Cache {
	r := a.Cfg.Redis
	if r.Addr == "" {
		return nil
	}
	c := cache.New(r.Addr, r.Password, r.DB)
	pctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := c.Ping(pctx); err != nil {
		a.Log.Warn("redis unavailable, cache disabled", zap.String("addr", r.Addr), zap.Error(err))
		_ = c.Close()
		return nil
	}
	a.closers = append(a.closers, func() { _ = c.Close() })
	a.Log.Info("redis connected", zap.String("addr", r.Addr))
	return c
}

func (a *App) openEvents() events.Publisher {
	n := a.Cfg.NATS
	if n.URL == "" {
		return events.Nop{}
	}
	p, err := events.ConnectNATS(n.URL, n.SubjectPrefix, a.Log)
	if err != nil {
		a.Log.Warn("nats unavailable, events disabled", zap.String("url", n.URL), zap.Error(err))
		return events.Nop{}
	}
	a.closers = append(a.closers, p.Close)
	return p
}

func (a *App) openNotifier() notify.Notifier {
	s := a.Cfg.SendGrid
	if s.APIKey == "" {
		return notify.Nop{}
	}
	return notify.NewSendGrid(s.APIKey, s.FromEmail, s.FromName)
}

func (a *App) RouterDeps() router.Deps {
	return router.Deps{
		Log:    a.Log,
		JWT:    a.JWT,
		HTTP:   a.Cfg.App.HTTP,
		Server: server.Options{Name: a.Cfg.App.Name, Env: a.Cfg.App.Env},
		Svc:    a.Svc,
	}
}

// Close 逆序释放
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
