package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "go.uber.org/automaxprocs"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"needboard/internal/app"
	"needboard/internal/core/config"
	"needboard/internal/core/logger"
	"needboard/internal/core/server"
	"needboard/internal/transport/http/router"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load(os.Getenv("CONFIG_PATH"))
	log, cleanup := logger.FromConfig(cfg.Log)
	defer cleanup()
	defer logger.RedirectStdLog(log, zapcore.InfoLevel)()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Fatal("bootstrap failed", zap.Error(err))
	}
	defer a.Close()

	ad := cfg.App.Admin
	if err := a.Svc.Users.EnsureAdmin(ctx, ad.BootstrapEmail, ad.BootstrapPhone, ad.BootstrapPassword); err != nil {
		log.Fatal("bootstrap admin failed", zap.Error(err))
	}

	r := router.NewAdminEngine(a.RouterDeps())

	h := cfg.App.HTTP
	addr := server.Addr(ad.Host, ad.Port)
	srv := server.BuildServer(
		addr, r,
		time.Duration(h.ReadTimeoutSec)*time.Second,
		time.Duration(h.WriteTimeoutSec)*time.Second,
		time.Duration(h.IdleTimeoutSec)*time.Second,
	)
	log.Info("admin api starting", zap.String("addr", addr), zap.String("admin_v1", "http://"+addr+"/admin/v1"))

	if err := server.Run(ctx, srv, log, 10*time.Second); err != nil {
		log.Fatal("admin api FAILED", zap.Error(err))
	}
	log.Info("admin api stopped gracefully")
}
