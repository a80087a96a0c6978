package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"

	_ "github.com/noah-isme/smartsql-client/api/swagger"
	"github.com/noah-isme/smartsql-client/internal/mockserver"
	"github.com/noah-isme/smartsql-client/pkg/config"
	"github.com/noah-isme/smartsql-client/pkg/logger"
)

// @title SmartSQL API
// @version 1.0.0
// @description In-memory development backend for the SmartSQL learning platform
// @BasePath /api
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	srv, err := mockserver.New(mockserver.OptionsFromConfig(cfg, logr))
	if err != nil {
		logr.Sugar().Fatalw("failed to build server", "error", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logr.Sugar().Infow("server starting", "addr", srv.Addr(), "env", cfg.Env)
	if err := srv.Run(ctx); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
