package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"player-manager/internal/auth"
	"player-manager/internal/auth/denylist"
	"player-manager/internal/config"
	apphttp "player-manager/internal/http"
	"player-manager/internal/repository/sqlite"
	"player-manager/internal/service"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}

	if strings.TrimSpace(cfg.Auth.JWTSecret) == "" {
		logger.Fatalf("auth jwt secret is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := sqlite.Open(cfg.Database.Path)
	if err != nil {
		logger.Fatalf("open database: %v", err)
	}
	defer db.Close()

	userRepo := sqlite.NewUserRepository(db)
	playerRepo := sqlite.NewPlayerRepository(db)

	if err := userRepo.Init(ctx); err != nil {
		logger.Fatalf("init user repository: %v", err)
	}
	if err := playerRepo.Init(ctx); err != nil {
		logger.Fatalf("init player repository: %v", err)
	}

	userService := service.NewUserService(userRepo)
	playerService := service.NewPlayerService(playerRepo, cfg.Players.OwnerScoped)

	denied, err := buildDenylist(cfg, logger)
	if err != nil {
		logger.Fatalf("setup denylist: %v", err)
	}
	defer denied.Close()

	tokenService, err := auth.NewTokenService(
		cfg.Auth.JWTSecret,
		cfg.Auth.JWTAlgorithm,
		time.Duration(cfg.Auth.TokenTTLMinutes)*time.Minute,
		denied,
	)
	if err != nil {
		logger.Fatalf("setup token service: %v", err)
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	handler := apphttp.NewHandler(userService, playerService, tokenService, logger)
	handler.RegisterRoutes(router)

	srv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: router,
	}

	go func() {
		logger.Infof("listening on %s", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("http server: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warnf("http shutdown: %v", err)
	}

	logger.Info("bye")
}

func buildDenylist(cfg config.Config, logger *logrus.Logger) (denylist.Denylist, error) {
	switch cfg.Denylist.Backend {
	case "memory":
		return denylist.NewMemory(cfg.Denylist.SweepInterval), nil
	case "redis":
		denied, err := denylist.NewRedis(cfg.Denylist.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("connect redis denylist: %w", err)
		}
		logger.Infof("using redis denylist at %s", cfg.Denylist.RedisURL)
		return denied, nil
	default:
		return nil, fmt.Errorf("unknown denylist backend %q", cfg.Denylist.Backend)
	}
}
