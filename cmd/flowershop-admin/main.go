// Package main запускает HTTP-сервер панели администратора цветочного магазина.
package main

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mmeshcher/flowershop-admin/internal/audit"
	"github.com/mmeshcher/flowershop-admin/internal/broker"
	"github.com/mmeshcher/flowershop-admin/internal/cache"
	"github.com/mmeshcher/flowershop-admin/internal/config"
	"github.com/mmeshcher/flowershop-admin/internal/handler"
	"github.com/mmeshcher/flowershop-admin/internal/middleware"
	"github.com/mmeshcher/flowershop-admin/internal/repository"
	"github.com/mmeshcher/flowershop-admin/internal/service"
	"github.com/mmeshcher/flowershop-admin/internal/session"
	"github.com/mmeshcher/flowershop-admin/internal/settings"
	"github.com/mmeshcher/flowershop-admin/internal/upstream"
	"github.com/mmeshcher/flowershop-admin/internal/ws"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	sugar := logger.Sugar()

	cfg, err := config.Parse()
	if err != nil {
		sugar.Fatalw("configuration error", "error", err.Error())
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var (
		sinks  []audit.Sink
		reader audit.Reader
	)
	if cfg.DatabaseURI != "" {
		repo, err := repository.NewPostgresRepository(ctx, cfg.DatabaseURI)
		if err != nil {
			sugar.Fatalw("database initialization error", "error", err.Error())
		}
		defer repo.Close()
		sinks = append(sinks, repo)
		reader = repo
	}
	if cfg.AMQPURL != "" {
		publisher, err := broker.NewPublisher(cfg.AMQPURL)
		if err != nil {
			sugar.Fatalw("broker initialization error", "error", err.Error())
		}
		defer publisher.Close()
		sinks = append(sinks, publisher)
	}
	if len(sinks) == 0 {
		sugar.Info("audit storage is not configured, admin actions are logged only")
	}
	journal := audit.NewJournal(logger, reader, sinks...)

	client := upstream.NewClient(cfg.APIBaseURL, cfg.APITimeout)
	sessions := session.NewManager(cfg.SessionSecret, client, cfg.SessionRecheck)
	sessions.SetSecure(cfg.SecureCookie)
	sessions.SetCrossSite(len(cfg.AllowedOrigins) > 0)

	hub := ws.NewHub(logger)
	c := cache.New(cfg.CacheTTL)
	c.Subscribe(hub.NotifyInvalidated)

	svc := service.NewService(client, c, journal, settings.Default(), logger)

	authMiddleware := middleware.NewAuthMiddleware(sessions, logger)
	h := handler.NewHandler(svc, sessions, logger, authMiddleware,
		handler.WithLiveUpdates(hub.Handler(sameOrigin(cfg.AllowedOrigins))),
		handler.WithAllowedOrigins(cfg.AllowedOrigins),
	)

	server := &http.Server{
		Addr:              cfg.RunAddress,
		Handler:           h.SetupRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		hub.Run(ctx)
		return nil
	})

	// журнал останавливается после сервера, чтобы дописать действия последних запросов
	journalCtx, stopJournal := context.WithCancel(context.Background())
	g.Go(func() error {
		return journal.Run(journalCtx)
	})

	g.Go(func() error {
		sugar.Infow("starting admin panel", "addr", cfg.RunAddress, "api", cfg.APIBaseURL)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Graceful shutdown при отмене контекста (сигнал или ошибка в другой горутине)
	g.Go(func() error {
		defer stopJournal()
		<-ctx.Done()
		sugar.Info("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		sugar.Info("server stopped gracefully")
		return nil
	})

	if err := g.Wait(); err != nil {
		sugar.Fatalw("application terminated with error", "error", err)
	}
}

// sameOrigin разрешает websocket со страниц самой панели и с адресов из списка CORS.
func sameOrigin(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		if slices.Contains(allowed, origin) {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		return u.Host == r.Host
	}
}
