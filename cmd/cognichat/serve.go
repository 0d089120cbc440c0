package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/ashureev/cognichat/internal/api"
	"github.com/ashureev/cognichat/internal/auth"
	"github.com/ashureev/cognichat/internal/chatlog"
	"github.com/ashureev/cognichat/internal/config"
	"github.com/ashureev/cognichat/internal/middleware"
	"github.com/ashureev/cognichat/internal/session"
	"github.com/ashureev/cognichat/internal/store"
	"github.com/ashureev/cognichat/internal/ws"
	"github.com/ashureev/cognichat/web"
)

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the chat server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
				Level: cfg.LogLevel,
			}))
			slog.SetDefault(logger)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, logger)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	slog.Info("Starting server", "port", cfg.Port, "dev", cfg.IsDevelopment())

	ds, err := loadDataset(cfg.Dataset)
	if err != nil {
		return err
	}
	slog.Info("Dataset loaded", "rows", ds.Len(), "path", cfg.Dataset.Path)

	repo, err := store.NewSQLite(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("initialize database: %w", err)
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			slog.Error("Failed to close repository", "error", closeErr)
		}
	}()
	slog.Info("Database connected", "path", cfg.DBPath)

	gate, err := auth.NewGate(cfg.Users, 0)
	if err != nil {
		return fmt.Errorf("initialize auth gate: %w", err)
	}
	slog.Info("Auth gate ready", "users", gate.Usernames())

	chatLog, err := chatlog.New(chatlog.Config{
		Enabled:   cfg.ConversationLog.Enabled,
		Dir:       cfg.ConversationLog.Dir,
		QueueSize: cfg.ConversationLog.QueueSize,
	}, logger)
	if err != nil {
		return fmt.Errorf("initialize conversation logger: %w", err)
	}
	defer func() {
		if closeErr := chatLog.Close(); closeErr != nil {
			slog.Error("Failed to close conversation logger", "error", closeErr)
		}
	}()

	mgr, err := session.NewManager(session.Options{
		Repo:            repo,
		Gate:            gate,
		Dataset:         ds,
		ChatLog:         chatLog,
		Logger:          logger,
		DefaultSettings: cfg.DefaultSettings(),
	})
	if err != nil {
		return fmt.Errorf("initialize session manager: %w", err)
	}

	limiter := api.NewRateLimiter(cfg.RateLimit.PerMinute, cfg.RateLimit.Burst)
	limiter.StartEviction(ctx, time.Minute)
	registry := ws.NewRegistry()
	mgr.OnLogout(registry.CloseSession)

	secure := !cfg.IsDevelopment()
	apiHandler := api.NewHandler(mgr, repo, limiter, secure)
	wsHandler := ws.NewHandler(mgr, registry, limiter, ws.OriginPatterns(cfg.AllowedOrigins))

	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))
	r.Use(middleware.CORS(cfg.AllowedOrigins))

	apiHandler.RegisterRoutes(r)
	r.With(session.Middleware(mgr, secure)).Get("/ws/chat", wsHandler.ServeHTTP)

	// Embedded client (SPA catch-all).
	r.Handle("/*", web.SPAHandler())

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // websocket connections are long-lived
		IdleTimeout:  120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("Shutting down gracefully...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	slog.Info("Server stopped successfully")
	return nil
}
