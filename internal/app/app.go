package app

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

	"go-tours-api/internal/config"
	"go-tours-api/internal/database"
	"go-tours-api/internal/handler"
	"go-tours-api/internal/mailer"
	"go-tours-api/internal/middleware"
	"go-tours-api/internal/repository"
	"go-tours-api/internal/router"
	"go-tours-api/internal/service"
)

type App struct {
	server *http.Server
	db     *database.DB
}

func New() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	slog.Info("connecting to PostgreSQL")
	db, err := database.New(context.Background(), cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.EnsureSchema(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ensure database schema: %w", err)
	}

	pool := db.Pool
	userRepo := repository.NewUserRepository(pool)
	tourRepo := repository.NewTourRepository(pool)
	reviewRepo := repository.NewReviewRepository(pool)
	slog.Info("database ready")

	var mail mailer.Mailer = mailer.LogMailer{}
	if cfg.SMTPHost != "" {
		mail = mailer.NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.EmailFrom)
	}

	tokenService := service.NewTokenService(cfg.JWTSecret, cfg.JWTTTL)
	hasher := service.NewPasswordHasher(cfg.BcryptCost)
	resetTokens := service.NewResetTokenManager(cfg.ResetTokenTTL)
	authService := service.NewAuthService(userRepo, tokenService, hasher, resetTokens, mail, cfg.ResetURLBase)
	userService := service.NewUserService(userRepo)
	tourService := service.NewTourService(tourRepo)
	reviewService := service.NewReviewService(reviewRepo, tourRepo)

	guard := middleware.NewAuthMiddleware(tokenService, userRepo)

	appRouter := router.New(cfg, guard, router.Handlers{
		Auth:   handler.NewAuthHandler(authService),
		User:   handler.NewUserHandler(userService),
		Tour:   handler.NewTourHandler(tourService),
		Review: handler.NewReviewHandler(reviewService),
	})

	server := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           appRouter,
		ReadHeaderTimeout: cfg.ServerReadHeaderTimeout,
		WriteTimeout:      cfg.ServerWriteTimeout,
		IdleTimeout:       cfg.ServerIdleTimeout,
	}

	return &App{server: server, db: db}, nil
}

func (a *App) Run() error {
	go func() {
		slog.Info("server starting", "addr", a.server.Addr)
		if serveErr := a.server.ListenAndServe(); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			slog.Error("server failed", "error", serveErr)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.server.Shutdown(ctx); err != nil {
		a.db.Close()
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	a.db.Close()

	slog.Info("server stopped")
	return nil
}
