package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"internboard/internal/config"
	"internboard/internal/handlers"
	"internboard/internal/logger"
	"internboard/internal/middleware"
	"internboard/internal/pdf"
	"internboard/internal/repositories"
	"internboard/internal/routes"
	"internboard/internal/scheduler"
	"internboard/internal/services"
	"internboard/internal/session"
	"internboard/internal/utils"
	"internboard/internal/web"
)

func Run() {
	cfg := config.LoadConfig()

	zl, err := logger.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		log.Fatalf("logger init: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, zl); err != nil {
		zl.Fatal("server stopped", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, zl *zap.Logger) error {
	// === DB ===
	db, err := setupDatabase(ctx, cfg.Database, zl)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			zl.Warn("db close", zap.Error(err))
		}
	}()

	// === Redis ===
	rdb, err := setupRedis(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	defer func() { _ = rdb.Close() }()

	// === Repos ===
	userRepo := repositories.NewUserRepository(db)
	internshipRepo := repositories.NewInternshipRepository(db)

	// === Services ===
	hasher := services.NewPasswordHasher(cfg.Auth.BcryptCost)
	emailService := services.NewEmailService(
		cfg.Email.SMTPHost,
		cfg.Email.SMTPPort,
		cfg.Email.SMTPUser,
		cfg.Email.SMTPPassword,
		cfg.Email.FromEmail,
	)
	credentialService := services.NewCredentialService(userRepo, hasher, zl)
	sessionService := services.NewSessionService(session.NewRedisStore(rdb), credentialService, cfg.Session.TTL, zl)
	resetService := services.NewPasswordResetService(userRepo, hasher, emailService, cfg.Auth.OTPTTL, zl)
	internshipService := services.NewInternshipService(
		internshipRepo,
		setupAnnouncer(cfg, zl),
		cfg.Listings.PageSize,
		zl,
	)
	tickets := utils.NewTicketIssuer(cfg.Auth.TicketSecret, cfg.Auth.TicketTTL)

	// === Sweeper ===
	sweeper, err := scheduler.NewSweeper(internshipService, cfg.Listings.SweepSchedule, zl)
	if err != nil {
		return err
	}
	_, _ = sweeper.RunOnce(ctx)
	sweeper.Start()

	// === Handlers ===
	cookie := session.CookieOptions{Secure: cfg.Session.CookieSecure}
	authHandler := handlers.NewAuthHandler(credentialService, sessionService, cookie, zl)
	resetHandler := handlers.NewPasswordResetHandler(resetService, tickets, zl)
	internshipHandler := handlers.NewInternshipHandler(internshipService, pdf.NewBoardExporter(), zl)
	healthHandler := handlers.NewHealthHandler(map[string]handlers.Check{
		"database": db.PingContext,
		"redis":    func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
	})

	// === Gin ===
	if cfg.Log.Format != "console" {
		gin.SetMode(gin.ReleaseMode)
	}
	tmpl, err := web.Templates()
	if err != nil {
		return fmt.Errorf("templates: %w", err)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(zl))
	router.SetHTMLTemplate(tmpl)

	routes.SetupRoutes(
		router,
		middleware.RequireSession(sessionService, cookie, zl),
		authHandler,
		resetHandler,
		internshipHandler,
		healthHandler,
	)

	// === Run ===
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		zl.Info("server started", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		zl.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			_ = sweeper.Stop(context.Background())
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zl.Warn("http shutdown", zap.Error(err))
	}
	if err := sweeper.Stop(shutdownCtx); err != nil {
		zl.Warn("sweeper stop", zap.Error(err))
	}
	zl.Info("server stopped")
	return nil
}
