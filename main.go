package main

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/multierr"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/msomdec/tempo/internal/config"
	"github.com/msomdec/tempo/internal/handler"
	"github.com/msomdec/tempo/internal/live"
	"github.com/msomdec/tempo/internal/mail"
	"github.com/msomdec/tempo/internal/metrics"
	"github.com/msomdec/tempo/internal/repository/sqlite"
	"github.com/msomdec/tempo/internal/service"
)

func main() {
	cfg, err := config.Load(context.Background())
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	slog.SetDefault(newLogger(cfg))

	if err := run(cfg); err != nil {
		slog.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}

// newLogger logs text to stdout and JSON to stderr, or JSON to a rotated
// file when LOG_FILE is set.
func newLogger(cfg *config.Config) *slog.Logger {
	logOpts := &slog.HandlerOptions{Level: cfg.Level()}
	if cfg.LogFile != "" {
		var w io.Writer = &lumberjack.Logger{
			Filename:  cfg.LogFile,
			MaxSize:   50, // megabytes
			LocalTime: false,
			Compress:  true,
		}
		return slog.New(slog.NewMultiHandler(
			slog.NewTextHandler(os.Stdout, logOpts),
			slog.NewJSONHandler(w, logOpts),
		))
	}
	return slog.New(slog.NewMultiHandler(
		slog.NewTextHandler(os.Stdout, logOpts),
		slog.NewJSONHandler(os.Stderr, logOpts),
	))
}

func run(cfg *config.Config) (err error) {
	db, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, db.Close()) }()

	if err := db.Migrate(context.Background()); err != nil {
		return err
	}
	slog.Info("database migrations applied")

	var mailer mail.Sender = mail.NoopSender{}
	if cfg.ResendAPIKey != "" {
		mailer = mail.NewResendSender(cfg.ResendAPIKey, cfg.MailFrom)
	} else {
		slog.Warn("RESEND_API_KEY not set, sign-in links are logged instead of sent")
	}

	authService := service.NewAuthService(db.Users(), db.MagicLinks(), mailer, service.AuthConfig{
		JWTSecret:  cfg.JWTSecret,
		BcryptCost: cfg.BcryptCost,
		BaseURL:    cfg.BaseURL,
	})
	defer authService.Close()

	reg := metrics.NewRegistry()
	m := metrics.NewManager("tempo", "server", reg)

	// Graceful shutdown on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	screens := live.NewRegistry(cfg.AutosaveDelay, live.WithObserver(m))
	screensDone := make(chan struct{})
	go func() {
		screens.Run(ctx)
		close(screensDone)
	}()

	var trusted []string
	if u, err := url.Parse(cfg.BaseURL); err == nil && u.Host != "" {
		trusted = append(trusted, u.Host)
	}

	srv := &http.Server{
		Addr: cfg.Addr(),
		Handler: handler.New(handler.Deps{
			Auth:             authService,
			Profiles:         db.Profiles(),
			Sessions:         db.Sessions(),
			Routines:         db.Routines(),
			RoutineExercises: db.RoutineExercises(),
			SessionExercises: db.SessionExercises(),
			SessionSets:      db.SessionSets(),
			Screens:          screens,
			Metrics:          m,
			Gatherer:         reg,
			CookieSecure:     cfg.CookieSecure,
			CSRFKey:          cfg.CSRFAuthKey(),
			TrustedOrigins:   trusted,
			Now:              time.Now,
		}),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20, // 1MB
	}

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		stop()
		<-screensDone
		return err
	}
	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Open event streams end when the screens close.
	<-screensDone
	return srv.Shutdown(shutdownCtx)
}
