package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wichananm65/user-registry/internal/config"
	"github.com/wichananm65/user-registry/internal/infrastructure/database"
	"github.com/wichananm65/user-registry/internal/interface/http/router"
	"github.com/wichananm65/user-registry/internal/logging"
	"github.com/wichananm65/user-registry/internal/notify"
	"github.com/wichananm65/user-registry/internal/upload"
	"github.com/wichananm65/user-registry/internal/user"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server (default)",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := logging.New(os.Stdout, cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(ctx, cfg.DBDriver, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	version, err := database.Migrate(ctx, db, cfg.DBDriver)
	if err != nil {
		return err
	}
	logger.Info("database ready", "driver", cfg.DBDriver, "schema_version", version)

	deps := router.Deps{
		BasePath:  cfg.BasePath,
		PublicDir: cfg.PublicDir,
		// multipart framing on top of the largest allowed picture
		BodyLimit: int(cfg.MaxUploadBytes) + 1<<20,
		DB:        db,
		Logger:    logger,
	}

	pictures, err := newPictureStore(ctx, cfg, &deps)
	if err != nil {
		return err
	}

	notifier, err := newNotifier(cfg, logger)
	if err != nil {
		return err
	}

	svc := user.NewService(user.NewSQLRepository(db), pictures, notifier, logger)
	deps.Users = user.NewHandler(svc, logger)
	app := router.New(deps)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", cfg.Addr, "base_path", cfg.BasePath)
		errCh <- app.Listen(cfg.Addr)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("listen: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return app.ShutdownWithContext(shutdownCtx)
}

// newPictureStore builds the configured backend and records how uploaded
// pictures are served.
func newPictureStore(ctx context.Context, cfg config.Config, deps *router.Deps) (upload.Store, error) {
	if cfg.UploadBackend == config.BackendS3 {
		store, err := upload.NewS3Store(ctx, upload.S3Options{
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			Prefix:    cfg.S3Prefix,
		}, cfg.MaxUploadBytes)
		if err != nil {
			return nil, err
		}
		deps.Presigner = store
		return store, nil
	}

	store, err := upload.NewLocalStore(cfg.UploadDir, cfg.MaxUploadBytes)
	if err != nil {
		return nil, err
	}
	deps.UploadDir = store.Dir()
	return store, nil
}

func newNotifier(cfg config.Config, logger *slog.Logger) (notify.Notifier, error) {
	if !cfg.MailEnabled() {
		logger.Warn("EMAIL_USER or EMAIL_PASS not set, confirmation emails are disabled")
		return notify.Disabled{}, nil
	}
	return notify.NewSMTPNotifier(notify.SMTPOptions{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.MailUser,
		Password: cfg.MailPassword,
		From:     cfg.MailFrom,
		Timeout:  cfg.MailTimeout,
	})
}
