package cmd

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/trace"

	"github.com/shaharia-lab/mailadapter/internal/build"
	"github.com/shaharia-lab/mailadapter/internal/config"
	"github.com/shaharia-lab/mailadapter/internal/eventbus"
	"github.com/shaharia-lab/mailadapter/internal/logger"
	"github.com/shaharia-lab/mailadapter/internal/notification"
	"github.com/shaharia-lab/mailadapter/internal/service"
	"github.com/shaharia-lab/mailadapter/internal/storage"
	"github.com/shaharia-lab/mailadapter/internal/telemetry"
)

// app holds the components shared by the subcommands.
type app struct {
	cfg    *config.AppConfig
	logger *slog.Logger
	db     *sql.DB
	store  *storage.SQLiteNotificationStore

	tracerProvider trace.TracerProvider
	shutdownTracer telemetry.ShutdownFunc

	// Set by withService.
	bus     eventbus.EventBus
	service service.NotificationService
}

// newApp loads configuration, opens the system log, sets up tracing and
// opens the database.
func newApp(cmd *cobra.Command) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if dir, _ := cmd.Flags().GetString("data-dir"); dir != "" {
		cfg.DataDir = dir
	}

	log, err := logger.NewSystemLogger(cfg.LogDir(), cfg.SlogLevel())
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	slog.SetDefault(log)

	tp, shutdownTracer, err := telemetry.Init(cmd.Context(), telemetry.Options{
		Endpoint:       cfg.Tracing.Endpoint,
		Insecure:       cfg.Tracing.Insecure,
		ServiceName:    cfg.Tracing.ServiceName,
		ServiceVersion: build.Version,
		SampleRatio:    cfg.Tracing.SampleRatio,
		Logger:         log,
	})
	if err != nil {
		return nil, fmt.Errorf("initializing tracing: %w", err)
	}

	db, fresh, err := storage.NewSQLiteDB(cfg.DBPath())
	if err != nil {
		_ = shutdownTracer(context.Background())
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if fresh {
		log.Info("created database", "path", cfg.DBPath())
	}

	return &app{
		cfg:    cfg,
		logger: log,
		db:     db,
		store:  storage.NewSQLiteNotificationStore(db),

		tracerProvider: tp,
		shutdownTracer: shutdownTracer,
	}, nil
}

// withService builds the mail adapter and the notification service. When
// enqueueing is enabled, deliveries run on an event bus worker pool.
func (a *app) withService() error {
	var rendererOpts []notification.RendererOption
	if a.cfg.TemplatesDir != "" {
		rendererOpts = append(rendererOpts, notification.WithTemplateFS(os.DirFS(a.cfg.TemplatesDir)))
	}

	factory := notification.AdapterFactory{
		Options: []notification.Option{notification.WithLogger(a.logger)},
	}
	adapter, err := factory.Create(notification.NewRenderer(rendererOpts...), a.cfg.Enqueue, a.cfg.SMTPConfig())
	if err != nil {
		return err
	}

	var publisher service.EventPublisher
	if a.cfg.Enqueue {
		a.bus = eventbus.New(a.cfg.Workers, a.logger)
		publisher = a.bus
	}

	a.service = service.NewNotificationService(adapter, a.store, publisher, a.logger,
		service.WithTracerProvider(a.tracerProvider))
	if a.bus != nil {
		a.bus.Subscribe(a.service.HandleEvent)
	}
	return nil
}

// Close waits for queued deliveries, flushes spans and closes the database.
func (a *app) Close() {
	if a.bus != nil {
		a.bus.Close()
	}
	if err := a.shutdownTracer(context.Background()); err != nil {
		a.logger.Error("failed to shut down tracing", "error", err)
	}
	if err := a.db.Close(); err != nil {
		a.logger.Error("failed to close database", "error", err)
	}
}
