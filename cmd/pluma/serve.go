package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
	"golang.org/x/sync/errgroup"

	"github.com/templodoabismo/pluma/internal/config"
	"github.com/templodoabismo/pluma/internal/infra/database"
	"github.com/templodoabismo/pluma/internal/infra/logger"
	"github.com/templodoabismo/pluma/internal/infra/providers"
	"github.com/templodoabismo/pluma/internal/infra/telemetry"
	"github.com/templodoabismo/pluma/internal/present/rest"
	"github.com/templodoabismo/pluma/internal/present/rest/middleware"
	"github.com/templodoabismo/pluma/internal/service"
	"github.com/templodoabismo/pluma/internal/usecase"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the sweep scheduler",
	RunE:  runServe,
}

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Fill in today's missing manifestations once and exit",
	RunE:  runSweep,
}

type app struct {
	conf        config.Config
	log         *slog.Logger
	coordinator *usecase.Coordinator
	signal      *service.SignalService
	shutdown    func(context.Context) error
}

func setup(ctx context.Context) (*app, error) {
	conf, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	shutdown := func(context.Context) error { return nil }
	if conf.Server.EnableTrace {
		shutdown, err = telemetry.Setup(ctx, telemetry.Config{
			ServiceName:    "pluma",
			ServiceVersion: version,
			Endpoint:       conf.Server.TraceEndpoint,
			SampleRatio:    conf.Server.TraceSampleRatio,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to set up telemetry: %w", err)
		}
	}

	log := logger.New(os.Stdout, "pluma", conf.Server.EnableTrace)
	slog.SetDefault(log)

	db, err := providers.NewDatabase(conf.Server)
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}
	if err := providers.MigrateDatabase(db); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	completer, err := providers.NewCompleter(ctx, conf.Generator)
	if err != nil {
		return nil, err
	}

	repo := providers.NewManifestationRepository(db, conf, providers.NewMemcache(conf.Server.MemcachedAddr), log)

	generator := usecase.NewContentGenerator(completer, usecase.GeneratorOptions{
		MaxTokens:   conf.Generator.MaxTokens,
		Temperature: conf.Generator.Temperature,
	}, log)

	a := &app{conf: conf, log: log, shutdown: shutdown}

	var publisher usecase.EventPublisher
	if rdb := database.NewRedis(conf.Server.RedisAddr, conf.Server.RedisPassword, conf.Server.RedisDB); rdb != nil {
		a.signal = service.NewSignalService(rdb)
		publisher = a.signal
	}

	a.coordinator = usecase.NewCoordinator(repo, generator, publisher, conf.Scheduler.Location(), log)

	log.InfoContext(ctx, "configured",
		slog.String("provider", conf.Generator.Provider),
		slog.String("model", completer.Model()),
		slog.String("timezone", conf.Scheduler.Timezone),
		slog.Bool("history", conf.Store.RetainHistory),
		slog.Bool("realtime", a.signal != nil),
		slog.String("module", "main"),
	)

	return a, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := setup(ctx)
	if err != nil {
		return err
	}

	scheduler := service.NewScheduler(a.coordinator, a.conf.Scheduler.Interval, a.log)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(echomw.Recover())
	e.Use(echomw.CORS())
	if a.conf.Server.EnableTrace {
		e.Use(otelecho.Middleware("pluma", otelecho.WithSkipper(func(c echo.Context) bool {
			return c.Path() == "/metrics" || c.Path() == "/health"
		})))
	}

	handler := rest.NewHandler(a.conf, a.coordinator, scheduler, a.signal)
	handler.RegisterRoutes(e, middleware.NewAuthMiddleware(a.conf.Server.AdminToken).RequireAdmin)

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.log.InfoContext(gCtx, "listening",
			slog.String("address", a.conf.Server.Listen),
			slog.String("module", "main"),
		)
		if err := e.Start(a.conf.Server.Listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		if !a.conf.Scheduler.IsEnabled() {
			a.log.InfoContext(gCtx, "scheduler disabled", slog.String("module", "main"))
			return nil
		}
		scheduler.Start(gCtx)
		<-gCtx.Done()
		scheduler.Stop()
		return nil
	})

	g.Go(func() error {
		<-gCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return e.Shutdown(shutdownCtx)
	})

	err = g.Wait()

	// The scheduler's loop may outlive the errgroup if it was started by the
	// admin restart route after the group's goroutine returned.
	scheduler.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if serr := a.shutdown(shutdownCtx); serr != nil {
		a.log.Error("telemetry shutdown failed", slog.String("error", serr.Error()))
	}

	if err != nil {
		return err
	}
	a.log.Info("server exited properly", slog.String("module", "main"))
	return nil
}

func runSweep(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	var report usecase.SweepReport
	if remoteFlag {
		cl := providers.NewClient(serverURL, adminToken)
		r, err := cl.Sweep(ctx)
		if err != nil {
			return err
		}
		report = r
	} else {
		a, err := setup(ctx)
		if err != nil {
			return err
		}
		defer a.shutdown(context.Background())

		r, err := a.coordinator.EnsureTodayComplete(ctx)
		if err != nil {
			return err
		}
		report = r
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return err
	}

	if len(report.Failed) > 0 {
		return fmt.Errorf("%d slot(s) could not be stored", len(report.Failed))
	}
	return nil
}
