package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/patientrecords/patientrecords/internal/domain/dashboard"
	"github.com/patientrecords/patientrecords/internal/domain/medicalrecord"
	"github.com/patientrecords/patientrecords/internal/domain/medication"
	"github.com/patientrecords/patientrecords/internal/domain/patient"
	"github.com/patientrecords/patientrecords/internal/domain/report"
	"github.com/patientrecords/patientrecords/internal/platform/apierror"
	"github.com/patientrecords/patientrecords/internal/platform/db"
	"github.com/patientrecords/patientrecords/internal/platform/imagestore"
	"github.com/patientrecords/patientrecords/internal/platform/metrics"
	"github.com/patientrecords/patientrecords/internal/platform/middleware"
	"github.com/patientrecords/patientrecords/internal/platform/reporting"
	"github.com/patientrecords/patientrecords/internal/platform/sandbox"
	"github.com/patientrecords/patientrecords/internal/platform/task"
)

const metricsNamespace = "patient_records"

// server is the assembled HTTP application.
type server struct {
	echo   *echo.Echo
	runner *task.Runner
}

func newServer(a *app) (*server, error) {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = apierror.Handler

	collector := metrics.NewCollector(metricsNamespace)
	collector.WatchDB(metricsNamespace, a.eng.DB())

	// Global middleware
	e.Use(middleware.Recovery(a.logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(a.logger))
	e.Use(collector.Middleware())
	e.Use(middleware.SecurityHeaders())
	e.Use(middleware.BodyLimit("1M", "11M"))
	e.Use(middleware.RequestTimeout(a.cfg.RequestTimeout))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: a.cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders: []string{echo.HeaderContentType, middleware.RequestIDHeader},
	}))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	e.GET("/health/db", db.HealthHandler(a.eng))
	e.GET("/metrics", echo.WrapHandler(collector.Handler()))

	api := e.Group("/api/v1")

	patientSvc := patient.NewService(a.patients)
	patientSvc.SetMetrics(collector)
	patient.NewHandler(patientSvc).RegisterRoutes(api)

	images, err := imagestore.NewFileStore(a.cfg.ImageDir)
	if err != nil {
		return nil, err
	}
	imagestore.NewHandler(images, patientSvc).RegisterRoutes(api)

	recordSvc := medicalrecord.NewService(a.records, a.patients)
	recordSvc.SetMetrics(collector)
	medicalrecord.NewHandler(recordSvc).RegisterRoutes(api)

	medSvc := medication.NewService(a.meds, a.patients)
	medSvc.SetMetrics(collector)
	medication.NewHandler(medSvc).RegisterRoutes(api)

	dashboard.NewHandler(a.dashboard()).RegisterRoutes(api)

	exporter, err := report.NewXLSXExporter(a.cfg.ExportDir)
	if err != nil {
		return nil, err
	}
	runner := task.NewRunner(a.cfg.TaskWorkers, a.logger)
	reportSvc := report.NewService(a.patients, a.records, a.meds, exporter, runner)
	reportSvc.SetMetrics(collector)
	report.NewHandler(reportSvc).RegisterRoutes(api)

	reporting.NewHandler(reporting.NewEvaluator(a.eng)).RegisterRoutes(api)

	if a.cfg.IsDev() {
		seeder := sandbox.NewSeeder(a.eng, a.patients, a.records, a.meds)
		sandbox.NewSeedHandler(seeder).RegisterRoutes(api)
	}

	return &server{echo: e, runner: runner}, nil
}

// shutdown stops accepting requests, then drains the task runner.
func (s *server) shutdown(ctx context.Context) error {
	return errors.Join(s.echo.Shutdown(ctx), s.runner.Shutdown(ctx))
}

func runServer(ctx context.Context) error {
	a, err := openApp(ctx, nil)
	if err != nil {
		return err
	}
	defer a.Close()
	a.logger.Info().Str("driver", a.cfg.DBDriver).Msg("connected to database")

	srv, err := newServer(a)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		addr := ":" + a.cfg.Port
		a.logger.Info().Str("addr", addr).Msg("starting server")
		if err := srv.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}

	a.logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.shutdown(shutdownCtx); err != nil {
		a.logger.Error().Err(err).Msg("server shutdown failed")
		return err
	}
	a.logger.Info().Msg("server stopped")
	return nil
}
