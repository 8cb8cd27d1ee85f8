package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/dmehra2102/prod-golang-projects/clinicrx/config"
	"github.com/dmehra2102/prod-golang-projects/clinicrx/internal/domain"
	v1 "github.com/dmehra2102/prod-golang-projects/clinicrx/internal/handler/v1"
	"github.com/dmehra2102/prod-golang-projects/clinicrx/internal/repository"
	"github.com/dmehra2102/prod-golang-projects/clinicrx/internal/service"
	"github.com/dmehra2102/prod-golang-projects/clinicrx/internal/sus"
	"github.com/dmehra2102/prod-golang-projects/clinicrx/pkg/auth"
	"github.com/dmehra2102/prod-golang-projects/clinicrx/pkg/database"
	"github.com/dmehra2102/prod-golang-projects/clinicrx/pkg/logger"
	"github.com/dmehra2102/prod-golang-projects/clinicrx/pkg/metrics"
	"github.com/dmehra2102/prod-golang-projects/clinicrx/pkg/tracer"
)

// app holds the process-wide dependencies shared by every command.
type app struct {
	cfg     *config.Config
	log     *zap.Logger
	db      *gorm.DB
	metrics *metrics.Collector
	cal     service.Calendar

	patientRepo      *repository.PatientRepository
	prescriptionRepo *repository.PrescriptionRepository

	audit         *service.AuditService
	patients      *service.PatientService
	prescriptions *service.PrescriptionService
}

func bootstrap() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if cfg.App.Version == "" || cfg.App.Version == "0.0.0" {
		cfg.App.Version = version
	}

	log, err := logger.New(cfg.Log, cfg.App)
	if err != nil {
		return nil, fmt.Errorf("building logger: %w", err)
	}

	db, err := database.Connect(cfg.Database, log)
	if err != nil {
		_ = log.Sync()
		return nil, err
	}

	m := metrics.NewCollector(cfg.App.Name)
	cal := service.NewCalendar(cfg.App.Location())
	audit := service.NewAuditService(repository.NewAuditRepository(db), m, log)

	patientRepo := repository.NewPatientRepository(db)
	prescriptionRepo := repository.NewPrescriptionRepository(db)

	return &app{
		cfg:              cfg,
		log:              log,
		db:               db,
		metrics:          m,
		cal:              cal,
		patientRepo:      patientRepo,
		prescriptionRepo: prescriptionRepo,
		audit:            audit,
		patients:         service.NewPatientService(patientRepo, audit, m, cal, log),
		prescriptions:    service.NewPrescriptionService(prescriptionRepo, patientRepo, audit, m, cal, log),
	}, nil
}

func (a *app) migrate() error {
	return database.Migrate(a.db, a.log)
}

// close drains the audit queue before the database goes away.
func (a *app) close() {
	a.audit.Shutdown()
	if err := database.Close(a.db); err != nil {
		a.log.Warn("closing database", zap.Error(err))
	}
	_ = a.log.Sync()
}

func runServer(ctx context.Context) error {
	a, err := bootstrap()
	if err != nil {
		return err
	}
	defer a.close()

	tp, err := tracer.Init(ctx, a.cfg.Tracing, a.cfg.App.Version)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			a.log.Warn("tracer shutdown", zap.Error(err))
		}
	}()

	jwt := auth.NewJWTManager(a.cfg.JWT)
	authSvc := service.NewAuthService(
		repository.NewUserRepository(a.db), jwt, auth.NewTOTP(a.cfg.JWT.Issuer), a.audit, a.metrics, a.log,
	)
	var source sus.Source
	if a.cfg.SUS.Enabled() {
		pg, err := sus.NewPGSource(ctx, a.cfg.SUS.DatabaseURL, a.cfg.SUS.Table)
		if err != nil {
			// The API still serves; only /sus/patients is unavailable.
			a.log.Error("SUS database unavailable", zap.Error(err))
		} else {
			defer pg.Close()
			source = pg
		}
	}

	router := v1.NewRouter(v1.RouterDeps{
		Config:        a.cfg,
		Log:           a.log,
		Metrics:       a.metrics,
		Tokens:        jwt,
		Auth:          v1.NewAuthHandler(authSvc),
		Patients:      v1.NewPatientHandler(a.patients),
		Prescriptions: v1.NewPrescriptionHandler(a.prescriptions),
		Dashboard: v1.NewDashboardHandler(
			service.NewDashboardService(a.patientRepo, a.prescriptionRepo, a.cal),
			service.NewReportService(a.prescriptionRepo, a.patientRepo, a.cal),
		),
		SUS: v1.NewSUSHandler(source),
	})

	srv := &http.Server{
		Addr:         a.cfg.Server.Address(),
		Handler:      router,
		ReadTimeout:  a.cfg.Server.ReadTimeout,
		WriteTimeout: a.cfg.Server.WriteTimeout,
		IdleTimeout:  a.cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		a.log.Info("server listening",
			zap.String("addr", srv.Addr),
			zap.String("timezone", a.cfg.App.Timezone),
			zap.Bool("sus", source != nil),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case sig := <-quit:
		a.log.Info("shutting down server", zap.String("signal", sig.String()))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	a.log.Info("server stopped")
	return nil
}

// syncActor is the session patients are registered under by --direct.
var syncActor = domain.Session{Email: "sus-sync", Role: domain.RoleAgent}

func runSUSSync(ctx context.Context, dryRun, direct bool) error {
	a, err := bootstrap()
	if err != nil {
		return err
	}
	defer a.close()

	if !a.cfg.SUS.Enabled() {
		return errors.New("SUS_DATABASE_URL is not set")
	}

	var sink sus.Sink
	switch {
	case direct:
		sink = sus.NewServiceSink(a.patients)
		ctx = domain.WithSession(ctx, syncActor)
	case a.cfg.SUS.TargetURL != "":
		sink = sus.NewHTTPSink(a.cfg.SUS, a.log)
	case !dryRun:
		return errors.New("SUS_TARGET_URL is not set; use --direct to write locally")
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	source, err := sus.NewPGSource(ctx, a.cfg.SUS.DatabaseURL, a.cfg.SUS.Table)
	if err != nil {
		return err
	}
	defer source.Close()

	syncer := sus.NewSyncer(source, sink, a.metrics, a.log)
	syncer.DryRun = dryRun

	report, err := syncer.Run(ctx)
	if direct && !dryRun {
		a.audit.LogAsync(ctx, service.AuditEntry{
			Action:       domain.ActionSync,
			ResourceType: "patient",
			Changes:      report,
		})
	}
	if err != nil {
		return err
	}

	out, _ := json.MarshalIndent(report, "", "  ")
	fmt.Println(string(out))
	return nil
}
