package database

import (
	"fmt"
	"time"

	"github.com/dmehra2102/prod-golang-projects/clinicrx/config"
	"github.com/dmehra2102/prod-golang-projects/clinicrx/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/clinicrx/internal/domain/patient"
	"github.com/dmehra2102/prod-golang-projects/clinicrx/internal/domain/prescription"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func Connect(cfg config.DatabaseConfig, log *zap.Logger) (*gorm.DB, error) {
	gormCfg := &gorm.Config{
		// Only slow queries and errors reach the application log.
		Logger: gormlogger.New(zap.NewStdLog(log.Named("gorm")), gormlogger.Config{
			SlowThreshold:             cfg.SlowQueryThreshold,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
		PrepareStmt: true,
	}

	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN: cfg.DSN(),
	}), gormCfg)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("getting underlying sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return db, nil
}

func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func Migrate(db *gorm.DB, log *zap.Logger) error {
	log.Info("running database migrations")
	start := time.Now()

	for _, schema := range []string{"clinical", "auth", "audit"} {
		if err := db.Exec(fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", schema)).Error; err != nil {
			return fmt.Errorf("creating schema %s: %w", schema, err)
		}
	}

	models := []any{
		&domain.User{},
		&domain.AuditLog{},
		&patient.Patient{},
		&prescription.Prescription{},
	}

	if err := db.AutoMigrate(models...); err != nil {
		return fmt.Errorf("auto-migrating models: %w", err)
	}

	if err := createIndexes(db, log); err != nil {
		return fmt.Errorf("creating indexes: %w", err)
	}

	log.Info("migrations completed", zap.Duration("duration", time.Since(start)))
	return nil
}

type index struct {
	name  string
	query string
	// optional indexes depend on extensions that may be unavailable
	optional bool
}

var indexes = []index{
	{
		name:     "idx_patients_name_trgm",
		query:    `CREATE INDEX IF NOT EXISTS idx_patients_name_trgm ON clinical.patients USING gin (name gin_trgm_ops) WHERE deleted_at IS NULL`,
		optional: true,
	},
	{
		name:  "idx_prescriptions_patient_date",
		query: `CREATE INDEX IF NOT EXISTS idx_prescriptions_patient_date ON clinical.prescriptions (patient_id, prescription_date DESC) WHERE deleted_at IS NULL`,
	},
	{
		name:  "idx_prescriptions_medication_date",
		query: `CREATE INDEX IF NOT EXISTS idx_prescriptions_medication_date ON clinical.prescriptions (prescription_date, medication) WHERE deleted_at IS NULL`,
	},
}

func createIndexes(db *gorm.DB, log *zap.Logger) error {
	trgm := db.Exec("CREATE EXTENSION IF NOT EXISTS pg_trgm").Error == nil

	for _, idx := range indexes {
		if idx.optional && !trgm {
			log.Warn("skipping index, pg_trgm unavailable", zap.String("index", idx.name))
			continue
		}
		if err := db.Exec(idx.query).Error; err != nil {
			return fmt.Errorf("%s: %w", idx.name, err)
		}
	}

	return nil
}
