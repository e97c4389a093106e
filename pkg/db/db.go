package db

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	"liyu1981.xyz/speaker-energy-service/pkg/common"
	"liyu1981.xyz/speaker-energy-service/pkg/models"
)

type DB struct {
	Conn *gorm.DB
}

var (
	instance *DB
	once     sync.Once
)

// OneActiveSessionIndex backs the one-ACTIVE-session-per-speaker rule at the storage level.
const OneActiveSessionIndex = "idx_usage_sessions_one_active"

func GetInstance(dialector gorm.Dialector) *DB {
	logger := common.GetLoggerWith(common.LoggerNameDB)
	once.Do(func() {
		conn, err := Open(dialector)
		if err != nil {
			log.Fatal("Failed to connect to database:", err)
		}

		logger.Info("Connected to database with dialector:", zap.String("dialector", dialector.Name()))

		instance = &DB{Conn: conn}

		if err := Migrate(conn); err != nil {
			log.Fatal("Failed to migrate database:", err)
		}

		logger.Info("Database migration completed")
	})
	return instance
}

// Open connects without touching the singleton. sqlite gets a single pooled
// connection: pragmas are per connection and a shared in-memory database
// reports table locks instead of waiting when several connections write.
func Open(dialector gorm.Dialector) (*gorm.DB, error) {
	conn, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		Logger: gormlogger.New(log.New(os.Stdout, "\r\n", log.LstdFlags), gormlogger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
	})
	if err != nil {
		return nil, err
	}

	if dialector.Name() != "sqlite" {
		return conn, nil
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(0)

	if err := conn.Exec("PRAGMA foreign_keys = ON").Error; err != nil {
		return nil, fmt.Errorf("enable sqlite foreign key support: %w", err)
	}

	if err := conn.Exec("PRAGMA journal_mode = WAL").Error; err != nil {
		return nil, fmt.Errorf("set sqlite journal mode: %w", err)
	}

	return conn, nil
}

func Migrate(conn *gorm.DB) error {
	err := conn.AutoMigrate(
		&models.User{},
		&models.Speaker{},
		&models.UsageSession{},
		&models.History{},
		&models.EnergyMeasurement{},
	)
	if err != nil {
		return err
	}

	// partial index, same syntax on sqlite and postgres
	return conn.Exec(fmt.Sprintf(
		"CREATE UNIQUE INDEX IF NOT EXISTS %s ON usage_sessions (speaker_id) WHERE status = '%s'",
		OneActiveSessionIndex, models.SessionStatusActive,
	)).Error
}

func (d *DB) Ping(ctx context.Context) error {
	sqlDB, err := d.Conn.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func UseSqliteDialector() gorm.Dialector {
	var dbPath string
	var found bool
	if dbPath, found = os.LookupEnv(common.EnvKeyDbPath); !found {
		dbPath = "energy.db"
	}
	return sqlite.Open(dbPath)
}

func UseSqliteDialectorAt(path string) gorm.Dialector {
	if path == "" {
		return UseSqliteDialector()
	}
	return sqlite.Open(path)
}

func UseMemorySqliteDialector() gorm.Dialector {
	return sqlite.Open("file::memory:?cache=shared")
}

// UsePostgresDialector opens postgres through pgx's database/sql adapter.
func UsePostgresDialector(dsn string) (gorm.Dialector, error) {
	cfg, err := pgx.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	return postgres.New(postgres.Config{Conn: stdlib.OpenDB(*cfg)}), nil
}
