// Package storage opens the relational store and creates its schema.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/huyquangvevo/chamcong-web/internal/config"
	"github.com/huyquangvevo/chamcong-web/internal/models"
)

type options struct {
	logger *slog.Logger
}

type Option func(*options)

// WithLogger sends gorm's slow-query and error lines to logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// slogWriter adapts a slog.Logger to gorm's logger.Writer.
type slogWriter struct {
	logger *slog.Logger
}

func (w slogWriter) Printf(format string, args ...interface{}) {
	w.logger.Warn("gorm", "detail", strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func newGormLogger(logger *slog.Logger) gormlogger.Interface {
	return gormlogger.New(slogWriter{logger: logger}, gormlogger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  gormlogger.Warn,
		IgnoreRecordNotFoundError: true,
		Colorful:                  false,
	})
}

// Open connects to the database described by cfg.
func Open(cfg config.DB, opts ...Option) (*gorm.DB, error) {
	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	gormCfg := &gorm.Config{
		TranslateError: true,
		Logger:         newGormLogger(o.logger),
		NowFunc:        func() time.Time { return time.Now().UTC() },
	}

	switch cfg.Driver {
	case config.DriverSQLite, "":
		return openSQLite(cfg.Path, gormCfg)
	case config.DriverMySQL:
		return openMySQL(cfg, gormCfg)
	case config.DriverPostgres:
		dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=UTC",
			cfg.Host, cfg.User, cfg.Pass, cfg.Name, defaultPort(cfg.Port, "5432"))
		db, err := gorm.Open(postgres.Open(dsn), gormCfg)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		return db, nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

func openSQLite(path string, gormCfg *gorm.Config) (*gorm.DB, error) {
	dsn := path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := gorm.Open(sqlite.Open(dsn), gormCfg)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// One connection serializes writers, so the check-in toggle cannot
	// interleave with itself.
	sqlDB.SetMaxOpenConns(1)
	return db, nil
}

func openMySQL(cfg config.DB, gormCfg *gorm.Config) (*gorm.DB, error) {
	sqlDsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true&loc=UTC",
		cfg.User, cfg.Pass, cfg.Host, defaultPort(cfg.Port, "3306"), cfg.Name)
	sqlDB, err := sql.Open("mysql", sqlDsn)
	if err != nil {
		return nil, fmt.Errorf("connect to mysql: %w", err)
	}

	gormDB, err := gorm.Open(mysql.New(mysql.Config{
		Conn: sqlDB,
	}), gormCfg)
	if err != nil {
		return nil, fmt.Errorf("open gorm: %w", err)
	}
	return gormDB, nil
}

func defaultPort(port, def string) string {
	if port == "" {
		return def
	}
	return port
}

// EnsureSchema creates the users and AttendanceRecord tables if they are
// missing. Safe to call on every startup.
func EnsureSchema(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.User{}, &models.AttendanceRecord{}); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// HealthCheck pings the database within timeout.
func HealthCheck(ctx context.Context, db *gorm.DB, timeout time.Duration) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return sqlDB.PingContext(ctx)
}

// Close releases the underlying connection pool.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// IsDuplicate reports whether err is a unique-constraint violation.
func IsDuplicate(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || // sqlite
		strings.Contains(msg, "Duplicate entry") || // mysql 1062
		strings.Contains(msg, "SQLSTATE 23505") // postgres
}
