package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"
)

// Database drivers accepted in DB_DRIVER.
const (
	DriverSQLite   = "sqlite"
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
)

// DefaultMailContent is used when MAIL_CONTENT_TPL is unset.
const DefaultMailContent = `<h3>Attendance report for $DATE</h3>
<p>Employees: $TOTAL, worked: $WORK</p>
<ul>
<li>Not checked in: $NOT_CHECK_IN</li>
<li>Not checked out: $NOT_CHECK_OUT</li>
<li>Checked in late: $CHECK_IN_LATE</li>
<li>Checked out early: $CHECK_OUT_SOON</li>
<li>Not enough hours: $NOT_ENOUGH_WORK</li>
<li>On leave: $ON_LEAVE</li>
</ul>
$DETAILS`

// DB holds the connection settings for the relational store.
type DB struct {
	Driver string
	Path   string // sqlite file
	Host   string
	Port   string
	User   string
	Pass   string
	Name   string
}

// Mail holds SMTP settings. Host empty means mail is disabled.
type Mail struct {
	Host    string
	Port    int
	User    string
	Pass    string
	Subject string

	// InsecureSkipVerify disables certificate checks for SMTP servers
	// with self-signed certificates.
	InsecureSkipVerify bool
}

func (m Mail) Enabled() bool { return m.Host != "" }

// Report is the workday policy used by the daily attendance report.
type Report struct {
	TimeIn      string // HH:MM
	TimeOut     string // HH:MM
	TimeWork    int    // hours
	MailTo      []string
	ContentTmpl string
}

// Config centralises environment and runtime configuration.
type Config struct {
	Addr     string
	LogLevel slog.Level

	SecretKey     string
	SessionMaxAge time.Duration
	SessionSecure bool

	Location *time.Location

	DB DB

	MongoURI  string
	MongoName string

	Mail          Mail
	LeaveNotifyTo []string

	Report Report
}

// Load builds a Config from the environment. Call godotenv.Load first if a
// .env file should be honoured.
func Load() (*Config, error) {
	var problems []error

	cfg := &Config{
		Addr:          getEnvOrDefault("ADDR", ":8080"),
		SecretKey:     os.Getenv("SECRET_KEY"),
		SessionSecure: parseBoolEnv(os.Getenv("SESSION_SECURE")),
		DB: DB{
			Driver: strings.ToLower(getEnvOrDefault("DB_DRIVER", DriverSQLite)),
			Path:   getEnvOrDefault("DB_PATH", "employee_database.db"),
			Host:   os.Getenv("DB_HOST"),
			Port:   os.Getenv("DB_PORT"),
			User:   os.Getenv("DB_USER"),
			Pass:   os.Getenv("DB_PASS"),
			Name:   os.Getenv("DB_NAME"),
		},
		MongoURI:      os.Getenv("MONGODB_URI"),
		MongoName:     getEnvOrDefault("MONGODB_NAME", "chamcong"),
		LeaveNotifyTo: splitList(os.Getenv("LEAVE_NOTIFY_TO")),
		Mail: Mail{
			Host:    os.Getenv("MAIL_HOST"),
			User:    os.Getenv("MAIL_USER"),
			Pass:    os.Getenv("MAIL_PASS"),
			Subject: getEnvOrDefault("MAIL_SUBJECT", "Attendance report"),

			InsecureSkipVerify: parseBoolEnv(os.Getenv("MAIL_INSECURE_SKIP_VERIFY")),
		},
		Report: Report{
			TimeIn:      getEnvOrDefault("TIME_IN", "09:00"),
			TimeOut:     getEnvOrDefault("TIME_OUT", "17:00"),
			MailTo:      splitList(os.Getenv("REPORT_MAIL_TO")),
			ContentTmpl: getEnvOrDefault("MAIL_CONTENT_TPL", DefaultMailContent),
		},
	}

	if strings.TrimSpace(cfg.SecretKey) == "" {
		problems = append(problems, errors.New("SECRET_KEY is required"))
	}

	maxAge, err := time.ParseDuration(getEnvOrDefault("SESSION_MAX_AGE", "12h"))
	if err != nil || maxAge <= 0 {
		problems = append(problems, fmt.Errorf("invalid SESSION_MAX_AGE %q", os.Getenv("SESSION_MAX_AGE")))
	}
	cfg.SessionMaxAge = maxAge

	loc, err := time.LoadLocation(getEnvOrDefault("ATTENDANCE_TZ", "UTC"))
	if err != nil {
		problems = append(problems, fmt.Errorf("invalid ATTENDANCE_TZ: %w", err))
	}
	cfg.Location = loc

	level, err := parseLevel(getEnvOrDefault("LOG_LEVEL", "info"))
	if err != nil {
		problems = append(problems, err)
	}
	cfg.LogLevel = level

	switch cfg.DB.Driver {
	case DriverSQLite:
	case DriverMySQL, DriverPostgres:
		if cfg.DB.Host == "" || cfg.DB.Name == "" {
			problems = append(problems, fmt.Errorf("DB_HOST and DB_NAME are required for DB_DRIVER=%s", cfg.DB.Driver))
		}
	default:
		problems = append(problems, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DB.Driver))
	}

	if cfg.Mail.Enabled() {
		port, err := strconv.Atoi(getEnvOrDefault("MAIL_PORT", "587"))
		if err != nil {
			problems = append(problems, fmt.Errorf("invalid MAIL_PORT: %w", err))
		}
		cfg.Mail.Port = port
	}

	timeWork, err := strconv.Atoi(getEnvOrDefault("TIME_WORK", "8"))
	if err != nil || timeWork <= 0 {
		problems = append(problems, fmt.Errorf("invalid TIME_WORK %q", os.Getenv("TIME_WORK")))
	}
	cfg.Report.TimeWork = timeWork

	if _, err := time.Parse("15:04", cfg.Report.TimeIn); err != nil {
		problems = append(problems, fmt.Errorf("invalid TIME_IN %q (want HH:MM)", cfg.Report.TimeIn))
	}
	if _, err := time.Parse("15:04", cfg.Report.TimeOut); err != nil {
		problems = append(problems, fmt.Errorf("invalid TIME_OUT %q (want HH:MM)", cfg.Report.TimeOut))
	}

	if len(problems) > 0 {
		return nil, fmt.Errorf("config: %w", errors.Join(problems...))
	}
	return cfg, nil
}

func getEnvOrDefault(key, def string) string {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return def
	}
	return val
}

func parseBoolEnv(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "t", "yes", "y", "on":
		return true
	default:
		return false
	}
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL %q", s)
	}
	return level, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
