package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("SECRET_KEY", "test-secret")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Addr != ":8080" {
		t.Errorf("Addr = %q, want :8080", cfg.Addr)
	}
	if cfg.DB.Driver != DriverSQLite || cfg.DB.Path != "employee_database.db" {
		t.Errorf("DB = %+v, want sqlite employee_database.db", cfg.DB)
	}
	if cfg.SessionMaxAge != 12*time.Hour {
		t.Errorf("SessionMaxAge = %v, want 12h", cfg.SessionMaxAge)
	}
	if cfg.Location != time.UTC {
		t.Errorf("Location = %v, want UTC", cfg.Location)
	}
	if cfg.Mail.Enabled() {
		t.Error("mail enabled without MAIL_HOST")
	}
	if cfg.Report.TimeWork != 8 || cfg.Report.TimeIn != "09:00" || cfg.Report.TimeOut != "17:00" {
		t.Errorf("Report = %+v", cfg.Report)
	}
}

func TestLoadRequiresSecret(t *testing.T) {
	t.Setenv("SECRET_KEY", "")

	_, err := Load()
	if err == nil || !strings.Contains(err.Error(), "SECRET_KEY") {
		t.Fatalf("Load error = %v, want SECRET_KEY complaint", err)
	}
}

func TestLoadMySQLNeedsHost(t *testing.T) {
	t.Setenv("SECRET_KEY", "s")
	t.Setenv("DB_DRIVER", "mysql")
	t.Setenv("DB_HOST", "")

	if _, err := Load(); err == nil {
		t.Fatal("Load succeeded without DB_HOST for mysql")
	}

	t.Setenv("DB_HOST", "127.0.0.1")
	t.Setenv("DB_NAME", "chamcong")
	if _, err := Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("SECRET_KEY", "s")
	t.Setenv("ATTENDANCE_TZ", "Asia/Ho_Chi_Minh")
	t.Setenv("SESSION_MAX_AGE", "30m")
	t.Setenv("SESSION_SECURE", "yes")
	t.Setenv("MAIL_HOST", "smtp.example.com")
	t.Setenv("MAIL_PORT", "465")
	t.Setenv("LEAVE_NOTIFY_TO", "hr@example.com, boss@example.com,")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Location.String() != "Asia/Ho_Chi_Minh" {
		t.Errorf("Location = %v", cfg.Location)
	}
	if cfg.SessionMaxAge != 30*time.Minute || !cfg.SessionSecure {
		t.Errorf("session = %v secure=%v", cfg.SessionMaxAge, cfg.SessionSecure)
	}
	if !cfg.Mail.Enabled() || cfg.Mail.Port != 465 {
		t.Errorf("Mail = %+v", cfg.Mail)
	}
	if len(cfg.LeaveNotifyTo) != 2 || cfg.LeaveNotifyTo[1] != "boss@example.com" {
		t.Errorf("LeaveNotifyTo = %q", cfg.LeaveNotifyTo)
	}
	if cfg.LogLevel.String() != "DEBUG" {
		t.Errorf("LogLevel = %v", cfg.LogLevel)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Setenv("SECRET_KEY", "s")
	t.Setenv("ATTENDANCE_TZ", "Mars/Olympus")
	t.Setenv("TIME_IN", "nine")
	t.Setenv("DB_DRIVER", "oracle")

	_, err := Load()
	if err == nil {
		t.Fatal("Load accepted bad values")
	}
	for _, want := range []string{"ATTENDANCE_TZ", "TIME_IN", "DB_DRIVER"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %s", err, want)
		}
	}
}
