// Chamcong-alert mails the daily attendance report: who did not check in,
// who forgot to check out, who came late, left early or worked too little.
// Run it once a day from cron after TIME_OUT.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/huyquangvevo/chamcong-web/internal/calendar"
	"github.com/huyquangvevo/chamcong-web/internal/config"
	"github.com/huyquangvevo/chamcong-web/internal/mailer"
	"github.com/huyquangvevo/chamcong-web/internal/report"
	"github.com/huyquangvevo/chamcong-web/internal/repos"
	"github.com/huyquangvevo/chamcong-web/internal/storage"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	flags := pflag.NewFlagSet("chamcong-alert", pflag.ContinueOnError)
	date := flags.String("date", "", "report day as YYYY-MM-DD (default today in ATTENDANCE_TZ)")
	dryRun := flags.Bool("dry-run", false, "print the report instead of mailing it")
	envFile := flags.String("env-file", ".env", "dotenv file loaded before reading the environment")
	if err := flags.Parse(args); err != nil {
		return err
	}

	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load %s: %w", *envFile, err)
	}
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))

	today := calendar.Of(time.Now(), cfg.Location)
	day := today
	if *date != "" {
		if day, err = calendar.Parse(*date); err != nil {
			return err
		}
		if today.Before(day) {
			return fmt.Errorf("--date %s is in the future", day)
		}
	}

	db, err := storage.Open(cfg.DB, storage.WithLogger(logger))
	if err != nil {
		return err
	}
	defer storage.Close(db)

	runner := &report.Runner{
		Users:   repos.NewUserRepo(db),
		Records: repos.NewAttendanceRepo(db),
		Policy: report.Policy{
			TimeIn:   cfg.Report.TimeIn,
			TimeOut:  cfg.Report.TimeOut,
			TimeWork: cfg.Report.TimeWork,
			Location: cfg.Location,
		},
		Tmpl:    cfg.Report.ContentTmpl,
		To:      cfg.Report.MailTo,
		Subject: cfg.Mail.Subject,
		Logger:  logger,
	}
	if cfg.Mail.Enabled() {
		runner.Sender = mailer.New(cfg.Mail)
	}

	ctx := context.Background()
	if *dryRun {
		sum, body, err := runner.Prepare(ctx, day)
		if err != nil {
			return err
		}
		logger.Info("report prepared", "date", day.String(), "total", sum.Total)
		fmt.Println(body)
		return nil
	}
	_, err = runner.Run(ctx, day)
	return err
}
