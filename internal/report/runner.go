package report

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/huyquangvevo/chamcong-web/internal/calendar"
	"github.com/huyquangvevo/chamcong-web/internal/mailer"
	"github.com/huyquangvevo/chamcong-web/internal/repos"
)

// Runner loads a day's attendance, builds the summary and mails it.
type Runner struct {
	Users   *repos.UserRepo
	Records *repos.AttendanceRepo
	Policy  Policy
	Tmpl    string
	Sender  mailer.Sender
	To      []string
	Subject string
	Logger  *slog.Logger
}

// Prepare builds and renders the report for day without sending it.
func (r *Runner) Prepare(ctx context.Context, day calendar.Date) (Summary, string, error) {
	users, err := r.Users.List(ctx)
	if err != nil {
		return Summary{}, "", fmt.Errorf("load users: %w", err)
	}
	start, end := day.Bounds(r.Policy.location())
	records, err := r.Records.ListBetween(ctx, start, end)
	if err != nil {
		return Summary{}, "", fmt.Errorf("load attendance for %s: %w", day, err)
	}
	sum, err := Build(day, users, records, r.Policy)
	if err != nil {
		return Summary{}, "", err
	}
	return sum, Render(r.Tmpl, sum, r.Policy.location()), nil
}

// Run prepares the report for day and sends it to r.To.
func (r *Runner) Run(ctx context.Context, day calendar.Date) (Summary, error) {
	sum, body, err := r.Prepare(ctx, day)
	if err != nil {
		return Summary{}, err
	}
	if r.Sender == nil || len(r.To) == 0 {
		return sum, fmt.Errorf("report for %s: no mailer or recipients configured", day)
	}
	subject := fmt.Sprintf("%s %s", r.Subject, day)
	if err := r.Sender.Send(r.To, nil, subject, body); err != nil {
		return sum, err
	}
	r.Logger.Info("attendance report sent", "date", day.String(), "to", r.To,
		"total", sum.Total, "worked", sum.Work, "not_check_in", sum.NotCheckIn)
	return sum, nil
}
