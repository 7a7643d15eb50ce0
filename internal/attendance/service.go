// Package attendance implements the check-in/check-out toggle, leave
// applications and record listing.
package attendance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/huyquangvevo/chamcong-web/internal/apperr"
	"github.com/huyquangvevo/chamcong-web/internal/calendar"
	"github.com/huyquangvevo/chamcong-web/internal/clock"
	"github.com/huyquangvevo/chamcong-web/internal/journal"
	"github.com/huyquangvevo/chamcong-web/internal/models"
	"github.com/huyquangvevo/chamcong-web/internal/repos"
)

// User-facing messages.
const (
	MsgCheckedIn       = "Check-in successful"
	MsgCheckedOut      = "Check-out successful"
	MsgAlreadyOut      = "You have already checked out for today. Cannot check in again."
	MsgLeaveSubmitted  = "Leave application submitted successfully"
	MsgReasonRequired  = "Leave reason is required."
	MsgUnauthenticated = "User not authenticated"
)

// Action is the transition a toggle performed.
type Action string

const (
	ActionCheckIn  Action = "checkin"
	ActionCheckOut Action = "checkout"
)

type Outcome struct {
	Action  Action
	Record  models.AttendanceRecord
	Message string
}

// Notifier is told about leave applications.
type Notifier interface {
	LeaveApplied(ctx context.Context, email, reason string, at time.Time) error
}

type Service struct {
	records  *repos.AttendanceRepo
	clock    clock.Clock
	loc      *time.Location
	journal  journal.Journal
	notifier Notifier
	logger   *slog.Logger
}

type Option func(*Service)

func WithClock(c clock.Clock) Option { return func(s *Service) { s.clock = c } }

func WithJournal(j journal.Journal) Option { return func(s *Service) { s.journal = j } }

func WithNotifier(n Notifier) Option { return func(s *Service) { s.notifier = n } }

// NewService builds a Service. loc is the zone that decides which calendar
// day a timestamp belongs to.
func NewService(records *repos.AttendanceRepo, loc *time.Location, logger *slog.Logger, opts ...Option) *Service {
	if loc == nil {
		loc = time.UTC
	}
	s := &Service{
		records: records,
		clock:   clock.Real(),
		loc:     loc,
		journal: journal.Nop{},
		logger:  logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Location is the reference zone for day boundaries.
func (s *Service) Location() *time.Location { return s.loc }

// Today is the current calendar day in the reference zone.
func (s *Service) Today() calendar.Date { return calendar.Of(s.now(), s.loc) }

func (s *Service) now() time.Time {
	return s.clock.Now().UTC().Truncate(time.Second)
}

// State is where a user stands for today.
type State string

const (
	StateNone   State = "none"
	StateOpen   State = "open"
	StateClosed State = "closed"
)

// TodayState reports the user's toggle state for the current day.
func (s *Service) TodayState(ctx context.Context, email string) (State, error) {
	start, end := calendar.Of(s.now(), s.loc).Bounds(s.loc)
	if _, err := s.records.FindOpenBetween(ctx, email, start, end); err == nil {
		return StateOpen, nil
	} else if !errors.Is(err, repos.ErrNotFound) {
		return StateNone, apperr.Storage(fmt.Errorf("find open session: %w", err))
	}
	if _, err := s.records.FindClosedBetween(ctx, email, start, end); err == nil {
		return StateClosed, nil
	} else if !errors.Is(err, repos.ErrNotFound) {
		return StateNone, apperr.Storage(fmt.Errorf("find closed session: %w", err))
	}
	return StateNone, nil
}

// ToggleCheck checks the user in when there is no session today, checks
// them out when today's session is open, and refuses once today's session
// has been closed.
func (s *Service) ToggleCheck(ctx context.Context, email string) (Outcome, error) {
	if email == "" {
		return Outcome{}, apperr.Unauthenticated(MsgUnauthenticated)
	}
	now := s.now()
	start, end := calendar.Of(now, s.loc).Bounds(s.loc)

	var out Outcome
	err := s.records.Transaction(ctx, func(tx *repos.AttendanceRepo) error {
		open, err := tx.FindOpenBetween(ctx, email, start, end)
		switch {
		case err == nil:
			if err := tx.SetCheckout(ctx, open.ID, now); err != nil {
				return fmt.Errorf("check out: %w", err)
			}
			open.CheckoutTime = &now
			out = Outcome{Action: ActionCheckOut, Record: *open, Message: MsgCheckedOut}
			return nil
		case !errors.Is(err, repos.ErrNotFound):
			return fmt.Errorf("find open session: %w", err)
		}

		if _, err := tx.FindClosedBetween(ctx, email, start, end); err == nil {
			return apperr.Conflict(MsgAlreadyOut, nil)
		} else if !errors.Is(err, repos.ErrNotFound) {
			return fmt.Errorf("find closed session: %w", err)
		}

		rec := models.AttendanceRecord{UserEmail: email, CheckinTime: &now}
		if err := tx.Create(ctx, &rec); err != nil {
			return fmt.Errorf("check in: %w", err)
		}
		out = Outcome{Action: ActionCheckIn, Record: rec, Message: MsgCheckedIn}
		return nil
	})
	if err != nil {
		var appErr *apperr.Error
		if errors.As(err, &appErr) {
			return Outcome{}, err
		}
		s.logger.Error("toggle check failed", "email", email, "error", err)
		return Outcome{}, apperr.Storage(err)
	}

	kind := journal.KindCheckIn
	if out.Action == ActionCheckOut {
		kind = journal.KindCheckOut
	}
	s.record(ctx, journal.Entry{RecordID: uint64(out.Record.ID), UserEmail: email, Kind: kind, At: now})
	s.logger.Info("attendance toggled", "email", email, "action", out.Action, "record", out.Record.ID)
	return out, nil
}

// ApplyLeave stores a leave application starting now. Repeated
// applications are all kept.
func (s *Service) ApplyLeave(ctx context.Context, email, reason string) (models.AttendanceRecord, error) {
	if email == "" {
		return models.AttendanceRecord{}, apperr.Unauthenticated(MsgUnauthenticated)
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return models.AttendanceRecord{}, apperr.Validation(MsgReasonRequired)
	}

	now := s.now()
	rec := models.AttendanceRecord{UserEmail: email, LeaveStartTime: &now, LeaveReason: &reason}
	if err := s.records.Create(ctx, &rec); err != nil {
		s.logger.Error("apply leave failed", "email", email, "error", err)
		return models.AttendanceRecord{}, apperr.Storage(fmt.Errorf("insert leave: %w", err))
	}

	s.record(ctx, journal.Entry{RecordID: uint64(rec.ID), UserEmail: email, Kind: journal.KindLeave, At: now, Reason: reason})
	if s.notifier != nil {
		if err := s.notifier.LeaveApplied(ctx, email, reason, now); err != nil {
			s.logger.Warn("leave notification not sent", "email", email, "error", err)
		}
	}
	s.logger.Info("leave applied", "email", email, "record", rec.ID)
	return rec, nil
}

// ListRecords returns the user's records, newest event first.
func (s *Service) ListRecords(ctx context.Context, email string) ([]models.AttendanceRecord, error) {
	if email == "" {
		return nil, apperr.Unauthenticated(MsgUnauthenticated)
	}
	rows, err := s.records.ListByUser(ctx, email)
	if err != nil {
		s.logger.Error("list records failed", "email", email, "error", err)
		return nil, apperr.Storage(fmt.Errorf("list records: %w", err))
	}
	return rows, nil
}

func (s *Service) record(ctx context.Context, entry journal.Entry) {
	if err := s.journal.Record(ctx, entry); err != nil {
		s.logger.Warn("journal write failed", "email", entry.UserEmail, "kind", entry.Kind, "error", err)
	}
}
