package repos

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/huyquangvevo/chamcong-web/internal/models"
)

// eventTimeOrder sorts sessions by check-in and leave rows by leave start,
// newest first, so leave-only rows do not depend on the engine's NULL order.
const eventTimeOrder = "COALESCE(checkin_time, leave_start_time) DESC, id DESC"

type AttendanceRepo struct {
	db *gorm.DB
}

func NewAttendanceRepo(db *gorm.DB) *AttendanceRepo {
	return &AttendanceRepo{db: db}
}

// Transaction runs fn with a repo bound to a single transaction.
func (r *AttendanceRepo) Transaction(ctx context.Context, fn func(tx *AttendanceRepo) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&AttendanceRepo{db: tx})
	})
}

func (r *AttendanceRepo) Create(ctx context.Context, rec *models.AttendanceRecord) error {
	return r.db.WithContext(ctx).Create(rec).Error
}

// FindOpenBetween returns the user's check-in in [start, end) that has no
// checkout yet, or ErrNotFound.
func (r *AttendanceRepo) FindOpenBetween(ctx context.Context, email string, start, end time.Time) (*models.AttendanceRecord, error) {
	return r.findSession(ctx, email, start, end, "checkout_time IS NULL")
}

// FindClosedBetween returns the user's checked-out session in [start, end),
// or ErrNotFound.
func (r *AttendanceRepo) FindClosedBetween(ctx context.Context, email string, start, end time.Time) (*models.AttendanceRecord, error) {
	return r.findSession(ctx, email, start, end, "checkout_time IS NOT NULL")
}

func (r *AttendanceRepo) findSession(ctx context.Context, email string, start, end time.Time, checkout string) (*models.AttendanceRecord, error) {
	var rec models.AttendanceRecord
	err := r.db.WithContext(ctx).
		Where("user_email = ? AND checkin_time >= ? AND checkin_time < ?", email, start.UTC(), end.UTC()).
		Where(checkout).
		Order("checkin_time DESC").
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// SetCheckout closes session id. It only touches rows still open, so a
// session is checked out at most once.
func (r *AttendanceRepo) SetCheckout(ctx context.Context, id uint, at time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&models.AttendanceRecord{}).
		Where("id = ? AND checkout_time IS NULL", id).
		Update("checkout_time", at.UTC())
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *AttendanceRepo) ListByUser(ctx context.Context, email string) ([]models.AttendanceRecord, error) {
	var rows []models.AttendanceRecord
	err := r.db.WithContext(ctx).
		Where("user_email = ?", email).
		Order(eventTimeOrder).
		Find(&rows).Error
	return rows, err
}

// ListBetween returns every record whose event time falls in [start, end).
func (r *AttendanceRepo) ListBetween(ctx context.Context, start, end time.Time) ([]models.AttendanceRecord, error) {
	var rows []models.AttendanceRecord
	err := r.db.WithContext(ctx).
		Where("(checkin_time >= ? AND checkin_time < ?) OR (leave_start_time >= ? AND leave_start_time < ?)",
			start.UTC(), end.UTC(), start.UTC(), end.UTC()).
		Order(eventTimeOrder).
		Find(&rows).Error
	return rows, err
}
