package models

import "time"

type User struct {
	ID               uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Name             string `gorm:"not null" json:"name"`
	Email            string `gorm:"uniqueIndex;not null;size:255" json:"email"`
	Password         string `gorm:"not null" json:"-"` // pbkdf2 hash
	Contact          string `gorm:"not null" json:"contact"`
	EmergencyContact string `gorm:"not null" json:"emergency_contact"`
}

func (User) TableName() string { return "users" }

// AttendanceRecord is either a workday session (CheckinTime set, optionally
// closed by CheckoutTime) or a leave application (LeaveStartTime and
// LeaveReason set). Times are stored in UTC.
type AttendanceRecord struct {
	ID             uint       `gorm:"primaryKey;autoIncrement" json:"id"`
	UserEmail      string     `gorm:"index;not null;size:255" json:"user_email"`
	CheckinTime    *time.Time `gorm:"index" json:"checkin_time,omitempty"`
	CheckoutTime   *time.Time `json:"checkout_time,omitempty"`
	LeaveStartTime *time.Time `json:"leave_start_time,omitempty"`
	LeaveReason    *string    `gorm:"default:null" json:"leave_reason,omitempty"`
}

func (AttendanceRecord) TableName() string { return "AttendanceRecord" }

func (r AttendanceRecord) IsLeave() bool { return r.LeaveStartTime != nil }

// IsOpen reports a check-in that has not been closed by a check-out.
func (r AttendanceRecord) IsOpen() bool { return r.CheckinTime != nil && r.CheckoutTime == nil }

// EventTime is the timestamp the record is ordered by: the check-in for
// sessions, the leave start for leave applications.
func (r AttendanceRecord) EventTime() time.Time {
	switch {
	case r.CheckinTime != nil:
		return *r.CheckinTime
	case r.LeaveStartTime != nil:
		return *r.LeaveStartTime
	default:
		return time.Time{}
	}
}

// Worked returns the length of a closed session, zero otherwise.
func (r AttendanceRecord) Worked() time.Duration {
	if r.CheckinTime == nil || r.CheckoutTime == nil {
		return 0
	}
	return r.CheckoutTime.Sub(*r.CheckinTime)
}
