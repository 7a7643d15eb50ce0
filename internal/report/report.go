// Package report builds the daily attendance summary that is mailed to
// managers: who did not check in, who forgot to check out, who was late,
// who left early, who did not do enough hours, and who was on leave.
package report

import (
	"fmt"
	"html"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/huyquangvevo/chamcong-web/internal/calendar"
	"github.com/huyquangvevo/chamcong-web/internal/models"
)

type Status string

const (
	StatusWorked       Status = "Worked"
	StatusNotCheckIn   Status = "Not checked in"
	StatusNotCheckOut  Status = "Not checked out"
	StatusCheckInLate  Status = "Checked in late"
	StatusCheckOutSoon Status = "Checked out early"
	StatusNotEnough    Status = "Not enough hours"
	StatusOnLeave      Status = "On leave"
)

// Policy is the expected workday.
type Policy struct {
	TimeIn   string // HH:MM, latest on-time check-in
	TimeOut  string // HH:MM, earliest on-time check-out
	TimeWork int    // minimum hours
	Location *time.Location
}

func (p Policy) location() *time.Location {
	if p.Location == nil {
		return time.UTC
	}
	return p.Location
}

type Line struct {
	Name     string
	Email    string
	Status   Status
	CheckIn  *time.Time
	CheckOut *time.Time
	Reason   string
}

type Summary struct {
	Date          calendar.Date
	Total         int
	Work          int
	NotCheckIn    int
	NotCheckOut   int
	CheckInLate   int
	CheckOutSoon  int
	NotEnoughWork int
	OnLeave       int
	Lines         []Line
}

// Build classifies every user for day. records may contain rows of other
// days; they are ignored.
func Build(day calendar.Date, users []models.User, records []models.AttendanceRecord, policy Policy) (Summary, error) {
	loc := policy.location()
	timeIn, err := day.At(policy.TimeIn, loc)
	if err != nil {
		return Summary{}, err
	}
	timeOut, err := day.At(policy.TimeOut, loc)
	if err != nil {
		return Summary{}, err
	}
	minWork := time.Duration(policy.TimeWork) * time.Hour

	sessions := map[string]models.AttendanceRecord{}
	leaves := map[string]models.AttendanceRecord{}
	for _, rec := range records {
		switch {
		case rec.CheckinTime != nil && day.Contains(*rec.CheckinTime, loc):
			// Keep the earliest check-in of the day.
			if prev, ok := sessions[rec.UserEmail]; !ok || rec.CheckinTime.Before(*prev.CheckinTime) {
				sessions[rec.UserEmail] = rec
			}
		case rec.LeaveStartTime != nil && day.Contains(*rec.LeaveStartTime, loc):
			leaves[rec.UserEmail] = rec
		}
	}

	sum := Summary{Date: day, Total: len(users)}
	for _, user := range users {
		line := Line{Name: user.Name, Email: user.Email}
		atd, checkedIn := sessions[user.Email]
		leave, onLeave := leaves[user.Email]

		switch {
		case !checkedIn && onLeave:
			sum.OnLeave++
			line.Status = StatusOnLeave
			if leave.LeaveReason != nil {
				line.Reason = *leave.LeaveReason
			}
		case !checkedIn:
			sum.NotCheckIn++
			line.Status = StatusNotCheckIn
		case atd.CheckoutTime == nil:
			sum.NotCheckOut++
			line.Status = StatusNotCheckOut
		case atd.CheckinTime.After(timeIn):
			sum.CheckInLate++
			line.Status = StatusCheckInLate
		case atd.CheckoutTime.Before(timeOut):
			sum.CheckOutSoon++
			line.Status = StatusCheckOutSoon
		case atd.Worked() < minWork:
			sum.NotEnoughWork++
			line.Status = StatusNotEnough
		default:
			sum.Work++
			line.Status = StatusWorked
		}
		if checkedIn {
			line.CheckIn, line.CheckOut = atd.CheckinTime, atd.CheckoutTime
		}
		sum.Lines = append(sum.Lines, line)
	}

	sort.SliceStable(sum.Lines, func(i, j int) bool { return sum.Lines[i].Email < sum.Lines[j].Email })
	return sum, nil
}

// Render fills the $PLACEHOLDERS of tmpl from sum.
func Render(tmpl string, sum Summary, loc *time.Location) string {
	itoa := strconv.Itoa
	r := strings.NewReplacer(
		"$DATE", sum.Date.String(),
		"$TOTAL", itoa(sum.Total),
		"$WORK", itoa(sum.Work),
		"$NOT_CHECK_IN", itoa(sum.NotCheckIn),
		"$NOT_CHECK_OUT", itoa(sum.NotCheckOut),
		"$CHECK_IN_LATE", itoa(sum.CheckInLate),
		"$CHECK_OUT_SOON", itoa(sum.CheckOutSoon),
		"$NOT_ENOUGH_WORK", itoa(sum.NotEnoughWork),
		"$ON_LEAVE", itoa(sum.OnLeave),
		"$DETAILS", details(sum.Lines, loc),
	)
	return r.Replace(tmpl)
}

// details lists everyone who did not have a normal day.
func details(lines []Line, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	var b strings.Builder
	b.WriteString("<table><tr><th>Name</th><th>Email</th><th>Status</th><th>In</th><th>Out</th><th>Note</th></tr>")
	for _, l := range lines {
		if l.Status == StatusWorked {
			continue
		}
		fmt.Fprintf(&b, "<tr><td>%s</td><td>%s</td><td>%s</td><td>%s</td><td>%s</td><td>%s</td></tr>",
			html.EscapeString(l.Name), html.EscapeString(l.Email), l.Status,
			clockTime(l.CheckIn, loc), clockTime(l.CheckOut, loc), html.EscapeString(l.Reason))
	}
	b.WriteString("</table>")
	return b.String()
}

func clockTime(t *time.Time, loc *time.Location) string {
	if t == nil {
		return "-"
	}
	return t.In(loc).Format("15:04")
}
