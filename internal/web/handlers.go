package web

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"

	"github.com/huyquangvevo/chamcong-web/internal/apperr"
	"github.com/huyquangvevo/chamcong-web/internal/attendance"
	"github.com/huyquangvevo/chamcong-web/internal/auth"
	"github.com/huyquangvevo/chamcong-web/internal/export"
	"github.com/huyquangvevo/chamcong-web/internal/models"
)

const (
	flashSuccess = "success"
	flashDanger  = "danger"

	MsgLoginRequired = "You need to login to access the dashboard."
	MsgLoggedIn      = "Login successful!"
	MsgLoggedOut     = "Logged out successfully!"

	displayLayout = "2006-01-02 15:04:05"
)

type registerForm struct {
	Name             string `form:"name" binding:"required"`
	Email            string `form:"email" binding:"required,email"`
	Password         string `form:"password" binding:"required"`
	ConfirmPassword  string `form:"confirm_password" binding:"required"`
	Contact          string `form:"contact" binding:"required"`
	EmergencyContact string `form:"emergency_contact" binding:"required"`
}

type loginForm struct {
	Email    string `form:"email" binding:"required"`
	Password string `form:"password" binding:"required"`
}

type leaveRequest struct {
	Reason string `json:"reason" binding:"required"`
}

type flash struct {
	Category string
	Message  string
}

type recordView struct {
	Open       bool
	CheckIn    string
	CheckOut   string
	LeaveStart string
	Reason     string
}

func addFlash(c *gin.Context, category, message string) {
	sessions.Default(c).AddFlash(message, category)
}

// takeFlashes drains pending notices. The session must be saved afterwards.
func takeFlashes(c *gin.Context) []flash {
	session := sessions.Default(c)
	var out []flash
	for _, category := range []string{flashSuccess, flashDanger} {
		for _, v := range session.Flashes(category) {
			if msg, ok := v.(string); ok {
				out = append(out, flash{Category: category, Message: msg})
			}
		}
	}
	return out
}

// redirect saves the session and sends the browser to path.
func (s *server) redirect(c *gin.Context, path string) {
	if err := sessions.Default(c).Save(); err != nil {
		s.logger.Error("save session failed", "request_id", RequestIDFrom(c), "error", err)
	}
	c.Redirect(http.StatusFound, path)
}

func (s *server) render(c *gin.Context, name string, data gin.H) {
	data["Flashes"] = takeFlashes(c)
	if err := sessions.Default(c).Save(); err != nil {
		s.logger.Error("save session failed", "request_id", RequestIDFrom(c), "error", err)
	}
	c.HTML(http.StatusOK, name, data)
}

// fail logs storage faults and returns the JSON error body.
func (s *server) fail(c *gin.Context, err error) {
	kind := apperr.KindOf(err)
	if kind == apperr.KindStorage {
		s.logger.Error("request failed", "request_id", RequestIDFrom(c), "path", c.Request.URL.Path, "error", err)
	}
	c.JSON(apperr.HTTPStatus(kind), gin.H{"message": apperr.Message(err)})
}

// failPage reports err on a browser route: the message goes into a danger
// flash and the browser is sent back to the landing page.
func (s *server) failPage(c *gin.Context, err error) {
	if apperr.KindOf(err) == apperr.KindStorage {
		s.logger.Error("request failed", "request_id", RequestIDFrom(c), "path", c.Request.URL.Path, "error", err)
	}
	addFlash(c, flashDanger, apperr.Message(err))
	s.redirect(c, "/")
}

// identity is the caller attached by auth.RequireIdentity.
func identity(c *gin.Context) auth.Identity {
	id, _ := auth.FromContext(c.Request.Context())
	return id
}

func (s *server) loginRequired(c *gin.Context) {
	addFlash(c, flashDanger, MsgLoginRequired)
	s.redirect(c, "/")
}

func (s *server) unauthenticated(c *gin.Context) {
	c.JSON(http.StatusUnauthorized, gin.H{"message": attendance.MsgUnauthenticated})
}

func (s *server) index(c *gin.Context) {
	s.render(c, "index.html", gin.H{})
}

func (s *server) register(c *gin.Context) {
	var form registerForm
	if err := c.ShouldBind(&form); err != nil {
		addFlash(c, flashDanger, auth.MsgMissingFields)
		s.redirect(c, "/")
		return
	}
	_, err := s.auth.Register(c.Request.Context(), auth.RegisterInput{
		Name:             form.Name,
		Email:            form.Email,
		Password:         form.Password,
		ConfirmPassword:  form.ConfirmPassword,
		Contact:          form.Contact,
		EmergencyContact: form.EmergencyContact,
	})
	if err != nil {
		if apperr.KindOf(err) == apperr.KindStorage {
			s.logger.Error("register failed", "request_id", RequestIDFrom(c), "error", err)
		}
		addFlash(c, flashDanger, apperr.Message(err))
		s.redirect(c, "/")
		return
	}
	addFlash(c, flashSuccess, auth.MsgRegistered)
	s.redirect(c, "/")
}

func (s *server) login(c *gin.Context) {
	var form loginForm
	if err := c.ShouldBind(&form); err != nil {
		addFlash(c, flashDanger, auth.MsgInvalidCredentials)
		s.redirect(c, "/")
		return
	}
	id, err := s.auth.Login(c.Request.Context(), form.Email, form.Password)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindStorage {
			s.logger.Error("login failed", "request_id", RequestIDFrom(c), "error", err)
		}
		addFlash(c, flashDanger, apperr.Message(err))
		s.redirect(c, "/")
		return
	}
	auth.StartSession(c, id.Email)
	addFlash(c, flashSuccess, MsgLoggedIn)
	s.redirect(c, "/dashboard")
}

func (s *server) logout(c *gin.Context) {
	auth.EndSession(c)
	addFlash(c, flashSuccess, MsgLoggedOut)
	s.redirect(c, "/")
}

func (s *server) dashboard(c *gin.Context) {
	id := identity(c)
	ctx := c.Request.Context()

	records, err := s.attendance.ListRecords(ctx, id.Email)
	if err != nil {
		s.failPage(c, err)
		return
	}
	state, err := s.attendance.TodayState(ctx, id.Email)
	if err != nil {
		s.failPage(c, err)
		return
	}

	loc := s.attendance.Location()
	views := make([]recordView, 0, len(records))
	for _, rec := range records {
		views = append(views, toView(rec, loc))
	}
	s.render(c, "dashboard.html", gin.H{
		"Email":   id.Email,
		"Records": views,
		"State":   string(state),
	})
}

func (s *server) export(c *gin.Context) {
	id := identity(c)
	records, err := s.attendance.ListRecords(c.Request.Context(), id.Email)
	if err != nil {
		s.failPage(c, err)
		return
	}
	var buf bytes.Buffer
	if err := export.WriteRecords(&buf, records, s.attendance.Location()); err != nil {
		s.failPage(c, apperr.Storage(err))
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="attendance-%s.xlsx"`, s.attendance.Today()))
	c.Data(http.StatusOK, export.ContentType, buf.Bytes())
}

func (s *server) applyLeave(c *gin.Context) {
	id := identity(c)
	var req leaveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, apperr.Validation(attendance.MsgReasonRequired))
		return
	}
	if _, err := s.attendance.ApplyLeave(c.Request.Context(), id.Email, req.Reason); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": attendance.MsgLeaveSubmitted})
}

func (s *server) toggleCheck(c *gin.Context) {
	id := identity(c)
	out, err := s.attendance.ToggleCheck(c.Request.Context(), id.Email)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": out.Message})
}

func toView(rec models.AttendanceRecord, loc *time.Location) recordView {
	v := recordView{
		Open:       rec.IsOpen(),
		CheckIn:    formatTime(rec.CheckinTime, loc),
		CheckOut:   formatTime(rec.CheckoutTime, loc),
		LeaveStart: formatTime(rec.LeaveStartTime, loc),
	}
	if rec.LeaveReason != nil {
		v.Reason = *rec.LeaveReason
	}
	return v
}

func formatTime(t *time.Time, loc *time.Location) string {
	if t == nil {
		return "-"
	}
	return t.In(loc).Format(displayLayout)
}
