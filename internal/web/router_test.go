package web

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"

	"github.com/huyquangvevo/chamcong-web/internal/apperr"
	"github.com/huyquangvevo/chamcong-web/internal/attendance"
	"github.com/huyquangvevo/chamcong-web/internal/auth"
	"github.com/huyquangvevo/chamcong-web/internal/clock"
	"github.com/huyquangvevo/chamcong-web/internal/config"
	"github.com/huyquangvevo/chamcong-web/internal/export"
	"github.com/huyquangvevo/chamcong-web/internal/models"
	"github.com/huyquangvevo/chamcong-web/internal/repos"
	"github.com/huyquangvevo/chamcong-web/internal/storage"
)

func init() { gin.SetMode(gin.TestMode) }

type testApp struct {
	router http.Handler
	db     *gorm.DB
	clock  *clock.FakeClock
}

func newTestApp(t *testing.T, health func(context.Context) error) *testApp {
	t.Helper()
	db, err := storage.Open(config.DB{Driver: config.DriverSQLite, Path: filepath.Join(t.TempDir(), "web.db")})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { storage.Close(db) })
	if err := storage.EnsureSchema(db); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	fake := clock.Fake(time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC))
	router, err := NewRouter(Deps{
		Auth:       auth.NewService(repos.NewUserRepo(db), &auth.Hasher{Iterations: 1000}, logger),
		Attendance: attendance.NewService(repos.NewAttendanceRepo(db), time.UTC, logger, attendance.WithClock(fake)),
		Sessions:   auth.NewSessionStore("test-secret", time.Hour, false),
		Logger:     logger,
		Health:     health,
	})
	if err != nil {
		t.Fatalf("NewRouter: %v", err)
	}
	return &testApp{router: router, db: db, clock: fake}
}

// browser keeps the session cookie between requests.
type browser struct {
	t       *testing.T
	app     *testApp
	cookies map[string]*http.Cookie
}

func (a *testApp) browser(t *testing.T) *browser {
	return &browser{t: t, app: a, cookies: map[string]*http.Cookie{}}
}

func (b *browser) do(req *http.Request) *httptest.ResponseRecorder {
	for _, c := range b.cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	b.app.router.ServeHTTP(rec, req)
	for _, c := range rec.Result().Cookies() {
		b.cookies[c.Name] = c
	}
	return rec
}

func (b *browser) get(path string) *httptest.ResponseRecorder {
	return b.do(httptest.NewRequest(http.MethodGet, path, nil))
}

func (b *browser) postForm(path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return b.do(req)
}

func (b *browser) postJSON(path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return b.do(req)
}

// expectRedirectFlash asserts a redirect to path whose landing page shows msg.
func (b *browser) expectRedirectFlash(rec *httptest.ResponseRecorder, path, msg string) {
	b.t.Helper()
	if rec.Code != http.StatusFound || rec.Header().Get("Location") != path {
		b.t.Fatalf("got %d -> %q, want 302 -> %q", rec.Code, rec.Header().Get("Location"), path)
	}
	page := b.get(path)
	if page.Code != http.StatusOK {
		b.t.Fatalf("GET %s = %d", path, page.Code)
	}
	if !strings.Contains(page.Body.String(), msg) {
		b.t.Fatalf("GET %s missing flash %q:\n%s", path, msg, page.Body.String())
	}
}

func message(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return body.Message
}

func registration(password, confirm string) url.Values {
	return url.Values{
		"name":              {"Alice"},
		"email":             {"a@example.com"},
		"password":          {password},
		"confirm_password":  {confirm},
		"contact":           {"0900000000"},
		"emergency_contact": {"0911111111"},
	}
}

func countRows(t *testing.T, db *gorm.DB, model interface{}) int64 {
	t.Helper()
	var n int64
	if err := db.Model(model).Count(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	return n
}

func TestFullFlow(t *testing.T) {
	app := newTestApp(t, nil)
	b := app.browser(t)

	if rec := b.get("/"); rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `action="/register"`) {
		t.Fatalf("GET / = %d", rec.Code)
	}

	b.expectRedirectFlash(b.postForm("/register", registration("secret", "other")), "/", auth.MsgPasswordMismatch)
	if n := countRows(t, app.db, &models.User{}); n != 0 {
		t.Fatalf("users after mismatch = %d", n)
	}

	b.expectRedirectFlash(b.postForm("/register", registration("secret", "secret")), "/", auth.MsgRegistered)
	b.expectRedirectFlash(b.postForm("/register", registration("secret", "secret")), "/", auth.MsgDuplicateEmail)

	b.expectRedirectFlash(b.postForm("/login", url.Values{"email": {"a@example.com"}, "password": {"wrong"}}), "/", auth.MsgInvalidCredentials)
	b.expectRedirectFlash(b.postForm("/login", url.Values{"email": {"a@example.com"}, "password": {"secret"}}), "/dashboard", MsgLoggedIn)

	for _, want := range []struct {
		code int
		msg  string
	}{
		{http.StatusOK, attendance.MsgCheckedIn},
		{http.StatusOK, attendance.MsgCheckedOut},
		{http.StatusConflict, attendance.MsgAlreadyOut},
	} {
		app.clock.Advance(time.Hour)
		rec := b.postJSON("/toggle_check", "")
		if rec.Code != want.code || message(t, rec) != want.msg {
			t.Fatalf("toggle = %d %q, want %d %q", rec.Code, rec.Body.String(), want.code, want.msg)
		}
	}

	if rec := b.postJSON("/apply_leave", `{"reason":"  "}`); rec.Code != http.StatusBadRequest || message(t, rec) != attendance.MsgReasonRequired {
		t.Fatalf("blank leave = %d %q", rec.Code, rec.Body.String())
	}
	if rec := b.postJSON("/apply_leave", `{"reason":"dentist"}`); rec.Code != http.StatusOK || message(t, rec) != attendance.MsgLeaveSubmitted {
		t.Fatalf("leave = %d %q", rec.Code, rec.Body.String())
	}

	page := b.get("/dashboard")
	if page.Code != http.StatusOK {
		t.Fatalf("dashboard = %d", page.Code)
	}
	for _, want := range []string{"a@example.com", "dentist", "2026-10-14 10:00:00", "2026-10-14 11:00:00", "disabled"} {
		if !strings.Contains(page.Body.String(), want) {
			t.Errorf("dashboard missing %q", want)
		}
	}

	b.expectRedirectFlash(b.get("/logout"), "/", MsgLoggedOut)
	b.expectRedirectFlash(b.get("/dashboard"), "/", MsgLoginRequired)
	if rec := b.postJSON("/toggle_check", ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("toggle after logout = %d", rec.Code)
	}
}

func TestUnauthenticatedActions(t *testing.T) {
	app := newTestApp(t, nil)
	b := app.browser(t)

	for _, rec := range []*httptest.ResponseRecorder{
		b.postJSON("/toggle_check", ""),
		b.postJSON("/apply_leave", `{"reason":"sick"}`),
	} {
		if rec.Code != http.StatusUnauthorized || message(t, rec) != attendance.MsgUnauthenticated {
			t.Fatalf("got %d %q", rec.Code, rec.Body.String())
		}
	}
	if n := countRows(t, app.db, &models.AttendanceRecord{}); n != 0 {
		t.Fatalf("records = %d, want 0", n)
	}

	b.expectRedirectFlash(b.get("/dashboard/export"), "/", MsgLoginRequired)
}

func TestRegisterMissingFields(t *testing.T) {
	app := newTestApp(t, nil)
	b := app.browser(t)

	form := registration("secret", "secret")
	form.Del("contact")
	b.expectRedirectFlash(b.postForm("/register", form), "/", auth.MsgMissingFields)
	if n := countRows(t, app.db, &models.User{}); n != 0 {
		t.Fatalf("users = %d, want 0", n)
	}
}

func TestExport(t *testing.T) {
	app := newTestApp(t, nil)
	b := app.browser(t)
	b.postForm("/register", registration("secret", "secret"))
	b.postForm("/login", url.Values{"email": {"a@example.com"}, "password": {"secret"}})
	b.postJSON("/toggle_check", "")
	b.postJSON("/apply_leave", `{"reason":"sick"}`)

	rec := b.get("/dashboard/export")
	if rec.Code != http.StatusOK {
		t.Fatalf("export = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != export.ContentType {
		t.Fatalf("Content-Type = %q", ct)
	}
	if cd := rec.Header().Get("Content-Disposition"); cd != `attachment; filename="attendance-2026-10-14.xlsx"` {
		t.Fatalf("Content-Disposition = %q", cd)
	}

	f, err := excelize.OpenReader(rec.Body)
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer f.Close()
	rows, err := f.GetRows(export.SheetName)
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("rows = %d, want header + 2", len(rows))
	}
}

func TestPageStorageFaultRedirects(t *testing.T) {
	app := newTestApp(t, nil)
	b := app.browser(t)
	b.postForm("/register", registration("secret", "secret"))
	b.postForm("/login", url.Values{"email": {"a@example.com"}, "password": {"secret"}})
	b.get("/dashboard")

	if err := app.db.Migrator().DropTable(&models.AttendanceRecord{}); err != nil {
		t.Fatalf("DropTable: %v", err)
	}

	for _, path := range []string{"/dashboard", "/dashboard/export"} {
		rec := b.get(path)
		if ct := rec.Header().Get("Content-Type"); strings.HasPrefix(ct, "application/json") {
			t.Fatalf("GET %s answered JSON: %s", path, rec.Body.String())
		}
		b.expectRedirectFlash(rec, "/", apperr.GenericMessage)
	}
}

func TestHealthz(t *testing.T) {
	healthy := newTestApp(t, func(context.Context) error { return nil }).browser(t)
	if rec := healthy.get("/healthz"); rec.Code != http.StatusOK {
		t.Fatalf("healthz = %d", rec.Code)
	}

	broken := newTestApp(t, func(context.Context) error { return errors.New("db down") }).browser(t)
	if rec := broken.get("/healthz"); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("healthz = %d, want 503", rec.Code)
	}
}

func TestRequestID(t *testing.T) {
	b := newTestApp(t, nil).browser(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(requestIDHeader, "abc-123")
	if got := b.do(req).Header().Get(requestIDHeader); got != "abc-123" {
		t.Fatalf("echoed id = %q", got)
	}
	if got := b.get("/healthz").Header().Get(requestIDHeader); len(got) != 36 {
		t.Fatalf("minted id = %q", got)
	}
}
