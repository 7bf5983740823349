package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"campusevents/internal/auth"
	"campusevents/internal/config"
	"campusevents/internal/crypto"
	"campusevents/internal/mail"
	"campusevents/internal/model"
	"campusevents/internal/operations"
	"campusevents/internal/qr"
	"campusevents/internal/repository/repotest"
)

type testEnv struct {
	t       *testing.T
	cfg     config.Config
	store   *repotest.Store
	mailer  *recordingMailer
	handler http.Handler
	admin   model.User
	chair   model.User
	club    model.Club
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	cfg := config.Config{
		JWTSecret:         "http-test-secret",
		JWTIssuer:         "campus-events-test",
		AccessTokenTTL:    time.Hour,
		AnalyticsCacheTTL: time.Minute,
	}
	sealer, err := crypto.NewSealer("http-test-qr-key")
	if err != nil {
		t.Fatalf("sealer: %v", err)
	}
	store := repotest.NewStore()
	ops := operations.NewService(store, qr.NewIssuer(sealer, 128), nil)
	mailer := &recordingMailer{}
	server := NewServer(cfg, store, ops, nil, mailer, nil)

	env := &testEnv{t: t, cfg: cfg, store: store, mailer: mailer, handler: server.Router()}
	env.admin = env.seedUser(model.RoleAdmin)
	env.chair = env.seedUser(model.RoleChairperson)
	env.club = model.Club{ID: uuid.NewString(), Name: "Coding Club", IsActive: true}
	if err := store.CreateClub(context.Background(), env.club); err != nil {
		t.Fatalf("create club: %v", err)
	}
	if err := store.AddClubMember(context.Background(), env.chair.ID, model.ClubMembership{
		ClubID: env.club.ID,
		Role:   model.ClubRoleChairperson,
	}); err != nil {
		t.Fatalf("add member: %v", err)
	}
	return env
}

type recordingMailer struct {
	mu   sync.Mutex
	sent []mail.Message
	err  error
}

func (m *recordingMailer) Send(_ context.Context, msg mail.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

func (e *testEnv) seedUser(role model.Role) model.User {
	e.t.Helper()
	id := uuid.NewString()
	user := model.User{ID: id, Email: id + "@campus.test", FullName: "Seeded " + string(role), Role: role}
	if err := e.store.CreateUser(context.Background(), user); err != nil {
		e.t.Fatalf("create user: %v", err)
	}
	return user
}

func (e *testEnv) token(user model.User) string {
	e.t.Helper()
	token, err := auth.NewAccessToken(e.cfg.JWTSecret, e.cfg.JWTIssuer, e.cfg.AccessTokenTTL, auth.Claims{
		UserID: user.ID,
		Email:  user.Email,
		Role:   string(user.Role),
	})
	if err != nil {
		e.t.Fatalf("token: %v", err)
	}
	return token
}

func (e *testEnv) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	e.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			e.t.Fatalf("marshal: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func expectStatus(t *testing.T, rec *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	if rec.Code != status {
		t.Fatalf("expected status %d, got %d: %s", status, rec.Code, rec.Body.String())
	}
	if code == "" {
		return
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	if body["error"] != code {
		t.Fatalf("expected error %s, got %s", code, body["error"])
	}
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
		t.Fatalf("decode: %v (%s)", err, rec.Body.String())
	}
}

func (e *testEnv) createEvent(capacity *int32) eventView {
	e.t.Helper()
	body := map[string]interface{}{
		"clubId":    e.club.ID,
		"title":     "Go concurrency workshop",
		"eventType": "workshop",
		"startAt":   time.Now().Add(48 * time.Hour).UTC().Format(time.RFC3339),
	}
	if capacity != nil {
		body["maxCapacity"] = *capacity
	}
	rec := e.do(http.MethodPost, "/events", e.token(e.chair), body)
	expectStatus(e.t, rec, http.StatusCreated, "")
	var event eventView
	decode(e.t, rec, &event)
	return event
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(http.MethodGet, "/health", "", nil)
	expectStatus(t, rec, http.StatusOK, "")
}

func TestSignupLoginAndMe(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodPost, "/signup", "", map[string]interface{}{
		"email":    "Asha@Campus.test",
		"password": "secret1",
		"fullName": "Asha Rao",
		"branch":   "CSE",
	})
	expectStatus(t, rec, http.StatusCreated, "")
	var signup authResponse
	decode(t, rec, &signup)
	if signup.Token == "" || signup.User.Email != "asha@campus.test" || signup.User.Role != "student" {
		t.Fatalf("unexpected signup response: %+v", signup)
	}
	claims, err := auth.ParseToken(env.cfg.JWTSecret, env.cfg.JWTIssuer, signup.Token)
	if err != nil || claims.UserID != signup.User.ID || claims.Role != "student" {
		t.Fatalf("token does not carry the user: %+v %v", claims, err)
	}

	rec = env.do(http.MethodPost, "/signup", "", map[string]interface{}{
		"email": "asha@campus.test", "password": "secret1", "fullName": "Again",
	})
	expectStatus(t, rec, http.StatusConflict, "email_taken")

	rec = env.do(http.MethodPost, "/signup", "", map[string]interface{}{
		"email": "short@campus.test", "password": "abc", "fullName": "Short",
	})
	expectStatus(t, rec, http.StatusBadRequest, "password_too_short")

	rec = env.do(http.MethodPost, "/signup", "", map[string]interface{}{
		"email": "long@campus.test", "password": strings.Repeat("p", 80), "fullName": "Long",
	})
	expectStatus(t, rec, http.StatusBadRequest, "password_too_long")

	rec = env.do(http.MethodPost, "/signup", "", map[string]interface{}{
		"email": "edge@campus.test", "password": strings.Repeat("p", 72), "fullName": "Edge",
	})
	expectStatus(t, rec, http.StatusCreated, "")

	rec = env.do(http.MethodPost, "/login", "", map[string]string{"email": "asha@campus.test", "password": "wrong-pass"})
	expectStatus(t, rec, http.StatusUnauthorized, "invalid_credentials")

	rec = env.do(http.MethodPost, "/login", "", map[string]string{"email": "ASHA@campus.test", "password": "secret1"})
	expectStatus(t, rec, http.StatusOK, "")
	var login authResponse
	decode(t, rec, &login)

	rec = env.do(http.MethodGet, "/me", login.Token, nil)
	expectStatus(t, rec, http.StatusOK, "")
	var me userView
	decode(t, rec, &me)
	if me.ID != signup.User.ID || me.Branch == nil || *me.Branch != "CSE" {
		t.Fatalf("unexpected profile: %+v", me)
	}

	rec = env.do(http.MethodPut, "/users/profile", login.Token, map[string]interface{}{"fullName": "Asha R", "year": 3})
	expectStatus(t, rec, http.StatusOK, "")
	decode(t, rec, &me)
	if me.FullName != "Asha R" || me.Year == nil || *me.Year != 3 {
		t.Fatalf("profile not updated: %+v", me)
	}
}

func TestAuthAndRoleGuards(t *testing.T) {
	env := newTestEnv(t)
	student := env.seedUser(model.RoleStudent)

	rec := env.do(http.MethodGet, "/me", "", nil)
	expectStatus(t, rec, http.StatusUnauthorized, "missing_token")

	rec = env.do(http.MethodGet, "/me", "not-a-token", nil)
	expectStatus(t, rec, http.StatusUnauthorized, "invalid_token")

	rec = env.do(http.MethodGet, "/chairperson/events", env.token(student), nil)
	expectStatus(t, rec, http.StatusForbidden, "insufficient_role")

	rec = env.do(http.MethodPost, "/clubs", env.token(env.chair), map[string]string{"name": "Chess"})
	expectStatus(t, rec, http.StatusForbidden, "insufficient_role")

	outsider := env.seedUser(model.RoleChairperson)
	rec = env.do(http.MethodPost, "/events", env.token(outsider), map[string]interface{}{
		"clubId":  env.club.ID,
		"title":   "Hijack",
		"startAt": time.Now().Add(time.Hour).UTC().Format(time.RFC3339),
	})
	expectStatus(t, rec, http.StatusForbidden, "not_club_chairperson")
}

func TestRegistrationScanAndAnalytics(t *testing.T) {
	env := newTestEnv(t)
	event := env.createEvent(nil)
	student := env.seedUser(model.RoleStudent)
	studentToken := env.token(student)
	chairToken := env.token(env.chair)

	rec := env.do(http.MethodPost, "/events/"+event.ID+"/register", studentToken, nil)
	expectStatus(t, rec, http.StatusCreated, "")
	var reg registrationView
	decode(t, rec, &reg)
	if reg.Status != "registered" || reg.QRData == "" || reg.QRImage == "" || reg.QRToken == "" {
		t.Fatalf("unexpected registration: %+v", reg)
	}

	rec = env.do(http.MethodPost, "/events/"+event.ID+"/register", studentToken, nil)
	expectStatus(t, rec, http.StatusConflict, "already_registered")

	rec = env.do(http.MethodGet, "/registrations/"+reg.ID+"/qr?format=png", studentToken, nil)
	expectStatus(t, rec, http.StatusOK, "")
	if rec.Header().Get("Content-Type") != "image/png" || !bytes.HasPrefix(rec.Body.Bytes(), []byte("\x89PNG")) {
		t.Fatalf("expected png body, got %q", rec.Header().Get("Content-Type"))
	}
	rec = env.do(http.MethodGet, "/registrations/"+reg.ID+"/qr", env.token(env.seedUser(model.RoleStudent)), nil)
	expectStatus(t, rec, http.StatusForbidden, "not_owner")

	scan := map[string]interface{}{"qrData": reg.QRData, "eventId": event.ID, "lat": 12.9, "long": 77.6}
	rec = env.do(http.MethodPost, "/chairperson/attendance/scan", chairToken, scan)
	expectStatus(t, rec, http.StatusOK, "")
	var marked registrationView
	decode(t, rec, &marked)
	if !marked.Attendance.IsMarked || marked.Attendance.Status != "present" || marked.Status != "attended" {
		t.Fatalf("unexpected scan result: %+v", marked)
	}

	rec = env.do(http.MethodPost, "/chairperson/attendance/scan", chairToken, scan)
	expectStatus(t, rec, http.StatusConflict, "duplicate_scan")

	rec = env.do(http.MethodPost, "/registrations/"+reg.ID+"/cancel", studentToken, nil)
	expectStatus(t, rec, http.StatusConflict, "attendance_marked")

	rec = env.do(http.MethodPost, "/registrations/"+reg.ID+"/feedback", studentToken, map[string]interface{}{"rating": 5})
	expectStatus(t, rec, http.StatusCreated, "")

	rec = env.do(http.MethodGet, "/chairperson/analytics/"+event.ID, chairToken, nil)
	expectStatus(t, rec, http.StatusOK, "")
	var analytics struct {
		EventID   string               `json:"eventId"`
		Analytics operations.Analytics `json:"analytics"`
	}
	decode(t, rec, &analytics)
	if analytics.Analytics.TotalRegistrations != 1 || analytics.Analytics.AttendancePercentage != 100 || analytics.Analytics.AverageRating != 5 {
		t.Fatalf("unexpected analytics: %+v", analytics)
	}

	rec = env.do(http.MethodGet, "/chairperson/analytics/clubs/"+env.club.ID, chairToken, nil)
	expectStatus(t, rec, http.StatusOK, "")

	rec = env.do(http.MethodGet, "/chairperson/events/"+event.ID+"/registrations", chairToken, nil)
	expectStatus(t, rec, http.StatusOK, "")
	var attendees struct {
		Registrations []attendeeView `json:"registrations"`
	}
	decode(t, rec, &attendees)
	if len(attendees.Registrations) != 1 || attendees.Registrations[0].Email != student.Email || attendees.Registrations[0].QRData != "" {
		t.Fatalf("unexpected attendee list: %+v", attendees.Registrations)
	}
}

func TestManualAttendanceValidation(t *testing.T) {
	env := newTestEnv(t)
	event := env.createEvent(nil)
	student := env.seedUser(model.RoleStudent)

	rec := env.do(http.MethodPost, "/events/"+event.ID+"/register", env.token(student), nil)
	expectStatus(t, rec, http.StatusCreated, "")
	var reg registrationView
	decode(t, rec, &reg)

	body := map[string]interface{}{"registrationId": reg.ID, "eventId": event.ID, "status": "sleeping"}
	rec = env.do(http.MethodPost, "/chairperson/attendance/manual", env.token(env.chair), body)
	expectStatus(t, rec, http.StatusBadRequest, "invalid_status")

	body["status"] = "excused"
	body["notes"] = "medical leave"
	rec = env.do(http.MethodPost, "/chairperson/attendance/manual", env.token(env.seedUser(model.RoleChairperson)), body)
	expectStatus(t, rec, http.StatusForbidden, "not_event_owner")

	rec = env.do(http.MethodPost, "/chairperson/attendance/manual", env.token(env.chair), body)
	expectStatus(t, rec, http.StatusOK, "")
	var marked registrationView
	decode(t, rec, &marked)
	if marked.Attendance.Status != "excused" || marked.Status != "registered" || len(marked.Attendance.Logs) != 1 {
		t.Fatalf("unexpected manual mark: %+v", marked)
	}
}

func TestCapacityAndCancellation(t *testing.T) {
	env := newTestEnv(t)
	capacity := int32(1)
	event := env.createEvent(&capacity)
	first := env.seedUser(model.RoleStudent)
	second := env.seedUser(model.RoleStudent)

	rec := env.do(http.MethodPost, "/events/"+event.ID+"/register", env.token(first), nil)
	expectStatus(t, rec, http.StatusCreated, "")
	var reg registrationView
	decode(t, rec, &reg)

	rec = env.do(http.MethodPost, "/events/"+event.ID+"/register", env.token(second), nil)
	expectStatus(t, rec, http.StatusConflict, "event_full")

	rec = env.do(http.MethodPost, "/registrations/"+reg.ID+"/cancel", env.token(second), nil)
	expectStatus(t, rec, http.StatusForbidden, "not_owner")

	rec = env.do(http.MethodPost, "/registrations/"+reg.ID+"/cancel", env.token(first), nil)
	expectStatus(t, rec, http.StatusOK, "")
	rec = env.do(http.MethodPost, "/registrations/"+reg.ID+"/cancel", env.token(first), nil)
	expectStatus(t, rec, http.StatusConflict, "already_cancelled")

	rec = env.do(http.MethodPost, "/events/"+event.ID+"/register", env.token(second), nil)
	expectStatus(t, rec, http.StatusCreated, "")

	rec = env.do(http.MethodGet, "/students/registrations", env.token(first), nil)
	expectStatus(t, rec, http.StatusOK, "")
	var mine struct {
		Registrations []registrationView `json:"registrations"`
	}
	decode(t, rec, &mine)
	if len(mine.Registrations) != 0 {
		t.Fatalf("expected cancelled registration to be hidden, got %d", len(mine.Registrations))
	}

	rec = env.do(http.MethodGet, "/events/"+event.ID, "", nil)
	expectStatus(t, rec, http.StatusOK, "")
	var stored eventView
	decode(t, rec, &stored)
	if stored.RegisteredCount != 1 {
		t.Fatalf("expected registered count 1, got %d", stored.RegisteredCount)
	}
}

func TestListEventsQuery(t *testing.T) {
	env := newTestEnv(t)
	env.createEvent(nil)
	env.createEvent(nil)

	rec := env.do(http.MethodGet, "/events?sort=random", "", nil)
	expectStatus(t, rec, http.StatusBadRequest, "invalid_sort")

	rec = env.do(http.MethodGet, "/events?type=party", "", nil)
	expectStatus(t, rec, http.StatusBadRequest, "invalid_event_type")

	rec = env.do(http.MethodGet, "/events?limit=500&search=concurrency&clubId="+env.club.ID, "", nil)
	expectStatus(t, rec, http.StatusOK, "")
	var list struct {
		Events []eventView `json:"events"`
		Limit  int32       `json:"limit"`
	}
	decode(t, rec, &list)
	if list.Limit != maxEventLimit || len(list.Events) != 2 || list.Events[0].ClubName != env.club.Name {
		t.Fatalf("unexpected listing: %+v", list)
	}

	rec = env.do(http.MethodGet, "/events?limit=1&offset=1", "", nil)
	expectStatus(t, rec, http.StatusOK, "")
	decode(t, rec, &list)
	if len(list.Events) != 1 {
		t.Fatalf("expected one event on second page, got %d", len(list.Events))
	}
}

func TestEventUpdateAndDelete(t *testing.T) {
	env := newTestEnv(t)
	event := env.createEvent(nil)
	chairToken := env.token(env.chair)

	rec := env.do(http.MethodPut, "/events/"+event.ID, chairToken, map[string]interface{}{"title": "Renamed", "maxCapacity": 0})
	expectStatus(t, rec, http.StatusBadRequest, "invalid_capacity")

	rec = env.do(http.MethodPut, "/events/"+event.ID, chairToken, map[string]interface{}{"title": "Renamed", "eventType": "hackathon"})
	expectStatus(t, rec, http.StatusOK, "")
	var updated eventView
	decode(t, rec, &updated)
	if updated.Title != "Renamed" || updated.EventType != "hackathon" {
		t.Fatalf("unexpected update: %+v", updated)
	}

	rec = env.do(http.MethodDelete, "/events/"+event.ID, env.token(env.seedUser(model.RoleChairperson)), nil)
	expectStatus(t, rec, http.StatusForbidden, "not_event_owner")

	rec = env.do(http.MethodDelete, "/events/"+event.ID, env.token(env.admin), nil)
	expectStatus(t, rec, http.StatusNoContent, "")

	rec = env.do(http.MethodGet, "/events/"+event.ID, "", nil)
	expectStatus(t, rec, http.StatusNotFound, "event_not_found")
}

func TestAdminClubsAndRoles(t *testing.T) {
	env := newTestEnv(t)
	adminToken := env.token(env.admin)
	student := env.seedUser(model.RoleStudent)

	rec := env.do(http.MethodPost, "/clubs", adminToken, map[string]string{"name": "Robotics"})
	expectStatus(t, rec, http.StatusCreated, "")
	var club clubView
	decode(t, rec, &club)

	rec = env.do(http.MethodPost, "/clubs", adminToken, map[string]string{"name": "Robotics"})
	expectStatus(t, rec, http.StatusConflict, "club_exists")

	rec = env.do(http.MethodPost, "/clubs/"+club.ID+"/members", adminToken, map[string]string{"userId": student.ID, "role": "chairperson"})
	expectStatus(t, rec, http.StatusCreated, "")

	rec = env.do(http.MethodPut, "/admin/users/"+student.ID+"/role", adminToken, map[string]string{"role": "wizard"})
	expectStatus(t, rec, http.StatusBadRequest, "invalid_role")

	rec = env.do(http.MethodPut, "/admin/users/"+student.ID+"/role", adminToken, map[string]string{"role": "chairperson"})
	expectStatus(t, rec, http.StatusOK, "")

	promoted, err := env.store.GetUserByID(context.Background(), student.ID)
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if promoted.Role != model.RoleChairperson || len(promoted.ClubMemberships) != 1 {
		t.Fatalf("unexpected promoted user: %+v", promoted)
	}

	rec = env.do(http.MethodGet, "/clubs?search=robo", "", nil)
	expectStatus(t, rec, http.StatusOK, "")
	var clubs struct {
		Clubs []clubView `json:"clubs"`
	}
	decode(t, rec, &clubs)
	if len(clubs.Clubs) != 1 || clubs.Clubs[0].MemberCount != 1 {
		t.Fatalf("unexpected clubs: %+v", clubs.Clubs)
	}
}

func TestBearerToken(t *testing.T) {
	cases := map[string]string{
		"":              "",
		"Bearer abc":    "abc",
		"bearer  abc ":  "abc",
		"Basic abc":     "",
		"Bearerabc":     "",
	}
	for header, expect := range cases {
		if got := bearerToken(header); got != expect {
			t.Fatalf("bearerToken(%q) = %q, want %q", header, got, expect)
		}
	}
}

func TestAttendanceLogsAreListed(t *testing.T) {
	env := newTestEnv(t)
	event := env.createEvent(nil)
	student := env.seedUser(model.RoleStudent)
	chairToken := env.token(env.chair)

	rec := env.do(http.MethodPost, "/events/"+event.ID+"/register", env.token(student), nil)
	expectStatus(t, rec, http.StatusCreated, "")
	var reg registrationView
	decode(t, rec, &reg)

	scan := map[string]interface{}{"qrData": reg.QRData, "eventId": event.ID, "lat": 12.9, "long": 77.6}
	rec = env.do(http.MethodPost, "/chairperson/attendance/scan", chairToken, scan)
	expectStatus(t, rec, http.StatusOK, "")

	manual := map[string]interface{}{"registrationId": reg.ID, "eventId": event.ID, "status": "late", "notes": "arrived after keynote"}
	rec = env.do(http.MethodPost, "/chairperson/attendance/manual", chairToken, manual)
	expectStatus(t, rec, http.StatusOK, "")

	checkLogs := func(view registrationView) {
		t.Helper()
		logs := view.Attendance.Logs
		if len(logs) != 2 {
			t.Fatalf("expected 2 attendance logs, got %+v", logs)
		}
		if logs[0].Status != "present" || logs[0].Latitude == nil || *logs[0].Latitude != 12.9 {
			t.Fatalf("unexpected scan log: %+v", logs[0])
		}
		if logs[1].Status != "late" || logs[1].Notes == nil || *logs[1].Notes != "arrived after keynote" || logs[1].MarkedBy != env.chair.ID {
			t.Fatalf("unexpected override log: %+v", logs[1])
		}
	}

	rec = env.do(http.MethodGet, "/chairperson/events/"+event.ID+"/registrations", chairToken, nil)
	expectStatus(t, rec, http.StatusOK, "")
	var attendees struct {
		Registrations []attendeeView `json:"registrations"`
	}
	decode(t, rec, &attendees)
	if len(attendees.Registrations) != 1 {
		t.Fatalf("expected one attendee, got %d", len(attendees.Registrations))
	}
	checkLogs(attendees.Registrations[0].registrationView)

	rec = env.do(http.MethodGet, "/students/registrations", env.token(student), nil)
	expectStatus(t, rec, http.StatusOK, "")
	var mine struct {
		Registrations []registrationView `json:"registrations"`
	}
	decode(t, rec, &mine)
	if len(mine.Registrations) != 1 {
		t.Fatalf("expected one registration, got %d", len(mine.Registrations))
	}
	checkLogs(mine.Registrations[0])
}

func TestEventCapacityCannotDropBelowRegistrations(t *testing.T) {
	env := newTestEnv(t)
	capacity := int32(5)
	event := env.createEvent(&capacity)
	chairToken := env.token(env.chair)
	for i := 0; i < 2; i++ {
		rec := env.do(http.MethodPost, "/events/"+event.ID+"/register", env.token(env.seedUser(model.RoleStudent)), nil)
		expectStatus(t, rec, http.StatusCreated, "")
	}

	rec := env.do(http.MethodPut, "/events/"+event.ID, chairToken, map[string]interface{}{"maxCapacity": 1})
	expectStatus(t, rec, http.StatusBadRequest, "capacity_below_registered")

	rec = env.do(http.MethodPut, "/events/"+event.ID, chairToken, map[string]interface{}{"maxCapacity": 2})
	expectStatus(t, rec, http.StatusOK, "")
	var updated eventView
	decode(t, rec, &updated)
	if updated.MaxCapacity == nil || *updated.MaxCapacity != 2 || updated.RegisteredCount != 2 {
		t.Fatalf("unexpected update: %+v", updated)
	}
}

func TestConfirmRegistrationEmail(t *testing.T) {
	env := newTestEnv(t)
	event := env.createEvent(nil)
	other := env.createEvent(nil)
	student := env.seedUser(model.RoleStudent)
	studentToken := env.token(student)

	rec := env.do(http.MethodPost, "/events/"+event.ID+"/register", studentToken, nil)
	expectStatus(t, rec, http.StatusCreated, "")
	var reg registrationView
	decode(t, rec, &reg)
	confirmPath := "/events/" + event.ID + "/register/confirm"

	rec = env.do(http.MethodPost, confirmPath, studentToken, map[string]string{})
	expectStatus(t, rec, http.StatusBadRequest, "missing_fields")

	rec = env.do(http.MethodPost, confirmPath, env.token(env.seedUser(model.RoleStudent)), map[string]string{"registrationId": reg.ID})
	expectStatus(t, rec, http.StatusForbidden, "not_owner")

	rec = env.do(http.MethodPost, "/events/"+other.ID+"/register/confirm", studentToken, map[string]string{"registrationId": reg.ID})
	expectStatus(t, rec, http.StatusNotFound, "registration_not_found")

	rec = env.do(http.MethodPost, confirmPath, studentToken, map[string]string{"registrationId": reg.ID})
	expectStatus(t, rec, http.StatusOK, "")
	var body struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}
	decode(t, rec, &body)
	if !body.Success || body.Message != "Confirmation email sent" {
		t.Fatalf("unexpected body: %+v", body)
	}
	if len(env.mailer.sent) != 1 {
		t.Fatalf("expected one email, got %d", len(env.mailer.sent))
	}
	msg := env.mailer.sent[0]
	if msg.To.Email != student.Email || !strings.Contains(msg.Subject, event.Title) || !strings.Contains(msg.HTML, env.club.Name) {
		t.Fatalf("unexpected email: %+v", msg)
	}
	if len(msg.Attachments) != 1 || !bytes.HasPrefix(msg.Attachments[0].Content, []byte("\x89PNG")) {
		t.Fatalf("expected png attachment, got %+v", msg.Attachments)
	}

	env.mailer.err = errors.New("provider down")
	rec = env.do(http.MethodPost, confirmPath, studentToken, map[string]string{"registrationId": reg.ID})
	expectStatus(t, rec, http.StatusBadGateway, "email_failed")
	env.mailer.err = nil

	rec = env.do(http.MethodPost, "/registrations/"+reg.ID+"/cancel", studentToken, nil)
	expectStatus(t, rec, http.StatusOK, "")
	rec = env.do(http.MethodPost, confirmPath, studentToken, map[string]string{"registrationId": reg.ID})
	expectStatus(t, rec, http.StatusConflict, "registration_cancelled")
}
