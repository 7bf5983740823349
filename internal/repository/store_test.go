package repository

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"campusevents/internal/db"
	"campusevents/internal/model"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	url := os.Getenv("CAMPUS_EVENTS_TEST_DB")
	if url == "" {
		t.Skip("CAMPUS_EVENTS_TEST_DB not set")
	}
	ctx := context.Background()
	if err := db.Migrate(ctx, url); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	pool, err := db.NewPool(ctx, url)
	if err != nil {
		t.Fatalf("pool: %v", err)
	}
	t.Cleanup(pool.Close)
	return NewStore(pool)
}

func seedEvent(t *testing.T, store *Store, capacity *int32) (model.User, model.Event) {
	t.Helper()
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)

	chair := model.User{
		ID:           uuid.NewString(),
		Email:        uuid.NewString() + "@campus.test",
		PasswordHash: "hash",
		FullName:     "Chair",
		Role:         model.RoleChairperson,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := store.CreateUser(ctx, chair); err != nil {
		t.Fatalf("create chair: %v", err)
	}
	club := model.Club{ID: uuid.NewString(), Name: "club-" + uuid.NewString(), IsActive: true, CreatedAt: now, UpdatedAt: now}
	if err := store.CreateClub(ctx, club); err != nil {
		t.Fatalf("create club: %v", err)
	}
	event := model.Event{
		ID:          uuid.NewString(),
		ClubID:      club.ID,
		Title:       "Robotics night",
		EventType:   model.EventTypeWorkshop,
		StartAt:     now.Add(24 * time.Hour),
		MaxCapacity: capacity,
		IsPublished: true,
		CreatedBy:   chair.ID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := store.CreateEvent(ctx, event); err != nil {
		t.Fatalf("create event: %v", err)
	}
	return chair, event
}

func seedStudent(t *testing.T, store *Store) model.User {
	t.Helper()
	now := time.Now().UTC()
	user := model.User{
		ID:           uuid.NewString(),
		Email:        uuid.NewString() + "@campus.test",
		PasswordHash: "hash",
		FullName:     "Student",
		Role:         model.RoleStudent,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := store.CreateUser(context.Background(), user); err != nil {
		t.Fatalf("create student: %v", err)
	}
	return user
}

func newRegistration(eventID, userID string) model.Registration {
	return model.Registration{
		ID:           uuid.NewString(),
		EventID:      eventID,
		UserID:       userID,
		Status:       model.RegistrationRegistered,
		QRToken:      uuid.NewString(),
		QRSealed:     "sealed",
		QRData:       "{}",
		QRImage:      "data:image/png;base64,",
		RegisteredAt: time.Now().UTC(),
	}
}

func TestConcurrentRegistrationsRespectCapacity(t *testing.T) {
	store := testStore(t)
	capacity := int32(3)
	_, event := seedEvent(t, store, &capacity)

	var wg sync.WaitGroup
	results := make(chan error, 10)
	for i := 0; i < 10; i++ {
		student := seedStudent(t, store)
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- store.CreateRegistration(context.Background(), newRegistration(event.ID, student.ID))
		}()
	}
	wg.Wait()
	close(results)

	var ok, full int
	for err := range results {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, ErrEventFull):
			full++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if ok != 3 || full != 7 {
		t.Fatalf("expected 3 registered and 7 full, got %d and %d", ok, full)
	}
	stored, err := store.GetEvent(context.Background(), event.ID)
	if err != nil {
		t.Fatalf("get event: %v", err)
	}
	if stored.RegisteredCount != 3 {
		t.Fatalf("expected registered count 3, got %d", stored.RegisteredCount)
	}
}

func TestDuplicateRegistrationAndCancel(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()
	_, event := seedEvent(t, store, nil)
	student := seedStudent(t, store)

	first := newRegistration(event.ID, student.ID)
	if err := store.CreateRegistration(ctx, first); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := store.CreateRegistration(ctx, newRegistration(event.ID, student.ID)); !errors.Is(err, ErrAlreadyRegistered) {
		t.Fatalf("expected ErrAlreadyRegistered, got %v", err)
	}

	if _, err := store.CancelRegistration(ctx, first.ID, time.Now().UTC()); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if _, err := store.CancelRegistration(ctx, first.ID, time.Now().UTC()); !errors.Is(err, ErrAlreadyCancelled) {
		t.Fatalf("expected ErrAlreadyCancelled, got %v", err)
	}
	if err := store.CreateRegistration(ctx, newRegistration(event.ID, student.ID)); err != nil {
		t.Fatalf("register after cancel: %v", err)
	}
	stored, _ := store.GetEvent(ctx, event.ID)
	if stored.RegisteredCount != 1 {
		t.Fatalf("expected registered count 1, got %d", stored.RegisteredCount)
	}
}

func TestConcurrentScansMarkOnce(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()
	chair, event := seedEvent(t, store, nil)
	student := seedStudent(t, store)
	reg := newRegistration(event.ID, student.ID)
	if err := store.CreateRegistration(ctx, reg); err != nil {
		t.Fatalf("register: %v", err)
	}

	var wg sync.WaitGroup
	results := make(chan error, 5)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			now := time.Now().UTC()
			_, err := store.MarkAttendance(ctx, model.MarkAttendance{
				RegistrationID:     reg.ID,
				EventID:            event.ID,
				Status:             model.AttendancePresent,
				RegistrationStatus: model.RegistrationAttended,
				Log: model.AttendanceLog{
					ID:       uuid.NewString(),
					MarkedBy: chair.ID,
					MarkedAt: now,
					Status:   model.AttendancePresent,
				},
			})
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var ok, dup int
	for err := range results {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, ErrAlreadyMarked):
			dup++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if ok != 1 || dup != 4 {
		t.Fatalf("expected one mark and four duplicates, got %d and %d", ok, dup)
	}

	counts, err := store.EventAttendanceCounts(ctx, event.ID)
	if err != nil {
		t.Fatalf("counts: %v", err)
	}
	if counts.Total != 1 || counts.Present != 1 || counts.Pending != 0 {
		t.Fatalf("unexpected counts: %+v", counts)
	}
	if _, err := store.CancelRegistration(ctx, reg.ID, time.Now().UTC()); !errors.Is(err, ErrAlreadyMarked) {
		t.Fatalf("expected ErrAlreadyMarked on cancel, got %v", err)
	}
}

func TestAttendanceLogsReadBack(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()
	chair, event := seedEvent(t, store, nil)
	student := seedStudent(t, store)
	reg := newRegistration(event.ID, student.ID)
	if err := store.CreateRegistration(ctx, reg); err != nil {
		t.Fatalf("register: %v", err)
	}

	lat, long := 12.9, 77.6
	notes := "arrived after keynote"
	scannedAt := time.Now().UTC().Truncate(time.Microsecond)
	marks := []model.MarkAttendance{
		{
			RegistrationID:     reg.ID,
			EventID:            event.ID,
			Status:             model.AttendancePresent,
			RegistrationStatus: model.RegistrationAttended,
			Log: model.AttendanceLog{ID: uuid.NewString(), MarkedBy: chair.ID, MarkedAt: scannedAt,
				Status: model.AttendancePresent, Latitude: &lat, Longitude: &long},
		},
		{
			RegistrationID:     reg.ID,
			EventID:            event.ID,
			Status:             model.AttendanceLate,
			RegistrationStatus: model.RegistrationAttended,
			Override:           true,
			Log: model.AttendanceLog{ID: uuid.NewString(), MarkedBy: chair.ID, MarkedAt: scannedAt.Add(time.Minute),
				Status: model.AttendanceLate, Notes: &notes},
		},
	}
	for _, mark := range marks {
		if _, err := store.MarkAttendance(ctx, mark); err != nil {
			t.Fatalf("mark %s: %v", mark.Status, err)
		}
	}

	checkLogs := func(source string, logs []model.AttendanceLog) {
		t.Helper()
		if len(logs) != 2 {
			t.Fatalf("%s: expected 2 logs, got %d", source, len(logs))
		}
		if logs[0].Status != model.AttendancePresent || logs[0].Latitude == nil || *logs[0].Latitude != lat {
			t.Fatalf("%s: unexpected scan log: %+v", source, logs[0])
		}
		if logs[1].Status != model.AttendanceLate || logs[1].Notes == nil || *logs[1].Notes != notes {
			t.Fatalf("%s: unexpected override log: %+v", source, logs[1])
		}
	}

	got, err := store.GetRegistration(ctx, reg.ID)
	if err != nil {
		t.Fatalf("get registration: %v", err)
	}
	checkLogs("get", got.Attendance.Logs)

	attendees, err := store.ListEventAttendees(ctx, event.ID)
	if err != nil || len(attendees) != 1 {
		t.Fatalf("list attendees: %v (%d)", err, len(attendees))
	}
	checkLogs("attendees", attendees[0].Registration.Attendance.Logs)

	mine, err := store.ListUserRegistrations(ctx, student.ID, "")
	if err != nil || len(mine) != 1 {
		t.Fatalf("list user registrations: %v (%d)", err, len(mine))
	}
	checkLogs("user", mine[0].Attendance.Logs)
}

func TestLikePatternEscapesWildcards(t *testing.T) {
	cases := map[string]string{
		"":           `%%`,
		"go":         `%go%`,
		"50% off":    `%50\% off%`,
		"snake_case": `%snake\_case%`,
		`back\slash`: `%back\\slash%`,
		`a\%b`:       `%a\\\%b%`,
	}
	for in, want := range cases {
		if got := likePattern(in); got != want {
			t.Fatalf("likePattern(%q) = %q, want %q", in, got, want)
		}
	}
}
