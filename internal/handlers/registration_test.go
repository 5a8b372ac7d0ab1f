package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/campusevents/apiserver/internal/services"
	"github.com/campusevents/apiserver/internal/store"
	"github.com/campusevents/apiserver/types"
	"github.com/go-chi/chi/v5"
)

const testSecret = "handler-test-secret"

type stubStore struct {
	user  types.User
	event types.Event
	reg   *types.Registration
}

func (s *stubStore) GetByID(ctx context.Context, id int) (types.User, error) {
	if id != s.user.ID {
		return types.User{}, store.ErrNotFound
	}
	return s.user, nil
}

func (s *stubStore) Get(ctx context.Context, id int) (types.Event, error) {
	if id != s.event.ID {
		return types.Event{}, store.ErrNotFound
	}
	return s.event, nil
}

func (s *stubStore) FindActive(ctx context.Context, userID, eventID int) (types.Registration, error) {
	if s.reg == nil {
		return types.Registration{}, store.ErrNotFound
	}
	return *s.reg, nil
}

func (s *stubStore) CreateConfirmed(ctx context.Context, userID, eventID int) (types.Registration, error) {
	reg := types.Registration{
		ID:           1,
		EventID:      eventID,
		UserID:       userID,
		Status:       types.RegistrationConfirmed,
		RegisteredAt: time.Now(),
	}
	s.reg = &reg
	s.event.Registration.CurrentCount++
	return reg, nil
}

func newTestRouter(s *stubStore) *chi.Mux {
	admission := services.NewAdmissionService(s, s, s, nil)
	handler := NewRegistrationHandler(admission, nil)

	r := chi.NewRouter()
	r.With(RequireAuth(testSecret)).Post("/events/{eventID}/register", handler.Register)
	return r
}

func openEvent() types.Event {
	now := time.Now()
	return types.Event{
		ID:     7,
		Title:  "Guest Lecture",
		Status: types.EventApproved,
		Registration: types.RegistrationWindow{
			Required:        true,
			IsOpen:          true,
			StartDate:       now.Add(-time.Hour),
			EndDate:         now.Add(time.Hour),
			MaxParticipants: 10,
		},
	}
}

func registerRequest(t *testing.T, router http.Handler, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/events/7/register", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func testToken(t *testing.T, userID int) string {
	t.Helper()
	token, err := issueToken(userID, []byte(testSecret), time.Minute)
	if err != nil {
		t.Fatalf("issueToken: %v", err)
	}
	return token
}

func TestRegisterRequiresAuth(t *testing.T) {
	router := newTestRouter(&stubStore{user: types.User{ID: 1}, event: openEvent()})

	rec := registerRequest(t, router, "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestRegisterAdmits(t *testing.T) {
	s := &stubStore{
		user: types.User{
			ID:      3,
			Role:    types.RoleStudent,
			Student: &types.StudentProfile{Program: "BTech", Year: 2, Section: "A"},
		},
		event: openEvent(),
	}
	router := newTestRouter(s)

	rec := registerRequest(t, router, testToken(t, 3))
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body)
	}

	var result types.AdmissionResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !result.Admitted() || result.Registration == nil {
		t.Fatalf("result = %+v, want admitted with registration", result)
	}
}

func TestRegisterDuplicateConflicts(t *testing.T) {
	s := &stubStore{
		user: types.User{
			ID:      3,
			Role:    types.RoleStudent,
			Student: &types.StudentProfile{Program: "BTech", Year: 2, Section: "A"},
		},
		event: openEvent(),
	}
	router := newTestRouter(s)

	if rec := registerRequest(t, router, testToken(t, 3)); rec.Code != http.StatusCreated {
		t.Fatalf("first register status = %d, want 201", rec.Code)
	}
	rec := registerRequest(t, router, testToken(t, 3))
	if rec.Code != http.StatusConflict {
		t.Fatalf("second register status = %d, want 409: %s", rec.Code, rec.Body)
	}

	var result types.AdmissionResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if result.Reason != types.ReasonAlreadyRegistered {
		t.Errorf("reason = %q, want already_registered", result.Reason)
	}
}

func TestRegisterUnknownEvent(t *testing.T) {
	s := &stubStore{
		user: types.User{
			ID:      3,
			Role:    types.RoleStudent,
			Student: &types.StudentProfile{Program: "BTech", Year: 2, Section: "A"},
		},
		event: types.Event{ID: 99},
	}
	router := newTestRouter(s)

	rec := registerRequest(t, router, testToken(t, 3))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404: %s", rec.Code, rec.Body)
	}
}
