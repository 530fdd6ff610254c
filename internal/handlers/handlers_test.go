package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"

	"github.com/gatewise/checkin/internal/domain"
	"github.com/gatewise/checkin/internal/handlers"
	"github.com/gatewise/checkin/internal/payload"
	"github.com/gatewise/checkin/internal/repository"
	"github.com/gatewise/checkin/internal/service"
	"github.com/gatewise/checkin/pkg/auth"
	"github.com/gatewise/checkin/pkg/config"
)

const testSecret = "test-secret"

type stubCheckin struct {
	resp  *domain.CheckinResponse
	err   error
	actor *domain.Actor
}

func (s *stubCheckin) Process(_ context.Context, _ *domain.CheckinRequest, actor *domain.Actor) (*domain.CheckinResponse, error) {
	s.actor = actor
	return s.resp, s.err
}

type stubVisits struct {
	repository.VisitRepository
	visit *domain.Visit
}

func (s *stubVisits) GetByID(_ context.Context, id int64) (*domain.Visit, error) {
	if s.visit != nil && s.visit.ID == id {
		return s.visit, nil
	}
	return nil, nil
}

func (s *stubVisits) ListForGuest(_ context.Context, _ int64, _, _ int) ([]domain.Visit, error) {
	if s.visit == nil {
		return nil, nil
	}
	return []domain.Visit{*s.visit}, nil
}

type stubGuests struct {
	repository.GuestRepository
	guest *domain.Guest
}

func (s *stubGuests) FindByEmail(_ context.Context, email string) (*domain.Guest, error) {
	if s.guest != nil && s.guest.Email == email {
		return s.guest, nil
	}
	return nil, nil
}

func newRouter(checkin service.CheckinService, visits repository.VisitRepository, guests repository.GuestRepository) chi.Router {
	cfg := &config.Config{Auth: config.AuthConfig{JWTSecret: testSecret}}
	h := handlers.New(checkin, visits, guests, cfg)

	r := chi.NewRouter()
	r.With(h.RequireRole(domain.RoleHost)).Post("/v1/checkin", h.PostCheckin)
	r.Route("/v1/admin", func(r chi.Router) {
		r.Use(h.RequireRole(domain.RoleSecurity))
		r.Get("/visits/{id}", h.GetVisit)
		r.Get("/visits", h.ListGuestVisits)
	})
	return r
}

func signToken(t *testing.T, role string) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, &auth.Claims{
		Sub:   7,
		Email: "staff@example.com",
		Role:  role,
	})
	signed, err := tok.SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("Failed to sign token: %v", err)
	}
	return signed
}

func doRequest(t *testing.T, router chi.Router, method, path, token string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestPostCheckin_Auth(t *testing.T) {
	router := newRouter(&stubCheckin{}, &stubVisits{}, &stubGuests{})
	body := []byte(`{"guest":{"e":"a@example.com"},"host_id":10,"location_id":1}`)

	tests := []struct {
		name   string
		token  string
		status int
	}{
		{"missing token", "", http.StatusUnauthorized},
		{"garbage token", "not-a-jwt", http.StatusUnauthorized},
		{"unknown role", signToken(t, "visitor"), http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(t, router, http.MethodPost, "/v1/checkin", tt.token, body)
			if rec.Code != tt.status {
				t.Fatalf("Expected status %d, got %d", tt.status, rec.Code)
			}
		})
	}
}

func TestPostCheckin_Success(t *testing.T) {
	stub := &stubCheckin{resp: &domain.CheckinResponse{
		Success: true,
		Results: []domain.GuestResult{{Success: true, GuestEmail: "a@example.com", VisitID: 5}},
		Summary: domain.CheckinSummary{Successful: 1},
	}}
	router := newRouter(stub, &stubVisits{}, &stubGuests{})

	body := []byte(`{"guest":{"e":"a@example.com"},"host_id":10,"location_id":1}`)
	rec := doRequest(t, router, http.MethodPost, "/v1/checkin", signToken(t, "host"), body)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if stub.actor == nil || stub.actor.UserID != 7 || stub.actor.Role != domain.RoleHost {
		t.Fatalf("Actor not propagated from token: %+v", stub.actor)
	}

	var resp domain.CheckinResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Invalid response body: %v", err)
	}
	if !resp.Success || len(resp.Results) != 1 || resp.Results[0].VisitID != 5 {
		t.Fatalf("Unexpected response: %+v", resp)
	}
}

func TestPostCheckin_InvalidJSON(t *testing.T) {
	router := newRouter(&stubCheckin{}, &stubVisits{}, &stubGuests{})

	rec := doRequest(t, router, http.MethodPost, "/v1/checkin", signToken(t, "host"), []byte("{nope"))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400, got %d", rec.Code)
	}
}

func TestPostCheckin_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"malformed payload", payload.ErrMalformed, http.StatusBadRequest},
		{"unknown host", domain.ErrHostNotFound, http.StatusNotFound},
		{"unknown location", domain.ErrLocationNotFound, http.StatusNotFound},
		{"override forbidden", service.ErrOverrideForbidden, http.StatusForbidden},
		{"override invalid", service.ErrOverrideInvalid, http.StatusBadRequest},
		{"system failure", context.DeadlineExceeded, http.StatusInternalServerError},
	}

	body := []byte(`{"guest":{"e":"a@example.com"},"host_id":10,"location_id":1}`)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newRouter(&stubCheckin{err: tt.err}, &stubVisits{}, &stubGuests{})
			rec := doRequest(t, router, http.MethodPost, "/v1/checkin", signToken(t, "host"), body)
			if rec.Code != tt.status {
				t.Fatalf("Expected %d, got %d", tt.status, rec.Code)
			}
		})
	}
}

func TestPostCheckin_WrongOverridePassword(t *testing.T) {
	router := newRouter(&stubCheckin{err: service.ErrOverridePassword}, &stubVisits{}, &stubGuests{})

	body := []byte(`{"guest":{"e":"a@example.com"},"host_id":10,"location_id":1,"override":{"reason":"looks legitimate to me","password":"wrong"}}`)
	rec := doRequest(t, router, http.MethodPost, "/v1/checkin", signToken(t, "security"), body)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("Expected 401, got %d", rec.Code)
	}
	var resp struct {
		PasswordError bool `json:"password_error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil || !resp.PasswordError {
		t.Fatalf("Expected retryable password error body, got %s", rec.Body.String())
	}
}

func TestPostCheckin_SingleCapacityRefusalIs409(t *testing.T) {
	stub := &stubCheckin{resp: &domain.CheckinResponse{
		Success: true,
		Results: []domain.GuestResult{{
			RequiresOverride: true,
			CurrentCount:     3,
			MaxCount:         3,
			Reason:           "Host already has 3 active visitors",
		}},
		Summary: domain.CheckinSummary{Failed: 1},
	}}
	router := newRouter(stub, &stubVisits{}, &stubGuests{})

	body := []byte(`{"guest":{"e":"a@example.com"},"host_id":10,"location_id":1}`)
	rec := doRequest(t, router, http.MethodPost, "/v1/checkin", signToken(t, "host"), body)

	if rec.Code != http.StatusConflict {
		t.Fatalf("Expected 409, got %d", rec.Code)
	}
	var resp struct {
		RequiresOverride bool `json:"requires_override"`
		CurrentCount     int  `json:"current_count"`
		MaxCount         int  `json:"max_count"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Invalid response body: %v", err)
	}
	if !resp.RequiresOverride || resp.CurrentCount != 3 || resp.MaxCount != 3 {
		t.Fatalf("Unexpected override response: %+v", resp)
	}
}

func TestPostCheckin_BatchCapacityRefusalStays200(t *testing.T) {
	stub := &stubCheckin{resp: &domain.CheckinResponse{
		Success: true,
		Results: []domain.GuestResult{
			{Success: true},
			{RequiresOverride: true, CurrentCount: 3, MaxCount: 3},
		},
		Summary: domain.CheckinSummary{Successful: 1, Failed: 1},
	}}
	router := newRouter(stub, &stubVisits{}, &stubGuests{})

	body := []byte(`{"guests":[{"e":"a@example.com"},{"e":"b@example.com"}],"host_id":10,"location_id":1}`)
	rec := doRequest(t, router, http.MethodPost, "/v1/checkin", signToken(t, "host"), body)

	if rec.Code != http.StatusOK {
		t.Fatalf("Batches report per guest, expected 200, got %d", rec.Code)
	}
}

func TestAdminEndpoints_RequireSecurityRole(t *testing.T) {
	visit := &domain.Visit{ID: 5, GuestID: 1, HostID: 10, LocationID: 1}
	router := newRouter(&stubCheckin{}, &stubVisits{visit: visit}, &stubGuests{})

	rec := doRequest(t, router, http.MethodGet, "/v1/admin/visits/5", signToken(t, "host"), nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("Expected 403 for host role, got %d", rec.Code)
	}

	rec = doRequest(t, router, http.MethodGet, "/v1/admin/visits/5", signToken(t, "security"), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200 for security role, got %d", rec.Code)
	}

	var got domain.Visit
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil || got.ID != 5 {
		t.Fatalf("Unexpected visit body: %s", rec.Body.String())
	}
}

func TestGetVisit_NotFound(t *testing.T) {
	router := newRouter(&stubCheckin{}, &stubVisits{}, &stubGuests{})

	rec := doRequest(t, router, http.MethodGet, "/v1/admin/visits/99", signToken(t, "admin"), nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("Expected 404, got %d", rec.Code)
	}
}

func TestListGuestVisits(t *testing.T) {
	visit := &domain.Visit{ID: 5, GuestID: 1, HostID: 10, LocationID: 1}
	guest := &domain.Guest{ID: 1, Email: "a@example.com", Name: "A"}
	router := newRouter(&stubCheckin{}, &stubVisits{visit: visit}, &stubGuests{guest: guest})

	rec := doRequest(t, router, http.MethodGet, "/v1/admin/visits?email=a@example.com", signToken(t, "security"), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var visits []domain.Visit
	if err := json.Unmarshal(rec.Body.Bytes(), &visits); err != nil || len(visits) != 1 {
		t.Fatalf("Expected one visit, got %s", rec.Body.String())
	}

	rec = doRequest(t, router, http.MethodGet, "/v1/admin/visits", signToken(t, "security"), nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400 without email, got %d", rec.Code)
	}

	rec = doRequest(t, router, http.MethodGet, "/v1/admin/visits?email=missing@example.com", signToken(t, "security"), nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("Expected 404 for unknown guest, got %d", rec.Code)
	}
}
