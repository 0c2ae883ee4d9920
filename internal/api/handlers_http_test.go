package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/foodbridge/donation-service/internal/app"
	"github.com/foodbridge/donation-service/internal/domain"
	"github.com/foodbridge/donation-service/internal/store"
)

type volunteerRepoStub struct {
	store.Repository

	volunteerID uuid.UUID
	acceptErr   error
	rejectErr   error

	acceptedDonation *domain.Donation
}

func (s *volunteerRepoStub) FindDonorByAuthSubject(ctx context.Context, subject string) (*domain.DonorProfile, error) {
	return nil, store.ErrDonorNotFound
}

func (s *volunteerRepoStub) FindVolunteerByAuthSubject(ctx context.Context, subject string) (*domain.VolunteerProfile, error) {
	return &domain.VolunteerProfile{ID: s.volunteerID, Name: "Bisi"}, nil
}

func (s *volunteerRepoStub) MarkDonationAccepted(ctx context.Context, donationID, volunteerID uuid.UUID, acceptedAt time.Time) (*domain.Donation, error) {
	if s.acceptErr != nil {
		return nil, s.acceptErr
	}
	d := *s.acceptedDonation
	d.Status = domain.StatusAccepted
	d.VolunteerID = &volunteerID
	d.AcceptedAt = &acceptedAt
	return &d, nil
}

func (s *volunteerRepoStub) MarkDonationRejected(ctx context.Context, donationID uuid.UUID, rejectedAt time.Time) error {
	return s.rejectErr
}

func (s *volunteerRepoStub) FindDonationByID(ctx context.Context, donationID uuid.UUID) (*domain.Donation, error) {
	return &domain.Donation{ID: donationID, Status: domain.StatusRejected}, nil
}

func (s *volunteerRepoStub) FindDonorByID(ctx context.Context, donorID uuid.UUID) (*domain.DonorProfile, error) {
	return &domain.DonorProfile{ID: donorID, Name: "Corner Shop"}, nil
}

func (s *volunteerRepoStub) CreateAcceptedOrder(ctx context.Context, order *domain.AcceptedOrder) error {
	return nil
}

func (s *volunteerRepoStub) IncrementVolunteerAcceptedCount(ctx context.Context, volunteerID uuid.UUID) error {
	return nil
}

type exhaustedLimiterStub struct{}

func (l *exhaustedLimiterStub) ConsumeRateLimit(ctx context.Context, scope, subject string, limit int, window time.Duration) (int, int, error) {
	return limit + 1, 30, nil
}

// volunteerTestRouter mounts the accept/reject routes behind a middleware that
// injects a verified subject, standing in for the JWT layer.
func volunteerTestRouter(h *DonationHandlers) http.Handler {
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			ctx := context.WithValue(req.Context(), authSubjectKey, "user_vol")
			next.ServeHTTP(w, req.WithContext(ctx))
		})
	})
	r.Post("/volunteer/requests/{id}/accept", h.AcceptRequestHandler)
	r.Post("/volunteer/requests/{id}/reject", h.RejectRequestHandler)
	return r
}

func newVolunteerHandlers(repo store.Repository, limiter app.AcceptRateLimiter, limit int) *DonationHandlers {
	svc := app.NewService(repo, nil, nil, limiter, limit)
	return NewDonationHandlers(svc, app.NewFeedHub(repo), app.NewRouteService(nil), nil)
}

func TestAcceptRequestHandler_StatusMapping(t *testing.T) {
	donation := &domain.Donation{
		ID:        uuid.New(),
		DonorID:   uuid.New(),
		Kind:      domain.KindFood,
		Status:    domain.StatusPending,
		CreatedAt: time.Now().UTC(),
	}

	tests := []struct {
		name       string
		acceptErr  error
		limiter    app.AcceptRateLimiter
		limit      int
		wantStatus int
	}{
		{name: "accepted", wantStatus: http.StatusOK},
		{name: "unknown donation", acceptErr: store.ErrDonationNotFound, wantStatus: http.StatusNotFound},
		{name: "already taken", acceptErr: store.ErrDonationNotPending, wantStatus: http.StatusConflict},
		{name: "rate limited", limiter: &exhaustedLimiterStub{}, limit: 10, wantStatus: http.StatusTooManyRequests},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &volunteerRepoStub{
				volunteerID:      uuid.New(),
				acceptErr:        tt.acceptErr,
				acceptedDonation: donation,
			}
			router := volunteerTestRouter(newVolunteerHandlers(repo, tt.limiter, tt.limit))

			req := httptest.NewRequest("POST", "/volunteer/requests/"+donation.ID.String()+"/accept", nil)
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("expected status %d, got %d (body %q)", tt.wantStatus, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestAcceptRequestHandler_RejectsMalformedID(t *testing.T) {
	repo := &volunteerRepoStub{volunteerID: uuid.New()}
	router := volunteerTestRouter(newVolunteerHandlers(repo, nil, 0))

	req := httptest.NewRequest("POST", "/volunteer/requests/not-a-uuid/accept", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed id, got %d", rec.Code)
	}
}

func TestRejectRequestHandler_StatusMapping(t *testing.T) {
	tests := []struct {
		name       string
		rejectErr  error
		wantStatus int
	}{
		{name: "rejected", wantStatus: http.StatusOK},
		{name: "unknown donation", rejectErr: store.ErrDonationNotFound, wantStatus: http.StatusNotFound},
		{name: "already taken", rejectErr: store.ErrDonationNotPending, wantStatus: http.StatusConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &volunteerRepoStub{
				volunteerID: uuid.New(),
				rejectErr:   tt.rejectErr,
			}
			router := volunteerTestRouter(newVolunteerHandlers(repo, nil, 0))

			req := httptest.NewRequest("POST", "/volunteer/requests/"+uuid.NewString()+"/reject", nil)
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("expected status %d, got %d (body %q)", tt.wantStatus, rec.Code, rec.Body.String())
			}
		})
	}
}
