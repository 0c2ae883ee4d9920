package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/foodbridge/donation-service/internal/domain"
	"github.com/foodbridge/donation-service/internal/store"
)

type reconcileRepoStub struct {
	store.Repository

	orphans   []domain.Donation
	listErr   error
	createErr error

	listedBefore   time.Time
	listedLimit    int
	createdOrders  []*domain.AcceptedOrder
	counterTouched bool
}

func (s *reconcileRepoStub) ListAcceptedDonationsMissingOrders(ctx context.Context, olderThan time.Time, limit int) ([]domain.Donation, error) {
	s.listedBefore = olderThan
	s.listedLimit = limit
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.orphans, nil
}

func (s *reconcileRepoStub) CreateAcceptedOrder(ctx context.Context, order *domain.AcceptedOrder) error {
	if s.createErr != nil {
		return s.createErr
	}
	s.createdOrders = append(s.createdOrders, order)
	return nil
}

func (s *reconcileRepoStub) FindDonorByID(ctx context.Context, donorID uuid.UUID) (*domain.DonorProfile, error) {
	return &domain.DonorProfile{ID: donorID, Name: "Repaired Donor"}, nil
}

func (s *reconcileRepoStub) IncrementVolunteerAcceptedCount(ctx context.Context, volunteerID uuid.UUID) error {
	s.counterTouched = true
	return nil
}

func orphanedAcceptedDonation() domain.Donation {
	items := "Rice"
	volID := uuid.New()
	acceptedAt := time.Now().UTC().Add(-10 * time.Minute)
	return domain.Donation{
		ID:          uuid.New(),
		DonorID:     uuid.New(),
		Kind:        domain.KindFood,
		FoodItems:   &items,
		Status:      domain.StatusAccepted,
		VolunteerID: &volID,
		CreatedAt:   time.Now().UTC().Add(-time.Hour),
		AcceptedAt:  &acceptedAt,
	}
}

func TestReconciler_RepairsMissingOrderCopies(t *testing.T) {
	repo := &reconcileRepoStub{orphans: []domain.Donation{orphanedAcceptedDonation(), orphanedAcceptedDonation()}}
	rec := NewReconciler(repo, nil, 2*time.Minute, 100)

	repaired, err := rec.Run(context.Background())
	if err != nil {
		t.Fatalf("expected reconciliation to succeed, got %v", err)
	}
	if repaired != 2 {
		t.Fatalf("expected 2 repaired orders, got %d", repaired)
	}
	if len(repo.createdOrders) != 2 {
		t.Fatalf("expected 2 order writes, got %d", len(repo.createdOrders))
	}
	if repo.createdOrders[0].DonorName != "Repaired Donor" {
		t.Fatalf("expected donor enrichment during repair, got %q", repo.createdOrders[0].DonorName)
	}
	if repo.counterTouched {
		t.Fatal("reconciliation must never touch the volunteer counter")
	}
	if repo.listedLimit != 100 {
		t.Fatalf("expected configured batch limit, got %d", repo.listedLimit)
	}
	if time.Since(repo.listedBefore) < 2*time.Minute-time.Second {
		t.Fatal("expected the grace window applied to the cutoff")
	}
}

func TestReconciler_SkipsDonationsMissingAttribution(t *testing.T) {
	broken := orphanedAcceptedDonation()
	broken.VolunteerID = nil

	repo := &reconcileRepoStub{orphans: []domain.Donation{broken}}
	rec := NewReconciler(repo, nil, 0, 0)

	repaired, err := rec.Run(context.Background())
	if err != nil {
		t.Fatalf("expected run to succeed, got %v", err)
	}
	if repaired != 0 || len(repo.createdOrders) != 0 {
		t.Fatal("expected unattributable donations to be skipped")
	}
}

func TestReconciler_ExistingOrderIsNotAnError(t *testing.T) {
	repo := &reconcileRepoStub{
		orphans:   []domain.Donation{orphanedAcceptedDonation()},
		createErr: store.ErrOrderAlreadyExists,
	}
	rec := NewReconciler(repo, nil, 0, 0)

	repaired, err := rec.Run(context.Background())
	if err != nil {
		t.Fatalf("expected run to succeed, got %v", err)
	}
	if repaired != 0 {
		t.Fatalf("expected 0 repairs when the copy already exists, got %d", repaired)
	}
}

func TestReconciler_ListFailureSurfaces(t *testing.T) {
	repo := &reconcileRepoStub{listErr: errors.New("query timeout")}
	rec := NewReconciler(repo, nil, 0, 0)

	if _, err := rec.Run(context.Background()); err == nil {
		t.Fatal("expected list failure to surface")
	}
}

func TestNewReconciler_ClampsLimit(t *testing.T) {
	repo := &reconcileRepoStub{}
	rec := NewReconciler(repo, nil, 0, 10000)

	if _, err := rec.Run(context.Background()); err != nil {
		t.Fatalf("expected empty run to succeed, got %v", err)
	}
	if repo.listedLimit != maxReconcileLimit {
		t.Fatalf("expected limit clamped to %d, got %d", maxReconcileLimit, repo.listedLimit)
	}
}
