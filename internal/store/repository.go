/**
 * @description
 * This file defines the `Repository` interface, which specifies the contract
 * for all data access operations required by the donation-service. Defining an
 * interface decouples the business logic from the PostgreSQL implementation
 * and lets tests substitute stub repositories.
 *
 * @dependencies
 * - context, time: Standard Go libraries.
 * - github.com/google/uuid: For UUID handling.
 * - internal/domain: For the service's domain models.
 */

package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/foodbridge/donation-service/internal/domain"
)

// Repository defines the set of methods for interacting with the database.
type Repository interface {
	// Profile methods
	FindDonorByAuthSubject(ctx context.Context, subject string) (*domain.DonorProfile, error)
	FindVolunteerByAuthSubject(ctx context.Context, subject string) (*domain.VolunteerProfile, error)
	FindDonorByID(ctx context.Context, donorID uuid.UUID) (*domain.DonorProfile, error)
	IncrementVolunteerAcceptedCount(ctx context.Context, volunteerID uuid.UUID) error

	// Donation methods
	CreateDonation(ctx context.Context, d *domain.Donation) error
	FindDonationByID(ctx context.Context, donationID uuid.UUID) (*domain.Donation, error)
	ListPendingFoodDonations(ctx context.Context) ([]domain.Donation, error)
	ListDonationsByDonor(ctx context.Context, donorID uuid.UUID) ([]domain.Donation, error)

	// Acceptance workflow. Both transition methods are conditional on the
	// current status being 'pending' and report ErrDonationNotPending when the
	// guard fails, so a replayed or racing call cannot overwrite a terminal
	// status.
	MarkDonationAccepted(ctx context.Context, donationID, volunteerID uuid.UUID, acceptedAt time.Time) (*domain.Donation, error)
	MarkDonationRejected(ctx context.Context, donationID uuid.UUID, rejectedAt time.Time) error
	CreateAcceptedOrder(ctx context.Context, order *domain.AcceptedOrder) error
	ListAcceptedOrdersByVolunteer(ctx context.Context, volunteerID uuid.UUID) ([]domain.AcceptedOrder, error)

	// Reconciliation support: accepted donations older than the grace window
	// that have no matching accepted_orders row.
	ListAcceptedDonationsMissingOrders(ctx context.Context, olderThan time.Time, limit int) ([]domain.Donation, error)

	// Admin aggregates
	GetAdminStats(ctx context.Context) (*domain.AdminStats, error)
}
