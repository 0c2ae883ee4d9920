/**
 * @description
 * This file contains the core business logic for the donation-service. The
 * `Service` struct orchestrates donation lifecycle operations, coordinating
 * between the database repository, the reverse-geocoding client, and the
 * message broker.
 *
 * Key features:
 * - Implements the acceptance workflow: three sequential writes (status
 *   transition, denormalized order copy, volunteer counter) with no
 *   cross-write transaction; a failure aborts the remaining steps and is
 *   never compensated.
 * - Resolves per-request sessions from the verified token subject.
 * - Publishes donation lifecycle events to RabbitMQ so feed consumers can
 *   refresh.
 *
 * @dependencies
 * - context, errors, fmt, log, time: Standard Go libraries.
 * - github.com/google/uuid: For UUID generation.
 * - internal/domain, internal/store: For domain models and data access.
 * - pkg/rabbitmq: For event publication.
 */

package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/foodbridge/donation-service/internal/domain"
	"github.com/foodbridge/donation-service/internal/store"
	"github.com/foodbridge/donation-service/pkg/rabbitmq"
)

// Placeholder strings written into the denormalized order when donation or
// donor fields cannot be resolved at acceptance time.
const (
	UnknownDonorName   = "Unknown Donor"
	UnknownFoodItems   = "Unspecified items"
	DefaultDescription = "No description provided"
)

var (
	ErrNotAuthorized     = errors.New("subject has no profile for the required role")
	ErrInvalidDonation   = errors.New("invalid donation payload")
	ErrAcceptRateLimited = errors.New("accept rate limit exceeded")
)

// ReverseGeocoder resolves coordinates to a display address. Implemented by
// pkg/geocodeclient; lookups are best-effort.
type ReverseGeocoder interface {
	ReverseGeocode(ctx context.Context, lat, lng float64) (string, error)
}

// AcceptRateLimiter bounds how often one volunteer may attempt acceptance.
type AcceptRateLimiter interface {
	ConsumeRateLimit(ctx context.Context, scope, subject string, limit int, window time.Duration) (count int, retryAfterSeconds int, err error)
}

// Service provides the core business logic for donations.
type Service struct {
	repo          store.Repository
	eventProducer rabbitmq.Publisher
	geocoder      ReverseGeocoder
	rateLimiter   AcceptRateLimiter

	acceptRateLimitPerMinute int
}

// NewService creates a new donation service instance. geocoder and limiter
// may be nil; the corresponding behavior degrades gracefully.
func NewService(repo store.Repository, producer rabbitmq.Publisher, geocoder ReverseGeocoder, limiter AcceptRateLimiter, acceptRateLimitPerMinute int) *Service {
	return &Service{
		repo:                     repo,
		eventProducer:            producer,
		geocoder:                 geocoder,
		rateLimiter:              limiter,
		acceptRateLimitPerMinute: acceptRateLimitPerMinute,
	}
}

// ResolveSession turns a verified token subject into an explicit session with
// a role. Donor profiles are checked before volunteer profiles, matching the
// onboarding order.
func (s *Service) ResolveSession(ctx context.Context, subject string) (*domain.Session, error) {
	if donor, err := s.repo.FindDonorByAuthSubject(ctx, subject); err == nil {
		return &domain.Session{UserID: donor.ID, Subject: subject, Role: domain.RoleDonor, Name: donor.Name}, nil
	} else if !errors.Is(err, store.ErrDonorNotFound) {
		return nil, fmt.Errorf("failed to resolve donor profile: %w", err)
	}

	if vol, err := s.repo.FindVolunteerByAuthSubject(ctx, subject); err == nil {
		return &domain.Session{UserID: vol.ID, Subject: subject, Role: domain.RoleVolunteer, Name: vol.Name}, nil
	} else if !errors.Is(err, store.ErrVolunteerNotFound) {
		return nil, fmt.Errorf("failed to resolve volunteer profile: %w", err)
	}

	return nil, ErrNotAuthorized
}

// CreateDonation validates and stores a donor's new contribution, then
// publishes donation.created so live feeds refresh.
func (s *Service) CreateDonation(ctx context.Context, session *domain.Session, req domain.CreateDonationRequest) (*domain.Donation, error) {
	d := &domain.Donation{
		ID:        uuid.New(),
		DonorID:   session.UserID,
		Kind:      strings.TrimSpace(req.Kind),
		Status:    domain.StatusPending,
		CreatedAt: time.Now().UTC(),
	}

	switch d.Kind {
	case domain.KindFood:
		items := strings.TrimSpace(req.FoodItems)
		if items == "" || req.FoodWeight <= 0 {
			return nil, fmt.Errorf("%w: food donations need items and a positive weight", ErrInvalidDonation)
		}
		if req.Location == nil {
			return nil, fmt.Errorf("%w: food donations need a pickup location", ErrInvalidDonation)
		}
		d.FoodItems = &items
		weight := req.FoodWeight
		d.FoodWeight = &weight
		loc := *req.Location
		d.Location = &loc
	case domain.KindMoney:
		if req.MoneyAmount <= 0 {
			return nil, fmt.Errorf("%w: money donations need a positive amount", ErrInvalidDonation)
		}
		amount := req.MoneyAmount
		d.MoneyAmount = &amount
		// Money donations carry no pickup location.
	default:
		return nil, fmt.Errorf("%w: kind must be 'food' or 'money'", ErrInvalidDonation)
	}

	if desc := strings.TrimSpace(req.Description); desc != "" {
		d.Description = &desc
	}

	if err := s.repo.CreateDonation(ctx, d); err != nil {
		return nil, fmt.Errorf("failed to create donation: %w", err)
	}

	s.publishEvent(ctx, domain.EventDonationCreated, d)
	return d, nil
}

// PendingRequests returns the filtered, ordered feed snapshot for a volunteer.
func (s *Service) PendingRequests(ctx context.Context, q domain.FeedQuery) ([]domain.Donation, error) {
	snapshot, err := s.repo.ListPendingFoodDonations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending donations: %w", err)
	}
	return RankDonations(snapshot, q), nil
}

// AcceptRequest performs the acceptance workflow for one pending donation.
//
// The three writes run in program order, each awaited before the next starts.
// There is no cross-write transaction: a failure at step 2 or 3 leaves the
// earlier effects in place and is surfaced to the caller after being logged.
// The reconciliation job repairs a missing step-2 copy later; step 3 is only
// reached when step 2 succeeded, so the counter stays monotonic.
func (s *Service) AcceptRequest(ctx context.Context, volunteerID, donationID uuid.UUID) (*domain.AcceptedOrder, error) {
	if s.rateLimiter != nil && s.acceptRateLimitPerMinute > 0 {
		count, retryAfter, err := s.rateLimiter.ConsumeRateLimit(ctx, "donation_accept", volunteerID.String(), s.acceptRateLimitPerMinute, time.Minute)
		if err != nil {
			// Rate limiting is advisory; a limiter outage must not block acceptance.
			log.Printf("level=warn component=app op=accept msg=\"rate limiter unavailable\" volunteer_id=%s err=%v", volunteerID, err)
		} else if count > s.acceptRateLimitPerMinute {
			log.Printf("level=warn component=app op=accept outcome=rate_limited volunteer_id=%s retry_after=%d", volunteerID, retryAfter)
			return nil, ErrAcceptRateLimited
		}
	}

	acceptedAt := time.Now().UTC()

	// Step 1: conditional status transition. First writer wins; a concurrent
	// or replayed accept observes ErrDonationNotPending here and stops.
	donation, err := s.repo.MarkDonationAccepted(ctx, donationID, volunteerID, acceptedAt)
	if err != nil {
		return nil, err
	}
	s.publishEvent(ctx, domain.EventDonationAccepted, donation)

	// Step 2: denormalized copy with best-effort donor enrichment.
	order := s.buildAcceptedOrder(ctx, donation, volunteerID, acceptedAt)
	if err := s.repo.CreateAcceptedOrder(ctx, order); err != nil {
		log.Printf("level=error component=app op=accept msg=\"order copy failed after status transition\" donation_id=%s volunteer_id=%s err=%v", donationID, volunteerID, err)
		return nil, fmt.Errorf("donation accepted but order copy failed: %w", err)
	}

	// Step 3: counter increment, exactly once per successful acceptance.
	if err := s.repo.IncrementVolunteerAcceptedCount(ctx, volunteerID); err != nil {
		log.Printf("level=error component=app op=accept msg=\"accepted count increment failed\" donation_id=%s volunteer_id=%s err=%v", donationID, volunteerID, err)
		return nil, fmt.Errorf("donation accepted but counter update failed: %w", err)
	}

	log.Printf("level=info component=app op=accept outcome=accepted donation_id=%s volunteer_id=%s", donationID, volunteerID)
	return order, nil
}

// buildAcceptedOrder assembles the snapshot written into the volunteer's
// personal order list. Donor fields resolve best-effort; every absent value
// falls back to a placeholder rather than failing the workflow.
func (s *Service) buildAcceptedOrder(ctx context.Context, donation *domain.Donation, volunteerID uuid.UUID, acceptedAt time.Time) *domain.AcceptedOrder {
	order := &domain.AcceptedOrder{
		DonationID:  donation.ID,
		VolunteerID: volunteerID,
		DonorName:   UnknownDonorName,
		FoodItems:   UnknownFoodItems,
		Description: DefaultDescription,
		FoodWeight:  donation.FoodWeight,
		Location:    donation.Location,
		Status:      domain.StatusAccepted,
		CreatedAt:   donation.CreatedAt,
		AcceptedAt:  acceptedAt,
	}
	if donation.FoodItems != nil && strings.TrimSpace(*donation.FoodItems) != "" {
		order.FoodItems = *donation.FoodItems
	}
	if donation.Description != nil && strings.TrimSpace(*donation.Description) != "" {
		order.Description = *donation.Description
	}

	donor, err := s.repo.FindDonorByID(ctx, donation.DonorID)
	if err != nil {
		log.Printf("level=warn component=app op=accept msg=\"donor lookup failed; using placeholders\" donation_id=%s donor_id=%s err=%v", donation.ID, donation.DonorID, err)
	} else {
		if strings.TrimSpace(donor.Name) != "" {
			order.DonorName = donor.Name
		}
		order.DonorContact = donor.Contact
		order.DonorEmail = donor.Email
		order.DonorAddress = donor.Address
	}

	if s.geocoder != nil && donation.Location != nil {
		if address, err := s.geocoder.ReverseGeocode(ctx, donation.Location.Lat, donation.Location.Lng); err != nil {
			log.Printf("level=warn component=app op=accept msg=\"reverse geocode failed; leaving pickup address empty\" donation_id=%s err=%v", donation.ID, err)
		} else {
			order.PickupAddress = &address
		}
	}
	return order
}

// RejectRequest transitions a pending donation to rejected. No denormalized
// copy is written and no counter changes.
func (s *Service) RejectRequest(ctx context.Context, donationID uuid.UUID) error {
	rejectedAt := time.Now().UTC()
	if err := s.repo.MarkDonationRejected(ctx, donationID, rejectedAt); err != nil {
		return err
	}

	donation, err := s.repo.FindDonationByID(ctx, donationID)
	if err != nil {
		log.Printf("level=warn component=app op=reject msg=\"post-reject lookup failed; event carries id only\" donation_id=%s err=%v", donationID, err)
		donation = &domain.Donation{ID: donationID, Status: domain.StatusRejected}
	}
	s.publishEvent(ctx, domain.EventDonationRejected, donation)

	log.Printf("level=info component=app op=reject outcome=rejected donation_id=%s", donationID)
	return nil
}

// AcceptedOrders returns the volunteer's personal order list, filtered and
// ordered with the same parameters as the pending feed (distance ordering is
// not offered here, matching the dashboard).
func (s *Service) AcceptedOrders(ctx context.Context, volunteerID uuid.UUID, q domain.FeedQuery) ([]domain.AcceptedOrder, error) {
	orders, err := s.repo.ListAcceptedOrdersByVolunteer(ctx, volunteerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list accepted orders: %w", err)
	}
	return rankAcceptedOrders(orders, q), nil
}

// rankAcceptedOrders filters by the same three fields as the pending feed.
// The repository returns orders newest-accepted first, so 'oldest' is a
// reversal of that order.
func rankAcceptedOrders(orders []domain.AcceptedOrder, q domain.FeedQuery) []domain.AcceptedOrder {
	term := strings.ToLower(strings.TrimSpace(q.Search))
	out := make([]domain.AcceptedOrder, 0, len(orders))
	for _, o := range orders {
		if term == "" || orderMatches(o, term) {
			out = append(out, o)
		}
	}
	if q.SortBy == domain.SortOldest {
		for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
	}
	return out
}

func orderMatches(o domain.AcceptedOrder, lowerTerm string) bool {
	return strings.Contains(strings.ToLower(o.FoodItems), lowerTerm) ||
		strings.Contains(strings.ToLower(o.Description), lowerTerm) ||
		strings.Contains(strings.ToLower(o.DonorName), lowerTerm)
}

// DonorDonations returns a donor's own donations, newest first.
func (s *Service) DonorDonations(ctx context.Context, donorID uuid.UUID) ([]domain.Donation, error) {
	donations, err := s.repo.ListDonationsByDonor(ctx, donorID)
	if err != nil {
		return nil, fmt.Errorf("failed to list donor donations: %w", err)
	}
	return donations, nil
}

// AdminStats returns the aggregated platform counters.
func (s *Service) AdminStats(ctx context.Context) (*domain.AdminStats, error) {
	return s.repo.GetAdminStats(ctx)
}

// publishEvent emits a donation lifecycle event. Publish failures are logged
// and absorbed: event delivery drives feed freshness, not correctness.
func (s *Service) publishEvent(ctx context.Context, eventType string, d *domain.Donation) {
	if s.eventProducer == nil {
		return
	}
	event := domain.DonationEvent{
		EventID:     uuid.NewString(),
		EventType:   eventType,
		DonationID:  d.ID,
		DonorID:     d.DonorID,
		VolunteerID: d.VolunteerID,
		Kind:        d.Kind,
		Status:      d.Status,
		OccurredAt:  time.Now().UTC(),
	}
	if err := s.eventProducer.PublishDonationEvent(ctx, event); err != nil {
		log.Printf("level=warn component=app msg=\"donation event publish failed\" event_type=%s donation_id=%s err=%v", eventType, d.ID, err)
	}
}
