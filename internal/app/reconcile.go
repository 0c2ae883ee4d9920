/**
 * @description
 * Reconciliation for the acceptance workflow's known partial-failure mode.
 * The three acceptance writes are not atomic, so a crash or error between the
 * status transition and the denormalized copy leaves an accepted donation
 * with no accepted_orders row. That state is observable and recoverable: this
 * job finds such donations past a grace window and re-inserts the copy.
 *
 * The volunteer counter is deliberately NOT touched here. It increments only
 * on the original accept path, which keeps it monotonic even when the repair
 * runs more than once.
 */

package app

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/foodbridge/donation-service/internal/domain"
	"github.com/foodbridge/donation-service/internal/store"
)

const (
	defaultReconcileLimit = 100
	maxReconcileLimit     = 500
)

// Reconciler repairs accepted donations whose denormalized order copy is
// missing.
type Reconciler struct {
	repo        store.Repository
	geocoder    ReverseGeocoder
	graceWindow time.Duration
	limit       int
}

// NewReconciler creates a reconciler. The grace window keeps the job from
// racing an acceptance that is still between step 1 and step 2.
func NewReconciler(repo store.Repository, geocoder ReverseGeocoder, graceWindow time.Duration, limit int) *Reconciler {
	if graceWindow <= 0 {
		graceWindow = 2 * time.Minute
	}
	if limit <= 0 {
		limit = defaultReconcileLimit
	}
	if limit > maxReconcileLimit {
		limit = maxReconcileLimit
	}
	return &Reconciler{repo: repo, geocoder: geocoder, graceWindow: graceWindow, limit: limit}
}

// Run performs one reconciliation pass and returns the number of repaired
// orders. Individual repair failures are logged and skipped; the next pass
// retries them.
func (r *Reconciler) Run(ctx context.Context) (int, error) {
	cutoff := time.Now().UTC().Add(-r.graceWindow)
	orphans, err := r.repo.ListAcceptedDonationsMissingOrders(ctx, cutoff, r.limit)
	if err != nil {
		return 0, err
	}
	if len(orphans) == 0 {
		return 0, nil
	}

	log.Printf("level=info component=reconcile msg=\"found accepted donations missing order copies\" count=%d", len(orphans))

	repaired := 0
	for _, donation := range orphans {
		if donation.VolunteerID == nil || donation.AcceptedAt == nil {
			log.Printf("level=warn component=reconcile msg=\"accepted donation missing attribution; skipping\" donation_id=%s", donation.ID)
			continue
		}
		order := r.rebuildOrder(ctx, donation)
		if err := r.repo.CreateAcceptedOrder(ctx, order); err != nil {
			if errors.Is(err, store.ErrOrderAlreadyExists) {
				// A concurrent accept or prior pass got there first.
				continue
			}
			log.Printf("level=warn component=reconcile msg=\"order repair failed\" donation_id=%s err=%v", donation.ID, err)
			continue
		}
		repaired++
		log.Printf("level=info component=reconcile msg=\"order copy repaired\" donation_id=%s volunteer_id=%s", donation.ID, *donation.VolunteerID)
	}
	return repaired, nil
}

// rebuildOrder re-resolves the denormalized snapshot the same way the accept
// path does. The donor fields reflect the donor profile at repair time, which
// is acceptable for a one-way snapshot.
func (r *Reconciler) rebuildOrder(ctx context.Context, donation domain.Donation) *domain.AcceptedOrder {
	order := &domain.AcceptedOrder{
		DonationID:  donation.ID,
		VolunteerID: *donation.VolunteerID,
		DonorName:   UnknownDonorName,
		FoodItems:   UnknownFoodItems,
		Description: DefaultDescription,
		FoodWeight:  donation.FoodWeight,
		Location:    donation.Location,
		Status:      domain.StatusAccepted,
		CreatedAt:   donation.CreatedAt,
		AcceptedAt:  *donation.AcceptedAt,
	}
	if donation.FoodItems != nil && *donation.FoodItems != "" {
		order.FoodItems = *donation.FoodItems
	}
	if donation.Description != nil && *donation.Description != "" {
		order.Description = *donation.Description
	}

	donor, err := r.repo.FindDonorByID(ctx, donation.DonorID)
	if err != nil {
		log.Printf("level=warn component=reconcile msg=\"donor lookup failed; using placeholders\" donation_id=%s err=%v", donation.ID, err)
	} else {
		if donor.Name != "" {
			order.DonorName = donor.Name
		}
		order.DonorContact = donor.Contact
		order.DonorEmail = donor.Email
		order.DonorAddress = donor.Address
	}

	if r.geocoder != nil && donation.Location != nil {
		if address, err := r.geocoder.ReverseGeocode(ctx, donation.Location.Lat, donation.Location.Lng); err == nil {
			order.PickupAddress = &address
		}
	}
	return order
}
