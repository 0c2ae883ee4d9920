/**
 * @description
 * This file defines the core domain models for the donation-service. These
 * structs represent the main entities and data transfer objects (DTOs) used
 * throughout the service's business logic, database interactions, and API
 * layers.
 *
 * @notes
 * - Coordinates are kept as a nullable pair (`*Coordinates`): money donations
 *   carry no pickup location, and food donations created before geolocation
 *   succeeded may lack one too. Code that ranks or routes must tolerate nil.
 * - AcceptedOrder is a one-way snapshot taken at acceptance time. It is never
 *   synchronized with later edits to the originating donation.
 */

package domain

import (
	"time"

	"github.com/google/uuid"
)

// Donation lifecycle statuses. A donation transitions out of pending at most
// once; the store enforces this with conditional updates.
const (
	StatusPending  = "pending"
	StatusAccepted = "accepted"
	StatusRejected = "rejected"
)

// Donation kinds.
const (
	KindFood  = "food"
	KindMoney = "money"
)

// Coordinates is a WGS84 latitude/longitude pair.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Donation represents a single offered contribution awaiting or having
// received volunteer action. Maps to the `donations` table.
type Donation struct {
	ID          uuid.UUID    `json:"id"`
	DonorID     uuid.UUID    `json:"donor_id"`
	DonorName   *string      `json:"donor_name,omitempty"`
	Kind        string       `json:"kind"` // 'food' or 'money'
	FoodItems   *string      `json:"food_items,omitempty"`
	Description *string      `json:"description,omitempty"`
	FoodWeight  *float64     `json:"food_weight_kg,omitempty"` // kilograms, >= 0
	MoneyAmount *int64       `json:"money_amount,omitempty"`   // smallest currency unit
	Location    *Coordinates `json:"location,omitempty"`       // nil for money donations
	Status      string       `json:"status"`
	VolunteerID *uuid.UUID   `json:"volunteer_id,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	AcceptedAt  *time.Time   `json:"accepted_at,omitempty"`
	RejectedAt  *time.Time   `json:"rejected_at,omitempty"`
}

// AcceptedOrder is the denormalized copy of a donation written into a
// volunteer's personal order list at acceptance time. Donor contact fields
// are resolved best-effort at that moment and fall back to placeholder
// strings when unavailable.
type AcceptedOrder struct {
	DonationID    uuid.UUID    `json:"donation_id"`
	VolunteerID   uuid.UUID    `json:"volunteer_id"`
	DonorName     string       `json:"donor_name"`
	DonorContact  *string      `json:"donor_contact,omitempty"`
	DonorEmail    *string      `json:"donor_email,omitempty"`
	DonorAddress  *string      `json:"donor_address,omitempty"`
	FoodItems     string       `json:"food_items"`
	Description   string       `json:"description"`
	FoodWeight    *float64     `json:"food_weight_kg,omitempty"`
	PickupAddress *string      `json:"pickup_address,omitempty"`
	Location      *Coordinates `json:"location,omitempty"`
	Status        string       `json:"status"`
	CreatedAt     time.Time    `json:"created_at"`
	AcceptedAt    time.Time    `json:"accepted_at"`
}

// DonorProfile holds the donor-side contact fields read by the volunteer flow
// to enrich accepted orders. Maps to the `donors` table.
type DonorProfile struct {
	ID          uuid.UUID `json:"id"`
	AuthSubject string    `json:"-"`
	Name        string    `json:"name"`
	Contact     *string   `json:"contact,omitempty"`
	Email       *string   `json:"email,omitempty"`
	Address     *string   `json:"address,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// VolunteerProfile holds a volunteer's identity and running accepted-order
// count. The count is monotonically incremented by the acceptance workflow
// and never decremented.
type VolunteerProfile struct {
	ID            uuid.UUID `json:"id"`
	AuthSubject   string    `json:"-"`
	Name          string    `json:"name"`
	Contact       *string   `json:"contact,omitempty"`
	Email         *string   `json:"email,omitempty"`
	AcceptedCount int64     `json:"accepted_count"`
	CreatedAt     time.Time `json:"created_at"`
}

// Roles resolved for an authenticated subject.
const (
	RoleDonor     = "donor"
	RoleVolunteer = "volunteer"
	RoleAdmin     = "admin"
)

// Session is the resolved identity for one authenticated request. It is
// constructed per request from the verified token subject and a profile
// lookup, and passed explicitly to the layers that need identity.
type Session struct {
	UserID  uuid.UUID `json:"user_id"`
	Subject string    `json:"subject"`
	Role    string    `json:"role"`
	Name    string    `json:"name"`
}

// CreateDonationRequest is the DTO for donor-initiated donation creation.
type CreateDonationRequest struct {
	Kind        string       `json:"kind"`
	FoodItems   string       `json:"food_items,omitempty"`
	Description string       `json:"description,omitempty"`
	FoodWeight  float64      `json:"food_weight_kg,omitempty"`
	MoneyAmount int64        `json:"money_amount,omitempty"`
	Location    *Coordinates `json:"location,omitempty"`
}

// FeedQuery carries the volunteer-side filter and ordering parameters applied
// to a feed snapshot. Origin is required only for distance ordering.
type FeedQuery struct {
	Search string
	SortBy string // 'newest', 'oldest' or 'distance'
	Origin *Coordinates
}

// Feed sort keys.
const (
	SortNewest   = "newest"
	SortOldest   = "oldest"
	SortDistance = "distance"
)

// AdminStats aggregates platform-wide counters for the admin dashboard.
type AdminStats struct {
	TotalDonations    int64            `json:"total_donations"`
	PendingDonations  int64            `json:"pending_donations"`
	AcceptedDonations int64            `json:"accepted_donations"`
	RejectedDonations int64            `json:"rejected_donations"`
	TotalFoodWeight   float64          `json:"total_food_weight_kg"`
	TotalMoneyAmount  int64            `json:"total_money_amount"`
	TotalDonors       int64            `json:"total_donors"`
	TotalVolunteers   int64            `json:"total_volunteers"`
	ByKind            map[string]int64 `json:"by_kind"`
	TopVolunteers     []TopVolunteer   `json:"top_volunteers"`
}

// TopVolunteer is one row of the accepted-count leaderboard.
type TopVolunteer struct {
	ID            uuid.UUID `json:"id"`
	Name          string    `json:"name"`
	AcceptedCount int64     `json:"accepted_count"`
}
