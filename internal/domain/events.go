package domain

import (
	"time"

	"github.com/google/uuid"
)

// Donation event routing keys published to the donation_events exchange.
const (
	EventDonationCreated  = "donation.created"
	EventDonationAccepted = "donation.accepted"
	EventDonationRejected = "donation.rejected"
)

// DonationEvent is the message emitted on every donation lifecycle write. Feed
// consumers treat any of these as an invalidation signal and re-query the
// pending set; the payload carries enough context for logging and metrics but
// is not used for incremental diffing.
type DonationEvent struct {
	EventID     string     `json:"event_id"`
	EventType   string     `json:"event_type"`
	DonationID  uuid.UUID  `json:"donation_id"`
	DonorID     uuid.UUID  `json:"donor_id"`
	VolunteerID *uuid.UUID `json:"volunteer_id,omitempty"`
	Kind        string     `json:"kind"`
	Status      string     `json:"status"`
	OccurredAt  time.Time  `json:"occurred_at"`
}
