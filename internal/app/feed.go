/**
 * @description
 * Live donation feed hub. The hub keeps the latest snapshot of pending food
 * donations and fans it out to stream subscribers whenever a donation
 * lifecycle event arrives. Updates replace the entire snapshot; there is no
 * incremental diffing contract.
 */

package app

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	"github.com/foodbridge/donation-service/internal/domain"
	"github.com/foodbridge/donation-service/internal/store"
)

// feedBuffer bounds how many snapshots can queue per subscriber before the
// oldest is dropped in favor of the newest. Subscribers only ever need the
// latest full set.
const feedBuffer = 1

// FeedHub maintains the pending-donation snapshot and its subscribers.
type FeedHub struct {
	repo store.Repository

	mu          sync.RWMutex
	snapshot    []domain.Donation
	subscribers map[chan []domain.Donation]struct{}
}

// NewFeedHub creates a feed hub with an empty snapshot. Call Refresh once at
// startup to load the initial pending set.
func NewFeedHub(repo store.Repository) *FeedHub {
	return &FeedHub{
		repo:        repo,
		subscribers: make(map[chan []domain.Donation]struct{}),
	}
}

// Refresh re-queries the pending set and replaces the snapshot. On query
// failure the last-known snapshot is kept and the error is logged; feed
// consumers never see a distinct error state.
func (h *FeedHub) Refresh(ctx context.Context) {
	donations, err := h.repo.ListPendingFoodDonations(ctx)
	if err != nil {
		log.Printf("level=warn component=feed msg=\"snapshot refresh failed; keeping last-known set\" err=%v", err)
		return
	}
	if donations == nil {
		donations = []domain.Donation{}
	}

	h.mu.Lock()
	h.snapshot = donations
	subs := make([]chan []domain.Donation, 0, len(h.subscribers))
	for ch := range h.subscribers {
		subs = append(subs, ch)
	}
	h.mu.Unlock()

	for _, ch := range subs {
		// Replace any queued snapshot with the newest one instead of blocking
		// on a slow subscriber.
		select {
		case ch <- donations:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- donations:
			default:
			}
		}
	}
}

// Snapshot returns the current pending set.
func (h *FeedHub) Snapshot() []domain.Donation {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]domain.Donation, len(h.snapshot))
	copy(out, h.snapshot)
	return out
}

// Subscribe registers a stream consumer. The returned cancel function must be
// called when the consuming view goes away; the SSE handler ties it to the
// request context.
func (h *FeedHub) Subscribe() (<-chan []domain.Donation, func()) {
	ch := make(chan []domain.Donation, feedBuffer)

	h.mu.Lock()
	h.subscribers[ch] = struct{}{}
	current := h.snapshot
	h.mu.Unlock()

	// Seed the subscriber with the current set so it does not have to wait
	// for the next lifecycle event. A refresh racing the registration may
	// already have queued a newer snapshot; in that case the seed is dropped.
	if current != nil {
		select {
		case ch <- current:
		default:
		}
	}

	// Cancel only unregisters the channel; it is never closed. Refresh may
	// hold a reference taken before the delete, and a send on a closed
	// channel would panic the consumer goroutine. An unregistered channel
	// receives at most one more snapshot and is then garbage-collected; the
	// stream handler exits via its request context, not via channel close.
	cancel := func() {
		h.mu.Lock()
		delete(h.subscribers, ch)
		h.mu.Unlock()
	}
	return ch, cancel
}

// SubscriberCount reports the number of active stream subscribers.
func (h *FeedHub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}

// HandleEvent is the RabbitMQ binding handler shared by all donation routing
// keys. Any lifecycle event invalidates the snapshot. Events are always acked:
// a failed refresh keeps the last-known set, and the next event (or stream
// poll) will retry.
func (h *FeedHub) HandleEvent(body []byte) bool {
	var event domain.DonationEvent
	if err := json.Unmarshal(body, &event); err != nil {
		log.Printf("level=warn component=feed msg=\"undecodable donation event; dropping\" err=%v", err)
		return true
	}
	log.Printf("level=info component=feed msg=\"donation event received\" event_type=%s donation_id=%s", event.EventType, event.DonationID)
	h.Refresh(context.Background())
	return true
}

// Bindings returns the routing-key handler map consumed by the RabbitMQ
// consumer. Every lifecycle event maps to the same invalidate-and-refresh
// handler.
func (h *FeedHub) Bindings() map[string]func([]byte) bool {
	return map[string]func([]byte) bool{
		domain.EventDonationCreated:  h.HandleEvent,
		domain.EventDonationAccepted: h.HandleEvent,
		domain.EventDonationRejected: h.HandleEvent,
	}
}
