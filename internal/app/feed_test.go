package app

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/foodbridge/donation-service/internal/domain"
	"github.com/foodbridge/donation-service/internal/store"
)

type feedRepoStub struct {
	store.Repository

	pending []domain.Donation
	err     error
	calls   int
}

func (s *feedRepoStub) ListPendingFoodDonations(ctx context.Context) ([]domain.Donation, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.pending, nil
}

func pendingSet(n int) []domain.Donation {
	out := make([]domain.Donation, 0, n)
	for i := 0; i < n; i++ {
		items := "Rice"
		out = append(out, domain.Donation{
			ID:        uuid.New(),
			Kind:      domain.KindFood,
			FoodItems: &items,
			Status:    domain.StatusPending,
			CreatedAt: time.Now().UTC(),
		})
	}
	return out
}

func TestFeedHub_RefreshReplacesSnapshotWholesale(t *testing.T) {
	repo := &feedRepoStub{pending: pendingSet(3)}
	hub := NewFeedHub(repo)

	hub.Refresh(context.Background())
	if got := hub.Snapshot(); len(got) != 3 {
		t.Fatalf("expected 3 pending donations, got %d", len(got))
	}

	repo.pending = pendingSet(1)
	hub.Refresh(context.Background())
	if got := hub.Snapshot(); len(got) != 1 {
		t.Fatalf("expected snapshot replaced with 1 donation, got %d", len(got))
	}
}

func TestFeedHub_RefreshFailureKeepsLastKnownSet(t *testing.T) {
	repo := &feedRepoStub{pending: pendingSet(2)}
	hub := NewFeedHub(repo)
	hub.Refresh(context.Background())

	repo.err = errors.New("query timeout")
	hub.Refresh(context.Background())

	if got := hub.Snapshot(); len(got) != 2 {
		t.Fatalf("expected last-known snapshot to survive a failed refresh, got %d", len(got))
	}
}

func TestFeedHub_SubscribeSeedsAndReceivesUpdates(t *testing.T) {
	repo := &feedRepoStub{pending: pendingSet(2)}
	hub := NewFeedHub(repo)
	hub.Refresh(context.Background())

	updates, cancel := hub.Subscribe()
	defer cancel()

	select {
	case seed := <-updates:
		if len(seed) != 2 {
			t.Fatalf("expected seeded snapshot of 2, got %d", len(seed))
		}
	case <-time.After(time.Second):
		t.Fatal("expected immediate seed snapshot")
	}

	repo.pending = pendingSet(5)
	hub.Refresh(context.Background())

	select {
	case next := <-updates:
		if len(next) != 5 {
			t.Fatalf("expected refreshed snapshot of 5, got %d", len(next))
		}
	case <-time.After(time.Second):
		t.Fatal("expected refreshed snapshot delivery")
	}
}

func TestFeedHub_SlowSubscriberGetsNewestSnapshot(t *testing.T) {
	repo := &feedRepoStub{pending: pendingSet(1)}
	hub := NewFeedHub(repo)
	hub.Refresh(context.Background())

	updates, cancel := hub.Subscribe()
	defer cancel()

	// Never drain the seed; push two refreshes so the queued snapshot must be
	// displaced by the newest one.
	repo.pending = pendingSet(2)
	hub.Refresh(context.Background())
	repo.pending = pendingSet(4)
	hub.Refresh(context.Background())

	select {
	case got := <-updates:
		if len(got) != 4 {
			t.Fatalf("expected the newest snapshot (4), got %d", len(got))
		}
	case <-time.After(time.Second):
		t.Fatal("expected a queued snapshot")
	}
}

func TestFeedHub_CancelRemovesSubscriber(t *testing.T) {
	hub := NewFeedHub(&feedRepoStub{})

	_, cancel := hub.Subscribe()
	if hub.SubscriberCount() != 1 {
		t.Fatalf("expected 1 subscriber, got %d", hub.SubscriberCount())
	}

	cancel()
	cancel() // idempotent
	if hub.SubscriberCount() != 0 {
		t.Fatalf("expected 0 subscribers after cancel, got %d", hub.SubscriberCount())
	}
}

func TestFeedHub_RefreshDuringSubscriberChurnDoesNotPanic(t *testing.T) {
	repo := &feedRepoStub{pending: pendingSet(2)}
	hub := NewFeedHub(repo)
	hub.Refresh(context.Background())

	done := make(chan struct{})
	var wg sync.WaitGroup

	// Refreshers stand in for the broker consumer goroutine; subscribers churn
	// the way disconnecting stream clients do. A send racing a cancel must not
	// hit a closed channel.
	for i := 0; i < 4; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-done:
					return
				default:
					hub.Refresh(context.Background())
				}
			}
		}()
		go func() {
			defer wg.Done()
			for {
				select {
				case <-done:
					return
				default:
					updates, cancel := hub.Subscribe()
					select {
					case <-updates:
					default:
					}
					cancel()
				}
			}
		}()
	}

	time.Sleep(100 * time.Millisecond)
	close(done)
	wg.Wait()

	if hub.SubscriberCount() != 0 {
		t.Fatalf("expected all subscribers unregistered, got %d", hub.SubscriberCount())
	}
}

func TestFeedHub_HandleEventAlwaysAcks(t *testing.T) {
	repo := &feedRepoStub{pending: pendingSet(1)}
	hub := NewFeedHub(repo)

	if !hub.HandleEvent([]byte("{not json")) {
		t.Fatal("undecodable events must still be acked")
	}
	if repo.calls != 0 {
		t.Fatal("undecodable events must not trigger a refresh")
	}

	event, _ := json.Marshal(domain.DonationEvent{
		EventID:    uuid.NewString(),
		EventType:  domain.EventDonationCreated,
		DonationID: uuid.New(),
	})
	if !hub.HandleEvent(event) {
		t.Fatal("valid events must be acked")
	}
	if repo.calls != 1 {
		t.Fatal("valid events must trigger a snapshot refresh")
	}

	repo.err = errors.New("db down")
	if !hub.HandleEvent(event) {
		t.Fatal("events must be acked even when the refresh fails")
	}
}

func TestFeedHub_BindingsCoverAllLifecycleEvents(t *testing.T) {
	hub := NewFeedHub(&feedRepoStub{})
	bindings := hub.Bindings()

	for _, key := range []string{domain.EventDonationCreated, domain.EventDonationAccepted, domain.EventDonationRejected} {
		if _, ok := bindings[key]; !ok {
			t.Fatalf("expected binding for %q", key)
		}
	}
}
