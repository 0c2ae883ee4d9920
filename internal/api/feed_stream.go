/**
 * @description
 * Server-sent events endpoint for the live pickup-request feed. Each event
 * carries the full ranked snapshot, so the client replaces its list wholesale
 * instead of patching it.
 */

package api

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/foodbridge/donation-service/internal/app"
	"github.com/foodbridge/donation-service/internal/domain"
)

// FeedStreamHandler streams feed snapshots over SSE. The subscription is torn
// down when the client disconnects.
func (h *DonationHandlers) FeedStreamHandler(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.resolveSession(w, r, domain.RoleVolunteer); !ok {
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		h.writeError(w, http.StatusInternalServerError, "Streaming is not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	query := feedQueryFromRequest(r)
	updates, cancel := h.feed.Subscribe()
	defer cancel()

	for {
		select {
		case <-r.Context().Done():
			return
		case snapshot := <-updates:
			ranked := app.RankDonations(snapshot, query)
			if ranked == nil {
				ranked = []domain.Donation{}
			}
			payload, err := json.Marshal(ranked)
			if err != nil {
				log.Printf("level=error component=api endpoint=feed_stream msg=\"snapshot encode failed\" err=%v", err)
				continue
			}
			if _, err := w.Write([]byte("event: feed\ndata: ")); err != nil {
				return
			}
			if _, err := w.Write(payload); err != nil {
				return
			}
			if _, err := w.Write([]byte("\n\n")); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
