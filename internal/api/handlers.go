/**
 * @description
 * This file contains the HTTP handlers for the donation-service's API
 * endpoints. Handlers are responsible for parsing incoming requests, calling
 * the appropriate methods on the application service, and writing the HTTP
 * response. They act as the bridge between the web layer and the business
 * logic layer.
 *
 * @dependencies
 * - encoding/json, log, net/http: Standard Go libraries.
 * - internal/app, internal/domain, internal/store: For service logic, models, and custom errors.
 */

package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/foodbridge/donation-service/internal/app"
	"github.com/foodbridge/donation-service/internal/domain"
	"github.com/foodbridge/donation-service/internal/store"
)

// DonationHandlers holds the application services that handlers will use.
type DonationHandlers struct {
	service *app.Service
	feed    *app.FeedHub
	routes  *app.RouteService

	adminSubjects map[string]struct{}
}

// NewDonationHandlers creates a new instance of DonationHandlers.
// adminSubjects lists the token subjects allowed to read admin aggregates.
func NewDonationHandlers(service *app.Service, feed *app.FeedHub, routes *app.RouteService, adminSubjects []string) *DonationHandlers {
	admins := make(map[string]struct{}, len(adminSubjects))
	for _, s := range adminSubjects {
		s = strings.TrimSpace(s)
		if s != "" {
			admins[s] = struct{}{}
		}
	}
	return &DonationHandlers{service: service, feed: feed, routes: routes, adminSubjects: admins}
}

func (h *DonationHandlers) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		if err := json.NewEncoder(w).Encode(body); err != nil {
			log.Printf("level=error component=api msg=\"response encode failed\" err=%v", err)
		}
	}
}

func (h *DonationHandlers) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}

// resolveSession turns the verified token subject into a session, enforcing
// the required role when one is given (empty role accepts any profile).
func (h *DonationHandlers) resolveSession(w http.ResponseWriter, r *http.Request, requiredRole string) (*domain.Session, bool) {
	subject, ok := GetAuthSubject(r.Context())
	if !ok {
		h.writeError(w, http.StatusInternalServerError, "Could not get subject from context")
		return nil, false
	}

	session, err := h.service.ResolveSession(r.Context(), subject)
	if err != nil {
		if errors.Is(err, app.ErrNotAuthorized) {
			h.writeError(w, http.StatusForbidden, "No profile found for this account")
			return nil, false
		}
		log.Printf("level=error component=api msg=\"session resolution failed\" subject=%s err=%v", subject, err)
		h.writeError(w, http.StatusInternalServerError, "Unable to resolve session")
		return nil, false
	}

	if requiredRole != "" && session.Role != requiredRole {
		h.writeError(w, http.StatusForbidden, "This endpoint requires the "+requiredRole+" role")
		return nil, false
	}
	return session, true
}

// CreateDonationHandler handles donor-initiated donation creation.
func (h *DonationHandlers) CreateDonationHandler(w http.ResponseWriter, r *http.Request) {
	session, ok := h.resolveSession(w, r, domain.RoleDonor)
	if !ok {
		return
	}

	var req domain.CreateDonationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("level=warn component=api endpoint=create_donation outcome=reject reason=invalid_json err=%v", err)
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	donation, err := h.service.CreateDonation(r.Context(), session, req)
	if err != nil {
		if errors.Is(err, app.ErrInvalidDonation) {
			h.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		log.Printf("level=error component=api endpoint=create_donation msg=\"create failed\" donor_id=%s err=%v", session.UserID, err)
		h.writeError(w, http.StatusInternalServerError, "Unable to create donation")
		return
	}

	log.Printf("level=info component=api endpoint=create_donation outcome=created donation_id=%s donor_id=%s kind=%s", donation.ID, session.UserID, donation.Kind)
	h.writeJSON(w, http.StatusCreated, donation)
}

// ListDonorDonationsHandler returns the donor's own donations.
func (h *DonationHandlers) ListDonorDonationsHandler(w http.ResponseWriter, r *http.Request) {
	session, ok := h.resolveSession(w, r, domain.RoleDonor)
	if !ok {
		return
	}

	donations, err := h.service.DonorDonations(r.Context(), session.UserID)
	if err != nil {
		log.Printf("level=error component=api endpoint=list_donor_donations msg=\"list failed\" donor_id=%s err=%v", session.UserID, err)
		h.writeError(w, http.StatusInternalServerError, "Unable to list donations")
		return
	}
	if donations == nil {
		donations = []domain.Donation{}
	}
	h.writeJSON(w, http.StatusOK, donations)
}

// feedQueryFromRequest parses the shared filter/sort query parameters.
func feedQueryFromRequest(r *http.Request) domain.FeedQuery {
	q := domain.FeedQuery{
		Search: r.URL.Query().Get("q"),
		SortBy: r.URL.Query().Get("sort"),
	}
	if q.SortBy == "" {
		q.SortBy = domain.SortNewest
	}
	if origin := parseCoordinatePair(r.URL.Query().Get("lat"), r.URL.Query().Get("lng")); origin != nil {
		q.Origin = origin
	}
	return q
}

// parseCoordinatePair returns nil unless both components are present and
// numeric; a half-formed pair is treated as absent, not as an error.
func parseCoordinatePair(latStr, lngStr string) *domain.Coordinates {
	if strings.TrimSpace(latStr) == "" || strings.TrimSpace(lngStr) == "" {
		return nil
	}
	lat, latErr := strconv.ParseFloat(strings.TrimSpace(latStr), 64)
	lng, lngErr := strconv.ParseFloat(strings.TrimSpace(lngStr), 64)
	if latErr != nil || lngErr != nil {
		return nil
	}
	return &domain.Coordinates{Lat: lat, Lng: lng}
}

// ListPendingRequestsHandler returns the filtered, ordered pending feed for a
// volunteer.
func (h *DonationHandlers) ListPendingRequestsHandler(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.resolveSession(w, r, domain.RoleVolunteer); !ok {
		return
	}

	requests, err := h.service.PendingRequests(r.Context(), feedQueryFromRequest(r))
	if err != nil {
		log.Printf("level=error component=api endpoint=list_requests msg=\"list failed\" err=%v", err)
		h.writeError(w, http.StatusInternalServerError, "Unable to list pickup requests")
		return
	}
	if requests == nil {
		requests = []domain.Donation{}
	}
	h.writeJSON(w, http.StatusOK, requests)
}

// AcceptRequestHandler runs the acceptance workflow for one pending request.
func (h *DonationHandlers) AcceptRequestHandler(w http.ResponseWriter, r *http.Request) {
	session, ok := h.resolveSession(w, r, domain.RoleVolunteer)
	if !ok {
		return
	}

	donationID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request id")
		return
	}

	order, err := h.service.AcceptRequest(r.Context(), session.UserID, donationID)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrDonationNotFound):
			h.writeError(w, http.StatusNotFound, "Pickup request not found")
		case errors.Is(err, store.ErrDonationNotPending):
			h.writeError(w, http.StatusConflict, "Pickup request is no longer pending")
		case errors.Is(err, app.ErrAcceptRateLimited):
			h.writeError(w, http.StatusTooManyRequests, "Too many accept attempts. Please wait and try again.")
		default:
			log.Printf("level=error component=api endpoint=accept_request msg=\"accept failed\" donation_id=%s volunteer_id=%s err=%v", donationID, session.UserID, err)
			h.writeError(w, http.StatusInternalServerError, "Unable to accept pickup request")
		}
		return
	}

	h.writeJSON(w, http.StatusOK, order)
}

// RejectRequestHandler declines one pending request.
func (h *DonationHandlers) RejectRequestHandler(w http.ResponseWriter, r *http.Request) {
	session, ok := h.resolveSession(w, r, domain.RoleVolunteer)
	if !ok {
		return
	}

	donationID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request id")
		return
	}

	if err := h.service.RejectRequest(r.Context(), donationID); err != nil {
		switch {
		case errors.Is(err, store.ErrDonationNotFound):
			h.writeError(w, http.StatusNotFound, "Pickup request not found")
		case errors.Is(err, store.ErrDonationNotPending):
			h.writeError(w, http.StatusConflict, "Pickup request is no longer pending")
		default:
			log.Printf("level=error component=api endpoint=reject_request msg=\"reject failed\" donation_id=%s volunteer_id=%s err=%v", donationID, session.UserID, err)
			h.writeError(w, http.StatusInternalServerError, "Unable to reject pickup request")
		}
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{"status": domain.StatusRejected})
}

// ListAcceptedOrdersHandler returns the volunteer's personal order list.
func (h *DonationHandlers) ListAcceptedOrdersHandler(w http.ResponseWriter, r *http.Request) {
	session, ok := h.resolveSession(w, r, domain.RoleVolunteer)
	if !ok {
		return
	}

	orders, err := h.service.AcceptedOrders(r.Context(), session.UserID, feedQueryFromRequest(r))
	if err != nil {
		log.Printf("level=error component=api endpoint=list_orders msg=\"list failed\" volunteer_id=%s err=%v", session.UserID, err)
		h.writeError(w, http.StatusInternalServerError, "Unable to list accepted orders")
		return
	}
	if orders == nil {
		orders = []domain.AcceptedOrder{}
	}
	h.writeJSON(w, http.StatusOK, orders)
}

// RouteViewHandler assembles the map view for up to three coordinate pairs.
// Pairs are passed as volunteer_lat/volunteer_lng, pickup_lat/pickup_lng and
// dest_lat/dest_lng; any structurally invalid pair is skipped.
func (h *DonationHandlers) RouteViewHandler(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.resolveSession(w, r, domain.RoleVolunteer); !ok {
		return
	}

	query := r.URL.Query()
	req := app.RouteRequest{
		Volunteer:   parseCoordinatePair(query.Get("volunteer_lat"), query.Get("volunteer_lng")),
		Pickup:      parseCoordinatePair(query.Get("pickup_lat"), query.Get("pickup_lng")),
		Destination: parseCoordinatePair(query.Get("dest_lat"), query.Get("dest_lng")),
		ShowRoute:   query.Get("show_route") == "true",
	}

	h.writeJSON(w, http.StatusOK, h.routes.BuildView(r.Context(), req))
}

// AdminStatsHandler returns platform-wide aggregates. Access is limited to
// configured admin subjects.
func (h *DonationHandlers) AdminStatsHandler(w http.ResponseWriter, r *http.Request) {
	subject, ok := GetAuthSubject(r.Context())
	if !ok {
		h.writeError(w, http.StatusInternalServerError, "Could not get subject from context")
		return
	}
	if _, isAdmin := h.adminSubjects[subject]; !isAdmin {
		h.writeError(w, http.StatusForbidden, "Admin access required")
		return
	}

	stats, err := h.service.AdminStats(r.Context())
	if err != nil {
		log.Printf("level=error component=api endpoint=admin_stats msg=\"aggregate query failed\" err=%v", err)
		h.writeError(w, http.StatusInternalServerError, "Unable to compute statistics")
		return
	}
	h.writeJSON(w, http.StatusOK, stats)
}
