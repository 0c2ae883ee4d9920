/**
 * @description
 * This file sets up the HTTP router for the donation-service. It defines the API
 * endpoints, associates them with their corresponding handlers, and applies any
 * necessary middleware, such as for authentication.
 *
 * @dependencies
 * - net/http: Standard Go library for HTTP functionality.
 * - github.com/go-chi/chi/v5: A lightweight and idiomatic router for Go.
 * - github.com/go-chi/cors: CORS middleware for the browser clients.
 */

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// DonationRoutes creates and returns the router for the donation service.
func DonationRoutes(h *DonationHandlers, jwksURL, authAudience, authIssuer string) http.Handler {
	r := chi.NewRouter()

	// Add standard middleware for logging, panic recovery, and timeouts.
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("healthy"))
	})

	// Group routes that require authentication.
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(jwksURL, authAudience, authIssuer))

		// Donor endpoints
		r.Post("/donor/donations", h.CreateDonationHandler)
		r.Get("/donor/donations", h.ListDonorDonationsHandler)

		// Volunteer endpoints
		r.Get("/volunteer/requests", h.ListPendingRequestsHandler)
		r.Post("/volunteer/requests/{id}/accept", h.AcceptRequestHandler)
		r.Post("/volunteer/requests/{id}/reject", h.RejectRequestHandler)
		r.Get("/volunteer/orders", h.ListAcceptedOrdersHandler)
		r.Get("/volunteer/feed/stream", h.FeedStreamHandler)
		r.Get("/volunteer/route", h.RouteViewHandler)

		// Admin endpoints
		r.Get("/admin/stats", h.AdminStatsHandler)
	})

	return r
}
