/**
 * @description
 * This file sets up the HTTP router for the contribution-service. It defines
 * the API endpoints, associates them with their corresponding handlers, and
 * applies any necessary middleware, such as for authentication.
 *
 * @dependencies
 * - net/http: Standard Go library for HTTP functionality.
 * - github.com/go-chi/chi/v5: A lightweight and idiomatic router for Go.
 */

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// ContributionRoutes creates and returns a new router for the contribution
// service.
func ContributionRoutes(h *ContributionHandlers, sessionSecret string) http.Handler {
	r := chi.NewRouter()

	// Add standard middleware for logging, panic recovery, and timeouts.
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("healthy"))
	})

	// Group routes that require authentication.
	r.Group(func(r chi.Router) {
		r.Use(SessionAuthMiddleware(sessionSecret))

		r.Post("/contributions", h.CreateContributionHandler)
		r.Get("/contributions/confirmed-last-day", h.ConfirmedLastDayHandler)
		r.Get("/contributions/{id}", h.GetContributionHandler)
		r.Get("/contributions/{id}/attributes", h.GetContributionAttributesHandler)
		r.Get("/contributions/{id}/status", h.GetContributionStatusHandler)
		r.Put("/contributions/{id}/reward", h.ChangeRewardHandler)

		// Billing reconciliation between the pledge snapshot and the
		// contributor's profile.
		r.Post("/contributions/{id}/billing/from-user", h.BillingFromUserHandler)
		r.Post("/contributions/{id}/billing/to-user", h.BillingToUserHandler)

		// Support chat for checkout sessions.
		r.Post("/contributions/{id}/chat", h.ShowChatHandler)
		r.Delete("/contributions/{id}/chat", h.HideChatHandler)

		// Project-scoped reads backing the checkout and project pages.
		r.Get("/projects/{id}/rewards", h.ListProjectRewardsHandler)
		r.Get("/projects/{id}/contributions", h.ListProjectContributionsHandler)
		r.Get("/projects/{id}/transfer", h.GetProjectTransferHandler)

		// Operational trigger for the stalled-slip refund sweep.
		r.Post("/notifications/pending-refund", h.DispatchRefundNoticesHandler)
	})

	return r
}
