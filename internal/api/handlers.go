/**
 * @description
 * This file contains the HTTP handlers for the contribution-service's API
 * endpoints. Handlers are responsible for parsing incoming requests, calling
 * the appropriate methods on the application service, and writing the HTTP
 * response. They act as the bridge between the web layer and the business
 * logic layer.
 *
 * @dependencies
 * - encoding/json, net/http, strconv: Standard Go libraries.
 * - github.com/go-chi/chi/v5: URL parameter extraction.
 * - github.com/rs/zerolog: Structured logging.
 * - internal/app, internal/store: For service logic and custom errors.
 */

package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/catalisa/contribution-service/internal/app"
	"github.com/catalisa/contribution-service/internal/checkout"
	"github.com/catalisa/contribution-service/internal/store"
	"github.com/catalisa/contribution-service/pkg/chatwidget"
)

// ContributionHandlers holds the application service and checkout rate
// limiter that handlers will use.
type ContributionHandlers struct {
	service        *app.Service
	limiter        *app.RedisCheckoutRateLimiter
	checkoutPerMin int
	events         checkout.EventSink
	chat           *chatwidget.Widget
	logger         zerolog.Logger
}

// NewContributionHandlers creates a new instance of ContributionHandlers. A
// nil limiter or non-positive limit disables checkout rate limiting; a nil
// event sink disables analytics; a nil chat widget keeps the support chat
// hidden.
func NewContributionHandlers(service *app.Service, limiter *app.RedisCheckoutRateLimiter, checkoutPerMin int, events checkout.EventSink, chat *chatwidget.Widget, logger zerolog.Logger) *ContributionHandlers {
	return &ContributionHandlers{
		service:        service,
		limiter:        limiter,
		checkoutPerMin: checkoutPerMin,
		events:         events,
		chat:           chat,
		logger:         logger.With().Str("component", "api").Logger(),
	}
}

// createContributionRequest is the JSON payload for a new pledge. The value
// accepts both JSON numbers and strings.
type createContributionRequest struct {
	ProjectID     uuid.UUID       `json:"project_id"`
	RewardID      *uuid.UUID      `json:"reward_id,omitempty"`
	ShippingFeeID *uuid.UUID      `json:"shipping_fee_id,omitempty"`
	DonationID    *uuid.UUID      `json:"donation_id,omitempty"`
	OriginID      *uuid.UUID      `json:"origin_id,omitempty"`
	Value         decimal.Decimal `json:"value"`
	Anonymous     bool            `json:"anonymous"`
}

type changeRewardRequest struct {
	RewardID *uuid.UUID `json:"reward_id"`
}

// CreateContributionHandler handles POST /contributions.
func (h *ContributionHandlers) CreateContributionHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetSessionUserID(r.Context())
	if !ok {
		http.Error(w, "Could not get user ID from context", http.StatusInternalServerError)
		return
	}

	if !h.consumeCheckoutLimit(w, r, userID) {
		return
	}

	var req createContributionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn().Str("endpoint", "create_contribution").Err(err).Msg("invalid request body")
		http.Error(w, fmt.Sprintf("Invalid request body: %v", err), http.StatusBadRequest)
		return
	}

	contribution, err := h.service.Create(r.Context(), app.CreateContributionInput{
		ProjectID:     req.ProjectID,
		UserID:        userID,
		RewardID:      req.RewardID,
		ShippingFeeID: req.ShippingFeeID,
		DonationID:    req.DonationID,
		OriginID:      req.OriginID,
		Value:         req.Value,
		Anonymous:     req.Anonymous,
	})
	if err != nil {
		h.writeContributionError(w, "create_contribution", err)
		return
	}

	if h.events != nil {
		h.events.Emit(r.Context(), checkout.EventCategory, checkout.ActionContinueClick,
			req.ProjectID.String(), contribution.PriceInCents())
	}

	h.writeJSON(w, http.StatusCreated, contribution)
}

// GetContributionHandler handles GET /contributions/{id}. It serves the
// checkout widget payload.
func (h *ContributionHandlers) GetContributionHandler(w http.ResponseWriter, r *http.Request) {
	contributionID, ok := h.contributionIDParam(w, r)
	if !ok {
		return
	}

	widget, err := h.service.ContributionWidget(r.Context(), contributionID)
	if err != nil {
		h.writeContributionError(w, "get_contribution", err)
		return
	}

	h.writeJSON(w, http.StatusOK, widget)
}

// GetContributionAttributesHandler handles GET /contributions/{id}/attributes.
// It serves the confirmation payload shown after checkout.
func (h *ContributionHandlers) GetContributionAttributesHandler(w http.ResponseWriter, r *http.Request) {
	contributionID, ok := h.contributionIDParam(w, r)
	if !ok {
		return
	}

	attrs, err := h.service.ContributionAttributes(r.Context(), contributionID)
	if err != nil {
		h.writeContributionError(w, "get_contribution_attributes", err)
		return
	}

	h.writeJSON(w, http.StatusOK, attrs)
}

// ChangeRewardHandler handles PUT /contributions/{id}/reward. A null reward id
// clears the tier, turning the pledge into a free pledge.
func (h *ContributionHandlers) ChangeRewardHandler(w http.ResponseWriter, r *http.Request) {
	contributionID, ok := h.contributionIDParam(w, r)
	if !ok {
		return
	}

	var req changeRewardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn().Str("endpoint", "change_reward").Err(err).Msg("invalid request body")
		http.Error(w, fmt.Sprintf("Invalid request body: %v", err), http.StatusBadRequest)
		return
	}

	if err := h.service.ChangeReward(r.Context(), contributionID, req.RewardID); err != nil {
		h.writeContributionError(w, "change_reward", err)
		return
	}

	widget, err := h.service.ContributionWidget(r.Context(), contributionID)
	if err != nil {
		h.writeContributionError(w, "change_reward", err)
		return
	}
	h.writeJSON(w, http.StatusOK, widget)
}

// BillingFromUserHandler handles POST /contributions/{id}/billing/from-user.
// It refreshes the contribution's billing snapshot from the owner's profile.
func (h *ContributionHandlers) BillingFromUserHandler(w http.ResponseWriter, r *http.Request) {
	contributionID, ok := h.contributionIDParam(w, r)
	if !ok {
		return
	}

	contribution, err := h.service.SyncBillingFromUser(r.Context(), contributionID)
	if err != nil {
		h.writeContributionError(w, "billing_from_user", err)
		return
	}

	h.writeJSON(w, http.StatusOK, contribution)
}

// BillingToUserHandler handles POST /contributions/{id}/billing/to-user. It
// merges the contribution's billing snapshot back into the owner's profile.
func (h *ContributionHandlers) BillingToUserHandler(w http.ResponseWriter, r *http.Request) {
	contributionID, ok := h.contributionIDParam(w, r)
	if !ok {
		return
	}

	update, err := h.service.ApplyBillingToUser(r.Context(), contributionID)
	if err != nil {
		h.writeContributionError(w, "billing_to_user", err)
		return
	}

	h.writeJSON(w, http.StatusOK, update)
}

// contributionIDParam parses the {id} URL parameter, writing a 400 on failure.
func (h *ContributionHandlers) contributionIDParam(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	raw := chi.URLParam(r, "id")
	id, err := uuid.Parse(raw)
	if err != nil {
		http.Error(w, "Invalid contribution ID format", http.StatusBadRequest)
		return uuid.Nil, false
	}
	return id, true
}

// consumeCheckoutLimit counts one checkout attempt against the user's rate
// budget. Limiter failures degrade open: a Redis outage must not block
// pledges.
func (h *ContributionHandlers) consumeCheckoutLimit(w http.ResponseWriter, r *http.Request, userID uuid.UUID) bool {
	if h.limiter == nil || h.checkoutPerMin <= 0 {
		return true
	}

	count, retryAfter, err := h.limiter.ConsumeRateLimit(r.Context(), "checkout", userID.String(), h.checkoutPerMin, time.Minute)
	if err != nil {
		h.logger.Warn().Str("endpoint", "create_contribution").Err(err).Msg("rate limiter unavailable; allowing request")
		return true
	}
	if count > h.checkoutPerMin {
		if retryAfter > 0 {
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
		}
		h.writeError(w, http.StatusTooManyRequests, "Too many checkout attempts. Please wait and try again.")
		return false
	}
	return true
}

// writeContributionError maps service errors onto HTTP statuses.
func (h *ContributionHandlers) writeContributionError(w http.ResponseWriter, endpoint string, err error) {
	var validationErr *app.ValidationError
	if errors.As(err, &validationErr) {
		h.writeJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{"errors": validationErr.Fields})
		return
	}
	if errors.Is(err, app.ErrRewardProjectMismatch) {
		h.writeJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{
			"errors": []app.FieldError{{Field: "reward", Message: err.Error()}},
		})
		return
	}
	if errors.Is(err, store.ErrContributionNotFound) {
		h.writeError(w, http.StatusNotFound, "Contribution not found")
		return
	}
	if errors.Is(err, store.ErrUserNotFound) {
		h.writeError(w, http.StatusNotFound, "User not found")
		return
	}
	if errors.Is(err, store.ErrRewardNotFound) {
		h.writeError(w, http.StatusNotFound, "Reward not found")
		return
	}
	if errors.Is(err, store.ErrProjectNotFound) {
		h.writeError(w, http.StatusNotFound, "Project not found")
		return
	}
	if errors.Is(err, store.ErrProjectTransferNotFound) {
		h.writeError(w, http.StatusNotFound, "Project transfer not found")
		return
	}

	h.logger.Error().Str("endpoint", endpoint).Err(err).Msg("request failed")
	h.writeError(w, http.StatusInternalServerError, "Internal server error")
}

// writeJSON is a helper for writing JSON responses.
func (h *ContributionHandlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// writeError is a helper for writing JSON error responses.
func (h *ContributionHandlers) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
