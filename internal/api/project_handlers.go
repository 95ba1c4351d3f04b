/**
 * @description
 * This file contains the HTTP handlers for the project-scoped read endpoints
 * (reward tiers, contribution display scopes, payout transfer), the derived
 * contribution status endpoint, the support-chat controls, and the operational
 * trigger for the stalled-slip refund notification sweep.
 *
 * @dependencies
 * - errors, net/http: Standard Go libraries.
 * - github.com/go-chi/chi/v5: URL parameter extraction.
 * - internal/app, internal/domain: Service logic and domain models.
 */

package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/catalisa/contribution-service/internal/app"
	"github.com/catalisa/contribution-service/internal/domain"
)

// ListProjectRewardsHandler handles GET /projects/{id}/rewards. The checkout
// page builds its reward selector from this list.
func (h *ContributionHandlers) ListProjectRewardsHandler(w http.ResponseWriter, r *http.Request) {
	projectID, ok := h.projectIDParam(w, r)
	if !ok {
		return
	}

	tiers, err := h.service.ProjectRewards(r.Context(), projectID)
	if err != nil {
		h.writeContributionError(w, "list_project_rewards", err)
		return
	}
	if tiers == nil {
		tiers = []domain.RewardTier{}
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{"rewards": tiers})
}

// ListProjectContributionsHandler handles GET /projects/{id}/contributions.
// The optional `scope` query parameter picks one of the named display scopes;
// it defaults to available-to-display.
func (h *ContributionHandlers) ListProjectContributionsHandler(w http.ResponseWriter, r *http.Request) {
	projectID, ok := h.projectIDParam(w, r)
	if !ok {
		return
	}

	scope := app.ContributionScope(r.URL.Query().Get("scope"))
	contributions, err := h.service.ProjectContributions(r.Context(), projectID, scope)
	if err != nil {
		if errors.Is(err, app.ErrUnknownScope) {
			h.writeError(w, http.StatusBadRequest, "Unknown contribution scope")
			return
		}
		h.writeContributionError(w, "list_project_contributions", err)
		return
	}
	if contributions == nil {
		contributions = []domain.Contribution{}
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{"contributions": contributions})
}

// GetProjectTransferHandler handles GET /projects/{id}/transfer.
func (h *ContributionHandlers) GetProjectTransferHandler(w http.ResponseWriter, r *http.Request) {
	projectID, ok := h.projectIDParam(w, r)
	if !ok {
		return
	}

	transfer, err := h.service.ProjectTransfer(r.Context(), projectID)
	if err != nil {
		h.writeContributionError(w, "get_project_transfer", err)
		return
	}

	h.writeJSON(w, http.StatusOK, transfer)
}

// ConfirmedLastDayHandler handles GET /contributions/confirmed-last-day. It
// serves the daily confirmation report.
func (h *ContributionHandlers) ConfirmedLastDayHandler(w http.ResponseWriter, r *http.Request) {
	contributions, err := h.service.ConfirmedLastDay(r.Context())
	if err != nil {
		h.writeContributionError(w, "confirmed_last_day", err)
		return
	}
	if contributions == nil {
		contributions = []domain.Contribution{}
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{"contributions": contributions})
}

// GetContributionStatusHandler handles GET /contributions/{id}/status.
func (h *ContributionHandlers) GetContributionStatusHandler(w http.ResponseWriter, r *http.Request) {
	contributionID, ok := h.contributionIDParam(w, r)
	if !ok {
		return
	}

	status, err := h.service.Status(r.Context(), contributionID)
	if err != nil {
		h.writeContributionError(w, "get_contribution_status", err)
		return
	}

	h.writeJSON(w, http.StatusOK, status)
}

// DispatchRefundNoticesHandler handles POST /notifications/pending-refund. It
// runs the stalled-slip refund sweep and reports how many contributors were
// notified. The sweep is idempotent, so operators may re-run it freely.
func (h *ContributionHandlers) DispatchRefundNoticesHandler(w http.ResponseWriter, r *http.Request) {
	notified, err := h.service.DispatchPendingRefundNotifications(r.Context())
	if err != nil {
		h.writeContributionError(w, "dispatch_refund_notices", err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]int{"notified": notified})
}

// ShowChatHandler handles POST /contributions/{id}/chat. It reveals the
// support chat for the contribution's project when the chat is configured for
// it and its backend reports ready; otherwise the widget stays hidden and the
// checkout proceeds untouched.
func (h *ContributionHandlers) ShowChatHandler(w http.ResponseWriter, r *http.Request) {
	contributionID, ok := h.contributionIDParam(w, r)
	if !ok {
		return
	}

	contribution, err := h.service.Find(r.Context(), contributionID)
	if err != nil {
		h.writeContributionError(w, "show_chat", err)
		return
	}

	visible := false
	if h.chat != nil {
		visible = h.chat.Show(r.Context(), contribution.ProjectID)
	}

	h.writeJSON(w, http.StatusOK, map[string]bool{"visible": visible})
}

// HideChatHandler handles DELETE /contributions/{id}/chat.
func (h *ContributionHandlers) HideChatHandler(w http.ResponseWriter, r *http.Request) {
	if h.chat != nil {
		h.chat.Hide()
	}
	h.writeJSON(w, http.StatusOK, map[string]bool{"visible": false})
}

// projectIDParam parses the {id} URL parameter, writing a 400 on failure.
func (h *ContributionHandlers) projectIDParam(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	raw := chi.URLParam(r, "id")
	id, err := uuid.Parse(raw)
	if err != nil {
		http.Error(w, "Invalid project ID format", http.StatusBadRequest)
		return uuid.Nil, false
	}
	return id, true
}
