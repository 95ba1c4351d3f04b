/**
 * @description
 * In-memory mirror of the stalled-slip refund eligibility scope: a pure
 * predicate over (contribution, detail, notification history) tuples. The
 * store's SQL scope and this predicate implement the same rules; the
 * predicate exists so the eligibility semantics are testable without a
 * database and reusable over already-loaded read models.
 */

package app

import (
	"strings"
	"time"

	"github.com/catalisa/contribution-service/internal/domain"
	"github.com/catalisa/contribution-service/internal/store"
	"github.com/google/uuid"
)

// Gateway and method literals matched case-insensitively by the scope.
const (
	slipRefundGateway = "pagarme"
	slipRefundMethod  = "boletobancario"
)

// RefundNoticeTuple is one row of the denormalized read model the predicate
// filters: a contribution, its detail view row, and its notification history
// for the slip-refund template.
type RefundNoticeTuple struct {
	Contribution domain.Contribution
	Detail       store.ContributionDetail
	History      []store.NotificationRecord
}

// EligibleForSlipRefundNotice decides whether a single tuple qualifies for
// the stalled-slip refund notice at the given instant.
func EligibleForSlipRefundNotice(t RefundNoticeTuple, now time.Time, cooldown time.Duration) bool {
	if t.Detail.ProjectState != "failed" {
		return false
	}
	if t.Contribution.IsDonation() {
		return false
	}
	if t.Detail.State != domain.PaymentStatePaid {
		return false
	}
	if !strings.EqualFold(t.Detail.Gateway, slipRefundGateway) {
		return false
	}
	if !strings.EqualFold(t.Detail.PaymentMethod, slipRefundMethod) {
		return false
	}

	last := lastTemplateNotification(t.History, store.TemplateSlipRefundNoAccount)
	if last == nil {
		return true
	}
	return now.Sub(last.CreatedAt) > cooldown
}

// EligibleSlipRefundContributions filters tuples through the predicate and
// returns the distinct eligible contribution ids in input order. Re-running
// over the same tuples yields the same result; a freshly recorded
// notification drops its contribution from the set for a full cooldown.
func EligibleSlipRefundContributions(tuples []RefundNoticeTuple, now time.Time, cooldown time.Duration) []uuid.UUID {
	seen := make(map[uuid.UUID]bool, len(tuples))
	var ids []uuid.UUID
	for _, t := range tuples {
		if seen[t.Contribution.ID] {
			continue
		}
		if EligibleForSlipRefundNotice(t, now, cooldown) {
			seen[t.Contribution.ID] = true
			ids = append(ids, t.Contribution.ID)
		}
	}
	return ids
}

// lastTemplateNotification returns the most recent history entry for a
// template, or nil when none exists.
func lastTemplateNotification(history []store.NotificationRecord, templateName string) *store.NotificationRecord {
	var last *store.NotificationRecord
	for i := range history {
		record := &history[i]
		if record.TemplateName != templateName {
			continue
		}
		if last == nil || record.CreatedAt.After(last.CreatedAt) {
			last = record
		}
	}
	return last
}
