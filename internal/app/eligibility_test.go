package app

import (
	"testing"
	"time"

	"github.com/catalisa/contribution-service/internal/domain"
	"github.com/catalisa/contribution-service/internal/store"
	"github.com/google/uuid"
)

const testCooldown = 7 * 24 * time.Hour

func eligibleTuple() RefundNoticeTuple {
	id := uuid.New()
	return RefundNoticeTuple{
		Contribution: domain.Contribution{ID: id},
		Detail: store.ContributionDetail{
			ContributionID: id,
			ProjectState:   "failed",
			State:          domain.PaymentStatePaid,
			Gateway:        "Pagarme",
			PaymentMethod:  "BoletoBancario",
		},
	}
}

func TestEligibleForSlipRefundNotice(t *testing.T) {
	now := time.Now()
	donationID := uuid.New()

	tests := []struct {
		name   string
		mutate func(*RefundNoticeTuple)
		want   bool
	}{
		{
			name:   "failed project with paid pagarme slip and no history",
			mutate: func(tuple *RefundNoticeTuple) {},
			want:   true,
		},
		{
			name: "gateway and method literals match case-insensitively",
			mutate: func(tuple *RefundNoticeTuple) {
				tuple.Detail.Gateway = "PAGARME"
				tuple.Detail.PaymentMethod = "boletobancario"
			},
			want: true,
		},
		{
			name: "project not failed",
			mutate: func(tuple *RefundNoticeTuple) {
				tuple.Detail.ProjectState = "successful"
			},
			want: false,
		},
		{
			name: "donation excluded",
			mutate: func(tuple *RefundNoticeTuple) {
				tuple.Contribution.DonationID = &donationID
			},
			want: false,
		},
		{
			name: "payment not paid",
			mutate: func(tuple *RefundNoticeTuple) {
				tuple.Detail.State = domain.PaymentStatePending
			},
			want: false,
		},
		{
			name: "other gateway",
			mutate: func(tuple *RefundNoticeTuple) {
				tuple.Detail.Gateway = "moip"
			},
			want: false,
		},
		{
			name: "other payment method",
			mutate: func(tuple *RefundNoticeTuple) {
				tuple.Detail.PaymentMethod = "CartaoDeCredito"
			},
			want: false,
		},
		{
			name: "notice sent inside the cooldown window",
			mutate: func(tuple *RefundNoticeTuple) {
				tuple.History = []store.NotificationRecord{{
					ContributionID: tuple.Contribution.ID,
					TemplateName:   store.TemplateSlipRefundNoAccount,
					CreatedAt:      now.Add(-3 * 24 * time.Hour),
				}}
			},
			want: false,
		},
		{
			name: "notice sent exactly at the cooldown boundary",
			mutate: func(tuple *RefundNoticeTuple) {
				tuple.History = []store.NotificationRecord{{
					ContributionID: tuple.Contribution.ID,
					TemplateName:   store.TemplateSlipRefundNoAccount,
					CreatedAt:      now.Add(-testCooldown),
				}}
			},
			want: false,
		},
		{
			name: "notice older than the cooldown",
			mutate: func(tuple *RefundNoticeTuple) {
				tuple.History = []store.NotificationRecord{{
					ContributionID: tuple.Contribution.ID,
					TemplateName:   store.TemplateSlipRefundNoAccount,
					CreatedAt:      now.Add(-8 * 24 * time.Hour),
				}}
			},
			want: true,
		},
		{
			name: "most recent notice governs, not the oldest",
			mutate: func(tuple *RefundNoticeTuple) {
				tuple.History = []store.NotificationRecord{
					{
						ContributionID: tuple.Contribution.ID,
						TemplateName:   store.TemplateSlipRefundNoAccount,
						CreatedAt:      now.Add(-30 * 24 * time.Hour),
					},
					{
						ContributionID: tuple.Contribution.ID,
						TemplateName:   store.TemplateSlipRefundNoAccount,
						CreatedAt:      now.Add(-time.Hour),
					},
				}
			},
			want: false,
		},
		{
			name: "history under other templates is ignored",
			mutate: func(tuple *RefundNoticeTuple) {
				tuple.History = []store.NotificationRecord{{
					ContributionID: tuple.Contribution.ID,
					TemplateName:   store.TemplateInvalidRefund,
					CreatedAt:      now.Add(-time.Hour),
				}}
			},
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tuple := eligibleTuple()
			tt.mutate(&tuple)

			got := EligibleForSlipRefundNotice(tuple, now, testCooldown)
			if got != tt.want {
				t.Fatalf("expected eligible=%t, got %t", tt.want, got)
			}
		})
	}
}

func TestEligibleSlipRefundContributions(t *testing.T) {
	now := time.Now()

	first := eligibleTuple()
	second := eligibleTuple()
	ineligible := eligibleTuple()
	ineligible.Detail.ProjectState = "online"

	// The same contribution can surface through several detail rows; the
	// result must still list it once.
	duplicate := first

	ids := EligibleSlipRefundContributions([]RefundNoticeTuple{first, ineligible, second, duplicate}, now, testCooldown)

	if len(ids) != 2 {
		t.Fatalf("expected 2 distinct eligible ids, got %d", len(ids))
	}
	if ids[0] != first.Contribution.ID || ids[1] != second.Contribution.ID {
		t.Fatal("expected eligible ids in input order")
	}
}

func TestEligibilitySweepRespectsFreshNotification(t *testing.T) {
	now := time.Now()
	tuple := eligibleTuple()

	ids := EligibleSlipRefundContributions([]RefundNoticeTuple{tuple}, now, testCooldown)
	if len(ids) != 1 {
		t.Fatalf("expected one eligible id before notifying, got %d", len(ids))
	}

	// Recording the notice removes the contribution from the set until the
	// cooldown elapses.
	tuple.History = append(tuple.History, store.NotificationRecord{
		ContributionID: tuple.Contribution.ID,
		TemplateName:   store.TemplateSlipRefundNoAccount,
		CreatedAt:      now,
	})
	if ids := EligibleSlipRefundContributions([]RefundNoticeTuple{tuple}, now, testCooldown); len(ids) != 0 {
		t.Fatalf("expected no eligible ids right after notifying, got %d", len(ids))
	}

	later := now.Add(testCooldown + time.Hour)
	if ids := EligibleSlipRefundContributions([]RefundNoticeTuple{tuple}, later, testCooldown); len(ids) != 1 {
		t.Fatalf("expected contribution eligible again after the cooldown, got %d ids", len(ids))
	}
}
