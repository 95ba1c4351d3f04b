/**
 * @description
 * Read-only JSON projections of a contribution: the confirmation payload
 * served to API consumers after checkout (ContributionAttributes) and the
 * lighter widget payload embedded in the checkout page (ContributionWidget).
 */

package domain

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RewardSummary is the reward slice of the confirmation payload.
type RewardSummary struct {
	RewardID     uuid.UUID       `json:"reward_id"`
	MinimumValue decimal.Decimal `json:"minimum_value"`
}

// ProjectAttributes is the project slice of the confirmation payload.
type ProjectAttributes struct {
	Category           string          `json:"category"`
	UserThumb          string          `json:"user_thumb"`
	Permalink          string          `json:"permalink"`
	TotalContributions int64           `json:"total_contributions"`
	ServiceFee         decimal.Decimal `json:"service_fee"`
	Name               string          `json:"name"`
}

// ContributionAttributes is the confirmation payload contract for API
// consumers of a contribution.
type ContributionAttributes struct {
	ContributionID    uuid.UUID         `json:"contribution_id"`
	Value             decimal.Decimal   `json:"value"`
	Project           ProjectAttributes `json:"project"`
	Reward            *RewardSummary    `json:"reward"`
	ContributionEmail string            `json:"contribution_email"`
	SlipURL           *string           `json:"slip_url"`
}

// BuildContributionAttributes assembles the confirmation payload. The reward
// is nil for free pledges; the slip URL is present only when the latest
// payment was a bank slip with a gateway-hosted slip.
func BuildContributionAttributes(c Contribution, project ProjectSummary, reward *RewardTier, contributorEmail string, payments []Payment) ContributionAttributes {
	attrs := ContributionAttributes{
		ContributionID: c.ID,
		Value:          c.Value,
		Project: ProjectAttributes{
			Category:           project.Category,
			UserThumb:          project.OwnerThumbURL,
			Permalink:          project.Permalink,
			TotalContributions: project.TotalContributions,
			ServiceFee:         project.ServiceFee,
			Name:               project.Name,
		},
		ContributionEmail: contributorEmail,
	}

	if reward != nil {
		attrs.Reward = &RewardSummary{
			RewardID:     reward.ID,
			MinimumValue: reward.MinimumValue,
		}
	}

	if last := LastPayment(payments); last != nil {
		if url := last.SlipURL(); url != "" {
			attrs.SlipURL = &url
		}
	}

	return attrs
}

// WidgetReward is the reward slice of the widget payload. All fields are nil
// for free pledges.
type WidgetReward struct {
	ID              *uuid.UUID `json:"id"`
	Description     *string    `json:"description"`
	ShippingOptions *string    `json:"shipping_options"`
}

// ContributionWidget is the payload rendered into the checkout page.
type ContributionWidget struct {
	ID            uuid.UUID       `json:"id"`
	Value         decimal.Decimal `json:"value"`
	Reward        WidgetReward    `json:"reward"`
	ShippingFeeID *uuid.UUID      `json:"shipping_fee_id"`
}

// BuildContributionWidget assembles the widget payload.
func BuildContributionWidget(c Contribution, reward *RewardTier) ContributionWidget {
	widget := ContributionWidget{
		ID:            c.ID,
		Value:         c.Value,
		ShippingFeeID: c.ShippingFeeID,
	}
	if reward != nil {
		widget.Reward = WidgetReward{
			ID:              &reward.ID,
			Description:     &reward.Description,
			ShippingOptions: &reward.ShippingOptions,
		}
	}
	return widget
}
