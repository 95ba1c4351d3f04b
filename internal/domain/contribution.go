/**
 * @description
 * This file defines the core domain models for the contribution-service.
 * These structs represent the main entities and data transfer objects (DTOs)
 * used throughout the service's business logic, database interactions, and API layers.
 *
 * @notes
 * - Using distinct types for API requests, database models, and external service
 *   payloads ensures clear separation of concerns and type safety.
 * - Monetary values use shopspring/decimal to avoid floating-point inaccuracies;
 *   payment engines receive the value in cents via PriceInCents.
 * - Billing fields on Contribution are a snapshot captured at pledge time and
 *   may diverge from the owning user's live profile. Empty string means the
 *   field was never captured.
 */

package domain

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Payment states as maintained by the external payment processor.
const (
	PaymentStatePending = "pending"
	PaymentStatePaid    = "paid"
	PaymentStateRefused = "refused"
	PaymentStateDeleted = "deleted"
)

// Account types inferred from the payer document during billing reconciliation.
const (
	AccountTypeIndividual   = "pf"
	AccountTypeOrganization = "pj"
)

// PaymentMethodSlip is the payment-method literal for a Brazilian bank slip.
// Gateways report it with inconsistent casing, so comparisons are case-insensitive.
const PaymentMethodSlip = "BoletoBancario"

// Contribution represents a user's pledge to a project. This struct maps
// directly to the `contributions` table in the database.
type Contribution struct {
	ID            uuid.UUID  `json:"id"`
	ProjectID     uuid.UUID  `json:"project_id"`
	UserID        uuid.UUID  `json:"user_id"`
	RewardID      *uuid.UUID `json:"reward_id,omitempty"`
	ShippingFeeID *uuid.UUID `json:"shipping_fee_id,omitempty"`
	DonationID    *uuid.UUID `json:"donation_id,omitempty"`
	OriginID      *uuid.UUID `json:"origin_id,omitempty"`

	Value     decimal.Decimal `json:"value"`
	Anonymous bool            `json:"anonymous"`

	// Billing snapshot, captured at pledge time.
	CountryName          string `json:"country_name"`
	AddressStreet        string `json:"address_street"`
	AddressNumber        string `json:"address_number"`
	AddressComplement    string `json:"address_complement"`
	AddressNeighbourhood string `json:"address_neighbourhood"`
	AddressZipCode       string `json:"address_zip_code"`
	AddressCity          string `json:"address_city"`
	AddressState         string `json:"address_state"`
	AddressPhoneNumber   string `json:"address_phone_number"`
	PayerDocument        string `json:"payer_document"`
	PayerName            string `json:"payer_name"`
	PayerEmail           string `json:"payer_email"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Confirmation bits are maintained externally by payment processing and
	// fetched fresh per handle; see ConfirmedStatus / WasConfirmedStatus.
	confirmed    *bool
	wasConfirmed *bool
}

// StatusFetcher loads the externally-maintained confirmation bits for a
// contribution. The store provides the production implementation.
type StatusFetcher func(ctx context.Context, id uuid.UUID) (confirmed bool, wasConfirmed bool, err error)

// ConfirmedStatus reports whether the contribution is currently confirmed.
// The first call on a handle fetches both bits; subsequent calls reuse them.
func (c *Contribution) ConfirmedStatus(ctx context.Context, fetch StatusFetcher) (bool, error) {
	if c.confirmed == nil {
		if err := c.loadStatus(ctx, fetch); err != nil {
			return false, err
		}
	}
	return *c.confirmed, nil
}

// WasConfirmedStatus reports whether the contribution was ever confirmed.
func (c *Contribution) WasConfirmedStatus(ctx context.Context, fetch StatusFetcher) (bool, error) {
	if c.wasConfirmed == nil {
		if err := c.loadStatus(ctx, fetch); err != nil {
			return false, err
		}
	}
	return *c.wasConfirmed, nil
}

func (c *Contribution) loadStatus(ctx context.Context, fetch StatusFetcher) error {
	confirmed, wasConfirmed, err := fetch(ctx, c.ID)
	if err != nil {
		return err
	}
	c.confirmed = &confirmed
	c.wasConfirmed = &wasConfirmed
	return nil
}

// International reports whether the pledge originates outside the platform's
// home country. The comparison is an exact string match against the country
// name on the snapshot; any variant spelling counts as international.
func (c *Contribution) International(homeCountryName string) bool {
	return c.CountryName != homeCountryName
}

// IsDonation reports whether this contribution is a donation rather than a
// regular pledge.
func (c *Contribution) IsDonation() bool {
	return c.DonationID != nil
}

// PriceInCents converts the pledge value to cents for payment engines.
func (c *Contribution) PriceInCents() int64 {
	return c.Value.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

// RewardTier is a perk tier offered by a project. Tiers are immutable once
// offered; a contribution references at most one.
type RewardTier struct {
	ID              uuid.UUID       `json:"id"`
	ProjectID       uuid.UUID       `json:"project_id"`
	MinimumValue    decimal.Decimal `json:"minimum_value"`
	Description     string          `json:"description"`
	ShippingOptions string          `json:"shipping_options"`
}

// User represents the slice of a platform user needed by this service: the
// live billing profile that contributions snapshot from and reconcile into.
type User struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	PublicName  string    `json:"public_name"`
	Email       string    `json:"email"`
	CPF         string    `json:"cpf"`
	AccountType string    `json:"account_type"`

	CountryName          string `json:"country_name"`
	AddressStreet        string `json:"address_street"`
	AddressNumber        string `json:"address_number"`
	AddressComplement    string `json:"address_complement"`
	AddressNeighbourhood string `json:"address_neighbourhood"`
	AddressZipCode       string `json:"address_zip_code"`
	AddressCity          string `json:"address_city"`
	AddressState         string `json:"address_state"`
	PhoneNumber          string `json:"phone_number"`
}

// Payment is one payment attempt against a contribution. Its state machine
// lives in the external payment processor; this service only reads it.
type Payment struct {
	ID             uuid.UUID         `json:"id"`
	ContributionID uuid.UUID         `json:"contribution_id"`
	State          string            `json:"state"`
	Gateway        string            `json:"gateway"`
	PaymentMethod  string            `json:"payment_method"`
	PaidAt         *time.Time        `json:"paid_at,omitempty"`
	GatewayData    map[string]string `json:"gateway_data,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
}

// SlipPayment reports whether this payment was made via bank slip.
func (p Payment) SlipPayment() bool {
	return strings.EqualFold(p.PaymentMethod, PaymentMethodSlip)
}

// SlipURL returns the gateway-hosted slip URL, or "" when not a slip payment
// or the gateway never reported one.
func (p Payment) SlipURL() string {
	if !p.SlipPayment() {
		return ""
	}
	return p.GatewayData["boleto_url"]
}

// LastPayment returns the most recent payment of the slice, or nil for an
// empty slice. Callers pass payments ordered as loaded from the store
// (ascending by creation).
func LastPayment(payments []Payment) *Payment {
	if len(payments) == 0 {
		return nil
	}
	return &payments[len(payments)-1]
}

// HasPendingPayment reports whether any payment is still pending.
func HasPendingPayment(payments []Payment) bool {
	for _, p := range payments {
		if p.State == PaymentStatePending {
			return true
		}
	}
	return false
}

// SlipLastPayment reports whether the contribution's latest payment attempt
// was a bank slip.
func SlipLastPayment(payments []Payment) bool {
	last := LastPayment(payments)
	return last != nil && last.SlipPayment()
}

// ProjectTransfer is the payout record for a project, keyed by project id.
type ProjectTransfer struct {
	ProjectID     uuid.UUID       `json:"project_id"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	Status        string          `json:"status"`
	TransferredAt *time.Time      `json:"transferred_at,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

// ProjectSummary is the denormalized slice of a project used by the
// contribution attributes projection.
type ProjectSummary struct {
	ID                 uuid.UUID       `json:"id"`
	Name               string          `json:"name"`
	Permalink          string          `json:"permalink"`
	Category           string          `json:"category"`
	OwnerThumbURL      string          `json:"owner_thumb_url"`
	TotalContributions int64           `json:"total_contributions"`
	ServiceFee         decimal.Decimal `json:"service_fee"`
}
