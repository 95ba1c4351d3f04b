/**
 * @description
 * This file contains the core business logic for the contribution-service. The
 * `Service` struct orchestrates the pledge lifecycle, coordinating between the
 * database repository, the notification dispatcher and the analytics producer.
 *
 * Key features:
 * - Creates contributions with presence and minimum-value validation.
 * - Reward changes are project-scoped: a tier offered by another project is
 *   rejected rather than silently attached.
 * - Runs billing reconciliation in both directions (profile -> snapshot and
 *   snapshot -> profile).
 * - Drives the invalid-refund and stalled-slip-refund notification flows with
 *   history-based dedup.
 *
 * @dependencies
 * - context, errors, fmt, strings, time: Standard Go libraries.
 * - github.com/google/uuid: For UUID handling.
 * - github.com/rs/zerolog: Structured logging.
 * - github.com/shopspring/decimal: Monetary values.
 * - internal/domain, internal/store: For domain models and data access.
 */

package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/catalisa/contribution-service/internal/domain"
	"github.com/catalisa/contribution-service/internal/store"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

var (
	// ErrRewardProjectMismatch rejects attaching a reward tier offered by a
	// different project than the contribution's.
	ErrRewardProjectMismatch = errors.New("reward tier belongs to another project")
)

// FieldError is a field-level validation failure surfaced to the caller.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError aggregates the field errors that blocked a save. It is
// terminal for the current request; nothing is retried.
type ValidationError struct {
	Fields []FieldError `json:"fields"`
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		msgs = append(msgs, f.Field+": "+f.Message)
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

// Notifier dispatches a templated notification once per (template, recipient,
// subject) within the dispatcher's own dedup window.
type Notifier interface {
	NotifyOnce(ctx context.Context, templateName string, recipientID, contributionID uuid.UUID, options map[string]string) error
}

// Settings carries the tunables the service needs from configuration.
type Settings struct {
	HomeCountryName    string
	GlobalMinimumValue decimal.Decimal
	RefundCooldownDays int
	RefundLimit        int
	EmailContact       string
	EmailPayments      string
}

// Service provides the core business logic for contributions.
type Service struct {
	repo     store.Repository
	notifier Notifier
	settings Settings
	logger   zerolog.Logger
}

// NewService creates a new contribution service instance.
func NewService(repo store.Repository, notifier Notifier, settings Settings, logger zerolog.Logger) *Service {
	return &Service{
		repo:     repo,
		notifier: notifier,
		settings: settings,
		logger:   logger.With().Str("component", "app").Logger(),
	}
}

// CreateContributionInput is the payload for a new pledge.
type CreateContributionInput struct {
	ProjectID     uuid.UUID
	UserID        uuid.UUID
	RewardID      *uuid.UUID
	ShippingFeeID *uuid.UUID
	DonationID    *uuid.UUID
	OriginID      *uuid.UUID
	Value         decimal.Decimal
	Anonymous     bool
}

// Create validates and persists a new contribution. The user's current
// billing profile is snapshotted onto the contribution at pledge time.
func (s *Service) Create(ctx context.Context, input CreateContributionInput) (*domain.Contribution, error) {
	var fields []FieldError
	if input.ProjectID == uuid.Nil {
		fields = append(fields, FieldError{Field: "project", Message: "must be present"})
	}
	if input.UserID == uuid.Nil {
		fields = append(fields, FieldError{Field: "user", Message: "must be present"})
	}
	if input.Value.LessThan(s.settings.GlobalMinimumValue) {
		fields = append(fields, FieldError{
			Field:   "value",
			Message: fmt.Sprintf("must be greater than or equal to %s", s.settings.GlobalMinimumValue),
		})
	}
	if len(fields) > 0 {
		return nil, &ValidationError{Fields: fields}
	}

	if input.RewardID != nil {
		if _, err := s.repo.FindRewardTier(ctx, input.ProjectID, *input.RewardID); err != nil {
			if errors.Is(err, store.ErrRewardNotFound) {
				return nil, ErrRewardProjectMismatch
			}
			return nil, fmt.Errorf("failed to verify reward tier: %w", err)
		}
	}

	user, err := s.repo.FindUserByID(ctx, input.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to find contributor: %w", err)
	}

	contribution := &domain.Contribution{
		ProjectID:     input.ProjectID,
		UserID:        input.UserID,
		RewardID:      input.RewardID,
		ShippingFeeID: input.ShippingFeeID,
		DonationID:    input.DonationID,
		OriginID:      input.OriginID,
		Value:         input.Value,
		Anonymous:     input.Anonymous,
	}
	domain.SnapshotBillingFromUser(contribution, *user)

	if err := s.repo.CreateContribution(ctx, contribution); err != nil {
		return nil, fmt.Errorf("failed to create contribution: %w", err)
	}

	s.logger.Info().
		Str("contribution_id", contribution.ID.String()).
		Str("project_id", input.ProjectID.String()).
		Str("value", input.Value.String()).
		Msg("contribution created")
	return contribution, nil
}

// ChangeReward sets the contribution's reward tier. A nil reward id clears
// the tier (free pledge); a tier from another project is rejected.
func (s *Service) ChangeReward(ctx context.Context, contributionID uuid.UUID, rewardID *uuid.UUID) error {
	contribution, err := s.repo.FindContributionByID(ctx, contributionID)
	if err != nil {
		return err
	}

	if rewardID != nil {
		if _, err := s.repo.FindRewardTier(ctx, contribution.ProjectID, *rewardID); err != nil {
			if errors.Is(err, store.ErrRewardNotFound) {
				return ErrRewardProjectMismatch
			}
			return fmt.Errorf("failed to verify reward tier: %w", err)
		}
	}

	if err := s.repo.UpdateContributionReward(ctx, contributionID, rewardID); err != nil {
		return fmt.Errorf("failed to change reward: %w", err)
	}
	return nil
}

// SyncBillingFromUser overwrites the contribution's billing snapshot with the
// user's current profile.
func (s *Service) SyncBillingFromUser(ctx context.Context, contributionID uuid.UUID) (*domain.Contribution, error) {
	contribution, err := s.repo.FindContributionByID(ctx, contributionID)
	if err != nil {
		return nil, err
	}
	user, err := s.repo.FindUserByID(ctx, contribution.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to find contributor: %w", err)
	}

	domain.SnapshotBillingFromUser(contribution, *user)
	if err := s.repo.UpdateBillingSnapshot(ctx, contribution); err != nil {
		return nil, fmt.Errorf("failed to persist billing snapshot: %w", err)
	}
	return contribution, nil
}

// ApplyBillingToUser merges the contribution's snapshot into the user's
// profile and persists the result as one update.
func (s *Service) ApplyBillingToUser(ctx context.Context, contributionID uuid.UUID) (*domain.UserBillingUpdate, error) {
	contribution, err := s.repo.FindContributionByID(ctx, contributionID)
	if err != nil {
		return nil, err
	}
	user, err := s.repo.FindUserByID(ctx, contribution.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to find contributor: %w", err)
	}

	update := domain.MergeBillingIntoUser(*contribution, *user)
	if err := s.repo.UpdateUserBillingInfo(ctx, user.ID, update); err != nil {
		return nil, fmt.Errorf("failed to persist user billing info: %w", err)
	}
	return &update, nil
}

// Confirmed reports the contribution's current confirmation bit, cached on
// the handle after the first read.
func (s *Service) Confirmed(ctx context.Context, c *domain.Contribution) (bool, error) {
	return c.ConfirmedStatus(ctx, s.repo.ContributionStatusBits)
}

// WasConfirmed reports whether the contribution was ever confirmed.
func (s *Service) WasConfirmed(ctx context.Context, c *domain.Contribution) (bool, error) {
	return c.WasConfirmedStatus(ctx, s.repo.ContributionStatusBits)
}

// International reports whether the contribution's snapshot country differs
// from the configured home country.
func (s *Service) International(c *domain.Contribution) bool {
	return c.International(s.settings.HomeCountryName)
}

// OverRefundLimit reports whether the contribution has exceeded the
// invalid-refund notification allowance.
func (s *Service) OverRefundLimit(ctx context.Context, contributionID uuid.UUID) (bool, error) {
	count, err := s.repo.CountNotifications(ctx, contributionID, store.TemplateInvalidRefund)
	if err != nil {
		return false, fmt.Errorf("failed to count refund notifications: %w", err)
	}
	return count > s.settings.RefundLimit, nil
}

// InvalidRefund notifies the contributor that a refund attempt was invalid.
// Once the contribution exceeds the refund allowance, backoffice is alerted
// with the contributor's email for manual follow-up.
func (s *Service) InvalidRefund(ctx context.Context, contributionID uuid.UUID) error {
	contribution, err := s.repo.FindContributionByID(ctx, contributionID)
	if err != nil {
		return err
	}
	user, err := s.repo.FindUserByID(ctx, contribution.UserID)
	if err != nil {
		return fmt.Errorf("failed to find contributor: %w", err)
	}

	if err := s.NotifyToContributor(ctx, contribution, store.TemplateInvalidRefund, nil); err != nil {
		return err
	}

	over, err := s.OverRefundLimit(ctx, contributionID)
	if err != nil {
		return err
	}
	if !over {
		return nil
	}

	return s.NotifyToBackoffice(ctx, contribution, store.TemplateOverRefundLimit,
		map[string]string{"from_email": user.Email}, s.settings.EmailContact)
}

// NotifyToContributor dispatches a template to the contribution's owner and
// records it in the notification history.
func (s *Service) NotifyToContributor(ctx context.Context, c *domain.Contribution, templateName string, options map[string]string) error {
	if err := s.notifier.NotifyOnce(ctx, templateName, c.UserID, c.ID, options); err != nil {
		return fmt.Errorf("failed to notify contributor: %w", err)
	}
	if err := s.repo.RecordNotification(ctx, store.NotificationRecord{
		ContributionID: c.ID,
		RecipientID:    c.UserID,
		TemplateName:   templateName,
	}); err != nil {
		return fmt.Errorf("failed to record notification: %w", err)
	}
	return nil
}

// NotifyToBackoffice dispatches a template to the backoffice user resolved by
// email. A missing backoffice user downgrades to a warning: operational mail
// misconfiguration must not fail the contributor-facing flow.
func (s *Service) NotifyToBackoffice(ctx context.Context, c *domain.Contribution, templateName string, options map[string]string, backofficeEmail string) error {
	if backofficeEmail == "" {
		backofficeEmail = s.settings.EmailPayments
	}
	backofficeUser, err := s.repo.FindUserByEmail(ctx, backofficeEmail)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			s.logger.Warn().
				Str("template", templateName).
				Str("email", backofficeEmail).
				Msg("backoffice user not found; skipping notification")
			return nil
		}
		return fmt.Errorf("failed to resolve backoffice user: %w", err)
	}

	if err := s.notifier.NotifyOnce(ctx, templateName, backofficeUser.ID, c.ID, options); err != nil {
		return fmt.Errorf("failed to notify backoffice: %w", err)
	}
	if err := s.repo.RecordNotification(ctx, store.NotificationRecord{
		ContributionID: c.ID,
		RecipientID:    backofficeUser.ID,
		TemplateName:   templateName,
	}); err != nil {
		return fmt.Errorf("failed to record notification: %w", err)
	}
	return nil
}

// DispatchPendingRefundNotifications sweeps the contributions eligible for
// the stalled-slip refund notice and notifies each contributor. Re-running
// the sweep is safe: freshly notified contributions stay out of the candidate
// set for the full cooldown window.
func (s *Service) DispatchPendingRefundNotifications(ctx context.Context) (int, error) {
	ids, err := s.repo.PendingRefundNotificationCandidates(ctx, s.settings.RefundCooldownDays)
	if err != nil {
		return 0, fmt.Errorf("failed to load refund notification candidates: %w", err)
	}

	cooldown := time.Duration(s.settings.RefundCooldownDays) * 24 * time.Hour
	notified := 0
	for _, id := range ids {
		contribution, err := s.repo.FindContributionByID(ctx, id)
		if err != nil {
			s.logger.Error().Err(err).Str("contribution_id", id.String()).Msg("skipping refund notice candidate")
			continue
		}
		// Re-check recency right before dispatch; an overlapping sweep may
		// have notified this contribution after the candidate query ran.
		last, err := s.repo.LastNotificationAt(ctx, id, store.TemplateSlipRefundNoAccount)
		if err != nil {
			s.logger.Error().Err(err).Str("contribution_id", id.String()).Msg("skipping refund notice candidate")
			continue
		}
		if last != nil && time.Since(*last) <= cooldown {
			continue
		}
		if err := s.NotifyToContributor(ctx, contribution, store.TemplateSlipRefundNoAccount, nil); err != nil {
			s.logger.Error().Err(err).Str("contribution_id", id.String()).Msg("failed to send refund notice")
			continue
		}
		notified++
	}

	s.logger.Info().Int("candidates", len(ids)).Int("notified", notified).Msg("pending refund notification sweep finished")
	return notified, nil
}

// ContributionAttributes assembles the confirmation payload for a
// contribution.
func (s *Service) ContributionAttributes(ctx context.Context, contributionID uuid.UUID) (*domain.ContributionAttributes, error) {
	contribution, err := s.repo.FindContributionByID(ctx, contributionID)
	if err != nil {
		return nil, err
	}
	project, err := s.repo.FindProjectSummary(ctx, contribution.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to load project summary: %w", err)
	}
	user, err := s.repo.FindUserByID(ctx, contribution.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to find contributor: %w", err)
	}

	var reward *domain.RewardTier
	if contribution.RewardID != nil {
		reward, err = s.repo.FindRewardTier(ctx, contribution.ProjectID, *contribution.RewardID)
		if err != nil {
			return nil, fmt.Errorf("failed to load reward tier: %w", err)
		}
	}

	payments, err := s.repo.FindPaymentsByContribution(ctx, contributionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load payments: %w", err)
	}

	attrs := domain.BuildContributionAttributes(*contribution, *project, reward, user.Email, payments)
	return &attrs, nil
}

// ContributionWidget assembles the checkout-page widget payload.
func (s *Service) ContributionWidget(ctx context.Context, contributionID uuid.UUID) (*domain.ContributionWidget, error) {
	contribution, err := s.repo.FindContributionByID(ctx, contributionID)
	if err != nil {
		return nil, err
	}

	var reward *domain.RewardTier
	if contribution.RewardID != nil {
		reward, err = s.repo.FindRewardTier(ctx, contribution.ProjectID, *contribution.RewardID)
		if err != nil {
			return nil, fmt.Errorf("failed to load reward tier: %w", err)
		}
	}

	widget := domain.BuildContributionWidget(*contribution, reward)
	return &widget, nil
}

// ContributionStatus is the derived-state snapshot of a pledge: the
// externally-maintained confirmation bits plus the payment- and
// country-derived predicates.
type ContributionStatus struct {
	Confirmed     bool `json:"confirmed"`
	WasConfirmed  bool `json:"was_confirmed"`
	Pending       bool `json:"pending"`
	SlipPayment   bool `json:"slip_payment"`
	International bool `json:"international"`
}

// Status assembles the contribution's derived-state snapshot.
func (s *Service) Status(ctx context.Context, contributionID uuid.UUID) (*ContributionStatus, error) {
	contribution, err := s.repo.FindContributionByID(ctx, contributionID)
	if err != nil {
		return nil, err
	}
	confirmed, err := s.Confirmed(ctx, contribution)
	if err != nil {
		return nil, fmt.Errorf("failed to read confirmation bits: %w", err)
	}
	wasConfirmed, err := s.WasConfirmed(ctx, contribution)
	if err != nil {
		return nil, fmt.Errorf("failed to read confirmation bits: %w", err)
	}
	payments, err := s.repo.FindPaymentsByContribution(ctx, contributionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load payments: %w", err)
	}

	return &ContributionStatus{
		Confirmed:     confirmed,
		WasConfirmed:  wasConfirmed,
		Pending:       domain.HasPendingPayment(payments),
		SlipPayment:   domain.SlipLastPayment(payments),
		International: s.International(contribution),
	}, nil
}

// Find returns the stored contribution.
func (s *Service) Find(ctx context.Context, contributionID uuid.UUID) (*domain.Contribution, error) {
	return s.repo.FindContributionByID(ctx, contributionID)
}

// ContributionScope names a stored display filter over a project's
// contributions.
type ContributionScope string

const (
	ScopeAvailableToDisplay ContributionScope = "available_to_display"
	ScopeWasConfirmed       ContributionScope = "was_confirmed"
	ScopeNotAnonymous       ContributionScope = "not_anonymous"
)

// ErrUnknownScope rejects a contribution listing with a scope the service
// does not define.
var ErrUnknownScope = errors.New("unknown contribution scope")

// ProjectContributions lists a project's contributions through one of the
// named display scopes. An empty scope defaults to available-to-display.
func (s *Service) ProjectContributions(ctx context.Context, projectID uuid.UUID, scope ContributionScope) ([]domain.Contribution, error) {
	switch scope {
	case "", ScopeAvailableToDisplay:
		return s.repo.AvailableToDisplay(ctx, projectID)
	case ScopeWasConfirmed:
		return s.repo.WasConfirmed(ctx, projectID)
	case ScopeNotAnonymous:
		return s.repo.NotAnonymous(ctx, projectID)
	default:
		return nil, ErrUnknownScope
	}
}

// ConfirmedLastDay lists the contributions confirmed within the last day,
// platform-wide, for the daily confirmation report.
func (s *Service) ConfirmedLastDay(ctx context.Context) ([]domain.Contribution, error) {
	return s.repo.ConfirmedLastDay(ctx)
}

// ProjectRewards lists the reward tiers a project offers, cheapest first. The
// checkout page builds its selector from this list.
func (s *Service) ProjectRewards(ctx context.Context, projectID uuid.UUID) ([]domain.RewardTier, error) {
	return s.repo.ListRewardTiers(ctx, projectID)
}

// ProjectTransfer returns the payout record for a project.
func (s *Service) ProjectTransfer(ctx context.Context, projectID uuid.UUID) (*domain.ProjectTransfer, error) {
	return s.repo.FindProjectTransfer(ctx, projectID)
}
