/**
 * @description
 * This file defines the `Repository` interface, which specifies the contract for all
 * data access operations required by the contribution-service. By defining an interface,
 * we decouple the application's business logic from the specific database implementation
 * (e.g., PostgreSQL), making the code more modular and easier to test.
 *
 * @dependencies
 * - context, time: Standard Go libraries.
 * - github.com/google/uuid: For UUID generation and handling.
 * - internal/domain: For the service's domain models.
 */

package store

import (
	"context"
	"time"

	"github.com/catalisa/contribution-service/internal/domain"
	"github.com/google/uuid"
)

// Notification templates this service dedups on.
const (
	TemplateSlipRefundNoAccount = "contribution_project_unsuccessful_slip_no_account"
	TemplateInvalidRefund       = "invalid_refund"
	TemplateOverRefundLimit     = "over_refund_limit"
)

// ContributionDetail is one row of the read-only denormalized detail view
// joining a contribution to its project and payment state.
type ContributionDetail struct {
	ContributionID uuid.UUID `json:"contribution_id"`
	ProjectState   string    `json:"project_state"`
	State          string    `json:"state"`
	Gateway        string    `json:"gateway"`
	PaymentMethod  string    `json:"payment_method"`
}

// NotificationRecord is one entry of a contribution's notification history.
type NotificationRecord struct {
	ID             uuid.UUID `json:"id"`
	ContributionID uuid.UUID `json:"contribution_id"`
	RecipientID    uuid.UUID `json:"recipient_id"`
	TemplateName   string    `json:"template_name"`
	CreatedAt      time.Time `json:"created_at"`
}

// Repository defines the set of methods for interacting with the database.
type Repository interface {
	// Contribution methods
	FindContributionByID(ctx context.Context, id uuid.UUID) (*domain.Contribution, error)
	CreateContribution(ctx context.Context, c *domain.Contribution) error
	UpdateContributionReward(ctx context.Context, id uuid.UUID, rewardID *uuid.UUID) error
	UpdateBillingSnapshot(ctx context.Context, c *domain.Contribution) error
	// Confirmation bits are maintained by payment processing; read fresh.
	ContributionStatusBits(ctx context.Context, id uuid.UUID) (confirmed bool, wasConfirmed bool, err error)

	// User methods
	FindUserByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	FindUserByEmail(ctx context.Context, email string) (*domain.User, error)
	UpdateUserBillingInfo(ctx context.Context, userID uuid.UUID, update domain.UserBillingUpdate) error

	// Reward methods. Lookups are project-scoped: a tier from another
	// project is not found.
	FindRewardTier(ctx context.Context, projectID, rewardID uuid.UUID) (*domain.RewardTier, error)
	ListRewardTiers(ctx context.Context, projectID uuid.UUID) ([]domain.RewardTier, error)

	// Project and payment methods
	FindProjectSummary(ctx context.Context, projectID uuid.UUID) (*domain.ProjectSummary, error)
	FindPaymentsByContribution(ctx context.Context, contributionID uuid.UUID) ([]domain.Payment, error)
	FindProjectTransfer(ctx context.Context, projectID uuid.UUID) (*domain.ProjectTransfer, error)

	// Named scope queries over contributions, newest first.
	AvailableToDisplay(ctx context.Context, projectID uuid.UUID) ([]domain.Contribution, error)
	ConfirmedLastDay(ctx context.Context) ([]domain.Contribution, error)
	WasConfirmed(ctx context.Context, projectID uuid.UUID) ([]domain.Contribution, error)
	NotAnonymous(ctx context.Context, projectID uuid.UUID) ([]domain.Contribution, error)

	// Notification history methods
	CountNotifications(ctx context.Context, contributionID uuid.UUID, templateName string) (int, error)
	LastNotificationAt(ctx context.Context, contributionID uuid.UUID, templateName string) (*time.Time, error)
	RecordNotification(ctx context.Context, record NotificationRecord) error
	// Distinct ids of contributions eligible for the stalled-slip refund
	// notice: failed project, paid slip payment via the pagarme gateway, not
	// a donation, and no template-matching notification inside the cooldown.
	PendingRefundNotificationCandidates(ctx context.Context, cooldownDays int) ([]uuid.UUID, error)
}
