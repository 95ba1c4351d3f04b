/**
 * @description
 * This file provides the PostgreSQL implementation of the `Repository` interface.
 * It contains all the necessary SQL queries to interact with the database tables
 * related to contributions, users, rewards, payments and notification history.
 *
 * @dependencies
 * - context, time, errors: Standard Go libraries.
 * - github.com/jackc/pgx/v5: The PostgreSQL driver for database operations.
 * - internal/domain: Contains the domain models used for data transfer.
 */

package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/catalisa/contribution-service/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrContributionNotFound    = errors.New("contribution not found")
	ErrUserNotFound            = errors.New("user not found")
	ErrRewardNotFound          = errors.New("reward not found")
	ErrProjectNotFound         = errors.New("project not found")
	ErrProjectTransferNotFound = errors.New("project transfer not found")
)

// PostgresRepository is a concrete implementation of the Repository interface for PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository creates a new instance of PostgresRepository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const contributionColumns = `
	id, project_id, user_id, reward_id, shipping_fee_id, donation_id, origin_id,
	value, anonymous, country_name, address_street, address_number,
	address_complement, address_neighbourhood, address_zip_code, address_city,
	address_state, address_phone_number, payer_document, payer_name, payer_email,
	created_at, updated_at`

func scanContribution(row pgx.Row) (*domain.Contribution, error) {
	var c domain.Contribution
	err := row.Scan(
		&c.ID, &c.ProjectID, &c.UserID, &c.RewardID, &c.ShippingFeeID, &c.DonationID, &c.OriginID,
		&c.Value, &c.Anonymous, &c.CountryName, &c.AddressStreet, &c.AddressNumber,
		&c.AddressComplement, &c.AddressNeighbourhood, &c.AddressZipCode, &c.AddressCity,
		&c.AddressState, &c.AddressPhoneNumber, &c.PayerDocument, &c.PayerName, &c.PayerEmail,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *PostgresRepository) collectContributions(ctx context.Context, query string, args ...any) ([]domain.Contribution, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var contributions []domain.Contribution
	for rows.Next() {
		c, err := scanContribution(rows)
		if err != nil {
			return nil, err
		}
		contributions = append(contributions, *c)
	}
	return contributions, rows.Err()
}

// FindContributionByID retrieves a contribution by its id.
func (r *PostgresRepository) FindContributionByID(ctx context.Context, id uuid.UUID) (*domain.Contribution, error) {
	query := `SELECT ` + contributionColumns + ` FROM contributions WHERE id = $1`
	c, err := scanContribution(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrContributionNotFound
		}
		return nil, err
	}
	return c, nil
}

// CreateContribution inserts a new contribution and fills in the generated
// id and timestamps.
func (r *PostgresRepository) CreateContribution(ctx context.Context, c *domain.Contribution) error {
	query := `
		INSERT INTO contributions (
			project_id, user_id, reward_id, shipping_fee_id, donation_id, origin_id,
			value, anonymous, country_name, address_street, address_number,
			address_complement, address_neighbourhood, address_zip_code, address_city,
			address_state, address_phone_number, payer_document, payer_name, payer_email
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
			$11, $12, $13, $14, $15, $16, $17, $18, $19, $20
		)
		RETURNING id, created_at, updated_at
	`
	return r.db.QueryRow(ctx, query,
		c.ProjectID, c.UserID, c.RewardID, c.ShippingFeeID, c.DonationID, c.OriginID,
		c.Value, c.Anonymous, c.CountryName, c.AddressStreet, c.AddressNumber,
		c.AddressComplement, c.AddressNeighbourhood, c.AddressZipCode, c.AddressCity,
		c.AddressState, c.AddressPhoneNumber, c.PayerDocument, c.PayerName, c.PayerEmail,
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
}

// UpdateContributionReward sets (or clears) the contribution's reward tier.
func (r *PostgresRepository) UpdateContributionReward(ctx context.Context, id uuid.UUID, rewardID *uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `UPDATE contributions SET reward_id = $1, updated_at = now() WHERE id = $2`, rewardID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrContributionNotFound
	}
	return nil
}

// UpdateBillingSnapshot persists the contribution's billing snapshot fields.
func (r *PostgresRepository) UpdateBillingSnapshot(ctx context.Context, c *domain.Contribution) error {
	query := `
		UPDATE contributions SET
			country_name = $1, address_street = $2, address_number = $3,
			address_complement = $4, address_neighbourhood = $5, address_zip_code = $6,
			address_city = $7, address_state = $8, address_phone_number = $9,
			payer_document = $10, payer_name = $11, payer_email = $12,
			updated_at = now()
		WHERE id = $13
	`
	tag, err := r.db.Exec(ctx, query,
		c.CountryName, c.AddressStreet, c.AddressNumber,
		c.AddressComplement, c.AddressNeighbourhood, c.AddressZipCode,
		c.AddressCity, c.AddressState, c.AddressPhoneNumber,
		c.PayerDocument, c.PayerName, c.PayerEmail,
		c.ID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrContributionNotFound
	}
	return nil
}

// ContributionStatusBits reads the externally-maintained confirmation flags.
func (r *PostgresRepository) ContributionStatusBits(ctx context.Context, id uuid.UUID) (bool, bool, error) {
	var confirmed, wasConfirmed bool
	err := r.db.QueryRow(ctx, `SELECT is_confirmed, was_confirmed FROM contributions WHERE id = $1`, id).
		Scan(&confirmed, &wasConfirmed)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, false, ErrContributionNotFound
		}
		return false, false, err
	}
	return confirmed, wasConfirmed, nil
}

const userColumns = `
	id, name, public_name, email, cpf, account_type, country_name,
	address_street, address_number, address_complement, address_neighbourhood,
	address_zip_code, address_city, address_state, phone_number`

func scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	err := row.Scan(
		&u.ID, &u.Name, &u.PublicName, &u.Email, &u.CPF, &u.AccountType, &u.CountryName,
		&u.AddressStreet, &u.AddressNumber, &u.AddressComplement, &u.AddressNeighbourhood,
		&u.AddressZipCode, &u.AddressCity, &u.AddressState, &u.PhoneNumber,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// FindUserByID retrieves a user's billing profile by id.
func (r *PostgresRepository) FindUserByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	u, err := scanUser(r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return u, nil
}

// FindUserByEmail retrieves a user by email, case-insensitively.
func (r *PostgresRepository) FindUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE lower(btrim(email)) = lower(btrim($1))`
	u, err := scanUser(r.db.QueryRow(ctx, query, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return u, nil
}

// UpdateUserBillingInfo applies a reconciled billing update as a single
// statement, so the merge result lands atomically.
func (r *PostgresRepository) UpdateUserBillingInfo(ctx context.Context, userID uuid.UUID, update domain.UserBillingUpdate) error {
	query := `
		UPDATE users SET
			account_type = $1, country_name = $2, address_street = $3,
			address_number = $4, address_complement = $5, address_neighbourhood = $6,
			address_zip_code = $7, address_city = $8, address_state = $9,
			phone_number = $10, cpf = $11, name = $12, public_name = $13,
			updated_at = now()
		WHERE id = $14
	`
	tag, err := r.db.Exec(ctx, query,
		update.AccountType, update.CountryName, update.AddressStreet,
		update.AddressNumber, update.AddressComplement, update.AddressNeighbourhood,
		update.AddressZipCode, update.AddressCity, update.AddressState,
		update.PhoneNumber, update.CPF, update.Name, update.PublicName,
		userID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

// FindRewardTier retrieves a reward tier scoped to its project. A tier
// belonging to a different project is reported as not found.
func (r *PostgresRepository) FindRewardTier(ctx context.Context, projectID, rewardID uuid.UUID) (*domain.RewardTier, error) {
	var tier domain.RewardTier
	query := `
		SELECT id, project_id, minimum_value, description, shipping_options
		FROM rewards
		WHERE id = $1 AND project_id = $2
	`
	err := r.db.QueryRow(ctx, query, rewardID, projectID).
		Scan(&tier.ID, &tier.ProjectID, &tier.MinimumValue, &tier.Description, &tier.ShippingOptions)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRewardNotFound
		}
		return nil, err
	}
	return &tier, nil
}

// ListRewardTiers returns a project's offered tiers ordered by minimum value.
func (r *PostgresRepository) ListRewardTiers(ctx context.Context, projectID uuid.UUID) ([]domain.RewardTier, error) {
	query := `
		SELECT id, project_id, minimum_value, description, shipping_options
		FROM rewards
		WHERE project_id = $1
		ORDER BY minimum_value ASC, id ASC
	`
	rows, err := r.db.Query(ctx, query, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tiers []domain.RewardTier
	for rows.Next() {
		var tier domain.RewardTier
		if err := rows.Scan(&tier.ID, &tier.ProjectID, &tier.MinimumValue, &tier.Description, &tier.ShippingOptions); err != nil {
			return nil, err
		}
		tiers = append(tiers, tier)
	}
	return tiers, rows.Err()
}

// FindProjectSummary loads the denormalized project slice used by the
// contribution attributes projection.
func (r *PostgresRepository) FindProjectSummary(ctx context.Context, projectID uuid.UUID) (*domain.ProjectSummary, error) {
	var p domain.ProjectSummary
	query := `
		SELECT id, name, permalink, category, owner_thumb_url, total_contributions, service_fee
		FROM project_summaries
		WHERE id = $1
	`
	err := r.db.QueryRow(ctx, query, projectID).
		Scan(&p.ID, &p.Name, &p.Permalink, &p.Category, &p.OwnerThumbURL, &p.TotalContributions, &p.ServiceFee)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProjectNotFound
		}
		return nil, err
	}
	return &p, nil
}

// FindPaymentsByContribution returns a contribution's payments oldest first,
// so the last slice element is the latest attempt.
func (r *PostgresRepository) FindPaymentsByContribution(ctx context.Context, contributionID uuid.UUID) ([]domain.Payment, error) {
	query := `
		SELECT id, contribution_id, state, gateway, payment_method, paid_at, gateway_data, created_at
		FROM payments
		WHERE contribution_id = $1
		ORDER BY created_at ASC, id ASC
	`
	rows, err := r.db.Query(ctx, query, contributionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payments []domain.Payment
	for rows.Next() {
		var p domain.Payment
		var gatewayData []byte
		if err := rows.Scan(&p.ID, &p.ContributionID, &p.State, &p.Gateway, &p.PaymentMethod, &p.PaidAt, &gatewayData, &p.CreatedAt); err != nil {
			return nil, err
		}
		if len(gatewayData) > 0 {
			if err := json.Unmarshal(gatewayData, &p.GatewayData); err != nil {
				return nil, fmt.Errorf("failed to decode gateway data for payment %s: %w", p.ID, err)
			}
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

// FindProjectTransfer retrieves the payout record for a project.
func (r *PostgresRepository) FindProjectTransfer(ctx context.Context, projectID uuid.UUID) (*domain.ProjectTransfer, error) {
	var t domain.ProjectTransfer
	query := `
		SELECT project_id, total_amount, status, transferred_at, created_at
		FROM project_transfers
		WHERE project_id = $1
	`
	err := r.db.QueryRow(ctx, query, projectID).
		Scan(&t.ProjectID, &t.TotalAmount, &t.Status, &t.TransferredAt, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProjectTransferNotFound
		}
		return nil, err
	}
	return &t, nil
}

// AvailableToDisplay returns a project's contributions that have at least one
// payment that was neither deleted nor refused, newest first.
func (r *PostgresRepository) AvailableToDisplay(ctx context.Context, projectID uuid.UUID) ([]domain.Contribution, error) {
	query := `
		SELECT ` + contributionColumns + `
		FROM contributions
		WHERE project_id = $1
		  AND EXISTS (
			SELECT true FROM payments p
			WHERE p.contribution_id = contributions.id
			  AND p.state NOT IN ('deleted', 'refused')
		  )
		ORDER BY created_at DESC, id DESC
	`
	return r.collectContributions(ctx, query, projectID)
}

// ConfirmedLastDay returns contributions with a payment paid within the last
// day, newest first.
func (r *PostgresRepository) ConfirmedLastDay(ctx context.Context) ([]domain.Contribution, error) {
	query := `
		SELECT ` + contributionColumns + `
		FROM contributions
		WHERE EXISTS (
			SELECT true FROM payments p
			WHERE p.contribution_id = contributions.id
			  AND p.state = 'paid'
			  AND (current_timestamp - p.paid_at) < '1 day'::interval
		)
		ORDER BY created_at DESC, id DESC
	`
	return r.collectContributions(ctx, query)
}

// WasConfirmed returns a project's contributions that were confirmed at some
// point, newest first.
func (r *PostgresRepository) WasConfirmed(ctx context.Context, projectID uuid.UUID) ([]domain.Contribution, error) {
	query := `
		SELECT ` + contributionColumns + `
		FROM contributions
		WHERE project_id = $1 AND was_confirmed
		ORDER BY created_at DESC, id DESC
	`
	return r.collectContributions(ctx, query, projectID)
}

// NotAnonymous returns a project's publicly displayable contributions,
// newest first.
func (r *PostgresRepository) NotAnonymous(ctx context.Context, projectID uuid.UUID) ([]domain.Contribution, error) {
	query := `
		SELECT ` + contributionColumns + `
		FROM contributions
		WHERE project_id = $1 AND anonymous = false
		ORDER BY created_at DESC, id DESC
	`
	return r.collectContributions(ctx, query, projectID)
}

// CountNotifications counts history entries for a template on a contribution.
func (r *PostgresRepository) CountNotifications(ctx context.Context, contributionID uuid.UUID, templateName string) (int, error) {
	var count int
	query := `SELECT count(*) FROM contribution_notifications WHERE contribution_id = $1 AND template_name = $2`
	if err := r.db.QueryRow(ctx, query, contributionID, templateName).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// LastNotificationAt returns when a template was last sent for a
// contribution, nil when never.
func (r *PostgresRepository) LastNotificationAt(ctx context.Context, contributionID uuid.UUID, templateName string) (*time.Time, error) {
	var last time.Time
	query := `
		SELECT created_at FROM contribution_notifications
		WHERE contribution_id = $1 AND template_name = $2
		ORDER BY created_at DESC
		LIMIT 1
	`
	err := r.db.QueryRow(ctx, query, contributionID, templateName).Scan(&last)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &last, nil
}

// RecordNotification appends a notification history entry.
func (r *PostgresRepository) RecordNotification(ctx context.Context, record NotificationRecord) error {
	query := `
		INSERT INTO contribution_notifications (id, contribution_id, recipient_id, template_name)
		VALUES ($1, $2, $3, $4)
	`
	id := record.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	_, err := r.db.Exec(ctx, query, id, record.ContributionID, record.RecipientID, record.TemplateName)
	return err
}

// PendingRefundNotificationCandidates implements the stalled-slip refund
// eligibility scope: failed project, paid slip payment through the pagarme
// gateway, not a donation, and no template-matching notification more recent
// than the cooldown. Safe to re-run; sending the notification removes the
// contribution from the result set for a full cooldown window.
func (r *PostgresRepository) PendingRefundNotificationCandidates(ctx context.Context, cooldownDays int) ([]uuid.UUID, error) {
	query := `
		SELECT DISTINCT c.id
		FROM contributions c
		JOIN contribution_details cd ON cd.contribution_id = c.id
		WHERE cd.project_state = 'failed'
		  AND c.donation_id IS NULL
		  AND cd.state = 'paid'
		  AND lower(cd.gateway) = 'pagarme'
		  AND lower(cd.payment_method) = 'boletobancario'
		  AND NOT EXISTS (
			SELECT true FROM contribution_notifications un
			WHERE un.contribution_id = c.id
			  AND un.template_name = $1
			  AND un.created_at > current_timestamp - make_interval(days => $2)
		  )
	`
	rows, err := r.db.Query(ctx, query, TemplateSlipRefundNoAccount, cooldownDays)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

var _ Repository = (*PostgresRepository)(nil)
