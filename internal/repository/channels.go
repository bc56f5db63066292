package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xahau-payroll/payroll-engine/internal/model"
	"github.com/xahau-payroll/payroll-engine/internal/payrollerr"
)

const channelColumns = `id, channel_id, organization_id, employee_id, hourly_rate,
	escrow_funded_amount, off_chain_accumulated_balance, on_chain_balance,
	legacy_accumulated_balance, settle_delay_seconds, cancel_after_ripple_time,
	expiration_ripple_time, last_ledger_sync, status, closure_tx_hash,
	public_key, imported, created_at, updated_at, closed_at`

// scanChannel reads a payment_channels row. Every nullable column is scanned
// into a sql.Null* intermediate first: database/sql's Scan does not support
// a pointer-to-pointer destination for representing NULL, so each optional
// model field is populated by hand afterward.
func scanChannel(row interface{ Scan(dest ...any) error }) (*model.PaymentChannel, error) {
	var c model.PaymentChannel
	var channelID, legacyBalance, closureTxHash sql.NullString
	var cancelAfter, expiration sql.NullInt64
	var lastSync, closedAt sql.NullTime

	err := row.Scan(
		&c.ID, &channelID, &c.OrganizationID, &c.EmployeeID, &c.HourlyRate,
		&c.EscrowFundedAmount, &c.OffChainAccumulatedBalance, &c.OnChainBalance,
		&legacyBalance, &c.SettleDelaySeconds, &cancelAfter,
		&expiration, &lastSync, &c.Status, &closureTxHash,
		&c.PublicKey, &c.Imported, &c.CreatedAt, &c.UpdatedAt, &closedAt,
	)
	if err != nil {
		return nil, err
	}

	if channelID.Valid {
		c.ChannelID = &channelID.String
	}
	if closureTxHash.Valid {
		c.ClosureTxHash = &closureTxHash.String
	}
	if legacyBalance.Valid {
		d, parseErr := decimal.NewFromString(legacyBalance.String)
		if parseErr != nil {
			return nil, parseErr
		}
		c.LegacyAccumulatedBalance = &d
	}
	if cancelAfter.Valid {
		v := uint32(cancelAfter.Int64)
		c.CancelAfterRippleTime = &v
	}
	if expiration.Valid {
		v := uint32(expiration.Int64)
		c.ExpirationRippleTime = &v
	}
	if lastSync.Valid {
		c.LastLedgerSync = &lastSync.Time
	}
	if closedAt.Valid {
		c.ClosedAt = &closedAt.Time
	}

	return &c, nil
}

func getChannel(ctx context.Context, ex executor, id int64, forUpdate bool) (*model.PaymentChannel, error) {
	query := `SELECT ` + channelColumns + ` FROM payment_channels WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	row := ex.QueryRowContext(ctx, query, id)
	c, err := scanChannel(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return c, err
}

func getChannelByChannelID(ctx context.Context, ex executor, channelID string, forUpdate bool) (*model.PaymentChannel, error) {
	query := `SELECT ` + channelColumns + ` FROM payment_channels WHERE channel_id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	row := ex.QueryRowContext(ctx, query, channelID)
	c, err := scanChannel(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return c, err
}

func listChannelsByOrganization(ctx context.Context, ex executor, organizationID int64) ([]*model.PaymentChannel, error) {
	rows, err := ex.QueryContext(ctx, `SELECT `+channelColumns+` FROM payment_channels WHERE organization_id = $1`, organizationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.PaymentChannel
	for rows.Next() {
		c, err := scanChannel(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func createChannel(ctx context.Context, ex executor, c *model.PaymentChannel) (*model.PaymentChannel, error) {
	if c.ChannelID == nil || model.IsPlaceholder(*c.ChannelID) {
		return nil, &payrollerr.InvariantViolationError{Name: "channel_id_missing_or_placeholder"}
	}
	row := ex.QueryRowContext(ctx,
		`INSERT INTO payment_channels (
			channel_id, organization_id, employee_id, hourly_rate, escrow_funded_amount,
			off_chain_accumulated_balance, on_chain_balance, legacy_accumulated_balance,
			settle_delay_seconds, cancel_after_ripple_time, expiration_ripple_time,
			last_ledger_sync, status, closure_tx_hash, public_key, imported
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
		RETURNING `+channelColumns,
		c.ChannelID, c.OrganizationID, c.EmployeeID, c.HourlyRate, c.EscrowFundedAmount,
		c.OffChainAccumulatedBalance, c.OnChainBalance, c.LegacyAccumulatedBalance,
		c.SettleDelaySeconds, c.CancelAfterRippleTime, c.ExpirationRippleTime,
		c.LastLedgerSync, c.Status, c.ClosureTxHash, c.PublicKey, c.Imported,
	)
	return scanChannel(row)
}

func updateChannel(ctx context.Context, ex executor, c *model.PaymentChannel) error {
	_, err := ex.ExecContext(ctx,
		`UPDATE payment_channels SET
			off_chain_accumulated_balance = $1,
			on_chain_balance = $2,
			cancel_after_ripple_time = $3,
			expiration_ripple_time = $4,
			last_ledger_sync = $5,
			status = $6,
			closure_tx_hash = $7,
			escrow_funded_amount = $8,
			updated_at = now(),
			closed_at = $9
		WHERE id = $10`,
		c.OffChainAccumulatedBalance, c.OnChainBalance, c.CancelAfterRippleTime,
		c.ExpirationRippleTime, c.LastLedgerSync, c.Status, c.ClosureTxHash,
		c.EscrowFundedAmount, c.ClosedAt, c.ID,
	)
	return err
}

// GetChannel looks up a channel by ID outside a transaction (no lock).
func (r *Repository) GetChannel(ctx context.Context, id int64) (*model.PaymentChannel, error) {
	return getChannel(ctx, r.db, id, false)
}

// GetChannelByChannelID looks up a channel by its ledger channel ID.
func (r *Repository) GetChannelByChannelID(ctx context.Context, channelID string) (*model.PaymentChannel, error) {
	return getChannelByChannelID(ctx, r.db, channelID, false)
}

// ListChannelsByOrganization lists all channels owned by an organization.
func (r *Repository) ListChannelsByOrganization(ctx context.Context, organizationID int64) ([]*model.PaymentChannel, error) {
	return listChannelsByOrganization(ctx, r.db, organizationID)
}

// CreateChannel persists a channel row. Callers must have already resolved
// c.ChannelID (I4): this method does not accept a nil or placeholder ID.
func (r *Repository) CreateChannel(ctx context.Context, c *model.PaymentChannel) (*model.PaymentChannel, error) {
	return createChannel(ctx, r.db, c)
}

// GetChannelForUpdate locks a channel row for the duration of the enclosing
// transaction (§5 row-level locking).
func (t *Tx) GetChannelForUpdate(ctx context.Context, id int64) (*model.PaymentChannel, error) {
	return getChannel(ctx, t.tx, id, true)
}

// GetChannelByChannelIDForUpdate locks a channel row by its ledger channel ID.
func (t *Tx) GetChannelByChannelIDForUpdate(ctx context.Context, channelID string) (*model.PaymentChannel, error) {
	return getChannelByChannelIDForUpdate(ctx, t.tx, channelID)
}

func getChannelByChannelIDForUpdate(ctx context.Context, ex executor, channelID string) (*model.PaymentChannel, error) {
	row := ex.QueryRowContext(ctx, `SELECT `+channelColumns+` FROM payment_channels WHERE channel_id = $1 FOR UPDATE`, channelID)
	c, err := scanChannel(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, lockErrFrom(err)
	}
	return c, err
}

// CreateChannel persists a channel row within tx.
func (t *Tx) CreateChannel(ctx context.Context, c *model.PaymentChannel) (*model.PaymentChannel, error) {
	return createChannel(ctx, t.tx, c)
}

// UpdateChannel writes the mutable fields of a channel back within tx.
func (t *Tx) UpdateChannel(ctx context.Context, c *model.PaymentChannel) error {
	return updateChannel(ctx, t.tx, c)
}

// ListChannelsByOrganization lists channels within tx.
func (t *Tx) ListChannelsByOrganization(ctx context.Context, organizationID int64) ([]*model.PaymentChannel, error) {
	return listChannelsByOrganization(ctx, t.tx, organizationID)
}

// ApplyBalanceCorrection writes a manual off_chain_accumulated_balance
// adjustment and its audit row atomically (I2(b)); callers must already hold
// the channel row lock.
func (t *Tx) ApplyBalanceCorrection(ctx context.Context, channelDBID int64, newBalance decimal.Decimal, reason, correctedBy string) error {
	var previous decimal.Decimal
	if err := t.tx.QueryRowContext(ctx, `SELECT off_chain_accumulated_balance FROM payment_channels WHERE id = $1 FOR UPDATE`, channelDBID).Scan(&previous); err != nil {
		return lockErrFrom(err)
	}

	if _, err := t.tx.ExecContext(ctx,
		`UPDATE payment_channels SET off_chain_accumulated_balance = $1, updated_at = now() WHERE id = $2`,
		newBalance, channelDBID); err != nil {
		return err
	}

	_, err := t.tx.ExecContext(ctx,
		`INSERT INTO balance_corrections (channel_id, previous_balance, new_balance, reason, corrected_by, corrected_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		channelDBID, previous, newBalance, reason, correctedBy, time.Now())
	return err
}
