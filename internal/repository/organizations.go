package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/xahau-payroll/payroll-engine/internal/model"
)

const organizationColumns = `id, escrow_wallet, name, created_at, updated_at`

func scanOrganization(row interface{ Scan(dest ...any) error }) (*model.Organization, error) {
	var o model.Organization
	if err := row.Scan(&o.ID, &o.EscrowWallet, &o.Name, &o.CreatedAt, &o.UpdatedAt); err != nil {
		return nil, err
	}
	return &o, nil
}

func getOrganizationByWallet(ctx context.Context, ex executor, wallet string) (*model.Organization, error) {
	row := ex.QueryRowContext(ctx, `SELECT `+organizationColumns+` FROM organizations WHERE escrow_wallet = $1`, wallet)
	org, err := scanOrganization(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return org, err
}

func createOrganization(ctx context.Context, ex executor, escrowWallet, name string) (*model.Organization, error) {
	row := ex.QueryRowContext(ctx,
		`INSERT INTO organizations (escrow_wallet, name) VALUES ($1, $2)
		 RETURNING `+organizationColumns,
		escrowWallet, name)
	return scanOrganization(row)
}

// GetOrganizationByWallet looks up an organization outside a transaction.
func (r *Repository) GetOrganizationByWallet(ctx context.Context, wallet string) (*model.Organization, error) {
	return getOrganizationByWallet(ctx, r.db, wallet)
}

// ListOrganizations returns every organization, for the reconciler's
// periodic sync-all-organizations ticker (§4.5).
func (r *Repository) ListOrganizations(ctx context.Context) ([]*model.Organization, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+organizationColumns+` FROM organizations ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Organization
	for rows.Next() {
		o, err := scanOrganization(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// CreateOrganization creates an organization outside a transaction.
func (r *Repository) CreateOrganization(ctx context.Context, escrowWallet, name string) (*model.Organization, error) {
	return createOrganization(ctx, r.db, escrowWallet, name)
}

// GetOrganizationByWallet looks up an organization within tx.
func (t *Tx) GetOrganizationByWallet(ctx context.Context, wallet string) (*model.Organization, error) {
	return getOrganizationByWallet(ctx, t.tx, wallet)
}

// CreateOrganization creates an organization within tx.
func (t *Tx) CreateOrganization(ctx context.Context, escrowWallet, name string) (*model.Organization, error) {
	return createOrganization(ctx, t.tx, escrowWallet, name)
}
