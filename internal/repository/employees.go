package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/xahau-payroll/payroll-engine/internal/model"
)

const employeeColumns = `id, organization_id, worker_wallet, hourly_rate, status, created_at, updated_at`

func scanEmployee(row interface{ Scan(dest ...any) error }) (*model.Employee, error) {
	var e model.Employee
	if err := row.Scan(&e.ID, &e.OrganizationID, &e.WorkerWallet, &e.HourlyRate, &e.Status, &e.CreatedAt, &e.UpdatedAt); err != nil {
		return nil, err
	}
	return &e, nil
}

func getEmployee(ctx context.Context, ex executor, id int64) (*model.Employee, error) {
	row := ex.QueryRowContext(ctx, `SELECT `+employeeColumns+` FROM employees WHERE id = $1`, id)
	e, err := scanEmployee(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return e, err
}

func getEmployeeByWallet(ctx context.Context, ex executor, organizationID int64, workerWallet string) (*model.Employee, error) {
	row := ex.QueryRowContext(ctx,
		`SELECT `+employeeColumns+` FROM employees WHERE organization_id = $1 AND worker_wallet = $2`,
		organizationID, workerWallet)
	e, err := scanEmployee(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return e, err
}

func createEmployee(ctx context.Context, ex executor, e *model.Employee) (*model.Employee, error) {
	row := ex.QueryRowContext(ctx,
		`INSERT INTO employees (organization_id, worker_wallet, hourly_rate, status)
		 VALUES ($1, $2, $3, $4)
		 RETURNING `+employeeColumns,
		e.OrganizationID, e.WorkerWallet, e.HourlyRate, e.Status)
	return scanEmployee(row)
}

// GetEmployee looks up an employee by ID outside a transaction.
func (r *Repository) GetEmployee(ctx context.Context, id int64) (*model.Employee, error) {
	return getEmployee(ctx, r.db, id)
}

// GetEmployeeByWallet looks up an employee by (organization, worker wallet).
func (r *Repository) GetEmployeeByWallet(ctx context.Context, organizationID int64, workerWallet string) (*model.Employee, error) {
	return getEmployeeByWallet(ctx, r.db, organizationID, workerWallet)
}

// CreateEmployee creates an employee outside a transaction.
func (r *Repository) CreateEmployee(ctx context.Context, e *model.Employee) (*model.Employee, error) {
	return createEmployee(ctx, r.db, e)
}

// GetEmployee looks up an employee by ID within tx.
func (t *Tx) GetEmployee(ctx context.Context, id int64) (*model.Employee, error) {
	return getEmployee(ctx, t.tx, id)
}
