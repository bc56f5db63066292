package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xahau-payroll/payroll-engine/internal/model"
)

const workSessionColumns = `id, employee_id, channel_id, clock_in, clock_out, hours, status, closing_reason`

func scanWorkSession(row interface{ Scan(dest ...any) error }) (*model.WorkSession, error) {
	var s model.WorkSession
	var clockOut sql.NullTime
	var hours sql.NullString

	err := row.Scan(&s.ID, &s.EmployeeID, &s.ChannelID, &s.ClockIn, &clockOut, &hours, &s.Status, &s.ClosingReason)
	if err != nil {
		return nil, err
	}

	if clockOut.Valid {
		s.ClockOut = &clockOut.Time
	}
	if hours.Valid {
		d, parseErr := decimal.NewFromString(hours.String)
		if parseErr != nil {
			return nil, parseErr
		}
		s.Hours = &d
	}
	return &s, nil
}

func getWorkSession(ctx context.Context, ex executor, id int64) (*model.WorkSession, error) {
	row := ex.QueryRowContext(ctx, `SELECT `+workSessionColumns+` FROM work_sessions WHERE id = $1`, id)
	s, err := scanWorkSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return s, err
}

// getActiveSessionForEmployeeChannel returns the employee's open session
// against channelID, if any. Accrual is serialized per channel (§5), so
// callers that mutate the result should hold the channel row lock.
func getActiveSessionForEmployeeChannel(ctx context.Context, ex executor, employeeID, channelID int64) (*model.WorkSession, error) {
	row := ex.QueryRowContext(ctx,
		`SELECT `+workSessionColumns+` FROM work_sessions
		 WHERE employee_id = $1 AND channel_id = $2 AND status = $3`,
		employeeID, channelID, model.SessionActive)
	s, err := scanWorkSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return s, err
}

func createWorkSession(ctx context.Context, ex executor, s *model.WorkSession) (*model.WorkSession, error) {
	row := ex.QueryRowContext(ctx,
		`INSERT INTO work_sessions (employee_id, channel_id, clock_in, status, closing_reason)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING `+workSessionColumns,
		s.EmployeeID, s.ChannelID, s.ClockIn, model.SessionActive, s.ClosingReason)
	return scanWorkSession(row)
}

func completeWorkSession(ctx context.Context, ex executor, id int64, clockOut time.Time, hours decimal.Decimal, reason model.ClosingReason) (*model.WorkSession, error) {
	row := ex.QueryRowContext(ctx,
		`UPDATE work_sessions SET clock_out = $1, hours = $2, status = $3, closing_reason = $4
		 WHERE id = $5
		 RETURNING `+workSessionColumns,
		clockOut, hours, model.SessionCompleted, reason, id)
	return scanWorkSession(row)
}

// GetActiveSessionForEmployeeChannel looks up an open session outside a
// transaction.
func (r *Repository) GetActiveSessionForEmployeeChannel(ctx context.Context, employeeID, channelID int64) (*model.WorkSession, error) {
	return getActiveSessionForEmployeeChannel(ctx, r.db, employeeID, channelID)
}

// GetActiveSessionForEmployeeChannel looks up an open session within tx.
func (t *Tx) GetActiveSessionForEmployeeChannel(ctx context.Context, employeeID, channelID int64) (*model.WorkSession, error) {
	return getActiveSessionForEmployeeChannel(ctx, t.tx, employeeID, channelID)
}

// GetWorkSession looks up a session by ID within tx, regardless of status.
func (t *Tx) GetWorkSession(ctx context.Context, id int64) (*model.WorkSession, error) {
	return getWorkSession(ctx, t.tx, id)
}

// CreateWorkSession opens a new session within tx.
func (t *Tx) CreateWorkSession(ctx context.Context, s *model.WorkSession) (*model.WorkSession, error) {
	return createWorkSession(ctx, t.tx, s)
}

// CompleteWorkSession closes an open session within tx, recording the
// computed hours and, when applicable, why it was closed other than by the
// worker's own clock-out.
func (t *Tx) CompleteWorkSession(ctx context.Context, id int64, clockOut time.Time, hours decimal.Decimal, reason model.ClosingReason) (*model.WorkSession, error) {
	return completeWorkSession(ctx, t.tx, id, clockOut, hours, reason)
}

func sumCompletedHoursSince(ctx context.Context, ex executor, employeeID, channelID int64, since time.Time) (decimal.Decimal, error) {
	var total sql.NullString
	err := ex.QueryRowContext(ctx,
		`SELECT SUM(hours) FROM work_sessions
		 WHERE employee_id = $1 AND channel_id = $2 AND status = $3 AND clock_in >= $4`,
		employeeID, channelID, model.SessionCompleted, since).Scan(&total)
	if err != nil {
		return decimal.Zero, err
	}
	if !total.Valid {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(total.String)
}

// SumCompletedHoursSince totals the completed hours an employee has logged
// against a channel since the given time, for the daily-hour guard (§4.4).
func (t *Tx) SumCompletedHoursSince(ctx context.Context, employeeID, channelID int64, since time.Time) (decimal.Decimal, error) {
	return sumCompletedHoursSince(ctx, t.tx, employeeID, channelID, since)
}
