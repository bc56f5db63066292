// Package worksession implements the Work-Session Tracker (§4.4): clock-in
// and clock-out against an active payment channel, the daily-hour cap, and
// accrual of earned hours into the channel's off-chain balance.
package worksession

import (
	"context"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xahau-payroll/payroll-engine/internal/model"
	"github.com/xahau-payroll/payroll-engine/internal/payrollerr"
	"github.com/xahau-payroll/payroll-engine/internal/repository"
)

// store is the subset of *repository.Tx the tracker needs. It is satisfied
// structurally by *repository.Tx; tests supply a fake.
type store interface {
	GetChannelForUpdate(ctx context.Context, id int64) (*model.PaymentChannel, error)
	GetActiveSessionForEmployeeChannel(ctx context.Context, employeeID, channelID int64) (*model.WorkSession, error)
	GetWorkSession(ctx context.Context, id int64) (*model.WorkSession, error)
	CreateWorkSession(ctx context.Context, s *model.WorkSession) (*model.WorkSession, error)
	CompleteWorkSession(ctx context.Context, id int64, clockOut time.Time, hours decimal.Decimal, reason model.ClosingReason) (*model.WorkSession, error)
	SumCompletedHoursSince(ctx context.Context, employeeID, channelID int64, since time.Time) (decimal.Decimal, error)
	UpdateChannel(ctx context.Context, c *model.PaymentChannel) error
}

const secondsPerHour = 3600

// Tracker clocks employees in and out of active channels.
type Tracker struct {
	repo          *repository.Repository
	logger        *slog.Logger
	maxDailyHours decimal.Decimal
}

// New constructs a Tracker. maxDailyHours of zero falls back to the default
// of 8 (§4.4).
func New(repo *repository.Repository, logger *slog.Logger, maxDailyHours float64) *Tracker {
	d := decimal.NewFromFloat(maxDailyHours)
	if d.LessThanOrEqual(decimal.Zero) {
		d = decimal.NewFromInt(8)
	}
	return &Tracker{repo: repo, logger: logger, maxDailyHours: d}
}

// ClockIn opens a new session for employeeID against channelDBID at now.
func (t *Tracker) ClockIn(ctx context.Context, employeeID, channelDBID int64, now time.Time) (*model.WorkSession, error) {
	var result *model.WorkSession
	err := t.repo.WithTransaction(ctx, func(tx *repository.Tx) error {
		s, err := clockIn(ctx, tx, t.maxDailyHours, employeeID, channelDBID, now)
		if err != nil {
			return err
		}
		result = s
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func clockIn(ctx context.Context, s store, maxDailyHours decimal.Decimal, employeeID, channelDBID int64, now time.Time) (*model.WorkSession, error) {
	channel, err := s.GetChannelForUpdate(ctx, channelDBID)
	if err != nil {
		return nil, err
	}
	if channel == nil {
		return nil, &payrollerr.InvalidParametersError{Reason: "channel not found"}
	}
	if channel.Status != model.ChannelActive {
		return nil, &payrollerr.ChannelStateUnexpectedError{Got: string(channel.Status), Want: string(model.ChannelActive)}
	}

	active, err := s.GetActiveSessionForEmployeeChannel(ctx, employeeID, channelDBID)
	if err != nil {
		return nil, err
	}
	if active != nil {
		return nil, &payrollerr.SessionAlreadyActiveError{EmployeeID: employeeID, ChannelID: channelDBID}
	}

	todayStart := startOfDay(now)
	accumulated, err := s.SumCompletedHoursSince(ctx, employeeID, channelDBID, todayStart)
	if err != nil {
		return nil, err
	}
	if accumulated.GreaterThanOrEqual(maxDailyHours) {
		return nil, &payrollerr.DailyHourCapReachedError{ChannelID: channelDBID, MaxHours: maxDailyHours}
	}

	return s.CreateWorkSession(ctx, &model.WorkSession{
		EmployeeID: employeeID,
		ChannelID:  channelDBID,
		ClockIn:    now,
		Status:     model.SessionActive,
	})
}

// ClockOut closes sessionID at now, accruing earned hours into the channel's
// off-chain balance. Calling it again on an already-completed session
// returns the recorded values without re-accruing (§4.4 idempotency).
func (t *Tracker) ClockOut(ctx context.Context, sessionID, employeeID, channelDBID int64, now time.Time) (*model.WorkSession, error) {
	var result *model.WorkSession
	err := t.repo.WithTransaction(ctx, func(tx *repository.Tx) error {
		s, err := clockOut(ctx, tx, sessionID, employeeID, channelDBID, now, model.ClosingReasonNone)
		if err != nil {
			return err
		}
		result = s
		return nil
	})
	if err != nil {
		return nil, err
	}
	t.logger.Info("work session ended", "session_id", result.ID, "channel_id", channelDBID, "employee_id", employeeID, "hours", result.Hours, "closing_reason", result.ClosingReason)
	return result, nil
}

// ForceCloseActive completes the employee's open session on channelDBID, if
// any, logged with closing reason forced_by_closure (§4.4 forced-completion
// supplement invoked by the Lifecycle Controller before a close claim is
// built). It is a no-op if no session is open.
func (t *Tracker) ForceCloseActive(ctx context.Context, tx *repository.Tx, employeeID, channelDBID int64, now time.Time) (*model.WorkSession, error) {
	active, err := tx.GetActiveSessionForEmployeeChannel(ctx, employeeID, channelDBID)
	if err != nil {
		return nil, err
	}
	if active == nil {
		return nil, nil
	}
	completed, err := clockOut(ctx, tx, active.ID, employeeID, channelDBID, now, model.ClosingReasonForcedByClosure)
	if err != nil {
		return nil, err
	}
	t.logger.Info("work session force-closed for channel closure", "session_id", completed.ID, "channel_id", channelDBID, "employee_id", employeeID, "hours", completed.Hours)
	return completed, nil
}

func clockOut(ctx context.Context, s store, sessionID, employeeID, channelDBID int64, now time.Time, reason model.ClosingReason) (*model.WorkSession, error) {
	session, err := s.GetWorkSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil || session.EmployeeID != employeeID || session.ChannelID != channelDBID {
		return nil, &payrollerr.InvalidParametersError{Reason: "no session with that id for this employee and channel"}
	}
	if session.Status == model.SessionCompleted {
		// Idempotent re-submission: return the already-recorded values
		// without a second accrual (§4.4).
		return session, nil
	}

	channel, err := s.GetChannelForUpdate(ctx, channelDBID)
	if err != nil {
		return nil, err
	}
	if channel == nil {
		return nil, &payrollerr.InvalidParametersError{Reason: "channel not found"}
	}

	hours := roundHours(now.Sub(session.ClockIn))
	earned := hours.Mul(channel.HourlyRate)

	remaining := channel.EscrowFundedAmount.Sub(channel.OffChainAccumulatedBalance)
	if channel.OffChainAccumulatedBalance.Add(earned).GreaterThan(channel.EscrowFundedAmount) {
		earned = remaining
		if reason == model.ClosingReasonNone {
			reason = model.ClosingReasonEscrowCapReached
		}
	}
	if earned.IsNegative() {
		earned = decimal.Zero
	}

	completed, err := s.CompleteWorkSession(ctx, sessionID, now, hours, reason)
	if err != nil {
		return nil, err
	}

	channel.OffChainAccumulatedBalance = channel.OffChainAccumulatedBalance.Add(earned)
	if err := s.UpdateChannel(ctx, channel); err != nil {
		return nil, err
	}

	return completed, nil
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// roundHours converts a duration to hours rounded to 6 decimal places (§4.4).
func roundHours(d time.Duration) decimal.Decimal {
	seconds := decimal.NewFromFloat(d.Seconds())
	return seconds.Div(decimal.NewFromInt(secondsPerHour)).Round(6)
}
