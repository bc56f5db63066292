package worksession

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xahau-payroll/payroll-engine/internal/model"
	"github.com/xahau-payroll/payroll-engine/internal/payrollerr"
)

type fakeStore struct {
	channel       *model.PaymentChannel
	activeSession *model.WorkSession
	sessionsByID  map[int64]*model.WorkSession
	hoursToday    decimal.Decimal
	nextID        int64

	created   *model.WorkSession
	completed *model.WorkSession
	updated   *model.PaymentChannel
}

func (f *fakeStore) GetChannelForUpdate(ctx context.Context, id int64) (*model.PaymentChannel, error) {
	return f.channel, nil
}

func (f *fakeStore) GetActiveSessionForEmployeeChannel(ctx context.Context, employeeID, channelID int64) (*model.WorkSession, error) {
	return f.activeSession, nil
}

func (f *fakeStore) GetWorkSession(ctx context.Context, id int64) (*model.WorkSession, error) {
	if f.sessionsByID == nil {
		return nil, nil
	}
	return f.sessionsByID[id], nil
}

func (f *fakeStore) CreateWorkSession(ctx context.Context, s *model.WorkSession) (*model.WorkSession, error) {
	f.nextID++
	s.ID = f.nextID
	f.created = s
	return s, nil
}

func (f *fakeStore) CompleteWorkSession(ctx context.Context, id int64, clockOut time.Time, hours decimal.Decimal, reason model.ClosingReason) (*model.WorkSession, error) {
	s := &model.WorkSession{ID: id, ClockOut: &clockOut, Hours: &hours, Status: model.SessionCompleted, ClosingReason: reason}
	f.completed = s
	return s, nil
}

func (f *fakeStore) SumCompletedHoursSince(ctx context.Context, employeeID, channelID int64, since time.Time) (decimal.Decimal, error) {
	return f.hoursToday, nil
}

func (f *fakeStore) UpdateChannel(ctx context.Context, c *model.PaymentChannel) error {
	f.updated = c
	return nil
}

func activeChannel() *model.PaymentChannel {
	return &model.PaymentChannel{
		ID:                         1,
		Status:                     model.ChannelActive,
		HourlyRate:                 decimal.NewFromInt(10),
		EscrowFundedAmount:         decimal.NewFromInt(1000),
		OffChainAccumulatedBalance: decimal.Zero,
	}
}

func TestClockInOpensSession(t *testing.T) {
	f := &fakeStore{channel: activeChannel(), hoursToday: decimal.Zero}

	s, err := clockIn(context.Background(), f, decimal.NewFromInt(8), 1, 1, time.Now())

	require.NoError(t, err)
	assert.Equal(t, model.SessionActive, s.Status)
	assert.Same(t, f.created, s)
}

func TestClockInRejectsWhenChannelNotActive(t *testing.T) {
	ch := activeChannel()
	ch.Status = model.ChannelClosing
	f := &fakeStore{channel: ch}

	_, err := clockIn(context.Background(), f, decimal.NewFromInt(8), 1, 1, time.Now())

	var unexpected *payrollerr.ChannelStateUnexpectedError
	assert.ErrorAs(t, err, &unexpected)
}

func TestClockInRejectsWhenSessionAlreadyActive(t *testing.T) {
	f := &fakeStore{channel: activeChannel(), activeSession: &model.WorkSession{ID: 5}}

	_, err := clockIn(context.Background(), f, decimal.NewFromInt(8), 1, 1, time.Now())

	var already *payrollerr.SessionAlreadyActiveError
	assert.ErrorAs(t, err, &already)
}

func TestClockInRejectsWhenDailyCapReached(t *testing.T) {
	f := &fakeStore{channel: activeChannel(), hoursToday: decimal.NewFromInt(8)}

	_, err := clockIn(context.Background(), f, decimal.NewFromInt(8), 1, 1, time.Now())

	var capErr *payrollerr.DailyHourCapReachedError
	assert.ErrorAs(t, err, &capErr)
}

func TestClockOutComputesHoursAndAccrues(t *testing.T) {
	clockInTime := time.Now().Add(-2 * time.Hour)
	session := &model.WorkSession{ID: 1, EmployeeID: 1, ChannelID: 1, ClockIn: clockInTime, Status: model.SessionActive}
	f := &fakeStore{
		channel:      activeChannel(),
		sessionsByID: map[int64]*model.WorkSession{1: session},
	}

	now := clockInTime.Add(2 * time.Hour)
	result, err := clockOut(context.Background(), f, 1, 1, 1, now, model.ClosingReasonNone)

	require.NoError(t, err)
	require.NotNil(t, result.Hours)
	assert.True(t, result.Hours.Equal(decimal.NewFromInt(2)))
	require.NotNil(t, f.updated)
	assert.True(t, f.updated.OffChainAccumulatedBalance.Equal(decimal.NewFromInt(20)))
	assert.Equal(t, model.ClosingReasonNone, result.ClosingReason)
}

func TestClockOutClampsToRemainingEscrow(t *testing.T) {
	clockInTime := time.Now().Add(-100 * time.Hour)
	session := &model.WorkSession{ID: 1, EmployeeID: 1, ChannelID: 1, ClockIn: clockInTime, Status: model.SessionActive}
	ch := activeChannel()
	ch.EscrowFundedAmount = decimal.NewFromInt(500)
	f := &fakeStore{
		channel:      ch,
		sessionsByID: map[int64]*model.WorkSession{1: session},
	}

	now := clockInTime.Add(100 * time.Hour)
	_, err := clockOut(context.Background(), f, 1, 1, 1, now, model.ClosingReasonNone)

	require.NoError(t, err)
	require.NotNil(t, f.updated)
	assert.True(t, f.updated.OffChainAccumulatedBalance.Equal(decimal.NewFromInt(500)))
}

func TestClockOutIsIdempotentOnCompletedSession(t *testing.T) {
	hours := decimal.NewFromInt(3)
	completedAt := time.Now().Add(-time.Hour)
	session := &model.WorkSession{
		ID: 1, EmployeeID: 1, ChannelID: 1,
		ClockIn: completedAt.Add(-3 * time.Hour), ClockOut: &completedAt, Hours: &hours,
		Status: model.SessionCompleted,
	}
	f := &fakeStore{
		channel:      activeChannel(),
		sessionsByID: map[int64]*model.WorkSession{1: session},
	}

	result, err := clockOut(context.Background(), f, 1, 1, 1, time.Now(), model.ClosingReasonNone)

	require.NoError(t, err)
	assert.Same(t, session, result)
	assert.Nil(t, f.updated)
}

func TestRoundHoursRoundsToSixDecimals(t *testing.T) {
	d := roundHours(90 * time.Minute)
	assert.True(t, d.Equal(decimal.NewFromFloat(1.5)))
}
