package repository

import (
	"database/sql"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xahau-payroll/payroll-engine/internal/model"
	"github.com/xahau-payroll/payroll-engine/internal/payrollerr"
)

// fakeRow is a minimal stand-in for *sql.Row: it assigns pre-built values
// into the destinations passed to Scan, in order, the way the real driver
// would after applying its own type conversions. It lets the scan* helpers
// be exercised without a live Postgres connection.
type fakeRow struct {
	values []any
}

func (f *fakeRow) Scan(dest ...any) error {
	if len(dest) != len(f.values) {
		return errors.New("fakeRow: column count mismatch")
	}
	for i, d := range dest {
		reflect.ValueOf(d).Elem().Set(reflect.ValueOf(f.values[i]))
	}
	return nil
}

func TestScanChannelWithAllNullableColumnsAbsent(t *testing.T) {
	now := time.Now()
	row := &fakeRow{values: []any{
		int64(1), sql.NullString{}, int64(10), int64(20), decimal.NewFromInt(15),
		decimal.NewFromInt(1000), decimal.NewFromInt(5), decimal.NewFromInt(5),
		sql.NullString{}, int64(86400), sql.NullInt64{},
		sql.NullInt64{}, sql.NullTime{}, model.ChannelActive, sql.NullString{},
		"ED" + "00", false, now, now, sql.NullTime{},
	}}

	c, err := scanChannel(row)
	require.NoError(t, err)
	assert.Nil(t, c.ChannelID)
	assert.Nil(t, c.LegacyAccumulatedBalance)
	assert.Nil(t, c.CancelAfterRippleTime)
	assert.Nil(t, c.ExpirationRippleTime)
	assert.Nil(t, c.LastLedgerSync)
	assert.Nil(t, c.ClosureTxHash)
	assert.Nil(t, c.ClosedAt)
	assert.Equal(t, model.ChannelActive, c.Status)
}

func TestScanChannelWithAllNullableColumnsPresent(t *testing.T) {
	now := time.Now()
	row := &fakeRow{values: []any{
		int64(1), sql.NullString{String: "CHAN123", Valid: true}, int64(10), int64(20), decimal.NewFromInt(15),
		decimal.NewFromInt(1000), decimal.NewFromInt(5), decimal.NewFromInt(5),
		sql.NullString{String: "3.500000", Valid: true}, int64(86400), sql.NullInt64{Int64: 111, Valid: true},
		sql.NullInt64{Int64: 222, Valid: true}, sql.NullTime{Time: now, Valid: true}, model.ChannelClosing, sql.NullString{String: "HASHABC", Valid: true},
		"ED00", false, now, now, sql.NullTime{Time: now, Valid: true},
	}}

	c, err := scanChannel(row)
	require.NoError(t, err)
	require.NotNil(t, c.ChannelID)
	assert.Equal(t, "CHAN123", *c.ChannelID)
	require.NotNil(t, c.LegacyAccumulatedBalance)
	assert.True(t, c.LegacyAccumulatedBalance.Equal(decimal.NewFromFloat(3.5)))
	require.NotNil(t, c.CancelAfterRippleTime)
	assert.Equal(t, uint32(111), *c.CancelAfterRippleTime)
	require.NotNil(t, c.ExpirationRippleTime)
	assert.Equal(t, uint32(222), *c.ExpirationRippleTime)
	require.NotNil(t, c.LastLedgerSync)
	require.NotNil(t, c.ClosureTxHash)
	assert.Equal(t, "HASHABC", *c.ClosureTxHash)
	require.NotNil(t, c.ClosedAt)
}

func TestLockErrFromConvertsNoRows(t *testing.T) {
	err := lockErrFrom(sql.ErrNoRows)

	var rowLocked *payrollerr.RowLockedError
	assert.ErrorAs(t, err, &rowLocked)
}

func TestLockErrFromPassesThroughOtherErrors(t *testing.T) {
	other := errors.New("connection reset")
	assert.Equal(t, other, lockErrFrom(other))
}

func TestScanWorkSessionWithHoursAndClockOut(t *testing.T) {
	now := time.Now()
	row := &fakeRow{values: []any{
		int64(1), int64(2), int64(3), now, sql.NullTime{Time: now, Valid: true},
		sql.NullString{String: "8.000000", Valid: true}, model.SessionCompleted, model.ClosingReasonNone,
	}}

	s, err := scanWorkSession(row)
	require.NoError(t, err)
	require.NotNil(t, s.ClockOut)
	require.NotNil(t, s.Hours)
	assert.True(t, s.Hours.Equal(decimal.NewFromInt(8)))
}

func TestScanWorkSessionActiveHasNoHoursOrClockOut(t *testing.T) {
	now := time.Now()
	row := &fakeRow{values: []any{
		int64(1), int64(2), int64(3), now, sql.NullTime{}, sql.NullString{}, model.SessionActive, model.ClosingReasonNone,
	}}

	s, err := scanWorkSession(row)
	require.NoError(t, err)
	assert.Nil(t, s.ClockOut)
	assert.Nil(t, s.Hours)
}
