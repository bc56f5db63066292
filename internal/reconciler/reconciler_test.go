package reconciler

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xahau-payroll/payroll-engine/internal/ledgerclient"
	"github.com/xahau-payroll/payroll-engine/internal/model"
)

func TestDecideNotFoundAdoptsRecordedClosure(t *testing.T) {
	closureHash := "ABCD"
	ch := &model.PaymentChannel{ID: 1, Status: model.ChannelClosing, ClosureTxHash: &closureHash}

	out := decideNotFound(ch, time.Now())

	require.True(t, out.changed)
	assert.False(t, out.anomalous)
	assert.Empty(t, out.notifyPayload)
	assert.Equal(t, model.ChannelClosed, out.channel.Status)
}

func TestDecideNotFoundMarksVanishedWithoutRecordedClosure(t *testing.T) {
	ch := &model.PaymentChannel{ID: 1, Status: model.ChannelActive}

	out := decideNotFound(ch, time.Now())

	require.True(t, out.changed)
	assert.True(t, out.anomalous)
	assert.NotEmpty(t, out.notifyPayload)
	assert.Equal(t, model.ChannelClosed, out.channel.Status)
}

func TestDecideNotFoundIsNoOpOnAlreadyClosedChannel(t *testing.T) {
	ch := &model.PaymentChannel{ID: 1, Status: model.ChannelClosed}

	out := decideNotFound(ch, time.Now())

	assert.False(t, out.changed)
}

func TestDecideFoundUpdatesOnChainBalance(t *testing.T) {
	ch := &model.PaymentChannel{ID: 1, Status: model.ChannelActive}
	entry := &ledgerclient.ChannelEntry{BalanceDrops: 5_000_000}

	got := decideFound(ch, entry, time.Now())

	assert.True(t, got.OnChainBalance.Equal(decimal.NewFromInt(5)))
	assert.NotNil(t, got.LastLedgerSync)
}

func TestDecideFoundPromotesExpiredClosingChannelToClosed(t *testing.T) {
	now := time.Now()
	past := uint32(0)
	ch := &model.PaymentChannel{ID: 1, Status: model.ChannelClosing}
	entry := &ledgerclient.ChannelEntry{BalanceDrops: 0, Expiration: &past}

	got := decideFound(ch, entry, now)

	assert.Equal(t, model.ChannelClosed, got.Status)
	assert.NotNil(t, got.ClosedAt)
}

func TestDecideFoundLeavesActiveChannelActiveRegardlessOfExpiration(t *testing.T) {
	past := uint32(0)
	ch := &model.PaymentChannel{ID: 1, Status: model.ChannelActive}
	entry := &ledgerclient.ChannelEntry{BalanceDrops: 0, Expiration: &past}

	got := decideFound(ch, entry, time.Now())

	assert.Equal(t, model.ChannelActive, got.Status)
}
