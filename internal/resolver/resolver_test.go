package resolver

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xahau-payroll/payroll-engine/internal/ledgerclient"
	"github.com/xahau-payroll/payroll-engine/internal/payrollerr"
)

type fakeLedger struct {
	tx             *ledgerclient.TxResult
	txErr          error
	channelsByCall [][]ledgerclient.AccountChannel
	channelsErr    error
	calls          int
}

func (f *fakeLedger) FetchTx(hash string) (*ledgerclient.TxResult, error) {
	return f.tx, f.txErr
}

func (f *fakeLedger) FetchAccountChannels(source, destination string) ([]ledgerclient.AccountChannel, error) {
	if f.channelsErr != nil {
		return nil, f.channelsErr
	}
	defer func() { f.calls++ }()
	if f.calls < len(f.channelsByCall) {
		return f.channelsByCall[f.calls], nil
	}
	return nil, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestResolveFromTxMetaCreatedNode(t *testing.T) {
	ledger := &fakeLedger{
		tx: &ledgerclient.TxResult{
			Validated: true,
			CreatedNodes: []ledgerclient.AffectedCreatedNode{
				{LedgerEntryType: "AccountRoot", LedgerIndex: "IGNORE"},
				{LedgerEntryType: "PayChannel", LedgerIndex: "ABCDEF0123"},
			},
		},
	}
	r := New(ledger, testLogger(), []time.Duration{time.Millisecond})

	channelID, err := r.Resolve(context.Background(), Input{TxHash: "HASH1"})

	require.NoError(t, err)
	assert.Equal(t, "ABCDEF0123", channelID)
}

func TestResolveFallsBackToAccountChannelsDisambiguation(t *testing.T) {
	ledger := &fakeLedger{
		tx: &ledgerclient.TxResult{Validated: false},
		channelsByCall: [][]ledgerclient.AccountChannel{
			{
				{ChannelID: "WRONG1", AmountDrops: 1, SettleDelay: 99},
			},
			{
				{ChannelID: "WRONG2", AmountDrops: 1, SettleDelay: 99},
				{ChannelID: "RIGHT", AmountDrops: 240_000_000, SettleDelay: 3600},
			},
		},
	}
	r := New(ledger, testLogger(), []time.Duration{time.Millisecond, time.Millisecond})

	channelID, err := r.Resolve(context.Background(), Input{
		TxHash:                     "HASH2",
		Source:                     "rSource",
		Destination:                "rDest",
		ExpectedAmountDrops:        240_000_000,
		ExpectedSettleDelaySeconds: 3600,
	})

	require.NoError(t, err)
	assert.Equal(t, "RIGHT", channelID)
}

func TestResolveAmbiguousMatchKeepsRetrying(t *testing.T) {
	ledger := &fakeLedger{
		tx: &ledgerclient.TxResult{Validated: false},
		channelsByCall: [][]ledgerclient.AccountChannel{
			{
				{ChannelID: "A", AmountDrops: 100, SettleDelay: 10},
				{ChannelID: "B", AmountDrops: 100, SettleDelay: 10},
			},
		},
	}
	r := New(ledger, testLogger(), []time.Duration{time.Millisecond, time.Millisecond})

	_, err := r.Resolve(context.Background(), Input{
		TxHash: "HASH3", ExpectedAmountDrops: 100, ExpectedSettleDelaySeconds: 10,
	})

	var unresolved *payrollerr.ChannelIdUnresolvedError
	assert.ErrorAs(t, err, &unresolved)
	assert.Equal(t, 2, ledger.calls)
}

func TestResolveExhaustsScheduleAndFails(t *testing.T) {
	ledger := &fakeLedger{txErr: errors.New("tx not found")}
	r := New(ledger, testLogger(), []time.Duration{time.Millisecond, time.Millisecond})

	_, err := r.Resolve(context.Background(), Input{TxHash: "HASH4"})

	var unresolved *payrollerr.ChannelIdUnresolvedError
	require.ErrorAs(t, err, &unresolved)
	assert.Equal(t, "HASH4", unresolved.TxHash)
}

func TestResolveContextCancellation(t *testing.T) {
	ledger := &fakeLedger{tx: &ledgerclient.TxResult{Validated: false}}
	r := New(ledger, testLogger(), []time.Duration{time.Hour})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.Resolve(ctx, Input{TxHash: "HASH5"})
	assert.ErrorIs(t, err, context.Canceled)
}
