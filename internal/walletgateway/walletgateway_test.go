package walletgateway

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xahau-payroll/payroll-engine/internal/payrollerr"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestPrepareSignThenDeliverUnblocksAwaitResult(t *testing.T) {
	g := New(testLogger())

	ref, err := g.PrepareSign(map[string]any{"TransactionType": "PaymentChannelCreate"}, "rWorkerAddress", NetworkXahauTestnet, ProviderMobileQR)
	require.NoError(t, err)
	require.NotEmpty(t, ref)

	go func() {
		time.Sleep(10 * time.Millisecond)
		g.Deliver(ref, &SignResult{SignedBlob: "blob", SignedHash: "HASH123", LedgerEngineResult: "tesSUCCESS"})
	}()

	result, err := g.AwaitResult(context.Background(), ref, time.Second)
	require.NoError(t, err)
	assert.Equal(t, "HASH123", result.SignedHash)
	assert.Equal(t, "tesSUCCESS", result.LedgerEngineResult)
}

func TestAwaitResultTimesOut(t *testing.T) {
	g := New(testLogger())
	ref, err := g.PrepareSign(map[string]any{"TransactionType": "PaymentChannelClaim"}, "rWorkerAddress", NetworkXahauTestnet, ProviderManualSeed)
	require.NoError(t, err)

	_, err = g.AwaitResult(context.Background(), ref, 20*time.Millisecond)

	var timeout *payrollerr.GatewayTimeoutError
	assert.ErrorAs(t, err, &timeout)
}

func TestCancelIsReportedAsGatewayCancelledError(t *testing.T) {
	g := New(testLogger())
	ref, err := g.PrepareSign(map[string]any{"TransactionType": "PaymentChannelClaim"}, "rWorkerAddress", NetworkXahauMainnet, ProviderBrowserExtension)
	require.NoError(t, err)

	go func() {
		time.Sleep(5 * time.Millisecond)
		g.Cancel(ref)
	}()

	_, err = g.AwaitResult(context.Background(), ref, time.Second)

	var cancelled *payrollerr.GatewayCancelledError
	assert.ErrorAs(t, err, &cancelled)
}

func TestAwaitResultUnknownPayloadRef(t *testing.T) {
	g := New(testLogger())

	_, err := g.AwaitResult(context.Background(), "does-not-exist", time.Second)

	var invalid *payrollerr.InvalidParametersError
	assert.ErrorAs(t, err, &invalid)
}

func TestDeliverWithoutPendingRequestIsNoOp(t *testing.T) {
	g := New(testLogger())
	assert.NotPanics(t, func() {
		g.Deliver("unknown", &SignResult{SignedHash: "x"})
	})
}
