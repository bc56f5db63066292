package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xahau-payroll/payroll-engine/internal/ledgerclient"
	"github.com/xahau-payroll/payroll-engine/internal/payrollerr"
)

type fakeLedger struct {
	tx      *ledgerclient.TxResult
	txErr   error
	entry   *ledgerclient.ChannelEntry
	entryErr error
}

func (f *fakeLedger) FetchTx(hash string) (*ledgerclient.TxResult, error) {
	return f.tx, f.txErr
}

func (f *fakeLedger) FetchChannelEntry(channelID string) (*ledgerclient.ChannelEntry, error) {
	return f.entry, f.entryErr
}

func validatedSuccess() *ledgerclient.TxResult {
	return &ledgerclient.TxResult{Validated: true, TransactionResult: "tesSUCCESS"}
}

func TestValidateDestinationImmediateRequiresNotFound(t *testing.T) {
	v := New(&fakeLedger{tx: validatedSuccess(), entry: nil})

	result, err := v.Validate("CHAN1", "HASH1", KindDestinationImmediate)

	require.NoError(t, err)
	assert.True(t, result.Closed)
}

func TestValidateDestinationImmediateRejectsStillFound(t *testing.T) {
	v := New(&fakeLedger{tx: validatedSuccess(), entry: &ledgerclient.ChannelEntry{}})

	_, err := v.Validate("CHAN1", "HASH1", KindDestinationImmediate)

	var unexpected *payrollerr.ChannelStateUnexpectedError
	assert.ErrorAs(t, err, &unexpected)
}

func TestValidateSourceScheduledRequiresExpiration(t *testing.T) {
	exp := uint32(123456)
	v := New(&fakeLedger{tx: validatedSuccess(), entry: &ledgerclient.ChannelEntry{Expiration: &exp}})

	result, err := v.Validate("CHAN1", "HASH1", KindSourceScheduled)

	require.NoError(t, err)
	assert.False(t, result.Closed)
	require.NotNil(t, result.Expiration)
	assert.Equal(t, exp, *result.Expiration)
}

func TestValidateSourceImmediateAcceptsEitherShape(t *testing.T) {
	v := New(&fakeLedger{tx: validatedSuccess(), entry: nil})
	result, err := v.Validate("CHAN1", "HASH1", KindSourceImmediate)
	require.NoError(t, err)
	assert.True(t, result.Closed)

	exp := uint32(999)
	v2 := New(&fakeLedger{tx: validatedSuccess(), entry: &ledgerclient.ChannelEntry{Expiration: &exp}})
	result2, err := v2.Validate("CHAN1", "HASH1", KindSourceImmediate)
	require.NoError(t, err)
	assert.False(t, result2.Closed)
}

func TestValidateTransactionNotFinal(t *testing.T) {
	v := New(&fakeLedger{tx: &ledgerclient.TxResult{Validated: false}})

	_, err := v.Validate("CHAN1", "HASH1", KindDestinationImmediate)

	var notFinal *payrollerr.TransactionNotFinalError
	assert.ErrorAs(t, err, &notFinal)
}

func TestValidateTransactionFailed(t *testing.T) {
	v := New(&fakeLedger{tx: &ledgerclient.TxResult{Validated: true, TransactionResult: "tecNO_PERMISSION"}})

	_, err := v.Validate("CHAN1", "HASH1", KindDestinationImmediate)

	var failed *payrollerr.TransactionFailedError
	require.ErrorAs(t, err, &failed)
	assert.Equal(t, "tecNO_PERMISSION", failed.Code)
}
