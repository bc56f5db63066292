package ledgerclient

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Peersyst/xrpl-go/xrpl/rpc"

	"github.com/xahau-payroll/payroll-engine/internal/payrollerr"
)

func TestParseMetaExtractsCreatedPayChannelNode(t *testing.T) {
	meta := map[string]any{
		"TransactionResult": "tesSUCCESS",
		"AffectedNodes": []any{
			map[string]any{
				"CreatedNode": map[string]any{
					"LedgerEntryType": "PayChannel",
					"LedgerIndex":     "ABCDEF0123456789",
				},
			},
			map[string]any{
				"ModifiedNode": map[string]any{
					"LedgerEntryType": "AccountRoot",
				},
			},
		},
	}

	result, created := parseMeta(meta)

	assert.Equal(t, "tesSUCCESS", result)
	if assert.Len(t, created, 1) {
		assert.Equal(t, "PayChannel", created[0].LedgerEntryType)
		assert.Equal(t, "ABCDEF0123456789", created[0].LedgerIndex)
	}
}

func TestParseMetaNoCreatedNodes(t *testing.T) {
	meta := map[string]any{
		"TransactionResult": "tesSUCCESS",
		"AffectedNodes":     []any{},
	}

	result, created := parseMeta(meta)

	assert.Equal(t, "tesSUCCESS", result)
	assert.Empty(t, created)
}

func TestLedgerEntryRequestMethodAndValidate(t *testing.T) {
	req := &ledgerEntryRequest{PaymentChannel: "", LedgerIndex: "validated"}
	assert.Equal(t, "ledger_entry", req.Method())
	assert.Error(t, req.Validate())

	req.PaymentChannel = "5DB01B7FFED6B67E6B0414DED11E051D2EE2B7619CE0EAA6286D67A3A9BF0F4F"
	assert.NoError(t, req.Validate())
}

func TestContainsAny(t *testing.T) {
	assert.True(t, containsAny("entryNotFound", "entryNotFound", "actNotFound"))
	assert.True(t, containsAny("some actNotFound wrapper", "actNotFound"))
	assert.False(t, containsAny("tesSUCCESS", "entryNotFound", "actNotFound"))
}

func TestClassifyQueryErrWrapsLedgerUnreachable(t *testing.T) {
	err := classifyQueryErr("tx", assertError("boom"))

	var unreachable *payrollerr.LedgerUnreachableError
	assert.ErrorAs(t, err, &unreachable)
}

func TestClassifyQueryErrMarksMethodUnsupported(t *testing.T) {
	err := classifyQueryErr("ledger_entry", &rpc.ClientError{ErrorString: "unknownCmd"})

	var unsupported *payrollerr.MethodUnsupportedError
	require.ErrorAs(t, err, &unsupported)
	assert.Equal(t, "ledger_entry", unsupported.Command)
}

func TestClassifyQueryErrWrapsGenuineLedgerError(t *testing.T) {
	err := classifyQueryErr("account_info", &rpc.ClientError{ErrorString: "invalidParams"})

	var ledgerErr *payrollerr.LedgerErrorError
	require.ErrorAs(t, err, &ledgerErr)
	assert.Equal(t, "invalidParams", ledgerErr.Code)
}

func TestClassifySubmitErrDelegatesToQueryTaxonomy(t *testing.T) {
	err := classifySubmitErr(&rpc.ClientError{ErrorString: "unknownCmd"})

	var unsupported *payrollerr.MethodUnsupportedError
	require.ErrorAs(t, err, &unsupported)
	assert.Equal(t, "submit", unsupported.Command)
}

// testRetryDelays keeps retry-loop tests from sleeping in real time.
var testRetryDelays = []time.Duration{0, 0, 0}

func TestSubmitWithRetryRetriesTransientFailuresThenSucceeds(t *testing.T) {
	calls := 0
	resp, err := submitWithRetry(testRetryDelays, func() (*SubmitResult, error) {
		calls++
		if calls < 3 {
			return nil, assertError("connection reset by peer")
		}
		return &SubmitResult{Hash: "ABCD"}, nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ABCD", resp.Hash)
	assert.Equal(t, 3, calls)
}

func TestSubmitWithRetryGivesUpAfterExhaustingSchedule(t *testing.T) {
	calls := 0
	_, err := submitWithRetry(testRetryDelays, func() (*SubmitResult, error) {
		calls++
		return nil, assertError("connection reset by peer")
	})

	var unreachable *payrollerr.LedgerUnreachableError
	require.ErrorAs(t, err, &unreachable)
	assert.Equal(t, len(testRetryDelays)+1, calls)
}

func TestSubmitWithRetryDoesNotRetryNonTransientFailure(t *testing.T) {
	calls := 0
	_, err := submitWithRetry(testRetryDelays, func() (*SubmitResult, error) {
		calls++
		return nil, &rpc.ClientError{ErrorString: "unknownCmd"}
	})

	var unsupported *payrollerr.MethodUnsupportedError
	require.ErrorAs(t, err, &unsupported)
	assert.Equal(t, 1, calls)
}

type testErr string

func (e testErr) Error() string { return string(e) }

func assertError(msg string) error { return testErr(msg) }
