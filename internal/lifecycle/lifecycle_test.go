package lifecycle

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xahau-payroll/payroll-engine/internal/ledgerclient"
	"github.com/xahau-payroll/payroll-engine/internal/model"
	"github.com/xahau-payroll/payroll-engine/internal/payrollerr"
	"github.com/xahau-payroll/payroll-engine/internal/validator"
)

func TestValidateCreateGuardsRejectsNegativeHourlyRate(t *testing.T) {
	p := CreateChannelParams{HourlyRate: decimal.NewFromInt(-1), EscrowAmount: decimal.Zero, SettleDelaySeconds: 3600}
	err := validateCreateGuards(p)
	var invalid *payrollerr.InvalidParametersError
	assert.ErrorAs(t, err, &invalid)
}

func TestValidateCreateGuardsRejectsZeroSettleDelay(t *testing.T) {
	p := CreateChannelParams{HourlyRate: decimal.NewFromInt(10), EscrowAmount: decimal.NewFromInt(100), SettleDelaySeconds: 0}
	err := validateCreateGuards(p)
	var invalid *payrollerr.InvalidParametersError
	assert.ErrorAs(t, err, &invalid)
}

func TestValidateCreateGuardsAcceptsValidParams(t *testing.T) {
	p := CreateChannelParams{HourlyRate: decimal.NewFromInt(10), EscrowAmount: decimal.NewFromInt(100), SettleDelaySeconds: 3600}
	assert.NoError(t, validateCreateGuards(p))
}

func TestBuildCreateTxOmitsCancelAfterWhenNil(t *testing.T) {
	p := CreateChannelParams{
		OrganizationWallet: "rOrg",
		WorkerWallet:       "rWorker",
		EscrowAmount:       decimal.NewFromInt(240),
		SettleDelaySeconds: 3600,
	}
	tx := buildCreateTx(p, time.Now())

	assert.Equal(t, "PaymentChannelCreate", tx["TransactionType"])
	assert.Equal(t, "rOrg", tx["Account"])
	assert.Equal(t, "rWorker", tx["Destination"])
	assert.Equal(t, "240000000", tx["Amount"])
	assert.Equal(t, int64(3600), tx["SettleDelay"])
	_, hasCancelAfter := tx["CancelAfter"]
	assert.False(t, hasCancelAfter)
}

func TestBuildCreateTxSetsCancelAfterWhenGiven(t *testing.T) {
	cancelAfter := int64(86400)
	p := CreateChannelParams{
		OrganizationWallet: "rOrg",
		WorkerWallet:       "rWorker",
		EscrowAmount:       decimal.NewFromInt(1),
		SettleDelaySeconds: 60,
		CancelAfterSeconds: &cancelAfter,
	}
	tx := buildCreateTx(p, time.Now())
	_, hasCancelAfter := tx["CancelAfter"]
	assert.True(t, hasCancelAfter)
}

func TestBuildCloseClaimOmitsBalanceWhenZero(t *testing.T) {
	claim := buildCloseClaim("rWorker", "ABCD1234", "02deadbeef", decimal.Zero)

	_, hasBalance := claim["Balance"]
	assert.False(t, hasBalance)
	assert.Equal(t, ledgerclient.TfClose, claim["Flags"])
	assert.Equal(t, "02deadbeef", claim["PublicKey"])
	_, hasAmount := claim["Amount"]
	assert.False(t, hasAmount)
}

func TestBuildCloseClaimIncludesBalanceInDropsWhenPositive(t *testing.T) {
	claim := buildCloseClaim("rOrg", "ABCD1234", "02deadbeef", decimal.NewFromFloat(3.0))

	assert.Equal(t, "3000000", claim["Balance"])
}

func TestBuildFundTxIncludesOptionalExpiration(t *testing.T) {
	exp := uint32(700000000)
	tx := buildFundTx("rOrg", "ABCD1234", 5000000, &exp)

	assert.Equal(t, "PaymentChannelFund", tx["TransactionType"])
	assert.Equal(t, "5000000", tx["Amount"])
	assert.Equal(t, exp, tx["Expiration"])
}

func TestBuildFundTxOmitsExpirationWhenNil(t *testing.T) {
	tx := buildFundTx("rOrg", "ABCD1234", 5000000, nil)
	_, has := tx["Expiration"]
	assert.False(t, has)
}

func channelWithRemaining(remaining decimal.Decimal) *model.PaymentChannel {
	return &model.PaymentChannel{
		EscrowFundedAmount:         decimal.NewFromInt(100),
		OffChainAccumulatedBalance: decimal.NewFromInt(100).Sub(remaining),
	}
}

func TestExpectedClosureKindDestinationIsAlwaysImmediate(t *testing.T) {
	kind := expectedClosureKind(model.CallerDestination, channelWithRemaining(decimal.NewFromInt(50)))
	assert.Equal(t, validator.KindDestinationImmediate, kind)
}

func TestExpectedClosureKindSourceWithRemainingEscrowIsScheduled(t *testing.T) {
	kind := expectedClosureKind(model.CallerSource, channelWithRemaining(decimal.NewFromInt(50)))
	assert.Equal(t, validator.KindSourceScheduled, kind)
}

func TestExpectedClosureKindSourceWithZeroRemainingIsImmediate(t *testing.T) {
	kind := expectedClosureKind(model.CallerSource, channelWithRemaining(decimal.Zero))
	assert.Equal(t, validator.KindSourceImmediate, kind)
}

func TestAsTransactionFailedMatchesType(t *testing.T) {
	var target *payrollerr.TransactionFailedError
	ok := asTransactionFailed(&payrollerr.TransactionFailedError{Code: "tecNO_PERMISSION"}, &target)

	require.True(t, ok)
	assert.Equal(t, "tecNO_PERMISSION", target.Code)
}

func TestAsTransactionFailedRejectsOtherTypes(t *testing.T) {
	var target *payrollerr.TransactionFailedError
	ok := asTransactionFailed(&payrollerr.TransactionNotFinalError{TxHash: "abc"}, &target)

	assert.False(t, ok)
}
