// Package validator implements the Closure Validator (§4.6): confirming a
// submitted PaymentChannelClaim closure transaction actually landed, and
// classifying which of the three closure paths it took.
package validator

import (
	"github.com/xahau-payroll/payroll-engine/internal/ledgerclient"
	"github.com/xahau-payroll/payroll-engine/internal/payrollerr"
)

// ExpectedKind is the closure shape the caller expects, chosen from the
// Lifecycle Controller's closure-asymmetry policy (§4.3).
type ExpectedKind string

const (
	KindDestinationImmediate ExpectedKind = "destination_immediate"
	KindSourceScheduled      ExpectedKind = "source_scheduled"
	KindSourceImmediate      ExpectedKind = "source_immediate"
)

// LedgerClient is the subset of internal/ledgerclient.Client the validator
// depends on.
type LedgerClient interface {
	FetchTx(hash string) (*ledgerclient.TxResult, error)
	FetchChannelEntry(channelID string) (*ledgerclient.ChannelEntry, error)
}

// Result is the validation record the controller commits a transition from.
type Result struct {
	// Closed reports whether the channel is gone from the ledger (true) or
	// still present with an Expiration set (false).
	Closed bool
	// Expiration is populated when the channel entry still exists with an
	// Expiration set (source_scheduled, or source_immediate treated as
	// scheduled).
	Expiration *uint32
}

// Validator confirms closure transactions against the ledger.
type Validator struct {
	ledger LedgerClient
}

// New constructs a Validator.
func New(ledger LedgerClient) *Validator {
	return &Validator{ledger: ledger}
}

// Validate implements the §4.6 procedure.
func (v *Validator) Validate(channelID, txHash string, expected ExpectedKind) (*Result, error) {
	tx, err := v.ledger.FetchTx(txHash)
	if err != nil {
		return nil, err
	}
	if tx == nil || !tx.Validated {
		return nil, &payrollerr.TransactionNotFinalError{TxHash: txHash}
	}
	if tx.TransactionResult != ledgerclient.TesSuccess {
		return nil, &payrollerr.TransactionFailedError{Code: tx.TransactionResult}
	}

	entry, err := v.ledger.FetchChannelEntry(channelID)
	if err != nil {
		return nil, err
	}

	switch expected {
	case KindDestinationImmediate:
		if entry != nil {
			return nil, &payrollerr.ChannelStateUnexpectedError{Got: "found", Want: "not_found"}
		}
		return &Result{Closed: true}, nil

	case KindSourceScheduled:
		if entry == nil {
			return nil, &payrollerr.ChannelStateUnexpectedError{Got: "not_found", Want: "found_with_expiration"}
		}
		if entry.Expiration == nil {
			return nil, &payrollerr.ChannelStateUnexpectedError{Got: "found_without_expiration", Want: "found_with_expiration"}
		}
		return &Result{Closed: false, Expiration: entry.Expiration}, nil

	case KindSourceImmediate:
		if entry == nil {
			return &Result{Closed: true}, nil
		}
		if entry.Expiration == nil {
			return nil, &payrollerr.ChannelStateUnexpectedError{Got: "found_without_expiration", Want: "not_found_or_found_with_expiration"}
		}
		return &Result{Closed: false, Expiration: entry.Expiration}, nil

	default:
		return nil, &payrollerr.InvalidParametersError{Reason: "unknown expected closure kind: " + string(expected)}
	}
}
