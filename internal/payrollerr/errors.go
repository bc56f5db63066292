// Package payrollerr defines the typed error taxonomy for the payroll
// engine (§7). Every public operation returns one of these concrete types
// rather than a stringly-typed error code; callers are expected to use
// errors.As to discriminate.
package payrollerr

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// DestinationInactiveError is returned when a worker wallet is not active on
// the ledger at channel-create time.
type DestinationInactiveError struct {
	Destination string
}

func (e *DestinationInactiveError) Error() string {
	return fmt.Sprintf("destination %s is not active on the ledger", e.Destination)
}

// InvalidParametersError wraps a validation failure on request parameters.
type InvalidParametersError struct {
	Reason string
}

func (e *InvalidParametersError) Error() string {
	return fmt.Sprintf("invalid parameters: %s", e.Reason)
}

// ChannelIdUnresolvedError is returned when the Channel-ID Resolver exhausts
// its retry budget without a validated match.
type ChannelIdUnresolvedError struct {
	TxHash string
}

func (e *ChannelIdUnresolvedError) Error() string {
	return fmt.Sprintf("channel id could not be resolved for tx %s", e.TxHash)
}

// UnclaimedBalanceError is a typed soft-refusal: an NGO-initiated close was
// attempted without force_close while the worker still has an unclaimed
// off-chain balance.
type UnclaimedBalanceError struct {
	Amount     decimal.Decimal
	CallerKind string
}

func (e *UnclaimedBalanceError) Error() string {
	return fmt.Sprintf("unclaimed balance %s outstanding for caller kind %s", e.Amount, e.CallerKind)
}

// InvariantViolationError marks a would-be write that breaks one of the
// invariants in §3. These are treated as bugs: logged with full context,
// never auto-corrected.
type InvariantViolationError struct {
	Name string
}

func (e *InvariantViolationError) Error() string {
	return fmt.Sprintf("invariant violation: %s", e.Name)
}

// RecentlySyncedError is a soft typed outcome: the reconciler refuses to
// re-sync a channel synced within the configured minimum interval.
type RecentlySyncedError struct {
	SecondsSince int64
}

func (e *RecentlySyncedError) Error() string {
	return fmt.Sprintf("channel was synced %ds ago", e.SecondsSince)
}

// LedgerUnreachableError indicates a network-level failure reaching the
// ledger node.
type LedgerUnreachableError struct {
	Cause error
}

func (e *LedgerUnreachableError) Error() string {
	return fmt.Sprintf("ledger unreachable: %v", e.Cause)
}

func (e *LedgerUnreachableError) Unwrap() error { return e.Cause }

// MethodUnsupportedError indicates the ledger node does not support a
// required command. Callers must degrade rather than abort.
type MethodUnsupportedError struct {
	Command string
}

func (e *MethodUnsupportedError) Error() string {
	return fmt.Sprintf("ledger node does not support method %s", e.Command)
}

// LedgerErrorError wraps a non-transient ledger-reported error code.
type LedgerErrorError struct {
	Code string
}

func (e *LedgerErrorError) Error() string {
	return fmt.Sprintf("ledger error: %s", e.Code)
}

// GatewayCancelledError indicates the wallet holder explicitly rejected a
// signing request.
type GatewayCancelledError struct{}

func (e *GatewayCancelledError) Error() string { return "signing request was cancelled" }

// GatewayTimeoutError indicates a signing request was never answered within
// its deadline.
type GatewayTimeoutError struct{}

func (e *GatewayTimeoutError) Error() string { return "signing request timed out" }

// TransactionNotFinalError indicates the closure validator observed a
// transaction that is not yet validated.
type TransactionNotFinalError struct {
	TxHash string
}

func (e *TransactionNotFinalError) Error() string {
	return fmt.Sprintf("transaction %s is not yet validated", e.TxHash)
}

// TransactionFailedError indicates a validated transaction whose engine
// result was not tesSUCCESS.
type TransactionFailedError struct {
	Code string
}

func (e *TransactionFailedError) Error() string {
	return fmt.Sprintf("transaction failed with result %s", e.Code)
}

// ChannelStateUnexpectedError indicates a precondition on channel status was
// not met, e.g. an operation requiring `active` found `closing`.
type ChannelStateUnexpectedError struct {
	Got  string
	Want string
}

func (e *ChannelStateUnexpectedError) Error() string {
	return fmt.Sprintf("unexpected channel state: got %s, want %s", e.Got, e.Want)
}

// RowLockedError indicates a row-level lock could not be acquired; callers
// should retry.
type RowLockedError struct{}

func (e *RowLockedError) Error() string { return "row is locked by a concurrent transaction" }

// SessionAlreadyActiveError indicates an employee attempted to clock in
// against a channel while an existing session is still open.
type SessionAlreadyActiveError struct {
	EmployeeID int64
	ChannelID  int64
}

func (e *SessionAlreadyActiveError) Error() string {
	return fmt.Sprintf("employee %d already has an active session on channel %d", e.EmployeeID, e.ChannelID)
}

// DailyHourCapReachedError indicates a clock-in was refused because the
// employee's accumulated hours on the channel today already meet the
// configured daily cap.
type DailyHourCapReachedError struct {
	ChannelID int64
	MaxHours  decimal.Decimal
}

func (e *DailyHourCapReachedError) Error() string {
	return fmt.Sprintf("channel %d has reached its daily hour cap of %s", e.ChannelID, e.MaxHours)
}
