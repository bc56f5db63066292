// Package model defines the domain entities persisted by the payroll engine:
// organizations, employees, payment channels, work sessions, audit events,
// and notifications.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// EmploymentStatus is the lifecycle status of an Employee.
type EmploymentStatus string

const (
	EmploymentActive   EmploymentStatus = "active"
	EmploymentInactive EmploymentStatus = "inactive"
)

// ChannelStatus is the lifecycle status of a PaymentChannel as exposed to
// the data model. Intermediate signing/validation states live only in the
// Lifecycle Controller; once a channel is persisted with a resolved
// channel_id, only these three values apply.
type ChannelStatus string

const (
	ChannelActive  ChannelStatus = "active"
	ChannelClosing ChannelStatus = "closing"
	ChannelClosed  ChannelStatus = "closed"
)

// WorkSessionStatus is the lifecycle status of a WorkSession.
type WorkSessionStatus string

const (
	SessionActive    WorkSessionStatus = "active"
	SessionCompleted WorkSessionStatus = "completed"
)

// ClosingReason annotates why a WorkSession ended, beyond an ordinary
// worker-initiated clock-out.
type ClosingReason string

const (
	ClosingReasonNone             ClosingReason = ""
	ClosingReasonEscrowCapReached ClosingReason = "escrow_cap_reached"
	ClosingReasonForcedByClosure  ClosingReason = "forced_by_closure"
)

// PaymentEventKind enumerates the audit-event kinds recorded against a
// channel.
type PaymentEventKind string

const (
	EventCreate     PaymentEventKind = "create"
	EventFund       PaymentEventKind = "fund"
	EventClaimClose PaymentEventKind = "claim_close"
	EventClaimOnly  PaymentEventKind = "claim_only"
)

// NotificationKind enumerates the notification kinds the engine emits.
type NotificationKind string

const (
	NotificationClosureRequest   NotificationKind = "closure_request"
	NotificationClosureScheduled NotificationKind = "closure_scheduled"
	NotificationClosureComplete  NotificationKind = "closure_completed"
	NotificationOrphanImported   NotificationKind = "orphan_imported"
)

// CallerKind distinguishes the two parties that may sign a channel claim.
type CallerKind string

const (
	CallerSource      CallerKind = "source"
	CallerDestination CallerKind = "destination"
)

// Organization is identified by its escrow wallet address.
type Organization struct {
	ID            int64
	EscrowWallet  string
	Name          string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Employee belongs to exactly one Organization; the same worker wallet may
// recur under different organizations with different rates.
type Employee struct {
	ID             int64
	OrganizationID int64
	WorkerWallet   string
	HourlyRate     decimal.Decimal
	Status         EmploymentStatus
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// PaymentChannel is the central entity: a database row mirroring a
// (once-resolved) PayChannel ledger entry plus off-chain accrual state.
type PaymentChannel struct {
	ID             int64
	ChannelID      *string // nil until the resolver assigns it (I4)
	OrganizationID int64
	EmployeeID     int64

	HourlyRate                 decimal.Decimal
	EscrowFundedAmount         decimal.Decimal
	OffChainAccumulatedBalance decimal.Decimal
	OnChainBalance             decimal.Decimal
	LegacyAccumulatedBalance   *decimal.Decimal // optional, read-only after import

	SettleDelaySeconds    int64
	CancelAfterRippleTime *uint32
	ExpirationRippleTime  *uint32
	LastLedgerSync        *time.Time

	Status ChannelStatus

	ClosureTxHash *string
	PublicKey     string

	// Imported marks a channel discovered on-ledger by sync-all that had no
	// prior database row (§4.5 orphan import).
	Imported bool

	CreatedAt time.Time
	UpdatedAt time.Time
	ClosedAt  *time.Time
}

// IsPlaceholder reports whether a channel ID string looks like the
// placeholder the engine must never persist (I4).
func IsPlaceholder(channelID string) bool {
	return len(channelID) == 0 || (len(channelID) >= 4 && channelID[:4] == "TEMP")
}

// WorkSession tracks a single clock-in/clock-out interval for an employee
// against a channel.
type WorkSession struct {
	ID         int64
	EmployeeID int64
	ChannelID  int64

	ClockIn  time.Time
	ClockOut *time.Time
	Hours    *decimal.Decimal

	Status        WorkSessionStatus
	ClosingReason ClosingReason
}

// PaymentEvent is an append-only audit record of ledger activity against a
// channel.
type PaymentEvent struct {
	ID          int64
	ChannelID   int64
	TxHash      string
	Kind        PaymentEventKind
	AmountDrops int64
	ResultCode  string
	LedgerIndex int64
	ObservedAt  time.Time
}

// Notification is an asynchronously delivered message to a channel party.
type Notification struct {
	ID             int64
	RecipientParty string
	Kind           NotificationKind
	Payload        string
	Read           bool
	CreatedAt      time.Time
}

// BalanceCorrection is the audit trail required by invariant I2(b): any
// manual adjustment of off_chain_accumulated_balance must be durably
// recorded alongside the corrected row.
type BalanceCorrection struct {
	ID               int64
	ChannelID        int64
	PreviousBalance  decimal.Decimal
	NewBalance       decimal.Decimal
	Reason           string
	CorrectedBy      string
	CorrectedAt      time.Time
}
