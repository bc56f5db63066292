// Package lifecycle implements the Lifecycle Controller (§4.3): the state
// machine that carries a payment channel from a first unsigned
// PaymentChannelCreate through to a confirmed on-ledger closure. The
// intermediate states named in §4.3 (draft, awaiting_create_signature,
// awaiting_create_validation, awaiting_close_signature, failed_create) are
// never persisted — they live only as long as this process holds the
// corresponding draft or pending-close record in memory, matching the data
// model's comment that only {active, closing, closed} are durable.
package lifecycle

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xahau-payroll/payroll-engine/internal/epoch"
	"github.com/xahau-payroll/payroll-engine/internal/ledgerclient"
	"github.com/xahau-payroll/payroll-engine/internal/model"
	"github.com/xahau-payroll/payroll-engine/internal/payrollerr"
	"github.com/xahau-payroll/payroll-engine/internal/repository"
	"github.com/xahau-payroll/payroll-engine/internal/resolver"
	"github.com/xahau-payroll/payroll-engine/internal/validator"
	"github.com/xahau-payroll/payroll-engine/internal/walletgateway"
	"github.com/xahau-payroll/payroll-engine/internal/worksession"
)

// LedgerClient is the subset of internal/ledgerclient.Client the controller
// depends on directly (the Resolver and Validator hold their own subsets).
type LedgerClient interface {
	FetchAccountInfo(address string) (*ledgerclient.AccountInfo, error)
	FetchChannelEntry(channelID string) (*ledgerclient.ChannelEntry, error)
	Submit(signedBlob string) (*ledgerclient.SubmitResult, error)
}

// Gateway is the subset of internal/walletgateway.Gateway the controller
// depends on.
type Gateway interface {
	PrepareSign(unsignedTx map[string]any, account string, networkTag walletgateway.NetworkTag, provider walletgateway.Provider) (string, error)
	AwaitResult(ctx context.Context, payloadRef string, deadline time.Duration) (*walletgateway.SignResult, error)
}

// Resolver is the subset of internal/resolver.Resolver the controller
// depends on.
type Resolver interface {
	Resolve(ctx context.Context, in resolver.Input) (string, error)
}

// Validator is the subset of internal/validator.Validator the controller
// depends on.
type Validator interface {
	Validate(channelID, txHash string, expected validator.ExpectedKind) (*validator.Result, error)
}

// draftChannel is the in-memory record kept between CreateChannel returning
// an unsigned transaction and ConfirmCreate resolving the ledger channel ID.
// No database row exists for it: persisting one here would either invent a
// placeholder channel_id (forbidden by I4) or require a durable status this
// model's ChannelStatus enum deliberately does not carry.
type draftChannel struct {
	organizationID     int64
	employeeID         int64
	sourceWallet       string
	destinationWallet  string
	hourlyRate         decimal.Decimal
	escrowAmount       decimal.Decimal
	settleDelaySeconds int64
	cancelAfterSeconds *int64
	networkTag         walletgateway.NetworkTag
	createdAt          time.Time
}

// Controller drives channels through the §4.3 state machine.
type Controller struct {
	repo         *repository.Repository
	ledger       LedgerClient
	gateway      Gateway
	resolver     Resolver
	validator    Validator
	worksessions *worksession.Tracker
	logger       *slog.Logger

	mu     sync.Mutex
	drafts map[string]*draftChannel
}

// New constructs a Controller.
func New(repo *repository.Repository, ledger LedgerClient, gateway Gateway, res Resolver, val Validator, sessions *worksession.Tracker, logger *slog.Logger) *Controller {
	return &Controller{
		repo:         repo,
		ledger:       ledger,
		gateway:      gateway,
		resolver:     res,
		validator:    val,
		worksessions: sessions,
		logger:       logger.With("component", "lifecycle_controller"),
		drafts:       make(map[string]*draftChannel),
	}
}

// CreateChannelParams are the inputs to CreateChannel.
type CreateChannelParams struct {
	OrganizationWallet string
	WorkerWallet       string
	HourlyRate         decimal.Decimal
	EscrowAmount       decimal.Decimal
	SettleDelaySeconds int64
	CancelAfterSeconds *int64
	NetworkTag         walletgateway.NetworkTag
	Provider           walletgateway.Provider
}

// CreateChannelResult is returned by CreateChannel (§6 POST /channels).
type CreateChannelResult struct {
	UnsignedTx map[string]any
	PayloadRef string
}

// CreateChannel validates a channel-create request, builds the unsigned
// PaymentChannelCreate, and hands it to the Gateway. It does not wait for a
// signature: the caller later calls ConfirmCreate with the resulting
// tx_hash (draft → awaiting_create_signature).
func (c *Controller) CreateChannel(ctx context.Context, p CreateChannelParams) (*CreateChannelResult, error) {
	if err := validateCreateGuards(p); err != nil {
		return nil, err
	}

	org, err := c.repo.GetOrganizationByWallet(ctx, p.OrganizationWallet)
	if err != nil {
		return nil, err
	}
	if org == nil {
		return nil, &payrollerr.InvalidParametersError{Reason: "unknown organization wallet: " + p.OrganizationWallet}
	}
	employee, err := c.repo.GetEmployeeByWallet(ctx, org.ID, p.WorkerWallet)
	if err != nil {
		return nil, err
	}
	if employee == nil {
		return nil, &payrollerr.InvalidParametersError{Reason: "unknown employee wallet for organization: " + p.WorkerWallet}
	}

	info, err := c.ledger.FetchAccountInfo(p.WorkerWallet)
	if err != nil {
		return nil, err
	}
	if info == nil {
		return nil, &payrollerr.DestinationInactiveError{Destination: p.WorkerWallet}
	}

	unsignedTx := buildCreateTx(p, time.Now())

	payloadRef, err := c.gateway.PrepareSign(unsignedTx, p.OrganizationWallet, p.NetworkTag, p.Provider)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.drafts[payloadRef] = &draftChannel{
		organizationID:     org.ID,
		employeeID:         employee.ID,
		sourceWallet:       p.OrganizationWallet,
		destinationWallet:  p.WorkerWallet,
		hourlyRate:         p.HourlyRate,
		escrowAmount:       p.EscrowAmount,
		settleDelaySeconds: p.SettleDelaySeconds,
		cancelAfterSeconds: p.CancelAfterSeconds,
		networkTag:         p.NetworkTag,
		createdAt:          time.Now(),
	}
	c.mu.Unlock()

	c.logger.With("method", "CreateChannel").Info("channel create dispatched",
		"payload_ref", payloadRef, "organization_wallet", p.OrganizationWallet, "worker_wallet", p.WorkerWallet)
	return &CreateChannelResult{UnsignedTx: unsignedTx, PayloadRef: payloadRef}, nil
}

// ConfirmCreate resolves the ledger-assigned channel ID for a submitted
// create transaction and, on success, persists the channel as active
// (awaiting_create_validation → active). draftRef is the payload_ref
// returned by CreateChannel.
func (c *Controller) ConfirmCreate(ctx context.Context, draftRef, txHash string) (*model.PaymentChannel, error) {
	c.mu.Lock()
	draft, ok := c.drafts[draftRef]
	c.mu.Unlock()
	if !ok {
		return nil, &payrollerr.InvalidParametersError{Reason: "unknown draft reference: " + draftRef}
	}

	channelID, err := c.resolver.Resolve(ctx, resolver.Input{
		TxHash:                     txHash,
		Source:                     draft.sourceWallet,
		Destination:                draft.destinationWallet,
		ExpectedAmountDrops:        epoch.ToDrops(draft.escrowAmount),
		ExpectedSettleDelaySeconds: draft.settleDelaySeconds,
	})
	if err != nil {
		// failed_create: the draft is discarded; the controller never invents
		// a placeholder channel_id (I4, §4.2 step 3).
		c.mu.Lock()
		delete(c.drafts, draftRef)
		c.mu.Unlock()
		return nil, err
	}

	entry, err := c.ledger.FetchChannelEntry(channelID)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, &payrollerr.InvariantViolationError{Name: "resolved_channel_missing_from_ledger"}
	}

	channel := &model.PaymentChannel{
		ChannelID:          &channelID,
		OrganizationID:     draft.organizationID,
		EmployeeID:         draft.employeeID,
		HourlyRate:         draft.hourlyRate,
		EscrowFundedAmount: draft.escrowAmount,
		SettleDelaySeconds: draft.settleDelaySeconds,
		Status:             model.ChannelActive,
		PublicKey:          entry.PublicKey,
	}
	if draft.cancelAfterSeconds != nil {
		v := epoch.NowRippleTime(draft.createdAt) + uint32(*draft.cancelAfterSeconds)
		channel.CancelAfterRippleTime = &v
	}

	var persisted *model.PaymentChannel
	err = c.repo.WithTransaction(ctx, func(tx *repository.Tx) error {
		created, txErr := tx.CreateChannel(ctx, channel)
		if txErr != nil {
			return txErr
		}
		if _, txErr := tx.RecordPaymentEvent(ctx, &model.PaymentEvent{
			ChannelID:   created.ID,
			TxHash:      txHash,
			Kind:        model.EventCreate,
			AmountDrops: epoch.ToDrops(draft.escrowAmount),
			ResultCode:  ledgerclient.TesSuccess,
		}); txErr != nil {
			return txErr
		}
		persisted = created
		return nil
	})
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	delete(c.drafts, draftRef)
	c.mu.Unlock()

	c.logger.With("method", "ConfirmCreate").Info("channel activated", "channel_id", channelID, "channel_db_id", persisted.ID)
	return persisted, nil
}

// RequestCloseParams are the inputs to RequestClose.
type RequestCloseParams struct {
	ChannelDBID  int64
	CallerWallet string
	CallerKind   model.CallerKind
	ForceClose   bool
	NetworkTag   walletgateway.NetworkTag
	Provider     walletgateway.Provider
}

// RequestCloseResult is returned by RequestClose (§6 POST /channels/{id}/close).
type RequestCloseResult struct {
	UnsignedTx    map[string]any
	PayloadRef    string
	AlreadyClosed bool
	Channel       *model.PaymentChannel
}

// RequestClose builds the unsigned PaymentChannelClaim for a close request.
// It forces completion of any open work session first, refuses an
// NGO-initiated close over an unclaimed balance unless force_close is set,
// and is idempotent on a channel already in {closing, closed}.
func (c *Controller) RequestClose(ctx context.Context, p RequestCloseParams) (*RequestCloseResult, error) {
	var (
		channel    *model.PaymentChannel
		unsignedTx map[string]any
		payloadRef string
		alreadyErr error
	)

	err := c.repo.WithTransaction(ctx, func(tx *repository.Tx) error {
		ch, err := tx.GetChannelForUpdate(ctx, p.ChannelDBID)
		if err != nil {
			return err
		}
		if ch == nil {
			return &payrollerr.InvalidParametersError{Reason: "channel not found"}
		}

		if ch.Status == model.ChannelClosing || ch.Status == model.ChannelClosed {
			channel = ch
			return nil
		}
		if ch.Status != model.ChannelActive {
			return &payrollerr.ChannelStateUnexpectedError{Got: string(ch.Status), Want: string(model.ChannelActive)}
		}

		if p.CallerKind == model.CallerSource && !p.ForceClose && ch.OffChainAccumulatedBalance.IsPositive() {
			alreadyErr = &payrollerr.UnclaimedBalanceError{Amount: ch.OffChainAccumulatedBalance, CallerKind: string(p.CallerKind)}
			return alreadyErr
		}

		if _, err := c.worksessions.ForceCloseActive(ctx, tx, ch.EmployeeID, ch.ID, time.Now()); err != nil {
			return err
		}
		// Re-read: ForceCloseActive may have raised off_chain_accumulated_balance.
		ch, err = tx.GetChannelForUpdate(ctx, p.ChannelDBID)
		if err != nil {
			return err
		}

		claim := buildCloseClaim(p.CallerWallet, *ch.ChannelID, ch.PublicKey, ch.OffChainAccumulatedBalance)

		ref, err := c.gateway.PrepareSign(claim, p.CallerWallet, p.NetworkTag, p.Provider)
		if err != nil {
			return err
		}

		channel = ch
		unsignedTx = claim
		payloadRef = ref
		return nil
	})
	if alreadyErr != nil {
		return nil, alreadyErr
	}
	if err != nil {
		return nil, err
	}

	if unsignedTx == nil {
		// Idempotent path: channel already in {closing, closed}.
		return &RequestCloseResult{AlreadyClosed: true, Channel: channel}, nil
	}

	c.logger.With("method", "RequestClose").Info("close claim dispatched",
		"payload_ref", payloadRef, "channel_db_id", channel.ID, "caller_kind", p.CallerKind)
	return &RequestCloseResult{UnsignedTx: unsignedTx, PayloadRef: payloadRef, Channel: channel}, nil
}

// ConfirmCloseParams are the inputs to ConfirmClose.
type ConfirmCloseParams struct {
	ChannelDBID int64
	TxHash      string
	CallerKind  model.CallerKind
}

// ConfirmClose validates a submitted close transaction and commits the
// closing/closed transition, or rolls back to active on ledger failure.
func (c *Controller) ConfirmClose(ctx context.Context, p ConfirmCloseParams) (*model.PaymentChannel, error) {
	channel, err := c.repo.GetChannel(ctx, p.ChannelDBID)
	if err != nil {
		return nil, err
	}
	if channel == nil {
		return nil, &payrollerr.InvalidParametersError{Reason: "channel not found"}
	}
	if channel.Status == model.ChannelClosed || channel.Status == model.ChannelClosing {
		return channel, nil
	}
	if channel.ChannelID == nil {
		return nil, &payrollerr.InvariantViolationError{Name: "close_confirmed_without_channel_id"}
	}

	expected := expectedClosureKind(p.CallerKind, channel)
	result, valErr := c.validator.Validate(*channel.ChannelID, p.TxHash, expected)

	return c.commitCloseResult(ctx, p.ChannelDBID, p.TxHash, result, valErr)
}

func expectedClosureKind(callerKind model.CallerKind, ch *model.PaymentChannel) validator.ExpectedKind {
	if callerKind == model.CallerDestination {
		return validator.KindDestinationImmediate
	}
	remaining := ch.EscrowFundedAmount.Sub(ch.OffChainAccumulatedBalance)
	if remaining.IsZero() || remaining.IsNegative() {
		return validator.KindSourceImmediate
	}
	return validator.KindSourceScheduled
}

func (c *Controller) commitCloseResult(ctx context.Context, channelDBID int64, txHash string, result *validator.Result, valErr error) (*model.PaymentChannel, error) {
	var txFailed *payrollerr.TransactionFailedError
	if valErr != nil {
		if asTransactionFailed(valErr, &txFailed) {
			var out *model.PaymentChannel
			err := c.repo.WithTransaction(ctx, func(tx *repository.Tx) error {
				ch, err := tx.GetChannelForUpdate(ctx, channelDBID)
				if err != nil {
					return err
				}
				if ch == nil {
					return &payrollerr.InvalidParametersError{Reason: "channel not found"}
				}
				ch.Status = model.ChannelActive
				if err := tx.UpdateChannel(ctx, ch); err != nil {
					return err
				}
				if _, err := tx.RecordPaymentEvent(ctx, &model.PaymentEvent{
					ChannelID:  ch.ID,
					TxHash:     txHash,
					Kind:       model.EventClaimOnly,
					ResultCode: txFailed.Code,
				}); err != nil {
					return err
				}
				out = ch
				return nil
			})
			if err != nil {
				return nil, err
			}
			c.logger.With("method", "ConfirmClose").Warn("close transaction failed on ledger, rolled back to active",
				"channel_db_id", channelDBID, "tx_hash", txHash, "result_code", txFailed.Code)
			return out, nil
		}
		return nil, valErr
	}

	var out *model.PaymentChannel
	err := c.repo.WithTransaction(ctx, func(tx *repository.Tx) error {
		ch, err := tx.GetChannelForUpdate(ctx, channelDBID)
		if err != nil {
			return err
		}
		if ch == nil {
			return &payrollerr.InvalidParametersError{Reason: "channel not found"}
		}

		now := time.Now()
		if result.Closed {
			ch.Status = model.ChannelClosed
			ch.OffChainAccumulatedBalance = decimal.Zero
			ch.ClosureTxHash = &txHash
			ch.ClosedAt = &now
		} else {
			ch.Status = model.ChannelClosing
			ch.ExpirationRippleTime = result.Expiration
			ch.ClosureTxHash = &txHash
			if _, err := tx.CreateNotification(ctx, fmt.Sprintf("channel:%d", ch.ID), model.NotificationClosureScheduled, "close scheduled, awaiting expiration"); err != nil {
				return err
			}
		}
		if err := tx.UpdateChannel(ctx, ch); err != nil {
			return err
		}
		if _, err := tx.RecordPaymentEvent(ctx, &model.PaymentEvent{
			ChannelID:  ch.ID,
			TxHash:     txHash,
			Kind:       model.EventClaimClose,
			ResultCode: ledgerclient.TesSuccess,
		}); err != nil {
			return err
		}
		out = ch
		return nil
	})
	if err != nil {
		return nil, err
	}

	c.logger.With("method", "ConfirmClose").Info("close confirmed", "channel_db_id", channelDBID, "closed", result.Closed)
	return out, nil
}

func asTransactionFailed(err error, target **payrollerr.TransactionFailedError) bool {
	tf, ok := err.(*payrollerr.TransactionFailedError)
	if ok {
		*target = tf
	}
	return ok
}

// RequestClosureFromNGO notifies the worker that the NGO wishes to close the
// channel, without building or signing any claim (active →
// closure_requested_by_ngo). The channel remains operational.
func (c *Controller) RequestClosureFromNGO(ctx context.Context, channelDBID int64) (*model.Notification, error) {
	var notification *model.Notification
	err := c.repo.WithTransaction(ctx, func(tx *repository.Tx) error {
		ch, err := tx.GetChannelForUpdate(ctx, channelDBID)
		if err != nil {
			return err
		}
		if ch == nil {
			return &payrollerr.InvalidParametersError{Reason: "channel not found"}
		}
		if ch.Status != model.ChannelActive {
			return &payrollerr.ChannelStateUnexpectedError{Got: string(ch.Status), Want: string(model.ChannelActive)}
		}
		n, err := tx.CreateNotification(ctx, fmt.Sprintf("channel:%d", ch.ID), model.NotificationClosureRequest, "organization has requested channel closure")
		if err != nil {
			return err
		}
		notification = n
		return nil
	})
	if err != nil {
		return nil, err
	}
	return notification, nil
}

// CorrectBalanceParams are the inputs to CorrectBalance.
type CorrectBalanceParams struct {
	ChannelDBID int64
	NewBalance  decimal.Decimal
	Reason      string
	CorrectedBy string
}

// CorrectBalance applies a manual off_chain_accumulated_balance adjustment
// and its audit row (I2(b)): an administrative escape hatch for the rare
// case where the Closure Validator or Work-Session Tracker cannot be
// trusted to have produced the correct accrued balance (e.g. recovering
// from a bug, or reconciling a dispute). Never invoked by ordinary
// clock-in/clock-out/closure flows.
func (c *Controller) CorrectBalance(ctx context.Context, p CorrectBalanceParams) (*model.PaymentChannel, error) {
	var out *model.PaymentChannel
	err := c.repo.WithTransaction(ctx, func(tx *repository.Tx) error {
		ch, err := tx.GetChannelForUpdate(ctx, p.ChannelDBID)
		if err != nil {
			return err
		}
		if ch == nil {
			return &payrollerr.InvalidParametersError{Reason: "channel not found"}
		}
		if err := tx.ApplyBalanceCorrection(ctx, p.ChannelDBID, p.NewBalance, p.Reason, p.CorrectedBy); err != nil {
			return err
		}
		ch.OffChainAccumulatedBalance = p.NewBalance
		out = ch
		return nil
	})
	if err != nil {
		return nil, err
	}
	c.logger.With("method", "CorrectBalance").Warn("balance manually corrected",
		"channel_db_id", p.ChannelDBID, "new_balance", p.NewBalance, "corrected_by", p.CorrectedBy, "reason", p.Reason)
	return out, nil
}

// FundChannelParams are the inputs to FundChannel.
type FundChannelParams struct {
	ChannelDBID     int64
	AdditionalDrops int64
	NewExpiration   *uint32
	SourceWallet    string
	NetworkTag      walletgateway.NetworkTag
	Provider        walletgateway.Provider
	SigningDeadline time.Duration
}

// FundChannel raises a channel's escrow headroom via PaymentChannelFund
// (§4.3 funding supplement), valid only while the channel is active. Unlike
// Create/Close there is no separate confirm-fund step in the API surface
// (§6), so this method awaits the signing result synchronously within
// SigningDeadline and commits escrow_funded_amount only on tesSUCCESS.
func (c *Controller) FundChannel(ctx context.Context, p FundChannelParams) (*model.PaymentChannel, error) {
	channel, err := c.repo.GetChannel(ctx, p.ChannelDBID)
	if err != nil {
		return nil, err
	}
	if channel == nil {
		return nil, &payrollerr.InvalidParametersError{Reason: "channel not found"}
	}
	if channel.Status != model.ChannelActive {
		return nil, &payrollerr.ChannelStateUnexpectedError{Got: string(channel.Status), Want: string(model.ChannelActive)}
	}

	fundTx := buildFundTx(p.SourceWallet, *channel.ChannelID, p.AdditionalDrops, p.NewExpiration)

	ref, err := c.gateway.PrepareSign(fundTx, p.SourceWallet, p.NetworkTag, p.Provider)
	if err != nil {
		return nil, err
	}
	signed, err := c.gateway.AwaitResult(ctx, ref, p.SigningDeadline)
	if err != nil {
		return nil, err
	}

	txHash, engineResult, err := c.submitIfNeeded(signed)
	if err != nil {
		return nil, err
	}

	var out *model.PaymentChannel
	err = c.repo.WithTransaction(ctx, func(tx *repository.Tx) error {
		ch, err := tx.GetChannelForUpdate(ctx, p.ChannelDBID)
		if err != nil {
			return err
		}
		if ch == nil {
			return &payrollerr.InvalidParametersError{Reason: "channel not found"}
		}
		if engineResult == ledgerclient.TesSuccess {
			ch.EscrowFundedAmount = ch.EscrowFundedAmount.Add(epoch.FromDrops(p.AdditionalDrops))
			if p.NewExpiration != nil {
				ch.ExpirationRippleTime = p.NewExpiration
			}
			if err := tx.UpdateChannel(ctx, ch); err != nil {
				return err
			}
		}
		if _, err := tx.RecordPaymentEvent(ctx, &model.PaymentEvent{
			ChannelID:   ch.ID,
			TxHash:      txHash,
			Kind:        model.EventFund,
			AmountDrops: p.AdditionalDrops,
			ResultCode:  engineResult,
		}); err != nil {
			return err
		}
		out = ch
		return nil
	})
	if err != nil {
		return nil, err
	}

	c.logger.With("method", "FundChannel").Info("channel funded", "channel_db_id", p.ChannelDBID, "result_code", engineResult)
	return out, nil
}

// submitIfNeeded submits a wallet-signed blob when the provider returned one
// (the manual_seed path, where this process must relay the signed
// transaction itself) and otherwise trusts the wallet's own reported
// ledger_engine_result (mobile_qr/browser_extension providers typically
// submit directly and report the outcome back through the rendezvous).
func (c *Controller) submitIfNeeded(signed *walletgateway.SignResult) (txHash, engineResult string, err error) {
	if signed.SignedBlob != "" {
		res, err := c.ledger.Submit(signed.SignedBlob)
		if err != nil {
			return "", "", err
		}
		return res.Hash, res.EngineResult, nil
	}
	return signed.SignedHash, signed.LedgerEngineResult, nil
}

// validateCreateGuards checks the draft → awaiting_create_signature guards
// that do not require a ledger or database round trip (§4.3).
func validateCreateGuards(p CreateChannelParams) error {
	if p.HourlyRate.IsNegative() {
		return &payrollerr.InvalidParametersError{Reason: "hourly_rate must be >= 0"}
	}
	if p.EscrowAmount.IsNegative() {
		return &payrollerr.InvalidParametersError{Reason: "escrow_amount must be >= 0"}
	}
	if p.SettleDelaySeconds <= 0 {
		return &payrollerr.InvalidParametersError{Reason: "settle_delay must be > 0"}
	}
	return nil
}

// buildCreateTx builds the unsigned PaymentChannelCreate with the bit-exact
// field names §6 requires.
func buildCreateTx(p CreateChannelParams, now time.Time) map[string]any {
	tx := map[string]any{
		"TransactionType": "PaymentChannelCreate",
		"Account":         p.OrganizationWallet,
		"Destination":     p.WorkerWallet,
		"Amount":          fmt.Sprintf("%d", epoch.ToDrops(p.EscrowAmount)),
		"SettleDelay":     p.SettleDelaySeconds,
	}
	if p.CancelAfterSeconds != nil {
		tx["CancelAfter"] = epoch.NowRippleTime(now) + uint32(*p.CancelAfterSeconds)
	}
	return tx
}

// buildCloseClaim builds the unsigned PaymentChannelClaim per the §4.3 claim
// composition rule: Balance is omitted entirely when the off-chain balance
// is zero (Balance=0 alongside tfClose is rejected by the ledger as
// temBAD_AMOUNT), and Amount is never set on a close.
func buildCloseClaim(account, channelID, publicKey string, offChainBalance decimal.Decimal) map[string]any {
	claim := map[string]any{
		"TransactionType": "PaymentChannelClaim",
		"Account":         account,
		"Channel":         channelID,
		"Flags":           ledgerclient.TfClose,
		"PublicKey":       publicKey,
	}
	if offChainBalance.IsPositive() {
		claim["Balance"] = fmt.Sprintf("%d", epoch.ToDrops(offChainBalance))
	}
	return claim
}

// buildFundTx builds the unsigned PaymentChannelFund.
func buildFundTx(account, channelID string, additionalDrops int64, newExpiration *uint32) map[string]any {
	tx := map[string]any{
		"TransactionType": "PaymentChannelFund",
		"Account":         account,
		"Channel":         channelID,
		"Amount":          fmt.Sprintf("%d", additionalDrops),
	}
	if newExpiration != nil {
		tx["Expiration"] = *newExpiration
	}
	return tx
}
