// Package payroll exposes the public API surface of §6 as plain Go methods
// on Service, one per listed operation, delegating to the Lifecycle
// Controller, the Work-Session Tracker, and the Ledger Reconciler. Service
// owns no state of its own and no transport: an HTTP, gRPC, or CLI layer
// wraps it however the deployment chooses (§1 Out of scope).
package payroll

import (
	"context"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xahau-payroll/payroll-engine/internal/lifecycle"
	"github.com/xahau-payroll/payroll-engine/internal/model"
	"github.com/xahau-payroll/payroll-engine/internal/payrollerr"
	"github.com/xahau-payroll/payroll-engine/internal/reconciler"
	"github.com/xahau-payroll/payroll-engine/internal/walletgateway"
	"github.com/xahau-payroll/payroll-engine/internal/worksession"
)

// Service is the payroll engine's public API surface.
type Service struct {
	lifecycle *lifecycle.Controller
	sessions  *worksession.Tracker
	recon     *reconciler.Reconciler
	logger    *slog.Logger
}

// New constructs a Service.
func New(lc *lifecycle.Controller, sessions *worksession.Tracker, recon *reconciler.Reconciler, logger *slog.Logger) *Service {
	return &Service{lifecycle: lc, sessions: sessions, recon: recon, logger: logger.With("component", "payroll_service")}
}

func parseCallerKind(s string) (model.CallerKind, error) {
	switch model.CallerKind(s) {
	case model.CallerSource, model.CallerDestination:
		return model.CallerKind(s), nil
	default:
		return "", &payrollerr.InvalidParametersError{Reason: "caller_kind must be source or destination, got " + s}
	}
}

// CreateChannelRequest is the body of POST /channels.
type CreateChannelRequest struct {
	OrganizationWallet string
	WorkerWallet       string
	HourlyRate         decimal.Decimal
	EscrowAmount       decimal.Decimal
	SettleDelaySeconds int64
	CancelAfterSeconds *int64
	NetworkTag         walletgateway.NetworkTag
	Provider           walletgateway.Provider
}

// CreateChannelResponse is returned by CreateChannel.
type CreateChannelResponse struct {
	UnsignedTx map[string]any
	PayloadRef string
}

// CreateChannel prepares a PaymentChannelCreate transaction for signing.
func (s *Service) CreateChannel(ctx context.Context, req CreateChannelRequest) (*CreateChannelResponse, error) {
	l := s.logger.With("method", "CreateChannel")
	l.Debug("start", "organization_wallet", req.OrganizationWallet, "worker_wallet", req.WorkerWallet)

	result, err := s.lifecycle.CreateChannel(ctx, lifecycle.CreateChannelParams{
		OrganizationWallet: req.OrganizationWallet,
		WorkerWallet:       req.WorkerWallet,
		HourlyRate:         req.HourlyRate,
		EscrowAmount:       req.EscrowAmount,
		SettleDelaySeconds: req.SettleDelaySeconds,
		CancelAfterSeconds: req.CancelAfterSeconds,
		NetworkTag:         req.NetworkTag,
		Provider:           req.Provider,
	})
	if err != nil {
		l.Error("create channel failed", "error", err)
		return nil, err
	}

	l.Info("channel create prepared", "payload_ref", result.PayloadRef)
	return &CreateChannelResponse{UnsignedTx: result.UnsignedTx, PayloadRef: result.PayloadRef}, nil
}

// ConfirmCreateRequest is the body of POST /channels/{id}/confirm-create.
type ConfirmCreateRequest struct {
	DraftRef string
	TxHash   string
}

// ConfirmCreate resolves the channel_id from a validated create transaction
// and persists the channel.
func (s *Service) ConfirmCreate(ctx context.Context, req ConfirmCreateRequest) (*model.PaymentChannel, error) {
	l := s.logger.With("method", "ConfirmCreate")
	l.Debug("start", "draft_ref", req.DraftRef, "tx_hash", req.TxHash)

	channel, err := s.lifecycle.ConfirmCreate(ctx, req.DraftRef, req.TxHash)
	if err != nil {
		l.Error("confirm create failed", "error", err)
		return nil, err
	}

	l.Info("channel created", "channel_db_id", channel.ID, "channel_id", derefStr(channel.ChannelID))
	return channel, nil
}

// RequestCloseRequest is the body of POST /channels/{id}/close.
type RequestCloseRequest struct {
	ChannelDBID  int64
	CallerWallet string
	CallerKind   string
	ForceClose   bool
	NetworkTag   walletgateway.NetworkTag
	Provider     walletgateway.Provider
}

// RequestCloseResponse is returned by RequestClose.
type RequestCloseResponse struct {
	UnsignedTx    map[string]any
	PayloadRef    string
	AlreadyClosed bool
	Channel       *model.PaymentChannel
}

// RequestClose prepares a PaymentChannelClaim transaction to close a
// channel, or reports that it is already closing/closed.
func (s *Service) RequestClose(ctx context.Context, req RequestCloseRequest) (*RequestCloseResponse, error) {
	l := s.logger.With("method", "RequestClose", "channel_db_id", req.ChannelDBID)
	l.Debug("start", "caller_kind", req.CallerKind, "force_close", req.ForceClose)

	kind, err := parseCallerKind(req.CallerKind)
	if err != nil {
		return nil, err
	}

	result, err := s.lifecycle.RequestClose(ctx, lifecycle.RequestCloseParams{
		ChannelDBID:  req.ChannelDBID,
		CallerWallet: req.CallerWallet,
		CallerKind:   kind,
		ForceClose:   req.ForceClose,
		NetworkTag:   req.NetworkTag,
		Provider:     req.Provider,
	})
	if err != nil {
		l.Error("request close failed", "error", err)
		return nil, err
	}

	l.Info("close requested", "already_closed", result.AlreadyClosed, "payload_ref", result.PayloadRef)
	return &RequestCloseResponse{
		UnsignedTx:    result.UnsignedTx,
		PayloadRef:    result.PayloadRef,
		AlreadyClosed: result.AlreadyClosed,
		Channel:       result.Channel,
	}, nil
}

// ConfirmCloseRequest is the body of POST /channels/{id}/confirm-close.
type ConfirmCloseRequest struct {
	ChannelDBID int64
	TxHash      string
	CallerKind  string
}

// ConfirmClose validates a close transaction and commits the resulting
// channel state.
func (s *Service) ConfirmClose(ctx context.Context, req ConfirmCloseRequest) (*model.PaymentChannel, error) {
	l := s.logger.With("method", "ConfirmClose", "channel_db_id", req.ChannelDBID)
	l.Debug("start", "tx_hash", req.TxHash, "caller_kind", req.CallerKind)

	kind, err := parseCallerKind(req.CallerKind)
	if err != nil {
		return nil, err
	}

	channel, err := s.lifecycle.ConfirmClose(ctx, lifecycle.ConfirmCloseParams{
		ChannelDBID: req.ChannelDBID,
		TxHash:      req.TxHash,
		CallerKind:  kind,
	})
	if err != nil {
		l.Error("confirm close failed", "error", err)
		return nil, err
	}

	l.Info("close confirmed", "status", channel.Status)
	return channel, nil
}

// SyncChannel reconciles a single channel against the ledger.
func (s *Service) SyncChannel(ctx context.Context, channelDBID int64) (*model.PaymentChannel, error) {
	l := s.logger.With("method", "SyncChannel", "channel_db_id", channelDBID)
	l.Debug("start")

	channel, err := s.recon.SyncOne(ctx, channelDBID, time.Now())
	if err != nil {
		l.Warn("sync failed", "error", err)
		return nil, err
	}

	l.Info("channel synced", "status", channel.Status, "on_chain_balance", channel.OnChainBalance)
	return channel, nil
}

// SyncOrganization reconciles every channel of an organization plus orphan
// import.
func (s *Service) SyncOrganization(ctx context.Context, organizationID int64) ([]reconciler.SyncAllResult, error) {
	l := s.logger.With("method", "SyncOrganization", "organization_id", organizationID)
	l.Debug("start")

	results, err := s.recon.SyncAll(ctx, organizationID, time.Now())
	if err != nil {
		l.Warn("sync-all failed", "error", err)
		return nil, err
	}

	l.Info("organization synced", "channels", len(results))
	return results, nil
}

// ClockInRequest is the body of POST /channels/{id}/sessions/clock-in.
type ClockInRequest struct {
	EmployeeID  int64
	ChannelDBID int64
}

// ClockIn opens a work session.
func (s *Service) ClockIn(ctx context.Context, req ClockInRequest) (*model.WorkSession, error) {
	l := s.logger.With("method", "ClockIn", "employee_id", req.EmployeeID, "channel_db_id", req.ChannelDBID)
	l.Debug("start")

	session, err := s.sessions.ClockIn(ctx, req.EmployeeID, req.ChannelDBID, time.Now())
	if err != nil {
		l.Warn("clock-in failed", "error", err)
		return nil, err
	}

	l.Info("clocked in", "session_id", session.ID)
	return session, nil
}

// ClockOutRequest is the body of POST /sessions/{id}/clock-out.
type ClockOutRequest struct {
	SessionID   int64
	EmployeeID  int64
	ChannelDBID int64
}

// ClockOut closes a work session, accruing earned hours.
func (s *Service) ClockOut(ctx context.Context, req ClockOutRequest) (*model.WorkSession, error) {
	l := s.logger.With("method", "ClockOut", "session_id", req.SessionID)
	l.Debug("start")

	session, err := s.sessions.ClockOut(ctx, req.SessionID, req.EmployeeID, req.ChannelDBID, time.Now())
	if err != nil {
		l.Warn("clock-out failed", "error", err)
		return nil, err
	}

	l.Info("clocked out", "hours", session.Hours, "closing_reason", session.ClosingReason)
	return session, nil
}

// RequestClosureFromNGO raises a closure_request notification to the
// worker without changing channel status.
func (s *Service) RequestClosureFromNGO(ctx context.Context, channelDBID int64) (*model.Notification, error) {
	l := s.logger.With("method", "RequestClosureFromNGO", "channel_db_id", channelDBID)
	l.Debug("start")

	n, err := s.lifecycle.RequestClosureFromNGO(ctx, channelDBID)
	if err != nil {
		l.Warn("closure request failed", "error", err)
		return nil, err
	}

	l.Info("closure requested", "notification_id", n.ID)
	return n, nil
}

// FundChannelRequest is the body of POST /channels/{id}/fund.
type FundChannelRequest struct {
	ChannelDBID     int64
	AdditionalDrops int64
	NewExpiration   *uint32
	SourceWallet    string
	NetworkTag      walletgateway.NetworkTag
	Provider        walletgateway.Provider
	SigningDeadline time.Duration
}

// FundChannel adds escrow to an active channel via PaymentChannelFund.
func (s *Service) FundChannel(ctx context.Context, req FundChannelRequest) (*model.PaymentChannel, error) {
	l := s.logger.With("method", "FundChannel", "channel_db_id", req.ChannelDBID)
	l.Debug("start", "additional_drops", req.AdditionalDrops)

	channel, err := s.lifecycle.FundChannel(ctx, lifecycle.FundChannelParams{
		ChannelDBID:     req.ChannelDBID,
		AdditionalDrops: req.AdditionalDrops,
		NewExpiration:   req.NewExpiration,
		SourceWallet:    req.SourceWallet,
		NetworkTag:      req.NetworkTag,
		Provider:        req.Provider,
		SigningDeadline: req.SigningDeadline,
	})
	if err != nil {
		l.Error("fund channel failed", "error", err)
		return nil, err
	}

	l.Info("channel funded", "escrow_funded_amount", channel.EscrowFundedAmount)
	return channel, nil
}

// CorrectBalanceRequest is the body of POST /channels/{id}/correct-balance,
// an administrative operation (§3 balance_corrections).
type CorrectBalanceRequest struct {
	ChannelDBID int64
	NewBalance  decimal.Decimal
	Reason      string
	CorrectedBy string
}

// CorrectBalance applies a manual off_chain_accumulated_balance adjustment
// with an audit trail.
func (s *Service) CorrectBalance(ctx context.Context, req CorrectBalanceRequest) (*model.PaymentChannel, error) {
	l := s.logger.With("method", "CorrectBalance", "channel_db_id", req.ChannelDBID)
	l.Debug("start", "new_balance", req.NewBalance, "corrected_by", req.CorrectedBy)

	channel, err := s.lifecycle.CorrectBalance(ctx, lifecycle.CorrectBalanceParams{
		ChannelDBID: req.ChannelDBID,
		NewBalance:  req.NewBalance,
		Reason:      req.Reason,
		CorrectedBy: req.CorrectedBy,
	})
	if err != nil {
		l.Error("balance correction failed", "error", err)
		return nil, err
	}

	l.Info("balance corrected", "new_balance", channel.OffChainAccumulatedBalance)
	return channel, nil
}

func derefStr(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
