// Package walletgateway implements the Signed-Transaction Gateway (§2, §6):
// a two-step rendezvous between this process and an external wallet holder
// who custodies the private key. This process never generates, stores, or
// derives a private key; every signature on a transaction the engine builds
// is produced outside this process and handed back through AwaitResult.
package walletgateway

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"sync"
	"time"

	"github.com/xahau-payroll/payroll-engine/internal/payrollerr"
)

// Provider identifies how the wallet holder will be asked to sign.
type Provider string

const (
	ProviderMobileQR         Provider = "mobile_qr"
	ProviderManualSeed       Provider = "manual_seed"
	ProviderBrowserExtension Provider = "browser_extension"
)

// NetworkTag identifies which ledger network an unsigned transaction targets.
type NetworkTag string

const (
	NetworkXahauMainnet NetworkTag = "xahau_mainnet"
	NetworkXahauTestnet NetworkTag = "xahau_testnet"
)

// SignResult is delivered by the wallet holder's side of the rendezvous.
type SignResult struct {
	SignedBlob         string
	SignedHash         string
	LedgerEngineResult string
}

type pendingRequest struct {
	unsignedTx map[string]any
	account    string
	networkTag NetworkTag
	provider   Provider
	resultCh   chan signOutcome
	createdAt  time.Time
}

type signOutcome struct {
	result    *SignResult
	cancelled bool
}

// Gateway mediates prepare_sign/await_result pairs. It holds no signing
// material; it only correlates a payload reference with the eventual signed
// result, the same way the teacher correlates request IDs to responses
// across its own RPC boundary.
type Gateway struct {
	logger *slog.Logger

	mu      sync.Mutex
	pending map[string]*pendingRequest
}

// New constructs a Gateway.
func New(logger *slog.Logger) *Gateway {
	return &Gateway{
		logger:  logger.With("component", "wallet_gateway"),
		pending: make(map[string]*pendingRequest),
	}
}

// PrepareSign registers an unsigned transaction for out-of-band signing and
// returns a payload reference the caller hands to the wallet holder (e.g.
// rendered as a QR code or deep link). Only the reference is returned; no
// separate delivery channel is handed back.
func (g *Gateway) PrepareSign(unsignedTx map[string]any, account string, networkTag NetworkTag, provider Provider) (payloadRef string, err error) {
	ref, err := newPayloadRef()
	if err != nil {
		return "", err
	}

	g.mu.Lock()
	g.pending[ref] = &pendingRequest{
		unsignedTx: unsignedTx,
		account:    account,
		networkTag: networkTag,
		provider:   provider,
		resultCh:   make(chan signOutcome, 1),
		createdAt:  time.Now(),
	}
	g.mu.Unlock()

	g.logger.With("method", "PrepareSign").Info("registered signing request",
		"payload_ref", ref, "account", account, "network_tag", networkTag, "provider", provider)
	return ref, nil
}

// Deliver is called by the side of the system that receives the wallet
// holder's response (mobile app callback, browser extension message, manual
// entry) and hands the signed result back to whichever goroutine is blocked
// in AwaitResult for this payloadRef. It is a no-op, logged at warn, if no
// request is pending under that reference — the caller may have already
// timed out.
func (g *Gateway) Deliver(payloadRef string, result *SignResult) {
	g.mu.Lock()
	req, ok := g.pending[payloadRef]
	if ok {
		delete(g.pending, payloadRef)
	}
	g.mu.Unlock()

	if !ok {
		g.logger.With("method", "Deliver").Warn("no pending signing request for payload_ref", "payload_ref", payloadRef)
		return
	}
	req.resultCh <- signOutcome{result: result}
}

// Cancel marks a pending signing request as explicitly rejected by the
// wallet holder.
func (g *Gateway) Cancel(payloadRef string) {
	g.mu.Lock()
	req, ok := g.pending[payloadRef]
	if ok {
		delete(g.pending, payloadRef)
	}
	g.mu.Unlock()

	if ok {
		req.resultCh <- signOutcome{cancelled: true}
	}
}

// AwaitResult blocks until a signed result is delivered, the wallet holder
// explicitly cancels, the deadline elapses, or ctx is cancelled. Only one
// caller may await a given payloadRef.
func (g *Gateway) AwaitResult(ctx context.Context, payloadRef string, deadline time.Duration) (*SignResult, error) {
	g.mu.Lock()
	req, ok := g.pending[payloadRef]
	g.mu.Unlock()
	if !ok {
		return nil, &payrollerr.InvalidParametersError{Reason: "unknown payload_ref: " + payloadRef}
	}

	timer := time.NewTimer(deadline)
	defer timer.Stop()

	select {
	case outcome := <-req.resultCh:
		if outcome.cancelled {
			return nil, &payrollerr.GatewayCancelledError{}
		}
		return outcome.result, nil
	case <-timer.C:
		g.expire(payloadRef)
		return nil, &payrollerr.GatewayTimeoutError{}
	case <-ctx.Done():
		g.expire(payloadRef)
		return nil, ctx.Err()
	}
}

func (g *Gateway) expire(payloadRef string) {
	g.mu.Lock()
	delete(g.pending, payloadRef)
	g.mu.Unlock()
}

func newPayloadRef() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
