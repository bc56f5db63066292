// Package ledgerclient is the thin adapter over the XRPL/Xahau node (§4.1).
// It exposes submit, fetch-transaction, fetch-channel-entry, fetch-account-channels,
// and fetch-account-info, translating transport and ledger-reported failures
// into the typed taxonomy in payrollerr.
package ledgerclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	addresscodec "github.com/Peersyst/xrpl-go/address-codec"
	"github.com/Peersyst/xrpl-go/xrpl/queries/account"
	"github.com/Peersyst/xrpl-go/xrpl/queries/common"
	requests "github.com/Peersyst/xrpl-go/xrpl/queries/transactions"
	"github.com/Peersyst/xrpl-go/xrpl/queries/version"
	"github.com/Peersyst/xrpl-go/xrpl/rpc"
	"github.com/Peersyst/xrpl-go/xrpl/transaction"
	"github.com/Peersyst/xrpl-go/xrpl/transaction/types"

	"github.com/xahau-payroll/payroll-engine/internal/config"
	"github.com/xahau-payroll/payroll-engine/internal/payrollerr"
)

// Flag values for PaymentChannelClaim. Xahau/XRPL defines tfClose as
// 0x00020000 and tfRenew as 0x00010000; this spec uses only tfClose for
// channel-closing claims and never conflates the two (§9 open question).
const (
	TfRenew uint32 = 0x00010000
	TfClose uint32 = 0x00020000
)

// tesSUCCESS is the engine result indicating full transaction success.
const TesSuccess = "tesSUCCESS"

// SubmitResult is the outcome of submitting a pre-signed transaction blob.
type SubmitResult struct {
	Hash         string
	EngineResult string
	Validated    bool
}

// AffectedCreatedNode describes a ledger entry created by a validated
// transaction, as found in its metadata.
type AffectedCreatedNode struct {
	LedgerEntryType string
	LedgerIndex     string
}

// TxResult is the outcome of fetch_tx.
type TxResult struct {
	Hash              string
	Validated         bool
	TransactionResult string
	CreatedNodes      []AffectedCreatedNode
}

// ChannelEntry mirrors the fields of a PayChannel ledger entry this engine
// consumes.
type ChannelEntry struct {
	Account     string
	Destination string
	AmountDrops int64
	BalanceDrops int64
	PublicKey   string
	SettleDelay uint32
	Expiration  *uint32
	CancelAfter *uint32
}

// AccountChannel is one entry returned by fetch_account_channels.
type AccountChannel struct {
	ChannelID   string
	AmountDrops int64
	BalanceDrops int64
	SettleDelay uint32
	PublicKey   string
	Expiration  *uint32
	CancelAfter *uint32
}

// AccountInfo mirrors the account_info fields this engine consumes.
type AccountInfo struct {
	Account      string
	BalanceDrops int64
	Sequence     uint32
}

// Client is the Ledger Client (§4.1). It wraps a single shared
// github.com/Peersyst/xrpl-go rpc.Client, mirroring the teacher's
// Blockchain type: a process-wide connection, reentrant for reads and
// signed-blob submission.
type Client struct {
	rpc *rpc.Client
}

// New constructs a Client from network configuration, grounded on the
// teacher's NewBlockchain: one pooled *http.Client with the configured
// timeout, one rpc.Client built from it.
func New(cfg config.NetworkConfig) (*Client, error) {
	rpcCfg, err := rpc.NewClientConfig(cfg.RPCURL, rpc.WithHTTPClient(&http.Client{
		Timeout: time.Duration(cfg.Timeout) * time.Second,
	}))
	if err != nil {
		return nil, fmt.Errorf("failed to create JSON-RPC config for %s: %w", cfg.RPCURL, err)
	}
	return &Client{rpc: rpc.NewClient(rpcCfg)}, nil
}

// submitRetryDelays is the exponential backoff applied between submit
// attempts when a transient, network-level failure occurs (§4.1: "Retries
// on transient errors up to three times with exponential backoff"),
// mirroring the vendored rpc.Client's own 503 retry-with-sleep shape one
// layer up, since that retry never sees failures below the HTTP layer.
var submitRetryDelays = []time.Duration{250 * time.Millisecond, 500 * time.Millisecond, time.Second}

// Submit sends a pre-signed transaction blob to the node and returns once it
// has been accepted for relay; validated may still be false (§4.1). Transient
// (network-level) failures are retried with backoff; a method-unsupported or
// genuine ledger-reported error is returned immediately without retry.
func (c *Client) Submit(signedBlob string) (*SubmitResult, error) {
	return submitWithRetry(submitRetryDelays, func() (*SubmitResult, error) {
		resp, err := c.rpc.SubmitTxBlob(signedBlob, false)
		if err != nil {
			return nil, err
		}
		return &SubmitResult{
			Hash:         hashFromSubmitTx(resp.Tx),
			EngineResult: resp.EngineResult,
			Validated:    resp.Applied && resp.EngineResult == TesSuccess,
		}, nil
	})
}

// submitWithRetry runs attempt until it succeeds, returns a non-transient
// classified error, or exhausts delays. delays is a parameter (rather than
// reading submitRetryDelays directly) so tests can exercise the retry loop
// without sleeping in real time.
func submitWithRetry(delays []time.Duration, attempt func() (*SubmitResult, error)) (*SubmitResult, error) {
	for i := 0; ; i++ {
		resp, err := attempt()
		if err == nil {
			return resp, nil
		}

		classified := classifySubmitErr(err)
		var unreachable *payrollerr.LedgerUnreachableError
		if !errors.As(classified, &unreachable) || i >= len(delays) {
			return nil, classified
		}
		time.Sleep(delays[i])
	}
}

func hashFromSubmitTx(tx transaction.FlatTransaction) string {
	if tx == nil {
		return ""
	}
	if h, ok := tx["hash"].(string); ok {
		return h
	}
	return ""
}

// FetchTx retrieves a transaction by hash (§4.1). TransactionResult is
// reported verbatim from the ledger (e.g. tesSUCCESS, tecNO_DST).
func (c *Client) FetchTx(hash string) (*TxResult, error) {
	req := &requests.TxRequest{Transaction: hash}
	resp, err := c.rpc.Request(req)
	if err != nil {
		return nil, classifyQueryErr("tx", err)
	}
	var txResp requests.TxResponse
	if err := resp.GetResult(&txResp); err != nil {
		return nil, &payrollerr.LedgerErrorError{Code: "malformed_tx_response"}
	}

	result := &TxResult{
		Hash:      string(txResp.Hash),
		Validated: txResp.Validated,
	}

	result.TransactionResult, result.CreatedNodes = parseMeta(txResp.Meta)
	return result, nil
}

// parseMeta extracts TransactionResult and every CreatedNode entry with its
// LedgerEntryType; the Channel-ID Resolver (§4.2 step 1) picks out the
// PayChannel node from that list. Meta is typed `any` by the underlying library (it may decode as a
// transaction.TxObjMeta or as a generic map depending on API version), so
// both shapes are handled, mirroring the teacher's own Meta-shape fallback
// in GetTransactionInfo.
func parseMeta(meta any) (string, []AffectedCreatedNode) {
	raw, err := json.Marshal(meta)
	if err != nil {
		return "", nil
	}
	var generic struct {
		TransactionResult string `json:"TransactionResult"`
		AffectedNodes     []struct {
			CreatedNode *struct {
				LedgerEntryType string `json:"LedgerEntryType"`
				LedgerIndex     string `json:"LedgerIndex"`
			} `json:"CreatedNode,omitempty"`
		} `json:"AffectedNodes"`
	}
	if err := json.Unmarshal(raw, &generic); err != nil {
		return "", nil
	}
	var created []AffectedCreatedNode
	for _, n := range generic.AffectedNodes {
		if n.CreatedNode != nil {
			created = append(created, AffectedCreatedNode{
				LedgerEntryType: n.CreatedNode.LedgerEntryType,
				LedgerIndex:     n.CreatedNode.LedgerIndex,
			})
		}
	}
	return generic.TransactionResult, created
}

// ledgerEntryRequest requests a PayChannel ledger entry by channel ID. No
// ready-made `ledger_entry`+`payment_channel` request type exists in the
// library's vendored subset this module was grounded on, so this type is
// hand-authored to satisfy the exact same interface the library's other
// request types (ChannelsRequest, InfoRequest) implement.
type ledgerEntryRequest struct {
	common.BaseRequest
	PaymentChannel string `json:"payment_channel"`
	LedgerIndex    string `json:"ledger_index,omitempty"`
}

func (*ledgerEntryRequest) Method() string { return "ledger_entry" }
func (*ledgerEntryRequest) APIVersion() int { return version.RippledAPIV2 }
func (r *ledgerEntryRequest) Validate() error {
	if r.PaymentChannel == "" {
		return fmt.Errorf("payment_channel is required")
	}
	return nil
}

type ledgerEntryResponse struct {
	Index string `json:"index"`
	Node  struct {
		Account     string                  `json:"Account"`
		Amount      types.XRPCurrencyAmount `json:"Amount"`
		Balance     types.XRPCurrencyAmount `json:"Balance"`
		Destination string                  `json:"Destination"`
		PublicKey   string                  `json:"PublicKey"`
		SettleDelay uint32                  `json:"SettleDelay"`
		Expiration  *uint32                 `json:"Expiration,omitempty"`
		CancelAfter *uint32                 `json:"CancelAfter,omitempty"`
	} `json:"node"`
	Validated bool `json:"validated"`
}

// FetchChannelEntry retrieves the PayChannel ledger entry for a channel ID,
// or (nil, nil) when the entry does not exist — no error value is returned
// for that case, so callers test for `entry == nil`.
func (c *Client) FetchChannelEntry(channelID string) (*ChannelEntry, error) {
	req := &ledgerEntryRequest{PaymentChannel: channelID, LedgerIndex: "validated"}
	resp, err := c.rpc.Request(req)
	if err != nil {
		if isEntryNotFound(err) {
			return nil, nil
		}
		return nil, classifyQueryErr("ledger_entry", err)
	}
	var entryResp ledgerEntryResponse
	if err := resp.GetResult(&entryResp); err != nil {
		return nil, &payrollerr.LedgerErrorError{Code: "malformed_ledger_entry_response"}
	}

	return &ChannelEntry{
		Account:      entryResp.Node.Account,
		Destination:  entryResp.Node.Destination,
		AmountDrops:  int64(entryResp.Node.Amount),
		BalanceDrops: int64(entryResp.Node.Balance),
		PublicKey:    entryResp.Node.PublicKey,
		SettleDelay:  entryResp.Node.SettleDelay,
		Expiration:   entryResp.Node.Expiration,
		CancelAfter:  entryResp.Node.CancelAfter,
	}, nil
}

// channelsResponse is a local decode target for account_channels, following
// the wire field names documented for the command rather than the library's
// own response struct, so that this code does not depend on the exact Go
// field names of a type this module's vendored library snapshot does not
// carry.
type channelsResponse struct {
	Channels []struct {
		ChannelID   string                  `json:"channel_id"`
		Amount      types.XRPCurrencyAmount `json:"amount"`
		Balance     types.XRPCurrencyAmount `json:"balance"`
		SettleDelay uint32                  `json:"settle_delay"`
		PublicKey   string                  `json:"public_key"`
		Expiration  *uint32                 `json:"expiration,omitempty"`
		CancelAfter *uint32                 `json:"cancel_after,omitempty"`
	} `json:"channels"`
}

// FetchAccountChannels lists payment channels whose source is `source`,
// optionally filtered to those whose destination is `destination` (§4.1).
func (c *Client) FetchAccountChannels(source, destination string) ([]AccountChannel, error) {
	req := &account.ChannelsRequest{
		Account:            types.Address(source),
		DestinationAccount: types.Address(destination),
		LedgerIndex:        common.Validated,
	}
	resp, err := c.rpc.Request(req)
	if err != nil {
		return nil, classifyQueryErr("account_channels", err)
	}
	var chResp channelsResponse
	if err := resp.GetResult(&chResp); err != nil {
		return nil, &payrollerr.LedgerErrorError{Code: "malformed_channels_response"}
	}

	out := make([]AccountChannel, 0, len(chResp.Channels))
	for _, raw := range chResp.Channels {
		out = append(out, AccountChannel{
			ChannelID:    raw.ChannelID,
			AmountDrops:  int64(raw.Amount),
			BalanceDrops: int64(raw.Balance),
			SettleDelay:  raw.SettleDelay,
			PublicKey:    raw.PublicKey,
			Expiration:   raw.Expiration,
			CancelAfter:  raw.CancelAfter,
		})
	}
	return out, nil
}

// FetchAccountInfo retrieves account activity and balance for `address`
// (§4.1); used by the Lifecycle Controller to test whether a worker wallet
// is active on the ledger before a channel is created.
func (c *Client) FetchAccountInfo(address string) (*AccountInfo, error) {
	if !addresscodec.IsValidAddress(address) {
		return nil, &payrollerr.InvalidParametersError{Reason: "not a valid ledger address: " + address}
	}
	req := &account.InfoRequest{Account: types.Address(address), LedgerIndex: common.Validated}
	resp, err := c.rpc.Request(req)
	if err != nil {
		if isAccountNotFound(err) {
			return nil, nil
		}
		return nil, classifyQueryErr("account_info", err)
	}
	var infoResp account.InfoResponse
	if err := resp.GetResult(&infoResp); err != nil {
		return nil, &payrollerr.LedgerErrorError{Code: "malformed_account_info_response"}
	}
	// AccountData.Balance is an xrpl types.XRPCurrencyAmount (uint64 drops).
	return &AccountInfo{
		Account:      address,
		BalanceDrops: int64(infoResp.AccountData.Balance),
		Sequence:     infoResp.AccountData.Sequence,
	}, nil
}

func isEntryNotFound(err error) bool {
	return containsAny(err.Error(), "entryNotFound", "unknown ledger entry")
}

func isAccountNotFound(err error) bool {
	return containsAny(err.Error(), "actNotFound")
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// isMethodUnsupported reports whether the ledger node rejected the request
// because it does not know the command at all (a Xahau node running
// without the amendment, or an older rippled build), rather than having
// evaluated and refused it. These must not abort the caller: §4.1/§7
// require degrading gracefully instead.
func isMethodUnsupported(err error) bool {
	return containsAny(err.Error(), "unknownCmd", "notSupported", "amendmentBlocked")
}

// isLedgerReportedError reports whether err is a genuine JSON-RPC/ledger
// failure — an *rpc.ClientError carrying a server-reported error string
// (either the "error" field of a JSON-RPC response or a non-200 HTTP
// status body) — as opposed to a network-level failure that never reached
// the node (connection refused, timeout, DNS failure), which the vendored
// client returns as a bare error instead of wrapping in ClientError.
func isLedgerReportedError(err error) bool {
	var clientErr *rpc.ClientError
	return errors.As(err, &clientErr)
}

// classifyQueryErr classifies a fetch_* failure into the §7 taxonomy:
// method-unsupported (degrade, don't abort), a genuine ledger-reported
// error, or a network-level LedgerUnreachable failure.
func classifyQueryErr(command string, err error) error {
	switch {
	case isMethodUnsupported(err):
		return &payrollerr.MethodUnsupportedError{Command: command}
	case isLedgerReportedError(err):
		return &payrollerr.LedgerErrorError{Code: err.Error()}
	default:
		return &payrollerr.LedgerUnreachableError{Cause: err}
	}
}

// classifySubmitErr applies the same §7 taxonomy to a submit failure.
func classifySubmitErr(err error) error {
	return classifyQueryErr("submit", err)
}
