// Package resolver implements the Channel-ID Resolver (§4.2): recovering the
// ledger-assigned channel ID for a just-submitted PaymentChannelCreate,
// either from the create transaction's own metadata or, failing that, by
// disambiguating among the source account's open channels.
package resolver

import (
	"context"
	"log/slog"
	"time"

	"github.com/xahau-payroll/payroll-engine/internal/ledgerclient"
	"github.com/xahau-payroll/payroll-engine/internal/payrollerr"
)

// LedgerClient is the subset of internal/ledgerclient.Client the resolver
// depends on.
type LedgerClient interface {
	FetchTx(hash string) (*ledgerclient.TxResult, error)
	FetchAccountChannels(source, destination string) ([]ledgerclient.AccountChannel, error)
}

// Input bundles the parameters needed to resolve a channel ID.
type Input struct {
	TxHash                     string
	Source                     string
	Destination                string
	ExpectedAmountDrops        int64
	ExpectedSettleDelaySeconds int64
}

// Resolver recovers a ledger-assigned channel ID for a create transaction.
type Resolver struct {
	ledger   LedgerClient
	logger   *slog.Logger
	schedule []time.Duration
}

// New constructs a Resolver with the given retry schedule (§4.2; read from
// config.Config.ResolverRetrySchedule by callers).
func New(ledger LedgerClient, logger *slog.Logger, schedule []time.Duration) *Resolver {
	return &Resolver{
		ledger:   ledger,
		logger:   logger.With("component", "channel_id_resolver"),
		schedule: schedule,
	}
}

// Resolve attempts the tx-metadata path first, then the bounded
// exponential-backoff account_channels disambiguation path. It returns
// payrollerr.ChannelIdUnresolvedError if neither path succeeds.
func (r *Resolver) Resolve(ctx context.Context, in Input) (string, error) {
	if channelID, ok, err := r.fromTxMeta(in.TxHash); err != nil {
		return "", err
	} else if ok {
		return channelID, nil
	}

	for attempt, wait := range r.schedule {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(wait):
		}

		channels, err := r.ledger.FetchAccountChannels(in.Source, in.Destination)
		if err != nil {
			r.logger.With("method", "Resolve").Warn("account_channels query failed during retry",
				"attempt", attempt+1, "error", err)
			continue
		}

		if channelID, ok := uniqueMatch(channels, in.ExpectedAmountDrops, in.ExpectedSettleDelaySeconds); ok {
			return channelID, nil
		}
	}

	return "", &payrollerr.ChannelIdUnresolvedError{TxHash: in.TxHash}
}

func (r *Resolver) fromTxMeta(txHash string) (string, bool, error) {
	tx, err := r.ledger.FetchTx(txHash)
	if err != nil {
		r.logger.With("method", "Resolve").Warn("fetch_tx failed, falling back to account_channels", "error", err)
		return "", false, nil
	}
	if tx == nil || !tx.Validated {
		return "", false, nil
	}
	for _, node := range tx.CreatedNodes {
		if node.LedgerEntryType == "PayChannel" {
			return node.LedgerIndex, true, nil
		}
	}
	return "", false, nil
}

func uniqueMatch(channels []ledgerclient.AccountChannel, amountDrops, settleDelay int64) (string, bool) {
	var match string
	count := 0
	for _, c := range channels {
		if c.AmountDrops == amountDrops && int64(c.SettleDelay) == settleDelay {
			match = c.ChannelID
			count++
		}
	}
	if count == 1 {
		return match, true
	}
	return "", false
}
