// Package reconciler implements the Ledger Reconciler (§4.5): on-demand and
// periodic jobs that pull on-chain channel state back into the database
// without ever touching off_chain_accumulated_balance, the one balance the
// reconciler is forbidden to write.
package reconciler

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/xahau-payroll/payroll-engine/internal/epoch"
	"github.com/xahau-payroll/payroll-engine/internal/ledgerclient"
	"github.com/xahau-payroll/payroll-engine/internal/model"
	"github.com/xahau-payroll/payroll-engine/internal/payrollerr"
	"github.com/xahau-payroll/payroll-engine/internal/repository"
)

// LedgerClient is the subset of ledgerclient.Client the reconciler needs.
type LedgerClient interface {
	FetchChannelEntry(channelID string) (*ledgerclient.ChannelEntry, error)
	FetchAccountChannels(source, destination string) ([]ledgerclient.AccountChannel, error)
}

const defaultMinInterval = 60 * time.Second
const defaultConcurrency = 8

// Reconciler drives sync-one and sync-all against the ledger.
type Reconciler struct {
	repo        *repository.Repository
	ledger      LedgerClient
	logger      *slog.Logger
	minInterval time.Duration
	sem         *semaphore.Weighted
	tickerEvery time.Duration
}

// New constructs a Reconciler. minIntervalSeconds <= 0 falls back to 60s;
// batchConcurrency <= 0 falls back to 8 (§4.5 defaults).
func New(repo *repository.Repository, ledger LedgerClient, logger *slog.Logger, minIntervalSeconds int64, batchConcurrency int) *Reconciler {
	minInterval := defaultMinInterval
	if minIntervalSeconds > 0 {
		minInterval = time.Duration(minIntervalSeconds) * time.Second
	}
	concurrency := int64(defaultConcurrency)
	if batchConcurrency > 0 {
		concurrency = int64(batchConcurrency)
	}
	return &Reconciler{
		repo:        repo,
		ledger:      ledger,
		logger:      logger.With("component", "reconciler"),
		minInterval: minInterval,
		sem:         semaphore.NewWeighted(concurrency),
		tickerEvery: minInterval,
	}
}

// SyncOne reconciles a single channel against the ledger. It refuses to run
// (RecentlySyncedError) if the channel was synced within minInterval.
func (r *Reconciler) SyncOne(ctx context.Context, channelDBID int64, now time.Time) (*model.PaymentChannel, error) {
	channel, err := r.repo.GetChannel(ctx, channelDBID)
	if err != nil {
		return nil, err
	}
	if channel == nil {
		return nil, &payrollerr.InvalidParametersError{Reason: "channel not found"}
	}
	if channel.ChannelID == nil {
		return nil, &payrollerr.InvariantViolationError{Name: "sync_attempted_before_channel_id_resolved"}
	}
	if channel.LastLedgerSync != nil {
		since := now.Sub(*channel.LastLedgerSync)
		if since < r.minInterval {
			return nil, &payrollerr.RecentlySyncedError{SecondsSince: int64(since.Seconds())}
		}
	}

	entry, err := r.ledger.FetchChannelEntry(*channel.ChannelID)
	if err != nil {
		return nil, err
	}

	var result *model.PaymentChannel
	err = r.repo.WithTransaction(ctx, func(tx *repository.Tx) error {
		ch, err := tx.GetChannelForUpdate(ctx, channelDBID)
		if err != nil {
			return err
		}
		if entry == nil {
			ch, err = r.applyNotFound(ctx, tx, ch, now)
		} else {
			ch, err = r.applyFound(ctx, tx, ch, entry, now)
		}
		if err != nil {
			return err
		}
		result = ch
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// notFoundOutcome is the pure decision computed for the NotFound branch of
// sync-one, kept separate from the transactional write so it is testable
// without a database.
type notFoundOutcome struct {
	channel       *model.PaymentChannel
	changed       bool
	anomalous     bool
	notifyPayload string
}

// decideNotFound computes what sync-one should do when the ledger no longer
// has the channel: if a recorded closure was tesSUCCESS, that closure is
// adopted as the cause; otherwise the channel is marked closed for reason
// vanished and a notification is raised. The off-chain balance is never
// touched in the anomalous case — operator action is required.
func decideNotFound(ch *model.PaymentChannel, now time.Time) notFoundOutcome {
	if ch.Status != model.ChannelActive && ch.Status != model.ChannelClosing {
		return notFoundOutcome{channel: ch}
	}

	anomalous := ch.ClosureTxHash == nil
	ch.Status = model.ChannelClosed
	ch.ClosedAt = &now
	ch.LastLedgerSync = &now

	out := notFoundOutcome{channel: ch, changed: true, anomalous: anomalous}
	if anomalous {
		out.notifyPayload = `{"channel_id":"` + deref(ch.ChannelID) + `","reason":"vanished"}`
	}
	return out
}

func (r *Reconciler) applyNotFound(ctx context.Context, tx *repository.Tx, ch *model.PaymentChannel, now time.Time) (*model.PaymentChannel, error) {
	outcome := decideNotFound(ch, now)
	if !outcome.changed {
		return outcome.channel, nil
	}

	if err := tx.UpdateChannel(ctx, outcome.channel); err != nil {
		return nil, err
	}

	if outcome.anomalous {
		if _, err := tx.CreateNotification(ctx, outcome.channel.PublicKey, model.NotificationClosureComplete, outcome.notifyPayload); err != nil {
			return nil, err
		}
		r.logger.Warn("channel vanished from ledger without a recorded closure", "channel_db_id", outcome.channel.ID, "channel_id", deref(outcome.channel.ChannelID))
	} else {
		r.logger.Info("channel confirmed closed via recorded closure tx", "channel_db_id", outcome.channel.ID, "closure_tx_hash", deref(outcome.channel.ClosureTxHash))
	}
	return outcome.channel, nil
}

// decideFound computes the Found-branch update: refresh on_chain_balance and
// last_ledger_sync, and promote a closing channel past its expiration to
// closed.
func decideFound(ch *model.PaymentChannel, entry *ledgerclient.ChannelEntry, now time.Time) *model.PaymentChannel {
	ch.OnChainBalance = epoch.FromDrops(entry.BalanceDrops)
	ch.LastLedgerSync = &now

	if ch.Status == model.ChannelClosing && entry.Expiration != nil && *entry.Expiration <= epoch.NowRippleTime(now) {
		ch.Status = model.ChannelClosed
		ch.ClosedAt = &now
	}
	return ch
}

func (r *Reconciler) applyFound(ctx context.Context, tx *repository.Tx, ch *model.PaymentChannel, entry *ledgerclient.ChannelEntry, now time.Time) (*model.PaymentChannel, error) {
	ch = decideFound(ch, entry, now)
	if err := tx.UpdateChannel(ctx, ch); err != nil {
		return nil, err
	}
	return ch, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// SyncAllResult is the per-channel or per-orphan outcome of a sync-all pass.
type SyncAllResult struct {
	ChannelDBID int64
	ChannelID   string
	Imported    bool
	Error       error
}

// SyncAll reconciles every known channel of organizationID, bounded to
// sem's weight concurrent in-flight syncs, and imports any ledger channel
// unknown to the database as an orphan (§4.5).
func (r *Reconciler) SyncAll(ctx context.Context, organizationID int64, now time.Time) ([]SyncAllResult, error) {
	channels, err := r.repo.ListChannelsByOrganization(ctx, organizationID)
	if err != nil {
		return nil, err
	}

	known := make(map[string]bool, len(channels))
	results := make([]SyncAllResult, 0, len(channels))
	resultCh := make(chan SyncAllResult, len(channels))

	for _, ch := range channels {
		if ch.ChannelID != nil {
			known[*ch.ChannelID] = true
		}
		ch := ch
		if err := r.sem.Acquire(ctx, 1); err != nil {
			return nil, err
		}
		go func() {
			defer r.sem.Release(1)
			_, syncErr := r.SyncOne(ctx, ch.ID, now)
			resultCh <- SyncAllResult{ChannelDBID: ch.ID, ChannelID: deref(ch.ChannelID), Error: syncErr}
		}()
	}
	for range channels {
		results = append(results, <-resultCh)
	}

	orphans, err := r.importOrphans(ctx, organizationID, known, now)
	if err != nil {
		return results, err
	}
	results = append(results, orphans...)
	return results, nil
}

func (r *Reconciler) importOrphans(ctx context.Context, organizationID int64, known map[string]bool, now time.Time) ([]SyncAllResult, error) {
	orgs, err := r.repo.ListOrganizations(ctx)
	if err != nil {
		return nil, err
	}
	var escrowWallet string
	for _, o := range orgs {
		if o.ID == organizationID {
			escrowWallet = o.EscrowWallet
			break
		}
	}
	if escrowWallet == "" {
		return nil, &payrollerr.InvalidParametersError{Reason: "organization not found"}
	}

	ledgerChannels, err := r.ledger.FetchAccountChannels(escrowWallet, "")
	if err != nil {
		return nil, err
	}

	var out []SyncAllResult
	for _, lc := range ledgerChannels {
		if known[lc.ChannelID] {
			continue
		}
		imported, err := r.importOne(ctx, organizationID, lc, now)
		out = append(out, SyncAllResult{ChannelID: lc.ChannelID, Imported: true, Error: err})
		if err == nil {
			out[len(out)-1].ChannelDBID = imported.ID
		}
	}
	return out, nil
}

func (r *Reconciler) importOne(ctx context.Context, organizationID int64, lc ledgerclient.AccountChannel, now time.Time) (*model.PaymentChannel, error) {
	var imported *model.PaymentChannel
	err := r.repo.WithTransaction(ctx, func(tx *repository.Tx) error {
		ch := &model.PaymentChannel{
			ChannelID:             &lc.ChannelID,
			OrganizationID:        organizationID,
			EscrowFundedAmount:    epoch.FromDrops(lc.AmountDrops),
			OnChainBalance:        epoch.FromDrops(lc.BalanceDrops),
			SettleDelaySeconds:    int64(lc.SettleDelay),
			CancelAfterRippleTime: lc.CancelAfter,
			ExpirationRippleTime:  lc.Expiration,
			LastLedgerSync:        &now,
			Status:                model.ChannelActive,
			PublicKey:             lc.PublicKey,
			Imported:              true,
		}
		created, err := tx.CreateChannel(ctx, ch)
		if err != nil {
			return err
		}
		payload := `{"channel_id":"` + lc.ChannelID + `"}`
		if _, err := tx.CreateNotification(ctx, "", model.NotificationOrphanImported, payload); err != nil {
			return err
		}
		imported = created
		return nil
	})
	if err != nil {
		return nil, err
	}
	r.logger.Info("orphan channel imported", "channel_id", lc.ChannelID, "organization_id", organizationID)
	return imported, nil
}

// RunPeriodic drives SyncAll across every organization every tickerEvery
// until ctx is cancelled, matching §5's "background jobs run on
// cooperatively scheduled timers distinct from request tasks". Intended to
// be started as one of the server's errgroup goroutines.
func (r *Reconciler) RunPeriodic(ctx context.Context) error {
	ticker := time.NewTicker(r.tickerEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			r.syncAllOrganizations(ctx)
		}
	}
}

func (r *Reconciler) syncAllOrganizations(ctx context.Context) {
	orgs, err := r.repo.ListOrganizations(ctx)
	if err != nil {
		r.logger.Error("failed to list organizations for periodic sync", "error", err)
		return
	}
	now := time.Now()
	for _, org := range orgs {
		if _, err := r.SyncAll(ctx, org.ID, now); err != nil {
			r.logger.Warn("periodic sync-all failed for organization", "organization_id", org.ID, "error", err)
		}
	}
}
