package repository

import (
	"context"

	"github.com/xahau-payroll/payroll-engine/internal/model"
)

const paymentEventColumns = `id, channel_id, tx_hash, kind, amount_drops, result_code, ledger_index, observed_at`

func scanPaymentEvent(row interface{ Scan(dest ...any) error }) (*model.PaymentEvent, error) {
	var p model.PaymentEvent
	err := row.Scan(&p.ID, &p.ChannelID, &p.TxHash, &p.Kind, &p.AmountDrops, &p.ResultCode, &p.LedgerIndex, &p.ObservedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func recordPaymentEvent(ctx context.Context, ex executor, p *model.PaymentEvent) (*model.PaymentEvent, error) {
	row := ex.QueryRowContext(ctx,
		`INSERT INTO payments (channel_id, tx_hash, kind, amount_drops, result_code, ledger_index)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING `+paymentEventColumns,
		p.ChannelID, p.TxHash, p.Kind, p.AmountDrops, p.ResultCode, p.LedgerIndex)
	return scanPaymentEvent(row)
}

func listPaymentEventsByChannel(ctx context.Context, ex executor, channelDBID int64) ([]*model.PaymentEvent, error) {
	rows, err := ex.QueryContext(ctx, `SELECT `+paymentEventColumns+` FROM payments WHERE channel_id = $1 ORDER BY observed_at`, channelDBID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.PaymentEvent
	for rows.Next() {
		p, err := scanPaymentEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// ListPaymentEventsByChannel reads the audit trail for a channel outside a
// transaction.
func (r *Repository) ListPaymentEventsByChannel(ctx context.Context, channelDBID int64) ([]*model.PaymentEvent, error) {
	return listPaymentEventsByChannel(ctx, r.db, channelDBID)
}

// RecordPaymentEvent appends an audit row for ledger activity observed
// against a channel (create/fund/claim_close/claim_only, §4.3) within tx.
func (t *Tx) RecordPaymentEvent(ctx context.Context, p *model.PaymentEvent) (*model.PaymentEvent, error) {
	return recordPaymentEvent(ctx, t.tx, p)
}
