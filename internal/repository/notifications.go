package repository

import (
	"context"

	"github.com/xahau-payroll/payroll-engine/internal/model"
)

const notificationColumns = `id, recipient_party, kind, payload, read, created_at`

func scanNotification(row interface{ Scan(dest ...any) error }) (*model.Notification, error) {
	var n model.Notification
	err := row.Scan(&n.ID, &n.RecipientParty, &n.Kind, &n.Payload, &n.Read, &n.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func createNotification(ctx context.Context, ex executor, recipientParty string, kind model.NotificationKind, payload string) (*model.Notification, error) {
	row := ex.QueryRowContext(ctx,
		`INSERT INTO notifications (recipient_party, kind, payload)
		 VALUES ($1, $2, $3)
		 RETURNING `+notificationColumns,
		recipientParty, kind, payload)
	return scanNotification(row)
}

func listUnreadNotifications(ctx context.Context, ex executor, recipientParty string) ([]*model.Notification, error) {
	rows, err := ex.QueryContext(ctx,
		`SELECT `+notificationColumns+` FROM notifications WHERE recipient_party = $1 AND read = false ORDER BY created_at`,
		recipientParty)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// CreateNotification queues a notification outside a transaction.
func (r *Repository) CreateNotification(ctx context.Context, recipientParty string, kind model.NotificationKind, payload string) (*model.Notification, error) {
	return createNotification(ctx, r.db, recipientParty, kind, payload)
}

// ListUnreadNotifications reads pending notifications for a party.
func (r *Repository) ListUnreadNotifications(ctx context.Context, recipientParty string) ([]*model.Notification, error) {
	return listUnreadNotifications(ctx, r.db, recipientParty)
}

// CreateNotification queues a notification within tx, so it commits or
// rolls back together with the state change that triggered it
// (closure_request/closure_scheduled/closure_completed/orphan_imported, §4.3/§4.5).
func (t *Tx) CreateNotification(ctx context.Context, recipientParty string, kind model.NotificationKind, payload string) (*model.Notification, error) {
	return createNotification(ctx, t.tx, recipientParty, kind, payload)
}
