// Package engine decides when low-stock notifications go out. The Dispatcher
// handles single stock changes, the Scanner periodically re-checks every
// leaf warehouse.
package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/ogulcanaydogan/stockwatch/pkg/alerts"
	"github.com/ogulcanaydogan/stockwatch/pkg/model"
)

// HistoryRecorder persists notification history.
type HistoryRecorder interface {
	RecordNotification(ctx context.Context, rec *model.NotificationRecord) error
}

// outbox hands notifications to every notifier and records them. Delivery is
// best effort: failures are logged and never returned.
type outbox struct {
	notifiers []alerts.Notifier
	history   HistoryRecorder
	logger    *slog.Logger
	now       func() time.Time
}

func (o *outbox) deliver(ctx context.Context, path model.AlertPath, scope, recipient string, items []model.AlertPayload) alerts.Notification {
	n := alerts.Notification{
		ID:        uuid.New().String(),
		Path:      path,
		Scope:     scope,
		Recipient: recipient,
		Subject:   alerts.DefaultSubject,
		Items:     items,
		CreatedAt: o.now().UTC(),
	}

	for _, notifier := range o.notifiers {
		if err := notifier.Send(ctx, n); err != nil {
			o.logger.Error("send notification failed",
				"notifier", notifier.Name(),
				"scope", scope,
				"recipient", recipient,
				"error", err,
			)
		}
	}

	if o.history != nil {
		rec := &model.NotificationRecord{
			ID:        n.ID,
			Path:      path,
			Scope:     scope,
			Recipient: recipient,
			ItemCount: len(items),
			ItemCodes: n.ItemCodes(),
			CreatedAt: n.CreatedAt,
		}
		if err := o.history.RecordNotification(ctx, rec); err != nil {
			o.logger.Error("record notification", "id", n.ID, "error", err)
		}
	}

	o.logger.Info("low stock notification",
		"path", path,
		"scope", scope,
		"recipient", recipient,
		"items", len(items),
	)
	return n
}
