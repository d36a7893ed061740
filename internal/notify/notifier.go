package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/azamatb/parcelhub/internal/domain"
	"github.com/azamatb/parcelhub/internal/log"
	"github.com/azamatb/parcelhub/internal/metrics"
	"github.com/azamatb/parcelhub/internal/queue"
)

// PickupStore is the persistence surface the worker needs.
type PickupStore interface {
	FindPickup(ctx context.Context, pickupID string) (*domain.Pickup, error)
	MarkNotificationSent(ctx context.Context, pickupID string) error
}

// Notifier handles due reminder jobs: re-validate the pickup, send, mark
// sent. Stale jobs (cancelled pickup, already notified, window passed) are
// acked and skipped; only transient failures return an error so the message
// requeues.
type Notifier struct {
	store  PickupStore
	sender Sender
}

func New(store PickupStore, sender Sender) *Notifier {
	if sender == nil {
		sender = LogSender{}
	}
	return &Notifier{store: store, sender: sender}
}

func (n *Notifier) HandleDue(ctx context.Context, body []byte) error {
	var evt queue.PickupNotificationDue
	if err := json.Unmarshal(body, &evt); err != nil {
		// malformed payload will never succeed, drop it
		log.S().Errorw("malformed notification job", "error", err)
		return nil
	}

	p, err := n.store.FindPickup(ctx, evt.PickupID)
	if err != nil {
		return fmt.Errorf("load pickup %s: %w", evt.PickupID, err)
	}
	if skip := skipReason(p); skip != "" {
		log.S().Infow("skipping notification", "pickup_id", evt.PickupID, "reason", skip)
		metrics.NotificationsSent.WithLabelValues("skipped").Inc()
		return nil
	}

	subject := fmt.Sprintf("Pickup Reminder: %s", p.PickupID)
	msg := fmt.Sprintf(
		"Hello %s,\n\nThis is a reminder that your pickup (%s) is scheduled to start at %s.\n\n"+
			"Please ensure your packages are ready for collection.\n\nThank you!",
		p.Contact.Name, p.PickupID, p.Window.StartAt.Format(time.RFC3339))
	if err := n.sender.Send(p.Contact.Email, subject, msg); err != nil {
		metrics.NotificationsSent.WithLabelValues("failed").Inc()
		return fmt.Errorf("send reminder for %s: %w", p.PickupID, err)
	}

	if err := n.store.MarkNotificationSent(ctx, p.PickupID); err != nil {
		return fmt.Errorf("mark sent for %s: %w", p.PickupID, err)
	}
	metrics.NotificationsSent.WithLabelValues("sent").Inc()
	log.S().Infow("notification sent", "pickup_id", p.PickupID, "to", p.Contact.Email)
	return nil
}

func skipReason(p *domain.Pickup) string {
	switch {
	case p == nil:
		return "pickup_not_found_or_cancelled"
	case p.NotificationSent:
		return "notification_already_sent"
	case !p.Window.StartAt.IsZero() && p.Window.StartAt.Before(time.Now().UTC()):
		return "pickup_window_passed"
	case p.Contact.Email == "":
		return "no_recipient_email"
	default:
		return ""
	}
}
