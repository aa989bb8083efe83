package alerts

import (
	"context"
	"strings"
	"time"

	"github.com/ogulcanaydogan/stockwatch/pkg/model"
)

// DefaultSubject is the subject line of every low-stock notification.
const DefaultSubject = "Low Stock Alert"

// Notification is one message to one recipient listing the low items under a
// display scope (the monitored warehouse or group the recipient belongs to).
type Notification struct {
	ID        string               `json:"id"`
	Path      model.AlertPath      `json:"path"`
	Scope     string               `json:"scope"`
	Recipient string               `json:"recipient"`
	Subject   string               `json:"subject"`
	Items     []model.AlertPayload `json:"items"`
	CreatedAt time.Time            `json:"created_at"`
}

// ItemCodes returns the comma-separated item codes carried by n.
func (n Notification) ItemCodes() string {
	codes := make([]string, len(n.Items))
	for i, it := range n.Items {
		codes[i] = it.ItemCode
	}
	return strings.Join(codes, ",")
}

// Notifier delivers notifications to an external system.
type Notifier interface {
	// Name returns the notifier identifier.
	Name() string

	// Send delivers a notification. Implementations must be safe for concurrent use.
	Send(ctx context.Context, n Notification) error
}
