package alerts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// maxSlackFields caps the per-item fields in one attachment.
const maxSlackFields = 10

// SlackNotifier posts notifications to a Slack incoming webhook.
type SlackNotifier struct {
	webhookURL string
	channel    string
	client     *http.Client
}

// NewSlackNotifier creates a Slack webhook notifier.
func NewSlackNotifier(webhookURL, channel string) *SlackNotifier {
	return &SlackNotifier{
		webhookURL: webhookURL,
		channel:    channel,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (s *SlackNotifier) Name() string { return "slack" }

func (s *SlackNotifier) Send(ctx context.Context, n Notification) error {
	color := "#ff9900" // orange
	for _, it := range n.Items {
		if it.ProjectedQty.IsNegative() {
			color = "#cc0000" // dark red, stock already committed past zero
			break
		}
	}

	fields := []slackField{
		{Title: "Scope", Value: n.Scope, Short: true},
		{Title: "Items", Value: fmt.Sprintf("%d", len(n.Items)), Short: true},
	}
	for i, it := range n.Items {
		if i == maxSlackFields {
			fields = append(fields, slackField{Title: "More", Value: fmt.Sprintf("%d more items", len(n.Items)-i)})
			break
		}
		fields = append(fields, slackField{
			Title: fmt.Sprintf("%s @ %s", it.ItemCode, it.Warehouse),
			Value: fmt.Sprintf("projected %s / reorder level %s", it.ProjectedQty, it.ReorderLevel),
		})
	}

	payload := slackPayload{
		Channel: s.channel,
		Attachments: []slackAttachment{
			{
				Color:  color,
				Title:  fmt.Sprintf("%s: %s", DefaultSubject, n.Scope),
				Fields: fields,
				Footer: "stockwatch " + string(n.Path),
				Ts:     time.Now().Unix(),
			},
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal slack payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create slack request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("send slack notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("slack returned status %d", resp.StatusCode)
	}
	return nil
}

type slackPayload struct {
	Channel     string            `json:"channel,omitempty"`
	Attachments []slackAttachment `json:"attachments"`
}

type slackAttachment struct {
	Color  string       `json:"color"`
	Title  string       `json:"title"`
	Fields []slackField `json:"fields"`
	Footer string       `json:"footer"`
	Ts     int64        `json:"ts"`
}

type slackField struct {
	Title string `json:"title"`
	Value string `json:"value"`
	Short bool   `json:"short"`
}
