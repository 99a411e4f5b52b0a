package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Slackのincoming webhookへ注文サマリを投げる。
type SlackNotifier struct {
	webhookURL string
	client     *http.Client
}

func NewSlackNotifier(webhookURL string) *SlackNotifier {
	return &SlackNotifier{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: 10 * time.Second},
	}
}

func (s *SlackNotifier) NotifyOrderCreated(ctx context.Context, n OrderNotice) error {
	if s.webhookURL == "" {
		return nil
	}

	body, err := json.Marshal(slackOrderMessage(n))
	if err != nil {
		return fmt.Errorf("marshal slack message failed: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build slack request failed: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("send slack request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("slack webhook returned %d", resp.StatusCode)
	}
	return nil
}

// Slack Block Kit形式の注文通知
func slackOrderMessage(n OrderNotice) map[string]any {
	items := make([]map[string]any, 0, len(n.Lines))
	for _, l := range n.Lines {
		items = append(items, map[string]any{
			"type": "rich_text_section",
			"elements": []map[string]any{
				{
					"type": "text",
					"text": fmt.Sprintf("%d x %.2f - product %d", l.Quantity, l.Price, l.ProductID),
				},
			},
		})
	}

	return map[string]any{
		"blocks": []map[string]any{
			{
				"type": "header",
				"text": map[string]any{"type": "plain_text", "text": "New Order Received"},
			},
			{
				"type": "section",
				"fields": []map[string]any{
					{"type": "mrkdwn", "text": fmt.Sprintf("*Order:*\n%s", n.OrderNumber)},
					{"type": "mrkdwn", "text": fmt.Sprintf("*Order by:*\n%s", n.CustomerEmail)},
				},
			},
			{
				"type": "section",
				"fields": []map[string]any{
					{"type": "mrkdwn", "text": fmt.Sprintf("*City:* %s", n.Address.City)},
					{"type": "mrkdwn", "text": fmt.Sprintf("*Line 1:* %s", n.Address.Line1)},
					{"type": "mrkdwn", "text": fmt.Sprintf("*Post Code:* %s", n.Address.PostCode)},
					{"type": "mrkdwn", "text": fmt.Sprintf("*Country:* %s", n.Address.Country)},
				},
			},
			{
				"type": "section",
				"fields": []map[string]any{
					{"type": "mrkdwn", "text": fmt.Sprintf("*Total Items:*\n%d", len(n.Lines))},
					{"type": "mrkdwn", "text": fmt.Sprintf("*Total Amount:*\n%.2f", n.TotalAmount)},
				},
			},
			{
				"type": "rich_text",
				"elements": []map[string]any{
					{
						"type":     "rich_text_list",
						"style":    "bullet",
						"elements": items,
					},
				},
			},
		},
	}
}
