package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// 取引メール送信サーバーへ依頼する。送信自体は外部サーバーの責務。
type EmailNotifier struct {
	endpoint string
	client   *http.Client
}

func NewEmailNotifier(endpoint string) *EmailNotifier {
	return &EmailNotifier{
		endpoint: endpoint,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

type transactionalEmailRequest struct {
	UserEmail string `json:"userEmail"`
	OrderID   int64  `json:"orderId"`
}

func (e *EmailNotifier) NotifyOrderCreated(ctx context.Context, n OrderNotice) error {
	if e.endpoint == "" {
		return nil
	}

	body, err := json.Marshal(transactionalEmailRequest{
		UserEmail: n.CustomerEmail,
		OrderID:   n.OrderID,
	})
	if err != nil {
		return fmt.Errorf("marshal email request failed: %w", err)
	}

	url := e.endpoint + "/email/send-transactional-email"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build email request failed: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("send email request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("email server returned %d", resp.StatusCode)
	}
	return nil
}
