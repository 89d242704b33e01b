package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/areebasiddiqi/triarb/internal/domain"
)

// Webhook posts JSON payloads to a configured HTTP endpoint. Delivery is
// best-effort: the scanner logs failures and moves on.
type Webhook struct {
	url  string
	http *http.Client
}

// NewWebhook creates a webhook notifier for the given URL.
func NewWebhook(url string) *Webhook {
	return &Webhook{
		url:  url,
		http: &http.Client{Timeout: 5 * time.Second},
	}
}

type webhookOpportunity struct {
	Path      string  `json:"path"`
	Input     float64 `json:"input"`
	Output    float64 `json:"output"`
	ProfitPct float64 `json:"profit_pct"`
}

type webhookPayload struct {
	Event         string               `json:"event"`
	At            time.Time            `json:"at"`
	Opportunities []webhookOpportunity `json:"opportunities,omitempty"`
	Trade         *domain.TradeRecord  `json:"trade,omitempty"`
}

// NotifyOpportunities posts the cycle's opportunities as one event.
func (w *Webhook) NotifyOpportunities(ctx context.Context, opps []domain.Opportunity) error {
	if len(opps) == 0 {
		return nil
	}
	payload := webhookPayload{Event: "opportunities", At: time.Now().UTC()}
	for _, opp := range opps {
		payload.Opportunities = append(payload.Opportunities, webhookOpportunity{
			Path:      opp.Path.ID(),
			Input:     opp.InputAmount,
			Output:    opp.ProjectedOutput,
			ProfitPct: opp.ProfitPct,
		})
	}
	return w.post(ctx, payload)
}

// NotifyTrade posts one terminal trade record.
func (w *Webhook) NotifyTrade(ctx context.Context, rec domain.TradeRecord) error {
	return w.post(ctx, webhookPayload{Event: "trade", At: time.Now().UTC(), Trade: &rec})
}

func (w *Webhook) post(ctx context.Context, payload webhookPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("notify.Webhook: marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("notify.Webhook: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.http.Do(req)
	if err != nil {
		return fmt.Errorf("notify.Webhook: post: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("notify.Webhook: status %d", resp.StatusCode)
	}
	return nil
}
