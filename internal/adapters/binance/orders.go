package binance

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"github.com/google/uuid"

	"github.com/areebasiddiqi/triarb/internal/domain"
)

// orderResponse mirrors POST/GET /api/v3/order.
type orderResponse struct {
	Symbol              string `json:"symbol"`
	OrderID             int64  `json:"orderId"`
	ClientOrderID       string `json:"clientOrderId"`
	Status              string `json:"status"`
	Side                string `json:"side"`
	ExecutedQty         string `json:"executedQty"`
	CummulativeQuoteQty string `json:"cummulativeQuoteQty"`
}

// SubmitOrder places a MARKET order for one leg and blocks for its terminal
// result. The conversion amount is denominated in the leg's From currency:
// a BUY spends quote (quoteOrderQty), a SELL spends base (quantity).
//
// We always set our own client order ID before the request goes out, so a
// timed-out submission can still be reconciled by that ID.
func (c *Client) SubmitOrder(ctx context.Context, leg domain.Leg, amount float64) (domain.OrderResult, error) {
	clientID := "triarb-" + uuid.New().String()

	params := url.Values{}
	params.Set("symbol", leg.Symbol)
	params.Set("side", string(leg.Side))
	params.Set("type", "MARKET")
	params.Set("newOrderRespType", "FULL")
	params.Set("newClientOrderId", clientID)
	if leg.Side == domain.SideBuy {
		params.Set("quoteOrderQty", formatAmount(amount))
	} else {
		params.Set("quantity", formatAmount(amount))
	}

	var resp orderResponse
	if err := c.signedCall(ctx, http.MethodPost, "/api/v3/order", params, &resp); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return domain.OrderResult{}, &domain.OrderTimeoutError{
				Symbol:  leg.Symbol,
				OrderID: clientID,
				Err:     err,
			}
		}
		return domain.OrderResult{}, &domain.OrderError{Symbol: leg.Symbol, Side: leg.Side, Err: err}
	}

	return toOrderResult(resp), nil
}

// Reconcile queries the current state of an order by the client ID we
// assigned at submission.
func (c *Client) Reconcile(ctx context.Context, symbol, orderID string) (domain.OrderResult, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("origClientOrderId", orderID)

	var resp orderResponse
	if err := c.signedCall(ctx, http.MethodGet, "/api/v3/order", params, &resp); err != nil {
		return domain.OrderResult{}, err
	}
	return toOrderResult(resp), nil
}

// toOrderResult maps a Binance order payload onto the domain result. The
// filled amount is what the conversion produced: base quantity for a BUY,
// quote quantity for a SELL.
func toOrderResult(resp orderResponse) domain.OrderResult {
	out := domain.OrderResult{OrderID: resp.ClientOrderID}

	filledBase, _ := strconv.ParseFloat(resp.ExecutedQty, 64)
	filledQuote, _ := strconv.ParseFloat(resp.CummulativeQuoteQty, 64)
	if resp.Side == string(domain.SideBuy) {
		out.FilledAmount = filledBase
	} else {
		out.FilledAmount = filledQuote
	}

	switch resp.Status {
	case "FILLED":
		out.Status = domain.OrderFilled
	case "REJECTED", "EXPIRED", "EXPIRED_IN_MATCH":
		out.Status = domain.OrderRejected
	case "CANCELED":
		out.Status = domain.OrderCanceled
	default: // NEW, PARTIALLY_FILLED
		out.Status = domain.OrderPending
	}
	return out
}

// formatAmount renders an amount the way the API expects: plain decimal,
// trimmed to 8 places.
func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', 8, 64)
}
