package binance

import (
	"context"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/areebasiddiqi/triarb/internal/domain"
)

// exchangeInfoResponse mirrors GET /api/v3/exchangeInfo.
type exchangeInfoResponse struct {
	Symbols []struct {
		Symbol     string `json:"symbol"`
		Status     string `json:"status"`
		BaseAsset  string `json:"baseAsset"`
		QuoteAsset string `json:"quoteAsset"`
	} `json:"symbols"`
}

// bookTickerEntry mirrors one element of GET /api/v3/ticker/bookTicker.
// Binance sends prices as strings.
type bookTickerEntry struct {
	Symbol   string `json:"symbol"`
	BidPrice string `json:"bidPrice"`
	AskPrice string `json:"askPrice"`
}

// FetchMarkets returns all symbols currently open for trading.
func (c *Client) FetchMarkets(ctx context.Context) ([]domain.Market, error) {
	var info exchangeInfoResponse
	if err := c.get(ctx, "/api/v3/exchangeInfo", nil, &info); err != nil {
		return nil, &domain.ConnectivityError{Op: "exchangeInfo", Err: err}
	}

	markets := make([]domain.Market, 0, len(info.Symbols))
	for _, s := range info.Symbols {
		if s.Status != "TRADING" {
			continue
		}
		markets = append(markets, domain.Market{
			Symbol:       s.Symbol,
			Base:         s.BaseAsset,
			Quote:        s.QuoteAsset,
			TakerFeeRate: c.takerFeeRate,
		})
	}
	return markets, nil
}

// FetchSnapshot returns top-of-book quotes for the given symbols. When a
// fresh WebSocket cache is attached it is preferred; otherwise one batched
// bookTicker request covers all symbols.
func (c *Client) FetchSnapshot(ctx context.Context, symbols []string) (domain.Snapshot, error) {
	if c.stream != nil {
		if snap, ok := c.stream.Snapshot(symbols, c.takerFeeRate); ok {
			return snap, nil
		}
	}

	query := url.Values{}
	query.Set("symbols", symbolsParam(symbols))

	var entries []bookTickerEntry
	if err := c.get(ctx, "/api/v3/ticker/bookTicker", query, &entries); err != nil {
		return domain.Snapshot{}, &domain.ConnectivityError{Op: "bookTicker", Err: err}
	}

	wanted := make(map[string]bool, len(symbols))
	for _, s := range symbols {
		wanted[s] = true
	}

	markets := make([]domain.Market, 0, len(symbols))
	for _, e := range entries {
		if !wanted[e.Symbol] {
			continue
		}
		bid, _ := strconv.ParseFloat(e.BidPrice, 64)
		ask, _ := strconv.ParseFloat(e.AskPrice, 64)
		markets = append(markets, domain.Market{
			Symbol:       e.Symbol,
			Bid:          bid,
			Ask:          ask,
			TakerFeeRate: c.takerFeeRate,
		})
	}
	return domain.NewSnapshot(markets, time.Now().UTC()), nil
}

// symbolsParam renders the JSON-array-of-strings query parameter the
// bookTicker endpoint expects: ["BTCUSDT","ETHUSDT"].
func symbolsParam(symbols []string) string {
	var sb strings.Builder
	sb.WriteByte('[')
	for i, s := range symbols {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteByte('"')
		sb.WriteString(s)
		sb.WriteByte('"')
	}
	sb.WriteByte(']')
	return sb.String()
}
