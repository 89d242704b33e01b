package binance

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/areebasiddiqi/triarb/internal/domain"
)

const (
	defaultWSBase = "wss://stream.binance.com:9443"

	// maxQuoteAge bounds how old a cached quote may be before the client
	// falls back to REST for the snapshot.
	maxQuoteAge = 5 * time.Second

	maxBackoff = 16 * time.Second
)

// quote is one cached top-of-book update.
type quote struct {
	bid, ask float64
	at       time.Time
}

// BookTickerStream keeps a live top-of-book cache fed by the combined
// bookTicker WebSocket streams of the subscribed symbols. It reconnects with
// exponential backoff and never fails the caller: a dead stream just means
// stale quotes, which FetchSnapshot detects and routes around.
type BookTickerStream struct {
	wsBase  string
	symbols []string

	mu     sync.RWMutex
	quotes map[string]quote
}

// NewBookTickerStream creates a stream for the given symbols. If wsBase is
// empty the production endpoint is used.
func NewBookTickerStream(wsBase string, symbols []string) *BookTickerStream {
	if wsBase == "" {
		wsBase = defaultWSBase
	}
	return &BookTickerStream{
		wsBase:  wsBase,
		symbols: symbols,
		quotes:  make(map[string]quote, len(symbols)),
	}
}

// Run connects and consumes updates until the context is cancelled.
// Meant to be launched as a goroutine from main.
func (s *BookTickerStream) Run(ctx context.Context) {
	url := s.wsBase + "/stream?streams=" + s.streamNames()
	backoff := time.Second

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
		if err != nil {
			slog.Warn("binance stream: connect failed", "err", err, "backoff", backoff)
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			backoff = min(backoff*2, maxBackoff)
			continue
		}

		slog.Info("binance stream: connected", "symbols", len(s.symbols))
		backoff = time.Second
		s.consume(ctx, conn)
		conn.Close()
	}
}

// consume reads messages until the connection breaks or the context ends.
func (s *BookTickerStream) consume(ctx context.Context, conn *websocket.Conn) {
	// Unblock ReadMessage when the context is cancelled.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				slog.Warn("binance stream: read failed, reconnecting", "err", err)
			}
			return
		}
		s.apply(message)
	}
}

// combinedEvent mirrors one frame of a combined-stream connection.
type combinedEvent struct {
	Data struct {
		Symbol   string `json:"s"`
		BidPrice string `json:"b"`
		AskPrice string `json:"a"`
	} `json:"data"`
}

// apply folds one bookTicker frame into the cache.
func (s *BookTickerStream) apply(message []byte) {
	var ev combinedEvent
	if err := json.Unmarshal(message, &ev); err != nil || ev.Data.Symbol == "" {
		return
	}
	bid, err1 := strconv.ParseFloat(ev.Data.BidPrice, 64)
	ask, err2 := strconv.ParseFloat(ev.Data.AskPrice, 64)
	if err1 != nil || err2 != nil {
		return
	}

	s.mu.Lock()
	s.quotes[ev.Data.Symbol] = quote{bid: bid, ask: ask, at: time.Now()}
	s.mu.Unlock()
}

// Snapshot assembles a domain snapshot from the cache. ok is false when any
// requested symbol is missing or older than maxQuoteAge, telling the caller
// to fetch over REST instead. Individual zero sides are kept: the detector
// treats them as stale paths, not errors.
func (s *BookTickerStream) Snapshot(symbols []string, takerFeeRate float64) (domain.Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := time.Now()
	markets := make([]domain.Market, 0, len(symbols))
	for _, sym := range symbols {
		q, ok := s.quotes[sym]
		if !ok || now.Sub(q.at) > maxQuoteAge {
			return domain.Snapshot{}, false
		}
		markets = append(markets, domain.Market{
			Symbol:       sym,
			Bid:          q.bid,
			Ask:          q.ask,
			TakerFeeRate: takerFeeRate,
		})
	}
	return domain.NewSnapshot(markets, now.UTC()), true
}

// streamNames renders the combined-stream path segment:
// btcusdt@bookTicker/ethusdt@bookTicker/...
func (s *BookTickerStream) streamNames() string {
	names := make([]string, len(s.symbols))
	for i, sym := range s.symbols {
		names[i] = strings.ToLower(sym) + "@bookTicker"
	}
	return strings.Join(names, "/")
}
