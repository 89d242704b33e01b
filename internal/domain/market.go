package domain

import (
	"fmt"
	"time"
)

// Market representa un par de trading del exchange con su mejor cotización.
// Bid es el mejor precio para vender el activo base por el quote; Ask es el
// mejor precio para comprar el base con el quote. Un lado ausente o a cero
// significa libro stale o sin liquidez en ese lado.
type Market struct {
	Symbol       string // símbolo del exchange, p. ej. "BTCUSDT"
	Base         string
	Quote        string
	Bid          float64
	Ask          float64
	TakerFeeRate float64 // fracción, p. ej. 0.001 para 0.1%
}

// Pair devuelve la clave canónica "BASE/QUOTE" de este mercado.
func (m Market) Pair() string {
	return m.Base + "/" + m.Quote
}

// HasBid indica si el lado de venta del libro es utilizable.
func (m Market) HasBid() bool { return m.Bid > 0 }

// HasAsk indica si el lado de compra del libro es utilizable.
func (m Market) HasAsk() bool { return m.Ask > 0 }

// Snapshot es una vista puntual de los libros de un conjunto de mercados,
// indexada por símbolo. Es un value object: los detectores lo leen, nadie lo
// muta tras construirlo.
type Snapshot struct {
	Markets map[string]Market
	Taken   time.Time
}

// NewSnapshot construye un Snapshot a partir de una lista de mercados tomada
// en el instante dado.
func NewSnapshot(markets []Market, taken time.Time) Snapshot {
	bySymbol := make(map[string]Market, len(markets))
	for _, m := range markets {
		bySymbol[m.Symbol] = m
	}
	return Snapshot{Markets: bySymbol, Taken: taken}
}

// Market devuelve el mercado para el símbolo dado.
func (s Snapshot) Market(symbol string) (Market, bool) {
	m, ok := s.Markets[symbol]
	return m, ok
}

// String implementa fmt.Stringer para los logs.
func (s Snapshot) String() string {
	return fmt.Sprintf("snapshot{markets=%d taken=%s}", len(s.Markets), s.Taken.Format("15:04:05"))
}
