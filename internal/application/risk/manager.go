// Package risk custodia los contadores de riesgo del proceso: límite diario
// de trades, exposición acumulada, cooldown por path y el circuit breaker de
// pérdidas consecutivas.
package risk

import (
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/areebasiddiqi/triarb/internal/domain"
)

// Config define los límites de riesgo. Se validan al arrancar.
type Config struct {
	MaxDailyTrades       int
	CooldownPeriod       time.Duration
	MaxTradeAmount       float64
	MaxPositionSize      float64
	MaxConsecutiveLosses int
}

// Manager es el único dueño del RiskState. Toda lectura y escritura pasa por
// su mutex, que da la disciplina de escritor único que necesitan los
// contadores cuando varias ejecuciones terminan casi a la vez.
//
// El presupuesto se reserva al aprobar, no al terminar: como las ejecuciones
// corren en goroutines propias, un tick puede aprobar varios paths antes de
// que el primero registre su resultado. Cada aprobación descuenta un slot del
// límite diario y su importe de la posición máxima; RecordResult libera la
// reserva y consolida el resultado real.
type Manager struct {
	mu    sync.Mutex
	cfg   Config
	state domain.RiskState
	now   func() time.Time // reloj inyectable para tests

	// Reservas en vuelo: aprobadas pero todavía sin resultado terminal.
	// No forman parte del estado persistido.
	inflight int
	reserved float64
}

// New crea un Manager sembrado con un estado persistido previamente (o uno
// limpio de domain.NewRiskState).
func New(cfg Config, state domain.RiskState) *Manager {
	if state.LastTradeByPath == nil {
		state.LastTradeByPath = make(map[string]time.Time)
	}
	return &Manager{cfg: cfg, state: state, now: time.Now}
}

// Approve aplica los checks de riesgo en orden; el primero que falla fija el
// motivo del rechazo. Al aprobar reserva un slot del límite diario y el
// importe contra la posición máxima hasta que RecordResult cierre el intento.
// El importe aprobado queda acotado por min(max_trade_amount,
// max_position_size menos la exposición comprometida y reservada).
func (m *Manager) Approve(opp domain.Opportunity) domain.Decision {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	m.state.Rollover(now)

	if m.state.TradesToday+m.inflight >= m.cfg.MaxDailyTrades {
		return reject(domain.ReasonDailyLimit)
	}

	if last, ok := m.state.LastTradeByPath[opp.Path.ID()]; ok {
		if now.Sub(last) < m.cfg.CooldownPeriod {
			return reject(domain.ReasonCooldown)
		}
	}

	amount := math.Min(opp.InputAmount, m.cfg.MaxTradeAmount)
	amount = math.Min(amount, m.cfg.MaxPositionSize-m.state.ExposureToday-m.reserved)
	if amount <= 0 {
		return reject(domain.ReasonExposure)
	}

	if m.state.ConsecutiveLosses >= m.cfg.MaxConsecutiveLosses {
		return reject(domain.ReasonCircuitBreaker)
	}

	m.inflight++
	m.reserved += amount
	return domain.Decision{Approved: true, Amount: amount}
}

// MarkExecutionStart sella el cooldown del path en el momento en que arranca
// la ejecución. Sellarlo al inicio y no al final cierra la carrera en la que
// un tick posterior aprueba el mismo path con el primero aún en vuelo.
func (m *Manager) MarkExecutionStart(pathID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.LastTradeByPath[pathID] = m.now()
}

// RecordResult consolida un trade terminal en los contadores y libera la
// reserva que Approve dejó en vuelo.
//
//	success → trade contado, exposición comprometida, racha a cero
//	partial → trade contado, exposición comprometida, racha +1
//	aborted → solo libera la reserva: nunca llegó a convertirse nada
func (m *Manager) RecordResult(rec domain.TradeRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.state.Rollover(m.now())

	// Con clamp: un resultado puede llegar sin aprobación previa
	// (restauración tras reinicio).
	if m.inflight > 0 {
		m.inflight--
	}
	m.reserved = math.Max(0, m.reserved-rec.InputAmount)

	switch rec.Status {
	case domain.TradeAborted:
		return
	case domain.TradeSuccess:
		m.state.ConsecutiveLosses = 0
	case domain.TradePartial:
		m.state.ConsecutiveLosses++
		if m.state.ConsecutiveLosses >= m.cfg.MaxConsecutiveLosses {
			slog.Warn("risk: circuit breaker tripped",
				"consecutive_losses", m.state.ConsecutiveLosses,
				"path", rec.PathID,
			)
		}
	}

	m.state.TradesToday++
	m.state.ExposureToday += rec.InputAmount
}

// Snapshot devuelve una copia del estado actual para persistencia o display.
func (m *Manager) Snapshot() domain.RiskState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.Clone()
}

func reject(reason domain.RejectReason) domain.Decision {
	return domain.Decision{Approved: false, Reason: reason}
}
