package domain

import "time"

// RiskState agrupa los contadores de riesgo del proceso. El risk manager es
// el único escritor; el resto recibe copias. Los contadores diarios se
// resetean de forma perezosa cuando cambia la fecha.
type RiskState struct {
	Day               time.Time // medianoche UTC del día al que refieren los contadores
	TradesToday       int
	ExposureToday     float64
	ConsecutiveLosses int
	LastTradeByPath   map[string]time.Time
}

// NewRiskState devuelve un estado vacío anclado a la fecha del instante dado.
func NewRiskState(now time.Time) RiskState {
	return RiskState{
		Day:             now.UTC().Truncate(24 * time.Hour),
		LastTradeByPath: make(map[string]time.Time),
	}
}

// Rollover resetea los contadores diarios si now cae en una fecha posterior
// a Day. Los cooldowns por path y la racha de pérdidas sobreviven.
func (s *RiskState) Rollover(now time.Time) {
	day := now.UTC().Truncate(24 * time.Hour)
	if day.After(s.Day) {
		s.Day = day
		s.TradesToday = 0
		s.ExposureToday = 0
	}
}

// Clone devuelve una copia profunda segura para salir del manager.
func (s RiskState) Clone() RiskState {
	out := s
	out.LastTradeByPath = make(map[string]time.Time, len(s.LastTradeByPath))
	for k, v := range s.LastTradeByPath {
		out.LastTradeByPath[k] = v
	}
	return out
}

// RejectReason explica por qué el risk manager descartó una oportunidad.
type RejectReason string

const (
	ReasonDailyLimit     RejectReason = "daily trade limit reached"
	ReasonCooldown       RejectReason = "path in cooldown"
	ReasonExposure       RejectReason = "position size exhausted"
	ReasonCircuitBreaker RejectReason = "consecutive-loss circuit breaker"
)

// Decision es el veredicto del risk manager sobre una oportunidad candidata.
// Si aprueba, Amount lleva el importe a ejecutar, posiblemente ajustado a la
// baja por los límites de tamaño.
type Decision struct {
	Approved bool
	Amount   float64
	Reason   RejectReason
}
