// Package scanner drives the periodic cycle: fetch snapshot, detect
// opportunities, gate them through risk, hand approvals to the executor and
// record the results.
package scanner

import (
	"sort"

	"github.com/areebasiddiqi/triarb/internal/domain"
)

// Detector computes the net return of every catalog path against a snapshot
// and keeps the ones above the profit threshold.
type Detector struct {
	catalog      []domain.Path
	inputAmount  float64
	minProfitPct float64
	workers      int
}

// NewDetector creates a Detector over a fixed path catalog. The catalog is
// computed once at startup and reused across scans.
func NewDetector(catalog []domain.Path, inputAmount, minProfitPct float64, workers int) *Detector {
	return &Detector{
		catalog:      catalog,
		inputAmount:  inputAmount,
		minProfitPct: minProfitPct,
		workers:      workers,
	}
}

// Scan simulates every path against the snapshot and returns the
// opportunities at or above the threshold, sorted by profit descending.
// Ties keep catalog order, and identical snapshots yield identical output:
// the scan is deterministic regardless of worker scheduling.
//
// Paths with a missing or zero market side are silently skipped: a stale
// book is noise, not an error.
func (d *Detector) Scan(snap domain.Snapshot) []domain.Opportunity {
	results := simulateConcurrent(snap, d.catalog, d.inputAmount, d.workers)

	opps := make([]domain.Opportunity, 0, len(results))
	for _, opp := range results {
		if opp.ProfitPct >= d.minProfitPct {
			opps = append(opps, opp)
		}
	}

	sort.SliceStable(opps, func(i, j int) bool {
		return opps[i].ProfitPct > opps[j].ProfitPct
	})
	return opps
}

// CatalogSize returns the number of paths under scan.
func (d *Detector) CatalogSize() int { return len(d.catalog) }

// Symbols returns the deduplicated market symbols the catalog touches, used
// to scope snapshot fetches.
func (d *Detector) Symbols() []string {
	seen := make(map[string]bool)
	var symbols []string
	for _, p := range d.catalog {
		for _, leg := range p.Legs {
			if !seen[leg.Symbol] {
				seen[leg.Symbol] = true
				symbols = append(symbols, leg.Symbol)
			}
		}
	}
	return symbols
}
