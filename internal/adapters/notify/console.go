// Package notify contains the ports.Notifier implementations: a console
// writer for interactive runs and a webhook poster for alerting.
package notify

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/areebasiddiqi/triarb/internal/domain"
)

// Console implementa ports.Notifier escribiendo a stdout.
type Console struct {
	out   io.Writer
	table bool
	quiet bool
}

// NewConsole crea un notificador que escribe a stdout.
func NewConsole(table, quiet bool) *Console {
	return &Console{out: os.Stdout, table: table, quiet: quiet}
}

// NewConsoleWriter crea un notificador sobre un writer arbitrario, para tests.
func NewConsoleWriter(w io.Writer, table, quiet bool) *Console {
	return &Console{out: w, table: table, quiet: quiet}
}

// NotifyOpportunities imprime las oportunidades de un ciclo, la más rentable
// primero (el detector ya las ordenó). Un ciclo vacío solo se anuncia si no
// estamos en modo quiet.
func (c *Console) NotifyOpportunities(_ context.Context, opps []domain.Opportunity) error {
	if len(opps) == 0 {
		if !c.quiet {
			fmt.Fprintf(c.out, "[%s] no opportunities above threshold\n", time.Now().Format("15:04:05"))
		}
		return nil
	}

	if c.table {
		c.printTable(opps)
	} else {
		c.printCompact(opps)
	}
	return nil
}

// NotifyTrade imprime una línea por trade terminal.
func (c *Console) NotifyTrade(_ context.Context, rec domain.TradeRecord) error {
	now := time.Now().Format("15:04:05")
	switch rec.Status {
	case domain.TradeSuccess:
		fmt.Fprintf(c.out, "[%s] TRADE %s %s in:%.4f out:%.4f profit:%+.4f (%.2fs)\n",
			now, rec.Status, rec.PathID, rec.InputAmount, rec.FinalAmount,
			rec.RealizedProfit, rec.CompletedAt.Sub(rec.StartedAt).Seconds())
	case domain.TradePartial:
		fmt.Fprintf(c.out, "[%s] TRADE %s %s legs:%d/3 in:%.4f recovered:%.4f err:%s\n",
			now, rec.Status, rec.PathID, rec.LegsExecuted, rec.InputAmount,
			rec.FinalAmount, rec.Error)
	default:
		fmt.Fprintf(c.out, "[%s] TRADE %s %s err:%s\n", now, rec.Status, rec.PathID, rec.Error)
	}
	return nil
}

// printCompact imprime lo esencial en una línea.
func (c *Console) printCompact(opps []domain.Opportunity) {
	now := time.Now().Format("15:04:05")
	best := opps[0]
	fmt.Fprintf(c.out, "[%s] %d opportunities | best %s %+.4f%% (%.4f → %.4f)\n",
		now, len(opps), best.Path.ID(), best.ProfitPct,
		best.InputAmount, best.ProjectedOutput)
}

// printTable imprime la tabla completa de oportunidades.
func (c *Console) printTable(opps []domain.Opportunity) {
	fmt.Fprintf(c.out, "\n[%s] %d opportunities\n", time.Now().Format("15:04:05"), len(opps))

	table := tablewriter.NewWriter(c.out)
	table.Header("#", "Path", "Input", "Output", "Profit", "Profit %")

	for i, opp := range opps {
		table.Append(
			fmt.Sprintf("%d", i+1),
			opp.Path.ID(),
			fmt.Sprintf("%.4f", opp.InputAmount),
			fmt.Sprintf("%.4f", opp.ProjectedOutput),
			fmt.Sprintf("%+.4f", opp.ProfitAmount()),
			fmt.Sprintf("%+.4f%%", opp.ProfitPct),
		)
	}
	table.Render()
}

// PrintStats imprime el resumen de rendimiento al cerrar.
func (c *Console) PrintStats(stats domain.Stats) {
	fmt.Fprintf(c.out, "\n=== PERFORMANCE (%d days) ===\n", stats.PeriodDays)
	fmt.Fprintf(c.out, "  Trades:          %d\n", stats.TotalTrades)
	fmt.Fprintf(c.out, "  Successful:      %d (%.1f%%)\n", stats.SuccessfulTrades, stats.SuccessRate)
	fmt.Fprintf(c.out, "  Total profit:    %+.4f\n", stats.TotalProfit)
	fmt.Fprintf(c.out, "  Avg per trade:   %+.4f\n", stats.AvgProfitPerTrade)
	fmt.Fprintln(c.out)
}
