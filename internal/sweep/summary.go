package sweep

import (
	"fmt"
	"strings"
)

// RenderSummaryMarkdown renders the human-readable top-N summary table a
// sweep produces alongside its manifest and results. Chart and HTML
// rendering belong to external consumers; this plain table is data the
// sweep owns.
func RenderSummaryMarkdown(manifest RunManifest, ranked []ConfigResult, field MetricField, topN int) string {
	if topN <= 0 || topN > len(ranked) {
		topN = len(ranked)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# Sweep Summary — %s\n\n", manifest.SweepID)
	fmt.Fprintf(&b, "- Symbol: %s\n", manifest.Symbol)
	fmt.Fprintf(&b, "- Strategy: %s\n", manifest.StrategyTag)
	fmt.Fprintf(&b, "- Configurations evaluated: %d\n", manifest.NumConfigs)
	fmt.Fprintf(&b, "- Ranked by: %s\n\n", field)

	b.WriteString("| Rank | Config | Sharpe | CAGR | MaxDD | ProfitFactor | Trades |\n")
	b.WriteString("|---|---|---|---|---|---|---|\n")
	for i := 0; i < topN; i++ {
		cr := ranked[i]
		fmt.Fprintf(&b, "| %d | %s | %.3f | %.3f | %.3f | %s | %d |\n",
			i+1, cr.ConfigID.String(), cr.Metrics.Sharpe, cr.Metrics.CAGR,
			cr.Metrics.MaxDrawdown, formatProfitFactor(cr.Metrics.ProfitFactor), cr.Metrics.NumTrades)
	}
	return b.String()
}

func formatProfitFactor(pf float64) string {
	if pf > 1e300 {
		return "+Inf"
	}
	return fmt.Sprintf("%.3f", pf)
}
