package pricing

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// roundPrice is round(v*100)/100 with halves rounded up, clamped at zero.
// The product is rounded to float64 before adding the half so the result
// does not depend on fused multiply-add.
func roundPrice(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	r := math.Floor(float64(v*100)+0.5) / 100
	if r <= 0 || math.IsInf(r, 0) {
		return 0
	}
	return r
}

func formatMoney(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "0.00"
	}
	return decimal.NewFromFloat(v).StringFixed(2)
}

// summarize renders "<name>: <calc> = <value>" for each applied formula,
// joined by " + " and closed with " = <final>".
func summarize(results []FormulaResult, final float64) string {
	parts := make([]string, 0, len(results))
	for _, r := range results {
		if !r.Applied {
			continue
		}
		parts = append(parts, r.Name+": "+r.Calculation+" = "+formatMoney(r.Value))
	}
	if len(parts) == 0 {
		return "No formulas applied = " + formatMoney(final)
	}
	return strings.Join(parts, " + ") + " = " + formatMoney(final)
}
