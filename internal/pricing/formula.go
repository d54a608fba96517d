package pricing

import (
	"go.uber.org/zap"

	"github.com/Simplici0/pricer/internal/expr"
	"github.com/Simplici0/pricer/internal/variables"
)

const calculationError = "Error in calculation"

// EvaluateFormula applies f against the table and running totals. It never
// fails: condition errors count as "not applied" and value errors as a zero
// contribution, both logged.
func EvaluateFormula(f Formula, table variables.Table, calc expr.Context, logger *zap.Logger) FormulaResult {
	if logger == nil {
		logger = zap.NewNop()
	}

	res := FormulaResult{
		FormulaID:       f.ID,
		FormulaName:     f.FormulaName,
		Name:            f.displayName(),
		ConditionResult: true,
		UsedVariables:   usedVariables(f),
	}

	if !f.ApplyCondition.IsEmpty() {
		cond, err := f.ApplyCondition.Evaluate(table, calc)
		if err != nil {
			logger.Warn("formula condition failed",
				zap.String("formula", f.FormulaName),
				zap.Error(err),
			)
			res.Error = err.Error()
		}
		res.ConditionResult = err == nil && cond.Value == 1
	}

	if !res.ConditionResult {
		res.Calculation = "Condition not met: " + f.ApplyCondition.Render(table, calc)
		return res
	}

	value, err := f.ValueCalculation.Evaluate(table, calc)
	if err != nil {
		logger.Warn("formula calculation failed",
			zap.String("formula", f.FormulaName),
			zap.Error(err),
		)
		res.Calculation = calculationError
		res.Error = err.Error()
		return res
	}

	res.Value = value.Value
	res.Applied = true
	res.Calculation = f.ValueCalculation.Render(table, calc)
	return res
}

func usedVariables(f Formula) []string {
	seen := make(map[string]struct{})
	used := make([]string, 0)
	for _, e := range []expr.Expression{f.ApplyCondition, f.ValueCalculation} {
		for _, id := range e.References() {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			used = append(used, id)
		}
	}
	return used
}
