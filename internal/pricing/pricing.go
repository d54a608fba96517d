package pricing

import (
	"github.com/Simplici0/pricer/internal/expr"
	"github.com/Simplici0/pricer/internal/variables"
)

// TaxFormulaName is the formula whose contribution is never republished as
// subtotal, so taxes do not compound on themselves.
const TaxFormulaName = "taxCalculation"

// Type describes how a price is computed.
type Type string

const (
	TypeFixed   Type = "fixed"
	TypeDynamic Type = "dynamic"
)

// Price references the formulas evaluated together for a product.
type Price struct {
	ID           string             `json:"id" yaml:"id"`
	ProductID    string             `json:"product_id" yaml:"product_id"`
	PricingType  Type               `json:"pricing_type" yaml:"pricing_type"`
	FormulaNames []string           `json:"formula_names" yaml:"formula_names"`
	Amount       map[string]float64 `json:"amount,omitempty" yaml:"amount,omitempty"`
	Target       string             `json:"target,omitempty" yaml:"target,omitempty"`
	Interval     string             `json:"interval,omitempty" yaml:"interval,omitempty"`
}

// Formula is a named, optionally conditional expression.
type Formula struct {
	ID               string          `json:"id" yaml:"id"`
	FormulaName      string          `json:"formula_name" yaml:"formula_name"`
	Name             string          `json:"name" yaml:"name"`
	Description      string          `json:"description,omitempty" yaml:"description,omitempty"`
	ValueCalculation expr.Expression `json:"value_calculation" yaml:"value_calculation"`
	ApplyCondition   expr.Expression `json:"apply_condition" yaml:"apply_condition"`
}

func (f Formula) displayName() string {
	if f.Name != "" {
		return f.Name
	}
	return f.FormulaName
}

// FormulaResult is the outcome of evaluating one formula.
type FormulaResult struct {
	FormulaID       string   `json:"formulaId"`
	FormulaName     string   `json:"formulaName"`
	Name            string   `json:"name"`
	Value           float64  `json:"value"`
	Applied         bool     `json:"applied"`
	ConditionResult bool     `json:"conditionResult"`
	Calculation     string   `json:"calculation"`
	UsedVariables   []string `json:"usedVariables"`
	Error           string   `json:"error,omitempty"`
}

// Result is the full output of a pricing pass.
type Result struct {
	FinalPrice      float64         `json:"finalPrice"`
	Currency        string          `json:"currency"`
	AppliedFormulas []FormulaResult `json:"appliedFormulas"`
	AllVariables    variables.Table `json:"allVariables"`
	Calculation     string          `json:"calculation"`
}

// Request bundles the inputs of a pricing pass. Formulas are keyed by
// formula_name; only the ones named by Price.FormulaNames are evaluated.
type Request struct {
	Price            Price
	Formulas         map[string]Formula
	ProductVariables []variables.Variable
	Sources          variables.Sources
	Context          variables.Context
	Currency         string
}

// FormulaMap indexes formulas by formula_name.
func FormulaMap(formulas []Formula) map[string]Formula {
	m := make(map[string]Formula, len(formulas))
	for _, f := range formulas {
		m[f.FormulaName] = f
	}
	return m
}
