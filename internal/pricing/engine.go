package pricing

import (
	"context"

	"go.uber.org/zap"

	"github.com/Simplici0/pricer/internal/expr"
	"github.com/Simplici0/pricer/internal/variables"
)

const defaultCurrency = "USD"

// Engine runs pricing passes. It holds no per-request state and is safe for
// concurrent use.
type Engine struct {
	resolver *variables.Resolver
	logger   *zap.Logger
	currency string
	metrics  *metrics
}

// Option configures an Engine.
type Option func(*Engine)

func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

func WithResolver(r *variables.Resolver) Option {
	return func(e *Engine) {
		if r != nil {
			e.resolver = r
		}
	}
}

// WithDefaultCurrency sets the currency used when a request names none.
func WithDefaultCurrency(currency string) Option {
	return func(e *Engine) {
		if currency != "" {
			e.currency = currency
		}
	}
}

func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		resolver: variables.NewResolver(),
		logger:   zap.NewNop(),
		currency: defaultCurrency,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.metrics = newMetrics(e.logger)
	return e
}

// pass is the live state of one pricing pass: the running totals and a
// pass-local copy of the resolved table that receives the live subtotal.
type pass struct {
	vars variables.Table
	calc expr.Context
}

func (p *pass) apply(name string, value float64) {
	p.calc.RunningTotal += value
	if name == TaxFormulaName {
		return
	}
	p.calc.Subtotal = p.calc.RunningTotal
	p.vars.Put(variables.Variable{
		ID:    expr.ReservedSubtotal,
		Name:  "Subtotal",
		Type:  variables.TypeFixed,
		Value: p.calc.Subtotal,
	})
}

// Price evaluates req.Price. Formulas run in Price.FormulaNames order; the
// engine never reorders them. When no named formula resolves, the static
// amount for the currency is used instead.
func (e *Engine) Price(ctx context.Context, req Request) Result {
	currency := req.Currency
	if currency == "" {
		currency = e.currency
	}
	logger := e.logger.With(zap.String("price", req.Price.ID))

	var selected []Formula
	for _, name := range req.Price.FormulaNames {
		f, ok := req.Formulas[name]
		if !ok {
			logger.Warn("formula not found", zap.String("formula", name))
			continue
		}
		if f.FormulaName == "" {
			f.FormulaName = name
		}
		selected = append(selected, f)
	}

	if len(selected) == 0 {
		res := fixedPrice(req.Price, currency)
		e.metrics.recordPass(ctx, res, modeFixed)
		return res
	}

	resolved := e.resolver.Resolve(req.Sources, req.Context, req.ProductVariables)
	p := &pass{vars: resolved.Clone()}

	results := make([]FormulaResult, 0, len(selected))
	for _, f := range selected {
		fr := EvaluateFormula(f, p.vars, p.calc, logger)
		if fr.Error != "" {
			e.metrics.recordFailure(ctx, f.FormulaName)
		}
		if fr.Applied {
			p.apply(f.FormulaName, fr.Value)
		}
		results = append(results, fr)
	}

	final := roundPrice(p.calc.RunningTotal)
	res := Result{
		FinalPrice:      final,
		Currency:        currency,
		AppliedFormulas: results,
		AllVariables:    p.vars,
		Calculation:     summarize(results, final),
	}
	logger.Debug("price calculated",
		zap.Float64("final_price", final),
		zap.Int("formulas", len(results)),
	)
	e.metrics.recordPass(ctx, res, modeDynamic)
	return res
}

func fixedPrice(price Price, currency string) Result {
	amount := roundPrice(price.Amount[currency])
	return Result{
		FinalPrice:      amount,
		Currency:        currency,
		AppliedFormulas: []FormulaResult{},
		AllVariables:    variables.Table{},
		Calculation:     "Fixed price: " + formatMoney(amount) + " " + currency,
	}
}
