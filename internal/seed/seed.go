package seed

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/Simplici0/pricer/internal/expr"
	"github.com/Simplici0/pricer/internal/pricing"
	"github.com/Simplici0/pricer/internal/variables"
)

const (
	DemoProductID    = "tour-demo"
	DemoDynamicPrice = "tour-demo-dynamic"
	DemoFixedPrice   = "tour-demo-fixed"
)

// namespace for deterministic formula ids, so re-seeding a fresh database
// yields the same ids.
var namespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/Simplici0/pricer/seed"))

// Stats contains seed operation counters.
type Stats struct {
	Inserts int
}

var demoVariables = []variables.Variable{
	{ID: "basePrice", Name: "Base price", Type: variables.TypeFixed, Value: 100, Description: "Price per participant"},
	{ID: "weekendFee", Name: "Weekend fee", Type: variables.TypeFixed, Value: 30, Description: "Flat surcharge on Saturday and Sunday"},
	{ID: "firstTimeDiscountRate", Name: "First time discount", Type: variables.TypePercentage, Value: -15, Description: "Applied to first-time customers"},
	{ID: "taxRate", Name: "Tax rate", Type: variables.TypePercentage, Value: 8.5},
}

// DemoFormulas are the formulas of the dynamic demo price, in evaluation order.
func DemoFormulas() []pricing.Formula {
	return []pricing.Formula{
		demoFormula("baseCalculation", "Base price", expr.MustCompile("participants", "*", "basePrice"), expr.Expression{}),
		demoFormula("weekendSurcharge", "Weekend surcharge",
			expr.MustCompile("weekendFee"),
			expr.MustCompile("isWeekend", "==", 1)),
		demoFormula("firstTimeDiscount", "First time discount",
			expr.MustCompile("subtotal", "*", "firstTimeDiscountRate", "/", 100),
			expr.MustCompile("isFirstTime", "==", 1)),
		demoFormula(pricing.TaxFormulaName, "Tax",
			expr.MustCompile("subtotal", "*", "taxRate", "/", 100),
			expr.Expression{}),
	}
}

func demoFormula(formulaName, name string, value, condition expr.Expression) pricing.Formula {
	return pricing.Formula{
		ID:               uuid.NewSHA1(namespace, []byte(DemoDynamicPrice+"/"+formulaName)).String(),
		FormulaName:      formulaName,
		Name:             name,
		ValueCalculation: value,
		ApplyCondition:   condition,
	}
}

// Run executes the demo seed in an idempotent way.
func Run(ctx context.Context, db *sql.DB) (Stats, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return Stats{}, fmt.Errorf("begin seed transaction: %w", err)
	}

	stats := Stats{}
	steps := []func(context.Context, *sql.Tx, *Stats) error{
		ensureProduct,
		ensureVariables,
		ensurePrices,
		ensureFormulas,
	}
	for _, step := range steps {
		if err := step(ctx, tx, &stats); err != nil {
			_ = tx.Rollback()
			return Stats{}, err
		}
	}

	if err := tx.Commit(); err != nil {
		return Stats{}, fmt.Errorf("commit seed transaction: %w", err)
	}

	return stats, nil
}

// insertIfMissing runs insert only when exists reports no row.
func insertIfMissing(ctx context.Context, tx *sql.Tx, stats *Stats, what, exists string, existsArgs []any, insert string, insertArgs ...any) error {
	var found bool
	if err := tx.QueryRowContext(ctx, exists, existsArgs...).Scan(&found); err != nil {
		return fmt.Errorf("check %s existence: %w", what, err)
	}
	if found {
		return nil
	}
	if _, err := tx.ExecContext(ctx, insert, insertArgs...); err != nil {
		return fmt.Errorf("insert %s: %w", what, err)
	}
	stats.Inserts++
	return nil
}

func ensureProduct(ctx context.Context, tx *sql.Tx, stats *Stats) error {
	return insertIfMissing(ctx, tx, stats, "demo product",
		`SELECT EXISTS(SELECT 1 FROM products WHERE id = ?)`, []any{DemoProductID},
		`INSERT INTO products (id, name) VALUES (?, ?)`, DemoProductID, "Demo tour")
}

func ensureVariables(ctx context.Context, tx *sql.Tx, stats *Stats) error {
	for _, v := range demoVariables {
		err := insertIfMissing(ctx, tx, stats, "variable "+v.ID,
			`SELECT EXISTS(SELECT 1 FROM variables WHERE product_id = ? AND id = ?)`, []any{DemoProductID, v.ID},
			`INSERT INTO variables (product_id, id, name, type, value, description) VALUES (?, ?, ?, ?, ?, ?)`,
			DemoProductID, v.ID, v.Name, string(v.Type), v.Value, v.Description)
		if err != nil {
			return err
		}
	}
	return nil
}

func ensurePrices(ctx context.Context, tx *sql.Tx, stats *Stats) error {
	formulas := DemoFormulas()
	names := make([]string, len(formulas))
	for i, f := range formulas {
		names[i] = f.FormulaName
	}
	namesJSON, err := json.Marshal(names)
	if err != nil {
		return fmt.Errorf("encode formula names: %w", err)
	}
	amountJSON, err := json.Marshal(map[string]float64{"USD": 199.99})
	if err != nil {
		return fmt.Errorf("encode fixed amount: %w", err)
	}

	const exists = `SELECT EXISTS(SELECT 1 FROM prices WHERE id = ?)`
	const insert = `
		INSERT INTO prices (id, product_id, pricing_type, formula_names, amount, billing_interval)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	if err := insertIfMissing(ctx, tx, stats, "dynamic price", exists, []any{DemoDynamicPrice},
		insert, DemoDynamicPrice, DemoProductID, string(pricing.TypeDynamic), string(namesJSON), nil, "one_time"); err != nil {
		return err
	}
	return insertIfMissing(ctx, tx, stats, "fixed price", exists, []any{DemoFixedPrice},
		insert, DemoFixedPrice, DemoProductID, string(pricing.TypeFixed), nil, string(amountJSON), "one_time")
}

func ensureFormulas(ctx context.Context, tx *sql.Tx, stats *Stats) error {
	for _, f := range DemoFormulas() {
		value, err := json.Marshal(f.ValueCalculation)
		if err != nil {
			return fmt.Errorf("encode %s: %w", f.FormulaName, err)
		}
		var condition any
		if !f.ApplyCondition.IsEmpty() {
			raw, err := json.Marshal(f.ApplyCondition)
			if err != nil {
				return fmt.Errorf("encode %s condition: %w", f.FormulaName, err)
			}
			condition = string(raw)
		}

		err = insertIfMissing(ctx, tx, stats, "formula "+f.FormulaName,
			`SELECT EXISTS(SELECT 1 FROM formulas WHERE price_id = ? AND formula_name = ?)`, []any{DemoDynamicPrice, f.FormulaName},
			`INSERT INTO formulas (id, price_id, formula_name, name, value_calculation, apply_condition) VALUES (?, ?, ?, ?, ?, ?)`,
			f.ID, DemoDynamicPrice, f.FormulaName, f.Name, string(value), condition)
		if err != nil {
			return err
		}
	}
	return nil
}
