// Package store loads price definitions, formulas and product variables from
// SQLite and keeps pricing snapshots (quotes).
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/Simplici0/pricer/internal/pricing"
	"github.com/Simplici0/pricer/internal/variables"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Store is the SQLite-backed catalogue. Compiled formulas are cached per
// price; UpsertFormula invalidates the affected entry.
type Store struct {
	db       *sql.DB
	formulas *cache.Cache
	now      func() time.Time
}

func New(db *sql.DB, formulaTTL time.Duration) *Store {
	if formulaTTL <= 0 {
		formulaTTL = cache.NoExpiration
	}
	return &Store{
		db:       db,
		formulas: cache.New(formulaTTL, 10*time.Minute),
		now:      time.Now,
	}
}

// GetPrice loads one price definition.
func (s *Store) GetPrice(ctx context.Context, id string) (pricing.Price, error) {
	var (
		p            pricing.Price
		pricingType  string
		formulaNames sql.NullString
		amount       sql.NullString
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, product_id, pricing_type, formula_names, amount, COALESCE(target, ''), COALESCE(billing_interval, '')
		FROM prices
		WHERE id = ?
	`, id).Scan(&p.ID, &p.ProductID, &pricingType, &formulaNames, &amount, &p.Target, &p.Interval)
	if errors.Is(err, sql.ErrNoRows) {
		return pricing.Price{}, fmt.Errorf("price %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return pricing.Price{}, fmt.Errorf("query price: %w", err)
	}
	p.PricingType = pricing.Type(pricingType)

	if formulaNames.Valid && formulaNames.String != "" {
		if err := json.Unmarshal([]byte(formulaNames.String), &p.FormulaNames); err != nil {
			return pricing.Price{}, fmt.Errorf("decode formula_names of price %s: %w", id, err)
		}
	}
	if amount.Valid && amount.String != "" {
		if err := json.Unmarshal([]byte(amount.String), &p.Amount); err != nil {
			return pricing.Price{}, fmt.Errorf("decode amount of price %s: %w", id, err)
		}
	}
	return p, nil
}

// FormulasForPrice returns the price's formulas keyed by formula_name.
func (s *Store) FormulasForPrice(ctx context.Context, priceID string) (map[string]pricing.Formula, error) {
	if cached, ok := s.formulas.Get(priceID); ok {
		return cached.(map[string]pricing.Formula), nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, formula_name, name, COALESCE(description, ''), value_calculation, apply_condition
		FROM formulas
		WHERE price_id = ?
	`, priceID)
	if err != nil {
		return nil, fmt.Errorf("query formulas: %w", err)
	}
	defer rows.Close()

	formulas := make(map[string]pricing.Formula)
	for rows.Next() {
		var (
			f         pricing.Formula
			value     string
			condition sql.NullString
		)
		if err := rows.Scan(&f.ID, &f.FormulaName, &f.Name, &f.Description, &value, &condition); err != nil {
			return nil, fmt.Errorf("scan formula: %w", err)
		}
		if err := json.Unmarshal([]byte(value), &f.ValueCalculation); err != nil {
			return nil, fmt.Errorf("decode value_calculation of %s: %w", f.FormulaName, err)
		}
		if condition.Valid && condition.String != "" {
			if err := json.Unmarshal([]byte(condition.String), &f.ApplyCondition); err != nil {
				return nil, fmt.Errorf("decode apply_condition of %s: %w", f.FormulaName, err)
			}
		}
		formulas[f.FormulaName] = f
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate formulas: %w", err)
	}

	s.formulas.SetDefault(priceID, formulas)
	return formulas, nil
}

// UpsertFormula creates or replaces a formula of a price.
func (s *Store) UpsertFormula(ctx context.Context, priceID string, f pricing.Formula) error {
	value, err := json.Marshal(f.ValueCalculation)
	if err != nil {
		return fmt.Errorf("encode value_calculation: %w", err)
	}
	var condition any
	if !f.ApplyCondition.IsEmpty() {
		raw, err := json.Marshal(f.ApplyCondition)
		if err != nil {
			return fmt.Errorf("encode apply_condition: %w", err)
		}
		condition = string(raw)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO formulas (id, price_id, formula_name, name, description, value_calculation, apply_condition)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(price_id, formula_name) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			value_calculation = excluded.value_calculation,
			apply_condition = excluded.apply_condition,
			updated_at = CURRENT_TIMESTAMP
	`, f.ID, priceID, f.FormulaName, f.Name, f.Description, string(value), condition)
	if err != nil {
		return fmt.Errorf("upsert formula: %w", err)
	}

	s.InvalidateFormulas(priceID)
	return nil
}

// InvalidateFormulas drops the cached formulas of a price.
func (s *Store) InvalidateFormulas(priceID string) {
	s.formulas.Delete(priceID)
}

// ProductVariables lists the variables configured for a product.
func (s *Store) ProductVariables(ctx context.Context, productID string) ([]variables.Variable, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, type, value, COALESCE(description, '')
		FROM variables
		WHERE product_id = ?
		ORDER BY id
	`, productID)
	if err != nil {
		return nil, fmt.Errorf("query variables: %w", err)
	}
	defer rows.Close()

	vars := make([]variables.Variable, 0)
	for rows.Next() {
		var (
			v   variables.Variable
			typ string
		)
		if err := rows.Scan(&v.ID, &v.Name, &typ, &v.Value, &v.Description); err != nil {
			return nil, fmt.Errorf("scan variable: %w", err)
		}
		v.Type = variables.Type(typ)
		vars = append(vars, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate variables: %w", err)
	}
	return vars, nil
}
