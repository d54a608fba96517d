package main

import (
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Simplici0/pricer/internal/expr"
	"github.com/Simplici0/pricer/internal/pricing"
	"github.com/Simplici0/pricer/internal/store"
	"github.com/Simplici0/pricer/internal/variables"
)

// expressionRequest carries an expression either as wire tokens or as text.
type expressionRequest struct {
	Tokens     []any  `json:"tokens"`
	Expression string `json:"expression"`
}

func (e expressionRequest) raw() ([]any, error) {
	if len(e.Tokens) > 0 {
		return e.Tokens, nil
	}
	if strings.TrimSpace(e.Expression) == "" {
		return nil, nil
	}
	return expr.Lex(e.Expression)
}

type validateResponse struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors"`
}

type evaluateRequest struct {
	expressionRequest
	Variables    map[string]float64 `json:"variables"`
	Subtotal     float64            `json:"subtotal"`
	RunningTotal float64            `json:"runningTotal"`
}

type evaluateResponse struct {
	Value         float64  `json:"value"`
	UsedVariables []string `json:"usedVariables"`
}

type quoteRequest struct {
	Currency          string               `json:"currency"`
	Context           variables.Context    `json:"context"`
	PurchaseVariables []variables.Variable `json:"purchaseVariables"`
	SystemVariables   []variables.Variable `json:"systemVariables"`
	Save              bool                 `json:"save"`
	Title             string               `json:"title"`
	Notes             string               `json:"notes"`
}

type quoteResponse struct {
	pricing.Result
	QuoteID string `json:"quoteId,omitempty"`
}

type formulaRequest struct {
	Name             string `json:"name"`
	Description      string `json:"description"`
	ValueCalculation []any  `json:"valueCalculation"`
	ApplyCondition   []any  `json:"applyCondition"`
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *server) handleValidateExpression(w http.ResponseWriter, r *http.Request) {
	var req expressionRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	raw, err := req.raw()
	if err != nil {
		s.writeJSON(w, http.StatusOK, validateResponse{Valid: false, Errors: []string{err.Error()}})
		return
	}
	problems := expr.Validate(raw)
	if problems == nil {
		problems = []string{}
	}
	s.writeJSON(w, http.StatusOK, validateResponse{Valid: len(problems) == 0, Errors: problems})
}

func (s *server) handleEvaluateExpression(w http.ResponseWriter, r *http.Request) {
	var req evaluateRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	raw, err := req.raw()
	if err != nil {
		s.writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	compiled, err := expr.Compile(raw)
	if err != nil {
		s.writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	res, err := compiled.Evaluate(expr.Values(req.Variables), expr.Context{
		Subtotal:     req.Subtotal,
		RunningTotal: req.RunningTotal,
	})
	if err != nil {
		s.writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	used := res.UsedVariables
	if used == nil {
		used = []string{}
	}
	s.writeJSON(w, http.StatusOK, evaluateResponse{Value: res.Value, UsedVariables: used})
}

func (s *server) handleQuotePrice(w http.ResponseWriter, r *http.Request) {
	priceID := chi.URLParam(r, "id")

	var req quoteRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx := r.Context()
	price, err := s.store.GetPrice(ctx, priceID)
	if errors.Is(err, store.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, "price not found")
		return
	}
	if err != nil {
		s.logger.Error("load price", zap.String("price", priceID), zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "failed to load price")
		return
	}

	formulas, err := s.store.FormulasForPrice(ctx, priceID)
	if err != nil {
		s.logger.Error("load formulas", zap.String("price", priceID), zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "failed to load formulas")
		return
	}
	productVars, err := s.store.ProductVariables(ctx, price.ProductID)
	if err != nil {
		s.logger.Error("load product variables", zap.String("product", price.ProductID), zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "failed to load product variables")
		return
	}

	result := s.engine.Price(ctx, pricing.Request{
		Price:            price,
		Formulas:         formulas,
		ProductVariables: productVars,
		Sources: variables.Sources{
			PurchaseVariables: req.PurchaseVariables,
			SystemVariables:   req.SystemVariables,
		},
		Context:  req.Context,
		Currency: req.Currency,
	})

	resp := quoteResponse{Result: result}
	if req.Save {
		id, err := s.store.SaveQuote(ctx, store.QuoteInput{
			PriceID: priceID,
			Title:   req.Title,
			Notes:   req.Notes,
			Result:  result,
		})
		if err != nil {
			s.logger.Error("save quote", zap.String("price", priceID), zap.Error(err))
			s.writeError(w, http.StatusInternalServerError, "failed to save quote")
			return
		}
		resp.QuoteID = id
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *server) handleUpsertFormula(w http.ResponseWriter, r *http.Request) {
	priceID := chi.URLParam(r, "id")
	formulaName := chi.URLParam(r, "name")

	var req formulaRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var problems []string
	for _, p := range expr.Validate(req.ValueCalculation) {
		problems = append(problems, "valueCalculation: "+p)
	}
	if len(req.ApplyCondition) > 0 {
		for _, p := range expr.Validate(req.ApplyCondition) {
			problems = append(problems, "applyCondition: "+p)
		}
	}
	if len(problems) > 0 {
		s.writeJSON(w, http.StatusUnprocessableEntity, validateResponse{Valid: false, Errors: problems})
		return
	}

	ctx := r.Context()
	price, err := s.store.GetPrice(ctx, priceID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.writeError(w, http.StatusNotFound, "price not found")
			return
		}
		s.logger.Error("load price", zap.String("price", priceID), zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "failed to load price")
		return
	}
	// The engine only evaluates formulas the price lists by name.
	if !slices.Contains(price.FormulaNames, formulaName) {
		s.writeJSON(w, http.StatusUnprocessableEntity, validateResponse{
			Valid:  false,
			Errors: []string{fmt.Sprintf("formula %q is not listed in formula_names of price %s", formulaName, priceID)},
		})
		return
	}

	formula, err := buildFormula(formulaName, req)
	if err != nil {
		s.writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	existing, err := s.store.FormulasForPrice(ctx, priceID)
	if err != nil {
		s.logger.Error("load formulas", zap.String("price", priceID), zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "failed to load formulas")
		return
	}
	if prev, ok := existing[formulaName]; ok {
		formula.ID = prev.ID
	}

	if err := s.store.UpsertFormula(ctx, priceID, formula); err != nil {
		s.logger.Error("save formula", zap.String("price", priceID), zap.String("formula", formulaName), zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "failed to save formula")
		return
	}
	s.writeJSON(w, http.StatusOK, formula)
}

func buildFormula(formulaName string, req formulaRequest) (pricing.Formula, error) {
	value, err := expr.Compile(req.ValueCalculation)
	if err != nil {
		return pricing.Formula{}, fmt.Errorf("valueCalculation: %w", err)
	}
	var condition expr.Expression
	if len(req.ApplyCondition) > 0 {
		condition, err = expr.Compile(req.ApplyCondition)
		if err != nil {
			return pricing.Formula{}, fmt.Errorf("applyCondition: %w", err)
		}
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = formulaName
	}
	return pricing.Formula{
		ID:               uuid.NewString(),
		FormulaName:      formulaName,
		Name:             name,
		Description:      strings.TrimSpace(req.Description),
		ValueCalculation: value,
		ApplyCondition:   condition,
	}, nil
}

func (s *server) handleQuotesList(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	quotes, err := s.store.ListQuotes(r.Context(), query)
	if err != nil {
		s.logger.Error("list quotes", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "failed to load quotes")
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"query":  query,
		"quotes": quotes,
	})
}

func (s *server) handleQuoteDetail(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	quote, err := s.store.GetQuote(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, "quote not found")
		return
	}
	if err != nil {
		s.logger.Error("load quote", zap.String("quote", id), zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "failed to load quote")
		return
	}
	s.writeJSON(w, http.StatusOK, quote)
}
