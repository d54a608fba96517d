package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Simplici0/pricer/internal/config"
	"github.com/Simplici0/pricer/internal/db"
	"github.com/Simplici0/pricer/internal/migrations"
	"github.com/Simplici0/pricer/internal/pricing"
	"github.com/Simplici0/pricer/internal/seed"
	"github.com/Simplici0/pricer/internal/store"
	"github.com/Simplici0/pricer/internal/variables"
)

const sundayFirstTimer = `{"context": {"participants": 2, "dayOfWeek": 0, "isFirstTime": true}`

func newTestServer(t *testing.T, cfg config.Config) http.Handler {
	t.Helper()

	ctx := context.Background()
	database, err := db.Open(ctx, filepath.Join(t.TempDir(), "server-test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })

	_, err = migrations.Up(ctx, database)
	require.NoError(t, err)
	_, err = seed.Run(ctx, database)
	require.NoError(t, err)

	wednesday := time.Date(2024, time.March, 13, 10, 0, 0, 0, time.UTC)
	engine := pricing.NewEngine(pricing.WithResolver(
		variables.NewResolver(variables.WithClock(func() time.Time { return wednesday })),
	))
	return newServer(store.New(database, time.Minute), engine, zap.NewNop(), cfg).routes()
}

func defaultTestServer(t *testing.T) http.Handler {
	cfg := config.Default()
	cfg.RateLimitRPS = 1000
	cfg.RateLimitBurst = 1000
	return newTestServer(t, cfg)
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), rr.Body.String())
	return v
}

func TestHealth(t *testing.T) {
	h := defaultTestServer(t)

	rr := do(t, h, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())
}

func TestValidateExpression(t *testing.T) {
	h := defaultTestServer(t)

	ok := decode[validateResponse](t, do(t, h, http.MethodPost, "/expressions/validate",
		`{"tokens": ["subtotal", "*", "taxRate", "/", 100]}`))
	assert.True(t, ok.Valid)
	assert.Empty(t, ok.Errors)

	text := decode[validateResponse](t, do(t, h, http.MethodPost, "/expressions/validate",
		`{"expression": "max(participants, 2) * basePrice"}`))
	assert.True(t, text.Valid)

	bad := decode[validateResponse](t, do(t, h, http.MethodPost, "/expressions/validate",
		`{"tokens": ["(", "basePrice", "+"]}`))
	assert.False(t, bad.Valid)
	assert.NotEmpty(t, bad.Errors)

	empty := decode[validateResponse](t, do(t, h, http.MethodPost, "/expressions/validate", `{}`))
	assert.False(t, empty.Valid)
	assert.Equal(t, []string{"expression is empty"}, empty.Errors)

	rr := do(t, h, http.MethodPost, "/expressions/validate", `{not json`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestEvaluateExpression(t *testing.T) {
	h := defaultTestServer(t)

	rr := do(t, h, http.MethodPost, "/expressions/evaluate",
		`{"tokens": ["subtotal", "*", "taxRate", "/", 100], "variables": {"taxRate": 10}, "subtotal": 250}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	res := decode[evaluateResponse](t, rr)
	assert.InDelta(t, 25.0, res.Value, 1e-9)
	assert.Equal(t, []string{"taxRate"}, res.UsedVariables)

	missing := do(t, h, http.MethodPost, "/expressions/evaluate", `{"expression": "unknownVar + 1"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, missing.Code)
	assert.Contains(t, missing.Body.String(), "unknownVar")
}

func TestQuotePrice_SeededScenario(t *testing.T) {
	h := defaultTestServer(t)

	rr := do(t, h, http.MethodPost, "/prices/"+seed.DemoDynamicPrice+"/quote", sundayFirstTimer+`}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	res := decode[quoteResponse](t, rr)
	assert.InDelta(t, 212.12, res.FinalPrice, 1e-9)
	assert.Equal(t, "USD", res.Currency)
	require.Len(t, res.AppliedFormulas, 4)
	assert.Empty(t, res.QuoteID)
	assert.Contains(t, res.AllVariables, "subtotal")

	fixed := decode[quoteResponse](t, do(t, h, http.MethodPost, "/prices/"+seed.DemoFixedPrice+"/quote", `{}`))
	assert.Equal(t, 199.99, fixed.FinalPrice)
	assert.Empty(t, fixed.AppliedFormulas)

	notFound := do(t, h, http.MethodPost, "/prices/missing/quote", `{}`)
	assert.Equal(t, http.StatusNotFound, notFound.Code)
}

func TestQuotePrice_SaveListAndDetail(t *testing.T) {
	h := defaultTestServer(t)

	rr := do(t, h, http.MethodPost, "/prices/"+seed.DemoDynamicPrice+"/quote",
		sundayFirstTimer+`, "save": true, "title": "Family trip", "notes": "two adults"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	saved := decode[quoteResponse](t, rr)
	require.NotEmpty(t, saved.QuoteID)

	list := do(t, h, http.MethodGet, "/quotes?q=family", "")
	require.Equal(t, http.StatusOK, list.Code)
	var listed struct {
		Query  string                `json:"query"`
		Quotes []store.QuoteListItem `json:"quotes"`
	}
	require.NoError(t, json.Unmarshal(list.Body.Bytes(), &listed))
	assert.Equal(t, "family", listed.Query)
	require.Len(t, listed.Quotes, 1)
	assert.Equal(t, saved.QuoteID, listed.Quotes[0].ID)
	assert.InDelta(t, 212.12, listed.Quotes[0].FinalPrice, 1e-9)

	detail := do(t, h, http.MethodGet, "/quotes/"+saved.QuoteID, "")
	require.Equal(t, http.StatusOK, detail.Code)
	q := decode[store.Quote](t, detail)
	assert.Equal(t, "two adults", q.Notes)
	assert.Equal(t, saved.Calculation, q.Result.Calculation)

	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/quotes/unknown", "").Code)
}

func TestUpsertFormula(t *testing.T) {
	h := defaultTestServer(t)
	path := "/prices/" + seed.DemoDynamicPrice + "/formulas/weekendSurcharge"

	invalid := do(t, h, http.MethodPut, path, `{"valueCalculation": ["weekendFee", "+"], "applyCondition": ["isWeekend", "=="]}`)
	require.Equal(t, http.StatusUnprocessableEntity, invalid.Code)
	problems := decode[validateResponse](t, invalid)
	assert.False(t, problems.Valid)
	require.NotEmpty(t, problems.Errors)
	assert.True(t, strings.HasPrefix(problems.Errors[0], "valueCalculation: "))

	rr := do(t, h, http.MethodPut, path,
		`{"name": "Weekend surcharge", "valueCalculation": [50], "applyCondition": ["isWeekend", "==", 1]}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	res := decode[quoteResponse](t, do(t, h, http.MethodPost, "/prices/"+seed.DemoDynamicPrice+"/quote", sundayFirstTimer+`}`))
	assert.InDelta(t, 230.56, res.FinalPrice, 1e-9)
	require.Len(t, res.AppliedFormulas, 4)
	assert.InDelta(t, 50.0, res.AppliedFormulas[1].Value, 1e-9)

	missing := do(t, h, http.MethodPut, "/prices/missing/formulas/x", `{"valueCalculation": [1]}`)
	assert.Equal(t, http.StatusNotFound, missing.Code)
}

func TestUpsertFormula_NotListedOnPrice(t *testing.T) {
	h := defaultTestServer(t)

	rr := do(t, h, http.MethodPut, "/prices/"+seed.DemoDynamicPrice+"/formulas/holidayFee", `{"valueCalculation": [25]}`)
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code, rr.Body.String())
	problems := decode[validateResponse](t, rr)
	assert.False(t, problems.Valid)
	require.Len(t, problems.Errors, 1)
	assert.Contains(t, problems.Errors[0], `"holidayFee"`)
	assert.Contains(t, problems.Errors[0], "formula_names")

	// Nothing was stored, so the seeded quote is unchanged.
	res := decode[quoteResponse](t, do(t, h, http.MethodPost, "/prices/"+seed.DemoDynamicPrice+"/quote", sundayFirstTimer+`}`))
	assert.InDelta(t, 212.12, res.FinalPrice, 1e-9)
	assert.Len(t, res.AppliedFormulas, 4)
}

func TestRateLimit(t *testing.T) {
	cfg := config.Default()
	cfg.RateLimitRPS = 0.001
	cfg.RateLimitBurst = 1
	h := newTestServer(t, cfg)

	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/healthz", "").Code)
	limited := do(t, h, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusTooManyRequests, limited.Code)
	assert.Equal(t, "1", limited.Header().Get("Retry-After"))
}
