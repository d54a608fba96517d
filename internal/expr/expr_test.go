package expr_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/Simplici0/pricer/internal/expr"
)

func eval(t *testing.T, vars expr.Values, raw ...any) float64 {
	t.Helper()
	e, err := expr.Compile(raw)
	require.NoError(t, err)
	res, err := e.Evaluate(vars, expr.Context{})
	require.NoError(t, err)
	return res.Value
}

func TestEvaluate_Arithmetic(t *testing.T) {
	tests := []struct {
		name string
		raw  []any
		want float64
	}{
		{"addition", []any{1, "+", 2}, 3},
		{"numeric strings", []any{"1.5", "*", "4"}, 6},
		{"negative literal", []any{"-15", "+", 5}, -10},
		{"left assoc subtraction", []any{10, "-", 4, "-", 3}, 3},
		{"left assoc division", []any{100, "/", 10, "/", 2}, 5},
		{"modulo", []any{10, "%", 4}, 2},
		{"parentheses", []any{"(", 1, "+", 2, ")", "*", 3}, 9},
		{"power", []any{2, "^", 10}, 1024},
		{"equal", []any{1, "==", 1}, 1},
		{"not equal", []any{1, "!=", 1}, 0},
		{"less or equal", []any{2, "<=", 2}, 1},
		{"greater", []any{1, ">", 2}, 0},
		{"and", []any{1, "&&", 0}, 0},
		{"or", []any{0, "||", 3}, 1},
		{"comparison below arithmetic", []any{1, "+", 1, "==", 2}, 1},
		{"and binds tighter than or", []any{1, "||", 0, "&&", 0}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, eval(t, nil, tt.raw...))
		})
	}
}

func TestEvaluate_PrecedenceLaw(t *testing.T) {
	for _, c := range [][3]float64{{1, 2, 3}, {-4, 0.5, 8}, {10, -3, 7}} {
		vars := expr.Values{"a": c[0], "b": c[1], "c": c[2]}
		got := eval(t, vars, "a", "+", "b", "*", "c")
		assert.Equal(t, c[0]+c[1]*c[2], got)
	}
}

func TestEvaluate_PowerIsRightAssociative(t *testing.T) {
	assert.Equal(t, 512.0, eval(t, nil, 2, "^", 3, "^", 2))
}

func TestEvaluate_DivisionByZeroIsZero(t *testing.T) {
	for _, x := range []float64{0, 1, -7.5, 1e9} {
		assert.Equal(t, 0.0, eval(t, expr.Values{"x": x}, "x", "/", 0))
		assert.Equal(t, 0.0, eval(t, expr.Values{"x": x}, "x", "%", 0))
	}
}

func TestEvaluate_Functions(t *testing.T) {
	tests := []struct {
		name string
		raw  []any
		want float64
	}{
		{"abs positional", []any{"(", 3, "-", 10, ")", "abs"}, 7},
		{"abs call", []any{"abs", "(", 3, "-", 10, ")"}, 7},
		{"ceil", []any{"ceil", "(", 1.2, ")"}, 2},
		{"floor", []any{"floor", "(", 1.8, ")"}, 1},
		{"round half up", []any{"round", "(", 2.5, ")"}, 3},
		{"round negative half", []any{"round", "(", -2.5, ")"}, -2},
		{"sqrt", []any{"sqrt", "(", 16, ")"}, 4},
		{"pow positional", []any{2, 3, "pow"}, 8},
		{"min call", []any{"min", "(", 4, ",", 9, ")"}, 4},
		{"max call with expressions", []any{"max", "(", 1, "+", 1, ",", 2, "*", 3, ")"}, 6},
		{"if true", []any{"if", "(", 1, ",", 10, ",", 20, ")"}, 10},
		{"if false positional", []any{0, 10, 20, "if"}, 20},
		{"nested calls", []any{"max", "(", "abs", "(", -8, ")", ",", 3, ")"}, 8},
		{"call in arithmetic", []any{1, "+", "min", "(", 5, ",", 2, ")", "*", 3}, 7},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, eval(t, nil, tt.raw...))
		})
	}
}

func TestEvaluate_ReservedWordsReadContext(t *testing.T) {
	e := expr.MustCompile("subtotal", "+", "runningTotal")
	res, err := e.Evaluate(expr.Values{"subtotal": 999}, expr.Context{Subtotal: 10, RunningTotal: 5})
	require.NoError(t, err)
	assert.Equal(t, 15.0, res.Value)
	assert.Empty(t, res.UsedVariables)
}

func TestEvaluate_UsedVariablesDeduplicated(t *testing.T) {
	e := expr.MustCompile("a", "*", "b", "+", "a")
	res, err := e.Evaluate(expr.Values{"a": 2, "b": 3}, expr.Context{})
	require.NoError(t, err)
	assert.Equal(t, 8.0, res.Value)
	assert.Equal(t, []string{"a", "b"}, res.UsedVariables)
}

func TestEvaluate_Errors(t *testing.T) {
	tests := []struct {
		name string
		raw  []any
		want error
	}{
		{"empty", nil, expr.ErrEmpty},
		{"unknown variable", []any{"missing", "+", 1}, expr.ErrUnknownVariable},
		{"unclosed paren", []any{"(", 1, "+", 2}, expr.ErrMismatchedParens},
		{"stray close paren", []any{1, "+", 2, ")"}, expr.ErrMismatchedParens},
		{"missing operand", []any{1, "+"}, expr.ErrInsufficientOperands},
		{"function arity", []any{1, "max"}, expr.ErrInsufficientOperands},
		{"two values", []any{1, 2}, expr.ErrMalformed},
		{"comma outside call", []any{1, ",", 2}, expr.ErrMalformed},
		{"sqrt of negative", []any{"sqrt", "(", -1, ")"}, expr.ErrNonFinite},
		{"overflow", []any{10, "^", 400}, expr.ErrNonFinite},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := expr.Compile(tt.raw)
			require.NoError(t, err)
			_, err = e.Evaluate(expr.Values{}, expr.Context{})
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestCompile_RejectsUnsupportedTokens(t *testing.T) {
	_, err := expr.Compile([]any{1, "+", true})
	assert.ErrorIs(t, err, expr.ErrUnsupportedToken)

	_, err = expr.Compile([]any{""})
	assert.ErrorIs(t, err, expr.ErrUnsupportedToken)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		raw  any
		kind expr.Kind
	}{
		{42, expr.KindLiteral},
		{"3.14", expr.KindLiteral},
		{"-15", expr.KindLiteral},
		{"+", expr.KindOperator},
		{"-", expr.KindOperator},
		{">=", expr.KindOperator},
		{"max", expr.KindFunction},
		{"basePrice", expr.KindIdent},
		{"inf", expr.KindIdent},
		{"NaN", expr.KindIdent},
		{"0x10", expr.KindIdent},
		{"subtotal", expr.KindIdent},
		{"(", expr.KindLParen},
		{")", expr.KindRParen},
		{",", expr.KindComma},
	}
	for _, tt := range tests {
		tok, err := expr.Classify(tt.raw)
		require.NoError(t, err, "%v", tt.raw)
		assert.Equal(t, tt.kind, tok.Kind, "%v", tt.raw)
	}
}

func TestRender(t *testing.T) {
	e := expr.MustCompile("subtotal", "*", "taxRate", "/", 100, "+", "unknown")
	got := e.Render(expr.Values{"taxRate": 8.5}, expr.Context{Subtotal: 195.5})
	assert.Equal(t, "subtotal(195.5) * taxRate(8.5) / 100 + unknown", got)
}

func TestReferences(t *testing.T) {
	e := expr.MustCompile("max", "(", "a", ",", "subtotal", ")", "+", "b", "*", "a")
	assert.Equal(t, []string{"a", "b"}, e.References())
}

func TestValidate(t *testing.T) {
	assert.NotEmpty(t, expr.Validate([]any{"a", "+", "+", "b"}))

	parens := expr.Validate([]any{"(", "a", "+", "b"})
	require.NotEmpty(t, parens)
	assert.Contains(t, parens[0], "parentheses")

	empty := expr.Validate([]any{})
	require.Len(t, empty, 1)
	assert.Contains(t, empty[0], "empty")

	assert.Nil(t, expr.Validate([]any{"participants", "*", "basePrice"}))
	assert.Nil(t, expr.Validate([]any{"max", "(", "a", ",", "b", ")"}))
	assert.Nil(t, expr.Validate([]any{"a", "abs"}))
	assert.NotEmpty(t, expr.Validate([]any{"a", "b"}))
	assert.NotEmpty(t, expr.Validate([]any{"(", ")"}))
	assert.NotEmpty(t, expr.Validate([]any{"*", "a"}))
	assert.NotEmpty(t, expr.Validate([]any{"a", false}))
}

func TestLex(t *testing.T) {
	tests := []struct {
		in   string
		want []any
	}{
		{"participants * basePrice", []any{"participants", "*", "basePrice"}},
		{"subtotal*taxRate/100", []any{"subtotal", "*", "taxRate", "/", "100"}},
		{"isWeekend == 1 && hour >= 18", []any{"isWeekend", "==", "1", "&&", "hour", ">=", "18"}},
		{"-15 + x - 2", []any{"-15", "+", "x", "-", "2"}},
		{"max(a, -1.5e2)", []any{"max", "(", "a", ",", "-1.5e2", ")"}},
		{"(a) - (b)", []any{"(", "a", ")", "-", "(", "b", ")"}},
	}
	for _, tt := range tests {
		got, err := expr.Lex(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := expr.Lex("a $ b")
	assert.ErrorIs(t, err, expr.ErrUnsupportedToken)
}

func TestParse_EvaluatesLikeTokens(t *testing.T) {
	e, err := expr.Parse("2 ^ 3 ^ 2")
	require.NoError(t, err)
	res, err := e.Evaluate(nil, expr.Context{})
	require.NoError(t, err)
	assert.Equal(t, 512.0, res.Value)
}

func TestExpression_JSON(t *testing.T) {
	var e expr.Expression
	require.NoError(t, json.Unmarshal([]byte(`["participants", "*", 2.5]`), &e))
	assert.Equal(t, 3, e.Len())

	res, err := e.Evaluate(expr.Values{"participants": 4}, expr.Context{})
	require.NoError(t, err)
	assert.Equal(t, 10.0, res.Value)

	out, err := json.Marshal(e)
	require.NoError(t, err)
	assert.JSONEq(t, `["participants","*",2.5]`, string(out))

	var none expr.Expression
	require.NoError(t, json.Unmarshal([]byte(`null`), &none))
	assert.True(t, none.IsEmpty())

	assert.Error(t, json.Unmarshal([]byte(`["a", {}]`), &e))
}

func TestExpression_YAML(t *testing.T) {
	var doc struct {
		Tokens expr.Expression `yaml:"tokens"`
		Text   expr.Expression `yaml:"text"`
	}
	src := "tokens: [isWeekend, \"==\", 1]\ntext: weekendFee * 2\n"
	require.NoError(t, yaml.Unmarshal([]byte(src), &doc))

	vars := expr.Values{"isWeekend": 1, "weekendFee": 30}
	res, err := doc.Tokens.Evaluate(vars, expr.Context{})
	require.NoError(t, err)
	assert.Equal(t, 1.0, res.Value)

	res, err = doc.Text.Evaluate(vars, expr.Context{})
	require.NoError(t, err)
	assert.Equal(t, 60.0, res.Value)
}
