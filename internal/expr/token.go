package expr

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Reserved identifiers that read from the running calculation context
// instead of the variable table.
const (
	ReservedSubtotal     = "subtotal"
	ReservedRunningTotal = "runningTotal"
)

// Kind tags the variant held by a Token.
type Kind uint8

const (
	KindLiteral Kind = iota
	KindOperator
	KindFunction
	KindIdent
	KindLParen
	KindRParen
	KindComma
)

func (k Kind) String() string {
	switch k {
	case KindLiteral:
		return "literal"
	case KindOperator:
		return "operator"
	case KindFunction:
		return "function"
	case KindIdent:
		return "identifier"
	case KindLParen:
		return "("
	case KindRParen:
		return ")"
	case KindComma:
		return ","
	}
	return "unknown"
}

// Token is a classified expression element. Only the field matching Kind is
// meaningful; Text keeps the source spelling for rendering.
type Token struct {
	Kind Kind
	Num  float64
	Op   Operator
	Fn   Function
	Text string
}

// IsReserved reports whether the token is one of the calculation-context words.
func (t Token) IsReserved() bool {
	return t.Kind == KindIdent && (t.Text == ReservedSubtotal || t.Text == ReservedRunningTotal)
}

// Classify turns one raw token (a JSON/YAML scalar) into a Token.
func Classify(raw any) (Token, error) {
	switch v := raw.(type) {
	case float64:
		return literal(v, formatNumber(v))
	case float32:
		return literal(float64(v), formatNumber(float64(v)))
	case int:
		return literal(float64(v), strconv.Itoa(v))
	case int64:
		return literal(float64(v), strconv.FormatInt(v, 10))
	case int32:
		return literal(float64(v), strconv.FormatInt(int64(v), 10))
	case uint64:
		return literal(float64(v), strconv.FormatUint(v, 10))
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return Token{}, fmt.Errorf("%w: %q", ErrUnsupportedToken, v.String())
		}
		return literal(f, v.String())
	case string:
		return classifyString(v)
	case Token:
		return v, nil
	}
	return Token{}, fmt.Errorf("%w: %v (%T)", ErrUnsupportedToken, raw, raw)
}

func classifyString(s string) (Token, error) {
	s = strings.TrimSpace(s)
	switch s {
	case "":
		return Token{}, fmt.Errorf("%w: empty token", ErrUnsupportedToken)
	case "(":
		return Token{Kind: KindLParen, Text: s}, nil
	case ")":
		return Token{Kind: KindRParen, Text: s}, nil
	case ",":
		return Token{Kind: KindComma, Text: s}, nil
	}
	if op, ok := lookupOperator(s); ok {
		return Token{Kind: KindOperator, Op: op, Text: s}, nil
	}
	if fn, ok := lookupFunction(s); ok {
		return Token{Kind: KindFunction, Fn: fn, Text: s}, nil
	}
	if f, ok := parseNumber(s); ok {
		return Token{Kind: KindLiteral, Num: f, Text: s}, nil
	}
	return Token{Kind: KindIdent, Text: s}, nil
}

func literal(f float64, text string) (Token, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Token{}, fmt.Errorf("%w: non-finite literal %s", ErrUnsupportedToken, text)
	}
	return Token{Kind: KindLiteral, Num: f, Text: text}, nil
}

// parseNumber accepts decimal numerals only; "inf", "nan" and hex floats are
// left to be treated as identifiers.
func parseNumber(s string) (float64, bool) {
	first := s[0]
	if first == '-' || first == '+' {
		if len(s) == 1 {
			return 0, false
		}
		first = s[1]
	}
	if (first < '0' || first > '9') && first != '.' {
		return 0, false
	}
	if strings.ContainsAny(s, "xX_pP") {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
