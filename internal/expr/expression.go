// Package expr evaluates the small arithmetic/conditional token expressions
// used by pricing formulas.
//
// Expressions arrive as token arrays, e.g. ["participants", "*", "basePrice"].
// Each raw token is classified once by Compile; the infix sequence is then
// converted to postfix with a shunting-yard pass and evaluated on a value stack.
package expr

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Expression is a compiled token sequence. The zero value is an empty expression.
type Expression struct {
	tokens     []Token
	postfix    []Token
	postfixErr error
}

// Compile classifies raw tokens. Only unsupported token types fail here;
// structural problems such as unbalanced parentheses surface on Evaluate.
func Compile(raw []any) (Expression, error) {
	tokens := make([]Token, 0, len(raw))
	for i, r := range raw {
		tok, err := Classify(r)
		if err != nil {
			return Expression{}, fmt.Errorf("token %d: %w", i, err)
		}
		tokens = append(tokens, tok)
	}
	return FromTokens(tokens), nil
}

// MustCompile is Compile for literals in tests and seed data.
func MustCompile(raw ...any) Expression {
	e, err := Compile(raw)
	if err != nil {
		panic(err)
	}
	return e
}

// Parse lexes a textual expression and compiles it.
func Parse(s string) (Expression, error) {
	raw, err := Lex(s)
	if err != nil {
		return Expression{}, err
	}
	return Compile(raw)
}

// FromTokens builds an expression from already classified tokens.
func FromTokens(tokens []Token) Expression {
	e := Expression{tokens: tokens}
	if len(tokens) > 0 {
		e.postfix, e.postfixErr = toPostfix(tokens)
	}
	return e
}

// Tokens returns a copy of the infix tokens.
func (e Expression) Tokens() []Token {
	out := make([]Token, len(e.tokens))
	copy(out, e.tokens)
	return out
}

func (e Expression) IsEmpty() bool { return len(e.tokens) == 0 }

func (e Expression) Len() int { return len(e.tokens) }

// Raw returns the tokens in their wire form: literals as numbers, everything
// else as strings.
func (e Expression) Raw() []any {
	out := make([]any, 0, len(e.tokens))
	for _, t := range e.tokens {
		if t.Kind == KindLiteral {
			out = append(out, t.Num)
			continue
		}
		out = append(out, t.Text)
	}
	return out
}

func (e Expression) String() string {
	parts := make([]string, len(e.tokens))
	for i, t := range e.tokens {
		parts[i] = t.Text
	}
	return strings.Join(parts, " ")
}

// References lists identifier tokens that resolve against the variable table,
// de-duplicated in first-reference order.
func (e Expression) References() []string {
	seen := make(map[string]struct{})
	var refs []string
	for _, t := range e.tokens {
		if t.Kind != KindIdent || t.IsReserved() {
			continue
		}
		if _, ok := seen[t.Text]; ok {
			continue
		}
		seen[t.Text] = struct{}{}
		refs = append(refs, t.Text)
	}
	return refs
}

func (e Expression) MarshalJSON() ([]byte, error) {
	if e.IsEmpty() {
		return []byte("null"), nil
	}
	return json.Marshal(e.Raw())
}

func (e *Expression) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*e = Expression{}
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw []any
	if err := dec.Decode(&raw); err != nil {
		return fmt.Errorf("decode expression tokens: %w", err)
	}
	compiled, err := Compile(raw)
	if err != nil {
		return err
	}
	*e = compiled
	return nil
}

func (e Expression) MarshalYAML() (any, error) {
	if e.IsEmpty() {
		return nil, nil
	}
	return e.Raw(), nil
}

// UnmarshalYAML accepts either a token sequence or a textual expression.
func (e *Expression) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		if node.Tag == "!!null" || strings.TrimSpace(node.Value) == "" {
			*e = Expression{}
			return nil
		}
		parsed, err := Parse(node.Value)
		if err != nil {
			return err
		}
		*e = parsed
		return nil
	case yaml.SequenceNode:
		var raw []any
		if err := node.Decode(&raw); err != nil {
			return fmt.Errorf("decode expression tokens: %w", err)
		}
		compiled, err := Compile(raw)
		if err != nil {
			return err
		}
		*e = compiled
		return nil
	}
	return fmt.Errorf("expression must be a sequence or string, line %d", node.Line)
}
