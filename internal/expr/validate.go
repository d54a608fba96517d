package expr

import "fmt"

// Validate checks raw tokens without evaluating them and returns one message
// per problem found. A nil result means the expression is well formed.
func Validate(raw []any) []string {
	if len(raw) == 0 {
		return []string{ErrEmpty.Error()}
	}

	var problems []string
	tokens := make([]Token, 0, len(raw))
	for i, r := range raw {
		tok, err := Classify(r)
		if err != nil {
			problems = append(problems, fmt.Sprintf("token %d: %v", i, err))
			continue
		}
		tokens = append(tokens, tok)
	}
	if len(problems) > 0 {
		return problems
	}
	return ValidateTokens(tokens)
}

// ValidateTokens is Validate for already classified tokens.
func ValidateTokens(tokens []Token) []string {
	if len(tokens) == 0 {
		return []string{ErrEmpty.Error()}
	}

	var problems []string
	if msg := checkParens(tokens); msg != "" {
		problems = append(problems, msg)
	}
	problems = append(problems, checkSequence(tokens)...)
	if len(problems) > 0 {
		return problems
	}

	postfix, err := toPostfix(tokens)
	if err != nil {
		return []string{err.Error()}
	}
	if msg := checkStack(postfix); msg != "" {
		return []string{msg}
	}
	return nil
}

func checkParens(tokens []Token) string {
	depth := 0
	for i, t := range tokens {
		switch t.Kind {
		case KindLParen:
			depth++
		case KindRParen:
			depth--
			if depth < 0 {
				return fmt.Sprintf("mismatched parentheses: unexpected ')' at position %d", i)
			}
		}
	}
	if depth > 0 {
		return fmt.Sprintf("mismatched parentheses: %d unclosed '('", depth)
	}
	return ""
}

// checkSequence flags adjacent token pairs that can never be valid.
func checkSequence(tokens []Token) []string {
	var problems []string
	for i, t := range tokens {
		var prev *Token
		if i > 0 {
			prev = &tokens[i-1]
		}
		switch t.Kind {
		case KindOperator:
			switch {
			case prev == nil:
				problems = append(problems, fmt.Sprintf("operator %q at position %d has no left operand", t.Text, i))
			case prev.Kind == KindOperator:
				problems = append(problems, fmt.Sprintf("consecutive operators %q and %q at position %d", prev.Text, t.Text, i))
			case prev.Kind == KindLParen || prev.Kind == KindComma:
				problems = append(problems, fmt.Sprintf("operator %q at position %d has no left operand", t.Text, i))
			}
			if i == len(tokens)-1 {
				problems = append(problems, fmt.Sprintf("expression ends with operator %q", t.Text))
			}
		case KindRParen:
			if prev != nil && prev.Kind == KindLParen {
				problems = append(problems, fmt.Sprintf("empty parentheses at position %d", i-1))
			}
			if prev != nil && (prev.Kind == KindOperator || prev.Kind == KindComma) {
				problems = append(problems, fmt.Sprintf("%q before ')' at position %d", prev.Text, i))
			}
		case KindComma:
			if prev == nil || prev.Kind == KindComma || prev.Kind == KindLParen {
				problems = append(problems, fmt.Sprintf("unexpected ',' at position %d", i))
			}
		}
	}
	return problems
}

// checkStack simulates evaluation depth over the postfix stream.
func checkStack(postfix []Token) string {
	depth := 0
	for _, t := range postfix {
		switch t.Kind {
		case KindLiteral, KindIdent:
			depth++
		case KindOperator:
			if depth < 2 {
				return fmt.Sprintf("operator %q is missing an operand", t.Text)
			}
			depth--
		case KindFunction:
			n := t.Fn.Arity()
			if depth < n {
				return fmt.Sprintf("function %s expects %d arguments", t.Text, n)
			}
			depth -= n - 1
		}
	}
	if depth != 1 {
		return fmt.Sprintf("expression leaves %d values instead of 1", depth)
	}
	return ""
}
