package expr

import "fmt"

// toPostfix runs the shunting-yard conversion.
//
// Identifiers and bare function names go straight to the output, so a
// function applies to whatever precedes it ("a b max", "( x ) abs"). A function
// name directly followed by "(" is a call: it waits on the operator stack and
// is emitted once its closing parenthesis is reached.
func toPostfix(tokens []Token) ([]Token, error) {
	out := make([]Token, 0, len(tokens))
	stack := make([]Token, 0, 8)

	for i, tok := range tokens {
		switch tok.Kind {
		case KindLiteral, KindIdent:
			out = append(out, tok)

		case KindFunction:
			if i+1 < len(tokens) && tokens[i+1].Kind == KindLParen {
				stack = append(stack, tok)
				continue
			}
			out = append(out, tok)

		case KindLParen:
			stack = append(stack, tok)

		case KindComma:
			for len(stack) > 0 && stack[len(stack)-1].Kind != KindLParen {
				out = append(out, stack[len(stack)-1])
				stack = stack[:len(stack)-1]
			}
			if len(stack) == 0 {
				return nil, fmt.Errorf("%w: separator at position %d is outside parentheses", ErrMalformed, i)
			}

		case KindRParen:
			for len(stack) > 0 && stack[len(stack)-1].Kind != KindLParen {
				out = append(out, stack[len(stack)-1])
				stack = stack[:len(stack)-1]
			}
			if len(stack) == 0 {
				return nil, fmt.Errorf("%w: unexpected ')' at position %d", ErrMismatchedParens, i)
			}
			stack = stack[:len(stack)-1]
			if len(stack) > 0 && stack[len(stack)-1].Kind == KindFunction {
				out = append(out, stack[len(stack)-1])
				stack = stack[:len(stack)-1]
			}

		case KindOperator:
			for len(stack) > 0 {
				top := stack[len(stack)-1]
				if top.Kind != KindOperator || !yields(top.Op, tok.Op) {
					break
				}
				out = append(out, top)
				stack = stack[:len(stack)-1]
			}
			stack = append(stack, tok)

		default:
			return nil, fmt.Errorf("%w: %s at position %d", ErrUnsupportedToken, tok.Kind, i)
		}
	}

	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if top.Kind == KindLParen || top.Kind == KindRParen {
			return nil, fmt.Errorf("%w: unclosed '('", ErrMismatchedParens)
		}
		out = append(out, top)
	}
	return out, nil
}

// yields reports whether the stacked operator must be emitted before incoming.
func yields(stacked, incoming Operator) bool {
	sp, ip := stacked.precedence(), incoming.precedence()
	if incoming.rightAssociative() {
		return sp > ip
	}
	return sp >= ip
}
