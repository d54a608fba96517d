package expr

import (
	"fmt"
	"strings"
	"unicode"
)

// Lex splits a textual expression such as "subtotal * taxRate / 100" into raw
// tokens accepted by Compile. A minus sign directly before a number where no
// left operand exists is folded into a negative literal.
func Lex(s string) ([]any, error) {
	var (
		out   []any
		runes = []rune(s)
	)
	for i := 0; i < len(runes); {
		r := runes[i]
		switch {
		case unicode.IsSpace(r):
			i++

		case isDigit(r) || (r == '.' && i+1 < len(runes) && isDigit(runes[i+1])):
			j := scanNumber(runes, i)
			out = append(out, string(runes[i:j]))
			i = j

		case r == '-' && expectsOperand(out) && i+1 < len(runes) && (isDigit(runes[i+1]) || runes[i+1] == '.'):
			j := scanNumber(runes, i+1)
			out = append(out, string(runes[i:j]))
			i = j

		case unicode.IsLetter(r) || r == '_':
			j := i + 1
			for j < len(runes) && (unicode.IsLetter(runes[j]) || unicode.IsDigit(runes[j]) || runes[j] == '_') {
				j++
			}
			out = append(out, string(runes[i:j]))
			i = j

		case r == '(' || r == ')' || r == ',':
			out = append(out, string(r))
			i++

		default:
			if i+1 < len(runes) {
				if _, ok := lookupOperator(string(runes[i : i+2])); ok {
					out = append(out, string(runes[i:i+2]))
					i += 2
					continue
				}
			}
			if _, ok := lookupOperator(string(r)); ok {
				out = append(out, string(r))
				i++
				continue
			}
			return nil, fmt.Errorf("%w: unexpected %q at offset %d", ErrUnsupportedToken, r, i)
		}
	}
	return out, nil
}

func scanNumber(runes []rune, i int) int {
	j := i
	for j < len(runes) && (isDigit(runes[j]) || runes[j] == '.') {
		j++
	}
	if j < len(runes) && (runes[j] == 'e' || runes[j] == 'E') {
		k := j + 1
		if k < len(runes) && (runes[k] == '+' || runes[k] == '-') {
			k++
		}
		if k < len(runes) && isDigit(runes[k]) {
			for k < len(runes) && isDigit(runes[k]) {
				k++
			}
			j = k
		}
	}
	return j
}

func expectsOperand(out []any) bool {
	if len(out) == 0 {
		return true
	}
	prev, _ := out[len(out)-1].(string)
	if prev == "(" || prev == "," {
		return true
	}
	_, isOp := lookupOperator(strings.TrimSpace(prev))
	return isOp
}

func isDigit(r rune) bool { return r >= '0' && r <= '9' }
