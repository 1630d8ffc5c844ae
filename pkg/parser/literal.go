package parser

import (
	"strconv"
	"strings"
)

// decodeString strips the quotes from a string literal and resolves the
// common escapes.
func decodeString(lit string) string {
	if len(lit) >= 2 {
		first := lit[0]
		if (first == '"' || first == '\'' || first == '`') && lit[len(lit)-1] == first {
			lit = lit[1 : len(lit)-1]
		}
	}
	if !strings.ContainsRune(lit, '\\') {
		return lit
	}
	var b strings.Builder
	for i := 0; i < len(lit); i++ {
		if lit[i] != '\\' || i+1 >= len(lit) {
			b.WriteByte(lit[i])
			continue
		}
		i++
		switch lit[i] {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case 'r':
			b.WriteByte('\r')
		default:
			b.WriteByte(lit[i])
		}
	}
	return b.String()
}

// decodeLiteral decodes a source expression that is a plain scalar
// literal. Numbers decode to float64, matching the JSON representation
// crossing the editing-surface boundary.
func decodeLiteral(expr string) (any, bool) {
	expr = strings.TrimSpace(expr)
	switch expr {
	case "true":
		return true, true
	case "false":
		return false, true
	case "null", "undefined":
		return nil, true
	}
	if expr == "" {
		return nil, false
	}
	if expr[0] == '"' || expr[0] == '\'' {
		if len(expr) >= 2 && expr[len(expr)-1] == expr[0] {
			return decodeString(expr), true
		}
		return nil, false
	}
	if n, err := strconv.ParseFloat(expr, 64); err == nil {
		return n, true
	}
	return nil, false
}
