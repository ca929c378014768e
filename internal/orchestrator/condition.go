package orchestrator

import (
	"fmt"
	"strconv"
	"strings"
)

// EvalCondition evaluates a workflow step condition after placeholder
// substitution. The grammar is deliberately restricted: literals (quoted
// strings, numbers, true/false), one comparison operator per term
// (== != >= <= > <) and && / || between terms, && binding tighter. No code
// is ever constructed or executed. An empty condition is true.
func EvalCondition(expr string) (bool, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return true, nil
	}
	orTerms, err := splitOutsideQuotes(expr, "||")
	if err != nil {
		return false, err
	}
	for _, orTerm := range orTerms {
		andTerms, err := splitOutsideQuotes(orTerm, "&&")
		if err != nil {
			return false, err
		}
		all := true
		for _, term := range andTerms {
			ok, err := evalComparison(term)
			if err != nil {
				return false, err
			}
			if !ok {
				all = false
				break
			}
		}
		if all {
			return true, nil
		}
	}
	return false, nil
}

func evalComparison(term string) (bool, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return false, fmt.Errorf("empty condition term")
	}

	// Two-char operators first so ">=" is not read as ">".
	for _, op := range []string{"==", "!=", ">=", "<=", ">", "<"} {
		idx, err := indexOutsideQuotes(term, op)
		if err != nil {
			return false, err
		}
		if idx < 0 {
			continue
		}
		left, err := parseLiteral(term[:idx])
		if err != nil {
			return false, err
		}
		right, err := parseLiteral(term[idx+len(op):])
		if err != nil {
			return false, err
		}
		return compare(left, right, op)
	}

	// Bare literal: truthiness.
	lit, err := parseLiteral(term)
	if err != nil {
		return false, err
	}
	return lit.truthy(), nil
}

type literal struct {
	raw     string
	num     float64
	isNum   bool
	quoted  bool
	boolean *bool
}

func parseLiteral(s string) (literal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return literal{}, fmt.Errorf("empty operand")
	}
	if len(s) >= 2 && (s[0] == '"' || s[0] == '\'') {
		if s[len(s)-1] != s[0] {
			return literal{}, fmt.Errorf("unterminated string %s", s)
		}
		return literal{raw: s[1 : len(s)-1], quoted: true}, nil
	}
	switch strings.ToLower(s) {
	case "true":
		v := true
		return literal{raw: s, boolean: &v}, nil
	case "false":
		v := false
		return literal{raw: s, boolean: &v}, nil
	}
	if n, err := strconv.ParseFloat(s, 64); err == nil {
		return literal{raw: s, num: n, isNum: true}, nil
	}
	// Bare word, typically an unsubstituted placeholder or step output.
	return literal{raw: s}, nil
}

func (l literal) truthy() bool {
	if l.boolean != nil {
		return *l.boolean
	}
	if l.isNum {
		return l.num != 0
	}
	switch strings.ToLower(l.raw) {
	case "", "false", "0", "null", "undefined":
		return false
	}
	return true
}

func compare(left, right literal, op string) (bool, error) {
	if left.isNum && right.isNum {
		switch op {
		case "==":
			return left.num == right.num, nil
		case "!=":
			return left.num != right.num, nil
		case ">":
			return left.num > right.num, nil
		case "<":
			return left.num < right.num, nil
		case ">=":
			return left.num >= right.num, nil
		case "<=":
			return left.num <= right.num, nil
		}
	}
	switch op {
	case "==":
		return left.raw == right.raw, nil
	case "!=":
		return left.raw != right.raw, nil
	case ">", "<", ">=", "<=":
		return false, fmt.Errorf("ordering comparison needs numeric operands: %q %s %q", left.raw, op, right.raw)
	}
	return false, fmt.Errorf("unknown operator %q", op)
}

// splitOutsideQuotes splits s on sep, ignoring separators inside single or
// double quotes.
func splitOutsideQuotes(s, sep string) ([]string, error) {
	var parts []string
	start := 0
	for {
		idx, err := indexOutsideQuotes(s[start:], sep)
		if err != nil {
			return nil, err
		}
		if idx < 0 {
			parts = append(parts, s[start:])
			return parts, nil
		}
		parts = append(parts, s[start:start+idx])
		start += idx + len(sep)
	}
}

func indexOutsideQuotes(s, sub string) (int, error) {
	var quote byte
	for i := 0; i < len(s); i++ {
		c := s[i]
		if quote != 0 {
			if c == quote {
				quote = 0
			}
			continue
		}
		if c == '"' || c == '\'' {
			quote = c
			continue
		}
		if strings.HasPrefix(s[i:], sub) {
			return i, nil
		}
	}
	if quote != 0 {
		return -1, fmt.Errorf("unterminated quote in condition")
	}
	return -1, nil
}
