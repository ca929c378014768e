package orchestrator

import "testing"

func TestEvalCondition(t *testing.T) {
	cases := []struct {
		expr string
		want bool
	}{
		{"", true},
		{"true", true},
		{"false", false},
		{"0", false},
		{"1", true},
		{`"ok" == "ok"`, true},
		{`"ok" != "ok"`, false},
		{`'a' == "a"`, true},
		{"3 > 2", true},
		{"2 >= 2", true},
		{"2 < 2", false},
		{"1.5 <= 1.4", false},
		{`"x" == "y" || 1 == 1`, true},
		{`"x" == "x" && 2 > 1`, true},
		{`"x" == "x" && 2 > 3`, false},
		{`"a||b" == "a||b"`, true},
		{"hello == hello", true},
	}
	for _, c := range cases {
		got, err := EvalCondition(c.expr)
		if err != nil {
			t.Errorf("EvalCondition(%q) error: %v", c.expr, err)
			continue
		}
		if got != c.want {
			t.Errorf("EvalCondition(%q) = %v, want %v", c.expr, got, c.want)
		}
	}
}

func TestEvalConditionErrors(t *testing.T) {
	bad := []string{
		`"unterminated`,
		`"a" > "b"`,
		`&& true`,
	}
	for _, expr := range bad {
		if _, err := EvalCondition(expr); err == nil {
			t.Errorf("EvalCondition(%q) expected error", expr)
		}
	}
}
