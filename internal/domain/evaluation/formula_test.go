package evaluation

import (
	"strings"
	"testing"
)

func TestEvaluateFormulaEmptyUsesDefault(t *testing.T) {
	in := FinalScoreInputs{GoalScore: 80, SelfScore: 90, FeedbackScore: 70}
	got, warning := EvaluateFormula("", in)
	want := 80*0.6 + 90*0.2 + 70*0.2
	if !almostEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	if warning != nil {
		t.Fatalf("empty formula is not a failure, got warning %+v", warning)
	}
}

func TestEvaluateFormulaCustomExpression(t *testing.T) {
	in := FinalScoreInputs{GoalScore: 80, SelfScore: 60, FeedbackScore: 40}
	cases := []struct {
		formula string
		want    float64
	}{
		{"goal_score", 80},
		{"goal_score * 0.5 + self_score * 0.5", 70},
		{"(goal_score + self_score + feedback_score) / 3", 60},
		{"goal_score * 0.7 + self_score * 0.15 + feedback_score * 0.15", 71},
		{"100 - feedback_score", 60},
		{"-goal_score + 100", 20},
	}
	for _, tc := range cases {
		t.Run(tc.formula, func(t *testing.T) {
			got, warning := EvaluateFormula(tc.formula, in)
			if warning != nil {
				t.Fatalf("unexpected warning: %+v", warning)
			}
			if !almostEqual(got, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, got)
			}
		})
	}
}

func TestEvaluateFormulaPrecedence(t *testing.T) {
	got, warning := EvaluateFormula("2 + 3 * 4", FinalScoreInputs{})
	if warning != nil {
		t.Fatalf("unexpected warning: %+v", warning)
	}
	if got != 14 {
		t.Fatalf("expected multiplication to bind tighter, got %v", got)
	}
}

func TestEvaluateFormulaFallsBackWithWarning(t *testing.T) {
	in := FinalScoreInputs{GoalScore: 80, SelfScore: 90, FeedbackScore: 70}
	want := DefaultFinalScore(in)

	cases := []struct {
		name    string
		formula string
	}{
		{"malformed", "goal_score +"},
		{"unknown variable", "attendance_score * 1.0"},
		{"division by zero", "goal_score / 0"},
		{"trailing garbage", "goal_score ; drop table users"},
		{"unbalanced parens", "(goal_score + self_score"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, warning := EvaluateFormula(tc.formula, in)
			if !almostEqual(got, want) {
				t.Fatalf("expected default %v, got %v", want, got)
			}
			if warning == nil {
				t.Fatal("expected a warning describing the fallback")
			}
			if warning.Formula != strings.TrimSpace(tc.formula) {
				t.Fatalf("warning should carry the offending formula, got %q", warning.Formula)
			}
			if warning.Reason == "" {
				t.Fatal("warning reason must not be empty")
			}
		})
	}
}
