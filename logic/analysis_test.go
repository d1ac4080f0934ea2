package logic

import (
	"testing"

	"github.com/shubhFreelance/formlogic/config"
)

func TestAnalyzeFormHealthy(t *testing.T) {
	report, err := AnalyzeForm(chainedForm())
	if err != nil {
		t.Fatalf("AnalyzeForm: %v", err)
	}
	if len(report.Calculations) != 3 {
		t.Fatalf("expected 3 calculation reports, got %d", len(report.Calculations))
	}
	for _, calc := range report.Calculations {
		if len(calc.Errors) != 0 {
			t.Fatalf("field %s: unexpected errors %v", calc.FieldID, calc.Errors)
		}
	}
	if len(report.OrderErrors) != 0 {
		t.Fatalf("order errors: %v", report.OrderErrors)
	}
}

func TestAnalyzeFormReportsAllProblems(t *testing.T) {
	form := &config.Form{
		ID: "broken",
		Fields: []config.Field{
			numberField("a", 0),
			calcField("bad_syntax", 1, "{{a}} * *"),
			calcField("bad_ref", 2, "{{ghost}} + 1"),
			{
				ID: "bad_cond", Type: config.FieldTypeText, Order: 3,
				Conditional: &config.ConditionalConfig{
					Show: config.ConditionGroup{
						Enabled:  true,
						Operator: config.LogicAnd,
						Conditions: []config.Condition{
							{FieldID: "bad_cond", Operator: config.OperatorIsEmpty},
						},
					},
				},
			},
		},
	}
	report, err := AnalyzeForm(form)
	if err != nil {
		t.Fatalf("AnalyzeForm: %v", err)
	}
	if len(report.Calculations) != 2 {
		t.Fatalf("expected 2 calculation reports, got %d", len(report.Calculations))
	}
	for _, calc := range report.Calculations {
		if len(calc.Errors) == 0 {
			t.Fatalf("field %s: expected errors", calc.FieldID)
		}
	}
	if len(report.Conditionals) != 1 || !hasErrorContaining(report.Conditionals[0].Errors, "Circular reference detected") {
		t.Fatalf("conditionals = %+v", report.Conditionals)
	}
}

func TestAnalyzeFormDependencyStatus(t *testing.T) {
	field := calcField("subtotal", 2, "{{quantity}} * {{price}}", "quantity")
	form := &config.Form{
		ID:     "partial-decl",
		Fields: []config.Field{numberField("quantity", 0), numberField("price", 1), field},
	}
	report, err := AnalyzeForm(form)
	if err != nil {
		t.Fatalf("AnalyzeForm: %v", err)
	}
	if len(report.Calculations) != 1 {
		t.Fatalf("expected 1 calculation report, got %d", len(report.Calculations))
	}
	deps := report.Calculations[0].Dependencies
	if len(deps) != 2 {
		t.Fatalf("deps = %+v", deps)
	}
	for _, dep := range deps {
		if !dep.Resolved || !dep.Parsed {
			t.Fatalf("dependency %s should be parsed and resolved: %+v", dep.FieldID, dep)
		}
		if dep.FieldID == "quantity" && !dep.Declared {
			t.Fatalf("quantity should be marked declared: %+v", dep)
		}
		if dep.FieldID == "price" && dep.Declared {
			t.Fatalf("price should not be marked declared: %+v", dep)
		}
	}
}
