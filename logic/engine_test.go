package logic

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/shubhFreelance/formlogic/config"
)

func checkoutForm() *config.Form {
	subtotal := calcField("subtotal", 2, "{{quantity}} * {{price}}", "quantity", "price")
	subtotal.Calculation.DisplayType = config.DisplayTypeCurrency
	return &config.Form{
		ID: "checkout",
		Fields: []config.Field{
			numberField("quantity", 0),
			numberField("price", 1),
			subtotal,
		},
	}
}

func chainedForm() *config.Form {
	return &config.Form{
		ID: "invoice",
		Fields: []config.Field{
			numberField("quantity", 0),
			numberField("price", 1),
			calcField("subtotal", 2, "{{quantity}} * {{price}}"),
			calcField("tax_amount", 3, "{{subtotal}} * 0.08"),
			calcField("total", 4, "{{subtotal}} + {{tax_amount}}"),
		},
	}
}

func TestEvaluateAllCurrency(t *testing.T) {
	report, err := EvaluateAll(checkoutForm(), Responses{"quantity": "5", "price": "10.50"})
	if err != nil {
		t.Fatalf("EvaluateAll: %v", err)
	}
	result := report.Calculations["subtotal"]
	if !result.Success {
		t.Fatalf("subtotal failed: %+v", result)
	}
	if result.Value != "52.50" {
		t.Fatalf("value = %q, want 52.50", result.Value)
	}
	if result.DisplayValue != "$52.50" {
		t.Fatalf("displayValue = %q, want $52.50", result.DisplayValue)
	}
}

func TestEvaluateAllMissingDependency(t *testing.T) {
	report, err := EvaluateAll(checkoutForm(), Responses{"quantity": "5"})
	if err != nil {
		t.Fatalf("EvaluateAll: %v", err)
	}
	result := report.Calculations["subtotal"]
	if result.Success {
		t.Fatalf("subtotal must fail: %+v", result)
	}
	if !strings.Contains(result.Error, "Missing required field values") {
		t.Fatalf("error = %q", result.Error)
	}
	if !equalStringSlices(result.MissingFields, []string{"price"}) {
		t.Fatalf("missingFields = %v", result.MissingFields)
	}
}

func TestEvaluateAllNonNumericIsMissing(t *testing.T) {
	report, err := EvaluateAll(checkoutForm(), Responses{"quantity": "5", "price": "lots"})
	if err != nil {
		t.Fatalf("EvaluateAll: %v", err)
	}
	result := report.Calculations["subtotal"]
	if result.Success {
		t.Fatalf("subtotal must fail: %+v", result)
	}
	if !strings.Contains(result.Error, "Missing required field values") {
		t.Fatalf("non-numeric must be a missing-field condition, got %q", result.Error)
	}
	if !equalStringSlices(result.MissingFields, []string{"price"}) {
		t.Fatalf("missingFields = %v", result.MissingFields)
	}
}

func TestEvaluateAllDivisionByZero(t *testing.T) {
	form := &config.Form{
		ID: "ratio",
		Fields: []config.Field{
			numberField("quantity", 0),
			numberField("price", 1),
			calcField("per_unit", 2, "{{quantity}} / {{price}}"),
		},
	}
	report, err := EvaluateAll(form, Responses{"quantity": "10", "price": "0"})
	if err != nil {
		t.Fatalf("EvaluateAll: %v", err)
	}
	result := report.Calculations["per_unit"]
	if result.Success {
		t.Fatalf("per_unit must fail: %+v", result)
	}
	if !strings.Contains(result.Error, "Division by zero") {
		t.Fatalf("error = %q", result.Error)
	}
	if len(result.MissingFields) != 0 {
		t.Fatalf("division by zero is not a missing-field condition: %v", result.MissingFields)
	}
}

func TestEvaluateAllChained(t *testing.T) {
	report, err := EvaluateAll(chainedForm(), Responses{"quantity": "5", "price": "10.50"})
	if err != nil {
		t.Fatalf("EvaluateAll: %v", err)
	}
	if want := []string{"subtotal", "tax_amount", "total"}; !equalStringSlices(report.CalculationOrder, want) {
		t.Fatalf("calculationOrder = %v, want %v", report.CalculationOrder, want)
	}
	if deps := report.DependencyGraph["subtotal"]; !equalStringSlices(deps, []string{"quantity", "price"}) {
		t.Fatalf("dependencyGraph[subtotal] = %v", deps)
	}
	if got := report.Calculations["subtotal"].Value; got != "52.50" {
		t.Fatalf("subtotal = %q", got)
	}
	if got := report.Calculations["tax_amount"].Value; got != "4.20" {
		t.Fatalf("tax_amount = %q", got)
	}
	if got := report.Calculations["total"].Value; got != "56.70" {
		t.Fatalf("total = %q", got)
	}
}

func TestEvaluateAllPartialIsolation(t *testing.T) {
	form := &config.Form{
		ID: "partial",
		Fields: []config.Field{
			numberField("a_input", 0),
			numberField("c_input", 1),
			calcField("a", 2, "{{a_input}} * 2"),
			calcField("b", 3, "{{a}} + 1"),
			calcField("c", 4, "{{c_input}} + 1"),
		},
	}
	report, err := EvaluateAll(form, Responses{"c_input": "41"})
	if err != nil {
		t.Fatalf("EvaluateAll: %v", err)
	}

	a := report.Calculations["a"]
	if a.Success || !equalStringSlices(a.MissingFields, []string{"a_input"}) {
		t.Fatalf("a = %+v", a)
	}
	b := report.Calculations["b"]
	if b.Success {
		t.Fatalf("b must fail when a failed: %+v", b)
	}
	if !equalStringSlices(b.MissingFields, []string{"a"}) {
		t.Fatalf("b.missingFields = %v, want [a]", b.MissingFields)
	}
	c := report.Calculations["c"]
	if !c.Success || c.Value != "42.00" {
		t.Fatalf("independent field must still evaluate: %+v", c)
	}
}

func TestEvaluateAllIdempotent(t *testing.T) {
	form := chainedForm()
	responses := Responses{"quantity": "3", "price": "19.99"}

	first, err := EvaluateAll(form, responses)
	if err != nil {
		t.Fatalf("EvaluateAll: %v", err)
	}
	second, err := EvaluateAll(form, responses)
	if err != nil {
		t.Fatalf("EvaluateAll: %v", err)
	}

	firstJSON, err := json.Marshal(first)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	secondJSON, err := json.Marshal(second)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(firstJSON) != string(secondJSON) {
		t.Fatalf("reports differ:\n%s\n%s", firstJSON, secondJSON)
	}
}

func TestEvaluateAllDoesNotMutateResponses(t *testing.T) {
	responses := Responses{"quantity": "5", "price": "10.50"}
	if _, err := EvaluateAll(chainedForm(), responses); err != nil {
		t.Fatalf("EvaluateAll: %v", err)
	}
	if len(responses) != 2 {
		t.Fatalf("responses mutated: %v", responses)
	}
}

type recordingCollector struct {
	evaluations int
	failures    []string
	cycles      int
	rejections  int
}

func (c *recordingCollector) IncEvaluation(string) { c.evaluations++ }
func (c *recordingCollector) IncCalculationFailure(_, field string) {
	c.failures = append(c.failures, field)
}
func (c *recordingCollector) IncCycleDetected(string)      { c.cycles++ }
func (c *recordingCollector) IncValidationRejected(string) { c.rejections++ }

func TestEvaluateAllIgnoresStaleResponseForFailedCalculation(t *testing.T) {
	form := &config.Form{
		ID: "stale",
		Fields: []config.Field{
			numberField("a_input", 0),
			calcField("a", 1, "{{a_input}} * 2"),
			calcField("b", 2, "{{a}} + 1"),
		},
	}
	// The caller's map carries a raw value under the calculated field's id.
	// Once a's calculation fails, that value must not feed b.
	report, err := EvaluateAll(form, Responses{"a": "99"})
	if err != nil {
		t.Fatalf("EvaluateAll: %v", err)
	}
	if report.Calculations["a"].Success {
		t.Fatalf("a must fail: %+v", report.Calculations["a"])
	}
	b := report.Calculations["b"]
	if b.Success {
		t.Fatalf("b must not evaluate from the stale response: %+v", b)
	}
	if !equalStringSlices(b.MissingFields, []string{"a"}) {
		t.Fatalf("b.missingFields = %v, want [a]", b.MissingFields)
	}
}

func TestNewReportsValidationRejection(t *testing.T) {
	collector := &recordingCollector{}
	form := &config.Form{
		ID: "dupes",
		Fields: []config.Field{
			numberField("a", 0),
			numberField("a", 1),
		},
	}
	if _, err := New(form, WithCollector(collector)); err == nil {
		t.Fatal("expected validation error")
	}
	if collector.rejections != 1 {
		t.Fatalf("rejections = %d, want 1", collector.rejections)
	}
}

func TestNewReportsCycleDetection(t *testing.T) {
	collector := &recordingCollector{}
	form := &config.Form{
		ID: "looped",
		Fields: []config.Field{
			calcField("a", 0, "{{b}} + 1"),
			calcField("b", 1, "{{a}} + 1"),
		},
	}
	if _, err := New(form, WithCollector(collector)); err == nil {
		t.Fatal("expected cycle error")
	}
	if collector.cycles != 1 {
		t.Fatalf("cycles = %d, want 1", collector.cycles)
	}
	if collector.rejections != 0 {
		t.Fatalf("rejections = %d, want 0", collector.rejections)
	}
}

func TestNewRejectsCycles(t *testing.T) {
	form := &config.Form{
		ID: "looped",
		Fields: []config.Field{
			calcField("a", 0, "{{b}} + 1"),
			calcField("b", 1, "{{a}} + 1"),
		},
	}
	_, err := New(form)
	if err == nil || !strings.Contains(err.Error(), "Circular dependency detected") {
		t.Fatalf("expected circular dependency error, got %v", err)
	}
}

func TestEvaluateFieldLookupErrors(t *testing.T) {
	form := checkoutForm()
	if _, err := EvaluateField(form, "ghost", Responses{}); err == nil || !strings.Contains(err.Error(), "Field not found") {
		t.Fatalf("expected field lookup error, got %v", err)
	}
	if _, err := EvaluateField(form, "quantity", Responses{}); err == nil || !strings.Contains(err.Error(), "not a calculation field") {
		t.Fatalf("expected non-calculation error, got %v", err)
	}
	if _, err := EvaluateField(nil, "quantity", Responses{}); err == nil || !strings.Contains(err.Error(), "Form not found") {
		t.Fatalf("expected form lookup error, got %v", err)
	}
}

func TestEvaluateFieldSingle(t *testing.T) {
	result, err := EvaluateField(checkoutForm(), "subtotal", Responses{"quantity": "2", "price": "3"})
	if err != nil {
		t.Fatalf("EvaluateField: %v", err)
	}
	if !result.Success || result.Value != "6.00" {
		t.Fatalf("result = %+v", result)
	}
	if !equalStringSlices(result.Dependencies, []string{"quantity", "price"}) {
		t.Fatalf("dependencies = %v", result.Dependencies)
	}
}
