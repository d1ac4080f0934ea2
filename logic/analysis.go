package logic

import (
	"fmt"
	"sort"

	"github.com/shubhFreelance/formlogic/config"
)

// DependencyStatus describes one dependency of a calculated field in an
// analysis report.
type DependencyStatus struct {
	FieldID  string
	Declared bool
	Parsed   bool
	Resolved bool
}

// CalculationReport summarises the configuration health of one calculated
// field.
type CalculationReport struct {
	FieldID      string
	Formula      string
	DisplayType  config.DisplayType
	Dependencies []DependencyStatus
	Errors       []string
}

// ConditionalReport summarises the configuration health of a field's
// conditional logic.
type ConditionalReport struct {
	FieldID string
	Errors  []string
}

// FormReport is the full configuration analysis of a form.
type FormReport struct {
	Calculations []CalculationReport
	Conditionals []ConditionalReport
	OrderErrors  []string
}

// AnalyzeForm validates every calculated field and every conditional rule
// set of a form and reports per-field findings without stopping at the
// first problem. It is the engine behind configuration check tooling.
func AnalyzeForm(form *config.Form) (*FormReport, error) {
	if form == nil {
		return nil, fmt.Errorf("Form not found")
	}
	if err := form.Validate(); err != nil {
		return nil, err
	}

	report := &FormReport{}
	for i := range form.Fields {
		field := &form.Fields[i]
		if field.IsCalculation() {
			report.Calculations = append(report.Calculations, analyzeCalculation(field, form.Fields))
		}
		if field.Conditional != nil {
			condReport := analyzeConditional(field, form.Fields)
			if len(condReport.Errors) > 0 {
				report.Conditionals = append(report.Conditionals, condReport)
			}
		}
	}

	graph := buildDependencyGraph(form.Fields)
	if err := graph.detectCycle(); err != nil {
		report.OrderErrors = append(report.OrderErrors, err.Error())
	}
	return report, nil
}

func analyzeCalculation(field *config.Field, fields []config.Field) CalculationReport {
	report := CalculationReport{
		FieldID:     field.ID,
		Formula:     field.Calculation.Formula,
		DisplayType: field.Calculation.DisplayType,
	}

	validation := ValidateFormula(field.Calculation.Formula, field.Calculation.Dependencies, fields, field.ID, nil)
	report.Errors = validation.Errors

	known := make(map[string]struct{}, len(fields))
	for i := range fields {
		known[fields[i].ID] = struct{}{}
	}
	declared := make(map[string]struct{}, len(field.Calculation.Dependencies))
	for _, dep := range field.Calculation.Dependencies {
		declared[dep] = struct{}{}
	}

	status := make(map[string]*DependencyStatus)
	for _, ref := range validation.Dependencies {
		_, resolved := known[ref]
		_, wasDeclared := declared[ref]
		status[ref] = &DependencyStatus{FieldID: ref, Declared: wasDeclared, Parsed: true, Resolved: resolved}
	}
	for dep := range declared {
		if _, ok := status[dep]; ok {
			continue
		}
		_, resolved := known[dep]
		status[dep] = &DependencyStatus{FieldID: dep, Declared: true, Resolved: resolved}
	}

	for _, entry := range status {
		report.Dependencies = append(report.Dependencies, *entry)
	}
	sort.Slice(report.Dependencies, func(i, j int) bool {
		return report.Dependencies[i].FieldID < report.Dependencies[j].FieldID
	})
	return report
}

func analyzeConditional(field *config.Field, fields []config.Field) ConditionalReport {
	report := ConditionalReport{FieldID: field.ID}
	for _, group := range []*config.ConditionGroup{&field.Conditional.Show, &field.Conditional.Skip} {
		validation := ValidateConditionalLogic(group, fields, field.ID)
		report.Errors = append(report.Errors, validation.Errors...)
	}
	return report
}
