package logic

import (
	"fmt"

	"github.com/shubhFreelance/formlogic/config"
)

// ValidationResult is the outcome of validating a proposed calculation or
// conditional-logic configuration before it is persisted.
type ValidationResult struct {
	IsValid      bool     `json:"isValid"`
	Errors       []string `json:"errors,omitempty"`
	Dependencies []string `json:"dependencies,omitempty"`
	// Preview holds the test evaluation result when test values were supplied
	// to ValidateFormula.
	Preview *CalculationResult `json:"preview,omitempty"`
}

func (r *ValidationResult) addError(format string, args ...interface{}) {
	r.IsValid = false
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

// ValidateConditionalLogic checks a proposed condition group against the
// form's field set. ownerFieldID is the field being edited; it may be empty
// for new fields.
func ValidateConditionalLogic(group *config.ConditionGroup, fields []config.Field, ownerFieldID string) ValidationResult {
	result := ValidationResult{IsValid: true}
	if group == nil {
		return result
	}
	if group.Enabled && len(group.Conditions) == 0 {
		result.addError("At least one condition is required when conditional logic is enabled")
	}

	known := make(map[string]struct{}, len(fields))
	for i := range fields {
		known[fields[i].ID] = struct{}{}
	}

	for _, cond := range group.Conditions {
		if !cond.Operator.IsValid() {
			result.addError("Unknown condition operator %q", cond.Operator)
			continue
		}
		if ownerFieldID != "" && cond.FieldID == ownerFieldID {
			result.addError("Circular reference detected: field cannot reference itself")
			continue
		}
		if _, ok := known[cond.FieldID]; !ok {
			result.addError("Referenced field %q does not exist", cond.FieldID)
		}
	}
	return result
}

// ValidateFormula checks a proposed calculation formula: syntax, referential
// integrity of every parsed and declared dependency, and, when targetFieldID
// names the field under edit, that accepting the formula keeps the form's
// dependency graph acyclic. The hypothetical edges are inserted into a clone
// of the current graph; the live graph is never touched. When testValues is
// non-nil the formula is additionally evaluated against them and the result
// returned as a preview.
func ValidateFormula(formula string, dependencies []string, fields []config.Field, targetFieldID string, testValues Responses) ValidationResult {
	result := ValidationResult{IsValid: true}

	parsed, err := parseFormula(formula)
	if err != nil {
		result.addError("%s", err.Error())
		result.Dependencies = append([]string{}, dependencies...)
		return result
	}
	result.Dependencies = append([]string{}, parsed.refs...)

	known := make(map[string]struct{}, len(fields))
	for i := range fields {
		known[fields[i].ID] = struct{}{}
	}
	referenced := make(map[string]struct{}, len(parsed.refs))
	for _, ref := range parsed.refs {
		referenced[ref] = struct{}{}
		if _, ok := known[ref]; !ok {
			result.addError("Referenced field %q does not exist", ref)
		}
	}
	for _, dep := range dependencies {
		if _, ok := referenced[dep]; !ok {
			result.addError("Declared dependency %q is not referenced by the formula", dep)
		}
	}
	if targetFieldID != "" {
		graph := buildDependencyGraph(fields)
		hypothetical := graph.clone()
		hypothetical.setEdges(targetFieldID, parsed.refs)
		if err := hypothetical.detectCycle(); err != nil {
			result.addError("%s", err.Error())
		}
	}

	if result.IsValid && testValues != nil {
		preview := evaluateParsedFormula(parsed, config.DisplayTypeNumber, testValues)
		result.Preview = &preview
	}
	return result
}
