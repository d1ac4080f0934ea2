// Package logic implements the formula and conditional-logic engine for
// form definitions: formula parsing and evaluation for calculated fields,
// dependency-graph construction with cycle detection and deterministic
// evaluation order, show/skip condition evaluation, and the validation
// layer that guards configuration edits.
//
// The engine is pure and stateless: every operation is a synchronous
// function of the field list and the submitted response map, so any number
// of evaluations may run concurrently without coordination.
package logic

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/shubhFreelance/formlogic/config"
	"github.com/shubhFreelance/formlogic/telemetry"
)

// CalculationResult is the outcome of evaluating one calculated field. It is
// produced once per evaluation pass and never mutated afterwards.
type CalculationResult struct {
	Success       bool     `json:"success"`
	Value         string   `json:"value,omitempty"`
	DisplayValue  string   `json:"displayValue,omitempty"`
	Error         string   `json:"error,omitempty"`
	MissingFields []string `json:"missingFields,omitempty"`
	Dependencies  []string `json:"dependencies"`
}

// EvaluationReport is the result of a full calculation pass over a form.
type EvaluationReport struct {
	Calculations     map[string]CalculationResult `json:"calculations"`
	CalculationOrder []string                     `json:"calculationOrder"`
	DependencyGraph  map[string][]string          `json:"dependencyGraph"`
}

type calculation struct {
	field    *config.Field
	parsed   *parsedFormula
	parseErr error
}

func (c *calculation) dependencies() []string {
	if c.parsed != nil {
		return c.parsed.refs
	}
	return c.field.Calculation.Dependencies
}

// Engine evaluates a single form. Construction validates the form shape,
// compiles every formula and fixes the calculation order; the engine itself
// holds no mutable state, so one instance may serve concurrent evaluations.
type Engine struct {
	form      *config.Form
	calcs     map[string]*calculation
	graph     *dependencyGraph
	order     []string
	logger    zerolog.Logger
	collector telemetry.Collector
}

// New builds an engine for the given form. It fails on malformed field
// definitions and on circular calculation dependencies.
func New(form *config.Form, opts ...Option) (*Engine, error) {
	s, err := newSettings(opts)
	if err != nil {
		return nil, err
	}
	if err := form.Validate(); err != nil {
		formID := ""
		if form != nil {
			formID = form.ID
		}
		s.collector.IncValidationRejected(formID)
		return nil, err
	}

	engine := &Engine{
		form:      form,
		calcs:     make(map[string]*calculation),
		logger:    s.logger.With().Str("component", "logic").Str("form", form.ID).Logger(),
		collector: s.collector,
	}

	for i := range form.Fields {
		field := &form.Fields[i]
		if !field.IsCalculation() {
			continue
		}
		calc := &calculation{field: field}
		calc.parsed, calc.parseErr = parseFormula(field.Calculation.Formula)
		engine.calcs[field.ID] = calc
	}

	engine.graph = buildDependencyGraph(form.Fields)
	if err := engine.graph.detectCycle(); err != nil {
		engine.collector.IncCycleDetected(form.ID)
		return nil, err
	}
	order, err := engine.graph.topologicalOrder(form.Fields)
	if err != nil {
		engine.collector.IncCycleDetected(form.ID)
		return nil, err
	}
	engine.order = order
	return engine, nil
}

// EvaluateAll runs every calculated field in topological order, feeding each
// successful result back in as an input for later fields. One field's
// failure never aborts the pass: fields that depend on it fail with the
// broken dependency listed in MissingFields, unrelated fields evaluate
// normally.
func (e *Engine) EvaluateAll(responses Responses) *EvaluationReport {
	e.collector.IncEvaluation(e.form.ID)
	e.logger.Trace().Int("calculations", len(e.order)).Msg("evaluation pass started")

	working := make(Responses, len(responses)+len(e.order))
	for id, value := range responses {
		working[id] = value
	}

	report := &EvaluationReport{
		Calculations:     make(map[string]CalculationResult, len(e.order)),
		CalculationOrder: append([]string{}, e.order...),
		DependencyGraph:  e.graph.asMap(),
	}

	for _, id := range e.order {
		calc := e.calcs[id]
		result, value := evaluateCalculationValue(calc, working)
		report.Calculations[id] = result
		if !result.Success {
			e.collector.IncCalculationFailure(e.form.ID, id)
			e.logger.Debug().Str("field", id).Str("error", result.Error).Msg("calculation failed")
			// A raw response submitted under a calculated field's id must
			// not stand in for the failed calculation downstream.
			delete(working, id)
			continue
		}
		// Feed the exact result forward; rounding only applies to the
		// reported strings.
		working[id] = value
		e.logger.Trace().Str("field", id).Str("value", result.Value).Msg("calculation succeeded")
	}
	return report
}

// EvaluateField evaluates a single calculated field against the raw
// responses. Lookup failures are fatal errors, distinct from the per-field
// missing-value and syntax failures reported inside the result.
func (e *Engine) EvaluateField(fieldID string, responses Responses) (CalculationResult, error) {
	calc, ok := e.calcs[fieldID]
	if !ok {
		if _, exists := e.form.Field(fieldID); exists {
			return CalculationResult{}, fmt.Errorf("Field %s is not a calculation field", fieldID)
		}
		return CalculationResult{}, fmt.Errorf("Field not found: %s", fieldID)
	}
	return evaluateCalculation(calc, responses), nil
}

// Order returns the calculation order fixed at construction time.
func (e *Engine) Order() []string {
	return append([]string{}, e.order...)
}

// DependencyGraph returns the edges from each calculated field to the
// fields it reads.
func (e *Engine) DependencyGraph() map[string][]string {
	return e.graph.asMap()
}

func buildEnv(refs []string, values Responses) map[string]decimal.Decimal {
	env := make(map[string]decimal.Decimal, len(refs))
	for _, ref := range refs {
		if number, ok := toNumber(values[ref]); ok {
			env[ref] = number
		}
	}
	return env
}

// evaluateCalculation runs one compiled calculation against the supplied
// values. Missing and non-numeric dependencies are reported before any
// arithmetic; division by zero is checked after.
func evaluateCalculation(calc *calculation, values Responses) CalculationResult {
	result, _ := evaluateCalculationValue(calc, values)
	return result
}

func evaluateCalculationValue(calc *calculation, values Responses) (CalculationResult, decimal.Decimal) {
	result := CalculationResult{
		Dependencies: append([]string{}, calc.dependencies()...),
	}
	if calc.parseErr != nil {
		result.Error = calc.parseErr.Error()
		return result, decimal.Zero
	}

	var missing []string
	for _, ref := range calc.parsed.refs {
		value, ok := values[ref]
		if !ok || isEmpty(value) {
			missing = append(missing, ref)
			continue
		}
		if _, numeric := toNumber(value); !numeric {
			missing = append(missing, ref)
		}
	}
	if len(missing) > 0 {
		result.MissingFields = missing
		result.Error = "Missing required field values: " + strings.Join(missing, ", ")
		return result, decimal.Zero
	}

	value, err := calc.parsed.evaluate(buildEnv(calc.parsed.refs, values))
	if err != nil {
		result.Error = err.Error()
		return result, decimal.Zero
	}

	result.Success = true
	result.Value = formatValue(value)
	result.DisplayValue = formatDisplay(value, calc.field.Calculation.DisplayType)
	return result, value
}

// evaluateParsedFormula evaluates a compiled formula against raw test
// values, for validation previews.
func evaluateParsedFormula(parsed *parsedFormula, displayType config.DisplayType, values Responses) CalculationResult {
	calc := &calculation{
		field: &config.Field{
			Type:        config.FieldTypeCalculated,
			Calculation: &config.CalculationConfig{Enabled: true, Formula: parsed.source, DisplayType: displayType},
		},
		parsed: parsed,
	}
	return evaluateCalculation(calc, values)
}

// EvaluateAll is the one-shot form of Engine.EvaluateAll for callers that do
// not retain an engine between requests.
func EvaluateAll(form *config.Form, responses Responses, opts ...Option) (*EvaluationReport, error) {
	engine, err := New(form, opts...)
	if err != nil {
		return nil, err
	}
	return engine.EvaluateAll(responses), nil
}

// EvaluateField is the one-shot form of Engine.EvaluateField. Unlike
// EvaluateAll it does not require the whole form to be acyclic: only the
// requested field's formula is compiled and run.
func EvaluateField(form *config.Form, fieldID string, responses Responses) (CalculationResult, error) {
	if form == nil {
		return CalculationResult{}, fmt.Errorf("Form not found")
	}
	field, ok := form.Field(fieldID)
	if !ok {
		return CalculationResult{}, fmt.Errorf("Field not found: %s", fieldID)
	}
	if !field.IsCalculation() {
		return CalculationResult{}, fmt.Errorf("Field %s is not a calculation field", fieldID)
	}
	calc := &calculation{field: field}
	calc.parsed, calc.parseErr = parseFormula(field.Calculation.Formula)
	return evaluateCalculation(calc, responses), nil
}
