package logic

import (
	"fmt"

	"github.com/shubhFreelance/formlogic/config"
)

// ConditionResult records the outcome of a single condition leaf, for UI and
// debugging consumers.
type ConditionResult struct {
	FieldID  string                   `json:"fieldId"`
	Operator config.ConditionOperator `json:"operator"`
	Result   bool                     `json:"result"`
}

// GroupResult is the combined outcome of a condition group.
type GroupResult struct {
	Met        bool              `json:"met"`
	Conditions []ConditionResult `json:"conditions,omitempty"`
}

// ConditionEvaluation bundles the show and skip outcomes for one field.
type ConditionEvaluation struct {
	ShouldShow bool        `json:"shouldShow"`
	ShouldSkip bool        `json:"shouldSkip"`
	Show       GroupResult `json:"showConditions"`
	Skip       GroupResult `json:"skipConditions"`
}

// evaluateFieldCondition applies one condition operator to the referenced
// field's current value. An absent value makes every operator except the
// emptiness checks evaluate to false; it is never an error.
func evaluateFieldCondition(cond config.Condition, actual interface{}) bool {
	switch cond.Operator {
	case config.OperatorIsEmpty:
		return isEmpty(actual)
	case config.OperatorIsNotEmpty:
		return !isEmpty(actual)
	}

	if isEmpty(actual) {
		return false
	}

	switch cond.Operator {
	case config.OperatorEquals:
		if _, isList := asList(actual); isList {
			return false
		}
		return toComparable(actual) == toComparable(cond.Value)
	case config.OperatorNotEquals:
		if _, isList := asList(actual); isList {
			return true
		}
		return toComparable(actual) != toComparable(cond.Value)
	case config.OperatorContains:
		return containsValue(actual, cond.Value)
	case config.OperatorNotContains:
		return !containsValue(actual, cond.Value)
	case config.OperatorGreaterThan:
		left, okL := toNumber(actual)
		right, okR := toNumber(cond.Value)
		return okL && okR && left.GreaterThan(right)
	case config.OperatorLessThan:
		left, okL := toNumber(actual)
		right, okR := toNumber(cond.Value)
		return okL && okR && left.LessThan(right)
	default:
		return false
	}
}

// evaluateConditionGroup evaluates every leaf of a group against the
// response map and combines the results with the group operator. A disabled
// group is always met: the absence of conditional logic never hides a field.
func evaluateConditionGroup(group config.ConditionGroup, responses Responses) GroupResult {
	if !group.Enabled || len(group.Conditions) == 0 {
		return GroupResult{Met: true}
	}

	results := make([]ConditionResult, 0, len(group.Conditions))
	met := group.Operator != config.LogicOr
	for _, cond := range group.Conditions {
		outcome := evaluateFieldCondition(cond, responses[cond.FieldID])
		results = append(results, ConditionResult{FieldID: cond.FieldID, Operator: cond.Operator, Result: outcome})
		if group.Operator == config.LogicOr {
			met = met || outcome
		} else {
			met = met && outcome
		}
	}
	return GroupResult{Met: met, Conditions: results}
}

// EvaluateConditions looks up a field and evaluates its show and skip rule
// sets against the responses. Lookup failures are fatal errors, distinct
// from condition outcomes.
func EvaluateConditions(form *config.Form, fieldID string, responses Responses) (*ConditionEvaluation, error) {
	if form == nil {
		return nil, fmt.Errorf("Form not found")
	}
	field, ok := form.Field(fieldID)
	if !ok {
		return nil, fmt.Errorf("Field not found: %s", fieldID)
	}

	eval := &ConditionEvaluation{
		ShouldShow: true,
		Show:       GroupResult{Met: true},
		Skip:       GroupResult{Met: false},
	}
	if field.Conditional == nil {
		return eval, nil
	}

	eval.Show = evaluateConditionGroup(field.Conditional.Show, responses)
	eval.ShouldShow = eval.Show.Met
	if field.Conditional.Skip.Enabled {
		eval.Skip = evaluateConditionGroup(field.Conditional.Skip, responses)
		eval.ShouldSkip = eval.Skip.Met
	} else {
		eval.Skip = GroupResult{Met: false}
		eval.ShouldSkip = false
	}
	return eval, nil
}

// GetVisibleFields returns the fields a respondent should currently see, in
// ascending display order. Every field is evaluated independently against
// the raw responses; one field's visibility never feeds another's.
func GetVisibleFields(form *config.Form, responses Responses) ([]config.Field, error) {
	if form == nil {
		return nil, fmt.Errorf("Form not found")
	}
	sorted := form.SortedFields()
	visible := make([]config.Field, 0, len(sorted))
	for _, field := range sorted {
		eval, err := EvaluateConditions(form, field.ID, responses)
		if err != nil {
			return nil, err
		}
		if eval.ShouldShow && !eval.ShouldSkip {
			visible = append(visible, field)
		}
	}
	return visible, nil
}
