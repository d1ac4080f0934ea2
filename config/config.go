package config

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// FieldType identifies the kind of input a form field accepts.
type FieldType string

const (
	FieldTypeText       FieldType = "text"
	FieldTypeTextarea   FieldType = "textarea"
	FieldTypeEmail      FieldType = "email"
	FieldTypePhone      FieldType = "phone"
	FieldTypeNumber     FieldType = "number"
	FieldTypeDate       FieldType = "date"
	FieldTypeSelect     FieldType = "select"
	FieldTypeRadio      FieldType = "radio"
	FieldTypeCheckbox   FieldType = "checkbox"
	FieldTypeFile       FieldType = "file"
	FieldTypeRating     FieldType = "rating"
	FieldTypeSignature  FieldType = "signature"
	FieldTypeCalculated FieldType = "calculated"
)

var fieldTypes = map[FieldType]struct{}{
	FieldTypeText: {}, FieldTypeTextarea: {}, FieldTypeEmail: {},
	FieldTypePhone: {}, FieldTypeNumber: {}, FieldTypeDate: {},
	FieldTypeSelect: {}, FieldTypeRadio: {}, FieldTypeCheckbox: {},
	FieldTypeFile: {}, FieldTypeRating: {}, FieldTypeSignature: {},
	FieldTypeCalculated: {},
}

// IsValid reports whether the field type is part of the supported enum.
func (t FieldType) IsValid() bool {
	_, ok := fieldTypes[t]
	return ok
}

// DisplayType controls how a calculated value is rendered.
type DisplayType string

const (
	DisplayTypeNumber     DisplayType = "number"
	DisplayTypeCurrency   DisplayType = "currency"
	DisplayTypePercentage DisplayType = "percentage"
)

// ConditionOperator is the comparison applied by a single condition leaf.
type ConditionOperator string

const (
	OperatorEquals      ConditionOperator = "equals"
	OperatorNotEquals   ConditionOperator = "not_equals"
	OperatorContains    ConditionOperator = "contains"
	OperatorNotContains ConditionOperator = "not_contains"
	OperatorGreaterThan ConditionOperator = "greater_than"
	OperatorLessThan    ConditionOperator = "less_than"
	OperatorIsEmpty     ConditionOperator = "is_empty"
	OperatorIsNotEmpty  ConditionOperator = "is_not_empty"
)

var conditionOperators = map[ConditionOperator]struct{}{
	OperatorEquals: {}, OperatorNotEquals: {}, OperatorContains: {},
	OperatorNotContains: {}, OperatorGreaterThan: {}, OperatorLessThan: {},
	OperatorIsEmpty: {}, OperatorIsNotEmpty: {},
}

// IsValid reports whether the operator is part of the supported enum.
func (o ConditionOperator) IsValid() bool {
	_, ok := conditionOperators[o]
	return ok
}

// LogicOperator combines the leaves of a condition group.
type LogicOperator string

const (
	LogicAnd LogicOperator = "AND"
	LogicOr  LogicOperator = "OR"
)

// Condition is a single predicate against another field's submitted value.
type Condition struct {
	FieldID  string            `yaml:"fieldId" json:"fieldId"`
	Operator ConditionOperator `yaml:"operator" json:"operator"`
	Value    interface{}       `yaml:"value,omitempty" json:"value,omitempty"`
}

// ConditionGroup is a set of conditions combined with AND or OR.
type ConditionGroup struct {
	Enabled    bool          `yaml:"enabled" json:"enabled"`
	Operator   LogicOperator `yaml:"operator,omitempty" json:"operator,omitempty"`
	Conditions []Condition   `yaml:"conditions,omitempty" json:"conditions,omitempty"`
}

// ConditionalConfig holds the two independent rule sets of a field.
type ConditionalConfig struct {
	Show ConditionGroup `yaml:"show,omitempty" json:"show,omitempty"`
	Skip ConditionGroup `yaml:"skip,omitempty" json:"skip,omitempty"`
}

// CalculationConfig configures a calculated field.
type CalculationConfig struct {
	Enabled      bool        `yaml:"enabled" json:"enabled"`
	Formula      string      `yaml:"formula" json:"formula"`
	Dependencies []string    `yaml:"dependencies,omitempty" json:"dependencies,omitempty"`
	DisplayType  DisplayType `yaml:"displayType,omitempty" json:"displayType,omitempty"`
}

// ValidationRules carries the optional bounds attached to a field definition.
// They are enforced by the submission layer, not by the logic engine.
type ValidationRules struct {
	MinLength *int     `yaml:"minLength,omitempty" json:"minLength,omitempty"`
	MaxLength *int     `yaml:"maxLength,omitempty" json:"maxLength,omitempty"`
	Min       *float64 `yaml:"min,omitempty" json:"min,omitempty"`
	Max       *float64 `yaml:"max,omitempty" json:"max,omitempty"`
	Pattern   string   `yaml:"pattern,omitempty" json:"pattern,omitempty"`
}

// Field is a single form field definition.
type Field struct {
	ID          string             `yaml:"id" json:"id"`
	Type        FieldType          `yaml:"type" json:"type"`
	Label       string             `yaml:"label,omitempty" json:"label,omitempty"`
	Required    bool               `yaml:"required,omitempty" json:"required,omitempty"`
	Order       int                `yaml:"order" json:"order"`
	Options     []string           `yaml:"options,omitempty" json:"options,omitempty"`
	Validation  *ValidationRules   `yaml:"validation,omitempty" json:"validation,omitempty"`
	Conditional *ConditionalConfig `yaml:"conditional,omitempty" json:"conditional,omitempty"`
	Calculation *CalculationConfig `yaml:"calculation,omitempty" json:"calculation,omitempty"`
}

// IsCalculation reports whether the field is an enabled calculated field.
func (f *Field) IsCalculation() bool {
	return f != nil && f.Type == FieldTypeCalculated && f.Calculation != nil && f.Calculation.Enabled
}

// Form is a complete form definition as supplied by the caller.
type Form struct {
	ID     string  `yaml:"id,omitempty" json:"id,omitempty"`
	Title  string  `yaml:"title,omitempty" json:"title,omitempty"`
	Fields []Field `yaml:"fields" json:"fields"`
}

// Field returns the field with the given id.
func (f *Form) Field(id string) (*Field, bool) {
	if f == nil {
		return nil, false
	}
	for i := range f.Fields {
		if f.Fields[i].ID == id {
			return &f.Fields[i], true
		}
	}
	return nil, false
}

// SortedFields returns the fields in ascending display order. Fields with
// equal order keep their declaration order.
func (f *Form) SortedFields() []Field {
	if f == nil {
		return nil
	}
	out := make([]Field, len(f.Fields))
	copy(out, f.Fields)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out
}

// Validate checks the structural shape of the form definition: unique
// non-empty field ids, known field types and known condition operators.
// Referential and cycle checks are the logic package's concern.
func (f *Form) Validate() error {
	if f == nil {
		return errors.New("form must not be nil")
	}
	seen := make(map[string]struct{}, len(f.Fields))
	for i := range f.Fields {
		field := &f.Fields[i]
		if field.ID == "" {
			return fmt.Errorf("field %d: id must not be empty", i)
		}
		if _, ok := seen[field.ID]; ok {
			return fmt.Errorf("duplicate field id %q", field.ID)
		}
		seen[field.ID] = struct{}{}
		if !field.Type.IsValid() {
			return fmt.Errorf("field %s: unknown type %q", field.ID, field.Type)
		}
		if field.Calculation != nil && field.Calculation.Enabled && field.Type != FieldTypeCalculated {
			return fmt.Errorf("field %s: calculation requires type %q, got %q", field.ID, FieldTypeCalculated, field.Type)
		}
		if field.IsCalculation() && field.Calculation.Formula == "" {
			return fmt.Errorf("field %s: calculation formula must not be empty", field.ID)
		}
		if field.Conditional != nil {
			if err := validateGroupShape(&field.Conditional.Show, field.ID, "show"); err != nil {
				return err
			}
			if err := validateGroupShape(&field.Conditional.Skip, field.ID, "skip"); err != nil {
				return err
			}
		}
	}
	return nil
}

func validateGroupShape(group *ConditionGroup, fieldID, name string) error {
	if !group.Enabled {
		return nil
	}
	if group.Operator != "" && group.Operator != LogicAnd && group.Operator != LogicOr {
		return fmt.Errorf("field %s: %s group has unknown operator %q", fieldID, name, group.Operator)
	}
	for idx, cond := range group.Conditions {
		if cond.FieldID == "" {
			return fmt.Errorf("field %s: %s condition %d is missing a field reference", fieldID, name, idx)
		}
		if !cond.Operator.IsValid() {
			return fmt.Errorf("field %s: %s condition %d has unknown operator %q", fieldID, name, idx, cond.Operator)
		}
	}
	return nil
}

// Load reads a form definition from a YAML or JSON file. JSON documents load
// through the same decoder because YAML is a superset of JSON.
func Load(path string) (*Form, error) {
	if path == "" {
		return nil, errors.New("form path must not be empty")
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read form %s: %w", path, err)
	}
	var form Form
	if err := yaml.Unmarshal(raw, &form); err != nil {
		return nil, fmt.Errorf("unmarshal form %s: %w", path, err)
	}
	if err := form.Validate(); err != nil {
		return nil, fmt.Errorf("form %s: %w", path, err)
	}
	return &form, nil
}
