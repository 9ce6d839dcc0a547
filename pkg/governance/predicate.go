package governance

import (
	"fmt"
	"strconv"
	"strings"
)

// Op is a predicate comparison operator.
type Op string

const (
	OpPresent  Op = "present"  // field exists and is non-empty
	OpAbsent   Op = "absent"   // field missing or empty
	OpEq       Op = "eq"       // string-equal to Value
	OpNe       Op = "ne"       // not string-equal to Value
	OpContains Op = "contains" // field contains Value as a substring
	OpGt       Op = "gt"       // numeric greater-than Value
	OpLt       Op = "lt"       // numeric less-than Value
)

// Predicate is the structured form of a rule condition: a single
// field/operator/value check against task data. The free criteria or
// requirement text on the rule record remains the human-readable label.
// A zero Predicate means the rule is text-only: it feeds the prompt
// synthesizer and is never machine-evaluated.
type Predicate struct {
	Field string `json:"field,omitempty" yaml:"field,omitempty"`
	Op    Op     `json:"op,omitempty" yaml:"op,omitempty"`
	Value string `json:"value,omitempty" yaml:"value,omitempty"`
}

// IsZero reports whether the predicate is text-only (no structured check).
func (p Predicate) IsZero() bool {
	return p.Field == "" && p.Op == "" && p.Value == ""
}

// Validate checks the predicate is well-formed. Zero predicates are valid.
func (p Predicate) Validate() error {
	if p.IsZero() {
		return nil
	}
	if strings.TrimSpace(p.Field) == "" {
		return fmt.Errorf("predicate field must be non-empty: %w", ErrValidation)
	}
	switch p.Op {
	case OpPresent, OpAbsent:
		return nil
	case OpEq, OpNe, OpContains, OpGt, OpLt:
		if p.Value == "" {
			return fmt.Errorf("predicate op %q requires a value: %w", p.Op, ErrValidation)
		}
		return nil
	default:
		return fmt.Errorf("unknown predicate op %q: %w", p.Op, ErrValidation)
	}
}

// Holds evaluates the predicate against task data. Missing fields satisfy
// only OpAbsent; comparison ops against a missing field are false, not an
// error. Malformed predicates return ErrValidation.
func (p Predicate) Holds(data TaskData) (bool, error) {
	if err := p.Validate(); err != nil {
		return false, err
	}
	if p.IsZero() {
		return false, nil
	}

	raw, ok := data[p.Field]
	val := stringify(raw)
	switch p.Op {
	case OpPresent:
		return ok && val != "", nil
	case OpAbsent:
		return !ok || val == "", nil
	case OpEq:
		return ok && val == p.Value, nil
	case OpNe:
		return ok && val != p.Value, nil
	case OpContains:
		return ok && strings.Contains(val, p.Value), nil
	case OpGt, OpLt:
		if !ok {
			return false, nil
		}
		lhs, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return false, nil
		}
		rhs, err := strconv.ParseFloat(strings.TrimSpace(p.Value), 64)
		if err != nil {
			return false, fmt.Errorf("predicate value %q is not numeric: %w", p.Value, ErrValidation)
		}
		if p.Op == OpGt {
			return lhs > rhs, nil
		}
		return lhs < rhs, nil
	}
	return false, nil
}

// stringify renders a task data value for comparison. Bools and numbers use
// their canonical Go formatting so YAML- and JSON-sourced data compare the
// same way.
func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", t)
	}
}
