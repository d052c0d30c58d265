package service

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/vara-prasad-07/internet-yellow-pages/internal/domain"
)

// Rule canonicalizes one property value
type Rule func(v domain.Value) (domain.Value, error)

// Normalizer rewrites identity-bearing properties into canonical form so
// that equal entities compare equal regardless of how a crawler spelled
// them
type Normalizer struct {
	rules map[string]Rule
}

// NewNormalizer creates a normalizer with no rules
func NewNormalizer() *Normalizer {
	return &Normalizer{rules: make(map[string]Rule)}
}

// DefaultNormalizer returns the rules for the built-in entity properties
func DefaultNormalizer() *Normalizer {
	n := NewNormalizer()
	n.Register(domain.PropASN, IntegerRule)
	n.Register(domain.PropAF, IntegerRule)
	n.Register(domain.PropIP, LowerCaseRule)
	n.Register(domain.PropPrefix, LowerCaseRule)
	n.Register(domain.PropCountryCode, UpperCaseRule)
	n.Register(domain.PropExternalID, IdentifierRule)
	return n
}

// Register sets the rule for a property, replacing any previous one
func (n *Normalizer) Register(property string, rule Rule) {
	n.rules[property] = rule
}

// Normalize returns a normalized copy of props. The input is not modified.
func (n *Normalizer) Normalize(props domain.Properties) (domain.Properties, error) {
	out := make(domain.Properties, len(props))
	for name, v := range props {
		nv, err := n.NormalizeValue(name, v)
		if err != nil {
			return nil, err
		}
		out[name] = nv
	}
	return out, nil
}

// NormalizeValue applies the rule registered for property, if any
func (n *Normalizer) NormalizeValue(property string, v domain.Value) (domain.Value, error) {
	if !v.IsValid() {
		return v, &domain.MalformedValueError{Property: property, Value: v, Reason: "missing value"}
	}
	rule, ok := n.rules[property]
	if !ok {
		return v, nil
	}
	nv, err := rule(v)
	if err != nil {
		return v, &domain.MalformedValueError{Property: property, Value: v, Reason: err.Error()}
	}
	return nv, nil
}

// IntegerRule coerces decimal strings and integral floats to Int
func IntegerRule(v domain.Value) (domain.Value, error) {
	switch v.Kind() {
	case domain.KindInt:
		return v, nil
	case domain.KindString:
		s, _ := v.AsString()
		i, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
		if err != nil {
			return v, fmt.Errorf("not a decimal integer")
		}
		return domain.Int(i), nil
	case domain.KindFloat:
		f, _ := v.AsFloat()
		if f != math.Trunc(f) || math.IsInf(f, 0) || f >= 1<<63 || f < -(1<<63) {
			return v, fmt.Errorf("not an integral number")
		}
		return domain.Int(int64(f)), nil
	default:
		return v, fmt.Errorf("cannot convert %s to integer", v.Kind())
	}
}

// IdentifierRule turns integral values into Int and leaves other strings
// alone, so "12345" and 12345 name the same external identifier
func IdentifierRule(v domain.Value) (domain.Value, error) {
	switch v.Kind() {
	case domain.KindString, domain.KindFloat:
		if nv, err := IntegerRule(v); err == nil {
			return nv, nil
		}
		if v.Kind() == domain.KindFloat {
			return v, fmt.Errorf("not an integral number")
		}
		return v, nil
	case domain.KindInt:
		return v, nil
	default:
		return v, fmt.Errorf("cannot use %s as identifier", v.Kind())
	}
}

// LowerCaseRule lower-cases strings
func LowerCaseRule(v domain.Value) (domain.Value, error) {
	s, ok := v.AsString()
	if !ok {
		return v, fmt.Errorf("expected string, got %s", v.Kind())
	}
	return domain.String(strings.ToLower(s)), nil
}

// UpperCaseRule upper-cases strings
func UpperCaseRule(v domain.Value) (domain.Value, error) {
	s, ok := v.AsString()
	if !ok {
		return v, fmt.Errorf("expected string, got %s", v.Kind())
	}
	return domain.String(strings.ToUpper(s)), nil
}
