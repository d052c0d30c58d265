package service

import (
	"context"
	"fmt"

	"github.com/vara-prasad-07/internet-yellow-pages/internal/domain"
	"github.com/vara-prasad-07/internet-yellow-pages/internal/repository"
)

// ConstraintRegistry is the ordered declaration of per-label rules.
// Declaration order doubles as the key-label priority.
type ConstraintRegistry struct {
	labels []string
	props  map[string][]string                 // label -> properties, declaration order
	rules  map[string]map[string][]domain.Rule // label -> property -> rules
}

// NewConstraintRegistry creates an empty registry
func NewConstraintRegistry() *ConstraintRegistry {
	return &ConstraintRegistry{
		props: make(map[string][]string),
		rules: make(map[string]map[string][]domain.Rule),
	}
}

// DefaultConstraints declares the built-in entity constraints
func DefaultConstraints() *ConstraintRegistry {
	r := NewConstraintRegistry()
	for _, d := range []struct {
		label, property string
		rules           []domain.Rule
	}{
		{domain.LabelAS, domain.PropASN, []domain.Rule{domain.RuleUnique, domain.RuleNotNull}},
		{domain.LabelPrefix, domain.PropPrefix, []domain.Rule{domain.RuleUnique, domain.RuleNotNull}},
		{domain.LabelPrefix, domain.PropAF, []domain.Rule{domain.RuleNotNull}},
		{domain.LabelIP, domain.PropIP, []domain.Rule{domain.RuleUnique, domain.RuleNotNull}},
		{domain.LabelIP, domain.PropAF, []domain.Rule{domain.RuleNotNull}},
		{domain.LabelDomainName, domain.PropName, []domain.Rule{domain.RuleUnique, domain.RuleNotNull}},
		{domain.LabelCountry, domain.PropCountryCode, []domain.Rule{domain.RuleUnique, domain.RuleNotNull}},
		{domain.LabelOrganization, domain.PropName, []domain.Rule{domain.RuleNotNull}},
	} {
		if err := r.Declare(d.label, d.property, d.rules...); err != nil {
			panic(err)
		}
	}
	return r
}

// Declare adds rules for (label, property). Repeated declarations merge.
// A label may have only one UNIQUE property.
func (r *ConstraintRegistry) Declare(label, property string, rules ...domain.Rule) error {
	if err := domain.ValidateIdentifier(domain.IdentLabel, label); err != nil {
		return err
	}
	if err := domain.ValidateIdentifier(domain.IdentProperty, property); err != nil {
		return err
	}
	for _, rule := range rules {
		if !rule.Valid() {
			return &domain.UnsupportedConstraintError{Label: label, Property: property, Reason: fmt.Sprintf("unknown rule %q", rule)}
		}
		if rule == domain.RuleUnique {
			if other, ok := r.uniqueProperty(label); ok && other != property {
				return &domain.UnsupportedConstraintError{
					Label:    label,
					Property: property,
					Reason:   fmt.Sprintf("label already unique on %s", other),
				}
			}
		}
	}

	if _, ok := r.rules[label]; !ok {
		r.labels = append(r.labels, label)
		r.rules[label] = make(map[string][]domain.Rule)
	}
	if _, ok := r.rules[label][property]; !ok {
		r.props[label] = append(r.props[label], property)
	}
	for _, rule := range rules {
		if !hasRule(r.rules[label][property], rule) {
			r.rules[label][property] = append(r.rules[label][property], rule)
		}
	}
	return nil
}

func (r *ConstraintRegistry) uniqueProperty(label string) (string, bool) {
	for _, prop := range r.props[label] {
		if hasRule(r.rules[label][prop], domain.RuleUnique) {
			return prop, true
		}
	}
	return "", false
}

func hasRule(rules []domain.Rule, rule domain.Rule) bool {
	for _, r := range rules {
		if r == rule {
			return true
		}
	}
	return false
}

// Constraints lists every (label, property, rule) triple in declaration order
func (r *ConstraintRegistry) Constraints() []domain.Constraint {
	var out []domain.Constraint
	for _, label := range r.labels {
		for _, prop := range r.props[label] {
			for _, rule := range r.rules[label][prop] {
				out = append(out, domain.Constraint{Label: label, Property: prop, Rule: rule})
			}
		}
	}
	return out
}

// Install issues one store command per constraint. Safe to repeat.
func (r *ConstraintRegistry) Install(ctx context.Context, store repository.Store) error {
	for _, c := range r.Constraints() {
		if err := store.InstallConstraint(ctx, c); err != nil {
			return fmt.Errorf("install constraint %s: %w", c.Name(), err)
		}
	}
	return nil
}

// LabelsWithConstraints returns the constrained labels in priority order
func (r *ConstraintRegistry) LabelsWithConstraints() []string {
	return append([]string(nil), r.labels...)
}

// KeyProperties returns every declared property of label, in declaration
// order
func (r *ConstraintRegistry) KeyProperties(label string) []string {
	return append([]string(nil), r.props[label]...)
}

// KeyLabel picks the highest-priority constrained label among labels
func (r *ConstraintRegistry) KeyLabel(labels []string) (string, bool) {
	for _, candidate := range r.labels {
		for _, l := range labels {
			if l == candidate {
				return candidate, true
			}
		}
	}
	return "", false
}
