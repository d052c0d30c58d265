package domain

import "strings"

// Rule is a constraint kind
type Rule string

const (
	RuleUnique  Rule = "UNIQUE"
	RuleNotNull Rule = "NOT NULL"
)

// Valid reports whether r is a known rule
func (r Rule) Valid() bool {
	return r == RuleUnique || r == RuleNotNull
}

// Compact returns the rule without spaces, for constraint names
func (r Rule) Compact() string {
	return strings.ReplaceAll(string(r), " ", "")
}

// Constraint is one (label, property, rule) triple
type Constraint struct {
	Label    string
	Property string
	Rule     Rule
}

// Name returns the store-side constraint name, e.g. AS_UNIQUE_asn
func (c Constraint) Name() string {
	return c.Label + "_" + c.Rule.Compact() + "_" + c.Property
}
