package domain

import "regexp"

var identifierRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Identifier kinds reported in InvalidIdentifierError
const (
	IdentLabel    = "label"
	IdentType     = "relationship type"
	IdentProperty = "property"
)

// ValidateIdentifier checks a label, relationship type or property name.
// Backends rely on this before placing names in query text.
func ValidateIdentifier(kind, name string) error {
	if !identifierRe.MatchString(name) {
		return &InvalidIdentifierError{Kind: kind, Name: name}
	}
	return nil
}

// ValidateLabels checks a non-empty label set
func ValidateLabels(labels []string) error {
	if len(labels) == 0 {
		return &InvalidIdentifierError{Kind: IdentLabel, Name: ""}
	}
	for _, l := range labels {
		if err := ValidateIdentifier(IdentLabel, l); err != nil {
			return err
		}
	}
	return nil
}

// ValidatePropertyNames checks every name in props
func ValidatePropertyNames(props Properties) error {
	for name := range props {
		if err := ValidateIdentifier(IdentProperty, name); err != nil {
			return err
		}
	}
	return nil
}
