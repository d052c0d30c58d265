// Package domain defines the core types of the Internet Yellow Pages graph.
//
// This package contains the values that flow between crawlers, the
// identity-resolution service and the graph stores. It has no database or
// network dependencies.
//
// # Values and Properties
//
// Value is a closed tagged scalar (Int, String, Float, Time). Properties maps
// property names to values. Two property maps are equal when they hold the
// same names with equal values; Fingerprint condenses that equality into a
// short hash that stores use to tell parallel links apart.
//
// # Nodes and Links
//
// Node is a store-assigned identity with a label set and properties. Link is
// a typed, directed relationship that always carries provenance: source,
// reference_url and point_in_time. Reference is the crawler-scoped bundle of
// those defaults.
//
// # Constraints
//
// Constraint declares a UNIQUE or NOT NULL rule for a (label, property)
// pair. Labels, relationship types and property names must be plain
// identifiers; see ValidateIdentifier.
package domain
