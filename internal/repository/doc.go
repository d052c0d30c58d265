// Package repository defines the graph store abstraction used by the
// identity-resolution service.
//
// A Store offers a small set of atomic primitives: get-or-create a node by
// (key label, key properties), match-or-create an edge by its full property
// map, constraint installation, and bulk forms of each. Everything above
// that (normalization, provenance checks, key selection) lives in the
// service package.
//
// # Implementations
//
// The sqlstore subpackage implements Store on database/sql for SQLite and
// Postgres. The neo4jstore subpackage implements it with parameterized Cypher.
// The backend subpackage opens one of them from configuration.
//
// # Testing
//
// sqlstore is tested against in-memory SQLite databases. The neo4jstore
// implementation is tested at the query-builder level.
package repository
