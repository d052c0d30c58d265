// Package service resolves entity identities and writes provenance-linked
// relationships on top of a repository.Store.
//
// A Session is the unit of work: it installs the declared constraints on
// open, normalizes every property value on the way in, and refuses any
// link that lacks source, reference URL and fetch time. Nodes are matched
// on the key properties of their highest-priority constrained label, so
// repeated resolution of the same entity from different crawlers yields
// one node.
//
// Sessions publish Events on an optional EventBus; Stats tallies them per
// crawler run.
package service
