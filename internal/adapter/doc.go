// Package adapter runs crawlers: small programs that fetch one published
// Internet dataset and write it into the graph through a service.Session.
//
// Each crawler embeds Base, which supplies the provenance bundle cited on
// every link and an HTTP client. Concrete crawlers live in subpackages
// (ripe, worldbank, fileimport) and are collected in a Registry, which
// opens a fresh session per run, tallies its events, and can poll enabled
// crawlers on their configured intervals.
package adapter
