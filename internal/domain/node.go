package domain

import (
	"sort"
	"strconv"
)

// NodeID is the opaque identity a store assigns to a node
type NodeID int64

// String formats the id for logs
func (id NodeID) String() string {
	return strconv.FormatInt(int64(id), 10)
}

// Node is a labeled entity in the graph
type Node struct {
	ID         NodeID     `json:"id"`
	Labels     []string   `json:"labels"`
	Properties Properties `json:"properties,omitempty"`
}

// HasLabel reports whether the node carries label
func (n *Node) HasLabel(label string) bool {
	for _, l := range n.Labels {
		if l == label {
			return true
		}
	}
	return false
}

// GetProperty gets a property value
func (n *Node) GetProperty(key string) (Value, bool) {
	if n.Properties == nil {
		return Value{}, false
	}
	val, ok := n.Properties[key]
	return val, ok
}

// NormalizeLabels returns labels deduplicated and sorted
func NormalizeLabels(labels []string) []string {
	seen := make(map[string]struct{}, len(labels))
	out := make([]string, 0, len(labels))
	for _, l := range labels {
		if _, ok := seen[l]; ok {
			continue
		}
		seen[l] = struct{}{}
		out = append(out, l)
	}
	sort.Strings(out)
	return out
}
