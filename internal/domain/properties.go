package domain

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// Properties maps property names to scalar values
type Properties map[string]Value

// PropertiesFrom converts a map of native Go scalars
func PropertiesFrom(m map[string]any) (Properties, error) {
	props := make(Properties, len(m))
	for name, raw := range m {
		v, err := FromAny(raw)
		if err != nil {
			return nil, fmt.Errorf("property %s: %w", name, err)
		}
		props[name] = v
	}
	return props, nil
}

// MustProperties is PropertiesFrom for literals; it panics on error
func MustProperties(m map[string]any) Properties {
	props, err := PropertiesFrom(m)
	if err != nil {
		panic(err)
	}
	return props
}

// Clone returns a shallow copy (values are immutable)
func (p Properties) Clone() Properties {
	out := make(Properties, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Merge returns a new map holding p overlaid by each of others in order;
// later maps win.
func (p Properties) Merge(others ...Properties) Properties {
	out := p.Clone()
	for _, o := range others {
		for k, v := range o {
			out[k] = v
		}
	}
	return out
}

// Restrict returns the subset of p named by names. Missing names are
// reported in the second return value.
func (p Properties) Restrict(names []string) (Properties, []string) {
	out := make(Properties, len(names))
	var missing []string
	for _, name := range names {
		v, ok := p[name]
		if !ok || !v.IsValid() {
			missing = append(missing, name)
			continue
		}
		out[name] = v
	}
	return out, missing
}

// Has reports whether name is set to a valid value
func (p Properties) Has(name string) bool {
	v, ok := p[name]
	return ok && v.IsValid()
}

// Names returns the property names in sorted order
func (p Properties) Names() []string {
	names := make([]string, 0, len(p))
	for k := range p {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Equal reports whether both maps hold the same names and values
func (p Properties) Equal(o Properties) bool {
	if len(p) != len(o) {
		return false
	}
	for k, v := range p {
		if ov, ok := o[k]; !ok || ov != v {
			return false
		}
	}
	return true
}

// Canonical returns a deterministic encoding of the map: names sorted,
// values type-tagged, each field length-prefixed.
func (p Properties) Canonical() string {
	var b strings.Builder
	for _, name := range p.Names() {
		key := p[name].Key()
		b.WriteString(strconv.Itoa(len(name)))
		b.WriteByte(':')
		b.WriteString(name)
		b.WriteString(strconv.Itoa(len(key)))
		b.WriteByte(':')
		b.WriteString(key)
	}
	return b.String()
}

// Fingerprint hashes the canonical encoding. Equal maps always share a
// fingerprint; it is what stores use for full-map equality on edges.
func (p Properties) Fingerprint() string {
	return fmt.Sprintf("%016x", xxhash.Sum64String(p.Canonical()))
}

// Encode serializes p to JSON using canonical value keys
func (p Properties) Encode() (string, error) {
	enc := make(map[string]string, len(p))
	for k, v := range p {
		enc[k] = v.Key()
	}
	data, err := json.Marshal(enc)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// DecodeProperties parses the output of Encode
func DecodeProperties(data string) (Properties, error) {
	if data == "" {
		return Properties{}, nil
	}
	var enc map[string]string
	if err := json.Unmarshal([]byte(data), &enc); err != nil {
		return nil, fmt.Errorf("unmarshal properties: %w", err)
	}
	props := make(Properties, len(enc))
	for k, key := range enc {
		v, err := ParseKey(key)
		if err != nil {
			return nil, fmt.Errorf("property %s: %w", k, err)
		}
		props[k] = v
	}
	return props, nil
}

// Native returns p as a map of native Go scalars, for drivers that take
// parameter maps.
func (p Properties) Native() map[string]any {
	out := make(map[string]any, len(p))
	for k, v := range p {
		out[k] = v.Interface()
	}
	return out
}
