package codec

import (
	"encoding/json"
	"fmt"
	"io"
)

// JSONCodec reads JSON graph documents
type JSONCodec struct{}

// NewJSONCodec creates a new JSON codec
func NewJSONCodec() *JSONCodec {
	return &JSONCodec{}
}

// Format returns the codec format identifier
func (c *JSONCodec) Format() string {
	return "json"
}

// Parse reads a graph document from JSON. Numbers keep their integer or
// float form.
func (c *JSONCodec) Parse(r io.Reader) (*Document, error) {
	var raw rawDocument
	decoder := json.NewDecoder(r)
	decoder.UseNumber()
	if err := decoder.Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}

	return raw.decode()
}
