package core

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

// MaxUpdateBytes bounds a single pushed update body.
const MaxUpdateBytes = 1 << 20

// ParseUpdate decodes one update object. Numbers are kept as json.Number so
// 64-bit identifiers survive decoding.
func ParseUpdate(data []byte) (RawUpdate, error) {
	if len(data) > MaxUpdateBytes {
		return nil, fmt.Errorf("update exceeds %d byte limit", MaxUpdateBytes)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("empty update body")
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw RawUpdate
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	if raw == nil {
		return nil, fmt.Errorf("update must be a JSON object")
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return nil, fmt.Errorf("trailing data after update object")
	}
	return raw, nil
}

// ParseUpdates decodes the result array of getUpdates.
func ParseUpdates(data json.RawMessage) ([]RawUpdate, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var updates []RawUpdate
	if err := dec.Decode(&updates); err != nil {
		return nil, fmt.Errorf("decode updates: %w", err)
	}
	return updates, nil
}
