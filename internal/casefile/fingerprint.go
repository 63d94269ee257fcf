package casefile

import (
	"encoding/json"
	"fmt"

	"github.com/zeebo/blake3"

	"github.com/felixgeelhaar/verdict/internal/engine"
)

// Canonicalize returns a stable JSON form of the fields that affect execution.
// The id is excluded so renaming a case keeps its fingerprint.
func Canonicalize(d engine.Descriptor) ([]byte, error) {
	// encoding/json sorts map keys
	return json.Marshal(map[string]string{
		"title":           d.Title,
		"description":     d.Description,
		"steps":           d.Steps,
		"expected_result": d.ExpectedResult,
		"priority":        string(d.Priority),
	})
}

// Fingerprint is the hex blake3 hash of the canonical descriptor.
func Fingerprint(d engine.Descriptor) (string, error) {
	canonical, err := Canonicalize(d)
	if err != nil {
		return "", fmt.Errorf("canonicalize case: %w", err)
	}

	sum := blake3.Sum256(canonical)
	return fmt.Sprintf("%x", sum[:]), nil
}
