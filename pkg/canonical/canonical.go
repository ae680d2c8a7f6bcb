// Package canonical produces the stable byte form of scenario payloads:
// object keys sorted, numbers normalized through float64, null values and
// empty containers pruned. Two semantically identical documents always
// canonicalize to identical bytes, which makes the content hash usable for
// deduplication and content-addressed export.
package canonical

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Normalize converts any JSON-serializable value into a generic document
// tree (map[string]any at the root). Numbers pass through float64 so "1.0"
// and "1" normalize identically.
func Normalize(v any) (map[string]any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("normalize: %w", err)
	}
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("normalize: document root must be an object: %w", err)
	}
	return doc, nil
}

// MarshalDoc renders a generic document as canonical bytes. encoding/json
// already emits object keys in sorted order and shortest round-trip floats.
func MarshalDoc(doc map[string]any) ([]byte, error) {
	pruned, _ := prune(doc)
	if pruned == nil {
		pruned = map[string]any{}
	}
	out, err := json.Marshal(pruned)
	if err != nil {
		return nil, fmt.Errorf("marshal canonical: %w", err)
	}
	return out, nil
}

// Marshal canonicalizes any JSON-serializable value in one step
func Marshal(v any) ([]byte, error) {
	doc, err := Normalize(v)
	if err != nil {
		return nil, err
	}
	return MarshalDoc(doc)
}

// Hash returns the hex SHA-256 digest of canonical bytes
func Hash(canonical []byte) string {
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:])
}

// HashOf canonicalizes a value and hashes the result
func HashOf(v any) (string, error) {
	b, err := Marshal(v)
	if err != nil {
		return "", err
	}
	return Hash(b), nil
}

// prune drops nulls, empty objects and empty arrays recursively. The second
// return is false when the value pruned away entirely.
func prune(v any) (any, bool) {
	switch t := v.(type) {
	case nil:
		return nil, false
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			if p, ok := prune(val); ok {
				out[k] = p
			}
		}
		if len(out) == 0 {
			return nil, false
		}
		return out, true
	case []any:
		out := make([]any, 0, len(t))
		for _, val := range t {
			p, ok := prune(val)
			if !ok {
				// Preserve explicit nulls inside arrays: dropping them
				// would shift element positions.
				p = nil
			}
			out = append(out, p)
		}
		if len(out) == 0 {
			return nil, false
		}
		return out, true
	default:
		return v, true
	}
}
