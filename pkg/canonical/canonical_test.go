package canonical

import (
	"encoding/json"
	"testing"
)

func TestMarshal_KeyOrderIndependent(t *testing.T) {
	a := []byte(`{"b": 2, "a": {"y": [1, 2], "x": 1.0}}`)
	b := []byte(`{"a": {"x": 1, "y": [1, 2]}, "b": 2}`)

	var docA, docB map[string]any
	if err := json.Unmarshal(a, &docA); err != nil {
		t.Fatalf("unmarshal a: %v", err)
	}
	if err := json.Unmarshal(b, &docB); err != nil {
		t.Fatalf("unmarshal b: %v", err)
	}

	canonA, err := MarshalDoc(docA)
	if err != nil {
		t.Fatalf("MarshalDoc a: %v", err)
	}
	canonB, err := MarshalDoc(docB)
	if err != nil {
		t.Fatalf("MarshalDoc b: %v", err)
	}

	if string(canonA) != string(canonB) {
		t.Errorf("canonical bytes differ:\n%s\n%s", canonA, canonB)
	}
	if Hash(canonA) != Hash(canonB) {
		t.Errorf("hashes differ for semantically identical documents")
	}
}

func TestMarshal_NumericNormalization(t *testing.T) {
	var docA, docB map[string]any
	if err := json.Unmarshal([]byte(`{"qty": 1.0}`), &docA); err != nil {
		t.Fatal(err)
	}
	if err := json.Unmarshal([]byte(`{"qty": 1}`), &docB); err != nil {
		t.Fatal(err)
	}

	hashA, _ := HashOf(docA)
	hashB, _ := HashOf(docB)
	if hashA != hashB {
		t.Errorf("1.0 and 1 should hash identically, got %s vs %s", hashA, hashB)
	}
}

func TestMarshal_PrunesEmptyContainers(t *testing.T) {
	doc := map[string]any{
		"keep":   1.0,
		"null":   nil,
		"obj":    map[string]any{},
		"arr":    []any{},
		"nested": map[string]any{"inner": map[string]any{}},
	}
	out, err := MarshalDoc(doc)
	if err != nil {
		t.Fatalf("MarshalDoc: %v", err)
	}
	if string(out) != `{"keep":1}` {
		t.Errorf("expected pruned document, got %s", out)
	}
}

func TestMarshal_Idempotent(t *testing.T) {
	doc := map[string]any{"a": []any{1.0, map[string]any{"b": "x"}}, "c": "y"}
	first, err := MarshalDoc(doc)
	if err != nil {
		t.Fatalf("first canonicalization: %v", err)
	}

	var reparsed map[string]any
	if err := json.Unmarshal(first, &reparsed); err != nil {
		t.Fatalf("reparse: %v", err)
	}
	second, err := MarshalDoc(reparsed)
	if err != nil {
		t.Fatalf("second canonicalization: %v", err)
	}

	if string(first) != string(second) {
		t.Errorf("canonicalization not idempotent:\n%s\n%s", first, second)
	}
}

func TestHash_Stability(t *testing.T) {
	doc := map[string]any{"x": 1.5, "y": "z"}
	h1, err := HashOf(doc)
	if err != nil {
		t.Fatal(err)
	}
	h2, err := HashOf(doc)
	if err != nil {
		t.Fatal(err)
	}
	if h1 != h2 {
		t.Errorf("hash not stable: %s vs %s", h1, h2)
	}
	if len(h1) != 64 {
		t.Errorf("expected hex sha256, got %q", h1)
	}
}
