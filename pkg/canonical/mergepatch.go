package canonical

// MergePatch applies an RFC 7396 JSON merge patch to a generic document
// tree and returns the merged result. Neither input is mutated.
//
// Semantics: a null patch value removes the key; object patch values merge
// recursively into object targets; any other patch value (arrays included)
// replaces the target value wholesale.
func MergePatch(target, patch any) any {
	patchMap, ok := patch.(map[string]any)
	if !ok {
		return clone(patch)
	}
	result := make(map[string]any)
	if targetMap, ok := target.(map[string]any); ok {
		for k, v := range targetMap {
			result[k] = clone(v)
		}
	}
	for k, pv := range patchMap {
		if pv == nil {
			delete(result, k)
			continue
		}
		result[k] = MergePatch(result[k], pv)
	}
	return result
}

func clone(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = clone(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = clone(val)
		}
		return out
	default:
		return v
	}
}
