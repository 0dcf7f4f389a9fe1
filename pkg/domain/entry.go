package domain

// Entry is one data layer push: a flat or nested key-value mapping.
type Entry map[string]any

// Clone returns a deep copy so that callers cannot mutate stored entries.
func (e Entry) Clone() Entry {
	return cloneMap(e)
}

func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneAny(v)
	}
	return out
}

func cloneAny(v any) any {
	switch x := v.(type) {
	case map[string]any:
		return cloneMap(x)
	case Entry:
		return Entry(cloneMap(x))
	case []any:
		out := make([]any, len(x))
		for i, item := range x {
			out[i] = cloneAny(item)
		}
		return out
	}
	return v
}
