package dispatcher

import (
	"encoding/json"

	"github.com/aretw0/tagbridge/pkg/domain"
	"github.com/mitchellh/mapstructure"
)

func argAt(args []any, i int) (any, bool) {
	if i >= len(args) || args[i] == nil {
		return nil, false
	}
	return args[i], true
}

// argString returns a required, non-empty string argument.
func argString(args []any, i int, name string) (string, error) {
	raw, ok := argAt(args, i)
	if !ok {
		return "", domain.InvalidArgument("missing argument %q", name)
	}
	s, ok := raw.(string)
	if !ok {
		return "", domain.InvalidArgument("argument %q must be a string, got %T", name, raw)
	}
	if s == "" {
		return "", domain.InvalidArgument("argument %q must not be empty", name)
	}
	return s, nil
}

// optString returns an optional string argument, "" when absent.
func optString(args []any, i int, name string) (string, error) {
	raw, ok := argAt(args, i)
	if !ok {
		return "", nil
	}
	s, ok := raw.(string)
	if !ok {
		return "", domain.InvalidArgument("argument %q must be a string, got %T", name, raw)
	}
	return s, nil
}

// argInt returns a required integral argument.
func argInt(args []any, i int, name string) (int64, error) {
	raw, ok := argAt(args, i)
	if !ok {
		return 0, domain.InvalidArgument("missing argument %q", name)
	}
	return toInt(raw, name)
}

// optInt returns an optional integral argument, 0 when absent.
func optInt(args []any, i int, name string) (int64, error) {
	raw, ok := argAt(args, i)
	if !ok {
		return 0, nil
	}
	return toInt(raw, name)
}

func toInt(raw any, name string) (int64, error) {
	switch raw.(type) {
	case string, bool:
		return 0, domain.InvalidArgument("argument %q must be an integer, got %T", name, raw)
	}
	v, err := domain.ValueFrom(raw)
	if err != nil || v.Type != domain.TypeInteger {
		return 0, domain.InvalidArgument("argument %q must be an integer, got %v", name, raw)
	}
	return v.Int, nil
}

// optBool treats a missing argument as false and numbers as truthy when non-zero.
func optBool(args []any, i int, name string) (bool, error) {
	raw, ok := argAt(args, i)
	if !ok {
		return false, nil
	}
	if b, ok := raw.(bool); ok {
		return b, nil
	}
	n, err := toInt(raw, name)
	if err != nil {
		return false, domain.InvalidArgument("argument %q must be a boolean, got %T", name, raw)
	}
	return n != 0, nil
}

// argEntry decodes a data layer entry. Maps and structs (through their
// mapstructure tags) are accepted.
func argEntry(args []any, i int) (domain.Entry, error) {
	raw, ok := argAt(args, i)
	if !ok {
		return nil, domain.InvalidArgument("missing data layer entry")
	}
	var entry map[string]any
	if err := mapstructure.Decode(raw, &entry); err != nil {
		return nil, domain.InvalidArgument("data layer entry must be a mapping: %v", err)
	}
	if len(entry) == 0 {
		return nil, domain.InvalidArgument("data layer entry must be a non-empty mapping")
	}
	return domain.Entry(entry), nil
}

// argHit decodes a hit payload. Scalar values are stringified; nested values
// are rejected.
func argHit(args []any, i int) (domain.Hit, error) {
	raw, ok := argAt(args, i)
	if !ok {
		return nil, domain.InvalidArgument("missing hit payload")
	}
	if m, ok := raw.(map[string]any); ok {
		raw = normalizeNumbers(m)
	}
	var hit map[string]string
	if err := mapstructure.WeakDecode(raw, &hit); err != nil {
		return nil, domain.InvalidArgument("hit payload must be a flat mapping: %v", err)
	}
	if len(hit) == 0 {
		return nil, domain.InvalidArgument("hit payload must not be empty")
	}
	return domain.Hit(hit), nil
}

// normalizeNumbers turns json.Number values into strings so that weak
// decoding keeps their original spelling.
func normalizeNumbers(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		if n, ok := v.(json.Number); ok {
			out[k] = n.String()
			continue
		}
		out[k] = v
	}
	return out
}
