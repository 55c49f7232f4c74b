package transport

import (
	"bytes"
	"encoding/json"
)

// Normalize turns body into a generic JSON tree by encoding it and decoding
// the result with numbers kept as json.Number. Typed values, including typed
// nil pointers and maps of any element type, come out as plain nil,
// map[string]any and []any, so StripNulls sees every null. A nil body
// yields nil.
func Normalize(body any) (map[string]any, error) {
	if body == nil {
		return nil, nil
	}
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var out map[string]any
	if err := dec.Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}

// StripNulls returns a copy of body without null-valued fields at any depth.
//
// Nested objects left empty after stripping are dropped as well, so
// {"a": {"b": null}} becomes {}. Arrays keep every element, including nulls;
// object elements inside arrays have their own null fields stripped but are
// never removed. The input is not modified and StripNulls(StripNulls(x))
// equals StripNulls(x).
func StripNulls(body map[string]any) map[string]any {
	if body == nil {
		return nil
	}
	out := make(map[string]any, len(body))
	for k, v := range body {
		switch val := v.(type) {
		case nil:
		case map[string]any:
			nested := StripNulls(val)
			if len(nested) > 0 {
				out[k] = nested
			}
		case []any:
			out[k] = stripArray(val)
		default:
			out[k] = v
		}
	}
	return out
}

func stripArray(items []any) []any {
	out := make([]any, len(items))
	for i, item := range items {
		switch val := item.(type) {
		case map[string]any:
			out[i] = StripNulls(val)
		case []any:
			out[i] = stripArray(val)
		default:
			out[i] = item
		}
	}
	return out
}
