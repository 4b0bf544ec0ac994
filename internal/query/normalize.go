package query

import "fmt"

// Normalize converts a decoded document into the value space gojq
// accepts (nil, bool, int, float64, string, []any, map[string]any).
// YAML and JSON decoders in this codebase produce int64 integers and
// occasionally non-string map keys; gojq rejects both.
func Normalize(v any) any {
	switch t := v.(type) {
	case nil, bool, int, float64, string:
		return t
	case int8:
		return int(t)
	case int16:
		return int(t)
	case int32:
		return int(t)
	case int64:
		return int(t)
	case uint:
		return int(t)
	case uint8:
		return int(t)
	case uint16:
		return int(t)
	case uint32:
		return int(t)
	case uint64:
		return int(t)
	case float32:
		return float64(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = Normalize(e)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = Normalize(e)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[fmt.Sprint(k)] = Normalize(e)
		}
		return out
	default:
		// Unknown scalar types are stringified rather than rejected so a
		// surprising decoder output degrades to something inspectable.
		return fmt.Sprint(t)
	}
}
