package tool

import (
	"encoding/json"

	"github.com/m-mizutani/goerr/v2"
)

// ErrMalformedArguments is returned when a raw argument payload cannot be
// normalized into a mapping.
var ErrMalformedArguments = goerr.New("malformed tool arguments")

// NormalizeArguments turns a raw argument payload into a mapping. Providers
// hand arguments over as a mapping, as serialized JSON, or occasionally as a
// single-element array wrapping one mapping; the last form is flattened
// rather than rejected. Anything else is malformed.
func NormalizeArguments(raw any) (map[string]any, error) {
	switch v := raw.(type) {
	case nil:
		return map[string]any{}, nil

	case map[string]any:
		return v, nil

	case []any:
		if len(v) == 1 {
			if m, ok := v[0].(map[string]any); ok {
				return m, nil
			}
		}
		return nil, goerr.Wrap(ErrMalformedArguments, "array payload is not a single mapping",
			goerr.V("length", len(v)))

	case json.RawMessage:
		return normalizeJSON([]byte(v))

	case []byte:
		return normalizeJSON(v)

	case string:
		return normalizeJSON([]byte(v))

	default:
		return nil, goerr.Wrap(ErrMalformedArguments, "unsupported payload type")
	}
}

func normalizeJSON(raw []byte) (map[string]any, error) {
	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, goerr.Wrap(ErrMalformedArguments, "payload is not valid JSON",
			goerr.V("payload", string(raw)))
	}

	switch decoded.(type) {
	case map[string]any, []any:
		return NormalizeArguments(decoded)
	default:
		return nil, goerr.Wrap(ErrMalformedArguments, "payload is not a mapping",
			goerr.V("payload", string(raw)))
	}
}
