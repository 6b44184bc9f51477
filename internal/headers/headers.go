// Package headers parses the JSON header objects host calls pass in.
package headers

import (
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/alkoleft/web-transport-addin/pkg/types"
)

// Parse decodes a JSON object into a header map. An empty (or all-space)
// payload yields an empty map. Strings are taken verbatim, numbers and
// booleans use their JSON text, and null, arrays and objects become "".
func Parse(payload string) (map[string]string, error) {
	out := make(map[string]string)
	if strings.TrimSpace(payload) == "" {
		return out, nil
	}

	if !gjson.Valid(payload) {
		return nil, fmt.Errorf("%w: malformed JSON", types.ErrInvalidHeadersPayload)
	}
	root := gjson.Parse(payload)
	if !root.IsObject() {
		return nil, fmt.Errorf("%w: got %s", types.ErrInvalidHeadersPayload, root.Type)
	}

	root.ForEach(func(key, value gjson.Result) bool {
		out[key.String()] = stringify(value)
		return true
	})
	return out, nil
}

func stringify(v gjson.Result) string {
	switch v.Type {
	case gjson.String:
		return v.Str
	case gjson.Number, gjson.True, gjson.False:
		return v.Raw
	default:
		return ""
	}
}
