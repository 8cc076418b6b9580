package review

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

// Truthy reports whether a decoded flag value counts as set.
// Missing, false, zero, empty and "false" values are all falsy.
func Truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		s := strings.TrimSpace(strings.ToLower(t))
		return s != "" && s != "false" && s != "0"
	case json.Number:
		f, err := t.Float64()
		return err == nil && f != 0
	case float64:
		return t != 0
	case int:
		return t != 0
	default:
		return true
	}
}

// ParseCount parses a helpfulness count such as "1,234" or 12.
func ParseCount(v any) (int, error) {
	switch t := v.(type) {
	case nil:
		return 0, nil
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(strings.ReplaceAll(t, ",", "")))
		if err != nil {
			return 0, eris.Wrapf(err, "review: parse count %q", t)
		}
		return n, nil
	case json.Number:
		n, err := strconv.Atoi(strings.ReplaceAll(t.String(), ",", ""))
		if err != nil {
			return 0, eris.Wrapf(err, "review: parse count %q", t.String())
		}
		return n, nil
	case float64:
		return int(t), nil
	case int:
		return t, nil
	default:
		return 0, eris.Errorf("review: unsupported count type %T", v)
	}
}
