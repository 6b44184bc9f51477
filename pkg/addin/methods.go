package addin

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrUnknownMethod is returned by Call for a name no method answers to.
var ErrUnknownMethod = errors.New("unknown method")

// Method describes one host-callable method.
type Method struct {
	Name      string
	Localized string
	Params    int
	// HasResult is false for methods whose only result is success.
	HasResult bool

	call func(args []any) (any, error)
}

// Matches reports whether name refers to this method.
func (m Method) Matches(name string) bool {
	return strings.EqualFold(name, m.Name) || strings.EqualFold(name, m.Localized)
}

// Property names shared by every class.
const (
	PropLastError          = "LastError"
	PropLastErrorLocalized = "ОписаниеОшибки"
)

// dispatch finds name in methods, checks the argument count and runs it.
// The outcome is recorded on b.
func (b *base) dispatch(methods []Method, name string, args []any) (any, bool) {
	for _, m := range methods {
		if !m.Matches(name) {
			continue
		}
		if len(args) != m.Params {
			return nil, b.record(m.Name, fmt.Errorf("%s: want %d arguments, got %d", m.Name, m.Params, len(args)))
		}
		result, err := m.call(args)
		if !b.record(m.Name, err) {
			return nil, false
		}
		if !m.HasResult {
			return true, true
		}
		return result, true
	}
	return nil, b.record(name, fmt.Errorf("%w: %s", ErrUnknownMethod, name))
}

// Property reads the last-error property.
func (b *base) Property(name string) (any, bool) {
	if strings.EqualFold(name, PropLastError) || strings.EqualFold(name, PropLastErrorLocalized) {
		return b.LastError(), true
	}
	return nil, false
}

// argString converts args[i] to a string.
func argString(args []any, i int) (string, error) {
	switch v := args[i].(type) {
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	case fmt.Stringer:
		return v.String(), nil
	case nil:
		return "", nil
	default:
		return "", fmt.Errorf("argument %d: want string, got %T", i+1, args[i])
	}
}

// argInt converts args[i] to an int. Whole floats and numeric strings are
// accepted since hosts often pass numbers that way.
func argInt(args []any, i int) (int, error) {
	switch v := args[i].(type) {
	case int:
		return v, nil
	case int32:
		return int(v), nil
	case int64:
		return int(v), nil
	case uint16:
		return int(v), nil
	case float64:
		if v != math.Trunc(v) || math.IsInf(v, 0) {
			return 0, fmt.Errorf("argument %d: %v is not an integer", i+1, v)
		}
		return int(v), nil
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, fmt.Errorf("argument %d: %q is not an integer", i+1, v)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("argument %d: want integer, got %T", i+1, args[i])
	}
}
