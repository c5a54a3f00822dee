package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ID is an opaque record identifier. Upstream stores hand out both numeric
// and string ids, so the canonical form is the trimmed decimal/string text.
type ID string

// String returns the canonical text of the id.
func (id ID) String() string { return string(id) }

// IsZero reports whether the id is empty.
func (id ID) IsZero() bool { return strings.TrimSpace(string(id)) == "" }

// Normalize returns the canonical form of id.
func (id ID) Normalize() ID {
	n, _ := NormalizeID(string(id))
	return n
}

// UnmarshalJSON accepts JSON strings and JSON numbers. Booleans, objects
// and arrays are rejected.
func (id *ID) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return err
	}
	switch x := v.(type) {
	case nil:
		*id = ""
		return nil
	case string:
		*id = ID(strings.TrimSpace(x))
		return nil
	case json.Number:
		n, ok := NormalizeID(x)
		if !ok {
			return fmt.Errorf("models: invalid id %s", data)
		}
		*id = n
		return nil
	default:
		return fmt.Errorf("models: id must be a string or number, got %s", bytes.TrimSpace(data))
	}
}

// NormalizeID coerces v into a canonical ID. Strings are trimmed, integers
// and integral floats are rendered in base 10. It reports false when v holds
// nothing usable as an identifier.
func NormalizeID(v any) (ID, bool) {
	switch x := v.(type) {
	case nil:
		return "", false
	case ID:
		return normalizeString(string(x))
	case string:
		return normalizeString(x)
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return ID(strconv.FormatInt(i, 10)), true
		}
		if f, err := x.Float64(); err == nil {
			return normalizeFloat(f)
		}
		return normalizeString(x.String())
	case int:
		return ID(strconv.Itoa(x)), true
	case int32:
		return ID(strconv.FormatInt(int64(x), 10)), true
	case int64:
		return ID(strconv.FormatInt(x, 10)), true
	case uint:
		return ID(strconv.FormatUint(uint64(x), 10)), true
	case uint32:
		return ID(strconv.FormatUint(uint64(x), 10)), true
	case uint64:
		return ID(strconv.FormatUint(x, 10)), true
	case float32:
		return normalizeFloat(float64(x))
	case float64:
		return normalizeFloat(x)
	case fmt.Stringer:
		return normalizeString(x.String())
	default:
		return "", false
	}
}

func normalizeString(s string) (ID, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	// "42.0" and "42" name the same numeric id.
	if f, err := strconv.ParseFloat(s, 64); err == nil && strings.Contains(s, ".") {
		if id, ok := normalizeFloat(f); ok && !strings.Contains(string(id), ".") {
			return id, true
		}
	}
	return ID(s), true
}

func normalizeFloat(f float64) (ID, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "", false
	}
	if f == math.Trunc(f) && math.Abs(f) < 1<<53 {
		return ID(strconv.FormatInt(int64(f), 10)), true
	}
	return ID(strconv.FormatFloat(f, 'f', -1, 64)), true
}

// IDSet is a set of normalized identifiers.
type IDSet map[ID]struct{}

// NewIDSet returns a set containing the normalized form of every id.
func NewIDSet(ids ...ID) IDSet {
	s := make(IDSet, len(ids))
	for _, id := range ids {
		s.Add(id)
	}
	return s
}

// Add inserts the normalized form of id. Empty ids are ignored.
func (s IDSet) Add(id ID) {
	if n, ok := NormalizeID(string(id)); ok {
		s[n] = struct{}{}
	}
}

// Has reports whether the normalized form of id is in the set.
func (s IDSet) Has(id ID) bool {
	n, ok := NormalizeID(string(id))
	if !ok {
		return false
	}
	_, found := s[n]
	return found
}

// Len returns the number of ids in the set.
func (s IDSet) Len() int { return len(s) }
