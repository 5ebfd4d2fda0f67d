package prevair

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"strings"
)

var (
	errMissingField = errors.New("missing field")
	errNotScalar    = errors.New("not a string or number")
)

// Row is one positional record of a PREV'AIR response. Fields arrive as JSON
// strings or JSON numbers depending on the endpoint.
type Row []json.RawMessage

// Len returns the number of fields in the row.
func (r Row) Len() int {
	return len(r)
}

// String returns field i as text. Numbers are returned as written upstream.
func (r Row) String(i int) (string, error) {
	raw, err := r.field(i)
	if err != nil {
		return "", err
	}

	switch {
	case raw[0] == '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", &ParseError{Field: i, Err: err}
		}
		return s, nil
	case bytes.Equal(raw, []byte("null")):
		return "", nil
	case raw[0] == '-' || (raw[0] >= '0' && raw[0] <= '9'):
		return string(raw), nil
	default:
		return "", &ParseError{Field: i, Err: errNotScalar}
	}
}

// Float returns field i as a number. Decimal commas are accepted in strings.
func (r Row) Float(i int) (float64, error) {
	s, err := r.String(i)
	if err != nil {
		return 0, err
	}

	f, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(s), ",", "."), 64)
	if err != nil {
		return 0, &ParseError{Field: i, Err: err}
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, &ParseError{Field: i, Err: errNotScalar}
	}
	return f, nil
}

// Int returns field i as an integer, truncating any fractional part.
func (r Row) Int(i int) (int, error) {
	f, err := r.Float(i)
	if err != nil {
		return 0, err
	}
	return int(f), nil
}

func (r Row) field(i int) (json.RawMessage, error) {
	if i < 0 || i >= len(r) {
		return nil, &ParseError{Field: i, Err: errMissingField}
	}
	raw := bytes.TrimSpace(r[i])
	if len(raw) == 0 {
		return nil, &ParseError{Field: i, Err: errMissingField}
	}
	return raw, nil
}
