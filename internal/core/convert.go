package core

// convert.go coerces string-keyed form values into typed fields.
//
// Every form value arrives as a string. Optional fields map empty input to
// nil (or to the field's documented default); malformed non-empty input is an
// error so callers can return a validation message naming the field.

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// numericRegex validates that a string is a valid numeric format after cleanup.
var numericRegex = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

// foundedAtLayouts are tried in order; date inputs send the first, API
// clients usually send RFC 3339.
var foundedAtLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02T15:04",
}

var errInvalidNumber = errors.New("invalid number")

// FormValue returns the trimmed value of key.
func FormValue(form url.Values, key string) string {
	return strings.TrimSpace(form.Get(key))
}

// optionalString returns nil for an empty form value.
func optionalString(form url.Values, key string) *string {
	v := FormValue(form, key)
	if v == "" {
		return nil
	}
	return &v
}

// ParseTags splits a comma-separated tag list, trimming whitespace and
// dropping empty entries. Repeated tags are kept once, first occurrence wins.
func ParseTags(raw string) []string {
	parts := strings.Split(raw, ",")
	tags := make([]string, 0, len(parts))
	seen := make(map[string]bool, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		tags = append(tags, p)
	}
	return tags
}

// ParseOptionalFloat parses a float, returning nil for empty input.
func ParseOptionalFloat(raw string) (*float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", errInvalidNumber, raw)
	}
	return &f, nil
}

// ParseFloatOrZero parses a float, returning 0 for empty input.
func ParseFloatOrZero(raw string) (float64, error) {
	f, err := ParseOptionalFloat(raw)
	if err != nil || f == nil {
		return 0, err
	}
	return *f, nil
}

// ParseFoundedAt parses an ISO date or timestamp, returning nil for empty input.
func ParseFoundedAt(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	for _, layout := range foundedAtLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, fmt.Errorf("invalid date: %q", raw)
}

// ParseOptionalUUID parses a UUID, returning nil for empty input.
func ParseOptionalUUID(raw string) (*uuid.UUID, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid uuid %q: %w", raw, err)
	}
	return &id, nil
}

// ParseUUIDList parses a comma-separated id list. Invalid ids are dropped:
// a filter on an id that cannot exist matches nothing anyway.
func ParseUUIDList(raw string) []uuid.UUID {
	var ids []uuid.UUID
	for _, p := range strings.Split(raw, ",") {
		if id, err := uuid.Parse(strings.TrimSpace(p)); err == nil {
			ids = append(ids, id)
		}
	}
	return ids
}

// ToPgNumeric converts a string to pgtype.Numeric.
// Handles currency symbols, thousands separators, and accounting format (parentheses for negative).
func ToPgNumeric(s string) pgtype.Numeric {
	s = strings.TrimSpace(s)
	if s == "" {
		return pgtype.Numeric{Valid: false}
	}

	isNegative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		isNegative = true
		s = strings.TrimSpace(s[1 : len(s)-1])
	}

	s = strings.ReplaceAll(s, "$", "")
	s = strings.ReplaceAll(s, "€", "") // Euro
	s = strings.ReplaceAll(s, "£", "") // Pound
	s = strings.ReplaceAll(s, ",", "")
	s = strings.ReplaceAll(s, "_", "")
	s = strings.TrimSpace(s)

	if isNegative {
		s = "-" + s
	}

	if !numericRegex.MatchString(s) {
		return pgtype.Numeric{Valid: false}
	}

	var n pgtype.Numeric
	if err := n.Scan(s); err != nil {
		return pgtype.Numeric{Valid: false}
	}

	return n
}

// ParseAmount is ToPgNumeric that reports malformed non-empty input.
func ParseAmount(raw string) (pgtype.Numeric, error) {
	n := ToPgNumeric(raw)
	if !n.Valid && strings.TrimSpace(raw) != "" {
		return n, fmt.Errorf("%w: %q", errInvalidNumber, raw)
	}
	return n, nil
}

// NumericToFloat converts a stored decimal to float64 for transport.
// Precision beyond float64 is dropped; the value is display-only.
func NumericToFloat(n pgtype.Numeric) *float64 {
	if !n.Valid {
		return nil
	}
	f, err := n.Float64Value()
	if err != nil || !f.Valid {
		return nil
	}
	v := f.Float64
	return &v
}

// ParsePage returns the 1-based page number, treating anything invalid as 1.
// Pages past MaxPage, including ones too large for int, clamp to MaxPage.
func ParsePage(raw string) int {
	p, err := strconv.Atoi(strings.TrimSpace(raw))
	if errors.Is(err, strconv.ErrRange) && !strings.HasPrefix(strings.TrimSpace(raw), "-") {
		return MaxPage
	}
	if err != nil || p < 1 {
		return 1
	}
	return min(p, MaxPage)
}
