package http

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/example/session-scheduler/internal/application"
)

const dateOnlyLayout = "2006-01-02"

// parseDate accepts RFC 3339 timestamps and bare dates. A bare date resolves
// to midnight in loc.
func parseDate(value string, loc *time.Location) (time.Time, error) {
	value = strings.TrimSpace(value)
	if loc == nil {
		loc = time.UTC
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	if t, err := time.ParseInLocation(dateOnlyLayout, value, loc); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("invalid date %q", value)
}

// optionalDate reads a date query parameter. A missing parameter yields nil.
func optionalDate(values url.Values, key string, loc *time.Location) (*time.Time, error) {
	raw := strings.TrimSpace(values.Get(key))
	if raw == "" {
		return nil, nil
	}
	t, err := parseDate(raw, loc)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func queryBool(values url.Values, key string) (bool, error) {
	raw := strings.TrimSpace(values.Get(key))
	if raw == "" {
		return false, nil
	}
	return strconv.ParseBool(raw)
}

func queryInt(values url.Values, key string) (int, error) {
	raw := strings.TrimSpace(values.Get(key))
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// invalidParameter reports a malformed query or body field the same way the
// services report validation failures.
func invalidParameter(field string) error {
	return &application.ValidationError{FieldErrors: map[string]string{field: field + " is invalid"}}
}
