package http

import (
	"net/url"
	"strings"
	"time"
)

// fieldErrors collects request values that could not be parsed.
type fieldErrors map[string]string

func (f fieldErrors) add(field, message string) {
	f[field] = message
}

// parseInstant reads an RFC 3339 timestamp. An empty value yields the zero
// time so that services can report the field as required.
func parseInstant(value, field string, errs fieldErrors) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		errs.add(field, "must be an RFC 3339 timestamp")
		return time.Time{}
	}
	return t
}

func parseOptionalInstant(values url.Values, key string, errs fieldErrors) *time.Time {
	if strings.TrimSpace(values.Get(key)) == "" {
		return nil
	}
	t := parseInstant(values.Get(key), key, errs)
	if t.IsZero() {
		return nil
	}
	return &t
}

// parseCSV accepts both repeated keys and comma separated values.
func parseCSV(values []string) []string {
	var out []string
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				out = append(out, trimmed)
			}
		}
	}
	return out
}
