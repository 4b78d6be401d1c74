package utils

import (
	"net/http"
	"strconv"
	"time"
)

// MaxLimit is the largest number of items a list endpoint returns
const MaxLimit = 500

// ParseLimit reads the "limit" query parameter, clamped to [1, MaxLimit]
func ParseLimit(r *http.Request, defaultLimit int) int {
	limit := parseIntQuery(r.URL.Query().Get("limit"), defaultLimit)
	if limit < 1 {
		limit = defaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	return limit
}

// ParseOptionalInt64 reads an optional integer query parameter
func ParseOptionalInt64(r *http.Request, key string) (*int64, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// ParseOptionalTime reads an optional RFC3339 query parameter
func ParseOptionalTime(r *http.Request, key string) (*time.Time, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func parseIntQuery(value string, defaultValue int) int {
	if value == "" {
		return defaultValue
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return i
}
