package utils

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Env returns the value of key with surrounding whitespace and one pair of
// matching quotes removed, so values copied from .env files read the same.
func Env(key string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if len(v) >= 2 && (v[0] == '"' || v[0] == '\'') && v[len(v)-1] == v[0] {
		v = strings.TrimSpace(v[1 : len(v)-1])
	}
	return v
}

func EnvOr(key, fallback string) string {
	if v := Env(key); v != "" {
		return v
	}
	return fallback
}

// EnvBool falls back on unset and unparsable values alike.
func EnvBool(key string, fallback bool) bool {
	b, err := strconv.ParseBool(Env(key))
	if err != nil {
		return fallback
	}
	return b
}

// EnvPositiveInt ignores zero, negative and malformed values.
func EnvPositiveInt(key string, fallback int) int {
	n, err := strconv.Atoi(Env(key))
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

// EnvDuration returns fallback when key is unset and an error when it is set
// to anything but a positive duration.
func EnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	raw := Env(key)
	if raw == "" {
		return fallback, nil
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	if d <= 0 {
		return fallback, fmt.Errorf("invalid %s %q: must be positive", key, raw)
	}
	return d, nil
}

// EnvList splits a comma separated value and drops empty items.
func EnvList(key string) []string {
	var items []string
	for _, item := range strings.Split(Env(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}
