package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// LoadResult is the outcome of loading one configuration value from the environment.
//
// Fields:
//   - Value: The loaded value, or the default when the variable was unset or rejected
//   - Warnings: One message per rejected value (empty when nothing was rejected)
//   - FallbackApplied: True if the default was used because the value was invalid
//
// An unset or empty variable is not a fallback: the default is simply used.
type LoadResult[T any] struct {
	Value           T
	Warnings        []string
	FallbackApplied bool
}

// loadEnv implements the fail-open strategy shared by every typed loader:
//  1. Read the environment variable
//  2. If not set or empty: use the default (no warning)
//  3. Parse it; on failure use the default and record a warning
//  4. Validate it (validator may be nil); on failure use the default and record a warning
//
// It never returns an error.
func loadEnv[T any](envKey string, defaultValue T, parse func(string) (T, error), validator func(T) error) LoadResult[T] {
	raw := os.Getenv(envKey)
	if raw == "" {
		return LoadResult[T]{Value: defaultValue}
	}

	fallback := func(err error) LoadResult[T] {
		return LoadResult[T]{
			Value: defaultValue,
			Warnings: []string{fmt.Sprintf(
				"Invalid %s='%s': %v, falling back to default '%v'",
				envKey, raw, err, defaultValue,
			)},
			FallbackApplied: true,
		}
	}

	value, err := parse(raw)
	if err != nil {
		return fallback(err)
	}

	if validator != nil {
		if err := validator(value); err != nil {
			return fallback(err)
		}
	}

	return LoadResult[T]{Value: value}
}

// LoadEnvString loads a string value without validation.
//
// Example:
//
//	userAgent := LoadEnvString("USER_AGENT", defaultUserAgent)
func LoadEnvString(envKey, defaultValue string) string {
	value := os.Getenv(envKey)
	if value == "" {
		return defaultValue
	}
	return value
}

// LoadEnvWithFallback loads a string value and validates it, falling back to the
// default when validation fails.
//
// Example:
//
//	result := LoadEnvWithFallback("STATUS_SCHEDULE", "0 * * * *", ValidateCronSchedule)
//	if result.FallbackApplied {
//	    for _, warning := range result.Warnings {
//	        logger.Warn("configuration fallback", slog.String("warning", warning))
//	    }
//	}
//	schedule := result.Value
func LoadEnvWithFallback(envKey, defaultValue string, validator func(string) error) LoadResult[string] {
	return loadEnv(envKey, defaultValue, func(s string) (string, error) { return s, nil }, validator)
}

// LoadEnvDuration loads a Go duration string ("30s", "5m", "1h30m").
// Parse and validation failures fall back to the default.
func LoadEnvDuration(envKey string, defaultValue time.Duration, validator func(time.Duration) error) LoadResult[time.Duration] {
	return loadEnv(envKey, defaultValue, time.ParseDuration, validator)
}

// LoadEnvInt loads a base-10 integer. Parse and validation failures fall back to the default.
func LoadEnvInt(envKey string, defaultValue int, validator func(int) error) LoadResult[int] {
	return loadEnv(envKey, defaultValue, func(s string) (int, error) {
		v, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			return 0, fmt.Errorf("invalid integer format")
		}
		return v, nil
	}, validator)
}

// LoadEnvFloat loads a floating point number such as a backoff multiplier.
func LoadEnvFloat(envKey string, defaultValue float64, validator func(float64) error) LoadResult[float64] {
	return loadEnv(envKey, defaultValue, func(s string) (float64, error) {
		return strconv.ParseFloat(strings.TrimSpace(s), 64)
	}, validator)
}

// LoadEnvBool loads a boolean flag.
//
// Accepted values: "1", "t", "T", "true", "TRUE", "True" and
// "0", "f", "F", "false", "FALSE", "False". Anything else falls back to the default.
func LoadEnvBool(envKey string, defaultValue bool) LoadResult[bool] {
	return loadEnv(envKey, defaultValue, func(s string) (bool, error) {
		switch s {
		case "1", "t", "T", "true", "TRUE", "True":
			return true, nil
		case "0", "f", "F", "false", "FALSE", "False":
			return false, nil
		default:
			return false, fmt.Errorf("invalid boolean format, expected 'true' or 'false'")
		}
	}, nil)
}

// LoadEnvList loads a comma-separated list. Items are trimmed and empty items dropped;
// a list that ends up empty yields the default.
//
// Example:
//
//	// RECEIVER_EMAIL="a@example.com, b@example.com"
//	recipients := LoadEnvList("RECEIVER_EMAIL", nil)
//	// ["a@example.com", "b@example.com"]
func LoadEnvList(envKey string, defaultValue []string) []string {
	raw := os.Getenv(envKey)
	if raw == "" {
		return defaultValue
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}

	if len(result) == 0 {
		return defaultValue
	}
	return result
}
