package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadEnvString(t *testing.T) {
	t.Setenv("TEST_STRING", "custom_value")
	assert.Equal(t, "custom_value", LoadEnvString("TEST_STRING", "default_value"))

	t.Setenv("TEST_STRING", "")
	assert.Equal(t, "default_value", LoadEnvString("TEST_STRING", "default_value"))
}

func TestLoadEnvWithFallback(t *testing.T) {
	t.Run("valid value is used", func(t *testing.T) {
		t.Setenv("TEST_CRON", "*/15 * * * *")

		result := LoadEnvWithFallback("TEST_CRON", "0 * * * *", ValidateCronSchedule)

		assert.Equal(t, "*/15 * * * *", result.Value)
		assert.Empty(t, result.Warnings)
		assert.False(t, result.FallbackApplied)
	})

	t.Run("unset uses default without warning", func(t *testing.T) {
		result := LoadEnvWithFallback("TEST_CRON_UNSET", "0 * * * *", ValidateCronSchedule)

		assert.Equal(t, "0 * * * *", result.Value)
		assert.Empty(t, result.Warnings)
		assert.False(t, result.FallbackApplied)
	})

	t.Run("invalid value falls back with warning", func(t *testing.T) {
		t.Setenv("TEST_CRON", "every hour")

		result := LoadEnvWithFallback("TEST_CRON", "0 * * * *", ValidateCronSchedule)

		assert.Equal(t, "0 * * * *", result.Value)
		assert.True(t, result.FallbackApplied)
		assert.Len(t, result.Warnings, 1)
		assert.Contains(t, result.Warnings[0], "TEST_CRON")
		assert.Contains(t, result.Warnings[0], "every hour")
	})

	t.Run("nil validator accepts anything", func(t *testing.T) {
		t.Setenv("TEST_ANY", "whatever")

		result := LoadEnvWithFallback("TEST_ANY", "default", nil)

		assert.Equal(t, "whatever", result.Value)
		assert.False(t, result.FallbackApplied)
	})
}

func TestLoadEnvDuration(t *testing.T) {
	tests := []struct {
		name         string
		value        string
		want         time.Duration
		wantFallback bool
	}{
		{name: "valid", value: "10s", want: 10 * time.Second},
		{name: "unset", value: "", want: 5 * time.Second},
		{name: "unparseable", value: "soon", want: 5 * time.Second, wantFallback: true},
		{name: "negative rejected", value: "-1s", want: 5 * time.Second, wantFallback: true},
		{name: "zero rejected", value: "0s", want: 5 * time.Second, wantFallback: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_DURATION", tt.value)

			result := LoadEnvDuration("TEST_DURATION", 5*time.Second, ValidatePositiveDuration)

			assert.Equal(t, tt.want, result.Value)
			assert.Equal(t, tt.wantFallback, result.FallbackApplied)
		})
	}
}

func TestLoadEnvInt(t *testing.T) {
	inRange := func(v int) error { return ValidateIntRange(v, 1024, 65535) }

	t.Setenv("TEST_PORT", "9092")
	assert.Equal(t, 9092, LoadEnvInt("TEST_PORT", 9091, inRange).Value)

	t.Setenv("TEST_PORT", " 9093 ")
	assert.Equal(t, 9093, LoadEnvInt("TEST_PORT", 9091, inRange).Value)

	t.Setenv("TEST_PORT", "80")
	result := LoadEnvInt("TEST_PORT", 9091, inRange)
	assert.Equal(t, 9091, result.Value)
	assert.True(t, result.FallbackApplied)

	t.Setenv("TEST_PORT", "ninety")
	result = LoadEnvInt("TEST_PORT", 9091, inRange)
	assert.Equal(t, 9091, result.Value)
	assert.True(t, result.FallbackApplied)
	assert.Contains(t, result.Warnings[0], "invalid integer format")
}

func TestLoadEnvFloat(t *testing.T) {
	inRange := func(v float64) error { return ValidateFloatRange(v, 1, 10) }

	t.Setenv("TEST_MULTIPLIER", "2.5")
	assert.Equal(t, 2.5, LoadEnvFloat("TEST_MULTIPLIER", 1, inRange).Value)

	t.Setenv("TEST_MULTIPLIER", "0.5")
	result := LoadEnvFloat("TEST_MULTIPLIER", 1, inRange)
	assert.Equal(t, float64(1), result.Value)
	assert.True(t, result.FallbackApplied)
}

func TestLoadEnvBool(t *testing.T) {
	for _, v := range []string{"1", "t", "true", "TRUE", "True"} {
		t.Setenv("TEST_BOOL", v)
		assert.True(t, LoadEnvBool("TEST_BOOL", false).Value, "value %q", v)
	}
	for _, v := range []string{"0", "f", "false", "FALSE", "False"} {
		t.Setenv("TEST_BOOL", v)
		assert.False(t, LoadEnvBool("TEST_BOOL", true).Value, "value %q", v)
	}

	t.Setenv("TEST_BOOL", "yes")
	result := LoadEnvBool("TEST_BOOL", true)
	assert.True(t, result.Value)
	assert.True(t, result.FallbackApplied)
}

func TestLoadEnvList(t *testing.T) {
	t.Setenv("TEST_LIST", "a@example.com, b@example.com,, ")
	assert.Equal(t, []string{"a@example.com", "b@example.com"}, LoadEnvList("TEST_LIST", nil))

	t.Setenv("TEST_LIST", " , ,")
	assert.Equal(t, []string{"fallback"}, LoadEnvList("TEST_LIST", []string{"fallback"}))

	t.Setenv("TEST_LIST", "")
	assert.Nil(t, LoadEnvList("TEST_LIST", nil))
}
