package duration_test

import (
	"testing"
	"time"

	"github.com/flowforge/durable/duration"
	"github.com/flowforge/durable/werrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseNumericForms(t *testing.T) {
	d, err := duration.Parse(100)
	require.NoError(t, err)
	assert.Equal(t, 100*time.Millisecond, d)

	d, err = duration.Parse("250")
	require.NoError(t, err)
	assert.Equal(t, 250*time.Millisecond, d)
}

func TestParseUnitTokens(t *testing.T) {
	cases := map[string]time.Duration{
		"100ms":   100 * time.Millisecond,
		"30s":     30 * time.Second,
		"5m":      5 * time.Minute,
		"1h":      time.Hour,
		"2d":      48 * time.Hour,
		"1w":      7 * 24 * time.Hour,
		"1h 30m":  90 * time.Minute,
		"1.5s":    1500 * time.Millisecond,
		"1HR 30Min": 90 * time.Minute,
	}
	for in, want := range cases {
		got, err := duration.Parse(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
}

func TestParseRejectsUnknownUnits(t *testing.T) {
	_, err := duration.Parse("10 fortnights")
	require.Error(t, err)
	assert.ErrorIs(t, err, werrors.ErrUnknownDuration)
}

func TestParseRejectsGarbage(t *testing.T) {
	_, err := duration.Parse("not-a-duration")
	require.Error(t, err)
}
