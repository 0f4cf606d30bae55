package cmd

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"macblock/internal/cmderr"
)

func TestParseDuration(t *testing.T) {
	cases := []struct {
		in   string
		want time.Duration
	}{
		{"30s", 30 * time.Second},
		{"10m", 10 * time.Minute},
		{"2h", 2 * time.Hour},
		{"1d", 24 * time.Hour},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseDuration(tc.in)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}

	invalid := []string{"", "10", "m", "10 m", "-5m", "1.5h", "10x", "1y", "99999999d"}
	for _, in := range invalid {
		t.Run("Invalid_"+in, func(t *testing.T) {
			_, err := ParseDuration(in)
			require.Error(t, err)
			e, ok := cmderr.As(err)
			require.True(t, ok)
			assert.Equal(t, cmderr.User, e.Kind)
		})
	}
}
