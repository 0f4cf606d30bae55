package dnsname

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	cases := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "Example.COM", want: "example.com"},
		{in: "example.com.", want: "example.com"},
		{in: "  ads.tracker.net ", want: "ads.tracker.net"},
		{in: "xn--bcher-kva.example", want: "xn--bcher-kva.example"},
		{in: "bücher.example", want: "xn--bcher-kva.example"},
		{in: "a.b-c.d", want: "a.b-c.d"},
		{in: "", wantErr: true},
		{in: ".", wantErr: true},
		{in: "-leading.example", wantErr: true},
		{in: "trailing-.example", wantErr: true},
		{in: "sp ace.example", wantErr: true},
		{in: "under_score.example", wantErr: true},
	}

	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			got, err := Normalize(tc.in)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestIsLocalhost(t *testing.T) {
	assert.True(t, IsLocalhost("localhost"))
	assert.True(t, IsLocalhost("localhost.localdomain"))
	assert.True(t, IsLocalhost("broadcasthost"))
	assert.False(t, IsLocalhost("example.com"))
}
