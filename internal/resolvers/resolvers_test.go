package resolvers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Captured from a laptop with a corporate VPN attached, trimmed for length.
const scutilOutput = `DNS configuration

resolver #1
  nameserver[0] : 1.1.1.1
  nameserver[1] : 127.0.0.1
  if_index : 15 (en0)
  flags    : Request A records, Request AAAA records
  reach    : 0x00000002 (Reachable)

resolver #2
  domain   : corp.example.
  nameserver[0] : 10.0.0.53
  flags    : Supplemental, Request A records
  order    : 100200

resolver #3
  domain   : local
  options  : mdns
  timeout  : 5
`

func TestParse(t *testing.T) {
	table := Parse(scutilOutput)

	assert.Equal(t, []string{"1.1.1.1"}, table.Default)
	require.Contains(t, table.PerDomain, "corp.example")
	assert.Equal(t, []string{"10.0.0.53"}, table.PerDomain["corp.example"])

	// mDNS resolvers carry no nameservers and must not appear.
	_, ok := table.PerDomain["local"]
	assert.False(t, ok)
}

func TestParseOrderingAndDedup(t *testing.T) {
	table := Parse(`resolver #1
  nameserver[0] : 8.8.8.8
  nameserver[1] : 8.8.4.4
resolver #2
  nameserver[0] : 8.8.8.8
resolver #3
  domain : a.example
  nameserver[0] : 10.1.1.1
resolver #4
  domain : a.example
  nameserver[0] : 10.1.1.1
  nameserver[1] : 10.1.1.2
`)
	assert.Equal(t, []string{"8.8.8.8", "8.8.4.4"}, table.Default)
	assert.Equal(t, []string{"10.1.1.1", "10.1.1.2"}, table.PerDomain["a.example"])
	assert.Equal(t, []string{"a.example"}, table.Domains())
}

func TestParseDropsSelfAddresses(t *testing.T) {
	table := Parse(`resolver #1
  nameserver[0] : 127.0.0.1
  nameserver[1] : ::1
  nameserver[2] : 0.0.0.0
  nameserver[3] : ::
`)
	assert.Empty(t, table.Default)
}

func TestParseEmpty(t *testing.T) {
	table := Parse("")
	assert.Empty(t, table.Default)
	assert.Empty(t, table.PerDomain)
}

func TestIsForwardIP(t *testing.T) {
	assert.True(t, IsForwardIP("9.9.9.9"))
	assert.True(t, IsForwardIP("fd00::53"))
	assert.False(t, IsForwardIP(""))
	assert.False(t, IsForwardIP("127.0.0.1"))
	assert.False(t, IsForwardIP("::1"))
	assert.False(t, IsForwardIP("0.0.0.0"))
	assert.False(t, IsForwardIP("::"))
}
