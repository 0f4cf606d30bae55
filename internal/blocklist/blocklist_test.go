package blocklist

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"macblock/internal/cmderr"
)

func TestResolve(t *testing.T) {
	t.Run("CatalogKey", func(t *testing.T) {
		src, err := Resolve("stevenblack")
		require.NoError(t, err)
		assert.False(t, src.Custom)
		assert.Contains(t, src.URL, "StevenBlack")
	})

	t.Run("CustomURL", func(t *testing.T) {
		src, err := Resolve("https://example.com/hosts")
		require.NoError(t, err)
		assert.True(t, src.Custom)
		assert.Equal(t, "https://example.com/hosts", src.URL)
	})

	t.Run("S3URI", func(t *testing.T) {
		src, err := Resolve("s3://corp-blocklists/hosts.txt")
		require.NoError(t, err)
		assert.True(t, src.Custom)
	})

	t.Run("Unknown", func(t *testing.T) {
		_, err := Resolve("nope")
		require.Error(t, err)
		e, ok := cmderr.As(err)
		require.True(t, ok)
		assert.Equal(t, cmderr.User, e.Kind)
	})

	t.Run("CatalogKeysComplete", func(t *testing.T) {
		assert.Len(t, CatalogKeys, len(Catalog))
		for _, k := range CatalogKeys {
			assert.Contains(t, Catalog, k)
		}
	})
}

func TestSplitS3URI(t *testing.T) {
	bucket, key, err := splitS3URI("s3://corp/lists/hosts.txt")
	require.NoError(t, err)
	assert.Equal(t, "corp", bucket)
	assert.Equal(t, "lists/hosts.txt", key)

	_, _, err = splitS3URI("s3://only-bucket")
	require.Error(t, err)
}

func TestParseHosts(t *testing.T) {
	parsed := ParseHosts(`# hosts file header
0.0.0.0 ads.example tracker.example
127.0.0.1 localhost
0.0.0.0 UPPER.Example  # trailing comment
bare-domain.example
::1 ip6-local.example
not an ip anywhere
0.0.0.0 bad_label.example
`)
	assert.True(t, parsed["ads.example"])
	assert.True(t, parsed["tracker.example"])
	assert.True(t, parsed["upper.example"])
	assert.True(t, parsed["bare-domain.example"])
	assert.True(t, parsed["ip6-local.example"])
	assert.False(t, parsed["localhost"])
	assert.False(t, parsed["bad_label.example"])
	assert.Len(t, parsed, 5)
}

func TestLooksLikeHTML(t *testing.T) {
	assert.True(t, looksLikeHTML([]byte("<!DOCTYPE html><html><body>404</body></html>")))
	assert.True(t, looksLikeHTML([]byte("  <html lang=\"en\">")))
	assert.False(t, looksLikeHTML([]byte("# hosts\n0.0.0.0 ads.example\n")))
}

func domainSet(n int) map[string]bool {
	set := make(map[string]bool, n)
	for i := 0; i < n; i++ {
		set[testDomain(i)] = true
	}
	return set
}

func testDomain(i int) string {
	const letters = "abcdefghij"
	name := make([]byte, 0, 8)
	for ; i >= 0; i = i/10 - 1 {
		name = append(name, letters[i%10])
	}
	return "d" + string(name) + ".example"
}

func TestCompile(t *testing.T) {
	dir := t.TempDir()
	rawPath := filepath.Join(dir, "blocklist.raw")
	confPath := filepath.Join(dir, "blocklist.conf")

	t.Run("EmitsBothFiles", func(t *testing.T) {
		parsed := map[string]bool{"b.example": true, "a.example": true, "allowed.example": true}
		res, err := Compile(parsed, []string{"allowed.example"}, []string{"denied.example"}, 1, rawPath, confPath)
		require.NoError(t, err)
		assert.Equal(t, 3, res.SourceCount)
		assert.Equal(t, 3, res.FinalCount)

		raw, err := os.ReadFile(rawPath)
		require.NoError(t, err)
		assert.Equal(t, "a.example\nb.example\ndenied.example\n", string(raw))

		conf, err := os.ReadFile(confPath)
		require.NoError(t, err)
		assert.Equal(t, "address=/a.example/\naddress=/b.example/\naddress=/denied.example/\n", string(conf))
	})

	t.Run("BelowFloorLeavesFilesAlone", func(t *testing.T) {
		before, err := os.ReadFile(confPath)
		require.NoError(t, err)

		_, err = Compile(domainSet(42), nil, nil, 1000, rawPath, confPath)
		require.Error(t, err)
		e, ok := cmderr.As(err)
		require.True(t, ok)
		assert.Equal(t, cmderr.User, e.Kind)
		assert.Contains(t, e.Error(), "safety floor")

		after, err := os.ReadFile(confPath)
		require.NoError(t, err)
		assert.Equal(t, string(before), string(after))
	})

	t.Run("FloorAppliesToSourceNotFinal", func(t *testing.T) {
		// The deny union cannot rescue a too-small source.
		_, err := Compile(domainSet(5), nil, []string{"x.example"}, 10, rawPath, confPath)
		require.Error(t, err)
	})
}
