package fuzzer

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeSeed_LowercasesAndPunycodes(t *testing.T) {
	ascii, err := NormalizeSeed("ExaMPLE.com")
	require.NoError(t, err)
	require.Equal(t, "example.com", ascii)
}

func TestNormalizeSeed_CyrillicCollapsesToASCIIForm(t *testing.T) {
	// scenario 6: a Cyrillic homograph of "apple.com" normalizes to a
	// punycode form distinct from, but derived identically to, the
	// ASCII seed's own normalization path.
	ascii, err := NormalizeSeed("аpple.com") // Cyrillic 'а'
	require.NoError(t, err)
	require.Contains(t, ascii, "xn--")
}

func TestGenerate_IncludesOriginal(t *testing.T) {
	g, err := New("example.com", Config{})
	require.NoError(t, err)

	candidates := g.Generate()
	found := false
	for _, c := range candidates {
		if c.Domain == "example.com" {
			require.Equal(t, "original", c.Fuzzer)
			found = true
		}
	}
	require.True(t, found, "seed must always be present tagged original")
}

func TestGenerate_NoDuplicateDomains(t *testing.T) {
	g, err := New("example.com", Config{
		EnableCombosquatting: true,
		EnableSoundalike:     true,
		EnableIDNHomograph:   true,
	})
	require.NoError(t, err)

	seen := make(map[string]bool)
	for _, c := range g.Generate() {
		require.False(t, seen[c.Domain], "duplicate domain: %s", c.Domain)
		seen[c.Domain] = true
	}
}

func TestGenerate_ComboProducesExpectedShapes(t *testing.T) {
	g, err := New("example.com", Config{EnableCombosquatting: true})
	require.NoError(t, err)

	var sawSuffix, sawPrefix bool
	for _, c := range g.Generate() {
		if c.Fuzzer != "combo" {
			continue
		}
		if c.Domain == "login-example.com" {
			sawSuffix = true
		}
		if c.Domain == "example-login.com" {
			sawPrefix = true
		}
	}
	require.True(t, sawSuffix)
	require.True(t, sawPrefix)
}

func TestGenerate_ComboProducesAtLeast300Candidates(t *testing.T) {
	g, err := New("example.com", Config{EnableCombosquatting: true})
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(g.Generate()), 300)
}

func TestGenerate_DefaultConfigOmitsOptionalFuzzers(t *testing.T) {
	g, err := New("example.com", Config{})
	require.NoError(t, err)
	for _, c := range g.Generate() {
		require.NotEqual(t, "combo", c.Fuzzer)
		require.NotEqual(t, "soundalike", c.Fuzzer)
		require.NotEqual(t, "idn-homograph", c.Fuzzer)
	}
}

func TestGenerate_TLDSwapSkipsOriginalTLD(t *testing.T) {
	g, err := New("example.com", Config{})
	require.NoError(t, err)
	for _, c := range g.Generate() {
		if c.Fuzzer == "tld-swap" {
			require.NotEqual(t, "example.com", c.Domain)
		}
	}
}

func TestGenerate_AllDomainsAreDNSLegal(t *testing.T) {
	g, err := New("example.com", Config{EnableIDNHomograph: true})
	require.NoError(t, err)
	for _, c := range g.Generate() {
		require.True(t, isLegalLabel(c.Domain), "illegal label emitted: %s", c.Domain)
	}
}

func TestGenerate_Deterministic(t *testing.T) {
	cfg := Config{EnableCombosquatting: true, EnableSoundalike: true}
	g1, err := New("example.com", cfg)
	require.NoError(t, err)
	g2, err := New("example.com", cfg)
	require.NoError(t, err)

	c1 := g1.Generate()
	c2 := g2.Generate()
	require.Equal(t, len(c1), len(c2))

	m1 := make(map[string]string, len(c1))
	for _, c := range c1 {
		m1[c.Domain] = c.Fuzzer
	}
	for _, c := range c2 {
		require.Equal(t, m1[c.Domain], c.Fuzzer)
	}
}

func TestNew_RejectsBareTLD(t *testing.T) {
	_, err := New("com", Config{})
	require.Error(t, err)
}
