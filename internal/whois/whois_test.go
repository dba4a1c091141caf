package whois

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/typosniper/typo-sniper/internal/cache"
)

// startMockWhoisServer answers full records for "registered.dev";
// anything else gets a "No match" line, mimicking an unparseable WHOIS
// reply. It serves no IANA referrals: tests preload the "dev" referral
// into the client's tldToServer map instead.
func startMockWhoisServer(t *testing.T) (string, func()) {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func(c net.Conn) {
				defer c.Close()
				buf := make([]byte, 256)
				n, _ := c.Read(buf)
				q := string(buf[:n])

				switch {
				case contains(q, "registered.dev"):
					_, _ = c.Write([]byte("Registrar: Example Registrar LLC\r\n" +
						"Creation Date: 2020-05-01T00:00:00Z\r\n" +
						"Updated Date: 2024-01-10T00:00:00Z\r\n" +
						"Registry Expiry Date: 2026-05-01T00:00:00Z\r\n" +
						"Name Server: ns1.example.net\r\n" +
						"Name Server: ns2.example.net\r\n" +
						"Domain Status: clientTransferProhibited\r\n" +
						"Registrar Abuse Contact Email: abuse@example-registrar.test\r\n"))
				default:
					_, _ = c.Write([]byte("No match for domain.\r\n"))
				}
			}(conn)
		}
	}()

	return ln.Addr().String(), func() { _ = ln.Close() }
}

func contains(haystack, needle string) bool {
	return len(haystack) >= len(needle) && indexOf(haystack, needle) >= 0
}

func indexOf(haystack, needle string) int {
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if haystack[i:i+len(needle)] == needle {
			return i
		}
	}
	return -1
}

func newTestClient(t *testing.T) (*Client, string, func()) {
	t.Helper()
	dir := t.TempDir()
	c, err := cache.New(dir, nil)
	require.NoError(t, err)

	addr, cleanup := startMockWhoisServer(t)
	client := New(c, 2*time.Second, 0, 0, time.Hour)
	client.tldToServer["dev"] = addr
	return client, addr, cleanup
}

func TestLookup_ParsesRegisteredDomain(t *testing.T) {
	client, _, cleanup := newTestClient(t)
	defer cleanup()

	rec, ok := client.Lookup(t.Context(), "registered.dev")
	require.True(t, ok)
	require.NotNil(t, rec)
	require.True(t, rec.RawOK)
	require.NotNil(t, rec.Registrar)
	require.Equal(t, "Example Registrar LLC", *rec.Registrar)
	require.NotNil(t, rec.CreationDate)
	require.Equal(t, 2020, rec.CreationDate.Year())
	require.Len(t, rec.NameServers, 2)
	require.Contains(t, rec.Status, "clientTransferProhibited")
	require.Contains(t, rec.Emails, "abuse@example-registrar.test")
}

func TestLookup_UnparseableBodyStillRawOK(t *testing.T) {
	client, _, cleanup := newTestClient(t)
	defer cleanup()

	rec, ok := client.Lookup(t.Context(), "nomatch.dev")
	require.True(t, ok)
	require.NotNil(t, rec)
	require.True(t, rec.RawOK)
	require.Nil(t, rec.Registrar)
	require.Nil(t, rec.CreationDate)
}

func TestLookup_CachesResultAcrossCalls(t *testing.T) {
	client, _, cleanup := newTestClient(t)
	defer cleanup()

	rec1, ok1 := client.Lookup(t.Context(), "registered.dev")
	require.True(t, ok1)

	// Close the listener; a cache hit must not need the network again.
	cleanup()

	rec2, ok2 := client.Lookup(t.Context(), "registered.dev")
	require.True(t, ok2)
	require.Equal(t, rec1.Registrar, rec2.Registrar)
}

func TestLookup_UnavailableOnUnreachableServer(t *testing.T) {
	dir := t.TempDir()
	c, err := cache.New(dir, nil)
	require.NoError(t, err)

	client := New(c, 200*time.Millisecond, 0, 0, time.Hour)
	client.tldToServer["zzz"] = "127.0.0.1:1"

	rec, ok := client.Lookup(t.Context(), "anything.zzz")
	require.False(t, ok)
	require.Nil(t, rec)
}
