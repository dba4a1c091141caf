package threatintel

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/typosniper/typo-sniper/internal/cache"
)

func TestCTClient_SummarizesEntries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"issuer_name":"Let's Encrypt","not_before":"2024-01-01T00:00:00","not_after":"2024-04-01T00:00:00"},
			{"issuer_name":"Let's Encrypt","not_before":"2024-02-01T00:00:00","not_after":"2024-05-01T00:00:00"},
			{"issuer_name":"DigiCert","not_before":"2023-06-01T00:00:00","not_after":"2023-09-01T00:00:00"}
		]`))
	}))
	defer srv.Close()

	dir := t.TempDir()
	c, err := cache.New(dir, nil)
	require.NoError(t, err)

	client := NewCTClient(5*time.Second, c)
	result := client.fetchFrom(t.Context(), srv.URL)
	require.NotNil(t, result)
	require.Equal(t, 3, result.Count)
	require.Equal(t, []string{"DigiCert", "Let's Encrypt"}, result.Issuers)
}

func TestCTClient_FailureReturnsNil(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	dir := t.TempDir()
	c, err := cache.New(dir, nil)
	require.NoError(t, err)

	client := NewCTClient(5*time.Second, c)
	result := client.fetchFrom(t.Context(), srv.URL)
	require.Nil(t, result)
}
