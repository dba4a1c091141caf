package threatintel

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestHTTPProbe_ActiveOnSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := NewHTTPProbeClient(2 * time.Second)
	result := client.probe(t.Context(), srv.URL)
	require.NotNil(t, result)
	require.True(t, result.Active)
	require.Equal(t, http.StatusOK, *result.StatusCode)
}

func TestHTTPProbe_FallsBackToGETOn405(t *testing.T) {
	var gotMethod string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		gotMethod = r.Method
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := NewHTTPProbeClient(2 * time.Second)
	result := client.probe(t.Context(), srv.URL)
	require.NotNil(t, result)
	require.True(t, result.Active)
	require.Equal(t, http.MethodGet, gotMethod)
}

func TestHTTPProbe_InactiveOnServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewHTTPProbeClient(2 * time.Second)
	result := client.probe(t.Context(), srv.URL)
	require.NotNil(t, result)
	require.False(t, result.Active)
}

func TestHTTPProbe_UnreachableBothSchemesYieldsInactive(t *testing.T) {
	client := NewHTTPProbeClient(200 * time.Millisecond)
	result := client.Fetch(t.Context(), "127.0.0.1.invalid.test")
	require.NotNil(t, result)
	require.False(t, result.Active)
	require.Nil(t, result.StatusCode)
}
