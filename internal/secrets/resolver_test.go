package secrets

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

var errUnavailable = errors.New("secrets manager unavailable")

func TestResolve_PrefixedEnvWins(t *testing.T) {
	t.Setenv("TYPO_SNIPER_URLSCAN_API_KEY", "prefixed-value")
	t.Setenv("URLSCAN_API_KEY", "bare-value")

	r := New(ConfigFile{"urlscan_api_key": "config-value"})
	v, ok := r.Resolve(context.Background(), "urlscan_api_key")
	require.True(t, ok)
	require.Equal(t, "prefixed-value", v)
}

func TestResolve_BareEnvBeatsConfigFile(t *testing.T) {
	t.Setenv("URLSCAN_API_KEY", "bare-value")

	r := New(ConfigFile{"urlscan_api_key": "config-value"})
	v, ok := r.Resolve(context.Background(), "urlscan_api_key")
	require.True(t, ok)
	require.Equal(t, "bare-value", v)
}

func TestResolve_FallsBackToConfigFile(t *testing.T) {
	r := New(ConfigFile{"urlscan_api_key": "config-value"})
	v, ok := r.Resolve(context.Background(), "urlscan_api_key")
	require.True(t, ok)
	require.Equal(t, "config-value", v)
}

func TestResolve_MissingEverywhereIsSilent(t *testing.T) {
	r := New(nil)
	v, ok := r.Resolve(context.Background(), "urlscan_api_key")
	require.False(t, ok)
	require.Empty(t, v)
}

func TestResolve_AWSSecretsManagerUsedWhenEnvSet(t *testing.T) {
	t.Setenv("AWS_SECRET_NAME", "typo-sniper/prod")

	r := New(nil)
	r.awsSecretName = "typo-sniper/prod"
	r.secretsManagerFetch = func(ctx context.Context, secretName string) (map[string]string, error) {
		require.Equal(t, "typo-sniper/prod", secretName)
		return map[string]string{"urlscan_api_key": "from-secrets-manager"}, nil
	}

	v, ok := r.Resolve(context.Background(), "urlscan_api_key")
	require.True(t, ok)
	require.Equal(t, "from-secrets-manager", v)
}

func TestResolve_AWSSecretsManagerFailureFallsThrough(t *testing.T) {
	r := New(ConfigFile{"urlscan_api_key": "config-value"})
	r.awsSecretName = "typo-sniper/prod"
	r.secretsManagerFetch = func(ctx context.Context, secretName string) (map[string]string, error) {
		return nil, errUnavailable
	}

	v, ok := r.Resolve(context.Background(), "urlscan_api_key")
	require.True(t, ok)
	require.Equal(t, "config-value", v)
}
