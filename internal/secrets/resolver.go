// Package secrets implements the Secret Resolver (C8): a fixed,
// ordered credential-source chain (§4.8) that silently degrades to
// "missing" rather than failing the scan, since no single missing
// credential may abort a pipeline run (§7 SecretMissing).
package secrets

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/projectdiscovery/gologger"
	"github.com/projectdiscovery/retryablehttp-go"
)

// ConfigFile is the subset of the loaded YAML config the resolver
// falls back to as its last-resort source (§4.8 source 5).
type ConfigFile map[string]string

// Resolver resolves a named credential through the five-source chain.
// It is safe for concurrent use; all sources are read-only.
type Resolver struct {
	configFile ConfigFile
	httpClient *retryablehttp.Client

	dopplerToken  string
	awsSecretName string

	secretsManagerFetch func(ctx context.Context, secretName string) (map[string]string, error)
}

// New builds a Resolver. cfg is the parsed config file's flat secret
// table (source 5); DOPPLER_TOKEN and AWS_SECRET_NAME are read from
// the environment once, matching §4.8's env-gated source activation.
func New(cfg ConfigFile) *Resolver {
	opts := retryablehttp.DefaultOptionsSpraying
	opts.RetryMax = 2
	httpClient := retryablehttp.NewClient(opts)

	return &Resolver{
		configFile:    cfg,
		httpClient:    httpClient,
		dopplerToken:  os.Getenv("DOPPLER_TOKEN"),
		awsSecretName: os.Getenv("AWS_SECRET_NAME"),
	}
}

// Resolve returns the first non-empty value for name across, in order:
// (1) TYPO_SNIPER_<NAME>, (2) Doppler (if DOPPLER_TOKEN set), (3) AWS
// Secrets Manager JSON field <name> (if AWS_SECRET_NAME set), (4) bare
// <NAME>, (5) the config file's <name> entry. ok is false iff every
// source came up empty; Resolve never returns an error (§4.8).
func (r *Resolver) Resolve(ctx context.Context, name string) (string, bool) {
	upper := strings.ToUpper(name)

	if v := os.Getenv("TYPO_SNIPER_" + upper); v != "" {
		return v, true
	}

	if r.dopplerToken != "" {
		if v, ok := r.fetchDoppler(ctx, name); ok {
			return v, true
		}
	}

	if r.awsSecretName != "" {
		if v, ok := r.fetchAWSSecretsManager(ctx, name); ok {
			return v, true
		}
	}

	if v := os.Getenv(upper); v != "" {
		return v, true
	}

	if r.configFile != nil {
		if v, ok := r.configFile[name]; ok && v != "" {
			return v, true
		}
	}

	return "", false
}

func (r *Resolver) fetchDoppler(ctx context.Context, name string) (string, bool) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("https://api.doppler.com/v3/configs/config/secret?name=%s", strings.ToUpper(name)), nil)
	if err != nil {
		gologger.Warning().Msgf("secrets: building doppler request for %q: %s", name, err)
		return "", false
	}
	req.Header.Set("Authorization", "Bearer "+r.dopplerToken)

	resp, err := r.httpClient.Do(req)
	if err != nil {
		gologger.Warning().Msgf("secrets: doppler lookup for %q failed: %s", name, err)
		return "", false
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", false
	}

	var body struct {
		Value struct {
			Raw string `json:"raw"`
		} `json:"value"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", false
	}
	if body.Value.Raw == "" {
		return "", false
	}
	return body.Value.Raw, true
}

func (r *Resolver) fetchAWSSecretsManager(ctx context.Context, name string) (string, bool) {
	fetch := r.secretsManagerFetch
	if fetch == nil {
		fetch = r.defaultSecretsManagerFetch
	}
	fields, err := fetch(ctx, r.awsSecretName)
	if err != nil {
		gologger.Warning().Msgf("secrets: aws secrets manager lookup for %q failed: %s", name, err)
		return "", false
	}
	v, ok := fields[name]
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

func (r *Resolver) defaultSecretsManagerFetch(ctx context.Context, secretName string) (map[string]string, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	awsCfg, err := config.LoadDefaultConfig(timeoutCtx)
	if err != nil {
		return nil, err
	}

	client := secretsmanager.NewFromConfig(awsCfg)
	out, err := client.GetSecretValue(timeoutCtx, &secretsmanager.GetSecretValueInput{SecretId: &secretName})
	if err != nil {
		return nil, err
	}
	if out.SecretString == nil {
		return nil, fmt.Errorf("secret %q has no string value", secretName)
	}

	var fields map[string]string
	if err := json.Unmarshal([]byte(*out.SecretString), &fields); err != nil {
		return nil, fmt.Errorf("secret %q is not a flat JSON object: %w", secretName, err)
	}
	return fields, nil
}
