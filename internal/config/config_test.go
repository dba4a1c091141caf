package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultMatchesSpecDefaults(t *testing.T) {
	cfg := Default()

	assert.Equal(t, 10, cfg.MaxWorkers)
	assert.Equal(t, 2, cfg.DNSRetryCount)
	assert.Equal(t, 2, cfg.WhoisRetryCount)
	assert.True(t, cfg.UseCache)
	assert.True(t, cfg.EnableRiskScoring)
	assert.False(t, cfg.EnableCombosquatting)
	assert.Equal(t, Auto, cfg.EnableURLScan)
	assert.Equal(t, 8, cfg.EnricherConcurrency.Whois)
	assert.Equal(t, 20, cfg.EnricherConcurrency.HTTPProbe)
}

func TestTriString(t *testing.T) {
	assert.Equal(t, "auto", Auto.String())
	assert.Equal(t, "force_on", ForceOn.String())
	assert.Equal(t, "force_off", ForceOff.String())
}
