package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/typosniper/typo-sniper/internal/config"
	"github.com/typosniper/typo-sniper/internal/record"
)

func TestResolveTri(t *testing.T) {
	assert.True(t, resolveTri(config.ForceOn, func() bool { return false }))
	assert.False(t, resolveTri(config.ForceOff, func() bool { return true }))
	assert.True(t, resolveTri(config.Auto, func() bool { return true }))
	assert.False(t, resolveTri(config.Auto, func() bool { return false }))
}

func TestPositive(t *testing.T) {
	assert.Equal(t, 5, positive(5, 10))
	assert.Equal(t, 10, positive(0, 10))
	assert.Equal(t, 10, positive(-1, 10))
}

func TestCandidateDeadlineScalesLongestTimeout(t *testing.T) {
	s := &Scanner{
		cfg: config.Config{
			WhoisTimeout:       10 * time.Second,
			URLScanWaitTimeout: 90 * time.Second,
			HTTPTimeout:        5 * time.Second,
		},
	}
	// Neither urlscan nor httpProbe are constructed, so only whois counts.
	assert.Equal(t, 15*time.Second, s.candidateDeadline())
}

func TestEnabledFeaturesReflectsConfig(t *testing.T) {
	s := &Scanner{cfg: config.Config{
		EnableCombosquatting: true,
		EnableRiskScoring:    true,
	}}
	feats := s.enabledFeatures()
	assert.Contains(t, feats, "combosquatting")
	assert.Contains(t, feats, "risk_scoring")
	assert.NotContains(t, feats, "urlscan")
}

func TestActiveLearningBatchSelectsNearBoundary(t *testing.T) {
	s := &Scanner{cfg: config.Config{MLUncertaintyThreshold: 0.1, MLReviewBudget: 10}}
	records := []record.PermutationRecord{
		{Domain: "certain-typo.example", ML: &record.MLResult{Confidence: 0.95}},
		{Domain: "boundary.example", ML: &record.MLResult{Confidence: 0.48}},
		{Domain: "no-ml.example"},
	}
	picked := s.activeLearningBatch(records)
	assert.Equal(t, []string{"boundary.example"}, picked)
}
