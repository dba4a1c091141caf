package ml

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubScorer struct {
	fail map[string]bool
}

func (s stubScorer) Score(_ context.Context, in Input) (Result, error) {
	if s.fail[in.Domain] {
		return Result{}, errors.New("boom")
	}
	return Result{Risk: in.RiskScore, Confidence: 0.9, Verdict: "legitimate"}, nil
}

func TestHookRunIsolatesFailures(t *testing.T) {
	hook := New(stubScorer{fail: map[string]bool{"bad.com": true}})
	inputs := []Input{{Domain: "good.com", RiskScore: 10}, {Domain: "bad.com", RiskScore: 20}}

	results := hook.Run(context.Background(), inputs)

	require.Len(t, results, 2)
	require.NotNil(t, results[0])
	assert.Equal(t, 10, results[0].Risk)
	assert.Nil(t, results[1])
}

func TestHookNilScorerIsNoOp(t *testing.T) {
	hook := New(nil)
	results := hook.Run(context.Background(), []Input{{Domain: "x.com"}})
	require.Len(t, results, 1)
	assert.Nil(t, results[0])
}

func TestActiveLearningBatchSelectsNearBoundary(t *testing.T) {
	domains := []string{"a.com", "b.com", "c.com"}
	results := []*Result{
		{Confidence: 0.9},
		{Confidence: 0.52},
		nil,
	}

	picked := ActiveLearningBatch(domains, results, 0.1, 10)
	assert.Equal(t, []string{"b.com"}, picked)
}

func TestActiveLearningBatchRespectsBudget(t *testing.T) {
	domains := []string{"a.com", "b.com"}
	results := []*Result{{Confidence: 0.5}, {Confidence: 0.51}}

	picked := ActiveLearningBatch(domains, results, 0.2, 1)
	assert.Len(t, picked, 1)
}
