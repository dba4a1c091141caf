package record

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func daysAgo(d int) *time.Time {
	t := time.Now().AddDate(0, 0, -d)
	return &t
}

func TestSortOrdering(t *testing.T) {
	records := []PermutationRecord{
		{Domain: "b.com", RiskScore: 10},
		{Domain: "a.com", RiskScore: 10},
		{Domain: "z.com", RiskScore: 90},
	}
	Sort(records)

	require.Len(t, records, 3)
	assert.Equal(t, "z.com", records[0].Domain)
	assert.Equal(t, "a.com", records[1].Domain)
	assert.Equal(t, "b.com", records[2].Domain)
}

func TestFilterByMonthsKeepsRecent(t *testing.T) {
	now := time.Now()
	records := []PermutationRecord{
		{Domain: "old.com", Whois: WhoisFacts{CreationDate: daysAgo(60)}},
		{Domain: "new.com", Whois: WhoisFacts{CreationDate: daysAgo(10)}},
		{Domain: "unknown.com"},
	}

	filtered := FilterByMonths(records, 1, now)

	require.Len(t, filtered, 1)
	assert.Equal(t, "new.com", filtered[0].Domain)
}

func TestFilterByMonthsDisabled(t *testing.T) {
	records := []PermutationRecord{{Domain: "x.com"}}
	assert.Equal(t, records, FilterByMonths(records, 0, time.Now()))
}

func TestFilterByMonthsIdempotent(t *testing.T) {
	now := time.Now()
	records := []PermutationRecord{
		{Domain: "old.com", Whois: WhoisFacts{CreationDate: daysAgo(60)}},
		{Domain: "new.com", Whois: WhoisFacts{CreationDate: daysAgo(10)}},
	}

	once := FilterByMonths(records, 1, now)
	twice := FilterByMonths(once, 1, now)
	assert.Equal(t, once, twice)
}

func TestSummaryExitCode(t *testing.T) {
	assert.Equal(t, 0, Summary{SeedsAttempted: 3, RecordsEmitted: 10}.ExitCode())
	assert.Equal(t, 0, Summary{SeedsAttempted: 3, SeedsEmptyResult: 1}.ExitCode(), "a clean zero-result seed is not a failure")
	assert.Equal(t, 2, Summary{SeedsAttempted: 3, SeedsEmptyResult: 1, SeedsFailedTransient: 1}.ExitCode())
}
