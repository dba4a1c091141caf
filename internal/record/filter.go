package record

import (
	"sort"
	"time"
)

// Sort orders records per §3 I4: by seed input order (already the
// slice's order by construction — the scheduler buffers per seed), then
// descending risk_score, then ascending domain. It is a stable sort so
// equal-key records keep their pre-sort relative order.
func Sort(records []PermutationRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if a.RiskScore != b.RiskScore {
			return a.RiskScore > b.RiskScore
		}
		return a.Domain < b.Domain
	})
}

// FilterByMonths applies the months_filter post-filter (§6): when
// months > 0, only records whose whois.creation_date is within the last
// `months` months survive. months <= 0 is a no-op (filter disabled).
// The filter is a pure function of its input and is idempotent
// (Property P5): applying it twice yields the same set as once, since a
// record that already passed still has the same creation_date on a
// second pass.
func FilterByMonths(records []PermutationRecord, months int, now time.Time) []PermutationRecord {
	if months <= 0 {
		return records
	}
	cutoff := now.AddDate(0, -months, 0)

	out := make([]PermutationRecord, 0, len(records))
	for _, r := range records {
		if r.Whois.CreationDate != nil && !r.Whois.CreationDate.Before(cutoff) {
			out = append(out, r)
		}
	}
	return out
}
