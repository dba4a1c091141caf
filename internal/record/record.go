// Package record defines the PermutationRecord schema (§3) — the unit
// the Scheduler assembles and every exporter consumes — plus the
// months_filter post-filter and the §3 I4 stable sort. It is grounded on
// the teacher's pkg/dnstwist/models.go JSON-tagged result shape,
// generalized to the full §3 field set.
package record

import (
	"time"

	"github.com/typosniper/typo-sniper/internal/threatintel"
	"github.com/typosniper/typo-sniper/internal/whois"
)

// DNSFacts is the §3 dns.* field group.
type DNSFacts struct {
	A    []string `json:"a"`
	AAAA []string `json:"aaaa"`
	MX   []string `json:"mx"`
	NS   []string `json:"ns"`
}

// WhoisFacts mirrors whois.Record under the §3 `whois` key; it is a
// distinct type (rather than a re-export) so the record schema owns its
// own JSON tags independent of the enricher's internal shape.
type WhoisFacts struct {
	Registrar      *string    `json:"registrar"`
	CreationDate   *time.Time `json:"creation_date"`
	UpdatedDate    *time.Time `json:"updated_date"`
	ExpirationDate *time.Time `json:"expiration_date"`
	NameServers    []string   `json:"name_servers"`
	Status         []string   `json:"status"`
	Emails         []string   `json:"emails"`
	RawOK          bool       `json:"raw_ok"`
}

func whoisFactsFrom(r *whois.Record) WhoisFacts {
	if r == nil {
		return WhoisFacts{}
	}
	return WhoisFacts{
		Registrar:      r.Registrar,
		CreationDate:   r.CreationDate,
		UpdatedDate:    r.UpdatedDate,
		ExpirationDate: r.ExpirationDate,
		NameServers:    r.NameServers,
		Status:         r.Status,
		Emails:         r.Emails,
		RawOK:          r.RawOK,
	}
}

// ThreatIntel is the §3 threat_intel field group; each sub-field is nil
// (I2) iff its enricher was disabled, skipped, or failed after retries.
type ThreatIntel struct {
	URLScan                 *threatintel.URLScanResult `json:"urlscan"`
	CertificateTransparency *threatintel.CTResult      `json:"certificate_transparency"`
	HTTPProbe               *threatintel.HTTPProbeResult `json:"http_probe"`
}

// MLResult is the §3 `ml` field, the optional post-enrichment scorer's
// verdict. It is nil whenever the hook is disabled or failed (§4.7).
type MLResult struct {
	Risk         int     `json:"risk"`
	Confidence   float64 `json:"confidence"`
	Verdict      string  `json:"verdict"`
	NeedsReview  bool    `json:"needs_review"`
	Explanation  string  `json:"explanation"`
}

// PermutationRecord is the per-candidate unit emitted to exporters.
// Immutable after assembly (§3 Lifecycle).
type PermutationRecord struct {
	Seed       string      `json:"seed"`
	Domain     string      `json:"domain"`
	Fuzzer     string      `json:"fuzzer"`
	Registered bool        `json:"registered"`
	DNS        DNSFacts    `json:"dns"`
	Whois      WhoisFacts  `json:"whois"`
	ThreatIntel ThreatIntel `json:"threat_intel"`
	RiskScore  int         `json:"risk_score"`
	ML         *MLResult   `json:"ml"`
}

// FromWhois converts the enricher's raw Record into the schema's
// WhoisFacts, exposed so the scheduler doesn't need its own copy of the
// field-by-field mapping.
func FromWhois(r *whois.Record) WhoisFacts {
	return whoisFactsFrom(r)
}
