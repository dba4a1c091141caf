package threatintel

import (
	"strings"
	"time"
)

// RiskInput is the subset of an assembled record the scorer needs. It
// is deliberately narrow so the scorer has no dependency on the record
// package (avoids an import cycle and keeps the scorer a pure function
// over plain values, per §4.4 "pure function over the assembled record").
type RiskInput struct {
	Fuzzer             string
	URLScan            *URLScanResult
	WhoisCreationDate  *time.Time
	WhoisRegistrarName string
	WhoisEmails        []string
	HTTPProbeActive    bool
	CTCount            int
}

var privacyProxyMarkers = []string{
	"privacy", "proxy", "whoisguard", "redacted", "domains by proxy",
	"private registration", "perfect privacy", "contact privacy",
}

// Score computes the §4.4 risk score: starts at 0, adds each matching
// signal's points, clamps to [0,100]. Deterministic given in.
func Score(in RiskInput) int {
	score := 0

	if in.URLScan != nil {
		switch in.URLScan.Verdict {
		case "malicious":
			score += 25
		case "suspicious":
			score += 15
		}
	}

	if in.WhoisCreationDate != nil {
		age := time.Since(*in.WhoisCreationDate)
		if age <= 90*24*time.Hour {
			score += 15
			if age <= 30*24*time.Hour {
				score += 10
			}
		}
	}

	if in.HTTPProbeActive {
		score += 10
	}

	if in.CTCount >= 1 {
		score += 5
	}

	switch in.Fuzzer {
	case "homoglyph", "idn-homograph":
		score += 10
	case "combo", "subdomain":
		score += 5
	}

	if usesPrivacyProxy(in.WhoisRegistrarName, in.WhoisEmails) {
		score += 5
	}

	if score > 100 {
		score = 100
	}
	if score < 0 {
		score = 0
	}
	return score
}

func usesPrivacyProxy(registrar string, emails []string) bool {
	lowerRegistrar := strings.ToLower(registrar)
	for _, marker := range privacyProxyMarkers {
		if strings.Contains(lowerRegistrar, marker) {
			return true
		}
	}
	for _, e := range emails {
		if strings.Contains(strings.ToLower(e), "proxy") || strings.Contains(strings.ToLower(e), "privacy") {
			return true
		}
	}
	return false
}
