package threatintel

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestScore_NoSignalsIsZero(t *testing.T) {
	require.Equal(t, 0, Score(RiskInput{}))
}

func TestScore_MaliciousURLScan(t *testing.T) {
	require.Equal(t, 25, Score(RiskInput{URLScan: &URLScanResult{Verdict: "malicious"}}))
}

func TestScore_SuspiciousURLScan(t *testing.T) {
	require.Equal(t, 15, Score(RiskInput{URLScan: &URLScanResult{Verdict: "suspicious"}}))
}

func TestScore_RecentRegistrationStacksBonus(t *testing.T) {
	tenDaysAgo := time.Now().Add(-10 * 24 * time.Hour)
	require.Equal(t, 25, Score(RiskInput{WhoisCreationDate: &tenDaysAgo}))

	sixtyDaysAgo := time.Now().Add(-60 * 24 * time.Hour)
	require.Equal(t, 15, Score(RiskInput{WhoisCreationDate: &sixtyDaysAgo}))

	oldDomain := time.Now().Add(-365 * 24 * time.Hour)
	require.Equal(t, 0, Score(RiskInput{WhoisCreationDate: &oldDomain}))
}

func TestScore_FuzzerSignals(t *testing.T) {
	require.Equal(t, 10, Score(RiskInput{Fuzzer: "homoglyph"}))
	require.Equal(t, 10, Score(RiskInput{Fuzzer: "idn-homograph"}))
	require.Equal(t, 5, Score(RiskInput{Fuzzer: "combo"}))
	require.Equal(t, 5, Score(RiskInput{Fuzzer: "subdomain"}))
	require.Equal(t, 0, Score(RiskInput{Fuzzer: "addition"}))
}

func TestScore_PrivacyProxyHeuristic(t *testing.T) {
	require.Equal(t, 5, Score(RiskInput{WhoisRegistrarName: "WhoisGuard Inc."}))
	require.Equal(t, 5, Score(RiskInput{WhoisEmails: []string{"abuse@domainsbyproxy.com"}}))
}

func TestScore_AllSignalsSumToEighty(t *testing.T) {
	tenDaysAgo := time.Now().Add(-10 * 24 * time.Hour)
	in := RiskInput{
		URLScan:            &URLScanResult{Verdict: "malicious"},
		WhoisCreationDate:  &tenDaysAgo,
		WhoisRegistrarName: "Privacy Inc",
		HTTPProbeActive:    true,
		CTCount:            3,
		Fuzzer:             "homoglyph",
	}
	// 25 malicious + 25 recent + 10 active + 5 CT + 10 homoglyph + 5 privacy.
	require.Equal(t, 80, Score(in))
}

func TestScore_HTTPAndCTSignals(t *testing.T) {
	require.Equal(t, 10, Score(RiskInput{HTTPProbeActive: true}))
	require.Equal(t, 5, Score(RiskInput{CTCount: 1}))
	require.Equal(t, 5, Score(RiskInput{CTCount: 7}))
}
