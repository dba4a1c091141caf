// Package threatintel implements the Threat-Intel Enrichers (C5):
// URLScan, Certificate Transparency, and an HTTP probe, plus the pure
// Risk Scorer (§4.4) that folds their results together.
package threatintel

import "time"

// URLScanResult is the §3 threat_intel.urlscan shape.
type URLScanResult struct {
	Verdict       string `json:"verdict"`
	Score         int    `json:"score"`
	ReportURL     string `json:"report_url"`
	ScreenshotURL string `json:"screenshot_url"`
	ScanAgeDays   int    `json:"scan_age_days"`
	Source        string `json:"source"`
}

// CTResult is the §3 threat_intel.certificate_transparency shape.
type CTResult struct {
	Count     int       `json:"count"`
	Issuers   []string  `json:"issuers"`
	FirstSeen time.Time `json:"first_seen"`
	LastSeen  time.Time `json:"last_seen"`
}

// HTTPProbeResult is the §3 threat_intel.http_probe shape.
type HTTPProbeResult struct {
	StatusCode  *int   `json:"status_code"`
	Active      bool   `json:"active"`
	FinalURL    string `json:"final_url"`
	ChainLength int    `json:"chain_length"`
}
