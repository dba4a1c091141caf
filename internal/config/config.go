// Package config holds the immutable configuration value threaded
// through every Typo Sniper component. Populating it from YAML, env
// vars, and CLI flags is the out-of-scope collaborator's job (§6);
// this package only defines the shape and the defaults.
package config

import "time"

// Config is built once and never mutated after construction, per the
// "global configuration object → explicit context" design note.
type Config struct {
	MaxWorkers     int           `yaml:"max_workers"`
	RateLimitDelay time.Duration `yaml:"rate_limit_delay"`

	UseCache bool   `yaml:"use_cache"`
	CacheDir string `yaml:"cache_dir"`
	CacheTTL time.Duration `yaml:"cache_ttl"`

	MonthsFilter int `yaml:"months_filter"`

	DNSRetryCount int `yaml:"dns_retry_count"`

	WhoisTimeout    time.Duration `yaml:"whois_timeout"`
	WhoisRetryCount int           `yaml:"whois_retry_count"`
	WhoisRetryDelay time.Duration `yaml:"whois_retry_delay"`

	EnableCombosquatting bool `yaml:"enable_combosquatting"`
	EnableSoundalike     bool `yaml:"enable_soundalike"`
	EnableIDNHomograph   bool `yaml:"enable_idn_homograph"`

	EnableURLScan        Tri           `yaml:"enable_urlscan"`
	URLScanAPIKey        string        `yaml:"urlscan_api_key"`
	URLScanMaxAgeDays    int           `yaml:"urlscan_max_age_days"`
	URLScanWaitTimeout   time.Duration `yaml:"urlscan_wait_timeout"`
	URLScanVisibility    string        `yaml:"urlscan_visibility"`
	URLScanSubmitInterval time.Duration `yaml:"urlscan_submit_interval"`

	EnableCertificateTransparency bool          `yaml:"enable_certificate_transparency"`
	EnableHTTPProbe               bool          `yaml:"enable_http_probe"`
	HTTPTimeout                   time.Duration `yaml:"http_timeout"`

	EnableRiskScoring bool `yaml:"enable_risk_scoring"`

	EnableML                 bool    `yaml:"enable_ml"`
	MLModelPath              string  `yaml:"ml_model_path"`
	MLConfidenceThreshold    float64 `yaml:"ml_confidence_threshold"`
	MLEnableActiveLearning   bool    `yaml:"ml_enable_active_learning"`
	MLUncertaintyThreshold   float64 `yaml:"ml_uncertainty_threshold"`
	MLReviewBudget           int     `yaml:"ml_review_budget"`

	// GlobalDeadline, if non-zero, aborts in-flight enrichments (§4.5).
	GlobalDeadline time.Duration `yaml:"global_deadline"`

	// Debug gates verbose/debug-level logging.
	Debug bool `yaml:"debug"`

	// EnricherConcurrency overrides the default per-enricher semaphore sizes.
	EnricherConcurrency EnricherConcurrency `yaml:"enricher_concurrency"`
}

// Tri is a three-valued enable field replacing the "auto-enable when
// key present" special case with an explicit, testable tri-state.
type Tri int

const (
	// Auto enables the feature iff a non-empty secret resolves.
	Auto Tri = iota
	ForceOn
	ForceOff
)

func (t Tri) String() string {
	switch t {
	case ForceOn:
		return "force_on"
	case ForceOff:
		return "force_off"
	default:
		return "auto"
	}
}

// EnricherConcurrency holds the per-enricher semaphore sizes (§4.5).
type EnricherConcurrency struct {
	Whois     int `yaml:"whois"`
	URLScan   int `yaml:"urlscan"`
	CT        int `yaml:"certificate_transparency"`
	HTTPProbe int `yaml:"http_probe"`
}

// Default returns the configuration with every §6 default applied.
func Default() Config {
	return Config{
		MaxWorkers:     10,
		RateLimitDelay: time.Second,

		UseCache: true,
		CacheDir: ".typo-sniper-cache",
		CacheTTL: 24 * time.Hour,

		MonthsFilter: 0,

		DNSRetryCount: 2,

		WhoisTimeout:    30 * time.Second,
		WhoisRetryCount: 2,
		WhoisRetryDelay: 5 * time.Second,

		EnableCombosquatting: false,
		EnableSoundalike:     false,
		EnableIDNHomograph:   false,

		EnableURLScan:         Auto,
		URLScanMaxAgeDays:     7,
		URLScanWaitTimeout:    90 * time.Second,
		URLScanVisibility:     "public",
		URLScanSubmitInterval: time.Second,

		EnableCertificateTransparency: false,
		EnableHTTPProbe:               false,
		HTTPTimeout:                   10 * time.Second,

		EnableRiskScoring: true,

		EnableML:               false,
		MLConfidenceThreshold:  0.5,
		MLEnableActiveLearning: false,
		MLUncertaintyThreshold: 0.15,
		MLReviewBudget:         50,

		EnricherConcurrency: EnricherConcurrency{
			Whois:     8,
			URLScan:   4,
			CT:        10,
			HTTPProbe: 20,
		},
	}
}
