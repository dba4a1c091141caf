// Command typo-sniper is the CLI shell around the detection/enrichment
// engine (internal/scheduler). Per SPEC_FULL.md it is a thin,
// out-of-scope collaborator: it parses flags, loads YAML, overlays env
// vars, and calls into the core engine — it contains no detection
// logic of its own. Modeled on the teacher's cmd/dnstwist/main.go cobra
// wiring, reworked to the §6 flag set.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/projectdiscovery/gologger"
	"github.com/projectdiscovery/gologger/levels"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/typosniper/typo-sniper/internal/config"
	"github.com/typosniper/typo-sniper/internal/export"
	"github.com/typosniper/typo-sniper/internal/record"
	"github.com/typosniper/typo-sniper/internal/scheduler"
	"github.com/typosniper/typo-sniper/internal/secrets"
	"github.com/typosniper/typo-sniper/internal/xerrors"
)

const version = "0.1.0"

// cliFlags holds the raw flag values cobra populates; they are
// resolved onto a config.Config only after YAML/env overlay so CLI
// flags can win per §6's stated priority (YAML, then env, then CLI).
type cliFlags struct {
	input       string
	outputDir   string
	formats     []string
	months      int
	configFile  string
	maxWorkers  int
	cacheTTLSec int
	noCache     bool
	enableML    bool
	mlModelPath string
	mlReview    int
	debug       bool
	verbose     bool
}

func main() {
	var flags cliFlags

	exitCode := 0
	root := &cobra.Command{
		Use:     "typo-sniper",
		Short:   "Detects domains that impersonate a set of monitored brand domains",
		Version: version,
		RunE: func(cmd *cobra.Command, args []string) error {
			code, err := run(cmd.Context(), flags)
			exitCode = code
			return err
		},
	}

	root.Flags().StringVarP(&flags.input, "input", "i", "", "Seed domain list (one per line)")
	root.Flags().StringVarP(&flags.outputDir, "output", "o", ".", "Directory to write reports into")
	root.Flags().StringSliceVar(&flags.formats, "format", []string{"json"}, "Output formats (excel, json, csv, html)")
	root.Flags().IntVar(&flags.months, "months", 0, "Emit only candidates registered within the last N months (0=off)")
	root.Flags().StringVar(&flags.configFile, "config", "", "YAML configuration file")
	root.Flags().IntVar(&flags.maxWorkers, "max-workers", 0, "Worker pool size (0=use config/default)")
	root.Flags().IntVar(&flags.cacheTTLSec, "cache-ttl", 0, "Cache TTL in seconds (0=use config/default)")
	root.Flags().BoolVar(&flags.noCache, "no-cache", false, "Disable the on-disk cache")
	root.Flags().BoolVar(&flags.enableML, "ml", false, "Enable the ML scoring hook")
	root.Flags().StringVar(&flags.mlModelPath, "ml-model", "", "Path to the ML model")
	root.Flags().IntVar(&flags.mlReview, "ml-review", 0, "Active-learning review budget (0=use config/default)")
	root.Flags().BoolVarP(&flags.debug, "debug", "d", false, "Enable debug logging")
	root.Flags().BoolVarP(&flags.verbose, "verbose", "v", false, "Enable verbose logging")
	root.MarkFlagRequired("input")

	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if exitCode == 0 {
			exitCode = 1
		}
	}
	os.Exit(exitCode)
}

// run executes one scan and returns the §6 process exit code: 0 on a
// clean run, 1 on a fatal configuration/IO error (returned as err so
// cobra prints it), 2 when the scan completed but some seeds produced
// zero records due to repeated transient errors.
func run(ctx context.Context, flags cliFlags) (int, error) {
	configureLogging(flags)

	cfg, err := loadConfig(flags)
	if err != nil {
		wrapped := xerrors.New(xerrors.KindConfig, "load_config", err)
		return exitFor(wrapped), wrapped
	}

	seeds, err := readSeeds(flags.input)
	if err != nil {
		wrapped := xerrors.New(xerrors.KindInput, "read_seeds", err)
		return exitFor(wrapped), wrapped
	}
	if len(seeds) == 0 {
		noSeeds := xerrors.New(xerrors.KindInput, "read_seeds", fmt.Errorf("no valid seeds found in %s", flags.input))
		return exitFor(noSeeds), noSeeds
	}

	secretsResolver := secrets.New(nil)

	scan, err := scheduler.New(ctx, cfg, secretsResolver, nil, nil)
	if err != nil {
		wrapped := xerrors.New(xerrors.KindConfig, "init_scanner", err)
		return exitFor(wrapped), wrapped
	}

	records, meta, summary := scan.Scan(ctx, seeds)

	gologger.Info().Msgf("scan complete: %d seeds attempted, %d records emitted, %d seeds empty",
		summary.SeedsAttempted, summary.RecordsEmitted, summary.SeedsEmptyResult)
	for enricher, n := range summary.DegradedEnrichers {
		gologger.Warning().Msgf("enricher %s degraded on %d candidates", enricher, n)
	}
	if len(summary.ReviewBatch) > 0 {
		gologger.Info().Msgf("active learning: %d domains flagged for review: %s",
			len(summary.ReviewBatch), strings.Join(summary.ReviewBatch, ", "))
	}

	if err := writeReports(flags, meta, records); err != nil {
		wrapped := xerrors.New(xerrors.KindConfig, "write_reports", err)
		return exitFor(wrapped), wrapped
	}

	return summary.ExitCode(), nil
}

// exitFor maps a pre-scan error to the §6 process exit code. Every
// error reaching run() before Scan completes is a ConfigError or an
// all-seeds-empty InputError — xerrors.Fatal confirms that's the case
// rather than trusting the call site, so a future error wrapped under
// a non-fatal Kind (e.g. EnrichmentMiss) here would be caught as a
// misuse during review instead of silently aborting the process.
func exitFor(err error) int {
	if !xerrors.Fatal(xerrors.KindOf(err)) {
		gologger.Warning().Msgf("run: non-fatal error kind reached exitFor: %v", err)
	}
	return 1
}

func configureLogging(flags cliFlags) {
	if flags.debug {
		gologger.DefaultLogger.SetMaxLevel(levels.LevelDebug)
	} else if flags.verbose {
		gologger.DefaultLogger.SetMaxLevel(levels.LevelVerbose)
	}
}

// loadConfig builds a config.Config by starting from the package
// defaults, overlaying the YAML file (if any), then environment
// variables, then CLI flags — CLI always wins, per §6.
func loadConfig(flags cliFlags) (config.Config, error) {
	cfg := config.Default()

	if flags.configFile != "" {
		data, err := os.ReadFile(flags.configFile)
		if err != nil {
			return cfg, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parsing config file: %w", err)
		}
	}

	overlayEnv(&cfg)

	if flags.maxWorkers > 0 {
		cfg.MaxWorkers = flags.maxWorkers
	}
	if flags.cacheTTLSec > 0 {
		cfg.CacheTTL = time.Duration(flags.cacheTTLSec) * time.Second
	}
	if flags.noCache {
		cfg.UseCache = false
	}
	if flags.enableML {
		cfg.EnableML = true
	}
	if flags.mlModelPath != "" {
		cfg.MLModelPath = flags.mlModelPath
	}
	if flags.mlReview > 0 {
		cfg.MLReviewBudget = flags.mlReview
	}
	if flags.months > 0 {
		cfg.MonthsFilter = flags.months
	}
	if flags.debug {
		cfg.Debug = true
	}

	if cfg.MaxWorkers < 1 {
		return cfg, fmt.Errorf("max_workers must be >= 1, got %d", cfg.MaxWorkers)
	}
	return cfg, nil
}

// overlayEnv applies the handful of top-level config keys §6 documents
// as env-overridable, each read from TYPO_SNIPER_<KEY>. This is
// intentionally small and explicit rather than a reflective walk over
// every struct field — the CLI shell carries no detection logic, and a
// generic overlay would invite silent typo-driven misconfiguration.
func overlayEnv(cfg *config.Config) {
	if v := os.Getenv("TYPO_SNIPER_MAX_WORKERS"); v != "" {
		fmt.Sscanf(v, "%d", &cfg.MaxWorkers)
	}
	if v := os.Getenv("TYPO_SNIPER_CACHE_DIR"); v != "" {
		cfg.CacheDir = v
	}
	if v := os.Getenv("TYPO_SNIPER_ENABLE_URLSCAN"); v != "" {
		switch strings.ToLower(v) {
		case "true", "1", "force_on":
			cfg.EnableURLScan = config.ForceOn
		case "false", "0", "force_off":
			cfg.EnableURLScan = config.ForceOff
		default:
			cfg.EnableURLScan = config.Auto
		}
	}
}

// readSeeds parses the §6 input file format: UTF-8, one seed per line,
// blank lines and lines starting with "#" ignored.
func readSeeds(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	seen := make(map[string]bool)
	var seeds []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		lower := strings.ToLower(line)
		if seen[lower] {
			continue
		}
		seen[lower] = true
		seeds = append(seeds, lower)
	}
	return seeds, sc.Err()
}

// writeReports emits one file per requested format into flags.outputDir.
// Only "json" is implemented directly (internal/export); csv, html, and
// excel are the out-of-scope exporter collaborators §6 pins the
// interface for — requesting them here just logs that they're not
// wired into this CLI build.
func writeReports(flags cliFlags, meta record.ScanMeta, records []record.PermutationRecord) error {
	if err := os.MkdirAll(flags.outputDir, 0o755); err != nil {
		return fmt.Errorf("creating output dir: %w", err)
	}

	for _, format := range flags.formats {
		switch strings.ToLower(format) {
		case "json":
			path := fmt.Sprintf("%s/typo-sniper-report.json", strings.TrimRight(flags.outputDir, "/"))
			f, err := os.Create(path)
			if err != nil {
				return fmt.Errorf("creating %s: %w", path, err)
			}
			err = export.WriteJSON(f, meta, records)
			closeErr := f.Close()
			if err != nil {
				return fmt.Errorf("writing %s: %w", path, err)
			}
			if closeErr != nil {
				return fmt.Errorf("closing %s: %w", path, closeErr)
			}
			gologger.Info().Msgf("wrote %s", path)
		case "csv", "html", "excel":
			gologger.Warning().Msgf("format %q is produced by a separate exporter not wired into this build", format)
		default:
			gologger.Warning().Msgf("unknown format %q, skipping", format)
		}
	}
	return nil
}
