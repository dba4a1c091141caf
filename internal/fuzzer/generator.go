package fuzzer

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/net/idna"
	"golang.org/x/net/publicsuffix"
)

// Config toggles the optional fuzzer families (§4.1) and lets callers
// override the versioned data tables.
type Config struct {
	EnableCombosquatting bool
	EnableSoundalike     bool
	EnableIDNHomograph   bool

	TLDs           []string
	ComboKeywords  []string
	Confusables    map[rune][]rune
}

// Generator produces the candidate set for one seed domain. It holds no
// mutable state after construction and performs no I/O: Generate is a
// pure function of (seed, Config).
type Generator struct {
	label     string // registrable second-level label, e.g. "example"
	tld       string // registrable TLD, e.g. "com" or "co.uk"
	subdomain string
	seed      string // normalized "label.tld" form

	cfg Config
}

// NormalizeSeed lower-cases and punycodes a raw seed line, per the edge
// policy that internationalized seeds are punycoded before permutation
// (scenario 6: a seed spelled with a Cyrillic letter becomes its xn--
// punycode form, so its Unicode and punycode spellings are one seed; it
// stays distinct from the all-Latin domain it imitates).
func NormalizeSeed(raw string) (string, error) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if raw == "" {
		return "", fmt.Errorf("empty seed")
	}
	ascii, err := idna.Lookup.ToASCII(raw)
	if err != nil {
		// idna.Lookup is strict (BIDI/STD3 rules); fall back to the
		// lenient profile so syntactically odd-but-harmless seeds
		// still normalize instead of being rejected outright.
		ascii, err = idna.ToASCII(raw)
		if err != nil {
			return "", fmt.Errorf("normalize seed %q: %w", raw, err)
		}
	}
	return ascii, nil
}

// New builds a Generator for an already-normalized seed.
func New(seed string, cfg Config) (*Generator, error) {
	if !strings.Contains(seed, ".") {
		return nil, fmt.Errorf("invalid domain name: %s", seed)
	}

	label, tld, subdomain := splitRegistrable(seed)
	if label == "" || tld == "" {
		return nil, fmt.Errorf("invalid domain name: %s", seed)
	}

	if cfg.TLDs == nil {
		cfg.TLDs = defaultTLDs()
	}
	if cfg.ComboKeywords == nil {
		cfg.ComboKeywords = defaultComboKeywords()
	}
	if cfg.Confusables == nil {
		cfg.Confusables = defaultConfusables()
	}

	return &Generator{
		label:     label,
		tld:       tld,
		subdomain: subdomain,
		seed:      seed,
		cfg:       cfg,
	}, nil
}

// Stream emits candidates on a channel as they are produced, so a caller
// that only needs the head of the sequence never pays for the full
// combo-squat/soundalike expansion (§4.1 budget warning).
func (g *Generator) Stream() <-chan Candidate {
	out := make(chan Candidate, 64)
	go func() {
		defer close(out)
		seen := make(map[string]string) // domain -> fuzzer that won

		normalize := func(fuzzer, domain string) (Candidate, bool) {
			ascii, ok := g.toLegalASCII(strings.ToLower(domain))
			if !ok {
				return Candidate{}, false
			}
			return Candidate{Domain: ascii, Fuzzer: fuzzer}, true
		}

		// resolveTies picks, among everything produced so far for one
		// domain, "original" if present, else the lexicographically
		// first fuzzer tag, exactly as the dedup invariant requires.
		resolveTies := func(raw []Candidate) []Candidate {
			best := make(map[string]string, len(raw))
			for _, c := range raw {
				if cur, ok := best[c.Domain]; !ok || c.Fuzzer == "original" || (cur != "original" && c.Fuzzer < cur) {
					best[c.Domain] = c.Fuzzer
				}
			}
			resolved := make([]Candidate, 0, len(best))
			for domain, fuzzer := range best {
				resolved = append(resolved, Candidate{Domain: domain, Fuzzer: fuzzer})
			}
			sort.Slice(resolved, func(i, j int) bool { return resolved[i].Domain < resolved[j].Domain })
			return resolved
		}

		// The always-on classic set is small enough to fully resolve
		// before emitting, so ties within it follow the dedup rule
		// exactly rather than a first-come-first-served approximation.
		var classicRaw []Candidate
		if c, ok := normalize("original", g.fqdn(g.label)); ok {
			classicRaw = append(classicRaw, c)
		}
		for _, raw := range g.classicCandidates() {
			if c, ok := normalize(raw.Fuzzer, raw.Domain); ok {
				classicRaw = append(classicRaw, c)
			}
		}
		for _, c := range resolveTies(classicRaw) {
			seen[c.Domain] = c.Fuzzer
			out <- c
		}

		// Optional families are streamed lazily; a candidate already
		// decided by the classic pass is never reopened, and within an
		// optional family the first occurrence wins (each family's own
		// generation order is itself deterministic).
		emitIfNew := func(raw Candidate) {
			if c, ok := normalize(raw.Fuzzer, raw.Domain); ok {
				if _, dup := seen[c.Domain]; !dup {
					seen[c.Domain] = c.Fuzzer
					out <- c
				}
			}
		}

		if g.cfg.EnableCombosquatting {
			for _, c := range g.comboCandidates() {
				emitIfNew(c)
			}
		}
		if g.cfg.EnableSoundalike {
			for _, c := range g.soundalikeCandidates() {
				emitIfNew(c)
			}
		}
		if g.cfg.EnableIDNHomograph {
			for _, c := range g.idnHomographCandidates() {
				emitIfNew(c)
			}
		}
	}()
	return out
}

// Generate drains Stream into a slice, already deduplicated and in
// domain order for the classic set; optional-family candidates are
// appended in their generation order behind it.
func (g *Generator) Generate() []Candidate {
	var out []Candidate
	for c := range g.Stream() {
		out = append(out, c)
	}
	return out
}

// splitRegistrable splits a normalized seed into its registrable label,
// public-suffix TLD, and any leading subdomain, using the Public Suffix
// List so multi-label TLDs (co.uk, com.au, ...) split correctly instead
// of the naive last-dot heuristic a single-TLD-aware split would use.
func splitRegistrable(seed string) (label, tld, subdomain string) {
	suffix, _ := publicsuffix.PublicSuffix(seed)
	if suffix == "" || suffix == seed || !strings.HasSuffix(seed, "."+suffix) {
		// Unknown or degenerate suffix (e.g. a single-label seed, or a
		// TLD not in the list): fall back to a plain last-label split.
		parts := strings.Split(seed, ".")
		if len(parts) < 2 {
			return "", "", ""
		}
		return parts[len(parts)-2], parts[len(parts)-1], strings.Join(parts[:len(parts)-2], ".")
	}

	rest := strings.TrimSuffix(seed, "."+suffix)
	parts := strings.Split(rest, ".")
	return parts[len(parts)-1], suffix, strings.Join(parts[:len(parts)-1], ".")
}

func (g *Generator) fqdn(label string) string {
	if g.subdomain != "" {
		return fmt.Sprintf("%s.%s.%s", g.subdomain, label, g.tld)
	}
	return fmt.Sprintf("%s.%s", label, g.tld)
}

// toLegalASCII punycodes a candidate domain (classic/IDN fuzzers may
// emit non-ASCII runes) and rejects it if it is not DNS-label-legal
// afterwards, per §4.1's edge policy.
func (g *Generator) toLegalASCII(domain string) (string, bool) {
	ascii := domain
	if !isASCII(domain) {
		var err error
		ascii, err = idna.ToASCII(domain)
		if err != nil {
			return "", false
		}
	}
	ascii = strings.ToLower(ascii)
	if !isLegalLabel(ascii) {
		return "", false
	}
	return ascii, true
}

func isASCII(s string) bool {
	for _, r := range s {
		if r > 127 {
			return false
		}
	}
	return true
}
