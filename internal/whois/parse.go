package whois

import (
	"regexp"
	"strings"
	"time"
)

// dateLayouts covers the registry formats actually seen in the wild;
// registries disagree wildly on WHOIS date formatting and there is no
// single standard to parse against.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05Z",
	"2006-01-02T15:04:05.999999999Z",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"02-Jan-2006",
	"20060102",
	"2006.01.02",
	"Mon Jan 02 2006",
}

var fieldPatterns = map[string]*regexp.Regexp{
	"registrar":       regexp.MustCompile(`(?im)^\s*(?:Registrar|Sponsoring Registrar)\s*:\s*(.+)$`),
	"creation_date":   regexp.MustCompile(`(?im)^\s*(?:Creation Date|Domain Registration Date|created|Registered On)\s*:\s*(.+)$`),
	"updated_date":    regexp.MustCompile(`(?im)^\s*(?:Updated Date|Last Updated On|changed)\s*:\s*(.+)$`),
	"expiration_date": regexp.MustCompile(`(?im)^\s*(?:Registry Expiry Date|Expiration Date|Expiry Date|paid-till)\s*:\s*(.+)$`),
}

var (
	nameServerPattern = regexp.MustCompile(`(?im)^\s*Name Server\s*:\s*(.+)$`)
	statusPattern     = regexp.MustCompile(`(?im)^\s*Domain Status\s*:\s*(\S+)`)
	emailPattern      = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)
)

// parseRecord extracts the §3 WHOIS fields from a raw WHOIS response.
// Unparseable date fields are left nil with RawOK still true, per §4.3
// ("parsed fields null on failure, the raw record still counts as a
// successful fetch").
func parseRecord(body string) *Record {
	rec := &Record{RawOK: true}

	if m := fieldPatterns["registrar"].FindStringSubmatch(body); m != nil {
		v := strings.TrimSpace(m[1])
		rec.Registrar = &v
	}
	rec.CreationDate = parseDateField(fieldPatterns["creation_date"], body)
	rec.UpdatedDate = parseDateField(fieldPatterns["updated_date"], body)
	rec.ExpirationDate = parseDateField(fieldPatterns["expiration_date"], body)

	rec.NameServers = uniqueLower(nameServerPattern.FindAllStringSubmatch(body, -1))
	rec.Status = uniqueStatuses(statusPattern.FindAllStringSubmatch(body, -1))

	seenEmail := make(map[string]bool)
	for _, e := range emailPattern.FindAllString(body, -1) {
		e = strings.ToLower(e)
		if !seenEmail[e] {
			seenEmail[e] = true
			rec.Emails = append(rec.Emails, e)
		}
	}

	return rec
}

func parseDateField(pattern *regexp.Regexp, body string) *time.Time {
	m := pattern.FindStringSubmatch(body)
	if m == nil {
		return nil
	}
	raw := strings.TrimSpace(m[1])
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t
		}
	}
	return nil
}

func uniqueLower(matches [][]string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, m := range matches {
		v := strings.ToLower(strings.TrimSpace(m[1]))
		if v != "" && !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}

func uniqueStatuses(matches [][]string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, m := range matches {
		v := strings.TrimSpace(m[1])
		if v != "" && !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}
