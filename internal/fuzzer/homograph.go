package fuzzer

// idnHomographCandidates implements the optional IDN homograph fuzzer
// (§4.1.4): substitute each label position with a visually-confusable
// non-ASCII code point drawn from the versioned confusables table.
// Results carry non-ASCII runes; toLegalASCII punycodes them (and drops
// anything that fails to round-trip) before they reach the caller.
func (g *Generator) idnHomographCandidates() []Candidate {
	var out []Candidate
	runes := []rune(g.label)
	for i, c := range runes {
		for _, confusable := range g.cfg.Confusables[c] {
			newRunes := make([]rune, len(runes))
			copy(newRunes, runes)
			newRunes[i] = confusable
			out = append(out, Candidate{Fuzzer: "idn-homograph", Domain: g.fqdn(string(newRunes))})
		}
	}
	return out
}
