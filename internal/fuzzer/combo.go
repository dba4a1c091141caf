package fuzzer

// comboCandidates implements the optional combo-squat fuzzer (§4.1.2):
// for each keyword K and separator S, emit label+S+K and K+S+label, plus
// bare digit-suffix variants label+[0-9]. Disabled by default because
// this family alone produces several hundred candidates per seed.
func (g *Generator) comboCandidates() []Candidate {
	var out []Candidate
	separators := []string{"", "-", "_"}

	for _, keyword := range g.cfg.ComboKeywords {
		for _, sep := range separators {
			out = append(out,
				Candidate{Fuzzer: "combo", Domain: g.fqdn(g.label + sep + keyword)},
				Candidate{Fuzzer: "combo", Domain: g.fqdn(keyword + sep + g.label)},
			)
		}
	}

	for c := '0'; c <= '9'; c++ {
		out = append(out, Candidate{Fuzzer: "combo", Domain: g.fqdn(g.label + string(c))})
	}

	return out
}
