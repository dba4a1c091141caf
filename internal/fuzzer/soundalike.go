package fuzzer

import "github.com/antzucaro/matchr"

// soundalikeCandidates implements the optional sound-alike fuzzer
// (§4.1.3): every edit-distance-1 ASCII string over the label that
// shares the original label's Soundex code or double-Metaphone code.
func (g *Generator) soundalikeCandidates() []Candidate {
	wantSoundex := matchr.Soundex(g.label)
	wantMetaphonePrimary, wantMetaphoneSecondary := matchr.DoubleMetaphone(g.label)

	matches := func(candidate string) bool {
		if candidate == g.label {
			return false
		}
		if matchr.Soundex(candidate) == wantSoundex {
			return true
		}
		primary, secondary := matchr.DoubleMetaphone(candidate)
		return primary == wantMetaphonePrimary || primary == wantMetaphoneSecondary ||
			secondary == wantMetaphonePrimary || secondary == wantMetaphoneSecondary
	}

	seen := make(map[string]struct{})
	var out []Candidate
	add := func(candidate string) {
		if _, dup := seen[candidate]; dup {
			return
		}
		seen[candidate] = struct{}{}
		if matches(candidate) {
			out = append(out, Candidate{Fuzzer: "soundalike", Domain: g.fqdn(candidate)})
		}
	}

	for i := range g.label {
		for c := 'a'; c <= 'z'; c++ {
			add(g.label[:i] + string(c) + g.label[i+1:])
		}
	}
	for i := 0; i <= len(g.label); i++ {
		for c := 'a'; c <= 'z'; c++ {
			add(g.label[:i] + string(c) + g.label[i:])
		}
	}
	for i := range g.label {
		add(g.label[:i] + g.label[i+1:])
	}

	return out
}
