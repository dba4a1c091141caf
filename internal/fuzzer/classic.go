package fuzzer

import "strings"

// classicCandidates runs every always-on single-edit fuzzer over the
// registrable label. It is a direct generalization of the teacher's
// Fuzzer.Generate switch: every case below used to be toggled on by
// name; here they always run, since §4.1 marks the whole set always on.
func (g *Generator) classicCandidates() []Candidate {
	var out []Candidate
	out = append(out, g.addition()...)
	out = append(out, g.omission()...)
	out = append(out, g.repetition()...)
	out = append(out, g.replacement()...)
	out = append(out, g.transposition()...)
	out = append(out, g.hyphenation()...)
	out = append(out, g.vowelSwap()...)
	out = append(out, g.bitsquatting()...)
	out = append(out, g.homoglyph()...)
	out = append(out, g.tldSwap()...)
	out = append(out, g.subdomainInsert()...)
	return out
}

func (g *Generator) addition() []Candidate {
	var out []Candidate
	for c := 'a'; c <= 'z'; c++ {
		out = append(out, Candidate{Fuzzer: "addition", Domain: g.fqdn(g.label + string(c))})
	}
	for c := '0'; c <= '9'; c++ {
		out = append(out, Candidate{Fuzzer: "addition", Domain: g.fqdn(g.label + string(c))})
	}
	return out
}

func (g *Generator) omission() []Candidate {
	var out []Candidate
	for i := range g.label {
		out = append(out, Candidate{Fuzzer: "omission", Domain: g.fqdn(g.label[:i] + g.label[i+1:])})
	}
	return out
}

func (g *Generator) repetition() []Candidate {
	var out []Candidate
	for i := range g.label {
		newLabel := g.label[:i] + string(g.label[i]) + g.label[i:]
		out = append(out, Candidate{Fuzzer: "repetition", Domain: g.fqdn(newLabel)})
	}
	return out
}

var keyboardAdjacency = map[rune]string{
	'a': "qwsz", 'b': "vghn", 'c': "xdfv", 'd': "serfcx", 'e': "wrsd",
	'f': "drtgvc", 'g': "ftyhbv", 'h': "gyujnb", 'i': "ujko", 'j': "huikmn",
	'k': "jiolm", 'l': "kop", 'm': "njk", 'n': "bhjm", 'o': "iklp",
	'p': "ol", 'q': "wa", 'r': "edft", 's': "awedxz", 't': "rfgy",
	'u': "yhji", 'v': "cfgb", 'w': "qase", 'x': "zsdc", 'y': "tghu", 'z': "asx",
}

func (g *Generator) replacement() []Candidate {
	var out []Candidate
	for i, c := range g.label {
		for _, r := range keyboardAdjacency[c] {
			newLabel := g.label[:i] + string(r) + g.label[i+1:]
			out = append(out, Candidate{Fuzzer: "replacement", Domain: g.fqdn(newLabel)})
		}
	}
	return out
}

func (g *Generator) transposition() []Candidate {
	var out []Candidate
	for i := 0; i < len(g.label)-1; i++ {
		newLabel := g.label[:i] + string(g.label[i+1]) + string(g.label[i]) + g.label[i+2:]
		out = append(out, Candidate{Fuzzer: "transposition", Domain: g.fqdn(newLabel)})
	}
	return out
}

func (g *Generator) hyphenation() []Candidate {
	var out []Candidate
	for i := 1; i < len(g.label); i++ {
		newLabel := g.label[:i] + "-" + g.label[i:]
		out = append(out, Candidate{Fuzzer: "hyphenation", Domain: g.fqdn(newLabel)})
	}
	return out
}

const vowels = "aeiou"

func (g *Generator) vowelSwap() []Candidate {
	var out []Candidate
	for i, c := range g.label {
		if !strings.ContainsRune(vowels, c) {
			continue
		}
		for _, v := range vowels {
			if v == c {
				continue
			}
			newLabel := g.label[:i] + string(v) + g.label[i+1:]
			out = append(out, Candidate{Fuzzer: "vowel-swap", Domain: g.fqdn(newLabel)})
		}
	}
	return out
}

func (g *Generator) bitsquatting() []Candidate {
	var out []Candidate
	for i := 0; i < len(g.label); i++ {
		c := g.label[i]
		for bit := 0; bit < 8; bit++ {
			flipped := c ^ (1 << uint(bit))
			if (flipped >= 'a' && flipped <= 'z') || (flipped >= '0' && flipped <= '9') || flipped == '-' {
				newLabel := g.label[:i] + string(flipped) + g.label[i+1:]
				out = append(out, Candidate{Fuzzer: "bitsquat", Domain: g.fqdn(newLabel)})
			}
		}
	}
	return out
}

// classicHomoglyphs is the small, always-on single-character confusable
// table; idnHomographCandidates (homograph.go) draws on the larger,
// versioned confusables.txt table instead.
var classicHomoglyphs = map[rune][]rune{
	'a': {'а', 'α'}, 'c': {'с'}, 'e': {'е'}, 'i': {'і'}, 'o': {'о', 'ο'},
	'p': {'р'}, 's': {'ѕ'}, 'x': {'х'}, 'y': {'у'},
}

func (g *Generator) homoglyph() []Candidate {
	var out []Candidate
	for i, c := range g.label {
		for _, r := range classicHomoglyphs[c] {
			newLabel := g.label[:i] + string(r) + g.label[i+1:]
			out = append(out, Candidate{Fuzzer: "homoglyph", Domain: g.fqdn(newLabel)})
		}
	}
	return out
}

func (g *Generator) tldSwap() []Candidate {
	var out []Candidate
	for _, tld := range g.cfg.TLDs {
		if tld == g.tld {
			continue
		}
		out = append(out, Candidate{Fuzzer: "tld-swap", Domain: g.fqdnWithTLD(g.label, tld)})
	}
	return out
}

func (g *Generator) fqdnWithTLD(label, tld string) string {
	if g.subdomain != "" {
		return g.subdomain + "." + label + "." + tld
	}
	return label + "." + tld
}

func (g *Generator) subdomainInsert() []Candidate {
	var out []Candidate
	for i := 1; i < len(g.label)-1; i++ {
		if g.label[i] == '-' || g.label[i-1] == '-' {
			continue
		}
		newLabel := g.label[:i] + "." + g.label[i:]
		out = append(out, Candidate{Fuzzer: "subdomain", Domain: g.fqdn(newLabel)})
	}
	return out
}
