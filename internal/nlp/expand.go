package nlp

import "strings"

// expander adds synonyms for tokens and detected phrases.
type expander struct {
	synonyms map[string][]string
	phrases  [][]string
}

func newExpander(d Dictionary) *expander {
	e := &expander{synonyms: d.Synonyms}
	for _, p := range d.Phrases {
		if words := strings.Fields(strings.ToLower(p)); len(words) > 1 {
			e.phrases = append(e.phrases, words)
		}
	}
	return e
}

// phrasesIn returns the dictionary phrases that occur as contiguous runs in
// tokens, in order of first occurrence.
func (e *expander) phrasesIn(tokens []string) []string {
	var found []string
	seen := make(map[string]struct{})
	for i := range tokens {
		for _, words := range e.phrases {
			if i+len(words) > len(tokens) || !matchAt(tokens, i, words) {
				continue
			}
			p := strings.Join(words, " ")
			if _, ok := seen[p]; !ok {
				seen[p] = struct{}{}
				found = append(found, p)
			}
		}
	}
	return found
}

// expand returns tokens followed by new synonyms, without duplicates.
func (e *expander) expand(tokens []string) []string {
	out := make([]string, 0, len(tokens)*2)
	seen := make(map[string]struct{}, len(tokens)*2)
	add := func(t string) {
		if _, ok := seen[t]; ok {
			return
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}

	for _, t := range tokens {
		add(t)
	}
	keys := append(append([]string{}, tokens...), e.phrasesIn(tokens)...)
	for _, k := range keys {
		for _, syn := range e.synonyms[k] {
			// multi-word synonyms are matched term by term downstream
			for _, t := range Tokenize(syn) {
				add(t)
			}
		}
	}
	return out
}

func matchAt(tokens []string, i int, words []string) bool {
	for j, w := range words {
		if tokens[i+j] != w {
			return false
		}
	}
	return true
}
