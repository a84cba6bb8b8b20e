package nlp

import (
	"unicode/utf8"

	"github.com/hbollon/go-edlib"
)

const (
	maxEditDistance      = 2
	maxShortEditDistance = 1
	shortTokenLen        = 5
)

// corrector fixes tokens outside the known-terms set.
type corrector struct {
	misspellings map[string]string
	vocabulary   []string // sorted
	known        map[string]struct{}
}

func newCorrector(d Dictionary) *corrector {
	c := &corrector{
		misspellings: d.Misspellings,
		vocabulary:   union(d.Vocabulary, nil),
		known:        make(map[string]struct{}, len(d.Vocabulary)+len(d.Synonyms)),
	}
	for _, v := range c.vocabulary {
		c.known[v] = struct{}{}
	}
	for k, syns := range d.Synonyms {
		c.known[k] = struct{}{}
		for _, s := range syns {
			c.known[s] = struct{}{}
		}
	}
	return c
}

// correct returns the corrected token and whether it changed.
// extra holds terms that are known only for this call (corpus vocabulary).
func (c *corrector) correct(token string, extra map[string]struct{}) (string, bool) {
	if _, ok := c.known[token]; ok {
		return token, false
	}
	if _, ok := extra[token]; ok {
		return token, false
	}
	if fix, ok := c.misspellings[token]; ok {
		return fix, fix != token
	}

	limit := maxEditDistance
	if utf8.RuneCountInString(token) < shortTokenLen {
		limit = maxShortEditDistance
	}

	best, bestDist := "", limit+1
	// vocabulary is sorted, so the first candidate at a distance is the smallest
	for _, term := range c.vocabulary {
		d := edlib.OSADamerauLevenshteinDistance(token, term)
		if d < bestDist {
			best, bestDist = term, d
		}
	}
	if best == "" {
		return token, false
	}
	return best, true
}
