package scoring

import (
	"math"
	"sort"
)

// Params tunes BM25+.
type Params struct {
	K1    float64 `yaml:"k1"`
	B     float64 `yaml:"b"`
	Delta float64 `yaml:"delta"`
}

// DefaultParams returns k1=1.5, b=0.75, δ=0.5.
func DefaultParams() Params {
	return Params{K1: 1.5, B: 0.75, Delta: 0.5}
}

// Corpus holds term statistics for a tokenized document set.
// Documents are addressed by their position.
type Corpus struct {
	tf      []map[string]int
	lengths []int
	df      map[string]int
	avgdl   float64
}

// NewCorpus computes statistics over pre-tokenized documents.
func NewCorpus(docs [][]string) *Corpus {
	c := &Corpus{
		tf:      make([]map[string]int, len(docs)),
		lengths: make([]int, len(docs)),
		df:      make(map[string]int),
	}

	total := 0
	for i, terms := range docs {
		freq := make(map[string]int, len(terms))
		for _, t := range terms {
			freq[t]++
		}
		for t := range freq {
			c.df[t]++
		}
		c.tf[i] = freq
		c.lengths[i] = len(terms)
		total += len(terms)
	}
	if len(docs) > 0 {
		c.avgdl = float64(total) / float64(len(docs))
	}
	return c
}

// Len returns the number of documents.
func (c *Corpus) Len() int { return len(c.tf) }

// AvgDocLen returns the mean document length in tokens.
func (c *Corpus) AvgDocLen() float64 { return c.avgdl }

// DocFreq returns the number of documents containing term.
func (c *Corpus) DocFreq(term string) int { return c.df[term] }

// Vocabulary returns every distinct term, sorted.
func (c *Corpus) Vocabulary() []string {
	out := make([]string, 0, len(c.df))
	for t := range c.df {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// IDF is ln((N-n+0.5)/(n+0.5)+1); always positive.
func (c *Corpus) IDF(term string) float64 {
	n := float64(c.df[term])
	total := float64(len(c.tf))
	return math.Log((total-n+0.5)/(n+0.5) + 1)
}

// Score returns the BM25+ score of document i for terms.
// Duplicate terms count once; terms absent from the document contribute nothing.
func (c *Corpus) Score(i int, terms []string, p Params) float64 {
	if i < 0 || i >= len(c.tf) || c.avgdl == 0 {
		return 0
	}

	freq := c.tf[i]
	norm := 1 - p.B + p.B*float64(c.lengths[i])/c.avgdl
	seen := make(map[string]struct{}, len(terms))

	var score float64
	for _, t := range terms {
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}

		tf := float64(freq[t])
		if tf == 0 {
			continue
		}
		score += c.IDF(t) * ((p.K1+1)*tf/(p.K1*norm+tf) + p.Delta)
	}
	return score
}

// ScoreAll scores every document of the corpus.
func (c *Corpus) ScoreAll(terms []string, p Params) []float64 {
	out := make([]float64, len(c.tf))
	for i := range c.tf {
		out[i] = c.Score(i, terms, p)
	}
	return out
}
