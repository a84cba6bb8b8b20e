package nlp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/ideadex/internal/domain"
	"github.com/kailas-cloud/ideadex/internal/logger"
)

const oraclePrompt = `You improve search queries for a repository of innovation ideas.
Fix spelling mistakes and list related search terms.
Reply with JSON only, in the form {"corrected": "<query>", "expanded": ["<term>", ...]}.

Query: %s`

type oracleReply struct {
	Corrected string   `json:"corrected"`
	Expanded  []string `json:"expanded"`
}

func (p *Processor) enhanceWithOracle(ctx context.Context, q Query) Query {
	log := logger.FromContext(ctx)

	ctx, cancel := context.WithTimeout(ctx, p.oracleTimeout)
	defer cancel()

	prompt := fmt.Sprintf(oraclePrompt, truncateRunes(q.Corrected, p.maxPromptChars))
	text, err := p.oracle.GenerateText(ctx, prompt, domain.GenerateOptions{
		MaxTokens:   256,
		Temperature: 0,
		JSON:        true,
	})
	if err != nil {
		log.Warn("query oracle failed, using rule-based query", zap.Error(err))
		return q
	}

	reply, err := parseOracleReply(text)
	if err != nil {
		log.Warn("query oracle reply rejected, using rule-based query", zap.Error(err))
		return q
	}

	return p.merge(q, reply)
}

// merge folds the oracle reply into q. Rule-based expansion is kept and the
// oracle terms are appended.
func (p *Processor) merge(q Query, reply oracleReply) Query {
	if tokens := Tokenize(reply.Corrected); len(tokens) > 0 {
		q.Tokens = tokens
		q.Corrected = strings.Join(tokens, " ")
	}

	combined := append([]string{}, q.Tokens...)
	combined = append(combined, q.Expanded...)
	for _, term := range reply.Expanded {
		combined = append(combined, Tokenize(term)...)
	}
	q.Expanded = p.expander.expand(dedup(combined))
	q.AIEnhanced = true
	return q
}

func parseOracleReply(text string) (oracleReply, error) {
	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start < 0 || end <= start {
		return oracleReply{}, errors.New("no JSON object in reply")
	}

	var reply oracleReply
	if err := json.Unmarshal([]byte(text[start:end+1]), &reply); err != nil {
		return oracleReply{}, fmt.Errorf("decode reply: %w", err)
	}
	if strings.TrimSpace(reply.Corrected) == "" && len(reply.Expanded) == 0 {
		return oracleReply{}, errors.New("empty reply")
	}
	return reply, nil
}

func truncateRunes(s string, limit int) string {
	if limit <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit])
}

func dedup(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
