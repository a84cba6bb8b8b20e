package nlp

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Dictionary is the curated domain vocabulary used for correction and expansion.
type Dictionary struct {
	// Misspellings maps a known misspelling to its correction.
	Misspellings map[string]string `yaml:"misspellings"`
	// Vocabulary lists correction targets.
	Vocabulary []string `yaml:"vocabulary"`
	// Synonyms maps a term or phrase to related terms.
	Synonyms map[string][]string `yaml:"synonyms"`
	// Phrases are multi-word domain terms detected in token order.
	Phrases []string `yaml:"phrases"`
}

// DefaultDictionary returns the built-in innovation/technology dictionary.
func DefaultDictionary() Dictionary {
	return Dictionary{
		Misspellings: map[string]string{
			"clodus":      "cloud",
			"colud":       "cloud",
			"clould":      "cloud",
			"moniter":     "monitoring",
			"monitorng":   "monitoring",
			"databse":     "database",
			"datbase":     "database",
			"bankin":      "banking",
			"finteck":     "fintech",
			"paymnet":     "payment",
			"helthcare":   "healthcare",
			"healtcare":   "healthcare",
			"pateint":     "patient",
			"kubernates":  "kubernetes",
			"kubernets":   "kubernetes",
			"analitics":   "analytics",
			"secuirty":    "security",
			"artifical":   "artificial",
			"inteligence": "intelligence",
			"automaton":   "automation",
			"blockchian":  "blockchain",
			"chatbto":     "chatbot",
		},
		Vocabulary: []string{
			"analytics", "api", "artificial", "automation", "banking",
			"blockchain", "chain", "chatbot", "cloud", "compliance",
			"customer", "dashboard", "data", "database", "detection",
			"devops", "experience", "fintech", "fraud", "healthcare",
			"infrastructure", "insurance", "intelligence", "kubernetes",
			"learning", "logistics", "machine", "microservices", "mobile",
			"monitoring", "observability", "patient", "payment", "platform",
			"retail", "security", "serverless", "supply", "sustainability",
			"telemetry",
		},
		Synonyms: map[string][]string{
			"cloud":                   {"aws", "azure", "saas", "infrastructure"},
			"monitoring":              {"observability", "telemetry", "alerting"},
			"database":                {"sql", "storage", "datastore"},
			"banking":                 {"finance", "fintech", "payments"},
			"fintech":                 {"finance", "banking", "payments"},
			"payment":                 {"payments", "transaction", "checkout"},
			"healthcare":              {"medical", "clinical", "patient"},
			"patient":                 {"healthcare", "clinical"},
			"kubernetes":              {"k8s", "containers", "orchestration"},
			"security":                {"cybersecurity", "compliance"},
			"chatbot":                 {"assistant", "conversational"},
			"automation":              {"workflow", "rpa"},
			"retail":                  {"ecommerce", "commerce"},
			"logistics":               {"shipping", "delivery"},
			"machine learning":        {"aiml", "model", "prediction"},
			"artificial intelligence": {"aiml", "genai", "llm"},
			"supply chain":            {"logistics", "procurement", "inventory"},
			"fraud detection":         {"anomaly", "risk"},
			"customer experience":     {"personalization", "engagement"},
		},
		Phrases: []string{
			"artificial intelligence",
			"customer experience",
			"fraud detection",
			"machine learning",
			"supply chain",
		},
	}
}

// Merge overlays other onto d: entries of other win on key collisions,
// lists are unioned.
func (d Dictionary) Merge(other Dictionary) Dictionary {
	out := Dictionary{
		Misspellings: make(map[string]string, len(d.Misspellings)+len(other.Misspellings)),
		Synonyms:     make(map[string][]string, len(d.Synonyms)+len(other.Synonyms)),
		Vocabulary:   union(d.Vocabulary, other.Vocabulary),
		Phrases:      union(d.Phrases, other.Phrases),
	}
	for k, v := range d.Misspellings {
		out.Misspellings[k] = v
	}
	for k, v := range other.Misspellings {
		out.Misspellings[strings.ToLower(k)] = strings.ToLower(v)
	}
	for k, v := range d.Synonyms {
		out.Synonyms[k] = v
	}
	for k, v := range other.Synonyms {
		out.Synonyms[strings.ToLower(k)] = v
	}
	return out
}

// LoadDictionary reads a YAML overlay and merges it onto the default dictionary.
// An empty path returns the default dictionary.
func LoadDictionary(path string) (Dictionary, error) {
	base := DefaultDictionary()
	if path == "" {
		return base, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Dictionary{}, fmt.Errorf("read dictionary %s: %w", path, err)
	}

	var overlay Dictionary
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return Dictionary{}, fmt.Errorf("parse dictionary %s: %w", path, err)
	}
	return base.Merge(overlay), nil
}

func union(a, b []string) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, list := range [][]string{a, b} {
		for _, s := range list {
			s = strings.ToLower(strings.TrimSpace(s))
			if s == "" {
				continue
			}
			if _, ok := seen[s]; ok {
				continue
			}
			seen[s] = struct{}{}
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out
}
