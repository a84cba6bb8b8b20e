package corpus

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/ideadex/internal/domain"
	"github.com/kailas-cloud/ideadex/internal/domain/document"
	"github.com/kailas-cloud/ideadex/internal/logger"
)

// IDColumn identifies an idea row.
const IDColumn = "idea_id"

// TextColumns are the idea export columns searched as text, in field order.
var TextColumns = []string{
	"title",
	"summary",
	"challenge_opportunity",
	"novelty",
	"benefits",
	"scalability",
	"risks",
	"responsible_ai",
	"additional_info",
	"expected_outcomes",
	"success_metrics",
	"scalability_potential",
	"business_model",
	"competitive_analysis",
	"risk_mitigation",
}

// Stats describes one CSV parse.
type Stats struct {
	Rows    int
	Loaded  int
	Skipped int
}

// ParseCSV reads an ideas export. Columns listed in TextColumns become text
// fields; every other column becomes metadata. Rows without text are skipped.
func ParseCSV(ctx context.Context, r io.Reader) ([]document.Document, Stats, error) {
	log := logger.FromContext(ctx)

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, Stats{}, fmt.Errorf("read header: %w: %w", err, domain.ErrCorpusUnavailable)
	}
	for i := range header {
		header[i] = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff")))
	}

	colIdx := make(map[string]int, len(TextColumns))
	for i, h := range header {
		colIdx[h] = i
	}
	isText := make(map[string]bool, len(TextColumns))
	for _, c := range TextColumns {
		isText[c] = true
	}
	if !hasAny(colIdx, TextColumns) {
		return nil, Stats{}, fmt.Errorf("no text columns in header: %w", domain.ErrCorpusUnavailable)
	}

	var (
		docs  []document.Document
		stats Stats
		seen  = make(map[string]struct{})
	)
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, stats, fmt.Errorf("read row %d: %w: %w", stats.Rows+1, err, domain.ErrCorpusUnavailable)
		}
		stats.Rows++

		fields := make([]document.Field, 0, len(TextColumns))
		for _, c := range TextColumns {
			if i, ok := colIdx[c]; ok && i < len(record) {
				if v := strings.TrimSpace(record[i]); v != "" {
					fields = append(fields, document.Field{Name: c, Value: v})
				}
			}
		}

		meta := make(map[string]string, len(header))
		for i, h := range header {
			if isText[h] || i >= len(record) || h == "" {
				continue
			}
			if v := strings.TrimSpace(record[i]); v != "" {
				meta[h] = v
			}
		}

		id := meta[IDColumn]
		if id == "" {
			id = "row-" + strconv.Itoa(stats.Rows)
		}
		if _, dup := seen[id]; dup {
			log.Warn("duplicate idea id skipped", zap.String("id", id))
			stats.Skipped++
			continue
		}

		doc, err := document.New(id, fields, meta)
		if err != nil {
			log.Debug("idea row skipped", zap.Int("row", stats.Rows), zap.Error(err))
			stats.Skipped++
			continue
		}
		seen[id] = struct{}{}
		docs = append(docs, doc)
	}

	stats.Loaded = len(docs)
	return docs, stats, nil
}

// File is a Source that re-reads a CSV file when its modification time changes.
type File struct {
	path string

	mu      sync.Mutex
	modTime time.Time
	docs    []document.Document
}

// NewFile creates a file-backed source. The file is read on first use.
func NewFile(path string) *File {
	return &File{path: path}
}

// Documents implements Source.
func (f *File) Documents(ctx context.Context) ([]document.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	info, err := os.Stat(f.path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w: %w", f.path, err, domain.ErrCorpusUnavailable)
	}
	if f.docs != nil && info.ModTime().Equal(f.modTime) {
		return append([]document.Document(nil), f.docs...), nil
	}

	file, err := os.Open(f.path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w: %w", f.path, err, domain.ErrCorpusUnavailable)
	}
	defer file.Close()

	docs, stats, err := ParseCSV(ctx, file)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", f.path, err)
	}
	logger.FromContext(ctx).Info("corpus loaded",
		zap.String("path", f.path),
		zap.Int("rows", stats.Rows),
		zap.Int("loaded", stats.Loaded),
		zap.Int("skipped", stats.Skipped),
	)

	if docs == nil {
		docs = []document.Document{}
	}
	f.docs = docs
	f.modTime = info.ModTime()
	return append([]document.Document(nil), docs...), nil
}

func hasAny(idx map[string]int, cols []string) bool {
	for _, c := range cols {
		if _, ok := idx[c]; ok {
			return true
		}
	}
	return false
}
