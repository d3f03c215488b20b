package service

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/google/uuid"

	"fieldvec/internal/composite"
	"fieldvec/internal/domain"
	"fieldvec/internal/metrics"
	"fieldvec/internal/sparse"
)

// ErrNoDocuments is returned when the input patterns match no readable documents.
var ErrNoDocuments = errors.New("no documents found")

// Record is a loaded document with a stable identifier.
type Record struct {
	ID     string
	Source string
	Doc    domain.Document
}

// FeatureService loads documents from disk and runs them through the composite vectorizer.
type FeatureService struct {
	vectorizer *composite.Vectorizer
	logger     *slog.Logger
	records    []Record
	matrix     *sparse.Matrix
	names      []string
}

// NewFeatureService wraps a composite vectorizer.
func NewFeatureService(v *composite.Vectorizer, logger *slog.Logger) *FeatureService {
	if logger == nil {
		logger = slog.Default()
	}
	return &FeatureService{vectorizer: v, logger: logger}
}

// Ingest loads the documents matched by patterns, fits the vectorizer on them
// and keeps their feature matrix. It returns a one-line summary.
func (s *FeatureService) Ingest(patterns []string) (string, error) {
	records, err := LoadRecords(patterns)
	if err != nil {
		return "", err
	}
	m, err := s.run("fit_transform", records, s.vectorizer.FitTransform)
	if err != nil {
		return "", err
	}
	if err := s.keep(records, m); err != nil {
		return "", err
	}
	return s.Summary(), nil
}

// Fit loads the documents matched by patterns and fits the vectorizer on them.
func (s *FeatureService) Fit(patterns []string) error {
	records, err := LoadRecords(patterns)
	if err != nil {
		return err
	}
	start := time.Now()
	err = s.vectorizer.Fit(docsOf(records))
	metrics.Observe("fit", len(records), time.Since(start), err)
	if err != nil {
		return err
	}
	s.logger.Info("fitted", "documents", len(records))
	return nil
}

// Transform loads the documents matched by patterns and transforms them with
// the already fitted vectorizer.
func (s *FeatureService) Transform(patterns []string) (string, error) {
	records, err := LoadRecords(patterns)
	if err != nil {
		return "", err
	}
	m, err := s.run("transform", records, s.vectorizer.Transform)
	if err != nil {
		return "", err
	}
	if err := s.keep(records, m); err != nil {
		return "", err
	}
	return s.Summary(), nil
}

func (s *FeatureService) run(op string, records []Record, fn func([]domain.Document) (*sparse.Matrix, error)) (*sparse.Matrix, error) {
	start := time.Now()
	m, err := fn(docsOf(records))
	metrics.Observe(op, len(records), time.Since(start), err)
	if err != nil {
		return nil, err
	}
	metrics.NonZeros.Set(float64(m.NNZ()))
	s.logger.Info(op+" done", "documents", m.Rows(), "features", m.Cols(), "nnz", m.NNZ(), "took", time.Since(start))
	return m, nil
}

func (s *FeatureService) keep(records []Record, m *sparse.Matrix) error {
	names, err := s.vectorizer.FeatureNames(true)
	if err != nil {
		return err
	}
	metrics.Features.Set(float64(len(names)))
	s.records = records
	s.matrix = m
	s.names = names
	return nil
}

// Summary describes the last produced matrix.
func (s *FeatureService) Summary() string {
	if s.matrix == nil {
		return "no documents processed"
	}
	return fmt.Sprintf("%d documents, %d features from %d rules, %d non-zero values",
		s.matrix.Rows(), s.matrix.Cols(), len(s.vectorizer.Rules()), s.matrix.NNZ())
}

// Matrix returns the last produced feature matrix, or nil.
func (s *FeatureService) Matrix() *sparse.Matrix { return s.matrix }

// FeatureNames returns the prefixed feature names of the last run.
func (s *FeatureService) FeatureNames() []string { return s.names }

// DocumentCount returns the number of documents in the last run.
func (s *FeatureService) DocumentCount() int { return len(s.records) }

// DocumentID returns the identifier of document i.
func (s *FeatureService) DocumentID(i int) string { return s.records[i].ID }

// Record returns document i of the last run.
func (s *FeatureService) Record(i int) Record { return s.records[i] }

// RowFeatures lists the non-zero features of document i in column order.
func (s *FeatureService) RowFeatures(i int) ([]domain.Feature, error) {
	if s.matrix == nil || i < 0 || i >= s.matrix.Rows() {
		return nil, fmt.Errorf("document %d out of range", i)
	}
	idx, vals := s.matrix.Row(i)
	out := make([]domain.Feature, len(idx))
	for k, j := range idx {
		out[k] = domain.Feature{Name: s.names[j], Value: vals[k]}
	}
	return out, nil
}

// ActiveFeatures lists, per document, the names of positive features.
func (s *FeatureService) ActiveFeatures() ([][]string, error) {
	if s.matrix == nil {
		return nil, nil
	}
	return s.vectorizer.InverseTransform(s.matrix)
}

type rowOutput struct {
	ID       string             `json:"id"`
	Features map[string]float32 `json:"features"`
}

// WriteRows writes one JSON object per document with its non-zero features.
func (s *FeatureService) WriteRows(w io.Writer) error {
	enc := json.NewEncoder(w)
	for i := range s.records {
		feats, err := s.RowFeatures(i)
		if err != nil {
			return err
		}
		row := rowOutput{ID: s.records[i].ID, Features: make(map[string]float32, len(feats))}
		for _, f := range feats {
			row.Features[f.Name] = f.Value
		}
		if err := enc.Encode(row); err != nil {
			return err
		}
	}
	return nil
}

func docsOf(records []Record) []domain.Document {
	docs := make([]domain.Document, len(records))
	for i, r := range records {
		docs[i] = r.Doc
	}
	return docs
}

// LoadRecords reads every .json, .jsonl and .ndjson file matched by the
// patterns. Patterns support "**". A .json file holds one object or an array
// of objects; the line formats hold one object per line.
func LoadRecords(patterns []string) ([]Record, error) {
	var records []Record
	for _, p := range patterns {
		matches, err := doublestar.FilepathGlob(p)
		if err != nil {
			return nil, fmt.Errorf("glob %q: %w", p, err)
		}
		if matches == nil {
			matches = []string{p}
		}
		for _, m := range matches {
			ext := strings.ToLower(filepath.Ext(m))
			if ext != ".json" && ext != ".jsonl" && ext != ".ndjson" {
				continue
			}
			data, err := os.ReadFile(m)
			if err != nil {
				return nil, err
			}
			var recs []Record
			if ext == ".json" {
				recs, err = decodeJSON(m, data)
			} else {
				recs, err = decodeLines(m, data)
			}
			if err != nil {
				return nil, err
			}
			records = append(records, recs...)
		}
	}
	if len(records) == 0 {
		return nil, ErrNoDocuments
	}
	return records, nil
}

func decodeJSON(path string, data []byte) ([]Record, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var docs []domain.Document
		if err := json.Unmarshal(trimmed, &docs); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		out := make([]Record, len(docs))
		for i, d := range docs {
			out[i] = newRecord(path, i, d)
		}
		return out, nil
	}
	var doc domain.Document
	if err := json.Unmarshal(trimmed, &doc); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return []Record{newRecord(path, 0, doc)}, nil
}

func decodeLines(path string, data []byte) ([]Record, error) {
	var out []Record
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		text := bytes.TrimSpace(sc.Bytes())
		if len(text) == 0 {
			continue
		}
		var doc domain.Document
		if err := json.Unmarshal(text, &doc); err != nil {
			return nil, fmt.Errorf("%s:%d: %w", path, line, err)
		}
		out = append(out, newRecord(path, line, doc))
	}
	return out, sc.Err()
}

func newRecord(path string, pos int, doc domain.Document) Record {
	id, ok := doc["id"].(string)
	if !ok || id == "" {
		id = uuid.NewSHA1(uuid.NameSpaceURL, []byte("file://"+path+"#"+strconv.Itoa(pos))).String()
	}
	return Record{ID: id, Source: path, Doc: doc}
}
