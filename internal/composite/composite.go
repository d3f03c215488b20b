// Package composite combines per-field vectorizers into one feature matrix.
//
// Each rule reads one (possibly nested) document field, turns it into a block
// of feature columns, and the blocks are placed side by side in rule order.
// Errors from a rule's vectorizer are returned to the caller as they are.
package composite

import (
	"errors"
	"fmt"
	"log/slog"

	"fieldvec/internal/docpath"
	"fieldvec/internal/domain"
	"fieldvec/internal/sparse"
)

var (
	// ErrNoFeatureNames is returned when a function rule declares no feature names.
	ErrNoFeatureNames = errors.New("rule has no feature names")
	// ErrInvalidRule is returned for a zero Rule value.
	ErrInvalidRule = errors.New("invalid rule")
)

// Vectorizer is the composite over an ordered rule set. The rule set is fixed
// at construction; fitting only changes the state inside each rule's vectorizer.
// A Vectorizer is not safe for concurrent use.
type Vectorizer struct {
	rules   []Rule
	missing string
	logger  *slog.Logger
}

// Option configures a Vectorizer.
type Option func(*Vectorizer)

// WithMissingValue sets the text used for fields a document does not have.
// The default is the empty string.
func WithMissingValue(s string) Option {
	return func(v *Vectorizer) { v.missing = s }
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(v *Vectorizer) { v.logger = l }
}

// New creates a composite over rules. The slice is copied.
func New(rules []Rule, opts ...Option) *Vectorizer {
	v := &Vectorizer{
		rules:  append([]Rule(nil), rules...),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Rules returns a copy of the rule set.
func (v *Vectorizer) Rules() []Rule {
	return append([]Rule(nil), v.rules...)
}

// Fit fits every stateful rule on its field's text. Function rules are skipped.
func (v *Vectorizer) Fit(docs []domain.Document) error {
	for _, r := range v.rules {
		if r.kind != KindVectorizer {
			continue
		}
		texts := docpath.ExtractAll(docs, r.name, v.missing)
		if err := r.vectorizer.Fit(texts); err != nil {
			v.logger.Debug("rule fit failed", "rule", r.name, "error", err)
			return err
		}
	}
	return nil
}

// Transform returns one row per document with every rule's block side by side.
func (v *Vectorizer) Transform(docs []domain.Document) (*sparse.Matrix, error) {
	return v.stack(docs, false)
}

// FitTransform fits and transforms in one pass over each stateful rule's corpus.
func (v *Vectorizer) FitTransform(docs []domain.Document) (*sparse.Matrix, error) {
	return v.stack(docs, true)
}

func (v *Vectorizer) stack(docs []domain.Document, fit bool) (*sparse.Matrix, error) {
	blocks := make([]*sparse.Matrix, 0, len(v.rules))
	for _, r := range v.rules {
		texts := docpath.ExtractAll(docs, r.name, v.missing)
		var (
			blk *sparse.Matrix
			err error
		)
		switch r.kind {
		case KindVectorizer:
			if fit {
				blk, err = r.vectorizer.FitTransform(texts)
			} else {
				blk, err = r.vectorizer.Transform(texts)
			}
		case KindFunc:
			blk, err = r.fn(texts)
		default:
			return nil, fmt.Errorf("%w: %q has kind %s", ErrInvalidRule, r.name, r.kind)
		}
		if err != nil {
			v.logger.Debug("rule transform failed", "rule", r.name, "fit", fit, "error", err)
			return nil, err
		}
		if blk == nil {
			return nil, fmt.Errorf("%w: rule %q returned no matrix", sparse.ErrDimensionMismatch, r.name)
		}
		blocks = append(blocks, blk)
	}
	if len(blocks) == 0 {
		return sparse.Zeros(len(docs), 0), nil
	}
	return sparse.HStack(blocks...)
}

// FeatureNames returns the names of all output columns in order. With prefix
// set, each name is rendered as "<rule>=<feature>".
func (v *Vectorizer) FeatureNames(prefix bool) ([]string, error) {
	var out []string
	for _, r := range v.rules {
		names, err := r.featureNames()
		if err != nil {
			return nil, err
		}
		for _, n := range names {
			if prefix {
				n = r.name + "=" + n
			}
			out = append(out, n)
		}
	}
	return out, nil
}

// FeatureSize returns the total number of learned features across rules.
func (v *Vectorizer) FeatureSize() (int, error) {
	size := 0
	for _, r := range v.rules {
		switch r.kind {
		case KindVectorizer:
			n, err := r.vectorizer.VocabularySize()
			if err != nil {
				return 0, err
			}
			size += n
		case KindFunc:
			if r.fnNames == nil {
				return 0, fmt.Errorf("%w: %q", ErrNoFeatureNames, r.name)
			}
			size += len(r.fnNames)
		default:
			return 0, fmt.Errorf("%w: %q has kind %s", ErrInvalidRule, r.name, r.kind)
		}
	}
	return size, nil
}

func (r Rule) featureNames() ([]string, error) {
	switch r.kind {
	case KindVectorizer:
		return r.vectorizer.FeatureNames()
	case KindFunc:
		if r.fnNames == nil {
			return nil, fmt.Errorf("%w: %q", ErrNoFeatureNames, r.name)
		}
		return r.fnNames, nil
	default:
		return nil, fmt.Errorf("%w: %q has kind %s", ErrInvalidRule, r.name, r.kind)
	}
}

// InverseTransform lists, for every row of m, the prefixed names of the
// features with a strictly positive value, in column order.
func (v *Vectorizer) InverseTransform(m *sparse.Matrix) ([][]string, error) {
	names, err := v.FeatureNames(true)
	if err != nil {
		return nil, err
	}
	if m.Cols() != len(names) {
		return nil, fmt.Errorf("%w: matrix has %d columns, vectorizer has %d features",
			sparse.ErrDimensionMismatch, m.Cols(), len(names))
	}
	out := make([][]string, m.Rows())
	for i := range out {
		idx, vals := m.Row(i)
		row := make([]string, 0, len(idx))
		for k, j := range idx {
			if vals[k] > 0 {
				row = append(row, names[j])
			}
		}
		out[i] = row
	}
	return out, nil
}
