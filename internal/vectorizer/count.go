// Package vectorizer implements the corpus-fitted text vectorizers used per field:
// plain token counts and TF-IDF weighted counts.
package vectorizer

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/tidwall/btree"

	"fieldvec/internal/domain"
	"fieldvec/internal/sparse"
)

var (
	// ErrNotFitted is returned when a vectorizer is used before Fit.
	ErrNotFitted = errors.New("vectorizer not fitted")
	// ErrEmptyVocabulary is returned when fitting leaves no terms.
	ErrEmptyVocabulary = errors.New("empty vocabulary; documents may only contain stop words")
	// ErrInvalidOptions is returned for options that cannot be applied.
	ErrInvalidOptions = errors.New("invalid vectorizer options")
)

// CountOptions configures a CountVectorizer.
type CountOptions struct {
	// Lowercase defaults to true when nil.
	Lowercase *bool
	// TokenPattern is ignored when Tokenizer is set.
	TokenPattern string
	Tokenizer    domain.Tokenizer
	StopWords    []string
	// NgramRange is the inclusive word n-gram range; zero value means {1, 1}.
	NgramRange [2]int
	// MinDF and MaxDF bound document frequency. MinDF in (0, 1) and MaxDF in
	// (0, 1] are proportions of the corpus, larger values are absolute document
	// counts. Zero disables the bound.
	MinDF float64
	MaxDF float64
	// MaxFeatures keeps only the most frequent terms across the corpus. Zero keeps all.
	MaxFeatures int
	Binary      bool
}

// CountVectorizer converts texts to token count rows.
type CountVectorizer struct {
	opts       CountOptions
	analyzer   *analyzer
	vocabulary map[string]int
	terms      []string
}

var _ domain.Vectorizer = (*CountVectorizer)(nil)

// NewCountVectorizer creates an unfitted count vectorizer.
func NewCountVectorizer(opts CountOptions) (*CountVectorizer, error) {
	a, err := newAnalyzer(opts)
	if err != nil {
		return nil, err
	}
	if opts.MinDF < 0 || opts.MaxDF < 0 || opts.MaxFeatures < 0 {
		return nil, fmt.Errorf("%w: negative min_df, max_df or max_features", ErrInvalidOptions)
	}
	return &CountVectorizer{opts: opts, analyzer: a}, nil
}

type termStat struct {
	df    int
	total int
}

// Fit learns the vocabulary from the corpus.
func (cv *CountVectorizer) Fit(corpus []string) error {
	_, err := cv.fit(corpus)
	return err
}

// FitTransform learns the vocabulary and returns the count rows of the corpus,
// analyzing every text only once.
func (cv *CountVectorizer) FitTransform(corpus []string) (*sparse.Matrix, error) {
	analyzed, err := cv.fit(corpus)
	if err != nil {
		return nil, err
	}
	return cv.countRows(analyzed), nil
}

// Transform returns one count row per text using the learned vocabulary.
// Terms outside the vocabulary are ignored.
func (cv *CountVectorizer) Transform(texts []string) (*sparse.Matrix, error) {
	if cv.vocabulary == nil {
		return nil, ErrNotFitted
	}
	analyzed, err := cv.analyzeAll(texts)
	if err != nil {
		return nil, err
	}
	return cv.countRows(analyzed), nil
}

// FeatureNames returns the vocabulary terms in column order.
func (cv *CountVectorizer) FeatureNames() ([]string, error) {
	if cv.vocabulary == nil {
		return nil, ErrNotFitted
	}
	out := make([]string, len(cv.terms))
	copy(out, cv.terms)
	return out, nil
}

// VocabularySize returns the number of learned terms.
func (cv *CountVectorizer) VocabularySize() (int, error) {
	if cv.vocabulary == nil {
		return 0, ErrNotFitted
	}
	return len(cv.vocabulary), nil
}

// Vocabulary returns a copy of the term to column mapping.
func (cv *CountVectorizer) Vocabulary() (map[string]int, error) {
	if cv.vocabulary == nil {
		return nil, ErrNotFitted
	}
	out := make(map[string]int, len(cv.vocabulary))
	for k, v := range cv.vocabulary {
		out[k] = v
	}
	return out, nil
}

func (cv *CountVectorizer) analyzeAll(texts []string) ([][]string, error) {
	out := make([][]string, len(texts))
	for i, text := range texts {
		features, err := cv.analyzer.analyze(text)
		if err != nil {
			return nil, err
		}
		out[i] = features
	}
	return out, nil
}

func (cv *CountVectorizer) fit(corpus []string) ([][]string, error) {
	analyzed, err := cv.analyzeAll(corpus)
	if err != nil {
		return nil, err
	}
	// Ordered by term, so the scan below assigns columns lexicographically.
	var stats btree.Map[string, *termStat]
	for _, features := range analyzed {
		seen := make(map[string]struct{}, len(features))
		for _, f := range features {
			st, ok := stats.Get(f)
			if !ok {
				st = &termStat{}
				stats.Set(f, st)
			}
			st.total++
			if _, dup := seen[f]; dup {
				continue
			}
			seen[f] = struct{}{}
			st.df++
		}
	}
	if stats.Len() == 0 {
		return nil, ErrEmptyVocabulary
	}

	n := len(corpus)
	minDF, maxDF := 1, n
	if v := cv.opts.MinDF; v >= 1 {
		minDF = int(v)
	} else if v > 0 {
		minDF = int(math.Ceil(v * float64(n)))
	}
	if v := cv.opts.MaxDF; v > 1 {
		maxDF = int(v)
	} else if v > 0 {
		maxDF = int(math.Floor(v * float64(n)))
	}
	if maxDF < minDF {
		return nil, fmt.Errorf("%w: max_df corresponds to fewer documents than min_df", ErrInvalidOptions)
	}
	terms := make([]string, 0, stats.Len())
	stats.Scan(func(term string, st *termStat) bool {
		if st.df >= minDF && st.df <= maxDF {
			terms = append(terms, term)
		}
		return true
	})
	if cv.opts.MaxFeatures > 0 && len(terms) > cv.opts.MaxFeatures {
		totals := make(map[string]int, len(terms))
		for _, term := range terms {
			st, _ := stats.Get(term)
			totals[term] = st.total
		}
		sort.SliceStable(terms, func(i, j int) bool { return totals[terms[i]] > totals[terms[j]] })
		terms = terms[:cv.opts.MaxFeatures]
		sort.Strings(terms)
	}
	if len(terms) == 0 {
		return nil, fmt.Errorf("%w: no terms remain after pruning", ErrEmptyVocabulary)
	}

	cv.terms = terms
	cv.vocabulary = make(map[string]int, len(terms))
	for i, term := range terms {
		cv.vocabulary[term] = i
	}
	return analyzed, nil
}

func (cv *CountVectorizer) countRows(analyzed [][]string) *sparse.Matrix {
	b := sparse.NewBuilder(len(cv.terms))
	for _, features := range analyzed {
		row := make(map[int]float32)
		for _, f := range features {
			idx, ok := cv.vocabulary[f]
			if !ok {
				continue
			}
			if cv.opts.Binary {
				row[idx] = 1
			} else {
				row[idx]++
			}
		}
		b.AddRow(row)
	}
	return b.Build()
}
