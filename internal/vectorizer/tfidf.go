package vectorizer

import (
	"fmt"
	"math"

	"fieldvec/internal/domain"
	"fieldvec/internal/sparse"
)

// TfidfOptions configures a TfidfVectorizer.
type TfidfOptions struct {
	CountOptions
	// Norm is "l2" (default), "l1" or "none".
	Norm string
	// UseIDF and SmoothIDF default to true when nil.
	UseIDF      *bool
	SmoothIDF   *bool
	SublinearTF bool
}

// TfidfVectorizer weights token counts by inverse document frequency.
// It builds a vocabulary from the corpus and computes IDF values.
type TfidfVectorizer struct {
	counts      *CountVectorizer
	norm        string
	useIDF      bool
	smoothIDF   bool
	sublinearTF bool
	idf         []float64
	prepared    bool
}

var _ domain.Vectorizer = (*TfidfVectorizer)(nil)

// NewTfidfVectorizer creates an unfitted TF-IDF vectorizer.
func NewTfidfVectorizer(opts TfidfOptions) (*TfidfVectorizer, error) {
	counts, err := NewCountVectorizer(opts.CountOptions)
	if err != nil {
		return nil, err
	}
	norm := opts.Norm
	switch norm {
	case "":
		norm = "l2"
	case "l1", "l2", "none":
	default:
		return nil, fmt.Errorf("%w: unknown norm %q", ErrInvalidOptions, opts.Norm)
	}
	return &TfidfVectorizer{
		counts:      counts,
		norm:        norm,
		useIDF:      opts.UseIDF == nil || *opts.UseIDF,
		smoothIDF:   opts.SmoothIDF == nil || *opts.SmoothIDF,
		sublinearTF: opts.SublinearTF,
	}, nil
}

// Fit builds the vocabulary and IDF values from the provided corpus.
func (v *TfidfVectorizer) Fit(corpus []string) error {
	_, err := v.FitTransform(corpus)
	return err
}

// FitTransform fits on the corpus and returns its weighted rows in one pass.
func (v *TfidfVectorizer) FitTransform(corpus []string) (*sparse.Matrix, error) {
	counts, err := v.counts.FitTransform(corpus)
	if err != nil {
		return nil, err
	}
	v.fitIDF(counts)
	v.prepared = true
	return v.weight(counts), nil
}

// Transform returns the TF-IDF rows for the texts.
func (v *TfidfVectorizer) Transform(texts []string) (*sparse.Matrix, error) {
	if !v.prepared {
		return nil, ErrNotFitted
	}
	counts, err := v.counts.Transform(texts)
	if err != nil {
		return nil, err
	}
	return v.weight(counts), nil
}

// FeatureNames returns the vocabulary terms in column order.
func (v *TfidfVectorizer) FeatureNames() ([]string, error) {
	if !v.prepared {
		return nil, ErrNotFitted
	}
	return v.counts.FeatureNames()
}

// VocabularySize returns the number of learned terms.
func (v *TfidfVectorizer) VocabularySize() (int, error) {
	if !v.prepared {
		return 0, ErrNotFitted
	}
	return v.counts.VocabularySize()
}

// IDF returns a copy of the learned inverse document frequencies in column order.
func (v *TfidfVectorizer) IDF() ([]float64, error) {
	if !v.prepared {
		return nil, ErrNotFitted
	}
	out := make([]float64, len(v.idf))
	copy(out, v.idf)
	return out, nil
}

func (v *TfidfVectorizer) fitIDF(counts *sparse.Matrix) {
	df := make([]int, counts.Cols())
	for i := 0; i < counts.Rows(); i++ {
		idx, _ := counts.Row(i)
		for _, j := range idx {
			df[j]++
		}
	}
	n := float64(counts.Rows())
	v.idf = make([]float64, len(df))
	for j, d := range df {
		if v.smoothIDF {
			// Smoothed IDF
			v.idf[j] = math.Log((1+n)/(1+float64(d))) + 1.0
		} else {
			v.idf[j] = math.Log(n/float64(d)) + 1.0
		}
	}
}

func (v *TfidfVectorizer) weight(counts *sparse.Matrix) *sparse.Matrix {
	b := sparse.NewBuilder(counts.Cols())
	for i := 0; i < counts.Rows(); i++ {
		idx, vals := counts.Row(i)
		weights := make([]float64, len(idx))
		for k, j := range idx {
			tf := float64(vals[k])
			if v.sublinearTF {
				tf = 1 + math.Log(tf)
			}
			if v.useIDF {
				tf *= v.idf[j]
			}
			weights[k] = tf
		}
		normalize(weights, v.norm)
		row := make(map[int]float32, len(idx))
		for k, j := range idx {
			row[j] = float32(weights[k])
		}
		b.AddRow(row)
	}
	return b.Build()
}

func normalize(vec []float64, norm string) {
	total := 0.0
	switch norm {
	case "l2":
		for _, x := range vec {
			total += x * x
		}
		total = math.Sqrt(total)
	case "l1":
		for _, x := range vec {
			total += math.Abs(x)
		}
	default:
		return
	}
	if total > 0 {
		for i := range vec {
			vec[i] /= total
		}
	}
}
