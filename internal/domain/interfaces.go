package domain

import "fieldvec/internal/sparse"

// Document is a structured record with arbitrarily nested fields,
// typically decoded from JSON.
type Document map[string]any

// Feature is one named, non-zero cell of a feature row.
type Feature struct {
	Name  string
	Value float32
}

// Tokenizer splits free text into tokens.
type Tokenizer func(text string) ([]string, error)

// Vectorizer learns a vocabulary from a corpus and turns texts into
// sparse feature rows, one row per text.
type Vectorizer interface {
	Fit(corpus []string) error
	Transform(texts []string) (*sparse.Matrix, error)
	FitTransform(corpus []string) (*sparse.Matrix, error)
	FeatureNames() ([]string, error)
	VocabularySize() (int, error)
}

// VectorizeFunc maps texts straight to feature rows. It has no fitted state,
// for example an externally trained embedding.
type VectorizeFunc func(texts []string) (*sparse.Matrix, error)

// AnalyzerResolver turns an analyzer reference from configuration into a tokenizer.
type AnalyzerResolver interface {
	Resolve(ref string) (Tokenizer, error)
}
