package vectorizer

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCount(t *testing.T, opts CountOptions) *CountVectorizer {
	t.Helper()
	cv, err := NewCountVectorizer(opts)
	require.NoError(t, err)
	return cv
}

func TestCountLearnsSortedVocabulary(t *testing.T) {
	cv := newCount(t, CountOptions{})
	require.NoError(t, cv.Fit([]string{"hello world", "hello"}))

	size, err := cv.VocabularySize()
	require.NoError(t, err)
	assert.Equal(t, 2, size)

	vocab, err := cv.Vocabulary()
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"hello": 0, "world": 1}, vocab)

	names, err := cv.FeatureNames()
	require.NoError(t, err)
	assert.Equal(t, []string{"hello", "world"}, names)
}

func TestCountTransform(t *testing.T) {
	cv := newCount(t, CountOptions{})
	require.NoError(t, cv.Fit([]string{"the cat sat", "the dog"}))

	m, err := cv.Transform([]string{"The cat and the cat", "", "unknown words"})
	require.NoError(t, err)
	require.Equal(t, 3, m.Rows())
	require.Equal(t, 4, m.Cols()) // cat dog sat the

	assert.Equal(t, float32(2), m.At(0, 0))
	assert.Equal(t, float32(2), m.At(0, 3))
	assert.Equal(t, float32(0), m.At(0, 1))

	idx, _ := m.Row(1)
	assert.Empty(t, idx)
	idx, _ = m.Row(2)
	assert.Empty(t, idx)
}

func TestCountNotFitted(t *testing.T) {
	cv := newCount(t, CountOptions{})

	_, err := cv.Transform([]string{"x"})
	assert.True(t, errors.Is(err, ErrNotFitted))
	_, err = cv.FeatureNames()
	assert.True(t, errors.Is(err, ErrNotFitted))
	_, err = cv.VocabularySize()
	assert.True(t, errors.Is(err, ErrNotFitted))
}

func TestCountEmptyVocabulary(t *testing.T) {
	cv := newCount(t, CountOptions{StopWords: []string{"english"}})
	err := cv.Fit([]string{"", "the and of"})
	assert.True(t, errors.Is(err, ErrEmptyVocabulary))
}

func TestCountOptions(t *testing.T) {
	corpus := []string{"red apple", "red pear", "red red plum", "green apple"}
	tests := []struct {
		name string
		opts CountOptions
		want []string
	}{
		{name: "defaults", opts: CountOptions{}, want: []string{"apple", "green", "pear", "plum", "red"}},
		{name: "min_df absolute", opts: CountOptions{MinDF: 2}, want: []string{"apple", "red"}},
		{name: "max_df proportion", opts: CountOptions{MaxDF: 0.5}, want: []string{"apple", "green", "pear", "plum"}},
		{name: "max_features", opts: CountOptions{MaxFeatures: 2}, want: []string{"apple", "red"}},
		{name: "stop words", opts: CountOptions{StopWords: []string{"RED"}}, want: []string{"apple", "green", "pear", "plum"}},
		{name: "bigrams only", opts: CountOptions{NgramRange: [2]int{2, 2}}, want: []string{"green apple", "red apple", "red pear", "red plum", "red red"}},
		{name: "custom pattern", opts: CountOptions{TokenPattern: `p\w+`}, want: []string{"pear", "plum", "pple"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cv := newCount(t, tt.opts)
			require.NoError(t, cv.Fit(corpus))
			names, err := cv.FeatureNames()
			require.NoError(t, err)
			assert.Equal(t, tt.want, names)
		})
	}
}

func TestCountBinaryAndCase(t *testing.T) {
	keepCase := false
	cv := newCount(t, CountOptions{Binary: true, Lowercase: &keepCase})
	m, err := cv.FitTransform([]string{"Go go go"})
	require.NoError(t, err)

	names, err := cv.FeatureNames()
	require.NoError(t, err)
	assert.Equal(t, []string{"Go", "go"}, names)
	assert.Equal(t, float32(1), m.At(0, 1))
}

func TestCountCustomTokenizer(t *testing.T) {
	var seen []string
	cv := newCount(t, CountOptions{Tokenizer: func(text string) ([]string, error) {
		seen = append(seen, text)
		return strings.Split(text, "|"), nil
	}})
	require.NoError(t, cv.Fit([]string{"A|b|a"}))

	names, err := cv.FeatureNames()
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, names)
	// lowercasing happens before the tokenizer sees the text
	assert.Equal(t, []string{"a|b|a"}, seen)
}

func TestCountTokenizerErrorPropagates(t *testing.T) {
	boom := errors.New("analyzer down")
	cv := newCount(t, CountOptions{Tokenizer: func(string) ([]string, error) { return nil, boom }})
	err := cv.Fit([]string{"x"})
	assert.True(t, errors.Is(err, boom))
}

func TestCountInvalidOptions(t *testing.T) {
	bad := []CountOptions{
		{NgramRange: [2]int{2, 1}},
		{TokenPattern: "("},
		{MinDF: -1},
	}
	for _, opts := range bad {
		_, err := NewCountVectorizer(opts)
		assert.True(t, errors.Is(err, ErrInvalidOptions), "%+v", opts)
	}

	cv := newCount(t, CountOptions{MinDF: 3, MaxDF: 0.5})
	err := cv.Fit([]string{"a1 b1", "a1", "b1", "c1"})
	assert.True(t, errors.Is(err, ErrInvalidOptions))
}

func TestFitTransformMatchesFitThenTransform(t *testing.T) {
	corpus := []string{"alpha beta", "beta gamma gamma", ""}

	a := newCount(t, CountOptions{NgramRange: [2]int{1, 2}})
	got, err := a.FitTransform(corpus)
	require.NoError(t, err)

	b := newCount(t, CountOptions{NgramRange: [2]int{1, 2}})
	require.NoError(t, b.Fit(corpus))
	want, err := b.Transform(corpus)
	require.NoError(t, err)

	assert.True(t, want.Equal(got))
}
