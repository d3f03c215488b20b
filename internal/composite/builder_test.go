package composite

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fieldvec/internal/config"
	"fieldvec/internal/domain"
	"fieldvec/internal/vectorizer"
)

type fakeResolver struct {
	refs []string
	err  error
}

func (f *fakeResolver) Resolve(ref string) (domain.Tokenizer, error) {
	f.refs = append(f.refs, ref)
	if f.err != nil {
		return nil, f.err
	}
	return func(text string) ([]string, error) {
		return strings.Split(text, ","), nil
	}, nil
}

func TestBuildKeepsOrderAndSkipsUnknown(t *testing.T) {
	cfg := config.RuleSetConfig{
		{Key: "title", Type: "count"},
		{Key: "body", Type: "hashing"},
		{Key: "summary", Type: "tfidf"},
		{Key: "tags", Name: "meta.tags", Type: "frequency-weighted"},
	}
	rules, err := Build(cfg)
	require.NoError(t, err)
	require.Len(t, rules, 3)

	assert.Equal(t, "title", rules[0].Name())
	assert.Equal(t, "summary", rules[1].Name())
	assert.Equal(t, "meta.tags", rules[2].Name())

	_, isCount := rules[0].Vectorizer().(*vectorizer.CountVectorizer)
	assert.True(t, isCount)
	_, isTfidf := rules[1].Vectorizer().(*vectorizer.TfidfVectorizer)
	assert.True(t, isTfidf)
	_, isTfidf = rules[2].Vectorizer().(*vectorizer.TfidfVectorizer)
	assert.True(t, isTfidf)
}

func TestBuildStrictRejectsUnknown(t *testing.T) {
	cfg := config.RuleSetConfig{{Key: "body", Type: "hashing"}}
	_, err := Build(cfg, WithStrict(true))
	assert.True(t, errors.Is(err, ErrUnknownType))
}

func TestBuildResolvesAnalyzer(t *testing.T) {
	res := &fakeResolver{}
	cfg := config.RuleSetConfig{
		{Key: "title", Type: "count", Analyzer: "http://analyzer/_analyze"},
		{Key: "body", Type: "count"},
	}
	rules, err := Build(cfg, WithResolver(res))
	require.NoError(t, err)
	assert.Equal(t, []string{"http://analyzer/_analyze"}, res.refs)

	v := New(rules)
	require.NoError(t, v.Fit([]domain.Document{{"title": "New York,Tokyo", "body": "plain words"}}))
	names, err := v.FeatureNames(true)
	require.NoError(t, err)
	assert.Equal(t, []string{"title=new york", "title=tokyo", "body=plain", "body=words"}, names)
}

func TestBuildAnalyzerErrors(t *testing.T) {
	cfg := config.RuleSetConfig{{Key: "title", Type: "count", Analyzer: "x"}}

	_, err := Build(cfg)
	assert.True(t, errors.Is(err, ErrNoResolver))

	boom := errors.New("unreachable")
	_, err = Build(cfg, WithResolver(&fakeResolver{err: boom}))
	assert.True(t, errors.Is(err, boom))
}

func TestBuildDoesNotMutateConfig(t *testing.T) {
	lower := false
	cfg := config.RuleSetConfig{{
		Key:      "title",
		Type:     "tfidf",
		Analyzer: "ref",
		Vectorizer: config.VectorizerOptions{
			Lowercase:  &lower,
			StopWords:  []string{"a"},
			NgramRange: []int{1, 2},
			Norm:       "l1",
		},
	}}
	before := config.RuleSetConfig{{
		Key:      "title",
		Type:     "tfidf",
		Analyzer: "ref",
		Vectorizer: config.VectorizerOptions{
			Lowercase:  &lower,
			StopWords:  []string{"a"},
			NgramRange: []int{1, 2},
			Norm:       "l1",
		},
	}}
	_, err := Build(cfg, WithResolver(&fakeResolver{}))
	require.NoError(t, err)
	assert.Equal(t, before, cfg)
}

func TestBuildInvalidOptions(t *testing.T) {
	cfg := config.RuleSetConfig{{Key: "title", Type: "tfidf", Vectorizer: config.VectorizerOptions{Norm: "max"}}}
	_, err := Build(cfg)
	assert.True(t, errors.Is(err, vectorizer.ErrInvalidOptions))

	cfg = config.RuleSetConfig{{Key: "title", Type: "count", Vectorizer: config.VectorizerOptions{NgramRange: []int{3}}}}
	_, err = Build(cfg)
	assert.True(t, errors.Is(err, vectorizer.ErrInvalidOptions))
}

func TestFromConfig(t *testing.T) {
	cfg, err := config.Parse([]byte(`
missing_value: none
rules:
  title:
    type: count
  lang:
    type: count
`))
	require.NoError(t, err)

	v, err := FromConfig(cfg, nil, nil)
	require.NoError(t, err)
	m, err := v.FitTransform([]domain.Document{{"title": "hello there", "lang": "en"}, {"title": "hello"}})
	require.NoError(t, err)
	assert.Equal(t, 2, m.Rows())

	names, err := v.FeatureNames(true)
	require.NoError(t, err)
	assert.Equal(t, []string{"title=hello", "title=there", "lang=en", "lang=none"}, names)
}
