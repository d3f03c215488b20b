package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
strict: true
missing_value: "<none>"
analyzer:
  timeout_secs: 5
rules:
  title:
    type: count
    vectorizer:
      ngram_range: [1, 2]
      min_df: 2
  body.summary:
    type: tfidf
    analyzer: http://localhost:9200/docs/_analyze?analyzer=standard
    vectorizer:
      sublinear_tf: true
      norm: l1
      use_idf: false
  tags:
    name: meta.tags
    type: count
    vectorizer:
      binary: true
`

func TestParseKeepsRuleOrder(t *testing.T) {
	cfg, err := Parse([]byte(sampleYAML))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.True(t, cfg.Strict)
	assert.Equal(t, "<none>", cfg.MissingValue)
	require.Len(t, cfg.Rules, 3)

	keys := []string{cfg.Rules[0].Key, cfg.Rules[1].Key, cfg.Rules[2].Key}
	assert.Equal(t, []string{"title", "body.summary", "tags"}, keys)

	title := cfg.Rules[0]
	assert.Equal(t, "count", title.Type)
	assert.Equal(t, []int{1, 2}, title.Vectorizer.NgramRange)
	assert.Equal(t, 2.0, title.Vectorizer.MinDF)

	body := cfg.Rules[1]
	assert.Equal(t, "tfidf", body.Type)
	assert.Equal(t, "http://localhost:9200/docs/_analyze?analyzer=standard", body.Analyzer)
	assert.True(t, body.Vectorizer.SublinearTF)
	assert.Equal(t, "l1", body.Vectorizer.Norm)
	require.NotNil(t, body.Vectorizer.UseIDF)
	assert.False(t, *body.Vectorizer.UseIDF)
	assert.Nil(t, body.Vectorizer.SmoothIDF)

	assert.Equal(t, "meta.tags", cfg.Rules[2].FieldName())
	assert.Equal(t, "title", title.FieldName())
}

func TestParseAppliesDefaults(t *testing.T) {
	cfg, err := Parse([]byte(sampleYAML))
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Analyzer.TimeoutSecs)
	assert.Equal(t, 3, cfg.Analyzer.MaxRetries)
	assert.Equal(t, "FIELDVEC_ANALYZER_API_KEY", cfg.Analyzer.APIKeyEnv)
}

func TestParseRejectsBadRules(t *testing.T) {
	_, err := Parse([]byte("rules:\n  - title\n"))
	assert.True(t, errors.Is(err, ErrInvalidConfig))

	_, err = Parse([]byte("rules:\n  title: {type: count}\n  title: {type: tfidf}\n"))
	assert.True(t, errors.Is(err, ErrInvalidConfig))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*AppConfig)
		wantErr bool
	}{
		{name: "valid default config", modify: func(c *AppConfig) {}},
		{name: "no rules", modify: func(c *AppConfig) { c.Rules = nil }, wantErr: true},
		{name: "empty name", modify: func(c *AppConfig) { c.Rules[0].Key = "" }, wantErr: true},
		{name: "bad ngram range", modify: func(c *AppConfig) { c.Rules[0].Vectorizer.NgramRange = []int{1} }, wantErr: true},
		{name: "negative retries", modify: func(c *AppConfig) { c.Analyzer.MaxRetries = -1 }, wantErr: true},
		{name: "unknown type is not a config error", modify: func(c *AppConfig) { c.Rules[0].Type = "hashing" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.True(t, errors.Is(err, ErrInvalidConfig))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg, err := Parse([]byte(sampleYAML))
	require.NoError(t, err)

	require.NoError(t, Save(path, cfg))
	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, defaultConfig(), cfg)
}

func TestLoadUnreadable(t *testing.T) {
	dir := t.TempDir()
	// a directory cannot be read as a file
	_, err := Load(dir)
	require.Error(t, err)
	assert.False(t, errors.Is(err, os.ErrNotExist))
}
