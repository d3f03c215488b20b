package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig is returned when a config file parses but cannot be used.
var ErrInvalidConfig = errors.New("invalid configuration")

// VectorizerOptions holds the per-rule vectorizer settings. Settings that do not
// apply to the selected type are ignored.
type VectorizerOptions struct {
	Lowercase    *bool    `yaml:"lowercase,omitempty"`
	TokenPattern string   `yaml:"token_pattern,omitempty"`
	StopWords    []string `yaml:"stop_words,omitempty"`
	NgramRange   []int    `yaml:"ngram_range,omitempty"`
	MinDF        float64  `yaml:"min_df,omitempty"`
	MaxDF        float64  `yaml:"max_df,omitempty"`
	MaxFeatures  int      `yaml:"max_features,omitempty"`
	Binary       bool     `yaml:"binary,omitempty"`

	// tfidf only
	Norm        string `yaml:"norm,omitempty"`
	UseIDF      *bool  `yaml:"use_idf,omitempty"`
	SmoothIDF   *bool  `yaml:"smooth_idf,omitempty"`
	SublinearTF bool   `yaml:"sublinear_tf,omitempty"`
}

// RuleConfig configures the vectorizer applied to one document field.
type RuleConfig struct {
	// Key is the mapping key the rule was declared under.
	Key string `yaml:"-"`
	// Name overrides Key as the field path and feature prefix.
	Name       string            `yaml:"name,omitempty"`
	Type       string            `yaml:"type"`
	Vectorizer VectorizerOptions `yaml:"vectorizer,omitempty"`
	// Analyzer is an optional analyzer reference resolved into the tokenizer.
	Analyzer string `yaml:"analyzer,omitempty"`
}

// FieldName returns the field path the rule reads.
func (r RuleConfig) FieldName() string {
	if r.Name != "" {
		return r.Name
	}
	return r.Key
}

// RuleSetConfig is the ordered list of rules, decoded from a YAML mapping
// keyed by field name. Declaration order is kept.
type RuleSetConfig []RuleConfig

// UnmarshalYAML decodes the rules mapping in document order.
func (rs *RuleSetConfig) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("%w: rules must be a mapping (line %d)", ErrInvalidConfig, node.Line)
	}
	out := make(RuleSetConfig, 0, len(node.Content)/2)
	seen := make(map[string]struct{}, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		var key string
		if err := node.Content[i].Decode(&key); err != nil {
			return err
		}
		if _, dup := seen[key]; dup {
			return fmt.Errorf("%w: duplicate rule %q (line %d)", ErrInvalidConfig, key, node.Content[i].Line)
		}
		seen[key] = struct{}{}
		var rc RuleConfig
		if err := node.Content[i+1].Decode(&rc); err != nil {
			return fmt.Errorf("rule %q: %w", key, err)
		}
		rc.Key = key
		out = append(out, rc)
	}
	*rs = out
	return nil
}

// MarshalYAML encodes the rules back into a mapping in list order.
func (rs RuleSetConfig) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, rc := range rs {
		val := &yaml.Node{}
		if err := val.Encode(rc); err != nil {
			return nil, err
		}
		node.Content = append(node.Content, &yaml.Node{Kind: yaml.ScalarNode, Value: rc.Key}, val)
	}
	return node, nil
}

// AnalyzerConfig configures the remote text-analysis client.
type AnalyzerConfig struct {
	APIKeyEnv   string `yaml:"api_key_env"`
	TimeoutSecs int    `yaml:"timeout_secs"`
	MaxRetries  int    `yaml:"max_retries"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	// Strict makes unknown rule types a build error instead of skipping them.
	Strict bool `yaml:"strict"`
	// MissingValue is the text used for fields absent from a document.
	MissingValue string         `yaml:"missing_value"`
	Analyzer     AnalyzerConfig `yaml:"analyzer"`
	Rules        RuleSetConfig  `yaml:"rules"`
}

// Validate reports configuration errors that would otherwise surface late.
func (c *AppConfig) Validate() error {
	if len(c.Rules) == 0 {
		return fmt.Errorf("%w: no rules configured", ErrInvalidConfig)
	}
	for _, rc := range c.Rules {
		if rc.FieldName() == "" {
			return fmt.Errorf("%w: rule with empty name", ErrInvalidConfig)
		}
		if n := len(rc.Vectorizer.NgramRange); n != 0 && n != 2 {
			return fmt.Errorf("%w: rule %q: ngram_range needs two values, got %d", ErrInvalidConfig, rc.Key, n)
		}
	}
	if c.Analyzer.TimeoutSecs < 0 || c.Analyzer.MaxRetries < 0 {
		return fmt.Errorf("%w: negative analyzer timeout or retries", ErrInvalidConfig)
	}
	return nil
}

// Load reads a config from a specified path. If the file does not exist, returns defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg := defaultConfig()
			return cfg, nil
		}
		return nil, err
	}
	return Parse(data)
}

// Parse decodes YAML config bytes and applies defaults.
func Parse(data []byte) (*AppConfig, error) {
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	applyConfigDefaults(&cfg)
	return &cfg, nil
}

// LoadDefault tries ./fieldvec.yaml first, then ~/.config/fieldvec/config.yaml.
// If neither exists, it writes defaults to ~/.config/fieldvec/config.yaml and returns them.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "fieldvec.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	cfg := defaultConfig()
	if err := Save(userPath, cfg); err != nil {
		return nil, "", err
	}
	return cfg, userPath, nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "fieldvec", "config.yaml"), nil
}

func defaultConfig() *AppConfig {
	cfg := &AppConfig{
		Analyzer: AnalyzerConfig{APIKeyEnv: "FIELDVEC_ANALYZER_API_KEY", TimeoutSecs: 10, MaxRetries: 3},
		Rules: RuleSetConfig{
			{Key: "title", Type: "count"},
			{Key: "body", Type: "tfidf", Vectorizer: VectorizerOptions{StopWords: []string{"english"}}},
		},
	}
	return cfg
}

func applyConfigDefaults(cfg *AppConfig) {
	if cfg.Analyzer.APIKeyEnv == "" {
		cfg.Analyzer.APIKeyEnv = "FIELDVEC_ANALYZER_API_KEY"
	}
	if cfg.Analyzer.TimeoutSecs == 0 {
		cfg.Analyzer.TimeoutSecs = 10
	}
	if cfg.Analyzer.MaxRetries == 0 {
		cfg.Analyzer.MaxRetries = 3
	}
}
