package composite

import (
	"errors"
	"fmt"
	"log/slog"

	"fieldvec/internal/config"
	"fieldvec/internal/domain"
	"fieldvec/internal/vectorizer"
)

var (
	// ErrUnknownType is returned in strict mode for a rule type with no vectorizer.
	ErrUnknownType = errors.New("unknown vectorizer type")
	// ErrNoResolver is returned when a rule names an analyzer but no resolver is set.
	ErrNoResolver = errors.New("analyzer reference without resolver")
)

// Rule types accepted in configuration.
const (
	TypeCount             = "count"
	TypeTfidf             = "tfidf"
	TypeFrequencyWeighted = "frequency-weighted"
)

type builder struct {
	resolver domain.AnalyzerResolver
	strict   bool
	logger   *slog.Logger
}

// BuildOption configures Build.
type BuildOption func(*builder)

// WithResolver sets the resolver used for rules with an analyzer reference.
func WithResolver(r domain.AnalyzerResolver) BuildOption {
	return func(b *builder) { b.resolver = r }
}

// WithStrict makes unknown rule types fail the build instead of being skipped.
func WithStrict(strict bool) BuildOption {
	return func(b *builder) { b.strict = strict }
}

// WithBuildLogger sets the logger used while building.
func WithBuildLogger(l *slog.Logger) BuildOption {
	return func(b *builder) { b.logger = l }
}

// Build turns rule configuration into a rule set, in configuration order.
// Rules with an unknown type are skipped unless strict mode is on.
// The configuration is not modified.
func Build(cfg config.RuleSetConfig, opts ...BuildOption) ([]Rule, error) {
	b := &builder{logger: slog.Default()}
	for _, opt := range opts {
		opt(b)
	}
	rules := make([]Rule, 0, len(cfg))
	for _, rc := range cfg {
		v, err := b.vectorizer(rc)
		if err != nil {
			return nil, err
		}
		if v == nil {
			continue
		}
		rules = append(rules, NewVectorizerRule(rc.FieldName(), v))
		b.logger.Debug("built rule", "rule", rc.FieldName(), "type", rc.Type, "analyzer", rc.Analyzer)
	}
	return rules, nil
}

// FromConfig builds the composite described by an application config.
func FromConfig(cfg *config.AppConfig, resolver domain.AnalyzerResolver, logger *slog.Logger) (*Vectorizer, error) {
	if logger == nil {
		logger = slog.Default()
	}
	rules, err := Build(cfg.Rules, WithResolver(resolver), WithStrict(cfg.Strict), WithBuildLogger(logger))
	if err != nil {
		return nil, err
	}
	return New(rules, WithMissingValue(cfg.MissingValue), WithLogger(logger)), nil
}

// vectorizer constructs the vectorizer for one rule, or returns nil when the
// rule is skipped.
func (b *builder) vectorizer(rc config.RuleConfig) (domain.Vectorizer, error) {
	switch rc.Type {
	case TypeCount, TypeTfidf, TypeFrequencyWeighted:
	default:
		if b.strict {
			return nil, fmt.Errorf("%w: rule %q has type %q", ErrUnknownType, rc.FieldName(), rc.Type)
		}
		b.logger.Warn("skipping rule with unknown type", "rule", rc.FieldName(), "type", rc.Type)
		return nil, nil
	}

	var tokenizer domain.Tokenizer
	if rc.Analyzer != "" {
		if b.resolver == nil {
			return nil, fmt.Errorf("%w: rule %q", ErrNoResolver, rc.FieldName())
		}
		tok, err := b.resolver.Resolve(rc.Analyzer)
		if err != nil {
			return nil, fmt.Errorf("rule %q: resolve analyzer: %w", rc.FieldName(), err)
		}
		tokenizer = tok
	}

	counts, err := countOptions(rc.Vectorizer, tokenizer)
	if err != nil {
		return nil, fmt.Errorf("rule %q: %w", rc.FieldName(), err)
	}
	var v domain.Vectorizer
	if rc.Type == TypeCount {
		v, err = vectorizer.NewCountVectorizer(counts)
	} else {
		v, err = vectorizer.NewTfidfVectorizer(vectorizer.TfidfOptions{
			CountOptions: counts,
			Norm:         rc.Vectorizer.Norm,
			UseIDF:       rc.Vectorizer.UseIDF,
			SmoothIDF:    rc.Vectorizer.SmoothIDF,
			SublinearTF:  rc.Vectorizer.SublinearTF,
		})
	}
	if err != nil {
		return nil, fmt.Errorf("rule %q: %w", rc.FieldName(), err)
	}
	return v, nil
}

func countOptions(o config.VectorizerOptions, tokenizer domain.Tokenizer) (vectorizer.CountOptions, error) {
	opts := vectorizer.CountOptions{
		Lowercase:    o.Lowercase,
		TokenPattern: o.TokenPattern,
		Tokenizer:    tokenizer,
		StopWords:    append([]string(nil), o.StopWords...),
		MinDF:        o.MinDF,
		MaxDF:        o.MaxDF,
		MaxFeatures:  o.MaxFeatures,
		Binary:       o.Binary,
	}
	switch len(o.NgramRange) {
	case 0:
	case 2:
		opts.NgramRange = [2]int{o.NgramRange[0], o.NgramRange[1]}
	default:
		return opts, fmt.Errorf("%w: ngram_range needs two values", vectorizer.ErrInvalidOptions)
	}
	return opts, nil
}
