package composite

import (
	"fieldvec/internal/domain"
)

// Kind tells which variant a Rule holds.
type Kind int

const (
	// KindVectorizer rules hold a stateful vectorizer that is fitted on the corpus.
	KindVectorizer Kind = iota + 1
	// KindFunc rules hold a pure function that is only ever invoked.
	KindFunc
)

func (k Kind) String() string {
	switch k {
	case KindVectorizer:
		return "vectorizer"
	case KindFunc:
		return "func"
	default:
		return "invalid"
	}
}

// Rule binds a document field path to the vectorizer for that field.
// The name doubles as the feature name prefix.
type Rule struct {
	name       string
	kind       Kind
	vectorizer domain.Vectorizer
	fn         domain.VectorizeFunc
	fnNames    []string
}

// NewVectorizerRule creates a rule backed by a stateful vectorizer.
func NewVectorizerRule(name string, v domain.Vectorizer) Rule {
	return Rule{name: name, kind: KindVectorizer, vectorizer: v}
}

// NewFuncRule creates a rule backed by a pure function. Such a rule has no
// feature names, so FeatureNames and FeatureSize fail on a set containing it.
func NewFuncRule(name string, fn domain.VectorizeFunc) Rule {
	return Rule{name: name, kind: KindFunc, fn: fn}
}

// NewFuncRuleWithNames creates a function rule whose output columns are
// named by names, in order.
func NewFuncRuleWithNames(name string, fn domain.VectorizeFunc, names []string) Rule {
	cp := make([]string, len(names))
	copy(cp, names)
	return Rule{name: name, kind: KindFunc, fn: fn, fnNames: cp}
}

// Name returns the field path of the rule.
func (r Rule) Name() string { return r.name }

// Kind returns the variant of the rule.
func (r Rule) Kind() Kind { return r.kind }

// Vectorizer returns the stateful vectorizer, or nil for function rules.
func (r Rule) Vectorizer() domain.Vectorizer { return r.vectorizer }
