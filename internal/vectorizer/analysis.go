package vectorizer

import (
	"fmt"
	"regexp"
	"strings"

	"fieldvec/internal/domain"
)

// DefaultTokenPattern matches runs of two or more letters, digits or underscores.
const DefaultTokenPattern = `[\p{L}\p{N}_]{2,}`

// analyzer turns raw text into the features a vectorizer counts:
// lowercase, tokenize, drop stop words, then build word n-grams.
type analyzer struct {
	lowercase bool
	pattern   *regexp.Regexp
	tokenizer domain.Tokenizer
	stopwords map[string]struct{}
	ngramMin  int
	ngramMax  int
}

func newAnalyzer(opts CountOptions) (*analyzer, error) {
	a := &analyzer{
		lowercase: opts.Lowercase == nil || *opts.Lowercase,
		tokenizer: opts.Tokenizer,
		ngramMin:  opts.NgramRange[0],
		ngramMax:  opts.NgramRange[1],
	}
	if a.ngramMin == 0 && a.ngramMax == 0 {
		a.ngramMin, a.ngramMax = 1, 1
	}
	if a.ngramMin < 1 || a.ngramMax < a.ngramMin {
		return nil, fmt.Errorf("%w: ngram_range [%d, %d]", ErrInvalidOptions, a.ngramMin, a.ngramMax)
	}
	if a.tokenizer == nil {
		pattern := opts.TokenPattern
		if pattern == "" {
			pattern = DefaultTokenPattern
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("%w: token_pattern: %v", ErrInvalidOptions, err)
		}
		a.pattern = re
	}
	a.stopwords = stopwordSet(opts.StopWords, a.lowercase)
	return a, nil
}

func (a *analyzer) analyze(text string) ([]string, error) {
	if a.lowercase {
		text = strings.ToLower(text)
	}
	var tokens []string
	if a.tokenizer != nil {
		toks, err := a.tokenizer(text)
		if err != nil {
			return nil, err
		}
		tokens = toks
	} else {
		tokens = a.pattern.FindAllString(text, -1)
	}
	if len(a.stopwords) > 0 {
		kept := make([]string, 0, len(tokens))
		for _, tok := range tokens {
			if _, isStop := a.stopwords[tok]; isStop {
				continue
			}
			kept = append(kept, tok)
		}
		tokens = kept
	}
	return ngrams(tokens, a.ngramMin, a.ngramMax), nil
}

func ngrams(tokens []string, minN, maxN int) []string {
	if minN == 1 && maxN == 1 {
		return tokens
	}
	var out []string
	if minN == 1 {
		out = append(out, tokens...)
		minN = 2
	}
	for n := minN; n <= maxN; n++ {
		for i := 0; i+n <= len(tokens); i++ {
			out = append(out, strings.Join(tokens[i:i+n], " "))
		}
	}
	return out
}

// stopwordSet expands the configured list. The single entry "english"
// selects the built-in English list.
func stopwordSet(words []string, lowercase bool) map[string]struct{} {
	if len(words) == 1 && words[0] == "english" {
		words = englishStopwords
	}
	if len(words) == 0 {
		return nil
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		if lowercase {
			w = strings.ToLower(w)
		}
		m[w] = struct{}{}
	}
	return m
}

var englishStopwords = []string{
	"a", "an", "the", "and", "or", "but", "if", "then", "else", "for", "to", "of", "in", "on", "at", "by", "with", "as", "is", "are", "was", "were", "be", "been", "being", "it", "this", "that", "these", "those", "from", "up", "down", "over", "under", "again", "further", "than", "so", "such", "into", "about", "between", "through", "during", "before", "after", "above", "below", "out", "off", "own", "same", "too", "very", "can", "will", "just", "don", "should", "now",
}
