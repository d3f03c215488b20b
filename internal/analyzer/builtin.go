package analyzer

import (
	"regexp"
	"strings"

	"fieldvec/internal/domain"
)

var wordRe = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*|\p{N}+`)

// builtins are local tokenizers addressable as "builtin:<name>".
var builtins = map[string]domain.Tokenizer{
	"whitespace": func(text string) ([]string, error) {
		return strings.Fields(text), nil
	},
	"lower": func(text string) ([]string, error) {
		return strings.Fields(strings.ToLower(text)), nil
	},
	"standard": func(text string) ([]string, error) {
		return wordRe.FindAllString(strings.ToLower(text), -1), nil
	},
}
