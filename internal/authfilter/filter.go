package authfilter

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/drpaneas/voiceprint/internal/textutil"
)

// Rejection codes, stable for metrics labels.
const (
	CodeEmpty        = "empty"
	CodeTooShort     = "too_short"
	CodeTooLong      = "too_long"
	CodeTooFewWords  = "too_few_words"
	CodeTooManyWords = "too_many_words"
	CodeDenylist     = "denylist"
)

// Bounds limits comment length. Zero maximums are unbounded.
type Bounds struct {
	MinChars int
	MaxChars int
	MinWords int
	MaxWords int
}

// DefaultBounds fit a short comment on a professional network.
var DefaultBounds = Bounds{MinChars: 30, MaxChars: 1250, MinWords: 5, MaxWords: 150}

// Verdict is the outcome of checking one candidate.
type Verdict struct {
	Passed bool
	Code   string
	Reason string
	// Rule is the phrase or pattern that matched, for denylist rejections.
	Rule string
	// Burstiness is informational and never causes a rejection.
	Burstiness float64
}

// Filter classifies candidate comments. It never edits them.
type Filter struct {
	rules  []compiledRule
	bounds Bounds
}

// New compiles rules into a Filter.
func New(rules []Rule, bounds Bounds) (*Filter, error) {
	compiled, err := compile(rules)
	if err != nil {
		return nil, fmt.Errorf("compiling denylist: %w", err)
	}
	return &Filter{rules: compiled, bounds: bounds}, nil
}

var apostrophes = strings.NewReplacer("’", "'", "‘", "'")

// Check returns whether text passes the length bounds and denylist.
func (f *Filter) Check(text string) Verdict {
	trimmed := strings.TrimSpace(text)
	v := Verdict{Burstiness: textutil.Burstiness(trimmed)}

	chars := utf8.RuneCountInString(trimmed)
	words := textutil.WordCount(trimmed)
	b := f.bounds
	switch {
	case trimmed == "":
		return v.reject(CodeEmpty, "empty text", "")
	case chars < b.MinChars:
		return v.reject(CodeTooShort, fmt.Sprintf("%d chars, minimum %d", chars, b.MinChars), "")
	case b.MaxChars > 0 && chars > b.MaxChars:
		return v.reject(CodeTooLong, fmt.Sprintf("%d chars, maximum %d", chars, b.MaxChars), "")
	case words < b.MinWords:
		return v.reject(CodeTooFewWords, fmt.Sprintf("%d words, minimum %d", words, b.MinWords), "")
	case b.MaxWords > 0 && words > b.MaxWords:
		return v.reject(CodeTooManyWords, fmt.Sprintf("%d words, maximum %d", words, b.MaxWords), "")
	}

	normalized := apostrophes.Replace(trimmed)
	lower := strings.ToLower(normalized)
	for _, r := range f.rules {
		if r.match(lower, normalized) {
			return v.reject(CodeDenylist, r.rule.Reason, r.rule.String())
		}
	}
	v.Passed = true
	return v
}

func (v Verdict) reject(code, reason, rule string) Verdict {
	v.Code = code
	v.Reason = reason
	v.Rule = rule
	return v
}
