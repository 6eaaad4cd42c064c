package textutil

import (
	"math"
	"strings"
	"unicode"
)

// Truncate returns s unchanged if len(s) <= maxLen (measured in bytes).
// Otherwise it cuts at maxLen, walks back to avoid splitting a multi-byte
// UTF-8 sequence, and appends suffix.
func Truncate(s string, maxLen int, suffix string) string {
	if len(s) <= maxLen {
		return s
	}
	cut := maxLen
	for cut > 0 && s[cut]>>6 == 0b10 {
		cut--
	}
	return s[:cut] + suffix
}

// Words splits s into word tokens. A token is a run of letters and digits,
// optionally joined by apostrophes or hyphens ("don't", "follow-up").
// Curly apostrophes are folded to ASCII.
func Words(s string) []string {
	var words []string
	var b strings.Builder
	flush := func() {
		w := strings.Trim(b.String(), "'-")
		if w != "" {
			words = append(words, w)
		}
		b.Reset()
	}
	for _, r := range s {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case (r == '\'' || r == '’' || r == '-') && b.Len() > 0:
			if r == '’' {
				r = '\''
			}
			b.WriteRune(r)
		default:
			flush()
		}
	}
	flush()
	return words
}

// WordCount returns len(Words(s)).
func WordCount(s string) int {
	return len(Words(s))
}

// Sentences splits s on terminal punctuation and line breaks. Fragments
// without any word are dropped.
func Sentences(s string) []string {
	var out []string
	start := 0
	emit := func(end int) {
		frag := strings.TrimSpace(s[start:end])
		if frag != "" && WordCount(frag) > 0 {
			out = append(out, frag)
		}
	}
	for i, r := range s {
		switch r {
		case '.', '!', '?', '\n', '…':
			emit(i)
			start = i + len(string(r))
		}
	}
	emit(len(s))
	return out
}

// IsEmoji reports whether r falls in one of the pictographic emoji blocks.
func IsEmoji(r rune) bool {
	switch {
	case r >= 0x1F300 && r <= 0x1FAFF: // pictographs, emoticons, transport, supplemental
		return true
	case r >= 0x1F1E6 && r <= 0x1F1FF: // regional indicators
		return true
	case r >= 0x2600 && r <= 0x27BF: // misc symbols, dingbats
		return true
	case r == 0x2B50 || r == 0x2B55:
		return true
	}
	return false
}

// CountEmoji returns the number of emoji runes in s.
func CountEmoji(s string) int {
	n := 0
	for _, r := range s {
		if IsEmoji(r) {
			n++
		}
	}
	return n
}

// Burstiness is the coefficient of variation of sentence length in words.
// Text with fewer than two sentences scores 0.
func Burstiness(s string) float64 {
	sentences := Sentences(s)
	if len(sentences) < 2 {
		return 0
	}
	lengths := make([]float64, len(sentences))
	for i, sent := range sentences {
		lengths[i] = float64(WordCount(sent))
	}
	return CoefficientOfVariation(lengths)
}

// CoefficientOfVariation returns the population standard deviation of xs
// divided by its mean, or 0 when the mean is 0.
func CoefficientOfVariation(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	mean := sum / float64(len(xs))
	if mean == 0 {
		return 0
	}
	var variance float64
	for _, x := range xs {
		variance += (x - mean) * (x - mean)
	}
	variance /= float64(len(xs))
	return math.Sqrt(variance) / mean
}
