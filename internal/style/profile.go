package style

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/drpaneas/voiceprint/internal/textutil"
)

// ErrInsufficientHistory is returned when there are too few history items to
// derive a reliable signature.
var ErrInsufficientHistory = errors.New("insufficient history")

// DefaultMinHistory is the minimum number of non-empty history items.
const DefaultMinHistory = 10

const (
	maxVocabulary = 15
	maxAnchors    = 8
	maxOpeners    = 5
	maxTopics     = 8
)

var hashtagRe = regexp.MustCompile(`#([\p{L}\p{N}_]+)`)

// TermCount is a term and how often it occurs across the history.
type TermCount struct {
	Term  string `json:"term"`
	Count int    `json:"count"`
}

// Signature summarizes a person's writing habits. It holds no timestamps, so
// the same history always produces an equal Signature.
type Signature struct {
	Tone             string      `json:"tone"`
	Formality        float64     `json:"formality"`
	AvgItemWords     float64     `json:"avg_item_words"`
	MedianItemWords  float64     `json:"median_item_words"`
	AvgSentenceWords float64     `json:"avg_sentence_words"`
	Complexity       float64     `json:"complexity"`
	Burstiness       float64     `json:"burstiness"`
	Vocabulary       []TermCount `json:"vocabulary"`
	VoiceAnchors     []string    `json:"voice_anchors"`
	Openers          []string    `json:"openers"`
	Topics           []string    `json:"topics"`
	// Rates are the share of history items showing the habit.
	EmojiRate       float64 `json:"emoji_rate"`
	ExclamationRate float64 `json:"exclamation_rate"`
	QuestionRate    float64 `json:"question_rate"`
	HashtagRate     float64 `json:"hashtag_rate"`
	HistorySize     int     `json:"history_size"`
	MinimumMet      bool    `json:"minimum_met"`
	Fingerprint     string  `json:"fingerprint"`
}

// EmojiUsage buckets EmojiRate into none, low, moderate or high.
func (s *Signature) EmojiUsage() string {
	switch {
	case s.EmojiRate == 0:
		return "none"
	case s.EmojiRate < 0.2:
		return "low"
	case s.EmojiRate < 0.5:
		return "moderate"
	default:
		return "high"
	}
}

// Profiler derives Signatures from writing history.
type Profiler struct {
	minHistory int
}

// NewProfiler returns a Profiler that refuses histories with fewer than
// minHistory non-empty items. Values below 1 use DefaultMinHistory.
func NewProfiler(minHistory int) *Profiler {
	if minHistory < 1 {
		minHistory = DefaultMinHistory
	}
	return &Profiler{minHistory: minHistory}
}

// MinHistory returns the configured minimum.
func (p *Profiler) MinHistory() int { return p.minHistory }

// Profile derives a Signature from history, ordered newest first. Blank
// items are ignored.
func (p *Profiler) Profile(history []string) (*Signature, error) {
	var items []string
	for _, h := range history {
		if t := strings.TrimSpace(h); t != "" {
			items = append(items, t)
		}
	}
	if len(items) < p.minHistory {
		return nil, fmt.Errorf("%w: have %d non-empty items, need %d", ErrInsufficientHistory, len(items), p.minHistory)
	}

	sig := &Signature{
		HistorySize: len(items),
		MinimumMet:  true,
		Fingerprint: fingerprint(items),
	}

	var (
		itemWords     []float64
		sentenceWords []float64
		clauses       int
		formal        int
		informal      int
		emoji         int
		exclaim       int
		question      int
		hashtag       int
		termCounts    = map[string]int{}
		tagCounts     = map[string]int{}
		openerCounts  = map[string]int{}
	)

	for _, item := range items {
		words := lowerWords(item)
		itemWords = append(itemWords, float64(len(words)))

		for _, w := range words {
			switch {
			case isContraction(w) || slang[w]:
				informal++
			case connectives[w]:
				formal++
			}
			if isTerm(w) {
				termCounts[w]++
			}
		}
		if len(words) >= 2 {
			openerCounts[words[0]+" "+words[1]]++
		}

		for _, sent := range textutil.Sentences(item) {
			sw := lowerWords(sent)
			sentenceWords = append(sentenceWords, float64(len(sw)))
			clauses += clauseCount(sent, sw)
		}

		if textutil.CountEmoji(item) > 0 {
			emoji++
		}
		if strings.Contains(item, "!") {
			exclaim++
		}
		if strings.Contains(item, "?") {
			question++
		}
		tags := hashtagRe.FindAllStringSubmatch(item, -1)
		if len(tags) > 0 {
			hashtag++
		}
		for _, m := range tags {
			tagCounts[strings.ToLower(m[1])]++
		}
	}

	n := float64(len(items))
	sig.AvgItemWords = round(mean(itemWords))
	sig.MedianItemWords = round(median(itemWords))
	sig.AvgSentenceWords = round(mean(sentenceWords))
	if len(sentenceWords) > 0 {
		sig.Complexity = round(float64(clauses) / float64(len(sentenceWords)))
	}
	sig.Burstiness = round(textutil.CoefficientOfVariation(sentenceWords))
	sig.Formality = round(float64(formal+1) / float64(formal+informal+2))
	sig.EmojiRate = round(float64(emoji) / n)
	sig.ExclamationRate = round(float64(exclaim) / n)
	sig.QuestionRate = round(float64(question) / n)
	sig.HashtagRate = round(float64(hashtag) / n)

	sig.Vocabulary = topCounts(termCounts, 1, maxVocabulary)
	sig.VoiceAnchors = voiceAnchors(items)
	for _, o := range topCounts(openerCounts, 2, maxOpeners) {
		sig.Openers = append(sig.Openers, o.Term)
	}
	sig.Topics = topics(tagCounts, sig.Vocabulary)
	sig.Tone = tone(sig)

	return sig, nil
}

// tone picks a descriptor from the habit rates, falling back to formality.
func tone(s *Signature) string {
	switch {
	case s.ExclamationRate >= 0.4 || s.EmojiRate >= 0.4:
		return "enthusiastic"
	case s.QuestionRate >= 0.4:
		return "inquisitive"
	case s.Formality >= 0.65:
		return "professional"
	case s.Formality <= 0.35:
		return "conversational"
	default:
		return "measured"
	}
}

func lowerWords(s string) []string {
	words := textutil.Words(s)
	for i, w := range words {
		words[i] = strings.ToLower(w)
	}
	return words
}

func isTerm(w string) bool {
	if len([]rune(w)) < 3 || stopwords[w] || slang[w] {
		return false
	}
	for _, r := range w {
		if r < '0' || r > '9' {
			return true
		}
	}
	return false
}

// clauseCount approximates the clauses in one sentence: one, plus one per
// inner separator and per subordinating word.
func clauseCount(sentence string, words []string) int {
	n := 1 + strings.Count(sentence, ",") + strings.Count(sentence, ";") + strings.Count(sentence, ":")
	for _, w := range words {
		if subordinators[w] {
			n++
		}
	}
	return n
}

// topCounts returns entries with at least minCount occurrences, by count
// descending then term, capped at limit.
func topCounts(counts map[string]int, minCount, limit int) []TermCount {
	var out []TermCount
	for term, c := range counts {
		if c >= minCount {
			out = append(out, TermCount{Term: term, Count: c})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Term < out[j].Term
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

type ngram struct {
	text string
	size int
	df   int
}

// voiceAnchors returns the bigrams and trigrams that recur across at least
// two items. N-grams never cross a sentence boundary and must contain a
// non-stopword. A shorter n-gram is dropped when a chosen longer one contains
// it with the same document frequency.
func voiceAnchors(items []string) []string {
	df := map[string]int{}
	size := map[string]int{}
	for _, item := range items {
		seen := map[string]bool{}
		for _, sent := range textutil.Sentences(item) {
			words := lowerWords(sent)
			for n := 2; n <= 3; n++ {
				for i := 0; i+n <= len(words); i++ {
					gram := words[i : i+n]
					if allStopwords(gram) {
						continue
					}
					key := strings.Join(gram, " ")
					if !seen[key] {
						seen[key] = true
						df[key]++
						size[key] = n
					}
				}
			}
		}
	}

	var grams []ngram
	for k, c := range df {
		if c >= 2 {
			grams = append(grams, ngram{text: k, size: size[k], df: c})
		}
	}
	sort.Slice(grams, func(i, j int) bool {
		a, b := grams[i], grams[j]
		if a.df != b.df {
			return a.df > b.df
		}
		if a.size != b.size {
			return a.size > b.size
		}
		return a.text < b.text
	})

	var chosen []ngram
	for _, g := range grams {
		if len(chosen) == maxAnchors {
			break
		}
		if subsumed(g, chosen) {
			continue
		}
		chosen = append(chosen, g)
	}
	out := make([]string, len(chosen))
	for i, g := range chosen {
		out[i] = g.text
	}
	return out
}

func subsumed(g ngram, chosen []ngram) bool {
	for _, c := range chosen {
		if c.size > g.size && c.df == g.df && strings.Contains(" "+c.text+" ", " "+g.text+" ") {
			return true
		}
	}
	return false
}

func allStopwords(words []string) bool {
	for _, w := range words {
		if !stopwords[w] {
			return false
		}
	}
	return true
}

// topics lists hashtags first, then vocabulary terms not already present.
func topics(tags map[string]int, vocab []TermCount) []string {
	var out []string
	seen := map[string]bool{}
	for _, t := range topCounts(tags, 1, maxTopics) {
		out = append(out, t.Term)
		seen[t.Term] = true
	}
	for _, v := range vocab {
		if len(out) == maxTopics {
			break
		}
		if !seen[v.Term] {
			out = append(out, v.Term)
			seen[v.Term] = true
		}
	}
	return out
}

func fingerprint(items []string) string {
	h := sha256.New()
	for _, it := range items {
		h.Write([]byte(it))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))[:16]
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func median(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	s := append([]float64(nil), xs...)
	sort.Float64s(s)
	mid := len(s) / 2
	if len(s)%2 == 1 {
		return s[mid]
	}
	return (s[mid-1] + s[mid]) / 2
}

func round(x float64) float64 {
	return math.Round(x*1000) / 1000
}
