package synth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/drpaneas/voiceprint/internal/authfilter"
	"github.com/drpaneas/voiceprint/internal/llm"
	"github.com/drpaneas/voiceprint/internal/style"
	"github.com/drpaneas/voiceprint/internal/target"
	"github.com/drpaneas/voiceprint/internal/textutil"
)

// ErrGenerationUnavailable means the model could not produce the requested
// comments: the provider failed, or its output was unusable. Provider
// failures keep their *llm.Error in the chain.
var ErrGenerationUnavailable = errors.New("generation unavailable")

const (
	ApproachAgreement = "agreement-elaboration"
	ApproachQuestion  = "question"
	ApproachAnecdote  = "personal-anecdote"
)

// DefaultApproaches are cycled when more variations than approaches are
// requested.
var DefaultApproaches = []string{ApproachAgreement, ApproachQuestion, ApproachAnecdote}

// DefaultTemperature balances variety against staying in voice.
const DefaultTemperature = 0.7

// Options configures a Synthesizer.
type Options struct {
	Approaches []string
	// Temperature is sent as is, zero included. Nil means DefaultTemperature.
	Temperature *float64
	Bounds      authfilter.Bounds
	MaxTokens   int
}

// Draft is one generated comment before filtering.
type Draft struct {
	Approach string `json:"approach"`
	Text     string `json:"text"`
}

// Rejection tells the model why a previous draft was refused.
type Rejection struct {
	Text   string
	Reason string
}

// Synthesizer turns a style signature and a post into comment drafts.
type Synthesizer struct {
	provider llm.Provider
	opts     Options
}

// New returns a Synthesizer. Zero-valued options take defaults.
func New(provider llm.Provider, opts Options) *Synthesizer {
	if len(opts.Approaches) == 0 {
		opts.Approaches = DefaultApproaches
	}
	if opts.Temperature == nil {
		t := DefaultTemperature
		opts.Temperature = &t
	}
	if opts.Bounds == (authfilter.Bounds{}) {
		opts.Bounds = authfilter.DefaultBounds
	}
	return &Synthesizer{provider: provider, opts: opts}
}

// Approaches returns the approach for each of n slots, cycling the
// configured list.
func (s *Synthesizer) Approaches(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = s.opts.Approaches[i%len(s.opts.Approaches)]
	}
	return out
}

// Synthesize asks the model for n comments in one call and returns exactly
// n drafts, one per slot of Approaches(n).
func (s *Synthesizer) Synthesize(ctx context.Context, sig *style.Signature, post target.Post, n int) ([]Draft, error) {
	if n < 1 {
		return nil, fmt.Errorf("variation count must be positive, got %d", n)
	}
	want := s.Approaches(n)

	var list strings.Builder
	for i, a := range want {
		fmt.Fprintf(&list, "%d. %s: %s\n", i+1, a, guide(a))
	}
	b := s.opts.Bounds
	prompt := fmt.Sprintf(synthesizePrompt, n, post.Kind, author(post), post.Text, describe(sig),
		b.MinChars, b.MaxChars, b.MinWords, b.MaxWords, list.String())

	slog.Info("synthesizing comments", "post", post.ID, "count", n, "approaches", strings.Join(want, ","))
	raw, err := s.provider.Complete(ctx, systemPrompt, prompt, s.completeOptions())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrGenerationUnavailable, err)
	}
	slog.Debug("model response", "bytes", len(raw))

	drafts, err := parseDrafts(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrGenerationUnavailable, err)
	}
	selected := selectDrafts(drafts, want)
	if len(selected) < n {
		return nil, fmt.Errorf("%w: model returned %d usable comments, want %d", ErrGenerationUnavailable, len(selected), n)
	}
	return selected, nil
}

// Regenerate asks for a single replacement draft for one slot.
func (s *Synthesizer) Regenerate(ctx context.Context, sig *style.Signature, post target.Post, approach string, rejected Rejection) (Draft, error) {
	b := s.opts.Bounds
	prompt := fmt.Sprintf(regeneratePrompt, post.Kind, author(post), post.Text, describe(sig),
		b.MinChars, b.MaxChars, b.MinWords, b.MaxWords,
		approach, guide(approach), rejected.Text, rejected.Reason, approach)

	slog.Info("regenerating comment", "post", post.ID, "approach", approach, "reason", rejected.Reason)
	raw, err := s.provider.Complete(ctx, systemPrompt, prompt, s.completeOptions())
	if err != nil {
		return Draft{}, fmt.Errorf("%w: %w", ErrGenerationUnavailable, err)
	}
	drafts, err := parseDrafts(raw)
	if err != nil {
		return Draft{}, fmt.Errorf("%w: %w", ErrGenerationUnavailable, err)
	}
	if len(drafts) == 0 {
		return Draft{}, fmt.Errorf("%w: model returned no comment", ErrGenerationUnavailable)
	}
	return Draft{Approach: approach, Text: drafts[0].Text}, nil
}

func (s *Synthesizer) completeOptions() *llm.CompleteOptions {
	return &llm.CompleteOptions{
		Temperature: llm.Temp(float32(*s.opts.Temperature)),
		MaxTokens:   s.opts.MaxTokens,
	}
}

func guide(approach string) string {
	if g, ok := approachGuides[approach]; ok {
		return g
	}
	return "write the comment using this approach"
}

func author(p target.Post) string {
	if p.Author == "" {
		return "the author"
	}
	return p.Author
}

// describe renders the parts of a signature that steer generation.
func describe(sig *style.Signature) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Tone: %s\n", sig.Tone)
	fmt.Fprintf(&b, "Formality: %.2f (0 casual, 1 formal)\n", sig.Formality)
	fmt.Fprintf(&b, "Typical comment length: %.0f words (median %.0f)\n", sig.AvgItemWords, sig.MedianItemWords)
	fmt.Fprintf(&b, "Average sentence length: %.1f words, burstiness %.2f\n", sig.AvgSentenceWords, sig.Burstiness)
	fmt.Fprintf(&b, "Emoji usage: %s\n", sig.EmojiUsage())
	fmt.Fprintf(&b, "Uses exclamation marks in %.0f%% of comments, questions in %.0f%%\n",
		sig.ExclamationRate*100, sig.QuestionRate*100)
	if len(sig.VoiceAnchors) > 0 {
		fmt.Fprintf(&b, "Phrases they reuse (work one in only if natural): %s\n", quoteAll(sig.VoiceAnchors))
	}
	if len(sig.Openers) > 0 {
		fmt.Fprintf(&b, "How they tend to open: %s\n", quoteAll(sig.Openers))
	}
	if len(sig.Topics) > 0 {
		fmt.Fprintf(&b, "Topics they know: %s\n", strings.Join(sig.Topics, ", "))
	}
	return b.String()
}

func quoteAll(ss []string) string {
	q := make([]string, len(ss))
	for i, s := range ss {
		q[i] = fmt.Sprintf("%q", s)
	}
	return strings.Join(q, ", ")
}

// parseDrafts decodes the model's JSON, tolerating code fences, preamble,
// trailing commentary and minor syntax damage. Blank and duplicate texts
// are dropped.
func parseDrafts(raw string) ([]Draft, error) {
	text := textutil.StripCodeFences(raw)

	var parsed struct {
		Comments []Draft `json:"comments"`
	}
	dec := json.NewDecoder(strings.NewReader(text))
	if err := dec.Decode(&parsed); err != nil {
		dec2 := json.NewDecoder(strings.NewReader(textutil.SanitizeJSON(text)))
		if err2 := dec2.Decode(&parsed); err2 != nil {
			return nil, fmt.Errorf("invalid JSON from model: %w\nraw response (first 500 bytes): %s",
				err, textutil.Truncate(raw, 500, "..."))
		}
	}

	seen := map[string]bool{}
	var out []Draft
	for _, d := range parsed.Comments {
		d.Text = strings.TrimSpace(d.Text)
		d.Approach = strings.ToLower(strings.TrimSpace(d.Approach))
		key := strings.ToLower(d.Text)
		if d.Text == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, d)
	}
	return out, nil
}

// selectDrafts fills slots from drafts: first one draft per requested
// approach in request order, then the open slots in order from the leftovers
// in model order. Every filled slot carries its own approach. When drafts
// run out the filled slots are returned in slot order.
func selectDrafts(drafts []Draft, want []string) []Draft {
	used := make([]bool, len(drafts))
	slots := make([]*Draft, len(want))

	for slot, a := range want {
		for i := range drafts {
			if !used[i] && drafts[i].Approach == a {
				used[i] = true
				slots[slot] = &drafts[i]
				break
			}
		}
	}
	next := 0
	for slot := range slots {
		if slots[slot] != nil {
			continue
		}
		for next < len(drafts) && used[next] {
			next++
		}
		if next == len(drafts) {
			break
		}
		used[next] = true
		slots[slot] = &drafts[next]
	}

	out := make([]Draft, 0, len(want))
	for slot, d := range slots {
		if d != nil {
			out = append(out, Draft{Approach: want[slot], Text: d.Text})
		}
	}
	return out
}
