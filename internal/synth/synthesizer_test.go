package synth

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/drpaneas/voiceprint/internal/llm"
	"github.com/drpaneas/voiceprint/internal/style"
	"github.com/drpaneas/voiceprint/internal/target"
)

type fakeProvider struct {
	responses []string
	err       error
	calls     int
	prompts   []string
	opts      []*llm.CompleteOptions
}

func (f *fakeProvider) Complete(_ context.Context, _, prompt string, opts *llm.CompleteOptions) (string, error) {
	f.calls++
	f.prompts = append(f.prompts, prompt)
	f.opts = append(f.opts, opts)
	if f.err != nil {
		return "", f.err
	}
	if len(f.responses) == 0 {
		return "", nil
	}
	r := f.responses[0]
	if len(f.responses) > 1 {
		f.responses = f.responses[1:]
	}
	return r, nil
}

var (
	testSig = &style.Signature{
		Tone:         "conversational",
		Formality:    0.3,
		AvgItemWords: 24,
		VoiceAnchors: []string{"love this take"},
		Openers:      []string{"love this"},
		Topics:       []string{"hiring"},
	}
	testPost = target.Post{ID: "p1", Author: "Sam Lee", Text: "We cut our hiring loop from six rounds to three.", Kind: target.KindAdvice}
)

func TestSynthesizeExactCount(t *testing.T) {
	fp := &fakeProvider{responses: []string{`{"comments":[
		{"approach":"question","text":"How did you keep signal with fewer rounds?"},
		{"approach":"agreement-elaboration","text":"Fewer rounds also means fewer people saying no for vague reasons."},
		{"approach":"personal-anecdote","text":"We went from five to three last year and offer acceptance went up."},
		{"approach":"question","text":"Did the hiring managers push back at first?"}
	]}`}}
	temp := 0.4
	s := New(fp, Options{Temperature: &temp})

	drafts, err := s.Synthesize(context.Background(), testSig, testPost, 3)
	if err != nil {
		t.Fatalf("Synthesize() error: %v", err)
	}
	if len(drafts) != 3 {
		t.Fatalf("got %d drafts, want 3", len(drafts))
	}
	gotApproaches := []string{drafts[0].Approach, drafts[1].Approach, drafts[2].Approach}
	want := []string{ApproachAgreement, ApproachQuestion, ApproachAnecdote}
	if !reflect.DeepEqual(gotApproaches, want) {
		t.Errorf("approaches = %v, want %v", gotApproaches, want)
	}
	if drafts[1].Text != "How did you keep signal with fewer rounds?" {
		t.Errorf("first matching question should win, got %q", drafts[1].Text)
	}
	if fp.calls != 1 {
		t.Errorf("made %d model calls, want 1", fp.calls)
	}
	if got := *fp.opts[0].Temperature; got != 0.4 {
		t.Errorf("temperature = %v, want 0.4", got)
	}
	for _, fragment := range []string{testPost.Text, "love this take", "conversational", "between 30 and 1250 characters", ApproachAnecdote} {
		if !strings.Contains(fp.prompts[0], fragment) {
			t.Errorf("prompt missing %q", fragment)
		}
	}
}

func TestSynthesizeTooFew(t *testing.T) {
	tests := []struct {
		name     string
		response string
	}{
		{"fewer than requested", `{"comments":[{"approach":"question","text":"Only one?"}]}`},
		{"duplicates collapse", `{"comments":[{"text":"Same."},{"text":"same."},{"text":"SAME."}]}`},
		{"blank texts", `{"comments":[{"text":""},{"text":"  "},{"text":"ok"}]}`},
		{"not json", `I'm sorry, I can't help with that.`},
		{"empty", ``},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(&fakeProvider{responses: []string{tt.response}}, Options{})
			_, err := s.Synthesize(context.Background(), testSig, testPost, 3)
			if !errors.Is(err, ErrGenerationUnavailable) {
				t.Errorf("Synthesize() error = %v, want ErrGenerationUnavailable", err)
			}
		})
	}
}

func TestSynthesizeProviderErrorKeepsType(t *testing.T) {
	authErr := &llm.Error{Provider: llm.ProviderOpenAI, Kind: llm.KindAuth, StatusCode: 401, Err: errors.New("invalid key")}
	fp := &fakeProvider{err: authErr}
	s := New(fp, Options{})

	_, err := s.Synthesize(context.Background(), testSig, testPost, 3)
	if !errors.Is(err, ErrGenerationUnavailable) {
		t.Fatalf("error = %v, want ErrGenerationUnavailable", err)
	}
	var le *llm.Error
	if !errors.As(err, &le) || le.Kind != llm.KindAuth {
		t.Errorf("error chain lost *llm.Error: %v", err)
	}
	if fp.calls != 1 {
		t.Errorf("made %d model calls, want exactly 1", fp.calls)
	}
}

func TestSynthesizeInvalidCount(t *testing.T) {
	fp := &fakeProvider{}
	if _, err := New(fp, Options{}).Synthesize(context.Background(), testSig, testPost, 0); err == nil {
		t.Error("Synthesize(n=0) expected error")
	}
	if fp.calls != 0 {
		t.Error("model called for an invalid count")
	}
}

func TestTemperature(t *testing.T) {
	zero, hot := 0.0, 1.2
	tests := []struct {
		name string
		temp *float64
		want float32
	}{
		{"unset takes default", nil, DefaultTemperature},
		{"zero is kept", &zero, 0},
		{"explicit", &hot, 1.2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fp := &fakeProvider{responses: []string{`{"comments":[{"text":"Did the hiring managers push back at first?"}]}`}}
			s := New(fp, Options{Temperature: tt.temp})
			if _, err := s.Regenerate(context.Background(), testSig, testPost, ApproachQuestion, Rejection{Text: "Great post!", Reason: "generic"}); err != nil {
				t.Fatalf("Regenerate() error: %v", err)
			}
			if got := fp.opts[0].Temperature; got == nil || *got != tt.want {
				t.Errorf("temperature = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestApproachesCycle(t *testing.T) {
	s := New(&fakeProvider{}, Options{Approaches: []string{"a", "b"}})
	got := s.Approaches(5)
	want := []string{"a", "b", "a", "b", "a"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Approaches(5) = %v, want %v", got, want)
	}
}

func TestSelectDrafts(t *testing.T) {
	tests := []struct {
		name   string
		drafts []Draft
		want   []string
		expect []Draft
	}{
		{
			name:   "one per approach in request order",
			drafts: []Draft{{"b", "b1"}, {"a", "a1"}, {"a", "a2"}},
			want:   []string{"a", "b"},
			expect: []Draft{{"a", "a1"}, {"b", "b1"}},
		},
		{
			name:   "leftovers fill open slots in model order and take their approach",
			drafts: []Draft{{"x", "x1"}, {"a", "a1"}, {"y", "y1"}},
			want:   []string{"a", "b", "c"},
			expect: []Draft{{"a", "a1"}, {"b", "x1"}, {"c", "y1"}},
		},
		{
			name:   "leftover lands in the slot it fills",
			drafts: []Draft{{"b", "b1"}, {"", "t1"}},
			want:   []string{"a", "b"},
			expect: []Draft{{"a", "t1"}, {"b", "b1"}},
		},
		{
			name:   "unlabeled leftovers take the open slot's approach",
			drafts: []Draft{{"", "t1"}, {"", "t2"}},
			want:   []string{"a", "b"},
			expect: []Draft{{"a", "t1"}, {"b", "t2"}},
		},
		{
			name:   "truncates to request",
			drafts: []Draft{{"a", "1"}, {"a", "2"}, {"a", "3"}},
			want:   []string{"a", "a"},
			expect: []Draft{{"a", "1"}, {"a", "2"}},
		},
		{
			name:   "short",
			drafts: []Draft{{"a", "1"}},
			want:   []string{"a", "b"},
			expect: []Draft{{"a", "1"}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := selectDrafts(tt.drafts, tt.want)
			if !reflect.DeepEqual(got, tt.expect) {
				t.Errorf("selectDrafts() = %v, want %v", got, tt.expect)
			}
		})
	}
}

func TestParseDrafts(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  int
	}{
		{"plain", `{"comments":[{"approach":"question","text":"a"},{"approach":"x","text":"b"}]}`, 2},
		{"code fence", "```json\n{\"comments\":[{\"text\":\"a\"}]}\n```", 1},
		{"preamble", "Sure! Here you go:\n{\"comments\":[{\"text\":\"a\"}]}", 1},
		{"trailing commentary", `{"comments":[{"text":"a"}]} Let me know if you want more.`, 1},
		{"trailing comma", `{"comments":[{"text":"a"},{"text":"b"},]}`, 2},
		{"raw newline in string", "{\"comments\":[{\"text\":\"line one\nline two\"}]}", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseDrafts(tt.input)
			if err != nil {
				t.Fatalf("parseDrafts() error: %v", err)
			}
			if len(got) != tt.want {
				t.Errorf("parseDrafts() returned %d drafts, want %d", len(got), tt.want)
			}
		})
	}
}

func TestRegenerate(t *testing.T) {
	fp := &fakeProvider{responses: []string{`{"comments":[{"approach":"something-else","text":"What made you pick three rounds rather than two?"}]}`}}
	s := New(fp, Options{})
	d, err := s.Regenerate(context.Background(), testSig, testPost, ApproachQuestion,
		Rejection{Text: "Great insights, thanks for sharing!", Reason: "generic praise"})
	if err != nil {
		t.Fatalf("Regenerate() error: %v", err)
	}
	if d.Approach != ApproachQuestion {
		t.Errorf("Approach = %q, want the requested slot approach", d.Approach)
	}
	if d.Text != "What made you pick three rounds rather than two?" {
		t.Errorf("Text = %q", d.Text)
	}
	for _, fragment := range []string{"Great insights, thanks for sharing!", "generic praise"} {
		if !strings.Contains(fp.prompts[0], fragment) {
			t.Errorf("prompt missing %q", fragment)
		}
	}

	t.Run("provider failure", func(t *testing.T) {
		s := New(&fakeProvider{err: &llm.Error{Kind: llm.KindServer, StatusCode: 503}}, Options{})
		_, err := s.Regenerate(context.Background(), testSig, testPost, ApproachQuestion, Rejection{})
		if !errors.Is(err, ErrGenerationUnavailable) {
			t.Errorf("error = %v, want ErrGenerationUnavailable", err)
		}
	})

	t.Run("empty comment list", func(t *testing.T) {
		s := New(&fakeProvider{responses: []string{`{"comments":[]}`}}, Options{})
		_, err := s.Regenerate(context.Background(), testSig, testPost, ApproachQuestion, Rejection{})
		if !errors.Is(err, ErrGenerationUnavailable) {
			t.Errorf("error = %v, want ErrGenerationUnavailable", err)
		}
	})
}
