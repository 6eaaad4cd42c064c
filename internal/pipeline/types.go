package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/drpaneas/voiceprint/internal/authfilter"
	"github.com/drpaneas/voiceprint/internal/socialdata"
	"github.com/drpaneas/voiceprint/internal/style"
	"github.com/drpaneas/voiceprint/internal/synth"
	"github.com/drpaneas/voiceprint/internal/target"
)

// Source fetches raw profile data. *socialdata.Client and
// *socialdata.FileSource implement it.
type Source interface {
	FetchProfile(ctx context.Context, id string) (*socialdata.Profile, error)
	FetchPosts(ctx context.Context, id string, since time.Time) ([]socialdata.RawPost, error)
}

// Generator produces comment drafts. *synth.Synthesizer implements it.
type Generator interface {
	Synthesize(ctx context.Context, sig *style.Signature, post target.Post, n int) ([]synth.Draft, error)
	Regenerate(ctx context.Context, sig *style.Signature, post target.Post, approach string, rejected synth.Rejection) (synth.Draft, error)
}

// Checker classifies a draft. *authfilter.Filter implements it.
type Checker interface {
	Check(text string) authfilter.Verdict
}

// Recorder persists finished generation results.
type Recorder interface {
	Record(ctx context.Context, res *Result) error
}

// StyleRecorder is optionally implemented by a Recorder that also persists
// derived styles.
type StyleRecorder interface {
	RecordStyle(ctx context.Context, sr *StyleResult) error
}

// StyleResult is a derived signature and the profile it came from.
type StyleResult struct {
	ProfileID string           `json:"profile_id"`
	Name      string           `json:"name"`
	Headline  string           `json:"headline,omitempty"`
	Signature *style.Signature `json:"signature"`
	// Cached is set when the signature came from the cache.
	Cached bool `json:"-"`
}

// Validate reports whether sr holds a usable signature. The cache uses it
// to treat an entry that decodes to an empty style as corrupt.
func (sr *StyleResult) Validate() error {
	switch {
	case sr.Signature == nil:
		return errors.New("style has no signature")
	case sr.ProfileID == "":
		return errors.New("style has no profile id")
	}
	return nil
}

// Request asks for Count comments in ProfileID's voice on a post by
// TargetID. An empty PostID selects the target's newest eligible post.
type Request struct {
	ProfileID string
	TargetID  string
	PostID    string
	Count     int
}

// Candidate is one generated comment and its filter verdict.
type Candidate struct {
	ID                   string  `json:"id"`
	Text                 string  `json:"text"`
	Approach             string  `json:"approach"`
	SignatureFingerprint string  `json:"signature_fingerprint"`
	PostID               string  `json:"post_id"`
	Passed               bool    `json:"passed"`
	Code                 string  `json:"code,omitempty"`
	Reason               string  `json:"reason,omitempty"`
	Rule                 string  `json:"rule,omitempty"`
	Slot                 int     `json:"slot"`
	Attempt              int     `json:"attempt"`
	Burstiness           float64 `json:"burstiness"`
}

// Shortfall explains a result with fewer accepted candidates than requested.
type Shortfall struct {
	Requested int    `json:"requested"`
	Accepted  int    `json:"accepted"`
	Reason    string `json:"reason"`
}

// Result is the outcome of one generation request.
type Result struct {
	ID        string      `json:"id"`
	ProfileID string      `json:"profile_id"`
	TargetID  string      `json:"target_id"`
	Post      target.Post `json:"post"`
	Style     StyleResult `json:"style"`
	Accepted  []Candidate `json:"accepted"`
	Rejected  []Candidate `json:"rejected,omitempty"`
	Shortfall *Shortfall  `json:"shortfall,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
}
