package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/drpaneas/voiceprint/internal/cache"
	"github.com/drpaneas/voiceprint/internal/metrics"
	"github.com/drpaneas/voiceprint/internal/socialdata"
	"github.com/drpaneas/voiceprint/internal/style"
	"github.com/drpaneas/voiceprint/internal/synth"
	"github.com/drpaneas/voiceprint/internal/target"
	"github.com/google/uuid"
)

// Defaults for Config fields left zero.
const (
	DefaultVariations     = 3
	DefaultRetriesPerSlot = 2
	DefaultCallTimeout    = 60 * time.Second
)

// Config tunes the Orchestrator.
type Config struct {
	RecencyWindow time.Duration
	Variations    int
	// RetriesPerSlot bounds regenerations after a rejection. Negative
	// disables regeneration.
	RetriesPerSlot int
	CallTimeout    time.Duration
}

// Deps are the Orchestrator's collaborators. Recorder and Metrics are
// optional.
type Deps struct {
	Source    Source
	Profiler  *style.Profiler
	Generator Generator
	Filter    Checker
	Cache     *cache.Cache
	Recorder  Recorder
	Metrics   *metrics.Metrics
}

// Orchestrator sequences style derivation and comment generation. It holds
// no per-user state; every call names its profiles.
type Orchestrator struct {
	deps Deps
	cfg  Config
	now  func() time.Time
}

// New returns an Orchestrator.
func New(deps Deps, cfg Config) *Orchestrator {
	if cfg.RecencyWindow <= 0 {
		cfg.RecencyWindow = target.DefaultWindow
	}
	if cfg.Variations <= 0 {
		cfg.Variations = DefaultVariations
	}
	if cfg.RetriesPerSlot == 0 {
		cfg.RetriesPerSlot = DefaultRetriesPerSlot
	}
	if cfg.RetriesPerSlot < 0 {
		cfg.RetriesPerSlot = 0
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = DefaultCallTimeout
	}
	if deps.Profiler == nil {
		deps.Profiler = style.NewProfiler(style.DefaultMinHistory)
	}
	return &Orchestrator{deps: deps, cfg: cfg, now: time.Now}
}

// DeriveStyle returns the style signature for profileID, from the cache when
// a live entry exists. refresh discards any cached signature first.
func (o *Orchestrator) DeriveStyle(ctx context.Context, profileID string, refresh bool) (*StyleResult, error) {
	sr, err := o.deriveStyle(ctx, profileID, refresh)
	o.deps.Metrics.RecordOutcome("style", Classify(err).Name)
	if err != nil {
		return nil, err
	}
	if rec, ok := o.deps.Recorder.(StyleRecorder); ok {
		if err := rec.RecordStyle(ctx, sr); err != nil {
			slog.Warn("could not record style", "profile", sr.ProfileID, "error", err)
		}
	}
	return sr, nil
}

func (o *Orchestrator) deriveStyle(ctx context.Context, profileID string, refresh bool) (*StyleResult, error) {
	handle, err := socialdata.ExtractHandle(profileID)
	if err != nil {
		return nil, err
	}
	if refresh {
		if err := o.deps.Cache.Invalidate(ctx, cache.KindSignature, handle); err != nil {
			slog.Warn("could not invalidate cached style", "profile", handle, "error", err)
		}
	}

	var sr StyleResult
	hit, err := o.deps.Cache.Load(ctx, cache.KindSignature, handle, &sr, func(ctx context.Context) (any, error) {
		var profile *socialdata.Profile
		if err := o.call(ctx, "fetch_profile", func(ctx context.Context) error {
			var err error
			profile, err = o.deps.Source.FetchProfile(ctx, handle)
			return err
		}); err != nil {
			return nil, fmt.Errorf("fetching profile %s: %w", handle, err)
		}

		start := time.Now()
		sig, err := o.deps.Profiler.Profile(profile.Texts())
		o.deps.Metrics.ObserveStage("profile", start)
		if err != nil {
			return nil, fmt.Errorf("profiling %s: %w", handle, err)
		}
		slog.Info("derived style", "profile", handle, "history", sig.HistorySize, "tone", sig.Tone, "fingerprint", sig.Fingerprint)
		return StyleResult{ProfileID: handle, Name: profile.Name, Headline: profile.Headline, Signature: sig}, nil
	})
	if err != nil {
		return nil, err
	}
	sr.Cached = hit
	if hit {
		slog.Info("using cached style", "profile", handle, "fingerprint", sr.Signature.Fingerprint)
	}
	return &sr, nil
}

// EligiblePosts returns targetID's posts inside the recency window, newest
// first.
func (o *Orchestrator) EligiblePosts(ctx context.Context, targetID string) ([]target.Post, error) {
	handle, err := socialdata.ExtractHandle(targetID)
	if err != nil {
		return nil, err
	}
	return o.eligiblePosts(ctx, handle)
}

// eligiblePosts caches the raw post set and re-applies the recency window
// on every read, so a cached set never serves a post that has aged out.
func (o *Orchestrator) eligiblePosts(ctx context.Context, handle string) ([]target.Post, error) {
	var raw []socialdata.RawPost
	_, err := o.deps.Cache.Load(ctx, cache.KindPosts, handle, &raw, func(ctx context.Context) (any, error) {
		var posts []socialdata.RawPost
		err := o.call(ctx, "fetch_posts", func(ctx context.Context) error {
			var err error
			posts, err = o.deps.Source.FetchPosts(ctx, handle, o.now().Add(-o.cfg.RecencyWindow))
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("fetching posts for %s: %w", handle, err)
		}
		return posts, nil
	})
	if err != nil {
		return nil, err
	}
	posts, err := target.Analyze(raw, o.now(), o.cfg.RecencyWindow)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", handle, err)
	}
	return posts, nil
}

// Generate runs FetchStyle, FetchPosts, Synthesize, Filter and Assemble for
// one request. A result with fewer accepted comments than requested carries
// a Shortfall; it is not an error.
func (o *Orchestrator) Generate(ctx context.Context, req Request) (*Result, error) {
	res, err := o.generate(ctx, req)
	outcome := Classify(err).Name
	if err == nil && res.Shortfall != nil {
		outcome = OutcomeShortfall
	}
	o.deps.Metrics.RecordOutcome("generate", outcome)
	if err != nil {
		return nil, err
	}

	if o.deps.Recorder != nil {
		if err := o.deps.Recorder.Record(ctx, res); err != nil {
			slog.Error("could not record result", "id", res.ID, "error", err)
		}
	}
	return res, nil
}

func (o *Orchestrator) generate(ctx context.Context, req Request) (*Result, error) {
	n := req.Count
	if n <= 0 {
		n = o.cfg.Variations
	}

	sr, err := o.deriveStyle(ctx, req.ProfileID, false)
	if err != nil {
		return nil, err
	}

	targetHandle, err := socialdata.ExtractHandle(req.TargetID)
	if err != nil {
		return nil, err
	}
	posts, err := o.eligiblePosts(ctx, targetHandle)
	if err != nil {
		return nil, err
	}
	post, err := target.Select(posts, req.PostID)
	if err != nil {
		return nil, err
	}
	slog.Info("selected post", "target", targetHandle, "post", post.ID, "kind", post.Kind, "posted_at", post.PostedAt)

	var drafts []synth.Draft
	if err := o.call(ctx, "synthesize", func(ctx context.Context) error {
		var err error
		drafts, err = o.deps.Generator.Synthesize(ctx, sr.Signature, post, n)
		return err
	}); err != nil {
		return nil, err
	}

	res := &Result{
		ID:        uuid.NewString(),
		ProfileID: sr.ProfileID,
		TargetID:  targetHandle,
		Post:      post,
		Style:     *sr,
		CreatedAt: o.now().UTC(),
	}

	var exhausted []string
	for slot, d := range drafts {
		accepted, err := o.fillSlot(ctx, res, sr.Signature, post, slot, d)
		if err != nil {
			return nil, err
		}
		if accepted == nil {
			last := res.Rejected[len(res.Rejected)-1]
			exhausted = append(exhausted, fmt.Sprintf("slot %d (%s): %s", slot+1, last.Approach, last.Reason))
			continue
		}
		res.Accepted = append(res.Accepted, *accepted)
	}

	if len(res.Accepted) < n {
		res.Shortfall = &Shortfall{
			Requested: n,
			Accepted:  len(res.Accepted),
			Reason:    fmt.Sprintf("retry budget of %d exhausted for %s", o.cfg.RetriesPerSlot, strings.Join(exhausted, "; ")),
		}
		slog.Warn("generation shortfall", "requested", n, "accepted", len(res.Accepted))
	}
	slog.Info("generated comments", "id", res.ID, "accepted", len(res.Accepted), "rejected", len(res.Rejected))
	return res, nil
}

// fillSlot filters a draft and regenerates it until it passes or the retry
// budget runs out. Every attempt is kept on the result; the accepted one is
// returned.
func (o *Orchestrator) fillSlot(ctx context.Context, res *Result, sig *style.Signature, post target.Post, slot int, d synth.Draft) (*Candidate, error) {
	for attempt := 0; ; attempt++ {
		v := o.deps.Filter.Check(d.Text)
		c := Candidate{
			ID:                   uuid.NewString(),
			Text:                 d.Text,
			Approach:             d.Approach,
			SignatureFingerprint: sig.Fingerprint,
			PostID:               post.ID,
			Passed:               v.Passed,
			Code:                 v.Code,
			Reason:               v.Reason,
			Rule:                 v.Rule,
			Slot:                 slot,
			Attempt:              attempt,
			Burstiness:           v.Burstiness,
		}
		if v.Passed {
			return &c, nil
		}

		res.Rejected = append(res.Rejected, c)
		o.deps.Metrics.RecordRejection(v.Code)
		slog.Warn("rejected candidate", "slot", slot+1, "attempt", attempt, "code", v.Code, "reason", v.Reason)
		if attempt >= o.cfg.RetriesPerSlot {
			return nil, nil
		}

		rej := synth.Rejection{Text: d.Text, Reason: v.Reason}
		if err := o.call(ctx, "regenerate", func(ctx context.Context) error {
			var err error
			d, err = o.deps.Generator.Regenerate(ctx, sig, post, d.Approach, rej)
			return err
		}); err != nil {
			return nil, err
		}
	}
}

// call runs fn under its own deadline. A deadline hit on that call while
// ctx is still live becomes ErrTimedOut, including a wait fn refused because
// it would not finish in time.
func (o *Orchestrator) call(ctx context.Context, stage string, fn func(context.Context) error) error {
	callCtx, cancel := context.WithTimeout(ctx, o.cfg.CallTimeout)
	defer cancel()

	start := time.Now()
	err := fn(callCtx)
	o.deps.Metrics.ObserveStage(stage, start)
	deadline := errors.Is(callCtx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded)
	if err != nil && deadline && ctx.Err() == nil {
		return fmt.Errorf("%s: %w after %s: %w", stage, ErrTimedOut, o.cfg.CallTimeout, err)
	}
	return err
}
