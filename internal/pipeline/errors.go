package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/drpaneas/voiceprint/internal/llm"
	"github.com/drpaneas/voiceprint/internal/socialdata"
	"github.com/drpaneas/voiceprint/internal/style"
	"github.com/drpaneas/voiceprint/internal/synth"
	"github.com/drpaneas/voiceprint/internal/target"
)

// ErrTimedOut means one external call exceeded its own deadline while the
// request as a whole was still live.
var ErrTimedOut = errors.New("timed out")

// Outcome is a stable name for how a request ended, with a remedy for the
// user.
type Outcome struct {
	Name   string
	Remedy string
}

const (
	OutcomeOK                    = "ok"
	OutcomeShortfall             = "shortfall"
	OutcomeTimedOut              = "timed_out"
	OutcomeInsufficientHistory   = "insufficient_history"
	OutcomeNoEligiblePosts       = "no_eligible_posts"
	OutcomePostNotFound          = "post_not_found"
	OutcomeGenerationUnavailable = "generation_unavailable"
	OutcomeRateLimited           = "rate_limited"
	OutcomeProfileNotFound       = "profile_not_found"
	OutcomeInvalidProfile        = "invalid_profile"
	OutcomeDataUnavailable       = "data_unavailable"
	OutcomeCanceled              = "canceled"
	OutcomeError                 = "error"
)

// Classify maps an error returned by the Orchestrator to its Outcome.
func Classify(err error) Outcome {
	var (
		rl *socialdata.RateLimitError
		le *llm.Error
	)
	switch {
	case err == nil:
		return Outcome{OutcomeOK, ""}
	case errors.Is(err, ErrTimedOut):
		return Outcome{OutcomeTimedOut, "an external service was too slow; retry later or raise --call-timeout"}
	case errors.Is(err, context.Canceled):
		return Outcome{OutcomeCanceled, ""}
	case errors.Is(err, style.ErrInsufficientHistory):
		return Outcome{OutcomeInsufficientHistory, "the profile has too little public writing; gather more history or lower --min-history"}
	case errors.Is(err, target.ErrNoEligiblePosts):
		return Outcome{OutcomeNoEligiblePosts, "the target has no recent posts; pick another target or widen --recency-window"}
	case errors.Is(err, target.ErrPostNotFound):
		return Outcome{OutcomePostNotFound, "the post id is not among the target's recent posts; list them with the posts command"}
	case errors.As(err, &rl):
		if rl.RetryAfter > 0 {
			return Outcome{OutcomeRateLimited, fmt.Sprintf("the data API is rate limited; wait %s and retry", rl.RetryAfter)}
		}
		return Outcome{OutcomeRateLimited, "the data API is rate limited; wait and retry"}
	case errors.Is(err, synth.ErrGenerationUnavailable):
		return Outcome{OutcomeGenerationUnavailable, generationRemedy(errors.As(err, &le), le)}
	case errors.Is(err, socialdata.ErrNotFound):
		return Outcome{OutcomeProfileNotFound, "check the profile URL or handle"}
	case errors.Is(err, socialdata.ErrInvalidHandle):
		return Outcome{OutcomeInvalidProfile, "pass a profile URL like https://www.linkedin.com/in/<handle> or a bare handle"}
	case errors.Is(err, socialdata.ErrUnavailable):
		return Outcome{OutcomeDataUnavailable, "the data API failed; retry later"}
	default:
		return Outcome{OutcomeError, ""}
	}
}

func generationRemedy(ok bool, le *llm.Error) string {
	if !ok {
		return "the model returned unusable output; retry"
	}
	switch le.Kind {
	case llm.KindAuth:
		return "the model provider rejected the credentials; check the API key"
	case llm.KindRateLimited:
		return "the model provider is rate limiting; wait and retry"
	case llm.KindBadRequest:
		return "the model provider rejected the request; check the model name"
	default:
		return "the model provider is unavailable; retry later"
	}
}
