package target

import (
	"strings"

	"github.com/drpaneas/voiceprint/internal/textutil"
)

// Kind labels what a post is doing, as a hint for comment generation.
type Kind string

const (
	KindCelebration Kind = "celebration"
	KindSetback     Kind = "setback"
	KindAdvice      Kind = "advice"
	KindReflection  Kind = "reflection"
	KindStruggle    Kind = "struggle"
	KindHiring      Kind = "hiring"
	KindHotTake     Kind = "hot-take"
	KindQuestion    Kind = "question"
	KindGratitude   Kind = "gratitude"
	KindPromotion   Kind = "promotion"
)

type kindRule struct {
	kind     Kind
	keywords []string
}

// Declaration order breaks score ties.
var kindRules = []kindRule{
	{KindCelebration, []string{"excited", "announce", "thrilled", "promoted", "launched", "milestone", "achieved", "reached", "joined", "proud"}},
	{KindSetback, []string{"failed", "lost", "messed up", "mistake", "didn't work", "crashed", "shut down", "laid off", "rejected"}},
	{KindAdvice, []string{"how to", "here's how", "steps", "framework", "process", "strategy", "tip", "tips"}},
	{KindReflection, []string{"learned", "realized", "discovered", "wish i knew", "looking back", "lesson", "years ago"}},
	{KindStruggle, []string{"struggling", "difficult", "vulnerable", "scared", "anxious", "burned out", "burnout", "exhausted"}},
	{KindHiring, []string{"hiring", "join us", "we're looking", "open role", "position", "apply", "job opening"}},
	{KindHotTake, []string{"unpopular", "controversial", "hot take", "nobody talks about", "in my opinion", "overrated"}},
	{KindQuestion, []string{"what do you think", "thoughts", "curious", "would love to hear", "agree or disagree"}},
	{KindGratitude, []string{"grateful", "thankful", "blessed", "appreciate", "thank you", "inspired"}},
	{KindPromotion, []string{"check out", "link in", "dm me", "book a call", "limited spots", "sign up", "register", "webinar"}},
}

// Classify scores text against each kind's keywords and returns the best
// match, or KindReflection when nothing matches. Keywords match whole words.
func Classify(text string) Kind {
	words := textutil.Words(text)
	for i, w := range words {
		words[i] = strings.ToLower(w)
	}
	norm := " " + strings.Join(words, " ") + " "

	best, bestScore := KindReflection, 0
	for _, r := range kindRules {
		score := 0
		for _, kw := range r.keywords {
			if strings.Contains(norm, " "+kw+" ") {
				score++
			}
		}
		if r.kind == KindQuestion && strings.HasSuffix(strings.TrimSpace(text), "?") {
			score++
		}
		if score > bestScore {
			best, bestScore = r.kind, score
		}
	}
	return best
}
