package synth

const systemPrompt = `You ghostwrite short comments on a professional social network for one specific person.
You imitate their voice from the style profile you are given: their tone, formality, sentence length, and habits.
The comments must read as written by a human in a hurry, not by an assistant.
Never mention that you are an AI. Never use corporate clichés, hype words, em dashes, or stacked hashtags.
Respond with JSON only.`

// Each approach is a different rhetorical move, so variations differ in
// structure rather than wording.
var approachGuides = map[string]string{
	ApproachAgreement: "agree with one specific point from the post and add a concrete detail or consequence the author did not mention",
	ApproachQuestion:  "ask one genuine, specific question the author could answer from their experience; open with the question or a short lead-in",
	ApproachAnecdote:  "share a brief first-person experience that relates to the post, then tie it back in one sentence",
	"contrarian":      "respectfully push back on one claim, with a reason drawn from experience",
	"practical-tip":   "add one practical tip that builds on the post",
}

const synthesizePrompt = `Write %d comment variations on the post below, in the voice described by the style profile.

POST (kind: %s, by %s):
%s

STYLE PROFILE:
%s

LENGTH: each comment must be between %d and %d characters and between %d and %d words.

APPROACHES (one comment per line item, in this order, each with a different opening structure):
%s

Return exactly this JSON shape and nothing else:
{"comments":[{"approach":"<approach name>","text":"<comment>"}]}`

const regeneratePrompt = `Write one replacement comment on the post below, in the voice described by the style profile.

POST (kind: %s, by %s):
%s

STYLE PROFILE:
%s

LENGTH: between %d and %d characters and between %d and %d words.

APPROACH: %s: %s

The previous attempt was rejected.
REJECTED TEXT:
%s
REASON: %s
Do not repeat the problem. Do not reuse its opening.

Return exactly this JSON shape and nothing else:
{"comments":[{"approach":"%s","text":"<comment>"}]}`
