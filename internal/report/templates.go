package report

const styleTemplate = `---
profile: {{.ProfileID}}
fingerprint: {{.Signature.Fingerprint}}
history: {{.Signature.HistorySize}}
---

# Writing style of {{or .Name .ProfileID}}
{{- if .Headline}}

_{{.Headline}}_
{{- end}}

## Voice

- Tone: {{.Signature.Tone}}
- Formality: {{printf "%.2f" .Signature.Formality}} (0 casual, 1 formal)
- Sentence complexity: {{printf "%.2f" .Signature.Complexity}} clauses per sentence
- Burstiness: {{printf "%.2f" .Signature.Burstiness}}
- Emoji usage: {{.Signature.EmojiUsage}}

## Length

- Average: {{printf "%.1f" .Signature.AvgItemWords}} words per item (median {{printf "%.0f" .Signature.MedianItemWords}})
- Average sentence: {{printf "%.1f" .Signature.AvgSentenceWords}} words

## Punctuation

- Exclamations in {{pct .Signature.ExclamationRate}} of items
- Questions in {{pct .Signature.QuestionRate}} of items
- Hashtags in {{pct .Signature.HashtagRate}} of items
{{- if .Signature.VoiceAnchors}}

## Recurring phrases
{{range .Signature.VoiceAnchors}}
- "{{.}}"
{{- end}}
{{- end}}
{{- if .Signature.Openers}}

## Typical openers
{{range .Signature.Openers}}
- "{{.}}"
{{- end}}
{{- end}}
{{- if .Signature.Vocabulary}}

## Vocabulary
{{range .Signature.Vocabulary}}
- {{.Term}} ({{.Count}})
{{- end}}
{{- end}}
{{- if .Signature.Topics}}

## Topics

{{join .Signature.Topics ", "}}
{{- end}}
`

const resultTemplate = `---
id: {{.ID}}
profile: {{.ProfileID}}
target: {{.TargetID}}
post: {{.Post.ID}}
created_at: {{.CreatedAt.Format "2006-01-02T15:04:05Z07:00"}}
---

# Comments for {{.TargetID}}'s post

> {{quote .Post.Text}}

Posted {{.Post.PostedAt.Format "2006-01-02"}} ({{.Post.Kind}}){{if .Post.URL}}, {{.Post.URL}}{{end}}

Written in the voice of {{or .Style.Name .ProfileID}} (signature {{.Style.Signature.Fingerprint}}).

## Accepted
{{range $i, $c := .Accepted}}
### {{inc $i}}. {{$c.Approach}}

{{$c.Text}}
{{else}}
No comment passed the filter.
{{end}}
{{- with .Shortfall}}
## Shortfall

{{.Accepted}} of {{.Requested}} requested comments were accepted: {{.Reason}}
{{end}}
{{- if .Rejected}}
## Rejected
{{range .Rejected}}
- slot {{inc .Slot}}, attempt {{inc .Attempt}} ({{.Code}}: {{.Reason}}): {{.Text}}
{{- end}}
{{end}}`
