package style

import "strings"

func set(words ...string) map[string]bool {
	m := make(map[string]bool, len(words))
	for _, w := range words {
		m[w] = true
	}
	return m
}

var stopwords = set(
	"a", "about", "above", "after", "again", "all", "also", "am", "an", "and", "any", "are", "as", "at",
	"be", "because", "been", "before", "being", "below", "between", "both", "but", "by",
	"can", "could", "did", "do", "does", "doing", "down", "during",
	"each", "even", "every", "few", "for", "from", "further",
	"get", "got", "had", "has", "have", "having", "he", "her", "here", "hers", "him", "his", "how",
	"i", "if", "in", "into", "is", "it", "its", "itself", "just",
	"let", "like", "me", "more", "most", "much", "my", "myself",
	"no", "nor", "not", "now", "of", "off", "on", "once", "one", "only", "or", "other", "our", "ours", "out", "over", "own",
	"really", "same", "she", "should", "so", "some", "such",
	"than", "that", "the", "their", "theirs", "them", "then", "there", "these", "they", "this", "those", "through", "to", "too",
	"under", "until", "up", "us", "very", "was", "we", "were", "what", "when", "where", "which", "while", "who", "whom", "why",
	"will", "with", "would", "you", "your", "yours", "yourself",
	"i'm", "i've", "i'll", "i'd", "it's", "that's", "there's", "don't", "doesn't", "didn't", "can't", "won't",
	"isn't", "aren't", "wasn't", "you're", "we're", "they're", "we've", "you've", "let's",
)

// Casual register: fillers, chat abbreviations, spoken forms.
var slang = set(
	"kinda", "sorta", "gonna", "wanna", "gotta", "dunno", "lemme", "y'all",
	"lol", "lmao", "haha", "omg", "tbh", "ngl", "imo", "imho", "btw", "fyi", "idk", "irl",
	"yeah", "yep", "yup", "nope", "nah", "hey", "wow", "cool", "awesome", "super", "totally", "literally",
	"basically", "honestly", "dude", "folks", "stuff", "huge", "crazy", "legit", "vibe", "vibes",
)

// Formal connectives and transitions.
var connectives = set(
	"however", "therefore", "additionally", "furthermore", "moreover", "consequently", "nevertheless",
	"nonetheless", "thus", "hence", "regarding", "concerning", "subsequently", "initially", "ultimately",
	"accordingly", "whereas", "notwithstanding", "indeed", "namely", "essentially", "fundamentally",
	"conversely", "likewise", "similarly", "specifically", "particularly", "respectively", "thereby",
)

// Words that open a subordinate clause, for the complexity proxy.
var subordinators = set(
	"because", "although", "though", "since", "unless", "whereas", "while", "which", "whose", "whom",
	"if", "when", "whenever", "wherever", "after", "before", "until",
)

var contractionSuffixes = []string{"n't", "'re", "'ve", "'ll", "'m", "'d"}

// 's is mostly possessive; only count the common pronoun contractions.
var sContractions = set(
	"it's", "that's", "there's", "here's", "what's", "who's", "where's", "how's", "let's", "he's", "she's",
)

func isContraction(w string) bool {
	if sContractions[w] {
		return true
	}
	for _, suf := range contractionSuffixes {
		if strings.HasSuffix(w, suf) && len(w) > len(suf) {
			return true
		}
	}
	return false
}
