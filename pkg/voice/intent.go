package voice

import (
	"regexp"
	"strings"
)

// Intent is a request about the question itself rather than an answer to it.
type Intent int

const (
	IntentNone Intent = iota
	IntentRepeat
	IntentClarify
)

func (i Intent) String() string {
	switch i {
	case IntentRepeat:
		return "repeat"
	case IntentClarify:
		return "clarify"
	default:
		return "none"
	}
}

// DefaultIntentMaxWords is the longest utterance still treated as a request
// about the question. Longer transcripts are answers.
const DefaultIntentMaxWords = 10

var defaultRepeatPatterns = []string{
	`can you repeat`, `\brepeat\b`, `say (that|it) again`, `what was the question`,
	`didn'?t hear`, `didn'?t catch`, `\bpardon\b`, `excuse me`, `again,? please`,
	`one more time`, `could you say .*again`, `^again[.!?]*$`, `^sorry[.!?]*$`,
	`\brepet(e|ir|ia|iria)\b`, `\bde novo\b`, `\bnovamente\b`, `n[ãa]o (ouvi|escutei)`,
	`qual (foi|era|é) a pergunta`, `mais uma vez`, `^como[.!?]*$`, `^o qu[eê][.!?]*$`,
}

var defaultClarifyPatterns = []string{
	`can you clarify`, `what do you mean`, `i don'?t understand`, `not clear`,
	`\bconfused\b`, `\bexplain\b`, `\bclarify\b`,
	`n[ãa]o entendi`, `\breformul`, `explica(r)? (a|melhor a) pergunta`,
	`o que (voc[êe]|vc) quer dizer`, `pode explicar`, `n[ãa]o ficou claro`, `como assim`,
}

// IntentMatcher classifies short transcripts as repeat or clarify requests.
type IntentMatcher struct {
	repeat   []*regexp.Regexp
	clarify  []*regexp.Regexp
	maxWords int
}

// NewIntentMatcher compiles the given patterns case-insensitively. It panics
// on an invalid pattern, like regexp.MustCompile.
func NewIntentMatcher(repeat, clarify []string, maxWords int) *IntentMatcher {
	if maxWords <= 0 {
		maxWords = DefaultIntentMaxWords
	}
	return &IntentMatcher{
		repeat:   compileAll(repeat),
		clarify:  compileAll(clarify),
		maxWords: maxWords,
	}
}

// DefaultIntentMatcher recognizes English and Brazilian Portuguese phrasings.
func DefaultIntentMatcher() *IntentMatcher {
	return NewIntentMatcher(defaultRepeatPatterns, defaultClarifyPatterns, DefaultIntentMaxWords)
}

func compileAll(patterns []string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		out = append(out, regexp.MustCompile(`(?i)`+p))
	}
	return out
}

// Match returns the intent of text. Repeat wins over clarify.
func (m *IntentMatcher) Match(text string) Intent {
	text = strings.TrimSpace(text)
	if text == "" || len(strings.Fields(text)) > m.maxWords {
		return IntentNone
	}
	for _, re := range m.repeat {
		if re.MatchString(text) {
			return IntentRepeat
		}
	}
	for _, re := range m.clarify {
		if re.MatchString(text) {
			return IntentClarify
		}
	}
	return IntentNone
}
