// Package wake implements wake-phrase detection for transcribed speech.
//
// Detection runs a priority chain of matchers, cheapest first:
//
//  1. Exact substring match against the canonical phrase list and known
//     STT misspellings (case-insensitive).
//  2. Exact match against the Devanagari phrase list, checked against the
//     untouched original text — case-folding is meaningless for that script.
//  3. Fuzzy token match: every whitespace token is compared against each
//     single-word phrase using normalised Levenshtein similarity
//     (1 - distance/maxLen); multi-word phrases slide a window of the same
//     token length across the input and score the joined window.
//  4. Phonetic pattern match: permissive regular expressions tolerating the
//     vowel and consonant substitutions common in speech-to-text mishearing
//     ("buddy" → "budi"/"body", "sameer" → "samir"/"samer").
//
// The first matcher to succeed wins. The wake phrase may appear anywhere in
// the input; nothing is anchored to the start of the string.
//
// Detectors are pure and read-only after construction; all methods are safe
// for concurrent use. The phrase lists and the fuzzy threshold are tuning
// surfaces and come in through Config, not code.
package wake

import (
	"regexp"
	"strings"

	"github.com/antzucaro/matchr"
)

// DefaultFuzzyThreshold is the minimum normalised Levenshtein similarity for
// a fuzzy token match.
const DefaultFuzzyThreshold = 0.70

// defaultFiller is returned by ExtractPayload when nothing remains after
// stripping the wake phrase.
const defaultFiller = "Yes?"

// Config holds the phrase lists and thresholds for a Detector. The zero
// value is not usable; start from DefaultConfig.
type Config struct {
	// Phrases are the canonical wake phrases and their known misspellings,
	// matched case-insensitively as substrings and again fuzzily per token.
	Phrases []string

	// ScriptPhrases are equivalents in a secondary writing system
	// (Devanagari), matched exactly against the untouched original text.
	ScriptPhrases []string

	// PhoneticPatterns are regular expression sources tolerating common
	// STT mishearings. Applied to the lowercased input.
	PhoneticPatterns []string

	// Greetings are leading filler words stripped ahead of the wake phrase
	// by ExtractPayload.
	Greetings []string

	// Honorifics are suffixes stripped after the wake phrase by
	// ExtractPayload.
	Honorifics []string

	// FuzzyThreshold is the minimum normalised Levenshtein similarity for
	// the fuzzy stage. Zero means DefaultFuzzyThreshold.
	FuzzyThreshold float64
}

// DefaultConfig returns the stock phrase lists for the Sameer companion.
func DefaultConfig() Config {
	return Config{
		Phrases: []string{
			"sameer",
			"samir",
			"sameere",
			"samer",
			"buddy",
		},
		ScriptPhrases: []string{
			"समीर",
			"समिर",
			"बडी",
		},
		PhoneticPatterns: []string{
			`\bs[aeiou]+m[aeiou]+r+\b`,
			`\bb[aeiou]+d+[iy]+\b`,
		},
		Greetings:  []string{"hey", "hi", "hello", "ok", "okay", "oh", "arre"},
		Honorifics: []string{"ji", "bhai", "yaar"},
	}
}

// Detector matches wake phrases in transcript text.
type Detector struct {
	phrases       []string
	scriptPhrases []string
	phonetic      []*regexp.Regexp
	threshold     float64

	// leading strips "greeting + wake phrase + honorific" from the start of
	// an utterance; anywhere locates the wake phrase mid-sentence. Both are
	// compiled once in New from the same pattern set Detect uses.
	leading  *regexp.Regexp
	anywhere *regexp.Regexp
}

// New builds a Detector from cfg. Returns an error if any phonetic pattern
// fails to compile.
func New(cfg Config) (*Detector, error) {
	d := &Detector{
		scriptPhrases: cfg.ScriptPhrases,
		threshold:     cfg.FuzzyThreshold,
	}
	if d.threshold == 0 {
		d.threshold = DefaultFuzzyThreshold
	}

	for _, p := range cfg.Phrases {
		d.phrases = append(d.phrases, strings.ToLower(p))
	}

	for _, src := range cfg.PhoneticPatterns {
		re, err := regexp.Compile(src)
		if err != nil {
			return nil, err
		}
		d.phonetic = append(d.phonetic, re)
	}

	d.leading, d.anywhere = compileStrippers(cfg)
	return d, nil
}

// MustNew is New for static configs; it panics on an invalid pattern.
func MustNew(cfg Config) *Detector {
	d, err := New(cfg)
	if err != nil {
		panic(err)
	}
	return d
}

// Detect reports whether text contains a wake phrase. Empty or
// whitespace-only input never matches.
func (d *Detector) Detect(text string) bool {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return false
	}
	lower := strings.ToLower(trimmed)

	// 1. Exact substring match.
	for _, p := range d.phrases {
		if strings.Contains(lower, p) {
			return true
		}
	}

	// 2. Script-specific exact match against the original casing.
	for _, p := range d.scriptPhrases {
		if strings.Contains(trimmed, p) {
			return true
		}
	}

	// 3. Fuzzy token match.
	if d.fuzzyMatch(lower) {
		return true
	}

	// 4. Phonetic pattern match.
	for _, re := range d.phonetic {
		if re.MatchString(lower) {
			return true
		}
	}

	return false
}

// ExtractPayload strips a leading greeting, the wake phrase, and an optional
// honorific from text and returns the trimmed remainder. When the wake phrase
// sits mid-sentence, everything up to and including it is dropped. If nothing
// meaningful remains (or no wake phrase is found in an empty remainder), a
// short filler ("Yes?") is returned so the caller always has something to
// respond to.
func (d *Detector) ExtractPayload(text string) string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return defaultFiller
	}

	if loc := d.leading.FindStringIndex(trimmed); loc != nil && loc[0] == 0 && loc[1] > 0 {
		rest := strings.TrimSpace(trimmed[loc[1]:])
		if rest != "" {
			return rest
		}
		return defaultFiller
	}

	if loc := d.anywhere.FindStringIndex(trimmed); loc != nil {
		rest := strings.TrimSpace(trimmed[loc[1]:])
		if rest != "" {
			return rest
		}
		return defaultFiller
	}

	return trimmed
}

// fuzzyMatch runs the normalised Levenshtein stage: single-word phrases are
// scored against every input token, multi-word phrases against a sliding
// window of the same token length.
func (d *Detector) fuzzyMatch(lower string) bool {
	tokens := strings.Fields(lower)
	if len(tokens) == 0 {
		return false
	}

	for _, phrase := range d.phrases {
		phraseTokens := strings.Fields(phrase)
		switch {
		case len(phraseTokens) == 1:
			for _, tok := range tokens {
				if similarity(trimToken(tok), phrase) >= d.threshold {
					return true
				}
			}
		case len(phraseTokens) > 1 && len(tokens) >= len(phraseTokens):
			for i := 0; i+len(phraseTokens) <= len(tokens); i++ {
				window := strings.Join(tokens[i:i+len(phraseTokens)], " ")
				if similarity(trimToken(window), phrase) >= d.threshold {
					return true
				}
			}
		}
	}
	return false
}

// similarity returns 1 - levenshtein(a,b)/max(len(a),len(b)). Identical
// strings score 1.0; fully dissimilar strings approach 0.
func similarity(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	maxLen := len(a)
	if len(b) > maxLen {
		maxLen = len(b)
	}
	dist := matchr.Levenshtein(a, b)
	return 1 - float64(dist)/float64(maxLen)
}

// trimToken strips surrounding punctuation a transcription provider may
// attach to a word ("sameer," → "sameer").
func trimToken(s string) string {
	return strings.Trim(s, ".,!?;:'\"")
}

// compileStrippers builds the two payload-stripping expressions from the
// configured phrase set. Phrases are regex-quoted; phonetic patterns are
// embedded as-is so misheard wake words strip cleanly too.
func compileStrippers(cfg Config) (leading, anywhere *regexp.Regexp) {
	alts := make([]string, 0, len(cfg.Phrases)+len(cfg.ScriptPhrases)+len(cfg.PhoneticPatterns))
	for _, p := range cfg.Phrases {
		alts = append(alts, regexp.QuoteMeta(strings.ToLower(p)))
	}
	for _, p := range cfg.ScriptPhrases {
		alts = append(alts, regexp.QuoteMeta(p))
	}
	for _, src := range cfg.PhoneticPatterns {
		alts = append(alts, `(?:`+src+`)`)
	}
	wakeAlt := strings.Join(alts, "|")

	greetAlt := altOf(cfg.Greetings)
	honorAlt := altOf(cfg.Honorifics)

	leadSrc := `(?i)^[\s,]*` +
		`(?:(?:` + greetAlt + `)[\s,!]+)?` +
		`(?:` + wakeAlt + `)` +
		`(?:[\s,]+(?:` + honorAlt + `))?` +
		`[\s,!.?]*`
	anySrc := `(?i)(?:` + wakeAlt + `)` +
		`(?:[\s,]+(?:` + honorAlt + `))?` +
		`[\s,!.?]*`

	return regexp.MustCompile(leadSrc), regexp.MustCompile(anySrc)
}

// altOf joins words into a regex alternation, quoting each entry.
func altOf(words []string) string {
	quoted := make([]string, len(words))
	for i, w := range words {
		quoted[i] = regexp.QuoteMeta(strings.ToLower(w))
	}
	return strings.Join(quoted, "|")
}
