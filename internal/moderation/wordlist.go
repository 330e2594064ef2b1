package moderation

import (
	"strings"
	"unicode"
)

// Matcher screens text against a compiled wordlist. Terms are normalised once
// at construction so the matcher can be shared between goroutines and reused
// for every body checked against the same settings snapshot.
type Matcher struct {
	banned  []compiledTerm
	suspect []compiledTerm
}

// compiledTerm keeps the original spelling for reporting next to the form
// used for matching: padded tokens, or a lowercase literal for terms that
// contain symbols.
type compiledTerm struct {
	raw     string
	padded  string
	literal string
}

// NewMatcher compiles wl. Terms that contain no word characters are dropped;
// they could never match.
func NewMatcher(wl Wordlist) *Matcher {
	return &Matcher{
		banned:  compileTerms(wl.Banned),
		suspect: compileTerms(wl.Suspect),
	}
}

// Classify is the one-shot form of NewMatcher(wl).Classify(text).
func Classify(text string, wl Wordlist) Classification {
	return NewMatcher(wl).Classify(text)
}

// Classify reports whether text contains any banned or suspect term. A term
// matches when its tokens appear consecutively in the text's tokens, compared
// case-insensitively. Literal terms match as lowercase substrings.
func (m *Matcher) Classify(text string) Classification {
	var c Classification
	if len(m.banned) == 0 && len(m.suspect) == 0 {
		return c
	}

	in := input{lower: strings.ToLower(text)}
	in.padded = padTokens(tokenize(in.lower))
	if in.padded == "" && strings.TrimSpace(in.lower) == "" {
		return c
	}

	if t, ok := firstMatch(in, m.banned); ok {
		c.MatchedBanned = true
		c.BannedTerm = t
	}
	if t, ok := firstMatch(in, m.suspect); ok {
		c.MatchedSuspect = true
		c.SuspectTerm = t
	}
	return c
}

// input is a body prepared once for every term.
type input struct {
	lower  string
	padded string
}

func firstMatch(in input, terms []compiledTerm) (string, bool) {
	for _, t := range terms {
		if t.literal != "" {
			if strings.Contains(in.lower, t.literal) {
				return t.raw, true
			}
			continue
		}
		if in.padded != "" && strings.Contains(in.padded, t.padded) {
			return t.raw, true
		}
	}
	return "", false
}

func compileTerms(terms []string) []compiledTerm {
	out := make([]compiledTerm, 0, len(terms))
	for _, raw := range terms {
		core := strings.TrimFunc(strings.ToLower(raw), func(r rune) bool { return !isWordRune(r) })
		if core == "" {
			continue
		}
		if strings.IndexFunc(core, isSymbol) >= 0 {
			out = append(out, compiledTerm{raw: raw, literal: core})
			continue
		}
		out = append(out, compiledTerm{raw: raw, padded: padTokens(tokenize(core))})
	}
	return out
}

// isSymbol reports runes that carry meaning inside a term, such as "@" in
// "a@b". Spaces, apostrophes and hyphens only separate words.
func isSymbol(r rune) bool {
	return !isWordRune(r) && !unicode.IsSpace(r) && r != '\'' && r != '-'
}

// tokenize lowercases text and splits it into runs of letters, digits and
// underscores. Apostrophes separate tokens, so "BANNED_WORD's" and
// "'BANNED_WORD'" both contain the token "banned_word".
func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !isWordRune(r)
	})
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}

// padTokens joins tokens with single spaces and wraps the result in spaces,
// so a substring search on two padded strings only hits token boundaries.
func padTokens(tokens []string) string {
	if len(tokens) == 0 {
		return ""
	}
	return " " + strings.Join(tokens, " ") + " "
}
