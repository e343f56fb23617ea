package autoload

import (
	"strings"
	"unicode"
	"unicode/utf8"

	levenshtein "github.com/ka-weihe/fast-levenshtein"
	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/samber/lo"
)

// tierOf compares a candidate stem with the media stem, case-insensitively.
func tierOf(media, candidate string) Tier {
	media, candidate = strings.ToLower(media), strings.ToLower(candidate)

	switch {
	case media == "":
		return TierOther
	case candidate == media:
		return TierExact
	case strings.HasPrefix(candidate, media):
		return TierPrefix
	case strings.Contains(candidate, media):
		return TierContain
	case fuzzy.MatchNormalizedFold(normalize(media), normalize(candidate)):
		return TierFuzzy
	default:
		return TierOther
	}
}

// normalize drops separators so "My.Movie" fuzzy matches "my movie".
func normalize(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return -1
	}, s)
}

// distance orders candidates inside the fuzzy tier.
func distance(media, candidate string) int {
	return levenshtein.Distance(strings.ToLower(media), strings.ToLower(candidate))
}

// tokens splits the part of the candidate stem not shared with the media stem.
func tokens(media, candidate string) []string {
	rest, ok := cutFoldPrefix(candidate, media)
	if !ok {
		rest = candidate
	}
	return strings.FieldsFunc(rest, func(r rune) bool {
		return r == '.' || r == '_' || r == '-' || r == ' ' || r == '[' || r == ']' || r == '(' || r == ')'
	})
}

// cutFoldPrefix removes prefix from s under Unicode case folding. Folded runes may differ
// in byte length, so both strings are walked rune by rune.
func cutFoldPrefix(s, prefix string) (string, bool) {
	for prefix != "" {
		if s == "" {
			return "", false
		}
		pr, pn := utf8.DecodeRuneInString(prefix)
		sr, sn := utf8.DecodeRuneInString(s)
		if !strings.EqualFold(string(pr), string(sr)) {
			return "", false
		}
		prefix, s = prefix[pn:], s[sn:]
	}
	return s, true
}

// language finds the language hint in a candidate name and its rank in priority.
// Unlisted languages rank after every listed one.
func language(media, candidate string, priority []string) (string, int) {
	toks := tokens(media, candidate)

	for i, want := range priority {
		if lo.ContainsBy(toks, func(tok string) bool { return strings.EqualFold(tok, want) }) {
			return strings.ToLower(want), i
		}
	}

	for i := len(toks) - 1; i >= 0; i-- {
		if isLangCode(toks[i]) {
			return strings.ToLower(toks[i]), len(priority)
		}
	}
	return "", len(priority)
}

// langRank ranks a language reported by the backend.
func langRank(lang string, priority []string) int {
	if lang == "" {
		return len(priority)
	}
	_, i, ok := lo.FindIndexOf(priority, func(p string) bool { return strings.EqualFold(p, lang) })
	if !ok {
		return len(priority)
	}
	return i
}

func isLangCode(tok string) bool {
	if len(tok) != 2 && len(tok) != 3 {
		return false
	}
	for _, r := range tok {
		if !unicode.IsLetter(r) || r > unicode.MaxASCII {
			return false
		}
	}
	return true
}
