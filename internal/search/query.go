// package search builds normalized comparison strings and ordered query
// variants from raw track metadata.
//
// Providers respond differently to word order and to noise terms like
// "remix" or "feat", so a handful of cheap rewrites per track measurably
// raises the hit rate before any source is marked as a miss.
package search

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// MaxVariants caps how many query rewrites are attempted per track.
const MaxVariants = 3

// noiseTerms are stripped from track titles before searching. Matching is
// whole-word and case-insensitive, and everything from the first match
// onward is dropped.
var noiseTerms = []string{
	"feat", "featuring", "ft", "remix", "edit", "mix", "version",
	"remaster", "remastered", "radio edit", "extended", "club mix",
	"acoustic", "live", "demo", "instrumental", "karaoke",
}

var (
	parenRe      = regexp.MustCompile(`\([^)]*\)`)
	bracketRe    = regexp.MustCompile(`\[[^\]]*\]`)
	whitespaceRe = regexp.MustCompile(`\s+`)
	noiseRes     = compileNoiseTerms()

	stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)))
)

func compileNoiseTerms() []*regexp.Regexp {
	res := make([]*regexp.Regexp, len(noiseTerms))
	for i, term := range noiseTerms {
		res[i] = regexp.MustCompile(fmt.Sprintf(`(?i)\b%s\b.*`, regexp.QuoteMeta(term)))
	}
	return res
}

// Normalize lowercases text and decomposes accented characters to their base
// letters, discarding the combining marks. Empty input yields an empty
// string; input the transformer cannot handle degrades to the lowercased
// original rather than failing.
func Normalize(text string) string {
	if text == "" {
		return ""
	}
	stripped, _, err := transform.String(stripMarks, text)
	if err != nil {
		stripped = text
	}
	return strings.ToLower(strings.TrimSpace(stripped))
}

// CleanQuery produces the primary "<track> <artist>" search string.
//
// Bracketed and parenthesized segments are removed from both fields. The
// track title is additionally truncated at the first whole-word noise term:
// "Song (Live) Remix Edition" becomes "Song". Returns an empty string when
// either field is blank.
func CleanQuery(track, artist string) string {
	if strings.TrimSpace(track) == "" || strings.TrimSpace(artist) == "" {
		return ""
	}

	cleanTrack := stripBrackets(track)
	for _, re := range noiseRes {
		cleanTrack = re.ReplaceAllString(cleanTrack, "")
	}
	cleanTrack = Normalize(collapseWhitespace(cleanTrack))

	cleanArtist := Normalize(collapseWhitespace(stripBrackets(artist)))

	return strings.TrimSpace(cleanTrack + " " + cleanArtist)
}

// Variants returns up to [MaxVariants] distinct non-empty search strings for
// a track, ordered by specificity: the cleaned combined query, the
// normalized "<artist> <track>" reordering (noise terms intact), and the
// normalized track title alone when it is longer than 3 characters.
func Variants(track, artist string) []string {
	var variants []string

	if main := CleanQuery(track, artist); main != "" {
		variants = append(variants, main)
	}

	cleanTrack := Normalize(strings.TrimSpace(track))
	cleanArtist := Normalize(strings.TrimSpace(artist))

	if cleanArtist != "" && cleanTrack != "" {
		variants = append(variants, cleanArtist+" "+cleanTrack)
	}
	if utf8.RuneCountInString(cleanTrack) > 3 {
		variants = append(variants, cleanTrack)
	}

	seen := make(map[string]bool, len(variants))
	unique := variants[:0]
	for _, v := range variants {
		if v != "" && !seen[v] {
			seen[v] = true
			unique = append(unique, v)
		}
	}

	if len(unique) > MaxVariants {
		unique = unique[:MaxVariants]
	}
	return unique
}

func stripBrackets(s string) string {
	s = parenRe.ReplaceAllString(strings.TrimSpace(s), "")
	return bracketRe.ReplaceAllString(s, "")
}

func collapseWhitespace(s string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))
}
