package pairing

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// FillerRule is a token removed from file names before stems are compared.
type FillerRule struct {
	Name    string
	Pattern *regexp.Regexp
}

// Rules is the matching policy used by the pairing phases. The zero value is
// not usable; start from DefaultRules.
type Rules struct {
	// NumberPattern captures the leading track number of a file name.
	NumberPattern *regexp.Regexp
	// Extension matches the trailing file extension.
	Extension *regexp.Regexp
	// Fillers are applied in order, each removing whole-word matches.
	Fillers []FillerRule
	// Brackets matches (...), [...] and {...} groups.
	Brackets *regexp.Regexp
}

// DefaultRules returns the production matching policy.
func DefaultRules() *Rules {
	return &Rules{
		NumberPattern: regexp.MustCompile(`^\s*(\d{1,4})[.\-_ ]?`),
		Extension:     regexp.MustCompile(`(?i)\.[a-z0-9]{2,5}$`),
		Fillers: []FillerRule{
			{Name: "remix", Pattern: regexp.MustCompile(`(?i)\bremix\b`)},
			{Name: "fwea-go", Pattern: regexp.MustCompile(`(?i)\bfwea[-\s]?go\b`)},
			{Name: "jit", Pattern: regexp.MustCompile(`(?i)\bjit\b`)},
		},
		Brackets: regexp.MustCompile(`\(.*?\)|\[.*?\]|\{.*?\}`),
	}
}

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// LeadingNumber extracts the track number a file name starts with.
func (r *Rules) LeadingNumber(name string) (int, bool) {
	m := r.NumberPattern.FindStringSubmatch(name)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}

// Stem reduces a file name to the form used for fuzzy matching: no
// extension, filler words or bracketed text, lowercased, without
// diacritics, and with punctuation collapsed to single spaces.
func (r *Rules) Stem(name string) string {
	s := r.Extension.ReplaceAllString(name, "")
	for _, f := range r.Fillers {
		s = f.Pattern.ReplaceAllString(s, "")
	}
	s = r.Brackets.ReplaceAllString(s, "")
	s = stripDiacritics(strings.ToLower(s))
	s = nonAlnum.ReplaceAllString(s, " ")
	return strings.Join(strings.Fields(s), " ")
}

func stripDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}
