// Package cantus tokenizes chant texts entered in the Cantus markup
// convention: plain Latin words, "#" for a missing word, "{…}" for a span
// whose music is missing, "[…]" for an editorial aside, "~" opening an
// incipit, "|" for a barline, and "-" marking syllable breaks in
// presyllabified entries. Texts break into sections at barlines and
// missing-music spans; syllabified sections break further into words and
// syllables.
package cantus

import (
	"strings"

	"github.com/chantlab/neuma/core/chant"
	apperrors "github.com/chantlab/neuma/core/errors"
	"github.com/chantlab/neuma/core/latin"
)

// Options controls text tokenization.
type Options struct {
	// Clean strips characters outside the markup alphabet instead of
	// failing on them.
	Clean bool

	// Presyllabified treats embedded hyphens as the only syllable breaks,
	// skipping rule-based syllabification.
	Presyllabified bool
}

// validTextChar reports whether c belongs to the markup alphabet.
func validTextChar(c byte) bool {
	switch {
	case c >= 'a' && c <= 'z':
		return true
	case c >= 'A' && c <= 'Z':
		return true
	}
	switch c {
	case '#', '~', '{', '}', '[', ']', '|', '-', ' ':
		return true
	}
	return false
}

// CleanText removes characters outside the markup alphabet. The boolean
// reports whether anything was removed.
func CleanText(text string) (string, bool) {
	var sb strings.Builder
	removed := false
	for i := 0; i < len(text); i++ {
		if validTextChar(text[i]) {
			sb.WriteByte(text[i])
		} else {
			removed = true
		}
	}
	if !removed {
		return text, false
	}
	return sb.String(), true
}

// hasInvalidChar reports whether text contains characters outside the markup
// alphabet.
func hasInvalidChar(text string) bool {
	for i := 0; i < len(text); i++ {
		if !validTextChar(text[i]) {
			return true
		}
	}
	return false
}

// isWordChar reports whether c glues into a word during tokenization.
func isWordChar(c byte) bool {
	if c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' {
		return true
	}
	return c == '-' || c == '#'
}

// NormalizeMissingWordSpacing separates the missing-word marker from
// adjacent word characters so it always tokenizes as a word of its own. The
// boolean reports whether any spacing was inserted; the operation is
// idempotent.
func NormalizeMissingWordSpacing(text string) (string, bool) {
	var sb strings.Builder
	changed := false
	for i := 0; i < len(text); i++ {
		c := text[i]
		if c != '#' {
			sb.WriteByte(c)
			continue
		}
		if sb.Len() > 0 {
			out := sb.String()
			if isWordChar(out[len(out)-1]) {
				sb.WriteByte(' ')
				changed = true
			}
		}
		sb.WriteByte('#')
		if i+1 < len(text) && isWordChar(text[i+1]) {
			sb.WriteByte(' ')
			changed = true
		}
	}
	if !changed {
		return text, false
	}
	return sb.String(), true
}

// SyllabifyText tokenizes a chant text into sections, words, and syllables.
// With opts.Clean unset, characters outside the markup alphabet fail with a
// ValidationError wrapping ErrInvalidCharacter; set, they are stripped
// silently. Words inside syllabified sections that still defeat
// syllabification (stray markup mid-word) propagate the syllabifier's error.
func SyllabifyText(text string, opts Options) ([]chant.Section, error) {
	if opts.Clean {
		text, _ = CleanText(text)
	} else if hasInvalidChar(text) {
		return nil, &apperrors.ValidationError{
			Field:   "text",
			Message: "contains characters outside the chant markup alphabet",
			Err:     apperrors.ErrInvalidCharacter,
		}
	}
	text, _ = NormalizeMissingWordSpacing(text)

	sections := splitSections(text)
	result := make([]chant.Section, 0, len(sections))
	for _, sec := range sections {
		switch {
		case sec == "|":
			result = append(result, chant.NewSection(chant.SectionBarline, chant.WordOf(sec)))
			continue
		case sec[0] == '{':
			result = append(result, chant.NewSection(chant.SectionMissingMusic, chant.WordOf(sec)))
			continue
		case sec[0] == '~':
			result = append(result, chant.NewSection(chant.SectionIncipit, chant.WordOf(sec)))
			continue
		case sec[0] == '[':
			result = append(result, chant.NewSection(chant.SectionAside, chant.WordOf(sec)))
			continue
		}

		var words []chant.Word
		for _, word := range strings.Split(sec, " ") {
			if word == "" {
				continue
			}
			if word == "#" {
				words = append(words, chant.WordOf(word))
				continue
			}
			syllables, err := syllabifyWord(word, opts.Presyllabified)
			if err != nil {
				return nil, err
			}
			words = append(words, chant.Word{Syllables: syllables})
		}
		result = append(result, chant.Section{Kind: chant.SectionSyllabified, Words: words})
	}
	return result, nil
}

// Flatten joins tokenized sections back into a single display string, words
// separated by spaces.
func Flatten(sections []chant.Section) string {
	parts := make([]string, len(sections))
	for i, sec := range sections {
		parts[i] = sec.Text()
	}
	return strings.Join(parts, " ")
}

// syllabifyWord splits one word into hyphen-marked syllables. Fragment
// hyphens at either end are set aside and re-attached to the first or last
// syllable so they never affect boundary placement.
func syllabifyWord(word string, presyllabified bool) ([]string, error) {
	prepared, startHyphen, endHyphen := stripFragmentHyphens(word)

	var syllables []string
	if bounds, ok := latin.ExceptionBounds(prepared); ok {
		syllables = latin.SplitAtBounds(prepared, bounds)
	} else if presyllabified {
		parts := strings.Split(prepared, "-")
		syllables = make([]string, len(parts))
		for i, part := range parts {
			if i != len(parts)-1 {
				syllables[i] = part + "-"
			} else {
				syllables[i] = part
			}
		}
	} else {
		bounds, err := latin.SyllabifyWord(prepared)
		if err != nil {
			return nil, err
		}
		syllables = latin.SplitAtBounds(prepared, bounds)
	}

	if startHyphen {
		syllables[0] = "-" + syllables[0]
	}
	if endHyphen {
		syllables[len(syllables)-1] = syllables[len(syllables)-1] + "-"
	}
	return syllables, nil
}

// stripFragmentHyphens removes at most one leading and one trailing hyphen,
// reporting which were present.
func stripFragmentHyphens(word string) (string, bool, bool) {
	start := strings.HasPrefix(word, "-")
	if start {
		word = word[1:]
	}
	end := strings.HasSuffix(word, "-")
	if end {
		word = word[:len(word)-1]
	}
	return word, start, end
}

// splitSections cuts the text at barlines and missing-music spans, keeping
// each marker as a section of its own. Consecutive missing-music spans
// separated only by spaces merge into one section; an unclosed brace is
// ordinary text.
func splitSections(text string) []string {
	var sections []string
	var cur strings.Builder

	flush := func() {
		if trimmed := strings.TrimSpace(cur.String()); trimmed != "" {
			sections = append(sections, trimmed)
		}
		cur.Reset()
	}

	i := 0
	for i < len(text) {
		switch text[i] {
		case '|':
			flush()
			sections = append(sections, "|")
			i++
		case '{':
			end := missingMusicSpanEnd(text, i)
			if end < 0 {
				cur.WriteByte('{')
				i++
				continue
			}
			flush()
			sections = append(sections, strings.TrimSpace(text[i:end+1]))
			i = end + 1
		default:
			cur.WriteByte(text[i])
			i++
		}
	}
	flush()
	return sections
}

// missingMusicSpanEnd returns the index of the closing brace ending the span
// that opens at start, extending across space-separated continuation spans.
// Returns -1 when no closing brace completes the span.
func missingMusicSpanEnd(text string, start int) int {
	j := start + 1
	for {
		k := strings.IndexByte(text[j:], '}')
		if k < 0 {
			return -1
		}
		close := j + k
		m := close + 1
		for m < len(text) && text[m] == ' ' {
			m++
		}
		if m < len(text) && text[m] == '{' {
			j = m + 1
			continue
		}
		return close
	}
}
