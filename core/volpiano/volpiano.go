// Package volpiano tokenizes volpiano melody strings into sections, words,
// and syllables. Volpiano encodes pitches as letters and structure as
// digits: "1" is the opening clef, "3" and "4" are barlines, a paired
// "6...6" brackets a span of missing music, "7" marks a line or page break,
// and hyphens space the notes. Runs of three or more hyphens separate words,
// runs of two separate syllables, and a section's final word carries exactly
// three trailing hyphens. Tokenization never fails: improperly spaced input
// is flagged for review, not rejected.
package volpiano

import (
	"strings"

	"github.com/chantlab/neuma/core/chant"
)

// Clef is the opening clef with its canonical spacing.
const Clef = "1---"

// validChar reports whether c belongs to the melody alphabet. The clef is
// excluded: it is only valid at the start of a string and is handled by
// Prepare.
func validChar(c byte) bool {
	if c >= 'a' && c <= 's' || c >= 'A' && c <= 'S' {
		return true
	}
	switch c {
	case '-', '9', 'y', 'z', 'Y', 'Z', ')', '3', '4', '6', '7':
		return true
	}
	return false
}

// Prepare strips the opening clef, anything preceding it, and any characters
// outside the melody alphabet. The boolean reports whether the input
// deviated from the canonical form: a clef other than exactly "1---" at the
// start, material before the clef, or invalid characters removed.
func Prepare(raw string) (string, bool) {
	flag := !strings.HasPrefix(raw, "1---") || strings.HasPrefix(raw, "1----")
	stripped := stripClef(raw)

	var sb strings.Builder
	removed := false
	for i := 0; i < len(stripped); i++ {
		if validChar(stripped[i]) {
			sb.WriteByte(stripped[i])
		} else {
			removed = true
		}
	}
	if removed {
		return sb.String(), true
	}
	return stripped, flag
}

// stripClef removes everything up to and including the first clef character
// and the hyphens that follow it. A string without a clef is returned
// unchanged.
func stripClef(raw string) string {
	idx := strings.IndexByte(raw, '1')
	if idx < 0 {
		return raw
	}
	j := idx + 1
	for j < len(raw) && raw[j] == '-' {
		j++
	}
	return raw[j:]
}

// TrimFinalBarline removes a closing barline from the end of a prepared
// volpiano string, returning the remaining body and the barline. A string
// that does not end in a barline is returned whole with a synthesized "3";
// the boolean reports that case.
func TrimFinalBarline(body string) (string, string, bool) {
	if body == "" {
		return body, "3", true
	}
	last := body[len(body)-1]
	if last != '3' && last != '4' {
		return body, "3", true
	}
	return body[:len(body)-1], string(last), false
}

// Syllabify tokenizes a raw volpiano string: the clef is stripped and
// invalid characters dropped as in Prepare, then the body is sectioned
// with SyllabifyPrepared. The closing barline, when present, appears as
// the final section. The boolean reports anything Prepare or the spacing
// checks flagged.
func Syllabify(raw string) ([]chant.Section, bool) {
	body, flagged := Prepare(raw)
	sections, improper := SyllabifyPrepared(body)
	return sections, flagged || improper
}

// SyllabifyPrepared splits a prepared volpiano string into sections at
// barlines and missing-music brackets, then splits the remaining spans into
// words and syllables on hyphen runs. Barline and missing-music sections
// hold their marker text as a single word. The boolean reports improper
// spacing anywhere in the string: a malformed missing-music bracket, a
// malformed non-final barline, or a word whose final syllable does not end
// in exactly three hyphens.
func SyllabifyPrepared(volpiano string) ([]chant.Section, bool) {
	flagged := false
	sections := splitSections(volpiano)
	result := make([]chant.Section, 0, len(sections))
	for idx, sec := range sections {
		switch sec[0] {
		case '6':
			if !missingMusicWellFormed(sec) {
				flagged = true
			}
			result = append(result, chant.NewSection(chant.SectionMissingMusic, chant.WordOf(sec)))
			continue
		case '3', '4':
			// The final section is the closing barline, which
			// carries no trailing spacing.
			if idx != len(sections)-1 && !barlineWellFormed(sec) {
				flagged = true
			}
			result = append(result, chant.NewSection(chant.SectionBarline, chant.WordOf(sec)))
			continue
		}

		var words []chant.Word
		for _, word := range splitRuns(sec, 3) {
			syllables := splitRuns(word, 2)
			if !wordFinalSpacingOK(syllables[len(syllables)-1]) {
				flagged = true
			}
			words = append(words, chant.Word{Syllables: syllables})
		}
		result = append(result, chant.Section{Kind: chant.SectionSyllabified, Words: words})
	}
	return result, flagged
}

// splitSections cuts a volpiano string at barline and missing-music
// markers, keeping each marker, with any break markers and spacing attached
// to it, as a section of its own. A "6" without a closing partner is
// ordinary melody content.
func splitSections(volpiano string) []string {
	var sections []string
	start := 0

	emit := func(end int) {
		if end > start {
			sections = append(sections, volpiano[start:end])
		}
	}

	i := 0
	for i < len(volpiano) {
		switch volpiano[i] {
		case '3', '4':
			j := i + 1
			for j < len(volpiano) && (volpiano[j] == '-' || volpiano[j] == '7') {
				j++
			}
			emit(i)
			sections = append(sections, volpiano[i:j])
			start = j
			i = j
		case '6':
			j := i + 1
			for j < len(volpiano) && (volpiano[j] == '-' || volpiano[j] == '7') {
				j++
			}
			if j >= len(volpiano) || volpiano[j] != '6' {
				i++
				continue
			}
			j++
			for j < len(volpiano) && (volpiano[j] == '-' || volpiano[j] == '7') {
				j++
			}
			emit(i)
			sections = append(sections, volpiano[i:j])
			start = j
			i = j
		default:
			i++
		}
	}
	emit(len(volpiano))
	return sections
}

// splitRuns cuts s after every run of at least minRun hyphens, keeping each
// run attached to the chunk it ends.
func splitRuns(s string, minRun int) []string {
	var parts []string
	start := 0
	i := 0
	for i < len(s) {
		if s[i] != '-' {
			i++
			continue
		}
		j := i
		for j < len(s) && s[j] == '-' {
			j++
		}
		if j-i >= minRun {
			parts = append(parts, s[start:j])
			start = j
		}
		i = j
	}
	if start < len(s) {
		parts = append(parts, s[start:])
	}
	return parts
}

// missingMusicWellFormed reports whether a missing-music section has the
// canonical shape "6------6---", with any break markers entered immediately
// after the second "6".
func missingMusicWellFormed(sec string) bool {
	return strings.HasSuffix(sec, "---") &&
		len(sec) >= 8 && sec[1:8] == "------6" &&
		len(strings.ReplaceAll(sec, "7", "")) == 11
}

// barlineWellFormed reports whether a barline section has the canonical
// shape "3---" or "4---", with any break markers entered immediately after
// the barline character.
func barlineWellFormed(sec string) bool {
	return strings.HasSuffix(sec, "---") &&
		len(strings.ReplaceAll(sec, "7", "")) == 4
}

// wordFinalSpacingOK reports whether the final syllable of a word ends with
// exactly three hyphens.
func wordFinalSpacingOK(syllable string) bool {
	return len(syllable) >= 4 &&
		strings.HasSuffix(syllable, "---") &&
		syllable[len(syllable)-4] != '-'
}
