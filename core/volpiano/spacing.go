package volpiano

import (
	"strings"

	apperrors "github.com/chantlab/neuma/core/errors"
)

// EnsureEndOfWordSpacing makes a volpiano word end with three hyphens. A
// word already ending in at least three keeps its spacing; otherwise any
// shorter trailing run is replaced with exactly three.
func EnsureEndOfWordSpacing(volpiano string) string {
	if strings.HasSuffix(volpiano, "---") {
		return volpiano
	}
	return strings.TrimRight(volpiano, "-") + "---"
}

// AdjustSpacing pads a volpiano syllable with trailing hyphens until it is
// at least as long as its paired text syllable, so the rendered staff shows
// no gaps. Word-final syllables additionally get end-of-word spacing.
func AdjustSpacing(syllable string, textLen int, endOfWord bool) string {
	if textLen > len(syllable) {
		syllable += strings.Repeat("-", textLen-len(syllable))
	}
	if endOfWord {
		syllable = EnsureEndOfWordSpacing(syllable)
	}
	return syllable
}

// AdjustMissingMusicSpacing resizes a missing-music section to match the
// length of its paired text, preserving any break markers after the closing
// bracket. Text up to ten characters long gets the canonical short bracket;
// longer text gets an interior spacer run of its own length. Fails when the
// section does not open with a missing-music bracket.
func AdjustMissingMusicSpacing(volpiano string, textLen int) (string, error) {
	if volpiano == "" || volpiano[0] != '6' {
		return "", &apperrors.ValidationError{
			Field:   "volpiano",
			Value:   volpiano,
			Message: "not a missing music section",
		}
	}
	term := volpiano[strings.LastIndexByte(volpiano, '6')+1:]
	var spaced string
	if textLen <= 10 {
		spaced = "6------6"
	} else {
		spaced = "6" + strings.Repeat("-", textLen) + "6"
	}
	return EnsureEndOfWordSpacing(spaced + term), nil
}
