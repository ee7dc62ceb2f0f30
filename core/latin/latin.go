// Package latin locates syllable boundaries in Latin words as spelled in
// chant sources: one vowel or diphthong per syllable, consonant clusters
// assigned to the following syllable when they form a valid onset, and
// "i"/"u"/"y" treated as consonants where their position makes them
// semivowels. A small exception table overrides the analysis for known
// irregular liturgical forms. Spelling is taken as given; no normalization
// is applied beyond case folding.
package latin

import (
	"strings"

	apperrors "github.com/chantlab/neuma/core/errors"
)

// SyllabifyWord returns the syllable boundary indices of a Latin word. Each
// index is the position of the letter that begins a syllable: "podatus"
// yields [2 4] (po-da-tus). One-syllable words yield no boundaries. Words in
// the exception table return their fixed boundaries without analysis. A word
// containing anything but ASCII letters fails with a ValidationError
// wrapping ErrInvalidCharacter.
func SyllabifyWord(word string) ([]int, error) {
	for i := 0; i < len(word); i++ {
		c := word[i]
		if (c < 'a' || c > 'z') && (c < 'A' || c > 'Z') {
			return nil, &apperrors.ValidationError{
				Field:   "word",
				Value:   word,
				Message: "contains non-alphabetic characters",
				Err:     apperrors.ErrInvalidCharacter,
			}
		}
	}
	if bounds, ok := ExceptionBounds(word); ok {
		return bounds, nil
	}
	return syllabify(strings.ToLower(word)), nil
}

// ExceptionBounds returns the fixed syllable boundary indices of a word
// whose conventional syllabification differs from the rule-based one. The
// lookup is case-insensitive.
func ExceptionBounds(word string) ([]int, bool) {
	bounds, ok := exceptions[strings.ToLower(word)]
	if !ok {
		return nil, false
	}
	return append([]int(nil), bounds...), true
}

// Split returns the word cut into syllables, preserving its case, with a
// hyphen appended to every non-final syllable.
func Split(word string) ([]string, error) {
	bounds, err := SyllabifyWord(word)
	if err != nil {
		return nil, err
	}
	return SplitAtBounds(word, bounds), nil
}

// SplitAtBounds cuts a word at the given boundary indices, appending a
// hyphen to every non-final syllable. An empty bounds slice returns the word
// whole.
func SplitAtBounds(word string, bounds []int) []string {
	if len(bounds) == 0 {
		return []string{word}
	}
	syllables := make([]string, 0, len(bounds)+1)
	syllables = append(syllables, word[:bounds[0]]+"-")
	for i := 1; i < len(bounds); i++ {
		syllables = append(syllables, word[bounds[i-1]:bounds[i]]+"-")
	}
	return append(syllables, word[bounds[len(bounds)-1]:])
}

// syllabify locates syllable boundaries in a lowercase word. A separable
// prefix is split off first and its stem analyzed on its own; within the
// stem, every vowel group opens a syllable and the letters between two vowel
// groups decide where the boundary between them falls.
func syllabify(word string) []int {
	var bounds []int
	if len(word) <= 1 {
		return bounds
	}

	prefix := prefixOf(word)
	prefixLen := len(prefix)
	stem := word
	if prefixLen > 0 {
		bounds = append(bounds, prefixLen)
		stem = word[prefixLen:]
	}

	vowels := vowelPositions(stem)
	if len(vowels) <= 1 {
		return bounds
	}

	for i := 0; i < len(vowels)-1; i++ {
		v1, v2 := vowels[i], vowels[i+1]
		// Adjacent vowels forming a diphthong share a syllable, so no
		// boundary falls between them.
		if v2-1 == v1 && diphthongs[stem[v1:v2+1]] {
			continue
		}
		bound := v1 + 1 + boundaryShift(stem[v1+1:v2])
		bounds = append(bounds, bound+prefixLen)
	}
	return bounds
}

// prefixOf returns the separable prefix of a word when the word continues
// past it with a vowel. A word that is itself a prefix has none.
func prefixOf(word string) string {
	for _, prefix := range prefixes {
		if strings.HasPrefix(word, prefix) && word != prefix && isVowel(word[len(prefix)]) {
			return prefix
		}
	}
	return ""
}

// boundaryShift returns how far the syllable boundary moves past the end of
// the preceding vowel group, given the consonant run between two vowel
// groups. Zero keeps the whole run on the following syllable.
//
// One consonant joins the following syllable. Two consonants split unless
// they form a group, which stays together on the following syllable. For
// longer runs the final two consonants group if they can, then the first
// two; "str" stays whole. An "x" closes the preceding syllable, and a
// leading nasal is absorbed by it before the remaining run is judged.
func boundaryShift(cluster string) int {
	if len(cluster) == 0 {
		return 0
	}
	if cluster[0] == 'x' {
		return 1
	}
	if len(cluster) == 1 {
		return 0
	}
	shift := 0
	if isNasal(cluster[0]) {
		shift = 1
		cluster = cluster[1:]
		if len(cluster) == 1 {
			return shift
		}
	}
	if len(cluster) == 2 {
		if !consonantGroups[cluster] {
			shift++
		}
		return shift
	}
	if cluster == "str" {
		return shift
	}
	if consonantGroups[cluster[1:]] {
		return shift + 1
	}
	if consonantGroups[cluster[:2]] {
		return shift
	}
	return shift + 1
}
