// Package chant defines the structural units shared by the text and melody
// tokenizers and the aligner. A chant string, whether text or volpiano, breaks
// into Sections at barlines and missing-music spans; syllabified sections
// break further into Words and Syllables.
package chant

import "strings"

// SectionKind classifies a section of a chant.
type SectionKind string

// Section kind constants.
const (
	// SectionSyllabified is a run of ordinary words split into syllables.
	SectionSyllabified SectionKind = "SYLLABIFIED"
	// SectionBarline is a section or verse divider.
	SectionBarline SectionKind = "BARLINE"
	// SectionMissingMusic is a span whose melody is missing from the source.
	SectionMissingMusic SectionKind = "MISSING_MUSIC"
	// SectionIncipit is an unsyllabified incipit span.
	SectionIncipit SectionKind = "INCIPIT"
	// SectionAside is an unsyllabified editorial aside.
	SectionAside SectionKind = "ASIDE"
)

// validSectionKinds is the set of valid section kinds.
var validSectionKinds = map[SectionKind]bool{
	SectionSyllabified:  true,
	SectionBarline:      true,
	SectionMissingMusic: true,
	SectionIncipit:      true,
	SectionAside:        true,
}

// IsValid returns true if the section kind is valid.
func (k SectionKind) IsValid() bool {
	return validSectionKinds[k]
}

// Word is a single word as an ordered sequence of syllables. Non-final
// syllables of a syllabified text word keep their trailing hyphen; volpiano
// syllables keep their trailing spacer run.
type Word struct {
	Syllables []string `json:"syllables"`
}

// Section is a run of words between structural markers. Tokenizers always
// emit sections with at least one word and words with at least one syllable;
// alignment repair may produce empty sections when it splits at a boundary.
type Section struct {
	Kind  SectionKind `json:"kind"`
	Words []Word      `json:"words"`
}

// WordOf builds a word from its syllables.
func WordOf(syllables ...string) Word {
	return Word{Syllables: syllables}
}

// NewSection builds a section of the given kind.
func NewSection(kind SectionKind, words ...Word) Section {
	return Section{Kind: kind, Words: words}
}

// Text returns the word's syllables joined back into a single string.
func (w Word) Text() string {
	return strings.Join(w.Syllables, "")
}

// Text returns the section's words joined with single spaces.
func (s Section) Text() string {
	parts := make([]string, len(s.Words))
	for i, w := range s.Words {
		parts[i] = w.Text()
	}
	return strings.Join(parts, " ")
}

// Flatten concatenates every syllable of every word with no separators.
// Volpiano sections flatten this way because spacer runs are part of the
// syllable strings themselves.
func (s Section) Flatten() string {
	var sb strings.Builder
	for _, w := range s.Words {
		for _, syl := range w.Syllables {
			sb.WriteString(syl)
		}
	}
	return sb.String()
}

// NumWords returns the number of words in the section.
func (s Section) NumWords() int {
	return len(s.Words)
}

// IsSyllabified returns true for sections whose words carry syllable splits.
func (s Section) IsSyllabified() bool {
	return s.Kind == SectionSyllabified
}

// IsBarline returns true for barline sections.
func (s Section) IsBarline() bool {
	return s.Kind == SectionBarline
}

// IsMissingMusic returns true for missing-music sections.
func (s Section) IsMissingMusic() bool {
	return s.Kind == SectionMissingMusic
}
