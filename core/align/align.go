// Package align pairs a chant text with its volpiano melody syllable by
// syllable. Both strings are tokenized into sections, words, and syllables,
// the section lists are equalized, and corresponding units are zipped into
// (text, melody) pairs ready for rendering. Alignment is best effort: an
// encoding defect is repaired or padded over rather than reported as an
// error, and a review flag on the result marks the encodings that deserve a
// second look.
package align

import (
	"fmt"
	"strings"

	"github.com/chantlab/neuma/core/cantus"
	"github.com/chantlab/neuma/core/chant"
	apperrors "github.com/chantlab/neuma/core/errors"
	"github.com/chantlab/neuma/core/volpiano"
)

// repairIterationCap bounds the barline inference loop. Each iteration
// inserts one barline on the deficient side, so the loop terminates long
// before this on any real encoding.
const repairIterationCap = 100

// Pair is one rendered unit: a text syllable or marker with the melody span
// it sits under.
type Pair struct {
	Text     string `json:"text"`
	Volpiano string `json:"volpiano"`
}

// Options controls how the text side is tokenized during alignment.
type Options struct {
	// Clean strips characters outside the chant markup alphabet up front
	// instead of attempting a strict parse first.
	Clean bool

	// Presyllabified treats embedded hyphens in the text as the only
	// syllable breaks.
	Presyllabified bool
}

// TextAndVolpiano aligns a chant text with its volpiano melody. The returned
// pairs open with the clef, close with the final barline, and carry one text
// unit per melody span between them. The boolean reports whether any
// normalization, repair, or padding fired along the way, meaning the source
// encoding should be reviewed. An error is returned only when the text
// cannot be tokenized at all or the section repair loop fails to converge.
func TextAndVolpiano(text, vol string, opts Options) ([]Pair, bool, error) {
	review := false

	normalized, changed := cantus.NormalizeMissingWordSpacing(text)
	if changed {
		review = true
	}
	textSections, err := syllabifyText(normalized, opts, &review)
	if err != nil {
		return nil, false, err
	}

	prepared, flagged := volpiano.Prepare(vol)
	if flagged {
		review = true
	}
	// An empty melody still aligns: the text is paired with bare spacers.
	if prepared == "" {
		prepared = "-"
	}
	body, finBar, synthesized := volpiano.TrimFinalBarline(prepared)
	if synthesized {
		review = true
	}
	volSections, improper := volpiano.SyllabifyPrepared(body)
	if improper {
		review = true
	}

	if len(textSections) != len(volSections) {
		textSections, volSections, err = inferBarlines(textSections, volSections)
		if err != nil {
			return nil, false, err
		}
		review = true
	}

	pairs := []Pair{{Text: "", Volpiano: volpiano.Clef}}
	for i := range textSections {
		sectionPairs, misaligned := alignSection(textSections[i], volSections[i])
		pairs = append(pairs, sectionPairs...)
		if misaligned {
			review = true
		}
	}
	pairs = append(pairs, Pair{Text: "", Volpiano: finBar})
	return pairs, review, nil
}

// syllabifyText tokenizes the text side, attempting a strict parse first
// and retrying with cleaning when disallowed characters are the problem.
// Either path that alters the text marks the encoding for review.
func syllabifyText(text string, opts Options, review *bool) ([]chant.Section, error) {
	if opts.Clean {
		cleaned, removed := cantus.CleanText(text)
		if removed {
			*review = true
		}
		return cantus.SyllabifyText(cleaned, cantus.Options{Presyllabified: opts.Presyllabified})
	}
	sections, err := cantus.SyllabifyText(text, cantus.Options{Presyllabified: opts.Presyllabified})
	if err != nil && apperrors.Is(err, apperrors.ErrInvalidCharacter) {
		*review = true
		return cantus.SyllabifyText(text, cantus.Options{
			Clean:          true,
			Presyllabified: opts.Presyllabified,
		})
	}
	return sections, err
}

// alignSection aligns one section of text with one section of volpiano. A
// section whose text is a marker (barline, missing music, incipit, aside)
// pairs that marker with the section's whole melody span; a syllabified
// section zips word against word and syllable against syllable.
func alignSection(txtSec, volSec chant.Section) ([]Pair, bool) {
	misaligned := false

	if !txtSec.IsSyllabified() {
		text := txtSec.Text()
		if txtSec.NumWords() > 1 {
			misaligned = true
		}
		flat := volSec.Flatten()
		var melody string
		if volSec.IsMissingMusic() {
			adjusted, err := volpiano.AdjustMissingMusicSpacing(flat, len(text))
			if err != nil {
				melody = volpiano.AdjustSpacing(flat, len(text), true)
				misaligned = true
			} else {
				melody = adjusted
			}
		} else {
			melody = volpiano.AdjustSpacing(flat, len(text), true)
		}
		return []Pair{{Text: text, Volpiano: melody}}, misaligned
	}

	txtWords, volWords, padded := zipWords(txtSec.Words, volSec.Words)
	if padded {
		misaligned = true
	}
	var pairs []Pair
	for i := range txtWords {
		wordPairs, wordPadded := alignWord(txtWords[i].Syllables, volWords[i].Syllables)
		pairs = append(pairs, wordPairs...)
		// A missing-word marker is expected to need padding; anywhere
		// else, padding means the encodings disagree.
		if wordPadded && !isMissingWordMarker(txtWords[i]) {
			misaligned = true
		}
	}
	return pairs, misaligned
}

// zipWords equalizes the word counts of a text section and a volpiano
// section, padding the shorter side with placeholder words. The boolean
// reports whether padding was needed.
func zipWords(text, vol []chant.Word) ([]chant.Word, []chant.Word, bool) {
	if len(text) == len(vol) {
		return text, vol, false
	}
	if len(text) < len(vol) {
		padded := make([]chant.Word, len(vol))
		copy(padded, text)
		for i := len(text); i < len(vol); i++ {
			padded[i] = chant.WordOf("")
		}
		return padded, vol, true
	}
	padded := make([]chant.Word, len(text))
	copy(padded, vol)
	for i := len(vol); i < len(text); i++ {
		padded[i] = chant.WordOf("---")
	}
	return text, padded, true
}

// alignWord aligns one word of text with one word of volpiano, syllable by
// syllable. When the text has more syllables than the melody, the trailing
// excess merges into the final slot so no text is lost; when the melody has
// more, the text is padded with empty slots. Every melody syllable is spaced
// to at least the length of its text, and the word-final syllable gets
// end-of-word spacing. The boolean reports whether either side was merged
// or padded.
func alignWord(text, vol []string) ([]Pair, bool) {
	if len(vol) == 0 {
		vol = []string{""}
	}
	padded := false
	switch {
	case len(text) > len(vol):
		merged := make([]string, len(vol))
		copy(merged, text[:len(vol)-1])
		merged[len(vol)-1] = strings.Join(text[len(vol)-1:], "")
		text = merged
		padded = true
	case len(text) < len(vol):
		extended := make([]string, len(vol))
		copy(extended, text)
		text = extended
		padded = true
	}

	pairs := make([]Pair, 0, len(vol))
	for i := range vol {
		endOfWord := i == len(vol)-1
		melody := volpiano.AdjustSpacing(vol[i], len(text[i]), endOfWord)
		pairs = append(pairs, Pair{Text: text[i], Volpiano: melody})
	}
	return pairs, padded
}

func isMissingWordMarker(word chant.Word) bool {
	return len(word.Syllables) == 1 && word.Syllables[0] == "#"
}

func countBarlines(sections []chant.Section) int {
	n := 0
	for _, sec := range sections {
		if sec.IsBarline() {
			n++
		}
	}
	return n
}

// inferBarlines reconciles text and volpiano whose section counts disagree,
// assuming a barline was omitted on one side. While the barline counts
// differ, the section pair with the largest word-count imbalance is found
// and the side with fewer barlines is split there, inserting a synthetic
// barline at the word index where the other side's section ends. Once
// barline counts agree, any leftover length difference is padded with empty
// or barline sections mirroring the longer side.
func inferBarlines(text, vol []chant.Section) ([]chant.Section, []chant.Section, error) {
	textBarlines := countBarlines(text)
	volBarlines := countBarlines(vol)
	for iter := 0; textBarlines != volBarlines; iter++ {
		if iter >= repairIterationCap {
			return nil, nil, &apperrors.AlignmentError{
				Stage:   "barline inference",
				Message: fmt.Sprintf("no convergence after %d insertions", repairIterationCap),
				Err:     apperrors.ErrRepairNotConverged,
			}
		}
		n := len(text)
		if len(vol) < n {
			n = len(vol)
		}
		maxDiff, maxIdx := 0, 0
		for i := 0; i < n; i++ {
			diff := text[i].NumWords() - vol[i].NumWords()
			if diff < 0 {
				diff = -diff
			}
			if diff > maxDiff {
				maxDiff, maxIdx = diff, i
			}
		}
		// No imbalance left to exploit: stop inferring and let section
		// padding below equalize the remainder.
		if maxDiff == 0 {
			break
		}
		if textBarlines > volBarlines {
			vol = insertBarline(vol, maxIdx, text[maxIdx].NumWords(), chant.WordOf("3---"))
		} else {
			text = insertBarline(text, maxIdx, vol[maxIdx].NumWords(), chant.WordOf("|"))
		}
		textBarlines = countBarlines(text)
		volBarlines = countBarlines(vol)
	}

	if len(text) > len(vol) {
		for _, extra := range text[len(vol):] {
			if extra.IsBarline() {
				vol = append(vol, chant.NewSection(chant.SectionBarline, chant.WordOf("3---")))
			} else {
				vol = append(vol, chant.NewSection(chant.SectionSyllabified, chant.WordOf("")))
			}
		}
	} else {
		for _, extra := range vol[len(text):] {
			if extra.IsBarline() {
				text = append(text, chant.NewSection(chant.SectionBarline, chant.WordOf("|")))
			} else {
				text = append(text, chant.NewSection(chant.SectionSyllabified, chant.WordOf("")))
			}
		}
	}
	return text, vol, nil
}

// insertBarline splits the section at idx in two at the given word index and
// places a single-word barline section between the halves. Both halves keep
// the original section's kind; either may be left without words when the
// split falls at the section's edge.
func insertBarline(sections []chant.Section, idx, split int, barline chant.Word) []chant.Section {
	sec := sections[idx]
	if split > len(sec.Words) {
		split = len(sec.Words)
	}
	head := chant.Section{Kind: sec.Kind, Words: sec.Words[:split]}
	tail := chant.Section{Kind: sec.Kind, Words: sec.Words[split:]}

	out := make([]chant.Section, 0, len(sections)+2)
	out = append(out, sections[:idx]...)
	out = append(out, head, chant.NewSection(chant.SectionBarline, barline), tail)
	out = append(out, sections[idx+1:]...)
	return out
}
