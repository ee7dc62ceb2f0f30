package latin

import "strings"

// rewriteSemivowels rewrites "i", "u", and "y" where they act as semivowels
// or consonants so that vowel scanning skips them: semivowel "i"/"y" become
// "j", semivowel "u" becomes "w", consonantal "u" becomes "v". The caller has
// already folded long "i" (written "j") back to "i". Words too short for the
// positional checks are returned unchanged.
func rewriteSemivowels(word string) string {
	if word == "" {
		return word
	}
	repl := make([]byte, 0, len(word))

	// The first character reads ahead one letter, or two across an "h".
	switch word[0] {
	case 'y':
		if len(word) < 2 {
			return word
		}
		if isVowelAEIOU(word[1]) {
			repl = append(repl, 'j')
		} else {
			repl = append(repl, 'y')
		}
	case 'i':
		if len(word) < 2 {
			return word
		}
		if isVowelAEOU(word[1]) {
			repl = append(repl, 'j')
		} else if word[1] == 'h' {
			if len(word) < 3 {
				return word
			}
			if isVowelAEO(word[2]) {
				repl = append(repl, 'j')
			} else {
				repl = append(repl, 'i')
			}
		} else {
			repl = append(repl, 'i')
		}
	case 'u':
		if len(word) < 2 {
			return word
		}
		if isVowel(word[1]) {
			repl = append(repl, 'v')
		} else {
			repl = append(repl, 'u')
		}
	default:
		repl = append(repl, word[0])
	}

	// Remaining characters read the already-rewritten previous letter and
	// the raw following letter. The final character always stands.
	for i := 1; i < len(word); i++ {
		c := word[i]
		if (c != 'i' && c != 'u' && c != 'y') || i == len(word)-1 {
			repl = append(repl, c)
			continue
		}
		next := word[i+1]
		prev := repl[len(repl)-1]
		switch c {
		case 'i', 'y':
			pairStart := len(repl) - 2
			if pairStart < 0 {
				pairStart = 0
			}
			prevPair := string(repl[pairStart:])
			if (isVowelAEOU(prev) && isVowelAEOU(next)) ||
				(!consonantGroups[prevPair] && prev == 'h' && isVowelEOU(next)) {
				repl = append(repl, 'j')
			} else {
				repl = append(repl, 'i')
			}
		case 'u':
			switch {
			case (prev == 'q' || prev == 'g') && isVowel(next):
				repl = append(repl, 'w')
			case isVowel(prev) && isVowel(next):
				repl = append(repl, 'v')
			default:
				repl = append(repl, 'u')
			}
		}
	}
	return string(repl)
}

// vowelPositions returns the indices of syllable nuclei in a word. Long "i"
// written "j" is folded to "i" first; semivowels are then rewritten out so
// only true nuclei remain.
func vowelPositions(word string) []int {
	rewritten := rewriteSemivowels(strings.ReplaceAll(word, "j", "i"))
	var positions []int
	for i := 0; i < len(rewritten); i++ {
		if isVowel(rewritten[i]) {
			positions = append(positions, i)
		}
	}
	return positions
}
