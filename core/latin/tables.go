package latin

import "strings"

// consonantGroups are clusters treated as a single consonant when assigning
// letters between two vowels to syllables.
var consonantGroups = map[string]bool{
	"ch": true,
	"ph": true,
	"th": true,
	"rh": true,
	"gn": true,
	"qu": true,
	"gu": true,
	"sc": true,
	"pl": true,
	"pr": true,
	"bl": true,
	"br": true,
	"tr": true,
	"dr": true,
	"cl": true,
	"cr": true,
	"fl": true,
	"fr": true,
	"gl": true,
	"gr": true,
	"st": true,
}

// prefixes are separable word prefixes, longest first.
var prefixes = []string{"con", "per", "sub", "ab", "ob", "ad", "in", "co"}

// diphthongs are the vowel pairs that share a single syllable.
var diphthongs = map[string]bool{
	"ae": true,
	"oe": true,
	"au": true,
}

// exceptions map known irregular words, lowercased, to fixed syllable
// boundary indices. Liturgical forms like the "euouae" mnemonic defeat the
// rule-based analysis and are looked up here instead.
var exceptions = map[string][]int{
	"euouae":     {1, 2, 3, 4, 5},
	"israelitis": {2, 4, 5, 7},
	"israel":     {2, 4},
	"michael":    {2, 5},
}

func isVowel(c byte) bool      { return strings.IndexByte("aeiouy", c) >= 0 }
func isVowelAEOU(c byte) bool  { return strings.IndexByte("aeou", c) >= 0 }
func isVowelAEIOU(c byte) bool { return strings.IndexByte("aeiou", c) >= 0 }
func isVowelAEO(c byte) bool   { return strings.IndexByte("aeo", c) >= 0 }
func isVowelEOU(c byte) bool   { return strings.IndexByte("eou", c) >= 0 }
func isNasal(c byte) bool      { return c == 'm' || c == 'n' }
