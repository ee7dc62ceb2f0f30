package cantus

import (
	"reflect"
	"testing"

	"github.com/chantlab/neuma/core/chant"
	apperrors "github.com/chantlab/neuma/core/errors"
)

func syllabified(words ...chant.Word) chant.Section {
	return chant.NewSection(chant.SectionSyllabified, words...)
}

func marker(kind chant.SectionKind, text string) chant.Section {
	return chant.NewSection(kind, chant.WordOf(text))
}

func TestSyllabifyText(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []chant.Section
	}{
		{
			name: "single section",
			text: "Sanctus sanctus sanctus",
			want: []chant.Section{
				syllabified(
					chant.WordOf("Sanc-", "tus"),
					chant.WordOf("sanc-", "tus"),
					chant.WordOf("sanc-", "tus"),
				),
			},
		},
		{
			name: "missing word",
			text: "# Sabaoth",
			want: []chant.Section{
				syllabified(
					chant.WordOf("#"),
					chant.WordOf("Sa-", "ba-", "oth"),
				),
			},
		},
		{
			name: "word fragments around missing words",
			text: "plen- # sunt # -li",
			want: []chant.Section{
				syllabified(
					chant.WordOf("plen-"),
					chant.WordOf("#"),
					chant.WordOf("sunt"),
					chant.WordOf("#"),
					chant.WordOf("-li"),
				),
			},
		},
		{
			name: "missing music mid text",
			text: "et {terra gloria} tua",
			want: []chant.Section{
				syllabified(chant.WordOf("et")),
				marker(chant.SectionMissingMusic, "{terra gloria}"),
				syllabified(chant.WordOf("tu-", "a")),
			},
		},
		{
			name: "fragment before missing music",
			text: "Bene- {dictus} qui",
			want: []chant.Section{
				syllabified(chant.WordOf("Be-", "ne-")),
				marker(chant.SectionMissingMusic, "{dictus}"),
				syllabified(chant.WordOf("qui")),
			},
		},
		{
			name: "missing music and missing word combined",
			text: "venit {#}",
			want: []chant.Section{
				syllabified(chant.WordOf("ve-", "nit")),
				marker(chant.SectionMissingMusic, "{#}"),
			},
		},
		{
			name: "alternating fragments and missing music",
			text: "no- {#} -ne {#} -omini",
			want: []chant.Section{
				syllabified(chant.WordOf("no-")),
				marker(chant.SectionMissingMusic, "{#}"),
				syllabified(chant.WordOf("-ne")),
				marker(chant.SectionMissingMusic, "{#}"),
				syllabified(chant.WordOf("-o-", "mi-", "ni")),
			},
		},
		{
			name: "consecutive missing music spans merge",
			text: "{cantic- #} {#} {# -ovum}",
			want: []chant.Section{
				marker(chant.SectionMissingMusic, "{cantic- #} {#} {# -ovum}"),
			},
		},
		{
			name: "barline splits sections",
			text: "quia mirabilia fecit | salvavit sibi dextera eius",
			want: []chant.Section{
				syllabified(
					chant.WordOf("qui-", "a"),
					chant.WordOf("mi-", "ra-", "bi-", "li-", "a"),
					chant.WordOf("fe-", "cit"),
				),
				marker(chant.SectionBarline, "|"),
				syllabified(
					chant.WordOf("sal-", "va-", "vit"),
					chant.WordOf("si-", "bi"),
					chant.WordOf("dex-", "te-", "ra"),
					chant.WordOf("e-", "ius"),
				),
			},
		},
		{
			name: "incipits and asides",
			text: "et brachium sanctum eius | ~Gloria | ~Ipsum [Canticum]",
			want: []chant.Section{
				syllabified(
					chant.WordOf("et"),
					chant.WordOf("bra-", "chi-", "um"),
					chant.WordOf("sanc-", "tum"),
					chant.WordOf("e-", "ius"),
				),
				marker(chant.SectionBarline, "|"),
				marker(chant.SectionIncipit, "~Gloria"),
				marker(chant.SectionBarline, "|"),
				marker(chant.SectionIncipit, "~Ipsum [Canticum]"),
			},
		},
		{
			name: "aside section",
			text: "[Canticum] benedictus",
			want: []chant.Section{
				marker(chant.SectionAside, "[Canticum] benedictus"),
			},
		},
		{
			name: "exception word",
			text: "euouae",
			want: []chant.Section{
				syllabified(chant.WordOf("e-", "u-", "o-", "u-", "a-", "e")),
			},
		},
		{
			name: "exception word keeps case",
			text: "Euouae",
			want: []chant.Section{
				syllabified(chant.WordOf("E-", "u-", "o-", "u-", "a-", "e")),
			},
		},
		{
			name: "missing word glued to fragment",
			text: "plen-# sunt",
			want: []chant.Section{
				syllabified(
					chant.WordOf("plen-"),
					chant.WordOf("#"),
					chant.WordOf("sunt"),
				),
			},
		},
		{
			name: "extra spaces collapse",
			text: "Sanctus  sanctus",
			want: []chant.Section{
				syllabified(
					chant.WordOf("Sanc-", "tus"),
					chant.WordOf("sanc-", "tus"),
				),
			},
		},
		{
			name: "empty text",
			text: "",
			want: []chant.Section{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SyllabifyText(tt.text, Options{})
			if err != nil {
				t.Fatalf("SyllabifyText(%q) error: %v", tt.text, err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("SyllabifyText(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestSyllabifyTextPresyllabified(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []chant.Section
	}{
		{
			name: "embedded hyphens decide breaks",
			text: "San-ctus sanc-tus",
			want: []chant.Section{
				syllabified(
					chant.WordOf("San-", "ctus"),
					chant.WordOf("sanc-", "tus"),
				),
			},
		},
		{
			name: "unhyphenated word stays whole",
			text: "benedictus",
			want: []chant.Section{
				syllabified(chant.WordOf("benedictus")),
			},
		},
		{
			name: "exception overrides hyphens",
			text: "euouae",
			want: []chant.Section{
				syllabified(chant.WordOf("e-", "u-", "o-", "u-", "a-", "e")),
			},
		},
		{
			name: "leading fragment hyphen survives",
			text: "-mi-nus",
			want: []chant.Section{
				syllabified(chant.WordOf("-mi-", "nus")),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SyllabifyText(tt.text, Options{Presyllabified: true})
			if err != nil {
				t.Fatalf("SyllabifyText(%q) error: %v", tt.text, err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("SyllabifyText(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestSyllabifyTextInvalidCharacters(t *testing.T) {
	_, err := SyllabifyText("sanctus 3sanctus", Options{})
	if err == nil {
		t.Fatal("expected error for text with invalid characters")
	}
	if !apperrors.Is(err, apperrors.ErrInvalidCharacter) {
		t.Errorf("error should wrap ErrInvalidCharacter, got %v", err)
	}

	got, err := SyllabifyText("sanctus 3sanctus", Options{Clean: true})
	if err != nil {
		t.Fatalf("SyllabifyText with Clean error: %v", err)
	}
	want := []chant.Section{
		syllabified(
			chant.WordOf("sanc-", "tus"),
			chant.WordOf("sanc-", "tus"),
		),
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("SyllabifyText cleaned = %v, want %v", got, want)
	}
}

func TestCleanText(t *testing.T) {
	tests := []struct {
		name        string
		text        string
		want        string
		wantRemoved bool
	}{
		{"already clean", "sanctus | ~Gloria {#}", "sanctus | ~Gloria {#}", false},
		{"digits and punctuation", "sanctus, 12r sanctus!", "sanctus r sanctus", true},
		{"accented letter", "benedíctus", "benedctus", true},
		{"empty", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, removed := CleanText(tt.text)
			if got != tt.want || removed != tt.wantRemoved {
				t.Errorf("CleanText(%q) = %q, %v, want %q, %v",
					tt.text, got, removed, tt.want, tt.wantRemoved)
			}
		})
	}
}

func TestNormalizeMissingWordSpacing(t *testing.T) {
	tests := []struct {
		name        string
		text        string
		want        string
		wantChanged bool
	}{
		{"already spaced", "plen- # sunt", "plen- # sunt", false},
		{"glued to preceding fragment", "plen-# sunt", "plen- # sunt", true},
		{"glued to following word", "plen- #sunt", "plen- # sunt", true},
		{"glued both sides", "a#b", "a # b", true},
		{"doubled markers", "##", "# #", true},
		{"braced marker untouched", "venit {#}", "venit {#}", false},
		{"leading marker", "# Sabaoth", "# Sabaoth", false},
		{"empty", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, changed := NormalizeMissingWordSpacing(tt.text)
			if got != tt.want || changed != tt.wantChanged {
				t.Errorf("NormalizeMissingWordSpacing(%q) = %q, %v, want %q, %v",
					tt.text, got, changed, tt.want, tt.wantChanged)
			}
			again, changedAgain := NormalizeMissingWordSpacing(got)
			if again != got || changedAgain {
				t.Errorf("NormalizeMissingWordSpacing not idempotent on %q: got %q, %v",
					got, again, changedAgain)
			}
		})
	}
}

func TestFlatten(t *testing.T) {
	text := "quia mirabilia fecit | ~Gloria"
	sections, err := SyllabifyText(text, Options{})
	if err != nil {
		t.Fatalf("SyllabifyText(%q) error: %v", text, err)
	}
	got := Flatten(sections)
	want := "qui-a mi-ra-bi-li-a fe-cit | ~Gloria"
	if got != want {
		t.Errorf("Flatten = %q, want %q", got, want)
	}
}
