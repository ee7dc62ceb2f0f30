package chant

import (
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"

	apperrors "github.com/chantlab/neuma/core/errors"
)

// Ref identifies a chant by its position in a manuscript source, following
// the Cantus convention of siglum, folio, and sequence.
type Ref struct {
	// Siglum is the RISM-style source identifier, including any shelfmark
	// (e.g., "A-Gu 29", "F-Pn lat. 12044").
	Siglum string `json:"siglum"`

	// Folio locates the page side within the source (e.g., "12r", "47v").
	Folio string `json:"folio"`

	// Sequence is the 1-indexed position of the chant on the folio
	// (0 for folio-level references).
	Sequence int `json:"sequence,omitempty"`
}

// refGrammar is the participle grammar for chant references.
// Examples: "A-Gu 29 12r 3", "F-Pn lat. 12044 47v 2", "D-KA Aug. LX 17r"
//
//nolint:govet // participle grammar tags are not standard struct tags
type refGrammar struct {
	Siglum   []string `@(Word | Int)+`
	Folio    string   `@Folio`
	Sequence int      `@Int?`
}

// refLexer defines the lexer for chant references.
// Note: Folio precedes Int so that "12r" lexes as a folio, not a number.
var refLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Folio", Pattern: `[0-9]+[rv][ab]?\b`},
	{Name: "Int", Pattern: `[0-9]+`},
	{Name: "Word", Pattern: `[A-Za-z][A-Za-z0-9.\-]*`},
	{Name: "Whitespace", Pattern: `\s+`},
})

// refParser is the participle parser for chant references.
var refParser = participle.MustBuild[refGrammar](
	participle.Lexer(refLexer),
	participle.Elide("Whitespace"),
)

// ParseRef parses a Cantus-style chant reference string.
// Supported formats:
//   - "A-Gu 29 12r" (siglum and folio)
//   - "A-Gu 29 12r 3" (siglum, folio, and sequence)
//   - "F-Pn lat. 12044 47v 2" (multi-token shelfmark)
func ParseRef(s string) (*Ref, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, &apperrors.ParseError{
			Format:  "chant reference",
			Message: "empty reference string",
		}
	}

	parsed, err := refParser.ParseString("", s)
	if err != nil {
		return nil, &apperrors.ParseError{
			Format:  "chant reference",
			Message: strconv.Quote(s),
			Err:     err,
		}
	}

	return &Ref{
		Siglum:   strings.Join(parsed.Siglum, " "),
		Folio:    parsed.Folio,
		Sequence: parsed.Sequence,
	}, nil
}

// String returns the canonical "siglum folio sequence" form of the reference.
func (r *Ref) String() string {
	var sb strings.Builder
	sb.WriteString(r.Siglum)

	if r.Folio != "" {
		sb.WriteString(" ")
		sb.WriteString(r.Folio)

		if r.Sequence > 0 {
			sb.WriteString(" ")
			sb.WriteString(strconv.Itoa(r.Sequence))
		}
	}

	return sb.String()
}

// Equal reports whether two references identify the same chant.
func (r *Ref) Equal(other *Ref) bool {
	if other == nil {
		return false
	}
	return r.Siglum == other.Siglum && r.Folio == other.Folio && r.Sequence == other.Sequence
}
