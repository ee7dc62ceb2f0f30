package fixtures

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/chantlab/neuma/core/chant"
	"github.com/chantlab/neuma/core/encoding"
	apperrors "github.com/chantlab/neuma/core/errors"
	"github.com/chantlab/neuma/core/xml"
)

// ReadCantusXML parses a Cantus Index style XML export. Each chant is a
// <chant> element with child elements for the reference fields and the
// texts:
//
//	<chants>
//	  <chant>
//	    <siglum>A-Gu 29</siglum>
//	    <folio>12r</folio>
//	    <sequence>3</sequence>
//	    <incipit>Salve regina</incipit>
//	    <fulltext>Salve regina misericordiae</fulltext>
//	    <volpiano>1---f--g--h---3</volpiano>
//	  </chant>
//	</chants>
//
// The full text may also appear as <full_text> and the melody as
// <melody>, matching the variations seen across database exports.
// Siglum and folio are required; a missing or empty sequence means a
// folio-level reference.
func ReadCantusXML(data []byte) ([]Chant, error) {
	doc, err := xml.Parse(data)
	if err != nil {
		return nil, &apperrors.ParseError{Format: "Cantus XML", Message: "parsing document", Err: err}
	}

	nodes, err := doc.XPath("//chant")
	if err != nil {
		return nil, &apperrors.ParseError{Format: "Cantus XML", Message: "querying chant nodes", Err: err}
	}

	var chants []Chant
	for i, node := range nodes {
		c, err := chantFromNode(node)
		if err != nil {
			return nil, apperrors.Wrapf(err, "chant %d", i+1)
		}
		chants = append(chants, c)
	}
	return chants, nil
}

// chantFromNode extracts one Chant from a <chant> element.
func chantFromNode(node *xml.Node) (Chant, error) {
	siglum := childText(node, "siglum")
	if siglum == "" {
		return Chant{}, &apperrors.ParseError{Format: "Cantus XML", Message: "missing siglum"}
	}
	folio := childText(node, "folio")
	if folio == "" {
		return Chant{}, &apperrors.ParseError{Format: "Cantus XML", Message: "missing folio"}
	}

	sequence := 0
	if raw := childText(node, "sequence"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return Chant{}, &apperrors.ParseError{
				Format:  "Cantus XML",
				Message: fmt.Sprintf("sequence %q is not a number", raw),
				Err:     err,
			}
		}
		sequence = n
	}

	return Chant{
		Ref:      chant.Ref{Siglum: siglum, Folio: folio, Sequence: sequence},
		Incipit:  childText(node, "incipit"),
		FullText: childText(node, "fulltext", "full_text"),
		Volpiano: childText(node, "volpiano", "melody"),
	}, nil
}

// childText returns the trimmed text of the first child element matching
// one of the given names, searched in order of preference.
func childText(node *xml.Node, names ...string) string {
	for _, name := range names {
		for _, child := range node.Children() {
			if child.Name() == name {
				return strings.TrimSpace(child.Text())
			}
		}
	}
	return ""
}

// WriteCantusXML serializes a corpus as a Cantus Index style XML
// document, pretty-printed with two-space indentation. Empty fields and
// zero sequences are omitted.
func WriteCantusXML(chants []Chant) ([]byte, error) {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="utf-8"?>`)
	b.WriteString("<chants>")
	for _, c := range chants {
		b.WriteString("<chant>")
		writeElement(&b, "siglum", c.Ref.Siglum)
		writeElement(&b, "folio", c.Ref.Folio)
		if c.Ref.Sequence > 0 {
			writeElement(&b, "sequence", strconv.Itoa(c.Ref.Sequence))
		}
		writeElement(&b, "incipit", c.Incipit)
		writeElement(&b, "fulltext", c.FullText)
		writeElement(&b, "volpiano", c.Volpiano)
		b.WriteString("</chant>")
	}
	b.WriteString("</chants>")

	return xml.Format([]byte(b.String()), xml.FormatOptions{Indent: "  "})
}

// writeElement writes one text element, skipping empty values.
func writeElement(b *strings.Builder, name, value string) {
	if value == "" {
		return
	}
	fmt.Fprintf(b, "<%s>%s</%s>", name, encoding.EscapeXMLText(value), name)
}
