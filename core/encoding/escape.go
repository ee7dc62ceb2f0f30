// Package encoding provides the text escaping shared by the HTML and XML
// writers. Chant texts and source references pass through these before
// landing in rendered previews or corpus exports; the escapes cover the
// markup-significant characters and leave everything else alone, so
// volpiano strings survive unchanged.
package encoding

import "strings"

// EscapeXMLText escapes the basic XML entities for element content.
func EscapeXMLText(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	return s
}

// EscapeXMLAttr escapes text for use in XML attribute values. Double
// quotes are escaped in addition to the basic entities; attribute values
// are always written double-quoted.
func EscapeXMLAttr(s string) string {
	s = EscapeXMLText(s)
	s = strings.ReplaceAll(s, "\"", "&quot;")
	return s
}

// EscapeHTML escapes special characters for HTML content.
// Escapes: & < > "
func EscapeHTML(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	s = strings.ReplaceAll(s, "\"", "&quot;")
	return s
}
