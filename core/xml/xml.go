// Package xml wraps xmlquery with the small XML surface the corpus
// loaders need: parsing chant database exports, XPath queries over them,
// and pretty-printing generated documents. Parsing goes through Go's
// encoding/xml, which does not fetch external entities, so untrusted
// uploads cannot trigger XXE lookups.
package xml

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/antchfx/xmlquery"
	"github.com/antchfx/xpath"

	"github.com/chantlab/neuma/core/encoding"
)

// Document is a parsed XML document.
type Document struct {
	root *xmlquery.Node
}

// Node is one element of a parsed document.
type Node struct {
	node *xmlquery.Node
}

// Parse parses an XML document.
func Parse(data []byte) (*Document, error) {
	root, err := xmlquery.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parsing XML: %w", err)
	}
	return &Document{root: root}, nil
}

// Root returns the document's root element, or nil for an empty document.
func (d *Document) Root() *Node {
	for child := d.root.FirstChild; child != nil; child = child.NextSibling {
		if child.Type == xmlquery.ElementNode {
			return &Node{node: child}
		}
	}
	return nil
}

// XPath returns all nodes matching the expression.
func (d *Document) XPath(expr string) ([]*Node, error) {
	if _, err := xpath.Compile(expr); err != nil {
		return nil, fmt.Errorf("invalid xpath %q: %w", expr, err)
	}

	matches, err := xmlquery.QueryAll(d.root, expr)
	if err != nil {
		return nil, fmt.Errorf("xpath query %q: %w", expr, err)
	}

	nodes := make([]*Node, len(matches))
	for i, m := range matches {
		nodes[i] = &Node{node: m}
	}
	return nodes, nil
}

// XPathFirst returns the first node matching the expression, or nil when
// nothing matches.
func (d *Document) XPathFirst(expr string) (*Node, error) {
	if _, err := xpath.Compile(expr); err != nil {
		return nil, fmt.Errorf("invalid xpath %q: %w", expr, err)
	}

	match, err := xmlquery.Query(d.root, expr)
	if err != nil {
		return nil, fmt.Errorf("xpath query %q: %w", expr, err)
	}
	if match == nil {
		return nil, nil
	}
	return &Node{node: match}, nil
}

// Serialize renders the document back to XML.
func (d *Document) Serialize() []byte {
	return []byte(d.root.OutputXML(true))
}

// Name returns the element name.
func (n *Node) Name() string {
	return n.node.Data
}

// Text returns the concatenated text content of the node and its
// descendants.
func (n *Node) Text() string {
	return n.node.InnerText()
}

// Children returns the node's child elements.
func (n *Node) Children() []*Node {
	var children []*Node
	for child := n.node.FirstChild; child != nil; child = child.NextSibling {
		if child.Type == xmlquery.ElementNode {
			children = append(children, &Node{node: child})
		}
	}
	return children
}

// Attr returns the value of the named attribute, or "" when absent.
func (n *Node) Attr(name string) string {
	return n.node.SelectAttr(name)
}

// FormatOptions controls pretty-printing.
type FormatOptions struct {
	// Indent is the per-level indentation string. Defaults to two spaces.
	Indent string
}

// Format pretty-prints an XML document. Elements holding only text stay on
// one line; elements with element children are indented one level per
// depth.
func Format(data []byte, opts FormatOptions) ([]byte, error) {
	if opts.Indent == "" {
		opts.Indent = "  "
	}

	doc, err := Parse(data)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	formatNode(&buf, doc.root, 0, opts.Indent)
	return buf.Bytes(), nil
}

func formatNode(w *bytes.Buffer, n *xmlquery.Node, depth int, indent string) {
	switch n.Type {
	case xmlquery.DocumentNode:
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			formatNode(w, child, depth, indent)
		}

	case xmlquery.DeclarationNode:
		w.WriteString("<?xml")
		for _, attr := range n.Attr {
			fmt.Fprintf(w, " %s=%q", attr.Name.Local, attr.Value)
		}
		w.WriteString("?>\n")

	case xmlquery.ElementNode:
		formatElement(w, n, depth, indent)

	case xmlquery.CommentNode:
		writeIndent(w, depth, indent)
		w.WriteString("<!--")
		w.WriteString(n.Data)
		w.WriteString("-->\n")
	}
}

func formatElement(w *bytes.Buffer, n *xmlquery.Node, depth int, indent string) {
	writeIndent(w, depth, indent)
	w.WriteString("<")
	w.WriteString(elementName(n))
	for _, attr := range n.Attr {
		name := attr.Name.Local
		if attr.Name.Space != "" {
			name = "xmlns:" + name
		}
		fmt.Fprintf(w, ` %s="%s"`, name, encoding.EscapeXMLAttr(attr.Value))
	}

	if n.FirstChild == nil {
		w.WriteString("/>\n")
		return
	}

	hasElements := false
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if child.Type == xmlquery.ElementNode {
			hasElements = true
			break
		}
	}

	w.WriteString(">")
	if hasElements {
		w.WriteString("\n")
	}

	for child := n.FirstChild; child != nil; child = child.NextSibling {
		switch child.Type {
		case xmlquery.ElementNode:
			formatElement(w, child, depth+1, indent)
		case xmlquery.TextNode:
			if text := strings.TrimSpace(child.Data); text != "" {
				if hasElements {
					writeIndent(w, depth+1, indent)
				}
				w.WriteString(encoding.EscapeXMLText(child.Data))
				if hasElements {
					w.WriteString("\n")
				}
			}
		case xmlquery.CharDataNode:
			w.WriteString("<![CDATA[")
			w.WriteString(child.Data)
			w.WriteString("]]>")
		case xmlquery.CommentNode:
			if hasElements {
				writeIndent(w, depth+1, indent)
			}
			w.WriteString("<!--")
			w.WriteString(child.Data)
			w.WriteString("-->")
			if hasElements {
				w.WriteString("\n")
			}
		}
	}

	if hasElements {
		writeIndent(w, depth, indent)
	}
	w.WriteString("</")
	w.WriteString(elementName(n))
	w.WriteString(">\n")
}

func elementName(n *xmlquery.Node) string {
	if n.Prefix != "" {
		return n.Prefix + ":" + n.Data
	}
	return n.Data
}

func writeIndent(w *bytes.Buffer, depth int, indent string) {
	for i := 0; i < depth; i++ {
		w.WriteString(indent)
	}
}
