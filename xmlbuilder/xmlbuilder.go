package xmlbuilder

import (
	"strings"
)

// Header is the declaration line emitted when Options.Declaration is enabled.
const Header = `<?xml version="1.0" encoding="UTF-8"?>`

// Inner content shorter than this, with no embedded newline, is collapsed
// onto a single line together with its parent tags.
const compactThreshold = 80

// Attribute is a single name="value" pair on an element.
type Attribute struct {
	Name  string
	Value string
}

type contentKind int

const (
	contentEmpty contentKind = iota
	contentNil
	contentText
	contentCDATA
	contentChildren
)

// Element is one node of an XML document tree. An element carries ordered
// attributes and exactly one kind of content: nothing (rendered as an open
// and close tag pair), an explicit nil marker (rendered self-closing),
// escaped text, a raw CDATA section, or an ordered list of child elements.
type Element struct {
	name     string
	attrs    []Attribute
	kind     contentKind
	content  string
	children []*Element
}

// NewElement ...
func NewElement(name string) *Element {
	return &Element{name: name}
}

// Name ...
func (e *Element) Name() string {
	return e.name
}

// SetAttr appends an attribute, or updates its value in place when the name
// was set before. Attributes render in first-set order.
func (e *Element) SetAttr(name, value string) *Element {
	for i, attr := range e.attrs {
		if attr.Name == name {
			e.attrs[i].Value = value
			return e
		}
	}
	e.attrs = append(e.attrs, Attribute{Name: name, Value: value})
	return e
}

// Attr returns the value of the named attribute.
func (e *Element) Attr(name string) (string, bool) {
	for _, attr := range e.attrs {
		if attr.Name == name {
			return attr.Value, true
		}
	}
	return "", false
}

// RemoveAttr deletes the named attribute, keeping the order of the rest.
func (e *Element) RemoveAttr(name string) {
	for i, attr := range e.attrs {
		if attr.Name == name {
			e.attrs = append(e.attrs[:i], e.attrs[i+1:]...)
			return
		}
	}
}

// Attributes returns the attributes in render order.
func (e *Element) Attributes() []Attribute {
	return e.attrs
}

// SetText makes the element's content escaped scalar text.
func (e *Element) SetText(text string) *Element {
	e.kind = contentText
	e.content = text
	return e
}

// SetCDATA makes the element's content a raw character data section. The
// content is emitted unescaped; the caller strips illegal characters first.
// Embedded "]]>" sequences are not split.
func (e *Element) SetCDATA(data string) *Element {
	e.kind = contentCDATA
	e.content = data
	return e
}

// SetNil marks the element as explicitly empty, rendering it self-closing
// (<tag/>). Without this an element with no content renders as an open and
// close tag pair.
func (e *Element) SetNil() *Element {
	e.kind = contentNil
	return e
}

// AddChild appends a child element. Children render in append order, and
// repeated children with the same name render as sibling elements.
func (e *Element) AddChild(child *Element) *Element {
	e.kind = contentChildren
	e.children = append(e.children, child)
	return e
}

// Children ...
func (e *Element) Children() []*Element {
	return e.children
}

// Options control document rendering.
type Options struct {
	// Declaration prepends the XML declaration line.
	Declaration bool
	// Indent is the per-depth leading whitespace unit.
	Indent string
}

var escaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&apos;",
)

// Escape replaces the five XML metacharacters in text and attribute
// positions, ampersand first so already-replaced entities are not escaped
// again.
func Escape(s string) string {
	return escaper.Replace(s)
}

// Serialize renders the given root elements into a document string. It is a
// pure function of its input: the same tree always yields the same bytes.
func Serialize(roots []*Element, opts Options) string {
	var sb strings.Builder
	if opts.Declaration {
		sb.WriteString(Header)
		sb.WriteString("\n")
	}
	for _, root := range roots {
		writeElement(&sb, root, opts.Indent, 0)
	}
	return sb.String()
}

func writeElement(sb *strings.Builder, e *Element, indent string, depth int) {
	pad := strings.Repeat(indent, depth)

	var open strings.Builder
	open.WriteString("<")
	open.WriteString(e.name)
	for _, attr := range e.attrs {
		open.WriteString(" ")
		open.WriteString(attr.Name)
		open.WriteString(`="`)
		open.WriteString(Escape(attr.Value))
		open.WriteString(`"`)
	}

	switch e.kind {
	case contentNil:
		sb.WriteString(pad + open.String() + "/>\n")
	case contentCDATA:
		sb.WriteString(pad + open.String() + "><![CDATA[" + e.content + "]]></" + e.name + ">\n")
	case contentText:
		sb.WriteString(pad + open.String() + ">" + Escape(e.content) + "</" + e.name + ">\n")
	case contentEmpty:
		// An attributes-only element keeps the open and close pair, it is
		// never collapsed to a self-closing tag.
		sb.WriteString(pad + open.String() + ">\n" + pad + "</" + e.name + ">\n")
	case contentChildren:
		var inner strings.Builder
		for _, child := range e.children {
			writeElement(&inner, child, indent, depth+1)
		}

		body := strings.TrimSuffix(inner.String(), "\n")
		compact := strings.TrimLeft(body, " \t")
		if !strings.Contains(body, "\n") && len(compact) < compactThreshold {
			sb.WriteString(pad + open.String() + ">" + compact + "</" + e.name + ">\n")
			return
		}

		sb.WriteString(pad + open.String() + ">\n")
		sb.WriteString(inner.String())
		sb.WriteString(pad + "</" + e.name + ">\n")
	}
}
