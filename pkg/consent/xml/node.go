package xml

import (
	"encoding/xml"
	"errors"
)

// Namespace URIs used by WordprocessingML parts
const (
	NamespaceMain = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"
	NamespaceXML  = "http://www.w3.org/XML/1998/namespace"
)

// ErrDetached is returned when an element is removed from a parent it no longer belongs to.
var ErrDetached = errors.New("element is not attached to a parent")

// Node represents any node of a part's XML tree
type Node interface {
	isNode()
}

// Element is an XML element with its attributes and ordered children.
// Name.Space holds the prefix as written in the source, never a namespace URI.
type Element struct {
	Name     xml.Name
	Attr     []xml.Attr
	Children []Node
	parent   *Element
}

// CharData is character data, stored unescaped
type CharData []byte

// Comment is an XML comment without the <!-- --> delimiters
type Comment []byte

// ProcInst is a processing instruction such as the XML declaration
type ProcInst struct {
	Target string
	Inst   []byte
}

// Directive is a <!...> directive
type Directive []byte

func (*Element) isNode()  {}
func (CharData) isNode()  {}
func (Comment) isNode()   {}
func (ProcInst) isNode()  {}
func (Directive) isNode() {}

// NewElement creates a detached element named prefix:local
func NewElement(prefix, local string, attrs ...xml.Attr) *Element {
	return &Element{Name: xml.Name{Space: prefix, Local: local}, Attr: attrs}
}

// Parent returns the element's parent, or nil for a root or detached element
func (e *Element) Parent() *Element {
	return e.parent
}

// Is reports whether the element is named prefix:local
func (e *Element) Is(prefix, local string) bool {
	return e != nil && e.Name.Space == prefix && e.Name.Local == local
}

// Elements returns the child elements in document order
func (e *Element) Elements() []*Element {
	var out []*Element
	for _, child := range e.Children {
		if el, ok := child.(*Element); ok {
			out = append(out, el)
		}
	}
	return out
}

// Child returns the first child element named prefix:local, or nil
func (e *Element) Child(prefix, local string) *Element {
	for _, child := range e.Children {
		if el, ok := child.(*Element); ok && el.Is(prefix, local) {
			return el
		}
	}
	return nil
}

// IndexOf returns the position of child among the element's children, or -1
func (e *Element) IndexOf(child *Element) int {
	for i, n := range e.Children {
		if el, ok := n.(*Element); ok && el == child {
			return i
		}
	}
	return -1
}

// AppendChild adds n as the last child
func (e *Element) AppendChild(n Node) {
	if el, ok := n.(*Element); ok {
		el.parent = e
	}
	e.Children = append(e.Children, n)
}

// InsertChild inserts n at position i (clamped to the valid range)
func (e *Element) InsertChild(i int, n Node) {
	if i < 0 {
		i = 0
	}
	if i > len(e.Children) {
		i = len(e.Children)
	}
	if el, ok := n.(*Element); ok {
		el.parent = e
	}
	e.Children = append(e.Children, nil)
	copy(e.Children[i+1:], e.Children[i:])
	e.Children[i] = n
}

// RemoveChild removes child from the element. After a successful call the child is
// no longer reachable from e and its parent is nil.
func (e *Element) RemoveChild(child *Element) error {
	if child == nil {
		return ErrDetached
	}
	for i, n := range e.Children {
		if el, ok := n.(*Element); ok && el == child {
			e.Children = append(e.Children[:i], e.Children[i+1:]...)
			child.parent = nil
			return nil
		}
	}
	return ErrDetached
}

// Detach removes the element from its parent
func (e *Element) Detach() error {
	if e.parent == nil {
		return ErrDetached
	}
	return e.parent.RemoveChild(e)
}

// AttrValue returns the value of the attribute prefix:local
func (e *Element) AttrValue(prefix, local string) (string, bool) {
	for _, a := range e.Attr {
		if a.Name.Space == prefix && a.Name.Local == local {
			return a.Value, true
		}
	}
	return "", false
}

// SetAttr sets prefix:local to value, keeping the attribute's position if it exists
func (e *Element) SetAttr(prefix, local, value string) {
	for i, a := range e.Attr {
		if a.Name.Space == prefix && a.Name.Local == local {
			e.Attr[i].Value = value
			return
		}
	}
	e.Attr = append(e.Attr, xml.Attr{Name: xml.Name{Space: prefix, Local: local}, Value: value})
}

// RemoveAttr deletes the attribute prefix:local if present
func (e *Element) RemoveAttr(prefix, local string) {
	for i, a := range e.Attr {
		if a.Name.Space == prefix && a.Name.Local == local {
			e.Attr = append(e.Attr[:i], e.Attr[i+1:]...)
			return
		}
	}
}

// Clone returns a detached deep copy of the element
func (e *Element) Clone() *Element {
	c := &Element{Name: e.Name}
	if len(e.Attr) > 0 {
		c.Attr = make([]xml.Attr, len(e.Attr))
		copy(c.Attr, e.Attr)
	}
	for _, n := range e.Children {
		switch v := n.(type) {
		case *Element:
			c.AppendChild(v.Clone())
		case CharData:
			c.Children = append(c.Children, append(CharData(nil), v...))
		case Comment:
			c.Children = append(c.Children, append(Comment(nil), v...))
		case Directive:
			c.Children = append(c.Children, append(Directive(nil), v...))
		case ProcInst:
			c.Children = append(c.Children, ProcInst{Target: v.Target, Inst: append([]byte(nil), v.Inst...)})
		}
	}
	return c
}

// Text concatenates all character data below the element
func (e *Element) Text() string {
	var buf []byte
	for _, n := range e.Children {
		switch v := n.(type) {
		case CharData:
			buf = append(buf, v...)
		case *Element:
			buf = append(buf, v.Text()...)
		}
	}
	return string(buf)
}
