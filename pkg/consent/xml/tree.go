package xml

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
)

// Tree is a parsed XML part: the root element plus whatever surrounds it
// (the XML declaration, comments, whitespace).
type Tree struct {
	Prolog []Node
	Root   *Element
	Epilog []Node
}

// Parse reads a complete XML part. Namespace prefixes are kept as written so the
// tree can be serialised back without renaming anything.
func Parse(r io.Reader) (*Tree, error) {
	decoder := xml.NewDecoder(r)
	tree := &Tree{}
	var stack []*Element

	add := func(n Node) {
		switch {
		case len(stack) > 0:
			stack[len(stack)-1].AppendChild(n)
		case tree.Root == nil:
			tree.Prolog = append(tree.Prolog, n)
		default:
			tree.Epilog = append(tree.Epilog, n)
		}
	}

	for {
		token, err := decoder.RawToken()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse xml: %w", err)
		}

		switch t := token.(type) {
		case xml.StartElement:
			el := &Element{Name: t.Name}
			if len(t.Attr) > 0 {
				el.Attr = make([]xml.Attr, len(t.Attr))
				copy(el.Attr, t.Attr)
			}
			if len(stack) == 0 {
				if tree.Root != nil {
					return nil, fmt.Errorf("failed to parse xml: second root element <%s>", qualifiedName(t.Name))
				}
				tree.Root = el
			} else {
				stack[len(stack)-1].AppendChild(el)
			}
			stack = append(stack, el)
		case xml.EndElement:
			// RawToken does not check nesting, so it is done here
			if len(stack) == 0 {
				return nil, fmt.Errorf("failed to parse xml: unexpected </%s>", qualifiedName(t.Name))
			}
			top := stack[len(stack)-1]
			if top.Name != t.Name {
				return nil, fmt.Errorf("failed to parse xml: <%s> closed by </%s>", qualifiedName(top.Name), qualifiedName(t.Name))
			}
			stack = stack[:len(stack)-1]
		case xml.CharData:
			add(CharData(t.Copy()))
		case xml.Comment:
			add(Comment(t.Copy()))
		case xml.ProcInst:
			add(ProcInst{Target: t.Target, Inst: append([]byte(nil), t.Inst...)})
		case xml.Directive:
			add(Directive(t.Copy()))
		}
	}

	if len(stack) > 0 {
		return nil, fmt.Errorf("failed to parse xml: unclosed <%s>", qualifiedName(stack[len(stack)-1].Name))
	}
	if tree.Root == nil {
		return nil, errors.New("failed to parse xml: no root element")
	}
	return tree, nil
}

// Bytes serialises the tree
func (t *Tree) Bytes() []byte {
	var buf bytes.Buffer
	for _, n := range t.Prolog {
		writeNode(&buf, n)
	}
	if t.Root != nil {
		writeNode(&buf, t.Root)
	}
	for _, n := range t.Epilog {
		writeNode(&buf, n)
	}
	return buf.Bytes()
}

// WriteTo implements io.WriterTo
func (t *Tree) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(t.Bytes())
	return int64(n), err
}

// Marshal serialises a single element and its subtree
func Marshal(e *Element) []byte {
	var buf bytes.Buffer
	writeNode(&buf, e)
	return buf.Bytes()
}

func writeNode(buf *bytes.Buffer, n Node) {
	switch v := n.(type) {
	case *Element:
		buf.WriteByte('<')
		buf.WriteString(qualifiedName(v.Name))
		for _, a := range v.Attr {
			buf.WriteByte(' ')
			buf.WriteString(qualifiedName(a.Name))
			buf.WriteString(`="`)
			escapeAttr(buf, a.Value)
			buf.WriteByte('"')
		}
		if len(v.Children) == 0 {
			buf.WriteString("/>")
			return
		}
		buf.WriteByte('>')
		for _, child := range v.Children {
			writeNode(buf, child)
		}
		buf.WriteString("</")
		buf.WriteString(qualifiedName(v.Name))
		buf.WriteByte('>')
	case CharData:
		escapeText(buf, v)
	case Comment:
		buf.WriteString("<!--")
		buf.Write(v)
		buf.WriteString("-->")
	case ProcInst:
		buf.WriteString("<?")
		buf.WriteString(v.Target)
		// the decoder keeps the separating space as part of Inst
		if len(v.Inst) > 0 && !isSpace(v.Inst[0]) {
			buf.WriteByte(' ')
		}
		buf.Write(v.Inst)
		buf.WriteString("?>")
	case Directive:
		buf.WriteString("<!")
		buf.Write(v)
		buf.WriteByte('>')
	}
}

func qualifiedName(name xml.Name) string {
	if name.Space == "" {
		return name.Local
	}
	return name.Space + ":" + name.Local
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

func escapeText(buf *bytes.Buffer, s []byte) {
	for _, c := range s {
		switch c {
		case '&':
			buf.WriteString("&amp;")
		case '<':
			buf.WriteString("&lt;")
		case '>':
			buf.WriteString("&gt;")
		case '\r':
			buf.WriteString("&#xD;")
		default:
			buf.WriteByte(c)
		}
	}
}

func escapeAttr(buf *bytes.Buffer, s string) {
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '&':
			buf.WriteString("&amp;")
		case '<':
			buf.WriteString("&lt;")
		case '"':
			buf.WriteString("&quot;")
		case '\t':
			buf.WriteString("&#x9;")
		case '\n':
			buf.WriteString("&#xA;")
		case '\r':
			buf.WriteString("&#xD;")
		default:
			buf.WriteByte(c)
		}
	}
}
