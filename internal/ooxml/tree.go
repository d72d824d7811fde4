package ooxml

import (
	"encoding/xml"
	"fmt"
)

// Node is a generic XML element that keeps its children in document order.
type Node struct {
	XMLName xml.Name
	Attrs   []xml.Attr `xml:",any,attr"`
	Content string     `xml:",chardata"`
	Nodes   []Node     `xml:",any"`
}

// ParseTree decodes an XML part into a Node tree.
func ParseTree(data []byte) (*Node, error) {
	var root Node
	if err := xml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("parse XML: %w", err)
	}
	return &root, nil
}

// Is reports whether n has the given local name.
func (n *Node) Is(local string) bool {
	return n.XMLName.Local == local
}

// Attr returns the value of the first attribute with the given local name.
func (n *Node) Attr(local string) string {
	for _, a := range n.Attrs {
		if a.Name.Local == local {
			return a.Value
		}
	}
	return ""
}

// AttrNS returns the value of the attribute with the given namespace and
// local name.
func (n *Node) AttrNS(space, local string) string {
	for _, a := range n.Attrs {
		if a.Name.Space == space && a.Name.Local == local {
			return a.Value
		}
	}
	return ""
}

// Child returns the first direct child with the given local name.
func (n *Node) Child(local string) *Node {
	for i := range n.Nodes {
		if n.Nodes[i].Is(local) {
			return &n.Nodes[i]
		}
	}
	return nil
}

// Find returns the first descendant with the given local name, depth first.
func (n *Node) Find(local string) *Node {
	for i := range n.Nodes {
		c := &n.Nodes[i]
		if c.Is(local) {
			return c
		}
		if d := c.Find(local); d != nil {
			return d
		}
	}
	return nil
}

// FindAll returns every descendant with the given local name in document order.
func (n *Node) FindAll(local string) []*Node {
	var out []*Node
	for i := range n.Nodes {
		c := &n.Nodes[i]
		if c.Is(local) {
			out = append(out, c)
			continue
		}
		out = append(out, c.FindAll(local)...)
	}
	return out
}

// ChildVal returns the val attribute of the named child, as used by
// WordprocessingML property elements.
func (n *Node) ChildVal(local string) (string, bool) {
	c := n.Child(local)
	if c == nil {
		return "", false
	}
	return c.Attr("val"), true
}
