package track

import (
	"bytes"
	"encoding/xml"
	"errors"
	"io"
	"strconv"
	"strings"

	"golang.org/x/net/html/charset"
)

// Element is a namespace-agnostic XML element tree. Lookups compare local
// names case-insensitively so vendor prefixes (gpxtpx:, ns3:, ...) never matter.
type Element struct {
	Name     xml.Name
	Attr     []xml.Attr
	Children []*Element
	text     []byte
}

// Aliases is a set of lower-case local element names that denote one sensor.
type Aliases map[string]struct{}

// NewAliases builds an alias set from names in any case.
func NewAliases(names ...string) Aliases {
	out := make(Aliases, len(names))
	for _, n := range names {
		out[strings.ToLower(n)] = struct{}{}
	}
	return out
}

// Has reports whether local matches one of the aliases.
func (a Aliases) Has(local string) bool {
	_, ok := a[strings.ToLower(local)]
	return ok
}

// Sensor tag conventions found in GPX extension blocks.
var (
	HeartRateTags = NewAliases("hr", "heartrate")
	CadenceTags   = NewAliases("cad", "cadence")
	PowerTags     = NewAliases("power", "watts")
	CalorieTags   = NewAliases("calories")
)

// ParseElementTree decodes a whole XML document. Any syntax error, a missing
// root or trailing unclosed elements are reported as errors.
func ParseElementTree(data []byte) (*Element, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.Strict = true
	dec.CharsetReader = charset.NewReaderLabel

	var (
		root  *Element
		stack []*Element
	)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			el := &Element{Name: t.Name, Attr: t.Copy().Attr}
			if len(stack) == 0 {
				if root != nil {
					return nil, errors.New("document has more than one root element")
				}
				root = el
			} else {
				parent := stack[len(stack)-1]
				parent.Children = append(parent.Children, el)
			}
			stack = append(stack, el)
		case xml.EndElement:
			stack = stack[:len(stack)-1]
		case xml.CharData:
			if len(stack) > 0 {
				top := stack[len(stack)-1]
				top.text = append(top.text, t...)
			}
		}
	}
	if root == nil {
		return nil, errors.New("document has no root element")
	}
	if len(stack) != 0 {
		return nil, errors.New("document ends inside an open element")
	}
	return root, nil
}

// Is reports whether the element's local name matches name, ignoring case.
func (e *Element) Is(name string) bool {
	return strings.EqualFold(e.Name.Local, name)
}

// AttrValue returns the value of the unqualified attribute with the given
// local name.
func (e *Element) AttrValue(local string) (string, bool) {
	for _, a := range e.Attr {
		if a.Name.Space == "" && a.Name.Local == local {
			return a.Value, true
		}
	}
	return "", false
}

// TextContent concatenates the character data of the element and all of its
// descendants in document order.
func (e *Element) TextContent() string {
	if len(e.Children) == 0 {
		return string(e.text)
	}
	var b strings.Builder
	e.writeText(&b)
	return b.String()
}

func (e *Element) writeText(b *strings.Builder) {
	b.Write(e.text)
	for _, c := range e.Children {
		c.writeText(b)
	}
}

// Walk visits every descendant of e (not e itself) in document order until fn
// returns false.
func (e *Element) Walk(fn func(*Element) bool) bool {
	for _, c := range e.Children {
		if !fn(c) {
			return false
		}
		if !c.Walk(fn) {
			return false
		}
	}
	return true
}

// Descendants returns all descendants named local.
func (e *Element) Descendants(local string) []*Element {
	var out []*Element
	e.Walk(func(c *Element) bool {
		if c.Is(local) {
			out = append(out, c)
		}
		return true
	})
	return out
}

// Child returns the first direct child named local, or nil.
func (e *Element) Child(local string) *Element {
	for _, c := range e.Children {
		if c.Is(local) {
			return c
		}
	}
	return nil
}

// FindSensorValue scans the descendants of el for the first element whose
// local name is one of aliases and whose text is a finite number.
func FindSensorValue(el *Element, aliases Aliases) (float64, bool) {
	if el == nil {
		return 0, false
	}
	var (
		value float64
		found bool
	)
	el.Walk(func(c *Element) bool {
		if !aliases.Has(c.Name.Local) {
			return true
		}
		if v, ok := parseNumber(c.TextContent()); ok {
			value, found = v, true
			return false
		}
		return true
	})
	return value, found
}

func parseNumber(s string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || !isFinite(v) {
		return 0, false
	}
	return v, true
}
