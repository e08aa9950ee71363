// Package selection preserves the cursor position across forced
// content replacements.
//
// The editor surface reports selections as character offsets over the
// plain-text projection of its content. Capture records the offset
// together with positional anchors (containing element, surrounding
// text); Restore maps those anchors onto replacement content. The
// result is advisory: callers must treat a restore failure as
// cosmetic and never let it affect content synchronization.
package selection

import (
	"errors"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"
)

// contextWindow is the number of characters captured on each side of
// the caret for positional matching.
const contextWindow = 24

// ErrNoAnchor means none of the captured anchors survived into the
// replacement content.
var ErrNoAnchor = errors.New("selection: no anchor found in replacement content")

// Snapshot records where the cursor was, with enough surrounding
// context to find an equivalent position in different content.
type Snapshot struct {
	// Caret is the cursor offset in the plain-text projection.
	Caret int

	// Prefix and Suffix are the text immediately around the caret.
	Prefix string
	Suffix string

	// ElementPath is an XPath locating the element containing the
	// caret. ElementOffset is the caret position within that
	// element's own text; ElementText is that text, ElementTag the
	// element name.
	ElementPath   string
	ElementOffset int
	ElementTag    string
	ElementText   string
}

// Capture builds a Snapshot for the caret offset within content.
// The offset is clamped into the valid range. Returns an error only
// when the content cannot be parsed.
func Capture(content string, caret int) (*Snapshot, error) {
	proj, err := project(content)
	if err != nil {
		return nil, fmt.Errorf("selection capture: %w", err)
	}

	text := proj.runes
	if caret < 0 {
		caret = 0
	}
	if caret > len(text) {
		caret = len(text)
	}

	snap := &Snapshot{
		Caret:  caret,
		Prefix: string(text[max(0, caret-contextWindow):caret]),
		Suffix: string(text[caret:min(len(text), caret+contextWindow)]),
	}

	if elem := proj.elementAt(caret); elem != nil {
		snap.ElementPath = elementPath(elem)
		snap.ElementTag = elem.Data
		snap.ElementText = proj.elementText(elem)
		snap.ElementOffset = caret - proj.elementStart(elem)
	}
	return snap, nil
}

// Restore maps snap onto content, returning the caret offset for the
// replacement. Anchors are tried strongest first: the captured element
// path, then a unique element with identical text, then the captured
// surrounding text. ErrNoAnchor if nothing survives.
func Restore(snap *Snapshot, content string) (int, error) {
	if snap == nil {
		return 0, errors.New("selection restore: nil snapshot")
	}
	if snap.Caret == 0 {
		// Document start is stable in any content.
		return 0, nil
	}

	proj, err := project(content)
	if err != nil {
		return 0, fmt.Errorf("selection restore: %w", err)
	}

	if offset, ok := proj.resolvePath(snap); ok {
		return offset, nil
	}
	if offset, ok := proj.resolveElementText(snap); ok {
		return offset, nil
	}
	if offset, ok := proj.resolveContext(snap); ok {
		return offset, nil
	}
	return 0, ErrNoAnchor
}

// PlainText returns the plain-text projection of content: the
// concatenated text nodes, in document order, with markup removed.
func PlainText(content string) (string, error) {
	proj, err := project(content)
	if err != nil {
		return "", err
	}
	return string(proj.runes), nil
}

// projection is one parsed content string with its text-node layout.
type projection struct {
	root  *html.Node
	runes []rune
	spans []span
}

// span is one text node's extent in the projection.
type span struct {
	node       *html.Node
	start, end int
}

func project(content string) (*projection, error) {
	root, err := html.Parse(strings.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("parse content: %w", err)
	}

	proj := &projection{root: root}
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			start := len(proj.runes)
			proj.runes = append(proj.runes, []rune(n.Data)...)
			proj.spans = append(proj.spans, span{node: n, start: start, end: len(proj.runes)})
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return proj, nil
}

// elementAt returns the element containing the text at caret, or nil
// when the content has no text there.
func (p *projection) elementAt(caret int) *html.Node {
	for _, s := range p.spans {
		if caret >= s.start && caret <= s.end {
			for n := s.node.Parent; n != nil; n = n.Parent {
				if n.Type == html.ElementNode {
					return n
				}
			}
		}
	}
	return nil
}

// elementStart returns the projection offset of elem's first text.
func (p *projection) elementStart(elem *html.Node) int {
	for _, s := range p.spans {
		if isDescendant(s.node, elem) {
			return s.start
		}
	}
	return 0
}

// elementText returns the concatenated text under elem.
func (p *projection) elementText(elem *html.Node) string {
	var b strings.Builder
	for _, s := range p.spans {
		if isDescendant(s.node, elem) {
			b.WriteString(string(p.runes[s.start:s.end]))
		}
	}
	return b.String()
}

// resolvePath tries the captured XPath against the new content. The
// resolved element must still carry the captured text; a same-shaped
// document with different text falls through to weaker anchors.
func (p *projection) resolvePath(snap *Snapshot) (int, bool) {
	if snap.ElementPath == "" {
		return 0, false
	}
	elem, err := htmlquery.Query(p.root, snap.ElementPath)
	if err != nil || elem == nil {
		return 0, false
	}
	if normalize(p.elementText(elem)) != normalize(snap.ElementText) {
		return 0, false
	}
	return p.offsetWithin(elem, snap.ElementOffset), true
}

// resolveElementText looks for exactly one element of the captured tag
// whose text still matches. Ambiguous matches are skipped rather than
// guessed at.
func (p *projection) resolveElementText(snap *Snapshot) (int, bool) {
	if snap.ElementTag == "" || strings.TrimSpace(snap.ElementText) == "" {
		return 0, false
	}

	want := normalize(snap.ElementText)
	var match *html.Node
	doc := goquery.NewDocumentFromNode(p.root)
	for _, node := range doc.Find(snap.ElementTag).Nodes {
		if normalize(p.elementText(node)) != want {
			continue
		}
		if match != nil {
			return 0, false
		}
		match = node
	}
	if match == nil {
		return 0, false
	}
	return p.offsetWithin(match, snap.ElementOffset), true
}

// resolveContext searches the new plain text for the captured
// surrounding text, preferring the occurrence nearest the original
// caret. Tries prefix+suffix, then prefix alone, then suffix alone.
func (p *projection) resolveContext(snap *Snapshot) (int, bool) {
	prefix := []rune(snap.Prefix)
	suffix := []rune(snap.Suffix)

	if len(prefix) > 0 && len(suffix) > 0 {
		if offset, ok := nearestMatch(p.runes, append(append([]rune{}, prefix...), suffix...), len(prefix), snap.Caret); ok {
			return offset, true
		}
	}
	if len(prefix) > 0 {
		if offset, ok := nearestMatch(p.runes, prefix, len(prefix), snap.Caret); ok {
			return offset, true
		}
	}
	if len(suffix) > 0 {
		if offset, ok := nearestMatch(p.runes, suffix, 0, snap.Caret); ok {
			return offset, true
		}
	}
	return 0, false
}

// offsetWithin places the caret at elementOffset inside elem, clamped
// to the element's text extent.
func (p *projection) offsetWithin(elem *html.Node, elementOffset int) int {
	start := p.elementStart(elem)
	length := len([]rune(p.elementText(elem)))
	if elementOffset < 0 {
		elementOffset = 0
	}
	if elementOffset > length {
		elementOffset = length
	}
	offset := start + elementOffset
	if offset > len(p.runes) {
		offset = len(p.runes)
	}
	return offset
}

// nearestMatch finds the occurrence of needle in text whose caret
// position (match index + caretInNeedle) lies closest to origin.
func nearestMatch(text, needle []rune, caretInNeedle, origin int) (int, bool) {
	best, found := 0, false
	for i := 0; i+len(needle) <= len(text); i++ {
		if !runesEqual(text[i:i+len(needle)], needle) {
			continue
		}
		candidate := i + caretInNeedle
		if !found || abs(candidate-origin) < abs(best-origin) {
			best, found = candidate, true
		}
	}
	return best, found
}

// elementPath builds an XPath with positional predicates, e.g.
// /html[1]/body[1]/p[2].
func elementPath(elem *html.Node) string {
	var parts []string
	for n := elem; n != nil && n.Type == html.ElementNode; n = n.Parent {
		index := 1
		for sib := n.PrevSibling; sib != nil; sib = sib.PrevSibling {
			if sib.Type == html.ElementNode && sib.Data == n.Data {
				index++
			}
		}
		parts = append(parts, fmt.Sprintf("%s[%d]", n.Data, index))
	}
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return "/" + strings.Join(parts, "/")
}

func isDescendant(n, ancestor *html.Node) bool {
	for cur := n; cur != nil; cur = cur.Parent {
		if cur == ancestor {
			return true
		}
	}
	return false
}

func normalize(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func runesEqual(a, b []rune) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
