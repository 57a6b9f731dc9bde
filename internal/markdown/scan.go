package markdown

import (
	"bytes"
	"sort"
	"strings"

	"github.com/yuin/goldmark"
	gmast "github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// Scan extracts every link and image reference from a markdown document.
//
// References are returned in line order. Three passes contribute:
//   - a Goldmark AST walk over Link and Image nodes (CommonMark-valid constructs),
//   - a permissive line pass recovering destinations Goldmark rejects
//     (destinations containing whitespace),
//   - an HTML pass over inline <a href> and <img src> tags.
//
// Malformed markdown never fails; unparseable constructs simply yield no
// references. Empty targets are never emitted.
//
// Every construct yields its own reference: two links to the same target are
// two references, even on the same line. Only the recovery passes are
// suppressed when the AST pass already covered a construct.
func Scan(source []byte, file string) []Reference {
	refs := scanAST(source, file)

	covered := make(map[refKey]struct{}, len(refs))
	for _, r := range refs {
		covered[r.key()] = struct{}{}
	}
	for _, r := range append(scanPermissive(source, file), scanHTML(source, file)...) {
		if _, dup := covered[r.key()]; dup {
			continue
		}
		refs = append(refs, r)
	}

	sort.SliceStable(refs, func(i, j int) bool {
		return refs[i].Line < refs[j].Line
	})
	return refs
}

func scanAST(source []byte, file string) []Reference {
	md := goldmark.New()
	root := md.Parser().Parse(text.NewReader(source))

	idx := newLineIndex(source)
	refs := make([]Reference, 0)
	cursor := 0

	_ = gmast.Walk(root, func(n gmast.Node, entering bool) (gmast.WalkStatus, error) {
		if !entering {
			return gmast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *gmast.Image:
			if ref, ok := astReference(KindImage, node.Destination, n, source, idx, &cursor, file); ok {
				refs = append(refs, ref)
			}
			// Alt text may itself contain link syntax; it renders as plain text,
			// so nothing inside it is a checkable reference.
			return gmast.WalkSkipChildren, nil
		case *gmast.Link:
			if ref, ok := astReference(KindLink, node.Destination, n, source, idx, &cursor, file); ok {
				refs = append(refs, ref)
			}
		}
		return gmast.WalkContinue, nil
	})

	return refs
}

func astReference(kind RefKind, destination []byte, n gmast.Node, source []byte, idx lineIndex, cursor *int, file string) (Reference, bool) {
	target := string(destination)
	if target == "" {
		return Reference{}, false
	}

	off := firstSegmentStart(n)
	if off < 0 {
		// No literal text children (e.g. "[](x)" shapes). Locate the destination
		// after the previous reference so duplicated targets keep document order.
		if i := bytes.Index(source[*cursor:], destination); i >= 0 {
			off = *cursor + i
		} else {
			off = *cursor
		}
	}
	if off > *cursor {
		*cursor = off
	}

	return Reference{
		Kind:   kind,
		Text:   textOf(n, source),
		Target: target,
		Line:   idx.lineAt(off),
		File:   file,
	}, true
}

// firstSegmentStart returns the byte offset of the first literal text segment
// beneath n, or -1 when the node has no literal content.
func firstSegmentStart(n gmast.Node) int {
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if t, ok := c.(*gmast.Text); ok {
			return t.Segment.Start
		}
		if off := firstSegmentStart(c); off >= 0 {
			return off
		}
	}
	return -1
}

// textOf renders the literal text content of an inline node.
func textOf(n gmast.Node, source []byte) string {
	var b strings.Builder
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch t := c.(type) {
		case *gmast.Text:
			b.Write(t.Segment.Value(source))
		case *gmast.String:
			b.Write(t.Value)
		default:
			b.WriteString(textOf(c, source))
		}
	}
	return b.String()
}

type refKey struct {
	line   int
	kind   RefKind
	target string
}

func (r Reference) key() refKey {
	return refKey{line: r.Line, kind: r.Kind, target: r.Target}
}

// lineIndex maps byte offsets to 1-based line numbers.
type lineIndex []int

func newLineIndex(source []byte) lineIndex {
	idx := lineIndex{0}
	for i, b := range source {
		if b == '\n' {
			idx = append(idx, i+1)
		}
	}
	return idx
}

func (li lineIndex) lineAt(offset int) int {
	return sort.Search(len(li), func(i int) bool { return li[i] > offset })
}
