package markdown

// RefKind distinguishes link references from image references.
type RefKind string

const (
	KindLink  RefKind = "link"
	KindImage RefKind = "image"
)

// Reference is a single link or image occurrence extracted from a document.
type Reference struct {
	Kind   RefKind `json:"kind"`
	Text   string  `json:"text"`   // link text or image alt text
	Target string  `json:"target"` // raw destination, never empty
	Line   int     `json:"line"`   // 1-based line number in the source document
	File   string  `json:"file"`   // owning document path
}
