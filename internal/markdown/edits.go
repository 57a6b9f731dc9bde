package markdown

import (
	"errors"
	"fmt"
	"sort"
)

// Edit is a targeted byte-range replacement. Start and End are offsets into
// the original source, End exclusive; Replacement replaces source[Start:End].
// Edits let callers modify a document in place without re-rendering markdown.
type Edit struct {
	Start       int
	End         int
	Replacement []byte
}

// ApplyEdits applies non-overlapping byte-range edits to source and returns
// the updated content. Offsets always refer to the original source; edits are
// applied back-to-front so earlier ranges stay valid.
func ApplyEdits(source []byte, edits []Edit) ([]byte, error) {
	if len(edits) == 0 {
		return source, nil
	}

	sorted := make([]Edit, len(edits))
	copy(sorted, edits)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Start == sorted[j].Start {
			return sorted[i].End > sorted[j].End
		}
		return sorted[i].Start > sorted[j].Start
	})

	if err := validateEdits(sorted, len(source)); err != nil {
		return nil, err
	}

	out := append([]byte(nil), source...)
	for _, e := range sorted {
		next := make([]byte, 0, len(out)-(e.End-e.Start)+len(e.Replacement))
		next = append(next, out[:e.Start]...)
		next = append(next, e.Replacement...)
		next = append(next, out[e.End:]...)
		out = next
	}

	return out, nil
}

// validateEdits expects edits sorted by Start descending.
func validateEdits(sorted []Edit, sourceLen int) error {
	for i, e := range sorted {
		switch {
		case e.Start < 0 || e.End < 0:
			return fmt.Errorf("invalid edit[%d]: negative range", i)
		case e.End < e.Start:
			return fmt.Errorf("invalid edit[%d]: end before start", i)
		case e.End > sourceLen:
			return fmt.Errorf("invalid edit[%d]: range out of bounds", i)
		}
		// With Start descending, this edit must end at or before the
		// previous edit's start.
		if i > 0 && e.End > sorted[i-1].Start {
			return errors.New("invalid edits: overlapping ranges")
		}
	}
	return nil
}
