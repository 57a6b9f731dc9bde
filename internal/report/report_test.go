package report

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/markcheck/internal/check"
	"git.home.luguber.info/inful/markcheck/internal/markdown"
)

func sampleResults() map[string][]check.Result {
	return map[string][]check.Result{
		"b.md": {
			{Reference: markdown.Reference{Kind: markdown.KindLink, Target: "x.md", Line: 1, File: "b.md"}, Valid: true, Local: true},
		},
		"a.md": {
			{Reference: markdown.Reference{Kind: markdown.KindLink, Target: "http://old", Line: 2, File: "a.md"}, Valid: true, Updated: true, RedirectTarget: "http://new", StatusCode: 200},
			{Reference: markdown.Reference{Kind: markdown.KindImage, Target: "gone.png", Line: 3, File: "a.md"}, Valid: false, Local: true, Err: "local file not found: gone.png"},
		},
	}
}

func TestNew_SummaryAndOrdering(t *testing.T) {
	r := New("docs", sampleResults())

	require.NotEmpty(t, r.RunID)
	assert.Equal(t, "docs", r.Target)
	require.Len(t, r.Files, 2)
	assert.Equal(t, "a.md", r.Files[0].File)
	assert.Equal(t, "b.md", r.Files[1].File)

	assert.Equal(t, Summary{Files: 2, References: 3, Valid: 2, Invalid: 1, Updated: 1}, r.Summary)
}

func TestWrite_RoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.json")
	require.NoError(t, New("docs", sampleResults()).Write(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var decoded Report
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, 3, decoded.Summary.References)
	require.Len(t, decoded.Files, 2)
	assert.Equal(t, "x.md", decoded.Files[1].Results[0].Reference.Target)
}
