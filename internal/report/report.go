// Package report renders a check run as a JSON document for downstream
// tooling.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/markcheck/internal/check"
)

// Summary aggregates verdict counts across a run.
type Summary struct {
	Files      int `json:"files"`
	References int `json:"references"`
	Valid      int `json:"valid"`
	Invalid    int `json:"invalid"`
	Updated    int `json:"updated"`
}

// FileResult pairs a document with its reference verdicts, in scan order.
type FileResult struct {
	File    string         `json:"file"`
	Results []check.Result `json:"references"`
}

// Report is one complete check run.
type Report struct {
	RunID       string       `json:"run_id"`
	GeneratedAt time.Time    `json:"generated_at"`
	Target      string       `json:"target"`
	Files       []FileResult `json:"files"`
	Summary     Summary      `json:"summary"`
}

// New builds a report from the engine's result map. Files are sorted by path
// so output is deterministic.
func New(target string, results map[string][]check.Result) *Report {
	files := make([]FileResult, 0, len(results))
	for file, res := range results {
		files = append(files, FileResult{File: file, Results: res})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].File < files[j].File })

	summary := Summary{Files: len(files)}
	for _, f := range files {
		for _, r := range f.Results {
			summary.References++
			if r.Valid {
				summary.Valid++
			} else {
				summary.Invalid++
			}
			if r.Updated {
				summary.Updated++
			}
		}
	}

	return &Report{
		RunID:       uuid.NewString(),
		GeneratedAt: time.Now().UTC(),
		Target:      target,
		Files:       files,
		Summary:     summary,
	}
}

// Write marshals the report to path as indented JSON.
func (r *Report) Write(path string) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}
