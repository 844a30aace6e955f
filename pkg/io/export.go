package io

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/matzehuels/modfetch/pkg/core/acquire"
	"github.com/matzehuels/modfetch/pkg/core/ledger"
	"github.com/matzehuels/modfetch/pkg/pipeline"
)

// Report is the serialized form of a [pipeline.Result].
type Report struct {
	RunID     string            `json:"run_id"`
	Workflow  string            `json:"workflow"`
	Seed      string            `json:"seed"`
	Target    Target            `json:"target"`
	Selection *Selection        `json:"selection,omitempty"`
	Resolved  []Resolved        `json:"resolved"`
	Outcomes  []acquire.Outcome `json:"outcomes"`
	Missed    []ledger.Item     `json:"missed"`
	Duration  int64             `json:"duration_ms"`
}

// Target is the run target.
type Target struct {
	Version string `json:"version"`
	Loader  string `json:"loader"`
}

// Selection describes an automatic game version pick.
type Selection struct {
	Version  string `json:"version"`
	Support  int    `json:"support"`
	Projects int    `json:"projects"`
}

// Resolved is one project with its chosen artifact.
type Resolved struct {
	Key  string `json:"key"`
	Name string `json:"name"`
	File string `json:"file"`
	URL  string `json:"url"`
	Size int64  `json:"size"`
}

// NewReport converts a run result.
func NewReport(res *pipeline.Result) Report {
	out := Report{
		RunID:    res.RunID,
		Workflow: res.Workflow,
		Seed:     res.Seed,
		Target:   Target{Version: res.Target.Version, Loader: string(res.Target.Loader)},
		Resolved: make([]Resolved, len(res.Resolved)),
		Outcomes: res.Outcomes,
		Missed:   res.Missed,
		Duration: res.Duration.Milliseconds(),
	}
	if res.Selection != nil {
		out.Selection = &Selection{
			Version:  res.Selection.Version,
			Support:  res.Selection.Support,
			Projects: res.Selection.Projects,
		}
	}
	for i, r := range res.Resolved {
		out.Resolved[i] = Resolved{
			Key:  r.Project.Key(),
			Name: r.Project.Label(),
			File: r.Artifact.FileName,
			URL:  r.Artifact.URL,
			Size: r.Artifact.Size,
		}
	}
	if out.Outcomes == nil {
		out.Outcomes = []acquire.Outcome{}
	}
	if out.Missed == nil {
		out.Missed = []ledger.Item{}
	}
	return out
}

// WriteJSON encodes a run result as an indented JSON report.
func WriteJSON(res *pipeline.Result, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(NewReport(res)); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

// ExportJSON writes a run report to a JSON file at path.
func ExportJSON(res *pipeline.Result, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := WriteJSON(res, f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
