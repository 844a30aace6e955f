package io

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/modfetch/pkg/core/acquire"
	"github.com/matzehuels/modfetch/pkg/core/bestversion"
	"github.com/matzehuels/modfetch/pkg/core/ledger"
	"github.com/matzehuels/modfetch/pkg/core/project"
	"github.com/matzehuels/modfetch/pkg/errors"
	"github.com/matzehuels/modfetch/pkg/pipeline"
)

func sampleResult() *pipeline.Result {
	create := &project.Project{Source: project.CurseForge, ID: "328085", Name: "Create"}
	return &pipeline.Result{
		RunID:     "run-1",
		Workflow:  pipeline.WorkflowDependencies,
		Seed:      "https://www.curseforge.com/minecraft/mc-mods/create",
		Target:    project.Target{Version: "1.20.1", Loader: project.Forge},
		Selection: &bestversion.Selection{Version: "1.20.1", Support: 2, Projects: 3},
		Resolved: []project.Resolved{{
			Project:  create,
			Artifact: project.Artifact{FileName: "create.jar", URL: "https://cdn/create.jar", Size: 42},
		}},
		Outcomes: []acquire.Outcome{{Project: "Create", FileName: "create.jar", Status: acquire.Fetched, Bytes: 42}},
		Missed:   []ledger.Item{{Name: "Flywheel", Origin: "curseforge:486392", Reason: "no compatible CurseForge file", Kind: errors.ErrCodeNoCompatibleArtifact}},
		Duration: 1500 * time.Millisecond,
	}
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(sampleResult(), &buf))

	out := buf.String()
	assert.Contains(t, out, `"run_id": "run-1"`)
	assert.Contains(t, out, `"key": "curseforge:328085"`)
	assert.Contains(t, out, `"kind": "NO_COMPATIBLE_ARTIFACT"`)
	assert.Contains(t, out, `"duration_ms": 1500`)
	assert.Contains(t, out, `"support": 2`)
}

func TestWriteJSONEmptyMissed(t *testing.T) {
	res := &pipeline.Result{RunID: "run-2", Target: project.Target{Version: "1.20.1", Loader: project.Fabric}}

	var buf bytes.Buffer
	require.NoError(t, WriteJSON(res, &buf))
	assert.Contains(t, buf.String(), `"missed": []`)
	assert.NotContains(t, buf.String(), `"selection"`)
}

func TestExportImport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.json")
	require.NoError(t, ExportJSON(sampleResult(), path))

	rep, err := ImportJSON(path)
	require.NoError(t, err)
	assert.Equal(t, "run-1", rep.RunID)
	assert.Equal(t, Target{Version: "1.20.1", Loader: "forge"}, rep.Target)
	require.Len(t, rep.Missed, 1)
	assert.Equal(t, errors.ErrCodeNoCompatibleArtifact, rep.Missed[0].Kind)
	require.Len(t, rep.Resolved, 1)
	assert.EqualValues(t, 42, rep.Resolved[0].Size)
}

func TestReadJSONInvalid(t *testing.T) {
	_, err := ReadJSON(strings.NewReader(`{`))
	assert.Error(t, err)

	_, err = ReadJSON(strings.NewReader(`{"workflow": "deps"}`))
	assert.ErrorContains(t, err, "run_id")
}

func TestImportJSONMissingFile(t *testing.T) {
	_, err := ImportJSON(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}
