package storage

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/RaccoonlabDev/inno-vtol-dynamics/internal/dynamo"
)

func state(pz float64) dynamo.State {
	x := make(dynamo.State, dynamo.StateDim)
	x[dynamo.StatePZ] = pz
	x[dynamo.StateQW] = 1
	return x
}

func sampleResult() *dynamo.Result {
	return &dynamo.Result{
		States:     []dynamo.State{state(0), state(-0.5)},
		Controls:   []dynamo.Control{{0.5, 0.5, 0.5, 0.5}},
		Times:      []float64{0.0, 0.01},
		Metrics:    map[string]float64{"max_altitude": 0.5},
		StepsTaken: 10,
	}
}

func sampleMeta() RunMetadata {
	return RunMetadata{
		Dynamics:   "inno_vtol",
		Vehicle:    "innopolis_vtol",
		Notation:   dynamo.NotationNED,
		Seed:       42,
		Dt:         0.001,
		Duration:   0.01,
		Integrator: "rk4",
		Controller: "hover",
	}
}

func TestStoreSaveLoad(t *testing.T) {
	st := New(t.TempDir())
	if err := st.Init(); err != nil {
		t.Fatalf("init failed: %v", err)
	}

	result := sampleResult()
	result.Errors = []error{dynamo.ErrInvalidState}
	runID, err := st.Save(sampleMeta(), result)
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if !strings.HasPrefix(runID, "inno_vtol-") {
		t.Errorf("expected run id prefixed with the dynamics, got %s", runID)
	}

	meta, err := st.Load(runID)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if meta.Seed != 42 || meta.Notation != dynamo.NotationNED || meta.Steps != 10 {
		t.Errorf("unexpected metadata %+v", meta)
	}
	if meta.Metrics["max_altitude"] != 0.5 {
		t.Errorf("expected max_altitude 0.5, got %f", meta.Metrics["max_altitude"])
	}
	if len(meta.Errors) != 1 {
		t.Errorf("expected 1 recorded error, got %v", meta.Errors)
	}

	states, times, err := st.LoadStates(runID)
	if err != nil {
		t.Fatalf("load states failed: %v", err)
	}
	if len(states) != 2 || len(times) != 2 {
		t.Fatalf("expected 2 states and times, got %d and %d", len(states), len(times))
	}
	if states[1][dynamo.StatePZ] != -0.5 || states[1][dynamo.StateQW] != 1 {
		t.Errorf("unexpected state %v", states[1])
	}
}

func TestStoreList(t *testing.T) {
	st := New(t.TempDir())
	if err := st.Init(); err != nil {
		t.Fatalf("init failed: %v", err)
	}

	runs, err := st.List()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(runs) != 0 {
		t.Errorf("expected 0 runs, got %d", len(runs))
	}

	first, _ := st.Save(sampleMeta(), sampleResult())
	second, _ := st.Save(sampleMeta(), sampleResult())
	if first == second {
		t.Error("expected unique run ids")
	}

	runs, err = st.List()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(runs) != 2 {
		t.Errorf("expected 2 runs, got %d", len(runs))
	}
	if runs[0].Timestamp.Before(runs[1].Timestamp) {
		t.Error("expected newest run first")
	}
}

func TestStoreMissingRun(t *testing.T) {
	st := New(t.TempDir())
	if _, err := st.Load("nope"); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("expected ErrRunNotFound, got %v", err)
	}
	if _, _, err := st.LoadStates("nope"); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("expected ErrRunNotFound, got %v", err)
	}

	runs, err := New(filepath.Join(t.TempDir(), "missing")).List()
	if err != nil || len(runs) != 0 {
		t.Errorf("expected an empty list for a missing dir, got %v, %v", runs, err)
	}
}

func TestStoreFileStructure(t *testing.T) {
	tmpDir := t.TempDir()
	st := New(tmpDir)

	runID, err := st.Save(sampleMeta(), sampleResult())
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}

	for _, name := range []string{metadataFile, statesFile} {
		if _, err := os.Stat(filepath.Join(tmpDir, runID, name)); os.IsNotExist(err) {
			t.Errorf("%s not created", name)
		}
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, sampleResult()); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header and 2 rows, got %d lines", len(lines))
	}
	if !strings.HasPrefix(lines[0], "time,px,py,pz") || !strings.HasSuffix(lines[0], "u3") {
		t.Errorf("unexpected header %q", lines[0])
	}
	if !strings.HasSuffix(lines[1], ",0,0,0,0") {
		t.Errorf("expected zero command on the initial row, got %q", lines[1])
	}
	if !strings.HasSuffix(lines[2], "0.500000,0.500000,0.500000,0.500000") {
		t.Errorf("expected command on the second row, got %q", lines[2])
	}
}

func TestExport(t *testing.T) {
	st := New(t.TempDir())
	runID, err := st.Save(sampleMeta(), sampleResult())
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}

	data, err := st.ExportRun(runID)
	if err != nil {
		t.Fatalf("export failed: %v", err)
	}

	var buf bytes.Buffer
	if err := ExportJSON(&buf, data); err != nil {
		t.Fatalf("encode failed: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if decoded["id"] != runID || decoded["dynamics"] != "inno_vtol" {
		t.Errorf("expected flattened metadata, got %v", decoded)
	}
	if states := decoded["states"].([]any); len(states) != 2 {
		t.Errorf("expected 2 states, got %d", len(states))
	}
	if cols := decoded["columns"].([]any); len(cols) != dynamo.StateDim {
		t.Errorf("expected %d columns, got %d", dynamo.StateDim, len(cols))
	}
}

func TestCopyStates(t *testing.T) {
	st := New(t.TempDir())
	runID, _ := st.Save(sampleMeta(), sampleResult())

	var buf bytes.Buffer
	if err := st.CopyStates(runID, &buf); err != nil {
		t.Fatalf("copy failed: %v", err)
	}
	if !strings.HasPrefix(buf.String(), "time,") {
		t.Errorf("expected csv content, got %q", buf.String())
	}
}
