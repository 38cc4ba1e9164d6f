package storage

import (
	"encoding/json"
	"io"
	"os"

	"github.com/RaccoonlabDev/inno-vtol-dynamics/internal/dynamo"
)

type ExportData struct {
	RunMetadata
	Columns  []string    `json:"columns"`
	Times    []float64   `json:"times"`
	States   [][]float64 `json:"states"`
	Controls [][]float64 `json:"controls"`
}

func NewExport(meta RunMetadata, result *dynamo.Result) ExportData {
	data := ExportData{
		RunMetadata: meta,
		Columns:     dynamo.StateNames(),
		Times:       result.Times,
		States:      make([][]float64, len(result.States)),
		Controls:    make([][]float64, len(result.Controls)),
	}
	data.Steps = result.StepsTaken
	data.Metrics = result.Metrics

	for i, s := range result.States {
		data.States[i] = s
	}
	for i, c := range result.Controls {
		data.Controls[i] = c
	}
	return data
}

func ExportJSON(w io.Writer, data ExportData) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

// ExportJSONFile writes data to path, or to stdout when path is "-".
func ExportJSONFile(path string, data ExportData) error {
	if path == "-" {
		return ExportJSON(os.Stdout, data)
	}
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	return ExportJSON(file, data)
}

// ExportRun rebuilds the export of a stored run from its files. Commands
// are not kept in that form and stay empty.
func (s *Store) ExportRun(runID string) (ExportData, error) {
	meta, err := s.Load(runID)
	if err != nil {
		return ExportData{}, err
	}
	states, times, err := s.LoadStates(runID)
	if err != nil {
		return ExportData{}, err
	}
	return NewExport(*meta, &dynamo.Result{
		States:     states,
		Times:      times,
		Metrics:    meta.Metrics,
		StepsTaken: meta.Steps,
	}), nil
}
