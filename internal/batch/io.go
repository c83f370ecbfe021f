package batch

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/okian/epocher/internal/domain/model"
	"github.com/okian/epocher/internal/domain/types"
)

const (
	directoryPermission = 0750
	filePermission      = 0600
)

// readRecording loads a recording file. A missing name defaults to the file
// name without extension.
func readRecording(path string) (*model.Recording, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadInput, err)
	}
	var rec model.Recording
	if err := json.Unmarshal(b, &rec); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrBadInput, path, err)
	}
	if rec.SampleRate <= 0 {
		return nil, fmt.Errorf("%w: %s: sfreq must be positive", ErrBadInput, path)
	}
	if rec.Name == "" {
		rec.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return &rec, nil
}

// output is the document written per recording.
type output struct {
	RunID string `json:"run_id"`
	types.ReportExport
}

func writeResult(dir, runID string, report types.JobReport) (string, error) {
	if err := os.MkdirAll(dir, directoryPermission); err != nil {
		return "", fmt.Errorf("%w: %w", ErrWriteResult, err)
	}
	b, err := json.MarshalIndent(output{RunID: runID, ReportExport: report.Export()}, "", "  ")
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrWriteResult, err)
	}
	path := filepath.Join(dir, report.Recording+".json")
	if err := os.WriteFile(path, b, filePermission); err != nil {
		return "", fmt.Errorf("%w: %w", ErrWriteResult, err)
	}
	return path, nil
}
