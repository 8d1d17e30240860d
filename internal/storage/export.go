package storage

import (
	"encoding/json"
	"io"
	"os"

	"github.com/san-kum/dogleg/internal/batch"
)

type ExportData struct {
	Run      RunMetadata     `json:"run"`
	Outcomes []batch.Outcome `json:"outcomes"`
}

// ExportJSON writes a stored run as a single JSON document to w.
func (s *Store) ExportJSON(w io.Writer, runID string) error {
	meta, err := s.Load(runID)
	if err != nil {
		return err
	}
	outcomes, err := s.LoadOutcomes(runID)
	if err != nil {
		return err
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(ExportData{Run: *meta, Outcomes: outcomes})
}

// ExportJSONFile writes a stored run to path.
func (s *Store) ExportJSONFile(path, runID string) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	return s.ExportJSON(file, runID)
}
