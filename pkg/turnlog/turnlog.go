package turnlog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// TurnRecord captures turn-level metadata.
type TurnRecord struct {
	ID        string    `json:"id"`
	SaveID    string    `json:"save_id"`
	Round     int       `json:"round"`
	Mode      string    `json:"mode"`
	Timestamp time.Time `json:"timestamp"`
	Status    string    `json:"status,omitempty"`
}

// StageRecord captures timing and outcome for a single stage.
type StageRecord struct {
	Name           string   `json:"name"`
	Order          int      `json:"order"`
	Policy         string   `json:"policy"`
	Status         string   `json:"status"`
	Error          string   `json:"error,omitempty"`
	FieldsWritten  []string `json:"fields_written,omitempty"`
	DurationMillis int64    `json:"duration_ms"`
}

// Writer writes turn records to disk under baseDir/<turnID>/.
type Writer struct {
	baseDir string
	turnDir string
}

// NewWriter creates a writer rooted at baseDir/turnID.
func NewWriter(baseDir, turnID string) (*Writer, error) {
	if baseDir == "" {
		return nil, fmt.Errorf("base directory is required")
	}
	if turnID == "" {
		return nil, fmt.Errorf("turn ID is required")
	}

	turnDir := filepath.Join(baseDir, turnID)
	if err := os.MkdirAll(filepath.Join(turnDir, "stages"), 0755); err != nil {
		return nil, err
	}
	return &Writer{baseDir: baseDir, turnDir: turnDir}, nil
}

// TurnDir returns the directory records are written into.
func (w *Writer) TurnDir() string {
	return w.turnDir
}

// WriteTurn writes turn metadata to turn.json.
func (w *Writer) WriteTurn(record TurnRecord) error {
	return writeJSON(filepath.Join(w.turnDir, "turn.json"), record)
}

// WriteStage writes a stage record to stages/<stage>.json.
func (w *Writer) WriteStage(record StageRecord) error {
	path := filepath.Join(w.turnDir, "stages", fmt.Sprintf("%s.json", record.Name))
	return writeJSON(path, record)
}

func writeJSON(path string, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
