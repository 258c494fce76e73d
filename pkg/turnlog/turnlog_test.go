package turnlog

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWriterLayout(t *testing.T) {
	base := t.TempDir()
	w, err := NewWriter(base, "turn-123")
	if err != nil {
		t.Fatalf("new writer: %v", err)
	}

	want := filepath.Join(base, "turn-123")
	if w.TurnDir() != want {
		t.Fatalf("turn dir = %q, want %q", w.TurnDir(), want)
	}
	if _, err := os.Stat(filepath.Join(want, "stages")); err != nil {
		t.Fatalf("stages dir missing: %v", err)
	}
}

func TestWriterRejectsEmptyArgs(t *testing.T) {
	if _, err := NewWriter("", "turn-1"); err == nil {
		t.Fatal("expected error for empty base dir")
	}
	if _, err := NewWriter(t.TempDir(), ""); err == nil {
		t.Fatal("expected error for empty turn ID")
	}
}

func TestWriteTurnRoundTrip(t *testing.T) {
	w, err := NewWriter(t.TempDir(), "turn-1")
	if err != nil {
		t.Fatalf("new writer: %v", err)
	}

	record := TurnRecord{
		ID:        "turn-1",
		SaveID:    "save-1",
		Round:     4,
		Mode:      "standard",
		Timestamp: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Status:    "completed",
	}
	if err := w.WriteTurn(record); err != nil {
		t.Fatalf("write turn: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(w.TurnDir(), "turn.json"))
	if err != nil {
		t.Fatalf("read turn.json: %v", err)
	}
	var got TurnRecord
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got != record {
		t.Fatalf("round trip mismatch: %+v", got)
	}
}

func TestWriteTurnOverwritesStatus(t *testing.T) {
	w, err := NewWriter(t.TempDir(), "turn-1")
	if err != nil {
		t.Fatalf("new writer: %v", err)
	}

	record := TurnRecord{ID: "turn-1", SaveID: "s"}
	if err := w.WriteTurn(record); err != nil {
		t.Fatalf("first write: %v", err)
	}
	record.Status = "aborted"
	if err := w.WriteTurn(record); err != nil {
		t.Fatalf("second write: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(w.TurnDir(), "turn.json"))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var got TurnRecord
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Status != "aborted" {
		t.Fatalf("status = %q, want aborted", got.Status)
	}
}

func TestWriteStageFiles(t *testing.T) {
	w, err := NewWriter(t.TempDir(), "turn-1")
	if err != nil {
		t.Fatalf("new writer: %v", err)
	}

	records := []StageRecord{
		{Name: "init", Order: 0, Policy: "critical", Status: "completed", DurationMillis: 3},
		{Name: "mortality", Order: 90, Policy: "critical", Status: "failed", Error: "boom",
			FieldsWritten: []string{"mortality"}, DurationMillis: 12},
	}
	for _, r := range records {
		if err := w.WriteStage(r); err != nil {
			t.Fatalf("write stage %s: %v", r.Name, err)
		}
	}

	for _, r := range records {
		data, err := os.ReadFile(filepath.Join(w.TurnDir(), "stages", r.Name+".json"))
		if err != nil {
			t.Fatalf("read stage %s: %v", r.Name, err)
		}
		var got StageRecord
		if err := json.Unmarshal(data, &got); err != nil {
			t.Fatalf("decode stage %s: %v", r.Name, err)
		}
		if got.Status != r.Status || got.Error != r.Error {
			t.Fatalf("stage %s round trip mismatch: %+v", r.Name, got)
		}
	}
}
