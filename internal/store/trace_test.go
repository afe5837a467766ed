package store

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/cwbudde/recipefit/internal/opt"
)

func TestTraceWriter_WriteAndRead(t *testing.T) {
	tmpDir := t.TempDir()
	jobID := "test-job-123"

	writer, err := NewTraceWriter(tmpDir, jobID, false)
	if err != nil {
		t.Fatalf("Failed to create trace writer: %v", err)
	}

	entries := []TraceEntry{
		{Iteration: 1, Objective: 4.2, Step: 10, Timestamp: time.Now()},
		{Iteration: 2, Objective: 1.7, Step: 5, Timestamp: time.Now()},
		{Iteration: 3, Objective: 0.9, Step: 0.625, Timestamp: time.Now()},
	}
	for _, entry := range entries {
		if err := writer.Write(entry); err != nil {
			t.Fatalf("Failed to write entry: %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("Failed to close writer: %v", err)
	}

	if writer.Path() != filepath.Join(tmpDir, "jobs", jobID, "trace.jsonl") {
		t.Errorf("Unexpected trace path %s", writer.Path())
	}

	read, err := ReadTrace(tmpDir, jobID)
	if err != nil {
		t.Fatalf("Failed to read trace: %v", err)
	}
	if len(read) != len(entries) {
		t.Fatalf("Expected %d entries, got %d", len(entries), len(read))
	}
	for i, entry := range read {
		if entry.Iteration != entries[i].Iteration || entry.Objective != entries[i].Objective || entry.Step != entries[i].Step {
			t.Errorf("Entry %d: expected %+v, got %+v", i, entries[i], entry)
		}
	}
}

func TestTraceWriter_WriteStep(t *testing.T) {
	tmpDir := t.TempDir()

	writer, err := NewTraceWriter(tmpDir, "steps", false)
	if err != nil {
		t.Fatal(err)
	}
	if err := writer.WriteStep(opt.Step{Iteration: 7, Value: 0.25, StepSize: 1.25}); err != nil {
		t.Fatalf("WriteStep failed: %v", err)
	}
	writer.Close()

	read, err := ReadTrace(tmpDir, "steps")
	if err != nil {
		t.Fatal(err)
	}
	if len(read) != 1 || read[0].Iteration != 7 || read[0].Objective != 0.25 || read[0].Step != 1.25 {
		t.Errorf("Unexpected entry: %+v", read)
	}
	if read[0].Timestamp.IsZero() {
		t.Error("Step entry should be timestamped")
	}
}

func TestTraceWriter_Append(t *testing.T) {
	tmpDir := t.TempDir()
	jobID := "append"

	for run := 0; run < 2; run++ {
		writer, err := NewTraceWriter(tmpDir, jobID, true)
		if err != nil {
			t.Fatal(err)
		}
		writer.Write(TraceEntry{Iteration: run + 1, Objective: float64(10 - run)})
		writer.Close()
	}

	read, err := ReadTrace(tmpDir, jobID)
	if err != nil {
		t.Fatal(err)
	}
	if len(read) != 2 {
		t.Fatalf("Expected 2 entries after append, got %d", len(read))
	}

	// a fresh writer truncates
	writer, err := NewTraceWriter(tmpDir, jobID, false)
	if err != nil {
		t.Fatal(err)
	}
	writer.Close()

	read, err = ReadTrace(tmpDir, jobID)
	if err != nil {
		t.Fatal(err)
	}
	if len(read) != 0 {
		t.Errorf("Expected empty trace after truncation, got %d entries", len(read))
	}
}

func TestTraceWriter_Flush(t *testing.T) {
	tmpDir := t.TempDir()

	writer, err := NewTraceWriter(tmpDir, "flush", false)
	if err != nil {
		t.Fatal(err)
	}
	defer writer.Close()

	writer.Write(TraceEntry{Iteration: 1, Objective: 1})

	info, _ := os.Stat(writer.Path())
	if info.Size() != 0 {
		t.Errorf("Expected buffered write, file has %d bytes", info.Size())
	}

	if err := writer.Flush(); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}
	info, _ = os.Stat(writer.Path())
	if info.Size() == 0 {
		t.Error("Expected data on disk after flush")
	}
}

func TestTraceReader_ReadIteratively(t *testing.T) {
	tmpDir := t.TempDir()

	writer, _ := NewTraceWriter(tmpDir, "iter", false)
	for i := 1; i <= 5; i++ {
		writer.Write(TraceEntry{Iteration: i, Objective: 1 / float64(i)})
	}
	writer.Close()

	reader, err := NewTraceReader(tmpDir, "iter")
	if err != nil {
		t.Fatal(err)
	}
	defer reader.Close()

	count := 0
	for {
		entry, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("Read failed: %v", err)
		}
		count++
		if entry.Iteration != count {
			t.Errorf("Expected iteration %d, got %d", count, entry.Iteration)
		}
	}
	if count != 5 {
		t.Errorf("Expected 5 entries, got %d", count)
	}
}

func TestTraceReader_NotFound(t *testing.T) {
	_, err := NewTraceReader(t.TempDir(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestTraceReader_Corrupt(t *testing.T) {
	tmpDir := t.TempDir()
	dir := filepath.Join(tmpDir, "jobs", "bad")
	os.MkdirAll(dir, 0755)
	os.WriteFile(filepath.Join(dir, "trace.jsonl"), []byte("{\"iteration\":1}\nnot json\n"), 0644)

	if _, err := ReadTrace(tmpDir, "bad"); err == nil {
		t.Error("Expected error for corrupt line")
	}
}

func TestDeleteTrace(t *testing.T) {
	tmpDir := t.TempDir()

	writer, _ := NewTraceWriter(tmpDir, "del", false)
	writer.Close()

	if err := DeleteTrace(tmpDir, "del"); err != nil {
		t.Fatalf("DeleteTrace failed: %v", err)
	}
	if _, err := os.Stat(writer.Path()); !os.IsNotExist(err) {
		t.Error("Trace file should be removed")
	}
	if err := DeleteTrace(tmpDir, "del"); err != nil {
		t.Errorf("Deleting a missing trace should succeed, got %v", err)
	}
}

func TestTraceWriter_ConcurrentWrites(t *testing.T) {
	tmpDir := t.TempDir()

	writer, err := NewTraceWriter(tmpDir, "concurrent", false)
	if err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				if err := writer.Write(TraceEntry{Iteration: g*1000 + i}); err != nil {
					t.Errorf("Write failed: %v", err)
				}
			}
		}(g)
	}
	wg.Wait()
	writer.Close()

	read, err := ReadTrace(tmpDir, "concurrent")
	if err != nil {
		t.Fatal(err)
	}
	if len(read) != 400 {
		t.Errorf("Expected 400 entries, got %d", len(read))
	}
	seen := make(map[int]bool)
	for _, e := range read {
		key := e.Iteration
		if seen[key] {
			t.Fatalf("Duplicate entry %s", fmt.Sprint(key))
		}
		seen[key] = true
	}
}
