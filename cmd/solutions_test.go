package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cwbudde/recipefit/internal/config"
	"github.com/cwbudde/recipefit/internal/fit"
	"github.com/cwbudde/recipefit/internal/recipe"
	"github.com/cwbudde/recipefit/internal/store"
)

// useTempConfig points the commands at a fresh fs store for one test.
func useTempConfig(t *testing.T) string {
	t.Helper()
	original := cfg
	c := config.Default()
	c.DataDir = t.TempDir()
	cfg = c
	t.Cleanup(func() { cfg = original })
	return c.DataDir
}

func saveTestSolution(t *testing.T, dir, id string, age time.Duration) {
	t.Helper()
	doc, err := recipe.Load("../testdata/people-chow.json")
	if err != nil {
		t.Fatalf("Failed to load recipe: %v", err)
	}
	sol, err := fit.Optimize(doc.Ingredients, doc.NutrientTargets, fit.Options{})
	if err != nil {
		t.Fatalf("Optimize failed: %v", err)
	}

	st, err := store.NewFSStore(dir)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	rec := store.NewRecord(id, doc, sol)
	rec.Timestamp = time.Now().Add(-age)
	if err := st.SaveSolution(id, rec); err != nil {
		t.Fatalf("Failed to save solution: %v", err)
	}
}

func TestSelectSolutionsForDeletion_ByAge(t *testing.T) {
	now := time.Now()
	infos := []store.Info{
		{ID: "job1", Timestamp: now.AddDate(0, 0, -10)},
		{ID: "job2", Timestamp: now.AddDate(0, 0, -5)},
		{ID: "job3", Timestamp: now.AddDate(0, 0, -1)},
		{ID: "job4", Timestamp: now.AddDate(0, 0, -30)},
	}

	toDelete := selectSolutionsForDeletion(infos, 0, 7)

	if len(toDelete) != 2 {
		t.Fatalf("Expected 2 solutions to delete, got %d", len(toDelete))
	}
	ids := map[string]bool{}
	for _, info := range toDelete {
		ids[info.ID] = true
	}
	if !ids["job1"] || !ids["job4"] {
		t.Error("Expected job1 and job4 to be selected for deletion")
	}
}

func TestSelectSolutionsForDeletion_ByCount(t *testing.T) {
	now := time.Now()
	infos := []store.Info{
		{ID: "job1", Timestamp: now.AddDate(0, 0, -10)},
		{ID: "job2", Timestamp: now.AddDate(0, 0, -5)},
		{ID: "job3", Timestamp: now.AddDate(0, 0, -1)},
		{ID: "job4", Timestamp: now.AddDate(0, 0, -30)},
	}

	toDelete := selectSolutionsForDeletion(infos, 2, 0)

	if len(toDelete) != 2 {
		t.Fatalf("Expected 2 solutions to delete, got %d", len(toDelete))
	}
	ids := map[string]bool{}
	for _, info := range toDelete {
		ids[info.ID] = true
	}
	if !ids["job4"] || !ids["job1"] {
		t.Error("Expected job4 and job1 to be selected for deletion (oldest)")
	}
}

func TestSelectSolutionsForDeletion_Combined(t *testing.T) {
	now := time.Now()
	infos := []store.Info{
		{ID: "job1", Timestamp: now.AddDate(0, 0, -10)},
		{ID: "job2", Timestamp: now.AddDate(0, 0, -5)},
		{ID: "job3", Timestamp: now.AddDate(0, 0, -1)},
	}

	// job1 is both too old and beyond the newest two; it is listed once
	toDelete := selectSolutionsForDeletion(infos, 2, 7)
	if len(toDelete) != 1 || toDelete[0].ID != "job1" {
		t.Errorf("Expected only job1, got %+v", toDelete)
	}
}

func TestGetDirSize(t *testing.T) {
	tmpDir := t.TempDir()

	content := []byte("Hello, World!")
	if err := os.WriteFile(filepath.Join(tmpDir, "test.txt"), content, 0644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	size, err := getDirSize(tmpDir)
	if err != nil {
		t.Fatalf("getDirSize failed: %v", err)
	}
	if size < int64(len(content)) {
		t.Errorf("Expected size >= %d, got %d", len(content), size)
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		bytes    int64
		expected string
	}{
		{0, "0 B"},
		{512, "512 B"},
		{1023, "1023 B"},
		{1024, "1.0 KB"},
		{1536, "1.5 KB"},
		{1048576, "1.0 MB"},
		{1073741824, "1.0 GB"},
	}

	for _, tt := range tests {
		result := formatBytes(tt.bytes)
		if result != tt.expected {
			t.Errorf("formatBytes(%d) = %s, expected %s", tt.bytes, result, tt.expected)
		}
	}
}

func TestShortID(t *testing.T) {
	if got := shortID("abc"); got != "abc" {
		t.Errorf("shortID kept short ids as is, got %q", got)
	}
	if got := shortID("0123456789abcdef"); got != "0123456789ab..." {
		t.Errorf("Unexpected truncation: %q", got)
	}
}

func TestSolutionsListCommand_NoSolutions(t *testing.T) {
	useTempConfig(t)

	if err := runListSolutions(nil, nil); err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
}

func TestSolutionsListAndShow(t *testing.T) {
	dir := useTempConfig(t)
	saveTestSolution(t, dir, "test-solution", 0)

	if err := runListSolutions(nil, nil); err != nil {
		t.Errorf("list: expected no error, got %v", err)
	}
	if err := runShowSolution(nil, []string{"test-solution"}); err != nil {
		t.Errorf("show: expected no error, got %v", err)
	}
	if err := runShowSolution(nil, []string{"missing"}); err == nil {
		t.Error("show: expected an error for a missing solution")
	}
}

func TestSolutionsCleanCommand_NoFlags(t *testing.T) {
	useTempConfig(t)

	keepLast = 0
	olderThanDays = 0

	if err := runCleanSolutions(nil, nil); err == nil {
		t.Error("Expected error when no flags specified")
	}
}

func TestSolutionsCleanCommand_WithForce(t *testing.T) {
	dir := useTempConfig(t)
	saveTestSolution(t, dir, "old-solution", 30*24*time.Hour)
	saveTestSolution(t, dir, "new-solution", 0)

	keepLast = 0
	olderThanDays = 7
	forceClean = true
	t.Cleanup(func() { olderThanDays, forceClean = 0, false })

	if err := runCleanSolutions(nil, nil); err != nil {
		t.Errorf("Expected no error, got %v", err)
	}

	st, _ := store.NewFSStore(dir)
	if _, err := st.LoadSolution("old-solution"); err == nil {
		t.Error("Expected old solution to be deleted")
	}
	if _, err := st.LoadSolution("new-solution"); err != nil {
		t.Errorf("New solution should survive: %v", err)
	}
}
