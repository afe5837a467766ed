package server

import (
	"testing"
	"time"

	"github.com/cwbudde/recipefit/internal/recipe"
)

func pillConfig() JobConfig {
	return JobConfig{
		Document: recipe.Document{
			Name: "pill",
			Ingredients: []recipe.Ingredient{{
				Name: "iron pill", Unit: "g", Serving: 1, ContainerSize: 100, ItemCost: 4,
				Nutrients: map[string]float64{"iron": 4},
			}},
			NutrientTargets: recipe.NutrientTargets{"iron": 8},
		},
	}
}

func TestJobManager_CreateJob(t *testing.T) {
	jm := NewJobManager()

	config := pillConfig()
	config.Solver = "mayfly"
	job := jm.CreateJob(config)

	if job.ID == "" {
		t.Error("Job ID should not be empty")
	}
	if job.State != StatePending {
		t.Errorf("Initial state should be pending, got %s", job.State)
	}
	if job.RecipeName != "pill" || job.Solver != "mayfly" {
		t.Errorf("Metadata not set correctly: %q %q", job.RecipeName, job.Solver)
	}
	if len(job.Config.Ingredients) != 1 {
		t.Error("Config not set correctly")
	}

	if jm.CreateJob(pillConfig()).Solver != "pgd" {
		t.Error("Solver should default to pgd")
	}
}

func TestJobManager_GetJob(t *testing.T) {
	jm := NewJobManager()
	job := jm.CreateJob(pillConfig())

	retrieved, exists := jm.GetJob(job.ID)
	if !exists {
		t.Fatal("Job should exist")
	}
	if retrieved.ID != job.ID {
		t.Error("Retrieved wrong job")
	}

	// snapshots do not alias the managed job
	retrieved.State = StateFailed
	again, _ := jm.GetJob(job.ID)
	if again.State != StatePending {
		t.Error("Mutating a snapshot must not change the job")
	}

	if _, exists := jm.GetJob("nonexistent"); exists {
		t.Error("Should not find nonexistent job")
	}
}

func TestJobManager_ListJobs(t *testing.T) {
	jm := NewJobManager()

	if len(jm.ListJobs()) != 0 {
		t.Error("Should start with no jobs")
	}

	first := jm.CreateJob(pillConfig())
	time.Sleep(time.Millisecond)
	second := jm.CreateJob(pillConfig())

	jobs := jm.ListJobs()
	if len(jobs) != 2 {
		t.Fatalf("Expected 2 jobs, got %d", len(jobs))
	}
	if jobs[0].ID != first.ID || jobs[1].ID != second.ID {
		t.Error("Jobs should be listed oldest first")
	}
}

func TestJobManager_UpdateJob(t *testing.T) {
	jm := NewJobManager()
	job := jm.CreateJob(pillConfig())

	err := jm.UpdateJob(job.ID, func(j *Job) {
		j.State = StateRunning
		j.Iterations = 10
		j.Objective = 0.25
	})
	if err != nil {
		t.Errorf("Update should succeed: %v", err)
	}

	updated, _ := jm.GetJob(job.ID)
	if updated.State != StateRunning {
		t.Error("State should be updated")
	}
	if updated.Iterations != 10 {
		t.Error("Iterations should be updated")
	}
	if updated.Objective != 0.25 {
		t.Error("Objective should be updated")
	}
	if len(jm.GetRunningJobs()) != 1 {
		t.Error("Job should be reported as running")
	}

	if err := jm.UpdateJob("nonexistent", func(j *Job) {}); err == nil {
		t.Error("Update of nonexistent job should fail")
	}
}

func TestJobManager_CancelJob(t *testing.T) {
	jm := NewJobManager()
	job := jm.CreateJob(pillConfig())

	cancelled := false
	jm.setCancel(job.ID, func() { cancelled = true })

	if !jm.CancelJob(job.ID) {
		t.Error("Pending job should be cancellable")
	}
	if !cancelled {
		t.Error("Cancel function should have been called")
	}

	jm.UpdateJob(job.ID, func(j *Job) { j.State = StateCompleted })
	if jm.CancelJob(job.ID) {
		t.Error("Finished job should not be cancellable")
	}
	if jm.CancelJob("nonexistent") {
		t.Error("Unknown job should not be cancellable")
	}
}

func TestJobManager_ThreadSafety(t *testing.T) {
	jm := NewJobManager()
	job := jm.CreateJob(pillConfig())

	done := make(chan bool)
	for i := 0; i < 10; i++ {
		go func(iteration int) {
			jm.UpdateJob(job.ID, func(j *Job) {
				j.Iterations = iteration
			})
			jm.ListJobs()
			done <- true
		}(i)
	}
	for i := 0; i < 10; i++ {
		<-done
	}

	if _, exists := jm.GetJob(job.ID); !exists {
		t.Error("Job should still exist after concurrent updates")
	}
}
