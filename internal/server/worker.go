package server

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cwbudde/recipefit/internal/fit"
	"github.com/cwbudde/recipefit/internal/metrics"
	"github.com/cwbudde/recipefit/internal/opt"
	"github.com/cwbudde/recipefit/internal/store"
)

// progressInterval throttles progress events to two per second.
const progressInterval = 500 * time.Millisecond

// runner executes jobs. Store, metrics and trace directory are optional.
type runner struct {
	jobs     *JobManager
	store    store.Store
	metrics  *metrics.Collector
	rules    *fit.RuleTable
	traceDir string
	maxIters int
}

// run executes an optimization job in the background.
func (r *runner) run(ctx context.Context, jobID string) error {
	defer r.jobs.release(jobID)
	defer r.jobs.broadcaster.CleanupJob(jobID)

	job, exists := r.jobs.GetJob(jobID)
	if !exists {
		return fmt.Errorf("job not found: %s", jobID)
	}

	// a job cancelled while pending never runs
	select {
	case <-ctx.Done():
		markJobCancelled(r.jobs, jobID)
		return ctx.Err()
	default:
	}

	if err := r.jobs.UpdateJob(jobID, func(j *Job) { j.State = StateRunning }); err != nil {
		return err
	}
	if r.metrics != nil {
		r.metrics.JobStarted()
		defer r.metrics.JobFinished()
	}

	slog.Info("Starting job", "job_id", jobID, "recipe", job.RecipeName, "solver", job.Solver)

	trace := r.openTrace(jobID)
	if trace != nil {
		defer trace.Close()
	}

	cfg := opt.Config{
		Solver:        job.Config.Solver,
		MaxIterations: job.Config.MaxIterations,
		OnStep: func(step opt.Step) {
			r.jobs.UpdateJob(jobID, func(j *Job) {
				j.Iterations = step.Iteration
				j.Objective = step.Value
				j.StepSize = step.StepSize
			})
			if trace != nil {
				if err := trace.WriteStep(step); err != nil {
					slog.Warn("Failed to write trace entry", "job_id", jobID, "error", err)
				}
			}
		},
	}
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = r.maxIters
	}
	optimizer, err := opt.New(cfg)
	if err != nil {
		markJobFailed(r.jobs, jobID, err)
		return err
	}

	progressDone := make(chan struct{})
	go monitorProgress(ctx, r.jobs, jobID, progressDone)

	doc := job.Config.Document
	sol, err := fit.Optimize(doc.Ingredients, doc.NutrientTargets, fit.Options{
		Rules:     r.rules,
		Optimizer: optimizer,
	})
	close(progressDone)
	if err != nil {
		markJobFailed(r.jobs, jobID, err)
		return err
	}
	if r.metrics != nil {
		r.metrics.RecordOptimization(sol.Solver, sol.State.String(), sol.Iterations, sol.Elapsed)
	}

	// the solver cannot be interrupted, so a cancel during the run discards the result
	select {
	case <-ctx.Done():
		markJobCancelled(r.jobs, jobID)
		return ctx.Err()
	default:
	}

	if r.store != nil {
		if err := r.store.SaveSolution(jobID, store.NewRecord(jobID, &doc, sol)); err != nil {
			slog.Error("Failed to save solution", "job_id", jobID, "error", err)
		}
	}

	endTime := time.Now()
	var final Job
	err = r.jobs.UpdateJob(jobID, func(j *Job) {
		j.State = StateCompleted
		j.Solution = sol
		j.Objective = sol.Objective
		j.InitialObjective = sol.InitialObjective
		j.Iterations = sol.Iterations
		j.EndTime = &endTime
		final = *j
	})
	if err != nil {
		return err
	}

	slog.Info("Job completed",
		"job_id", jobID,
		"state", sol.State.String(),
		"elapsed", sol.Elapsed,
		"initial_objective", sol.InitialObjective,
		"objective", sol.Objective,
		"total_cost", sol.Recipe.TotalCost,
	)

	r.jobs.broadcaster.Broadcast(progressOf(final))
	return nil
}

func (r *runner) openTrace(jobID string) *store.TraceWriter {
	if r.traceDir == "" {
		return nil
	}
	trace, err := store.NewTraceWriter(r.traceDir, jobID, false)
	if err != nil {
		slog.Warn("Tracing disabled for job", "job_id", jobID, "error", err)
		return nil
	}
	return trace
}

// monitorProgress periodically broadcasts progress events during optimization
func monitorProgress(ctx context.Context, jm *JobManager, jobID string, done chan struct{}) {
	ticker := time.NewTicker(progressInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			job, exists := jm.GetJob(jobID)
			if !exists {
				return
			}
			jm.broadcaster.Broadcast(progressOf(job))
		}
	}
}

// markJobFailed marks a job as failed with an error message
func markJobFailed(jm *JobManager, jobID string, err error) {
	endTime := time.Now()
	var final Job
	jm.UpdateJob(jobID, func(j *Job) {
		j.State = StateFailed
		j.Error = err.Error()
		j.EndTime = &endTime
		final = *j
	})
	jm.broadcaster.Broadcast(progressOf(final))
	slog.Error("Job failed", "job_id", jobID, "error", err)
}

// markJobCancelled marks a job as cancelled
func markJobCancelled(jm *JobManager, jobID string) {
	endTime := time.Now()
	var final Job
	jm.UpdateJob(jobID, func(j *Job) {
		j.State = StateCancelled
		j.EndTime = &endTime
		final = *j
	})
	jm.broadcaster.Broadcast(progressOf(final))
	slog.Info("Job cancelled", "job_id", jobID)
}
