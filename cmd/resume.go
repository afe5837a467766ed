package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/cwbudde/recipefit/internal/fit"
	"github.com/cwbudde/recipefit/internal/opt"
	"github.com/cwbudde/recipefit/internal/recipe"
	"github.com/cwbudde/recipefit/internal/store"
)

var (
	resumeIters  int
	resumeRecipe string
	resumeTrace  bool
)

var resumeCmd = &cobra.Command{
	Use:   "resume [solution-id]",
	Short: "Continue a stored solution",
	Long: `Warm-starts the optimizer from the servings of a stored solution and
saves the result under the same id. With --recipe, the stored servings seed
an updated recipe document with the same ingredients.`,
	Args: cobra.ExactArgs(1),
	RunE: runResume,
}

func init() {
	resumeCmd.Flags().IntVar(&resumeIters, "max-iters", 0, "Max outer iterations (0 = solver default)")
	resumeCmd.Flags().StringVar(&resumeRecipe, "recipe", "", "Updated recipe document with the same ingredients")
	resumeCmd.Flags().BoolVar(&resumeTrace, "trace", false, "Append accepted steps to the solution's trace")
	rootCmd.AddCommand(resumeCmd)
}

func runResume(cmd *cobra.Command, args []string) error {
	id := args[0]

	st, release, err := openStore()
	if err != nil {
		return err
	}
	defer release()

	rec, err := st.LoadSolution(id)
	if err != nil {
		return fmt.Errorf("failed to load solution: %w", err)
	}

	doc := &rec.Input
	if resumeRecipe != "" {
		doc, err = recipe.Load(resumeRecipe)
		if err != nil {
			return err
		}
		if err := rec.IsCompatible(doc); err != nil {
			return fmt.Errorf("cannot resume %s: %w", id, err)
		}
	}

	rules, err := loadRules()
	if err != nil {
		return err
	}

	optCfg := opt.Config{Solver: rec.Solver, MaxIterations: cfg.MaxIterations}
	if resumeIters > 0 {
		optCfg.MaxIterations = resumeIters
	}
	if resumeTrace {
		trace, err := store.NewTraceWriter(cfg.DataDir, id, true)
		if err != nil {
			return err
		}
		defer trace.Close()

		// continue the iteration count of the stored run
		offset := rec.Iterations
		optCfg.OnStep = func(step opt.Step) {
			step.Iteration += offset
			if err := trace.WriteStep(step); err != nil {
				slog.Warn("Failed to write trace entry", "error", err)
			}
		}
	}
	optimizer, err := opt.New(optCfg)
	if err != nil {
		return err
	}

	slog.Info("Resuming solution",
		"id", id,
		"solver", rec.Solver,
		"stored_state", rec.State,
		"stored_objective", rec.Objective,
	)

	sol, err := fit.Optimize(doc.Ingredients, doc.NutrientTargets, fit.Options{
		Rules:     rules,
		Optimizer: optimizer,
		Start:     rec.Servings,
	})
	if err != nil {
		return err
	}

	printSolution(os.Stdout, sol)

	updated := store.NewRecord(id, doc, sol)
	updated.Iterations += rec.Iterations
	if err := st.SaveSolution(id, updated); err != nil {
		return err
	}
	fmt.Printf("Updated solution %s\n", id)
	return nil
}
