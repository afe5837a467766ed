package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/cwbudde/recipefit/internal/fit"
	"github.com/cwbudde/recipefit/internal/opt"
	"github.com/cwbudde/recipefit/internal/recipe"
	"github.com/cwbudde/recipefit/internal/store"
)

var (
	recipePath  string
	solverName  string
	maxIters    int
	initialStep float64
	minStep     float64
	costWeight  float64
	population  int
	seed        int64
	saveResult  bool
	writeTrace  bool
	checkGrad   bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Optimize a recipe",
	Long: `Reads a recipe document (ingredients and nutrient targets), chooses
servings per ingredient and prints the recipe with its nutrient report.`,
	RunE: runOptimization,
}

func init() {
	runCmd.Flags().StringVar(&recipePath, "recipe", "", "Recipe document path (required)")
	runCmd.Flags().StringVar(&solverName, "solver", "", "Solver: pgd, mayfly (default from config)")
	runCmd.Flags().IntVar(&maxIters, "max-iters", 0, "Max outer iterations (0 = solver default)")
	runCmd.Flags().Float64Var(&initialStep, "step", 0, "Initial line search step (0 = default)")
	runCmd.Flags().Float64Var(&minStep, "min-step", 0, "Convergence step size (0 = default)")
	runCmd.Flags().Float64Var(&costWeight, "cost-weight", fit.DefaultCostWeight, "Weight of the cost term")
	runCmd.Flags().IntVar(&population, "pop", opt.DefaultPopulation, "Population size (mayfly)")
	runCmd.Flags().Int64Var(&seed, "seed", 42, "Random seed (mayfly)")
	runCmd.Flags().BoolVar(&saveResult, "save", false, "Save the solution to the store")
	runCmd.Flags().BoolVar(&writeTrace, "trace", false, "Write accepted steps to a JSONL trace")
	runCmd.Flags().BoolVar(&checkGrad, "check-grad", false, "Compare the analytic gradient with finite differences first")

	runCmd.MarkFlagRequired("recipe")
	rootCmd.AddCommand(runCmd)
}

func runOptimization(cmd *cobra.Command, args []string) error {
	doc, err := recipe.Load(recipePath)
	if err != nil {
		return err
	}

	rules, err := loadRules()
	if err != nil {
		return err
	}
	if cmd != nil && cmd.Flags().Changed("cost-weight") {
		if rules == nil {
			rules = fit.DefaultRules()
		}
		rules = rules.WithCostWeight(costWeight)
	}

	if checkGrad {
		if err := reportGradientCheck(doc, rules); err != nil {
			return err
		}
	}

	id := uuid.New().String()
	optCfg := solverConfig()

	if writeTrace {
		trace, err := store.NewTraceWriter(cfg.DataDir, id, false)
		if err != nil {
			return err
		}
		defer trace.Close()
		optCfg.OnStep = func(step opt.Step) {
			if err := trace.WriteStep(step); err != nil {
				slog.Warn("Failed to write trace entry", "error", err)
			}
		}
		slog.Info("Writing trace", "path", trace.Path())
	}

	optimizer, err := opt.New(optCfg)
	if err != nil {
		return err
	}

	slog.Info("Starting optimization", "recipe", doc.Name, "ingredients", len(doc.Ingredients), "solver", optimizer.Name())

	sol, err := fit.Optimize(doc.Ingredients, doc.NutrientTargets, fit.Options{
		Rules:     rules,
		Optimizer: optimizer,
	})
	if err != nil {
		return err
	}

	printSolution(os.Stdout, sol)

	if saveResult {
		st, release, err := openStore()
		if err != nil {
			return err
		}
		defer release()

		if err := st.SaveSolution(id, store.NewRecord(id, doc, sol)); err != nil {
			return err
		}
		fmt.Printf("Saved solution %s\n", id)
	}
	return nil
}

// solverConfig merges the run flags over the configured defaults.
func solverConfig() opt.Config {
	c := opt.Config{
		Solver:        cfg.Solver,
		MaxIterations: cfg.MaxIterations,
		InitialStep:   initialStep,
		MinStep:       minStep,
		Population:    population,
		Seed:          seed,
	}
	if solverName != "" {
		c.Solver = solverName
	}
	if maxIters > 0 {
		c.MaxIterations = maxIters
	}
	return c
}

func reportGradientCheck(doc *recipe.Document, rules *fit.RuleTable) error {
	p, err := fit.NewProblem(doc.Ingredients, doc.NutrientTargets, rules)
	if err != nil {
		return err
	}

	check := opt.CheckGradient(p, p.Start())
	fmt.Printf("Gradient check at start: max abs error %.3g, max rel error %.3g (worst: %s, analytic %.6g, numeric %.6g)\n\n",
		check.MaxAbsError, check.MaxRelError, p.Ingredients()[check.WorstIndex],
		check.Analytic[check.WorstIndex], check.Numeric[check.WorstIndex])
	if check.MaxRelError > 1e-4 {
		slog.Warn("Analytic gradient disagrees with finite differences", "max_rel_error", check.MaxRelError)
	}
	return nil
}
