package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/cwbudde/recipefit/internal/fit"
)

// printRecipe writes the ingredient table. Ingredients with no servings are
// left out.
func printRecipe(out io.Writer, r *fit.Recipe) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "INGREDIENT\tSERVINGS\tQUANTITY\tCOST")
	fmt.Fprintln(w, "----------\t--------\t--------\t----")
	for _, item := range r.Items {
		if item.Servings < 1e-9 {
			continue
		}
		fmt.Fprintf(w, "%s\t%.3f\t%.1f %s\t%.2f\n", item.Name, item.Servings, item.Quantity, item.Unit, item.Cost)
	}
	w.Flush()
	fmt.Fprintf(out, "\nTotal cost: %.2f\n", r.TotalCost)
}

// printReport writes the nutrient table.
func printReport(out io.Writer, report []fit.NutrientStatus) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NUTRIENT\tAMOUNT\tTARGET\tMAX\t%\tSTATUS")
	fmt.Fprintln(w, "--------\t------\t------\t---\t-\t------")
	for _, n := range report {
		limit := "-"
		if n.Max != nil {
			limit = fmt.Sprintf("%.1f", *n.Max)
		}
		fmt.Fprintf(w, "%s\t%.1f\t%.1f\t%s\t%.0f\t%s\n", n.Name, n.Amount, n.Target, limit, n.Percent, n.Status)
	}
	w.Flush()
}

func printMissing(out io.Writer, missing []fit.MissingNutrient) {
	if len(missing) == 0 {
		return
	}
	fmt.Fprintf(out, "\nNo data (counted as zero) for %d ingredient/nutrient pair(s):\n", len(missing))
	for _, m := range missing {
		fmt.Fprintf(out, "  - %s: %s\n", m.Ingredient, m.Nutrient)
	}
}

func printSolution(out io.Writer, sol *fit.Solution) {
	printRecipe(out, sol.Recipe)
	fmt.Fprintln(out)
	printReport(out, sol.Report)
	printMissing(out, sol.Missing)

	status := "converged"
	if !sol.Converged {
		status = "stopped early (" + sol.State.String() + ")"
	}
	fmt.Fprintf(out, "\n%s: %s after %d iterations, objective %.6g -> %.6g\n",
		sol.Solver, status, sol.Iterations, sol.InitialObjective, sol.Objective)
}
