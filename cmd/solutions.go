package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/cwbudde/recipefit/internal/config"
	"github.com/cwbudde/recipefit/internal/fit"
	"github.com/cwbudde/recipefit/internal/store"
)

var (
	keepLast      int
	olderThanDays int
	forceClean    bool
)

var solutionsCmd = &cobra.Command{
	Use:   "solutions",
	Short: "Manage stored solutions",
	Long: `Manage solutions saved by "run --save", "resume" and the job server:
list them, show one with its nutrient report, or clean old ones.`,
}

var listSolutionsCmd = &cobra.Command{
	Use:   "list",
	Short: "List all stored solutions",
	RunE:  runListSolutions,
}

var showSolutionCmd = &cobra.Command{
	Use:   "show [solution-id]",
	Short: "Show a stored solution",
	Args:  cobra.ExactArgs(1),
	RunE:  runShowSolution,
}

var cleanSolutionsCmd = &cobra.Command{
	Use:   "clean",
	Short: "Clean old solutions",
	Long: `Delete old solutions based on retention policy.
You can keep only the newest N solutions or delete solutions older than N days.`,
	RunE: runCleanSolutions,
}

func init() {
	rootCmd.AddCommand(solutionsCmd)

	solutionsCmd.AddCommand(listSolutionsCmd)
	solutionsCmd.AddCommand(showSolutionCmd)
	solutionsCmd.AddCommand(cleanSolutionsCmd)

	cleanSolutionsCmd.Flags().IntVar(&keepLast, "keep-last", 0, "Keep only the newest N solutions (0 = keep all)")
	cleanSolutionsCmd.Flags().IntVar(&olderThanDays, "older-than", 0, "Delete solutions older than N days (0 = no age limit)")
	cleanSolutionsCmd.Flags().BoolVarP(&forceClean, "force", "f", false, "Skip confirmation prompt")
}

func runListSolutions(cmd *cobra.Command, args []string) error {
	st, release, err := openStore()
	if err != nil {
		return err
	}
	defer release()

	infos, err := st.ListSolutions()
	if err != nil {
		return fmt.Errorf("failed to list solutions: %w", err)
	}

	if len(infos) == 0 {
		fmt.Println("No solutions found.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTIMESTAMP\tRECIPE\tSOLVER\tSTATE\tITERATIONS\tCOST\tSIZE")
	fmt.Fprintln(w, "--\t---------\t------\t------\t-----\t----------\t----\t----")

	for _, info := range infos {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\t%.2f\t%s\n",
			shortID(info.ID),
			info.Timestamp.Format("2006-01-02 15:04:05"),
			info.RecipeName,
			info.Solver,
			info.State,
			info.Iterations,
			info.TotalCost,
			solutionSize(info.ID),
		)
	}
	w.Flush()

	fmt.Printf("\nTotal solutions: %d\n", len(infos))
	return nil
}

func runShowSolution(cmd *cobra.Command, args []string) error {
	st, release, err := openStore()
	if err != nil {
		return err
	}
	defer release()

	rec, err := st.LoadSolution(args[0])
	if err != nil {
		return err
	}
	rules, err := loadRules()
	if err != nil {
		return err
	}

	p, err := fit.NewProblem(rec.Input.Ingredients, rec.Input.NutrientTargets, rules)
	if err != nil {
		return err
	}
	r, err := fit.Assemble(rec.Servings, rec.Input.Ingredients, p)
	if err != nil {
		return err
	}
	report, err := fit.Report(rec.Servings, rec.Input.NutrientTargets, p)
	if err != nil {
		return err
	}

	fmt.Printf("Solution: %s\n", rec.ID)
	if rec.RecipeName != "" {
		fmt.Printf("Recipe: %s\n", rec.RecipeName)
	}
	fmt.Printf("Saved: %s\n", rec.Timestamp.Format(time.RFC3339))
	fmt.Printf("Solver: %s (%s, %d iterations, objective %.6g -> %.6g)\n\n",
		rec.Solver, rec.State, rec.Iterations, rec.InitialObjective, rec.Objective)

	printRecipe(os.Stdout, r)
	fmt.Println()
	printReport(os.Stdout, report)

	if trace, err := store.ReadTrace(cfg.DataDir, rec.ID); err == nil && len(trace) > 0 {
		fmt.Printf("\nTrace: %d accepted steps, last step size %.3g\n", len(trace), trace[len(trace)-1].Step)
	}
	return nil
}

func runCleanSolutions(cmd *cobra.Command, args []string) error {
	if keepLast == 0 && olderThanDays == 0 {
		return fmt.Errorf("must specify either --keep-last or --older-than")
	}

	st, release, err := openStore()
	if err != nil {
		return err
	}
	defer release()

	infos, err := st.ListSolutions()
	if err != nil {
		return fmt.Errorf("failed to list solutions: %w", err)
	}

	if len(infos) == 0 {
		fmt.Println("No solutions to clean.")
		return nil
	}

	toDelete := selectSolutionsForDeletion(infos, keepLast, olderThanDays)
	if len(toDelete) == 0 {
		fmt.Println("No solutions match deletion criteria.")
		return nil
	}

	fmt.Printf("Found %d solution(s) to delete:\n", len(toDelete))
	for _, info := range toDelete {
		fmt.Printf("  - %s (%s, %s)\n",
			shortID(info.ID),
			info.RecipeName,
			info.Timestamp.Format("2006-01-02 15:04:05"),
		)
	}

	if !forceClean {
		fmt.Print("\nProceed with deletion? [y/N]: ")
		var response string
		fmt.Scanln(&response)
		if response != "y" && response != "Y" {
			fmt.Println("Aborted.")
			return nil
		}
	}

	deleted := 0
	failed := 0
	for _, info := range toDelete {
		if err := st.DeleteSolution(info.ID); err != nil {
			slog.Error("Failed to delete solution", "id", info.ID, "error", err)
			failed++
			continue
		}
		if err := store.DeleteTrace(cfg.DataDir, info.ID); err != nil {
			slog.Warn("Failed to delete trace", "id", info.ID, "error", err)
		}
		slog.Info("Deleted solution", "id", info.ID)
		deleted++
	}

	fmt.Printf("\nDeleted %d solution(s), %d failed.\n", deleted, failed)
	return nil
}

// selectSolutionsForDeletion applies the retention policy: everything older
// than olderThanDays, plus everything beyond the newest keepLast.
func selectSolutionsForDeletion(infos []store.Info, keepLast int, olderThanDays int) []store.Info {
	var toDelete []store.Info
	selected := make(map[string]bool)

	if olderThanDays > 0 {
		cutoff := time.Now().AddDate(0, 0, -olderThanDays)
		for _, info := range infos {
			if info.Timestamp.Before(cutoff) {
				toDelete = append(toDelete, info)
				selected[info.ID] = true
			}
		}
	}

	if keepLast > 0 && len(infos) > keepLast {
		sorted := make([]store.Info, len(infos))
		copy(sorted, infos)
		sort.Slice(sorted, func(i, j int) bool {
			return sorted[i].Timestamp.After(sorted[j].Timestamp)
		})

		for _, info := range sorted[keepLast:] {
			if !selected[info.ID] {
				toDelete = append(toDelete, info)
				selected[info.ID] = true
			}
		}
	}

	return toDelete
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12] + "..."
	}
	return id
}

// solutionSize is the on-disk size of a solution's job directory, which
// only the fs store has.
func solutionSize(id string) string {
	if cfg.Store != config.StoreFS {
		return "-"
	}
	size, err := getDirSize(filepath.Join(cfg.DataDir, "jobs", id))
	if err != nil {
		return "unknown"
	}
	return formatBytes(size)
}

// getDirSize calculates the total size of a directory
func getDirSize(path string) (int64, error) {
	var size int64
	err := filepath.Walk(path, func(_ string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			size += info.Size()
		}
		return nil
	})
	return size, err
}

// formatBytes formats bytes as human-readable string
func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
