package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/cwbudde/recipefit/internal/fit"
)

var serverURL string

var statusCmd = &cobra.Command{
	Use:   "status [job-id]",
	Short: "Query server status or specific job",
	Long: `Queries the server for job status information.
If no job-id is provided, lists all jobs.
If job-id is provided, shows detailed status for that job and, once it has
completed, its recipe.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&serverURL, "server", "http://localhost:8080", "Server URL")
	rootCmd.AddCommand(statusCmd)
}

// jobView mirrors the server's job JSON.
type jobView struct {
	ID               string  `json:"id"`
	State            string  `json:"state"`
	RecipeName       string  `json:"recipeName"`
	Solver           string  `json:"solver"`
	Objective        float64 `json:"objective"`
	InitialObjective float64 `json:"initialObjective"`
	Iterations       int     `json:"iterations"`
	Elapsed          float64 `json:"elapsed"`
	Error            string  `json:"error"`
}

func runStatus(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return listJobs(os.Stdout, serverURL+"/api/v1/jobs")
	}
	return getJobStatus(os.Stdout, serverURL, args[0])
}

func getJSON(url string, dst any) (int, error) {
	resp, err := http.Get(url)
	if err != nil {
		return 0, fmt.Errorf("failed to connect to server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return resp.StatusCode, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(body))
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return resp.StatusCode, fmt.Errorf("failed to decode response: %w", err)
	}
	return resp.StatusCode, nil
}

func listJobs(out io.Writer, url string) error {
	var jobs []jobView
	if _, err := getJSON(url, &jobs); err != nil {
		return err
	}

	if len(jobs) == 0 {
		fmt.Fprintln(out, "No jobs found")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "JOB ID\tSTATE\tRECIPE\tSOLVER\tITERATIONS\tOBJECTIVE")
	fmt.Fprintln(w, "------\t-----\t------\t------\t----------\t---------")
	for _, job := range jobs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%.6g\n",
			job.ID, job.State, job.RecipeName, job.Solver, job.Iterations, job.Objective)
	}
	w.Flush()

	fmt.Fprintf(out, "\nFound %d job(s)\n", len(jobs))
	return nil
}

func getJobStatus(out io.Writer, baseURL, jobID string) error {
	var job jobView
	code, err := getJSON(fmt.Sprintf("%s/api/v1/jobs/%s", baseURL, jobID), &job)
	if code == http.StatusNotFound {
		return fmt.Errorf("job not found: %s", jobID)
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Job: %s\n", job.ID)
	fmt.Fprintf(out, "State: %s\n", job.State)
	if job.RecipeName != "" {
		fmt.Fprintf(out, "Recipe: %s\n", job.RecipeName)
	}
	fmt.Fprintf(out, "Solver: %s\n\n", job.Solver)

	fmt.Fprintln(out, "Progress:")
	fmt.Fprintf(out, "  Iterations: %d\n", job.Iterations)
	if job.InitialObjective > 0 {
		fmt.Fprintf(out, "  Objective: %.6g -> %.6g\n", job.InitialObjective, job.Objective)
	} else {
		fmt.Fprintf(out, "  Objective: %.6g\n", job.Objective)
	}
	elapsed := time.Duration(job.Elapsed * float64(time.Second))
	fmt.Fprintf(out, "  Elapsed: %s\n", elapsed.Round(time.Millisecond))

	if job.Error != "" {
		fmt.Fprintf(out, "\nError: %s\n", job.Error)
	}

	if job.State != "completed" {
		return nil
	}

	var sol fit.Solution
	if _, err := getJSON(fmt.Sprintf("%s/api/v1/jobs/%s/recipe", baseURL, jobID), &sol); err != nil {
		return err
	}
	fmt.Fprintln(out)
	printSolution(out, &sol)
	return nil
}
