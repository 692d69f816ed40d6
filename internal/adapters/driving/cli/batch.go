package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Warren2005/medical-microscopy/internal/core/domain"
	"github.com/Warren2005/medical-microscopy/internal/core/ports/driven"
)

var (
	batchWait     bool
	batchInterval time.Duration
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Run similarity search over an archive of query images",
}

var batchSubmitCmd = &cobra.Command{
	Use:   "submit [archive.zip]",
	Short: "Submit a zip archive of query images",
	Long: `Submits a zip archive for server-side batch processing. The job
runs asynchronously; use --wait to poll until it completes, or note
the job ID and poll later with "batch status".`,
	Args: cobra.ExactArgs(1),
	RunE: runBatchSubmit,
}

var batchStatusCmd = &cobra.Command{
	Use:   "status [job-id]",
	Short: "Show the status of a batch job",
	Args:  cobra.ExactArgs(1),
	RunE:  runBatchStatus,
}

func init() {
	batchSubmitCmd.Flags().BoolVar(&batchWait, "wait", false, "poll until the job completes")
	batchSubmitCmd.Flags().DurationVar(&batchInterval, "interval", 2*time.Second, "polling interval with --wait")
	batchCmd.AddCommand(batchSubmitCmd)
	batchCmd.AddCommand(batchStatusCmd)
	rootCmd.AddCommand(batchCmd)
}

func runBatchSubmit(cmd *cobra.Command, args []string) error {
	if batchBackend == nil {
		return errors.New("backend not configured")
	}

	archive, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read archive: %w", err)
	}

	filters := domain.FilterSet{
		Diagnosis:       filterDiagnosis,
		TissueType:      filterTissue,
		BenignMalignant: filterClass,
	}

	jobID, err := batchBackend.SubmitBatch(cmd.Context(), archive, filters, searchLimit)
	if err != nil {
		return fmt.Errorf("submit batch: %w", err)
	}
	cmd.Printf("Job %s submitted.\n", jobID)

	if !batchWait {
		return nil
	}
	return pollBatch(cmd, jobID)
}

func runBatchStatus(cmd *cobra.Command, args []string) error {
	if batchBackend == nil {
		return errors.New("backend not configured")
	}

	status, err := batchBackend.FetchBatchStatus(cmd.Context(), args[0])
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("job %s not found", args[0])
		}
		return err
	}
	printBatchStatus(cmd, status)
	return nil
}

// pollBatch polls the job until it leaves the pending/processing
// states or the command context is cancelled.
func pollBatch(cmd *cobra.Command, jobID string) error {
	ctx := cmd.Context()
	for {
		status, err := batchBackend.FetchBatchStatus(ctx, jobID)
		if err != nil {
			return err
		}
		if status.Status != "pending" && status.Status != "processing" {
			printBatchStatus(cmd, status)
			if status.Status == "failed" {
				return fmt.Errorf("job %s failed: %s", jobID, status.Error)
			}
			return nil
		}
		cmd.Printf("  %s: %d/%d images\n", status.Status, status.ProcessedImages, status.TotalImages)

		select {
		case <-time.After(batchInterval):
		case <-ctx.Done():
			return context.Cause(ctx)
		}
	}
}

func printBatchStatus(cmd *cobra.Command, status *driven.BatchStatus) {
	cmd.Printf("Job:       %s\n", status.JobID)
	cmd.Printf("Status:    %s\n", status.Status)
	cmd.Printf("Processed: %d/%d\n", status.ProcessedImages, status.TotalImages)
	if status.ElapsedMs > 0 {
		cmd.Printf("Elapsed:   %.0f ms\n", status.ElapsedMs)
	}
	if status.Error != "" {
		cmd.Printf("Error:     %s\n", status.Error)
	}
}
