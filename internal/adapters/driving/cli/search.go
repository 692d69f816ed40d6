package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/Warren2005/medical-microscopy/internal/core/domain"
	"github.com/Warren2005/medical-microscopy/internal/core/ports/driving"
)

var (
	searchLimit     int
	searchJSON      bool
	searchStream    bool
	filterDiagnosis string
	filterTissue    string
	filterClass     string
)

// searchWait bounds how long a command waits for the controller to
// reach a terminal state. Tests shorten it.
var searchWait = 2 * time.Minute

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Search for similar microscopy images",
	Long: `Searches the reference corpus for images similar to a query.
The query is either an image file (JPEG, PNG or TIFF) or a free-text
description. Results arrive ranked by similarity.`,
}

var searchImageCmd = &cobra.Command{
	Use:   "image [file]",
	Short: "Search by query image",
	Args:  cobra.ExactArgs(1),
	RunE:  runSearchImage,
}

var searchTextCmd = &cobra.Command{
	Use:   "text [description]",
	Short: "Search by free-text description",
	Args:  cobra.ExactArgs(1),
	RunE:  runSearchText,
}

func init() {
	searchCmd.PersistentFlags().IntVarP(&searchLimit, "limit", "n", 0, "maximum number of results (0 uses the configured default)")
	searchCmd.PersistentFlags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	searchCmd.PersistentFlags().StringVar(&filterDiagnosis, "diagnosis", "", "restrict results to a diagnosis label")
	searchCmd.PersistentFlags().StringVar(&filterTissue, "tissue", "", "restrict results to a tissue type")
	searchCmd.PersistentFlags().StringVar(&filterClass, "class", "", "restrict results to benign or malignant")
	searchImageCmd.Flags().BoolVar(&searchStream, "stream", false, "receive results incrementally over the streaming channel")
	searchCmd.AddCommand(searchImageCmd)
	searchCmd.AddCommand(searchTextCmd)
	rootCmd.AddCommand(searchCmd)
}

func runSearchImage(cmd *cobra.Command, args []string) error {
	if controller == nil {
		return errors.New("search controller not configured")
	}

	path := args[0]
	blob, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read query image: %w", err)
	}
	mimeType := mimeForPath(path)

	ctx := cmd.Context()
	snap, err := awaitSearch(ctx, func() error {
		if searchStream {
			return controller.SubmitImageQueryStreaming(ctx, blob, mimeType)
		}
		return controller.SubmitImageQuery(ctx, blob, mimeType)
	})
	if err != nil {
		return err
	}
	return outputResults(cmd, snap)
}

func runSearchText(cmd *cobra.Command, args []string) error {
	if controller == nil {
		return errors.New("search controller not configured")
	}

	ctx := cmd.Context()
	snap, err := awaitSearch(ctx, func() error {
		return controller.SubmitTextQuery(ctx, args[0])
	})
	if err != nil {
		return err
	}
	return outputResults(cmd, snap)
}

// awaitSearch applies the flag-derived filters and limit, runs submit
// and blocks until the controller publishes a terminal snapshot. A
// failed search surfaces its notice as the command error.
func awaitSearch(ctx context.Context, submit func() error) (driving.Snapshot, error) {
	if err := applyFlagFilters(ctx); err != nil {
		return driving.Snapshot{}, err
	}

	showProgress := term.IsTerminal(int(os.Stderr.Fd()))
	lastProgress := ""

	done := make(chan driving.Snapshot, 1)
	unsubscribe := controller.Subscribe(func(s driving.Snapshot) {
		if showProgress && s.Progress != "" && s.Progress != lastProgress {
			lastProgress = s.Progress
			fmt.Fprintln(os.Stderr, s.Progress)
		}
		terminal := s.State == domain.StateResults ||
			(s.State == domain.StateIdle && s.Notice != "")
		if terminal {
			select {
			case done <- s:
			default:
			}
		}
	})
	defer unsubscribe()

	if err := submit(); err != nil {
		return driving.Snapshot{}, err
	}

	select {
	case snap := <-done:
		if snap.State == domain.StateIdle {
			return snap, errors.New(snap.Notice)
		}
		return snap, nil
	case <-time.After(searchWait):
		return driving.Snapshot{}, errors.New("timed out waiting for results")
	case <-ctx.Done():
		return driving.Snapshot{}, ctx.Err()
	}
}

func applyFlagFilters(ctx context.Context) error {
	if searchLimit > 0 {
		controller.SetLimit(searchLimit)
	}
	filters := domain.FilterSet{
		Diagnosis:       filterDiagnosis,
		TissueType:      filterTissue,
		BenignMalignant: filterClass,
	}
	if filters.IsZero() {
		return nil
	}
	return controller.ApplyFilters(ctx, filters)
}

// mimeForPath maps a file extension to the backend's accepted image
// media types. Unknown extensions map to an empty string so validation
// rejects them before any bytes travel.
func mimeForPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		return domain.MIMEJPEG
	case ".png":
		return domain.MIMEPNG
	case ".tif", ".tiff":
		return domain.MIMETIFF
	default:
		return ""
	}
}

func outputResults(cmd *cobra.Command, snap driving.Snapshot) error {
	if searchJSON {
		return outputResultsJSON(cmd, snap.Results)
	}
	return outputResultsTable(cmd, snap.Results)
}

func outputResultsJSON(cmd *cobra.Command, resp *domain.SearchResponse) error {
	data, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal results: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputResultsTable(cmd *cobra.Command, resp *domain.SearchResponse) error {
	if resp == nil || len(resp.Results) == 0 {
		cmd.Println("No similar images found.")
		return nil
	}

	cmd.Printf("Results: %d (%.0f ms)\n", resp.ResultCount, resp.TotalTimeMs)
	cmd.Println()
	for i, item := range resp.Results {
		cmd.Printf("  [%d] %s (%.3f)\n", i+1, item.ImageID, item.SimilarityScore)
		meta := describeResult(item)
		if meta != "" {
			cmd.Printf("      %s\n", meta)
		}
		if item.ImageURL != "" {
			cmd.Printf("      %s\n", item.ImageURL)
		}
		cmd.Println()
	}
	return nil
}

// describeResult joins the present metadata fields into one line.
func describeResult(item domain.ResultItem) string {
	var parts []string
	if item.Diagnosis != "" {
		parts = append(parts, item.Diagnosis)
	}
	if item.TissueType != "" {
		parts = append(parts, item.TissueType)
	}
	if item.BenignMalignant != "" {
		parts = append(parts, item.BenignMalignant)
	}
	if item.DatasetSource != "" {
		parts = append(parts, "source: "+item.DatasetSource)
	}
	return strings.Join(parts, " / ")
}
