package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/Warren2005/medical-microscopy/internal/core/domain"
)

var explainOutput string

var explainCmd = &cobra.Command{
	Use:   "explain [image-id]",
	Short: "Download an attention heatmap for a reference image",
	Long: `Requests a visual explanation of what the embedding model attends
to in the given image. The heatmap is written as a PNG file.`,
	Args: cobra.ExactArgs(1),
	RunE: runExplain,
}

func init() {
	explainCmd.Flags().StringVarP(&explainOutput, "output", "o", "heatmap.png", "output file path")
	rootCmd.AddCommand(explainCmd)
}

func runExplain(cmd *cobra.Command, args []string) error {
	if searchBackend == nil {
		return errors.New("backend not configured")
	}

	imageID := args[0]
	if _, err := uuid.Parse(imageID); err != nil {
		return domain.NewValidationError("image-id", "must be a UUID")
	}

	png, err := searchBackend.FetchExplainability(cmd.Context(), imageID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("image %s not found", imageID)
		}
		return fmt.Errorf("fetch heatmap: %w", err)
	}

	if err := os.WriteFile(explainOutput, png, 0644); err != nil {
		return fmt.Errorf("write heatmap: %w", err)
	}
	cmd.Printf("Wrote %s (%d bytes).\n", explainOutput, len(png))
	return nil
}
