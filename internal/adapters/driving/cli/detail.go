package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/Warren2005/medical-microscopy/internal/core/domain"
)

var detailJSON bool

var detailCmd = &cobra.Command{
	Use:   "detail [image-id]",
	Short: "Show full metadata for a reference image",
	Args:  cobra.ExactArgs(1),
	RunE:  runDetail,
}

func init() {
	detailCmd.Flags().BoolVar(&detailJSON, "json", false, "output metadata as JSON")
	rootCmd.AddCommand(detailCmd)
}

func runDetail(cmd *cobra.Command, args []string) error {
	if searchBackend == nil {
		return errors.New("backend not configured")
	}

	imageID := args[0]
	if _, err := uuid.Parse(imageID); err != nil {
		return domain.NewValidationError("image-id", "must be a UUID")
	}

	item, err := searchBackend.FetchDetail(cmd.Context(), imageID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("image %s not found", imageID)
		}
		return err
	}

	if detailJSON {
		data, err := json.MarshalIndent(item, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal detail: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	cmd.Printf("Image:      %s\n", item.ImageID)
	if item.Diagnosis != "" {
		cmd.Printf("Diagnosis:  %s\n", item.Diagnosis)
	}
	if item.TissueType != "" {
		cmd.Printf("Tissue:     %s\n", item.TissueType)
	}
	if item.BenignMalignant != "" {
		cmd.Printf("Class:      %s\n", item.BenignMalignant)
	}
	if item.Age != nil {
		cmd.Printf("Age:        %d\n", *item.Age)
	}
	if item.Sex != "" {
		cmd.Printf("Sex:        %s\n", item.Sex)
	}
	if item.DatasetSource != "" {
		cmd.Printf("Source:     %s\n", item.DatasetSource)
	}
	if item.ImageURL != "" {
		cmd.Printf("URL:        %s\n", item.ImageURL)
	}
	return nil
}
