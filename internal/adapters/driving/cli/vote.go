package cli

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/Warren2005/medical-microscopy/internal/core/domain"
)

var voteCmd = &cobra.Command{
	Use:   "vote [image-id] [up|down]",
	Short: "Submit relevance feedback for a result image",
	Long: `Records whether a result image was relevant to your query.
Repeating an identical vote is a no-op; voting the other way replaces
the earlier judgement.`,
	Args: cobra.ExactArgs(2),
	RunE: runVote,
}

func init() {
	rootCmd.AddCommand(voteCmd)
}

func runVote(cmd *cobra.Command, args []string) error {
	if controller == nil {
		return errors.New("search controller not configured")
	}

	imageID := args[0]
	if _, err := uuid.Parse(imageID); err != nil {
		return domain.NewValidationError("image-id", "must be a UUID")
	}

	var direction domain.VoteDirection
	switch args[1] {
	case "up":
		direction = domain.VoteUp
	case "down":
		direction = domain.VoteDown
	default:
		return domain.NewValidationError("direction", "must be up or down")
	}

	submitted, err := controller.SubmitVote(cmd.Context(), imageID, direction)
	if err != nil {
		return fmt.Errorf("submit vote: %w", err)
	}
	if !submitted {
		cmd.Printf("Vote %s on %s already recorded.\n", direction, imageID)
		return nil
	}
	cmd.Printf("Recorded %s vote for %s.\n", direction, imageID)
	return nil
}
