package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var filtersJSON bool

var filtersCmd = &cobra.Command{
	Use:   "filters",
	Short: "List the filterable metadata vocabulary",
	Long: `Fetches the metadata values known to the backend. These are the
legal values for the --diagnosis, --tissue and --class search flags.`,
	RunE: runFilters,
}

func init() {
	filtersCmd.Flags().BoolVar(&filtersJSON, "json", false, "output vocabulary as JSON")
	rootCmd.AddCommand(filtersCmd)
}

func runFilters(cmd *cobra.Command, _ []string) error {
	if searchBackend == nil {
		return errors.New("backend not configured")
	}

	opts, err := searchBackend.FetchFilterOptions(cmd.Context())
	if err != nil {
		return fmt.Errorf("fetch filter vocabulary: %w", err)
	}

	if filtersJSON {
		data, err := json.MarshalIndent(opts, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal vocabulary: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	printList := func(name string, values []string) {
		cmd.Printf("%s:\n", name)
		if len(values) == 0 {
			cmd.Println("  (none)")
		}
		for _, v := range values {
			cmd.Printf("  %s\n", v)
		}
		cmd.Println()
	}
	printList("Diagnoses", opts.Diagnoses)
	printList("Tissue types", opts.TissueTypes)
	printList("Classifications", opts.BenignMalignant)
	return nil
}
