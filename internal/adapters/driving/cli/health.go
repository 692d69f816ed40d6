package cli

import (
	"errors"
	"sort"

	"github.com/spf13/cobra"

	"github.com/Warren2005/medical-microscopy/internal/core/domain"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check backend availability",
	Long: `Probes the backend health endpoint and reports the status of its
services. Exits non-zero when the backend is unreachable.`,
	RunE: runHealth,
}

func init() {
	rootCmd.AddCommand(healthCmd)
}

func runHealth(cmd *cobra.Command, _ []string) error {
	if searchBackend == nil {
		return errors.New("backend not configured")
	}

	status := searchBackend.FetchHealth(cmd.Context())

	cmd.Printf("Backend: %s\n", status.State)
	if status.Version != "" {
		cmd.Printf("Version: %s\n", status.Version)
	}
	if len(status.Services) > 0 {
		cmd.Println()
		names := make([]string, 0, len(status.Services))
		for name := range status.Services {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			cmd.Printf("  %-12s %s\n", name, status.Services[name])
		}
	}

	if status.State == domain.HealthUnreachable {
		return errors.New("backend unreachable")
	}
	return nil
}
