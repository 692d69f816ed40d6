// Package cli provides the cobra command surface for the microsearch
// client. Commands drive the search controller and the backend
// transport; wiring happens once per invocation from the persisted
// configuration.
package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/Warren2005/medical-microscopy/internal/adapters/driven/backend"
	"github.com/Warren2005/medical-microscopy/internal/adapters/driven/config/file"
	"github.com/Warren2005/medical-microscopy/internal/core/ports/driven"
	"github.com/Warren2005/medical-microscopy/internal/core/ports/driving"
	"github.com/Warren2005/medical-microscopy/internal/core/services"
	"github.com/Warren2005/medical-microscopy/internal/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

// Services wired by initServices (or injected by tests).
var (
	controller    driving.SearchController
	searchBackend driven.SearchBackend
	batchBackend  driven.BatchBackend
	cfgStore      *file.Store
)

var (
	verboseFlag bool
	configDir   string
	baseURL     string
)

var rootCmd = &cobra.Command{
	Use:   "microsearch",
	Short: "Similarity search over medical microscopy images",
	Long: `Microsearch is a client for a medical microscopy similarity
search backend. Upload a histopathology image or describe one in free
text, and retrieve the most visually similar reference images together
with their diagnostic metadata.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		logger.SetVerbose(verboseFlag)
		if controller != nil {
			return nil
		}
		return initServices()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "", "configuration directory (default ~/.microsearch)")
	rootCmd.PersistentFlags().StringVar(&baseURL, "base-url", "", "backend API root (overrides configuration)")
}

// initServices builds the transport client and the controller from the
// persisted configuration plus flag overrides.
func initServices() error {
	store, err := file.NewStore(configDir)
	if err != nil {
		return err
	}
	cfgStore = store

	cfg := store.Config()
	if baseURL != "" {
		cfg.Backend.BaseURL = baseURL
	}

	client := backend.NewClient(backend.Config{
		BaseURL:         cfg.Backend.BaseURL,
		UseSecureSocket: cfg.Backend.SecureSocket,
		Timeout:         cfg.Timeout(),
	})

	ctrl := services.NewController(client)
	ctrl.SetLimit(cfg.Search.Limit)

	// The flag wins over the configured streaming default.
	if cfg.Search.Stream && !searchImageCmd.Flags().Changed("stream") {
		searchStream = true
	}

	controller = ctrl
	searchBackend = client
	batchBackend = client

	logger.Debug("Configured backend %s (timeout %s)", cfg.Backend.BaseURL, cfg.Timeout())
	return nil
}

// Execute runs the root command.
func Execute() {
	defer func() {
		if controller != nil {
			controller.Close() //nolint:errcheck
		}
	}()
	if err := rootCmd.Execute(); err != nil {
		rootCmd.PrintErrln("Error:", err)
		os.Exit(1)
	}
}
