package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/Warren2005/medical-microscopy/internal/logger"
)

var watchInterval time.Duration

var watchCmd = &cobra.Command{
	Use:   "watch [directory]",
	Short: "Search every image dropped into a directory",
	Long: `Watches a directory and runs a similarity search for each image
file that appears in it. Useful next to a slide scanner's export
folder. Stop with Ctrl-C.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().DurationVar(&watchInterval, "min-interval", 2*time.Second, "minimum delay between consecutive searches")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	if controller == nil {
		return errors.New("search controller not configured")
	}

	dir := args[0]
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("watch directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("watch directory: %s is not a directory", dir)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	limiter := rate.NewLimiter(rate.Every(watchInterval), 1)
	cmd.Printf("Watching %s for images. Ctrl-C to stop.\n", dir)

	for {
		select {
		case <-ctx.Done():
			cmd.Println("Stopped.")
			return nil
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("Watcher error: %v", err)
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			if mimeForPath(event.Name) == "" {
				continue
			}
			if err := limiter.Wait(ctx); err != nil {
				return nil
			}
			if err := searchWatchedFile(ctx, cmd, event.Name); err != nil {
				cmd.PrintErrf("%s: %v\n", event.Name, err)
			}
		}
	}
}

// searchWatchedFile waits for the file to settle, then runs a search
// and prints the result table.
func searchWatchedFile(ctx context.Context, cmd *cobra.Command, path string) error {
	// Scanners write large files incrementally; wait until the size
	// stops changing before reading.
	if err := waitForSettle(ctx, path); err != nil {
		return err
	}

	blob, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	cmd.Printf("\n%s\n", path)
	snap, err := awaitSearch(ctx, func() error {
		return controller.SubmitImageQuery(ctx, blob, mimeForPath(path))
	})
	if err != nil {
		return err
	}
	return outputResults(cmd, snap)
}

func waitForSettle(ctx context.Context, path string) error {
	var lastSize int64 = -1
	for {
		info, err := os.Stat(path)
		if err != nil {
			return err
		}
		if info.Size() == lastSize {
			return nil
		}
		lastSize = info.Size()

		select {
		case <-time.After(200 * time.Millisecond):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
