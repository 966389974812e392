// Package main implements the fusiond daemon and its local fusion CLI.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/fusiond/internal/collector"
	"github.com/fyrsmithlabs/fusiond/internal/config"
	"github.com/fyrsmithlabs/fusiond/internal/feedback"
	"github.com/fyrsmithlabs/fusiond/internal/fusion"
	"github.com/fyrsmithlabs/fusiond/internal/httpapi"
	"github.com/fyrsmithlabs/fusiond/internal/logging"
	"github.com/fyrsmithlabs/fusiond/internal/processor"
	"github.com/fyrsmithlabs/fusiond/internal/storage"
)

// Version information (set via ldflags during build).
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

var configPath string

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "fusiond",
	Short: "Feedback fusion daemon",
	Long: `fusiond collects feedback items from multiple sources and fuses them
into consolidated judgments using graph, attention, and reinforcement
learning strategies.`,
	Version: version,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config file (default ~/.config/fusiond/config.yaml)")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(fuseCmd)
	rootCmd.AddCommand(versionCmd)

	fuseCmd.Flags().String("task-type", "", "task type hint for strategy selection")
	fuseCmd.Flags().Int64("seed", 0, "random seed for reproducible fusion (0 = time-seeded)")
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("fusiond by Fyrsmith Labs\n")
		fmt.Printf("Version:    %s\n", version)
		fmt.Printf("Commit:     %s\n", gitCommit)
		fmt.Printf("Build Date: %s\n", buildDate)
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the fusiond HTTP server",
	Long: `Start the fusiond daemon: loads configuration, opens the feedback
store, and serves the HTTP API until SIGINT or SIGTERM.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		go func() {
			<-sigCh
			cancel()
		}()

		return runServe(ctx)
	},
}

// runServe starts the daemon and blocks until the context is cancelled.
func runServe(ctx context.Context) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return fmt.Errorf("initialize logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	logger.Info("starting fusiond",
		zap.String("version", version),
		zap.String("host", cfg.Server.Host),
		zap.Int("port", cfg.Server.Port),
		zap.String("storage", cfg.Storage.Backend),
	)

	store, err := openStore(cfg, logger)
	if err != nil {
		return fmt.Errorf("open feedback store: %w", err)
	}

	col, err := collector.New(store, logger.Named("collector"))
	if err != nil {
		return err
	}
	col.SetPreparer(processor.DefaultPipeline(logger.Named("pipeline")))
	engine := fusion.NewEngine(logger.Named("fusion"), newRand(cfg.Fusion.Seed))
	proc, err := processor.New(store, engine, logger.Named("processor"))
	if err != nil {
		return err
	}

	srv, err := httpapi.NewServer(store, col, proc, engine, logger.Named("http"), &httpapi.Config{
		Host: cfg.Server.Host,
		Port: cfg.Server.Port,
	})
	if err != nil {
		return fmt.Errorf("create http server: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	logger.Info("fusiond shutdown complete")
	return nil
}

func openStore(cfg *config.Config, logger *zap.Logger) (storage.Store, error) {
	if cfg.Storage.Backend == "file" {
		return storage.NewFileStore(cfg.Storage.Path, logger.Named("storage"))
	}
	return storage.NewMemoryStore(), nil
}

func newRand(seed int64) *rand.Rand {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed))
}

var fuseCmd = &cobra.Command{
	Use:   "fuse [file]",
	Short: "Fuse feedback items from a JSON file or stdin",
	Long: `Fuse feedback items without a running server.

The input is a JSON array of feedback items:

  [
    {"source": "human.doctor", "kind": "diagnostic",
     "content": {"type": "text", "text": "suspected pneumonia"}},
    {"source": "system.imaging", "kind": "monitoring",
     "content": {"type": "text", "text": "infiltrate in lower lobe"}}
  ]

Examples:
  # Fuse items from a file
  fusiond fuse feedback.json

  # Fuse from stdin with a task hint
  cat feedback.json | fusiond fuse --task-type diagnostic -`,
	Args: cobra.MaximumNArgs(1),
	RunE: runFuse,
}

// fuseInput mirrors the HTTP submit payload for offline fusion.
type fuseInput struct {
	Source      string           `json:"source"`
	Kind        string           `json:"kind"`
	Content     feedback.Content `json:"content"`
	Tags        []string         `json:"tags,omitempty"`
	Reliability *float64         `json:"reliability,omitempty"`
	CreatedAt   *time.Time       `json:"created_at,omitempty"`
}

func runFuse(cmd *cobra.Command, args []string) error {
	var raw []byte
	var err error
	if len(args) == 0 || args[0] == "-" {
		raw, err = io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("read stdin: %w", err)
		}
	} else {
		raw, err = os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("read file %s: %w", args[0], err)
		}
	}

	var inputs []fuseInput
	if err := json.Unmarshal(raw, &inputs); err != nil {
		return fmt.Errorf("decode input: %w", err)
	}
	if len(inputs) == 0 {
		return fmt.Errorf("no feedback items in input")
	}

	items := make([]*feedback.Item, 0, len(inputs))
	for i, in := range inputs {
		item, err := feedback.NewItem(in.Source, in.Kind, in.Content)
		if err != nil {
			return fmt.Errorf("item %d: %w", i, err)
		}
		item.Tags = in.Tags
		if in.CreatedAt != nil {
			item.CreatedAt = *in.CreatedAt
		}
		if in.Reliability != nil {
			if err := item.SetReliability(*in.Reliability); err != nil {
				return fmt.Errorf("item %d: %w", i, err)
			}
		}
		items = append(items, item)
	}

	seed, err := cmd.Flags().GetInt64("seed")
	if err != nil {
		return err
	}
	taskType, err := cmd.Flags().GetString("task-type")
	if err != nil {
		return err
	}

	engine := fusion.NewEngine(zap.NewNop(), newRand(seed))
	res, err := engine.Fuse(cmd.Context(), items, fusion.Options{TaskType: taskType})
	if err != nil {
		return fmt.Errorf("fuse %d items: %w", len(items), err)
	}

	out := httpapi.FuseResponse{
		Item:     res.Item,
		Weights:  res.Weights,
		Strategy: res.Strategy,
		Score:    fusion.EvaluateStrategyOutcome(res),
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
