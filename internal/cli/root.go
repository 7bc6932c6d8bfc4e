// Package cli implements the anomalyctl administrative commands: status
// transitions, score approval and override, closure with artifact upload,
// and full reindexing of the derived document index.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"anomalycore/internal/artifact"
	"anomalycore/internal/config"
	"anomalycore/internal/core"
	"anomalycore/internal/index"
	"anomalycore/internal/infra/persistence/memory"
	"anomalycore/internal/infra/persistence/postgres"
	"anomalycore/internal/infra/persistence/sqlite"
	"anomalycore/pkg/domain"
)

// RootOptions holds global flags shared by all commands.
type RootOptions struct {
	ConfigPath string
	Actor      string
	Format     string // "text" | "json"
}

// NewRootCommand creates the anomalyctl root command.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "anomalyctl",
		Short: "Administer anomaly lifecycle records",
		Long:  "anomalyctl manages anomaly records: status transitions, score approval and override, closure artifacts, and derived-index maintenance.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if opts.Format != "text" && opts.Format != "json" {
				return fmt.Errorf("invalid format %q: must be text or json", opts.Format)
			}
			return nil
		},
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "path to YAML config file")
	cmd.PersistentFlags().StringVar(&opts.Actor, "actor", "", "identity recorded on mutations")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (text|json)")

	cmd.AddCommand(newTransitionCommand(opts))
	cmd.AddCommand(newBulkTransitionCommand(opts))
	cmd.AddCommand(newPredictCommand(opts))
	cmd.AddCommand(newApproveCommand(opts))
	cmd.AddCommand(newOverrideCommand(opts))
	cmd.AddCommand(newScoresCommand(opts))
	cmd.AddCommand(newCloseCommand(opts))
	cmd.AddCommand(newGetCommand(opts))
	cmd.AddCommand(newListCommand(opts))
	cmd.AddCommand(newWindowsCommand(opts))
	cmd.AddCommand(newPlansCommand(opts))
	cmd.AddCommand(newReindexCommand(opts))

	return cmd
}

// app bundles the wired service stack for one command invocation.
type app struct {
	cfg      config.Config
	service  *core.Service
	notifier *index.Notifier
	closers  []func()
}

// newApp loads configuration and wires storage, artifact store, index
// notifier and service the same way a long-running deployment would.
func newApp(opts *RootOptions) (*app, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, err
	}
	logger := cfg.Logger()

	engine := core.NewDefaultRulesEngine()
	store, closeStore, err := openStore(cfg.Storage, engine)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg}
	if closeStore != nil {
		a.closers = append(a.closers, closeStore)
	}

	svcOpts := []core.ServiceOption{core.WithLogger(logger)}

	if cfg.Index.URL != "" {
		clientCfg := index.DefaultClientConfig(cfg.Index.URL)
		clientCfg.Timeout = cfg.Index.Timeout
		clientCfg.RetryAttempts = cfg.Index.RetryAttempts
		clientCfg.RetryBackoff = cfg.Index.RetryBackoff
		clientCfg.MaxRetryBackoff = cfg.Index.MaxRetryBackoff
		client, err := index.NewClient(clientCfg)
		if err != nil {
			a.close()
			return nil, err
		}
		notifierOpts := []index.NotifierOption{index.WithNotifierLogger(logger)}
		if cfg.Index.Async {
			notifierOpts = append(notifierOpts, index.WithAsyncQueue(cfg.Index.QueueSize))
		}
		a.notifier = index.NewNotifier(client, notifierOpts...)
		a.closers = append(a.closers, a.notifier.Close)
		svcOpts = append(svcOpts, core.WithNotifier(a.notifier))
	}

	artifacts, err := openArtifacts(cfg.Artifact)
	if err != nil {
		a.close()
		return nil, err
	}
	if artifacts != nil {
		svcOpts = append(svcOpts, core.WithArtifactStore(artifacts))
	}

	a.service = core.NewService(store, svcOpts...)
	return a, nil
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func openStore(cfg config.StorageConfig, engine *core.RulesEngine) (domain.PersistentStore, func(), error) {
	switch core.StorageDriver(cfg.Driver) {
	case core.StorageMemory:
		return memory.NewStore(engine), nil, nil
	case core.StorageSQLite:
		store, err := sqlite.NewStore(cfg.SQLitePath, engine)
		if err != nil {
			return nil, nil, err
		}
		return store, func() { _ = store.Close() }, nil
	case core.StoragePostgres:
		store, err := postgres.NewStore(cfg.PostgresDSN, engine)
		if err != nil {
			return nil, nil, err
		}
		return store, func() { _ = store.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage driver %s", cfg.Driver)
	}
}

func openArtifacts(cfg config.ArtifactConfig) (artifact.Store, error) {
	switch artifact.Driver(cfg.Driver) {
	case artifact.DriverFilesystem:
		return artifact.NewFS(cfg.FSRoot)
	case artifact.DriverMemory:
		return artifact.NewMemory(), nil
	case artifact.DriverS3:
		// Credentials come from the AWS default chain.
		return artifact.NewS3(context.Background(), artifact.S3Config{
			Bucket:    cfg.S3.Bucket,
			Region:    cfg.S3.Region,
			Endpoint:  cfg.S3.Endpoint,
			PathStyle: cfg.S3.PathStyle,
		})
	default:
		return nil, fmt.Errorf("unknown artifact driver %s", cfg.Driver)
	}
}

// emit prints v according to the selected output format.
func emit(w io.Writer, opts *RootOptions, v any, textFn func(io.Writer)) error {
	if opts.Format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	textFn(w)
	return nil
}
