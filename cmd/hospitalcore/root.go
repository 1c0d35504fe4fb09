package main

import (
	"fmt"
	"log/slog"
	"net"

	"github.com/spf13/cobra"

	"hospitalcore/internal/blob"
	"hospitalcore/internal/core"
	"hospitalcore/internal/platform/config"
	"hospitalcore/internal/platform/logger"
)

// app carries state shared by every subcommand.
type app struct {
	configFile string
	cfg        config.Config
	logger     *slog.Logger

	// onListen, when set, is called with the bound address once serve is listening.
	onListen func(net.Addr)
}

func newApp() *app { return &app{} }

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "hospitalcore",
		Short: "Hospital management dashboard with durable state",
		Long: `hospitalcore serves a hospital management dashboard (patient records,
request queue, incident log, staff hierarchy, city routes and an emergency
lookup table) and snapshots the whole state after every change.`,
		SilenceUsage:      true,
		PersistentPreRunE: a.initConfig,
	}
	root.PersistentFlags().StringVar(&a.configFile, "config", "", "config file (default: ./hospitalcore.yaml)")

	root.AddCommand(newServeCmd(a))
	root.AddCommand(newSnapshotCmd(a))
	root.AddCommand(newVersionCmd())
	return root
}

// initConfig loads and validates the configuration.
func (a *app) initConfig(cmd *cobra.Command, _ []string) error {
	if cmd.Name() == "version" {
		return nil
	}
	cfg, err := config.Load(a.configFile)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	a.cfg = cfg
	if a.logger == nil {
		a.logger = logger.NewWithWriter(cmd.ErrOrStderr(), cfg.Log.Level, cfg.Log.Format)
	}
	return nil
}

func (a *app) storageConfig() core.StorageConfig {
	p := a.cfg.Persistence
	return core.StorageConfig{
		Driver:      core.StorageDriver(p.Driver),
		Path:        p.Path,
		AtomicWrite: p.AtomicWrite,
		SQLitePath:  p.SQLitePath,
		PostgresDSN: p.PostgresDSN,
		RedisURL:    p.RedisURL,
		RedisKey:    p.RedisKey,
		BlobKey:     p.BlobKey,
		Blob:        a.blobConfig(),
	}
}

func (a *app) blobConfig() blob.Config {
	b := a.cfg.Blob
	return blob.Config{
		Driver: b.Driver,
		FSRoot: b.FSRoot,
		S3: blob.S3Config{
			Bucket:    b.S3.Bucket,
			Region:    b.S3.Region,
			Endpoint:  b.S3.Endpoint,
			PathStyle: b.S3.PathStyle,
		},
	}
}
