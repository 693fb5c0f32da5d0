package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"

	"github.com/bft-labs/subvault/internal/app"
	"github.com/bft-labs/subvault/internal/catalog"
	"github.com/bft-labs/subvault/internal/cliconfig"
	"github.com/bft-labs/subvault/internal/namespace"
	"github.com/bft-labs/subvault/internal/watch"
	"github.com/bft-labs/subvault/pkg/blobstore"
	"github.com/bft-labs/subvault/pkg/fsutil"
	"github.com/bft-labs/subvault/pkg/log"
	"github.com/bft-labs/subvault/pkg/runner"
)

const helpDescription = `
Generate, store and list per-subscription catalogs.

Every subscription owns a numbered directory under the data dir holding two
compressed records: the catalog (ALL) and the entry details cache
(DETAILS_CACHE). Writes replace records atomically, keeping the previous
version until the new one is safely on disk.

Configure via file ($HOME/.subvault/config.toml), SUBVAULT_* env, or flags.
`

var exampleUsage = strings.TrimSpace(`
  subvault gen -n 4 --size 50
  subvault list -n 4 > listing.m3u
  subvault watch -n 4 --log-level debug
`)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

// env is what every subcommand needs once configuration is resolved.
type env struct {
	cfg    cliconfig.Config
	logger log.Logger
	app    *app.App
	subs   []catalog.Subscription

	resolver namespace.Resolver
	store    *blobstore.Store
}

func main() {
	cfg := cliconfig.DefaultConfig()
	var cfgPath string

	// setup resolves configuration (file, then env, then flags) and builds
	// the shared components.
	setup := func(cmd *cobra.Command) (*env, error) {
		cfgFile := cfgPath
		if cfgFile == "" {
			cfgFile = cliconfig.DefaultConfigPath()
		}

		changed := map[string]bool{}
		cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

		if cfgFile != "" {
			exists, err := fsutil.FileExists(cfgFile)
			if err != nil {
				return nil, fmt.Errorf("stat config: %w", err)
			}
			if exists {
				fc, err := cliconfig.LoadFileConfig(cfgFile)
				if err != nil {
					return nil, fmt.Errorf("load config: %w", err)
				}
				if err := cliconfig.ApplyFileConfig(&cfg, fc, changed); err != nil {
					return nil, err
				}
			}
		}

		// These override file config but are overridden by flags (checked via changed map)
		if err := cliconfig.ApplyEnvConfig(&cfg, changed); err != nil {
			return nil, err
		}
		if err := cfg.Validate(); err != nil {
			return nil, err
		}

		zl, err := cliconfig.NewLogger(cfg, os.Stderr)
		if err != nil {
			return nil, err
		}
		logger := zl.With(log.String("cmd", cmd.Name()))
		logger.Debug("configuration", log.Any("config", cfg))

		r, err := runner.New(cfg.RunnerConfig(), runner.WithLogger(logger))
		if err != nil {
			return nil, err
		}
		store := blobstore.New(
			blobstore.WithLogger(logger),
			blobstore.WithExecutor(runner.NewExecutor(cfg.Threads)),
			blobstore.WithCompressionLevel(cfg.CompressionLevel),
		)
		resolver := namespace.New(cfg.DataDir)

		return &env{
			cfg:      cfg,
			logger:   logger,
			app:      app.New(resolver, store, r, logger),
			subs:     catalog.GenerateSubscriptions(uint8(cfg.Subscriptions)),
			resolver: resolver,
			store:    store,
		}, nil
	}

	root := &cobra.Command{
		Use:           "subvault",
		Short:         "Generate, store and list per-subscription catalogs",
		Long:          strings.TrimSpace(helpDescription),
		Example:       exampleUsage,
		Version:       fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	gen := &cobra.Command{
		Use:   "gen",
		Short: "Generate a catalog and details cache for every subscription",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(cmd)
			if err != nil {
				return err
			}
			reports, err := e.app.GenerateAll(cmd.Context(), e.subs, e.cfg.Size)
			for _, rep := range reports {
				fmt.Fprintf(cmd.OutOrStdout(), "%d\t%d categories\t%d entries\t%d examples\n",
					rep.Sub, rep.Categories, rep.Entries, rep.Examples)
			}
			return err
		},
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "Print the stream listing of every subscription",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(cmd)
			if err != nil {
				return err
			}
			out, err := e.app.ListAll(cmd.Context(), e.subs)
			if err != nil {
				return err
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), out)
			return err
		},
	}

	watchCmd := &cobra.Command{
		Use:   "watch",
		Short: "Report records as they are saved into subscription directories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(cmd)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			idx := make([]uint8, len(e.subs))
			for i, s := range e.subs {
				idx[i] = s.Idx
			}

			w := watch.New(watch.Config{DebounceDelay: e.cfg.DebounceDelay}, e.resolver, e.store,
				func(ev watch.Event) {
					if ev.Err != nil {
						return
					}
					e.logger.Info("record saved",
						log.Int("sub", int(ev.Sub)), log.String("record", ev.Record.Describe()))
				},
				watch.WithLogger(e.logger),
				watch.WithRecord(func() blobstore.Record { return &catalog.Catalog{} }),
				watch.WithRecord(func() blobstore.Record { return catalog.NewDetailsCache() }),
			)
			if err := w.Run(ctx, idx); err != nil {
				return fmt.Errorf("watch: %w", err)
			}
			e.logger.Info("received signal, stopped")
			return nil
		},
	}

	gen.Flags().IntVar(&cfg.Size, "size", cfg.Size, "catalog size (number of categories, give or take 25%)")

	pf := root.PersistentFlags()
	pf.StringVar(&cfgPath, "config", "", "path to config file, .toml or .yaml (default: $HOME/.subvault/config.toml)")
	pf.StringVar(&cfg.DataDir, "data-dir", cfg.DataDir, "directory holding the subscription namespaces")
	pf.IntVarP(&cfg.Subscriptions, "subs", "n", cfg.Subscriptions, "number of subscriptions (1-255)")
	pf.IntVar(&cfg.ChunkSize, "chunk-size", cfg.ChunkSize, "subscriptions processed concurrently")
	pf.IntVar(&cfg.Retries, "retries", cfg.Retries, "extra attempts for a failed subscription")
	pf.BoolVar(&cfg.AllowPartial, "allow-partial", cfg.AllowPartial, "keep going after a subscription fails all attempts")
	pf.DurationVar(&cfg.RetryBackoff, "retry-backoff", cfg.RetryBackoff, "wait before the first retry, doubling after each")
	pf.DurationVar(&cfg.RetryBackoffMax, "retry-backoff-max", cfg.RetryBackoffMax, "upper bound for the retry wait")
	pf.IntVar(&cfg.Threads, "threads", cfg.Threads, "threads for encoding and compression")
	pf.IntVar(&cfg.CompressionLevel, "compression-level", cfg.CompressionLevel, "zstd compression level (1-22)")
	pf.DurationVar(&cfg.DebounceDelay, "debounce", cfg.DebounceDelay, "quiet time before a changed record is loaded (watch)")
	pf.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level (debug, info, warn, error)")
	pf.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "log format (console, json)")

	root.AddCommand(gen, list, watchCmd)

	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "subvault: %v\n", err)
		os.Exit(1)
	}
}
