package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/vango-dev/viewdiff/internal/config"
	"github.com/vango-dev/viewdiff/internal/errors"
	"github.com/vango-dev/viewdiff/pkg/differ"
	"github.com/vango-dev/viewdiff/pkg/mounting"
	"github.com/vango-dev/viewdiff/pkg/server"
	"github.com/vango-dev/viewdiff/pkg/shadow"
	"github.com/vango-dev/viewdiff/pkg/treestore"
)

type serveOptions struct {
	configPath string
	host       string
	port       int
	sourceDir  string
	surfaces   []string
	verbose    bool
}

func serveCmd() *cobra.Command {
	var opts serveOptions

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve surfaces over HTTP and WebSocket",
		Long: `Start the surface server.

Surfaces are started with PUT /surfaces/{id}, committed to with
POST /surfaces/{id}/commits and streamed from GET /surfaces/{id}/stream.
Settings are read from viewdiff.json; flags override them.

Examples:
  viewdiff serve
  viewdiff serve --port=8080 --verbose
  viewdiff serve --surface main=s3://trees/main.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cmd.ErrOrStderr(), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "", "Config file (default ./viewdiff.json if present)")
	cmd.Flags().StringVarP(&opts.host, "host", "H", "", "Host to bind to (default from config)")
	cmd.Flags().IntVarP(&opts.port, "port", "p", 0, "Port to listen on (default from config)")
	cmd.Flags().StringVar(&opts.sourceDir, "source-dir", "", "Directory for ?source= file references")
	cmd.Flags().StringArrayVar(&opts.surfaces, "surface", nil, "Start a surface at boot (id=ref, repeatable)")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "Log at debug level")

	return cmd
}

func runServe(ctx context.Context, logOut io.Writer, opts serveOptions) error {
	cfg, err := config.LoadOrDefault(opts.configPath)
	if err != nil {
		return err
	}
	if opts.host != "" {
		cfg.Server.Host = opts.host
	}
	if opts.port > 0 {
		cfg.Server.Port = opts.port
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := newLogger(logOut, cfg.Logging, opts.verbose)
	slog.SetDefault(logger)

	surfaces, reg, err := newRegistry(cfg, logger)
	if err != nil {
		return err
	}
	defer surfaces.Close()

	if err := preload(ctx, surfaces, cfg.Storage.S3, opts.surfaces); err != nil {
		return err
	}

	srvCfg := server.ConfigFrom(cfg)
	if reg != nil {
		srvCfg.Gatherer = reg
		srvCfg.Registerer = reg
	}
	srvCfg.SourceDir = opts.sourceDir

	srv := server.New(srvCfg, surfaces)
	srv.SetLogger(logger)

	printBanner(logOut)
	info(logOut, "serve")
	info(logOut, "http://%s", srvCfg.Address)
	if err := srv.Run(ctx); err != nil {
		return errors.New("E122").Wrap(err)
	}
	return nil
}

// newRegistry builds the surface registry from cfg. The returned metrics
// registry is nil when metrics are disabled.
func newRegistry(cfg *config.Config, logger *slog.Logger) (*mounting.Registry, *prometheus.Registry, error) {
	mode, err := differ.ParseMode(cfg.Differ.Mode)
	if err != nil {
		return nil, nil, errors.New("E101").Wrap(err)
	}
	differOpts := []differ.Option{differ.WithMode(mode)}
	if cfg.Differ.Assertions {
		differOpts = append(differOpts, differ.WithAssertions())
	}

	opts := []mounting.Option{
		mounting.WithLogger(logger),
		mounting.WithDifferOptions(differOpts...),
		mounting.WithValidation(cfg.Mounting.ValidateWithStubs),
		mounting.WithSubscriberBuffer(cfg.Mounting.SubscriberBuffer),
	}

	var reg *prometheus.Registry
	if cfg.Metrics.Enabled {
		reg = prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		metrics := mounting.NewMetrics(
			mounting.WithRegistry(reg),
			mounting.WithNamespace(cfg.Metrics.Namespace),
		)
		opts = append(opts, mounting.WithMetrics(metrics))
	}
	return mounting.NewRegistry(opts...), reg, nil
}

// preload starts the surfaces given as id=ref pairs. Documents are loaded
// concurrently.
func preload(ctx context.Context, surfaces *mounting.Registry, s3cfg config.S3Config, pairs []string) error {
	ids := make([]string, len(pairs))
	roots := make([]*shadow.Element, len(pairs))

	g, gctx := errgroup.WithContext(ctx)
	for i, pair := range pairs {
		id, ref, ok := strings.Cut(pair, "=")
		if !ok || id == "" || ref == "" {
			return errors.New("E104").WithDetailf("--surface %q is not id=ref", pair)
		}
		ids[i] = id
		g.Go(func() (err error) {
			roots[i], err = treestore.LoadTree(gctx, ref, s3cfg)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for i, id := range ids {
		if _, err := surfaces.Start(id, roots[i]); err != nil {
			return err
		}
	}
	return nil
}

// newLogger returns a slog logger writing to w. verbose forces debug
// level.
func newLogger(w io.Writer, cfg config.LoggingConfig, verbose bool) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	if verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
