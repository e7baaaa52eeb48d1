package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/gcbaptista/mention-index/api"
	"github.com/gcbaptista/mention-index/config"
	"github.com/gcbaptista/mention-index/internal/analytics"
	"github.com/gcbaptista/mention-index/internal/engine"
	internalErrors "github.com/gcbaptista/mention-index/internal/errors"
	"github.com/gcbaptista/mention-index/internal/logging"
	"github.com/gcbaptista/mention-index/internal/protocol"
	"github.com/gcbaptista/mention-index/internal/search"
	"github.com/gcbaptista/mention-index/store"
)

const shutdownTimeout = 5 * time.Second

// options holds the flags shared by every subcommand
type options struct {
	configPath string
	logLevel   string
	logFormat  string
	port       string
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "mention-index",
		Short: "Incremental fuzzy path index for @-mention pickers",
		Long: `mention-index keeps a workspace's file and directory paths in memory and
ranks them against the partial text typed after an @ sign.

The host loads the full path list once, streams add/remove batches as files
change, and queries on every keystroke.`,
		Version:      version,
		SilenceUsage: true,
	}
	cmd.SetVersionTemplate("mention-index version {{.Version}}\n")

	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "YAML settings file")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn or error")
	cmd.PersistentFlags().StringVar(&opts.logFormat, "log-format", "", "Log format: text or json")

	cmd.AddCommand(newServeCmd(opts))
	cmd.AddCommand(newStdioCmd(opts))

	return cmd
}

func newServeCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the index over HTTP",
		Example: `  mention-index serve
  mention-index serve --port 9000 --log-level debug`,
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := opts.settings()
			if err != nil {
				return err
			}
			rt, err := newRuntime(settings)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServer(ctx, rt, settings.Server)
		},
	}

	cmd.Flags().StringVarP(&opts.port, "port", "p", "", "Port to run the server on (default 8080)")
	return cmd
}

func newStdioCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "stdio",
		Short: "Exchange newline-delimited JSON messages over stdin and stdout",
		Long: `Reads one JSON message per line from stdin and writes one JSON response per
line to stdout. Logs go to stderr. The command exits when stdin is closed.`,
		Example: `  echo '{"type":"query","q":"idx"}' | mention-index stdio`,
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := opts.settings()
			if err != nil {
				return err
			}
			rt, err := newRuntime(settings)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runStdio(ctx, rt, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
}

// settings resolves defaults, then the config file, then flags
func (o *options) settings() (config.Settings, error) {
	settings := config.Default()
	if o.configPath != "" {
		loaded, err := config.LoadFile(o.configPath)
		if err != nil {
			return settings, err
		}
		settings = loaded
	}

	if o.port != "" {
		settings.Server.Port = o.port
	}
	if o.logLevel != "" {
		settings.Logging.Level = o.logLevel
	}
	if o.logFormat != "" {
		settings.Logging.Format = o.logFormat
	}

	settings.ApplyDefaults()
	if conflicts := settings.Validate(); len(conflicts) > 0 {
		return settings, internalErrors.NewConfigError("command line", conflicts)
	}
	return settings, nil
}

// runtime wires the store, ranker, analytics and request loop together
type runtime struct {
	logger    *logrus.Logger
	engine    *engine.Engine
	analytics *analytics.Service
}

func newRuntime(settings config.Settings) (*runtime, error) {
	logger, err := logging.New(settings.Logging)
	if err != nil {
		return nil, err
	}

	candidates := store.NewCandidateStore()
	ranker, err := search.NewService(candidates, settings.Ranking,
		search.WithLogger(logging.Component(logger, "search")))
	if err != nil {
		return nil, fmt.Errorf("failed to create ranking service: %w", err)
	}

	analyticsService := analytics.NewService()
	eng := engine.New(candidates, ranker,
		engine.WithObserver(analyticsService),
		engine.WithLogger(logging.Component(logger, "engine")),
		engine.WithQueueSize(settings.Server.QueueSize),
	)

	return &runtime{logger: logger, engine: eng, analytics: analyticsService}, nil
}

func runServer(ctx context.Context, rt *runtime, settings config.ServerSettings) error {
	gin.SetMode(gin.ReleaseMode)
	router := api.NewRouter(rt.engine, rt.analytics, settings.MaxBodyBytes, logging.Component(rt.logger, "api"))
	server := &http.Server{
		Addr:              ":" + settings.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return rt.engine.Run(gctx)
	})
	g.Go(func() error {
		rt.logger.Infof("Starting server on port %s...", settings.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		rt.logger.Infof("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func runStdio(ctx context.Context, rt *runtime, in io.Reader, out io.Writer) error {
	server := protocol.NewStdioServer(rt.engine, logging.Component(rt.logger, "protocol"))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return rt.engine.Run(gctx)
	})
	g.Go(func() error {
		defer rt.engine.Stop()

		// A blocked read on stdin cannot be interrupted; on cancellation stop waiting for it
		served := make(chan error, 1)
		go func() { served <- server.Serve(gctx, in, out) }()

		select {
		case err := <-served:
			if errors.Is(err, internalErrors.ErrEngineStopped) && gctx.Err() != nil {
				return nil
			}
			return err
		case <-gctx.Done():
			return nil
		}
	})

	return g.Wait()
}
