package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/phanxgames/vmix"
	"github.com/phanxgames/vmix/config"
	"github.com/phanxgames/vmix/store"
)

var (
	configPath string
	logLevel   slog.LevelVar

	cfg      *config.Config
	docStore store.Store
	metrics  *http.Server

	rootCmd = &cobra.Command{
		Use:               "vmix",
		Short:             "Live video mixing sessions",
		SilenceUsage:      true,
		PersistentPreRunE: setup,
		PersistentPostRun: teardown,
	}

	infoCmd = &cobra.Command{
		Use:   "info [key]",
		Short: "Show the header and sources of a stored session, or list all sessions",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runInfo,
	}
	snapshotsCmd = &cobra.Command{
		Use:   "snapshots key",
		Short: "List the snapshots saved in a session document",
		Args:  cobra.ExactArgs(1),
		RunE:  runSnapshots,
	}
	newCmd = &cobra.Command{
		Use:   "new key [pattern...]",
		Short: "Create a session of test pattern sources",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runNew,
	}
	playCmd = &cobra.Command{
		Use:   "play [key]",
		Short: "Open a session in a window",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runPlay,
	}
	runCmd = &cobra.Command{
		Use:   "run key script",
		Short: "Open a session, replay a script against it and exit",
		Args:  cobra.ExactArgs(2),
		RunE:  runScript,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "configuration file (.yaml or .toml)")

	newCmd.Flags().Bool("force", false, "overwrite an existing document")

	playCmd.Flags().Bool("watch", true, "reload the configuration file when it changes")
	playCmd.Flags().String("screenshots", "screenshots", "folder for screenshots taken with P")
	playCmd.Flags().Bool("fps", false, "show the frame rate overlay (toggle with F3)")

	runCmd.Flags().String("save", "", "save the session under this key when the script finishes")
	runCmd.Flags().Bool("hidden", false, "do not show the window while running")

	rootCmd.AddCommand(infoCmd, snapshotsCmd, newCmd, playCmd, runCmd)
}

// setup loads the configuration, installs the logger, opens the document
// store and starts the metrics endpoint.
func setup(cmd *cobra.Command, _ []string) error {
	teardown(cmd, nil)
	c, err := config.Load(configPath)
	if err != nil {
		return err
	}
	cfg = c
	vmix.SetLogger(newLogger(cmd.ErrOrStderr(), cfg.Log))

	opts, err := cfg.StoreOptions()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
	defer cancel()
	if docStore, err = store.Open(ctx, opts); err != nil {
		return err
	}
	if cfg.Metrics.Addr != "" {
		metrics = serveMetrics(cfg.Metrics.Addr)
	}
	return nil
}

func teardown(_ *cobra.Command, _ []string) {
	if metrics != nil {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		_ = metrics.Shutdown(ctx)
		cancel()
		metrics = nil
	}
	if docStore != nil {
		if err := docStore.Close(); err != nil {
			vmix.Logger().Warn("closing store", "error", err)
		}
		docStore = nil
	}
}

// newLogger builds the slog handler selected by the log section. The level
// is held in logLevel so configuration reloads can change it.
func newLogger(w io.Writer, lc config.LogConfig) *slog.Logger {
	logLevel.Set(parseLevel(lc.Level))
	hopts := &slog.HandlerOptions{Level: &logLevel}
	if lc.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, hopts))
	}
	return slog.New(slog.NewTextHandler(w, hopts))
}

func parseLevel(s string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.ToUpper(s))); err != nil {
		return slog.LevelInfo
	}
	return l
}

func serveMetrics(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			vmix.Logger().Error("metrics server", "addr", addr, "error", err)
		}
	}()
	vmix.Logger().Info("serving metrics", "addr", addr)
	return srv
}

// mixerOptions maps the configuration onto the mixer.
func mixerOptions(c *config.Config, st store.Store) vmix.MixerOptions {
	opts := vmix.DefaultMixerOptions()
	opts.Session = vmix.SessionConfig{
		Width:               c.Output.Width,
		Height:              c.Output.Height,
		ActivationThreshold: c.Mixing.ActivationThreshold,
	}
	opts.Store = st
	opts.PollTimeout = c.PollTimeout()
	opts.Thumbnails = c.Jobs.Thumbnails
	opts.ThumbnailTimeout = c.ThumbnailTimeout()
	opts.RestoreView = c.History.RestoreView
	opts.Viewport = vmix.Rect{Width: float64(c.Output.Width), Height: float64(c.Output.Height)}
	return opts
}

// readDocument fetches and parses key. A document from another major
// version is returned together with its warning.
func readDocument(ctx context.Context, key string) (*vmix.Document, store.Info, error) {
	info, err := docStore.Head(ctx, key)
	if err != nil {
		return nil, store.Info{}, fmt.Errorf("%s: %w", key, err)
	}
	data, err := docStore.Get(ctx, key)
	if err != nil {
		return nil, info, fmt.Errorf("%s: %w", key, err)
	}
	doc, err := vmix.ParseDocument(data, "")
	if doc == nil {
		return nil, info, fmt.Errorf("%s: %w", key, err)
	}
	if err != nil {
		vmix.Logger().Warn("document version", "key", key, "error", err)
	}
	return doc, info, nil
}
