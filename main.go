package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/openclaw/qrstudio/api"
	"github.com/openclaw/qrstudio/config"
	"github.com/openclaw/qrstudio/widget"
)

var version = "v0.1.0"

func main() {
	root := &cobra.Command{
		Use:   "qrstudio",
		Short: "Interactive QR code generator",
	}

	// --- serve command -------------------------------------------------------
	var configPath string
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the QR generator web UI",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(configPath)
		},
	}
	serveCmd.Flags().StringVarP(&configPath, "config", "c", "config.yaml", "Path to config file")
	root.AddCommand(serveCmd)

	// --- render command ------------------------------------------------------
	defaults := widget.DefaultDisplayConfig()
	var (
		renderText, renderBg, renderFg, renderOut string
		renderSize                                string
	)
	renderCmd := &cobra.Command{
		Use:   "render",
		Short: "Render a QR code and save it as qr-code.png",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRender(cmd.OutOrStdout(), renderText, renderSize, renderBg, renderFg, renderOut)
		},
	}
	renderCmd.Flags().StringVarP(&renderText, "text", "t", defaults.PayloadText, "Text or URL to encode")
	renderCmd.Flags().StringVarP(&renderSize, "size", "s", fmt.Sprint(defaults.PixelSize), "Image size in pixels (100-400)")
	renderCmd.Flags().StringVar(&renderBg, "bg", defaults.BackgroundColor, "Background color")
	renderCmd.Flags().StringVar(&renderFg, "fg", defaults.ForegroundColor, "Foreground color")
	renderCmd.Flags().StringVarP(&renderOut, "out", "o", ".", "Output directory")
	root.AddCommand(renderCmd)

	// --- status command ------------------------------------------------------
	var statusAddr string
	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Check a running server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(cmd.OutOrStdout(), statusAddr)
		},
	}
	statusCmd.Flags().StringVar(&statusAddr, "addr", "http://localhost:8556", "Server HTTP address")
	root.AddCommand(statusCmd)

	// --- version command -----------------------------------------------------
	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("qrstudio %s\n", version)
		},
	})

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// runServe is the main service entrypoint that wires all components together.
func runServe(configPath string) error {
	// 1. Load config
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// 2. Setup logger
	log := newLogger(cfg.LogLevel)
	slog.SetDefault(log)

	log.Info("starting qrstudio", "version", version, "port", cfg.Port)

	// 3. View registry and sweeper
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	views := widget.NewRegistry(cfg.DisplayDefaults(), cfg.ViewLimits(), log)
	widget.StartSweeper(ctx, views, cfg.SweepInterval.Duration, log)

	// 4. Start HTTP server
	srv := &http.Server{
		Addr: fmt.Sprintf(":%d", cfg.Port),
		Handler: api.NewRouter(&api.Server{
			Views:     views,
			Log:       log,
			Version:   version,
			StartTime: time.Now(),
		}),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Info("HTTP server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	log.Info("generator is running", "url", fmt.Sprintf("http://localhost:%d/", cfg.Port))

	// 5. Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", "error", err)
	}

	log.Info("goodbye")
	return nil
}

// runRender drives a single view headlessly and saves its export.
func runRender(out io.Writer, text, size, bg, fg, dir string) error {
	px, err := widget.CoerceSize(size)
	if err != nil {
		return err
	}

	v := widget.NewView(widget.DisplayConfig{
		PayloadText:     text,
		PixelSize:       px,
		BackgroundColor: bg,
		ForegroundColor: fg,
	})
	if p := v.Preview(); p.Err != nil {
		return fmt.Errorf("render: %w", p.Err)
	}

	d, ok := v.Export()
	if !ok {
		fmt.Fprintln(out, "Nothing to export: text is empty.")
		return nil
	}
	path, err := widget.SaveDownload(dir, d)
	if err != nil {
		return fmt.Errorf("save: %w", err)
	}
	fmt.Fprintf(out, "Saved %s (%d bytes)\n", path, len(d.Data))
	return nil
}

// runStatus queries the server HTTP status endpoint.
func runStatus(out io.Writer, addr string) error {
	resp, err := http.Get(addr + "/status")
	if err != nil {
		return fmt.Errorf("failed to reach server at %s: %w", addr, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading status response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("server at %s returned %s: %s", addr, resp.Status, strings.TrimSpace(string(body)))
	}
	fmt.Fprintln(out, strings.TrimSpace(string(body)))
	return nil
}

func newLogger(level string) *slog.Logger {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
}
