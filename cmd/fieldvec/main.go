// Package main provides the fieldvec binary entry point.
// fieldvec turns JSON documents into sparse feature rows using per-field
// vectorizer rules read from a YAML config.
package main

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"fieldvec/internal/analyzer"
	"fieldvec/internal/composite"
	"fieldvec/internal/config"
	"fieldvec/internal/service"
	"fieldvec/internal/tui"
)

const (
	Version = "0.1.0"
	appName = "fieldvec"
)

type globalFlags struct {
	configPath  string
	logLevel    string
	metricsAddr string
}

func main() {
	_ = godotenv.Load()

	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	g := &globalFlags{}
	cmd := &cobra.Command{
		Use:           appName,
		Short:         "Turn structured documents into sparse feature rows",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			setupLogging(g.logLevel)
			serveMetrics(g.metricsAddr)
		},
	}
	cmd.PersistentFlags().StringVarP(&g.configPath, "config", "c", "", "Path to YAML config file (uses ./fieldvec.yaml or ~/.config/fieldvec/config.yaml if not provided)")
	cmd.PersistentFlags().StringVar(&g.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().StringVar(&g.metricsAddr, "metrics-addr", "", "Serve prometheus metrics on this address, e.g. :9090")

	cmd.AddCommand(transformCmd(g), featuresCmd(g), inspectCmd(g))
	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("%s version %s\n", appName, Version)
		},
	})
	return cmd
}

func transformCmd(g *globalFlags) *cobra.Command {
	var fitPatterns []string
	cmd := &cobra.Command{
		Use:   "transform [flags] input...",
		Short: "Write one JSON line of features per input document",
		Long: `Reads .json, .jsonl and .ndjson inputs (glob patterns with ** are allowed)
and writes {"id": ..., "features": {...}} per document to stdout.
Without --fit the inputs themselves are used to fit the vectorizers.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newService(g)
			if err != nil {
				return err
			}
			if len(fitPatterns) > 0 {
				if err := svc.Fit(fitPatterns); err != nil {
					return fmt.Errorf("fit: %w", err)
				}
				if _, err := svc.Transform(args); err != nil {
					return fmt.Errorf("transform: %w", err)
				}
			} else if _, err := svc.Ingest(args); err != nil {
				return fmt.Errorf("fit transform: %w", err)
			}
			slog.Info(svc.Summary())
			return svc.WriteRows(cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringSliceVar(&fitPatterns, "fit", nil, "Fit on these inputs instead of the transformed ones")
	return cmd
}

func featuresCmd(g *globalFlags) *cobra.Command {
	var noPrefix bool
	cmd := &cobra.Command{
		Use:   "features input...",
		Short: "Fit on the inputs and print the feature names in column order",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(g)
			if err != nil {
				return err
			}
			v, err := buildVectorizer(cfg)
			if err != nil {
				return err
			}
			svc := service.NewFeatureService(v, slog.Default())
			if err := svc.Fit(args); err != nil {
				return err
			}
			names, err := v.FeatureNames(!noPrefix)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, n := range names {
				fmt.Fprintln(out, n)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&noPrefix, "no-prefix", false, "Print bare feature names without the rule prefix")
	return cmd
}

func inspectCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect input...",
		Short: "Browse per-document features interactively",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newService(g)
			if err != nil {
				return err
			}
			summary, err := svc.Ingest(args)
			if err != nil {
				return fmt.Errorf("ingest: %w", err)
			}
			_, err = tea.NewProgram(tui.New(svc, summary)).Run()
			return err
		},
	}
}

func newService(g *globalFlags) (*service.FeatureService, error) {
	cfg, err := loadConfig(g)
	if err != nil {
		return nil, err
	}
	v, err := buildVectorizer(cfg)
	if err != nil {
		return nil, err
	}
	return service.NewFeatureService(v, slog.Default()), nil
}

func loadConfig(g *globalFlags) (*config.AppConfig, error) {
	var (
		cfg  *config.AppConfig
		path string
		err  error
	)
	if g.configPath == "" {
		cfg, path, err = config.LoadDefault()
	} else {
		path = g.configPath
		cfg, err = config.Load(path)
	}
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	slog.Debug("config loaded", "path", path, "rules", len(cfg.Rules))
	return cfg, nil
}

func buildVectorizer(cfg *config.AppConfig) (*composite.Vectorizer, error) {
	resolver := analyzer.NewResolver(analyzer.Config{
		APIKeyEnv:  cfg.Analyzer.APIKeyEnv,
		Timeout:    time.Duration(cfg.Analyzer.TimeoutSecs) * time.Second,
		MaxRetries: cfg.Analyzer.MaxRetries,
		Logger:     slog.Default(),
	})
	v, err := composite.FromConfig(cfg, resolver, slog.Default())
	if err != nil {
		return nil, fmt.Errorf("build rules: %w", err)
	}
	return v, nil
}

func setupLogging(logLevel string) {
	level := slog.LevelInfo
	switch strings.ToLower(logLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
}

func serveMetrics(addr string) {
	if addr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics server stopped", "addr", addr, "error", err)
		}
	}()
	slog.Info("serving metrics", "addr", addr)
}
