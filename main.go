package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"takeout-migrator/internal/config"
	"takeout-migrator/internal/core/albums"
	"takeout-migrator/internal/core/extractor"
	"takeout-migrator/internal/core/merge"
	"takeout-migrator/internal/core/migrate"
	"takeout-migrator/internal/core/pairing"
	"takeout-migrator/internal/shared"
)

const toolVersion = "1.2.0"

var (
	configFile  string
	workDir     string
	outputDir   string
	parallelism int
	batchSize   int
	debug       bool
	noProgress  bool
)

var rootCmd = &cobra.Command{
	Use:     "takeout-migrator",
	Version: toolVersion,
	Short:   "Migrate photo-service export archives into another photo library.",
	Long: fmt.Sprintf(`Takeout Migrator (v%s)

Reads the archives a photo-sharing service exports, pairs every photo and
video with its JSON metadata sidecar, writes the sidecar's capture time,
GPS position and description back into the media files with exiftool, and
reconciles album membership from both the folder layout and the sidecars.

The result is a set of ready-to-upload media files plus a JSON report
mapping every file to its albums and merge outcome.`, toolVersion),
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// DEBUG=1 in the environment works like --debug
		if shared.IsDebugMode() {
			debug = true
		}
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate [archive...]",
	Short: "Run the full pipeline over one or more export archives.",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg := initConfig()
		warnings := shared.NewWarningCollector(cfg.WarningBehavior != "silent")
		if cfg.WarningBehavior == "immediate" {
			warnings.SetImmediate(true)
		}

		engine, err := merge.NewEngine(merge.Options{
			OutputDir:     cfg.OutputDir,
			SourceRoot:    cfg.WorkDir,
			IOParallelism: cfg.CopyParallelism(),
			Debug:         debug,
			Warnings:      warnings,
		})
		if err != nil {
			// Tool missing is the one condition fatal to the whole run
			shared.ColorError.Printf("❌ %v\n", err)
			os.Exit(1)
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		shared.ColorInfo.Printf("🚀 Migrating %d archive(s)...\n", len(args))
		m := migrate.NewMigrator(cfg, engine, warnings, debug, !noProgress)
		report, err := m.Run(ctx, args)
		if err != nil {
			shared.ColorError.Printf("❌ Migration aborted: %v\n", err)
			os.Exit(1)
		}

		reportPath := filepath.Join(cfg.WorkDir, migrate.ReportFileName)
		if err := report.Write(reportPath); err != nil {
			shared.ColorError.Printf("❌ Failed to write report: %v\n", err)
		} else {
			shared.ColorInfo.Println("📄 Report written to", reportPath)
		}

		if !cfg.KeepExtracted && cfg.OutputDir != "" {
			m.Cleanup(report)
		}

		printSummary(report)
		if cfg.WarningBehavior == "summary" {
			warnings.PrintSummary()
		}

		if ctx.Err() != nil {
			shared.ColorWarning.Println("⚠️ Run stopped before all files were processed.")
		}
	},
}

var extractCmd = &cobra.Command{
	Use:   "extract [archive]",
	Short: "Validate and unpack a single export archive.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg := initConfig()
		stem := shared.SanitizeFileName(filepath.Base(args[0]))
		dest := filepath.Join(cfg.WorkDir, stem+".extracted")
		shared.ColorInfo.Println("📦 Extracting", args[0])
		root, err := extractor.Extract(args[0], dest)
		if err != nil {
			shared.ColorError.Printf("❌ %v\n", err)
			os.Exit(1)
		}
		shared.ColorSuccess.Println("✅ Extracted to", root)
	},
}

var scanCmd = &cobra.Command{
	Use:   "scan [directory]",
	Short: "Inspect an extracted tree: media files, sidecar coverage, albums.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		warnings := shared.NewWarningCollector(true)

		index, err := pairing.BuildIndex(args[0])
		if err != nil {
			shared.ColorError.Printf("❌ Scan failed: %v\n", err)
			os.Exit(1)
		}

		resolver := albums.NewResolver(warnings, debug)
		resolver.FromLayout(index)
		resolver.FromSidecars(index)
		registry, _ := resolver.Merge()

		shared.ColorInfo.Printf("🔍 Scanned %s\n", args[0])
		fmt.Printf("  Media files:   %d\n", index.Len())
		fmt.Printf("  With sidecars: %d\n", index.WithSidecar())
		fmt.Printf("  Albums:        %d\n", len(registry))
		for name, members := range registry {
			fmt.Printf("    %s (%d files)\n", name, len(members))
		}
		if !merge.CheckExiftool() {
			shared.ColorWarning.Println("⚠️ exiftool not found in PATH; install it before running migrate.")
		}
		warnings.PrintSummary()
	},
}

// initConfig loads or interactively creates the configuration, then applies
// command-line flag overrides
func initConfig() *config.Config {
	cfg := config.GetDefaultConfig()

	if !shared.FileExists(configFile) {
		shared.ColorInfo.Println("✨ Welcome to Takeout Migrator! Let's set up your configuration.")

		cfg.WorkDir = shared.GetUserInput("Enter working directory for extraction", cfg.WorkDir)

		defaultParallelism := strconv.Itoa(cfg.ToolParallelism())
		parallelismStr := shared.GetUserInput("Enter number of parallel exiftool workers", defaultParallelism)
		if p, err := strconv.Atoi(parallelismStr); err == nil && p > 0 {
			cfg.Parallelism = p
		} else {
			shared.ColorWarning.Printf("⚠️ Invalid parallelism value '%s', using default %s.\n", parallelismStr, defaultParallelism)
		}

		if err := config.SaveConfig(configFile, cfg); err != nil {
			shared.ColorError.Printf("❌ Failed to save initial config: %v\n", err)
		} else {
			shared.ColorSuccess.Println("✅ Configuration saved to", configFile)
		}
	} else {
		if err := config.LoadConfig(configFile, cfg); err != nil {
			shared.ColorError.Printf("❌ Failed to load config from %s: %v\n", configFile, err)
		} else {
			shared.ColorInfo.Println("✅ Loaded configuration from", configFile)
		}
	}

	// Command-line flags override config file
	if workDir != "" {
		cfg.WorkDir = workDir
	}
	if outputDir != "" {
		cfg.OutputDir = outputDir
	}
	if parallelism > 0 {
		cfg.Parallelism = parallelism
	}
	if batchSize > 0 {
		cfg.BatchSize = batchSize
	}

	if err := cfg.Validate(); err != nil {
		shared.ColorError.Printf("❌ Invalid configuration: %v\n", err)
		os.Exit(1)
	}
	return cfg
}

func printSummary(report *migrate.Report) {
	s := report.Stats
	fmt.Println()
	shared.ColorInfo.Printf("📊 Processed %d files across %d album(s)\n", s.Processed, len(report.Albums))
	shared.ColorSuccess.Printf("   ✅ Merged:  %d\n", s.Merged)
	shared.ColorWarning.Printf("   ⭐ Skipped: %d\n", s.Skipped)
	if s.Failed > 0 {
		shared.ColorError.Printf("   ❌ Failed:  %d\n", s.Failed)
		for _, item := range s.FailedItems {
			shared.ColorError.Printf("      • %s\n", item)
		}
	}
	if len(report.FailedArchives) > 0 {
		shared.ColorError.Printf("   📦 Archives skipped: %d\n", len(report.FailedArchives))
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "config.json", "Path to the config file")
	rootCmd.PersistentFlags().StringVar(&workDir, "work-dir", "", "Working directory for extraction and reports")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")

	migrateCmd.Flags().StringVar(&outputDir, "output-dir", "", "Merge into copies under this directory instead of in place")
	migrateCmd.Flags().IntVar(&parallelism, "parallelism", 0, "Concurrent exiftool workers (0 = number of CPUs)")
	migrateCmd.Flags().IntVar(&batchSize, "batch-size", 0, "Files per merge batch")
	migrateCmd.Flags().BoolVar(&noProgress, "no-progress", false, "Disable the progress bar")

	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(extractCmd)
	rootCmd.AddCommand(scanCmd)
}

func main() {
	shared.InitializeColors()
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
