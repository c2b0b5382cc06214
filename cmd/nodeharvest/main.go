// Package main is the entry point for the nodeharvest application.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/tcmartin/nodeharvest/pkg/config"
	"github.com/tcmartin/nodeharvest/pkg/extractor"
	"github.com/tcmartin/nodeharvest/pkg/loader"
	"github.com/tcmartin/nodeharvest/pkg/logging"
	"github.com/tcmartin/nodeharvest/pkg/registry"
	"github.com/tcmartin/nodeharvest/pkg/staging"
	"github.com/tcmartin/nodeharvest/pkg/utils"
	"github.com/tcmartin/nodeharvest/pkg/webhooks"
)

var (
	// Global flags
	configPath string
	verbose    bool

	// Extract flags
	listFile          string
	outputDir         string
	registryURL       string
	loadTimeoutSecs   int
	webhookURL        string
	separateArtifacts bool

	cfg       *config.Config
	appLogger *slog.Logger
)

// Version information
const (
	AppVersion = "0.1.0"
	AppName    = "nodeharvest"
)

func main() {
	// Load environment variables from .env file
	_ = godotenv.Load()

	// Root command
	rootCmd := &cobra.Command{
		Use:   "nodeharvest",
		Short: "Community node metadata extractor",
		Long:  "Downloads community node packages, loads their node modules, and writes normalized node descriptions as JSON artifacts",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = loadConfig()
			if err != nil {
				return err
			}
			appLogger = logging.New(cfg.Logging, verbose)
			return nil
		},
		SilenceUsage: true,
	}

	// Add global flags
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	// Extract command
	extractCmd := &cobra.Command{
		Use:   "extract [package]...",
		Short: "Extract node descriptions from one or more packages",
		Long:  "Resolves each package against the registry, stages it with its dependencies, and extracts every declared node description. Multiple packages share one installation unless --separate is given.",
		Args:  cobra.ArbitraryArgs,
		RunE:  runExtract,
	}
	extractCmd.Flags().StringVarP(&listFile, "file", "f", "", "File with package specifiers, one per line or as a YAML list")
	extractCmd.Flags().StringVarP(&outputDir, "output", "o", "", "Directory for result artifacts")
	extractCmd.Flags().StringVar(&registryURL, "registry", "", "Package registry base URL")
	extractCmd.Flags().IntVar(&loadTimeoutSecs, "timeout", 0, "Per-module load timeout in seconds")
	extractCmd.Flags().StringVar(&webhookURL, "webhook-url", "", "URL to notify when the run completes")
	extractCmd.Flags().BoolVar(&separateArtifacts, "separate", false, "Extract each package in its own run with its own artifact")

	// Version command
	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s version %s\n", AppName, AppVersion)
		},
	}

	rootCmd.AddCommand(extractCmd, versionCmd)

	// Execute
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// runExtract drives an extraction run from the command line.
func runExtract(cmd *cobra.Command, args []string) error {
	specs, err := gatherSpecifiers(args, listFile)
	if err != nil {
		return err
	}
	if len(specs) == 0 {
		return fmt.Errorf("no packages specified; pass specifiers as arguments or use --file")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ext := buildExtractor()
	dir := outputDir
	if dir == "" {
		dir = cfg.Output.Directory
	}
	out := cmd.OutOrStdout()

	if len(specs) > 1 && !separateArtifacts {
		return extractTogether(ctx, ext, specs, dir, out)
	}
	return extractSeparately(ctx, ext, specs, dir, out)
}

// extractTogether stages all packages in one shared installation and
// writes a single combined artifact.
func extractTogether(ctx context.Context, ext *extractor.Extractor, specs []string, dir string, out io.Writer) error {
	res, err := ext.ExtractPackages(ctx, specs)
	if err != nil {
		return err
	}

	artifact, err := extractor.WriteMultiResult(dir, res)
	if err != nil {
		return err
	}

	extractor.PrintMultiSummary(out, res)
	fmt.Fprintf(out, "\nResult written to %s\n", artifact)

	notifyWebhook(ctx, webhooks.Event{
		RunID:         res.RunID,
		Artifact:      artifact,
		TotalPackages: res.TotalPackages,
		TotalNodes:    res.TotalNodes,
		Data:          map[string]any{"result": res},
	})
	return nil
}

// extractSeparately runs each package as its own extraction with its
// own artifact. A failed package does not stop the others; the run
// fails only when no package succeeds.
func extractSeparately(ctx context.Context, ext *extractor.Extractor, specs []string, dir string, out io.Writer) error {
	succeeded := 0
	for _, spec := range specs {
		res, err := ext.ExtractPackage(ctx, spec)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			appLogger.Error("extraction failed", "package", spec, "error", err)
			continue
		}

		artifact, err := extractor.WriteResult(dir, res)
		if err != nil {
			appLogger.Error("failed to write artifact", "package", spec, "error", err)
			continue
		}
		succeeded++

		extractor.PrintSummary(out, res)
		fmt.Fprintf(out, "Result written to %s\n\n", artifact)

		notifyWebhook(ctx, webhooks.Event{
			RunID:      res.RunID,
			Artifact:   artifact,
			TotalNodes: res.TotalNodes,
			Data:       map[string]any{"result": res},
		})
	}

	if succeeded == 0 {
		return fmt.Errorf("all %d packages failed to extract", len(specs))
	}
	return nil
}

// notifyWebhook delivers the completion event when a webhook is
// configured. Delivery failures are logged, never fatal.
func notifyWebhook(ctx context.Context, event webhooks.Event) {
	url := webhookURL
	if url == "" {
		url = cfg.Webhook.URL
	}
	if url == "" {
		return
	}

	dispatcher := webhooks.NewHTTPDispatcher(webhooks.WebhookConfig{
		URL:     url,
		Headers: cfg.Webhook.Headers,
		Secret:  cfg.Webhook.Secret,
		RetryConfig: webhooks.RetryConfig{
			MaxRetries: cfg.Webhook.MaxRetries,
		},
	}, appLogger)

	if err := dispatcher.SendExtractionCompleted(ctx, event); err != nil {
		appLogger.Warn("webhook notification failed", "url", url, "error", err)
	}
}

// buildExtractor assembles the pipeline from configuration and flags.
func buildExtractor() *extractor.Extractor {
	baseURL := registryURL
	if baseURL == "" {
		baseURL = cfg.Registry.BaseURL
	}
	client := registry.NewClient(baseURL, appLogger)
	if cfg.Registry.TimeoutSeconds > 0 {
		client.SetTimeout(time.Duration(cfg.Registry.TimeoutSeconds) * time.Second)
	}

	stager := staging.NewStager(cfg.Staging.InstallCommand, appLogger)
	stager.SetCorePackages(cfg.Staging.CorePackages)

	timeoutSecs := loadTimeoutSecs
	if timeoutSecs <= 0 {
		timeoutSecs = cfg.Loader.LoadTimeoutSeconds
	}

	return extractor.New(extractor.Options{
		Registry: client,
		Stager:   stager,
		Locator:  loader.NewLocator(appLogger),
		Modules:  loader.NewModuleLoader(time.Duration(timeoutSecs)*time.Second, appLogger),
		Logger:   appLogger,
	})
}

// gatherSpecifiers merges command-line specifiers with the contents of
// an optional list file. Comma-separated arguments are split.
func gatherSpecifiers(args []string, file string) ([]string, error) {
	var specs []string
	for _, arg := range args {
		for _, part := range strings.Split(arg, ",") {
			part = strings.TrimSpace(part)
			if part != "" {
				specs = append(specs, part)
			}
		}
	}

	if file != "" {
		fromFile, err := utils.ReadStringList(file)
		if err != nil {
			return nil, err
		}
		specs = append(specs, fromFile...)
	}

	return specs, nil
}

// loadConfig loads the configuration from the specified path or from
// standard locations, falling back to defaults.
func loadConfig() (*config.Config, error) {
	var loaded *config.Config

	// If a config path is specified, load it
	if configPath != "" {
		var err error
		loaded, err = config.LoadConfig(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config from %s: %w", configPath, err)
		}
	} else {
		// Otherwise, look for a config file in standard locations
		locations := []string{
			"./nodeharvest.json",
			filepath.Join(os.Getenv("HOME"), ".nodeharvest", "config.json"),
			"/etc/nodeharvest/config.json",
		}

		for _, path := range locations {
			if fromFile, err := config.LoadConfig(path); err == nil {
				loaded = fromFile
				break
			}
		}

		if loaded == nil {
			loaded = config.DefaultConfig()
		}
	}

	// Override with environment variables if present
	overrideConfigFromEnv(loaded)

	return loaded, nil
}

// overrideConfigFromEnv overrides configuration values from environment variables
func overrideConfigFromEnv(cfg *config.Config) {
	if baseURL := os.Getenv("NODEHARVEST_REGISTRY_URL"); baseURL != "" {
		cfg.Registry.BaseURL = baseURL
	}
	if dir := os.Getenv("NODEHARVEST_OUTPUT_DIR"); dir != "" {
		cfg.Output.Directory = dir
	}
	if command := os.Getenv("NODEHARVEST_INSTALL_COMMAND"); command != "" {
		cfg.Staging.InstallCommand = strings.Fields(command)
	}
	if timeout := os.Getenv("NODEHARVEST_LOAD_TIMEOUT"); timeout != "" {
		if secs, err := strconv.Atoi(timeout); err == nil {
			cfg.Loader.LoadTimeoutSeconds = secs
		}
	}
	if url := os.Getenv("NODEHARVEST_WEBHOOK_URL"); url != "" {
		cfg.Webhook.URL = url
	}
	if secret := os.Getenv("NODEHARVEST_WEBHOOK_SECRET"); secret != "" {
		cfg.Webhook.Secret = secret
	}
	if level := os.Getenv("NODEHARVEST_LOG_LEVEL"); level != "" {
		cfg.Logging.Level = level
	}
}
