package cmd

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"
	"github.com/streed/synapse/internal/config"
	"github.com/streed/synapse/internal/logger"
	"github.com/streed/synapse/internal/metrics"
	"github.com/streed/synapse/internal/services"
)

// Command annotations controlling what the root pre-run opens.
const (
	annotationSkipConfig   = "synapse/skip-config"
	annotationSkipServices = "synapse/skip-services"
)

var (
	svc            *services.Services
	appConfig      *config.Config
	metricsHandler http.Handler
	debugFlag      bool
	configFlag     string
	Version        = "dev" // Version is set from main.go
)

var rootCmd = &cobra.Command{
	Use:     "synapse",
	Short:   "A knowledge base that stores notes in a graph and searches them by meaning",
	Version: Version,
	Long: `synapse stores notes in a graph store and indexes their embeddings in a
vector store, so notes can be related to each other and found by semantic
similarity.

First time users should run 'synapse init' to set up the configuration.`,
	SilenceUsage:       true,
	SilenceErrors:      true,
	PersistentPreRunE:  setup,
	PersistentPostRunE: teardown,
}

func Execute() error {
	rootCmd.Version = Version
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debugFlag, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&configFlag, "config", "", "Path to the config file (default $XDG_CONFIG_HOME/synapse/config.json)")
}

// configPath resolves the --config flag against the default location.
func configPath() (string, error) {
	if configFlag != "" {
		return expandPath(configFlag), nil
	}
	return config.GetConfigPath()
}

func setup(cmd *cobra.Command, _ []string) error {
	if debugFlag {
		logger.SetDebugMode(true)
	}
	if cmd.Annotations[annotationSkipConfig] != "" || isBuiltin(cmd) {
		return nil
	}

	path, err := configPath()
	if err != nil {
		return err
	}
	appConfig, err = config.LoadFrom(path)
	if err != nil {
		return fmt.Errorf("error loading configuration: %w\nPlease run 'synapse init' to set up the configuration", err)
	}

	if debugFlag || appConfig.Debug {
		logger.SetDebugMode(true)
		logger.Debug("Configuration loaded from: %s", path)
		logger.Debug("Data directory: %s", appConfig.DataDirectory)
		logger.Debug("Graph backend: %s", appConfig.GraphBackend)
		logger.Debug("Embedding provider: %s (%s)", appConfig.EmbeddingProvider, appConfig.EmbeddingModel)
		logger.Debug("Vector dimensions: %d", appConfig.VectorDimensions)
	}

	if appConfig.EnableMetrics {
		metricsHandler = metrics.EnablePrometheus().Handler()
	}

	if cmd.Annotations[annotationSkipServices] != "" {
		return nil
	}
	svc, err = services.Open(cmd.Context(), appConfig)
	if err != nil {
		return fmt.Errorf("error initializing storage: %w", err)
	}
	return nil
}

// isBuiltin reports cobra's own help and completion commands.
func isBuiltin(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Name() == "help" || c.Name() == "completion" {
			return true
		}
	}
	return false
}

func teardown(_ *cobra.Command, _ []string) error {
	if svc == nil {
		return nil
	}
	err := svc.Close()
	svc = nil
	return err
}
