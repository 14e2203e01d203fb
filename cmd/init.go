package cmd

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/streed/synapse/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize synapse configuration",
	Long: `Initialize synapse configuration interactively or with flags.
This command writes the configuration file and creates the data directory.`,
	Args:        cobra.NoArgs,
	Annotations: map[string]string{annotationSkipConfig: "true"},
	RunE:        runInit,
}

var (
	initDataDir     string
	initProvider    string
	initAPIKey      string
	initInteractive bool
	initForce       bool
)

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().StringVar(&initDataDir, "data-dir", "", "Data directory for the graph and vector databases")
	initCmd.Flags().StringVar(&initProvider, "provider", "", "Embedding provider: hash, ollama, openai or gemini")
	initCmd.Flags().StringVar(&initAPIKey, "api-key", "", "API key for the openai or gemini provider")
	initCmd.Flags().BoolVarP(&initInteractive, "interactive", "i", false, "Run interactive setup")
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "Overwrite an existing configuration without asking")
}

func runInit(cmd *cobra.Command, _ []string) error {
	path, err := configPath()
	if err != nil {
		return fmt.Errorf("failed to get config path: %w", err)
	}

	out := cmd.OutOrStdout()
	reader := bufio.NewReader(cmd.InOrStdin())

	if _, err := os.Stat(path); err == nil && !initForce {
		fmt.Fprintf(out, "Configuration already exists at: %s\n", path)
		fmt.Fprint(out, "Do you want to overwrite it? (y/N): ")

		response, _ := reader.ReadString('\n')
		response = strings.TrimSpace(strings.ToLower(response))
		if response != "y" && response != "yes" {
			fmt.Fprintln(out, "Configuration initialization cancelled.")
			return nil
		}
	}

	if initInteractive {
		fmt.Fprintln(out, "=== Synapse Configuration Setup ===")
		fmt.Fprintln(out)

		defaultDataDir := config.GetDefaultDataDirectory()
		fmt.Fprintf(out, "Data directory [%s]: ", defaultDataDir)
		input, _ := reader.ReadString('\n')
		if input = strings.TrimSpace(input); input != "" {
			initDataDir = input
		}

		fmt.Fprintf(out, "Embedding provider (hash, ollama, openai, gemini) [%s]: ", config.ProviderHash)
		input, _ = reader.ReadString('\n')
		if input = strings.TrimSpace(input); input != "" {
			initProvider = input
		}
	}

	dataDir := initDataDir
	if dataDir != "" {
		dataDir = expandPath(dataDir)
	}

	cfg, err := config.InitializeConfig(path, dataDir, "")
	if err != nil {
		return fmt.Errorf("failed to initialize configuration: %w", err)
	}
	if err := applyProvider(cfg, initProvider, initAPIKey); err != nil {
		return err
	}

	fmt.Fprintln(out, "\n=== Configuration Summary ===")
	fmt.Fprintf(out, "Config file:          %s\n", cfg.Path())
	fmt.Fprintf(out, "Data directory:       %s\n", cfg.DataDirectory)
	fmt.Fprintf(out, "Graph backend:        %s\n", cfg.GraphBackend)
	fmt.Fprintf(out, "Graph database:       %s\n", cfg.GetGraphDatabasePath())
	fmt.Fprintf(out, "Vector database:      %s\n", cfg.GetVectorDatabasePath())
	fmt.Fprintf(out, "Embedding provider:   %s\n", cfg.EmbeddingProvider)
	fmt.Fprintf(out, "Embedding model:      %s\n", cfg.EmbeddingModel)
	fmt.Fprintf(out, "Vector dimensions:    %d\n", cfg.VectorDimensions)

	fmt.Fprintln(out, "\nConfiguration initialized successfully!")
	if cfg.EmbeddingProvider == config.ProviderOllama {
		fmt.Fprintf(out, "Make sure Ollama is running at %s with the model installed:\n", cfg.OllamaEndpoint)
		fmt.Fprintf(out, "  ollama pull %s\n", cfg.EmbeddingModel)
	}
	return nil
}

// applyProvider switches cfg to provider, storing apiKey first so the
// provider validates, and saves it.
func applyProvider(cfg *config.Config, provider, apiKey string) error {
	if provider == "" || provider == cfg.EmbeddingProvider {
		return nil
	}
	if apiKey != "" {
		if _, err := cfg.Set(provider+"_api_key", apiKey); err != nil {
			return err
		}
	}
	if _, err := cfg.Set("embedding_provider", provider); err != nil {
		return fmt.Errorf("failed to set provider: %w", err)
	}
	cfg.VectorConfigVersion = cfg.GetVectorConfigHash()
	return config.Save(cfg)
}

func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err == nil {
			path = filepath.Join(homeDir, path[2:])
		}
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	return absPath
}
