package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/streed/synapse/internal/config"
	"gopkg.in/yaml.v3"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage synapse configuration",
	Long:  `View and manage synapse configuration settings.`,
}

var configShowCmd = &cobra.Command{
	Use:         "show",
	Short:       "Show current configuration",
	Long:        `Display the effective configuration, including SYNAPSE_* environment overrides. Secrets are masked.`,
	Args:        cobra.NoArgs,
	Annotations: map[string]string{annotationSkipServices: "true"},
	RunE:        runConfigShow,
}

var configPathCmd = &cobra.Command{
	Use:         "path",
	Short:       "Show configuration file path",
	Args:        cobra.NoArgs,
	Annotations: map[string]string{annotationSkipConfig: "true"},
	RunE:        runConfigPath,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long: `Set a configuration value and save the config file.

Available keys:
  - data_directory: Directory holding graph.db, vectors.db and the embedding cache
  - graph_backend: sqlite or neo4j
  - graph_database_path, vector_database_path: Override the database locations
  - neo4j_uri, neo4j_user, neo4j_password, neo4j_database
  - embedding_provider: hash, ollama, openai or gemini
  - embedding_model: Model name for the provider
  - vector_dimensions: Number of vector dimensions
  - embedding_cache: Cache embeddings on disk (true/false)
  - ollama_endpoint, openai_api_key, openai_base_url, gemini_api_key
  - host, port: Default address for 'synapse serve'
  - enable_metrics: Serve Prometheus metrics at /metrics (true/false)
  - debug: Enable debug logging (true/false)

Changing the provider, model or dimensions requires 'synapse reindex'.`,
	Args:        cobra.ExactArgs(2),
	Annotations: map[string]string{annotationSkipServices: "true"},
	RunE:        runConfigSet,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configPathCmd)
	configCmd.AddCommand(configSetCmd)
}

func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 4 {
		return "****"
	}
	return strings.Repeat("*", 8) + s[len(s)-4:]
}

// configView is the YAML rendering of cfg with secrets masked.
func configView(cfg *config.Config) map[string]any {
	return map[string]any{
		"config_file":           cfg.Path(),
		"data_directory":        cfg.DataDirectory,
		"graph_backend":         cfg.GraphBackend,
		"graph_database_path":   cfg.GetGraphDatabasePath(),
		"vector_database_path":  cfg.GetVectorDatabasePath(),
		"neo4j_uri":             cfg.Neo4jURI,
		"neo4j_user":            cfg.Neo4jUser,
		"neo4j_password":        maskSecret(cfg.Neo4jPassword),
		"neo4j_database":        cfg.Neo4jDatabase,
		"embedding_provider":    cfg.EmbeddingProvider,
		"embedding_model":       cfg.EmbeddingModel,
		"vector_dimensions":     cfg.VectorDimensions,
		"vector_config_version": cfg.VectorConfigVersion,
		"embedding_cache":       cfg.EmbeddingCache,
		"ollama_endpoint":       cfg.OllamaEndpoint,
		"openai_api_key":        maskSecret(cfg.OpenAIAPIKey),
		"openai_base_url":       cfg.OpenAIBaseURL,
		"gemini_api_key":        maskSecret(cfg.GeminiAPIKey),
		"host":                  cfg.Host,
		"port":                  cfg.Port,
		"enable_metrics":        cfg.EnableMetrics,
		"debug":                 cfg.Debug,
	}
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	data, err := yaml.Marshal(configView(appConfig))
	if err != nil {
		return fmt.Errorf("failed to render configuration: %w", err)
	}
	_, err = cmd.OutOrStdout().Write(data)
	return err
}

func runConfigPath(cmd *cobra.Command, _ []string) error {
	path, err := configPath()
	if err != nil {
		return fmt.Errorf("failed to get config path: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), path)
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	key, value := args[0], args[1]
	if strings.ReplaceAll(key, "-", "_") == "data_directory" || key == "data-dir" {
		value = expandPath(value)
	}

	needsReindex, err := appConfig.Set(key, value)
	if err != nil {
		return err
	}
	if err := config.Save(appConfig); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}

	shown := value
	if strings.HasSuffix(key, "key") || strings.HasSuffix(key, "password") {
		shown = maskSecret(value)
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Configuration updated: %s = %s\n", key, shown)
	if needsReindex {
		fmt.Fprintln(out, "\nThe embedding configuration changed. Run 'synapse reindex' to update all embeddings.")
	}
	return nil
}
