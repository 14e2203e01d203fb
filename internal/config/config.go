package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/viper"
	"github.com/streed/synapse/internal/constants"
	interrors "github.com/streed/synapse/internal/errors"
)

const (
	GraphBackendSQLite = "sqlite"
	GraphBackendNeo4j  = "neo4j"

	ProviderHash   = "hash"
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"

	envPrefix = "SYNAPSE"
)

type Config struct {
	DataDirectory      string `json:"data_directory" mapstructure:"data_directory"`
	GraphBackend       string `json:"graph_backend" mapstructure:"graph_backend"`
	GraphDatabasePath  string `json:"graph_database_path,omitempty" mapstructure:"graph_database_path"`
	VectorDatabasePath string `json:"vector_database_path,omitempty" mapstructure:"vector_database_path"`

	Neo4jURI      string `json:"neo4j_uri" mapstructure:"neo4j_uri"`
	Neo4jUser     string `json:"neo4j_user" mapstructure:"neo4j_user"`
	Neo4jPassword string `json:"neo4j_password,omitempty" mapstructure:"neo4j_password"`
	Neo4jDatabase string `json:"neo4j_database" mapstructure:"neo4j_database"`

	EmbeddingProvider   string `json:"embedding_provider" mapstructure:"embedding_provider"`
	EmbeddingModel      string `json:"embedding_model" mapstructure:"embedding_model"`
	VectorDimensions    int    `json:"vector_dimensions" mapstructure:"vector_dimensions"`
	VectorConfigVersion string `json:"vector_config_version,omitempty" mapstructure:"vector_config_version"`
	EmbeddingCache      bool   `json:"embedding_cache" mapstructure:"embedding_cache"`
	OllamaEndpoint      string `json:"ollama_endpoint" mapstructure:"ollama_endpoint"`
	OpenAIAPIKey        string `json:"openai_api_key,omitempty" mapstructure:"openai_api_key"`
	OpenAIBaseURL       string `json:"openai_base_url,omitempty" mapstructure:"openai_base_url"`
	GeminiAPIKey        string `json:"gemini_api_key,omitempty" mapstructure:"gemini_api_key"`

	Host          string `json:"host" mapstructure:"host"`
	Port          int    `json:"port" mapstructure:"port"`
	EnableMetrics bool   `json:"enable_metrics" mapstructure:"enable_metrics"`
	Debug         bool   `json:"debug" mapstructure:"debug"`

	path string
}

// getDefaultConfig returns a fresh copy of the default configuration
func getDefaultConfig() Config {
	return Config{
		DataDirectory:     "", // Will be set to ~/.local/share/synapse
		GraphBackend:      GraphBackendSQLite,
		Neo4jURI:          "bolt://localhost:7687",
		Neo4jUser:         "neo4j",
		Neo4jDatabase:     "neo4j",
		EmbeddingProvider: ProviderHash,
		EmbeddingModel:    "nomic-embed-text",
		VectorDimensions:  constants.DefaultDimensions,
		EmbeddingCache:    false,
		OllamaEndpoint:    "http://localhost:11434",
		Host:              "localhost",
		Port:              5000,
		EnableMetrics:     false,
		Debug:             false,
	}
}

// setDefaults registers every key with viper so environment overrides are
// picked up by Unmarshal.
func setDefaults(v *viper.Viper) {
	d := getDefaultConfig()
	v.SetDefault("data_directory", d.DataDirectory)
	v.SetDefault("graph_backend", d.GraphBackend)
	v.SetDefault("graph_database_path", "")
	v.SetDefault("vector_database_path", "")
	v.SetDefault("neo4j_uri", d.Neo4jURI)
	v.SetDefault("neo4j_user", d.Neo4jUser)
	v.SetDefault("neo4j_password", "")
	v.SetDefault("neo4j_database", d.Neo4jDatabase)
	v.SetDefault("embedding_provider", d.EmbeddingProvider)
	v.SetDefault("embedding_model", d.EmbeddingModel)
	v.SetDefault("vector_dimensions", d.VectorDimensions)
	v.SetDefault("vector_config_version", "")
	v.SetDefault("embedding_cache", d.EmbeddingCache)
	v.SetDefault("ollama_endpoint", d.OllamaEndpoint)
	v.SetDefault("openai_api_key", "")
	v.SetDefault("openai_base_url", "")
	v.SetDefault("gemini_api_key", "")
	v.SetDefault("host", d.Host)
	v.SetDefault("port", d.Port)
	v.SetDefault("enable_metrics", d.EnableMetrics)
	v.SetDefault("debug", d.Debug)
}

func GetConfigPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get config directory: %w", err)
	}
	return filepath.Join(configDir, "synapse", "config.json"), nil
}

func GetDefaultDataDirectory() string {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return filepath.Join(".", ".synapse")
		}
		dataDir = filepath.Join(homeDir, ".local", "share")
	}
	return filepath.Join(dataDir, "synapse")
}

// Load reads the config file at the default location.
func Load() (*Config, error) {
	configPath, err := GetConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFrom(configPath)
}

// LoadFrom reads configuration from path (a missing file means defaults)
// with SYNAPSE_* environment overrides.
func LoadFrom(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if _, err := os.Stat(configPath); err == nil {
		v.SetConfigFile(configPath)
		v.SetConfigType("json")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.path = configPath
	cfg.applyDerivedDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDerivedDefaults() {
	if c.DataDirectory == "" {
		c.DataDirectory = GetDefaultDataDirectory()
	}
	if c.VectorDimensions == 0 {
		c.VectorDimensions = constants.DefaultDimensions
	}
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error

	switch c.GraphBackend {
	case GraphBackendSQLite:
	case GraphBackendNeo4j:
		if c.Neo4jURI == "" {
			errs = append(errs, fmt.Errorf("config: neo4j_uri must be set when graph_backend is neo4j"))
		}
	default:
		errs = append(errs, fmt.Errorf("config: graph_backend must be one of [sqlite, neo4j], got %q", c.GraphBackend))
	}

	switch c.EmbeddingProvider {
	case ProviderHash, ProviderOllama:
	case ProviderOpenAI:
		if c.OpenAIAPIKey == "" {
			errs = append(errs, fmt.Errorf("config: openai_api_key must be set when embedding_provider is openai"))
		}
	case ProviderGemini:
		if c.GeminiAPIKey == "" {
			errs = append(errs, fmt.Errorf("config: gemini_api_key must be set when embedding_provider is gemini"))
		}
	default:
		errs = append(errs, fmt.Errorf("config: embedding_provider must be one of [hash, ollama, openai, gemini], got %q", c.EmbeddingProvider))
	}

	if c.VectorDimensions < 0 {
		errs = append(errs, fmt.Errorf("%w: %d", interrors.ErrInvalidDimensions, c.VectorDimensions))
	}
	if c.Port < 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("config: port must be between 0 and 65535, got %d", c.Port))
	}

	return errors.Join(errs...)
}

// Save writes cfg back to the file it was loaded from, or the default path.
func Save(cfg *Config) error {
	configPath := cfg.path
	if configPath == "" {
		var err error
		configPath, err = GetConfigPath()
		if err != nil {
			return err
		}
	}

	// Create config directory if it doesn't exist
	if err := os.MkdirAll(filepath.Dir(configPath), constants.DataDirMode); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Create data directory if it doesn't exist
	if cfg.DataDirectory != "" {
		if err := os.MkdirAll(cfg.DataDirectory, constants.DataDirMode); err != nil {
			return fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// Write config file with secure permissions
	if err := os.WriteFile(configPath, data, constants.ConfigFileMode); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	cfg.path = configPath
	return nil
}

// InitializeConfig writes a fresh configuration with the given overrides to
// configPath, or the default location when configPath is empty.
func InitializeConfig(configPath, dataDir, provider string) (*Config, error) {
	cfg := getDefaultConfig()
	cfg.path = configPath

	if dataDir != "" {
		cfg.DataDirectory = dataDir
	} else {
		cfg.DataDirectory = GetDefaultDataDirectory()
	}
	if provider != "" {
		cfg.EmbeddingProvider = provider
	}
	cfg.VectorConfigVersion = cfg.GetVectorConfigHash()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := Save(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Path returns the file this configuration was loaded from or saved to.
func (c *Config) Path() string {
	return c.path
}

func (c *Config) GetGraphDatabasePath() string {
	if c.GraphDatabasePath != "" {
		return c.GraphDatabasePath
	}
	return filepath.Join(c.DataDirectory, "graph.db")
}

func (c *Config) GetVectorDatabasePath() string {
	if c.VectorDatabasePath != "" {
		return c.VectorDatabasePath
	}
	return filepath.Join(c.DataDirectory, "vectors.db")
}

func (c *Config) GetEmbeddingCachePath() string {
	return filepath.Join(c.DataDirectory, "embeddings.cache")
}

func (c *Config) GetOllamaAPIURL(endpoint string) string {
	return fmt.Sprintf("%s/api/%s", strings.TrimRight(c.OllamaEndpoint, "/"), endpoint)
}

func (c *Config) GetAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func (c *Config) GetVectorConfigHash() string {
	return fmt.Sprintf("%s-%s-%d", c.EmbeddingProvider, c.EmbeddingModel, c.VectorDimensions)
}

func (c *Config) NeedsReindex(oldHash string) bool {
	return c.GetVectorConfigHash() != oldHash
}

// Set assigns a single key by its JSON name. It reports whether the change
// invalidates the stored embeddings.
func (c *Config) Set(key, value string) (needsReindex bool, err error) {
	old := c.GetVectorConfigHash()

	switch strings.ReplaceAll(key, "-", "_") {
	case "data_directory", "data_dir":
		c.DataDirectory = value
	case "graph_backend":
		c.GraphBackend = value
	case "graph_database_path":
		c.GraphDatabasePath = value
	case "vector_database_path":
		c.VectorDatabasePath = value
	case "neo4j_uri":
		c.Neo4jURI = value
	case "neo4j_user":
		c.Neo4jUser = value
	case "neo4j_password":
		c.Neo4jPassword = value
	case "neo4j_database":
		c.Neo4jDatabase = value
	case "embedding_provider":
		c.EmbeddingProvider = value
	case "embedding_model":
		c.EmbeddingModel = value
	case "vector_dimensions":
		dims, convErr := strconv.Atoi(value)
		if convErr != nil || dims <= 0 {
			return false, fmt.Errorf("%w: %s", interrors.ErrInvalidDimensions, value)
		}
		c.VectorDimensions = dims
	case "embedding_cache":
		if c.EmbeddingCache, err = parseBool(value); err != nil {
			return false, err
		}
	case "ollama_endpoint":
		c.OllamaEndpoint = value
	case "openai_api_key":
		c.OpenAIAPIKey = value
	case "openai_base_url":
		c.OpenAIBaseURL = value
	case "gemini_api_key":
		c.GeminiAPIKey = value
	case "host":
		c.Host = value
	case "port":
		port, convErr := strconv.Atoi(value)
		if convErr != nil {
			return false, fmt.Errorf("config: invalid port %q", value)
		}
		c.Port = port
	case "enable_metrics":
		if c.EnableMetrics, err = parseBool(value); err != nil {
			return false, err
		}
	case "debug":
		if c.Debug, err = parseBool(value); err != nil {
			return false, err
		}
	default:
		return false, fmt.Errorf("%w: %s", interrors.ErrUnknownConfigKey, key)
	}

	if err := c.Validate(); err != nil {
		return false, err
	}
	return old != c.GetVectorConfigHash(), nil
}

func parseBool(value string) (bool, error) {
	switch strings.ToLower(value) {
	case constants.BoolTrue, constants.BoolOne, constants.BoolYes:
		return true, nil
	case constants.BoolFalse, constants.BoolZero, constants.BoolNo:
		return false, nil
	default:
		return false, fmt.Errorf("%w: %s", interrors.ErrInvalidBoolean, value)
	}
}
