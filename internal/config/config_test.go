package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	interrors "github.com/streed/synapse/internal/errors"
)

func TestGetDefaultDataDirectory(t *testing.T) {
	tests := []struct {
		name     string
		xdgHome  string
		expected string
	}{
		{
			name:     "With XDG_DATA_HOME set",
			xdgHome:  "/custom/data",
			expected: "/custom/data/synapse",
		},
		{
			name:    "Without XDG_DATA_HOME",
			xdgHome: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("XDG_DATA_HOME", tt.xdgHome)
			result := GetDefaultDataDirectory()

			expected := tt.expected
			if tt.xdgHome == "" {
				homeDir, _ := os.UserHomeDir()
				expected = filepath.Join(homeDir, ".local", "share", "synapse")
			}
			if result != expected {
				t.Errorf("Expected %s, got %s", expected, result)
			}
		})
	}
}

func TestLoadDefaultsWhenFileMissing(t *testing.T) {
	tempDir := t.TempDir()
	t.Setenv("XDG_DATA_HOME", tempDir)

	cfg, err := LoadFrom(filepath.Join(tempDir, "missing.json"))
	if err != nil {
		t.Fatalf("LoadFrom failed: %v", err)
	}

	if cfg.GraphBackend != GraphBackendSQLite {
		t.Errorf("Expected graph backend sqlite, got %s", cfg.GraphBackend)
	}
	if cfg.EmbeddingProvider != ProviderHash {
		t.Errorf("Expected hash provider, got %s", cfg.EmbeddingProvider)
	}
	if cfg.Port != 5000 {
		t.Errorf("Expected port 5000, got %d", cfg.Port)
	}
	if cfg.DataDirectory != filepath.Join(tempDir, "synapse") {
		t.Errorf("Unexpected data directory %s", cfg.DataDirectory)
	}
	if cfg.GetGraphDatabasePath() != filepath.Join(tempDir, "synapse", "graph.db") {
		t.Errorf("Unexpected graph path %s", cfg.GetGraphDatabasePath())
	}
	if cfg.GetVectorDatabasePath() != filepath.Join(tempDir, "synapse", "vectors.db") {
		t.Errorf("Unexpected vector path %s", cfg.GetVectorDatabasePath())
	}
}

func TestConfigSaveAndLoad(t *testing.T) {
	tempDir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", tempDir)

	dataDir := filepath.Join(tempDir, "test-data")

	testConfig := &Config{
		DataDirectory:     dataDir,
		GraphBackend:      GraphBackendSQLite,
		EmbeddingProvider: ProviderOllama,
		OllamaEndpoint:    "http://test:11434",
		EmbeddingModel:    "test-model",
		VectorDimensions:  768,
		Host:              "0.0.0.0",
		Port:              8080,
		Debug:             true,
	}

	if err := Save(testConfig); err != nil {
		t.Fatalf("Failed to save config: %v", err)
	}

	configFile := filepath.Join(tempDir, "synapse", "config.json")
	info, err := os.Stat(configFile)
	if err != nil {
		t.Fatalf("Config file was not created: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("Expected mode 0600, got %v", info.Mode().Perm())
	}

	data, err := os.ReadFile(configFile)
	if err != nil {
		t.Fatalf("Failed to read config file: %v", err)
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("Config file is not valid JSON: %v", err)
	}
	if raw["embedding_model"] != "test-model" {
		t.Errorf("Expected embedding_model in file, got %v", raw["embedding_model"])
	}

	loaded, err := Load()
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if loaded.OllamaEndpoint != testConfig.OllamaEndpoint {
		t.Errorf("Expected OllamaEndpoint %s, got %s", testConfig.OllamaEndpoint, loaded.OllamaEndpoint)
	}
	if loaded.VectorDimensions != 768 {
		t.Errorf("Expected VectorDimensions 768, got %d", loaded.VectorDimensions)
	}
	if loaded.Port != 8080 || loaded.Host != "0.0.0.0" {
		t.Errorf("Expected 0.0.0.0:8080, got %s", loaded.GetAddr())
	}
	if !loaded.Debug {
		t.Error("Expected Debug to be true")
	}
	if loaded.Path() != configFile {
		t.Errorf("Expected path %s, got %s", configFile, loaded.Path())
	}
}

func TestEnvironmentOverridesFile(t *testing.T) {
	tempDir := t.TempDir()
	path := filepath.Join(tempDir, "config.json")
	if err := os.WriteFile(path, []byte(`{"port": 7000, "embedding_model": "file-model"}`), 0600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("SYNAPSE_PORT", "9001")
	t.Setenv("SYNAPSE_NEO4J_URI", "bolt://graph:7687")

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom failed: %v", err)
	}
	if cfg.Port != 9001 {
		t.Errorf("Expected env port 9001, got %d", cfg.Port)
	}
	if cfg.Neo4jURI != "bolt://graph:7687" {
		t.Errorf("Expected env neo4j uri, got %s", cfg.Neo4jURI)
	}
	if cfg.EmbeddingModel != "file-model" {
		t.Errorf("Expected file model, got %s", cfg.EmbeddingModel)
	}
}

func TestValidateCollectsAllErrors(t *testing.T) {
	cfg := getDefaultConfig()
	cfg.GraphBackend = "postgres"
	cfg.EmbeddingProvider = "word2vec"
	cfg.Port = 70000

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Expected validation error")
	}
	for _, want := range []string{"graph_backend", "embedding_provider", "port"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("Expected error to mention %s, got %v", want, err)
		}
	}

	cfg = getDefaultConfig()
	cfg.EmbeddingProvider = ProviderOpenAI
	if err := cfg.Validate(); err == nil {
		t.Error("Expected openai provider without key to fail")
	}
}

func TestSet(t *testing.T) {
	cfg := getDefaultConfig()
	cfg.DataDirectory = t.TempDir()

	reindex, err := cfg.Set("host", "127.0.0.1")
	if err != nil || reindex {
		t.Errorf("Set host: reindex=%v err=%v", reindex, err)
	}

	reindex, err = cfg.Set("embedding-model", "mxbai-embed-large")
	if err != nil {
		t.Fatalf("Set embedding model: %v", err)
	}
	if !reindex {
		t.Error("Changing the embedding model should require a reindex")
	}

	if _, err := cfg.Set("debug", "yes"); err != nil || !cfg.Debug {
		t.Errorf("Expected debug true, got %v (%v)", cfg.Debug, err)
	}

	if _, err := cfg.Set("debug", "maybe"); !errors.Is(err, interrors.ErrInvalidBoolean) {
		t.Errorf("Expected ErrInvalidBoolean, got %v", err)
	}
	if _, err := cfg.Set("vector_dimensions", "-3"); !errors.Is(err, interrors.ErrInvalidDimensions) {
		t.Errorf("Expected ErrInvalidDimensions, got %v", err)
	}
	if _, err := cfg.Set("colour", "blue"); !errors.Is(err, interrors.ErrUnknownConfigKey) {
		t.Errorf("Expected ErrUnknownConfigKey, got %v", err)
	}
}

func TestNeedsReindex(t *testing.T) {
	cfg := getDefaultConfig()
	hash := cfg.GetVectorConfigHash()
	if cfg.NeedsReindex(hash) {
		t.Error("Same configuration should not need reindex")
	}
	cfg.VectorDimensions = 768
	if !cfg.NeedsReindex(hash) {
		t.Error("Changed dimensions should need reindex")
	}
}

func TestGetOllamaAPIURL(t *testing.T) {
	cfg := getDefaultConfig()
	cfg.OllamaEndpoint = "http://localhost:11434/"
	if got := cfg.GetOllamaAPIURL("embed"); got != "http://localhost:11434/api/embed" {
		t.Errorf("Unexpected URL %s", got)
	}
}

func TestInitializeConfig(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "conf", "config.json")
	dataDir := filepath.Join(dir, "data")

	cfg, err := InitializeConfig(configPath, dataDir, ProviderOllama)
	if err != nil {
		t.Fatalf("InitializeConfig failed: %v", err)
	}
	if cfg.Path() != configPath {
		t.Errorf("Expected path %s, got %s", configPath, cfg.Path())
	}
	if cfg.VectorConfigVersion != cfg.GetVectorConfigHash() {
		t.Errorf("Expected vector config version %s, got %s", cfg.GetVectorConfigHash(), cfg.VectorConfigVersion)
	}
	if _, err := os.Stat(dataDir); err != nil {
		t.Errorf("Data directory was not created: %v", err)
	}

	loaded, err := LoadFrom(configPath)
	if err != nil {
		t.Fatalf("LoadFrom failed: %v", err)
	}
	if loaded.EmbeddingProvider != ProviderOllama || loaded.DataDirectory != dataDir {
		t.Errorf("Unexpected loaded config: %+v", loaded)
	}

	if _, err := InitializeConfig(filepath.Join(dir, "bad.json"), dataDir, "nope"); err == nil {
		t.Error("Expected an error for an unknown provider")
	}
}
