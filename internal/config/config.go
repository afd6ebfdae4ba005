// Package config provides configuration loading and structs for the Omoide server.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug     bool            `yaml:"debug"`
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Cache     CacheConfig     `yaml:"cache"`
	Index     IndexConfig     `yaml:"index"`
	Search    SearchConfig    `yaml:"search"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// StorageConfig holds paths for the database and the keyword index.
type StorageConfig struct {
	DatabasePath   string `yaml:"database_path"`
	BleveIndexPath string `yaml:"bleve_index_path"`
}

// EmbeddingConfig holds embedding provider settings. Provider is "openai" for any
// OpenAI-compatible endpoint, or "mock" for offline development.
type EmbeddingConfig struct {
	Provider       string `yaml:"provider"`
	Model          string `yaml:"model"`
	APIKey         string `yaml:"api_key"`
	BaseURL        string `yaml:"base_url"`
	Dimensions     int    `yaml:"dimensions"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// CacheConfig holds embedding cache settings. When RedisAddr is set a Redis cache
// is used; otherwise an in-process LRU. TTLSeconds of 0 means entries never expire.
type CacheConfig struct {
	Size       int    `yaml:"size"`
	TTLSeconds int    `yaml:"ttl_seconds"`
	RedisAddr  string `yaml:"redis_addr"`
	RedisDB    int    `yaml:"redis_db"`
	RedisPass  string `yaml:"redis_password"`
	KeyPrefix  string `yaml:"key_prefix"`
}

// IndexConfig holds HNSW build and query parameters. Larger M and EFConstruction
// trade build cost for recall; EFSearch trades query latency for recall.
type IndexConfig struct {
	M              int `yaml:"m"`
	EFConstruction int `yaml:"ef_construction"`
	EFSearch       int `yaml:"ef_search"`
}

// SearchConfig holds hybrid ranking settings.
type SearchConfig struct {
	DefaultLimit        int     `yaml:"default_limit"`
	MaxLimit            int     `yaml:"max_limit"`
	TopKCandidates      int     `yaml:"top_k_candidates"`
	SimilarityThreshold float64 `yaml:"similarity_threshold"`
	IncludeLexicalOnly  *bool   `yaml:"include_lexical_only"`
	VectorWeight        float64 `yaml:"vector_weight"`
	LexicalWeight       float64 `yaml:"lexical_weight"`
}

// IncludeLexicalOnlyOrDefault returns whether lexical-only matches are included;
// defaults to true when unset.
func (s *SearchConfig) IncludeLexicalOnlyOrDefault() bool {
	if s.IncludeLexicalOnly != nil {
		return *s.IncludeLexicalOnly
	}
	return true
}

// Load reads and parses the config file at path, expands paths, and applies defaults.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	cfg.Storage.BleveIndexPath = expandPath(cfg.Storage.BleveIndexPath, configDir)

	return &cfg, nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to
// configDir; other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
