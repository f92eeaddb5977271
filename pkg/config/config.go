package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

type EmbedderConfig struct {
	BaseURL           string `yaml:"base_url"`
	Model             string `yaml:"model"`
	APIKey            string `yaml:"api_key"`
	RequestsPerMinute int    `yaml:"requests_per_minute"`
}

type DatabaseConfig struct {
	Driver      string `yaml:"driver"`
	URL         string `yaml:"url"`
	QdrantAddr  string `yaml:"qdrant_addr"`
	SQLitePath  string `yaml:"sqlite_path"`
	Collection  string `yaml:"collection"`
	VectorDim   int    `yaml:"vector_dim"`
	BatchSize   int    `yaml:"batch_size"`
	SearchLimit int    `yaml:"search_limit"`
}

type DatasetConfig struct {
	URL       string `yaml:"url"`
	Dir       string `yaml:"dir"`
	CSVName   string `yaml:"csv_name"`
	UserAgent string `yaml:"user_agent"`
	TimeoutS  int    `yaml:"timeout_seconds"`
}

type UIConfig struct {
	Field string `yaml:"field"`
	TopK  int    `yaml:"top_k"`
}

type Config struct {
	Embedder EmbedderConfig `yaml:"embedder"`
	Database DatabaseConfig `yaml:"database"`
	Dataset  DatasetConfig  `yaml:"dataset"`
	UI       UIConfig       `yaml:"ui"`
}

const (
	// The pre-embedded Wikipedia articles archive published for the
	// embeddings examples.
	DefaultDatasetURL = "https://cdn.openai.com/API/examples/data/vector_database_wikipedia_articles_embedded.zip"
	DefaultCSVName    = "vector_database_wikipedia_articles_embedded.csv"
)

func LoadConfig(path string) (*Config, error) {
	// If no path provided, try default locations
	if path == "" {
		locations := []string{
			"config.yaml",
			"config.yml",
			filepath.Join(os.Getenv("HOME"), ".config/wikivec/config.yaml"),
			"/etc/wikivec/config.yaml",
		}

		for _, loc := range locations {
			if _, err := os.Stat(loc); err == nil {
				path = loc
				break
			}
		}
	}

	if path == "" {
		return getDefaultConfig()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %v", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %v", err)
	}

	// Merge with environment variables
	mergeWithEnv(&config)

	// Apply defaults for unset values
	applyDefaults(&config)

	return &config, nil
}

func getDefaultConfig() (*Config, error) {
	config := &Config{}
	applyDefaults(config)
	mergeWithEnv(config)
	return config, nil
}

func applyDefaults(config *Config) {
	if config.Embedder.Model == "" {
		// The model that produced the dataset vectors; query embeddings
		// must come from the same model to be comparable.
		config.Embedder.Model = "text-embedding-ada-002"
	}

	if config.Database.Driver == "" {
		config.Database.Driver = "qdrant"
	}
	if config.Database.QdrantAddr == "" {
		config.Database.QdrantAddr = "localhost:6334"
	}
	if config.Database.SQLitePath == "" {
		config.Database.SQLitePath = "wikivec.db"
	}
	if config.Database.Collection == "" {
		config.Database.Collection = "articles"
	}
	if config.Database.VectorDim == 0 {
		config.Database.VectorDim = 1536
	}
	if config.Database.BatchSize == 0 {
		config.Database.BatchSize = 100
	}
	if config.Database.SearchLimit == 0 {
		config.Database.SearchLimit = 5
	}

	if config.Dataset.URL == "" {
		config.Dataset.URL = DefaultDatasetURL
	}
	if config.Dataset.Dir == "" {
		config.Dataset.Dir = "data"
	}
	if config.Dataset.CSVName == "" {
		config.Dataset.CSVName = DefaultCSVName
	}
	if config.Dataset.UserAgent == "" {
		config.Dataset.UserAgent = "wikivec/1.0 (+https://github.com/wikivec/wikivec)"
	}
	if config.Dataset.TimeoutS == 0 {
		config.Dataset.TimeoutS = 300
	}

	if config.UI.Field == "" {
		config.UI.Field = "content"
	}
	if config.UI.TopK == 0 {
		config.UI.TopK = 5
	}
}

func mergeWithEnv(config *Config) {
	if apiKey := os.Getenv("OPENAI_API_KEY"); apiKey != "" {
		config.Embedder.APIKey = apiKey
	}
	if baseURL := os.Getenv("OPENAI_BASE_URL"); baseURL != "" {
		config.Embedder.BaseURL = baseURL
	}
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		config.Database.URL = dbURL
	}
	if addr := os.Getenv("QDRANT_ADDR"); addr != "" {
		config.Database.QdrantAddr = addr
	}
}
