// Package config loads runtime settings from the environment and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// Prefix is the environment prefix. Every key also falls back to its
// unprefixed name, so GOOGLE_API_KEY works as well as RAGBOT_GOOGLE_API_KEY.
const Prefix = "RAGBOT"

const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

// ErrMissingCredential is returned when the selected provider has no API key.
var ErrMissingCredential = errors.New("api credential is not set")

type Config struct {
	UserAgent    string        `envconfig:"USER_AGENT" default:"CloudWalkBot/1.0"`
	SeedURLs     []string      `envconfig:"SEED_URLS" default:"https://www.cloudwalk.io,https://www.infinitepay.io/tap,https://www.reclameaqui.com.br/empresa/cloudwalk/,https://www.reclameaqui.com.br/empresa/infinitepay/"`
	SeedsFile    string        `envconfig:"SEEDS_FILE"`
	FetchTimeout time.Duration `envconfig:"FETCH_TIMEOUT" default:"10s"`
	MaxPages     int           `envconfig:"MAX_PAGES" default:"0"`
	RequestDelay time.Duration `envconfig:"REQUEST_DELAY" default:"0s"`

	DocumentsPath     string `envconfig:"DOCUMENTS_PATH" default:"cloudwalk_documents.json"`
	MinDocumentLength int    `envconfig:"MIN_DOCUMENT_LENGTH" default:"100"`
	ChunkSize         int    `envconfig:"CHUNK_SIZE" default:"500"`
	ChunkOverlap      int    `envconfig:"CHUNK_OVERLAP" default:"100"`

	DBPath     string `envconfig:"DB_PATH" default:"./chroma_db"`
	Collection string `envconfig:"COLLECTION" default:"cloudwalk_docs"`

	Provider       string  `envconfig:"LLM_PROVIDER" default:"gemini"`
	GoogleAPIKey   string  `envconfig:"GOOGLE_API_KEY"`
	OpenAIAPIKey   string  `envconfig:"OPENAI_API_KEY"`
	ChatModel      string  `envconfig:"CHAT_MODEL"`
	EmbeddingModel string  `envconfig:"EMBEDDING_MODEL"`
	Temperature    float32 `envconfig:"TEMPERATURE" default:"0.2"`
	TopK           int     `envconfig:"TOP_K" default:"4"`
	MinSimilarity  float32 `envconfig:"MIN_SIMILARITY" default:"0"`

	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
	LogFile  string `envconfig:"LOG_FILE" default:"cloudwalk-rag.log"`
}

type seedsFile struct {
	Seeds []string `yaml:"seeds"`
}

// Load reads envFile (or .env when empty, ignoring a missing file), decodes
// the environment and validates the result. Credentials are checked
// separately by APIKey since crawling does not need them.
func Load(envFile string) (*Config, error) {
	if envFile == "" {
		_ = godotenv.Load()
	} else if err := godotenv.Load(envFile); err != nil {
		return nil, fmt.Errorf("failed to load env file %s: %w", envFile, err)
	}

	var cfg Config
	if err := envconfig.Process(Prefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	if cfg.SeedsFile != "" {
		seeds, err := loadSeeds(cfg.SeedsFile)
		if err != nil {
			return nil, err
		}
		cfg.SeedURLs = seeds
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func loadSeeds(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seeds file: %w", err)
	}
	var f seedsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse seeds file %s: %w", path, err)
	}
	return f.Seeds, nil
}

// Validate checks settings that would make every run fail.
func (c *Config) Validate() error {
	c.Provider = strings.ToLower(strings.TrimSpace(c.Provider))
	if c.Provider != ProviderGemini && c.Provider != ProviderOpenAI {
		return fmt.Errorf("unknown LLM_PROVIDER %q (want %s or %s)", c.Provider, ProviderGemini, ProviderOpenAI)
	}

	var seeds []string
	for _, s := range c.SeedURLs {
		if s = strings.TrimSpace(s); s != "" {
			seeds = append(seeds, s)
		}
	}
	if len(seeds) == 0 {
		return errors.New("no seed URLs configured")
	}
	c.SeedURLs = seeds

	if c.ChunkSize <= 0 {
		return fmt.Errorf("CHUNK_SIZE must be positive, got %d", c.ChunkSize)
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("CHUNK_OVERLAP must be in [0, %d), got %d", c.ChunkSize, c.ChunkOverlap)
	}
	if c.TopK <= 0 {
		return fmt.Errorf("TOP_K must be positive, got %d", c.TopK)
	}
	return nil
}

// APIKey returns the credential for the configured provider.
func (c *Config) APIKey() (string, error) {
	switch c.Provider {
	case ProviderOpenAI:
		if c.OpenAIAPIKey == "" {
			return "", fmt.Errorf("%w: set OPENAI_API_KEY in the environment or .env file", ErrMissingCredential)
		}
		return c.OpenAIAPIKey, nil
	default:
		if c.GoogleAPIKey == "" {
			return "", fmt.Errorf("%w: set GOOGLE_API_KEY in the environment or .env file", ErrMissingCredential)
		}
		return c.GoogleAPIKey, nil
	}
}
