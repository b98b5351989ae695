package common

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration
type Config struct {
	Server  ServerConfig  `toml:"server"`
	Storage StorageConfig `toml:"storage"`
	Logging LoggingConfig `toml:"logging"`
	Search  SearchConfig  `toml:"search"`
	LLM     LLMConfig     `toml:"llm"`
	Answer  AnswerConfig  `toml:"answer"`
	Lepton  LeptonConfig  `toml:"lepton"`
	UI      UIConfig      `toml:"ui"`
}

type ServerConfig struct {
	Port int    `toml:"port"`
	Host string `toml:"host"`
	// MaxConcurrency bounds simultaneous query requests. The background
	// worker pool is sized at twice this value.
	MaxConcurrency int `toml:"max_concurrency"`
}

type StorageConfig struct {
	Badger BadgerConfig `toml:"badger"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path"`             // Base data directory
	Name           string `toml:"name"`             // Store name, becomes a subdirectory of Path
	ResetOnStartup bool   `toml:"reset_on_startup"` // Delete database on startup for clean test runs
}

// Dir returns the effective database directory for this store.
func (c *BadgerConfig) Dir() string {
	return filepath.Join(c.Path, c.Name)
}

type LoggingConfig struct {
	Level  string   `toml:"level"`  // "debug", "info", "warn", "error"
	Format string   `toml:"format"` // "json" or "text"
	Output []string `toml:"output"` // "stdout", "file"
}

// SearchBackend identifies which web search provider serves queries
type SearchBackend string

const (
	// BackendSerper uses the Serper Google-search API
	BackendSerper SearchBackend = "SERPER"
	// BackendSearchAPI uses searchapi.io
	BackendSearchAPI SearchBackend = "SEARCHAPI"
	// BackendLepton delegates the whole query to an upstream deployment
	BackendLepton SearchBackend = "LEPTON"
)

// SearchConfig contains configuration for the web search backend
type SearchConfig struct {
	Backend      SearchBackend `toml:"backend"`           // "SERPER", "SEARCHAPI", or "LEPTON"
	SerperAPIKey string        `toml:"serper_api_key"`    // Key for google.serper.dev
	SearchAPIKey string        `toml:"searchapi_api_key"` // Key for www.searchapi.io
}

// LLMConfig contains configuration for the completion endpoint
type LLMConfig struct {
	Model string `toml:"model"` // Model id; also selects the default endpoint host
	// BaseURL is the OpenAI-compatible endpoint. When empty it is derived
	// from the model id as https://<model>.lepton.run/api/v1/
	BaseURL     string  `toml:"base_url"`
	APIKey      string  `toml:"api_key"`     // Workspace token for the completion endpoint
	Temperature float32 `toml:"temperature"` // Sampling temperature (default: 0.9)
}

// ResolveBaseURL returns the configured endpoint, deriving it from the
// model id when unset.
func (c *LLMConfig) ResolveBaseURL() string {
	if c.BaseURL != "" {
		return c.BaseURL
	}
	return fmt.Sprintf("https://%s.lepton.run/api/v1/", c.Model)
}

// AnswerConfig contains configuration for answer generation behavior
type AnswerConfig struct {
	// RelatedQuestions is the server-side master switch for follow-up
	// question generation. Requests can additionally opt out per call.
	RelatedQuestions bool `toml:"related_questions"`
}

// LeptonConfig configures the upstream deployment used when the search
// backend is "LEPTON"
type LeptonConfig struct {
	BaseURL string `toml:"base_url"` // Upstream search deployment URL
	Token   string `toml:"token"`    // Workspace token for the delegate call
}

// UIConfig contains configuration for the static web UI
type UIConfig struct {
	Dir string `toml:"dir"` // Directory holding the prebuilt UI bundle
}

// NewDefaultConfig creates a configuration with default values
// Technical parameters are hardcoded here for production stability.
// Only user-facing settings should be exposed in serch.toml.
func NewDefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:           8080,
			Host:           "localhost",
			MaxConcurrency: 16, // Concurrent query requests; background pool runs 2x this
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path: "./data",
				Name: "serch", // Overridable so deployments can keep separate answer stores
			},
		},
		Logging: LoggingConfig{
			Level:  "info",                     // Info level for production (debug|info|warn|error)
			Format: "text",                     // Human-readable text format (text|json)
			Output: []string{"stdout", "file"}, // Log to both console and file
		},
		Search: SearchConfig{
			Backend: BackendSerper, // User must provide the matching API key
		},
		LLM: LLMConfig{
			Model:       "mixtral-8x7b", // Completion model; endpoint derived from this id
			Temperature: 0.9,
		},
		Answer: AnswerConfig{
			RelatedQuestions: true,
		},
		Lepton: LeptonConfig{
			BaseURL: "https://search-api.lepton.run/",
		},
		UI: UIConfig{
			Dir: "./ui",
		},
	}
}

// LoadFromFile loads configuration with priority: default -> file -> env -> CLI
// Priority system: CLI flags > Environment variables > Config file > Defaults
func LoadFromFile(path string) (*Config, error) {
	if path == "" {
		return LoadFromFiles()
	}
	return LoadFromFiles(path)
}

// LoadFromFiles loads configuration from multiple files with priority: default -> file1 -> file2 -> ... -> env -> CLI
// Later files override earlier files. Priority system: CLI flags > Environment variables > Last config file > ... > First config file > Defaults
// Example: LoadFromFiles("base.toml", "override.toml") - override.toml settings take precedence over base.toml
func LoadFromFiles(paths ...string) (*Config, error) {
	// Start with defaults
	config := NewDefaultConfig()

	// Load and merge each config file in order (later files override earlier files)
	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		// Unmarshal into config (merges with existing values, later values override)
		err = toml.Unmarshal(data, config)
		if err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	// Apply environment variables (overrides all file configs)
	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config.
// SERCH_* names take priority; the bare names (BACKEND, LLM_MODEL, KV_NAME,
// RELATED_QUESTIONS and the provider key variables) are recognized for
// compatibility with existing deployments.
func applyEnvOverrides(config *Config) {
	// Server configuration
	if port := os.Getenv("SERCH_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("SERCH_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}
	if maxConcurrency := os.Getenv("SERCH_SERVER_MAX_CONCURRENCY"); maxConcurrency != "" {
		if mc, err := strconv.Atoi(maxConcurrency); err == nil && mc > 0 {
			config.Server.MaxConcurrency = mc
		}
	}

	// Storage configuration
	if badgerPath := os.Getenv("SERCH_BADGER_PATH"); badgerPath != "" {
		config.Storage.Badger.Path = badgerPath
	}
	if name := os.Getenv("SERCH_KV_NAME"); name != "" {
		config.Storage.Badger.Name = name
	} else if name := os.Getenv("KV_NAME"); name != "" {
		config.Storage.Badger.Name = name
	}

	// Logging configuration
	if level := os.Getenv("SERCH_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if format := os.Getenv("SERCH_LOG_FORMAT"); format != "" {
		config.Logging.Format = format
	}
	if output := os.Getenv("SERCH_LOG_OUTPUT"); output != "" {
		// Split comma-separated output types
		outputs := []string{}
		for _, o := range strings.Split(output, ",") {
			trimmed := strings.TrimSpace(o)
			if trimmed != "" {
				outputs = append(outputs, trimmed)
			}
		}
		if len(outputs) > 0 {
			config.Logging.Output = outputs
		}
	}

	// Search configuration
	if backend := os.Getenv("SERCH_SEARCH_BACKEND"); backend != "" {
		config.Search.Backend = SearchBackend(strings.ToUpper(backend))
	} else if backend := os.Getenv("BACKEND"); backend != "" {
		config.Search.Backend = SearchBackend(strings.ToUpper(backend))
	}
	if apiKey := os.Getenv("SERCH_SERPER_API_KEY"); apiKey != "" {
		config.Search.SerperAPIKey = apiKey
	} else if apiKey := os.Getenv("SERPER_SEARCH_API_KEY"); apiKey != "" {
		config.Search.SerperAPIKey = apiKey
	} else if apiKey := os.Getenv("SERPER_API_KEY"); apiKey != "" {
		config.Search.SerperAPIKey = apiKey
	}
	if apiKey := os.Getenv("SERCH_SEARCHAPI_API_KEY"); apiKey != "" {
		config.Search.SearchAPIKey = apiKey
	} else if apiKey := os.Getenv("SEARCHAPI_API_KEY"); apiKey != "" {
		config.Search.SearchAPIKey = apiKey
	}

	// LLM configuration
	if model := os.Getenv("SERCH_LLM_MODEL"); model != "" {
		config.LLM.Model = model
	} else if model := os.Getenv("LLM_MODEL"); model != "" {
		config.LLM.Model = model
	}
	if baseURL := os.Getenv("SERCH_LLM_BASE_URL"); baseURL != "" {
		config.LLM.BaseURL = baseURL
	}
	if apiKey := os.Getenv("SERCH_LLM_API_KEY"); apiKey != "" {
		config.LLM.APIKey = apiKey
	} else if apiKey := os.Getenv("LEPTON_WORKSPACE_TOKEN"); apiKey != "" {
		config.LLM.APIKey = apiKey
	}
	if temperature := os.Getenv("SERCH_LLM_TEMPERATURE"); temperature != "" {
		if t, err := strconv.ParseFloat(temperature, 32); err == nil {
			config.LLM.Temperature = float32(t)
		}
	}

	// Answer configuration
	if related := os.Getenv("SERCH_RELATED_QUESTIONS"); related != "" {
		if r, err := strconv.ParseBool(related); err == nil {
			config.Answer.RelatedQuestions = r
		}
	} else if related := os.Getenv("RELATED_QUESTIONS"); related != "" {
		if r, err := strconv.ParseBool(related); err == nil {
			config.Answer.RelatedQuestions = r
		}
	}

	// Lepton delegate configuration
	if baseURL := os.Getenv("SERCH_LEPTON_BASE_URL"); baseURL != "" {
		config.Lepton.BaseURL = baseURL
	}
	if token := os.Getenv("SERCH_LEPTON_TOKEN"); token != "" {
		config.Lepton.Token = token
	} else if token := os.Getenv("LEPTON_WORKSPACE_TOKEN"); token != "" {
		config.Lepton.Token = token
	}

	// UI configuration
	if uiDir := os.Getenv("SERCH_UI_DIR"); uiDir != "" {
		config.UI.Dir = uiDir
	}
}

// ApplyFlagOverrides applies command-line flag overrides to config
func ApplyFlagOverrides(config *Config, port int, host string) {
	// Command-line flags have highest priority
	if port > 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
}

// Validate checks settings that would otherwise fail at first use
func (c *Config) Validate() error {
	switch c.Search.Backend {
	case BackendSerper, BackendSearchAPI, BackendLepton:
	default:
		return fmt.Errorf("unknown search backend %q (expected SERPER, SEARCHAPI, or LEPTON)", c.Search.Backend)
	}
	if c.Server.MaxConcurrency <= 0 {
		return fmt.Errorf("server max_concurrency must be positive, got %d", c.Server.MaxConcurrency)
	}
	return nil
}
