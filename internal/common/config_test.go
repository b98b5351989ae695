package common

import (
	"os"
	"path/filepath"
	"testing"
)

// writeConfigFile writes a TOML fragment to a temp file and returns its path
func writeConfigFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

func TestNewDefaultConfig(t *testing.T) {
	config := NewDefaultConfig()

	if config.Server.Port != 8080 {
		t.Errorf("default port = %d, want 8080", config.Server.Port)
	}
	if config.Search.Backend != BackendSerper {
		t.Errorf("default backend = %q, want SERPER", config.Search.Backend)
	}
	if !config.Answer.RelatedQuestions {
		t.Error("related questions should default to enabled")
	}
	if config.LLM.Temperature != 0.9 {
		t.Errorf("default temperature = %v, want 0.9", config.LLM.Temperature)
	}
	if config.Server.MaxConcurrency <= 0 {
		t.Errorf("default max_concurrency = %d, want positive", config.Server.MaxConcurrency)
	}
}

func TestLoadFromFilesMergesInOrder(t *testing.T) {
	base := writeConfigFile(t, "base.toml", `
[server]
port = 9000
host = "0.0.0.0"

[search]
backend = "SEARCHAPI"
`)
	override := writeConfigFile(t, "override.toml", `
[server]
port = 9100
`)

	config, err := LoadFromFiles(base, override)
	if err != nil {
		t.Fatalf("LoadFromFiles failed: %v", err)
	}

	// Later file wins for port, earlier file still contributes host/backend
	if config.Server.Port != 9100 {
		t.Errorf("port = %d, want 9100 from override file", config.Server.Port)
	}
	if config.Server.Host != "0.0.0.0" {
		t.Errorf("host = %q, want 0.0.0.0 from base file", config.Server.Host)
	}
	if config.Search.Backend != BackendSearchAPI {
		t.Errorf("backend = %q, want SEARCHAPI from base file", config.Search.Backend)
	}
	// Untouched settings keep their defaults
	if !config.Answer.RelatedQuestions {
		t.Error("related questions default should survive a partial file")
	}
}

func TestLoadFromFilesMissingFile(t *testing.T) {
	_, err := LoadFromFiles(filepath.Join(t.TempDir(), "absent.toml"))
	if err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestLoadFromFileDelegates(t *testing.T) {
	path := writeConfigFile(t, "single.toml", `
[llm]
model = "llama2-70b"
`)

	config, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}
	if config.LLM.Model != "llama2-70b" {
		t.Errorf("model = %q, want llama2-70b", config.LLM.Model)
	}

	// Empty path means defaults only
	config, err = LoadFromFile("")
	if err != nil {
		t.Fatalf("LoadFromFile(\"\") failed: %v", err)
	}
	if config.Server.Port != 8080 {
		t.Errorf("port = %d, want default 8080", config.Server.Port)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("SERCH_SERVER_PORT", "7070")
	t.Setenv("BACKEND", "searchapi")
	t.Setenv("SEARCHAPI_API_KEY", "sk-env")
	t.Setenv("RELATED_QUESTIONS", "false")
	t.Setenv("LEPTON_WORKSPACE_TOKEN", "ws-token")

	config, err := LoadFromFiles()
	if err != nil {
		t.Fatalf("LoadFromFiles failed: %v", err)
	}

	if config.Server.Port != 7070 {
		t.Errorf("port = %d, want 7070 from env", config.Server.Port)
	}
	// Backend names are normalized to upper case
	if config.Search.Backend != BackendSearchAPI {
		t.Errorf("backend = %q, want SEARCHAPI", config.Search.Backend)
	}
	if config.Search.SearchAPIKey != "sk-env" {
		t.Errorf("searchapi key = %q, want sk-env", config.Search.SearchAPIKey)
	}
	if config.Answer.RelatedQuestions {
		t.Error("related questions should be disabled via RELATED_QUESTIONS=false")
	}
	// The workspace token serves both the completion endpoint and the delegate
	if config.LLM.APIKey != "ws-token" {
		t.Errorf("llm api key = %q, want ws-token", config.LLM.APIKey)
	}
	if config.Lepton.Token != "ws-token" {
		t.Errorf("lepton token = %q, want ws-token", config.Lepton.Token)
	}
}

func TestEnvOverridesPrecedence(t *testing.T) {
	// SERCH_* names win over the compatibility names
	t.Setenv("SERCH_SEARCH_BACKEND", "LEPTON")
	t.Setenv("BACKEND", "SERPER")
	t.Setenv("SERCH_SERPER_API_KEY", "sk-primary")
	t.Setenv("SERPER_SEARCH_API_KEY", "sk-compat")
	t.Setenv("SERPER_API_KEY", "sk-fallback")

	config, err := LoadFromFiles()
	if err != nil {
		t.Fatalf("LoadFromFiles failed: %v", err)
	}

	if config.Search.Backend != BackendLepton {
		t.Errorf("backend = %q, want LEPTON from SERCH_SEARCH_BACKEND", config.Search.Backend)
	}
	if config.Search.SerperAPIKey != "sk-primary" {
		t.Errorf("serper key = %q, want sk-primary", config.Search.SerperAPIKey)
	}
}

func TestEnvOverridesBeatConfigFile(t *testing.T) {
	path := writeConfigFile(t, "file.toml", `
[server]
port = 9000
`)
	t.Setenv("SERCH_SERVER_PORT", "7071")

	config, err := LoadFromFiles(path)
	if err != nil {
		t.Fatalf("LoadFromFiles failed: %v", err)
	}
	if config.Server.Port != 7071 {
		t.Errorf("port = %d, want env value 7071 over file value 9000", config.Server.Port)
	}
}

func TestApplyFlagOverrides(t *testing.T) {
	config := NewDefaultConfig()

	ApplyFlagOverrides(config, 9999, "example.com")
	if config.Server.Port != 9999 {
		t.Errorf("port = %d, want 9999", config.Server.Port)
	}
	if config.Server.Host != "example.com" {
		t.Errorf("host = %q, want example.com", config.Server.Host)
	}

	// Zero values leave the config untouched
	ApplyFlagOverrides(config, 0, "")
	if config.Server.Port != 9999 || config.Server.Host != "example.com" {
		t.Error("zero-valued flags must not override config")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(c *Config) {}, false},
		{"searchapi backend", func(c *Config) { c.Search.Backend = BackendSearchAPI }, false},
		{"lepton backend", func(c *Config) { c.Search.Backend = BackendLepton }, false},
		{"unknown backend", func(c *Config) { c.Search.Backend = "GOOGLE" }, true},
		{"zero concurrency", func(c *Config) { c.Server.MaxConcurrency = 0 }, true},
		{"negative concurrency", func(c *Config) { c.Server.MaxConcurrency = -1 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := NewDefaultConfig()
			tt.mutate(config)

			err := config.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestResolveBaseURL(t *testing.T) {
	llm := LLMConfig{Model: "mixtral-8x7b"}
	if got := llm.ResolveBaseURL(); got != "https://mixtral-8x7b.lepton.run/api/v1/" {
		t.Errorf("derived base URL = %q", got)
	}

	llm.BaseURL = "https://api.openai.com/v1"
	if got := llm.ResolveBaseURL(); got != "https://api.openai.com/v1" {
		t.Errorf("explicit base URL = %q, want it returned unchanged", got)
	}
}

func TestBadgerConfigDir(t *testing.T) {
	badger := BadgerConfig{Path: "./data", Name: "serch"}
	if got := badger.Dir(); got != filepath.Join("./data", "serch") {
		t.Errorf("Dir() = %q", got)
	}
}
