package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Transcription backends.
const (
	BackendGemini = "gemini"
	BackendOpenAI = "openai"
)

// Feed selects the podcast and how it is fetched.
type Feed struct {
	URL string `toml:"url"`
	// HTTPProfile is the header profile used for feed and audio requests:
	// "default", "browser" or "cloudflare".
	HTTPProfile string `toml:"http_profile"`
}

// Paths contains the cache directories.
type Paths struct {
	AudioDir       string `toml:"audio_dir"`
	TranscriptsDir string `toml:"transcripts_dir"`
}

// Download contains audio transfer settings.
type Download struct {
	ChunkSize    int `toml:"chunk_size"`
	ProbeWorkers int `toml:"probe_workers"`
	// Progress shows progress bars when stderr is a terminal.
	Progress bool `toml:"progress"`
}

// Transcription configures the speech-to-text backend.
type Transcription struct {
	Backend string `toml:"backend"`
	APIKey  string `toml:"api_key"`
	Model   string `toml:"model"`
	Prompt  string `toml:"prompt"`
	Stream  bool   `toml:"stream"`
	// Echo prints transcript text to stdout as it arrives.
	Echo bool `toml:"echo"`

	// Gemini generation settings. Zero leaves the model default in place.
	MaxOutputTokens     int     `toml:"max_output_tokens"`
	TopP                float64 `toml:"top_p"`
	PollIntervalSeconds int     `toml:"poll_interval_seconds"`

	// Safety maps harm categories to block thresholds (Gemini only).
	Safety map[string]string `toml:"safety"`

	// OpenAI settings. WhisperPrompt is Whisper's style hint (spelling of names, punctuation).
	BaseURL       string `toml:"base_url"`
	Language      string `toml:"language"`
	WhisperPrompt string `toml:"whisper_prompt"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Mongo is the optional MongoDB transcript sink.
type Mongo struct {
	URI        string `toml:"uri"`
	Database   string `toml:"database"`
	Collection string `toml:"collection"`
}

// Postgres is the optional Postgres transcript sink.
type Postgres struct {
	DSN string `toml:"dsn"`
}

// Supabase is the optional Supabase transcript sink.
type Supabase struct {
	URL              string `toml:"url"`
	Key              string `toml:"key"`
	Password         string `toml:"password"`
	ConnectionString string `toml:"connection_string"`
}

// Config encapsulates all configuration values for podscribe.
//
// Configuration sections:
//   - Feed: which podcast, and the HTTP header profile
//   - Paths: audio and transcript caches
//   - Download: chunk size, size-probe concurrency, progress bars
//   - Transcription: backend, credentials, prompt, generation and safety settings
//   - Logging: log format and level
//   - Mongo, Postgres, Supabase: optional transcript sinks
type Config struct {
	Feed          Feed          `toml:"feed"`
	Paths         Paths         `toml:"paths"`
	Download      Download      `toml:"download"`
	Transcription Transcription `toml:"transcription"`
	Logging       Logging       `toml:"logging"`
	Mongo         Mongo         `toml:"mongo"`
	Postgres      Postgres      `toml:"postgres"`
	Supabase      Supabase      `toml:"supabase"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/podscribe/config.toml")
}

// Load locates, parses, normalizes and validates a configuration file. It returns the config,
// the path it resolved, and whether that file existed. A missing file is not an error: the
// defaults plus environment are used.
func Load(path string) (*Config, string, bool, error) {
	cfg, resolvedPath, exists, err := load(path)
	if err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}
	return cfg, resolvedPath, exists, nil
}

// LoadUnvalidated is Load without Validate, for commands that need no credentials.
func LoadUnvalidated(path string) (*Config, string, bool, error) {
	return load(path)
}

func load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file).DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	return &cfg, resolvedPath, exists, nil
}

// LoadDotEnv loads KEY=value pairs from path into the process environment without overriding
// variables that are already set. A missing file is ignored.
func LoadDotEnv(path string) error {
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("podscribe.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}
	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}

	return defaultPath, false, nil
}

// PollInterval returns how often a Gemini upload is re-checked while processing.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Transcription.PollIntervalSeconds) * time.Second
}

// PublishingEnabled reports whether any transcript sink is configured.
func (c *Config) PublishingEnabled() bool {
	return c.Mongo.URI != "" || c.Postgres.DSN != "" || c.Supabase.URL != "" || c.Supabase.ConnectionString != ""
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	absolute, err := filepath.Abs(filepath.Clean(pathValue))
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", pathValue, err)
	}
	return absolute, nil
}

// ExpandPath exposes the path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
