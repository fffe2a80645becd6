package config

import (
	"errors"
	"fmt"
	"net/url"

	"podscribe/pkg/httpclient"
	"podscribe/pkg/transcription"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateFeed(); err != nil {
		return err
	}
	if err := c.validateDownload(); err != nil {
		return err
	}
	if err := c.validateTranscription(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateFeed() error {
	if c.Feed.URL == "" {
		return errors.New("feed.url must be set")
	}
	u, err := url.Parse(c.Feed.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("feed.url must be an http(s) URL, got %q", c.Feed.URL)
	}
	if _, err := httpclient.ParseClientType(c.Feed.HTTPProfile); err != nil {
		return fmt.Errorf("feed.http_profile: %w", err)
	}
	return nil
}

func (c *Config) validateDownload() error {
	if c.Download.ChunkSize < 0 {
		return errors.New("download.chunk_size must be positive")
	}
	if c.Download.ProbeWorkers < 0 {
		return errors.New("download.probe_workers must be positive")
	}
	return nil
}

func (c *Config) validateTranscription() error {
	t := c.Transcription
	switch t.Backend {
	case BackendGemini, BackendOpenAI:
	default:
		return fmt.Errorf("transcription.backend must be %q or %q, got %q", BackendGemini, BackendOpenAI, t.Backend)
	}

	if t.APIKey == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/podscribe/config.toml"
		}
		envVar := "GEMINI_API_KEY"
		if t.Backend == BackendOpenAI {
			envVar = "OPENAI_API_KEY"
		}
		return fmt.Errorf("transcription.api_key is required. Set %s (or put it in .env) or edit %s (create with 'podscribe config init')", envVar, defaultPath)
	}

	if t.MaxOutputTokens < 0 {
		return errors.New("transcription.max_output_tokens must not be negative")
	}
	if t.TopP < 0 || t.TopP > 1 {
		return errors.New("transcription.top_p must be between 0 and 1")
	}
	if t.Backend == BackendGemini {
		if _, err := transcription.SafetySettings(t.Safety); err != nil {
			return fmt.Errorf("transcription.safety: %w", err)
		}
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn or error, got %q", c.Logging.Level)
	}
	return nil
}
