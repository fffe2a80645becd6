package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeFeed()
	c.normalizeDownload()
	c.normalizeTranscription()
	c.normalizeLogging()
	c.normalizeSinks()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.AudioDir) == "" {
		c.Paths.AudioDir = defaultAudioDir
	}
	if c.Paths.AudioDir, err = expandPath(c.Paths.AudioDir); err != nil {
		return fmt.Errorf("paths.audio_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.TranscriptsDir) == "" {
		c.Paths.TranscriptsDir = defaultTranscriptsDir
	}
	if c.Paths.TranscriptsDir, err = expandPath(c.Paths.TranscriptsDir); err != nil {
		return fmt.Errorf("paths.transcripts_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeFeed() {
	if value, ok := os.LookupEnv("PODSCRIBE_FEED_URL"); ok && strings.TrimSpace(value) != "" {
		c.Feed.URL = value
	}
	c.Feed.URL = strings.TrimSpace(c.Feed.URL)
	c.Feed.HTTPProfile = strings.ToLower(strings.TrimSpace(c.Feed.HTTPProfile))
	if c.Feed.HTTPProfile == "" {
		c.Feed.HTTPProfile = defaultHTTPProfile
	}
}

func (c *Config) normalizeDownload() {
	if c.Download.ChunkSize == 0 {
		c.Download.ChunkSize = defaultChunkSize
	}
	if c.Download.ProbeWorkers == 0 {
		c.Download.ProbeWorkers = defaultProbeWorkers
	}
}

// normalizeTranscription fills the API key from the environment. Environment variables take
// precedence over the file so that a key can be rotated without editing it.
func (c *Config) normalizeTranscription() {
	t := &c.Transcription
	t.Backend = strings.ToLower(strings.TrimSpace(t.Backend))
	if t.Backend == "" {
		t.Backend = defaultBackend
	}

	var envKeys []string
	switch t.Backend {
	case BackendGemini:
		envKeys = []string{"GEMINI_API_KEY", "GOOGLE_API_KEY"}
		if t.Model == "" {
			t.Model = defaultGeminiModel
		}
	case BackendOpenAI:
		envKeys = []string{"OPENAI_API_KEY"}
		if t.Model == "" {
			t.Model = defaultOpenAIModel
		}
	}
	for _, key := range envKeys {
		if value, ok := os.LookupEnv(key); ok && strings.TrimSpace(value) != "" {
			t.APIKey = value
			break
		}
	}
	t.APIKey = strings.TrimSpace(t.APIKey)

	if t.Prompt == "" {
		t.Prompt = defaultPrompt
	}
	if t.PollIntervalSeconds <= 0 {
		t.PollIntervalSeconds = defaultPollSeconds
	}
	if len(t.Safety) == 0 {
		t.Safety = DefaultSafety()
	}
	t.BaseURL = strings.TrimSpace(t.BaseURL)
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func (c *Config) normalizeSinks() {
	if c.Mongo.URI == "" {
		c.Mongo.URI = os.Getenv("MONGO_URI")
	}
	if c.Mongo.Database == "" {
		c.Mongo.Database = defaultMongoDatabase
	}
	if c.Mongo.Collection == "" {
		c.Mongo.Collection = defaultMongoCollection
	}
	if c.Postgres.DSN == "" {
		c.Postgres.DSN = os.Getenv("DATABASE_URL")
	}
	if c.Supabase.Key == "" {
		c.Supabase.Key = os.Getenv("SUPABASE_KEY")
	}
	if c.Supabase.Password == "" {
		c.Supabase.Password = os.Getenv("SUPABASE_DB_PASSWORD")
	}
}
