package config

const (
	defaultFeedURL         = "https://jovemnerd.com.br/feed-nerdcast/"
	defaultHTTPProfile     = "default"
	defaultAudioDir        = "audio_dl"
	defaultTranscriptsDir  = "transcripts"
	defaultChunkSize       = 8192
	defaultProbeWorkers    = 8
	defaultBackend         = BackendGemini
	defaultGeminiModel     = "gemini-1.5-flash"
	defaultOpenAIModel     = "whisper-1"
	defaultPrompt          = "Transcreva o audio."
	defaultPollSeconds     = 2
	defaultLogFormat       = "console"
	defaultLogLevel        = "info"
	defaultMongoDatabase   = "podscribe"
	defaultMongoCollection = "podcast_transcripts"
	defaultSafetyThreshold = "BLOCK_NONE"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Feed: Feed{
			URL:         defaultFeedURL,
			HTTPProfile: defaultHTTPProfile,
		},
		Paths: Paths{
			AudioDir:       defaultAudioDir,
			TranscriptsDir: defaultTranscriptsDir,
		},
		Download: Download{
			ChunkSize:    defaultChunkSize,
			ProbeWorkers: defaultProbeWorkers,
			Progress:     true,
		},
		Transcription: Transcription{
			Backend:             defaultBackend,
			Prompt:              defaultPrompt,
			Stream:              true,
			Echo:                true,
			PollIntervalSeconds: defaultPollSeconds,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		Mongo: Mongo{
			Database:   defaultMongoDatabase,
			Collection: defaultMongoCollection,
		},
	}
}

// DefaultSafety returns the safety settings used when the config has no
// [transcription.safety] table: every category unblocked.
func DefaultSafety() map[string]string {
	return map[string]string{
		"harassment":        defaultSafetyThreshold,
		"hate_speech":       defaultSafetyThreshold,
		"sexually_explicit": defaultSafetyThreshold,
		"dangerous_content": defaultSafetyThreshold,
	}
}
