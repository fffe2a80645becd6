package transcription

import (
	"context"
	"errors"
	"iter"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIConfig configures the Whisper backend.
type OpenAIConfig struct {
	APIKey string
	Model  string

	// BaseURL overrides the API endpoint, e.g. for a compatible self-hosted server.
	BaseURL string

	// Language is an optional ISO-639-1 hint.
	Language string

	// Prompt is passed as Whisper's style hint. The instruction prompt given to Generate is
	// not meaningful to a speech model and is ignored.
	Prompt string
}

// OpenAIBackend transcribes audio with the OpenAI audio transcription endpoint. It reads the
// local file on every request, so Upload and Delete do nothing remotely.
type OpenAIBackend struct {
	client   *openai.Client
	model    string
	language string
	prompt   string
}

// NewOpenAIBackend creates a Whisper backend. The API key is required.
func NewOpenAIBackend(cfg OpenAIConfig) (*OpenAIBackend, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("openai API key cannot be empty")
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	model := cfg.Model
	if model == "" {
		model = openai.Whisper1
	}

	return &OpenAIBackend{
		client:   openai.NewClientWithConfig(clientCfg),
		model:    model,
		language: cfg.Language,
		prompt:   cfg.Prompt,
	}, nil
}

// Name implements Backend.
func (o *OpenAIBackend) Name() string {
	return "openai/" + o.model
}

// Upload implements Backend.
func (o *OpenAIBackend) Upload(_ context.Context, path string) (*RemoteFile, error) {
	return &RemoteFile{Name: path, MIMEType: AudioMIMEType(path), LocalPath: path}, nil
}

// Generate implements Backend. The endpoint does not stream, so the sequence yields once.
func (o *OpenAIBackend) Generate(ctx context.Context, file *RemoteFile, _ string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		resp, err := o.client.CreateTranscription(ctx, openai.AudioRequest{
			Model:    o.model,
			FilePath: file.LocalPath,
			Prompt:   o.prompt,
			Language: o.language,
			Format:   openai.AudioResponseFormatJSON,
		})
		if err != nil {
			yield("", err)
			return
		}
		yield(resp.Text, nil)
	}
}

// Delete implements Backend.
func (o *OpenAIBackend) Delete(context.Context, *RemoteFile) error {
	return nil
}
