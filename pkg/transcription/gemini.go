package transcription

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"google.golang.org/genai"
)

// DefaultGeminiModel is used when no model is configured.
const DefaultGeminiModel = "gemini-1.5-flash"

var (
	harmCategories = map[string]bool{
		"HARM_CATEGORY_HARASSMENT":        true,
		"HARM_CATEGORY_HATE_SPEECH":       true,
		"HARM_CATEGORY_SEXUALLY_EXPLICIT": true,
		"HARM_CATEGORY_DANGEROUS_CONTENT": true,
		"HARM_CATEGORY_CIVIC_INTEGRITY":   true,
	}

	harmThresholds = map[string]bool{
		"BLOCK_NONE":             true,
		"BLOCK_ONLY_HIGH":        true,
		"BLOCK_MEDIUM_AND_ABOVE": true,
		"BLOCK_LOW_AND_ABOVE":    true,
		"OFF":                    true,
	}

	// blockedFinishReasons end a candidate without (all of) its text for content reasons.
	blockedFinishReasons = map[string]bool{
		"SAFETY":             true,
		"RECITATION":         true,
		"BLOCKLIST":          true,
		"PROHIBITED_CONTENT": true,
		"SPII":               true,
	}
)

// GeminiConfig configures the Gemini backend.
type GeminiConfig struct {
	APIKey string
	Model  string

	// Stream requests incremental chunks instead of one final block.
	Stream bool

	// MaxOutputTokens and TopP are sent only when positive.
	MaxOutputTokens int32
	TopP            float32

	// Safety maps harm categories to block thresholds. Both accept the API names
	// ("HARM_CATEGORY_HATE_SPEECH", "BLOCK_NONE") case-insensitively, and categories may
	// drop the "HARM_CATEGORY_" prefix.
	Safety map[string]string

	// PollInterval is how often an upload still being processed is re-checked.
	PollInterval time.Duration
}

// GeminiBackend transcribes audio with the Gemini API: upload through the Files API, then a
// generateContent call referencing the upload.
type GeminiBackend struct {
	client *genai.Client
	model  string
	stream bool
	config *genai.GenerateContentConfig
	poll   time.Duration
}

// NewGeminiBackend creates a Gemini client from cfg. The API key is required.
func NewGeminiBackend(ctx context.Context, cfg GeminiConfig) (*GeminiBackend, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("gemini API key cannot be empty")
	}

	genCfg, err := GenerateConfig(cfg)
	if err != nil {
		return nil, err
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	model := cfg.Model
	if model == "" {
		model = DefaultGeminiModel
	}
	poll := cfg.PollInterval
	if poll <= 0 {
		poll = 2 * time.Second
	}

	return &GeminiBackend{
		client: client,
		model:  model,
		stream: cfg.Stream,
		config: genCfg,
		poll:   poll,
	}, nil
}

// Name implements Backend.
func (g *GeminiBackend) Name() string {
	return "gemini/" + g.model
}

// Upload implements Backend. It waits for the Files API to finish processing the upload.
func (g *GeminiBackend) Upload(ctx context.Context, path string) (*RemoteFile, error) {
	mimeType := AudioMIMEType(path)
	f, err := g.client.Files.UploadFromPath(ctx, path, &genai.UploadFileConfig{
		MIMEType:    mimeType,
		DisplayName: filepath.Base(path),
	})
	if err != nil {
		return nil, err
	}

	for f.State == genai.FileState("PROCESSING") {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(g.poll):
		}
		if f, err = g.client.Files.Get(ctx, f.Name, nil); err != nil {
			return nil, fmt.Errorf("poll upload state: %w", err)
		}
	}
	if f.State == genai.FileState("FAILED") {
		return nil, fmt.Errorf("gemini could not process %s", filepath.Base(path))
	}

	if f.MIMEType != "" {
		mimeType = f.MIMEType
	}
	return &RemoteFile{Name: f.Name, URI: f.URI, MIMEType: mimeType, LocalPath: path}, nil
}

// Generate implements Backend.
func (g *GeminiBackend) Generate(ctx context.Context, file *RemoteFile, prompt string) iter.Seq2[string, error] {
	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromText(prompt),
			genai.NewPartFromURI(file.URI, file.MIMEType),
		}, genai.RoleUser),
	}

	if !g.stream {
		return func(yield func(string, error) bool) {
			resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, g.config)
			if err != nil {
				yield("", err)
				return
			}
			emit(yield, resp)
		}
	}

	return func(yield func(string, error) bool) {
		for resp, err := range g.client.Models.GenerateContentStream(ctx, g.model, contents, g.config) {
			if err != nil {
				yield("", err)
				return
			}
			if !emit(yield, resp) {
				return
			}
		}
	}
}

// emit yields the text of resp, then a content error if resp was blocked. It reports whether
// the sequence should continue.
func emit(yield func(string, error) bool, resp *genai.GenerateContentResponse) bool {
	text, err := ResponseText(resp)
	if text != "" && !yield(text, nil) {
		return false
	}
	if err != nil {
		yield("", err)
		return false
	}
	return true
}

// Delete implements Backend.
func (g *GeminiBackend) Delete(ctx context.Context, file *RemoteFile) error {
	if file == nil || file.Name == "" {
		return nil
	}
	_, err := g.client.Files.Delete(ctx, file.Name, nil)
	return err
}

// ResponseText extracts the text of one (possibly streamed) response. Blocked prompts or
// candidates are reported as ErrContentBlocked, a candidate stopped by the output limit as
// ErrOutputTruncated.
func ResponseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil {
		return "", nil
	}
	if fb := resp.PromptFeedback; fb != nil && fb.BlockReason != "" {
		return "", fmt.Errorf("%w: prompt blocked (%s)", ErrContentBlocked, fb.BlockReason)
	}

	text := resp.Text()
	if len(resp.Candidates) > 0 && resp.Candidates[0] != nil {
		reason := string(resp.Candidates[0].FinishReason)
		switch {
		case blockedFinishReasons[reason]:
			return text, fmt.Errorf("%w: finish reason %s", ErrContentBlocked, reason)
		case reason == string(genai.FinishReasonMaxTokens):
			return text, fmt.Errorf("%w: finish reason %s", ErrOutputTruncated, reason)
		}
	}
	return text, nil
}

// GenerateConfig builds the request configuration from cfg, validating safety settings.
func GenerateConfig(cfg GeminiConfig) (*genai.GenerateContentConfig, error) {
	settings, err := SafetySettings(cfg.Safety)
	if err != nil {
		return nil, err
	}

	genCfg := &genai.GenerateContentConfig{SafetySettings: settings}
	if cfg.MaxOutputTokens > 0 {
		genCfg.MaxOutputTokens = cfg.MaxOutputTokens
	}
	if cfg.TopP > 0 {
		genCfg.TopP = genai.Ptr(cfg.TopP)
	}
	return genCfg, nil
}

// SafetySettings converts a category→threshold map into request settings, sorted by
// category.
func SafetySettings(m map[string]string) ([]*genai.SafetySetting, error) {
	if len(m) == 0 {
		return nil, nil
	}

	categories := make([]string, 0, len(m))
	thresholds := make(map[string]string, len(m))
	for rawCategory, rawThreshold := range m {
		category := strings.ToUpper(strings.TrimSpace(rawCategory))
		if !strings.HasPrefix(category, "HARM_CATEGORY_") {
			category = "HARM_CATEGORY_" + category
		}
		if !harmCategories[category] {
			return nil, fmt.Errorf("unknown harm category %q", rawCategory)
		}
		if _, dup := thresholds[category]; dup {
			return nil, fmt.Errorf("harm category %s is set more than once", category)
		}
		threshold := strings.ToUpper(strings.TrimSpace(rawThreshold))
		if !harmThresholds[threshold] {
			return nil, fmt.Errorf("unknown block threshold %q for %s", rawThreshold, category)
		}
		categories = append(categories, category)
		thresholds[category] = threshold
	}
	sort.Strings(categories)

	settings := make([]*genai.SafetySetting, 0, len(categories))
	for _, category := range categories {
		settings = append(settings, &genai.SafetySetting{
			Category:  genai.HarmCategory(category),
			Threshold: genai.HarmBlockThreshold(thresholds[category]),
		})
	}
	return settings, nil
}
