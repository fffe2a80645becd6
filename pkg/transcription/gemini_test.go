package transcription

import (
	"context"
	"errors"
	"testing"

	"google.golang.org/genai"
)

func TestSafetySettings(t *testing.T) {
	settings, err := SafetySettings(map[string]string{
		"hate_speech":                     "block_none",
		"HARM_CATEGORY_DANGEROUS_CONTENT": "BLOCK_ONLY_HIGH",
	})
	if err != nil {
		t.Fatalf("SafetySettings failed: %v", err)
	}
	if len(settings) != 2 {
		t.Fatalf("Expected 2 settings, got %d", len(settings))
	}

	// Sorted by category
	if settings[0].Category != genai.HarmCategory("HARM_CATEGORY_DANGEROUS_CONTENT") ||
		settings[0].Threshold != genai.HarmBlockThreshold("BLOCK_ONLY_HIGH") {
		t.Errorf("Unexpected first setting: %+v", settings[0])
	}
	if settings[1].Category != genai.HarmCategory("HARM_CATEGORY_HATE_SPEECH") ||
		settings[1].Threshold != genai.HarmBlockThreshold("BLOCK_NONE") {
		t.Errorf("Unexpected second setting: %+v", settings[1])
	}
}

func TestSafetySettings_Invalid(t *testing.T) {
	if _, err := SafetySettings(map[string]string{"gossip": "BLOCK_NONE"}); err == nil {
		t.Error("Expected error for unknown category, got nil")
	}
	if _, err := SafetySettings(map[string]string{"harassment": "BLOCK_SOME"}); err == nil {
		t.Error("Expected error for unknown threshold, got nil")
	}
	if _, err := SafetySettings(map[string]string{"harassment": "OFF", "HARM_CATEGORY_HARASSMENT": "OFF"}); err == nil {
		t.Error("Expected error for duplicate category, got nil")
	}
	if settings, err := SafetySettings(nil); err != nil || settings != nil {
		t.Errorf("Expected no settings for empty map, got %v (err=%v)", settings, err)
	}
}

func TestGenerateConfig(t *testing.T) {
	cfg, err := GenerateConfig(GeminiConfig{MaxOutputTokens: 8192, TopP: 0.95})
	if err != nil {
		t.Fatalf("GenerateConfig failed: %v", err)
	}
	if cfg.MaxOutputTokens != 8192 {
		t.Errorf("Expected MaxOutputTokens 8192, got %d", cfg.MaxOutputTokens)
	}
	if cfg.TopP == nil || *cfg.TopP != 0.95 {
		t.Errorf("Expected TopP 0.95, got %v", cfg.TopP)
	}

	cfg, err = GenerateConfig(GeminiConfig{})
	if err != nil {
		t.Fatalf("GenerateConfig failed: %v", err)
	}
	if cfg.TopP != nil {
		t.Errorf("Expected TopP unset, got %v", *cfg.TopP)
	}
}

func textResponse(text string, finish genai.FinishReason) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content:      genai.NewContentFromText(text, genai.RoleModel),
			FinishReason: finish,
		}},
	}
}

func TestResponseText(t *testing.T) {
	// Test Case 1: plain text
	text, err := ResponseText(textResponse("Olá", genai.FinishReason("STOP")))
	if err != nil || text != "Olá" {
		t.Errorf("Expected %q with no error, got %q (err=%v)", "Olá", text, err)
	}

	// Test Case 2: text cut off by a safety stop is returned along with the error
	text, err = ResponseText(textResponse("partial", genai.FinishReason("SAFETY")))
	if !errors.Is(err, ErrContentBlocked) {
		t.Errorf("Expected ErrContentBlocked, got %v", err)
	}
	if text != "partial" {
		t.Errorf("Expected text before the block, got %q", text)
	}

	// Test Case 3: blocked prompt
	_, err = ResponseText(&genai.GenerateContentResponse{
		PromptFeedback: &genai.GenerateContentResponsePromptFeedback{BlockReason: genai.BlockedReason("SAFETY")},
	})
	if !errors.Is(err, ErrContentBlocked) {
		t.Errorf("Expected ErrContentBlocked for blocked prompt, got %v", err)
	}

	// Test Case 4: output limit reached
	text, err = ResponseText(textResponse("cut off mid sen", genai.FinishReasonMaxTokens))
	if !errors.Is(err, ErrOutputTruncated) {
		t.Errorf("Expected ErrOutputTruncated, got %v", err)
	}
	if text != "cut off mid sen" {
		t.Errorf("Expected text before the limit, got %q", text)
	}

	// Test Case 5: nil response
	if text, err := ResponseText(nil); text != "" || err != nil {
		t.Errorf("Expected empty result for nil response, got %q (err=%v)", text, err)
	}
}

func TestNewGeminiBackend_RequiresKey(t *testing.T) {
	if _, err := NewGeminiBackend(context.Background(), GeminiConfig{}); err == nil {
		t.Error("Expected error for missing API key, got nil")
	}
}
