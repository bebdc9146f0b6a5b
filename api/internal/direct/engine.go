// Package direct generates reports and stories by calling Gemini from the
// process itself, for deployments without the generation backend.
package direct

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/MohamedFakhry2007/imaging-report-generator/api/internal/backend"
	"github.com/MohamedFakhry2007/imaging-report-generator/api/internal/upload"
)

const DefaultModel = "gemini-2.0-flash"

type Engine struct {
	APIKey  string
	Model   string
	Variant backend.Variant
}

func New(apiKey, model string, v backend.Variant) *Engine {
	model = strings.TrimSpace(model)
	if model == "" {
		model = DefaultModel
	}
	return &Engine{
		APIKey:  strings.TrimSpace(apiKey),
		Model:   model,
		Variant: v,
	}
}

func (e *Engine) Name() string { return "gemini" }

// ListStyles serves the built-in catalog; no network involved.
func (e *Engine) ListStyles(ctx context.Context) ([]backend.Style, error) {
	return Catalog(), nil
}

// Generate converts the image to JPEG and asks the model for a report or
// a story, depending on the variant.
func (e *Engine) Generate(ctx context.Context, in backend.GenerateRequest) (string, error) {
	if e.APIKey == "" {
		return "", errors.New("GEMINI_API_KEY is empty")
	}
	sys, err := SystemPrompt(e.Variant, in.StyleID)
	if err != nil {
		return "", fmt.Errorf("gemini: %w", err)
	}
	jpg, err := upload.ToJPEG(in.File.Data, upload.MaxPixels)
	if err != nil {
		return "", fmt.Errorf("gemini: %w", err)
	}

	cl, err := genai.NewClient(ctx, option.WithAPIKey(e.APIKey))
	if err != nil {
		return "", err
	}
	defer cl.Close()

	m := cl.GenerativeModel(e.Model)
	if m == nil {
		return "", fmt.Errorf("gemini: model is nil")
	}
	m.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(sys)}}
	m.SafetySettings = relaxedSafety()
	if e.Variant == backend.VariantReport {
		m.GenerationConfig = genai.GenerationConfig{Temperature: ptrFloat32(0.2)}
	} else {
		m.GenerationConfig = genai.GenerationConfig{Temperature: ptrFloat32(0.9)}
	}

	parts := []genai.Part{
		genai.Text(userPrompt(e.Variant)),
		&genai.Blob{MIMEType: "image/jpeg", Data: jpg},
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		resp, err := m.GenerateContent(ctx, parts...)
		if err != nil {
			lastErr = err
			if attempt == maxAttempts || !retryable(err) {
				break
			}
			if backoff(ctx, attempt) != nil {
				break
			}
			continue
		}
		txt := strings.TrimSpace(firstText(resp))
		if txt == "" {
			return "", fmt.Errorf("gemini: empty response%s", blockReason(resp))
		}
		return txt, nil
	}
	return "", lastErr
}

func userPrompt(v backend.Variant) string {
	if v == backend.VariantReport {
		return "Generate the preliminary report for this image."
	}
	return "اكتب القصة المستوحاة من هذه الصورة."
}

// relaxedSafety keeps anatomy in medical scans from being blocked as
// violent or explicit content.
func relaxedSafety() []*genai.SafetySetting {
	cats := []genai.HarmCategory{
		genai.HarmCategoryHarassment,
		genai.HarmCategoryHateSpeech,
		genai.HarmCategorySexuallyExplicit,
		genai.HarmCategoryDangerousContent,
	}
	out := make([]*genai.SafetySetting, 0, len(cats))
	for _, c := range cats {
		out = append(out, &genai.SafetySetting{Category: c, Threshold: genai.HarmBlockOnlyHigh})
	}
	return out
}

func blockReason(resp *genai.GenerateContentResponse) string {
	if resp == nil || resp.PromptFeedback == nil || resp.PromptFeedback.BlockReason == genai.BlockReasonUnspecified {
		return ""
	}
	return fmt.Sprintf(" (blocked: %s)", resp.PromptFeedback.BlockReason)
}

func firstText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	for _, c := range resp.Candidates {
		if c.Content == nil {
			continue
		}
		var b strings.Builder
		for _, p := range c.Content.Parts {
			if t, ok := p.(genai.Text); ok {
				b.WriteString(string(t))
			}
		}
		if b.Len() > 0 {
			return b.String()
		}
	}
	return ""
}

func ptrFloat32(v float32) *float32 { return &v }
