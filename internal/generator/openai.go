package generator

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/starford/othala/internal/models"
)

const systemPrompt = `You generate archival metadata for short notes.
Respond with a single JSON object and nothing else. Fields:
  "title":    short descriptive title (required)
  "date":     the note's date in YYYY-MM-DD; use today's date if the note gives none (required)
  "tags":     array of 1-5 lowercase topic tags
  "summary":  one-sentence summary
  "language": ISO 639-1 code of the note's language
Do not wrap the JSON in Markdown code fences.`

// OpenAI calls an OpenAI-compatible chat-completions endpoint to
// generate note metadata.
type OpenAI struct {
	model  string
	client *resty.Client
	logger *slog.Logger
}

// NewOpenAI creates a metadata generator against baseURL (for example
// "https://api.openai.com/v1") using the given model and key.
func NewOpenAI(baseURL, model, apiKey string, timeout time.Duration, logger *slog.Logger) *OpenAI {
	client := resty.New().
		SetBaseURL(strings.TrimSuffix(baseURL, "/")).
		SetTimeout(timeout).
		SetRetryCount(3).
		SetRetryWaitTime(1 * time.Second).
		SetRetryMaxWaitTime(5 * time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("Authorization", "Bearer "+apiKey)

	return &OpenAI{model: model, client: client, logger: logger}
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Generate implements Generator.
func (g *OpenAI) Generate(ctx context.Context, content, customInstructions string) (models.Metadata, error) {
	prompt := systemPrompt + "\nToday's date: " + time.Now().Format(models.DateLayout)
	if customInstructions != "" {
		prompt += "\nAdditional instructions: " + customInstructions
	}

	body := map[string]any{
		"model": g.model,
		"messages": []map[string]string{
			{"role": "system", "content": prompt},
			{"role": "user", "content": content},
		},
		"temperature": 0.2,
	}

	resp, err := g.client.R().
		SetContext(ctx).
		SetBody(body).
		Post("/chat/completions")
	if err != nil {
		return models.Metadata{}, fmt.Errorf("generator: request failed: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		g.logger.Warn("generator: non-200 response",
			slog.Int("status", resp.StatusCode()))
		return models.Metadata{}, fmt.Errorf("generator: unexpected status %d", resp.StatusCode())
	}

	var parsed chatResponse
	if err := json.Unmarshal(resp.Body(), &parsed); err != nil {
		return models.Metadata{}, fmt.Errorf("generator: decode response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return models.Metadata{}, fmt.Errorf("generator: empty response")
	}

	return parseMetadata(parsed.Choices[0].Message.Content)
}

// parseMetadata decodes the model's JSON answer, tolerating Markdown
// code fences the model may add despite instructions.
func parseMetadata(answer string) (models.Metadata, error) {
	answer = stripFences(answer)

	var raw map[string]any
	if err := json.Unmarshal([]byte(answer), &raw); err != nil {
		return models.Metadata{}, fmt.Errorf("generator: metadata is not valid JSON: %w", err)
	}
	meta := models.MetadataFromMap(raw)
	if err := meta.Validate(); err != nil {
		return models.Metadata{}, fmt.Errorf("generator: invalid metadata: %w", err)
	}
	return meta, nil
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 && !strings.ContainsAny(s[:i], "{}") {
		s = s[i+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
