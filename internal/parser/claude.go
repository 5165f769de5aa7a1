package parser

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"autoapply/internal/config"
	"autoapply/internal/logging"
	"autoapply/pkg/models"
)

// ClaudeExtractor extracts structured profile data from resume text using
// Anthropic's Claude
type ClaudeExtractor struct {
	client anthropic.Client
	cfg    *config.Config
	logger logging.Logger
}

// NewClaudeExtractor creates a Claude-backed resume extractor
func NewClaudeExtractor(cfg *config.Config) *ClaudeExtractor {
	client := anthropic.NewClient(
		option.WithAPIKey(cfg.LLM.APIKey),
	)

	return &ClaudeExtractor{
		client: client,
		cfg:    cfg,
		logger: logging.GetGlobalLogger(),
	}
}

// claudeProfile is the JSON shape Claude is asked to produce.
type claudeProfile struct {
	Name       string   `json:"name"`
	Email      string   `json:"email"`
	Phone      string   `json:"phone"`
	Skills     []string `json:"skills"`
	Titles     []string `json:"titles"`
	Summary    string   `json:"summary"`
	Experience []string `json:"experience"`
}

// Extract sends the resume text to Claude and parses the structured reply
func (ce *ClaudeExtractor) Extract(ctx context.Context, text string) (*models.Profile, error) {
	// Rough estimation: 3 chars per token
	maxContentLength := ce.cfg.LLM.MaxTokens * 3
	if len(text) > maxContentLength {
		text = text[:maxContentLength] + "..."
	}

	response, err := ce.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(ce.cfg.LLM.Model),
		MaxTokens:   int64(ce.cfg.LLM.MaxTokens),
		Temperature: anthropic.Float(float64(ce.cfg.LLM.Temperature)),
		Messages: []anthropic.MessageParam{{
			Content: []anthropic.ContentBlockParamUnion{{
				OfText: &anthropic.TextBlockParam{Text: buildExtractionPrompt(text)},
			}},
			Role: anthropic.MessageParamRoleUser,
		}},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to call Claude API: %w", err)
	}

	profile, err := parseClaudeResponse(response)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Claude response: %w", err)
	}

	ce.logger.Info("Resume extracted with Claude", map[string]interface{}{
		"name":   profile.Contact.Name,
		"skills": len(profile.Skills),
	})
	return profile, nil
}

func buildExtractionPrompt(text string) string {
	return fmt.Sprintf(`You are a resume analyzer. Extract structured candidate information from the resume below and return it as a JSON object.

Return a valid JSON object with exactly these fields:

{
  "name": "string - The candidate's full name",
  "email": "string - The candidate's email address",
  "phone": "string - The candidate's phone number",
  "skills": ["array of strings - Technical and professional skills"],
  "titles": ["array of strings - Job titles held or sought, most recent first"],
  "summary": "string - A 2-3 sentence professional summary",
  "experience": ["array of strings - One line per role: title, company, duration"]
}

IMPORTANT RULES:
1. Return ONLY valid JSON, no additional text or explanation
2. If information is not found, use empty string "" for strings and empty array [] for arrays
3. Normalize skill names (e.g. "golang" -> "Go")
4. Keep the summary concise

RESUME:
%s`, text)
}

func parseClaudeResponse(response *anthropic.Message) (*models.Profile, error) {
	if len(response.Content) == 0 {
		return nil, fmt.Errorf("empty response from Claude")
	}

	var responseText string
	for _, content := range response.Content {
		textContent := content.AsText()
		responseText = textContent.Text
		break
	}
	if responseText == "" {
		return nil, fmt.Errorf("no text content in Claude response")
	}

	// Strip markdown code fences if present
	responseText = strings.TrimSpace(responseText)
	if strings.HasPrefix(responseText, "```json") {
		responseText = strings.TrimPrefix(responseText, "```json")
		responseText = strings.TrimSuffix(responseText, "```")
		responseText = strings.TrimSpace(responseText)
	} else if strings.HasPrefix(responseText, "```") {
		responseText = strings.TrimPrefix(responseText, "```")
		responseText = strings.TrimSuffix(responseText, "```")
		responseText = strings.TrimSpace(responseText)
	}

	var parsed claudeProfile
	if err := json.Unmarshal([]byte(responseText), &parsed); err != nil {
		return nil, fmt.Errorf("invalid JSON from Claude: %w", err)
	}
	if parsed.Name == "" && parsed.Email == "" && len(parsed.Skills) == 0 {
		return nil, fmt.Errorf("Claude returned an empty profile")
	}

	return &models.Profile{
		Contact: models.Contact{
			Name:  parsed.Name,
			Email: strings.ToLower(parsed.Email),
			Phone: parsed.Phone,
		},
		Skills:     parsed.Skills,
		Titles:     parsed.Titles,
		Summary:    parsed.Summary,
		Experience: parsed.Experience,
	}, nil
}

// IsHealthy checks that the API key is configured and the API is reachable
func (ce *ClaudeExtractor) IsHealthy(ctx context.Context) error {
	if ce.cfg.LLM.APIKey == "" {
		return fmt.Errorf("Claude API key not configured - set LLM_API_KEY environment variable")
	}

	_, err := ce.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(ce.cfg.LLM.Model),
		MaxTokens: 16,
		Messages: []anthropic.MessageParam{{
			Content: []anthropic.ContentBlockParamUnion{{
				OfText: &anthropic.TextBlockParam{Text: "Hello"},
			}},
			Role: anthropic.MessageParamRoleUser,
		}},
	})
	if err != nil {
		return fmt.Errorf("Claude API health check failed: %w", err)
	}
	return nil
}
