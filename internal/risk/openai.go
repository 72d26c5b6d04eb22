package risk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"volsignal/pkg/model"
)

const defaultAssessorTimeout = 30 * time.Second

// OpenAIAssessor calls an OpenAI-compatible chat-completions endpoint to
// score overnight news risk from the curated headline summary.
type OpenAIAssessor struct {
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
}

// NewOpenAIAssessor creates an assessor against the given endpoint.
func NewOpenAIAssessor(apiKey, baseURL, modelName string) *OpenAIAssessor {
	return &OpenAIAssessor{
		apiKey:  apiKey,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		model:   modelName,
		client:  &http.Client{Timeout: defaultAssessorTimeout},
	}
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// assessment is the JSON document the model is instructed to return.
type assessment struct {
	Score         int    `json:"overnight_magnitude_risk_score"`
	Category      string `json:"risk_category"`
	Reasoning     string `json:"reasoning"`
	KeyRisk       string `json:"key_overnight_risk"`
	DirectionRisk string `json:"direction_risk"`
}

const systemPrompt = `You are an overnight risk analyst for short-dated SPX volatility selling.
Given today's curated headlines, estimate the risk of a large overnight index move.
Weigh unique events only; duplicates must not inflate the score. Megacap single-name
news has direct index impact. Respond with a single JSON object:
{"overnight_magnitude_risk_score": 1-10, "risk_category": "LOW|MODERATE|ELEVATED|HIGH",
"reasoning": "...", "key_overnight_risk": "...", "direction_risk": "UP|DOWN|BOTH|UNKNOWN"}`

// Assess sends the summary for scoring and calibrates the returned raw
// score. Transport errors, non-200 responses and unparseable output are
// all returned as errors; the caller substitutes the conservative
// fallback.
func (a *OpenAIAssessor) Assess(ctx context.Context, summary string) (model.NewsRiskResult, error) {
	payload := chatRequest{
		Model: a.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: summary},
		},
		Temperature: 0.2,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return model.NewsRiskResult{}, fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", a.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return model.NewsRiskResult{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+a.apiKey)

	resp, err := a.client.Do(req)
	if err != nil {
		return model.NewsRiskResult{}, fmt.Errorf("calling assessor: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return model.NewsRiskResult{}, fmt.Errorf("assessor status %d", resp.StatusCode)
	}

	var chat chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chat); err != nil {
		return model.NewsRiskResult{}, fmt.Errorf("decoding response: %w", err)
	}
	if len(chat.Choices) == 0 || chat.Choices[0].Message.Content == "" {
		return model.NewsRiskResult{}, fmt.Errorf("empty assessor response")
	}

	doc, err := parseAssessment(chat.Choices[0].Message.Content)
	if err != nil {
		return model.NewsRiskResult{}, err
	}

	raw := clampScore(doc.Score)
	return model.NewsRiskResult{
		Score:         calibrate(raw),
		RawScore:      raw,
		Category:      doc.Category,
		Reasoning:     doc.Reasoning,
		KeyRisk:       doc.KeyRisk,
		DirectionRisk: doc.DirectionRisk,
	}, nil
}

// parseAssessment decodes the model output, tolerating a markdown code
// fence around the JSON document.
func parseAssessment(content string) (assessment, error) {
	text := strings.TrimSpace(content)
	if strings.HasPrefix(text, "```") {
		parts := strings.SplitN(text, "```", 3)
		if len(parts) >= 2 {
			text = parts[1]
		}
		text = strings.TrimPrefix(strings.TrimSpace(text), "json")
		text = strings.TrimSpace(text)
	}

	var doc assessment
	if err := json.Unmarshal([]byte(text), &doc); err != nil {
		return assessment{}, fmt.Errorf("parsing assessment: %w", err)
	}
	if doc.Score == 0 {
		return assessment{}, fmt.Errorf("assessment missing risk score")
	}
	if doc.Category == "" {
		doc.Category = "MODERATE"
	}
	if doc.DirectionRisk == "" {
		doc.DirectionRisk = "UNKNOWN"
	}
	return doc, nil
}
