package enrich

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"
)

// DefaultGeminiModel is used when no model name is configured.
const DefaultGeminiModel = "gemini-2.0-flash"

// GeminiOracle asks a Gemini model to extract transaction fields from an SMS.
type GeminiOracle struct {
	client *genai.Client
	model  string
}

// NewGeminiOracle creates a Gemini-backed oracle. An empty apiKey lets the
// SDK read GEMINI_API_KEY / GOOGLE_API_KEY from the environment.
func NewGeminiOracle(ctx context.Context, apiKey, model string) (*GeminiOracle, error) {
	if model == "" {
		model = DefaultGeminiModel
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      apiKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &GeminiOracle{client: client, model: model}, nil
}

// Extract implements Oracle.
func (g *GeminiOracle) Extract(ctx context.Context, sender, body string, timestampMillis int64) (*Hint, error) {
	contents := []*genai.Content{
		{
			Role:  "user",
			Parts: []*genai.Part{{Text: buildPrompt(sender, body, timestampMillis)}},
		},
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, nil)
	if err != nil {
		return nil, fmt.Errorf("generate content: %w", err)
	}

	rawText := resp.Text()
	if rawText == "" {
		return nil, fmt.Errorf("empty response from model")
	}
	return decodeHint(rawText)
}

func buildPrompt(sender, body string, timestampMillis int64) string {
	return "You extract financial transactions from Indian bank and fintech SMS messages.\n\n" +
		"Return ONLY one raw JSON object with these fields:\n" +
		"- \"is_transaction\": boolean, true only for a completed money movement\n" +
		"- \"type\": \"CREDIT\", \"DEBIT\" or \"INVESTMENT\", or null\n" +
		"- \"amount_minor\": integer amount in paise, or null\n" +
		"- \"channel\": one of UPI, CARD, ATM, POS, IMPS, NEFT, RTGS, NETBANKING, CASH, OTHER, or null\n" +
		"- \"merchant\": counterparty name, or null\n" +
		"- \"account_tail\": last 3-4 digits of the user's account or card, or null\n" +
		"- \"bank\": bank name, or null\n\n" +
		"Do NOT wrap the response in code fences.\n\n" +
		"Sender: " + sender + "\n" +
		"Received: " + time.UnixMilli(timestampMillis).UTC().Format(time.RFC3339) + "\n" +
		"Message: " + body + "\n"
}

func decodeHint(raw string) (*Hint, error) {
	var h Hint
	if err := json.Unmarshal([]byte(cleanModelJSON(raw)), &h); err != nil {
		return nil, fmt.Errorf("unmarshal hint: %w", err)
	}
	return &h, nil
}

// cleanModelJSON strips Markdown fences and any text around the JSON object.
func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		} else {
			return s
		}
		s = strings.TrimSpace(s)
	}
	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}

	if start, end := strings.Index(s, "{"), strings.LastIndex(s, "}"); start >= 0 && end > start {
		s = s[start : end+1]
	}
	return strings.TrimSpace(s)
}
