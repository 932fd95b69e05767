package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"PriceTrack/internal/domain/models"
	"PriceTrack/internal/domain/service"
	"PriceTrack/internal/services/features"
	applogger "PriceTrack/pkg/logger"
	"PriceTrack/pkg/util"

	"github.com/sashabaranov/go-openai"
)

const maxDescriptionRunes = 2000

const analystPersona = "You are a product analysis expert. Analyze products and provide buying recommendations based on price history and trends."

// ChatProductAnalyzer asks an OpenAI-compatible gateway for a buying
// recommendation.
type ChatProductAnalyzer struct {
	client *openai.Client
	model  string
	l      *applogger.Logger
}

var _ service.ProductAnalyzer = (*ChatProductAnalyzer)(nil)

// NewChatProductAnalyzer returns ErrNotConfigured when apiKey is empty.
func NewChatProductAnalyzer(baseURL, apiKey, model string, timeout time.Duration, l *applogger.Logger) (*ChatProductAnalyzer, error) {
	if apiKey == "" {
		return nil, ErrNotConfigured
	}
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	if timeout > 0 {
		cfg.HTTPClient = &http.Client{Timeout: timeout}
	}
	return &ChatProductAnalyzer{client: openai.NewClientWithConfig(cfg), model: model, l: l}, nil
}

func (a *ChatProductAnalyzer) Analyze(ctx context.Context, in models.AnalysisInput) (models.AnalysisResult, error) {
	req := openai.ChatCompletionRequest{
		Model: a.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: analystPersona},
			{Role: openai.ChatMessageRoleUser, Content: buildAnalysisPrompt(in)},
		},
	}

	start := time.Now()
	resp, err := a.client.CreateChatCompletion(ctx, req)
	if err != nil {
		a.l.Error("ai gateway call failed",
			applogger.String("model", a.model),
			applogger.Error(err))
		return models.AnalysisResult{}, classifyGatewayError(err)
	}
	if len(resp.Choices) == 0 {
		return models.AnalysisResult{}, fmt.Errorf("%w: no choices", ErrGateway)
	}
	a.l.Debug("ai gateway ok",
		applogger.String("model", a.model),
		applogger.Duration("duration_ms", time.Since(start)))
	return parseAnalysis(resp.Choices[0].Message.Content), nil
}

func buildAnalysisPrompt(in models.AnalysisInput) string {
	var b strings.Builder
	b.WriteString("Analyze this product and provide a buying recommendation:\n\n")
	fmt.Fprintf(&b, "Product: %s\n", in.ProductName)
	fmt.Fprintf(&b, "Description: %s\n", util.Truncate(util.FirstNonEmpty(in.Description, "n/a"), maxDescriptionRunes))
	fmt.Fprintf(&b, "Current Price: ₹%v\n", in.CurrentPrice)
	fmt.Fprintf(&b, "Lowest Price (30 days): ₹%v\n", in.LowestPrice)
	fmt.Fprintf(&b, "Highest Price (30 days): ₹%v\n", in.HighestPrice)
	fmt.Fprintf(&b, "Price Trend: %s\n\n", features.Trend(in.PriceHistory))
	b.WriteString("Provide:\n")
	b.WriteString("1. A sentiment score between 0 and 1 (0 = poor deal, 1 = excellent deal)\n")
	b.WriteString("2. A brief recommendation (max 100 words)\n")
	b.WriteString("3. A one-sentence summary\n\n")
	b.WriteString("Format your response as JSON with keys: sentimentScore, recommendation, summary")
	return b.String()
}

// parseAnalysis accepts bare or fenced JSON and falls back to the raw text.
func parseAnalysis(content string) models.AnalysisResult {
	body := strings.TrimSpace(content)
	if strings.HasPrefix(body, "```") {
		body = strings.TrimPrefix(body, "```json")
		body = strings.TrimPrefix(body, "```")
		body = strings.TrimSuffix(strings.TrimSpace(body), "```")
	}
	var res models.AnalysisResult
	if err := json.Unmarshal([]byte(strings.TrimSpace(body)), &res); err != nil {
		return models.AnalysisResult{
			SentimentScore: 0.5,
			Recommendation: content,
			Summary:        "AI analysis available",
		}
	}
	return res
}

func classifyGatewayError(err error) error {
	status := 0
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	}
	switch status {
	case http.StatusTooManyRequests:
		return ErrRateLimited
	case http.StatusPaymentRequired:
		return ErrPaymentRequired
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrGateway, err)
}
