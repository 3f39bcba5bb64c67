// Package ai talks to an OpenAI-compatible chat completions API.
package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	apperrors "property-search/internal/common/errors"
	commonhttp "property-search/internal/common/http"
	"property-search/internal/common/logger"
	"property-search/internal/common/metrics"
	"property-search/internal/models"
	"property-search/internal/search"
)

const (
	serviceName          = "genai"
	completionsPath      = "/v1/chat/completions"
	insightsTemperature  = 0.5
	consultTemperature   = 0.7
	translateTemperature = 0.3
)

var errEmptyCompletion = errors.New("completion has no choices")

type Config struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

type Client struct {
	http   *commonhttp.Client
	config Config
	logger logger.Logger
}

func NewClient(cfg Config, log logger.Logger) *Client {
	return &Client{
		http:   commonhttp.NewClient(cfg.Timeout),
		config: cfg,
		logger: log.WithFields(map[string]interface{}{"component": "genai", "model": cfg.Model}),
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type completionRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Temperature    float64         `json:"temperature"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type completionResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// complete performs one round trip and returns the first choice's content.
func (c *Client) complete(ctx context.Context, operation string, messages []chatMessage, temperature float64, jsonMode bool) (string, error) {
	req := completionRequest{
		Model:       c.config.Model,
		Messages:    messages,
		Temperature: temperature,
	}
	if jsonMode {
		req.ResponseFormat = &responseFormat{Type: "json_object"}
	}

	headers := map[string]string{}
	if c.config.APIKey != "" {
		headers["Authorization"] = "Bearer " + c.config.APIKey
	}

	var resp completionResponse
	url := strings.TrimRight(c.config.BaseURL, "/") + completionsPath
	if err := c.http.PostJSON(ctx, url, headers, req, &resp); err != nil {
		metrics.AIRequests.WithLabelValues(operation, "error").Inc()
		return "", apperrors.NewExternalServiceError(serviceName, err)
	}
	if len(resp.Choices) == 0 {
		metrics.AIRequests.WithLabelValues(operation, "error").Inc()
		return "", apperrors.NewExternalServiceError(serviceName, errEmptyCompletion)
	}

	metrics.AIRequests.WithLabelValues(operation, "ok").Inc()
	return resp.Choices[0].Message.Content, nil
}

// ExtractJSON sends a JSON-mode prompt and decodes the reply as an object.
func (c *Client) ExtractJSON(ctx context.Context, req search.ExtractionRequest) (map[string]interface{}, error) {
	content, err := c.complete(ctx, "extract", []chatMessage{
		{Role: "system", Content: req.SystemPrompt},
		{Role: "user", Content: req.UserPrompt},
	}, req.Temperature, true)
	if err != nil {
		return nil, err
	}
	return decodeObject(content)
}

var insightsPrompts = map[string][2]string{
	models.LanguageEnglish: {
		"You are a real estate market analyst. Give balanced, practical observations about a listing for prospective buyers and tenants. Reply with a JSON object.",
		"Analyse this property and return a JSON object with the keys marketTrends, investmentPotential, neighborhoodAnalysis and pricePrediction:\n%s",
	},
	models.LanguageArabic: {
		"أنت محلل لسوق العقارات. قدّم ملاحظات متوازنة وعملية حول العقار للمشترين والمستأجرين المحتملين. أجب بكائن JSON.",
		"حلّل هذا العقار وأعد كائن JSON بالمفاتيح marketTrends و investmentPotential و neighborhoodAnalysis و pricePrediction:\n%s",
	},
}

// Insights returns an analysis of p. Failures surface as ExternalServiceError.
func (c *Client) Insights(ctx context.Context, p models.Property, language string) (models.Insights, error) {
	prompts := insightsPrompts[search.NormalizeLanguage(language)]
	payload, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("marshal property: %w", err)
	}

	content, err := c.complete(ctx, "insights", []chatMessage{
		{Role: "system", Content: prompts[0]},
		{Role: "user", Content: fmt.Sprintf(prompts[1], payload)},
	}, insightsTemperature, true)
	if err != nil {
		return nil, err
	}

	obj, err := decodeObject(content)
	if err != nil {
		return nil, err
	}
	return models.Insights(obj), nil
}

var consultantPrompts = map[string]string{
	models.LanguageEnglish: "You are a friendly, professional property consultant for the Dubai and wider UAE market. " +
		"Help clients with listings, prices, neighbourhoods, investment questions and buying or renting advice.",
	models.LanguageArabic: "أنت مستشار عقاري ودود ومحترف متخصص في سوق دبي والإمارات. " +
		"ساعد العملاء في العقارات المعروضة والأسعار والأحياء وأسئلة الاستثمار ونصائح الشراء أو الإيجار.",
}

var consultantApologies = map[string]string{
	models.LanguageEnglish: "Sorry, I encountered an error processing your message. Please try again later.",
	models.LanguageArabic:  "عذراً، واجهت خطأ في معالجة رسالتك. يرجى المحاولة مرة أخرى لاحقاً.",
}

// Consult continues a chat. A failed call answers with a localized apology instead of an error.
func (c *Client) Consult(ctx context.Context, history []models.ChatMessage, language string) string {
	language = search.NormalizeLanguage(language)

	messages := make([]chatMessage, 0, len(history)+1)
	messages = append(messages, chatMessage{Role: "system", Content: consultantPrompts[language]})
	for _, m := range history {
		messages = append(messages, chatMessage{Role: m.Role, Content: m.Content})
	}

	content, err := c.complete(ctx, "consult", messages, consultTemperature, false)
	if err != nil {
		c.logger.Warn("consultant reply failed", map[string]interface{}{"error": err, "language": language})
		return consultantApologies[language]
	}
	return content
}

// Translate returns text unchanged when the service fails.
func (c *Client) Translate(ctx context.Context, text, source, target string) string {
	content, err := c.complete(ctx, "translate", []chatMessage{
		{Role: "system", Content: fmt.Sprintf(
			"Translate the user's text from %s to %s. Reply with the translation only.", source, target)},
		{Role: "user", Content: text},
	}, translateTemperature, false)
	if err != nil {
		c.logger.Warn("translation failed, returning original text", map[string]interface{}{"error": err})
		return text
	}
	if strings.TrimSpace(content) == "" {
		return text
	}
	return content
}

func decodeObject(content string) (map[string]interface{}, error) {
	var obj map[string]interface{}
	if err := json.Unmarshal([]byte(content), &obj); err != nil {
		return nil, apperrors.NewAIParseFailedError(fmt.Errorf("completion is not a JSON object: %w", err))
	}
	if obj == nil {
		return nil, apperrors.NewAIParseFailedError(errors.New("completion is null"))
	}
	return obj, nil
}
