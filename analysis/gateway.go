// Package analysis turns study notes into flashcards, quiz questions and
// important points through an OpenAI-compatible AI gateway.
package analysis

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sashabaranov/go-openai"

	"github.com/andrewpaige1/prepass-api/apperr"
)

// Request is the content submitted for one analysis. At least one part must be
// present.
type Request struct {
	Text   string
	Images []Attachment
	PDFs   []Attachment
}

// Empty reports whether there is nothing to analyze. Whitespace alone is not
// content.
func (r Request) Empty() bool {
	return strings.TrimSpace(r.Text) == "" && len(r.Images) == 0 && len(r.PDFs) == 0
}

// Analyzer generates study material from notes.
type Analyzer interface {
	Analyze(ctx context.Context, req Request) (*Result, error)
}

const systemPrompt = `You are an expert educational content analyzer. Your task is to analyze study notes and generate high-quality learning materials.

When analyzing notes (text, images of notes, or PDF documents), you must:
1. Extract ALL key concepts, definitions, formulas, dates, and important facts
2. Generate flashcards with clear question-answer pairs
3. Create quiz questions (multiple choice with exactly 4 options)
4. Identify the most exam-likely important points

Return ONLY valid JSON with no markdown formatting, no code blocks and no extra text.

The JSON must follow this exact structure:
{
  "flashcards": [
    {"front": "question text", "back": "answer text"}
  ],
  "quizzes": [
    {"question": "question text", "options": ["option1", "option2", "option3", "option4"], "correctIndex": 0}
  ],
  "importantPoints": ["point 1", "point 2"],
  "summary": "Brief 2-3 sentence summary of the content"
}

If the content cannot be analyzed, return {"error": "reason"} instead.

Generate at least 5 flashcards and 3 quizzes from the content. Make them challenging but fair.`

const (
	textInstruction   = "Analyze these study notes and generate flashcards, quiz questions, and identify important exam-likely points. Return ONLY valid JSON."
	attachInstruction = "Analyze the attached study material. Extract all text using OCR where needed, then generate flashcards, quiz questions, and identify important exam-likely points. Return ONLY valid JSON."
)

// GatewayConfig configures the gateway client.
type GatewayConfig struct {
	BaseURL    string
	APIKey     string
	Model      string
	MaxRetries int
	Timeout    time.Duration
	// Backoff is the wait before the first retry. It doubles on every attempt.
	Backoff    time.Duration
	HTTPClient *http.Client
}

// GatewayAnalyzer calls a chat completion endpoint.
type GatewayAnalyzer struct {
	client *openai.Client
	config GatewayConfig
	logger *slog.Logger
}

// NewGatewayAnalyzer creates a gateway client.
func NewGatewayAnalyzer(cfg GatewayConfig, logger *slog.Logger) *GatewayAnalyzer {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 1
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = time.Second
	}
	if cfg.Model == "" {
		cfg.Model = "google/gemini-2.5-flash"
	}
	if logger == nil {
		logger = slog.Default()
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	if cfg.HTTPClient != nil {
		clientConfig.HTTPClient = cfg.HTTPClient
	}

	return &GatewayAnalyzer{
		client: openai.NewClientWithConfig(clientConfig),
		config: cfg,
		logger: logger,
	}
}

// Analyze sends req to the gateway and validates the reply.
func (g *GatewayAnalyzer) Analyze(ctx context.Context, req Request) (*Result, error) {
	if req.Empty() {
		return nil, apperr.Input("No content provided")
	}

	chatReq := openai.ChatCompletionRequest{
		Model: g.config.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			userMessage(req),
		},
	}

	g.logger.Info("sending notes to AI gateway",
		"model", g.config.Model,
		"has_text", req.Text != "",
		"images", len(req.Images),
		"pdfs", len(req.PDFs))

	var resp openai.ChatCompletionResponse
	start := time.Now()
	err := g.doWithRetry(ctx, func(ctx context.Context) error {
		var err error
		resp, err = g.client.CreateChatCompletion(ctx, chatReq)
		return err
	})
	if err != nil {
		return nil, err
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return nil, apperr.Service("No content in AI response", nil)
	}

	result, err := ParseResult(resp.Choices[0].Message.Content)
	if err != nil {
		g.logger.Warn("AI response rejected", "error", err)
		return nil, err
	}

	if result.BelowMinimum() {
		g.logger.Warn("AI response below expected minimum",
			"flashcards", len(result.Flashcards),
			"quizzes", len(result.Quizzes))
	}
	g.logger.Info("AI response parsed",
		"flashcards", len(result.Flashcards),
		"quizzes", len(result.Quizzes),
		"important_points", len(result.ImportantPoints),
		"latency_ms", time.Since(start).Milliseconds())

	return result, nil
}

func userMessage(req Request) openai.ChatCompletionMessage {
	if len(req.Images) == 0 && len(req.PDFs) == 0 {
		return openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleUser,
			Content: textInstruction + "\n\nNotes:\n" + req.Text,
		}
	}

	parts := []openai.ChatMessagePart{{Type: openai.ChatMessagePartTypeText, Text: attachInstruction}}
	if req.Text != "" {
		parts = append(parts, openai.ChatMessagePart{Type: openai.ChatMessagePartTypeText, Text: "Notes:\n" + req.Text})
	}
	for _, att := range req.Images {
		parts = append(parts, openai.ChatMessagePart{
			Type:     openai.ChatMessagePartTypeImageURL,
			ImageURL: &openai.ChatMessageImageURL{URL: att.DataURL(), Detail: openai.ImageURLDetailAuto},
		})
	}
	// the gateway accepts documents through the same image_url part
	for _, att := range req.PDFs {
		parts = append(parts, openai.ChatMessagePart{
			Type:     openai.ChatMessagePartTypeImageURL,
			ImageURL: &openai.ChatMessageImageURL{URL: att.DataURL()},
		})
	}
	return openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, MultiContent: parts}
}

// doWithRetry runs fn with exponential backoff. Only transient failures are
// retried; rate limits and quota errors are returned at once.
func (g *GatewayAnalyzer) doWithRetry(ctx context.Context, fn func(context.Context) error) error {
	wait := g.config.Backoff
	var lastErr error
	for attempt := 0; attempt < g.config.MaxRetries; attempt++ {
		callCtx, cancel := context.WithTimeout(ctx, g.config.Timeout)
		err := fn(callCtx)
		cancel()
		if err == nil {
			return nil
		}

		classified, retryable := classify(err)
		lastErr = classified
		if !retryable || attempt == g.config.MaxRetries-1 {
			break
		}

		g.logger.Debug("AI request failed, retrying",
			"attempt", attempt+1,
			"wait_time", wait,
			"error", err)
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return apperr.Service("AI request cancelled", ctx.Err())
		}
		wait *= 2
	}

	g.logger.Error("AI gateway error", "error", lastErr)
	return lastErr
}

func statusOf(err error) int {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode
	}
	return 0
}

func classify(err error) (*apperr.Error, bool) {
	if errors.Is(err, context.Canceled) {
		return apperr.Service("AI request cancelled", err), false
	}

	status := statusOf(err)
	switch {
	case status == http.StatusTooManyRequests:
		return apperr.RateLimited("Rate limit exceeded. Please try again in a moment.", err), false
	case status == http.StatusPaymentRequired:
		return apperr.QuotaExhausted("AI credits exhausted. Please add more credits.", err), false
	case status >= 500:
		return apperr.Service(fmt.Sprintf("AI service error: %d", status), err), true
	case status != 0:
		return apperr.Service(fmt.Sprintf("AI service error: %d", status), err), false
	}
	// transport failure or per-call timeout
	return apperr.Service("AI service is unreachable", err), true
}
