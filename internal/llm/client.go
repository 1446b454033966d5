// Package llm talks to an OpenAI-compatible provider (Groq by default) for chat
// completions and audio transcription.
package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"go.uber.org/zap"

	"alcyxob/fitness-coach/internal/metrics"
)

var (
	ErrEmptyCompletion = errors.New("provider returned no choices")
	ErrNoAPIKey        = errors.New("llm api key is not configured")
)

// Config configures the provider client.
type Config struct {
	BaseURL            string
	APIKey             string
	Model              string
	ExtractionModel    string
	TranscriptionModel string
	MaxTokens          int
	Temperature        float64
	Timeout            time.Duration
	MaxRetries         int
	// StructuredOutput attaches the response schema to completion requests.
	StructuredOutput bool
}

// Response is a completion as seen by the core: untrusted text plus provenance.
type Response struct {
	Content    string
	Model      string
	TokensUsed int64
	Duration   time.Duration
	Fallback   bool
	// FallbackReason is set when Fallback is true.
	FallbackReason string
}

// Completer produces text for a system/user prompt pair. Implementations never
// assume the output is well-formed.
type Completer interface {
	Complete(ctx context.Context, system, user string, maxTokens int) (*Response, error)
}

// JSONCompleter asks for a compact JSON object and reports provider failures as errors.
type JSONCompleter interface {
	CompleteJSON(ctx context.Context, system, user string, maxTokens int) (string, error)
}

// Transcriber converts an audio clip to text.
type Transcriber interface {
	Transcribe(ctx context.Context, filename string, audio io.Reader) (string, error)
}

// ResponseSchema is attached to completion requests when structured output is enabled.
type ResponseSchema struct {
	Name        string
	Description string
	Schema      any
}

// Client implements Completer, JSONCompleter and Transcriber on top of openai-go.
type Client struct {
	api     openai.Client
	cfg     Config
	schema  *ResponseSchema
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// NewClient creates a provider client. schema may be nil.
func NewClient(cfg Config, schema *ResponseSchema, logger *zap.Logger, m *metrics.Metrics) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 1000
	}
	if cfg.ExtractionModel == "" {
		cfg.ExtractionModel = cfg.Model
	}
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(cfg.MaxRetries),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &Client{
		api:     openai.NewClient(opts...),
		cfg:     cfg,
		schema:  schema,
		logger:  logger,
		metrics: m,
	}
}

// Complete calls the chat endpoint. Provider failures and timeouts do not surface as
// errors: a canned response flagged Fallback is returned instead.
func (c *Client) Complete(ctx context.Context, system, user string, maxTokens int) (*Response, error) {
	if maxTokens <= 0 {
		maxTokens = c.cfg.MaxTokens
	}
	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.cfg.Model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
		MaxTokens:   openai.Int(int64(maxTokens)),
		Temperature: openai.Float(c.cfg.Temperature),
	}
	if c.cfg.StructuredOutput && c.schema != nil {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
				JSONSchema: openai.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:        c.schema.Name,
					Description: openai.String(c.schema.Description),
					Schema:      c.schema.Schema,
					Strict:      openai.Bool(false),
				},
			},
		}
	}

	start := time.Now()
	content, model, tokens, err := c.chat(ctx, params)
	elapsed := time.Since(start)
	if err != nil {
		c.metrics.ObserveLLM("chat", "error", elapsed)
		c.metrics.ObserveFallback()
		c.logger.Error("LLM completion failed, using fallback",
			zap.String("model", c.cfg.Model),
			zap.Duration("elapsed", elapsed),
			zap.Error(err))
		return FallbackResponse(user, err), nil
	}
	c.metrics.ObserveLLM("chat", "ok", elapsed)
	c.logger.Debug("LLM completion received",
		zap.String("model", model),
		zap.Int64("tokens", tokens),
		zap.Duration("elapsed", elapsed))
	return &Response{
		Content:    content,
		Model:      model,
		TokensUsed: tokens,
		Duration:   elapsed,
	}, nil
}

// CompleteJSON calls the chat endpoint with deterministic settings and returns the raw
// text. Unlike Complete it reports provider failures.
func (c *Client) CompleteJSON(ctx context.Context, system, user string, maxTokens int) (string, error) {
	if maxTokens <= 0 {
		maxTokens = 400
	}
	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.cfg.ExtractionModel),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
		MaxTokens:   openai.Int(int64(maxTokens)),
		Temperature: openai.Float(0),
	}
	start := time.Now()
	content, _, _, err := c.chat(ctx, params)
	if err != nil {
		c.metrics.ObserveLLM("extract", "error", time.Since(start))
		return "", fmt.Errorf("extraction call failed: %w", err)
	}
	c.metrics.ObserveLLM("extract", "ok", time.Since(start))
	return content, nil
}

func (c *Client) chat(ctx context.Context, params openai.ChatCompletionNewParams) (string, string, int64, error) {
	if c.cfg.APIKey == "" {
		return "", "", 0, ErrNoAPIKey
	}
	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}
	chat, err := c.api.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", "", 0, err
	}
	if len(chat.Choices) == 0 {
		return "", "", 0, ErrEmptyCompletion
	}
	return strings.TrimSpace(chat.Choices[0].Message.Content), chat.Model, chat.Usage.TotalTokens, nil
}

// Transcribe sends audio to the provider's transcription endpoint.
func (c *Client) Transcribe(ctx context.Context, filename string, audio io.Reader) (string, error) {
	if c.cfg.APIKey == "" {
		return "", ErrNoAPIKey
	}
	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}
	start := time.Now()
	res, err := c.api.Audio.Transcriptions.New(ctx, openai.AudioTranscriptionNewParams{
		File:  openai.File(audio, filename, "application/octet-stream"),
		Model: openai.AudioModel(c.cfg.TranscriptionModel),
	})
	if err != nil {
		c.metrics.ObserveLLM("transcribe", "error", time.Since(start))
		return "", fmt.Errorf("transcription failed: %w", err)
	}
	c.metrics.ObserveLLM("transcribe", "ok", time.Since(start))
	return strings.TrimSpace(res.Text), nil
}
