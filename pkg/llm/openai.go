package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("github.com/jjgarcianorway/anna-assistant-sub000/pkg/llm")

// Defaults match a local Ollama install serving its OpenAI-compatible API.
const (
	DefaultEndpoint    = "http://127.0.0.1:11434/v1"
	DefaultJuniorModel = "qwen3:4b"
	DefaultSeniorModel = "qwen3:8b"
)

// ErrTransport wraps every failure to reach or read from the model backend.
var ErrTransport = errors.New("llm transport")

// Config configures an OpenAIClient.
type Config struct {
	Endpoint    string
	APIKey      string
	JuniorModel string
	SeniorModel string
	Temperature float32
	// MaxTokens caps each completion; 0 leaves the backend default.
	MaxTokens int
}

// chatCompleter is the part of *openai.Client the transport uses.
type chatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
	CreateChatCompletionStream(ctx context.Context, req openai.ChatCompletionRequest) (*openai.ChatCompletionStream, error)
}

// OpenAIClient implements Client against any OpenAI-compatible chat API.
type OpenAIClient struct {
	api          chatCompleter
	cfg          Config
	juniorSystem string
	seniorSystem string
	logger       *zap.Logger
}

// NewOpenAIClient builds a client. Empty config fields take the package
// defaults; Ollama ignores the API key.
func NewOpenAIClient(cfg Config, logger *zap.Logger) (*OpenAIClient, error) {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.JuniorModel == "" {
		cfg.JuniorModel = DefaultJuniorModel
	}
	if cfg.SeniorModel == "" {
		cfg.SeniorModel = DefaultSeniorModel
	}
	if cfg.APIKey == "" {
		cfg.APIKey = "ollama"
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	junior, senior, err := SystemPrompts()
	if err != nil {
		return nil, err
	}

	oc := openai.DefaultConfig(cfg.APIKey)
	oc.BaseURL = strings.TrimRight(cfg.Endpoint, "/")

	return &OpenAIClient{
		api:          openai.NewClientWithConfig(oc),
		cfg:          cfg,
		juniorSystem: junior,
		seniorSystem: senior,
		logger:       logger,
	}, nil
}

// JuniorModel returns the junior model name.
func (c *OpenAIClient) JuniorModel() string { return c.cfg.JuniorModel }

// SeniorModel returns the senior model name.
func (c *OpenAIClient) SeniorModel() string { return c.cfg.SeniorModel }

// PlanOrDraft calls the junior model.
func (c *OpenAIClient) PlanOrDraft(ctx context.Context, prompt string, sink Sink) (JuniorResponse, string, error) {
	raw, err := c.complete(ctx, RoleJunior, c.cfg.JuniorModel, c.juniorSystem, prompt, sink)
	if err != nil {
		return JuniorResponse{}, raw, err
	}
	return DecodeJunior(raw), raw, nil
}

// Audit calls the senior model.
func (c *OpenAIClient) Audit(ctx context.Context, prompt string, sink Sink) (SeniorResponse, string, error) {
	raw, err := c.complete(ctx, RoleSenior, c.cfg.SeniorModel, c.seniorSystem, prompt, sink)
	if err != nil {
		return SeniorResponse{Verdict: VerdictRefuse}, raw, err
	}
	return DecodeSenior(raw), raw, nil
}

func (c *OpenAIClient) complete(ctx context.Context, role Role, model, system, prompt string, sink Sink) (string, error) {
	ctx, span := tracer.Start(ctx, "llm."+string(role),
		trace.WithAttributes(
			attribute.String("llm.model", model),
			attribute.Int("llm.prompt_chars", len(prompt)),
			attribute.Bool("llm.stream", sink != nil),
		))
	defer span.End()

	req := openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: c.cfg.Temperature,
		MaxTokens:   c.cfg.MaxTokens,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	}

	start := time.Now()
	var (
		raw string
		err error
	)
	if sink != nil {
		raw, err = c.stream(ctx, role, req, sink)
	} else {
		raw, err = c.once(ctx, req)
	}
	c.logger.Debug("llm call",
		zap.String("role", string(role)),
		zap.String("model", model),
		zap.Duration("duration", time.Since(start)),
		zap.Int("response_chars", len(raw)),
		zap.Error(err),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return raw, fmt.Errorf("%w: %s call: %w", ErrTransport, role, err)
	}
	span.SetAttributes(attribute.Int("llm.response_chars", len(raw)))
	return raw, nil
}

func (c *OpenAIClient) once(ctx context.Context, req openai.ChatCompletionRequest) (string, error) {
	resp, err := c.api.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices in response")
	}
	return resp.Choices[0].Message.Content, nil
}

func (c *OpenAIClient) stream(ctx context.Context, role Role, req openai.ChatCompletionRequest, sink Sink) (string, error) {
	req.Stream = true
	stream, err := c.api.CreateChatCompletionStream(ctx, req)
	if err != nil {
		return "", err
	}
	defer stream.Close()

	var sb strings.Builder
	for {
		resp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return sb.String(), nil
		}
		if err != nil {
			return sb.String(), err
		}
		if len(resp.Choices) == 0 {
			continue
		}
		chunk := resp.Choices[0].Delta.Content
		if chunk == "" {
			continue
		}
		sb.WriteString(chunk)
		sink.Token(role, chunk)
	}
}
