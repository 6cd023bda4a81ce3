// Package genai provides chat completions against an OpenAI-compatible API.
//
// The default endpoint is OpenRouter; any server speaking the OpenAI chat
// completions protocol can be used by overriding the base URL.
package genai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/BTreeMap/SGGuide/internal/models"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// DefaultBaseURL is the OpenRouter endpoint used when no base URL is configured.
const DefaultBaseURL = "https://openrouter.ai/api/v1"

// Attribution headers understood by OpenRouter.
const (
	headerReferer = "HTTP-Referer"
	headerTitle   = "X-Title"
)

var (
	// ErrMissingAPIKey is returned by NewClient when no API key can be found.
	ErrMissingAPIKey = errors.New("API key not set: provide OPENROUTER_API_KEY or OPENAI_API_KEY")
	// ErrNoChoicesReturned is returned when the API responds without any choices.
	ErrNoChoicesReturned = errors.New("no choices returned")
)

// CallError wraps any failure of the remote completion call with a
// human-readable description suitable for showing to the user.
type CallError struct {
	Description string
	StatusCode  int // HTTP status when the API answered, zero otherwise
	Err         error
}

func (e *CallError) Error() string {
	return e.Description
}

func (e *CallError) Unwrap() error {
	return e.Err
}

// newCallError classifies err into a CallError.
func newCallError(err error) *CallError {
	ce := &CallError{Description: err.Error(), Err: err}
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		ce.StatusCode = apiErr.StatusCode
	}
	return ce
}

//go:generate mockgen -source=genai.go -destination=mocks/mock_genai.go -package=mocks ClientInterface

// ClientInterface is the completion capability consumed by the chat driver.
type ClientInterface interface {
	Complete(ctx context.Context, turns []models.Turn, params models.CompletionParams) (string, error)
}

// chatService defines minimal interface for chat completions.
type chatService interface {
	Create(ctx context.Context, params openai.ChatCompletionNewParams) (openai.ChatCompletion, error)
}

// completionsService adapts the SDK's completion service to chatService.
type completionsService struct {
	client openai.Client
}

func (s *completionsService) Create(ctx context.Context, params openai.ChatCompletionNewParams) (openai.ChatCompletion, error) {
	resp, err := s.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return openai.ChatCompletion{}, err
	}
	return *resp, nil
}

// Opts holds configuration options for the GenAI client.
type Opts struct {
	APIKey      string
	BaseURL     string
	Model       string
	Referer     string
	Title       string
	DebugMode   bool
	StateDir    string
}

// Option defines a configuration option for the GenAI client.
type Option func(*Opts)

// WithAPIKey sets the API key used for authentication.
func WithAPIKey(key string) Option {
	return func(o *Opts) { o.APIKey = key }
}

// WithBaseURL overrides the API endpoint.
func WithBaseURL(url string) Option {
	return func(o *Opts) { o.BaseURL = url }
}

// WithModel sets the default model identifier.
func WithModel(model string) Option {
	return func(o *Opts) { o.Model = model }
}

// WithAttribution sets the referer and title headers sent to OpenRouter.
func WithAttribution(referer, title string) Option {
	return func(o *Opts) {
		o.Referer = referer
		o.Title = title
	}
}

// WithDebugMode enables writing every request and response to StateDir/debug.
func WithDebugMode(enabled bool) Option {
	return func(o *Opts) { o.DebugMode = enabled }
}

// WithStateDir sets the directory under which debug logs are written.
func WithStateDir(dir string) Option {
	return func(o *Opts) { o.StateDir = dir }
}

// Client wraps the OpenAI chat completion service.
type Client struct {
	chat      chatService
	model     string
	debugMode bool
	stateDir  string
}

// NewClient initializes a new GenAI client. When no API key option is given
// it falls back to OPENROUTER_API_KEY and then OPENAI_API_KEY.
func NewClient(opts ...Option) (*Client, error) {
	cfg := Opts{
		BaseURL: DefaultBaseURL,
		Model:   models.DefaultModel,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("OPENROUTER_API_KEY")
	}
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithBaseURL(cfg.BaseURL),
		// one attempt per call; failures surface to the chat driver
		option.WithMaxRetries(0),
	}
	if cfg.Referer != "" {
		reqOpts = append(reqOpts, option.WithHeader(headerReferer, cfg.Referer))
	}
	if cfg.Title != "" {
		reqOpts = append(reqOpts, option.WithHeader(headerTitle, cfg.Title))
	}

	slog.Debug("GenAI.NewClient: client configured", "baseURL", cfg.BaseURL, "model", cfg.Model, "debugMode", cfg.DebugMode)
	return &Client{
		chat:      &completionsService{client: openai.NewClient(reqOpts...)},
		model:     cfg.Model,
		debugMode: cfg.DebugMode,
		stateDir:  cfg.StateDir,
	}, nil
}

// Complete sends the full ordered conversation to the model and returns the
// first choice's text. Zero-valued params fall back to the client defaults.
// Every failure is returned as a *CallError.
func (c *Client) Complete(ctx context.Context, turns []models.Turn, params models.CompletionParams) (string, error) {
	params = c.withDefaults(params)
	messages, err := toMessages(turns)
	if err != nil {
		return "", newCallError(err)
	}

	req := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(params.Model),
		Messages:    messages,
		MaxTokens:   openai.Int(params.MaxTokens),
		Temperature: openai.Float(params.Temperature),
	}

	slog.Debug("GenAI.Complete: sending request", "model", params.Model, "turns", len(turns), "maxTokens", params.MaxTokens)
	resp, err := c.chat.Create(ctx, req)
	if c.debugMode {
		c.writeDebugLog("Complete", params.Model, req, resp, err)
	}
	if err != nil {
		slog.Error("GenAI.Complete: request failed", "error", err, "model", params.Model)
		return "", newCallError(err)
	}
	if len(resp.Choices) == 0 {
		slog.Warn("GenAI.Complete: empty choices", "model", params.Model)
		return "", newCallError(ErrNoChoicesReturned)
	}

	content := resp.Choices[0].Message.Content
	slog.Debug("GenAI.Complete: response received", "model", params.Model, "length", len(content))
	return content, nil
}

// withDefaults fills an empty model and a zero token limit. Temperature is
// sent as given, so zero requests greedy sampling.
func (c *Client) withDefaults(p models.CompletionParams) models.CompletionParams {
	if p.Model == "" {
		p.Model = c.model
	}
	if p.MaxTokens <= 0 {
		p.MaxTokens = models.DefaultMaxTokens
	}
	return p
}

// toMessages converts log turns into SDK message params, preserving order.
func toMessages(turns []models.Turn) ([]openai.ChatCompletionMessageParamUnion, error) {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(turns))
	for i, t := range turns {
		switch t.Role {
		case models.RoleSystem:
			messages = append(messages, openai.SystemMessage(t.Content))
		case models.RoleUser:
			messages = append(messages, openai.UserMessage(t.Content))
		case models.RoleAssistant:
			messages = append(messages, openai.AssistantMessage(t.Content))
		default:
			return nil, fmt.Errorf("turn %d: %w: %q", i, models.ErrInvalidRole, t.Role)
		}
	}
	return messages, nil
}
