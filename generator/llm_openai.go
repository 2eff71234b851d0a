package generator

import (
	"context"
	"errors"
	"net/http"
	"time"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"golang.org/x/time/rate"

	"auto_blog_publisher/blog"
)

// OpenAILLM implements LLMClient using the official openai-go SDK (chat completions).
// DeepSeek and other OpenAI-compatible gateways work through BaseURL.
type OpenAILLM struct {
	Model   string
	client  openai.Client
	limiter *rate.Limiter
}

func NewOpenAILLMFromConfig(cfg *LLMSettings) (*OpenAILLM, error) {
	if cfg == nil {
		return nil, errors.New("llm config is nil")
	}
	if cfg.APIKey == "" {
		return nil, errors.New("openai api key missing; provide llm.api_key or llm.api_key_env")
	}
	if cfg.Model == "" {
		return nil, errors.New("llm model is required")
	}
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey), option.WithMaxRetries(0)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &OpenAILLM{
		Model:   cfg.Model,
		client:  openai.NewClient(opts...),
		limiter: NewLimiter(cfg.RequestsPerMinute),
	}, nil
}

// NewLimiter paces requests; rpm <= 0 means unlimited.
func NewLimiter(rpm int) *rate.Limiter {
	if rpm <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(rpm)), 1)
}

func (o *OpenAILLM) Complete(ctx context.Context, prompt Prompt) (string, error) {
	if err := o.limiter.Wait(ctx); err != nil {
		return "", blog.Unavailable(err)
	}

	msgs := []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(prompt.System),
	}
	for _, h := range prompt.History {
		switch h.Role {
		case "assistant":
			msgs = append(msgs, openai.ChatCompletionMessageParamOfAssistant(h.Content))
		default:
			msgs = append(msgs, openai.UserMessage(h.Content))
		}
	}
	msgs = append(msgs, openai.UserMessage(prompt.User))

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(o.Model),
		Messages: msgs,
	}
	if prompt.Constraints.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(prompt.Constraints.MaxTokens))
	}

	resp, err := o.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", ClassifyOpenAIError(err)
	}
	if len(resp.Choices) == 0 {
		return "", blog.Malformed("openai: empty choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// ClassifyOpenAIError maps SDK errors onto the pipeline error taxonomy.
func ClassifyOpenAIError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.StatusCode == http.StatusTooManyRequests:
			return blog.RateLimited(err)
		case apiErr.StatusCode == http.StatusBadRequest || apiErr.StatusCode == http.StatusUnprocessableEntity:
			return blog.Malformed("openai: %v", err)
		}
	}
	return blog.Unavailable(err)
}
