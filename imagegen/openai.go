package imagegen

import (
	"context"
	"encoding/base64"
	"errors"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"golang.org/x/time/rate"

	"auto_blog_publisher/blog"
	"auto_blog_publisher/generator"
)

// Settings configures OpenAIImages.
type Settings struct {
	Model             string
	Size              string
	APIKey            string
	BaseURL           string
	RequestsPerMinute int
}

// OpenAIImages implements ImageGenerator with the images.generate endpoint.
type OpenAIImages struct {
	Model   string
	Size    string
	client  openai.Client
	limiter *rate.Limiter
}

func NewOpenAIImages(cfg Settings) (*OpenAIImages, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai api key missing for image generation")
	}
	if cfg.Model == "" {
		cfg.Model = string(openai.ImageModelDallE3)
	}
	if cfg.Size == "" {
		cfg.Size = "1024x1024"
	}
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey), option.WithMaxRetries(0)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &OpenAIImages{
		Model:   cfg.Model,
		Size:    cfg.Size,
		client:  openai.NewClient(opts...),
		limiter: generator.NewLimiter(cfg.RequestsPerMinute),
	}, nil
}

func (o *OpenAIImages) Generate(ctx context.Context, prompt blog.ImagePrompt) ([]byte, error) {
	if err := o.limiter.Wait(ctx); err != nil {
		return nil, blog.Unavailable(err)
	}
	resp, err := o.client.Images.Generate(ctx, openai.ImageGenerateParams{
		Prompt:         prompt.Text,
		Model:          openai.ImageModel(o.Model),
		N:              openai.Int(1),
		Size:           openai.ImageGenerateParamsSize(o.Size),
		ResponseFormat: openai.ImageGenerateParamsResponseFormatB64JSON,
	})
	if err != nil {
		return nil, generator.ClassifyOpenAIError(err)
	}
	if len(resp.Data) == 0 || resp.Data[0].B64JSON == "" {
		return nil, blog.Malformed("openai images: empty data")
	}
	data, err := base64.StdEncoding.DecodeString(resp.Data[0].B64JSON)
	if err != nil {
		return nil, blog.Malformed("openai images: decode: %v", err)
	}
	return data, nil
}
