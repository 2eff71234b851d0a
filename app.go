package main

import (
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"auto_blog_publisher/blog"
	"auto_blog_publisher/config"
	"auto_blog_publisher/generator"
	"auto_blog_publisher/imagegen"
	"auto_blog_publisher/imageplan"
	"auto_blog_publisher/pipeline"
	"auto_blog_publisher/publisher"
	"auto_blog_publisher/research"
	"auto_blog_publisher/tone"
)

// buildCoordinator wires every stage from cfg.
func buildCoordinator(cfg *config.Config, logger *zap.Logger, onState func(string, pipeline.State)) (*pipeline.Coordinator, error) {
	llm, err := buildLLM(cfg)
	if err != nil {
		return nil, err
	}
	guarded := generator.Guard(llm, generator.CallPolicy{
		Timeout:    cfg.Pipeline.CallTimeout,
		RetryDelay: cfg.Pipeline.RetryDelay,
	})
	httpClient := &http.Client{Timeout: cfg.Pipeline.CallTimeout}

	web := research.NewDuckDuckGo(httpClient)
	social := research.NewReddit(httpClient)
	if cfg.Research.UserAgent != "" {
		web.UserAgent = cfg.Research.UserAgent
		social.UserAgent = cfg.Research.UserAgent
	}
	var fallback research.FallbackPolicy = research.NoFallback{}
	if cfg.Research.SyntheticFallback {
		fallback = research.SyntheticFallback{MinItems: cfg.Research.SyntheticMin}
	}
	var articles research.ArticleFetcher
	if cfg.Research.FetchArticles {
		reader := research.NewReadability(httpClient)
		if cfg.Research.UserAgent != "" {
			reader.UserAgent = cfg.Research.UserAgent
		}
		articles = reader
	}
	researcher := research.New(web, social, research.Options{
		WebResults:    cfg.Research.WebResults,
		SocialResults: cfg.Research.SocialResults,
		CallTimeout:   cfg.Pipeline.CallTimeout,
		RetryDelay:    cfg.Pipeline.RetryDelay,
		Fallback:      fallback,
		Articles:      articles,
		Logger:        logger,
	})

	agent, err := generator.NewAgent(guarded, generator.Options{
		Concurrency: cfg.Pipeline.Concurrency,
		MaxSections: cfg.Pipeline.MaxSections,
		Logger:      logger,
	})
	if err != nil {
		return nil, err
	}

	images, err := buildImages(cfg)
	if err != nil {
		return nil, err
	}

	pub, err := buildPublisher(cfg, guarded, httpClient, logger)
	if err != nil {
		return nil, err
	}

	return pipeline.New(pipeline.Stages{
		Researcher: researcher,
		Classifier: tone.New(guarded, tone.Options{Logger: logger}),
		Planner: imageplan.New(imageplan.Options{
			MaxImages:    cfg.Images.MaxImages,
			TechKeywords: cfg.Images.TechKeywords,
			Logger:       logger,
		}),
		Generator: agent,
		Synthesizer: imagegen.New(images, imagegen.Options{
			Concurrency: cfg.Pipeline.Concurrency,
			CallTimeout: cfg.Pipeline.CallTimeout,
			Logger:      logger,
		}),
		Publisher: pub,
	}, pipeline.Options{Logger: logger, OnState: onState})
}

func buildLLM(cfg *config.Config) (generator.LLMClient, error) {
	switch cfg.LLM.Provider {
	case "mock":
		return generator.MockLLM{}, nil
	case "openai", "deepseek":
		// DeepSeek serves an OpenAI-compatible API at base_url.
		if cfg.LLM.Provider == "deepseek" && cfg.LLM.BaseURL == "" {
			return nil, fmt.Errorf("llm provider deepseek requires base_url (OpenAI-compatible endpoint)")
		}
		return generator.NewOpenAILLMFromConfig(&generator.LLMSettings{
			Provider:          cfg.LLM.Provider,
			Model:             cfg.LLM.Model,
			APIKey:            cfg.LLM.APIKey,
			BaseURL:           cfg.LLM.BaseURL,
			RequestsPerMinute: cfg.LLM.RequestsPerMinute,
		})
	default:
		return nil, fmt.Errorf("llm provider %s not supported", cfg.LLM.Provider)
	}
}

func buildImages(cfg *config.Config) (imagegen.ImageGenerator, error) {
	switch cfg.Images.Provider {
	case "mock":
		return imagegen.MockImages{}, nil
	case "openai":
		return imagegen.NewOpenAIImages(imagegen.Settings{
			Model:             cfg.Images.Model,
			Size:              cfg.Images.Size,
			APIKey:            cfg.Images.APIKey,
			BaseURL:           cfg.Images.BaseURL,
			RequestsPerMinute: cfg.Images.RequestsPerMinute,
		})
	default:
		return nil, fmt.Errorf("images provider %s not supported", cfg.Images.Provider)
	}
}

// buildPublisher registers a client for every platform that has a token.
// Targets without one yield a failed receipt at publish time.
func buildPublisher(cfg *config.Config, summarizer generator.LLMClient, httpClient *http.Client, logger *zap.Logger) (*publisher.Publisher, error) {
	clients := make(map[blog.Platform]publisher.Client)
	if m := cfg.Publish.Medium; m.Token != "" {
		medium, err := publisher.NewMedium(publisher.MediumConfig{
			Token:      m.Token,
			BaseURL:    m.BaseURL,
			Tags:       m.Tags,
			RetryDelay: cfg.Pipeline.RetryDelay,
		}, httpClient)
		if err != nil {
			return nil, err
		}
		clients[blog.PlatformMedium] = medium
	}
	if l := cfg.Publish.LinkedIn; l.Token != "" {
		linkedin, err := publisher.NewLinkedIn(publisher.LinkedInConfig{
			Token:      l.Token,
			AuthorURN:  l.AuthorURN,
			BaseURL:    l.BaseURL,
			RetryDelay: cfg.Pipeline.RetryDelay,
		}, httpClient)
		if err != nil {
			return nil, err
		}
		clients[blog.PlatformLinkedIn] = linkedin
	}
	return publisher.New(publisher.Options{
		Clients:     clients,
		Summarizer:  summarizer,
		Tags:        cfg.Publish.Medium.Tags,
		CallTimeout: cfg.Pipeline.CallTimeout,
		Logger:      logger,
	}), nil
}
