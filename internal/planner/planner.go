package planner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/laissez-faire/mealplanner/internal/config"
	"github.com/laissez-faire/mealplanner/internal/gemini"
	"github.com/laissez-faire/mealplanner/internal/images"
	"github.com/laissez-faire/mealplanner/internal/metrics"
	"github.com/laissez-faire/mealplanner/internal/models"
	"github.com/laissez-faire/mealplanner/internal/ollama"
	"github.com/laissez-faire/mealplanner/internal/openai"
	"github.com/laissez-faire/mealplanner/internal/parser"
	"github.com/laissez-faire/mealplanner/internal/prompt"
	"github.com/laissez-faire/mealplanner/internal/providers"
)

// Plan results recorded in metrics.
const (
	ResultOK                 = "ok"
	ResultGenerationFailed   = "generation_failed"
	ResultInvalidModelOutput = "invalid_model_output"
	ResultInternalError      = "internal_error"
)

// Service turns a recipe request into an image-enriched batch.
type Service struct {
	generator providers.Generator
	resolver  *images.Resolver
}

// NewService wires explicit collaborators.
func NewService(generator providers.Generator, resolver *images.Resolver) *Service {
	return &Service{generator: generator, resolver: resolver}
}

// New builds a Service from configuration.
func New(cfg *config.Config) (*Service, error) {
	generator, err := NewGenerator(cfg)
	if err != nil {
		return nil, err
	}
	return NewService(generator, NewResolver(cfg)), nil
}

// NewGenerator selects the generation provider named in cfg.
func NewGenerator(cfg *config.Config) (providers.Generator, error) {
	switch cfg.Provider {
	case "gemini", "":
		return gemini.New(geminiOptions(cfg)), nil
	case "gemini-sdk":
		return gemini.NewSDK(geminiOptions(cfg)), nil
	case "openai":
		return openai.New(cfg.OpenAIAPIKey, cfg.Model, cfg.Temperature), nil
	case "ollama":
		return ollama.New(cfg.OllamaURL, cfg.Model, cfg.Temperature), nil
	default:
		return nil, fmt.Errorf("unsupported provider: %s", cfg.Provider)
	}
}

func geminiOptions(cfg *config.Config) gemini.Options {
	return gemini.Options{
		APIKey:       cfg.GenerationAPIKey,
		Model:        cfg.Model,
		Endpoint:     cfg.GeminiEndpoint,
		EnableSearch: cfg.EnableSearch,
		Temperature:  cfg.Temperature,
	}
}

// NewResolver builds the image resolver. The search tier is only enabled
// when an image-search key is configured.
func NewResolver(cfg *config.Config) *images.Resolver {
	client := &http.Client{}

	var search images.Searcher
	if cfg.ImageSearchEnabled() {
		search = images.NewUnsplash(cfg.UnsplashEndpoint, cfg.ImageSearchAPIKey, cfg.SearchTimeout, client)
	} else {
		slog.Info("UNSPLASH_ACCESS_KEY not set, stock photo fallback disabled")
	}

	return images.New(images.Options{
		HTTPClient:    client,
		UserAgent:     cfg.UserAgent,
		ScrapeTimeout: cfg.ScrapeTimeout,
		Search:        search,
		CacheSize:     cfg.ImageCacheSize,
		CacheTTL:      cfg.ImageCacheTTL,
	})
}

// Prompt returns the prompt Plan would send for req.
func (s *Service) Prompt(req models.RecipeRequest) string {
	return prompt.Compose(req)
}

// Plan generates recipes for req and attaches an image URL (or null) to
// each. Generation and parse failures are returned as-is; image failures
// never are.
func (s *Service) Plan(ctx context.Context, req models.RecipeRequest) ([]models.Recipe, error) {
	start := time.Now()

	raw, err := s.generator.Generate(ctx, prompt.Compose(req))
	if err != nil {
		metrics.PlansTotal.WithLabelValues(result(err)).Inc()
		return nil, err
	}
	slog.Debug("Generation complete", "bytes", len(raw), "duration", time.Since(start))

	recipes, err := parser.Parse(raw)
	if err != nil {
		metrics.PlansTotal.WithLabelValues(result(err)).Inc()
		return nil, err
	}

	if s.resolver != nil {
		s.resolver.ResolveAll(ctx, recipes)
	} else {
		for i := range recipes {
			recipes[i].SetImageURL(nil)
		}
	}

	metrics.PlansTotal.WithLabelValues(ResultOK).Inc()
	metrics.RecipesReturned.Observe(float64(len(recipes)))
	slog.Info("Plan complete", "recipes", len(recipes), "duration", time.Since(start))

	return recipes, nil
}

func result(err error) string {
	var genErr *providers.GenerationError
	var parseErr *parser.ParseError
	switch {
	case errors.As(err, &genErr):
		return ResultGenerationFailed
	case errors.As(err, &parseErr):
		return ResultInvalidModelOutput
	default:
		return ResultInternalError
	}
}
