package images

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/laissez-faire/mealplanner/internal/metrics"
	"github.com/laissez-faire/mealplanner/internal/models"
	"golang.org/x/sync/errgroup"
)

// Tier names, in resolution order.
const (
	TierScrape = "scrape"
	TierSearch = "search"
)

// Outcome is the result of one resolution tier.
type Outcome int

const (
	NotAttempted Outcome = iota
	Found
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Found:
		return "found"
	case Failed:
		return "failed"
	default:
		return "not_attempted"
	}
}

// TierResult records what one tier did for one recipe. Reason explains a
// NotAttempted or Failed outcome.
type TierResult struct {
	Tier    string
	Outcome Outcome
	URL     string
	Reason  error
}

var (
	errNoSearchKey  = errors.New("image search is not configured")
	errFoundEarlier = errors.New("an earlier tier found an image")
	errNoResults    = errors.New("search returned no results")
)

// Options configures a Resolver.
type Options struct {
	HTTPClient    *http.Client
	UserAgent     string
	ScrapeTimeout time.Duration
	// Search is nil when no image-search credential is configured.
	Search        Searcher
	CacheSize     int
	CacheTTL      time.Duration
}

// Resolver attaches an image URL to recipes: it scrapes the recipe's source
// page first and falls back to a stock photo search.
type Resolver struct {
	scraper *scraper
	search  Searcher
	cache   *expirable.LRU[string, string]
}

// New returns a Resolver.
func New(opts Options) *Resolver {
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{}
	}
	timeout := opts.ScrapeTimeout
	if timeout <= 0 {
		timeout = 4 * time.Second
	}
	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = "Laissez-faire-Bot/1.0"
	}

	r := &Resolver{
		scraper: newScraper(client, userAgent, timeout),
		search:  opts.Search,
	}
	if opts.CacheSize > 0 {
		r.cache = expirable.NewLRU[string, string](opts.CacheSize, nil, opts.CacheTTL)
	}
	return r
}

// Resolve returns the image URL for recipe, or nil. It never fails.
func (r *Resolver) Resolve(ctx context.Context, recipe models.Recipe) *string {
	for _, res := range r.Trace(ctx, recipe) {
		if res.Outcome == Found {
			url := res.URL
			return &url
		}
	}
	slog.Info("No image resolved for recipe", "title", recipe.Title)
	return nil
}

// Trace runs the tiers in order, stopping at the first image found, and
// reports every tier's outcome.
func (r *Resolver) Trace(ctx context.Context, recipe models.Recipe) []TierResult {
	scrape := r.scrape(ctx, recipe)
	record(scrape, recipe)

	var search TierResult
	switch {
	case scrape.Outcome == Found:
		search = TierResult{Tier: TierSearch, Outcome: NotAttempted, Reason: errFoundEarlier}
	case r.search == nil:
		search = TierResult{Tier: TierSearch, Outcome: NotAttempted, Reason: errNoSearchKey}
	default:
		search = r.searchTier(ctx, recipe)
	}
	record(search, recipe)

	return []TierResult{scrape, search}
}

// ResolveAll resolves every recipe concurrently, one task per recipe, and
// returns once all of them have finished. Each task writes only its own
// slot, so the batch keeps its order.
func (r *Resolver) ResolveAll(ctx context.Context, recipes []models.Recipe) {
	var g errgroup.Group
	for i := range recipes {
		g.Go(func() error {
			defer func() {
				if p := recover(); p != nil {
					slog.Error("Image resolution panicked", "title", recipes[i].Title, "panic", p)
					recipes[i].SetImageURL(nil)
				}
			}()
			recipes[i].SetImageURL(r.Resolve(ctx, recipes[i]))
			return nil
		})
	}
	_ = g.Wait()
}

func (r *Resolver) scrape(ctx context.Context, recipe models.Recipe) TierResult {
	res := TierResult{Tier: TierScrape}

	u, err := eligible(recipe.SourceURL)
	if err != nil {
		res.Outcome = NotAttempted
		res.Reason = err
		return res
	}

	key := u.String()
	if r.cache != nil {
		if cached, ok := r.cache.Get(key); ok {
			res.Outcome = Found
			res.URL = cached
			return res
		}
	}

	image, err := r.scraper.fetch(ctx, u)
	if err != nil {
		res.Outcome = Failed
		res.Reason = err
		return res
	}

	if r.cache != nil {
		r.cache.Add(key, image)
	}
	res.Outcome = Found
	res.URL = image
	return res
}

func (r *Resolver) searchTier(ctx context.Context, recipe models.Recipe) TierResult {
	res := TierResult{Tier: TierSearch}

	query := strings.TrimSpace(recipe.ImageSearchQuery)
	if query == "" {
		query = strings.TrimSpace(recipe.Title)
	}
	if query == "" {
		res.Outcome = NotAttempted
		res.Reason = errors.New("recipe has neither an image search query nor a title")
		return res
	}

	image, err := r.search.Search(ctx, query)
	switch {
	case err != nil:
		res.Outcome = Failed
		res.Reason = fmt.Errorf("search for %q failed: %w", query, err)
	case image == "":
		res.Outcome = Failed
		res.Reason = errNoResults
	default:
		res.Outcome = Found
		res.URL = image
	}
	return res
}

func record(res TierResult, recipe models.Recipe) {
	metrics.ImageTierOutcomes.WithLabelValues(res.Tier, res.Outcome.String()).Inc()

	switch res.Outcome {
	case Failed:
		if res.Tier == TierSearch {
			slog.Warn("Image search failed", "title", recipe.Title, "error", res.Reason)
		} else {
			slog.Debug("Source page scrape failed", "title", recipe.Title, "url", recipe.SourceURL, "error", res.Reason)
		}
	case Found:
		slog.Debug("Image resolved", "title", recipe.Title, "tier", res.Tier, "image", res.URL)
	}
}
