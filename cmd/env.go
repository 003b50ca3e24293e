package main

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/narrative-cli/internal/config"
	"github.com/sells-group/narrative-cli/internal/cost"
	"github.com/sells-group/narrative-cli/internal/llm"
	"github.com/sells-group/narrative-cli/internal/pipeline"
	"github.com/sells-group/narrative-cli/internal/scrape"
	"github.com/sells-group/narrative-cli/internal/store"
)

// appEnv holds the store and pipeline shared by the run, serve and
// sessions commands.
type appEnv struct {
	Store    store.Store
	Pipeline *pipeline.Pipeline
}

// Close releases resources held by the environment.
func (e *appEnv) Close() {
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

// initEnv validates the config and builds the pipeline. The store is opened
// and migrated only when withStore is set; otherwise Store is nil. Callers
// should defer env.Close().
func initEnv(ctx context.Context, withStore bool) (*appEnv, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if !withStore {
		return &appEnv{Pipeline: newPipeline(cfg)}, nil
	}

	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	return &appEnv{Store: st, Pipeline: newPipeline(cfg)}, nil
}

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "narrative.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, &store.PoolConfig{
			MaxConns: cfg.Store.MaxConns,
			MinConns: cfg.Store.MinConns,
		})
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// newPipeline wires the gateway, fetcher and system prompt from c.
func newPipeline(c *config.Config) *pipeline.Pipeline {
	gw := llm.NewGateway(llm.SDKFactory(c.LLM.Endpoints()), cost.NewCalculator(pricingRates(c.Pricing)))

	var fetcher scrape.Fetcher = scrape.Disabled{}
	if c.Scrape.Enabled {
		fetcher = scrape.NewHTTPFetcher(scrape.Options{
			Timeout:         c.Scrape.Timeout(),
			UserAgent:       c.Scrape.UserAgent,
			MaxChars:        c.Scrape.MaxChars,
			AboutMaxChars:   c.Scrape.AboutMaxChars,
			AboutMinChars:   c.Scrape.AboutMinChars,
			AboutPaths:      c.Scrape.AboutPaths,
			ProbesPerSecond: c.Scrape.ProbesPerSecond,
			DetectBlocks:    c.Scrape.DetectBlocks,
		})
	} else {
		zap.L().Info("site research disabled, prompts use model knowledge only")
	}

	prompt := pipeline.LoadSystemPrompt(c.Prompts.SystemPromptPath)
	if prompt == "" {
		zap.L().Debug("no system prompt file, using built-in creative director prompt",
			zap.String("path", c.Prompts.SystemPromptPath))
	}
	return pipeline.New(gw, fetcher, pipeline.WithSystemPrompt(prompt))
}

func pricingRates(p config.PricingConfig) cost.Rates {
	rates := cost.Rates{Models: make(map[string]cost.ModelRate, len(p.Models))}
	for _, m := range p.Models {
		if m.Model == "" {
			continue
		}
		rates.Models[m.Model] = cost.ModelRate{Input: m.Input, Output: m.Output}
	}
	return rates
}
