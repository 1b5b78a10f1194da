package config

import (
	"context"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/dshills/tutorgraph-go/tutor"
	"github.com/dshills/tutorgraph-go/tutor/model"
	antmodel "github.com/dshills/tutorgraph-go/tutor/model/anthropic"
	googlemodel "github.com/dshills/tutorgraph-go/tutor/model/google"
	oaimodel "github.com/dshills/tutorgraph-go/tutor/model/openai"
	"github.com/dshills/tutorgraph-go/tutor/search"
	"github.com/dshills/tutorgraph-go/tutor/store"
)

// NewLogger builds the zap logger described by the log section.
func (c Config) NewLogger() (*zap.Logger, error) {
	level, err := zap.ParseAtomicLevel(c.Log.Level)
	if err != nil {
		return nil, fmt.Errorf("log level %q: %w", c.Log.Level, err)
	}

	zc := zap.NewProductionConfig()
	if c.Log.Development {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = level
	return zc.Build()
}

// NewStore builds the checkpoint store for the configured backend. The
// returned closer releases database resources; for the memory backend it
// is a no-op.
func (c Config) NewStore() (store.Store[tutor.Checkpoint], io.Closer, error) {
	switch c.Store.Backend {
	case StoreMemory, "":
		return store.NewMemStore[tutor.Checkpoint](), nopCloser{}, nil
	case StoreSQLite:
		st, err := store.NewSQLiteStore[tutor.Checkpoint](c.Store.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite store: %w", err)
		}
		return st, st, nil
	case StoreMySQL:
		st, err := store.NewMySQLStore[tutor.Checkpoint](c.Store.DSN)
		if err != nil {
			return nil, nil, fmt.Errorf("open mysql store: %w", err)
		}
		return st, st, nil
	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", c.Store.Backend)
	}
}

// NewModel builds the configured chat model. The mock provider returns
// canned lesson text and is meant for demos and tests without API keys.
func (c Config) NewModel(ctx context.Context) (model.ChatModel, io.Closer, error) {
	if c.Provider.Name != ProviderMock && c.Provider.APIKey == "" {
		return nil, nil, fmt.Errorf("provider %q requires an API key", c.Provider.Name)
	}

	switch c.Provider.Name {
	case ProviderOpenAI:
		return oaimodel.New(c.Provider.APIKey, c.Provider.Model), nopCloser{}, nil
	case ProviderAnthropic:
		return antmodel.New(c.Provider.APIKey, c.Provider.Model), nopCloser{}, nil
	case ProviderGoogle:
		m, err := googlemodel.New(ctx, c.Provider.APIKey, c.Provider.Model)
		if err != nil {
			return nil, nil, fmt.Errorf("google model: %w", err)
		}
		return m, m, nil
	case ProviderMock:
		return demoModel{}, nopCloser{}, nil
	default:
		return nil, nil, fmt.Errorf("unknown provider %q", c.Provider.Name)
	}
}

// NewSearch builds the search client. Without a Tavily key it falls back
// to a mock with generic results so the pipeline stays runnable offline.
func (c Config) NewSearch() search.Client {
	if c.Search.APIKey == "" {
		return &search.MockClient{Results: []search.Result{
			{Title: "Offline reference", URL: "https://example.invalid/offline",
				Content: "No search API key configured; using placeholder material."},
		}}
	}
	return search.NewTavilyClient(c.Search.APIKey)
}

// demoModel answers each stage with canned text keyed off the system
// prompt, so the whole interrupt flow can be exercised without network
// access or API keys.
type demoModel struct{}

func (demoModel) Chat(ctx context.Context, messages []model.Message) (model.Response, error) {
	if err := ctx.Err(); err != nil {
		return model.Response{}, err
	}

	system := ""
	if len(messages) > 0 && messages[0].Role == model.RoleSystem {
		system = messages[0].Content
	}
	switch {
	case strings.Contains(system, "prerequisite"):
		return model.Response{Text: "Fundamental concepts\nCore terminology\nBasic notation"}, nil
	case strings.Contains(system, "reviewer"):
		return model.Response{Text: "APPROVED"}, nil
	case strings.Contains(system, "summary"):
		return model.Response{Text: "You worked through every topic on the roadmap. Nicely done."}, nil
	default:
		return model.Response{Text: "This placeholder lesson stands in for generated content. " +
			"Configure a real provider for actual tutoring."}, nil
	}
}

func (d demoModel) ChatStream(ctx context.Context, messages []model.Message, onDelta func(string)) (model.Response, error) {
	out, err := d.Chat(ctx, messages)
	if err != nil {
		return model.Response{}, err
	}
	if onDelta != nil {
		for _, word := range strings.SplitAfter(out.Text, " ") {
			if word != "" {
				onDelta(word)
			}
		}
	}
	return out, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
