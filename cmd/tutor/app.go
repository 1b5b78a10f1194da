package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/dshills/tutorgraph-go/config"
	"github.com/dshills/tutorgraph-go/tutor"
	"github.com/dshills/tutorgraph-go/tutor/emit"
	"github.com/dshills/tutorgraph-go/tutor/stage"
)

// app bundles the wired runtime for one command invocation.
type app struct {
	cfg     config.Config
	logger  *zap.Logger
	engine  *tutor.Engine
	closers []io.Closer
}

// newApp builds the engine from configuration. Call close when done.
func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	logger, err := cfg.NewLogger()
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, logger: logger}

	st, stCloser, err := cfg.NewStore()
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, stCloser)

	chatModel, modelCloser, err := cfg.NewModel(ctx)
	if err != nil {
		a.close()
		return nil, err
	}
	a.closers = append(a.closers, modelCloser)

	caps, err := stage.New(stage.Config{
		Model:            chatModel,
		Search:           cfg.NewSearch(),
		MaxSearchResults: cfg.Search.MaxResults,
	})
	if err != nil {
		a.close()
		return nil, err
	}

	var emitter emit.Emitter = emit.NewNullEmitter()
	if logEvents {
		emitter = emit.NewLogEmitter(os.Stderr, false)
	}

	engine, err := tutor.New(st, caps, emitter, cfg.Options())
	if err != nil {
		a.close()
		return nil, fmt.Errorf("build engine: %w", err)
	}
	engine.SetLogger(logger)
	a.engine = engine
	return a, nil
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		_ = a.closers[i].Close()
	}
	_ = a.logger.Sync()
}
