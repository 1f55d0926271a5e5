package main

import (
	"github.com/agraph/flow/internal/config"
	"github.com/agraph/flow/internal/scheduler"
	"github.com/agraph/flow/internal/trace"
)

func loadConfig() (*config.Config, error) {
	if cfgPath == "" {
		return config.Default(), nil
	}
	return config.Load(cfgPath)
}

// newTracer opens a trace.Store (and wraps it as a scheduler.Tracer) if
// cfg.TracePath is set, otherwise returns a nil Tracer and a no-op
// close function.
func newTracer(cfg *config.Config) (scheduler.Tracer, func(), error) {
	if cfg.TracePath == "" {
		return nil, func() {}, nil
	}
	store, err := trace.New(cfg.TracePath)
	if err != nil {
		return nil, nil, err
	}
	return trace.NewWriter(store), func() { store.Close() }, nil
}
