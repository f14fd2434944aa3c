package generate

import (
	"fmt"

	"github.com/asanoha/kotae/internal/config"
)

// New returns the generator selected by cfg.Backend.
func New(cfg *config.GeneratorConfig) (Generator, error) {
	switch cfg.Backend {
	case "", BackendStub:
		return NewStub(), nil
	case BackendOllama:
		return NewOllama(OllamaConfig{
			BaseURL: cfg.BaseURL,
			Model:   cfg.Model,
			Timeout: cfg.Timeout(),
		}), nil
	default:
		return nil, fmt.Errorf("unknown generator backend %q (use %q or %q)", cfg.Backend, BackendStub, BackendOllama)
	}
}
