package internal

import "github.com/starford/othala/internal/generator"

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config *Config
	gen    generator.Generator
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithGenerator overrides the metadata generator, replacing the one
// built from configuration. Mainly useful in tests.
func WithGenerator(g generator.Generator) Option {
	return func(a *application) {
		a.gen = g
	}
}
