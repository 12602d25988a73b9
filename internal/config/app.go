package config

import (
	"context"
	"path/filepath"

	"github.com/caarlos0/env/v11"
	"github.com/sandevgo/arcus/pkg/log"
)

type AppConfig struct {
	RuntimePath string `env:"ARCUS_RUNTIME_PATH" envDefault:".arcus"`

	// Model selects the context-limit entry used when MaxContext is 0.
	Model      string `env:"ARCUS_MODEL" envDefault:"default"`
	MaxContext int    `env:"ARCUS_MAX_CONTEXT" envDefault:"0"`

	// Telemetry Sink
	EnableTelemetry bool `env:"ARCUS_TELEMETRY" envDefault:"true"`
}

func NewAppConfig(ctx context.Context) *AppConfig {
	c := &AppConfig{}
	if err := env.Parse(c); err != nil {
		log.FromCtx(ctx).Fatal().Err(err).Msg("failed to parse App config")
	}
	return c
}

func (c AppConfig) GetDatabasePath() string {
	return filepath.Join(c.RuntimePath, "arcus.db")
}

// ContextLimit returns the model capacity in tokens: the explicit
// override when set, otherwise the known limit for the configured model.
func (c AppConfig) ContextLimit() int {
	if c.MaxContext > 0 {
		return c.MaxContext
	}
	return ModelContextLimit(c.Model)
}
