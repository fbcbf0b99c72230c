// Package container wires the porcini CLI's services using go.uber.org/dig.
package container

import (
	"log/slog"
	"os"
	"time"

	"go.uber.org/dig"

	"github.com/porcini-dev/porcini/internal/client"
	"github.com/porcini-dev/porcini/internal/config"
)

// Container holds the resolved CLI service singletons.
// Callers use the typed getter methods; they never need to import dig directly.
type Container struct {
	cfg    *config.Config
	logger *slog.Logger
	client *client.Client
}

func (c *Container) Config() *config.Config { return c.cfg }
func (c *Container) Logger() *slog.Logger   { return c.logger }
func (c *Container) Client() *client.Client { return c.client }

// New builds and wires all CLI services from cfg.
func New(cfg *config.Config) (*Container, error) {
	d := dig.New()

	if err := d.Provide(func() *config.Config { return cfg }); err != nil {
		return nil, err
	}
	if err := d.Provide(newLogger); err != nil {
		return nil, err
	}
	if err := d.Provide(newClient); err != nil {
		return nil, err
	}

	var result *Container
	err := d.Invoke(func(
		cfg *config.Config,
		logger *slog.Logger,
		cl *client.Client,
	) {
		result = &Container{
			cfg:    cfg,
			logger: logger,
			client: cl,
		}
	})
	return result, err
}

// Close releases held connections.
func (c *Container) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

func newLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.Log.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return logger
}

func newClient(cfg *config.Config) (*client.Client, error) {
	return client.Dial(cfg.ResolveSocket(), client.Options{
		RequestTimeout: time.Duration(cfg.Runtime.RequestTimeoutSeconds) * time.Second,
	})
}
