// Package sdk is the public surface for tool app authors. An app declares
// its tools with plain Go functions, builds an App and serves it on the
// socket the platform runtime assigns:
//
//	app := sdk.NewApp("weather", "Forecasts and alerts").
//		Tool("forecast", Forecast, sdk.WithDescription("7-day forecast"))
//	if err := app.Serve(context.Background()); err != nil {
//		log.Fatal(err)
//	}
package sdk

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"strings"
	"time"

	"github.com/porcini-dev/porcini/internal/app"
	"github.com/porcini-dev/porcini/internal/client"
	"github.com/porcini-dev/porcini/internal/config"
	"github.com/porcini-dev/porcini/internal/manifest"
	"github.com/porcini-dev/porcini/internal/tools"
)

// Option customizes a declared tool.
type Option = tools.Option

// WithDescription sets the tool's human-readable description.
func WithDescription(desc string) Option { return tools.WithDescription(desc) }

// WithIcon sets the tool's display icon name.
func WithIcon(icon string) Option { return tools.WithIcon(icon) }

// WithArgNames names positional function parameters in declaration order.
func WithArgNames(names ...string) Option { return tools.WithArgNames(names...) }

// WithArgDoc documents a single argument.
func WithArgDoc(arg, doc string) Option { return tools.WithArgDoc(arg, doc) }

// Builder accumulates an app's identity and tools. Declaration errors are
// deferred to Build so call sites can chain.
type Builder struct {
	man     *manifest.Manifest
	tools   *tools.RegistryBuilder
	prompts []string
}

// NewApp starts a builder for an app with the given name and description.
func NewApp(name, description string) *Builder {
	return &Builder{
		man:   manifest.New(name, description),
		tools: tools.NewRegistryBuilder(),
	}
}

// Tool declares a tool backed by fn. See tools.New for the accepted
// function shapes.
func (b *Builder) Tool(name string, fn any, opts ...Option) *Builder {
	b.tools.WithFunc(name, fn, opts...)
	return b
}

// Prompt adds an example prompt shown to users of the app.
func (b *Builder) Prompt(p string) *Builder {
	b.prompts = append(b.prompts, p)
	return b
}

// Build validates the declared tools and manifest and returns the app.
func (b *Builder) Build() (*App, error) {
	reg, err := b.tools.Build()
	if err != nil {
		return nil, err
	}
	b.man.ExamplePrompts = append(b.man.ExamplePrompts, b.prompts...)
	inner, err := app.New(b.man, reg, slog.Default())
	if err != nil {
		return nil, err
	}
	return &App{inner: inner}, nil
}

// Serve builds the app and serves it until ctx is cancelled. It listens on
// the socket named by PORCINI_APP_SOCKET, falling back to the default app
// socket.
func (b *Builder) Serve(ctx context.Context) error {
	a, err := b.Build()
	if err != nil {
		return err
	}
	return a.Serve(ctx)
}

// App is a built tool app ready to serve.
type App struct {
	inner *app.App
}

// Schema renders the app's protocol schema as proto3 source text.
func (a *App) Schema() (string, error) { return a.inner.Schema() }

// Serve listens on the configured app socket and serves until ctx is
// cancelled.
func (a *App) Serve(ctx context.Context) error {
	lis, err := Listen(config.ResolveAppSocket())
	if err != nil {
		return err
	}
	defer lis.Close()
	return a.inner.Run(ctx, lis)
}

// Run serves the app on an explicit listener, for callers that manage the
// socket themselves.
func (a *App) Run(ctx context.Context, lis net.Listener) error {
	return a.inner.Run(ctx, lis)
}

// Listen opens a listener for a gRPC-style target. unix:// targets get the
// stale socket file removed first; anything else is treated as a TCP
// address.
func Listen(target string) (net.Listener, error) {
	if path, ok := strings.CutPrefix(target, "unix://"); ok {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("remove stale socket %s: %w", path, err)
		}
		return net.Listen("unix", path)
	}
	addr := strings.TrimPrefix(target, "tcp://")
	return net.Listen("tcp", addr)
}

// Client talks to the platform runtime over the SDK socket.
type Client = client.Client

// Connect dials the platform runtime using the developer configuration,
// honoring the PORCINI_SDK_SOCKET override.
func Connect() (*Client, error) {
	cfg, err := config.Load("")
	if err != nil {
		return nil, err
	}
	return client.Dial(cfg.ResolveSocket(), client.Options{
		RequestTimeout: time.Duration(cfg.Runtime.RequestTimeoutSeconds) * time.Second,
	})
}
