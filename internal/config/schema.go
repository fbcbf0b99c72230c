// Package config defines the developer-machine configuration for porcini:
// where the platform runtime listens, how built bundles are produced and how
// verbose the CLI is. It lives at ~/.porcini/config.json.
package config

import "os"

// RuntimeConfig says how to reach the platform runtime's SDK socket.
type RuntimeConfig struct {
	// Socket is a gRPC target, typically a unix socket URI.
	Socket string `json:"socket"`
	// DialTimeoutSeconds bounds connection establishment.
	DialTimeoutSeconds int `json:"dialTimeoutSeconds"`
	// RequestTimeoutSeconds bounds a single unary call; streams are unbounded.
	RequestTimeoutSeconds int `json:"requestTimeoutSeconds"`
}

// DefaultSocket is used when neither config nor environment provide one.
const DefaultSocket = "unix:///tmp/porcini_sdk.sock"

// SocketEnv overrides the configured socket when set.
const SocketEnv = "PORCINI_SDK_SOCKET"

// DefaultAppSocket is where a tool app listens unless overridden.
const DefaultAppSocket = "unix:///tmp/porcini_app.sock"

// AppSocketEnv overrides the app's own listen socket when set.
const AppSocketEnv = "PORCINI_APP_SOCKET"

func defaultRuntimeConfig() RuntimeConfig {
	return RuntimeConfig{
		Socket:                DefaultSocket,
		DialTimeoutSeconds:    5,
		RequestTimeoutSeconds: 30,
	}
}

// BuildConfig controls `porcini build` output.
type BuildConfig struct {
	// OutputDir receives built app bundles. Relative paths resolve against
	// the app directory.
	OutputDir string `json:"outputDir"`
	// SchemaFile is the rendered schema filename inside a bundle.
	SchemaFile string `json:"schemaFile"`
}

func defaultBuildConfig() BuildConfig {
	return BuildConfig{OutputDir: ".porcini-build", SchemaFile: "app.proto"}
}

// LogConfig controls CLI diagnostics.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `json:"level"`
}

func defaultLogConfig() LogConfig {
	return LogConfig{Level: "info"}
}

// Config is the root configuration document.
type Config struct {
	Runtime RuntimeConfig `json:"runtime"`
	Build   BuildConfig   `json:"build"`
	Log     LogConfig     `json:"log"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() Config {
	return Config{
		Runtime: defaultRuntimeConfig(),
		Build:   defaultBuildConfig(),
		Log:     defaultLogConfig(),
	}
}

// ResolveSocket returns the runtime socket target, letting the environment
// override the configured value.
func (c *Config) ResolveSocket() string {
	if s := os.Getenv(SocketEnv); s != "" {
		return s
	}
	if c.Runtime.Socket != "" {
		return c.Runtime.Socket
	}
	return DefaultSocket
}

// ResolveAppSocket returns the target a tool app should listen on.
func ResolveAppSocket() string {
	if s := os.Getenv(AppSocketEnv); s != "" {
		return s
	}
	return DefaultAppSocket
}
