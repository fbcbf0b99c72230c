package cmd

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/porcini-dev/porcini/internal/config"
	"github.com/porcini-dev/porcini/internal/container"
	"github.com/porcini-dev/porcini/internal/manifest"
)

var (
	runSocket    string
	runAppSocket string
)

var runCmd = &cobra.Command{
	Use:   "run [dir]",
	Short: "Run an app against the platform runtime",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runRun,
}

func init() {
	runCmd.Flags().StringVar(&runSocket, "socket", "", "Platform runtime socket (overrides config)")
	runCmd.Flags().StringVar(&runAppSocket, "app-socket", "", "Socket the app listens on (overrides default)")
}

func runRun(_ *cobra.Command, args []string) error {
	dir := "."
	if len(args) == 1 {
		dir = args[0]
	}

	m, err := manifest.Load(dir)
	if err != nil {
		return err
	}
	if err := checkSources(dir); err != nil {
		return err
	}

	cfg, err := config.Load("")
	if err != nil {
		return err
	}
	if runSocket != "" {
		cfg.Runtime.Socket = runSocket
	}

	c, err := container.New(cfg)
	if err != nil {
		return err
	}
	defer c.Close()
	logger := c.Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	socket := cfg.ResolveSocket()
	logger.Info("starting app", "app", m.Name, "socket", socket)

	appSocket := runAppSocket
	if appSocket == "" {
		appSocket = config.ResolveAppSocket()
	}

	// The app is its own binary; run it with both sockets exported so the
	// SDK inside it dials the same runtime and listens where we expect.
	cmd := exec.CommandContext(ctx, "go", "run", ".")
	cmd.Dir = dir
	cmd.Env = append(os.Environ(),
		fmt.Sprintf("%s=%s", config.SocketEnv, socket),
		fmt.Sprintf("%s=%s", config.AppSocketEnv, appSocket),
	)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			logger.Info("app stopped", "app", m.Name)
			return nil
		}
		return fmt.Errorf("run app %s: %w", m.Name, err)
	}
	return nil
}
