package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/porcini-dev/porcini/internal/config"
	"github.com/porcini-dev/porcini/internal/manifest"
	"github.com/porcini-dev/porcini/internal/shared/cmdutils"
)

var (
	initDescription string
	initPrompts     []string
)

var initCmd = &cobra.Command{
	Use:   "init <name>",
	Short: "Create a new app directory with its manifest",
	Args:  cobra.ExactArgs(1),
	RunE:  runInit,
}

func init() {
	initCmd.Flags().StringVarP(&initDescription, "description", "d", "", "App description")
	initCmd.Flags().StringArrayVarP(&initPrompts, "prompt", "p", nil, "Example prompt (repeatable)")
}

func runInit(_ *cobra.Command, args []string) error {
	name := args[0]
	if initDescription == "" {
		initDescription = name
	}

	dir := filepath.Clean(name)
	if _, err := os.Stat(dir); err == nil {
		return fmt.Errorf("directory %s already exists", dir)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create app dir: %w", err)
	}

	m := manifest.New(name, initDescription)
	m.ExamplePrompts = append(m.ExamplePrompts, initPrompts...)
	if err := manifest.Save(m, dir); err != nil {
		return err
	}
	cmdutils.Check("Created %s", filepath.Join(dir, manifest.Filename))

	// First run also lays down the global config so later commands have it.
	cfgPath := config.ConfigPath()
	if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
		cfg := config.DefaultConfig()
		if err := config.Save(&cfg, cfgPath); err != nil {
			return err
		}
		cmdutils.Check("Created config at %s", cfgPath)
	}

	cmdutils.Info("\napp %s is ready", name)
	cmdutils.Info("Next steps:")
	cmdutils.Info("  1. Write your tools in %s/main.go using the app package", dir)
	cmdutils.Info("  2. Validate: porcini build %s", dir)
	cmdutils.Info("  3. Run against the platform: porcini run %s", dir)
	return nil
}
