package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/porcini-dev/porcini/internal/manifest"
	"github.com/porcini-dev/porcini/internal/shared/cmdutils"
)

var buildCheck bool

var buildCmd = &cobra.Command{
	Use:   "build [dir]",
	Short: "Validate an app directory",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runBuild,
}

func init() {
	buildCmd.Flags().BoolVar(&buildCheck, "check", true, "Validate project files")
}

func runBuild(_ *cobra.Command, args []string) error {
	dir := "."
	if len(args) == 1 {
		dir = args[0]
	}

	m, err := manifest.Load(dir)
	if err != nil {
		return err
	}
	cmdutils.Check("%s", manifest.Filename)

	if buildCheck {
		if err := checkSources(dir); err != nil {
			return err
		}
		cmdutils.Check("sources")
	}

	cmdutils.Info("\napp %s validated", m.Name)
	cmdutils.Info("  bundle id: %s", m.BundleID)
	cmdutils.Info("  prompts:   %d", len(m.ExamplePrompts))
	return nil
}

// checkSources verifies the directory is a buildable Go module with an
// entrypoint.
func checkSources(dir string) error {
	for _, f := range []string{"go.mod", "main.go"} {
		if _, err := os.Stat(filepath.Join(dir, f)); err != nil {
			return fmt.Errorf("app is missing %s", filepath.Join(dir, f))
		}
	}
	return nil
}
