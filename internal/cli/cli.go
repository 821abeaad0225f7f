// Package cli implements the gridcrop command line.
package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"gridcrop/internal/config"
	"gridcrop/internal/logging"
)

// Version is overridden at build time.
var Version = "dev"

var (
	cliStdout io.Writer = os.Stdout
	cliStderr io.Writer = os.Stderr
)

// Run executes the CLI and returns a process exit code.
func Run(args []string) int {
	root := buildRootCommand()
	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(cliStderr, err)
		return 1
	}
	return 0
}

type globalFlags struct {
	configPath string
	logLevel   string
}

func buildRootCommand() *cobra.Command {
	var g globalFlags
	root := &cobra.Command{
		Use:   "gridcrop",
		Short: "Split images into grid cells with adjustable divider lines",
		Long: `gridcrop - cut an image into a grid of cells

  gridcrop split photo.jpg --cols 3 --rows 2     Crop in one shot
  gridcrop edit photo.jpg                        Adjust lines in the terminal
  gridcrop serve                                 Start the browser editor`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.Version = Version
	root.CompletionOptions.DisableDefaultCmd = true
	root.PersistentFlags().StringVar(&g.configPath, "config", "", "config file (.yaml or .toml); defaults to $"+config.EnvPath)
	root.PersistentFlags().StringVar(&g.logLevel, "log-level", "", "override the configured log level")

	root.AddCommand(buildSplitCommand(&g))
	root.AddCommand(buildEditCommand(&g))
	root.AddCommand(buildServeCommand(&g))
	root.AddCommand(buildVersionCommand())
	return root
}

// loadConfig resolves the config file from --config or the environment.
func (g *globalFlags) loadConfig() (*config.Config, error) {
	path := g.configPath
	if path == "" {
		path = os.Getenv(config.EnvPath)
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if g.logLevel != "" {
		if _, err := logging.ParseLevel(g.logLevel); err != nil {
			return nil, err
		}
		cfg.LogLevel = g.logLevel
	}
	return cfg, nil
}

// setupLogging sends logs to the configured file, or to fallback.
func setupLogging(cfg *config.Config, fallback io.Writer) error {
	if cfg.LogFile != "" {
		return logging.InitializeFile(cfg.LogFile, cfg.Level())
	}
	logging.Initialize(fallback, cfg.Level())
	return nil
}

func buildVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cliStdout, "gridcrop %s\n", Version)
		},
	}
}
