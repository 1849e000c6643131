package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/jun/markpad/backend/internal/config"
	"github.com/jun/markpad/backend/internal/logging"
	"github.com/jun/markpad/core/plugin"
	"github.com/jun/markpad/core/plugin/builtin"
)

type rootOptions struct {
	plugins string
	verbose bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "markpad",
		Short:         "markpad renders and edits Markdown documents",
		Long:          `markpad renders Markdown to HTML or the terminal, converts HTML to Markdown and applies editor formatting actions, honouring the same plugin settings as the server.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Persistent flags (available to all commands)
	cmd.PersistentFlags().StringVar(&opts.plugins, "plugins", os.Getenv("PLUGINS_FILE"), "plugin settings file (YAML, TOML or JSON)")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log debug output to stderr")

	cmd.AddCommand(
		newRenderCmd(opts),
		newPreviewCmd(opts),
		newOutlineCmd(opts),
		newImportCmd(),
		newFormatCmd(opts),
		newPluginsCmd(opts),
	)
	return cmd
}

func (o *rootOptions) logger() *slog.Logger {
	if o.verbose {
		return logging.New(slog.LevelDebug)
	}
	return logging.New(slog.LevelWarn)
}

// registry returns the built-in plugins with the settings file applied.
func (o *rootOptions) registry() (*plugin.Registry, error) {
	log := o.logger()
	reg := plugin.NewRegistry(plugin.WithErrorHandler(func(event string, err error) {
		log.Warn("plugin listener failed", "event", event, "error", err)
	}))
	if err := builtin.Register(reg); err != nil {
		return nil, err
	}
	if o.plugins == "" {
		return reg, nil
	}
	settings, err := config.LoadPluginSettings(o.plugins)
	if err != nil {
		return nil, err
	}
	if err := settings.Apply(reg); err != nil {
		return nil, fmt.Errorf("apply plugin settings: %w", err)
	}
	log.Debug("plugin settings applied", "file", o.plugins)
	return reg, nil
}

// readInput reads the named file, or stdin when args is empty or "-".
func readInput(cmd *cobra.Command, args []string) ([]byte, string, error) {
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		return data, "", err
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return nil, "", err
	}
	return data, args[0], nil
}

// writeOutput writes data to path, or to the command's stdout when path is
// empty.
func writeOutput(cmd *cobra.Command, path string, data []byte) error {
	if path == "" {
		_, err := cmd.OutOrStdout().Write(data)
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
