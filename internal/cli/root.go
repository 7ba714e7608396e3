// Package cli implements the rain-station command line.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Format  string // "json" | "text"
	EnvFile string
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the rain-station CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "rain-station",
		Short: "Rain gauge and climate sensor logger",
		Long: `Records rain-gauge bucket tips and interval-aligned temperature and
humidity samples into a local SQLite database.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitConfig, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.EnvFile, "env-file", "", "dotenv file to load before the environment (default .env)")

	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewRecordsCommand(opts))
	cmd.AddCommand(NewStatusCommand(opts))

	return cmd
}

func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

func (o *RootOptions) envFiles() []string {
	if o.EnvFile == "" {
		return nil
	}
	return []string{o.EnvFile}
}
