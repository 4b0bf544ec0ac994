// Command yaani renders an Ansible dynamic inventory from a declarative
// dataset pipeline configuration.
package main

import (
	"fmt"
	"os"

	"github.com/ohler55/ojg/oj"
	"github.com/spf13/cobra"

	"github.com/a-delannoy/yaani/internal/app"
	"github.com/a-delannoy/yaani/internal/transform"
)

func main() {
	if err := newRootCmd(transform.NewRegistry()).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newRootCmd builds the CLI. The hook registry is injected so builds
// embedding extra transform hooks can register them before Execute.
func newRootCmd(hooks *transform.Registry) *cobra.Command {
	var cfg app.Config

	cmd := &cobra.Command{
		Use:           "yaani",
		Short:         "Render an Ansible dynamic inventory from a declarative dataset pipeline",
		Long: `yaani evaluates a declarative pipeline of data sources and derived
datasets, then renders the result as an Ansible dynamic inventory on
stdout. Logs go to stderr.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			appCfg, err := app.NewConfig(cfg)
			if err != nil {
				return err
			}
			result, err := app.New(cmd.ErrOrStderr(), appCfg, hooks).Run(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), oj.JSON(result))
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&cfg.ConfigPath, "config", "c", "",
		fmt.Sprintf("path to the configuration file or directory (default $%s, then %s)", app.EnvConfigFile, app.DefaultConfigFile))
	flags.BoolVar(&cfg.List, "list", false, "print the entire inventory in Ansible dynamic inventory syntax")
	flags.StringVar(&cfg.Host, "host", "", "print the variables of a single host")
	flags.StringVar(&cfg.LogFormat, "log-format", "text", "log output format: 'text' or 'json'")
	flags.StringVar(&cfg.LogLevel, "log-level", "info", "log level: 'debug', 'info', 'warn' or 'error'")
	flags.IntVar(&cfg.Workers, "workers", 0, "number of concurrent dataset evaluation workers (0 = default)")

	return cmd
}
