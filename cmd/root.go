// Package cmd implements the monitor command line.
package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/seo-optimizer/monitor/config"
	"github.com/seo-optimizer/monitor/logging"
)

// Version is set at build time with -ldflags "-X .../cmd.Version=...".
var Version = "dev"

type options struct {
	cfgFile  string
	logLevel string
}

// NewRootCommand builds the command tree. Every call returns a fresh tree.
func NewRootCommand() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "monitor",
		Short:         "Website SEO and performance monitor",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	root.PersistentFlags().StringVar(&opts.cfgFile, "config", "", "config file (default ./config.yaml or ./config/config.yaml)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "override LOG_LEVEL")

	root.AddCommand(
		newServeCommand(opts),
		newAnalyzeCommand(opts),
		newMigrateCommand(opts),
		newVersionCommand(),
	)
	return root
}

// Execute runs the CLI with .env files loaded first.
func Execute() error {
	config.LoadEnvFiles()
	return NewRootCommand().ExecuteContext(context.Background())
}

func (o *options) newViper() *viper.Viper {
	v := config.New()
	if o.cfgFile != "" {
		v.SetConfigFile(o.cfgFile)
	}
	if o.logLevel != "" {
		v.Set("log.level", o.logLevel)
	}
	return v
}

func (o *options) load() (*config.Config, logging.Logger, error) {
	cfg, err := config.Load(o.newViper())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	log, err := logging.New(cfg.Log)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return cfg, log, nil
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "monitor version %s\n", Version)
		},
	}
}
