// Package main provides the vispa command-line tool.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Exit codes
const (
	ExitSuccess = 0
	ExitError   = 1
)

// Version information (set at build time)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// logger is configured by the root command before any subcommand runs.
var logger = zap.NewNop()

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	root := newRootCmd()
	root.SetArgs(args)
	err := root.Execute()
	logger.Sync()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return ExitError
	}
	return ExitSuccess
}

func newRootCmd() *cobra.Command {
	var cfgFile string

	cmd := &cobra.Command{
		Use:   "vispa",
		Short: "Annotate integration sites with their nearest catalog features",
		Long: `vispa annotates genomic positions (e.g. vector integration sites) with the
nearest feature of a BED catalog, classifying each one as upstream, in-gene
or downstream and computing the integration offset within the feature.`,
		Version:       fmt.Sprintf("%s (%s) built %s", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := initConfig(cfgFile); err != nil {
				return err
			}
			pf := cmd.Root().PersistentFlags()
			if err := viper.BindPFlag("log.level", pf.Lookup("log-level")); err != nil {
				return err
			}
			if err := viper.BindPFlag("log.format", pf.Lookup("log-format")); err != nil {
				return err
			}

			l, err := newLogger(LogConfig{
				Level:  viper.GetString("log.level"),
				Format: viper.GetString("log.format"),
			})
			if err != nil {
				return err
			}
			logger = l
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ~/.vispa.yaml)")
	cmd.PersistentFlags().String("log-level", "info", "log level: debug, info, warn, error")
	cmd.PersistentFlags().String("log-format", "console", "log format: console or json")

	cmd.AddCommand(newAnnotateCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newResultsCmd())
	cmd.AddCommand(newConfigCmd())

	return cmd
}
