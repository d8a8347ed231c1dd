/*
Copyright © 2025 3 Leaps <info@3leaps.net>
*/
package cmd

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/fulmenhq/pkgscout/pkg/buildinfo"
	"github.com/fulmenhq/pkgscout/pkg/logger"
)

// newRootCommand creates a fresh root command instance.
// This factory pattern allows tests to create isolated command trees without shared state.
func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pkgscout",
		Short: "Package source resolution and health analysis",
		Long: `Pkgscout resolves package references (registry names, manifest pins,
local paths, repository URLs) into source trees and audits each one:
documentation and test presence, CI configuration, licenses, lines of
code, and contributor statistics.

Examples:
   pkgscout analyze Example              # Latest registered version
   pkgscout analyze Example@1.2.3        # Exact registered version
   pkgscout analyze ./path/to/checkout   # Local working copy
   pkgscout analyze https://github.com/org/Pkg.jl
   pkgscout analyze --manifest Manifest.toml`,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			initializeLogger(cmd)
		},
	}

	addGlobalFlags(cmd.PersistentFlags())

	cmd.Version = buildinfo.BinaryVersion
	cmd.SetVersionTemplate("pkgscout {{.Version}}\n")

	return cmd
}

// registerSubcommands adds all subcommands to the root command.
// This is called from init() for production and can be called explicitly in tests.
func registerSubcommands(cmd *cobra.Command) {
	cmd.AddCommand(newAnalyzeCommand())
	cmd.AddCommand(versionCmd)
	cmd.AddCommand(homeCmd)
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = newRootCommand()

// Execute runs the root command. Called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		logger.Error("Command execution failed", logger.Err(err))
		os.Exit(1)
	}
}

func init() {
	registerSubcommands(rootCmd)
}

// addGlobalFlags defines flags shared by every subcommand.
func addGlobalFlags(fs *pflag.FlagSet) {
	fs.String("log-level", "info", "Set log level (debug|info|warn|error)")
	fs.Bool("json-logs", false, "Output logs in JSON format")
	fs.Bool("no-color", false, "Disable colored output")
}

// initializeLogger sets up the logger based on command flags
func initializeLogger(cmd *cobra.Command) {
	logLevelStr, _ := cmd.Flags().GetString("log-level")
	jsonLogs, _ := cmd.Flags().GetBool("json-logs")
	noColor, _ := cmd.Flags().GetBool("no-color")

	config := logger.Config{
		Level:     logger.ParseLevel(logLevelStr),
		UseColor:  !noColor,
		JSON:      jsonLogs,
		Component: "pkgscout",
	}

	if err := logger.Initialize(config); err != nil {
		_, _ = os.Stderr.WriteString("Failed to initialize logger: " + err.Error() + "\n")
		os.Exit(1)
	}
}
