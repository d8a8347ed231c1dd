/*
Copyright © 2025 3 Leaps <info@3leaps.net>
*/
package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/fulmenhq/pkgscout/internal/report"
	"github.com/fulmenhq/pkgscout/pkg/acquire"
	"github.com/fulmenhq/pkgscout/pkg/analyze"
	"github.com/fulmenhq/pkgscout/pkg/config"
	"github.com/fulmenhq/pkgscout/pkg/contrib"
	"github.com/fulmenhq/pkgscout/pkg/descriptor"
	"github.com/fulmenhq/pkgscout/pkg/license"
	"github.com/fulmenhq/pkgscout/pkg/loc"
	"github.com/fulmenhq/pkgscout/pkg/logger"
	"github.com/fulmenhq/pkgscout/pkg/registry"
	"github.com/fulmenhq/pkgscout/pkg/resolve"
)

func newAnalyzeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze [package|path|url ...]",
		Short: "Resolve packages and report on their source trees",
		Long: `Analyze resolves each argument to a source tree and reports its health:
docs, tests, CI setup, licenses, lines of code, and contributors.

Arguments are registry names (optionally Name@version), local paths, or
repository URLs. With --manifest, pinned dependencies are read from a
manifest file instead.`,
		RunE:         runAnalyze,
		SilenceUsage: true,
	}

	cmd.Flags().String("manifest", "", "Analyze the pinned dependencies of a manifest file")
	cmd.Flags().StringSlice("registry", nil, "Registry checkout path (repeatable; default: $PKGSCOUT_HOME/registries/*)")
	cmd.Flags().StringSlice("depot", nil, "Pre-existing package store scanned before fetching (repeatable)")
	cmd.Flags().String("cache-dir", "", "Package cache directory (default: $PKGSCOUT_HOME/cache/packages)")
	cmd.Flags().Int("workers", 0, "Analysis worker pool size (0 = NumCPU)")
	cmd.Flags().String("format", string(report.FormatConcise), "Output format (concise|markdown|json)")
	cmd.Flags().StringP("output", "o", "", "Write the report to a file instead of stdout")

	return cmd
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	manifestPath, _ := cmd.Flags().GetString("manifest")
	if len(args) == 0 && manifestPath == "" {
		return fmt.Errorf("nothing to analyze: pass package arguments or --manifest")
	}

	formatStr, _ := cmd.Flags().GetString("format")
	format, err := report.ParseFormat(formatStr)
	if err != nil {
		return err
	}

	opts, err := loadOptions(cmd)
	if err != nil {
		return err
	}

	regs, err := registry.LoadAll(opts.RegistryPaths)
	if err != nil {
		return err
	}
	if len(regs) == 0 {
		logger.Warn("no registries loaded; only paths and URLs can be resolved")
	}

	descs, err := collectDescriptors(regs, args, manifestPath)
	if err != nil {
		return err
	}

	analyzer, err := buildAnalyzer(opts)
	if err != nil {
		return err
	}

	reports := analyzer.AnalyzeAll(cmd.Context(), descs)

	out, err := report.NewFormatter(format).Format(reports)
	if err != nil {
		return err
	}
	if outPath, _ := cmd.Flags().GetString("output"); outPath != "" {
		if err := os.WriteFile(outPath, []byte(out), 0o644); err != nil {
			return fmt.Errorf("failed to write report: %w", err)
		}
		logger.Info("report written", logger.String("path", outPath))
	} else {
		fmt.Fprint(cmd.OutOrStdout(), out)
	}

	unreachable := 0
	for _, r := range reports {
		if !r.Reachable {
			unreachable++
		}
	}
	if unreachable > 0 {
		return fmt.Errorf("%d of %d package(s) unreachable", unreachable, len(reports))
	}
	return nil
}

// loadOptions merges flags, the home config file, and the environment.
// Flags win over config file values.
func loadOptions(cmd *cobra.Command) (config.Options, error) {
	v := viper.New()
	if home, err := config.GetScoutHome(); err == nil {
		v.SetConfigFile(filepath.Join(home, "config.toml"))
		if err := v.ReadInConfig(); err != nil && !os.IsNotExist(err) {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				logger.Warn("config file ignored", logger.Err(err))
			}
		}
	}
	if cacheDir, _ := cmd.Flags().GetString("cache-dir"); cacheDir != "" {
		v.Set("cache_root", cacheDir)
	}
	if depots, _ := cmd.Flags().GetStringSlice("depot"); len(depots) > 0 {
		v.Set("depot_paths", depots)
	}
	if workers, _ := cmd.Flags().GetInt("workers"); workers > 0 {
		v.Set("workers", workers)
	}

	if registries, _ := cmd.Flags().GetStringSlice("registry"); len(registries) > 0 {
		v.Set("registry_paths", registries)
	}

	opts, err := config.Load(v)
	if err != nil {
		return opts, err
	}
	if len(opts.RegistryPaths) == 0 {
		opts.RegistryPaths = defaultRegistryPaths()
	}
	return opts, nil
}

// defaultRegistryPaths lists the registry checkouts installed under the
// pkgscout home. Missing home or an empty directory is not an error.
func defaultRegistryPaths() []string {
	home, err := config.GetScoutHome()
	if err != nil {
		return nil
	}
	entries, err := os.ReadDir(filepath.Join(home, "registries"))
	if err != nil {
		return nil
	}
	var paths []string
	for _, entry := range entries {
		if entry.IsDir() {
			paths = append(paths, filepath.Join(home, "registries", entry.Name()))
		}
	}
	return paths
}

func collectDescriptors(regs registry.Set, args []string, manifestPath string) ([]descriptor.Descriptor, error) {
	if manifestPath != "" {
		if len(args) > 0 {
			return nil, fmt.Errorf("--manifest cannot be combined with package arguments")
		}
		return resolve.Manifest(regs, manifestPath)
	}

	descs := make([]descriptor.Descriptor, 0, len(args))
	for _, arg := range args {
		input, version := splitVersion(arg)
		desc, err := resolve.Input(regs, input, version)
		if err != nil {
			return nil, err
		}
		descs = append(descs, desc)
	}
	return descs, nil
}

// versionedNameRe matches Name@version arguments. The version part never
// allows path or host separators, so URLs and scp-style remotes keep their
// embedded @ characters.
var versionedNameRe = regexp.MustCompile(`^([A-Za-z][A-Za-z0-9_]*)@([0-9A-Za-z.+\-]+)$`)

func splitVersion(arg string) (input, version string) {
	if m := versionedNameRe.FindStringSubmatch(arg); m != nil {
		return m[1], m[2]
	}
	return arg, ""
}

func buildAnalyzer(opts config.Options) (*analyze.Analyzer, error) {
	resolver := acquire.NewResolver(opts.CacheRoot, opts.DepotPaths, opts.AuthToken)
	if scratch, err := config.GetScratchDir(); err == nil {
		resolver.ScratchRoot = scratch
	}

	analyzer := &analyze.Analyzer{
		Resolver: resolver,
		Counter:  loc.NewCounter(),
		Contribs: contrib.NewClient(acquire.NewRealHTTPFetcher(), opts.AuthToken, opts.ContribDelay),
		Workers:  opts.EffectiveWorkers(),
	}

	scanner, err := license.NewScanner()
	if err != nil {
		// License data failed to load; the rest of the audit still runs.
		logger.Warn("license scanning disabled", logger.Err(err))
	} else {
		analyzer.Licenses = scanner
	}

	return analyzer, nil
}
