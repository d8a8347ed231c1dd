/*
Copyright © 2025 3 Leaps <info@3leaps.net>
*/
package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/fulmenhq/pkgscout/pkg/config"
)

// homeCmd represents the home command
var homeCmd = &cobra.Command{
	Use:   "home",
	Short: "Show the pkgscout home directory and its contents",
	Long: `Show the pkgscout home directory layout: cache, scratch space, and
installed registries. Use --init to create the directory structure.`,
	RunE: runHome,
}

func init() {
	homeCmd.Flags().Bool("init", false, "Create the home directory structure")
	homeCmd.Flags().Bool("json", false, "Output in JSON format")
}

func runHome(cmd *cobra.Command, _ []string) error {
	initHome, _ := cmd.Flags().GetBool("init")
	jsonOutput, _ := cmd.Flags().GetBool("json")
	out := cmd.OutOrStdout()

	if initHome {
		if _, err := config.GetCacheDir(); err != nil {
			return err
		}
		if _, err := config.GetScratchDir(); err != nil {
			return err
		}
	}

	home, err := config.GetScoutHome()
	if err != nil {
		return err
	}

	registries := defaultRegistryPaths()
	cacheDir := filepath.Join(home, "cache", "packages")

	cached := 0
	if entries, err := os.ReadDir(cacheDir); err == nil {
		for _, entry := range entries {
			if entry.IsDir() {
				cached++
			}
		}
	}

	if jsonOutput {
		info := map[string]interface{}{
			"home":           home,
			"cacheDir":       cacheDir,
			"cachedPackages": cached,
			"registries":     registries,
			"scratchDir":     filepath.Join(home, "scratch"),
		}
		data, err := json.MarshalIndent(info, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(out, string(data))
		return nil
	}

	fmt.Fprintf(out, "Home:       %s\n", home)
	fmt.Fprintf(out, "Cache:      %s (%d package(s))\n", cacheDir, cached)
	fmt.Fprintf(out, "Scratch:    %s\n", filepath.Join(home, "scratch"))
	if len(registries) == 0 {
		fmt.Fprintln(out, "Registries: none installed")
	} else {
		fmt.Fprintln(out, "Registries:")
		for _, path := range registries {
			fmt.Fprintf(out, "  %s\n", path)
		}
	}
	return nil
}
