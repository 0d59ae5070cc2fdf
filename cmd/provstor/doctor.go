// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ProvStor Contributors

package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sys/unix"

	provstorerr "github.com/provstor-dev/provstor/pkg/errors"
)

func newDoctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Run diagnostics",
		Long:  "Check the binary, the running API and its backing stores, the loaded config, and free disk space for local storage.",
		RunE:  runDoctor,
	}
}

func runDoctor(cmd *cobra.Command, _ []string) error {
	w := cmd.OutOrStdout()
	addr := viper.GetString("api.address")

	checks := []struct {
		name string
		fn   func() string
	}{
		{"Binary", checkBinary},
		{"Platform", checkPlatform},
		{"API", func() string { return checkAPI(cmd.Context(), addr) }},
		{"Config", checkConfig},
		{"Storage", checkStorage},
		{"Disk Space", func() string { return checkDiskSpace(localDataDir()) }},
	}

	for _, c := range checks {
		if _, err := fmt.Fprintf(w, "%-20s %s\n", c.name+":", c.fn()); err != nil {
			return err
		}
	}

	return nil
}

// localDataDir is where local backends keep their data: the filesystem
// object store root, else the directory of the sqlite database.
func localDataDir() string {
	if viper.GetString("objectstore.backend") == "filesystem" {
		return viper.GetString("objectstore.filesystem.root")
	}
	if viper.GetString("triplestore.backend") == "sqlite" {
		return filepath.Dir(viper.GetString("triplestore.sqlite.path"))
	}
	return "."
}

func checkBinary() string {
	return fmt.Sprintf("provstor %s (%s/%s)", version, runtime.GOOS, runtime.GOARCH)
}

func checkPlatform() string {
	return fmt.Sprintf("%s/%s, Go %s", runtime.GOOS, runtime.GOARCH, runtime.Version())
}

func checkAPI(ctx context.Context, addr string) string {
	report, err := newAPIClient(addr).health(ctx)
	if err != nil {
		if provstorerr.HasCode(err, provstorerr.CodeCLIAPINotRunning) {
			return fmt.Sprintf("not running at %s (run 'provstor serve')", addr)
		}
		return fmt.Sprintf("error: %s", err)
	}

	var down []string
	for _, c := range report.Checks {
		if !c.Available {
			down = append(down, c.Name)
		}
	}
	if len(down) > 0 {
		return fmt.Sprintf("%s at %s (unavailable: %s)", report.Status, addr, strings.Join(down, ", "))
	}
	return fmt.Sprintf("%s at %s", report.Status, addr)
}

func checkConfig() string {
	cfgFile := viper.ConfigFileUsed()
	if cfgFile != "" {
		return fmt.Sprintf("loaded from %s", cfgFile)
	}
	return "using defaults (no config file found)"
}

func checkStorage() string {
	return fmt.Sprintf("triplestore=%s, objectstore=%s",
		viper.GetString("triplestore.backend"), viper.GetString("objectstore.backend"))
}

func checkDiskSpace(dataDir string) string {
	path := dataDir
	if _, err := os.Stat(path); os.IsNotExist(err) {
		// Not created yet; report the home directory's filesystem.
		path, _ = os.UserHomeDir()
	}

	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return fmt.Sprintf("unable to check: %s", err)
	}

	availBytes := stat.Bavail * uint64(stat.Bsize)
	return formatBytes(availBytes) + " available"
}

// formatBytes formats a byte count as a human-readable string.
func formatBytes(b uint64) string {
	const (
		gb = 1024 * 1024 * 1024
		mb = 1024 * 1024
	)
	switch {
	case b >= gb:
		return fmt.Sprintf("%.1f GB", float64(b)/float64(gb))
	case b >= mb:
		return fmt.Sprintf("%.1f MB", float64(b)/float64(mb))
	default:
		return fmt.Sprintf("%d bytes", b)
	}
}
