// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ProvStor Contributors

package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	provstorerr "github.com/provstor-dev/provstor/pkg/errors"
)

// render writes v in the format chosen by --output. Text output is
// produced by text; json and yaml marshal v directly.
func render(cmd *cobra.Command, v any, text func(w io.Writer) error) error {
	w := cmd.OutOrStdout()
	switch format := outputFormat(); format {
	case "", "text":
		return text(w)
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return provstorerr.Errorf(provstorerr.CodeCLIInputInvalid, "unknown output format %q: want text, json or yaml", format)
	}
}

func outputFormat() string {
	return viper.GetString("output")
}

// renderLines prints one item per line in text mode.
func renderLines(cmd *cobra.Command, items []string) error {
	return render(cmd, items, func(w io.Writer) error {
		for _, item := range items {
			if _, err := fmt.Fprintln(w, item); err != nil {
				return err
			}
		}
		return nil
	})
}

// renderPairs prints tab separated pairs in text mode.
func renderPairs(cmd *cobra.Command, pairs [][]string) error {
	return render(cmd, pairs, func(w io.Writer) error {
		for _, p := range pairs {
			if len(p) != 2 {
				continue
			}
			if _, err := fmt.Fprintf(w, "%s\t%s\n", p[0], p[1]); err != nil {
				return err
			}
		}
		return nil
	})
}
