// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ProvStor Contributors

package main

import (
	"errors"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/provstor-dev/provstor/internal/config"
	provstorerr "github.com/provstor-dev/provstor/pkg/errors"
)

// NewRootCmd creates the root provstor command with all subcommands registered.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "provstor",
		Short:         "ProvStor: provenance store for workflow run RO-Crates",
		Long:          "ProvStor stores Workflow Run RO-Crates, indexes their metadata as RDF, and answers provenance queries over the stored graphs.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return initViper(cmd)
		},
	}

	root.PersistentFlags().StringP("config", "c", "", "path to config file")
	root.PersistentFlags().BoolP("verbose", "v", false, "enable verbose output")
	root.PersistentFlags().String("address", "", "ProvStor API address (host:port)")
	root.PersistentFlags().StringP("output", "o", "text", "output format: text, json or yaml")

	root.AddCommand(
		newServeCmd(),
		newLoadCmd(),
		newQueryCmd(),
		newGetCrateCmd(),
		newGetFileCmd(),
		newBacktrackCmd(),
		newCopyCmd(),
		newMoveCmd(),
		newMoveChainCmd(),
		newStatusCmd(),
		newVersionCmd(),
		newDoctorCmd(),
		newSecretCmd(),
	)
	root.AddCommand(newLookupCmds()...)

	return root
}

// initViper sets up the global Viper with defaults, env bindings, flag
// bindings, and optional config file so the standard precedence
// (flag > env > file > defaults) is handled uniformly.
func initViper(cmd *cobra.Command) error {
	v := viper.GetViper()

	config.SetDefaults(v)
	config.SetupEnv(v)

	if cfgFile, _ := cmd.Flags().GetString("config"); cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return provstorerr.Errorf(provstorerr.CodeConfigLoadReadFailure, "reading config file: %w", err)
		}
	} else {
		// SetConfigType is omitted: with it set, Viper also tries the bare
		// name, which collides with a ./provstor binary.
		v.SetConfigName("provstor")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/provstor")
		v.AddConfigPath("/etc/provstor")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return provstorerr.Errorf(provstorerr.CodeConfigLoadReadFailure, "reading config: %w", err)
			}
			if path := config.BootstrapConfig(); path != "" {
				v.SetConfigFile(path)
				if err := v.ReadInConfig(); err != nil {
					return provstorerr.Errorf(provstorerr.CodeConfigLoadReadFailure, "reading bootstrapped config: %w", err)
				}
			}
		}
	}

	flags := cmd.Root().PersistentFlags()
	for key, flag := range map[string]string{
		"verbose":     "verbose",
		"api.address": "address",
		"output":      "output",
	} {
		if err := v.BindPFlag(key, flags.Lookup(flag)); err != nil {
			return provstorerr.Errorf(provstorerr.CodeCLISetupFailure, "binding %s flag: %w", flag, err)
		}
	}

	return nil
}
