// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ProvStor Contributors

package main

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/provstor-dev/provstor/internal/secrets"
	provstorerr "github.com/provstor-dev/provstor/pkg/errors"
)

// secretStoreFactory creates a secrets.Store. It is a package-level variable
// so tests can substitute a mock implementation.
var secretStoreFactory = func() secrets.Store {
	return secrets.NewKeyringStore()
}

func newSecretCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "secret",
		Short: "Manage secrets stored in the OS keyring",
		Long: "Set, list and delete secrets stored under the provstor service in the operating system keyring. " +
			"Reference them from the config as keyring://provstor/<name>.",
	}

	cmd.AddCommand(
		newSecretSetCmd(),
		newSecretListCmd(),
		newSecretDeleteCmd(),
	)

	return cmd
}

func newSecretSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <name>",
		Short: "Store a secret read from stdin",
		Args:  cobra.ExactArgs(1),
		RunE:  runSecretSet,
	}
}

func newSecretListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all stored secret names",
		RunE:  runSecretList,
	}
}

func newSecretDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a secret by name",
		Args:  cobra.ExactArgs(1),
		RunE:  runSecretDelete,
	}
}

func runSecretSet(cmd *cobra.Command, args []string) error {
	name := args[0]

	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	value := strings.TrimRight(line, "\r\n")
	if value == "" {
		if err != nil {
			return provstorerr.Wrapf(err, provstorerr.CodeSecretInvalidInput, "reading secret value from stdin")
		}
		return provstorerr.New(provstorerr.CodeSecretInvalidInput, "secret value is empty")
	}

	if err := secretStoreFactory().Set(secrets.Service, name, value); err != nil {
		return provstorerr.Wrapf(err, provstorerr.CodeSecretStoreFailure, "storing secret %q", name)
	}

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Stored secret: %s (reference as keyring://%s/%s)\n", name, secrets.Service, name)
	return nil
}

func runSecretList(cmd *cobra.Command, _ []string) error {
	store := secretStoreFactory()
	keys, err := store.List(secrets.Service)
	if err != nil {
		return provstorerr.Errorf(provstorerr.CodeSecretListFailure, "listing secrets: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(keys) == 0 {
		_, _ = fmt.Fprintln(out, "No secrets stored.")
		return nil
	}

	for _, k := range keys {
		_, _ = fmt.Fprintln(out, k)
	}
	return nil
}

func runSecretDelete(cmd *cobra.Command, args []string) error {
	name := args[0]
	store := secretStoreFactory()

	if err := store.Delete(secrets.Service, name); err != nil {
		if provstorerr.HasCode(err, provstorerr.CodeSecretNotFound) {
			return provstorerr.Errorf(provstorerr.CodeSecretNotFound, "secret %q not found", name)
		}
		return provstorerr.Errorf(provstorerr.CodeSecretDeleteFailure, "deleting secret %q: %w", name, err)
	}

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Deleted secret: %s\n", name)
	return nil
}
