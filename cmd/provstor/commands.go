// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ProvStor Contributors

package main

import (
	"bytes"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/provstor-dev/provstor/internal/provenance"
	"github.com/provstor-dev/provstor/internal/rocrate"
	provstorerr "github.com/provstor-dev/provstor/pkg/errors"
)

type listResponse struct {
	Result []string `json:"result"`
}

type pairsResponse struct {
	Result [][]string `json:"result"`
}

type crateResponse struct {
	Result   string `json:"result" yaml:"result"`
	CrateURL string `json:"crate_url" yaml:"crate_url"`
}

func newLoadCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "load <crate>",
		Short: "Upload an RO-Crate directory or zip archive",
		Long:  "Index the crate's metadata in the triplestore and store the zipped crate in the object store. A directory is zipped first.",
		Args:  cobra.ExactArgs(1),
		RunE:  runLoad,
	}
	cmd.Flags().StringSlice("exclude", nil, "glob of paths to leave out when zipping a directory (repeatable, ** allowed)")
	return cmd
}

func runLoad(cmd *cobra.Command, args []string) error {
	exclude, _ := cmd.Flags().GetStringSlice("exclude")
	data, name, err := readCrate(args[0], exclude)
	if err != nil {
		return err
	}

	var res crateResponse
	part := formPart{field: "crate_path", filename: name, contentType: "application/zip", data: data}
	if err := clientFromConfig().postMultipart(cmd.Context(), "/upload/crate", nil, []formPart{part}, &res); err != nil {
		return err
	}
	return render(cmd, res, func(w io.Writer) error {
		_, err := fmt.Fprintf(w, "Crate successfully uploaded.\nCrate URL: %s\n", res.CrateURL)
		return err
	})
}

// readCrate returns the zip bytes and upload name for a crate given as a
// zip file or a directory.
func readCrate(p string, exclude []string) ([]byte, string, error) {
	info, err := os.Stat(p)
	if err != nil {
		return nil, "", provstorerr.Wrapf(err, provstorerr.CodeCLIInputInvalid, "reading crate %s", p)
	}
	if !info.IsDir() {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, "", provstorerr.Wrapf(err, provstorerr.CodeCLIInputInvalid, "reading crate %s", p)
		}
		return data, filepath.Base(p), nil
	}

	fsys := os.DirFS(p)
	if !rocrate.HasMetadata(fsys) {
		return nil, "", provstorerr.Errorf(provstorerr.CodeCLIInputInvalid, "%s has no %s", p, rocrate.MetadataFile)
	}
	var buf bytes.Buffer
	if err := rocrate.ZipDir(fsys, exclude, &buf); err != nil {
		return nil, "", err
	}
	abs, err := filepath.Abs(p)
	if err != nil {
		return nil, "", provstorerr.Wrapf(err, provstorerr.CodeCLIInputInvalid, "resolving %s", p)
	}
	return buf.Bytes(), filepath.Base(abs) + ".zip", nil
}

func newQueryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query <query-file>",
		Short: "Run a SPARQL query from a file",
		Args:  cobra.ExactArgs(1),
		RunE:  runQuery,
	}
	cmd.Flags().StringP("graph", "g", "", "crate graph name or URL; all crates when empty")
	return cmd
}

func runQuery(cmd *cobra.Command, args []string) error {
	text, err := os.ReadFile(args[0])
	if err != nil {
		return provstorerr.Wrapf(err, provstorerr.CodeCLIInputInvalid, "reading query file %s", args[0])
	}

	params := url.Values{}
	if graph, _ := cmd.Flags().GetString("graph"); graph != "" {
		params.Set("graph", graph)
	}

	var res struct {
		Result [][]any `json:"result"`
	}
	part := formPart{field: "query_file", filename: filepath.Base(args[0]), contentType: "application/sparql-query", data: text}
	if err := clientFromConfig().postMultipart(cmd.Context(), "/query/run-query", params, []formPart{part}, &res); err != nil {
		return err
	}
	return render(cmd, res.Result, func(w io.Writer) error {
		for _, row := range res.Result {
			cells := make([]string, len(row))
			for i, v := range row {
				cells[i] = fmt.Sprint(v)
			}
			if _, err := fmt.Fprintln(w, strings.Join(cells, ", ")); err != nil {
				return err
			}
		}
		return nil
	})
}

func newGetCrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get-crate <rde-id>",
		Short: "Download the crate with the given root data entity",
		Long:  "Download the crate whose root data entity is the given arcp:// id.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDownload(cmd, "/get/crate", url.Values{"rde_id": {args[0]}}, args[0])
		},
	}
	cmd.Flags().StringP("outdir", "d", "", "directory to save the crate in (default: current directory)")
	return cmd
}

func newGetFileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get-file <file-uri>",
		Short: "Download a file stored in a crate",
		Long:  "Download the file with the given arcp:// locator, or a crate archive by its object store URL.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDownload(cmd, "/get/file", url.Values{"file_uri": {args[0]}}, args[0])
		},
	}
	cmd.Flags().StringP("outdir", "d", "", "directory to save the file in (default: current directory)")
	return cmd
}

func runDownload(cmd *cobra.Command, p string, params url.Values, id string) error {
	data, name, err := clientFromConfig().download(cmd.Context(), p, params, id)
	if err != nil {
		return err
	}
	if name == "" || name == "." || name == "/" {
		name = "downloaded_file"
	}

	outdir, _ := cmd.Flags().GetString("outdir")
	if outdir == "" {
		if outdir, err = os.Getwd(); err != nil {
			return provstorerr.Wrapf(err, provstorerr.CodeCLISetupFailure, "resolving working directory")
		}
	}
	if err := os.MkdirAll(outdir, 0o755); err != nil {
		return provstorerr.Wrapf(err, provstorerr.CodeCLISetupFailure, "creating %s", outdir)
	}
	dest := filepath.Join(outdir, name)
	if err := os.WriteFile(dest, data, 0o644); err != nil {
		return provstorerr.Wrapf(err, provstorerr.CodeCLISetupFailure, "writing %s", dest)
	}

	res := map[string]any{"path": dest, "size": len(data)}
	return render(cmd, res, func(w io.Writer) error {
		_, err := fmt.Fprintf(w, "Downloaded to %s\n", dest)
		return err
	})
}

// lookup is a read-only query command that takes one id and prints a list.
type lookup struct {
	use, short, path, param, empty string
}

var lookups = []lookup{
	{"get-graphs-for-file <file-id>", "Crate graphs that contain a file", "/get/graphs-for-file", "file_id", "No graphs found for the given file."},
	{"get-graphs-for-result <result-id>", "Crate graphs where an action produces a result", "/get/graphs-for-result", "result_id", "No graphs found for the given result id."},
	{"get-workflow <graph-id>", "Main workflow of a crate", "/get/workflow", "graph_id", "No workflow found for the given crate."},
	{"get-run-results <graph-id>", "Files and directories produced by a crate's workflow run", "/get/run-results", "graph_id", "No results found."},
	{"get-run-objects <graph-id>", "Files and directories consumed by a crate's workflow run", "/get/run-objects", "graph_id", "No objects found."},
	{"get-objects-for-result <result-id>", "Inputs of the actions that produce a result", "/get/objects-for-result", "result_id", "No objects found."},
	{"get-actions-for-result <result-id>", "Actions that produce a result", "/get/actions-for-result", "result_id", "No actions found."},
	{"get-objects-for-action <action-id>", "Inputs of an action", "/get/objects-for-action", "action_id", "No objects found."},
	{"get-results-for-action <action-id>", "Outputs of an action", "/get/results-for-action", "action_id", "No results found."},
}

func newLookupCmds() []*cobra.Command {
	cmds := make([]*cobra.Command, 0, len(lookups)+3)
	for _, l := range lookups {
		cmds = append(cmds, &cobra.Command{
			Use:   l.use,
			Short: l.short,
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return runList(cmd, l.path, url.Values{l.param: {args[0]}}, l.empty)
			},
		})
	}

	cmds = append(cmds,
		&cobra.Command{
			Use:   "get-run-params <graph-id>",
			Short: "Parameters of a crate's workflow run",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return runPairs(cmd, "/get/run-params", url.Values{"graph_id": {args[0]}}, "No parameters found for the given graph.")
			},
		},
		&cobra.Command{
			Use:   "list-graphs",
			Short: "List the graphs of all stored crates",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return runList(cmd, "/query/list-graphs", nil, "No graphs found.")
			},
		},
		&cobra.Command{
			Use:   "list-rde-graphs",
			Short: "List root data entities with the graph that holds each",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return runPairs(cmd, "/query/list-rde-graphs", nil, "No graphs found.")
			},
		},
	)
	return cmds
}

func runList(cmd *cobra.Command, p string, params url.Values, empty string) error {
	var res listResponse
	if err := clientFromConfig().getJSON(cmd.Context(), p, params, &res); err != nil {
		return err
	}
	if len(res.Result) == 0 && isText() {
		_, err := fmt.Fprintln(cmd.OutOrStdout(), empty)
		return err
	}
	return renderLines(cmd, orEmpty(res.Result))
}

func runPairs(cmd *cobra.Command, p string, params url.Values, empty string) error {
	var res pairsResponse
	if err := clientFromConfig().getJSON(cmd.Context(), p, params, &res); err != nil {
		return err
	}
	if len(res.Result) == 0 && isText() {
		_, err := fmt.Fprintln(cmd.OutOrStdout(), empty)
		return err
	}
	if res.Result == nil {
		res.Result = [][]string{}
	}
	return renderPairs(cmd, res.Result)
}

func newBacktrackCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backtrack [result-id]",
		Short: "Trace the chain of actions that led to a result",
		Long: "Walk back from a result through the actions that produced it and the actions that produced their inputs. " +
			"With --file-uri, trace the first workflow result of the crate holding that file instead.",
		Args: cobra.MaximumNArgs(1),
		RunE: runBacktrack,
	}
	cmd.Flags().String("file-uri", "", "trace from the crate containing this file")
	return cmd
}

func runBacktrack(cmd *cobra.Command, args []string) error {
	params := url.Values{}
	fileURI, _ := cmd.Flags().GetString("file-uri")
	switch {
	case len(args) == 1:
		params.Set("result_id", args[0])
	case fileURI != "":
		params.Set("file_uri", fileURI)
	default:
		return provstorerr.New(provstorerr.CodeCLIInputInvalid, "either a result id or --file-uri must be provided")
	}

	var res struct {
		Result []provenance.Step `json:"result"`
	}
	if err := clientFromConfig().getJSON(cmd.Context(), "/backtrack", params, &res); err != nil {
		return err
	}
	return render(cmd, res.Result, func(w io.Writer) error {
		for _, step := range res.Result {
			if _, err := fmt.Fprintf(w, "%s\n  objects: %s\n  results: %s\n",
				step.Action, strings.Join(step.Objects, ", "), strings.Join(step.Results, ", ")); err != nil {
				return err
			}
		}
		return nil
	})
}

func newCopyCmd() *cobra.Command {
	return newPathOpCmd("cp <src> <dest>", "Record a copy of a file", "/pathops/copy")
}

func newMoveCmd() *cobra.Command {
	return newPathOpCmd("mv <src> <dest>", "Record a move of a file", "/pathops/move")
}

func newPathOpCmd(use, short, p string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Long:  short + " as a provenance crate. Both paths are file: URIs; the source must already be a known file.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			params := url.Values{"src": {args[0]}, "dest": {args[1]}}
			if when, _ := cmd.Flags().GetString("when"); when != "" {
				params.Set("when", when)
			}
			var res crateResponse
			if err := clientFromConfig().postJSON(cmd.Context(), p, params, &res); err != nil {
				return err
			}
			return render(cmd, res, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "Recorded in %s\n", res.CrateURL)
				return err
			})
		},
	}
	cmd.Flags().String("when", "", "time of the operation (RFC 3339); now when empty")
	return cmd
}

func newMoveChainCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "movechain <path-id>",
		Short: "Follow the successive moves of a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(cmd, "/pathops/movechain", url.Values{"path_id": {args[0]}}, "No moves recorded.")
		},
	}
}

func isText() bool {
	f := outputFormat()
	return f == "" || f == "text"
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
