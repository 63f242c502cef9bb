package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/vango-dev/viewdiff/internal/config"
	"github.com/vango-dev/viewdiff/internal/errors"
	"github.com/vango-dev/viewdiff/pkg/differ"
	"github.com/vango-dev/viewdiff/pkg/mutation"
	"github.com/vango-dev/viewdiff/pkg/protocol"
	"github.com/vango-dev/viewdiff/pkg/shadow"
	"github.com/vango-dev/viewdiff/pkg/stub"
	"github.com/vango-dev/viewdiff/pkg/treestore"
)

type diffOptions struct {
	configPath string
	mode       string
	format     string
	verify     bool
	assertions bool
}

func diffCmd() *cobra.Command {
	var opts diffOptions

	cmd := &cobra.Command{
		Use:   "diff OLD NEW",
		Short: "Print the mutations between two tree documents",
		Long: `Diff two generations of a view tree and print the mutations that
turn a host mirroring OLD into one mirroring NEW.

OLD and NEW are JSON or YAML tree documents, given as file paths or
s3://bucket/key references. Both trees must share the root tag.

Formats:
  text     one mutation per line (default)
  json     a JSON array of mutations
  binary   stream protocol transaction frames

Examples:
  viewdiff diff old.yaml new.yaml
  viewdiff diff --mode=optimized --verify old.json new.json
  viewdiff diff --format=json s3://trees/a.json s3://trees/b.json`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDiff(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), args[0], args[1], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "", "Config file (default ./viewdiff.json if present)")
	cmd.Flags().StringVarP(&opts.mode, "mode", "m", "", "Diff mode: classic or optimized (default from config)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "Output format: text, json or binary")
	cmd.Flags().BoolVar(&opts.verify, "verify", false, "Check the mutations against a stub host")
	cmd.Flags().BoolVar(&opts.assertions, "assertions", false, "Panic on malformed trees")

	return cmd
}

func runDiff(ctx context.Context, out, errOut io.Writer, oldRef, newRef string, opts diffOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	switch opts.format {
	case "text", "json", "binary":
	default:
		return errors.New("E120").WithDetailf("format %q", opts.format).
			WithSuggestion("Use --format=text, --format=json or --format=binary")
	}

	cfg, err := config.LoadOrDefault(opts.configPath)
	if err != nil {
		return err
	}
	if opts.mode == "" {
		opts.mode = cfg.Differ.Mode
	}
	mode, err := differ.ParseMode(opts.mode)
	if err != nil {
		return errors.New("E101").WithDetailf("mode %q", opts.mode).Wrap(err)
	}

	var oldRoot, newRoot *shadow.Element
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		oldRoot, err = treestore.LoadTree(gctx, oldRef, cfg.Storage.S3)
		return err
	})
	g.Go(func() (err error) {
		newRoot, err = treestore.LoadTree(gctx, newRef, cfg.Storage.S3)
		return err
	})
	if err := g.Wait(); err != nil {
		return err
	}
	if !shadow.SameFamily(oldRoot, newRoot) {
		return errors.New("E311").
			WithDetailf("%s is rooted at tag %d, %s at tag %d", oldRef, oldRoot.Tag(), newRef, newRoot.Tag())
	}

	differOpts := []differ.Option{differ.WithMode(mode)}
	if opts.assertions || cfg.Differ.Assertions {
		differOpts = append(differOpts, differ.WithAssertions())
	}
	list := differ.Calculate(oldRoot, newRoot, differOpts...)

	if opts.verify {
		if err := verify(oldRoot, newRoot, list); err != nil {
			return err
		}
	}

	if err := writeMutations(out, list, opts.format); err != nil {
		return err
	}
	if opts.format == "text" {
		summary := fmt.Sprintf("%d mutations (%s)", len(list), mode)
		if opts.verify {
			summary += ", verified"
		}
		success(errOut, "%s", summary)
	}
	return nil
}

// verify applies list to a stub host built from oldRoot and checks that
// it ends up equal to one built from newRoot.
func verify(oldRoot, newRoot shadow.Node, list mutation.List) error {
	host := stub.Build(oldRoot)
	if err := host.Apply(list); err != nil {
		return errors.New("E121").Wrap(err)
	}
	if diff := host.Diff(stub.Build(newRoot)); len(diff) > 0 {
		return errors.New("E121").WithDetail(strings.Join(diff, "; "))
	}
	return nil
}

func writeMutations(w io.Writer, list mutation.List, format string) error {
	switch format {
	case "json":
		if list == nil {
			list = mutation.List{}
		}
		data, err := json.MarshalIndent(list, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(w, "%s\n", data)
		return err

	case "binary":
		frames, err := protocol.TransactionFrames(&protocol.Transaction{Surface: "diff", Number: 1, Mutations: list})
		if err != nil {
			return err
		}
		for _, f := range frames {
			if err := protocol.WriteFrame(w, f); err != nil {
				return err
			}
		}
		return nil

	default:
		for _, m := range list {
			line := m.String()
			if changed := m.Changed(); len(changed) > 0 {
				line += " [" + strings.Join(changed, ", ") + "]"
			}
			if _, err := fmt.Fprintln(w, line); err != nil {
				return err
			}
		}
		return nil
	}
}
