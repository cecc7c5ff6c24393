// gen-docs writes the testenv command reference as Markdown and man pages.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/pflag"

	"github.com/schmitthub/testenv/internal/cmd/root"
	"github.com/schmitthub/testenv/internal/cmdutil"
	"github.com/schmitthub/testenv/internal/docs"
	"github.com/schmitthub/testenv/internal/iostreams"
)

func main() {
	if err := run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(args []string) error {
	flags := pflag.NewFlagSet("gen-docs", pflag.ContinueOnError)

	var (
		docPath  string
		markdown bool
		manPage  bool
	)
	flags.StringVar(&docPath, "doc-path", "", "Output directory for generated docs (required)")
	flags.BoolVar(&markdown, "markdown", false, "Generate Markdown documentation")
	flags.BoolVar(&manPage, "man-page", false, "Generate man pages")
	flags.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage of %s:\n\n%s", filepath.Base(args[0]), flags.FlagUsages())
	}

	if err := flags.Parse(args[1:]); err != nil {
		return err
	}
	if docPath == "" {
		return fmt.Errorf("--doc-path is required")
	}
	if !markdown && !manPage {
		return fmt.Errorf("at least one format must be specified (--markdown, --man-page)")
	}

	f := &cmdutil.Factory{IOStreams: iostreams.NewIOStreams()}
	rootCmd := root.NewCmdRoot(f, "", "")
	rootCmd.DisableAutoGenTag = true

	if markdown {
		dir := filepath.Join(docPath, "markdown")
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
		if err := docs.GenMarkdownTree(rootCmd, dir); err != nil {
			return fmt.Errorf("generating markdown: %w", err)
		}
	}
	if manPage {
		dir := filepath.Join(docPath, "man")
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
		if err := docs.GenManTree(rootCmd, dir, docs.DefaultManHeader()); err != nil {
			return fmt.Errorf("generating man pages: %w", err)
		}
	}
	return nil
}
