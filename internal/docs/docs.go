// Package docs renders reference documentation for the testenv command tree
// as Markdown pages and man pages.
package docs

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cpuguy83/go-md2man/v2/md2man"
	"github.com/spf13/cobra"
)

// ManHeader is the metadata of a man page.
type ManHeader struct {
	Section string
	Date    time.Time
	Manual  string
}

// DefaultManHeader returns section 1 metadata dated now.
func DefaultManHeader() ManHeader {
	return ManHeader{Section: "1", Date: time.Now(), Manual: "testenv Manual"}
}

// GenMarkdownTree writes one Markdown page per visible command into dir.
func GenMarkdownTree(cmd *cobra.Command, dir string) error {
	return walk(cmd, func(c *cobra.Command) error {
		return writeFile(filepath.Join(dir, basename(c, "_")+".md"), func(w io.Writer) error {
			return GenMarkdown(c, w)
		})
	})
}

// GenManTree writes one man page per visible command into dir.
func GenManTree(cmd *cobra.Command, dir string, header ManHeader) error {
	return walk(cmd, func(c *cobra.Command) error {
		name := fmt.Sprintf("%s.%s", basename(c, "-"), section(header))
		return writeFile(filepath.Join(dir, name), func(w io.Writer) error {
			return GenMan(c, header, w)
		})
	})
}

// GenMarkdown writes the Markdown page of a single command.
func GenMarkdown(cmd *cobra.Command, w io.Writer) error {
	cmd.InitDefaultHelpFlag()

	buf := new(bytes.Buffer)
	name := cmd.CommandPath()
	fmt.Fprintf(buf, "## %s\n\n", name)
	if cmd.Short != "" {
		fmt.Fprintf(buf, "%s\n\n", cmd.Short)
	}
	if cmd.Runnable() {
		buf.WriteString("### Synopsis\n\n")
		if cmd.Long != "" {
			fmt.Fprintf(buf, "%s\n\n", cmd.Long)
		}
		fmt.Fprintf(buf, "```\n%s\n```\n\n", cmd.UseLine())
	}
	if len(cmd.Aliases) > 0 {
		fmt.Fprintf(buf, "### Aliases\n\n`%s`\n\n", strings.Join(append([]string{cmd.Name()}, cmd.Aliases...), "`, `"))
	}
	if cmd.Example != "" {
		fmt.Fprintf(buf, "### Examples\n\n```\n%s\n```\n\n", cmd.Example)
	}
	if subs := visible(cmd); len(subs) > 0 {
		buf.WriteString("### Subcommands\n\n")
		for _, c := range subs {
			fmt.Fprintf(buf, "* [%s](%s.md) - %s\n", c.CommandPath(), basename(c, "_"), c.Short)
		}
		buf.WriteString("\n")
	}
	if flags := cmd.NonInheritedFlags(); flags.HasAvailableFlags() {
		fmt.Fprintf(buf, "### Options\n\n```\n%s```\n\n", flags.FlagUsages())
	}
	if flags := cmd.InheritedFlags(); flags.HasAvailableFlags() {
		fmt.Fprintf(buf, "### Options inherited from parent commands\n\n```\n%s```\n\n", flags.FlagUsages())
	}
	if cmd.HasParent() {
		parent := cmd.Parent()
		fmt.Fprintf(buf, "### See also\n\n* [%s](%s.md) - %s\n", parent.CommandPath(), basename(parent, "_"), parent.Short)
	}

	_, err := buf.WriteTo(w)
	return err
}

// GenMan writes the man page of a single command.
func GenMan(cmd *cobra.Command, header ManHeader, w io.Writer) error {
	cmd.InitDefaultHelpFlag()

	buf := new(bytes.Buffer)
	name := cmd.CommandPath()
	date := header.Date
	if date.IsZero() {
		date = time.Now()
	}
	fmt.Fprintf(buf, "%% %s(%s) %s | %s\n\n",
		strings.ToUpper(strings.ReplaceAll(name, " ", "-")), section(header),
		date.Format("Jan 2006"), header.Manual)

	fmt.Fprintf(buf, "# NAME\n%s \\- %s\n\n", name, cmd.Short)
	fmt.Fprintf(buf, "# SYNOPSIS\n**%s**", cmd.UseLine())
	if cmd.HasAvailableSubCommands() {
		buf.WriteString(" COMMAND")
	}
	buf.WriteString("\n\n")
	if cmd.Long != "" {
		fmt.Fprintf(buf, "# DESCRIPTION\n%s\n\n", cmd.Long)
	}
	if subs := visible(cmd); len(subs) > 0 {
		buf.WriteString("# COMMANDS\n")
		for _, c := range subs {
			fmt.Fprintf(buf, "**%s**\n: %s\n\n", c.Name(), c.Short)
		}
	}
	if flags := cmd.NonInheritedFlags(); flags.HasAvailableFlags() {
		fmt.Fprintf(buf, "# OPTIONS\n```\n%s```\n\n", flags.FlagUsages())
	}
	if cmd.Example != "" {
		fmt.Fprintf(buf, "# EXAMPLE\n```\n%s\n```\n", cmd.Example)
	}

	_, err := w.Write(md2man.Render(buf.Bytes()))
	return err
}

func walk(cmd *cobra.Command, fn func(*cobra.Command) error) error {
	for _, c := range visible(cmd) {
		if err := walk(c, fn); err != nil {
			return err
		}
	}
	return fn(cmd)
}

func visible(cmd *cobra.Command) []*cobra.Command {
	var out []*cobra.Command
	for _, c := range cmd.Commands() {
		if c.IsAvailableCommand() && !c.IsAdditionalHelpTopicCommand() {
			out = append(out, c)
		}
	}
	return out
}

func basename(cmd *cobra.Command, sep string) string {
	return strings.ReplaceAll(cmd.CommandPath(), " ", sep)
}

func section(h ManHeader) string {
	if h.Section == "" {
		return "1"
	}
	return h.Section
}

func writeFile(path string, render func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file %s: %w", path, err)
	}
	if err := render(f); err != nil {
		f.Close()
		return fmt.Errorf("failed to render %s: %w", path, err)
	}
	return f.Close()
}
