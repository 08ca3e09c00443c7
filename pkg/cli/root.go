package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Command represents a CLI command
type Command struct {
	Name        string
	Usage       string
	Description string
	Run         func(ctx context.Context, args []string) error
	Subcommands map[string]*Command
	Flags       *flag.FlagSet

	order []string
	out   io.Writer
}

// NewRootCommand creates the storenest-plugin root command writing to stdout and stderr
func NewRootCommand() *Command {
	return newRootCommand(newApp(os.Stdout, os.Stderr))
}

func newRootCommand(a *app) *Command {
	root := &Command{
		Name:        "storenest-plugin",
		Description: "Storenest Plugin CLI",
		Subcommands: make(map[string]*Command),
		Flags:       flag.NewFlagSet("storenest-plugin", flag.ContinueOnError),
		out:         a.stdout,
	}

	root.add(newInitCommand(a))
	root.add(newValidateCommand(a))
	root.add(newPackageCommand(a))
	root.add(newInfoCommand(a))
	root.add(newPublishCommand(a))
	root.add(newHistoryCommand(a))

	return root
}

func (c *Command) add(sub *Command) {
	c.Subcommands[sub.Name] = sub
	c.order = append(c.order, sub.Name)
}

// Execute runs the subcommand named by args[0]. No command, help, or an
// unknown command prints usage.
func (c *Command) Execute(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return c.usage()
	}

	switch args[0] {
	case "help", "-h", "--help":
		return c.usage()
	}

	if subcmd, ok := c.Subcommands[args[0]]; ok {
		err := subcmd.Run(ctx, args[1:])
		if errors.Is(err, flag.ErrHelp) {
			// The flag set already printed its defaults
			return nil
		}
		return err
	}

	return c.usage()
}

// usage prints the command usage
func (c *Command) usage() error {
	fmt.Fprintf(c.out, "\n%s\n\nUsage:\n  %s <command> [options]\n\nCommands:\n", c.Description, c.Name)
	for _, name := range c.order {
		cmd := c.Subcommands[name]
		fmt.Fprintf(c.out, "  %-30s %s\n", cmd.Usage, cmd.Description)
	}
	fmt.Fprintf(c.out, "  %-30s %s\n", "help", "Show this help message")
	fmt.Fprintf(c.out, "\nExamples:\n")
	for _, ex := range []string{"init my-plugin", "validate", "validate --watch", "package", "info"} {
		fmt.Fprintf(c.out, "  %s %s\n", c.Name, ex)
	}
	fmt.Fprintln(c.out)
	return nil
}

// parseArgs parses flags that may appear before or after the optional
// directory argument and returns the absolute plugin directory.
func parseArgs(flags *flag.FlagSet, args []string) (string, error) {
	var positional []string
	for {
		if err := flags.Parse(args); err != nil {
			return "", err
		}
		rest := flags.Args()
		if len(rest) == 0 {
			break
		}
		positional = append(positional, rest[0])
		args = rest[1:]
	}

	if len(positional) > 1 {
		return "", fmt.Errorf("unexpected arguments: %s", strings.Join(positional[1:], " "))
	}

	dir := "."
	if len(positional) == 1 {
		dir = positional[0]
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", dir, err)
	}
	return abs, nil
}
