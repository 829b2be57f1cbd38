package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	flag "github.com/spf13/pflag"

	"github.com/drbh/bspc"
)

// command is one bspc subcommand. Every subcommand operates on exactly
// one .bspc file; the runner enforces that contract and, for commands
// that opt in via withConfig, registers the shared --config flag and
// resolves the chunk configuration before exec runs.
type command struct {
	name  string
	args  string // argument synopsis shown after the name in help
	short string
	long  string

	// withConfig adds the --config flag and loads a ChunkConfig
	// (defaults, then the HuJSON file) for exec.
	withConfig bool

	flags *flag.FlagSet
	exec  func(ctx context.Context, o *IO, path string, cfg bspc.ChunkConfig) error
}

// newCommand wires the shared flag surface for a subcommand.
func newCommand(c *command) *command {
	if c.flags == nil {
		c.flags = flag.NewFlagSet(c.name, flag.ContinueOnError)
	}

	if c.withConfig {
		c.flags.String("config", "", "Chunk config file (HuJSON)")
	}

	return c
}

var errExpectOnePath = errors.New("expected exactly one file path")

// run parses flags, extracts the single path argument, resolves the
// chunk configuration, and executes the command. Returns exit code.
func (c *command) run(ctx context.Context, o *IO) int {
	rest := c.flags.Args()
	if len(rest) != 1 {
		o.ErrPrintln("error:", errExpectOnePath)
		o.ErrPrintln()
		c.printHelp(o)

		return 1
	}

	cfg := bspc.DefaultChunkConfig()

	if c.withConfig {
		configPath, _ := c.flags.GetString("config")

		loaded, err := LoadChunkConfig(configPath)
		if err != nil {
			o.ErrPrintln("error:", err)

			return 1
		}

		cfg = loaded
	}

	if err := c.exec(ctx, o, rest[0], cfg); err != nil {
		o.ErrPrintln("error:", err)

		return 1
	}

	return 0
}

// printHelp prints the full help output for "bspc <cmd> --help".
func (c *command) printHelp(o *IO) {
	o.Println("Usage: bspc", c.name, c.args)
	o.Println()

	desc := c.long
	if desc == "" {
		desc = c.short
	}

	o.Println(desc)

	if c.flags.HasFlags() {
		o.Println()
		o.Println("Flags:")

		var buf strings.Builder
		c.flags.SetOutput(&buf)
		c.flags.PrintDefaults()
		o.Printf("%s", buf.String())
	}
}

// Run is the main entry point. Returns exit code.
func Run(in io.Reader, out, errOut io.Writer, args []string) int {
	o := NewIO(in, out, errOut)

	globalFlags := flag.NewFlagSet("bspc", flag.ContinueOnError)
	globalFlags.SetInterspersed(false)
	globalFlags.Usage = func() {}
	globalFlags.SetOutput(&strings.Builder{})
	flagHelp := globalFlags.BoolP("help", "h", false, "Show help")

	if err := globalFlags.Parse(args[1:]); err != nil {
		o.ErrPrintln("error:", err)

		return 1
	}

	commands := []*command{
		queryCmd(),
		infoCmd(),
		shellCmd(),
	}

	commandAndArgs := globalFlags.Args()

	if *flagHelp || len(commandAndArgs) == 0 {
		printUsage(o, commands)

		return 0
	}

	for _, cmd := range commands {
		if cmd.name != commandAndArgs[0] {
			continue
		}

		cmd.flags.SetOutput(&strings.Builder{}) // discard pflag output

		if err := cmd.flags.Parse(commandAndArgs[1:]); err != nil {
			if errors.Is(err, flag.ErrHelp) {
				cmd.printHelp(o)

				return 0
			}

			o.ErrPrintln("error:", err)
			o.ErrPrintln()
			cmd.printHelp(o)

			return 1
		}

		return cmd.run(context.Background(), o)
	}

	o.ErrPrintln("error: unknown command:", commandAndArgs[0])
	printUsage(o, commands)

	return 1
}

func printUsage(o *IO, commands []*command) {
	o.Println("Usage: bspc <command> [flags]")
	o.Println()
	o.Println("Commands:")

	for _, cmd := range commands {
		o.Println(fmt.Sprintf("  %-28s %s", cmd.name+" "+cmd.args, cmd.short))
	}

	o.Println()
	o.Println("Run 'bspc <command> --help' for command details.")
}
