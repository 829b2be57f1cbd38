package cli

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/peterh/liner"

	"github.com/drbh/bspc"
	"github.com/drbh/bspc/format"
)

// shellCmd returns the shell command, an interactive query prompt for
// repeated lookups against one file.
func shellCmd() *command {
	c := newCommand(&command{
		name:       "shell",
		args:       "<path> [flags]",
		short:      "Interactive query shell",
		withConfig: true,
		long: "Open a .bspc file and query it interactively.\n" +
			"Commands: get <row> <col>, row <row>, col <col>, range <a:b>,\n" +
			"label row|col <i>, info, help, quit.",
	})

	c.exec = func(_ context.Context, o *IO, path string, cfg bspc.ChunkConfig) error {
		return runShell(o, path, cfg)
	}

	return c
}

// historyFile returns the path to the shell history file.
func historyFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	return filepath.Join(home, ".bspc_history")
}

func runShell(o *IO, path string, cfg bspc.ChunkConfig) error {
	m, err := bspc.OpenChunked(path, cfg)
	if err != nil {
		return err
	}

	defer func() { _ = m.Close() }()

	line := liner.NewLiner()
	defer line.Close()

	line.SetCtrlCAborts(true)
	line.SetCompleter(func(prefix string) []string {
		var matches []string

		for _, cmd := range []string{"get ", "row ", "col ", "range ", "label ", "info", "help", "quit"} {
			if strings.HasPrefix(cmd, strings.ToLower(prefix)) {
				matches = append(matches, cmd)
			}
		}

		return matches
	})

	if f, err := os.Open(historyFile()); err == nil {
		_, _ = line.ReadHistory(f)
		_ = f.Close()
	}

	nrows, ncols := m.Dimensions()
	o.Printf("bspc shell: %s (%dx%d, %d nnz, %s)\n", path, nrows, ncols, m.Nnz(), m.Matrix().DataType())
	o.Println("Type 'help' for available commands.")

	for {
		input, err := line.Prompt("bspc> ")
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
				break
			}

			return err
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}

		line.AppendHistory(input)

		if done := shellDispatch(o, m, input); done {
			break
		}
	}

	saveHistory(line)

	return nil
}

func saveHistory(line *liner.State) {
	path := historyFile()
	if path == "" {
		return
	}

	if f, err := os.Create(path); err == nil {
		_, _ = line.WriteHistory(f)
		_ = f.Close()
	}
}

// shellDispatch executes one shell line. Errors are printed, not
// returned: a bad query should not end the session.
func shellDispatch(o *IO, m *bspc.ChunkedMatrix, input string) (done bool) {
	parts := strings.Fields(input)
	cmd := strings.ToLower(parts[0])
	args := parts[1:]

	report := func(err error) {
		if err != nil {
			o.ErrPrintln("error:", err)
		}
	}

	switch cmd {
	case "quit", "exit", "q":
		return true

	case "help", "?":
		o.Println("  get <row> <col>    print one element")
		o.Println("  row <row>          print a row's stored elements")
		o.Println("  col <col>          print a column's stored elements")
		o.Println("  range <a:b>        print stored elements of a row range")
		o.Println("  label row|col <i>  print a label")
		o.Println("  info               print matrix metadata")
		o.Println("  quit               leave the shell")

	case "get":
		row, col, err := parseTwoIndices(args)
		if err != nil {
			report(err)

			return false
		}

		report(queryPoint(o, m, row, col))

	case "row":
		row, err := parseOneIndex(args)
		if err != nil {
			report(err)

			return false
		}

		report(queryRow(o, m, row))

	case "col":
		col, err := parseOneIndex(args)
		if err != nil {
			report(err)

			return false
		}

		report(queryCol(o, m, col))

	case "range":
		if len(args) != 1 {
			report(errors.New("usage: range <start:end>"))

			return false
		}

		report(queryRange(o, m, args[0], ""))

	case "label":
		report(shellLabel(o, m, args))

	case "info":
		nrows, ncols := m.Dimensions()
		o.Printf("%dx%d, %d nnz, %s, %d bloom chunks\n",
			nrows, ncols, m.Nnz(), m.Matrix().DataType(), m.Matrix().BloomIndex().NumChunks())

	default:
		o.Printf("unknown command %q (type 'help')\n", cmd)
	}

	return false
}

func shellLabel(o *IO, m *bspc.ChunkedMatrix, args []string) error {
	if len(args) != 2 {
		return errors.New("usage: label row|col <index>")
	}

	i, err := strconv.ParseUint(args[1], 10, 64)
	if err != nil {
		return format.ErrInvalidRange
	}

	var label []byte

	switch args[0] {
	case "row":
		label, err = m.RowLabel(i)
	case "col":
		label, err = m.ColLabel(i)
	default:
		return errors.New("usage: label row|col <index>")
	}

	if err != nil {
		return err
	}

	o.Printf("%s label %d = %s\n", args[0], i, formatLabel(label))

	return nil
}

func parseOneIndex(args []string) (uint64, error) {
	if len(args) != 1 {
		return 0, errors.New("expected one index")
	}

	n, err := strconv.ParseUint(args[0], 10, 64)
	if err != nil {
		return 0, format.ErrInvalidRange
	}

	return n, nil
}

func parseTwoIndices(args []string) (uint64, uint64, error) {
	if len(args) != 2 {
		return 0, 0, errors.New("expected <row> <col>")
	}

	row, err := strconv.ParseUint(args[0], 10, 64)
	if err != nil {
		return 0, 0, format.ErrInvalidRange
	}

	col, err := strconv.ParseUint(args[1], 10, 64)
	if err != nil {
		return 0, 0, format.ErrInvalidRange
	}

	return row, col, nil
}
