package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/drbh/bspc"
	"github.com/drbh/bspc/format"
)

var errNoQuerySelector = errors.New("provide --row, --col, --row-range, or --col-range")

// queryCmd returns the query command.
func queryCmd() *command {
	c := newCommand(&command{
		name:       "query",
		args:       "<path> [flags]",
		short:      "Query matrix elements",
		withConfig: true,
		long: "Query a .bspc file. --row and --col together fetch one element;\n" +
			"--row or --col alone print a whole row or column; --row-range and\n" +
			"--col-range print every stored element of the window.",
	})

	c.flags.Uint64("row", 0, "Row to query")
	c.flags.Uint64("col", 0, "Column to query")
	c.flags.String("row-range", "", "Row range as start:end")
	c.flags.String("col-range", "", "Column range as start:end")

	c.exec = func(_ context.Context, o *IO, path string, cfg bspc.ChunkConfig) error {
		m, err := bspc.OpenChunked(path, cfg)
		if err != nil {
			return err
		}

		defer func() { _ = m.Close() }()

		rowRange, _ := c.flags.GetString("row-range")
		colRange, _ := c.flags.GetString("col-range")

		switch {
		case rowRange != "" || colRange != "":
			return queryRange(o, m, rowRange, colRange)

		case c.flags.Changed("row") && c.flags.Changed("col"):
			row, _ := c.flags.GetUint64("row")
			col, _ := c.flags.GetUint64("col")

			return queryPoint(o, m, row, col)

		case c.flags.Changed("row"):
			row, _ := c.flags.GetUint64("row")

			return queryRow(o, m, row)

		case c.flags.Changed("col"):
			col, _ := c.flags.GetUint64("col")

			return queryCol(o, m, col)

		default:
			return errNoQuerySelector
		}
	}

	return c
}

func queryPoint(o *IO, m *bspc.ChunkedMatrix, row, col uint64) error {
	v, ok, err := m.GetElement(row, col)
	if err != nil {
		return err
	}

	if !ok {
		o.Printf("(%d, %d) = none\n", row, col)

		return nil
	}

	o.Printf("(%d, %d) = %s\n", row, col, v)

	return nil
}

func queryRow(o *IO, m *bspc.ChunkedMatrix, row uint64) error {
	count := 0

	err := m.RowView(row, func(col uint64, v bspc.Value) bool {
		o.Printf("(%d, %d) = %s\n", row, col, v)
		count++

		return true
	})
	if err != nil {
		return err
	}

	o.Printf("%d stored elements in row %d\n", count, row)

	return nil
}

func queryCol(o *IO, m *bspc.ChunkedMatrix, col uint64) error {
	count := 0

	err := m.ColView(col, func(row uint64, v bspc.Value) bool {
		o.Printf("(%d, %d) = %s\n", row, col, v)
		count++

		return true
	})
	if err != nil {
		return err
	}

	o.Printf("%d stored elements in column %d\n", count, col)

	return nil
}

func queryRange(o *IO, m *bspc.ChunkedMatrix, rowRange, colRange string) error {
	nrows, ncols := m.Dimensions()

	rowStart, rowEnd := uint64(0), nrows

	var err error

	if rowRange != "" {
		rowStart, rowEnd, err = format.ParseRange(rowRange)
		if err != nil {
			return err
		}
	}

	colStart, colEnd := uint64(0), ncols
	if colRange != "" {
		colStart, colEnd, err = format.ParseRange(colRange)
		if err != nil {
			return err
		}
	}

	count := 0

	err = m.RowRangeView(rowStart, rowEnd, func(row, col uint64, v bspc.Value) bool {
		if col >= colStart && col < colEnd {
			o.Printf("(%d, %d) = %s\n", row, col, v)
			count++
		}

		return true
	})
	if err != nil {
		return err
	}

	o.Printf("%d stored elements in rows [%d, %d) cols [%d, %d)\n",
		count, rowStart, rowEnd, colStart, colEnd)

	return nil
}

// formatLabel renders a stride-width label for display.
func formatLabel(label []byte) string {
	return fmt.Sprintf("%q", bspc.TrimLabel(label))
}
