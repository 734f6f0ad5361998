// Package render draws view snapshots to a terminal.
package render

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/signalsfoundry/ride-network-sim/internal/view"
)

// Renderer draws one snapshot per tick.
type Renderer interface {
	Render(view.Snapshot) error
	Close() error
}

// clearScreen moves the cursor home and erases the display.
const clearScreen = "\x1b[H\x1b[2J"

// TextRenderer writes the three tables as aligned plain text.
type TextRenderer struct {
	w     io.Writer
	clear bool
}

// NewTextRenderer returns a renderer writing to w. When clear is set every
// frame overwrites the previous one.
func NewTextRenderer(w io.Writer, clear bool) *TextRenderer {
	return &TextRenderer{w: w, clear: clear}
}

func (r *TextRenderer) Render(s view.Snapshot) error {
	if r.clear {
		if _, err := io.WriteString(r.w, clearScreen); err != nil {
			return fmt.Errorf("clear screen: %w", err)
		}
	}
	tables := [][][]string{s.BaseStationTable(), s.DriverTable(), s.PassengerTable()}
	for i, rows := range tables {
		if i > 0 {
			if _, err := io.WriteString(r.w, "\n"); err != nil {
				return err
			}
		}
		if err := writeTable(r.w, rows); err != nil {
			return err
		}
	}
	return nil
}

func (r *TextRenderer) Close() error { return nil }

func writeTable(w io.Writer, rows [][]string) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, row := range rows {
		for i, cell := range row {
			if i > 0 {
				fmt.Fprint(tw, "\t")
			}
			fmt.Fprint(tw, cell)
		}
		fmt.Fprint(tw, "\n")
	}
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("write table: %w", err)
	}
	return nil
}

// Discard renders nothing. Used with --ui=none.
type Discard struct{}

func (Discard) Render(view.Snapshot) error { return nil }
func (Discard) Close() error               { return nil }
