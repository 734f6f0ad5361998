package render

import (
	"context"
	"fmt"
	"sync"

	ui "github.com/gizak/termui/v3"
	"github.com/gizak/termui/v3/widgets"

	"github.com/signalsfoundry/ride-network-sim/internal/view"
)

// screen is the slice of termui the dashboard uses.
type screen interface {
	Dimensions() (int, int)
	Render(items ...ui.Drawable)
	Clear()
	Events() <-chan ui.Event
	Close()
}

type termScreen struct{}

func (termScreen) Dimensions() (int, int)      { return ui.TerminalDimensions() }
func (termScreen) Render(items ...ui.Drawable) { ui.Render(items...) }
func (termScreen) Clear()                      { ui.Clear() }
func (termScreen) Events() <-chan ui.Event     { return ui.PollEvents() }
func (termScreen) Close()                      { ui.Close() }

// DashboardRenderer draws the tables as a full-screen termui dashboard.
// Render runs on the tick goroutine and Watch on its own, so both take mu
// before touching widgets or the terminal.
type DashboardRenderer struct {
	mu     sync.Mutex
	scr    screen
	closed bool

	header     *widgets.Paragraph
	stations   *widgets.Table
	drivers    *widgets.Table
	passengers *widgets.Table
}

// NewDashboardRenderer initialises the terminal. Close must be called to
// restore it.
func NewDashboardRenderer() (*DashboardRenderer, error) {
	if err := ui.Init(); err != nil {
		return nil, fmt.Errorf("init termui: %w", err)
	}
	return newDashboard(termScreen{}), nil
}

func newDashboard(scr screen) *DashboardRenderer {
	d := &DashboardRenderer{
		scr:        scr,
		header:     widgets.NewParagraph(),
		stations:   newTable("Base stations"),
		drivers:    newTable("Drivers"),
		passengers: newTable("Passengers"),
	}
	d.header.Title = "ride-network-sim"
	d.header.Text = "loading"
	d.layout()
	d.scr.Render(d.header)
	return d
}

func newTable(title string) *widgets.Table {
	t := widgets.NewTable()
	t.Title = title
	t.TextStyle = ui.NewStyle(ui.ColorWhite)
	t.RowSeparator = false
	t.FillRow = true
	t.RowStyles[0] = ui.NewStyle(ui.ColorYellow, ui.ColorClear, ui.ModifierBold)
	return t
}

func (d *DashboardRenderer) layout() {
	w, _ := d.scr.Dimensions()
	d.header.SetRect(0, 0, w, 3)
	d.stations.SetRect(0, 3, w, 11)
	d.drivers.SetRect(0, 11, w, 19)
	d.passengers.SetRect(0, 19, w, 32)
}

func (d *DashboardRenderer) Render(s view.Snapshot) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.header.Text = fmt.Sprintf("tick %d  %s  (q to quit)", s.Tick, s.Time.Format("15:04:05"))
	d.stations.Rows = s.BaseStationTable()
	d.drivers.Rows = s.DriverTable()
	d.passengers.Rows = s.PassengerTable()
	d.scr.Render(d.header, d.stations, d.drivers, d.passengers)
	return nil
}

func (d *DashboardRenderer) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.closed {
		d.closed = true
		d.scr.Close()
	}
	return nil
}

// Watch polls terminal events until ctx is done. The terminal is in raw mode
// so an interrupt arrives as a key event; q or <C-c> calls cancel.
func (d *DashboardRenderer) Watch(ctx context.Context, cancel context.CancelFunc) {
	events := d.scr.Events()
	for {
		select {
		case <-ctx.Done():
			return
		case e := <-events:
			switch e.ID {
			case "q", "<C-c>":
				cancel()
				return
			case "<Resize>":
				d.resize()
			}
		}
	}
}

func (d *DashboardRenderer) resize() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	d.layout()
	d.scr.Clear()
	d.scr.Render(d.header, d.stations, d.drivers, d.passengers)
}
