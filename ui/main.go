package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gizak/termui/v3"
	"github.com/gizak/termui/v3/widgets"
	. "nyiyui.ca/hato/tegata"
	"nyiyui.ca/hato/tegata/export"
	"nyiyui.ca/hato/tegata/store"
	"nyiyui.ca/hato/tegata/track"
)

// ErrQuit is returned by Main when the user asked to quit.
var ErrQuit = errors.New("ui: quit")

// Main shows the store's state in the terminal until ctx is done or q is pressed.
func Main(ctx context.Context, st *store.Store, exportConf export.Conf) error {
	err := termui.Init()
	if err != nil {
		return fmt.Errorf("termui init: %w", err)
	}
	defer termui.Close()

	w, h := termui.TerminalDimensions()
	state := widgets.NewParagraph()
	state.Title = "tegata"
	state.Text = "waiting for touches"
	state.SetRect(0, 0, w, h)
	termui.Render(state)

	ch := make(chan State, 16)
	st.Subscribe("ui", ch)
	defer st.Unsubscribe(ch)
	events := termui.PollEvents()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case e := <-events:
			switch e.ID {
			case "q", "<C-c>":
				return ErrQuit
			case "<Resize>":
				payload := e.Payload.(termui.Resize)
				state.SetRect(0, 0, payload.Width, payload.Height)
				termui.Clear()
				termui.Render(state)
			}
		case s := <-ch:
			assocs, err := st.Associations(ctx)
			if err != nil {
				return err
			}
			state.Text = Describe(s, assocs, exportConf)
			termui.Render(state)
		}
	}
}

// Describe summarises s for the terminal.
func Describe(s State, assocs []track.Association, exportConf export.Conf) string {
	b := new(strings.Builder)
	fmt.Fprintf(b, "phase %s", s.Phase)
	if s.Homed() {
		fmt.Fprintf(b, " session %s", s.Session)
	}
	fmt.Fprintf(b, "\ntouches %d\n", len(s.Touches))
	for ti, t := range s.Touches {
		fmt.Fprintf(b, "  t%d %s", ti, t)
		for _, a := range assocs {
			if a.Touch == ti {
				fmt.Fprintf(b, " -> h%d %.1fmm %s", a.Home, a.Distance, a.Result)
			}
		}
		fmt.Fprint(b, "\n")
	}
	if !s.Homed() {
		return b.String()
	}
	fmt.Fprintf(b, "homes %d\n", len(s.Homes))
	for hi, h := range s.Homes {
		fmt.Fprintf(b, "  h%d %s origin (%.2f, %.2f)", hi, h.Point, h.X, exportConf.Pitch-h.Y)
		if h.Adj != nil {
			fmt.Fprintf(b, " adj %s splay %.1f°", h.Adj, export.Splay(h))
		} else {
			fmt.Fprint(b, " adj -")
		}
		fmt.Fprint(b, "\n")
	}
	return b.String()
}
