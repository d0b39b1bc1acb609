package domain

import "fmt"

// Window is a bounded or unbounded sub-period over which metrics are
// recomputed from one underlying simulation without re-running it.
// Years == 0 means the unbounded full-history window.
type Window struct {
	Label string
	Years int
}

// Standard report windows.
var (
	Window1Y  = Window{Label: "1Y", Years: 1}
	Window3Y  = Window{Label: "3Y", Years: 3}
	Window5Y  = Window{Label: "5Y", Years: 5}
	WindowAll = Window{Label: "ALL", Years: 0}
)

// Bounded reports whether the window has a fixed nominal length.
func (w Window) Bounded() bool { return w.Years > 0 }

// ParseWindow maps a label to its standard window.
func ParseWindow(label string) (Window, error) {
	switch label {
	case Window1Y.Label:
		return Window1Y, nil
	case Window3Y.Label:
		return Window3Y, nil
	case Window5Y.Label:
		return Window5Y, nil
	case WindowAll.Label:
		return WindowAll, nil
	}
	return Window{}, fmt.Errorf("unknown window label %q", label)
}
