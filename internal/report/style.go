package report

import "github.com/nozo-moto/connwatch/pkg/types"

// Color names one palette entry for both outputs: Name is what tview and
// tcell understand, ANSI is the terminal colour index lipgloss renders.
type Color struct {
	Name string
	ANSI string
}

var (
	ColorGreen  = Color{Name: "green", ANSI: "2"}
	ColorYellow = Color{Name: "yellow", ANSI: "3"}
	ColorRed    = Color{Name: "red", ANSI: "1"}
	ColorBlue   = Color{Name: "blue", ANSI: "4"}
	ColorGray   = Color{Name: "gray", ANSI: "8"}
	ColorWhite  = Color{Name: "white", ANSI: "7"}
)

// StateColor is the colour used for a connection state in every
// interactive output.
func StateColor(state types.ConnState) Color {
	switch state {
	case types.StateEstablished:
		return ColorGreen
	case types.StateTimeWait:
		return ColorYellow
	case types.StateCloseWait:
		return ColorRed
	case types.StateListen:
		return ColorBlue
	default:
		return ColorWhite
	}
}

// VerdictColor highlights suspicious results.
func VerdictColor(v types.Verdict) Color {
	switch v {
	case types.VerdictSuspicious:
		return ColorRed
	case types.VerdictBenign:
		return ColorGreen
	default:
		return ColorGray
	}
}
