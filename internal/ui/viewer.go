package ui

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/mattn/go-isatty"
	"github.com/rivo/tview"

	"github.com/nozo-moto/connwatch/internal/errors"
	"github.com/nozo-moto/connwatch/internal/report"
	"github.com/nozo-moto/connwatch/pkg/types"
)

var tableHeaders = []string{"Local", "Remote", "State", "PID", "Process", "Verdict"}

// Viewer shows a report as an interactive table. Selecting a row shows its
// findings and annotation below the table.
type Viewer struct {
	app   *tview.Application
	tty   *os.File
	rep   *types.Report
	pages *tview.Pages

	header  *tview.TextView
	table   *tview.Table
	details *tview.TextView
}

func NewViewer(tty *os.File) *Viewer {
	return &Viewer{
		app:   tview.NewApplication(),
		tty:   tty,
		pages: tview.NewPages(),
	}
}

// CheckTerminal reports an IO error unless tty is an interactive terminal.
func CheckTerminal(tty *os.File) error {
	if tty != nil {
		fd := tty.Fd()
		if isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd) {
			return nil
		}
	}
	return errors.New(errors.KindIO, "Tui report needs an interactive terminal; use --report_type Console or Html")
}

func (v *Viewer) Report(_ context.Context, rep *types.Report) error {
	if err := CheckTerminal(v.tty); err != nil {
		return err
	}

	v.rep = rep
	v.setupUI()
	if err := v.app.Run(); err != nil {
		return errors.Wrap(err, errors.KindIO, "failed to run terminal UI")
	}
	return nil
}

func (v *Viewer) setupUI() {
	v.header = tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignCenter).
		SetText(headerText(v.rep))
	v.header.SetBorder(true).
		SetTitle(" connwatch ")

	v.table = BuildTable(v.rep)
	v.table.SetBorder(true).
		SetTitle(" IPv4 Connections ")

	v.details = tview.NewTextView().
		SetDynamicColors(true).
		SetWordWrap(true)
	v.details.SetBorder(true).
		SetTitle(" Details ")

	v.table.SetSelectionChangedFunc(func(row, _ int) {
		v.details.SetText(DetailText(v.rep, row-1))
	})
	if len(v.rep.Results) > 0 {
		v.table.Select(1, 0)
		v.details.SetText(DetailText(v.rep, 0))
	}

	mainFlex := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(v.header, 3, 1, false).
		AddItem(v.table, 0, 3, true).
		AddItem(v.details, 0, 1, false)

	v.pages.AddPage("main", mainFlex, true, true)

	v.app.SetRoot(v.pages, true).
		SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
			switch event.Key() {
			case tcell.KeyEsc:
				v.app.Stop()
				return nil
			case tcell.KeyRune:
				if event.Rune() == 'q' {
					v.app.Stop()
					return nil
				}
			}
			return event
		})
}

// BuildTable lays results out one per row below a fixed header row.
func BuildTable(rep *types.Report) *tview.Table {
	table := tview.NewTable().
		SetFixed(1, 0).
		SetSelectable(true, false)

	for col, h := range tableHeaders {
		table.SetCell(0, col, tview.NewTableCell(h).
			SetTextColor(tcell.ColorYellow).
			SetSelectable(false))
	}

	for i, res := range rep.Results {
		rec := res.Record
		stateColor := tcell.GetColor(report.StateColor(rec.State).Name)
		cells := []string{
			rec.Local(),
			rec.Remote(),
			string(rec.State),
			strconv.Itoa(int(rec.PID)),
			report.SanitizeTerminal(rec.ProcessName),
			string(res.Verdict),
		}
		for col, text := range cells {
			cell := tview.NewTableCell(tview.Escape(text)).SetTextColor(stateColor)
			if col == len(cells)-1 {
				cell.SetTextColor(tcell.GetColor(report.VerdictColor(res.Verdict).Name))
			}
			table.SetCell(i+1, col, cell)
		}
	}
	return table
}

// DetailText describes result i, or nothing for an out-of-range index.
func DetailText(rep *types.Report, i int) string {
	if i < 0 || i >= len(rep.Results) {
		return ""
	}
	res := rep.Results[i]

	var b strings.Builder
	fmt.Fprintf(&b, "[yellow]%s[white]\n", tview.Escape(report.SanitizeTerminal(res.Record.String())))
	if res.Enrichment.ReverseDNS != "" || res.Enrichment.Country != "" {
		fmt.Fprintf(&b, "Peer: %s %s\n", tview.Escape(res.Enrichment.ReverseDNS), tview.Escape(res.Enrichment.Country))
	}
	for _, f := range res.Findings {
		fmt.Fprintf(&b, "[%s]%s[white] %s: %s\n", severityColor(f.Severity), f.Severity, f.Rule, tview.Escape(f.Description))
	}
	if res.Annotation != "" {
		fmt.Fprintf(&b, "\n%s", tview.Escape(report.SanitizeTerminal(res.Annotation)))
	}
	return b.String()
}

func headerText(rep *types.Report) string {
	counts := rep.CountByVerdict()
	host := rep.Host.Hostname
	if host == "" {
		host = "localhost"
	}
	return fmt.Sprintf("[cyan]%s[white]  %s  %d connections, [red]%d suspicious[white]  (q to quit)",
		tview.Escape(host), rep.GeneratedAt.Format("2006-01-02 15:04:05"),
		len(rep.Results), counts[types.VerdictSuspicious])
}

func severityColor(s types.Severity) string {
	switch s {
	case types.SeverityCritical:
		return "red"
	case types.SeverityWarning:
		return "yellow"
	default:
		return "gray"
	}
}
