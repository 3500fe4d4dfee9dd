package report

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/nozo-moto/connwatch/internal/errors"
	"github.com/nozo-moto/connwatch/pkg/types"
)

// ConsoleReporter prints one line per result. Colours are only emitted when
// w is a terminal that supports them.
type ConsoleReporter struct {
	w        io.Writer
	renderer *lipgloss.Renderer
}

func NewConsoleReporter(w io.Writer) *ConsoleReporter {
	return &ConsoleReporter{w: w, renderer: lipgloss.NewRenderer(w)}
}

func (c *ConsoleReporter) Report(_ context.Context, rep *types.Report) error {
	if _, err := io.WriteString(c.w, c.Render(rep)); err != nil {
		return errors.Wrap(err, errors.KindIO, "failed to write console report")
	}
	return nil
}

// Render returns the full console text for rep.
func (c *ConsoleReporter) Render(rep *types.Report) string {
	var b strings.Builder
	bold := c.renderer.NewStyle().Bold(true)

	b.WriteString(bold.Render(fmt.Sprintf("IPv4 connections on %s (%s)", hostLabel(rep.Host), rep.GeneratedAt.UTC().Format("2006-01-02 15:04:05 MST"))))
	b.WriteString("\n")

	for _, res := range rep.Results {
		b.WriteString(c.line(res))
		b.WriteString("\n")
	}

	counts := rep.CountByVerdict()
	fmt.Fprintf(&b, "%d connections, %d suspicious\n", len(rep.Results), counts[types.VerdictSuspicious])
	return b.String()
}

func (c *ConsoleReporter) line(res types.AnalysisResult) string {
	state := c.style(StateColor(res.Record.State))
	verdict := c.style(VerdictColor(res.Verdict)).Bold(true)

	text := state.Render(SanitizeTerminal(res.Record.String())) +
		" => " + verdict.Render(res.Summary())
	if peer := peerLabel(res.Enrichment); peer != "" {
		text += " {" + peer + "}"
	}
	if res.Annotation != "" {
		text += ": " + SanitizeTerminal(res.Annotation)
	}
	return text
}

func (c *ConsoleReporter) style(color Color) lipgloss.Style {
	return c.renderer.NewStyle().Foreground(lipgloss.Color(color.ANSI))
}

func hostLabel(h types.HostSnapshot) string {
	if h.Hostname == "" {
		return "localhost"
	}
	return h.Hostname
}

func peerLabel(e types.Enrichment) string {
	parts := make([]string, 0, 2)
	if e.ReverseDNS != "" {
		parts = append(parts, e.ReverseDNS)
	}
	if e.Country != "" {
		parts = append(parts, e.Country)
	}
	return strings.Join(parts, ", ")
}
