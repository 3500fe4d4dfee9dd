package report

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/nozo-moto/connwatch/internal/errors"
	"github.com/nozo-moto/connwatch/pkg/types"
)

const stylesheet = `body{font-family:monospace;margin:2em}
table{border-collapse:collapse;width:100%}
th,td{border:1px solid #ccc;padding:4px 8px;text-align:left}
th{background:#eee}
tr.suspicious{background:#fdd}
tr.benign{background:#efe}`

var columns = []string{"#", "Protocol", "Local", "Remote", "State", "PID", "Process", "Verdict", "Findings", "Peer", "Annotation"}

// HTMLReporter writes a standalone HTML document to path.
type HTMLReporter struct {
	path string
}

func NewHTMLReporter(path string) *HTMLReporter {
	return &HTMLReporter{path: path}
}

func (h *HTMLReporter) Report(_ context.Context, rep *types.Report) error {
	if err := WriteFile(h.path, BuildDocument(rep)); err != nil {
		return errors.Attr(err, "path", h.path)
	}
	slog.Info("HTML report written", "path", h.path, "results", len(rep.Results))
	return nil
}

// WriteFile renders doc into a temporary file next to path and renames it
// into place, so a failed write never leaves a truncated report behind.
func WriteFile(path string, doc *html.Node) (err error) {
	f, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return errors.Wrap(err, errors.KindIO, "failed to create report file")
	}
	defer func() {
		if err != nil {
			f.Close()
			os.Remove(f.Name())
		}
	}()

	bw := bufio.NewWriter(f)
	if err := Render(bw, doc); err != nil {
		return err
	}
	if err := bw.Flush(); err != nil {
		return errors.Wrap(err, errors.KindIO, "failed to write report file")
	}
	if err := f.Chmod(0o644); err != nil {
		return errors.Wrap(err, errors.KindIO, "failed to set report file mode")
	}
	if err := f.Close(); err != nil {
		return errors.Wrap(err, errors.KindIO, "failed to close report file")
	}
	if err := os.Rename(f.Name(), path); err != nil {
		return errors.Wrap(err, errors.KindIO, "failed to move report file into place")
	}
	return nil
}

// Render serialises doc. Text and attribute values are escaped by the
// html package.
func Render(w io.Writer, doc *html.Node) error {
	if err := html.Render(w, doc); err != nil {
		return errors.Wrap(err, errors.KindIO, "failed to render HTML report")
	}
	return nil
}

// BuildDocument builds the document tree for rep without touching the
// filesystem.
func BuildDocument(rep *types.Report) *html.Node {
	title := fmt.Sprintf("IPv4 connections on %s", hostLabel(rep.Host))

	head := element(atom.Head,
		withAttr(element(atom.Meta), "charset", "utf-8"),
		element(atom.Title, text(title)),
		element(atom.Style, text(stylesheet)),
	)

	body := element(atom.Body,
		element(atom.H1, text(title)),
		withAttr(element(atom.P, text(summaryLine(rep))), "class", "summary"),
		resultsTable(rep.Results),
	)

	doc := &html.Node{Type: html.DocumentNode}
	doc.AppendChild(&html.Node{Type: html.DoctypeNode, Data: "html"})
	doc.AppendChild(withAttr(element(atom.Html, head, body), "lang", "en"))
	return doc
}

func summaryLine(rep *types.Report) string {
	counts := rep.CountByVerdict()
	line := fmt.Sprintf("Run %s generated %s: %d connections, %d suspicious.",
		rep.RunID, rep.GeneratedAt.UTC().Format("2006-01-02 15:04:05 MST"),
		len(rep.Results), counts[types.VerdictSuspicious])
	if rep.Host.OS != "" {
		line += fmt.Sprintf(" Host %s, CPU %.1f%%, memory %.1f%%.", rep.Host.OS, rep.Host.CPUPercent, rep.Host.MemoryPercent)
	}
	return line
}

func resultsTable(results []types.AnalysisResult) *html.Node {
	headRow := element(atom.Tr)
	for _, c := range columns {
		headRow.AppendChild(element(atom.Th, text(c)))
	}

	tbody := element(atom.Tbody)
	for i, res := range results {
		tbody.AppendChild(resultRow(i+1, res))
	}

	return withAttr(element(atom.Table, element(atom.Thead, headRow), tbody), "id", "connections")
}

func resultRow(n int, res types.AnalysisResult) *html.Node {
	rec := res.Record
	findings := ""
	for i, f := range res.Findings {
		if i > 0 {
			findings += ", "
		}
		findings += fmt.Sprintf("%s (%s)", f.Rule, f.Severity)
	}

	cells := []string{
		strconv.Itoa(n),
		rec.Protocol(),
		rec.Local(),
		rec.Remote(),
		string(rec.State),
		strconv.Itoa(int(rec.PID)),
		rec.ProcessDetails,
		string(res.Verdict),
		findings,
		peerLabel(res.Enrichment),
		res.Annotation,
	}

	row := withAttr(element(atom.Tr), "class", verdictClass(res.Verdict))
	for _, c := range cells {
		row.AppendChild(element(atom.Td, text(c)))
	}
	return row
}

func verdictClass(v types.Verdict) string {
	switch v {
	case types.VerdictSuspicious:
		return "suspicious"
	case types.VerdictBenign:
		return "benign"
	default:
		return "unknown"
	}
}

func element(a atom.Atom, children ...*html.Node) *html.Node {
	n := &html.Node{Type: html.ElementNode, DataAtom: a, Data: a.String()}
	for _, c := range children {
		n.AppendChild(c)
	}
	return n
}

func withAttr(n *html.Node, key, val string) *html.Node {
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
	return n
}

func text(s string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: s}
}
