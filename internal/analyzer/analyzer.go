// Package analyzer turns connection records into analysis results. Each
// record goes through the same small steps on its own: classify, enrich,
// annotate, format.
package analyzer

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/nozo-moto/connwatch/internal/errors"
	"github.com/nozo-moto/connwatch/internal/security"
	"github.com/nozo-moto/connwatch/pkg/types"
)

// Annotator produces a free-text assessment for a prompt.
type Annotator interface {
	Annotate(ctx context.Context, prompt string) (string, error)
}

// Enricher adds lookups about the remote peer. A miss is not an error.
type Enricher interface {
	Enrich(ctx context.Context, rec types.ConnectionRecord, e *types.Enrichment) error
}

type Analyzer struct {
	detector  *security.Detector
	enrichers []Enricher
	annotator Annotator
	timeout   time.Duration
}

type Option func(*Analyzer)

// WithAnnotator asks ann about every record. timeout bounds each call; zero
// means no bound beyond ctx.
func WithAnnotator(ann Annotator, timeout time.Duration) Option {
	return func(a *Analyzer) {
		a.annotator = ann
		a.timeout = timeout
	}
}

func WithEnrichers(enrichers ...Enricher) Option {
	return func(a *Analyzer) {
		a.enrichers = append(a.enrichers, enrichers...)
	}
}

func New(detector *security.Detector, opts ...Option) *Analyzer {
	a := &Analyzer{detector: detector}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Analyze returns one result per record, in input order. The first failing
// record aborts the run and no results are returned.
func (a *Analyzer) Analyze(ctx context.Context, records []types.ConnectionRecord) ([]types.AnalysisResult, error) {
	results := make([]types.AnalysisResult, 0, len(records))
	for i, rec := range records {
		res, err := a.analyzeOne(ctx, rec)
		if err != nil {
			err = errors.Wrapf(err, errors.KindAnalysis, "failed to analyze %s -> %s", rec.Local(), rec.Remote())
			return nil, errors.Attr(err, "index", i)
		}
		results = append(results, res)
	}
	slog.Debug("Analyzed connections", "count", len(results), "ai", a.annotator != nil)
	return results, nil
}

func (a *Analyzer) analyzeOne(ctx context.Context, rec types.ConnectionRecord) (types.AnalysisResult, error) {
	res := types.AnalysisResult{Record: rec}
	res.Findings, res.Verdict = classify(a.detector, rec)

	for _, enr := range a.enrichers {
		if err := enr.Enrich(ctx, rec, &res.Enrichment); err != nil {
			slog.Debug("Enrichment lookup failed", "remote", rec.RemoteAddress, "error", err)
		}
	}

	if a.annotator == nil {
		res.Annotation = describe(res.Findings)
		return res, nil
	}

	text, err := a.annotate(ctx, BuildPrompt(rec, res.Findings, res.Enrichment))
	if err != nil {
		return types.AnalysisResult{}, err
	}
	res.Annotation = formatAnnotation(text)
	res.Verdict = escalate(res.Verdict, parseVerdict(res.Annotation))
	return res, nil
}

func (a *Analyzer) annotate(ctx context.Context, prompt string) (string, error) {
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}
	return a.annotator.Annotate(ctx, prompt)
}

func classify(d *security.Detector, rec types.ConnectionRecord) ([]types.Finding, types.Verdict) {
	findings := d.Classify(rec)
	return findings, security.Verdict(findings)
}

func describe(findings []types.Finding) string {
	if len(findings) == 0 {
		return "No findings"
	}
	parts := make([]string, 0, len(findings))
	for _, f := range findings {
		parts = append(parts, f.Description)
	}
	return strings.Join(parts, "; ")
}

// formatAnnotation collapses model output onto a single line.
func formatAnnotation(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// parseVerdict reads a leading BENIGN or SUSPICIOUS from the model's answer.
func parseVerdict(text string) types.Verdict {
	word := strings.ToUpper(strings.TrimLeft(text, " *#"))
	switch {
	case strings.HasPrefix(word, string(types.VerdictSuspicious)):
		return types.VerdictSuspicious
	case strings.HasPrefix(word, string(types.VerdictBenign)):
		return types.VerdictBenign
	default:
		return types.VerdictUnknown
	}
}

// escalate never lowers the rule-based verdict.
func escalate(rules, model types.Verdict) types.Verdict {
	if model == types.VerdictSuspicious {
		return types.VerdictSuspicious
	}
	return rules
}
