// Package supervisor runs one Watch -> Analyze -> Report pass.
package supervisor

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/nozo-moto/connwatch/pkg/types"
)

type Watcher interface {
	Watch(ctx context.Context) ([]types.ConnectionRecord, error)
}

type Analyzer interface {
	Analyze(ctx context.Context, records []types.ConnectionRecord) ([]types.AnalysisResult, error)
}

type Reporter interface {
	Report(ctx context.Context, rep *types.Report) error
}

// HostProbe describes the machine for the report header.
type HostProbe interface {
	Snapshot(ctx context.Context) types.HostSnapshot
}

type Manager struct {
	watcher  Watcher
	analyzer Analyzer
	reporter Reporter

	host  HostProbe
	sinks []Reporter

	now   func() time.Time
	newID func() string
}

type Option func(*Manager)

func WithHostProbe(p HostProbe) Option {
	return func(m *Manager) { m.host = p }
}

// WithSinks adds reporters that run after the main one succeeded.
func WithSinks(sinks ...Reporter) Option {
	return func(m *Manager) { m.sinks = append(m.sinks, sinks...) }
}

func NewManager(w Watcher, a Analyzer, r Reporter, opts ...Option) *Manager {
	m := &Manager{
		watcher:  w,
		analyzer: a,
		reporter: r,
		now:      time.Now,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Run executes each stage once, in order. A stage error is returned as is
// and no later stage runs.
func (m *Manager) Run(ctx context.Context) error {
	runID := m.newID()
	log := slog.With("run_id", runID)
	start := m.now()

	records, err := m.watcher.Watch(ctx)
	if err != nil {
		return err
	}
	log.Info("Watch finished", "connections", len(records))

	results, err := m.analyzer.Analyze(ctx, records)
	if err != nil {
		return err
	}
	log.Info("Analyze finished", "results", len(results))

	rep := &types.Report{
		RunID:       runID,
		GeneratedAt: m.now(),
		Results:     results,
	}
	if m.host != nil {
		rep.Host = m.host.Snapshot(ctx)
	}
	rep.Host.TotalConnections = len(records)

	if err := m.reporter.Report(ctx, rep); err != nil {
		return err
	}
	for _, sink := range m.sinks {
		if err := sink.Report(ctx, rep); err != nil {
			return err
		}
	}

	log.Info("Report finished", "elapsed", m.now().Sub(start))
	return nil
}
