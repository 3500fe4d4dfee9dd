package main

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/nozo-moto/connwatch/internal/analyzer"
	"github.com/nozo-moto/connwatch/internal/collector"
	"github.com/nozo-moto/connwatch/internal/config"
	"github.com/nozo-moto/connwatch/internal/errors"
	"github.com/nozo-moto/connwatch/internal/logging"
	"github.com/nozo-moto/connwatch/internal/report"
	"github.com/nozo-moto/connwatch/internal/security"
	"github.com/nozo-moto/connwatch/internal/supervisor"
	"github.com/nozo-moto/connwatch/internal/ui"
)

// deps holds everything runCheck takes from the process so tests can swap
// the OS-facing pieces.
type deps struct {
	stdout    io.Writer
	stderr    io.Writer
	tty       *os.File
	lookupEnv func(string) (string, bool)
	watcher   func() supervisor.Watcher
	host      func() supervisor.HostProbe
}

func defaultDeps() deps {
	return deps{
		stdout:    os.Stdout,
		stderr:    os.Stderr,
		tty:       os.Stdout,
		lookupEnv: os.LookupEnv,
		watcher: func() supervisor.Watcher {
			return collector.NewNetworkCollector(collector.NewProcessResolver())
		},
		host: func() supervisor.HostProbe {
			return collector.NewSystemCollector()
		},
	}
}

func runCheck(ctx context.Context, cfg *config.Config, d deps) error {
	rep, err := buildReporter(cfg, d)
	if err != nil {
		return err
	}

	logCloser, err := logging.Setup(cfg.LogFile, d.stderr, d.lookupEnv)
	if err != nil {
		return errors.Wrap(err, errors.KindConfig, "failed to set up logging")
	}
	defer logCloser.Close()

	an, closers, err := buildAnalyzer(cfg)
	for _, c := range closers {
		defer c.Close()
	}
	if err != nil {
		return err
	}

	opts := []supervisor.Option{supervisor.WithHostProbe(d.host())}
	if cfg.MetricsFile != "" {
		opts = append(opts, supervisor.WithSinks(report.NewMetricsWriter(cfg.MetricsFile)))
	}

	slog.Info("Starting IPv4 connections check", "report_type", cfg.ReportType, "ai", cfg.Analysis.AI)
	m := supervisor.NewManager(d.watcher(), an, rep, opts...)
	return m.Run(ctx)
}

func buildAnalyzer(cfg *config.Config) (*analyzer.Analyzer, []io.Closer, error) {
	var (
		opts    []analyzer.Option
		closers []io.Closer
	)

	if cfg.Enrich.ReverseDNS {
		enr, err := analyzer.NewDNSEnricher(cfg.Enrich.DNSServer, cfg.Enrich.DNSTimeout)
		if err != nil {
			return nil, closers, errors.Wrap(err, errors.KindConfig, "failed to set up reverse DNS")
		}
		opts = append(opts, analyzer.WithEnrichers(enr))
	}
	if cfg.Enrich.GeoIPDatabase != "" {
		enr, err := analyzer.NewGeoIPEnricher(cfg.Enrich.GeoIPDatabase)
		if err != nil {
			return nil, closers, errors.Wrap(err, errors.KindConfig, "failed to set up GeoIP")
		}
		closers = append(closers, enr)
		opts = append(opts, analyzer.WithEnrichers(enr))
	}
	if cfg.Analysis.AI {
		ann := analyzer.NewOpenAIAnnotator(cfg.Analysis.APIKey, cfg.Analysis.Model, cfg.Analysis.BaseURL)
		opts = append(opts, analyzer.WithAnnotator(ann, cfg.Analysis.Timeout))
	}

	return analyzer.New(security.NewDetector(cfg.Analysis.WatchPorts), opts...), closers, nil
}

// buildReporter fails before any stage runs when the chosen report cannot
// be shown.
func buildReporter(cfg *config.Config, d deps) (supervisor.Reporter, error) {
	switch cfg.ReportType {
	case config.ReportHTML:
		return report.NewHTMLReporter(cfg.Output), nil
	case config.ReportTUI:
		if err := ui.CheckTerminal(d.tty); err != nil {
			return nil, err
		}
		return ui.NewViewer(d.tty), nil
	default:
		return report.NewConsoleReporter(d.stdout), nil
	}
}
