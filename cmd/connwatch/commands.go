package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nozo-moto/connwatch/internal/config"
	"github.com/nozo-moto/connwatch/internal/errors"
)

type checkFlags struct {
	configPath  string
	reportType  string
	output      string
	logFile     string
	metricsFile string
	ai          bool
	model       string
	resolve     bool
	dnsServer   string
	geoIPDB     string
}

func newRootCmd(d deps) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "connwatch",
		Short:         "Inspect the IPv4 connections of this host",
		Long:          "connwatch lists the host's IPv4 TCP connections, classifies each one and reports the result.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.SetOut(d.stdout)
	rootCmd.SetErr(d.stderr)
	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		fmt.Fprintln(cmd.ErrOrStderr(), cmd.UsageString())
		return errors.Wrap(err, errors.KindUsage, "invalid flags")
	})

	rootCmd.AddCommand(newCheckCmd(d), newVersionCmd())
	return rootCmd
}

func newCheckCmd(d deps) *cobra.Command {
	var f checkFlags

	cmd := &cobra.Command{
		Use:   "ip4-connections-check",
		Short: "Runs IPv4 connection checks and prints a report",
		Long: `Runs IPv4 connection checks: lists TCP connections, classifies them
and writes a report.

report_type:
  - Console (default) prints one line per connection
  - Html writes a static HTML file to --output
  - Tui opens an interactive table`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := resolveConfig(cmd, f, d)
			if err != nil {
				if errors.GetKind(err) == errors.KindUsage {
					fmt.Fprintln(cmd.ErrOrStderr(), cmd.UsageString())
				}
				return err
			}
			return runCheck(cmd.Context(), cfg, d)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&f.configPath, "config", "", "path to a YAML config file")
	flags.StringVar(&f.reportType, "report_type", config.ReportConsole,
		fmt.Sprintf("type of report, one of: %s", strings.Join(config.ReportTypes, ", ")))
	flags.StringVar(&f.output, "output", config.DefaultHTMLOutput, "HTML report path")
	flags.StringVar(&f.logFile, "log-file", "", "append logs to this file instead of stderr")
	flags.StringVar(&f.metricsFile, "metrics-file", "", "also write Prometheus textfile metrics here")
	flags.BoolVar(&f.ai, "ai", false, "annotate each connection with the OpenAI API (needs OPENAI_API_KEY)")
	flags.StringVar(&f.model, "model", config.DefaultModel, "OpenAI model used with --ai")
	flags.BoolVar(&f.resolve, "resolve", false, "look up reverse DNS names of remote peers")
	flags.StringVar(&f.dnsServer, "dns-server", "", "DNS server host:port for --resolve (default from /etc/resolv.conf)")
	flags.StringVar(&f.geoIPDB, "geoip-db", "", "MaxMind country database for peer countries")

	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "connwatch %s\n", version)
		},
	}
}

// resolveConfig layers defaults, the YAML file, the environment and the
// flags the user actually set, then validates the result.
func resolveConfig(cmd *cobra.Command, f checkFlags, d deps) (*config.Config, error) {
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnv(d.lookupEnv)

	changed := cmd.Flags().Changed
	if changed("report_type") {
		cfg.ReportType = f.reportType
	}
	if changed("output") {
		cfg.Output = f.output
	}
	if changed("log-file") {
		cfg.LogFile = f.logFile
	}
	if changed("metrics-file") {
		cfg.MetricsFile = f.metricsFile
	}
	if changed("ai") {
		cfg.Analysis.AI = f.ai
	}
	if changed("model") {
		cfg.Analysis.Model = f.model
	}
	if changed("resolve") {
		cfg.Enrich.ReverseDNS = f.resolve
	}
	if changed("dns-server") {
		cfg.Enrich.DNSServer = f.dnsServer
	}
	if changed("geoip-db") {
		cfg.Enrich.GeoIPDatabase = f.geoIPDB
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
