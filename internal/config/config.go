// Package config loads run settings from an optional YAML file, the
// environment and command-line flags, in increasing order of precedence.
package config

import (
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	cwerrors "github.com/nozo-moto/connwatch/internal/errors"
)

const (
	ReportConsole = "Console"
	ReportHTML    = "Html"
	ReportTUI     = "Tui"

	DefaultModel      = "gpt-4o"
	DefaultHTMLOutput = "connections_report.html"
)

// ReportTypes lists the accepted --report_type values.
var ReportTypes = []string{ReportConsole, ReportHTML, ReportTUI}

type Config struct {
	ReportType  string         `yaml:"report_type" validate:"oneof=Console Html Tui"`
	Output      string         `yaml:"output" validate:"required_if=ReportType Html"`
	LogFile     string         `yaml:"log_file"`
	MetricsFile string         `yaml:"metrics_file"`
	Analysis    AnalysisConfig `yaml:"analysis"`
	Enrich      EnrichConfig   `yaml:"enrich"`
}

type AnalysisConfig struct {
	AI      bool          `yaml:"ai"`
	Model   string        `yaml:"model" validate:"required_if=AI true"`
	BaseURL string        `yaml:"base_url" validate:"omitempty,url"`
	Timeout time.Duration `yaml:"timeout" validate:"gte=0"`
	// Ports that mark a connection as critical on either end.
	WatchPorts []uint32 `yaml:"watch_ports"`

	// APIKey is only ever read from the environment.
	APIKey string `yaml:"-"`
}

type EnrichConfig struct {
	ReverseDNS    bool          `yaml:"reverse_dns"`
	DNSServer     string        `yaml:"dns_server" validate:"omitempty,hostname_port"`
	DNSTimeout    time.Duration `yaml:"dns_timeout" validate:"gte=0"`
	GeoIPDatabase string        `yaml:"geoip_db"`
}

func Default() *Config {
	return &Config{
		ReportType: ReportConsole,
		Output:     DefaultHTMLOutput,
		Analysis: AnalysisConfig{
			Model:      DefaultModel,
			Timeout:    time.Minute,
			WatchPorts: []uint32{4444, 1337, 31337, 6667, 9001, 9050, 9150},
		},
		Enrich: EnrichConfig{
			DNSTimeout: 2 * time.Second,
		},
	}
}

// Load returns the defaults overlaid with the YAML file at path. An empty
// path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, cwerrors.Wrapf(err, cwerrors.KindConfig, "failed to read config %s", path)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, cwerrors.Wrapf(err, cwerrors.KindConfig, "failed to parse config %s", path)
	}
	return cfg, nil
}

// ApplyEnv copies the OpenAI settings from env. Lookup is os.LookupEnv in
// production.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup("OPENAI_API_KEY"); ok {
		c.Analysis.APIKey = strings.TrimSpace(v)
	}
	if v, ok := lookup("OPENAI_MODEL"); ok && v != "" {
		c.Analysis.Model = v
	}
	if v, ok := lookup("OPENAI_BASE_URL"); ok && v != "" {
		c.Analysis.BaseURL = v
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate reports a bad report type as a usage error and everything else
// as a config error.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok {
			for _, fe := range verrs {
				if fe.StructField() == "ReportType" {
					return cwerrors.Errorf(cwerrors.KindUsage,
						"report type has to be one of: %s (got %q)", strings.Join(ReportTypes, ", "), c.ReportType)
				}
			}
		}
		return cwerrors.Wrap(err, cwerrors.KindConfig, "invalid configuration")
	}
	if c.Analysis.AI && c.Analysis.APIKey == "" {
		return cwerrors.New(cwerrors.KindConfig, "AI analysis requested but OPENAI_API_KEY is not set")
	}
	return nil
}
