package config

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix for environment variables overriding run settings.
const EnvPrefix = "VIKING"

// Settings are process-level options that are not part of a campaign document.
type Settings struct {
	LogLevel    string
	LogFormat   string
	MetricsAddr string
	Tracing     TracingConfig
}

// TracingConfig configures OpenTelemetry export of request spans.
type TracingConfig struct {
	Endpoint    string
	Protocol    string // "grpc" or "http"
	Insecure    bool
	ServiceName string
	SampleRate  float64
	Propagate   bool
}

// Enabled reports whether spans should be created at all.
func (t TracingConfig) Enabled() bool {
	return strings.TrimSpace(t.Endpoint) != "" || t.Propagate
}

// ShouldPropagate reports whether W3C trace headers are injected into requests.
func (t TracingConfig) ShouldPropagate() bool {
	return t.Propagate
}

// RegisterSettingsFlags registers the run-setting flags on a flag set.
func RegisterSettingsFlags(flags *pflag.FlagSet) {
	flags.String("log-level", "info", "Log level (debug, info, warn, error)")
	flags.String("log-format", "console", "Log encoding: 'console' or 'json'")
	flags.String("metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9090)")

	flags.String("otlp-endpoint", "", "OTLP collector endpoint for request spans")
	flags.String("otlp-protocol", "grpc", "OTLP protocol: 'grpc' or 'http'")
	flags.Bool("otlp-insecure", false, "Disable TLS for the OTLP exporter")
	flags.String("trace-service-name", "viking", "Service name reported on spans")
	flags.Float64("trace-sample-rate", 1.0, "Fraction of requests to trace (0.0-1.0)")
	flags.Bool("trace-propagate", false, "Inject W3C trace context headers into requests")
}

// LoadSettings resolves settings from flags, falling back to VIKING_* environment
// variables and then to flag defaults.
func LoadSettings(flags *pflag.FlagSet) (Settings, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(flags); err != nil {
		return Settings{}, err
	}

	s := Settings{
		LogLevel:    strings.ToLower(strings.TrimSpace(v.GetString("log-level"))),
		LogFormat:   strings.ToLower(strings.TrimSpace(v.GetString("log-format"))),
		MetricsAddr: strings.TrimSpace(v.GetString("metrics-addr")),
		Tracing: TracingConfig{
			Endpoint:    strings.TrimSpace(v.GetString("otlp-endpoint")),
			Protocol:    strings.ToLower(strings.TrimSpace(v.GetString("otlp-protocol"))),
			Insecure:    v.GetBool("otlp-insecure"),
			ServiceName: v.GetString("trace-service-name"),
			SampleRate:  v.GetFloat64("trace-sample-rate"),
			Propagate:   v.GetBool("trace-propagate"),
		},
	}
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

func (s Settings) Validate() error {
	var issues []string
	switch s.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		issues = append(issues, fmt.Sprintf("log-level %q is not supported", s.LogLevel))
	}
	switch s.LogFormat {
	case "console", "json":
	default:
		issues = append(issues, fmt.Sprintf("log-format must be 'console' or 'json', got %q", s.LogFormat))
	}
	switch s.Tracing.Protocol {
	case "", "grpc", "http":
	default:
		issues = append(issues, fmt.Sprintf("otlp-protocol must be 'grpc' or 'http', got %q", s.Tracing.Protocol))
	}
	if s.Tracing.SampleRate < 0 || s.Tracing.SampleRate > 1 {
		issues = append(issues, fmt.Sprintf("trace-sample-rate must be between 0.0 and 1.0, got %g", s.Tracing.SampleRate))
	}
	if len(issues) > 0 {
		return ValidationError{issues: issues}
	}
	return nil
}
