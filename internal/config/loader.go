package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ErrVersionMismatch is returned when the document version does not match the CLI.
var ErrVersionMismatch = errors.New("version compatibility")

// Loader reads campaign documents for a given CLI version.
type Loader struct {
	cliVersion string
}

// NewLoader creates a Loader that accepts documents whose version equals the
// major.minor part of cliVersion.
func NewLoader(cliVersion string) *Loader {
	return &Loader{cliVersion: cliVersion}
}

// Load reads, version-checks, decodes and validates the document at path.
func (l *Loader) Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return l.Parse(data)
}

// Parse version-checks, decodes and validates a document.
func (l *Loader) Parse(data []byte) (*Config, error) {
	var header struct {
		Version string `yaml:"version"`
	}
	if err := yaml.Unmarshal(data, &header); err != nil {
		return nil, fmt.Errorf("decode config version: %w", err)
	}

	expected, err := majorMinor(l.cliVersion)
	if err != nil {
		return nil, err
	}
	if header.Version != expected {
		return nil, fmt.Errorf("%w: version %q is not supported by CLI %s", ErrVersionMismatch, header.Version, expected)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	cfg := &Config{}
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
