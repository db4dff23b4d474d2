// Package config defines analysis run configuration and its defaults.
package config

// Config is the full run configuration, bound from flags and the optional
// config file.
type Config struct {
	// Source selects where the record set comes from.
	Source SourceConfig `mapstructure:"source"`
	// Output is the artifact destination: a local directory or an
	// "s3://bucket/prefix" URL.
	Output string `mapstructure:"output"`
	// RulesFile optionally points at an operator rule file with CEL
	// conditions, evaluated after the built-in catalog.
	RulesFile string `mapstructure:"rules_file"`
	// OTLPEndpoint enables trace export when set.
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`
	Verbose      bool   `mapstructure:"verbose"`
}

// SourceConfig names either a landing zone record file or a live AWS
// account to snapshot.
type SourceConfig struct {
	// Kind is "file" or "aws".
	Kind string `mapstructure:"kind"`
	// Path is the record file for the file source.
	Path string `mapstructure:"path"`
	// Region, Profile and Account apply to the aws source.
	Region  string `mapstructure:"region"`
	Profile string `mapstructure:"profile"`
	Account string `mapstructure:"account"`
}

const (
	SourceFile = "file"
	SourceAWS  = "aws"

	DefaultRegion = "us-east-1"
	DefaultOutput = "netviz-out"
)

// DefaultConfig returns a configuration with sensible default values.
func DefaultConfig() Config {
	return Config{
		Source: SourceConfig{
			Kind:   SourceFile,
			Region: DefaultRegion,
		},
		Output: DefaultOutput,
	}
}
