// SPDX-License-Identifier: MPL-2.0

package config

import "context"

type (
	// LoadOptions selects the configuration source.
	LoadOptions struct {
		// FilePath forces a specific file, which must exist.
		FilePath string
		// DirPath replaces Dir() when looking for config.cue.
		DirPath string
	}

	// Provider loads configuration.
	Provider interface {
		Load(ctx context.Context, opts LoadOptions) (*Config, error)
	}

	fileProvider struct{}
)

// NewProvider returns the file and environment backed Provider.
func NewProvider() Provider {
	return fileProvider{}
}

// Load implements Provider.
func (fileProvider) Load(ctx context.Context, opts LoadOptions) (*Config, error) {
	cfg, _, err := load(ctx, opts)
	return cfg, err
}

// LoadWithPath is Load that also reports which file was read ("" for
// defaults only).
func LoadWithPath(ctx context.Context, opts LoadOptions) (*Config, string, error) {
	return load(ctx, opts)
}
