// Package configs provides the embedded default configuration file.
package configs

import _ "embed"

// DefaultConfigBytes is the default config.yml printed by the `intercept config` command.
//
//go:embed config.yml
var DefaultConfigBytes []byte
