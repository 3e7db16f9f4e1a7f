// SPDX-License-Identifier: MPL-2.0

// Package config loads conjure's user configuration with Viper, using CUE
// as the file format.
//
// The file is config.cue in the platform configuration directory
// ($XDG_CONFIG_HOME/conjure on Linux, ~/Library/Application Support/conjure
// on macOS, %APPDATA%\conjure on Windows) and is validated against the
// embedded config_schema.cue. Every key is optional. Environment variables
// prefixed with CONJURE_ override file values, e.g. CONJURE_LOG_LEVEL.
package config
