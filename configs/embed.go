// Package configs provides embedded configuration templates for ds.
//
// Templates are embedded at build time with //go:embed so every
// distribution (go install, release binaries) carries them.
//
// The user template is written by `ds config init` to
// ~/.config/ds/config.yaml (or $XDG_CONFIG_HOME/ds/config.yaml).
//
// Configuration hierarchy (see internal/config Load):
//  1. Hardcoded defaults (internal/config NewConfig)
//  2. User config (~/.config/ds/config.yaml)
//  3. Project config (.ds.yaml in the working directory)
//  4. Environment variables (DS_*)
package configs

import _ "embed"

// UserConfigTemplate is the template for the user configuration file.
// Every value is commented out so the defaults stay in effect until edited.
//
//go:embed user-config.example.yaml
var UserConfigTemplate string
