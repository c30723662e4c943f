// Package confloader provides configuration loading mechanism.
//
// This package implements a configuration loader on top of koanf that
// merges a YAML file, environment variables and in-memory maps into a
// typed struct, plus an fsnotify watcher for live changes.
//
// Priority (highest to lowest):
//
//  1. Command-line flags (loaded as a map)
//  2. Environment variables (ZONEMESH_SECTION__KEY)
//  3. Configuration file
//  4. Values already present in the target struct
package confloader
