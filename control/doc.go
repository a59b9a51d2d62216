// Package control
// Author: momentics <momentics@gmail.com>
//
// Configuration, hot-reload and runtime metrics layer of hioload-rt.
//
// Provides concurrent-safe state handling primitives including:
//   - Config files in YAML or TOML, selected by file extension
//   - A file watcher that re-reads the config and notifies reload hooks
//   - A metrics registry the executor publishes its counters into
package control
