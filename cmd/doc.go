// Package cmd implements the command-line interface for the dStream result
// streaming toolkit. It provides a hierarchical command structure for
// inspecting the library and measuring its throughput.
//
// The package is organized into several subpackages:
//
//   - bench: Commands for benchmarking delivery sessions and the update sink
//   - util: Shared utilities for command-line processing and configuration (internal use)
//
// See dstream -help for a list of all commands.
package cmd
