// Package cli provides shared plumbing for the fieldvoice command-line
// tool.
//
// This package includes:
//   - Context configuration (named service profiles under ~/.fieldvoice)
//   - Output formatting (YAML, JSON, table)
//   - Request file loading (YAML/JSON)
//   - Terminal styles for the capture UI
//
// Configuration supports multiple named contexts similar to kubectl, so
// one install can switch between diary services or accounts.
package cli
