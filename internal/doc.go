// Package internal contains the core implementation packages for bindc.
//
// This package follows Go's internal package convention, making these
// packages unavailable for import by external modules while providing
// all the core functionality for the bindc CLI tool.
//
// # Package Organization
//
// The internal packages are organized by functional domain:
//
//   - markup: Markup document parsing and binding expression syntax
//   - typeres: View-model type extraction from Go sources
//   - resolve: Binding scope resolution over the element tree
//   - bindcheck: Compile-time validation of binding paths
//   - codegen: Typed accessor generation for compiled bindings
//   - build: Build pipeline with worker pools, caching, and metrics
//   - scanner: File system scanning and document discovery
//   - registry: Document and type registry with event broadcasting
//   - watcher: File system monitoring with debouncing
//   - server: Diagnostics HTTP server with WebSocket updates
//   - config: Configuration management with validation
//   - errors: Structured errors and the diagnostic sink
//   - logging: Structured logging built on slog
//
// # Inter-Package Communication
//
// Packages communicate through well-defined interfaces:
//
//   - Registry acts as the central store for documents and types
//   - Build pipeline runs documents through resolve, check, and codegen
//   - Watcher monitors the file system and triggers rescans
//   - Scanner processes files and populates the registry
//   - Server coordinates the live pieces and streams diagnostics
package internal
