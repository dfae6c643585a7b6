// Package integration provides integration tests that verify persisted favorites
// and the shared Redis cache through the HTTP API. These tests use real databases
// via testcontainers.
//
// Run with: go test -tags=integration ./tests/integration/...
package integration
