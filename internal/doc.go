// Package internal contains helper utilities that are private to goFactor:
// secure random generation and basic credential decoding.
//
// # Sub-packages
//
//   - audit: async event dispatch (Dispatcher + Sink implementations)
//   - keylock: per-identity mutual exclusion for read-modify-write operations
//   - rate: Redis-backed failure counters for verification throttling
//
// # What this package must NOT do
//
//   - Export types that appear in the public goFactor API.
//   - Be imported by any package outside the goFactor module.
package internal
