// Package store groups the identity and service store implementations.
//
// Every implementation satisfies identity.Store and identity.ServiceStore:
//
//   - memory: process-local maps, for tests and single-process tools.
//   - redisstore: one hash per identity plus a factor set, with atomic
//     single-field writes.
//   - pgstore: a clients table and a services table over pgx.
//   - cached: a read-through cache in front of any ServiceRegistry.
//
// Stores map "no such record" to identity.ErrNotFound and duplicate keys to
// identity.ErrConflict. Backend failures are wrapped with
// identity.ErrUnavailable.
package store
