// Package password derives the salted credential hash stored for the Basic
// factor.
//
// # Output format
//
// Clients submit a digest of their password, never the password itself. The
// stored value is
//
//	hex(argon2id(digest, salt, t, m, p, 64))
//
// which is 128 hex characters (512 bits). The derivation is deterministic for
// a fixed [Config]; changing parameters invalidates previously stored values.
//
// # Architecture boundaries
//
// This package owns derivation and comparison only. Identity lookup and salt
// generation belong to the Engine.
//
// # What this package must NOT do
//
//   - Store or retrieve credentials.
//   - Import any other goFactor package.
//   - Log digests, salts, or derived hashes.
package password
