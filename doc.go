// Package goFactor is a multi-factor identity engine for machine and human
// clients.
//
// A client is admitted by its API key, enrolls one or more factors (Basic
// username and password digest, RS256 or Ed25519 public key, TOTP, email
// link), and proves them through the Verify methods. A client holding at
// least one verified factor can obtain a short-lived HS256 token addressed
// to a registered relying service, which that service checks with
// [Engine.VerifyToken].
//
// Engine methods are safe for concurrent use after [Builder.Build]. Every
// operation reloads the identity from the [IdentityStore] and never trusts
// the copy the caller holds. Writes to one identity are serialized
// in-process and are atomic in each store.
//
// # Boundaries
//
//   - Storage is pluggable: store/memory, store/redisstore, store/pgstore.
//   - The failure limiter and audit dispatcher live under internal/ and are
//     configured only through [Config] and the [Builder].
//   - Errors are sentinel values; [Classify] maps any returned error to an
//     [Outcome] for callers that branch on category.
//   - Credential material (digests, secrets, codes, tokens) is never logged.
package goFactor
