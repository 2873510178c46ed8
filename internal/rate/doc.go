// Package rate provides Redis-backed failure counters used to throttle
// repeated verification attempts against one identity.
//
// # Window semantics
//
// Fixed-window counters: INCR + EXPIRE on the first failure in a window.
// Keys are "<prefix>:fail:<scope>:<uid>" where scope names the factor being
// verified ("basic", "totp", "email", "signature").
//
// # What this package must NOT do
//
//   - Decide which operations are throttled (the Engine does that).
//   - Be imported outside the goFactor module.
package rate
