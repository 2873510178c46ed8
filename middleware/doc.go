// Package middleware guards HTTP handlers of a relying service with goFactor
// service tokens.
//
// [RequireServiceToken] reads a Bearer token, verifies it for one service
// name, and stores the claims in the request context. Any failure is a bare
// 401; the reason is never written to the response.
package middleware
