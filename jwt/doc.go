// Package jwt issues and verifies service-scoped bearer tokens.
//
// Each token is HS256-signed with the shared secret of the service it is
// issued for. The service name is the audience, the identity uid is the
// subject, and the amr claim lists the factors the identity has enrolled.
// Verification pins the algorithm, requires exp and iat, and checks the
// audience against the service the caller names.
package jwt
