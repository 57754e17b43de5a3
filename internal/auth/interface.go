package auth

import "scorelib/internal/domain/models"

// JWTVerifier turns a bearer token into the caller's claims. The library
// keys every document by the `sub` claim and records `email` for invites.
type JWTVerifier interface {
	// VerifyToken rejects expired, unsigned, anonymous and subject-less tokens.
	VerifyToken(tokenString string) (*models.AuthClaims, error)

	// Close stops background JWKS refresh.
	Close() error
}
