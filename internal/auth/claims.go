package auth

import "github.com/golang-jwt/jwt/v5"

type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

// Claims are the only supported JWT claims shape for this service.
// WorkerID is the authenticated ASHA worker; every protected endpoint scopes
// its data by it.
type Claims struct {
	jwt.RegisteredClaims

	WorkerID  string    `json:"worker_id"`
	TokenType TokenType `json:"token_type"`
}
