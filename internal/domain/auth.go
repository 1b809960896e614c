package domain

import "time"

// TokenIssuer signs ops API bearer tokens.
type TokenIssuer interface {
	Issue(userID string, expiry time.Duration) (string, error)
}

// TokenVerifier validates an ops API bearer token and returns the subject.
type TokenVerifier interface {
	Verify(token string) (userID string, err error)
}
