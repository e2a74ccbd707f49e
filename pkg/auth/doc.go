// Package auth provides the credential primitives of the task tracker: bearer
// token signing and password hashing.
//
// # Tokens
//
// TokenManager issues HS256 JWTs whose only custom claim is the user id:
//
//	{"userId": "65f0c1...", "iat": 1700000000, "exp": 1700604800}
//
// Tokens live for seven days by default. There is no refresh or revocation, so
// rotating the secret is the only way to invalidate issued tokens.
//
//	tm := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
//	token, err := tm.IssueToken(user.ID)
//	userID, err := tm.ValidateToken(token) // ErrInvalidToken or ErrTokenExpired
//
// # Passwords
//
// PasswordHasher wraps bcrypt (cost 10 by default). Plaintext passwords are never
// stored or logged.
//
//	h := auth.NewPasswordHasher(auth.DefaultBcryptCost)
//	hash, err := h.Hash("secret123")
//	err = h.Verify(hash, "secret123") // nil, ErrPasswordMismatch or a hash error
package auth
