package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"aidanwoods.dev/go-paseto"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
)

// TokenClaims represents the claims stored in an identity token
type TokenClaims struct {
	UserID    int64
	IssuedAt  time.Time
	ExpiresAt *time.Time // nil for tokens issued without expiry
}

// PasetoService handles identity token creation and validation
// Uses v4.local (symmetric encryption with XChaCha20-Poly1305)
type PasetoService struct {
	symmetricKey paseto.V4SymmetricKey
}

func NewPasetoService(symmetricKey []byte) (*PasetoService, error) {
	if len(symmetricKey) != 32 {
		return nil, fmt.Errorf("symmetric key must be exactly 32 bytes, got %d", len(symmetricKey))
	}

	key, err := paseto.V4SymmetricKeyFromBytes(symmetricKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create symmetric key: %w", err)
	}

	return &PasetoService{
		symmetricKey: key,
	}, nil
}

// CreateToken generates a new v4.local token carrying the account id.
// A ttl of zero produces a token without an expiry claim; login and
// registration tokens are issued this way, verification tokens get an
// explicit short ttl.
func (s *PasetoService) CreateToken(userID int64, ttl time.Duration) (string, error) {
	now := time.Now()

	token := paseto.NewToken()
	token.SetIssuedAt(now)
	token.SetString("user_id", strconv.FormatInt(userID, 10))
	if ttl > 0 {
		token.SetExpiration(now.Add(ttl))
	}

	return token.V4Encrypt(s.symmetricKey, nil), nil
}

// VerifyToken validates a token and returns the claims. Expiry is only
// enforced when the token carries an expiry claim.
func (s *PasetoService) VerifyToken(tokenStr string) (*TokenClaims, error) {
	parser := paseto.NewParserWithoutExpiryCheck()

	token, err := parser.ParseV4Local(s.symmetricKey, tokenStr, nil)
	if err != nil {
		return nil, ErrInvalidToken
	}

	idStr, err := token.GetString("user_id")
	if err != nil {
		return nil, ErrInvalidToken
	}
	userID, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		return nil, ErrInvalidToken
	}

	issuedAt, err := token.GetIssuedAt()
	if err != nil {
		return nil, ErrInvalidToken
	}

	claims := &TokenClaims{
		UserID:   userID,
		IssuedAt: issuedAt,
	}

	if expiresAt, err := token.GetExpiration(); err == nil {
		if time.Now().After(expiresAt) {
			return nil, ErrExpiredToken
		}
		claims.ExpiresAt = &expiresAt
	}

	return claims, nil
}
