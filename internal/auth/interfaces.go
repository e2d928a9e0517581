package auth

import (
	"context"
	"time"

	"github.com/arcedo/fundflow-api/internal/user"
)

// TokenService defines the interface for identity token creation and
// validation. PasetoService is the production implementation.
type TokenService interface {
	CreateToken(userID int64, ttl time.Duration) (string, error)
	VerifyToken(tokenStr string) (*TokenClaims, error)
}

// UserStore defines the credential-store operations the auth service
// needs. *user.Repository is the production implementation.
type UserStore interface {
	Create(ctx context.Context, params user.CreateParams) (*user.User, error)
	FindConflicts(ctx context.Context, username, email string) (*user.DuplicateError, error)
	GetByEmail(ctx context.Context, email string) (*user.User, error)
	GetByUsername(ctx context.Context, username string) (*user.User, error)
	GetByID(ctx context.Context, id int64) (*user.User, error)
	MarkEmailVerified(ctx context.Context, userID int64) error
}

// IdentityVerifier exchanges a provider access token for verified claims.
// GoogleVerifier is the production implementation.
type IdentityVerifier interface {
	Introspect(ctx context.Context, accessToken string) (*GoogleClaims, error)
}
