package auth

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/arcedo/fundflow-api/internal/logging"
	"github.com/arcedo/fundflow-api/internal/user"
)

var (
	ErrMissingFields        = errors.New("all fields are required")
	ErrInvalidEmail         = errors.New("invalid email")
	ErrPasswordTooShort     = errors.New("password must be at least 8 characters long")
	ErrPasswordMismatch     = errors.New("passwords do not match")
	ErrAuthenticationFailed = errors.New("authentication failed")
	ErrMissingProviderToken = errors.New("no access token sent")
)

// emailRe is the loose local@domain.tld shape check applied at
// registration. Deliberately permissive; the verification email is the
// real proof of ownership.
var emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

const minPasswordLength = 8

// EmailService defines the interface for verification email dispatch
type EmailService interface {
	SendVerificationEmail(ctx context.Context, toEmail, code string) error
}

// AuthResult is what a successful registration or login yields
type AuthResult struct {
	Token   string `json:"token"`
	UserURL string `json:"userUrl"`
	Created bool   `json:"-"` // true when the call created the account
}

// RegisterParams holds the registration input fields
type RegisterParams struct {
	Username             string
	Email                string
	Password             string
	ConfirmationPassword string
}

// Service handles authentication business logic
type Service struct {
	users           UserStore
	tokens          TokenService
	verifier        IdentityVerifier
	emails          EmailService
	logger          *logging.Logger
	verificationTTL time.Duration
}

func NewService(
	users UserStore,
	tokens TokenService,
	verifier IdentityVerifier,
	emails EmailService,
	logger *logging.Logger,
	verificationTTL time.Duration,
) *Service {
	return &Service{
		users:           users,
		tokens:          tokens,
		verifier:        verifier,
		emails:          emails,
		logger:          logger,
		verificationTTL: verificationTTL,
	}
}

// Register validates the input, creates the account and issues an
// identity token. Validation short-circuits on the first failure, in the
// documented order.
func (s *Service) Register(ctx context.Context, params RegisterParams) (*AuthResult, error) {
	if params.Username == "" || params.Email == "" || params.Password == "" || params.ConfirmationPassword == "" {
		return nil, ErrMissingFields
	}
	if !emailRe.MatchString(params.Email) {
		return nil, ErrInvalidEmail
	}
	if len(params.Password) < minPasswordLength {
		return nil, ErrPasswordTooShort
	}
	if params.Password != params.ConfirmationPassword {
		return nil, ErrPasswordMismatch
	}

	// Pre-insert uniqueness query so the response can name the colliding
	// field(s). The UNIQUE constraints checked in Create remain the
	// authority under concurrent registration.
	dup, err := s.users.FindConflicts(ctx, params.Username, params.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing users: %w", err)
	}
	if dup != nil {
		return nil, dup
	}

	passwordHash, err := HashPassword(params.Password)
	if err != nil {
		return nil, err
	}

	newUser, err := s.users.Create(ctx, user.CreateParams{
		Username:          params.Username,
		Email:             params.Email,
		PasswordHash:      passwordHash,
		URL:               user.SlugFromUsername(params.Username),
		ProfilePictureSrc: user.RandomDefaultAvatar(),
	})
	if err != nil {
		var dupErr *user.DuplicateError
		if errors.As(err, &dupErr) {
			// Lost the race against a concurrent registration
			return nil, dupErr
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	token, err := s.tokens.CreateToken(newUser.ID, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to create token: %w", err)
	}

	return &AuthResult{Token: token, UserURL: newUser.URL, Created: true}, nil
}

// Login authenticates against stored credentials. The login field may be
// a username or an email; zero matches and a wrong password yield the
// same generic failure so accounts cannot be enumerated.
func (s *Service) Login(ctx context.Context, login, password string) (*AuthResult, error) {
	if login == "" || password == "" {
		return nil, ErrMissingFields
	}

	var existing *user.User
	var err error
	if looksLikeEmail(login) {
		existing, err = s.users.GetByEmail(ctx, login)
	} else {
		existing, err = s.users.GetByUsername(ctx, login)
	}
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			burnPasswordCheck(password)
			return nil, ErrAuthenticationFailed
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if !CheckPassword(existing.PasswordHash, password) {
		return nil, ErrAuthenticationFailed
	}

	token, err := s.tokens.CreateToken(existing.ID, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to create token: %w", err)
	}

	return &AuthResult{Token: token, UserURL: existing.URL}, nil
}

// LoginWithGoogle authenticates via a provider access token. A
// previously unseen email auto-registers: first-time federated login
// always succeeds and creates the account.
func (s *Service) LoginWithGoogle(ctx context.Context, accessToken string) (*AuthResult, error) {
	if accessToken == "" {
		return nil, ErrMissingProviderToken
	}

	claims, err := s.verifier.Introspect(ctx, accessToken)
	if err != nil {
		if errors.Is(err, ErrInvalidProviderToken) {
			return nil, ErrInvalidProviderToken
		}
		return nil, fmt.Errorf("failed to introspect provider token: %w", err)
	}

	existing, err := s.users.GetByEmail(ctx, claims.Email)
	if err == nil {
		token, err := s.tokens.CreateToken(existing.ID, 0)
		if err != nil {
			return nil, fmt.Errorf("failed to create token: %w", err)
		}
		return &AuthResult{Token: token, UserURL: existing.URL}, nil
	}
	if !errors.Is(err, user.ErrNotFound) {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	// The provider subject is stored in the password-hash column; no
	// local password exists for federated accounts.
	username := strings.SplitN(claims.Email, "@", 2)[0]
	newUser, err := s.users.Create(ctx, user.CreateParams{
		Username:          username,
		Email:             claims.Email,
		PasswordHash:      claims.Subject,
		URL:               user.SlugFromUsername(username),
		ProfilePictureSrc: user.RandomDefaultAvatar(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	token, err := s.tokens.CreateToken(newUser.ID, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to create token: %w", err)
	}

	return &AuthResult{Token: token, UserURL: newUser.URL, Created: true}, nil
}

// RequestEmailVerification issues a short-lived verification token for
// the caller and dispatches it by email. Dispatch is fire-and-forget: a
// failure is logged, never rolled back; the caller can simply request
// another email. Each call issues a fresh token and older ones stay
// valid until their own expiry.
func (s *Service) RequestEmailVerification(ctx context.Context, userID int64) error {
	existing, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return user.ErrNotFound
		}
		return fmt.Errorf("failed to get user: %w", err)
	}

	code, err := s.tokens.CreateToken(userID, s.verificationTTL)
	if err != nil {
		return fmt.Errorf("failed to create verification token: %w", err)
	}

	go func() {
		// Fresh context so the dispatch outlives the request
		emailCtx := context.Background()
		if err := s.emails.SendVerificationEmail(emailCtx, existing.Email, code); err != nil {
			s.logger.Warn("failed to send verification email", "email", existing.Email, "error", err)
		}
	}()

	return nil
}

// RedeemEmailVerification exchanges a still-valid verification token for
// verified_email = true. Idempotent: re-redeeming for an already
// verified account re-asserts true.
func (s *Service) RedeemEmailVerification(ctx context.Context, code string) error {
	claims, err := s.tokens.VerifyToken(code)
	if err != nil {
		return err
	}

	if err := s.users.MarkEmailVerified(ctx, claims.UserID); err != nil {
		if errors.Is(err, user.ErrNotFound) {
			// Token references an account that no longer exists
			return ErrInvalidToken
		}
		return fmt.Errorf("failed to mark email as verified: %w", err)
	}

	return nil
}

// looksLikeEmail mirrors the login disambiguation rule: an '@' with a
// '.' somewhere after it.
func looksLikeEmail(login string) bool {
	at := strings.Index(login, "@")
	dot := strings.LastIndex(login, ".")
	return at >= 0 && dot > at
}
