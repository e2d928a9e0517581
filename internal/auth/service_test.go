package auth

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/arcedo/fundflow-api/internal/logging"
	"github.com/arcedo/fundflow-api/internal/user"
)

// fakeUserStore is an in-memory UserStore backed by a map
type fakeUserStore struct {
	mu     sync.Mutex
	nextID int64
	users  map[int64]*user.User
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: make(map[int64]*user.User)}
}

func (s *fakeUserStore) Create(ctx context.Context, params user.CreateParams) (*user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	dup := &user.DuplicateError{}
	for _, u := range s.users {
		if u.Username == params.Username {
			dup.Username = true
		}
		if u.Email == params.Email {
			dup.Email = true
		}
	}
	if dup.Username || dup.Email {
		return nil, dup
	}

	s.nextID++
	u := &user.User{
		ID:                s.nextID,
		Username:          params.Username,
		Email:             params.Email,
		PasswordHash:      params.PasswordHash,
		URL:               params.URL,
		RegisterDate:      time.Now(),
		Role:              "user",
		ProfilePictureSrc: params.ProfilePictureSrc,
	}
	s.users[u.ID] = u
	copied := *u
	return &copied, nil
}

func (s *fakeUserStore) FindConflicts(ctx context.Context, username, email string) (*user.DuplicateError, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	dup := &user.DuplicateError{}
	for _, u := range s.users {
		if u.Username == username {
			dup.Username = true
		}
		if u.Email == email {
			dup.Email = true
		}
	}
	if dup.Username || dup.Email {
		return dup, nil
	}
	return nil, nil
}

func (s *fakeUserStore) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			copied := *u
			return &copied, nil
		}
	}
	return nil, user.ErrNotFound
}

func (s *fakeUserStore) GetByUsername(ctx context.Context, username string) (*user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Username == username {
			copied := *u
			return &copied, nil
		}
	}
	return nil, user.ErrNotFound
}

func (s *fakeUserStore) GetByID(ctx context.Context, id int64) (*user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[id]; ok {
		copied := *u
		return &copied, nil
	}
	return nil, user.ErrNotFound
}

func (s *fakeUserStore) MarkEmailVerified(ctx context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return user.ErrNotFound
	}
	u.VerifiedEmail = true
	return nil
}

func (s *fakeUserStore) isVerified(userID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	return ok && u.VerifiedEmail
}

type sentEmail struct {
	To   string
	Code string
}

// fakeEmailService records dispatched emails on a channel so tests can
// wait for the async send
type fakeEmailService struct {
	sent chan sentEmail
}

func newFakeEmailService() *fakeEmailService {
	return &fakeEmailService{sent: make(chan sentEmail, 8)}
}

func (f *fakeEmailService) SendVerificationEmail(ctx context.Context, toEmail, code string) error {
	f.sent <- sentEmail{To: toEmail, Code: code}
	return nil
}

func (f *fakeEmailService) waitForEmail(t *testing.T) sentEmail {
	t.Helper()
	select {
	case e := <-f.sent:
		return e
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for verification email")
		return sentEmail{}
	}
}

// fakeVerifier maps access tokens to provider claims
type fakeVerifier struct {
	tokens map[string]*GoogleClaims
}

func (f *fakeVerifier) Introspect(ctx context.Context, accessToken string) (*GoogleClaims, error) {
	if claims, ok := f.tokens[accessToken]; ok {
		return claims, nil
	}
	return nil, ErrInvalidProviderToken
}

type serviceFixture struct {
	service *Service
	store   *fakeUserStore
	tokens  *PasetoService
	emails  *fakeEmailService
}

func newServiceFixture(t *testing.T, verificationTTL time.Duration) *serviceFixture {
	t.Helper()

	tokens, err := NewPasetoService(testTokenSecret())
	require.NoError(t, err)

	store := newFakeUserStore()
	emails := newFakeEmailService()
	verifier := &fakeVerifier{tokens: map[string]*GoogleClaims{
		"valid-google-token": {Email: "jane.doe@gmail.com", Subject: "google-subject-123"},
	}}

	service := NewService(store, tokens, verifier, emails, logging.NewLogger(true), verificationTTL)

	return &serviceFixture{service: service, store: store, tokens: tokens, emails: emails}
}

func validRegisterParams() RegisterParams {
	return RegisterParams{
		Username:             "Jane Doe",
		Email:                "jane@example.com",
		Password:             "s3cretpass",
		ConfirmationPassword: "s3cretpass",
	}
}

func TestService_Register(t *testing.T) {
	f := newServiceFixture(t, time.Hour)
	ctx := context.Background()

	result, err := f.service.Register(ctx, validRegisterParams())
	require.NoError(t, err)
	require.True(t, result.Created)
	require.Equal(t, "jane_doe", result.UserURL)

	claims, err := f.tokens.VerifyToken(result.Token)
	require.NoError(t, err)
	require.Equal(t, int64(1), claims.UserID)
	require.Nil(t, claims.ExpiresAt)

	stored, err := f.store.GetByEmail(ctx, "jane@example.com")
	require.NoError(t, err)
	require.NotEqual(t, "s3cretpass", stored.PasswordHash, "password must be stored hashed")
	require.True(t, CheckPassword(stored.PasswordHash, "s3cretpass"))
	require.True(t, strings.HasPrefix(stored.ProfilePictureSrc, "uploads/defaultAvatars/"))
	require.False(t, stored.VerifiedEmail)
}

func TestService_Register_ValidationOrder(t *testing.T) {
	f := newServiceFixture(t, time.Hour)
	ctx := context.Background()

	tests := []struct {
		name    string
		mutate  func(*RegisterParams)
		wantErr error
	}{
		{"missing username", func(p *RegisterParams) { p.Username = "" }, ErrMissingFields},
		{"missing email", func(p *RegisterParams) { p.Email = "" }, ErrMissingFields},
		{"missing password", func(p *RegisterParams) { p.Password = "" }, ErrMissingFields},
		{"missing confirmation", func(p *RegisterParams) { p.ConfirmationPassword = "" }, ErrMissingFields},
		{"invalid email", func(p *RegisterParams) { p.Email = "not-an-email" }, ErrInvalidEmail},
		{"email without dot", func(p *RegisterParams) { p.Email = "jane@localhost" }, ErrInvalidEmail},
		{"email with space", func(p *RegisterParams) { p.Email = "jane doe@example.com" }, ErrInvalidEmail},
		{"short password", func(p *RegisterParams) {
			p.Password = "short"
			p.ConfirmationPassword = "short"
		}, ErrPasswordTooShort},
		{"mismatched passwords", func(p *RegisterParams) { p.ConfirmationPassword = "different1" }, ErrPasswordMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params := validRegisterParams()
			tt.mutate(&params)
			_, err := f.service.Register(ctx, params)
			require.ErrorIs(t, err, tt.wantErr)
		})
	}

	// Precedence: a bad email wins over a short password
	params := validRegisterParams()
	params.Email = "bad"
	params.Password = "short"
	params.ConfirmationPassword = "short"
	_, err := f.service.Register(ctx, params)
	require.ErrorIs(t, err, ErrInvalidEmail)
}

func TestService_Register_Duplicates(t *testing.T) {
	f := newServiceFixture(t, time.Hour)
	ctx := context.Background()

	_, err := f.service.Register(ctx, validRegisterParams())
	require.NoError(t, err)

	// Same username, different email
	params := validRegisterParams()
	params.Email = "other@example.com"
	_, err = f.service.Register(ctx, params)
	var dup *user.DuplicateError
	require.ErrorAs(t, err, &dup)
	require.True(t, dup.Username)
	require.False(t, dup.Email)

	// Same email, different username
	params = validRegisterParams()
	params.Username = "Other Name"
	_, err = f.service.Register(ctx, params)
	dup = nil
	require.ErrorAs(t, err, &dup)
	require.False(t, dup.Username)
	require.True(t, dup.Email)
}

// racingUserStore reports no conflicts so the insert itself is what
// detects the duplicate, as happens when two registrations interleave.
type racingUserStore struct {
	*fakeUserStore
}

func (s *racingUserStore) FindConflicts(ctx context.Context, username, email string) (*user.DuplicateError, error) {
	return nil, nil
}

func TestService_Register_LostRace(t *testing.T) {
	f := newServiceFixture(t, time.Hour)
	ctx := context.Background()

	service := NewService(
		&racingUserStore{fakeUserStore: f.store},
		f.tokens,
		&fakeVerifier{},
		f.emails,
		logging.NewLogger(true),
		time.Hour,
	)

	// The concurrent registration that wins the race
	_, err := f.service.Register(ctx, validRegisterParams())
	require.NoError(t, err)

	// The loser passed the conflict check but the store rejects the insert
	_, err = service.Register(ctx, validRegisterParams())
	var dup *user.DuplicateError
	require.ErrorAs(t, err, &dup)
	require.True(t, dup.Username)
	require.True(t, dup.Email)
}

func TestService_Login(t *testing.T) {
	f := newServiceFixture(t, time.Hour)
	ctx := context.Background()

	_, err := f.service.Register(ctx, validRegisterParams())
	require.NoError(t, err)

	t.Run("by username", func(t *testing.T) {
		result, err := f.service.Login(ctx, "Jane Doe", "s3cretpass")
		require.NoError(t, err)
		require.Equal(t, "jane_doe", result.UserURL)
		require.False(t, result.Created)

		claims, err := f.tokens.VerifyToken(result.Token)
		require.NoError(t, err)
		require.Equal(t, int64(1), claims.UserID)
	})

	t.Run("by email", func(t *testing.T) {
		result, err := f.service.Login(ctx, "jane@example.com", "s3cretpass")
		require.NoError(t, err)
		require.Equal(t, "jane_doe", result.UserURL)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := f.service.Login(ctx, "Jane Doe", "wrongpassword")
		require.ErrorIs(t, err, ErrAuthenticationFailed)
	})

	t.Run("unknown account", func(t *testing.T) {
		_, err := f.service.Login(ctx, "nobody@example.com", "s3cretpass")
		require.ErrorIs(t, err, ErrAuthenticationFailed)
	})

	t.Run("missing fields", func(t *testing.T) {
		_, err := f.service.Login(ctx, "", "s3cretpass")
		require.ErrorIs(t, err, ErrMissingFields)
		_, err = f.service.Login(ctx, "Jane Doe", "")
		require.ErrorIs(t, err, ErrMissingFields)
	})
}

func TestLooksLikeEmail(t *testing.T) {
	require.True(t, looksLikeEmail("jane@example.com"))
	require.True(t, looksLikeEmail("jane.doe@sub.example.com"))
	require.False(t, looksLikeEmail("jane_doe"))
	require.False(t, looksLikeEmail("jane@localhost"))
	require.False(t, looksLikeEmail("jane.doe"))
}

func TestService_LoginWithGoogle(t *testing.T) {
	f := newServiceFixture(t, time.Hour)
	ctx := context.Background()

	t.Run("first login auto-registers", func(t *testing.T) {
		result, err := f.service.LoginWithGoogle(ctx, "valid-google-token")
		require.NoError(t, err)
		require.True(t, result.Created)
		require.Equal(t, "jane.doe", result.UserURL)

		stored, err := f.store.GetByEmail(ctx, "jane.doe@gmail.com")
		require.NoError(t, err)
		require.Equal(t, "jane.doe", stored.Username)
		require.Equal(t, "google-subject-123", stored.PasswordHash)
	})

	t.Run("second login reuses the account", func(t *testing.T) {
		result, err := f.service.LoginWithGoogle(ctx, "valid-google-token")
		require.NoError(t, err)
		require.False(t, result.Created)
		require.Equal(t, "jane.doe", result.UserURL)

		claims, err := f.tokens.VerifyToken(result.Token)
		require.NoError(t, err)
		require.Equal(t, int64(1), claims.UserID)
	})

	t.Run("invalid provider token", func(t *testing.T) {
		_, err := f.service.LoginWithGoogle(ctx, "garbage")
		require.ErrorIs(t, err, ErrInvalidProviderToken)
	})

	t.Run("missing provider token", func(t *testing.T) {
		_, err := f.service.LoginWithGoogle(ctx, "")
		require.ErrorIs(t, err, ErrMissingProviderToken)
	})
}

func TestService_EmailVerification(t *testing.T) {
	f := newServiceFixture(t, time.Hour)
	ctx := context.Background()

	_, err := f.service.Register(ctx, validRegisterParams())
	require.NoError(t, err)

	require.NoError(t, f.service.RequestEmailVerification(ctx, 1))
	sent := f.emails.waitForEmail(t)
	require.Equal(t, "jane@example.com", sent.To)

	claims, err := f.tokens.VerifyToken(sent.Code)
	require.NoError(t, err)
	require.Equal(t, int64(1), claims.UserID)
	require.NotNil(t, claims.ExpiresAt, "verification codes must expire")

	require.NoError(t, f.service.RedeemEmailVerification(ctx, sent.Code))
	require.True(t, f.store.isVerified(1))

	// Redeeming again is a no-op that still succeeds
	require.NoError(t, f.service.RedeemEmailVerification(ctx, sent.Code))
	require.True(t, f.store.isVerified(1))
}

func TestService_RequestEmailVerification_UnknownUser(t *testing.T) {
	f := newServiceFixture(t, time.Hour)

	err := f.service.RequestEmailVerification(context.Background(), 999)
	require.ErrorIs(t, err, user.ErrNotFound)
}

func TestService_RedeemEmailVerification_ExpiredCode(t *testing.T) {
	f := newServiceFixture(t, time.Millisecond)
	ctx := context.Background()

	_, err := f.service.Register(ctx, validRegisterParams())
	require.NoError(t, err)

	require.NoError(t, f.service.RequestEmailVerification(ctx, 1))
	sent := f.emails.waitForEmail(t)

	time.Sleep(10 * time.Millisecond)

	err = f.service.RedeemEmailVerification(ctx, sent.Code)
	require.ErrorIs(t, err, ErrExpiredToken)
	require.False(t, f.store.isVerified(1))
}

func TestService_RedeemEmailVerification_GarbageCode(t *testing.T) {
	f := newServiceFixture(t, time.Hour)

	err := f.service.RedeemEmailVerification(context.Background(), "v4.local.not-a-real-token")
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestService_RedeemEmailVerification_DeletedAccount(t *testing.T) {
	f := newServiceFixture(t, time.Hour)
	ctx := context.Background()

	code, err := f.tokens.CreateToken(404, time.Hour)
	require.NoError(t, err)

	err = f.service.RedeemEmailVerification(ctx, code)
	require.ErrorIs(t, err, ErrInvalidToken)
}

// Verifies the dependency error path stays distinct from the invalid
// token path.
type failingVerifier struct{}

func (failingVerifier) Introspect(ctx context.Context, accessToken string) (*GoogleClaims, error) {
	return nil, errors.New("connection refused")
}

func TestService_LoginWithGoogle_ProviderUnreachable(t *testing.T) {
	tokens, err := NewPasetoService(testTokenSecret())
	require.NoError(t, err)

	service := NewService(newFakeUserStore(), tokens, failingVerifier{}, newFakeEmailService(), logging.NewLogger(true), time.Hour)

	_, err = service.LoginWithGoogle(context.Background(), "some-token")
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrInvalidProviderToken)
}
