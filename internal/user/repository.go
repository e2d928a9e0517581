package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/uptrace/bun"

	"github.com/arcedo/fundflow-api/internal/database"
)

var ErrNotFound = errors.New("user not found")

// DuplicateError reports which unique fields collided during account
// creation. It is raised both by the pre-insert uniqueness query and,
// authoritatively, by the store's UNIQUE constraints.
type DuplicateError struct {
	Username bool
	Email    bool
}

func (e *DuplicateError) Error() string {
	return "user already exists"
}

// Repository handles user account persistence
type Repository struct {
	db *bun.DB
}

func NewRepository(db *bun.DB) *Repository {
	return &Repository{db: db}
}

// CreateParams holds the fields set by the handlers at registration time.
// Role is defaulted by the store; RegisterDate is set here.
type CreateParams struct {
	Username          string
	Email             string
	PasswordHash      string
	URL               string
	ProfilePictureSrc string
}

// Create inserts a new user row. A unique-constraint violation is mapped
// to DuplicateError, which closes the check-then-insert race left open by
// FindConflicts.
func (r *Repository) Create(ctx context.Context, params CreateParams) (*User, error) {
	dbUser := &database.User{
		Username:          params.Username,
		Email:             params.Email,
		PasswordHash:      params.PasswordHash,
		URL:               params.URL,
		RegisterDate:      time.Now(),
		ProfilePictureSrc: params.ProfilePictureSrc,
	}

	_, err := r.db.NewInsert().
		Model(dbUser).
		Returning("*").
		Exec(ctx)

	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			dup := &DuplicateError{}
			switch {
			case strings.Contains(pqErr.Constraint, "username"):
				dup.Username = true
			case strings.Contains(pqErr.Constraint, "email"):
				dup.Email = true
			default:
				dup.Username = true
				dup.Email = true
			}
			return nil, dup
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return mapDBUserToModel(dbUser), nil
}

// FindConflicts queries which of username/email are already taken.
// Used before insert so the API can report the colliding field(s).
func (r *Repository) FindConflicts(ctx context.Context, username, email string) (*DuplicateError, error) {
	var rows []database.User
	err := r.db.NewSelect().
		Model(&rows).
		Column("username", "email").
		WhereOr("username = ?", username).
		WhereOr("email = ?", email).
		Scan(ctx)

	if err != nil {
		return nil, fmt.Errorf("failed to check existing users: %w", err)
	}

	if len(rows) == 0 {
		return nil, nil
	}

	dup := &DuplicateError{}
	for _, row := range rows {
		if row.Username == username {
			dup.Username = true
		}
		if row.Email == email {
			dup.Email = true
		}
	}
	return dup, nil
}

// GetByEmail retrieves a user by email
func (r *Repository) GetByEmail(ctx context.Context, email string) (*User, error) {
	return r.getByField(ctx, "email", email)
}

// GetByUsername retrieves a user by username
func (r *Repository) GetByUsername(ctx context.Context, username string) (*User, error) {
	return r.getByField(ctx, "username", username)
}

// GetByID retrieves a user by ID
func (r *Repository) GetByID(ctx context.Context, id int64) (*User, error) {
	dbUser := new(database.User)
	err := r.db.NewSelect().
		Model(dbUser).
		Where("id = ?", id).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user by id: %w", err)
	}

	return mapDBUserToModel(dbUser), nil
}

func (r *Repository) getByField(ctx context.Context, field, value string) (*User, error) {
	dbUser := new(database.User)
	err := r.db.NewSelect().
		Model(dbUser).
		Where("? = ?", bun.Ident(field), value).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user by %s: %w", field, err)
	}

	return mapDBUserToModel(dbUser), nil
}

// MarkEmailVerified flips verified_email to true. The transition is
// monotonic; re-applying it to an already verified account is a no-op
// that still succeeds.
func (r *Repository) MarkEmailVerified(ctx context.Context, userID int64) error {
	result, err := r.db.NewUpdate().
		Model((*database.User)(nil)).
		Set("verified_email = ?", true).
		Where("id = ?", userID).
		Exec(ctx)

	if err != nil {
		return fmt.Errorf("failed to mark email as verified: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

// mapDBUserToModel converts database model to domain model
func mapDBUserToModel(dbu *database.User) *User {
	return &User{
		ID:                dbu.ID,
		Username:          dbu.Username,
		Email:             dbu.Email,
		PasswordHash:      dbu.PasswordHash,
		URL:               dbu.URL,
		RegisterDate:      dbu.RegisterDate,
		Role:              dbu.Role,
		VerifiedEmail:     dbu.VerifiedEmail,
		ProfilePictureSrc: dbu.ProfilePictureSrc,
	}
}
