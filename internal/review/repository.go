package review

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/arcedo/fundflow-api/internal/database"
)

var ErrNotFound = errors.New("review not found")

// Repository handles review persistence
type Repository struct {
	db *bun.DB
}

func NewRepository(db *bun.DB) *Repository {
	return &Repository{db: db}
}

// CreateParams holds the fields of a new review. IDUser comes from the
// verified request identity, never from the body.
type CreateParams struct {
	IDProject        int64
	IDUser           int64
	IDProjectCreator int64
	UserURL          string
	ProjectName      string
	ProjectURL       string
	Body             string
	Rating           int
}

// Create inserts a new review
func (r *Repository) Create(ctx context.Context, params CreateParams) (*Review, error) {
	dbReview := &database.Review{
		ID:               uuid.New(),
		IDProject:        params.IDProject,
		IDUser:           params.IDUser,
		IDProjectCreator: params.IDProjectCreator,
		UserURL:          params.UserURL,
		ProjectName:      params.ProjectName,
		ProjectURL:       params.ProjectURL,
		Body:             params.Body,
		Rating:           params.Rating,
		CreatedAt:        time.Now(),
	}

	_, err := r.db.NewInsert().
		Model(dbReview).
		Exec(ctx)

	if err != nil {
		return nil, fmt.Errorf("failed to create review: %w", err)
	}

	return mapDBReviewToModel(dbReview), nil
}

// ListByProject returns all reviews left on a project
func (r *Repository) ListByProject(ctx context.Context, projectID int64) ([]Review, error) {
	return r.list(ctx, "id_project", projectID)
}

// ListByReviewer returns all reviews a user has written
func (r *Repository) ListByReviewer(ctx context.Context, userID int64) ([]Review, error) {
	return r.list(ctx, "id_user", userID)
}

// ListByCreator returns all reviews received on a creator's projects
func (r *Repository) ListByCreator(ctx context.Context, creatorID int64) ([]Review, error) {
	return r.list(ctx, "id_project_creator", creatorID)
}

// GetByID retrieves a single review
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Review, error) {
	dbReview := new(database.Review)
	err := r.db.NewSelect().
		Model(dbReview).
		Where("id = ?", id).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get review: %w", err)
	}

	return mapDBReviewToModel(dbReview), nil
}

// Delete removes a review. The ownership check happens in the handler;
// this only reports whether the row existed.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.NewDelete().
		Model((*database.Review)(nil)).
		Where("id = ?", id).
		Exec(ctx)

	if err != nil {
		return fmt.Errorf("failed to delete review: %w", err)
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

func (r *Repository) list(ctx context.Context, field string, value int64) ([]Review, error) {
	var rows []database.Review
	err := r.db.NewSelect().
		Model(&rows).
		Where("? = ?", bun.Ident(field), value).
		Order("created_at DESC").
		Scan(ctx)

	if err != nil {
		return nil, fmt.Errorf("failed to list reviews by %s: %w", field, err)
	}

	reviews := make([]Review, 0, len(rows))
	for i := range rows {
		reviews = append(reviews, *mapDBReviewToModel(&rows[i]))
	}
	return reviews, nil
}

func mapDBReviewToModel(dbr *database.Review) *Review {
	return &Review{
		ID:               dbr.ID,
		IDProject:        dbr.IDProject,
		IDUser:           dbr.IDUser,
		IDProjectCreator: dbr.IDProjectCreator,
		UserURL:          dbr.UserURL,
		ProjectName:      dbr.ProjectName,
		ProjectURL:       dbr.ProjectURL,
		Body:             dbr.Body,
		Rating:           dbr.Rating,
		CreatedAt:        dbr.CreatedAt,
	}
}
