package review

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/arcedo/fundflow-api/internal/auth"
	"github.com/arcedo/fundflow-api/internal/httputil"
	"github.com/arcedo/fundflow-api/internal/logging"
)

// Store defines the review persistence operations the handlers need.
// *Repository is the production implementation.
type Store interface {
	Create(ctx context.Context, params CreateParams) (*Review, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Review, error)
	Delete(ctx context.Context, id uuid.UUID) error
	ListByProject(ctx context.Context, projectID int64) ([]Review, error)
	ListByReviewer(ctx context.Context, userID int64) ([]Review, error)
	ListByCreator(ctx context.Context, creatorID int64) ([]Review, error)
}

// Handler contains HTTP handlers for project review endpoints
type Handler struct {
	repo   Store
	logger *logging.Logger
}

func NewHandler(repo Store, logger *logging.Logger) *Handler {
	return &Handler{repo: repo, logger: logger}
}

// CreateRequest represents the review creation body
type CreateRequest struct {
	Body        string `json:"body"`
	Rating      int    `json:"rating"`
	UserURL     string `json:"userUrl"`
	ProjectName string `json:"projectName"`
	IDCreator   int64  `json:"idCreator"`
	ProjectURL  string `json:"projectUrl"`
}

// ListByProject returns the reviews left on a project
// @Summary      List project reviews
// @Tags         reviews
// @Produce      json
// @Param        id path int true "Project ID"
// @Success      200 {array} Review
// @Failure      404 {object} httputil.ErrorResponse "No reviews found"
// @Router       /projects/{id}/reviews [get]
func (h *Handler) ListByProject(w http.ResponseWriter, r *http.Request) {
	projectID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	h.respondList(w, r, func() ([]Review, error) {
		return h.repo.ListByProject(r.Context(), projectID)
	})
}

// ListByReviewer returns the reviews a user has written
// @Summary      List reviews written by a user
// @Tags         reviews
// @Produce      json
// @Param        id path int true "User ID"
// @Success      200 {array} Review
// @Failure      404 {object} httputil.ErrorResponse "No reviews found"
// @Router       /projects/reviewing/byUser/{id} [get]
func (h *Handler) ListByReviewer(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	h.respondList(w, r, func() ([]Review, error) {
		return h.repo.ListByReviewer(r.Context(), userID)
	})
}

// ListByCreator returns the reviews received on a creator's projects
// @Summary      List reviews received by a creator
// @Tags         reviews
// @Produce      json
// @Param        id path int true "Creator user ID"
// @Success      200 {array} Review
// @Failure      404 {object} httputil.ErrorResponse "No reviews found"
// @Router       /projects/reviewed/byUser/{id} [get]
func (h *Handler) ListByCreator(w http.ResponseWriter, r *http.Request) {
	creatorID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	h.respondList(w, r, func() ([]Review, error) {
		return h.repo.ListByCreator(r.Context(), creatorID)
	})
}

// Create stores a new review by the authenticated caller
// @Summary      Create a project review
// @Tags         reviews
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Project ID"
// @Param        request body CreateRequest true "Review"
// @Success      201 {object} Review
// @Failure      400 {object} httputil.ErrorResponse "Missing required fields"
// @Router       /projects/{id}/reviews [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	projectID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	userID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.RespondErrorWithCode(w, "missing authentication", httputil.CodeMissingAuth, http.StatusUnauthorized)
		return
	}

	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.RespondErrorWithCode(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}
	if req.Body == "" || req.UserURL == "" || req.ProjectName == "" || req.IDCreator == 0 || req.ProjectURL == "" {
		httputil.RespondErrorWithCode(w, "missing required fields", httputil.CodeMissingFields, http.StatusBadRequest)
		return
	}

	created, err := h.repo.Create(r.Context(), CreateParams{
		IDProject:        projectID,
		IDUser:           userID,
		IDProjectCreator: req.IDCreator,
		UserURL:          req.UserURL,
		ProjectName:      req.ProjectName,
		ProjectURL:       req.ProjectURL,
		Body:             req.Body,
		Rating:           req.Rating,
	})
	if err != nil {
		logger.Error("failed to create review", "error", err.Error())
		httputil.RespondErrorWithCode(w, "internal server error", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	httputil.RespondJSON(w, created, http.StatusCreated)
}

// Delete removes a review. Only the review's author may delete it;
// anyone else gets 403 even when authenticated.
// @Summary      Delete a project review
// @Tags         reviews
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Project ID"
// @Param        idReview path string true "Review ID"
// @Success      200 {object} map[string]string
// @Failure      403 {object} httputil.ErrorResponse "Not the review's author"
// @Failure      404 {object} httputil.ErrorResponse "Review not found"
// @Router       /projects/{id}/reviews/{idReview} [delete]
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	if _, ok := pathID(w, r, "id"); !ok {
		return
	}
	reviewID, err := uuid.Parse(chi.URLParam(r, "idReview"))
	if err != nil {
		httputil.RespondErrorWithCode(w, "invalid review id", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}
	userID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.RespondErrorWithCode(w, "missing authentication", httputil.CodeMissingAuth, http.StatusUnauthorized)
		return
	}

	review, err := h.repo.GetByID(r.Context(), reviewID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httputil.RespondErrorWithCode(w, "review not found", httputil.CodeReviewsNotFound, http.StatusNotFound)
			return
		}
		logger.Error("failed to get review", "error", err.Error())
		httputil.RespondErrorWithCode(w, "internal server error", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}
	if review.IDUser != userID {
		httputil.RespondErrorWithCode(w, "forbidden", httputil.CodeForbidden, http.StatusForbidden)
		return
	}

	if err := h.repo.Delete(r.Context(), reviewID); err != nil {
		if errors.Is(err, ErrNotFound) {
			httputil.RespondErrorWithCode(w, "review not found", httputil.CodeReviewsNotFound, http.StatusNotFound)
			return
		}
		logger.Error("failed to delete review", "error", err.Error())
		httputil.RespondErrorWithCode(w, "internal server error", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	httputil.RespondJSON(w, map[string]string{"message": "review deleted"}, http.StatusOK)
}

func (h *Handler) respondList(w http.ResponseWriter, r *http.Request, list func() ([]Review, error)) {
	logger := logging.GetLoggerFromContext(r.Context())

	reviews, err := list()
	if err != nil {
		logger.Error("failed to list reviews", "error", err.Error())
		httputil.RespondErrorWithCode(w, "internal server error", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}
	if len(reviews) == 0 {
		httputil.RespondErrorWithCode(w, "no reviews found", httputil.CodeReviewsNotFound, http.StatusNotFound)
		return
	}

	httputil.RespondJSON(w, reviews, http.StatusOK)
}

func pathID(w http.ResponseWriter, r *http.Request, param string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, param), 10, 64)
	if err != nil {
		httputil.RespondErrorWithCode(w, "invalid id", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return 0, false
	}
	return id, true
}
