package stats

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/arcedo/fundflow-api/internal/auth"
	"github.com/arcedo/fundflow-api/internal/httputil"
	"github.com/arcedo/fundflow-api/internal/logging"
)

// Handler contains HTTP handlers for project statistics endpoints
type Handler struct {
	repo   *Repository
	logger *logging.Logger
}

func NewHandler(repo *Repository, logger *logging.Logger) *Handler {
	return &Handler{repo: repo, logger: logger}
}

// RecordViewRequest carries the project category for a first view
type RecordViewRequest struct {
	IDCategory int64 `json:"idCategory"`
}

// UpdateRequest mirrors the engagement update body
type UpdateRequest struct {
	Evaluation       string  `json:"evaluation"`
	EvaluationStatus bool    `json:"evaluationStatus"`
	Fund             float64 `json:"fund"`
	Collaboration    bool    `json:"collaboration"`
}

// GetProjectStats returns a project's aggregate engagement
// @Summary      Project stats summary
// @Tags         stats
// @Produce      json
// @Param        id path int true "Project ID"
// @Success      200 {object} Summary
// @Failure      404 {object} httputil.ErrorResponse "Stats not found"
// @Router       /projects/{id}/stats [get]
func (h *Handler) GetProjectStats(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	projectID, ok := projectIDParam(w, r)
	if !ok {
		return
	}

	summary, err := h.repo.Summary(r.Context(), projectID)
	if err != nil {
		if errors.Is(err, ErrStatsNotFound) {
			httputil.RespondErrorWithCode(w, "stats not found", httputil.CodeStatsNotFound, http.StatusNotFound)
			return
		}
		logger.Error("failed to get project stats", "error", err.Error())
		httputil.RespondErrorWithCode(w, "internal server error", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	httputil.RespondJSON(w, summary, http.StatusOK)
}

// GetUserProjectStats returns the caller's engagement record for a project
// @Summary      Caller's stats for a project
// @Tags         stats
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Project ID"
// @Success      200 {object} UserStats
// @Failure      404 {object} httputil.ErrorResponse "Stats not found"
// @Router       /projects/{id}/stats/user [get]
func (h *Handler) GetUserProjectStats(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	projectID, ok := projectIDParam(w, r)
	if !ok {
		return
	}
	userID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.RespondErrorWithCode(w, "missing authentication", httputil.CodeMissingAuth, http.StatusUnauthorized)
		return
	}

	userStats, err := h.repo.Get(r.Context(), projectID, userID)
	if err != nil {
		if errors.Is(err, ErrStatsNotFound) {
			httputil.RespondErrorWithCode(w, "stats not found", httputil.CodeStatsNotFound, http.StatusNotFound)
			return
		}
		logger.Error("failed to get user stats", "error", err.Error())
		httputil.RespondErrorWithCode(w, "internal server error", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	httputil.RespondJSON(w, userStats, http.StatusOK)
}

// RecordView records the caller's first view of a project
// @Summary      Record a project view
// @Tags         stats
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Project ID"
// @Param        request body RecordViewRequest true "Project category"
// @Success      200 {object} map[string]string "Already viewed"
// @Success      201 {object} UserStats
// @Failure      400 {object} httputil.ErrorResponse "Missing idCategory"
// @Router       /projects/{id}/stats [post]
func (h *Handler) RecordView(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	projectID, ok := projectIDParam(w, r)
	if !ok {
		return
	}
	userID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.RespondErrorWithCode(w, "missing authentication", httputil.CodeMissingAuth, http.StatusUnauthorized)
		return
	}

	var req RecordViewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.IDCategory == 0 {
		httputil.RespondErrorWithCode(w, "idCategory is required", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	created, err := h.repo.RecordView(r.Context(), projectID, userID, req.IDCategory)
	if err != nil {
		logger.Error("failed to record view", "error", err.Error())
		httputil.RespondErrorWithCode(w, "internal server error", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	if !created {
		httputil.RespondJSON(w, map[string]string{"message": "user already viewed this project"}, http.StatusOK)
		return
	}

	userStats, err := h.repo.Get(r.Context(), projectID, userID)
	if err != nil {
		logger.Error("failed to read back stats", "error", err.Error())
		httputil.RespondErrorWithCode(w, "internal server error", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	httputil.RespondJSON(w, userStats, http.StatusCreated)
}

// UpdateStats applies evaluation, funding or collaboration changes
// @Summary      Update caller's project stats
// @Tags         stats
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Project ID"
// @Param        request body UpdateRequest true "Engagement update"
// @Success      200 {object} UserStats
// @Failure      404 {object} httputil.ErrorResponse "Stats not found"
// @Router       /projects/{id}/stats [put]
func (h *Handler) UpdateStats(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	projectID, ok := projectIDParam(w, r)
	if !ok {
		return
	}
	userID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.RespondErrorWithCode(w, "missing authentication", httputil.CodeMissingAuth, http.StatusUnauthorized)
		return
	}

	var req UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.RespondErrorWithCode(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	userStats, err := h.repo.UpdateEngagement(r.Context(), projectID, userID, EngagementUpdate{
		Evaluation:       req.Evaluation,
		EvaluationStatus: req.EvaluationStatus,
		Fund:             req.Fund,
		Collaboration:    req.Collaboration,
	})
	if err != nil {
		if errors.Is(err, ErrStatsNotFound) {
			httputil.RespondErrorWithCode(w, "stats not found", httputil.CodeStatsNotFound, http.StatusNotFound)
			return
		}
		logger.Error("failed to update stats", "error", err.Error())
		httputil.RespondErrorWithCode(w, "internal server error", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	httputil.RespondJSON(w, userStats, http.StatusOK)
}

// CategoryViewPercentages returns each category's share of views
// @Summary      Per-category view percentages
// @Tags         stats
// @Produce      json
// @Success      200 {array} CategoryViews
// @Failure      404 {object} httputil.ErrorResponse "No views recorded"
// @Router       /projects/stats/percentageViews [get]
func (h *Handler) CategoryViewPercentages(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	result, err := h.repo.CategoryViewPercentages(r.Context())
	if err != nil {
		if errors.Is(err, ErrStatsNotFound) {
			httputil.RespondErrorWithCode(w, "no projects found", httputil.CodeStatsNotFound, http.StatusNotFound)
			return
		}
		logger.Error("failed to get category views", "error", err.Error())
		httputil.RespondErrorWithCode(w, "internal server error", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	httputil.RespondJSON(w, result, http.StatusOK)
}

func projectIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	projectID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httputil.RespondErrorWithCode(w, "invalid project id", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return 0, false
	}
	return projectID, true
}
