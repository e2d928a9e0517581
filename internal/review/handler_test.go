package review

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/arcedo/fundflow-api/internal/auth"
	"github.com/arcedo/fundflow-api/internal/httputil"
	"github.com/arcedo/fundflow-api/internal/logging"
)

// fakeStore is an in-memory Store backed by a map
type fakeStore struct {
	reviews map[uuid.UUID]Review
}

func newFakeStore() *fakeStore {
	return &fakeStore{reviews: make(map[uuid.UUID]Review)}
}

func (s *fakeStore) Create(ctx context.Context, params CreateParams) (*Review, error) {
	review := Review{
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
	s.reviews[review.ID] = review
	return &review, nil
}

func (s *fakeStore) GetByID(ctx context.Context, id uuid.UUID) (*Review, error) {
	if review, ok := s.reviews[id]; ok {
		return &review, nil
	}
	return nil, ErrNotFound
}

func (s *fakeStore) Delete(ctx context.Context, id uuid.UUID) error {
	if _, ok := s.reviews[id]; !ok {
		return ErrNotFound
	}
	delete(s.reviews, id)
	return nil
}

func (s *fakeStore) ListByProject(ctx context.Context, projectID int64) ([]Review, error) {
	return s.listBy(func(r Review) bool { return r.IDProject == projectID })
}

func (s *fakeStore) ListByReviewer(ctx context.Context, userID int64) ([]Review, error) {
	return s.listBy(func(r Review) bool { return r.IDUser == userID })
}

func (s *fakeStore) ListByCreator(ctx context.Context, creatorID int64) ([]Review, error) {
	return s.listBy(func(r Review) bool { return r.IDProjectCreator == creatorID })
}

func (s *fakeStore) listBy(match func(Review) bool) ([]Review, error) {
	result := make([]Review, 0)
	for _, review := range s.reviews {
		if match(review) {
			result = append(result, review)
		}
	}
	return result, nil
}

func newTestRouter(store Store, userID int64) chi.Router {
	handler := NewHandler(store, logging.NewLogger(true))

	r := chi.NewRouter()
	if userID != 0 {
		r.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
				ctx := context.WithValue(req.Context(), auth.UserIDContextKey, userID)
				next.ServeHTTP(w, req.WithContext(ctx))
			})
		})
	}
	r.Get("/projects/{id}/reviews", handler.ListByProject)
	r.Post("/projects/{id}/reviews", handler.Create)
	r.Delete("/projects/{id}/reviews/{idReview}", handler.Delete)
	return r
}

func doRequest(t *testing.T, router chi.Router, method, path string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func validCreateRequest() CreateRequest {
	return CreateRequest{
		Body:        "great project",
		Rating:      5,
		UserURL:     "jane_doe",
		ProjectName: "Solar Kit",
		IDCreator:   2,
		ProjectURL:  "solar_kit",
	}
}

func TestHandler_Create(t *testing.T) {
	store := newFakeStore()
	router := newTestRouter(store, 10)

	body, err := json.Marshal(validCreateRequest())
	require.NoError(t, err)

	rec := doRequest(t, router, http.MethodPost, "/projects/1/reviews", body)
	require.Equal(t, http.StatusCreated, rec.Code)

	var created Review
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&created))
	require.Equal(t, int64(1), created.IDProject)
	require.Equal(t, int64(10), created.IDUser, "author comes from the request identity")
	require.Equal(t, "great project", created.Body)

	rec = doRequest(t, router, http.MethodGet, "/projects/1/reviews", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var listed []Review
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&listed))
	require.Len(t, listed, 1)
}

func TestHandler_Create_Validation(t *testing.T) {
	router := newTestRouter(newFakeStore(), 10)

	t.Run("invalid project id", func(t *testing.T) {
		rec := doRequest(t, router, http.MethodPost, "/projects/abc/reviews", []byte(`{}`))
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("invalid body", func(t *testing.T) {
		rec := doRequest(t, router, http.MethodPost, "/projects/1/reviews", []byte(`{broken`))
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("missing required fields", func(t *testing.T) {
		body, err := json.Marshal(CreateRequest{Body: "great project", Rating: 5})
		require.NoError(t, err)

		rec := doRequest(t, router, http.MethodPost, "/projects/1/reviews", body)
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestHandler_Create_RequiresAuth(t *testing.T) {
	router := newTestRouter(newFakeStore(), 0)

	body, err := json.Marshal(validCreateRequest())
	require.NoError(t, err)

	rec := doRequest(t, router, http.MethodPost, "/projects/1/reviews", body)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHandler_List_Empty(t *testing.T) {
	router := newTestRouter(newFakeStore(), 0)

	rec := doRequest(t, router, http.MethodGet, "/projects/1/reviews", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	var body httputil.ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	require.Equal(t, httputil.CodeReviewsNotFound, body.Code)
}

func TestHandler_Delete(t *testing.T) {
	store := newFakeStore()
	owner := newTestRouter(store, 10)
	stranger := newTestRouter(store, 11)

	created, err := store.Create(context.Background(), CreateParams{
		IDProject:        1,
		IDUser:           10,
		IDProjectCreator: 2,
		UserURL:          "jane_doe",
		ProjectName:      "Solar Kit",
		ProjectURL:       "solar_kit",
		Body:             "great project",
		Rating:           5,
	})
	require.NoError(t, err)

	t.Run("non-author is forbidden", func(t *testing.T) {
		rec := doRequest(t, stranger, http.MethodDelete, "/projects/1/reviews/"+created.ID.String(), nil)
		require.Equal(t, http.StatusForbidden, rec.Code)

		var body httputil.ErrorResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
		require.Equal(t, httputil.CodeForbidden, body.Code)

		_, err := store.GetByID(context.Background(), created.ID)
		require.NoError(t, err, "review must survive a forbidden delete")
	})

	t.Run("author deletes", func(t *testing.T) {
		rec := doRequest(t, owner, http.MethodDelete, "/projects/1/reviews/"+created.ID.String(), nil)
		require.Equal(t, http.StatusOK, rec.Code)

		_, err := store.GetByID(context.Background(), created.ID)
		require.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("already deleted", func(t *testing.T) {
		rec := doRequest(t, owner, http.MethodDelete, "/projects/1/reviews/"+created.ID.String(), nil)
		require.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("invalid review id", func(t *testing.T) {
		rec := doRequest(t, owner, http.MethodDelete, "/projects/1/reviews/not-a-uuid", nil)
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unauthenticated", func(t *testing.T) {
		anonymous := newTestRouter(store, 0)
		rec := doRequest(t, anonymous, http.MethodDelete, "/projects/1/reviews/"+uuid.NewString(), nil)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}
