package auth

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/arcedo/fundflow-api/internal/httputil"
	"github.com/arcedo/fundflow-api/internal/logging"
	"github.com/arcedo/fundflow-api/internal/user"
)

// Handler contains HTTP handlers for authentication endpoints
type Handler struct {
	service *Service
	logger  *logging.Logger
}

func NewHandler(service *Service, logger *logging.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// RegisterRequest represents the registration request body
type RegisterRequest struct {
	Username             string `json:"username"`
	Email                string `json:"email"`
	Password             string `json:"password"`
	ConfirmationPassword string `json:"confirmationPassword"`
}

// LoginRequest represents the login request body. Username may hold a
// username or an email address.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// GoogleLoginRequest carries the provider-issued access token
type GoogleLoginRequest struct {
	Token string `json:"token"`
}

// AuthResponse represents a successful registration or login
type AuthResponse struct {
	Token   string `json:"token"`
	UserURL string `json:"userUrl"`
}

// FieldErrorResponse is an error response that names the offending
// field values, mirroring the validation contract
type FieldErrorResponse struct {
	Error       string            `json:"error"`
	Code        string            `json:"code"`
	ErrorValues map[string]string `json:"errorValues"`
}

// Register handles user registration
// @Summary      Register a new user
// @Description  Create a new account from username, email and password and receive an identity token.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body RegisterRequest true "Registration credentials"
// @Success      201 {object} AuthResponse
// @Failure      400 {object} FieldErrorResponse "Validation error or duplicate username/email"
// @Failure      500 {object} httputil.ErrorResponse "Internal server error"
// @Router       /auth/register [post]
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid registration request body", "error", err.Error())
		respondError(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	logger = logger.WithFields(map[string]any{"username": req.Username, "email": req.Email})

	result, err := h.service.Register(r.Context(), RegisterParams{
		Username:             req.Username,
		Email:                req.Email,
		Password:             req.Password,
		ConfirmationPassword: req.ConfirmationPassword,
	})
	if err != nil {
		var dupErr *user.DuplicateError
		if errors.As(err, &dupErr) {
			logger.Warn("registration failed: user already exists")
			values := map[string]string{}
			if dupErr.Username {
				values["username"] = req.Username
			}
			if dupErr.Email {
				values["email"] = req.Email
			}
			respondJSON(w, FieldErrorResponse{
				Error:       "user already exists",
				Code:        httputil.CodeUserAlreadyExists,
				ErrorValues: values,
			}, http.StatusBadRequest)
			return
		}
		if errors.Is(err, ErrMissingFields) {
			logger.Warn("registration failed: missing fields")
			respondError(w, err.Error(), httputil.CodeMissingFields, http.StatusBadRequest)
			return
		}
		if errors.Is(err, ErrInvalidEmail) {
			logger.Warn("registration failed: invalid email")
			respondJSON(w, FieldErrorResponse{
				Error:       err.Error(),
				Code:        httputil.CodeInvalidEmailFormat,
				ErrorValues: map[string]string{"email": req.Email},
			}, http.StatusBadRequest)
			return
		}
		if errors.Is(err, ErrPasswordTooShort) {
			logger.Warn("registration failed: password too short")
			respondError(w, err.Error(), httputil.CodePasswordTooShort, http.StatusBadRequest)
			return
		}
		if errors.Is(err, ErrPasswordMismatch) {
			logger.Warn("registration failed: passwords do not match")
			respondError(w, err.Error(), httputil.CodePasswordMismatch, http.StatusBadRequest)
			return
		}
		logger.Error("registration failed: internal error", "error", err.Error())
		respondError(w, "something went wrong during registration", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	logger.Info("user registered successfully")

	respondJSON(w, AuthResponse{Token: result.Token, UserURL: result.UserURL}, http.StatusCreated)
}

// Login handles local login
// @Summary      Authenticate a user
// @Description  Authenticate with username (or email) and password and receive an identity token.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body LoginRequest true "Login credentials"
// @Success      200 {object} AuthResponse
// @Failure      400 {object} httputil.ErrorResponse "Missing fields"
// @Failure      401 {object} httputil.ErrorResponse "Authentication failed"
// @Failure      500 {object} httputil.ErrorResponse "Internal server error"
// @Router       /auth/login [post]
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid login request body", "error", err.Error())
		respondError(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	result, err := h.service.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, ErrMissingFields) {
			logger.Warn("login failed: missing fields")
			respondError(w, err.Error(), httputil.CodeMissingFields, http.StatusBadRequest)
			return
		}
		if errors.Is(err, ErrAuthenticationFailed) {
			// Same body whether the account is missing or the password
			// is wrong
			logger.Warn("login failed: invalid credentials")
			respondError(w, "authentication failed", httputil.CodeAuthenticationFailed, http.StatusUnauthorized)
			return
		}
		logger.Error("login failed: internal error", "error", err.Error())
		respondError(w, "something went wrong during login", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	logger.Info("user logged in successfully")

	respondJSON(w, AuthResponse{Token: result.Token, UserURL: result.UserURL}, http.StatusOK)
}

// LoginWithGoogle handles federated login
// @Summary      Authenticate via Google
// @Description  Exchange a Google access token for an identity token. First-time federated logins auto-register an account.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body GoogleLoginRequest true "Provider access token"
// @Success      200 {object} AuthResponse "Existing account"
// @Success      201 {object} AuthResponse "Account created"
// @Failure      400 {object} httputil.ErrorResponse "Missing provider token"
// @Failure      401 {object} httputil.ErrorResponse "Invalid provider token"
// @Failure      500 {object} httputil.ErrorResponse "Internal server error"
// @Router       /auth/login/google [post]
func (h *Handler) LoginWithGoogle(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	var req GoogleLoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid google login request body", "error", err.Error())
		respondError(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	result, err := h.service.LoginWithGoogle(r.Context(), req.Token)
	if err != nil {
		if errors.Is(err, ErrMissingProviderToken) {
			logger.Warn("google login failed: no access token sent")
			respondError(w, err.Error(), httputil.CodeMissingProviderToken, http.StatusBadRequest)
			return
		}
		if errors.Is(err, ErrInvalidProviderToken) {
			logger.Warn("google login failed: invalid access token")
			respondError(w, "invalid access token", httputil.CodeInvalidProviderToken, http.StatusUnauthorized)
			return
		}
		logger.Error("google login failed: internal error", "error", err.Error())
		respondError(w, "something went wrong during login", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	status := http.StatusOK
	if result.Created {
		status = http.StatusCreated
	}

	logger.Info("user logged in via google", "created", result.Created)

	respondJSON(w, AuthResponse{Token: result.Token, UserURL: result.UserURL}, status)
}

// RequestEmailVerification handles verification email dispatch
// @Summary      Request email verification
// @Description  Send a verification link to the authenticated user's email address. May be called repeatedly; each call issues a fresh short-lived token.
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} map[string]string
// @Failure      401 {object} httputil.ErrorResponse "Missing or invalid token"
// @Failure      404 {object} httputil.ErrorResponse "User not found"
// @Failure      500 {object} httputil.ErrorResponse "Internal server error"
// @Router       /auth/verifyEmail [post]
func (h *Handler) RequestEmailVerification(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		respondError(w, "missing authentication", httputil.CodeMissingAuth, http.StatusUnauthorized)
		return
	}

	logger = logger.WithFields(map[string]any{"user_id": userID})

	if err := h.service.RequestEmailVerification(r.Context(), userID); err != nil {
		if errors.Is(err, user.ErrNotFound) {
			logger.Warn("verification request failed: user not found")
			respondError(w, "user not found", httputil.CodeUserNotFound, http.StatusNotFound)
			return
		}
		logger.Error("verification request failed: internal error", "error", err.Error())
		respondError(w, "error sending verification email", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	logger.Info("verification email dispatched")

	respondJSON(w, map[string]string{"message": "verification email sent"}, http.StatusOK)
}

// RedeemEmailVerification handles verification link redemption
// @Summary      Verify email address
// @Description  Redeem the emailed verification code and mark the account's email as verified. Idempotent for still-valid codes.
// @Tags         auth
// @Produce      json
// @Param        code path string true "Verification code"
// @Success      200 {object} map[string]string
// @Failure      400 {object} httputil.ErrorResponse "Invalid or expired code"
// @Failure      500 {object} httputil.ErrorResponse "Internal server error"
// @Router       /auth/verifyEmail/{code} [get]
func (h *Handler) RedeemEmailVerification(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	code := chi.URLParam(r, "code")
	if code == "" {
		respondError(w, "verification code required", httputil.CodeInvalidToken, http.StatusBadRequest)
		return
	}

	if err := h.service.RedeemEmailVerification(r.Context(), code); err != nil {
		if errors.Is(err, ErrExpiredToken) {
			logger.Warn("email verification failed: token expired")
			respondError(w, "token expired", httputil.CodeTokenExpired, http.StatusBadRequest)
			return
		}
		if errors.Is(err, ErrInvalidToken) {
			logger.Warn("email verification failed: invalid token")
			respondError(w, "invalid verification code", httputil.CodeInvalidToken, http.StatusBadRequest)
			return
		}
		logger.Error("email verification failed: internal error", "error", err.Error())
		respondError(w, "error verifying email", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	logger.Info("email verified successfully")

	respondJSON(w, map[string]string{"message": "email verified"}, http.StatusOK)
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, data any, statusCode int) {
	httputil.RespondJSON(w, data, statusCode)
}

// respondError sends an error response with a machine-readable code
func respondError(w http.ResponseWriter, message string, code string, statusCode int) {
	httputil.RespondErrorWithCode(w, message, code, statusCode)
}
