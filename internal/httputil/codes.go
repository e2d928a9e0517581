package httputil

// Machine-readable error codes returned alongside error messages.
const (
	CodeInvalidRequestBody   = "invalid_request_body"
	CodeMissingFields        = "missing_fields"
	CodeInvalidEmailFormat   = "invalid_email_format"
	CodePasswordTooShort     = "password_too_short"
	CodePasswordMismatch     = "password_mismatch"
	CodeUserAlreadyExists    = "user_already_exists"
	CodeAuthenticationFailed = "authentication_failed"
	CodeMissingProviderToken = "missing_provider_token"
	CodeInvalidProviderToken = "invalid_provider_token"
	CodeMissingAuth          = "missing_auth"
	CodeInvalidAuthHeader    = "invalid_auth_header"
	CodeInvalidToken         = "invalid_token"
	CodeTokenExpired         = "token_expired"
	CodeForbidden            = "forbidden"
	CodeUserNotFound         = "user_not_found"
	CodeStatsNotFound        = "stats_not_found"
	CodeReviewsNotFound      = "reviews_not_found"
	CodeInternalError        = "internal_error"
)
