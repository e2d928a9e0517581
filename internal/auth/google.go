package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
)

var ErrInvalidProviderToken = errors.New("invalid provider token")

// GoogleClaims holds the verified identity claims returned by the
// provider's introspection endpoint
type GoogleClaims struct {
	Email   string `json:"email"`
	Subject string `json:"id"`
}

// GoogleVerifier exchanges a provider-issued access token for verified
// identity claims. Audience and issuer are not validated beyond what the
// introspection call itself guarantees.
type GoogleVerifier struct {
	client       *http.Client
	tokenInfoURL string
}

func NewGoogleVerifier(tokenInfoURL string) *GoogleVerifier {
	return &GoogleVerifier{
		client:       &http.Client{},
		tokenInfoURL: tokenInfoURL,
	}
}

// Introspect calls the tokeninfo endpoint. Any non-success response is
// treated as an invalid token; transport failures surface as dependency
// errors.
func (v *GoogleVerifier) Introspect(ctx context.Context, accessToken string) (*GoogleClaims, error) {
	reqURL := fmt.Sprintf("%s?access_token=%s", v.tokenInfoURL, url.QueryEscape(accessToken))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build introspection request: %w", err)
	}

	resp, err := v.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("introspection call failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, ErrInvalidProviderToken
	}

	var claims GoogleClaims
	if err := json.NewDecoder(resp.Body).Decode(&claims); err != nil {
		return nil, ErrInvalidProviderToken
	}
	if claims.Email == "" {
		return nil, ErrInvalidProviderToken
	}

	return &claims, nil
}
