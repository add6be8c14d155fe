package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"demodesk/cache"
	"demodesk/logger"
)

const tokenCacheKey = "dropbox:access_token"

// tokenExpiryMargin shaves the cached lifetime so a token is never handed
// out moments before Dropbox rejects it.
const tokenExpiryMargin = 60 * time.Second

type cachedToken struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// tokenSource caches a Dropbox access token in Redis and refreshes it via
// the OAuth2 refresh-token grant on miss or expiry. When the exchange
// fails it falls back to the static token from configuration, which may
// be stale.
type tokenSource struct {
	kv         cache.KV
	httpClient *http.Client

	tokenURL     string
	appKey       string
	appSecret    string
	refreshToken string
	staticToken  string

	now func() time.Time
}

func newTokenSource(kv cache.KV, httpClient *http.Client, tokenURL, appKey, appSecret, refreshToken, staticToken string) *tokenSource {
	return &tokenSource{
		kv:           kv,
		httpClient:   httpClient,
		tokenURL:     tokenURL,
		appKey:       appKey,
		appSecret:    appSecret,
		refreshToken: refreshToken,
		staticToken:  staticToken,
		now:          time.Now,
	}
}

// Token returns a usable access token, refreshing and re-caching as needed.
func (s *tokenSource) Token(ctx context.Context) (string, error) {
	if raw, err := s.kv.Get(ctx, tokenCacheKey); err == nil {
		var tok cachedToken
		if err := json.Unmarshal(raw, &tok); err == nil && tok.AccessToken != "" && s.now().Before(tok.ExpiresAt) {
			return tok.AccessToken, nil
		}
	}

	token, expiresIn, err := s.refresh(ctx)
	if err != nil {
		if s.staticToken != "" {
			logger.Warn("[DropboxToken] refresh failed, falling back to static token", logger.ErrorField(err))
			return s.staticToken, nil
		}
		return "", fmt.Errorf("failed to refresh access token: %w", err)
	}

	ttl := expiresIn - tokenExpiryMargin
	if ttl < time.Minute {
		ttl = time.Minute
	}
	tok := cachedToken{AccessToken: token, ExpiresAt: s.now().Add(ttl)}
	raw, _ := json.Marshal(tok)
	if err := s.kv.Set(ctx, tokenCacheKey, raw, ttl); err != nil {
		logger.Warn("[DropboxToken] failed to cache refreshed token", logger.ErrorField(err))
	}

	return token, nil
}

// refresh performs the OAuth2 refresh-token exchange.
func (s *tokenSource) refresh(ctx context.Context) (string, time.Duration, error) {
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", s.refreshToken)
	form.Set("client_id", s.appKey)
	form.Set("client_secret", s.appSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", 0, fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", 0, fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", 0, fmt.Errorf("failed to read token response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", 0, fmt.Errorf("token endpoint returned status %d: %s", resp.StatusCode, body)
	}

	var parsed struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", 0, fmt.Errorf("failed to parse token response: %w", err)
	}
	if parsed.AccessToken == "" {
		return "", 0, fmt.Errorf("token endpoint returned empty access token")
	}

	expiresIn := time.Duration(parsed.ExpiresIn) * time.Second
	if expiresIn <= 0 {
		expiresIn = 4 * time.Hour
	}
	return parsed.AccessToken, expiresIn, nil
}
