package mail

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"demodesk/config"
	"demodesk/logger"
	"demodesk/model"
)

// GmailMailer sends notification email through the Gmail REST API.
// Messages are composed as MIME and posted base64url-encoded to the
// users/me/messages/send endpoint.
type GmailMailer struct {
	httpClient *http.Client

	apiURL       string
	tokenURL     string
	clientID     string
	clientSecret string
	refreshToken string
	from         string

	mu          sync.Mutex
	accessToken string
	expiresAt   time.Time

	now func() time.Time
}

// NewGmailMailer builds the mailer from configuration.
func NewGmailMailer(cfg *config.Config) *GmailMailer {
	return &GmailMailer{
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		apiURL:       strings.TrimRight(cfg.GmailAPIURL, "/"),
		tokenURL:     cfg.GmailTokenURL,
		clientID:     cfg.GmailClientID,
		clientSecret: cfg.GmailClientSecret,
		refreshToken: cfg.GmailRefreshToken,
		from:         cfg.GmailFrom,
		now:          time.Now,
	}
}

// SendDecision emails the submitter that their demo was liked or rejected.
func (m *GmailMailer) SendDecision(ctx context.Context, meta model.DemoMetadata, liked bool) error {
	subject, body := decisionMessage(meta, liked)
	return m.send(ctx, meta.SubmitterEmail, subject, body)
}

func (m *GmailMailer) send(ctx context.Context, to, subject, body string) error {
	token, err := m.token(ctx)
	if err != nil {
		return fmt.Errorf("failed to get gmail token: %w", err)
	}

	raw := base64.URLEncoding.EncodeToString(ComposeMIME(m.from, to, subject, body))
	payload, _ := json.Marshal(map[string]string{"raw": raw})

	endpoint := m.apiURL + "/gmail/v1/users/me/messages/send"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create send request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("gmail send failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read gmail response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("gmail returned status %d: %s", resp.StatusCode, respBody)
	}

	logger.Info("[Mail] decision email sent", logger.String("to", to), logger.String("subject", subject))
	return nil
}

// token returns a valid access token, refreshing via the OAuth2
// refresh-token grant when the cached one expired.
func (m *GmailMailer) token(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.accessToken != "" && m.now().Before(m.expiresAt) {
		return m.accessToken, nil
	}

	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", m.refreshToken)
	form.Set("client_id", m.clientID)
	form.Set("client_secret", m.clientSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read token response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("token endpoint returned status %d: %s", resp.StatusCode, body)
	}

	var parsed struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("failed to parse token response: %w", err)
	}
	if parsed.AccessToken == "" {
		return "", fmt.Errorf("token endpoint returned empty access token")
	}

	m.accessToken = parsed.AccessToken
	m.expiresAt = m.now().Add(time.Duration(parsed.ExpiresIn)*time.Second - time.Minute)
	return m.accessToken, nil
}

// ComposeMIME builds a plain-text RFC 822 message.
func ComposeMIME(from, to, subject, body string) []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(body)
	return b.Bytes()
}
