// Package kaltura implements the session handshake against the Kaltura API.
package kaltura

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// Session kinds accepted by the session service.
const (
	SessionKindUser  = "user"
	SessionKindAdmin = "admin"
)

// Doer issues HTTP requests. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client calls the Kaltura session service. It holds no state beyond its
// configuration; every call is a single attempt with no retry.
type Client struct {
	baseURL string
	client  Doer
}

// NewClient constructs a session client for the given service base URL.
func NewClient(baseURL string, client Doer) *Client {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = "https://www.kaltura.com"
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
	}
}

// StartSession requests a short-lived session token scoped to the partner.
// The returned token is opaque; callers embed it in subsequent API requests.
func (c *Client) StartSession(ctx context.Context, secret, userID, kind, partnerID string, expirySeconds int, privileges string) (string, error) {
	if strings.TrimSpace(partnerID) == "" {
		return "", errors.New("partner id must be provided")
	}
	if expirySeconds <= 0 {
		expirySeconds = 86400
	}

	params := url.Values{}
	params.Set("service", "session")
	params.Set("action", "start")
	params.Set("secret", secret)
	params.Set("userId", userID)
	params.Set("type", sessionTypeCode(kind))
	params.Set("partnerId", partnerID)
	params.Set("expiry", strconv.Itoa(expirySeconds))
	params.Set("privileges", privileges)
	// format 1 selects JSON responses.
	params.Set("format", "1")

	endpoint := c.baseURL + "/api_v3/index.php?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("build session request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("start session: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read session response: %w", err)
	}

	return parseSessionResponse(body)
}

// parseSessionResponse decodes the session service reply. A successful start
// yields a bare JSON string; failures yield an error envelope.
func parseSessionResponse(body []byte) (string, error) {
	var payload any
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", fmt.Errorf("decode session response: %w", err)
	}

	switch value := payload.(type) {
	case string:
		if value == "" {
			return "", errors.New("session service returned an empty token")
		}
		return value, nil
	case map[string]any:
		if errObj, ok := value["error"].(map[string]any); ok {
			code, _ := errObj["code"].(string)
			message, _ := errObj["message"].(string)
			return "", fmt.Errorf("session service error %s: %s", code, message)
		}
		return "", errors.New("unexpected session response shape")
	default:
		return "", errors.New("unexpected session response shape")
	}
}

func sessionTypeCode(kind string) string {
	if kind == SessionKindAdmin {
		return "2"
	}
	return "0"
}
