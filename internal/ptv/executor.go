// Package ptv is a client for the PTV Timetable API v3
package ptv

import (
	"context"
	"crypto/hmac"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/randytsao24/gigsahead/internal/models"
)

const serviceName = "ptv"

// maxBodyBytes caps how much of an upstream response is read
const maxBodyBytes = 16 << 20

// Executor performs a GET against the timetable API and returns the body.
// path starts with /v3; query may be nil.
type Executor interface {
	Get(ctx context.Context, path string, query url.Values) ([]byte, error)
}

// SignedExecutor calls the API directly, signing each request with the
// developer id and key.
type SignedExecutor struct {
	baseURL string
	devID   string
	key     []byte
	client  *http.Client
}

// NewSignedExecutor creates an executor holding API credentials
func NewSignedExecutor(baseURL, devID, apiKey string, timeout time.Duration) *SignedExecutor {
	return &SignedExecutor{
		baseURL: strings.TrimRight(baseURL, "/"),
		devID:   devID,
		key:     []byte(apiKey),
		client:  &http.Client{Timeout: timeout},
	}
}

// Get signs and performs the request
func (e *SignedExecutor) Get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	signed := e.SignPath(path, query)
	return get(ctx, e.client, path, e.baseURL+signed)
}

// SignPath returns path?query&devid=X&signature=Y with an uppercase hex
// HMAC-SHA1 over everything before &signature.
func (e *SignedExecutor) SignPath(path string, query url.Values) string {
	request := path
	if len(query) > 0 {
		request += "?" + query.Encode()
	}
	sep := "?"
	if strings.Contains(request, "?") {
		sep = "&"
	}
	raw := request + sep + "devid=" + url.QueryEscape(e.devID)
	return raw + "&signature=" + Sign(e.key, raw)
}

// Sign computes the uppercase hex HMAC-SHA1 of message
func Sign(key []byte, message string) string {
	mac := hmac.New(sha1.New, key)
	mac.Write([]byte(message))
	return strings.ToUpper(hex.EncodeToString(mac.Sum(nil)))
}

// RelayExecutor forwards unsigned requests to a relay that holds the
// credentials and signs on our behalf.
type RelayExecutor struct {
	relayURL string
	client   *http.Client
}

// NewRelayExecutor creates an executor for the relay at relayURL
func NewRelayExecutor(relayURL string, timeout time.Duration) *RelayExecutor {
	return &RelayExecutor{
		relayURL: strings.TrimRight(relayURL, "/"),
		client:   &http.Client{Timeout: timeout},
	}
}

// Get forwards path and query to the relay unchanged
func (e *RelayExecutor) Get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	target := e.relayURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	return get(ctx, e.client, path, target)
}

func get(ctx context.Context, client *http.Client, op, target string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("building request for %s: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, &models.UpstreamError{Service: serviceName, Op: op, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &models.UpstreamError{Service: serviceName, Op: op, StatusCode: resp.StatusCode, Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &models.UpstreamError{
			Service:    serviceName,
			Op:         op,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("unexpected response: %s", snippet(body)),
		}
	}
	return body, nil
}

func snippet(body []byte) string {
	const n = 200
	s := strings.TrimSpace(string(body))
	if len(s) > n {
		return s[:n] + "..."
	}
	if s == "" {
		return "empty body"
	}
	return s
}
