package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// ErrNotFound is returned when the server reports the resource as absent
var ErrNotFound = errors.New("resource not found")

// APIError is a non-2xx response from the server
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("api error %d", e.Status)
}

// Is lets errors.Is(err, ErrNotFound) match 404 responses.
func (e *APIError) Is(target error) bool {
	return target == ErrNotFound && e.Status == http.StatusNotFound
}

// StatusCode returns the HTTP status carried by err, or 0 for transport errors.
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

// IsTransient reports whether err is a network failure or a 5xx response.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status >= 500
	}
	return true
}

// UserMessage returns a message fit for display, never a raw transport error.
func UserMessage(err error, fallback string) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		if apiErr.Message != "" {
			return apiErr.Message
		}
		return fallback
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "The server is not responding. Check your connection."
	}
	return "Cannot reach the server. Check your connection."
}

// TokenSource provides the bearer token for outgoing requests
type TokenSource interface {
	Token() string
}

// Client performs authenticated JSON requests against the remote API
type Client struct {
	baseURL        string
	httpClient     *http.Client
	tokens         TokenSource
	onUnauthorized func()
}

// NewClient creates a new API client. baseURL must already be normalised.
func NewClient(baseURL string, timeout time.Duration, tokens TokenSource) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		tokens:     tokens,
	}
}

// OnUnauthorized registers fn to run when a non-auth endpoint answers 401.
func (c *Client) OnUnauthorized(fn func()) {
	c.onUnauthorized = fn
}

// response is a decoded-on-demand server reply
type response struct {
	status      int
	contentType string
	body        []byte
}

// isJSON reports whether the response carries a JSON document.
func (r *response) isJSON() bool {
	if len(bytes.TrimSpace(r.body)) == 0 {
		return false
	}
	mediaType, _, err := mime.ParseMediaType(r.contentType)
	if err != nil {
		return false
	}
	return mediaType == "application/json" || strings.HasSuffix(mediaType, "+json")
}

// do sends a request and returns the raw reply. Non-2xx replies are returned
// as *APIError.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any) (*response, error) {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	requestID := uuid.New().String()
	req.Header.Set("X-Request-ID", requestID)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	isAuthEndpoint := strings.HasPrefix(path, "/auth/")
	if c.tokens != nil && !isAuthEndpoint {
		if token := c.tokens.Token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Debug().
			Err(err).
			Str("request_id", requestID).
			Str("method", method).
			Str("path", path).
			Msg("Request failed")
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	log.Debug().
		Str("request_id", requestID).
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("Request completed")

	out := &response{
		status:      resp.StatusCode,
		contentType: resp.Header.Get("Content-Type"),
		body:        data,
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return out, nil
	}

	if resp.StatusCode == http.StatusUnauthorized && !isAuthEndpoint && c.onUnauthorized != nil {
		log.Warn().Str("path", path).Msg("Token rejected by server, ending session")
		c.onUnauthorized()
	}
	return out, &APIError{Status: resp.StatusCode, Message: errorMessage(out)}
}

// errorMessage extracts the server's message from an error reply.
func errorMessage(r *response) string {
	if !r.isJSON() {
		return ""
	}
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
		Errors  []struct {
			Message string `json:"message"`
			Msg     string `json:"msg"`
		} `json:"errors"`
	}
	if err := json.Unmarshal(r.body, &payload); err != nil {
		return ""
	}
	switch {
	case strings.TrimSpace(payload.Message) != "":
		return payload.Message
	case len(payload.Errors) > 0 && payload.Errors[0].Message != "":
		return payload.Errors[0].Message
	case len(payload.Errors) > 0 && payload.Errors[0].Msg != "":
		return payload.Errors[0].Msg
	default:
		return payload.Error
	}
}

// decode unmarshals a reply into out, unwrapping a {"data": ...} envelope when
// present. It returns false when the reply has no JSON document or a null one.
func decode(r *response, out any) (bool, error) {
	if !r.isJSON() {
		return false, nil
	}
	payload := r.body
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if bytes.HasPrefix(bytes.TrimSpace(payload), []byte("{")) {
		if err := json.Unmarshal(payload, &envelope); err == nil && envelope.Data != nil {
			payload = envelope.Data
		}
	}
	if bytes.Equal(bytes.TrimSpace(payload), []byte("null")) {
		return false, nil
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return false, fmt.Errorf("failed to decode response: %w", err)
	}
	return true, nil
}

// Warmup pings the server's health endpoint so cold-start hosts wake up.
// Failures are ignored.
func (c *Client) Warmup(ctx context.Context, serverRoot string) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(serverRoot, "/")+"/health", nil)
	if err != nil {
		return
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Debug().Err(err).Msg("Warmup request failed")
		return
	}
	resp.Body.Close()
}

// slotQuery builds the optional ?slot= parameter.
func slotQuery(slot string) url.Values {
	if slot == "" {
		return nil
	}
	return url.Values{"slot": []string{slot}}
}
