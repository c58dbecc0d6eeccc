package examapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-session/internal/model"
)

// Client talks to the remote exam API. No request timeout is applied; the
// server is trusted to answer or fail, and callers cancel through ctx.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	now        func() time.Time
	log        zerolog.Logger
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithClock replaces time.Now for token expiry checks.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// NewClient creates a Client for baseURL authenticating with a bearer token.
func NewClient(baseURL, token string, log zerolog.Logger, opts ...Option) *Client {
	c := &Client{
		baseURL:    baseURL,
		token:      token,
		httpClient: &http.Client{},
		now:        time.Now,
		log:        log.With().Str("component", "exam_api").Logger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type catalogResponse struct {
	Test struct {
		ID              int    `json:"id"`
		Name            string `json:"name"`
		Description     string `json:"description"`
		DurationMinutes int    `json:"duration_minutes"`
	} `json:"test"`
	Sections []model.Section `json:"sections"`
}

// FetchCatalog loads the sections and questions of a test.
func (c *Client) FetchCatalog(ctx context.Context, testID int) (*model.Catalog, error) {
	q := url.Values{}
	q.Set("test_id", strconv.Itoa(testID))

	var resp catalogResponse
	if err := c.do(ctx, http.MethodGet, "/questions?"+q.Encode(), nil, nil, &resp); err != nil {
		return nil, fmt.Errorf("fetch catalog %d: %w", testID, err)
	}

	catalog := &model.Catalog{
		TestID:          resp.Test.ID,
		Title:           resp.Test.Name,
		Description:     resp.Test.Description,
		DurationMinutes: resp.Test.DurationMinutes,
		Sections:        resp.Sections,
	}
	if catalog.TestID == 0 {
		catalog.TestID = testID
	}
	catalog.Normalize()

	c.log.Debug().
		Int("test_id", catalog.TestID).
		Int("sections", len(catalog.Sections)).
		Int("questions", catalog.TotalQuestions()).
		Msg("Catalog fetched")
	return catalog, nil
}

// Submit sends the answer payload. idempotencyKey is forwarded so the server
// can collapse a retry of a request whose response was lost.
func (c *Client) Submit(ctx context.Context, req model.SubmissionRequest, idempotencyKey string) (*model.SubmissionResult, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal submission: %w", err)
	}

	headers := map[string]string{}
	if idempotencyKey != "" {
		headers["Idempotency-Key"] = idempotencyKey
	}

	var result model.SubmissionResult
	if err := c.do(ctx, http.MethodPost, "/submit", body, headers, &result); err != nil {
		return nil, fmt.Errorf("submit test %d: %w", req.TestID, err)
	}
	return &result, nil
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, headers map[string]string, out interface{}) error {
	if TokenExpired(c.token, c.now()) {
		return &APIError{StatusCode: http.StatusUnauthorized, Message: "session token missing or expired", kind: ErrUnauthorized}
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrServer, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: read body: %v", ErrServer, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := newAPIError(resp.StatusCode, errorMessage(data))
		c.log.Warn().
			Str("method", method).
			Str("path", path).
			Int("status", resp.StatusCode).
			Str("message", apiErr.Message).
			Msg("Exam API request failed")
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: decode response: %v", ErrServer, err)
	}
	return nil
}

// errorMessage extracts the server message from either {"error": "msg"} or
// the envelope form {"error": {"code": "...", "message": "msg"}}.
func errorMessage(data []byte) string {
	var body struct {
		Error json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(data, &body); err != nil || len(body.Error) == 0 {
		return ""
	}

	var msg string
	if err := json.Unmarshal(body.Error, &msg); err == nil {
		return msg
	}

	var obj struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body.Error, &obj); err == nil {
		return obj.Message
	}
	return ""
}
