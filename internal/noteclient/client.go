// Package noteclient talks to the remote NoteHub REST service.
package noteclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/starford/notehub/internal/apperr"
	"github.com/starford/notehub/internal/models"
)

// DefaultBaseURL is the public NoteHub API.
const DefaultBaseURL = "https://notehub-public.goit.study/api"

// maxBodyBytes bounds how much of a response is read.
const maxBodyBytes = 4 << 20

// Config holds the connection settings resolved once at startup.
type Config struct {
	BaseURL string
	Token   string
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// WithLogger sets the logger used for request tracing.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// Client issues list/create/delete calls against the notes service.
type Client struct {
	base   *url.URL
	token  string
	http   *http.Client
	logger *slog.Logger
}

// ListParams selects one page of notes. An empty Search is not sent.
type ListParams struct {
	Page    int
	PerPage int
	Search  string
}

// New creates a Client. It fails before any network call when the token is
// missing, since every request would otherwise be rejected.
func New(cfg Config, opts ...Option) (*Client, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, &apperr.ConfigError{Field: "notehub.token", Reason: "bearer token is not set"}
	}
	raw := cfg.BaseURL
	if raw == "" {
		raw = DefaultBaseURL
	}
	base, err := url.Parse(strings.TrimRight(raw, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, &apperr.ConfigError{Field: "notehub.base_url", Reason: fmt.Sprintf("invalid URL %q", raw)}
	}

	c := &Client{
		base:   base,
		token:  cfg.Token,
		http:   http.DefaultClient,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// List fetches one page of notes.
func (c *Client) List(ctx context.Context, p ListParams) (*models.PageResult, error) {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PerPage < 1 {
		p.PerPage = models.PerPage
	}

	q := url.Values{}
	q.Set("page", strconv.Itoa(p.Page))
	q.Set("perPage", strconv.Itoa(p.PerPage))
	if p.Search != "" {
		q.Set("search", p.Search)
	}

	status, body, err := c.do(ctx, http.MethodGet, "/notes", q, nil)
	if err != nil {
		return nil, err
	}
	if !isSuccess(status) {
		return nil, &apperr.TransportError{Status: status, Message: errorMessage(status, body)}
	}

	var raw rawListResponse
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, malformed(status, "decode list response", err)
	}
	res, err := raw.normalize(status, p.Page, p.PerPage)
	if err != nil {
		return nil, err
	}
	if len(res.Items) > res.PerPage {
		c.logger.Warn("notehub returned more notes than requested",
			slog.Int("page", res.Page),
			slog.Int("per_page", res.PerPage),
			slog.Int("items", len(res.Items)))
	}
	return res, nil
}

// Create posts a new note and returns it as stored by the service.
func (c *Client) Create(ctx context.Context, d models.Draft) (*models.Note, error) {
	payload, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("encode draft: %w", err)
	}

	status, body, err := c.do(ctx, http.MethodPost, "/notes", nil, payload)
	if err != nil {
		return nil, err
	}
	if status >= 400 && status < 500 {
		return nil, &apperr.ValidationError{Status: status, Message: errorMessage(status, body)}
	}
	if !isSuccess(status) {
		return nil, &apperr.TransportError{Status: status, Message: errorMessage(status, body)}
	}
	return decodeNote(status, body)
}

// Remove deletes a note and returns the deleted record.
func (c *Client) Remove(ctx context.Context, id int64) (*models.Note, error) {
	path := "/notes/" + strconv.FormatInt(id, 10)
	status, body, err := c.do(ctx, http.MethodDelete, path, nil, nil)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, &apperr.NotFoundError{ID: id}
	}
	if !isSuccess(status) {
		return nil, &apperr.TransportError{Status: status, Message: errorMessage(status, body)}
	}
	return decodeNote(status, body)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, payload []byte) (int, []byte, error) {
	u := c.base.JoinPath(path)
	if query != nil {
		u.RawQuery = query.Encode()
	}

	var rdr io.Reader
	if payload != nil {
		rdr = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), rdr)
	if err != nil {
		return 0, nil, &apperr.TransportError{Message: "build request", Err: err}
	}
	reqID := uuid.NewString()
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", reqID)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Debug("notehub request failed",
			slog.String("method", method),
			slog.String("path", path),
			slog.String("request_id", reqID),
			slog.String("error", err.Error()))
		return 0, nil, &apperr.TransportError{Message: err.Error(), Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return resp.StatusCode, nil, &apperr.TransportError{Status: resp.StatusCode, Message: "read response body", Err: err}
	}

	c.logger.Debug("notehub request",
		slog.String("method", method),
		slog.String("path", path),
		slog.String("request_id", reqID),
		slog.Int("status", resp.StatusCode))
	return resp.StatusCode, body, nil
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}

// errorMessage extracts a human-readable reason from an error response.
func errorMessage(status int, body []byte) string {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if payload.Message != "" {
			return payload.Message
		}
		if payload.Error != "" {
			return payload.Error
		}
	}
	if text := strings.TrimSpace(string(body)); text != "" && !strings.HasPrefix(text, "{") {
		return text
	}
	return http.StatusText(status)
}

func malformed(status int, what string, err error) error {
	return &apperr.TransportError{
		Status:  status,
		Message: fmt.Sprintf("malformed payload: %s", what),
		Err:     errors.Join(errMalformed, err),
	}
}

var errMalformed = errors.New("malformed payload")
