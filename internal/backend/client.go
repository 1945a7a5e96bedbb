// Package backend implements the REST collaborators the session engine
// depends on: exam catalog, session opener, submission and result lookup.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-client/internal/model"
)

// ClientConfig configures the REST client.
type ClientConfig struct {
	BaseURL string
	Token   string
	Timeout time.Duration
}

// Client talks to the exam backend over its JSON envelope API.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	log     zerolog.Logger
	now     func() time.Time
}

// NewClient creates a new Client. Timeout applies to each request as a whole.
func NewClient(cfg ClientConfig, log zerolog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		token:   cfg.Token,
		http:    &http.Client{Timeout: cfg.Timeout},
		log:     log.With().Str("component", "backend_client").Logger(),
		now:     time.Now,
	}
}

// envelope mirrors the backend's standard response shape.
type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string            `json:"code"`
		Message string            `json:"message"`
		Fields  map[string]string `json:"fields,omitempty"`
	} `json:"error,omitempty"`
}

type openSessionResponse struct {
	SessionID string `json:"session_id"`
}

type submitRequest struct {
	Answers          model.Answers `json:"answers"`
	TimeSpentSeconds int           `json:"time_spent_seconds"`
}

type submitResponse struct {
	ResultID string `json:"result_id"`
}

// FetchExamByID loads an exam definition.
func (c *Client) FetchExamByID(ctx context.Context, examID string) (*model.ExamDefinition, error) {
	var exam model.ExamDefinition
	path := "/student/exams/" + url.PathEscape(examID) + "/paper"
	if err := c.do(ctx, "fetch exam", http.MethodGet, path, nil, &exam, func(status int, _ map[string]string) error {
		if status == http.StatusNotFound {
			return &NotFoundError{Resource: "exam", ID: examID}
		}
		return nil
	}); err != nil {
		return nil, err
	}
	return &exam, nil
}

// OpenSession asks the backend for a new session token.
func (c *Client) OpenSession(ctx context.Context, examID string) (string, error) {
	var resp openSessionResponse
	path := "/student/exams/" + url.PathEscape(examID) + "/sessions"
	if err := c.do(ctx, "open session", http.MethodPost, path, struct{}{}, &resp, nil); err != nil {
		return "", err
	}
	if resp.SessionID == "" {
		return "", &NetworkError{Op: "open session", Err: errors.New("empty session id")}
	}
	return resp.SessionID, nil
}

// SubmitSession sends the final answers.
func (c *Client) SubmitSession(ctx context.Context, sessionID string, answers model.Answers, timeSpentSeconds int) (string, error) {
	var resp submitResponse
	path := "/student/sessions/" + url.PathEscape(sessionID) + "/submit"
	body := submitRequest{Answers: answers, TimeSpentSeconds: timeSpentSeconds}
	err := c.do(ctx, "submit session", http.MethodPost, path, body, &resp, func(status int, fields map[string]string) error {
		if status == http.StatusConflict {
			return &ConflictError{SessionID: sessionID, ResultID: fields["result_id"]}
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	if resp.ResultID == "" {
		return "", &NetworkError{Op: "submit session", Err: errors.New("empty result id")}
	}
	return resp.ResultID, nil
}

// FetchResult loads a finished result.
func (c *Client) FetchResult(ctx context.Context, resultID string) (*model.ExamResult, error) {
	var result model.ExamResult
	path := "/student/results/" + url.PathEscape(resultID)
	if err := c.do(ctx, "fetch result", http.MethodGet, path, nil, &result, func(status int, _ map[string]string) error {
		if status == http.StatusNotFound {
			return &NotFoundError{Resource: "result", ID: resultID}
		}
		return nil
	}); err != nil {
		return nil, err
	}
	return &result, nil
}

// statusMapper turns an error status into a typed error, or nil to use the
// default mapping.
type statusMapper func(status int, fields map[string]string) error

func (c *Client) do(ctx context.Context, op, method, path string, in, out any, mapStatus statusMapper) error {
	if err := c.checkToken(); err != nil {
		return err
	}

	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s: marshal request: %w", op, err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.New().String())
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &NetworkError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	var env envelope
	decodeErr := json.NewDecoder(resp.Body).Decode(&env)

	c.log.Debug().
		Str("op", op).
		Str("path", path).
		Int("status", resp.StatusCode).
		Msg("Backend call")

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if decodeErr != nil {
			return &NetworkError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("decode response: %w", decodeErr)}
		}
		if out != nil && len(env.Data) > 0 {
			if err := json.Unmarshal(env.Data, out); err != nil {
				return &NetworkError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("decode data: %w", err)}
			}
		}
		return nil
	}

	var fields map[string]string
	detail := http.StatusText(resp.StatusCode)
	if decodeErr == nil && env.Error != nil {
		fields = env.Error.Fields
		detail = env.Error.Code
	}

	if mapStatus != nil {
		if typed := mapStatus(resp.StatusCode, fields); typed != nil {
			return typed
		}
	}
	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return &AuthError{Reason: detail}
	default:
		return &NetworkError{Op: op, StatusCode: resp.StatusCode, Err: errors.New(detail)}
	}
}
