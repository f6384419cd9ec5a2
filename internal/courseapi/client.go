package courseapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/abhisek/learnpath/internal/course"
)

// maxErrorBody caps how much of an error response is kept in StatusError.
const maxErrorBody = 512

// ClientConfig configures the HTTP client.
type ClientConfig struct {
	// BaseURL is the API root, e.g. "https://learn.example.com/api".
	BaseURL string

	// Timeout bounds a single request. Default: 15s.
	Timeout time.Duration

	// Token, when set, is sent as a bearer token.
	Token string

	Logger     *slog.Logger
	HTTPClient *http.Client
}

// Client is a Source backed by the course backend's REST API.
type Client struct {
	base   *url.URL
	token  string
	http   *http.Client
	logger *slog.Logger
}

var _ Source = (*Client)(nil)

// NewClient validates the config and builds a Client.
func NewClient(cfg ClientConfig) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base URL is empty")
	}
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("invalid base URL scheme %q", base.Scheme)
	}

	hc := cfg.HTTPClient
	if hc == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		hc = &http.Client{Timeout: timeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{base: base, token: cfg.Token, http: hc, logger: logger}, nil
}

func (c *Client) Course(ctx context.Context, courseID string) (*course.Course, error) {
	p := "/courses/" + url.PathEscape(courseID) + "/"
	body, err := c.get(ctx, p, nil)
	if err != nil {
		return nil, err
	}
	if err := validateCourse(p, body); err != nil {
		return nil, err
	}
	var out course.Course
	if err := decode(p, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Pages(ctx context.Context, subtopicID string, role course.Role, studentID string) (*PagesResponse, error) {
	p := "/pages/by_subtopic/" + url.PathEscape(subtopicID) + "/"
	var q url.Values
	if role.IsStudent() {
		q = url.Values{"student_id": {studentID}}
	}
	body, err := c.get(ctx, p, q)
	if err != nil {
		return nil, err
	}
	var out PagesResponse
	if err := decode(p, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Page(ctx context.Context, pageID string) (*course.Page, error) {
	p := "/pages/" + url.PathEscape(pageID)
	body, err := c.get(ctx, p, nil)
	if err != nil {
		return nil, err
	}
	var out course.Page
	if err := decode(p, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Mastery(ctx context.Context, studentID string) ([]course.MasteryRecord, error) {
	p := "/mastery/"
	body, err := c.get(ctx, p, url.Values{"student_id": {studentID}})
	if err != nil {
		return nil, err
	}
	var out []course.MasteryRecord
	if err := decode(p, body, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) PreassessmentAttempts(ctx context.Context, studentID, courseID string) ([]course.PreassessmentAttempt, error) {
	p := "/studentPreassessmentAttempt/"
	body, err := c.get(ctx, p, url.Values{"student_id": {studentID}, "course_id": {courseID}})
	if err != nil {
		return nil, err
	}
	var out []course.PreassessmentAttempt
	if err := decode(p, body, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) QuizResult(ctx context.Context, quizID, studentID string) (*course.QuizResult, error) {
	p := "/quizzes/" + url.PathEscape(quizID) + "/results/" + url.PathEscape(studentID)
	body, err := c.get(ctx, p, nil)
	if err != nil {
		return nil, err
	}
	var out course.QuizResult
	if err := decode(p, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// get issues a GET for path relative to the base URL and returns the body
// of a 2xx response.
func (c *Client) get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	u := *c.base
	u.RawPath = c.base.EscapedPath() + path
	unescaped, err := url.PathUnescape(u.RawPath)
	if err != nil {
		return nil, fmt.Errorf("invalid path %q: %w", path, err)
	}
	u.Path = unescaped
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	c.logger.Debug("api request",
		"path", path,
		"status", resp.StatusCode,
		"latency_ms", time.Since(start).Milliseconds())

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet := strings.TrimSpace(string(body))
		if len(snippet) > maxErrorBody {
			snippet = snippet[:maxErrorBody]
		}
		return nil, &StatusError{
			Method:     http.MethodGet,
			Path:       path,
			StatusCode: resp.StatusCode,
			Body:       snippet,
		}
	}
	return body, nil
}

func decode(path string, body []byte, out any) error {
	if err := json.Unmarshal(body, out); err != nil {
		return &InvalidPayloadError{Path: path, Content: body, Err: err}
	}
	return nil
}
