// Package restapi implements the service.Service interface over the Task
// Service's JSON REST API.
package restapi

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
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"

	"taskboard/internal/instrumentation"
	"taskboard/internal/logging"
	"taskboard/internal/service"
)

const (
	// DefaultBaseURL is where the Task Service listens in development.
	DefaultBaseURL = "http://localhost:5098"

	// TasksPath is the collection path, relative to the base URL.
	TasksPath = "/api/tasks"

	// APITimeout is the timeout for API calls.
	APITimeout = 5 * time.Second

	// HeaderRequestID carries the per-request correlation id.
	HeaderRequestID = "X-Request-ID"

	// maxErrorBody bounds how much of an error response is kept for messages.
	maxErrorBody = 512
)

// ErrTimeout is returned when a call exceeds its timeout.
// It also matches service.ErrUnavailable.
var ErrTimeout = fmt.Errorf("request timed out: %w", service.ErrUnavailable)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client. Its transport is used as given.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTimeout overrides APITimeout. Non-positive values are ignored.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m *instrumentation.Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// Client implements service.Service over HTTP.
type Client struct {
	base    *url.URL
	http    *http.Client
	timeout time.Duration
	logger  *slog.Logger
	metrics *instrumentation.Metrics
}

// New creates a client for the Task Service at baseURL
// (for example "http://localhost:5098").
func New(baseURL string, opts ...Option) (*Client, error) {
	base, err := ParseBaseURL(baseURL)
	if err != nil {
		return nil, err
	}

	c := &Client{
		base:    base,
		http:    &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
		timeout: APITimeout,
		logger:  logging.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// ParseBaseURL validates a Task Service base URL.
func ParseBaseURL(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, errors.New("base URL is empty")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid base URL %q: scheme must be http or https", raw)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("invalid base URL %q: missing host", raw)
	}
	u.Path = strings.TrimSuffix(u.Path, "/")
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}

// BaseURL returns the normalized base URL.
func (c *Client) BaseURL() string {
	return c.base.String()
}

// ListTasks implements service.Service.
func (c *Client) ListTasks(ctx context.Context) ([]service.Task, error) {
	var tasks []service.Task
	if err := c.do(ctx, "list", http.MethodGet, TasksPath, 0, nil, &tasks); err != nil {
		return nil, err
	}
	if tasks == nil {
		tasks = []service.Task{}
	}
	return tasks, nil
}

// CreateTask implements service.Service.
func (c *Client) CreateTask(ctx context.Context, task service.Task) (service.Task, error) {
	task.ID = 0

	var created service.Task
	if err := c.do(ctx, "create", http.MethodPost, TasksPath, 0, task, &created); err != nil {
		return service.Task{}, err
	}
	return created, nil
}

// UpdateTask implements service.Service.
func (c *Client) UpdateTask(ctx context.Context, task service.Task) error {
	return c.do(ctx, "update", http.MethodPut, taskPath(task.ID), task.ID, task, nil)
}

// DeleteTask implements service.Service.
func (c *Client) DeleteTask(ctx context.Context, id int64) error {
	return c.do(ctx, "delete", http.MethodDelete, taskPath(id), id, nil, nil)
}

func taskPath(id int64) string {
	return TasksPath + "/" + strconv.FormatInt(id, 10)
}

// do performs one round trip. body, when non-nil, is sent as JSON;
// out, when non-nil, receives the decoded response.
func (c *Client) do(ctx context.Context, op, method, path string, taskID int64, body, out any) (err error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	requestID := uuid.NewString()
	attrs := []attribute.KeyValue{attribute.String(instrumentation.SpanAttrRequestID, requestID)}
	if taskID != 0 {
		attrs = append(attrs, attribute.Int64(instrumentation.SpanAttrTaskID, taskID))
	}
	ctx, span := instrumentation.StartAPISpan(ctx, op, attrs...)
	defer span.End()

	logger := c.logger.With(logging.Operation("taskapi."+op), logging.RequestID(requestID))
	start := time.Now()
	defer func() {
		elapsed := time.Since(start)
		if err != nil {
			instrumentation.SetSpanError(span, err)
			c.metrics.RecordAPIOperation(ctx, op, instrumentation.StatusError, elapsed)
			logger.Debug("request failed",
				logging.Status(logging.StatusError),
				slog.Duration(logging.KeyDuration, elapsed),
				logging.TraceID(instrumentation.TraceID(ctx)),
				logging.Err(err))
			return
		}
		instrumentation.SetSpanSuccess(span)
		c.metrics.RecordAPIOperation(ctx, op, instrumentation.StatusSuccess, elapsed)
		logger.Debug("request done",
			logging.Status(logging.StatusSuccess),
			slog.Duration(logging.KeyDuration, elapsed))
	}()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s request: %w", op, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base.String()+path, reader)
	if err != nil {
		return fmt.Errorf("build %s request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(HeaderRequestID, requestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return wrapError(ctx, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return statusError(method, path, resp.StatusCode, msg)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%s %s: empty response body", method, path)
		}
		return fmt.Errorf("%s %s: decode response: %w", method, path, err)
	}
	return nil
}

// wrapError classifies transport errors.
func wrapError(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return ErrTimeout
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	return fmt.Errorf("%w: %v", service.ErrUnavailable, err)
}

// statusError maps a non-2xx response to a service sentinel.
func statusError(method, path string, code int, body []byte) error {
	detail := strings.TrimSpace(string(body))
	if detail != "" {
		detail = ": " + detail
	}

	var sentinel error
	switch {
	case code == http.StatusNotFound:
		sentinel = service.ErrNotFound
	case code == http.StatusBadRequest || code == http.StatusUnprocessableEntity:
		sentinel = service.ErrInvalidInput
	case code >= 500:
		sentinel = service.ErrUnavailable
	default:
		return fmt.Errorf("%s %s: unexpected status %d%s", method, path, code, detail)
	}
	return fmt.Errorf("%s %s: status %d: %w%s", method, path, code, sentinel, detail)
}

var _ service.Service = (*Client)(nil)
